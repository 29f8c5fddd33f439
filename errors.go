// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package ren

import "errors"

// Sentinel errors.
var (
	// ErrResourceCreation is returned when the device failed to create a
	// buffer or image. The device error is wrapped alongside it.
	ErrResourceCreation = errors.New("ren: resource creation failed")

	// ErrEmptyHandle is returned when an operation needs a live resource but
	// got an empty view.
	ErrEmptyHandle = errors.New("ren: empty resource handle")

	// ErrUploadSize is returned when upload data does not fit the
	// destination or does not cover an image's mip levels.
	ErrUploadSize = errors.New("ren: upload size mismatch")

	// ErrClosed is returned by operations on a closed Blackboard or
	// TransferContext.
	ErrClosed = errors.New("ren: closed")
)

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderer

import "errors"

// Sentinel errors.
var (
	// ErrClosed is returned by operations on a closed Renderer.
	ErrClosed = errors.New("renderer: closed")

	// ErrInvalidDimensions is returned for a zero output size.
	ErrInvalidDimensions = errors.New("renderer: invalid dimensions")

	// ErrUnknownModel is returned when removing a model that was never
	// added.
	ErrUnknownModel = errors.New("renderer: unknown model")
)

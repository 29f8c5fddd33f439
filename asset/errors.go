// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package asset

import (
	"errors"
	"fmt"
	"io"
)

// Asset errors.
var (
	// ErrBadMagic is returned when a file is not the expected container.
	ErrBadMagic = errors.New("asset: bad magic")

	// ErrUnsupportedVersion is returned for container versions other than 1.
	ErrUnsupportedVersion = errors.New("asset: unsupported version")

	// ErrTruncated is returned when the data ends before the header says.
	ErrTruncated = errors.New("asset: truncated data")

	// ErrInvalid is returned for headers or contents that are inconsistent.
	ErrInvalid = errors.New("asset: invalid content")
)

// truncated maps short reads to ErrTruncated.
func truncated(what string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %s", ErrTruncated, what)
	}
	return fmt.Errorf("asset: read %s: %w", what, err)
}

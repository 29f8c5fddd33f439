// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package asset

import (
	"bytes"
	"fmt"
)

const (
	// NameFieldSize is the size of a NUL-terminated name field.
	NameFieldSize = 160
	// HashFieldSize is the size of a texture hash identifier.
	HashFieldSize = 32
)

type nameField [NameFieldSize]byte

func (n *nameField) String() string {
	if i := bytes.IndexByte(n[:], 0); i >= 0 {
		return string(n[:i])
	}
	return string(n[:])
}

func makeName(s string) (nameField, error) {
	var n nameField
	if len(s) >= NameFieldSize {
		return n, fmt.Errorf("%w: name %q longer than %d bytes", ErrInvalid, s, NameFieldSize-1)
	}
	copy(n[:], s)
	return n, nil
}

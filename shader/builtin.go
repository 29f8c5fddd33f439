// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package shader

import (
	"embed"
	"io/fs"
)

//go:embed shaders/*.wgsl shaders/pipelines.yaml
var builtinFS embed.FS

// Builtin returns the embedded library: the manifest and WGSL sources of
// the renderer techniques.
func Builtin() fs.FS {
	sub, err := fs.Sub(builtinFS, "shaders")
	if err != nil {
		panic(err)
	}
	return sub
}

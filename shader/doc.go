// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package shader is the named pipeline library of the renderer.
//
// Pipelines are listed in a YAML manifest (pipelines.yaml) next to their
// WGSL sources:
//
//	pipelines:
//	  - name: g_buffer_resolve
//	    kind: compute
//	    source: g_buffer_resolve.wgsl
//	    group_size: [8, 8, 1]
//	    push_constants: 16
//	  - name: fft
//	    kind: compute
//	    source: fft.wgsl
//	    variants:
//	      - name: vertical
//	        defines: {DIRECTION: "0u"}
//
// A variant substitutes ${NAME} tokens in the source before compilation.
// Sources are validated with naga before they reach the device.
//
// The built-in library is embedded in the binary. A library opened on a
// directory can be watched: changed sources are marked dirty and rebuilt
// by the next Reload, which the frame loop calls between frames.
package shader

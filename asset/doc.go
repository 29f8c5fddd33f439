// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package asset reads and writes the renderer's asset containers.
//
// Both containers are little-endian fixed layouts: a header followed by
// tightly packed arrays.
//
//   - RTEX (.rentex) holds one texture with up to MaxMipLevels mips.
//   - RMDL (.renmdl) holds a model: URI references, materials, submesh
//     ranges, instances, vertex positions, vertex attributes, skinning
//     attributes and indices, in that order.
//
// UploadTexture and UploadModel create the GPU resources of an asset on a
// ren.Blackboard and queue their contents on a ren.TransferContext.
package asset

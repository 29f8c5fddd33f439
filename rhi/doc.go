// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package rhi defines the render hardware interface consumed by the ren
// resource core: resource descriptions, the barrier vocabulary, and the
// Device and CommandList contracts.
//
// The package carries no backend. rhi/halrhi implements the contract on top
// of github.com/gogpu/wgpu/hal, and rhi/rhitest provides an in-memory
// recording implementation for tests.
//
// # Barriers
//
// A barrier describes a transition of one resource from the pipeline stage,
// memory access and (for images) layout it was last used with to the ones
// the next operation requires:
//
//	cmd.Barrier(rhi.BarrierInfo{
//	    Images: []rhi.ImageBarrierInfo{{
//	        StageBefore:  rhi.StageColorAttachmentOutput,
//	        StageAfter:   rhi.StagePixelShader,
//	        AccessBefore: rhi.AccessColorAttachmentWrite,
//	        AccessAfter:  rhi.AccessShaderSampledRead,
//	        LayoutBefore: rhi.LayoutColorAttachment,
//	        LayoutAfter:  rhi.LayoutShaderReadOnly,
//	        Image:        img,
//	    }},
//	})
//
// Callers rarely build barriers by hand; ren.Tracker computes and batches
// them.
package rhi

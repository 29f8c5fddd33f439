// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package ren is the resource core of a real-time GPU renderer: named GPU
// resources with deferred deletion, barrier tracking, and staged uploads.
//
// # Overview
//
// A [Blackboard] owns buffers and images by logical name. Techniques create
// their resources idempotently at construction and keep the returned
// [Buffer] and [Image] views; a view reads its slot on every access, so
// [Image.Recreate] after a window resize is seen by every holder.
//
// Resources released by DestroyBuffer, DestroyImage or Recreate are not
// destroyed right away. They are queued with a retirement frame of the
// current frame plus [FramesInFlight] and destroyed by
// [Blackboard.GarbageCollect] once the frame loop reaches it.
//
// A [Tracker] turns declared resource uses into batched barriers:
//
//	tracker := ren.NewTracker()
//	tracker.UseImage(rt, rhi.StageColorAttachmentOutput, rhi.AccessColorAttachmentWrite,
//	    rhi.LayoutColorAttachment, true)
//	tracker.Flush(cmd)
//	// record the render pass
//	tracker.UseImage(rt, rhi.StagePixelShader, rhi.AccessShaderSampledRead,
//	    rhi.LayoutShaderReadOnly, false)
//	tracker.Flush(cmd)
//
// A [TransferContext] stages CPU data in per-frame rings of upload buffers
// and records the copies with [TransferContext.Process].
//
// # Frame loop
//
// The owner of these objects runs, per frame:
//
//  1. wait for the GPU work of the frame slot about to be reused
//  2. Blackboard.GarbageCollect(frame)
//  3. TransferContext.GarbageCollect()
//  4. record techniques against a fresh Tracker
//  5. TransferContext.Process on a list submitted before the frame's list
//
// Package renderer implements this loop.
//
// # Thread Safety
//
// Blackboard, Tracker and TransferContext are driven by a single recording
// goroutine and are not safe for concurrent use.
package ren

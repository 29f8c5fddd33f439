// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package technique records the render passes of the renderer on top of
// the ren core.
//
// Every technique creates its resources on a [ren.Blackboard] under fixed
// names when constructed and destroys them in Close. Recording follows the
// same protocol everywhere: declare the uses of every resource on a
// [ren.Tracker], flush the tracker, then record the pass. Pipelines are
// looked up in a [shader.Library] on every invocation so a reload between
// frames takes effect immediately.
//
//	g, err := technique.NewGBuffer(bb, lib, 1280, 720)
//	...
//	tracker := ren.NewTracker()
//	g.Render(cmd, tracker, camera, draws)
//	g.Resolve(cmd, tracker, shaded, brdf.Texture())
package technique

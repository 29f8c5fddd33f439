// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package renderer drives the techniques of package technique once per
// frame on top of the ren resource core.
//
// A Renderer owns a Blackboard and a TransferContext sized to the
// configured frames in flight and keeps one submission index per frame
// slot. Frame waits for the slot it is about to reuse before garbage
// collecting retired resources and rewinding staging memory, so nothing
// the GPU may still read is destroyed or overwritten.
//
// Each frame records the techniques on a fresh ren.Tracker into one
// command list and the uploads they staged into a second list that is
// submitted first:
//
//	r, err := renderer.New(device, config.Default(), lib)
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//	for running {
//	    if err := r.Frame(ctx, dt); err != nil {
//	        return err
//	    }
//	}
package renderer

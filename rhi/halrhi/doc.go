// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package halrhi implements rhi.Device on the gogpu hardware abstraction
// layer (github.com/gogpu/wgpu/hal), so the ren core runs on any hal
// backend: Vulkan, Metal, DX12, GLES, software, or the noop backend used in
// tests.
//
// # Mapping
//
// Memory heaps become buffer usages. CPU-visible buffers are created
// mapped and stay mapped; rhi.Buffer.Data aliases the mapping.
//
// Barriers become hal usage transitions. Stages are implied by the
// usages, memory barriers are implicit in hal, and a discarding image
// barrier transitions from no usage.
//
// hal has no push constants. SetPushConstants writes into a uniform ring
// bound at group 0, binding 0 with a dynamic offset; shaders declare
//
//	@group(0) @binding(0) var<uniform> push: Push;
//
// Each Dispatch records its own compute pass.
//
// # Devices
//
// New wraps a hal device owned by the caller, FromProvider takes the
// device of a host application, and Open creates a device of its own:
//
//	dev, err := halrhi.Open(noop.API{})
//	if err != nil {
//	    return err
//	}
//	defer dev.Close()
package halrhi

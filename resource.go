// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package ren

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/ren/internal/arena"
	"github.com/gogpu/ren/rhi"
)

// ResourceID identifies one native buffer or image for state tracking.
// IDs are assigned by the Blackboard, never reused, and change when a
// resource is recreated. The zero ID belongs to no resource.
type ResourceID uint64

// Buffer is a non-owning view onto a Blackboard buffer slot. Views are
// cheap to copy; every accessor reads the slot, so a view observes
// Recreate through any other view of the same slot.
//
// The zero Buffer is empty.
type Buffer struct {
	bb *Blackboard
	h  arena.Handle
}

func (b Buffer) entry() *bufferEntry {
	if b.bb == nil {
		return nil
	}
	e, _ := b.bb.buffers.Get(b.h)
	return e
}

// Valid reports whether the view refers to a registered buffer.
func (b Buffer) Valid() bool { return b.entry() != nil }

// Name returns the logical name, or "" for an empty view.
func (b Buffer) Name() string {
	if e := b.entry(); e != nil {
		return e.name
	}
	return ""
}

// Native returns the native buffer currently held by the slot.
func (b Buffer) Native() *rhi.Buffer {
	if e := b.entry(); e != nil {
		return e.native
	}
	return nil
}

// ID returns the tracking identity of the current native buffer.
func (b Buffer) ID() ResourceID {
	if e := b.entry(); e != nil {
		return e.id
	}
	return 0
}

// BindlessIndex returns the descriptor slot of the buffer, or
// rhi.InvalidBindlessIndex for an empty view.
func (b Buffer) BindlessIndex() uint32 {
	if e := b.entry(); e != nil {
		return e.native.BindlessIndex
	}
	return rhi.InvalidBindlessIndex
}

// CreateInfo returns the description the current buffer was created with.
func (b Buffer) CreateInfo() rhi.BufferCreateInfo {
	if e := b.entry(); e != nil {
		return e.native.BufferCreateInfo
	}
	return rhi.BufferCreateInfo{}
}

// Size returns the buffer size in bytes.
func (b Buffer) Size() uint64 { return b.CreateInfo().Size }

// Heap returns the memory heap of the buffer.
func (b Buffer) Heap() rhi.MemoryHeapType { return b.CreateInfo().Heap }

// Data returns the persistent CPU mapping of a CPU-visible buffer, nil for
// GPU heap buffers and empty views.
func (b Buffer) Data() []byte {
	if e := b.entry(); e != nil {
		return e.native.Data
	}
	return nil
}

// Recreate replaces the slot's buffer with a new one described by info.
// The old buffer is queued for deferred deletion; every view of the slot
// observes the new buffer. On failure the slot keeps the old buffer.
func (b Buffer) Recreate(info rhi.BufferCreateInfo) error {
	if b.entry() == nil {
		return ErrEmptyHandle
	}
	return b.bb.recreateBuffer(b.h, info)
}

// Image is a non-owning view onto a Blackboard image slot, with the same
// aliasing behavior as Buffer.
//
// The zero Image is empty.
type Image struct {
	bb *Blackboard
	h  arena.Handle
}

func (img Image) entry() *imageEntry {
	if img.bb == nil {
		return nil
	}
	e, _ := img.bb.images.Get(img.h)
	return e
}

// Valid reports whether the view refers to a registered image.
func (img Image) Valid() bool { return img.entry() != nil }

// Name returns the logical name, or "" for an empty view.
func (img Image) Name() string {
	if e := img.entry(); e != nil {
		return e.name
	}
	return ""
}

// Native returns the native image currently held by the slot.
func (img Image) Native() *rhi.Image {
	if e := img.entry(); e != nil {
		return e.native
	}
	return nil
}

// ID returns the tracking identity of the current native image.
func (img Image) ID() ResourceID {
	if e := img.entry(); e != nil {
		return e.id
	}
	return 0
}

// BindlessIndex returns the descriptor slot of the image, or
// rhi.InvalidBindlessIndex for an empty view.
func (img Image) BindlessIndex() uint32 {
	if e := img.entry(); e != nil {
		return e.native.BindlessIndex
	}
	return rhi.InvalidBindlessIndex
}

// CreateInfo returns the normalized description of the current image.
func (img Image) CreateInfo() rhi.ImageCreateInfo {
	if e := img.entry(); e != nil {
		return e.native.ImageCreateInfo
	}
	return rhi.ImageCreateInfo{}
}

// Width returns the width of mip level 0.
func (img Image) Width() uint32 { return img.CreateInfo().Width }

// Height returns the height of mip level 0.
func (img Image) Height() uint32 { return img.CreateInfo().Height }

// Format returns the texel format.
func (img Image) Format() gputypes.TextureFormat { return img.CreateInfo().Format }

// Recreate replaces the slot's image with a new one described by info,
// typically to follow a window resize. See Buffer.Recreate.
func (img Image) Recreate(info rhi.ImageCreateInfo) error {
	if img.entry() == nil {
		return ErrEmptyHandle
	}
	return img.bb.recreateImage(img.h, info)
}

// Sampler is a deduplicated immutable sampler. Samplers live as long as the
// Blackboard that created them.
type Sampler struct {
	native *rhi.Sampler
}

// Valid reports whether the sampler was created.
func (s Sampler) Valid() bool { return s.native != nil }

// Native returns the native sampler.
func (s Sampler) Native() *rhi.Sampler { return s.native }

// BindlessIndex returns the descriptor slot of the sampler, or
// rhi.InvalidBindlessIndex for an empty Sampler.
func (s Sampler) BindlessIndex() uint32 {
	if s.native == nil {
		return rhi.InvalidBindlessIndex
	}
	return s.native.BindlessIndex
}

// CreateInfo returns the sampler description.
func (s Sampler) CreateInfo() rhi.SamplerCreateInfo {
	if s.native == nil {
		return rhi.SamplerCreateInfo{}
	}
	return s.native.SamplerCreateInfo
}

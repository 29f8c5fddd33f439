// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package ren

import (
	"fmt"

	"github.com/gogpu/ren/rhi"
)

// StagingChunkSize is the allocation step of the staging rings.
const StagingChunkSize = 16 << 20

// stagingAlignment aligns every staged region for buffer to image copies.
const stagingAlignment = rhi.CopyRowPitchAlignment

type stagingChunk struct {
	buffer *rhi.Buffer
	offset uint64
}

func (c *stagingChunk) free() uint64 { return c.buffer.Size - c.offset }

type bufferCopy struct {
	src       *rhi.Buffer
	srcOffset uint64
	dst       *rhi.Buffer
	dstOffset uint64
	size      uint64
}

type imageCopy struct {
	src        *rhi.Buffer
	srcOffset  uint64
	size       uint64
	rowPitch   uint32
	extent     rhi.Extent3D
	mipLevel   uint32
	arrayIndex uint32
}

type imageUpload struct {
	dst    *rhi.Image
	copies []imageCopy
}

// stagingRing is the staging memory of one frame-in-flight slot.
type stagingRing struct {
	chunks  []*stagingChunk
	current int
	staged  uint64
	buffers []bufferCopy
	images  []imageUpload
}

// TransferStats contains staging counters.
type TransferStats struct {
	Frame uint64
	// Chunks is the number of staging buffers across all rings.
	Chunks int
	// Capacity is the total staging memory in bytes.
	Capacity uint64
	// Staged is the number of bytes staged for the current frame.
	Staged uint64
	// PendingBuffers and PendingImages count copies not yet processed.
	PendingBuffers int
	PendingImages  int
}

// String returns a human-readable summary.
func (s TransferStats) String() string {
	return fmt.Sprintf("Transfer[frame %d, %d chunks, %d/%d MB staged, %d buffer and %d image uploads pending]",
		s.Frame, s.Chunks, s.Staged>>20, s.Capacity>>20, s.PendingBuffers, s.PendingImages)
}

// TransferOption configures a TransferContext.
type TransferOption func(*TransferContext)

// WithTransferFramesInFlight sets the number of staging rings. Values
// below 1 are ignored.
func WithTransferFramesInFlight(n int) TransferOption {
	return func(tc *TransferContext) {
		if n >= 1 {
			tc.rings = make([]stagingRing, n)
		}
	}
}

// TransferContext stages CPU data in per-frame rings of upload buffers and
// records the copies into GPU resources.
//
// The caller keeps staging memory safe to reuse by waiting, before each
// GarbageCollect, for the GPU work of the frame that last used the ring.
//
// TransferContext is not safe for concurrent use.
type TransferContext struct {
	device rhi.Device
	rings  []stagingRing
	frame  uint64
	closed bool
}

// NewTransferContext creates a TransferContext allocating staging memory on
// device.
func NewTransferContext(device rhi.Device, opts ...TransferOption) *TransferContext {
	tc := &TransferContext{
		device: device,
		rings:  make([]stagingRing, FramesInFlight),
	}
	for _, opt := range opts {
		opt(tc)
	}
	return tc
}

func (tc *TransferContext) ring() *stagingRing {
	return &tc.rings[tc.frame%uint64(len(tc.rings))]
}

func alignUp(v, a uint64) uint64 { return (v + a - 1) &^ (a - 1) }

// stage reserves size bytes in the current ring.
func (tc *TransferContext) stage(size uint64) (*stagingChunk, uint64, error) {
	r := tc.ring()
	for r.current < len(r.chunks) {
		c := r.chunks[r.current]
		if c.free() >= size {
			off := c.offset
			c.offset = alignUp(c.offset+size, stagingAlignment)
			if c.offset > c.buffer.Size {
				c.offset = c.buffer.Size
			}
			r.staged += size
			return c, off, nil
		}
		r.current++
	}

	chunkSize := alignUp(max(size, 1), StagingChunkSize)
	buf, err := tc.device.CreateBuffer(rhi.BufferCreateInfo{Size: chunkSize, Heap: rhi.HeapCPUUpload})
	if err != nil {
		return nil, 0, fmt.Errorf("%w: staging chunk: %w", ErrResourceCreation, err)
	}
	tc.device.NameResource(buf, fmt.Sprintf("transfer_context:staging_%d_%d",
		tc.frame%uint64(len(tc.rings)), len(r.chunks)))
	Logger().Debug("ren: staging chunk allocated", "size", chunkSize, "chunks", len(r.chunks)+1)

	c := &stagingChunk{buffer: buf}
	r.chunks = append(r.chunks, c)
	r.current = len(r.chunks) - 1
	c.offset = min(alignUp(size, stagingAlignment), chunkSize)
	r.staged += size
	return c, 0, nil
}

// UploadBuffer stages data for a copy into dst at offset.
func (tc *TransferContext) UploadBuffer(dst Buffer, data []byte, offset uint64) error {
	native := dst.Native()
	if native == nil {
		return ErrEmptyHandle
	}
	return tc.UploadRawBuffer(native, data, offset)
}

// UploadRawBuffer stages data for a copy into a buffer not owned by a
// Blackboard.
func (tc *TransferContext) UploadRawBuffer(dst *rhi.Buffer, data []byte, offset uint64) error {
	if tc.closed {
		return ErrClosed
	}
	size := uint64(len(data))
	if size == 0 {
		return nil
	}
	if offset > dst.Size || size > dst.Size-offset {
		return fmt.Errorf("%w: %d bytes at offset %d into %d byte buffer", ErrUploadSize, size, offset, dst.Size)
	}
	c, off, err := tc.stage(size)
	if err != nil {
		return err
	}
	copy(c.buffer.Data[off:], data)

	r := tc.ring()
	r.buffers = append(r.buffers, bufferCopy{src: c.buffer, srcOffset: off, dst: dst, dstOffset: offset, size: size})
	return nil
}

// UploadImage stages the mip chain of dst. mips[i] holds the tightly packed
// texels of mip level i for all array layers, layer after layer. Fewer mips
// than the image has are allowed; each given level must be complete.
func (tc *TransferContext) UploadImage(dst Image, mips [][]byte) error {
	native := dst.Native()
	if native == nil {
		return ErrEmptyHandle
	}
	if tc.closed {
		return ErrClosed
	}
	info := native.ImageCreateInfo.Normalized()
	if uint32(len(mips)) > info.MipLevels { //nolint:gosec // G115: mip count is tiny
		return fmt.Errorf("%w: %d mips for image %q with %d levels", ErrUploadSize, len(mips), dst.Name(), info.MipLevels)
	}
	texel := uint64(rhi.FormatInfo(info.Format).Bytes)
	if texel == 0 {
		return fmt.Errorf("%w: format %v has no texel size", ErrUploadSize, info.Format)
	}

	upload := imageUpload{dst: native}
	for level, data := range mips {
		mip := uint32(level) //nolint:gosec // G115: bounded by MipLevels
		want := info.MipSize(mip)
		if uint64(len(data)) < want {
			return fmt.Errorf("%w: mip %d of %q has %d bytes, want %d", ErrUploadSize, level, dst.Name(), len(data), want)
		}
		w, h := info.MipExtent(mip)
		tight := texel * uint64(w)
		pitch := uint64(rhi.AlignedRowPitch(info.Format, w))
		layerTight := tight * uint64(h) * uint64(info.Depth)
		rows := uint64(h) * uint64(info.Depth)

		for layer := range info.ArraySize {
			c, off, err := tc.stage(pitch * rows)
			if err != nil {
				return err
			}
			src := data[uint64(layer)*layerTight:]
			for row := range rows {
				copy(c.buffer.Data[off+row*pitch:off+row*pitch+tight], src[row*tight:(row+1)*tight])
			}
			upload.copies = append(upload.copies, imageCopy{
				src:        c.buffer,
				srcOffset:  off,
				size:       pitch * rows,
				rowPitch:   uint32(pitch), //nolint:gosec // G115: row pitch of a 2D image fits
				extent:     rhi.Extent3D{Width: w, Height: h, Depth: info.Depth},
				mipLevel:   mip,
				arrayIndex: layer,
			})
		}
	}
	r := tc.ring()
	r.images = append(r.images, upload)
	return nil
}

// Process records every staged copy of the current frame on cmd and
// advances to the next frame. Image destinations are moved to
// ShaderReadOnly; buffer destinations are made visible to all shader
// reads with a memory barrier.
func (tc *TransferContext) Process(cmd rhi.CommandList) {
	r := tc.ring()
	defer func() { tc.frame++ }()
	if len(r.buffers) == 0 && len(r.images) == 0 {
		return
	}

	cmd.BeginDebugRegion("transfer_context:upload", 0.4, 0.4, 0.9)
	if len(r.images) > 0 {
		pre := rhi.BarrierInfo{Images: make([]rhi.ImageBarrierInfo, 0, len(r.images))}
		for _, u := range r.images {
			pre.Images = append(pre.Images, rhi.ImageBarrierInfo{
				StageBefore:  rhi.StageNone,
				StageAfter:   rhi.StageCopy,
				AccessBefore: rhi.AccessNone,
				AccessAfter:  rhi.AccessTransferWrite,
				LayoutBefore: rhi.LayoutUndefined,
				LayoutAfter:  rhi.LayoutCopyDst,
				TargetQueue:  rhi.QueueGraphics,
				Image:        u.dst,
				Discard:      true,
			})
		}
		cmd.Barrier(pre)
		for _, u := range r.images {
			for _, c := range u.copies {
				cmd.CopyBufferToImage(c.src, c.srcOffset, c.rowPitch, u.dst, c.extent, c.mipLevel, c.arrayIndex)
			}
		}
	}
	for _, c := range r.buffers {
		cmd.CopyBuffer(c.src, c.srcOffset, c.dst, c.dstOffset, c.size)
	}

	post := rhi.BarrierInfo{
		Memory: []rhi.MemoryBarrierInfo{{
			StageBefore:  rhi.StageCopy,
			StageAfter:   rhi.StageAllCommands,
			AccessBefore: rhi.AccessTransferWrite,
			AccessAfter:  rhi.AccessShaderRead,
		}},
	}
	for _, u := range r.images {
		post.Images = append(post.Images, rhi.ImageBarrierInfo{
			StageBefore:  rhi.StageCopy,
			StageAfter:   rhi.StageAllCommands,
			AccessBefore: rhi.AccessTransferWrite,
			AccessAfter:  rhi.AccessShaderRead,
			LayoutBefore: rhi.LayoutCopyDst,
			LayoutAfter:  rhi.LayoutShaderReadOnly,
			TargetQueue:  rhi.QueueGraphics,
			Image:        u.dst,
		})
	}
	cmd.Barrier(post)
	cmd.EndDebugRegion()

	Logger().Debug("ren: uploads processed", "frame", tc.frame,
		"buffers", len(r.buffers), "images", len(r.images), "bytes", r.staged)
	clear(r.buffers)
	r.buffers = r.buffers[:0]
	clear(r.images)
	r.images = r.images[:0]
}

// GarbageCollect rewinds the staging ring the next frame will use. Until
// every ring was used once there is nothing to rewind. Regions staged since
// the last Process and not yet recorded stay reserved.
func (tc *TransferContext) GarbageCollect() {
	n := uint64(len(tc.rings))
	if tc.frame < n {
		return
	}
	r := tc.ring()
	ends := make(map[*rhi.Buffer]uint64, len(r.chunks))
	var pending uint64
	reserve := func(src *rhi.Buffer, off, size uint64) {
		ends[src] = max(ends[src], alignUp(off+size, stagingAlignment))
		pending += size
	}
	for _, c := range r.buffers {
		reserve(c.src, c.srcOffset, c.size)
	}
	for _, u := range r.images {
		for _, c := range u.copies {
			reserve(c.src, c.srcOffset, c.size)
		}
	}
	for _, c := range r.chunks {
		c.offset = min(ends[c.buffer], c.buffer.Size)
	}
	r.current = 0
	r.staged = pending
	if pending > 0 {
		Logger().Debug("ren: staging ring rewound around pending uploads",
			"frame", tc.frame, "bytes", pending)
	}
}

// Close destroys all staging memory. Pending uploads are dropped.
func (tc *TransferContext) Close() {
	if tc.closed {
		return
	}
	tc.closed = true
	for i := range tc.rings {
		for _, c := range tc.rings[i].chunks {
			tc.device.DestroyBuffer(c.buffer)
		}
		tc.rings[i] = stagingRing{}
	}
}

// Stats returns staging counters.
func (tc *TransferContext) Stats() TransferStats {
	s := TransferStats{Frame: tc.frame}
	for i := range tc.rings {
		for _, c := range tc.rings[i].chunks {
			s.Chunks++
			s.Capacity += c.buffer.Size
		}
	}
	r := tc.ring()
	s.Staged = r.staged
	s.PendingBuffers = len(r.buffers)
	s.PendingImages = len(r.images)
	return s
}

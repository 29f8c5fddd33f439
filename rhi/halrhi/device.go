// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package halrhi

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/ren/internal/arena"
	"github.com/gogpu/ren/rhi"
)

// Device errors.
var (
	// ErrForeignResource is returned for resources or command lists created
	// by another rhi.Device.
	ErrForeignResource = errors.New("halrhi: resource not created by this device")

	// ErrNoProvider is returned by FromProvider when the host exposes no
	// hal device and queue.
	ErrNoProvider = errors.New("halrhi: provider does not expose HAL types")

	// ErrNoAdapter is returned by Open when the backend reports no adapter.
	ErrNoAdapter = errors.New("halrhi: no adapter available")
)

// Default bindless table sizes.
const (
	DefaultBufferSlots  = 1 << 16
	DefaultImageSlots   = 1 << 14
	DefaultSamplerSlots = 1 << 11

	// DefaultPollInterval is how long WaitForSubmission sleeps between
	// completion polls.
	DefaultPollInterval = 100 * time.Microsecond
)

// Stats contains device counters.
type Stats struct {
	Buffers   int
	Images    int
	Samplers  int
	Pipelines int

	// Submitted and Completed are the last submission indices.
	Submitted uint64
	Completed uint64

	// Barrier counts since the device was created. Memory barriers are
	// implicit in hal and only counted.
	BufferBarriers  uint64
	TextureBarriers uint64
	MemoryBarriers  uint64
}

// String returns a human-readable summary.
func (s Stats) String() string {
	return fmt.Sprintf("Device[%d buffers, %d images, %d samplers, %d pipelines, submission %d/%d, barriers %d/%d/%d]",
		s.Buffers, s.Images, s.Samplers, s.Pipelines, s.Completed, s.Submitted,
		s.BufferBarriers, s.TextureBarriers, s.MemoryBarriers)
}

type halBuffer struct {
	raw   hal.Buffer
	usage gputypes.BufferUsage
}

type halImage struct {
	raw    hal.Texture
	view   hal.TextureView
	usage  gputypes.TextureUsage
	aspect gputypes.TextureAspect
}

type halSampler struct {
	raw hal.Sampler
}

// inflight is a submission whose command buffers and push constant blocks
// are released once it completes.
type inflight struct {
	index   uint64
	buffers []hal.CommandBuffer
	blocks  []*pushBlock
}

// Option configures a Device.
type Option func(*Device)

// WithBindlessSlots sets the size of the buffer, image and sampler
// descriptor tables. Zero keeps the default.
func WithBindlessSlots(buffers, images, samplers uint32) Option {
	return func(d *Device) {
		if buffers > 0 {
			d.bufferSlots = arena.NewIndexAllocator(buffers)
		}
		if images > 0 {
			d.imageSlots = arena.NewIndexAllocator(images)
		}
		if samplers > 0 {
			d.samplerSlots = arena.NewIndexAllocator(samplers)
		}
	}
}

// WithPollInterval sets the sleep between completion polls.
func WithPollInterval(interval time.Duration) Option {
	return func(d *Device) {
		if interval > 0 {
			d.pollInterval = interval
		}
	}
}

// Device implements rhi.Device on a hal device and queue.
//
// Device is not safe for concurrent use.
type Device struct {
	device hal.Device
	queue  hal.Queue

	// release destroys the device and instance when Open created them.
	release func()

	bufferSlots  *arena.IndexAllocator
	imageSlots   *arena.IndexAllocator
	samplerSlots *arena.IndexAllocator

	pushLayout hal.BindGroupLayout
	freeBlocks []*pushBlock
	inflight   []inflight

	pollInterval time.Duration
	pipelines    int
	submitted    uint64
	stats        Stats
	closed       bool
}

// New wraps a hal device and queue. The caller keeps ownership of both.
func New(device hal.Device, queue hal.Queue, opts ...Option) (*Device, error) {
	if device == nil || queue == nil {
		return nil, fmt.Errorf("halrhi: nil device or queue: %w", rhi.ErrInvalidCreateInfo)
	}
	d := &Device{
		device:       device,
		queue:        queue,
		bufferSlots:  arena.NewIndexAllocator(DefaultBufferSlots),
		imageSlots:   arena.NewIndexAllocator(DefaultImageSlots),
		samplerSlots: arena.NewIndexAllocator(DefaultSamplerSlots),
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(d)
	}

	layout, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "halrhi_push_constants",
		Entries: []gputypes.BindGroupLayoutEntry{{
			Binding:    0,
			Visibility: gputypes.ShaderStagesAll,
			Buffer: &gputypes.BufferBindingLayout{
				Type:             gputypes.BufferBindingTypeUniform,
				HasDynamicOffset: true,
				MinBindingSize:   MaxPushConstantSize,
			},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("halrhi: push constant layout: %w", err)
	}
	d.pushLayout = layout
	slogger().Info("halrhi: device ready")
	return d, nil
}

// HalDevice returns the wrapped hal device.
func (d *Device) HalDevice() any { return d.device }

// HalQueue returns the wrapped hal queue.
func (d *Device) HalQueue() any { return d.queue }

// translate wraps a hal error, mapping device conditions onto the rhi
// sentinels.
func translate(op string, err error) error {
	switch {
	case errors.Is(err, hal.ErrDeviceOutOfMemory):
		return fmt.Errorf("halrhi: %s: %w: %w", op, rhi.ErrOutOfMemory, err)
	case errors.Is(err, hal.ErrDeviceLost):
		return fmt.Errorf("halrhi: %s: %w: %w", op, rhi.ErrDeviceLost, err)
	default:
		return fmt.Errorf("halrhi: %s: %w", op, err)
	}
}

// CreateBuffer implements rhi.Device. CPU-visible buffers stay mapped for
// their whole lifetime.
func (d *Device) CreateBuffer(info rhi.BufferCreateInfo) (*rhi.Buffer, error) {
	if info.Size == 0 {
		return nil, fmt.Errorf("halrhi: zero-sized buffer: %w", rhi.ErrInvalidCreateInfo)
	}
	slot, ok := d.bufferSlots.Alloc()
	if !ok {
		return nil, rhi.ErrBindlessExhausted
	}
	usage := bufferUsage(info.Heap)
	raw, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Size:             info.Size,
		Usage:            usage,
		MappedAtCreation: info.Heap.IsCPUVisible(),
	})
	if err != nil {
		d.bufferSlots.Free(slot)
		return nil, translate("create buffer", err)
	}

	b := &rhi.Buffer{
		BufferCreateInfo: info,
		BindlessIndex:    slot,
		Backend:          &halBuffer{raw: raw, usage: usage},
	}
	if info.Heap.IsCPUVisible() {
		mapping, err := d.device.MapBuffer(raw, 0, info.Size)
		if err != nil {
			d.device.DestroyBuffer(raw)
			d.bufferSlots.Free(slot)
			return nil, translate("map buffer", err)
		}
		b.Data = unsafe.Slice((*byte)(mapping.Ptr), info.Size)
	}
	slogger().Debug("halrhi: buffer created", "size", info.Size, "heap", info.Heap, "slot", slot)
	return b, nil
}

// CreateImage implements rhi.Device.
func (d *Device) CreateImage(info rhi.ImageCreateInfo) (*rhi.Image, error) {
	info = info.Normalized()
	if info.Width == 0 || info.Height == 0 {
		return nil, fmt.Errorf("halrhi: empty image extent: %w", rhi.ErrInvalidCreateInfo)
	}
	slot, ok := d.imageSlots.Alloc()
	if !ok {
		return nil, rhi.ErrBindlessExhausted
	}

	dim, viewDim := textureDimensions(info.PrimaryViewType)
	layers := info.ArraySize
	if dim == gputypes.TextureDimension3D {
		layers = info.Depth
	}
	usage := textureUsage(info.Usage)
	raw, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Size:          hal.Extent3D{Width: info.Width, Height: info.Height, DepthOrArrayLayers: layers},
		MipLevelCount: info.MipLevels,
		SampleCount:   1,
		Dimension:     dim,
		Format:        info.Format,
		Usage:         usage,
	})
	if err != nil {
		d.imageSlots.Free(slot)
		return nil, translate("create texture", err)
	}
	aspect := textureAspect(info.Format)
	view, err := d.device.CreateTextureView(raw, &hal.TextureViewDescriptor{
		Format:          info.Format,
		Dimension:       viewDim,
		Aspect:          aspect,
		MipLevelCount:   info.MipLevels,
		ArrayLayerCount: info.ArraySize,
	})
	if err != nil {
		d.device.DestroyTexture(raw)
		d.imageSlots.Free(slot)
		return nil, translate("create texture view", err)
	}

	slogger().Debug("halrhi: image created",
		"width", info.Width, "height", info.Height, "format", info.Format, "slot", slot)
	return &rhi.Image{
		ImageCreateInfo: info,
		BindlessIndex:   slot,
		Backend:         &halImage{raw: raw, view: view, usage: usage, aspect: aspect},
	}, nil
}

// CreateSampler implements rhi.Device.
func (d *Device) CreateSampler(info rhi.SamplerCreateInfo) (*rhi.Sampler, error) {
	slot, ok := d.samplerSlots.Alloc()
	if !ok {
		return nil, rhi.ErrBindlessExhausted
	}
	compare := compareFunction(info.Comparison)
	if info.Reduction != rhi.ReductionComparison {
		compare = gputypes.CompareFunctionUndefined
	}
	raw, err := d.device.CreateSampler(&hal.SamplerDescriptor{
		AddressModeU: addressMode(info.AddressU),
		AddressModeV: addressMode(info.AddressV),
		AddressModeW: addressMode(info.AddressW),
		MagFilter:    filterMode(info.FilterMag),
		MinFilter:    filterMode(info.FilterMin),
		MipmapFilter: filterMode(info.FilterMip),
		LodMinClamp:  info.MinLOD,
		LodMaxClamp:  info.MaxLOD,
		Compare:      compare,
		Anisotropy:   anisotropy(info),
	})
	if err != nil {
		d.samplerSlots.Free(slot)
		return nil, translate("create sampler", err)
	}
	return &rhi.Sampler{
		SamplerCreateInfo: info,
		BindlessIndex:     slot,
		Backend:           &halSampler{raw: raw},
	}, nil
}

func bufferOf(b *rhi.Buffer) *halBuffer {
	hb, ok := b.Backend.(*halBuffer)
	if !ok {
		panic(ErrForeignResource)
	}
	return hb
}

func imageOf(img *rhi.Image) *halImage {
	hi, ok := img.Backend.(*halImage)
	if !ok {
		panic(ErrForeignResource)
	}
	return hi
}

// DestroyBuffer implements rhi.Device.
func (d *Device) DestroyBuffer(b *rhi.Buffer) {
	hb := bufferOf(b)
	if b.Heap.IsCPUVisible() {
		if err := d.device.UnmapBuffer(hb.raw); err != nil {
			slogger().Warn("halrhi: unmap failed", "name", b.Name, "err", err)
		}
	}
	d.device.DestroyBuffer(hb.raw)
	d.bufferSlots.Free(b.BindlessIndex)
	b.Data = nil
	b.Backend = nil
}

// DestroyImage implements rhi.Device.
func (d *Device) DestroyImage(img *rhi.Image) {
	hi := imageOf(img)
	d.device.DestroyTextureView(hi.view)
	d.device.DestroyTexture(hi.raw)
	d.imageSlots.Free(img.BindlessIndex)
	img.Backend = nil
}

// DestroySampler implements rhi.Device.
func (d *Device) DestroySampler(s *rhi.Sampler) {
	hs, ok := s.Backend.(*halSampler)
	if !ok {
		panic(ErrForeignResource)
	}
	d.device.DestroySampler(hs.raw)
	d.samplerSlots.Free(s.BindlessIndex)
	s.Backend = nil
}

// NameResource implements rhi.Device. hal objects take their label at
// creation, so the name is kept on the rhi object for logs and tools.
func (d *Device) NameResource(r rhi.Resource, name string) {
	switch v := r.(type) {
	case *rhi.Buffer:
		v.Name = name
	case *rhi.Image:
		v.Name = name
	case *rhi.Sampler:
		v.Name = name
	case *rhi.Pipeline:
		v.Name = name
	}
}

// CreateCommandList implements rhi.Device. All queue types record on the
// single hal queue.
func (d *Device) CreateCommandList(queue rhi.QueueType) (rhi.CommandList, error) {
	d.reclaim()
	label := "halrhi_" + queue.String()
	enc, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, translate("create command encoder", err)
	}
	if err := enc.BeginEncoding(label); err != nil {
		return nil, translate("begin encoding", err)
	}
	return &commandList{device: d, encoder: enc, queue: queue}, nil
}

// Submit implements rhi.Device. Lists not yet ended are ended first.
func (d *Device) Submit(lists ...rhi.CommandList) (uint64, error) {
	cls := make([]*commandList, 0, len(lists))
	for _, l := range lists {
		cl, ok := l.(*commandList)
		if !ok || cl.device != d {
			return 0, fmt.Errorf("halrhi: submit %T: %w", l, ErrForeignResource)
		}
		if cl.submitted {
			return 0, rhi.ErrCommandListClosed
		}
		cls = append(cls, cl)
	}

	var flight inflight
	for _, cl := range cls {
		if cl.cmdBuf == nil {
			if err := cl.End(); err != nil {
				return 0, err
			}
		}
		for _, blk := range cl.blocks {
			if err := d.queue.WriteBuffer(blk.buffer, 0, blk.data[:blk.used]); err != nil {
				return 0, translate("write push constants", err)
			}
		}
		flight.buffers = append(flight.buffers, cl.cmdBuf)
		flight.blocks = append(flight.blocks, cl.blocks...)
	}

	index, err := d.queue.Submit(flight.buffers)
	if err != nil {
		return 0, translate("submit", err)
	}
	for _, cl := range cls {
		cl.submitted = true
		cl.blocks = nil
	}
	flight.index = index
	d.inflight = append(d.inflight, flight)
	d.submitted = index
	slogger().Debug("halrhi: submitted", "index", index, "lists", len(cls))
	return index, nil
}

// reclaim releases the command buffers and push constant blocks of
// completed submissions.
func (d *Device) reclaim() {
	if len(d.inflight) == 0 {
		return
	}
	done := d.queue.PollCompleted()
	n := 0
	for _, f := range d.inflight {
		if f.index > done {
			break
		}
		for _, cb := range f.buffers {
			d.device.FreeCommandBuffer(cb)
		}
		for _, blk := range f.blocks {
			blk.used = 0
			d.freeBlocks = append(d.freeBlocks, blk)
		}
		n++
	}
	clear(d.inflight[:n])
	d.inflight = d.inflight[n:]
}

// WaitForSubmission implements rhi.Device by polling the queue.
func (d *Device) WaitForSubmission(ctx context.Context, index uint64) error {
	if index > d.submitted {
		return fmt.Errorf("halrhi: submission %d was never made", index)
	}
	for d.queue.PollCompleted() < index {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d.pollInterval):
		}
	}
	d.reclaim()
	return nil
}

// WaitIdle implements rhi.Device.
func (d *Device) WaitIdle() error {
	if err := d.device.WaitIdle(); err != nil {
		return translate("wait idle", err)
	}
	d.reclaim()
	return nil
}

// Stats returns device counters.
func (d *Device) Stats() Stats {
	s := d.stats
	s.Buffers = d.bufferSlots.InUse()
	s.Images = d.imageSlots.InUse()
	s.Samplers = d.samplerSlots.InUse()
	s.Pipelines = d.pipelines
	s.Submitted = d.submitted
	s.Completed = d.queue.PollCompleted()
	return s
}

// Close waits for the device to go idle and releases the objects owned by
// the Device. Resources created through it must be destroyed first.
// Devices from Open are destroyed as well. Close is idempotent.
func (d *Device) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	err := d.WaitIdle()
	for _, f := range d.inflight {
		for _, cb := range f.buffers {
			d.device.FreeCommandBuffer(cb)
		}
		d.freeBlocks = append(d.freeBlocks, f.blocks...)
	}
	d.inflight = nil
	for _, blk := range d.freeBlocks {
		d.device.DestroyBindGroup(blk.group)
		d.device.DestroyBuffer(blk.buffer)
	}
	d.freeBlocks = nil
	d.device.DestroyBindGroupLayout(d.pushLayout)
	if d.release != nil {
		d.release()
		d.release = nil
	}
	slogger().Info("halrhi: device closed")
	return err
}

var _ rhi.Device = (*Device)(nil)

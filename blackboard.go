// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package ren

import (
	"fmt"
	"maps"
	"slices"

	"github.com/gogpu/ren/internal/arena"
	"github.com/gogpu/ren/internal/cache"
	"github.com/gogpu/ren/rhi"
)

// FramesInFlight is the default number of frames the GPU may still be
// executing while the CPU records the next one.
const FramesInFlight = 2

type bufferEntry struct {
	name   string
	native *rhi.Buffer
	id     ResourceID
}

type imageEntry struct {
	name   string
	native *rhi.Image
	id     ResourceID
}

// deletion is a native resource waiting for the GPU to stop using it.
type deletion struct {
	resource rhi.Resource
	frame    uint64
}

// BlackboardStats contains Blackboard bookkeeping counters.
type BlackboardStats struct {
	// Frame is the frame passed to the last GarbageCollect.
	Frame uint64

	Buffers  int
	Images   int
	Samplers int

	// PendingDeletions is the number of native resources waiting for
	// their retirement frame.
	PendingDeletions int

	// Destroyed is the total number of native resources destroyed.
	Destroyed uint64

	SamplerHits   uint64
	SamplerMisses uint64
}

// String returns a human-readable summary.
func (s BlackboardStats) String() string {
	return fmt.Sprintf("Blackboard[frame %d, %d buffers, %d images, %d samplers, %d pending deletions, %d destroyed]",
		s.Frame, s.Buffers, s.Images, s.Samplers, s.PendingDeletions, s.Destroyed)
}

// BlackboardOption configures a Blackboard.
type BlackboardOption func(*Blackboard)

// WithFramesInFlight sets the deletion latency in frames. Values below 1
// are ignored.
func WithFramesInFlight(n int) BlackboardOption {
	return func(bb *Blackboard) {
		if n >= 1 {
			bb.framesInFlight = uint64(n)
		}
	}
}

// Blackboard owns GPU buffers and images by logical name and deduplicates
// samplers by description. Destroyed and replaced resources are kept alive
// until GarbageCollect is called with a frame at least FramesInFlight past
// the frame they were retired in.
//
// Blackboard is not safe for concurrent use; it is driven by the single
// goroutine recording a frame.
type Blackboard struct {
	device         rhi.Device
	framesInFlight uint64
	frame          uint64
	nextID         ResourceID
	closed         bool

	buffers     arena.Arena[*bufferEntry]
	images      arena.Arena[*imageEntry]
	bufferNames map[string]arena.Handle
	imageNames  map[string]arena.Handle
	samplers    *cache.Cache[rhi.SamplerCreateInfo, *rhi.Sampler]

	deletions []deletion
	destroyed uint64
}

// NewBlackboard creates an empty Blackboard creating resources on device.
func NewBlackboard(device rhi.Device, opts ...BlackboardOption) *Blackboard {
	bb := &Blackboard{
		device:         device,
		framesInFlight: FramesInFlight,
		bufferNames:    make(map[string]arena.Handle),
		imageNames:     make(map[string]arena.Handle),
		samplers:       cache.New[rhi.SamplerCreateInfo, *rhi.Sampler](0),
	}
	for _, opt := range opts {
		opt(bb)
	}
	propagateLogger(device)
	return bb
}

// Device returns the device resources are created on.
func (bb *Blackboard) Device() rhi.Device { return bb.device }

// FramesInFlight returns the deletion latency in frames.
func (bb *Blackboard) FramesInFlight() int { return int(bb.framesInFlight) } //nolint:gosec // G115: set from an int

// horizon is the retirement frame for resources released now.
func (bb *Blackboard) horizon() uint64 { return bb.frame + bb.framesInFlight }

func (bb *Blackboard) newID() ResourceID {
	bb.nextID++
	return bb.nextID
}

func (bb *Blackboard) retire(r rhi.Resource) {
	bb.deletions = append(bb.deletions, deletion{resource: r, frame: bb.horizon()})
}

// CreateBuffer returns the buffer registered as name, creating it from info
// if the name is new. For an existing name info is ignored.
//
// If the device fails, CreateBuffer returns an empty view and an error
// wrapping ErrResourceCreation; the name stays unregistered.
func (bb *Blackboard) CreateBuffer(name string, info rhi.BufferCreateInfo) (Buffer, error) {
	if h, ok := bb.bufferNames[name]; ok {
		return Buffer{bb: bb, h: h}, nil
	}
	if bb.closed {
		return Buffer{}, ErrClosed
	}
	native, err := bb.device.CreateBuffer(info)
	if err != nil {
		return Buffer{}, fmt.Errorf("%w: buffer %q: %w", ErrResourceCreation, name, err)
	}
	bb.device.NameResource(native, name)

	h := bb.buffers.Insert(&bufferEntry{name: name, native: native, id: bb.newID()})
	bb.bufferNames[name] = h
	Logger().Debug("ren: buffer created", "name", name, "size", info.Size, "heap", info.Heap)
	return Buffer{bb: bb, h: h}, nil
}

// CreateImage returns the image registered as name, creating it from info
// if the name is new. Failure semantics match CreateBuffer.
func (bb *Blackboard) CreateImage(name string, info rhi.ImageCreateInfo) (Image, error) {
	if h, ok := bb.imageNames[name]; ok {
		return Image{bb: bb, h: h}, nil
	}
	if bb.closed {
		return Image{}, ErrClosed
	}
	native, err := bb.device.CreateImage(info)
	if err != nil {
		return Image{}, fmt.Errorf("%w: image %q: %w", ErrResourceCreation, name, err)
	}
	bb.device.NameResource(native, name)

	h := bb.images.Insert(&imageEntry{name: name, native: native, id: bb.newID()})
	bb.imageNames[name] = h
	Logger().Debug("ren: image created", "name", name,
		"width", info.Width, "height", info.Height, "format", info.Format)
	return Image{bb: bb, h: h}, nil
}

// Buffer returns the buffer registered as name, or an empty view.
func (bb *Blackboard) Buffer(name string) Buffer {
	h, ok := bb.bufferNames[name]
	if !ok {
		return Buffer{}
	}
	return Buffer{bb: bb, h: h}
}

// Image returns the image registered as name, or an empty view.
func (bb *Blackboard) Image(name string) Image {
	h, ok := bb.imageNames[name]
	if !ok {
		return Image{}
	}
	return Image{bb: bb, h: h}
}

// DestroyBuffer unregisters name and queues its buffer for deferred
// deletion. Views of the buffer become empty immediately. Unknown names
// are ignored.
func (bb *Blackboard) DestroyBuffer(name string) {
	h, ok := bb.bufferNames[name]
	if !ok {
		return
	}
	delete(bb.bufferNames, name)
	e, _ := bb.buffers.Remove(h)
	bb.retire(e.native)
}

// DestroyImage unregisters name and queues its image for deferred
// deletion. See DestroyBuffer.
func (bb *Blackboard) DestroyImage(name string) {
	h, ok := bb.imageNames[name]
	if !ok {
		return
	}
	delete(bb.imageNames, name)
	e, _ := bb.images.Remove(h)
	bb.retire(e.native)
}

func (bb *Blackboard) recreateBuffer(h arena.Handle, info rhi.BufferCreateInfo) error {
	e, _ := bb.buffers.Get(h)
	native, err := bb.device.CreateBuffer(info)
	if err != nil {
		return fmt.Errorf("%w: recreate buffer %q: %w", ErrResourceCreation, e.name, err)
	}
	bb.device.NameResource(native, e.name)
	bb.retire(e.native)
	e.native = native
	e.id = bb.newID()
	Logger().Debug("ren: buffer recreated", "name", e.name, "size", info.Size)
	return nil
}

func (bb *Blackboard) recreateImage(h arena.Handle, info rhi.ImageCreateInfo) error {
	e, _ := bb.images.Get(h)
	native, err := bb.device.CreateImage(info)
	if err != nil {
		return fmt.Errorf("%w: recreate image %q: %w", ErrResourceCreation, e.name, err)
	}
	bb.device.NameResource(native, e.name)
	bb.retire(e.native)
	e.native = native
	e.id = bb.newID()
	Logger().Debug("ren: image recreated", "name", e.name, "width", info.Width, "height", info.Height)
	return nil
}

// Sampler returns the sampler for info, creating it on first request.
// Equal descriptions share one native sampler.
func (bb *Blackboard) Sampler(info rhi.SamplerCreateInfo) (Sampler, error) {
	if bb.closed {
		return Sampler{}, ErrClosed
	}
	native, err := bb.samplers.GetOrCreate(info, func() (*rhi.Sampler, error) {
		return bb.device.CreateSampler(info)
	})
	if err != nil {
		return Sampler{}, fmt.Errorf("%w: sampler: %w", ErrResourceCreation, err)
	}
	return Sampler{native: native}, nil
}

// GarbageCollect destroys every queued resource whose retirement frame is
// at or before frame, then makes frame the current frame.
//
// The caller must have waited for all GPU work submitted up to frame -
// FramesInFlight to complete; frames must not decrease.
func (bb *Blackboard) GarbageCollect(frame uint64) {
	kept := bb.deletions[:0]
	n := 0
	for _, d := range bb.deletions {
		if d.frame <= frame {
			bb.destroy(d.resource)
			n++
			continue
		}
		kept = append(kept, d)
	}
	clear(bb.deletions[len(kept):])
	bb.deletions = kept
	bb.frame = frame

	if n > 0 {
		Logger().Debug("ren: garbage collected", "frame", frame, "destroyed", n, "pending", len(kept))
	}
}

func (bb *Blackboard) destroy(r rhi.Resource) {
	switch v := r.(type) {
	case *rhi.Buffer:
		bb.device.DestroyBuffer(v)
	case *rhi.Image:
		bb.device.DestroyImage(v)
	case *rhi.Sampler:
		bb.device.DestroySampler(v)
	default:
		panic(fmt.Sprintf("ren: cannot destroy %T", r))
	}
	bb.destroyed++
}

// Close waits for the device to go idle and destroys every resource the
// Blackboard owns, including queued deletions and cached samplers. Views
// become empty. Close is idempotent.
func (bb *Blackboard) Close() error {
	if bb.closed {
		return nil
	}
	bb.closed = true

	err := bb.device.WaitIdle()
	for _, d := range bb.deletions {
		bb.destroy(d.resource)
	}
	bb.deletions = nil

	for name, h := range bb.bufferNames {
		e, _ := bb.buffers.Remove(h)
		bb.destroy(e.native)
		delete(bb.bufferNames, name)
	}
	for name, h := range bb.imageNames {
		e, _ := bb.images.Remove(h)
		bb.destroy(e.native)
		delete(bb.imageNames, name)
	}
	for _, s := range bb.samplers.Drain() {
		bb.destroy(s)
	}

	Logger().Info("ren: blackboard closed", "destroyed", bb.destroyed)
	if err != nil {
		return fmt.Errorf("ren: wait idle: %w", err)
	}
	return nil
}

// Names returns the sorted names of all registered buffers and images.
func (bb *Blackboard) Names() []string {
	names := slices.Collect(maps.Keys(bb.bufferNames))
	names = slices.AppendSeq(names, maps.Keys(bb.imageNames))
	slices.Sort(names)
	return slices.Compact(names)
}

// Stats returns bookkeeping counters.
func (bb *Blackboard) Stats() BlackboardStats {
	cs := bb.samplers.Stats()
	return BlackboardStats{
		Frame:            bb.frame,
		Buffers:          bb.buffers.Len(),
		Images:           bb.images.Len(),
		Samplers:         cs.Len,
		PendingDeletions: len(bb.deletions),
		Destroyed:        bb.destroyed,
		SamplerHits:      cs.Hits,
		SamplerMisses:    cs.Misses,
	}
}

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package ren

import (
	"github.com/gogpu/ren/rhi"
)

// bufferUse is one pipeline state of a buffer.
type bufferUse struct {
	stage  rhi.BarrierPipelineStage
	access rhi.BarrierAccess
}

// imageUse is one pipeline state of an image.
type imageUse struct {
	stage  rhi.BarrierPipelineStage
	access rhi.BarrierAccess
	layout rhi.BarrierImageLayout
}

// trackedState is either a *bufferState or an *imageState.
type trackedState interface {
	isPending() bool
}

type bufferState struct {
	native  *rhi.Buffer
	current bufferUse
	target  bufferUse
	pending bool
}

func (s *bufferState) isPending() bool { return s.pending }

type imageState struct {
	native  *rhi.Image
	current imageUse
	target  imageUse
	discard bool
	pending bool
}

func (s *imageState) isPending() bool { return s.pending }

// ResourceState is a snapshot of one tracked resource. Before is the
// established state; After is the pending transition target, or
// None/Undefined when no transition is pending.
type ResourceState struct {
	Image        bool
	StageBefore  rhi.BarrierPipelineStage
	StageAfter   rhi.BarrierPipelineStage
	AccessBefore rhi.BarrierAccess
	AccessAfter  rhi.BarrierAccess
	LayoutBefore rhi.BarrierImageLayout
	LayoutAfter  rhi.BarrierImageLayout
	Discard      bool
	Pending      bool
}

// Tracker records how resources are used and emits the barriers needed
// between uses. It trusts call order to be GPU execution order.
//
// A Tracker starts with every resource in the None/Undefined state and
// keeps no state across instances; create one per frame.
//
// Several Use calls on one resource before a Flush collapse into a single
// transition from the state established before the first call to the
// target of the last call.
//
// Tracker is not safe for concurrent use.
type Tracker struct {
	states map[ResourceID]trackedState
	queue  []ResourceID
	queued map[ResourceID]bool
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		states: make(map[ResourceID]trackedState),
		queued: make(map[ResourceID]bool),
	}
}

func (t *Tracker) enqueue(id ResourceID) {
	if !t.queued[id] {
		t.queued[id] = true
		t.queue = append(t.queue, id)
	}
}

func (t *Tracker) buffer(id ResourceID, native *rhi.Buffer) *bufferState {
	s, ok := t.states[id]
	if !ok {
		bs := &bufferState{native: native}
		t.states[id] = bs
		return bs
	}
	bs, ok := s.(*bufferState)
	if !ok {
		panic("ren: resource tracked as image used as buffer")
	}
	bs.native = native
	return bs
}

func (t *Tracker) image(id ResourceID, native *rhi.Image) *imageState {
	s, ok := t.states[id]
	if !ok {
		is := &imageState{native: native}
		t.states[id] = is
		return is
	}
	is, ok := s.(*imageState)
	if !ok {
		panic("ren: resource tracked as buffer used as image")
	}
	is.native = native
	return is
}

// UseBuffer declares the next use of b. The transition is emitted by the
// next Flush. Empty views are ignored.
func (t *Tracker) UseBuffer(b Buffer, stage rhi.BarrierPipelineStage, access rhi.BarrierAccess) {
	id := b.ID()
	if id == 0 {
		Logger().Debug("ren: tracker ignored empty buffer")
		return
	}
	s := t.buffer(id, b.Native())
	s.target = bufferUse{stage: stage, access: access}
	s.pending = true
	t.enqueue(id)
}

// UseImage declares the next use of img in layout. discard allows the
// transition to drop the current contents. layout must not be
// rhi.LayoutUndefined. Empty views are ignored.
func (t *Tracker) UseImage(img Image, stage rhi.BarrierPipelineStage, access rhi.BarrierAccess, layout rhi.BarrierImageLayout, discard bool) {
	if layout == rhi.LayoutUndefined {
		panic("ren: image use with undefined target layout")
	}
	id := img.ID()
	if id == 0 {
		Logger().Debug("ren: tracker ignored empty image")
		return
	}
	s := t.image(id, img.Native())
	s.target = imageUse{stage: stage, access: access, layout: layout}
	s.discard = discard
	s.pending = true
	t.enqueue(id)
}

// SetBufferState declares that b already is in the given state, for work
// synchronized outside the Tracker. Any pending transition of b is
// dropped.
func (t *Tracker) SetBufferState(b Buffer, stage rhi.BarrierPipelineStage, access rhi.BarrierAccess) {
	id := b.ID()
	if id == 0 {
		return
	}
	s := t.buffer(id, b.Native())
	s.current = bufferUse{stage: stage, access: access}
	s.target = bufferUse{}
	s.pending = false
}

// SetImageState declares that img already is in the given state. See
// SetBufferState.
func (t *Tracker) SetImageState(img Image, stage rhi.BarrierPipelineStage, access rhi.BarrierAccess, layout rhi.BarrierImageLayout) {
	id := img.ID()
	if id == 0 {
		return
	}
	s := t.image(id, img.Native())
	s.current = imageUse{stage: stage, access: access, layout: layout}
	s.target = imageUse{}
	s.discard = false
	s.pending = false
}

// Flush records one batched barrier covering every pending transition, in
// first-use order, and returns the number of barriers recorded. Nothing is
// recorded when no barrier is needed. Afterwards every flushed target is
// the established state of its resource.
func (t *Tracker) Flush(cmd rhi.CommandList) int {
	var info rhi.BarrierInfo
	for _, id := range t.queue {
		switch s := t.states[id].(type) {
		case *bufferState:
			if !s.pending {
				continue
			}
			if !redundant(s.current.stage, s.target.stage, s.current.access, s.target.access) {
				info.Buffers = append(info.Buffers, rhi.BufferBarrierInfo{
					StageBefore:  s.current.stage,
					StageAfter:   s.target.stage,
					AccessBefore: s.current.access,
					AccessAfter:  s.target.access,
					Buffer:       s.native,
				})
			}
			s.current = s.target
			s.target = bufferUse{}
			s.pending = false
		case *imageState:
			if !s.pending {
				continue
			}
			if s.discard || s.current.layout != s.target.layout ||
				!redundant(s.current.stage, s.target.stage, s.current.access, s.target.access) {
				info.Images = append(info.Images, rhi.ImageBarrierInfo{
					StageBefore:       s.current.stage,
					StageAfter:        s.target.stage,
					AccessBefore:      s.current.access,
					AccessAfter:       s.target.access,
					LayoutBefore:      s.current.layout,
					LayoutAfter:       s.target.layout,
					TargetQueue:       rhi.QueueGraphics,
					OwnershipTransfer: rhi.OwnershipNone,
					Image:             s.native,
					Discard:           s.discard,
				})
			}
			s.current = s.target
			s.target = imageUse{}
			s.discard = false
			s.pending = false
		default:
			panic("ren: unknown tracked state")
		}
	}
	clear(t.queued)
	t.queue = t.queue[:0]

	n := info.Len()
	if n > 0 {
		cmd.Barrier(info)
		Logger().Debug("ren: barriers flushed", "buffers", len(info.Buffers), "images", len(info.Images))
	}
	return n
}

// redundant reports whether moving between two identical read-only states
// needs no barrier.
func redundant(stageBefore, stageAfter rhi.BarrierPipelineStage, accessBefore, accessAfter rhi.BarrierAccess) bool {
	return stageBefore == stageAfter && accessBefore == accessAfter &&
		accessAfter != rhi.AccessNone && !accessAfter.IsWrite()
}

// State returns a snapshot of the tracked state of id.
func (t *Tracker) State(id ResourceID) (ResourceState, bool) {
	switch s := t.states[id].(type) {
	case *bufferState:
		return ResourceState{
			StageBefore:  s.current.stage,
			StageAfter:   s.target.stage,
			AccessBefore: s.current.access,
			AccessAfter:  s.target.access,
			Pending:      s.pending,
		}, true
	case *imageState:
		return ResourceState{
			Image:        true,
			StageBefore:  s.current.stage,
			StageAfter:   s.target.stage,
			AccessBefore: s.current.access,
			AccessAfter:  s.target.access,
			LayoutBefore: s.current.layout,
			LayoutAfter:  s.target.layout,
			Discard:      s.discard,
			Pending:      s.pending,
		}, true
	default:
		return ResourceState{}, false
	}
}

// Len returns the number of tracked resources.
func (t *Tracker) Len() int { return len(t.states) }

// Pending returns the number of resources with a pending transition.
func (t *Tracker) Pending() int {
	n := 0
	for _, s := range t.states {
		if s.isPending() {
			n++
		}
	}
	return n
}

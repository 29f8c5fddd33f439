// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package arena provides generation-checked slot storage and index
// allocation.
//
// An Arena hands out Handles: a slot index plus the generation the slot had
// when the value was inserted. Removing a value bumps the generation, so any
// Handle still pointing at the slot stops resolving even after the slot is
// reused.
package arena

// Handle references a slot of an Arena. The zero Handle never resolves.
type Handle struct {
	Index uint32
	Gen   uint32
}

type slot[T any] struct {
	value T
	gen   uint32
	used  bool
}

// Arena stores values in reusable slots addressed by Handle.
//
// Arena is not safe for concurrent use.
type Arena[T any] struct {
	slots []slot[T]
	free  []uint32
	live  int
}

// Insert stores v in a free slot and returns its Handle.
func (a *Arena[T]) Insert(v T) Handle {
	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		//nolint:gosec // G115: slot count is bounded by live resources
		idx = uint32(len(a.slots))
		// Generation 0 is reserved for the zero Handle.
		a.slots = append(a.slots, slot[T]{gen: 1})
	}
	s := &a.slots[idx]
	s.value = v
	s.used = true
	a.live++
	return Handle{Index: idx, Gen: s.gen}
}

func (a *Arena[T]) lookup(h Handle) *slot[T] {
	if int(h.Index) >= len(a.slots) {
		return nil
	}
	s := &a.slots[h.Index]
	if !s.used || s.gen != h.Gen {
		return nil
	}
	return s
}

// Get returns the value referenced by h.
func (a *Arena[T]) Get(h Handle) (T, bool) {
	if s := a.lookup(h); s != nil {
		return s.value, true
	}
	var zero T
	return zero, false
}

// Remove releases the slot referenced by h and returns its value. Every
// outstanding Handle to the slot stops resolving.
func (a *Arena[T]) Remove(h Handle) (T, bool) {
	var zero T
	s := a.lookup(h)
	if s == nil {
		return zero, false
	}
	v := s.value
	s.value = zero
	s.used = false
	s.gen++
	if s.gen == 0 {
		s.gen = 1
	}
	a.free = append(a.free, h.Index)
	a.live--
	return v, true
}

// Len returns the number of occupied slots.
func (a *Arena[T]) Len() int { return a.live }

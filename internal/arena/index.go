// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package arena

// IndexAllocator hands out dense uint32 indices below a fixed capacity,
// reusing freed indices last-in first-out.
//
// IndexAllocator is not safe for concurrent use.
type IndexAllocator struct {
	next     uint32
	capacity uint32
	free     []uint32
}

// NewIndexAllocator returns an allocator for indices in [0, capacity).
func NewIndexAllocator(capacity uint32) *IndexAllocator {
	return &IndexAllocator{capacity: capacity}
}

// Alloc returns a free index, or false when all indices are in use.
func (a *IndexAllocator) Alloc() (uint32, bool) {
	if n := len(a.free); n > 0 {
		i := a.free[n-1]
		a.free = a.free[:n-1]
		return i, true
	}
	if a.next >= a.capacity {
		return 0, false
	}
	i := a.next
	a.next++
	return i, true
}

// Free returns i to the allocator. Freeing an index twice corrupts the
// allocator.
func (a *IndexAllocator) Free(i uint32) {
	a.free = append(a.free, i)
}

// InUse returns the number of allocated indices.
func (a *IndexAllocator) InUse() int {
	return int(a.next) - len(a.free)
}

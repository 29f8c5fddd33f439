// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package arena

import "testing"

func TestArenaInsertGet(t *testing.T) {
	var a Arena[string]
	h1 := a.Insert("one")
	h2 := a.Insert("two")

	if h1 == h2 {
		t.Fatalf("handles collide: %v", h1)
	}
	if h1 == (Handle{}) || h2 == (Handle{}) {
		t.Fatal("Insert returned the zero handle")
	}
	for _, tt := range []struct {
		h    Handle
		want string
	}{{h1, "one"}, {h2, "two"}} {
		got, ok := a.Get(tt.h)
		if !ok || got != tt.want {
			t.Errorf("Get(%v) = (%q, %v), want (%q, true)", tt.h, got, ok, tt.want)
		}
	}
	if a.Len() != 2 {
		t.Errorf("Len = %d, want 2", a.Len())
	}
}

func TestArenaZeroHandleNeverResolves(t *testing.T) {
	var a Arena[int]
	a.Insert(5)
	if _, ok := a.Get(Handle{}); ok {
		t.Fatal("zero handle resolved")
	}
}

func TestArenaStaleHandleAfterReuse(t *testing.T) {
	var a Arena[int]
	old := a.Insert(1)
	if _, ok := a.Remove(old); !ok {
		t.Fatal("Remove failed")
	}
	reused := a.Insert(2)

	if reused.Index != old.Index {
		t.Fatalf("slot not reused: old %v new %v", old, reused)
	}
	if _, ok := a.Get(old); ok {
		t.Error("stale handle resolved after slot reuse")
	}
	if v, _ := a.Get(reused); v != 2 {
		t.Errorf("reused slot = %d, want 2", v)
	}
	if _, ok := a.Remove(old); ok {
		t.Error("Remove through stale handle succeeded")
	}
}

func TestIndexAllocator(t *testing.T) {
	a := NewIndexAllocator(3)
	for want := uint32(0); want < 3; want++ {
		got, ok := a.Alloc()
		if !ok || got != want {
			t.Fatalf("Alloc = (%d, %v), want (%d, true)", got, ok, want)
		}
	}
	if _, ok := a.Alloc(); ok {
		t.Fatal("Alloc beyond capacity succeeded")
	}

	a.Free(1)
	if a.InUse() != 2 {
		t.Errorf("InUse = %d, want 2", a.InUse())
	}
	if got, ok := a.Alloc(); !ok || got != 1 {
		t.Errorf("Alloc after Free = (%d, %v), want (1, true)", got, ok)
	}
}

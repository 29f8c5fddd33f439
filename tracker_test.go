// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package ren

import (
	"testing"

	"github.com/gogpu/ren/rhi"
	"github.com/gogpu/ren/rhi/rhitest"
)

func newCommandList(t *testing.T, dev *rhitest.Device) *rhitest.CommandList {
	t.Helper()
	l, err := dev.CreateCommandList(rhi.QueueGraphics)
	if err != nil {
		t.Fatal(err)
	}
	return l.(*rhitest.CommandList)
}

func TestFlushWithoutUseEmitsNothing(t *testing.T) {
	bb, dev := newTestBlackboard(t)
	_, _ = bb.CreateImage("unused", imageInfo(4, 4))
	cmd := newCommandList(t, dev)

	tr := NewTracker()
	if n := tr.Flush(cmd); n != 0 {
		t.Errorf("Flush = %d, want 0", n)
	}
	if cmd.Count(rhitest.OpBarrier) != 0 {
		t.Error("Barrier recorded with nothing pending")
	}
}

func TestBarrierChainsAcrossFlushes(t *testing.T) {
	bb, dev := newTestBlackboard(t)
	img, _ := bb.CreateImage("r", imageInfo(4, 4))
	cmd := newCommandList(t, dev)
	tr := NewTracker()

	tr.UseImage(img, rhi.StageComputeShader, rhi.AccessUnorderedAccessWrite, rhi.LayoutUnorderedAccess, false)
	tr.Flush(cmd)
	tr.UseImage(img, rhi.StagePixelShader, rhi.AccessShaderSampledRead, rhi.LayoutShaderReadOnly, false)
	tr.Flush(cmd)

	barriers := cmd.Barriers()
	if len(barriers) != 2 {
		t.Fatalf("barrier calls = %d, want 2", len(barriers))
	}
	first := barriers[0].Images[0]
	if first.StageBefore != rhi.StageNone || first.LayoutBefore != rhi.LayoutUndefined {
		t.Errorf("first barrier before = %v/%v, want None/Undefined", first.StageBefore, first.LayoutBefore)
	}
	second := barriers[1].Images[0]
	if second.StageBefore != rhi.StageComputeShader || second.StageAfter != rhi.StagePixelShader {
		t.Errorf("second barrier stages = %v -> %v", second.StageBefore, second.StageAfter)
	}
	if second.AccessBefore != rhi.AccessUnorderedAccessWrite || second.LayoutBefore != rhi.LayoutUnorderedAccess {
		t.Errorf("second barrier before = %v %v", second.AccessBefore, second.LayoutBefore)
	}
}

func TestBufferBarrierChain(t *testing.T) {
	bb, dev := newTestBlackboard(t)
	buf, _ := bb.CreateBuffer("b", bufferInfo(16))
	cmd := newCommandList(t, dev)
	tr := NewTracker()

	tr.UseBuffer(buf, rhi.StageCopy, rhi.AccessTransferWrite)
	tr.Flush(cmd)
	tr.UseBuffer(buf, rhi.StageComputeShader, rhi.AccessShaderRead)
	if n := tr.Flush(cmd); n != 1 {
		t.Fatalf("Flush = %d", n)
	}
	b := cmd.Barriers()[1].Buffers[0]
	if b.StageBefore != rhi.StageCopy || b.AccessBefore != rhi.AccessTransferWrite ||
		b.StageAfter != rhi.StageComputeShader || b.AccessAfter != rhi.AccessShaderRead {
		t.Errorf("barrier = %+v", b)
	}
	if b.Buffer != buf.Native() {
		t.Error("barrier references the wrong buffer")
	}
}

func TestFreshTrackerStartsUndefined(t *testing.T) {
	bb, dev := newTestBlackboard(t)
	img, _ := bb.CreateImage("r", imageInfo(4, 4))
	cmd := newCommandList(t, dev)

	old := NewTracker()
	old.UseImage(img, rhi.StageComputeShader, rhi.AccessUnorderedAccessWrite, rhi.LayoutUnorderedAccess, false)
	old.Flush(cmd)

	fresh := NewTracker()
	if _, ok := fresh.State(img.ID()); ok {
		t.Fatal("fresh tracker knows the resource")
	}
	fresh.UseImage(img, rhi.StagePixelShader, rhi.AccessShaderSampledRead, rhi.LayoutShaderReadOnly, false)
	fresh.Flush(cmd)

	b := cmd.Barriers()[1].Images[0]
	if b.StageBefore != rhi.StageNone || b.AccessBefore != rhi.AccessNone || b.LayoutBefore != rhi.LayoutUndefined {
		t.Errorf("fresh tracker before = %v %v %v", b.StageBefore, b.AccessBefore, b.LayoutBefore)
	}
}

func TestRenderTargetScenario(t *testing.T) {
	bb, dev := newTestBlackboard(t)
	rt, err := bb.CreateImage("rt", imageInfo(256, 256))
	if err != nil {
		t.Fatal(err)
	}
	cmd := newCommandList(t, dev)
	tr := NewTracker()

	tr.UseImage(rt, rhi.StageColorAttachmentOutput, rhi.AccessColorAttachmentWrite, rhi.LayoutColorAttachment, true)
	tr.Flush(cmd)
	cmd.BeginRenderPass(rhi.RenderPassInfo{
		Name:   "clear",
		Colors: []rhi.ColorAttachment{{Image: rt.Native(), Load: rhi.LoadOpClear}},
	})
	cmd.EndRenderPass()
	tr.UseImage(rt, rhi.StagePixelShader, rhi.AccessShaderRead, rhi.LayoutShaderReadOnly, false)
	tr.Flush(cmd)

	barriers := cmd.Barriers()
	if len(barriers) != 2 {
		t.Fatalf("barrier calls = %d, want 2", len(barriers))
	}
	for i, b := range barriers {
		if len(b.Images) != 1 || len(b.Buffers) != 0 || len(b.Memory) != 0 {
			t.Errorf("flush %d = %d images %d buffers %d memory", i, len(b.Images), len(b.Buffers), len(b.Memory))
		}
	}
	first := barriers[0].Images[0]
	if !first.Discard || first.LayoutAfter != rhi.LayoutColorAttachment {
		t.Errorf("first = %+v", first)
	}
	second := barriers[1].Images[0]
	if second.LayoutBefore != rhi.LayoutColorAttachment || second.LayoutAfter != rhi.LayoutShaderReadOnly {
		t.Errorf("second layouts = %v -> %v", second.LayoutBefore, second.LayoutAfter)
	}
	if second.TargetQueue != rhi.QueueGraphics || second.OwnershipTransfer != rhi.OwnershipNone ||
		!second.SubresourceRange.IsWhole() || second.Discard {
		t.Errorf("second = %+v", second)
	}
	ops := cmd.Ops()
	want := []rhitest.Op{rhitest.OpBarrier, rhitest.OpBeginRenderPass, rhitest.OpEndRenderPass, rhitest.OpBarrier}
	if len(ops) != len(want) {
		t.Fatalf("ops = %v", ops)
	}
}

func TestMultipleUsesCollapse(t *testing.T) {
	bb, dev := newTestBlackboard(t)
	img, _ := bb.CreateImage("r", imageInfo(4, 4))
	cmd := newCommandList(t, dev)
	tr := NewTracker()

	tr.UseImage(img, rhi.StageCopy, rhi.AccessTransferWrite, rhi.LayoutCopyDst, false)
	tr.Flush(cmd)
	tr.UseImage(img, rhi.StageComputeShader, rhi.AccessUnorderedAccessWrite, rhi.LayoutUnorderedAccess, false)
	tr.UseImage(img, rhi.StageColorAttachmentOutput, rhi.AccessColorAttachmentWrite, rhi.LayoutColorAttachment, false)
	tr.UseImage(img, rhi.StagePixelShader, rhi.AccessShaderSampledRead, rhi.LayoutShaderReadOnly, false)

	if tr.Pending() != 1 {
		t.Fatalf("Pending = %d, want 1", tr.Pending())
	}
	st, _ := tr.State(img.ID())
	if st.StageBefore != rhi.StageCopy || st.StageAfter != rhi.StagePixelShader {
		t.Errorf("pending state = %+v", st)
	}

	if n := tr.Flush(cmd); n != 1 {
		t.Fatalf("Flush = %d, want 1", n)
	}
	b := cmd.Barriers()[1].Images[0]
	if b.LayoutBefore != rhi.LayoutCopyDst || b.LayoutAfter != rhi.LayoutShaderReadOnly {
		t.Errorf("collapsed barrier = %v -> %v", b.LayoutBefore, b.LayoutAfter)
	}
}

func TestSetStateEstablishesWithoutBarrier(t *testing.T) {
	bb, dev := newTestBlackboard(t)
	img, _ := bb.CreateImage("r", imageInfo(4, 4))
	cmd := newCommandList(t, dev)
	tr := NewTracker()

	tr.SetImageState(img, rhi.StageComputeShader, rhi.AccessUnorderedAccessWrite, rhi.LayoutUnorderedAccess)
	if n := tr.Flush(cmd); n != 0 {
		t.Fatalf("SetImageState produced %d barriers", n)
	}
	tr.UseImage(img, rhi.StagePixelShader, rhi.AccessShaderSampledRead, rhi.LayoutShaderReadOnly, false)
	tr.Flush(cmd)
	b := cmd.Barriers()[0].Images[0]
	if b.StageBefore != rhi.StageComputeShader || b.LayoutBefore != rhi.LayoutUnorderedAccess {
		t.Errorf("before = %v %v", b.StageBefore, b.LayoutBefore)
	}
}

func TestSetStateCancelsPending(t *testing.T) {
	bb, dev := newTestBlackboard(t)
	buf, _ := bb.CreateBuffer("b", bufferInfo(4))
	cmd := newCommandList(t, dev)
	tr := NewTracker()

	tr.UseBuffer(buf, rhi.StageComputeShader, rhi.AccessUnorderedAccessWrite)
	tr.SetBufferState(buf, rhi.StageComputeShader, rhi.AccessUnorderedAccessWrite)
	if tr.Pending() != 0 {
		t.Fatalf("Pending = %d after SetBufferState", tr.Pending())
	}
	if n := tr.Flush(cmd); n != 0 {
		t.Errorf("Flush = %d", n)
	}

	// Re-use after the cancel still flushes, once.
	tr.UseBuffer(buf, rhi.StageCopy, rhi.AccessTransferRead)
	if n := tr.Flush(cmd); n != 1 {
		t.Errorf("Flush after re-use = %d", n)
	}
}

func TestReadOnlyRepeatIsElided(t *testing.T) {
	bb, dev := newTestBlackboard(t)
	img, _ := bb.CreateImage("r", imageInfo(4, 4))
	buf, _ := bb.CreateBuffer("b", bufferInfo(4))
	cmd := newCommandList(t, dev)
	tr := NewTracker()

	tr.UseImage(img, rhi.StagePixelShader, rhi.AccessShaderSampledRead, rhi.LayoutShaderReadOnly, false)
	tr.UseBuffer(buf, rhi.StageComputeShader, rhi.AccessUnorderedAccessReadWrite)
	tr.Flush(cmd)

	tr.UseImage(img, rhi.StagePixelShader, rhi.AccessShaderSampledRead, rhi.LayoutShaderReadOnly, false)
	tr.UseBuffer(buf, rhi.StageComputeShader, rhi.AccessUnorderedAccessReadWrite)
	if n := tr.Flush(cmd); n != 1 {
		t.Fatalf("Flush = %d, want only the write-after-write buffer barrier", n)
	}
	if got := cmd.Barriers()[1]; len(got.Buffers) != 1 || len(got.Images) != 0 {
		t.Errorf("second batch = %d buffers %d images", len(got.Buffers), len(got.Images))
	}
}

func TestFlushOrderIsFirstUse(t *testing.T) {
	bb, dev := newTestBlackboard(t)
	a, _ := bb.CreateImage("a", imageInfo(4, 4))
	b, _ := bb.CreateImage("b", imageInfo(4, 4))
	cmd := newCommandList(t, dev)
	tr := NewTracker()

	tr.UseImage(b, rhi.StageCopy, rhi.AccessTransferWrite, rhi.LayoutCopyDst, true)
	tr.UseImage(a, rhi.StageCopy, rhi.AccessTransferWrite, rhi.LayoutCopyDst, true)
	tr.UseImage(b, rhi.StageCopy, rhi.AccessTransferWrite, rhi.LayoutCopyDst, false)
	tr.Flush(cmd)

	imgs := cmd.Barriers()[0].Images
	if len(imgs) != 2 || imgs[0].Image != b.Native() || imgs[1].Image != a.Native() {
		t.Fatalf("order wrong: %d barriers", len(imgs))
	}
	if imgs[0].Discard {
		t.Error("discard of the last use must win")
	}
}

func TestEmptyViewsIgnored(t *testing.T) {
	dev := rhitest.NewDevice()
	cmd := newCommandList(t, dev)
	tr := NewTracker()
	tr.UseBuffer(Buffer{}, rhi.StageCopy, rhi.AccessTransferWrite)
	tr.UseImage(Image{}, rhi.StageCopy, rhi.AccessTransferWrite, rhi.LayoutCopyDst, false)
	tr.SetImageState(Image{}, rhi.StageCopy, rhi.AccessTransferWrite, rhi.LayoutCopyDst)
	if tr.Len() != 0 || tr.Flush(cmd) != 0 {
		t.Error("empty views were tracked")
	}
}

func TestUndefinedTargetLayoutPanics(t *testing.T) {
	bb, _ := newTestBlackboard(t)
	img, _ := bb.CreateImage("r", imageInfo(4, 4))
	defer func() {
		if recover() == nil {
			t.Error("no panic for undefined target layout")
		}
	}()
	NewTracker().UseImage(img, rhi.StageCopy, rhi.AccessTransferWrite, rhi.LayoutUndefined, false)
}

func TestRecreatedImageStartsUndefined(t *testing.T) {
	bb, dev := newTestBlackboard(t)
	img, _ := bb.CreateImage("r", imageInfo(4, 4))
	cmd := newCommandList(t, dev)
	tr := NewTracker()

	tr.UseImage(img, rhi.StagePixelShader, rhi.AccessShaderSampledRead, rhi.LayoutShaderReadOnly, false)
	tr.Flush(cmd)
	if err := img.Recreate(imageInfo(8, 8)); err != nil {
		t.Fatal(err)
	}
	tr.UseImage(img, rhi.StagePixelShader, rhi.AccessShaderSampledRead, rhi.LayoutShaderReadOnly, false)
	tr.Flush(cmd)

	b := cmd.Barriers()[1].Images[0]
	if b.LayoutBefore != rhi.LayoutUndefined || b.Image != img.Native() {
		t.Errorf("recreated image barrier = %+v", b)
	}
	if tr.Len() != 2 {
		t.Errorf("Len = %d, want 2 identities", tr.Len())
	}
}

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package halrhi

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/ren/rhi"
)

func mustCommandList(t *testing.T, d *Device) rhi.CommandList {
	t.Helper()
	cmd, err := d.CreateCommandList(rhi.QueueGraphics)
	if err != nil {
		t.Fatalf("CreateCommandList: %v", err)
	}
	return cmd
}

func TestCommandListFrame(t *testing.T) {
	d := newTestDevice(t)

	staging, _ := d.CreateBuffer(rhi.BufferCreateInfo{Size: 1024, Heap: rhi.HeapCPUUpload})
	dst, _ := d.CreateBuffer(rhi.BufferCreateInfo{Size: 1024})
	target, err := d.CreateImage(rhi.ImageCreateInfo{
		Format: gputypes.TextureFormatRGBA8Unorm,
		Width:  4,
		Height: 4,
		Usage:  rhi.ImageUsageColorAttachment | rhi.ImageUsageUnorderedAccess,
	})
	if err != nil {
		t.Fatal(err)
	}
	cp, err := d.CreateComputePipeline(rhi.ComputePipelineCreateInfo{
		Name: "frame:compute", Source: testComputeWGSL, GroupSize: [3]uint32{8, 8, 1}, PushConstantSize: 8,
	})
	if err != nil {
		t.Fatal(err)
	}
	gp, err := d.CreateGraphicsPipeline(rhi.GraphicsPipelineCreateInfo{
		Name: "frame:graphics", Source: testGraphicsWGSL, VertexEntry: "vs_main", FragmentEntry: "fs_main",
		ColorFormats: []gputypes.TextureFormat{gputypes.TextureFormatRGBA8Unorm},
	})
	if err != nil {
		t.Fatal(err)
	}

	cmd := mustCommandList(t, d)
	cmd.BeginDebugRegion("frame", 1, 1, 1)
	cmd.CopyBuffer(staging, 0, dst, 256, 64)
	cmd.CopyBufferToImage(staging, 256, rhi.AlignedRowPitch(target.Format, 4), target,
		rhi.Extent3D{Width: 4, Height: 4, Depth: 1}, 0, 0)
	cmd.Barrier(rhi.BarrierInfo{
		Buffers: []rhi.BufferBarrierInfo{{
			StageBefore: rhi.StageCopy, StageAfter: rhi.StageComputeShader,
			AccessBefore: rhi.AccessTransferWrite, AccessAfter: rhi.AccessShaderRead,
			Buffer: dst,
		}},
		Images: []rhi.ImageBarrierInfo{{
			StageBefore: rhi.StageCopy, StageAfter: rhi.StageComputeShader,
			AccessBefore: rhi.AccessTransferWrite, AccessAfter: rhi.AccessUnorderedAccessWrite,
			LayoutBefore: rhi.LayoutCopyDst, LayoutAfter: rhi.LayoutUnorderedAccess,
			Image: target,
		}},
		Memory: []rhi.MemoryBarrierInfo{{StageBefore: rhi.StageCopy, StageAfter: rhi.StageAllCommands}},
	})
	cmd.SetPipeline(cp)
	rhi.PushConstants(cmd, [2]uint32{dst.BindlessIndex, target.BindlessIndex})
	cmd.Dispatch(cp.GroupCount(0, 4), cp.GroupCount(1, 4), 1)

	cmd.Barrier(rhi.BarrierInfo{Images: []rhi.ImageBarrierInfo{{
		StageBefore: rhi.StageComputeShader, StageAfter: rhi.StageColorAttachmentOutput,
		AccessBefore: rhi.AccessUnorderedAccessWrite, AccessAfter: rhi.AccessColorAttachmentWrite,
		LayoutBefore: rhi.LayoutUnorderedAccess, LayoutAfter: rhi.LayoutColorAttachment,
		Image: target, Discard: true,
	}}})
	cmd.BeginRenderPass(rhi.RenderPassInfo{
		Name:   "frame:pass",
		Colors: []rhi.ColorAttachment{{Image: target, Load: rhi.LoadOpClear, Store: rhi.StoreOpStore}},
	})
	cmd.SetPipeline(gp)
	cmd.SetViewport(0, 0, 4, 4, 0, 1)
	cmd.SetScissor(0, 0, 4, 4)
	cmd.Draw(3, 1, 0, 0)
	cmd.EndRenderPass()
	cmd.EndDebugRegion()

	index, err := d.Submit(cmd)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if index != 1 {
		t.Errorf("index = %d", index)
	}
	st := d.Stats()
	if st.BufferBarriers != 1 || st.TextureBarriers != 2 || st.MemoryBarriers != 1 {
		t.Errorf("barrier stats = %v", st)
	}
	if _, err := d.Submit(cmd); !errors.Is(err, rhi.ErrCommandListClosed) {
		t.Errorf("resubmit err = %v", err)
	}

	d.DestroyPipeline(cp)
	d.DestroyPipeline(gp)
	d.DestroyImage(target)
	d.DestroyBuffer(dst)
	d.DestroyBuffer(staging)
}

func TestPushConstantBlocksRecycled(t *testing.T) {
	d := newTestDevice(t)
	cp, err := d.CreateComputePipeline(rhi.ComputePipelineCreateInfo{Name: "push", Source: testComputeWGSL})
	if err != nil {
		t.Fatal(err)
	}
	defer d.DestroyPipeline(cp)

	for range 3 {
		cmd := mustCommandList(t, d)
		cmd.SetPipeline(cp)
		for i := range pushBlockSize/pushAlignment + 1 {
			rhi.PushConstants(cmd, uint32(i)) //nolint:gosec // G115: small loop index
			cmd.Dispatch(1, 1, 1)
		}
		cl := cmd.(*commandList)
		if len(cl.blocks) != 2 {
			t.Fatalf("blocks = %d, want a second block after %d slots", len(cl.blocks), pushBlockSize/pushAlignment)
		}
		if _, err := d.Submit(cmd); err != nil {
			t.Fatal(err)
		}
		if err := d.WaitIdle(); err != nil {
			t.Fatal(err)
		}
		if len(d.freeBlocks) != 2 {
			t.Errorf("free blocks = %d after completion", len(d.freeBlocks))
		}
	}
}

func TestOversizedPushConstantsFailEnd(t *testing.T) {
	d := newTestDevice(t)
	cmd := mustCommandList(t, d)
	cmd.SetPushConstants(make([]byte, MaxPushConstantSize+1))
	if err := cmd.End(); err == nil {
		t.Error("End succeeded after oversized push constants")
	}
	if err := cmd.End(); !errors.Is(err, rhi.ErrCommandListClosed) {
		t.Errorf("second End err = %v", err)
	}
}

func TestUnbalancedDebugRegion(t *testing.T) {
	d := newTestDevice(t)
	cmd := mustCommandList(t, d)
	cmd.BeginDebugRegion("open", 0, 0, 0)
	if err := cmd.End(); !errors.Is(err, errUnbalancedRegion) {
		t.Errorf("End err = %v", err)
	}

	cmd = mustCommandList(t, d)
	defer func() {
		if recover() == nil {
			t.Error("EndDebugRegion without Begin did not panic")
		}
	}()
	cmd.EndDebugRegion()
}

func TestRecordingRules(t *testing.T) {
	d := newTestDevice(t)
	buf, _ := d.CreateBuffer(rhi.BufferCreateInfo{Size: 16})
	defer d.DestroyBuffer(buf)
	img, _ := d.CreateImage(rhi.ImageCreateInfo{Format: gputypes.TextureFormatRGBA8Unorm, Width: 4, Height: 4, Usage: rhi.ImageUsageColorAttachment})
	defer d.DestroyImage(img)

	tests := []struct {
		name   string
		record func(cmd rhi.CommandList)
	}{
		{"dispatch without pipeline", func(cmd rhi.CommandList) { cmd.Dispatch(1, 1, 1) }},
		{"draw outside pass", func(cmd rhi.CommandList) { cmd.Draw(3, 1, 0, 0) }},
		{"end pass without begin", func(cmd rhi.CommandList) { cmd.EndRenderPass() }},
		{"copy inside pass", func(cmd rhi.CommandList) {
			cmd.BeginRenderPass(rhi.RenderPassInfo{Colors: []rhi.ColorAttachment{{Image: img}}})
			cmd.CopyBuffer(buf, 0, buf, 8, 4)
		}},
		{"unaligned image copy", func(cmd rhi.CommandList) {
			cmd.CopyBufferToImage(buf, 4, 256, img, rhi.Extent3D{Width: 1, Height: 1, Depth: 1}, 0, 0)
		}},
		{"record after end", func(cmd rhi.CommandList) {
			_ = cmd.End()
			cmd.Barrier(rhi.BarrierInfo{})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := mustCommandList(t, d)
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			tt.record(cmd)
		})
	}
}

func TestSubmitForeignList(t *testing.T) {
	a := newTestDevice(t)
	b := newTestDevice(t)
	cmd := mustCommandList(t, a)
	if _, err := b.Submit(cmd); !errors.Is(err, ErrForeignResource) {
		t.Errorf("err = %v", err)
	}
}

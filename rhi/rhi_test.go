// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package rhi_test

import (
	"bytes"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/ren/rhi"
	"github.com/gogpu/ren/rhi/rhitest"
)

func TestStageString(t *testing.T) {
	tests := []struct {
		stage rhi.BarrierPipelineStage
		want  string
	}{
		{rhi.StageNone, "None"},
		{rhi.StageComputeShader, "ComputeShader"},
		{rhi.StageCopy | rhi.StageAllCommands, "Copy|AllCommands"},
	}
	for _, tt := range tests {
		if got := tt.stage.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", uint32(tt.stage), got, tt.want)
		}
	}
}

func TestAccessIsWrite(t *testing.T) {
	tests := []struct {
		name   string
		access rhi.BarrierAccess
		write  bool
	}{
		{"none", rhi.AccessNone, false},
		{"sampled", rhi.AccessShaderSampledRead, false},
		{"reads", rhi.AccessShaderRead | rhi.AccessTransferRead, false},
		{"uav rw", rhi.AccessUnorderedAccessReadWrite, true},
		{"color", rhi.AccessColorAttachmentWrite, true},
		{"transfer", rhi.AccessTransferWrite, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.access.IsWrite(); got != tt.write {
				t.Errorf("IsWrite(%v) = %v, want %v", tt.access, got, tt.write)
			}
		})
	}
	if got := rhi.AccessUnorderedAccessReadWrite.String(); got != "UnorderedAccessRead|UnorderedAccessWrite" {
		t.Errorf("String = %q", got)
	}
}

func TestLayoutString(t *testing.T) {
	if got := rhi.LayoutShaderReadOnly.String(); got != "ShaderReadOnly" {
		t.Errorf("String = %q", got)
	}
	if got := rhi.BarrierImageLayout(200).String(); got != "Unknown" {
		t.Errorf("out of range String = %q", got)
	}
}

func TestMipSize(t *testing.T) {
	info := rhi.ImageCreateInfo{
		Format:    gputypes.TextureFormatRGBA8Unorm,
		Width:     256,
		Height:    64,
		ArraySize: 6,
		MipLevels: 9,
	}
	tests := []struct {
		level uint32
		want  uint64
	}{
		{0, 4 * 256 * 64 * 6},
		{1, 4 * 128 * 32 * 6},
		{6, 4 * 4 * 1 * 6},
		{8, 4 * 1 * 1 * 6},
	}
	for _, tt := range tests {
		if got := info.MipSize(tt.level); got != tt.want {
			t.Errorf("MipSize(%d) = %d, want %d", tt.level, got, tt.want)
		}
	}
}

func TestNormalized(t *testing.T) {
	n := rhi.ImageCreateInfo{Width: 1, Height: 1}.Normalized()
	if n.Depth != 1 || n.ArraySize != 1 || n.MipLevels != 1 {
		t.Errorf("Normalized = %+v", n)
	}
}

func TestFormatInfo(t *testing.T) {
	if got := rhi.FormatInfo(gputypes.TextureFormatRGBA16Float); got.Bytes != 8 || !got.Float {
		t.Errorf("RGBA16Float = %+v", got)
	}
	if !rhi.IsDepthFormat(gputypes.TextureFormatDepth32Float) {
		t.Error("Depth32Float is not a depth format")
	}
	if rhi.IsDepthFormat(gputypes.TextureFormatRG8Unorm) {
		t.Error("RG8Unorm reported as depth format")
	}
	if got := rhi.FormatInfo(gputypes.TextureFormatBC1RGBAUnorm); got.Bytes != 0 {
		t.Errorf("block format = %+v, want zero", got)
	}
}

func TestGroupCount(t *testing.T) {
	p := &rhi.Pipeline{GroupSize: [3]uint32{8, 8, 1}}
	if got := p.GroupCount(0, 17); got != 3 {
		t.Errorf("GroupCount(0, 17) = %d, want 3", got)
	}
	if got := p.GroupCount(2, 6); got != 6 {
		t.Errorf("GroupCount(2, 6) = %d, want 6", got)
	}
}

func TestPushConstants(t *testing.T) {
	type params struct {
		Size  uint32
		Scale float32
	}
	dev := rhitest.NewDevice()
	cmd, err := dev.CreateCommandList(rhi.QueueGraphics)
	if err != nil {
		t.Fatal(err)
	}
	rhi.PushConstants(cmd, params{Size: 256, Scale: 1})

	cl := dev.CommandLists()[0]
	cmds := cl.Commands()
	if len(cmds) != 1 || cmds[0].Op != rhitest.OpSetPushConstants {
		t.Fatalf("commands = %v", cl.Ops())
	}
	want := []byte{0, 1, 0, 0, 0, 0, 0x80, 0x3f}
	if !bytes.Equal(cmds[0].Data, want) {
		t.Errorf("data = %x, want %x", cmds[0].Data, want)
	}
}

func TestPushConstantsPanicsOnVariableSize(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("no panic for a slice-bearing struct")
		}
	}()
	dev := rhitest.NewDevice()
	cmd, _ := dev.CreateCommandList(rhi.QueueGraphics)
	rhi.PushConstants(cmd, struct{ S []int }{})
}

func TestAlignedRowPitch(t *testing.T) {
	tests := []struct {
		format gputypes.TextureFormat
		width  uint32
		want   uint32
	}{
		{gputypes.TextureFormatRGBA8Unorm, 64, 256},
		{gputypes.TextureFormatRGBA8Unorm, 65, 512},
		{gputypes.TextureFormatR8Unorm, 1, 256},
		{gputypes.TextureFormatRGBA32Float, 256, 4096},
	}
	for _, tt := range tests {
		if got := rhi.AlignedRowPitch(tt.format, tt.width); got != tt.want {
			t.Errorf("AlignedRowPitch(%v, %d) = %d, want %d", tt.format, tt.width, got, tt.want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name string
		want gputypes.TextureFormat
		ok   bool
	}{
		{"rgba8unorm-srgb", gputypes.TextureFormatRGBA8UnormSrgb, true},
		{"depth32float", gputypes.TextureFormatDepth32Float, true},
		{"rg16float", gputypes.TextureFormatRG16Float, true},
		{"RGBA8", gputypes.TextureFormatUndefined, false},
	}
	for _, tt := range tests {
		got, ok := rhi.ParseFormat(tt.name)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseFormat(%q) = %v, %v", tt.name, got, ok)
		}
	}
}

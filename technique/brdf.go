// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package technique

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/ren"
	"github.com/gogpu/ren/rhi"
	"github.com/gogpu/ren/shader"
)

// BRDFLUTName is the name of the split-sum BRDF lookup texture.
const BRDFLUTName = "pbr:brdf_lut_texture"

// brdfLUTSize is the edge length of the lookup texture.
const brdfLUTSize = 256

type brdfPush struct {
	TargetImage uint32
	Size        uint32
	_           [2]uint32
}

// BRDFLUT bakes the split-sum BRDF integration table once.
type BRDFLUT struct {
	bb  *ren.Blackboard
	lib *shader.Library

	lut   ren.Image
	baked bool
}

// NewBRDFLUT creates the lookup texture.
func NewBRDFLUT(bb *ren.Blackboard, lib *shader.Library) (*BRDFLUT, error) {
	lut, err := bb.CreateImage(BRDFLUTName, rhi.ImageCreateInfo{
		Format:          gputypes.TextureFormatRG16Float,
		Width:           brdfLUTSize,
		Height:          brdfLUTSize,
		Usage:           rhi.ImageUsageSampled | rhi.ImageUsageUnorderedAccess,
		PrimaryViewType: rhi.ViewTexture2D,
	})
	if err != nil {
		return nil, err
	}
	return &BRDFLUT{bb: bb, lib: lib, lut: lut}, nil
}

// Texture returns the lookup texture.
func (b *BRDFLUT) Texture() ren.Image { return b.lut }

// Baked reports whether Bake recorded the bake.
func (b *BRDFLUT) Baked() bool { return b.baked }

// Bake records the bake on the first call and nothing afterwards. The
// texture is left readable by every stage.
func (b *BRDFLUT) Bake(cmd rhi.CommandList, tracker *ren.Tracker) {
	if b.baked {
		return
	}
	cmd.BeginDebugRegion("pbr:bake_brdf_lut", 0.1, 0.25, 0.1)
	defer cmd.EndDebugRegion()

	tracker.UseImage(b.lut, rhi.StageComputeShader, rhi.AccessUnorderedAccessWrite, rhi.LayoutUnorderedAccess, true)
	tracker.Flush(cmd)

	p := b.lib.Pipeline("brdf_bake")
	cmd.SetPipeline(p)
	rhi.PushConstants(cmd, brdfPush{TargetImage: b.lut.BindlessIndex(), Size: brdfLUTSize})
	dispatch2D(cmd, p, brdfLUTSize, brdfLUTSize, 1)

	tracker.UseImage(b.lut, rhi.StageAllCommands, rhi.AccessShaderRead, rhi.LayoutShaderReadOnly, false)
	tracker.Flush(cmd)
	b.baked = true
	slogger().Debug("technique: BRDF LUT bake recorded", "size", brdfLUTSize)
}

// Close destroys the lookup texture.
func (b *BRDFLUT) Close() { b.bb.DestroyImage(BRDFLUTName) }

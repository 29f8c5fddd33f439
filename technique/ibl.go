// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package technique

import (
	"fmt"

	"github.com/gogpu/ren"
	"github.com/gogpu/ren/asset"
	"github.com/gogpu/ren/rhi"
	"github.com/gogpu/ren/shader"
)

// Image based lighting resource names.
const (
	IBLHDRIName        = "image_based_lighting:hdri_texture"
	IBLCubemapName     = "image_based_lighting:cubemap_texture"
	IBLPrefilteredName = "image_based_lighting:prefiltered_cubemap_texture"
)

// iblPush mirrors the push block of image_based_lighting.wgsl.
type iblPush struct {
	Source       uint32
	Cubemap      uint32
	Size         uint32
	SamplerIndex uint32
}

// ImageBasedLighting lights the scene from an equirectangular HDRI. The
// HDRI is projected onto a cubemap and prefiltered once.
type ImageBasedLighting struct {
	bb  *ren.Blackboard
	lib *shader.Library

	hdri        ren.Image
	cubemap     ren.Image
	prefiltered ren.Image
	baked       bool
}

// NewImageBasedLighting uploads the base level of hdri and creates the
// cubemaps. The cubemap edge is the smaller HDRI extent.
func NewImageBasedLighting(bb *ren.Blackboard, tc *ren.TransferContext, lib *shader.Library, hdri *asset.Texture) (*ImageBasedLighting, error) {
	if err := hdri.Validate(); err != nil {
		return nil, err
	}
	info := hdri.CreateInfo()
	info.MipLevels = 1
	info.Usage |= rhi.ImageUsageUnorderedAccess
	size := min(info.Width, info.Height)
	if size == 0 {
		return nil, fmt.Errorf("%w: HDRI %dx%d", ErrInvalidSize, info.Width, info.Height)
	}

	ibl := &ImageBasedLighting{bb: bb, lib: lib}
	err := createImages(bb,
		imageSpec{IBLHDRIName, info, &ibl.hdri},
		imageSpec{IBLCubemapName, cubemapInfo(info.Format, size), &ibl.cubemap},
		imageSpec{IBLPrefilteredName, cubemapInfo(info.Format, size), &ibl.prefiltered},
	)
	if err != nil {
		return nil, err
	}
	if err := tc.UploadImage(ibl.hdri, [][]byte{hdri.Mips[0].Data}); err != nil {
		ibl.Close()
		return nil, fmt.Errorf("technique: upload HDRI: %w", err)
	}
	return ibl, nil
}

// HDRI returns the equirectangular source image.
func (ibl *ImageBasedLighting) HDRI() ren.Image { return ibl.hdri }

// Cubemap returns the projected environment cubemap.
func (ibl *ImageBasedLighting) Cubemap() ren.Image { return ibl.cubemap }

// Prefiltered returns the diffuse irradiance cubemap.
func (ibl *ImageBasedLighting) Prefiltered() ren.Image { return ibl.prefiltered }

// Baked reports whether Bake recorded the bake.
func (ibl *ImageBasedLighting) Baked() bool { return ibl.baked }

// Bake records the projection and prefilter passes on the first call and
// nothing afterwards.
func (ibl *ImageBasedLighting) Bake(cmd rhi.CommandList, tracker *ren.Tracker) error {
	if ibl.baked {
		return nil
	}
	sampler, err := ibl.bb.Sampler(linearWrap)
	if err != nil {
		return err
	}

	cmd.BeginDebugRegion("image_based_lighting:bake", 0.5, 0.5, 0.1)
	defer cmd.EndDebugRegion()

	// Uploads leave the HDRI readable by every stage.
	tracker.SetImageState(ibl.hdri, rhi.StageAllCommands, rhi.AccessShaderRead, rhi.LayoutShaderReadOnly)
	ibl.convolve(cmd, tracker, "equirectangular_to_cubemap", ibl.hdri, ibl.cubemap, sampler)
	ibl.convolve(cmd, tracker, "ibl_prefilter_diffuse", ibl.cubemap, ibl.prefiltered, sampler)
	ibl.baked = true
	slogger().Debug("technique: image based lighting bake recorded", "size", ibl.cubemap.Width())
	return nil
}

// convolve writes every face of dst from src and leaves dst readable.
func (ibl *ImageBasedLighting) convolve(cmd rhi.CommandList, tracker *ren.Tracker, pipeline string, src, dst ren.Image, sampler ren.Sampler) {
	tracker.UseImage(src, rhi.StageComputeShader, rhi.AccessShaderRead, rhi.LayoutShaderReadOnly, false)
	tracker.UseImage(dst, rhi.StageComputeShader, rhi.AccessUnorderedAccessWrite, rhi.LayoutUnorderedAccess, true)
	tracker.Flush(cmd)

	p := ibl.lib.Pipeline(pipeline)
	size := dst.Width()
	cmd.SetPipeline(p)
	rhi.PushConstants(cmd, iblPush{
		Source:       src.BindlessIndex(),
		Cubemap:      dst.BindlessIndex(),
		Size:         size,
		SamplerIndex: sampler.BindlessIndex(),
	})
	dispatch2D(cmd, p, size, size, 6)

	tracker.UseImage(dst, rhi.StageComputeShader, rhi.AccessShaderRead, rhi.LayoutShaderReadOnly, false)
	tracker.Flush(cmd)
}

// Skybox draws the environment cubemap behind the geometry in depth.
func (ibl *ImageBasedLighting) Skybox(cmd rhi.CommandList, tracker *ren.Tracker, target, depth ren.Image) error {
	return skybox(cmd, tracker, ibl.bb, ibl.lib.Pipeline("skybox"), "image_based_lighting:skybox", ibl.cubemap, target, depth)
}

// Close destroys the HDRI and the cubemaps.
func (ibl *ImageBasedLighting) Close() {
	for _, name := range []string{IBLHDRIName, IBLCubemapName, IBLPrefilteredName} {
		ibl.bb.DestroyImage(name)
	}
}

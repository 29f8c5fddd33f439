// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package technique

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/ren"
	"github.com/gogpu/ren/rhi"
)

// ErrInvalidSize is returned for target or texture extents a technique
// cannot work with.
var ErrInvalidSize = errors.New("technique: invalid size")

// linearWrap filters environment maps.
var linearWrap = rhi.SamplerCreateInfo{
	FilterMin: rhi.FilterLinear,
	FilterMag: rhi.FilterLinear,
	FilterMip: rhi.FilterLinear,
	AddressU:  rhi.AddressWrap,
	AddressV:  rhi.AddressWrap,
	AddressW:  rhi.AddressWrap,
}

// imageSpec names one image a technique owns.
type imageSpec struct {
	name string
	info rhi.ImageCreateInfo
	dst  *ren.Image
}

// createImages creates every image of specs on bb. On failure the images
// created so far are destroyed again.
func createImages(bb *ren.Blackboard, specs ...imageSpec) error {
	for i, s := range specs {
		img, err := bb.CreateImage(s.name, s.info)
		if err != nil {
			for _, done := range specs[:i] {
				bb.DestroyImage(done.name)
			}
			return err
		}
		*s.dst = img
	}
	return nil
}

// dispatch2D covers a width×height grid with the workgroups of p.
func dispatch2D(cmd rhi.CommandList, p *rhi.Pipeline, width, height, layers uint32) {
	cmd.Dispatch(p.GroupCount(0, width), p.GroupCount(1, height), layers)
}

// fullViewport sets viewport and scissor to a width×height target.
func fullViewport(cmd rhi.CommandList, width, height uint32) {
	cmd.SetViewport(0, 0, float32(width), float32(height), 0, 1)
	cmd.SetScissor(0, 0, width, height)
}

// cubemapInfo describes a sampled and writable cubemap.
func cubemapInfo(format gputypes.TextureFormat, size uint32) rhi.ImageCreateInfo {
	return rhi.ImageCreateInfo{
		Format:          format,
		Width:           size,
		Height:          size,
		ArraySize:       6,
		Usage:           rhi.ImageUsageSampled | rhi.ImageUsageUnorderedAccess,
		PrimaryViewType: rhi.ViewTextureCube,
	}
}

// skyboxPush mirrors the push block of skybox.wgsl.
type skyboxPush struct {
	Cubemap      uint32
	TargetImage  uint32
	Depth        uint32
	SamplerIndex uint32
	Width        uint32
	Height       uint32
	_            [2]uint32
}

// skybox fills the pixels of target left empty by the geometry in depth
// with cubemap.
func skybox(cmd rhi.CommandList, tracker *ren.Tracker, bb *ren.Blackboard, p *rhi.Pipeline, region string, cubemap, target, depth ren.Image) error {
	if target.Width() == 0 || target.Height() == 0 {
		return fmt.Errorf("%w: skybox target %q is empty", ErrInvalidSize, target.Name())
	}
	sampler, err := bb.Sampler(linearWrap)
	if err != nil {
		return err
	}

	cmd.BeginDebugRegion(region, 0.1, 0.25, 0.1)
	defer cmd.EndDebugRegion()

	tracker.UseImage(target, rhi.StageComputeShader, rhi.AccessUnorderedAccessWrite, rhi.LayoutUnorderedAccess, false)
	tracker.UseImage(depth, rhi.StageComputeShader, rhi.AccessShaderRead, rhi.LayoutShaderReadOnly, false)
	tracker.UseImage(cubemap, rhi.StageComputeShader, rhi.AccessShaderRead, rhi.LayoutShaderReadOnly, false)
	tracker.Flush(cmd)

	w, h := target.Width(), target.Height()
	cmd.SetPipeline(p)
	rhi.PushConstants(cmd, skyboxPush{
		Cubemap:      cubemap.BindlessIndex(),
		TargetImage:  target.BindlessIndex(),
		Depth:        depth.BindlessIndex(),
		SamplerIndex: sampler.BindlessIndex(),
		Width:        w,
		Height:       h,
	})
	dispatch2D(cmd, p, w, h, 1)
	return nil
}

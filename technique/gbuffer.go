// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package technique

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/ren"
	"github.com/gogpu/ren/asset"
	"github.com/gogpu/ren/rhi"
	"github.com/gogpu/ren/shader"
)

// G-buffer resource names.
const (
	GBufferColorName             = "g_buffer:color_render_target"
	GBufferNormalName            = "g_buffer:normal_render_target"
	GBufferMetallicRoughnessName = "g_buffer:metallic_roughness_render_target"
	GBufferDepthName             = "g_buffer:depth_buffer"
)

// Draw is one submesh of one model instance drawn into the G-buffer.
// Vertices are pulled from the model buffers by index; the material is
// Submesh.Material of the model's material buffer.
type Draw struct {
	Model    asset.ModelBuffers
	Submesh  asset.Submesh
	Instance uint32
}

// gbufferPush mirrors the push block of g_buffer.wgsl.
type gbufferPush struct {
	PositionBuffer  uint32
	AttributeBuffer uint32
	IndexBuffer     uint32
	InstanceBuffer  uint32
	MaterialBuffer  uint32
	Camera          uint32
	Instance        uint32
	Material        uint32
}

// resolvePush mirrors the push block of g_buffer_resolve.wgsl.
type resolvePush struct {
	Color             uint32
	Normal            uint32
	MetallicRoughness uint32
	Depth             uint32
	TargetImage       uint32
	BRDFLUT           uint32
	Width             uint32
	Height            uint32
}

// GBuffer renders opaque geometry into color, normal, metallic-roughness
// and depth targets and resolves them into a lit image.
type GBuffer struct {
	bb  *ren.Blackboard
	lib *shader.Library

	color             ren.Image
	normal            ren.Image
	metallicRoughness ren.Image
	depth             ren.Image
}

func gbufferTarget(format gputypes.TextureFormat, width, height uint32, usage rhi.ImageUsage) rhi.ImageCreateInfo {
	return rhi.ImageCreateInfo{
		Format:          format,
		Width:           width,
		Height:          height,
		Usage:           usage | rhi.ImageUsageSampled,
		PrimaryViewType: rhi.ViewTexture2D,
	}
}

// NewGBuffer creates the width×height G-buffer targets.
func NewGBuffer(bb *ren.Blackboard, lib *shader.Library, width, height uint32) (*GBuffer, error) {
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("%w: G-buffer %dx%d", ErrInvalidSize, width, height)
	}
	g := &GBuffer{bb: bb, lib: lib}
	err := createImages(bb,
		imageSpec{GBufferColorName, gbufferTarget(gputypes.TextureFormatRGBA8UnormSrgb, width, height, rhi.ImageUsageColorAttachment), &g.color},
		imageSpec{GBufferNormalName, gbufferTarget(gputypes.TextureFormatRGBA16Float, width, height, rhi.ImageUsageColorAttachment), &g.normal},
		imageSpec{GBufferMetallicRoughnessName, gbufferTarget(gputypes.TextureFormatRG8Unorm, width, height, rhi.ImageUsageColorAttachment), &g.metallicRoughness},
		imageSpec{GBufferDepthName, gbufferTarget(gputypes.TextureFormatDepth32Float, width, height, rhi.ImageUsageDepthStencilAttachment), &g.depth},
	)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// Color returns the albedo target.
func (g *GBuffer) Color() ren.Image { return g.color }

// Normal returns the normal target.
func (g *GBuffer) Normal() ren.Image { return g.normal }

// MetallicRoughness returns the metallic-roughness target.
func (g *GBuffer) MetallicRoughness() ren.Image { return g.metallicRoughness }

// Depth returns the depth buffer.
func (g *GBuffer) Depth() ren.Image { return g.depth }

// Resize recreates every target at width×height. Views held elsewhere
// follow the new images.
func (g *GBuffer) Resize(width, height uint32) error {
	if width == 0 || height == 0 {
		return fmt.Errorf("%w: G-buffer %dx%d", ErrInvalidSize, width, height)
	}
	for _, img := range []ren.Image{g.color, g.normal, g.metallicRoughness, g.depth} {
		info := img.CreateInfo()
		if info.Width == width && info.Height == height {
			continue
		}
		info.Width, info.Height = width, height
		if err := img.Recreate(info); err != nil {
			return err
		}
	}
	return nil
}

// Render clears the targets and draws every entry of draws with the
// basic_draw pipeline. The previous contents are discarded.
func (g *GBuffer) Render(cmd rhi.CommandList, tracker *ren.Tracker, camera ren.Buffer, draws []Draw) {
	cmd.BeginDebugRegion("g_buffer:render", 1, 0.5, 1)
	defer cmd.EndDebugRegion()

	for _, img := range []ren.Image{g.color, g.normal, g.metallicRoughness} {
		tracker.UseImage(img, rhi.StageColorAttachmentOutput, rhi.AccessColorAttachmentWrite, rhi.LayoutColorAttachment, true)
	}
	tracker.UseImage(g.depth, rhi.StageEarlyFragmentTests, rhi.AccessDepthStencilAttachmentWrite, rhi.LayoutDepthStencilWrite, true)
	tracker.Flush(cmd)

	w, h := g.color.Width(), g.color.Height()
	cmd.BeginRenderPass(rhi.RenderPassInfo{
		Name: "g_buffer",
		Colors: []rhi.ColorAttachment{
			{Image: g.color.Native(), Load: rhi.LoadOpClear, Store: rhi.StoreOpStore},
			{Image: g.normal.Native(), Load: rhi.LoadOpClear, Store: rhi.StoreOpStore},
			{Image: g.metallicRoughness.Native(), Load: rhi.LoadOpClear, Store: rhi.StoreOpStore},
		},
		Depth: &rhi.DepthAttachment{
			Image:      g.depth.Native(),
			Load:       rhi.LoadOpClear,
			Store:      rhi.StoreOpStore,
			ClearDepth: 1,
		},
		Width:  w,
		Height: h,
	})
	fullViewport(cmd, w, h)
	cmd.SetPipeline(g.lib.Pipeline("basic_draw"))
	for _, d := range draws {
		count := d.Submesh.IndexEnd - d.Submesh.IndexStart
		if count == 0 {
			continue
		}
		rhi.PushConstants(cmd, gbufferPush{
			PositionBuffer:  d.Model.Positions.BindlessIndex(),
			AttributeBuffer: d.Model.Attributes.BindlessIndex(),
			IndexBuffer:     d.Model.Indices.BindlessIndex(),
			InstanceBuffer:  d.Model.Instances.BindlessIndex(),
			MaterialBuffer:  d.Model.Materials.BindlessIndex(),
			Camera:          camera.BindlessIndex(),
			Instance:        d.Instance,
			Material:        d.Submesh.Material,
		})
		cmd.Draw(count, 1, d.Submesh.IndexStart, d.Instance)
	}
	cmd.EndRenderPass()
}

// Resolve shades the G-buffer into target, which must be an unordered
// access image of the G-buffer size.
func (g *GBuffer) Resolve(cmd rhi.CommandList, tracker *ren.Tracker, target, brdfLUT ren.Image) {
	cmd.BeginDebugRegion("g_buffer:resolve", 1, 0.5, 1)
	defer cmd.EndDebugRegion()

	for _, img := range []ren.Image{g.color, g.normal, g.metallicRoughness, g.depth} {
		tracker.UseImage(img, rhi.StageComputeShader, rhi.AccessShaderSampledRead, rhi.LayoutShaderReadOnly, false)
	}
	tracker.UseImage(target, rhi.StageComputeShader, rhi.AccessUnorderedAccessWrite, rhi.LayoutUnorderedAccess, false)
	tracker.Flush(cmd)

	p := g.lib.Pipeline("g_buffer_resolve")
	w, h := target.Width(), target.Height()
	cmd.SetPipeline(p)
	rhi.PushConstants(cmd, resolvePush{
		Color:             g.color.BindlessIndex(),
		Normal:            g.normal.BindlessIndex(),
		MetallicRoughness: g.metallicRoughness.BindlessIndex(),
		Depth:             g.depth.BindlessIndex(),
		TargetImage:       target.BindlessIndex(),
		BRDFLUT:           brdfLUT.BindlessIndex(),
		Width:             w,
		Height:            h,
	})
	dispatch2D(cmd, p, w, h, 1)
}

// Close destroys the targets.
func (g *GBuffer) Close() {
	for _, name := range []string{GBufferColorName, GBufferNormalName, GBufferMetallicRoughnessName, GBufferDepthName} {
		g.bb.DestroyImage(name)
	}
}

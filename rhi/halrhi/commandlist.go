// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package halrhi

import (
	"errors"
	"strings"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/ren/rhi"
)

// errUnbalancedRegion is returned by End when debug regions were left open.
var errUnbalancedRegion = errors.New("halrhi: debug region left open")

// commandList records rhi commands into a hal command encoder.
//
// hal transitions and copies are encoder commands, so they must not be
// recorded inside a render pass. Every Dispatch runs in its own compute
// pass labeled with the innermost debug region.
type commandList struct {
	device  *Device
	encoder hal.CommandEncoder
	queue   rhi.QueueType

	cmdBuf    hal.CommandBuffer
	blocks    []*pushBlock
	ended     bool
	submitted bool

	// err is the first recording failure, returned by End.
	err error

	regions  []string
	pipeline *halPipeline
	slot     pushSlot
	hasPush  bool
	pass     hal.RenderPassEncoder
}

func (cl *commandList) mustRecord(op string) {
	if cl.ended {
		panic("halrhi: " + op + " recorded after End")
	}
}

func (cl *commandList) mustBeOutsidePass(op string) {
	cl.mustRecord(op)
	if cl.pass != nil {
		panic("halrhi: " + op + " inside a render pass")
	}
}

func (cl *commandList) label() string {
	if len(cl.regions) == 0 {
		return "halrhi_" + cl.queue.String()
	}
	return strings.Join(cl.regions, "/")
}

// Barrier translates the batch into hal usage transitions.
func (cl *commandList) Barrier(info rhi.BarrierInfo) {
	cl.mustBeOutsidePass("barrier")
	stats := &cl.device.stats
	stats.MemoryBarriers += uint64(len(info.Memory))

	if len(info.Buffers) > 0 {
		barriers := make([]hal.BufferBarrier, 0, len(info.Buffers))
		for _, b := range info.Buffers {
			hb := bufferOf(b.Buffer)
			barriers = append(barriers, hal.BufferBarrier{
				Buffer: hb.raw,
				Usage: hal.BufferUsageTransition{
					OldUsage: accessBufferUsage(b.AccessBefore) & hb.usage,
					NewUsage: accessBufferUsage(b.AccessAfter) & hb.usage,
				},
			})
		}
		cl.encoder.TransitionBuffers(barriers)
		stats.BufferBarriers += uint64(len(barriers))
	}

	if len(info.Images) > 0 {
		barriers := make([]hal.TextureBarrier, 0, len(info.Images))
		for _, b := range info.Images {
			hi := imageOf(b.Image)
			old := layoutTextureUsage(b.LayoutBefore) & hi.usage
			if b.Discard {
				old = gputypes.TextureUsageNone
			}
			r := b.SubresourceRange
			barriers = append(barriers, hal.TextureBarrier{
				Texture: hi.raw,
				Range: hal.TextureRange{
					Aspect:          hi.aspect,
					BaseMipLevel:    r.FirstMipLevel,
					MipLevelCount:   r.MipCount,
					BaseArrayLayer:  r.FirstArrayIndex,
					ArrayLayerCount: r.ArraySize,
				},
				Usage: hal.TextureUsageTransition{
					OldUsage: old,
					NewUsage: layoutTextureUsage(b.LayoutAfter) & hi.usage,
				},
			})
		}
		cl.encoder.TransitionTextures(barriers)
		stats.TextureBarriers += uint64(len(barriers))
	}
}

func (cl *commandList) CopyBuffer(src *rhi.Buffer, srcOffset uint64, dst *rhi.Buffer, dstOffset, size uint64) {
	cl.mustBeOutsidePass("copy")
	cl.encoder.CopyBufferToBuffer(bufferOf(src).raw, bufferOf(dst).raw, []hal.BufferCopy{{
		SrcOffset: srcOffset,
		DstOffset: dstOffset,
		Size:      size,
	}})
}

func (cl *commandList) CopyBufferToImage(src *rhi.Buffer, srcOffset uint64, rowPitch uint32, dst *rhi.Image, extent rhi.Extent3D, mipLevel, arrayIndex uint32) {
	cl.mustBeOutsidePass("copy")
	if rowPitch%rhi.CopyRowPitchAlignment != 0 || srcOffset%rhi.CopyRowPitchAlignment != 0 {
		panic("halrhi: unaligned buffer to image copy")
	}
	hi := imageOf(dst)
	cl.encoder.CopyBufferToTexture(bufferOf(src).raw, hi.raw, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{
			Offset:       srcOffset,
			BytesPerRow:  rowPitch,
			RowsPerImage: extent.Height,
		},
		TextureBase: hal.ImageCopyTexture{
			Texture:  hi.raw,
			MipLevel: mipLevel,
			Origin:   hal.Origin3D{Z: arrayIndex},
			Aspect:   hi.aspect,
		},
		Size: hal.Extent3D{Width: extent.Width, Height: extent.Height, DepthOrArrayLayers: max(extent.Depth, 1)},
	}})
}

// BeginDebugRegion pushes a label used for the passes recorded inside it.
// hal encoders have no debug markers; the color is ignored.
func (cl *commandList) BeginDebugRegion(name string, _, _, _ float32) {
	cl.mustRecord("debug region")
	cl.regions = append(cl.regions, name)
}

func (cl *commandList) EndDebugRegion() {
	cl.mustRecord("debug region")
	if len(cl.regions) == 0 {
		panic("halrhi: EndDebugRegion without BeginDebugRegion")
	}
	cl.regions = cl.regions[:len(cl.regions)-1]
}

func (cl *commandList) SetPipeline(p *rhi.Pipeline) {
	cl.mustRecord("set pipeline")
	hp := pipelineOf(p)
	cl.pipeline = hp
	if cl.pass != nil {
		if hp.render == nil {
			panic("halrhi: compute pipeline bound inside a render pass")
		}
		cl.pass.SetPipeline(hp.render)
	}
}

// SetPushConstants stores data in the uniform ring; it is bound with the
// next Dispatch or Draw.
func (cl *commandList) SetPushConstants(data []byte) {
	cl.mustRecord("push constants")
	slot, err := cl.push(data)
	if err != nil {
		if cl.err == nil {
			cl.err = err
		}
		return
	}
	cl.slot, cl.hasPush = slot, true
}

func (cl *commandList) bindPush(set func(index uint32, group hal.BindGroup, offsets []uint32)) {
	if cl.hasPush {
		set(0, cl.slot.group, []uint32{cl.slot.offset})
	}
}

func (cl *commandList) Dispatch(x, y, z uint32) {
	cl.mustBeOutsidePass("dispatch")
	if cl.pipeline == nil || cl.pipeline.compute == nil {
		panic("halrhi: dispatch without a compute pipeline")
	}
	pass := cl.encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: cl.label()})
	pass.SetPipeline(cl.pipeline.compute)
	cl.bindPush(pass.SetBindGroup)
	pass.Dispatch(x, y, z)
	pass.End()
}

func (cl *commandList) BeginRenderPass(info rhi.RenderPassInfo) {
	cl.mustBeOutsidePass("render pass")
	desc := &hal.RenderPassDescriptor{Label: info.Name}
	width, height := info.Width, info.Height
	for _, c := range info.Colors {
		desc.ColorAttachments = append(desc.ColorAttachments, hal.RenderPassColorAttachment{
			View:    imageOf(c.Image).view,
			LoadOp:  loadOp(c.Load),
			StoreOp: storeOp(c.Store),
			ClearValue: gputypes.Color{
				R: float64(c.ClearColor[0]),
				G: float64(c.ClearColor[1]),
				B: float64(c.ClearColor[2]),
				A: float64(c.ClearColor[3]),
			},
		})
		if width == 0 {
			width, height = c.Image.Width, c.Image.Height
		}
	}
	if info.Depth != nil {
		desc.DepthStencilAttachment = &hal.RenderPassDepthStencilAttachment{
			View:            imageOf(info.Depth.Image).view,
			DepthLoadOp:     loadOp(info.Depth.Load),
			DepthStoreOp:    storeOp(info.Depth.Store),
			DepthClearValue: info.Depth.ClearDepth,
		}
		if width == 0 {
			width, height = info.Depth.Image.Width, info.Depth.Image.Height
		}
	}
	cl.pass = cl.encoder.BeginRenderPass(desc)
	if width > 0 && height > 0 {
		cl.pass.SetViewport(0, 0, float32(width), float32(height), 0, 1)
		cl.pass.SetScissorRect(0, 0, width, height)
	}
}

func (cl *commandList) EndRenderPass() {
	cl.mustRecord("render pass")
	if cl.pass == nil {
		panic("halrhi: EndRenderPass without BeginRenderPass")
	}
	cl.pass.End()
	cl.pass = nil
}

func (cl *commandList) renderPass(op string) hal.RenderPassEncoder {
	cl.mustRecord(op)
	if cl.pass == nil {
		panic("halrhi: " + op + " outside a render pass")
	}
	return cl.pass
}

func (cl *commandList) SetViewport(x, y, width, height, minDepth, maxDepth float32) {
	cl.renderPass("viewport").SetViewport(x, y, width, height, minDepth, maxDepth)
}

func (cl *commandList) SetScissor(x, y, width, height uint32) {
	cl.renderPass("scissor").SetScissorRect(x, y, width, height)
}

func (cl *commandList) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	pass := cl.renderPass("draw")
	if cl.pipeline == nil || cl.pipeline.render == nil {
		panic("halrhi: draw without a graphics pipeline")
	}
	pass.SetPipeline(cl.pipeline.render)
	cl.bindPush(pass.SetBindGroup)
	pass.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
}

// End finishes encoding. A list whose recording failed is discarded and
// the failure returned.
func (cl *commandList) End() error {
	if cl.ended {
		return rhi.ErrCommandListClosed
	}
	cl.ended = true
	if cl.pass != nil {
		cl.pass.End()
		cl.pass = nil
		if cl.err == nil {
			cl.err = errors.New("halrhi: render pass left open")
		}
	}
	if len(cl.regions) > 0 && cl.err == nil {
		cl.err = errUnbalancedRegion
	}
	if cl.err != nil {
		cl.encoder.DiscardEncoding()
		cl.releaseBlocks()
		return cl.err
	}
	cb, err := cl.encoder.EndEncoding()
	if err != nil {
		cl.releaseBlocks()
		return translate("end encoding", err)
	}
	cl.cmdBuf = cb
	return nil
}

// releaseBlocks hands unsubmitted push constant blocks back to the device.
func (cl *commandList) releaseBlocks() {
	for _, blk := range cl.blocks {
		blk.used = 0
		cl.device.freeBlocks = append(cl.device.freeBlocks, blk)
	}
	cl.blocks = nil
}

var _ rhi.CommandList = (*commandList)(nil)

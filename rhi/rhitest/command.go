// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package rhitest

import (
	"github.com/gogpu/ren/rhi"
)

// Op identifies a recorded command.
type Op uint8

// Recorded operations.
const (
	OpBarrier Op = iota
	OpCopyBuffer
	OpCopyBufferToImage
	OpBeginDebugRegion
	OpEndDebugRegion
	OpSetPipeline
	OpSetPushConstants
	OpDispatch
	OpBeginRenderPass
	OpEndRenderPass
	OpSetViewport
	OpSetScissor
	OpDraw
)

var opNames = [...]string{
	OpBarrier:           "Barrier",
	OpCopyBuffer:        "CopyBuffer",
	OpCopyBufferToImage: "CopyBufferToImage",
	OpBeginDebugRegion:  "BeginDebugRegion",
	OpEndDebugRegion:    "EndDebugRegion",
	OpSetPipeline:       "SetPipeline",
	OpSetPushConstants:  "SetPushConstants",
	OpDispatch:          "Dispatch",
	OpBeginRenderPass:   "BeginRenderPass",
	OpEndRenderPass:     "EndRenderPass",
	OpSetViewport:       "SetViewport",
	OpSetScissor:        "SetScissor",
	OpDraw:              "Draw",
}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return "Unknown"
}

// Command is one recorded command. Only the fields relevant to Op are set.
type Command struct {
	Op Op

	Barrier    rhi.BarrierInfo
	SrcBuffer  *rhi.Buffer
	DstBuffer  *rhi.Buffer
	DstImage   *rhi.Image
	SrcOffset  uint64
	DstOffset  uint64
	Size       uint64
	RowPitch   uint32
	Extent     rhi.Extent3D
	MipLevel   uint32
	ArrayIndex uint32
	Name       string
	Pipeline   *rhi.Pipeline
	Data       []byte
	Groups     [3]uint32
	RenderPass rhi.RenderPassInfo
	Vertices   uint32
	Instances  uint32
}

// CommandList records commands in order. Copies between CPU-visible
// buffers are performed on record so upload paths can be verified.
type CommandList struct {
	Queue     rhi.QueueType
	Submitted bool

	commands []Command
	ended    bool
	depth    int
	inPass   bool
}

func (c *CommandList) record(cmd Command) {
	if c.ended {
		panic("rhitest: " + rhi.ErrCommandListClosed.Error())
	}
	c.commands = append(c.commands, cmd)
}

// Barrier implements rhi.CommandList.
func (c *CommandList) Barrier(info rhi.BarrierInfo) {
	c.record(Command{Op: OpBarrier, Barrier: info})
}

// CopyBuffer implements rhi.CommandList.
func (c *CommandList) CopyBuffer(src *rhi.Buffer, srcOffset uint64, dst *rhi.Buffer, dstOffset, size uint64) {
	if src.Data != nil && dst.Data != nil {
		copy(dst.Data[dstOffset:dstOffset+size], src.Data[srcOffset:srcOffset+size])
	}
	c.record(Command{Op: OpCopyBuffer, SrcBuffer: src, DstBuffer: dst, SrcOffset: srcOffset, DstOffset: dstOffset, Size: size})
}

// CopyBufferToImage implements rhi.CommandList.
func (c *CommandList) CopyBufferToImage(src *rhi.Buffer, srcOffset uint64, rowPitch uint32, dst *rhi.Image, extent rhi.Extent3D, mipLevel, arrayIndex uint32) {
	if rowPitch%rhi.CopyRowPitchAlignment != 0 || srcOffset%rhi.CopyRowPitchAlignment != 0 {
		panic("rhitest: unaligned buffer to image copy")
	}
	c.record(Command{
		Op: OpCopyBufferToImage, SrcBuffer: src, SrcOffset: srcOffset, RowPitch: rowPitch, DstImage: dst,
		Extent: extent, MipLevel: mipLevel, ArrayIndex: arrayIndex,
	})
}

// BeginDebugRegion implements rhi.CommandList.
func (c *CommandList) BeginDebugRegion(name string, _, _, _ float32) {
	c.depth++
	c.record(Command{Op: OpBeginDebugRegion, Name: name})
}

// EndDebugRegion implements rhi.CommandList.
func (c *CommandList) EndDebugRegion() {
	if c.depth == 0 {
		panic("rhitest: EndDebugRegion without BeginDebugRegion")
	}
	c.depth--
	c.record(Command{Op: OpEndDebugRegion})
}

// SetPipeline implements rhi.CommandList.
func (c *CommandList) SetPipeline(p *rhi.Pipeline) {
	c.record(Command{Op: OpSetPipeline, Pipeline: p, Name: p.Name})
}

// SetPushConstants implements rhi.CommandList.
func (c *CommandList) SetPushConstants(data []byte) {
	c.record(Command{Op: OpSetPushConstants, Data: append([]byte(nil), data...)})
}

// Dispatch implements rhi.CommandList.
func (c *CommandList) Dispatch(x, y, z uint32) {
	c.record(Command{Op: OpDispatch, Groups: [3]uint32{x, y, z}})
}

// BeginRenderPass implements rhi.CommandList.
func (c *CommandList) BeginRenderPass(info rhi.RenderPassInfo) {
	if c.inPass {
		panic("rhitest: nested render pass")
	}
	c.inPass = true
	c.record(Command{Op: OpBeginRenderPass, RenderPass: info, Name: info.Name})
}

// EndRenderPass implements rhi.CommandList.
func (c *CommandList) EndRenderPass() {
	if !c.inPass {
		panic("rhitest: EndRenderPass outside a render pass")
	}
	c.inPass = false
	c.record(Command{Op: OpEndRenderPass})
}

// SetViewport implements rhi.CommandList.
func (c *CommandList) SetViewport(_, _, _, _, _, _ float32) {
	c.record(Command{Op: OpSetViewport})
}

// SetScissor implements rhi.CommandList.
func (c *CommandList) SetScissor(_, _, _, _ uint32) {
	c.record(Command{Op: OpSetScissor})
}

// Draw implements rhi.CommandList.
func (c *CommandList) Draw(vertexCount, instanceCount, _, _ uint32) {
	c.record(Command{Op: OpDraw, Vertices: vertexCount, Instances: instanceCount})
}

// End implements rhi.CommandList.
func (c *CommandList) End() error {
	if c.ended {
		return rhi.ErrCommandListClosed
	}
	c.ended = true
	return nil
}

// Commands returns the recorded commands.
func (c *CommandList) Commands() []Command {
	return c.commands
}

// Barriers returns the payload of every recorded Barrier command.
func (c *CommandList) Barriers() []rhi.BarrierInfo {
	var out []rhi.BarrierInfo
	for _, cmd := range c.commands {
		if cmd.Op == OpBarrier {
			out = append(out, cmd.Barrier)
		}
	}
	return out
}

// Count returns how many commands of kind op were recorded.
func (c *CommandList) Count(op Op) int {
	n := 0
	for _, cmd := range c.commands {
		if cmd.Op == op {
			n++
		}
	}
	return n
}

// Ops returns the recorded operation kinds in order.
func (c *CommandList) Ops() []Op {
	out := make([]Op, len(c.commands))
	for i, cmd := range c.commands {
		out[i] = cmd.Op
	}
	return out
}

var _ rhi.CommandList = (*CommandList)(nil)

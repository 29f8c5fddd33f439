// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package rhi

import (
	"context"
	"encoding/binary"
	"errors"

	"github.com/gogpu/gputypes"
)

// Device errors.
var (
	// ErrOutOfMemory is returned when the device cannot back an allocation.
	ErrOutOfMemory = errors.New("rhi: out of device memory")

	// ErrInvalidCreateInfo is returned for descriptions the device rejects.
	ErrInvalidCreateInfo = errors.New("rhi: invalid create info")

	// ErrDeviceLost is returned after the device stopped working.
	ErrDeviceLost = errors.New("rhi: device lost")

	// ErrBindlessExhausted is returned when no descriptor slot is free.
	ErrBindlessExhausted = errors.New("rhi: bindless descriptor slots exhausted")

	// ErrCommandListClosed is returned when recording into an ended list.
	ErrCommandListClosed = errors.New("rhi: command list already ended")
)

// Device creates and destroys native resources and submits command lists.
//
// Implementations are not required to be safe for concurrent use; the ren
// core drives a device from a single recording goroutine.
type Device interface {
	CreateBuffer(info BufferCreateInfo) (*Buffer, error)
	CreateImage(info ImageCreateInfo) (*Image, error)
	CreateSampler(info SamplerCreateInfo) (*Sampler, error)
	DestroyBuffer(b *Buffer)
	DestroyImage(img *Image)
	DestroySampler(s *Sampler)

	// NameResource attaches a debug name shown by graphics debuggers.
	NameResource(r Resource, name string)

	CreateComputePipeline(info ComputePipelineCreateInfo) (*Pipeline, error)
	CreateGraphicsPipeline(info GraphicsPipelineCreateInfo) (*Pipeline, error)
	DestroyPipeline(p *Pipeline)

	// CreateCommandList starts recording a command list for a queue.
	CreateCommandList(queue QueueType) (CommandList, error)

	// Submit ends and submits lists in order, returning the submission
	// index that completes once all of them finished executing.
	Submit(lists ...CommandList) (uint64, error)

	// WaitForSubmission blocks until the submission index completed or ctx
	// is done.
	WaitForSubmission(ctx context.Context, index uint64) error

	// WaitIdle blocks until the device finished all submitted work.
	WaitIdle() error
}

// LoadOp selects what happens to an attachment at the start of a pass.
type LoadOp uint8

// Load operations.
const (
	LoadOpLoad LoadOp = iota
	LoadOpClear
	LoadOpDiscard
)

// StoreOp selects what happens to an attachment at the end of a pass.
type StoreOp uint8

// Store operations.
const (
	StoreOpStore StoreOp = iota
	StoreOpDiscard
)

// ColorAttachment is one color target of a render pass.
type ColorAttachment struct {
	Image      *Image
	Load       LoadOp
	Store      StoreOp
	ClearColor [4]float32
}

// DepthAttachment is the depth target of a render pass.
type DepthAttachment struct {
	Image      *Image
	Load       LoadOp
	Store      StoreOp
	ClearDepth float32
}

// RenderPassInfo describes a render pass. Width and Height set the render
// area; zero uses the extent of the first attachment.
type RenderPassInfo struct {
	Name   string
	Colors []ColorAttachment
	Depth  *DepthAttachment
	Width  uint32
	Height uint32
}

// Extent3D is a copy extent in texels.
type Extent3D struct {
	Width  uint32
	Height uint32
	Depth  uint32
}

// CommandList records GPU commands. A list is ended by Device.Submit or by
// End and must not be reused afterwards.
type CommandList interface {
	// Barrier records a batch of barriers as a single command.
	Barrier(info BarrierInfo)

	CopyBuffer(src *Buffer, srcOffset uint64, dst *Buffer, dstOffset, size uint64)

	// CopyBufferToImage copies texel rows starting at srcOffset, rowPitch
	// bytes apart, into one mip level and array layer of dst. rowPitch must
	// be a multiple of CopyRowPitchAlignment.
	CopyBufferToImage(src *Buffer, srcOffset uint64, rowPitch uint32, dst *Image, extent Extent3D, mipLevel, arrayIndex uint32)

	BeginDebugRegion(name string, r, g, b float32)
	EndDebugRegion()

	SetPipeline(p *Pipeline)
	SetPushConstants(data []byte)
	Dispatch(x, y, z uint32)

	BeginRenderPass(info RenderPassInfo)
	EndRenderPass()
	SetViewport(x, y, width, height, minDepth, maxDepth float32)
	SetScissor(x, y, width, height uint32)
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)

	// End finishes recording.
	End() error
}

// CopyRowPitchAlignment is the required alignment of the row pitch and the
// source offset of buffer to image copies.
const CopyRowPitchAlignment = 256

// AlignedRowPitch returns the row pitch of a copy of width texels of f.
func AlignedRowPitch(f gputypes.TextureFormat, width uint32) uint32 {
	row := FormatInfo(f).Bytes * width
	return (row + CopyRowPitchAlignment - 1) &^ (CopyRowPitchAlignment - 1)
}

// PushConstants encodes v little-endian and records it on cmd. v must be a
// fixed-size value as accepted by encoding/binary.
func PushConstants[T any](cmd CommandList, v T) {
	data, err := binary.Append(nil, binary.LittleEndian, v)
	if err != nil {
		panic("rhi: push constants must be fixed-size: " + err.Error())
	}
	cmd.SetPushConstants(data)
}

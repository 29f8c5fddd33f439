// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package rhi

import "strings"

// BarrierPipelineStage is a set of pipeline stages a barrier waits on or
// blocks.
type BarrierPipelineStage uint32

// Pipeline stages.
const (
	StageNone                       BarrierPipelineStage = 0
	StageDrawIndirect               BarrierPipelineStage = 1 << 0
	StageVertexInput                BarrierPipelineStage = 1 << 1
	StageVertexShader               BarrierPipelineStage = 1 << 2
	StagePixelShader                BarrierPipelineStage = 1 << 3
	StageEarlyFragmentTests         BarrierPipelineStage = 1 << 4
	StageLateFragmentTests          BarrierPipelineStage = 1 << 5
	StageColorAttachmentOutput      BarrierPipelineStage = 1 << 6
	StageComputeShader              BarrierPipelineStage = 1 << 7
	StageCopy                       BarrierPipelineStage = 1 << 8
	StageResolve                    BarrierPipelineStage = 1 << 9
	StageClear                      BarrierPipelineStage = 1 << 10
	StageHost                       BarrierPipelineStage = 1 << 11
	StageAccelerationStructureBuild BarrierPipelineStage = 1 << 12
	StageAllTransfer                BarrierPipelineStage = 1 << 13
	StageAllGraphics                BarrierPipelineStage = 1 << 14
	StageAllCommands                BarrierPipelineStage = 1 << 15
)

var stageNames = []struct {
	bit  BarrierPipelineStage
	name string
}{
	{StageDrawIndirect, "DrawIndirect"},
	{StageVertexInput, "VertexInput"},
	{StageVertexShader, "VertexShader"},
	{StagePixelShader, "PixelShader"},
	{StageEarlyFragmentTests, "EarlyFragmentTests"},
	{StageLateFragmentTests, "LateFragmentTests"},
	{StageColorAttachmentOutput, "ColorAttachmentOutput"},
	{StageComputeShader, "ComputeShader"},
	{StageCopy, "Copy"},
	{StageResolve, "Resolve"},
	{StageClear, "Clear"},
	{StageHost, "Host"},
	{StageAccelerationStructureBuild, "AccelerationStructureBuild"},
	{StageAllTransfer, "AllTransfer"},
	{StageAllGraphics, "AllGraphics"},
	{StageAllCommands, "AllCommands"},
}

// String returns the stage names joined by "|".
func (s BarrierPipelineStage) String() string {
	if s == StageNone {
		return "None"
	}
	var parts []string
	for _, n := range stageNames {
		if s&n.bit != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// BarrierAccess is a set of memory access kinds.
type BarrierAccess uint32

// Memory accesses.
const (
	AccessNone                         BarrierAccess = 0
	AccessIndirectCommandRead          BarrierAccess = 1 << 0
	AccessIndexRead                    BarrierAccess = 1 << 1
	AccessVertexAttributeRead          BarrierAccess = 1 << 2
	AccessConstantBufferRead           BarrierAccess = 1 << 3
	AccessShaderRead                   BarrierAccess = 1 << 4
	AccessShaderSampledRead            BarrierAccess = 1 << 5
	AccessUnorderedAccessRead          BarrierAccess = 1 << 6
	AccessUnorderedAccessWrite         BarrierAccess = 1 << 7
	AccessColorAttachmentRead          BarrierAccess = 1 << 8
	AccessColorAttachmentWrite         BarrierAccess = 1 << 9
	AccessDepthStencilAttachmentRead   BarrierAccess = 1 << 10
	AccessDepthStencilAttachmentWrite  BarrierAccess = 1 << 11
	AccessTransferRead                 BarrierAccess = 1 << 12
	AccessTransferWrite                BarrierAccess = 1 << 13
	AccessHostRead                     BarrierAccess = 1 << 14
	AccessHostWrite                    BarrierAccess = 1 << 15
	AccessAccelerationStructureRead    BarrierAccess = 1 << 16
	AccessAccelerationStructureWrite   BarrierAccess = 1 << 17
	AccessMemoryRead                   BarrierAccess = 1 << 18
	AccessMemoryWrite                  BarrierAccess = 1 << 19
	AccessUnorderedAccessReadWrite                   = AccessUnorderedAccessRead | AccessUnorderedAccessWrite
	accessWriteMask                                  = AccessUnorderedAccessWrite | AccessColorAttachmentWrite | AccessDepthStencilAttachmentWrite | AccessTransferWrite | AccessHostWrite | AccessAccelerationStructureWrite | AccessMemoryWrite
)

var accessNames = []struct {
	bit  BarrierAccess
	name string
}{
	{AccessIndirectCommandRead, "IndirectCommandRead"},
	{AccessIndexRead, "IndexRead"},
	{AccessVertexAttributeRead, "VertexAttributeRead"},
	{AccessConstantBufferRead, "ConstantBufferRead"},
	{AccessShaderRead, "ShaderRead"},
	{AccessShaderSampledRead, "ShaderSampledRead"},
	{AccessUnorderedAccessRead, "UnorderedAccessRead"},
	{AccessUnorderedAccessWrite, "UnorderedAccessWrite"},
	{AccessColorAttachmentRead, "ColorAttachmentRead"},
	{AccessColorAttachmentWrite, "ColorAttachmentWrite"},
	{AccessDepthStencilAttachmentRead, "DepthStencilAttachmentRead"},
	{AccessDepthStencilAttachmentWrite, "DepthStencilAttachmentWrite"},
	{AccessTransferRead, "TransferRead"},
	{AccessTransferWrite, "TransferWrite"},
	{AccessHostRead, "HostRead"},
	{AccessHostWrite, "HostWrite"},
	{AccessAccelerationStructureRead, "AccelerationStructureRead"},
	{AccessAccelerationStructureWrite, "AccelerationStructureWrite"},
	{AccessMemoryRead, "MemoryRead"},
	{AccessMemoryWrite, "MemoryWrite"},
}

// IsWrite reports whether the set contains any write access.
func (a BarrierAccess) IsWrite() bool { return a&accessWriteMask != 0 }

// String returns the access names joined by "|".
func (a BarrierAccess) String() string {
	if a == AccessNone {
		return "None"
	}
	var parts []string
	for _, n := range accessNames {
		if a&n.bit != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// BarrierImageLayout is the memory layout an image is kept in.
type BarrierImageLayout uint8

// Image layouts.
const (
	LayoutUndefined BarrierImageLayout = iota
	LayoutGeneral
	LayoutReadOnly
	LayoutColorAttachment
	LayoutDepthStencilReadOnly
	LayoutDepthStencilWrite
	LayoutShaderReadOnly
	LayoutUnorderedAccess
	LayoutCopySrc
	LayoutCopyDst
	LayoutPresent
)

var layoutNames = [...]string{
	LayoutUndefined:            "Undefined",
	LayoutGeneral:              "General",
	LayoutReadOnly:             "ReadOnly",
	LayoutColorAttachment:      "ColorAttachment",
	LayoutDepthStencilReadOnly: "DepthStencilReadOnly",
	LayoutDepthStencilWrite:    "DepthStencilWrite",
	LayoutShaderReadOnly:       "ShaderReadOnly",
	LayoutUnorderedAccess:      "UnorderedAccess",
	LayoutCopySrc:              "CopySrc",
	LayoutCopyDst:              "CopyDst",
	LayoutPresent:              "Present",
}

func (l BarrierImageLayout) String() string {
	if int(l) < len(layoutNames) {
		return layoutNames[l]
	}
	return "Unknown"
}

// QueueType identifies a device queue family.
type QueueType uint8

// Queue types.
const (
	QueueGraphics QueueType = iota
	QueueCompute
	QueueCopy
)

func (q QueueType) String() string {
	switch q {
	case QueueGraphics:
		return "Graphics"
	case QueueCompute:
		return "Compute"
	case QueueCopy:
		return "Copy"
	default:
		return "Unknown"
	}
}

// OwnershipTransferMode selects the half of a queue ownership transfer a
// barrier performs.
type OwnershipTransferMode uint8

// Ownership transfer modes.
const (
	OwnershipNone OwnershipTransferMode = iota
	OwnershipRelease
	OwnershipAcquire
)

// ImageSubresourceRange selects mips, array layers and planes of an image.
// A zero MipCount, ArraySize or PlaneCount selects everything from the
// first index on.
type ImageSubresourceRange struct {
	FirstMipLevel   uint32
	MipCount        uint32
	FirstArrayIndex uint32
	ArraySize       uint32
	FirstPlane      uint32
	PlaneCount      uint32
}

// IsWhole reports whether the range covers the whole image.
func (r ImageSubresourceRange) IsWhole() bool {
	return r == ImageSubresourceRange{}
}

// BufferBarrierInfo transitions one buffer.
type BufferBarrierInfo struct {
	StageBefore  BarrierPipelineStage
	StageAfter   BarrierPipelineStage
	AccessBefore BarrierAccess
	AccessAfter  BarrierAccess
	Buffer       *Buffer
}

// ImageBarrierInfo transitions one image, optionally changing its layout.
// Discard allows the previous contents to be thrown away.
type ImageBarrierInfo struct {
	StageBefore       BarrierPipelineStage
	StageAfter        BarrierPipelineStage
	AccessBefore      BarrierAccess
	AccessAfter       BarrierAccess
	LayoutBefore      BarrierImageLayout
	LayoutAfter       BarrierImageLayout
	TargetQueue       QueueType
	OwnershipTransfer OwnershipTransferMode
	Image             *Image
	SubresourceRange  ImageSubresourceRange
	Discard           bool
}

// MemoryBarrierInfo orders all memory accesses between two stage sets.
type MemoryBarrierInfo struct {
	StageBefore  BarrierPipelineStage
	StageAfter   BarrierPipelineStage
	AccessBefore BarrierAccess
	AccessAfter  BarrierAccess
}

// BarrierInfo is a batch of barriers recorded with a single call.
type BarrierInfo struct {
	Buffers []BufferBarrierInfo
	Images  []ImageBarrierInfo
	Memory  []MemoryBarrierInfo
}

// Len returns the total number of barriers in the batch.
func (b BarrierInfo) Len() int {
	return len(b.Buffers) + len(b.Images) + len(b.Memory)
}

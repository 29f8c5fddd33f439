// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package rhi

import "github.com/gogpu/gputypes"

// InvalidBindlessIndex marks a resource without a descriptor slot.
const InvalidBindlessIndex = ^uint32(0)

// MemoryHeapType selects where a buffer lives.
type MemoryHeapType uint8

// Memory heaps.
const (
	// HeapGPU is device-local memory, not CPU visible.
	HeapGPU MemoryHeapType = iota
	// HeapCPUUpload is CPU-writable memory used as a copy source.
	HeapCPUUpload
	// HeapCPUReadback is CPU-readable memory used as a copy destination.
	HeapCPUReadback
)

func (h MemoryHeapType) String() string {
	switch h {
	case HeapGPU:
		return "GPU"
	case HeapCPUUpload:
		return "CPUUpload"
	case HeapCPUReadback:
		return "CPUReadback"
	default:
		return "Unknown"
	}
}

// IsCPUVisible reports whether buffers in the heap are mapped for the CPU.
func (h MemoryHeapType) IsCPUVisible() bool {
	return h == HeapCPUUpload || h == HeapCPUReadback
}

// BufferCreateInfo describes a buffer.
type BufferCreateInfo struct {
	Size uint64
	Heap MemoryHeapType
}

// ImageUsage is a set of ways an image may be used.
type ImageUsage uint32

// Image usages. Every image may also be a copy source and destination.
const (
	ImageUsageSampled                ImageUsage = 1 << 0
	ImageUsageUnorderedAccess        ImageUsage = 1 << 1
	ImageUsageColorAttachment        ImageUsage = 1 << 2
	ImageUsageDepthStencilAttachment ImageUsage = 1 << 3
)

// ImageViewType is the dimensionality of an image's primary view.
type ImageViewType uint8

// View types.
const (
	ViewTexture2D ImageViewType = iota
	ViewTexture1D
	ViewTexture2DArray
	ViewTextureCube
	ViewTextureCubeArray
	ViewTexture3D
)

// ImageCreateInfo describes an image. Zero Depth, ArraySize and MipLevels
// are treated as 1.
type ImageCreateInfo struct {
	Format          gputypes.TextureFormat
	Width           uint32
	Height          uint32
	Depth           uint32
	ArraySize       uint32
	MipLevels       uint32
	Usage           ImageUsage
	PrimaryViewType ImageViewType
}

// Normalized returns a copy with zero counts replaced by 1.
func (info ImageCreateInfo) Normalized() ImageCreateInfo {
	if info.Depth == 0 {
		info.Depth = 1
	}
	if info.ArraySize == 0 {
		info.ArraySize = 1
	}
	if info.MipLevels == 0 {
		info.MipLevels = 1
	}
	return info
}

// MipExtent returns the width and height of a mip level, clamped to 1.
func (info ImageCreateInfo) MipExtent(level uint32) (uint32, uint32) {
	return max(1, info.Width>>level), max(1, info.Height>>level)
}

// MipSize returns the byte size of one mip level across all array layers.
func (info ImageCreateInfo) MipSize(level uint32) uint64 {
	n := info.Normalized()
	w, h := n.MipExtent(level)
	return uint64(FormatInfo(n.Format).Bytes) * uint64(w) * uint64(h) * uint64(n.Depth) * uint64(n.ArraySize)
}

// SamplerFilter selects texel filtering.
type SamplerFilter uint8

// Filters.
const (
	FilterNearest SamplerFilter = iota
	FilterLinear
)

// AddressMode selects how coordinates outside [0, 1] are resolved.
type AddressMode uint8

// Address modes.
const (
	AddressWrap AddressMode = iota
	AddressMirror
	AddressClamp
	AddressBorder
	AddressMirrorOnce
)

// ComparisonFunc selects a depth comparison for comparison samplers.
type ComparisonFunc uint8

// Comparison functions. ComparisonNone disables comparison.
const (
	ComparisonNone ComparisonFunc = iota
	ComparisonNever
	ComparisonLess
	ComparisonEqual
	ComparisonLessEqual
	ComparisonGreater
	ComparisonNotEqual
	ComparisonGreaterEqual
	ComparisonAlways
)

// SamplerReduction selects how filtered texels are combined.
type SamplerReduction uint8

// Reductions.
const (
	ReductionStandard SamplerReduction = iota
	ReductionComparison
	ReductionMinimum
	ReductionMaximum
)

// BorderColor is the color returned for AddressBorder lookups.
type BorderColor uint8

// Border colors.
const (
	BorderTransparentBlack BorderColor = iota
	BorderOpaqueBlack
	BorderOpaqueWhite
)

// SamplerCreateInfo fully describes an immutable sampler. It is comparable
// and used directly as a deduplication key.
type SamplerCreateInfo struct {
	FilterMin        SamplerFilter
	FilterMag        SamplerFilter
	FilterMip        SamplerFilter
	AddressU         AddressMode
	AddressV         AddressMode
	AddressW         AddressMode
	MipLODBias       float32
	MaxAnisotropy    uint32
	Comparison       ComparisonFunc
	Reduction        SamplerReduction
	BorderColor      BorderColor
	MinLOD           float32
	MaxLOD           float32
	AnisotropyEnable bool
}

// Resource is implemented by every native device object.
type Resource interface {
	resource()
}

// Buffer is a native device buffer.
type Buffer struct {
	BufferCreateInfo

	// BindlessIndex is the descriptor slot of the buffer.
	BindlessIndex uint32

	// Data is the persistent CPU mapping for CPU-visible heaps, nil
	// otherwise.
	Data []byte

	// Name is the last debug name applied with Device.NameResource.
	Name string

	// Backend is private to the Device implementation.
	Backend any
}

func (*Buffer) resource() {}

// Image is a native device image.
type Image struct {
	ImageCreateInfo

	BindlessIndex uint32
	Name          string
	Backend       any
}

func (*Image) resource() {}

// Sampler is a native immutable sampler.
type Sampler struct {
	SamplerCreateInfo

	BindlessIndex uint32
	Name          string
	Backend       any
}

func (*Sampler) resource() {}

// PipelineBindPoint selects the pipeline kind.
type PipelineBindPoint uint8

// Bind points.
const (
	BindPointCompute PipelineBindPoint = iota
	BindPointGraphics
)

// Pipeline is a compiled compute or graphics pipeline.
type Pipeline struct {
	Name      string
	BindPoint PipelineBindPoint

	// GroupSize is the compute workgroup size; zero for graphics pipelines.
	GroupSize [3]uint32

	PushConstantSize uint32
	Backend          any
}

func (*Pipeline) resource() {}

// GroupCount returns how many workgroups cover n invocations along axis.
func (p *Pipeline) GroupCount(axis int, n uint32) uint32 {
	g := p.GroupSize[axis]
	if g == 0 {
		return n
	}
	return (n + g - 1) / g
}

// ComputePipelineCreateInfo describes a compute pipeline built from WGSL.
type ComputePipelineCreateInfo struct {
	Name             string
	Source           string
	EntryPoint       string
	GroupSize        [3]uint32
	PushConstantSize uint32
}

// GraphicsPipelineCreateInfo describes a graphics pipeline built from WGSL.
// Vertex data is generated in the shader; no vertex buffers are bound.
type GraphicsPipelineCreateInfo struct {
	Name             string
	Source           string
	VertexEntry      string
	FragmentEntry    string
	ColorFormats     []gputypes.TextureFormat
	DepthFormat      gputypes.TextureFormat
	DepthTest        bool
	DepthWrite       bool
	PushConstantSize uint32
}

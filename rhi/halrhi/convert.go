// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package halrhi

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/ren/rhi"
)

// gpuBufferUsage is every usage a device-local buffer may take.
const gpuBufferUsage = gputypes.BufferUsageStorage | gputypes.BufferUsageUniform |
	gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst |
	gputypes.BufferUsageIndirect | gputypes.BufferUsageVertex | gputypes.BufferUsageIndex

// bufferUsage returns the creation usage of a buffer in heap h.
func bufferUsage(h rhi.MemoryHeapType) gputypes.BufferUsage {
	switch h {
	case rhi.HeapCPUUpload:
		return gputypes.BufferUsageMapWrite | gputypes.BufferUsageCopySrc
	case rhi.HeapCPUReadback:
		return gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst
	default:
		return gpuBufferUsage
	}
}

// textureUsage returns the creation usage of an image. Every image is a
// copy source and destination.
func textureUsage(u rhi.ImageUsage) gputypes.TextureUsage {
	usage := gputypes.TextureUsageCopySrc | gputypes.TextureUsageCopyDst
	if u&rhi.ImageUsageSampled != 0 {
		usage |= gputypes.TextureUsageTextureBinding
	}
	if u&rhi.ImageUsageUnorderedAccess != 0 {
		usage |= gputypes.TextureUsageStorageBinding
	}
	if u&(rhi.ImageUsageColorAttachment|rhi.ImageUsageDepthStencilAttachment) != 0 {
		usage |= gputypes.TextureUsageRenderAttachment
	}
	return usage
}

// textureDimensions returns the texture and primary view dimensions of a
// view type.
func textureDimensions(v rhi.ImageViewType) (gputypes.TextureDimension, gputypes.TextureViewDimension) {
	switch v {
	case rhi.ViewTexture1D:
		return gputypes.TextureDimension1D, gputypes.TextureViewDimension1D
	case rhi.ViewTexture2DArray:
		return gputypes.TextureDimension2D, gputypes.TextureViewDimension2DArray
	case rhi.ViewTextureCube:
		return gputypes.TextureDimension2D, gputypes.TextureViewDimensionCube
	case rhi.ViewTextureCubeArray:
		return gputypes.TextureDimension2D, gputypes.TextureViewDimensionCubeArray
	case rhi.ViewTexture3D:
		return gputypes.TextureDimension3D, gputypes.TextureViewDimension3D
	default:
		return gputypes.TextureDimension2D, gputypes.TextureViewDimension2D
	}
}

// textureAspect returns the aspect covering every plane of f.
func textureAspect(f gputypes.TextureFormat) gputypes.TextureAspect {
	info := rhi.FormatInfo(f)
	if info.Depth && !info.Stencil {
		return gputypes.TextureAspectDepthOnly
	}
	return gputypes.TextureAspectAll
}

func filterMode(f rhi.SamplerFilter) gputypes.FilterMode {
	if f == rhi.FilterLinear {
		return gputypes.FilterModeLinear
	}
	return gputypes.FilterModeNearest
}

// addressMode maps address modes. Border and mirror-once have no WebGPU
// equivalent and clamp to the edge.
func addressMode(m rhi.AddressMode) gputypes.AddressMode {
	switch m {
	case rhi.AddressWrap:
		return gputypes.AddressModeRepeat
	case rhi.AddressMirror:
		return gputypes.AddressModeMirrorRepeat
	default:
		return gputypes.AddressModeClampToEdge
	}
}

func compareFunction(c rhi.ComparisonFunc) gputypes.CompareFunction {
	switch c {
	case rhi.ComparisonNever:
		return gputypes.CompareFunctionNever
	case rhi.ComparisonLess:
		return gputypes.CompareFunctionLess
	case rhi.ComparisonEqual:
		return gputypes.CompareFunctionEqual
	case rhi.ComparisonLessEqual:
		return gputypes.CompareFunctionLessEqual
	case rhi.ComparisonGreater:
		return gputypes.CompareFunctionGreater
	case rhi.ComparisonNotEqual:
		return gputypes.CompareFunctionNotEqual
	case rhi.ComparisonGreaterEqual:
		return gputypes.CompareFunctionGreaterEqual
	case rhi.ComparisonAlways:
		return gputypes.CompareFunctionAlways
	default:
		return gputypes.CompareFunctionUndefined
	}
}

// anisotropy returns the hal anisotropy level, 1 when disabled.
func anisotropy(info rhi.SamplerCreateInfo) uint16 {
	if !info.AnisotropyEnable {
		return 1
	}
	return uint16(min(max(info.MaxAnisotropy, 1), 16)) //nolint:gosec // G115: clamped to 16
}

// accessBufferUsage maps an access set to the buffer usages it touches.
func accessBufferUsage(a rhi.BarrierAccess) gputypes.BufferUsage {
	var u gputypes.BufferUsage
	if a&rhi.AccessIndirectCommandRead != 0 {
		u |= gputypes.BufferUsageIndirect
	}
	if a&rhi.AccessIndexRead != 0 {
		u |= gputypes.BufferUsageIndex
	}
	if a&rhi.AccessVertexAttributeRead != 0 {
		u |= gputypes.BufferUsageVertex
	}
	if a&rhi.AccessConstantBufferRead != 0 {
		u |= gputypes.BufferUsageUniform
	}
	if a&(rhi.AccessShaderRead|rhi.AccessShaderSampledRead|rhi.AccessUnorderedAccessReadWrite|
		rhi.AccessMemoryRead|rhi.AccessMemoryWrite) != 0 {
		u |= gputypes.BufferUsageStorage
	}
	if a&rhi.AccessTransferRead != 0 {
		u |= gputypes.BufferUsageCopySrc
	}
	if a&rhi.AccessTransferWrite != 0 {
		u |= gputypes.BufferUsageCopyDst
	}
	if a&rhi.AccessHostRead != 0 {
		u |= gputypes.BufferUsageMapRead
	}
	if a&rhi.AccessHostWrite != 0 {
		u |= gputypes.BufferUsageMapWrite
	}
	return u
}

// layoutTextureUsage maps an image layout to the texture usage that keeps
// the image in it.
func layoutTextureUsage(l rhi.BarrierImageLayout) gputypes.TextureUsage {
	switch l {
	case rhi.LayoutGeneral:
		return gputypes.TextureUsageStorageBinding | gputypes.TextureUsageTextureBinding
	case rhi.LayoutReadOnly, rhi.LayoutShaderReadOnly:
		return gputypes.TextureUsageTextureBinding
	case rhi.LayoutDepthStencilReadOnly:
		return gputypes.TextureUsageTextureBinding | gputypes.TextureUsageRenderAttachment
	case rhi.LayoutColorAttachment, rhi.LayoutDepthStencilWrite, rhi.LayoutPresent:
		return gputypes.TextureUsageRenderAttachment
	case rhi.LayoutUnorderedAccess:
		return gputypes.TextureUsageStorageBinding
	case rhi.LayoutCopySrc:
		return gputypes.TextureUsageCopySrc
	case rhi.LayoutCopyDst:
		return gputypes.TextureUsageCopyDst
	default:
		return gputypes.TextureUsageNone
	}
}

func loadOp(op rhi.LoadOp) gputypes.LoadOp {
	if op == rhi.LoadOpLoad {
		return gputypes.LoadOpLoad
	}
	// WebGPU has no discard load; clearing is the cheapest defined content.
	return gputypes.LoadOpClear
}

func storeOp(op rhi.StoreOp) gputypes.StoreOp {
	if op == rhi.StoreOpDiscard {
		return gputypes.StoreOpDiscard
	}
	return gputypes.StoreOpStore
}

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package rhi

import "github.com/gogpu/gputypes"

// ImageFormatInfo describes the texel layout of an uncompressed format.
type ImageFormatInfo struct {
	// Bytes is the size of one texel.
	Bytes      uint32
	Components uint32
	Depth      bool
	Stencil    bool
	Float      bool
}

var formatInfos = map[gputypes.TextureFormat]ImageFormatInfo{
	gputypes.TextureFormatR8Unorm:              {Bytes: 1, Components: 1},
	gputypes.TextureFormatR8Snorm:              {Bytes: 1, Components: 1},
	gputypes.TextureFormatR8Uint:               {Bytes: 1, Components: 1},
	gputypes.TextureFormatR8Sint:               {Bytes: 1, Components: 1},
	gputypes.TextureFormatR16Unorm:             {Bytes: 2, Components: 1},
	gputypes.TextureFormatR16Snorm:             {Bytes: 2, Components: 1},
	gputypes.TextureFormatR16Uint:              {Bytes: 2, Components: 1},
	gputypes.TextureFormatR16Sint:              {Bytes: 2, Components: 1},
	gputypes.TextureFormatR16Float:             {Bytes: 2, Components: 1, Float: true},
	gputypes.TextureFormatRG8Unorm:             {Bytes: 2, Components: 2},
	gputypes.TextureFormatRG8Snorm:             {Bytes: 2, Components: 2},
	gputypes.TextureFormatRG8Uint:              {Bytes: 2, Components: 2},
	gputypes.TextureFormatRG8Sint:              {Bytes: 2, Components: 2},
	gputypes.TextureFormatR32Float:             {Bytes: 4, Components: 1, Float: true},
	gputypes.TextureFormatR32Uint:              {Bytes: 4, Components: 1},
	gputypes.TextureFormatR32Sint:              {Bytes: 4, Components: 1},
	gputypes.TextureFormatRG16Unorm:            {Bytes: 4, Components: 2},
	gputypes.TextureFormatRG16Snorm:            {Bytes: 4, Components: 2},
	gputypes.TextureFormatRG16Uint:             {Bytes: 4, Components: 2},
	gputypes.TextureFormatRG16Sint:             {Bytes: 4, Components: 2},
	gputypes.TextureFormatRG16Float:            {Bytes: 4, Components: 2, Float: true},
	gputypes.TextureFormatRGBA8Unorm:           {Bytes: 4, Components: 4},
	gputypes.TextureFormatRGBA8UnormSrgb:       {Bytes: 4, Components: 4},
	gputypes.TextureFormatRGBA8Snorm:           {Bytes: 4, Components: 4},
	gputypes.TextureFormatRGBA8Uint:            {Bytes: 4, Components: 4},
	gputypes.TextureFormatRGBA8Sint:            {Bytes: 4, Components: 4},
	gputypes.TextureFormatBGRA8Unorm:           {Bytes: 4, Components: 4},
	gputypes.TextureFormatBGRA8UnormSrgb:       {Bytes: 4, Components: 4},
	gputypes.TextureFormatRGB10A2Uint:          {Bytes: 4, Components: 4},
	gputypes.TextureFormatRGB10A2Unorm:         {Bytes: 4, Components: 4},
	gputypes.TextureFormatRG11B10Ufloat:        {Bytes: 4, Components: 3, Float: true},
	gputypes.TextureFormatRGB9E5Ufloat:         {Bytes: 4, Components: 3, Float: true},
	gputypes.TextureFormatRG32Float:            {Bytes: 8, Components: 2, Float: true},
	gputypes.TextureFormatRG32Uint:             {Bytes: 8, Components: 2},
	gputypes.TextureFormatRG32Sint:             {Bytes: 8, Components: 2},
	gputypes.TextureFormatRGBA16Unorm:          {Bytes: 8, Components: 4},
	gputypes.TextureFormatRGBA16Snorm:          {Bytes: 8, Components: 4},
	gputypes.TextureFormatRGBA16Uint:           {Bytes: 8, Components: 4},
	gputypes.TextureFormatRGBA16Sint:           {Bytes: 8, Components: 4},
	gputypes.TextureFormatRGBA16Float:          {Bytes: 8, Components: 4, Float: true},
	gputypes.TextureFormatRGBA32Float:          {Bytes: 16, Components: 4, Float: true},
	gputypes.TextureFormatRGBA32Uint:           {Bytes: 16, Components: 4},
	gputypes.TextureFormatRGBA32Sint:           {Bytes: 16, Components: 4},
	gputypes.TextureFormatStencil8:             {Bytes: 1, Components: 1, Stencil: true},
	gputypes.TextureFormatDepth16Unorm:         {Bytes: 2, Components: 1, Depth: true},
	gputypes.TextureFormatDepth24Plus:          {Bytes: 4, Components: 1, Depth: true},
	gputypes.TextureFormatDepth24PlusStencil8:  {Bytes: 4, Components: 2, Depth: true, Stencil: true},
	gputypes.TextureFormatDepth32Float:         {Bytes: 4, Components: 1, Depth: true, Float: true},
	gputypes.TextureFormatDepth32FloatStencil8: {Bytes: 8, Components: 2, Depth: true, Stencil: true, Float: true},
}

// FormatInfo returns the texel layout of f. Unknown and block-compressed
// formats return the zero value.
func FormatInfo(f gputypes.TextureFormat) ImageFormatInfo {
	return formatInfos[f]
}

// IsDepthFormat reports whether f has a depth or stencil aspect.
func IsDepthFormat(f gputypes.TextureFormat) bool {
	info := formatInfos[f]
	return info.Depth || info.Stencil
}

// formatNames uses the WebGPU spelling of format names.
var formatNames = map[string]gputypes.TextureFormat{
	"r8unorm":               gputypes.TextureFormatR8Unorm,
	"r16float":              gputypes.TextureFormatR16Float,
	"r32float":              gputypes.TextureFormatR32Float,
	"r32uint":               gputypes.TextureFormatR32Uint,
	"rg8unorm":              gputypes.TextureFormatRG8Unorm,
	"rg16float":             gputypes.TextureFormatRG16Float,
	"rg32float":             gputypes.TextureFormatRG32Float,
	"rgba8unorm":            gputypes.TextureFormatRGBA8Unorm,
	"rgba8unorm-srgb":       gputypes.TextureFormatRGBA8UnormSrgb,
	"bgra8unorm":            gputypes.TextureFormatBGRA8Unorm,
	"bgra8unorm-srgb":       gputypes.TextureFormatBGRA8UnormSrgb,
	"rg11b10ufloat":         gputypes.TextureFormatRG11B10Ufloat,
	"rgba16float":           gputypes.TextureFormatRGBA16Float,
	"rgba32float":           gputypes.TextureFormatRGBA32Float,
	"depth16unorm":          gputypes.TextureFormatDepth16Unorm,
	"depth24plus":           gputypes.TextureFormatDepth24Plus,
	"depth24plus-stencil8":  gputypes.TextureFormatDepth24PlusStencil8,
	"depth32float":          gputypes.TextureFormatDepth32Float,
	"depth32float-stencil8": gputypes.TextureFormatDepth32FloatStencil8,
}

// ParseFormat returns the format with the given WebGPU name, such as
// "rgba16float" or "depth32float".
func ParseFormat(name string) (gputypes.TextureFormat, bool) {
	f, ok := formatNames[name]
	return f, ok
}

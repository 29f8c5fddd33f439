// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package technique

import (
	"encoding/binary"
	"fmt"
	"math/bits"

	"github.com/chewxy/math32"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/ren"
	"github.com/gogpu/ren/config"
	"github.com/gogpu/ren/rhi"
	"github.com/gogpu/ren/shader"
)

// Ocean resource names.
const (
	OceanSpectrumParametersName = "ocean:spectrum_parameters_buffer"
	OceanInitialStateName       = "ocean:spectrum_initial_state_texture"
	OceanAngularFrequencyName   = "ocean:spectrum_angular_frequency_texture"
	OceanDisplacementXYZName    = "ocean:displacement_x_y_z_xdx"
	OceanDisplacementSlopeName  = "ocean:displacement_ydx_zdx_ydy_zdy_texture"
	OceanMinMaxTextureName      = "ocean:fft_min_max_texture"
	OceanMinMaxBufferName       = "ocean:fft_min_max_buffer"
	OceanPackedDisplacementName = "ocean:packed_displacement_texture"
	OceanPackedDerivativesName  = "ocean:packed_derivatives_texture"
	OceanFoamWeightName         = "ocean:foam_weight_texture"
)

// Surface grid. The field is drawn as TilesPerAxis² instances of one tile
// of oceanTileVertices² vertices.
const (
	oceanFieldSize      = 2048
	OceanTilesPerAxis   = 16
	oceanTileVertices   = oceanFieldSize/OceanTilesPerAxis + 1
	oceanVertexDistance = 0.25
	oceanTileSize       = (oceanTileVertices - 1) * oceanVertexDistance

	// OceanTileIndices is the vertex count of one tile draw.
	OceanTileIndices = 6 * (oceanTileVertices - 1) * (oceanTileVertices - 1)
)

// oceanTileOrigin is the offset of the first tile, centering the field
// with finer spacing towards the middle.
func oceanTileOrigin() float32 {
	var o float32
	for i := range OceanTilesPerAxis / 2 {
		o -= math32.Pow(0.5, float32(i+1))
	}
	return o * oceanFieldSize * oceanVertexDistance / 2
}

// MaxOceanCascades is the number of length scales in SpectrumParameters.
const MaxOceanCascades = 4

// Spectrum and directional spreading models understood by the shaders.
const (
	SpectrumPhillips uint32 = iota
	SpectrumPiersonMoskowitz
	SpectrumJONSWAP
	SpectrumPiersonMoskowitzJONSWAP
	SpectrumTMA
)

const (
	SpreadingPositiveCosineSquared uint32 = iota
	SpreadingMitsuyasu
	SpreadingHasselmann
	SpreadingDonelanBanner
)

// OceanSpectrum is one wave spectrum of the two that are summed.
type OceanSpectrum struct {
	WindSpeed float32
	// Fetch is in km, WindDirection in degrees.
	Fetch         float32
	Alpha         float32
	WindDirection float32
}

// SpectrumParameters is the GPU layout of the ocean spectrum buffer.
type SpectrumParameters struct {
	Spectra        [2]OceanSpectrum
	LengthScales   [MaxOceanCascades]float32
	ActiveCascades uint32
	Spectrum       uint32
	Spreading      uint32
	TextureSize    uint32
	Gravity        float32
	Depth          float32
	_              [2]uint32
}

// swellSpectrum is the long-period spectrum under the wind sea.
var swellSpectrum = OceanSpectrum{WindSpeed: 2.5, Fetch: 3.5, Alpha: 0.000125, WindDirection: 110}

var defaultLengthScales = [MaxOceanCascades]float32{753.53, 237.43, 79.12, 14.33}

// ComputeSpectrum derives the spectrum buffer contents of cfg.
func ComputeSpectrum(cfg config.Ocean) SpectrumParameters {
	return SpectrumParameters{
		Spectra: [2]OceanSpectrum{
			swellSpectrum,
			{WindSpeed: cfg.WindSpeed, Fetch: cfg.Fetch, Alpha: 0.00025, WindDirection: cfg.WindDirection},
		},
		LengthScales:   defaultLengthScales,
		ActiveCascades: cfg.CascadeCount,
		Spectrum:       SpectrumTMA,
		Spreading:      SpreadingDonelanBanner,
		TextureSize:    cfg.TextureSize,
		Gravity:        cfg.Gravity,
		Depth:          cfg.Depth,
	}
}

// oceanPush mirrors the push block of ocean_spectrum.wgsl.
type oceanPush struct {
	First  uint32
	Second uint32
	Third  uint32
	Size   uint32
	Fourth uint32
	Time   float32
	_      [2]uint32
}

// fftPush mirrors the push block of fft.wgsl. MinMax is only read by the
// horizontal pass.
type fftPush struct {
	Input       uint32
	Output      uint32
	Size        uint32
	MinMax      uint32
	MinMaxLayer uint32
	_           [3]uint32
}

// minMaxResolvePush mirrors the push block of fft_min_max.wgsl.
type minMaxResolvePush struct {
	Texture   uint32
	Buffer    uint32
	LoadLayer uint32
	Store     uint32
}

// reorderPush mirrors the push block of ocean_reorder.wgsl.
type reorderPush struct {
	DisplacementXYZ    uint32
	DisplacementSlopes uint32
	MinMax             uint32
	PackedDisplacement uint32
	PackedDerivatives  uint32
	FoamWeight         uint32
	Size               uint32
	_                  uint32
}

// oceanRenderPush mirrors the push block of ocean_render.wgsl.
type oceanRenderPush struct {
	LengthScales       [MaxOceanCascades]float32
	Camera             uint32
	MinMax             uint32
	PackedDisplacement uint32
	PackedDerivatives  uint32
	FoamWeight         uint32
	VertexDistance     float32
	TileVertices       uint32
	TilesPerAxis       uint32
	Origin             float32
	TileSize           float32
	_                  [2]uint32
}

// minMaxBufferSize holds a minimum and a maximum per cascade of both
// displacement textures.
const minMaxBufferSize = 16 * 2 * 2 * MaxOceanCascades

// Ocean simulates cascaded FFT ocean displacement maps.
type Ocean struct {
	bb  *ren.Blackboard
	tc  *ren.TransferContext
	lib *shader.Library

	options config.Ocean
	time    float32

	parameters       ren.Buffer
	initialState     ren.Image
	angularFrequency ren.Image
	displacementXYZ  ren.Image
	displacementDX   ren.Image

	minMaxTexture      ren.Image
	minMaxBuffer       ren.Buffer
	packedDisplacement ren.Image
	packedDerivatives  ren.Image
	foamWeight         ren.Image
}

func checkOceanOptions(cfg config.Ocean) error {
	if cfg.TextureSize == 0 || bits.OnesCount32(cfg.TextureSize) != 1 {
		return fmt.Errorf("%w: ocean texture size %d is not a power of two", ErrInvalidSize, cfg.TextureSize)
	}
	if cfg.CascadeCount == 0 || cfg.CascadeCount > MaxOceanCascades {
		return fmt.Errorf("%w: ocean cascade count %d", ErrInvalidSize, cfg.CascadeCount)
	}
	return nil
}

// oceanTexture describes one cascaded simulation texture.
func oceanTexture(cfg config.Ocean, half, full gputypes.TextureFormat) rhi.ImageCreateInfo {
	format := full
	if cfg.FP16Textures {
		format = half
	}
	return rhi.ImageCreateInfo{
		Format:          format,
		Width:           cfg.TextureSize,
		Height:          cfg.TextureSize,
		ArraySize:       cfg.CascadeCount,
		Usage:           rhi.ImageUsageUnorderedAccess | rhi.ImageUsageSampled,
		PrimaryViewType: rhi.ViewTexture2DArray,
	}
}

func (o *Ocean) textures(cfg config.Ocean) []imageSpec {
	rgba := func() rhi.ImageCreateInfo {
		return oceanTexture(cfg, gputypes.TextureFormatRGBA16Float, gputypes.TextureFormatRGBA32Float)
	}
	fixed := func(f gputypes.TextureFormat) rhi.ImageCreateInfo {
		return oceanTexture(cfg, f, f)
	}
	// One row of partial minima and one of maxima per cascade of each
	// displacement texture.
	minMax := fixed(gputypes.TextureFormatRGBA32Float)
	minMax.Height = 2
	minMax.ArraySize = 2 * cfg.CascadeCount
	return []imageSpec{
		{OceanInitialStateName, rgba(), &o.initialState},
		{OceanAngularFrequencyName, oceanTexture(cfg, gputypes.TextureFormatR16Float, gputypes.TextureFormatR32Float), &o.angularFrequency},
		{OceanDisplacementXYZName, rgba(), &o.displacementXYZ},
		{OceanDisplacementSlopeName, rgba(), &o.displacementDX},
		{OceanMinMaxTextureName, minMax, &o.minMaxTexture},
		{OceanPackedDisplacementName, fixed(gputypes.TextureFormatRGB10A2Unorm), &o.packedDisplacement},
		{OceanPackedDerivativesName, fixed(gputypes.TextureFormatRGBA8Unorm), &o.packedDerivatives},
		{OceanFoamWeightName, fixed(gputypes.TextureFormatR8Unorm), &o.foamWeight},
	}
}

// NewOcean creates the spectrum and min/max buffers and the simulation
// textures.
func NewOcean(bb *ren.Blackboard, tc *ren.TransferContext, lib *shader.Library, cfg config.Ocean) (*Ocean, error) {
	if err := checkOceanOptions(cfg); err != nil {
		return nil, err
	}
	params, err := bb.CreateBuffer(OceanSpectrumParametersName, rhi.BufferCreateInfo{
		Size: uint64(binary.Size(SpectrumParameters{})),
		Heap: rhi.HeapGPU,
	})
	if err != nil {
		return nil, err
	}
	minMax, err := bb.CreateBuffer(OceanMinMaxBufferName, rhi.BufferCreateInfo{
		Size: minMaxBufferSize,
		Heap: rhi.HeapGPU,
	})
	if err != nil {
		bb.DestroyBuffer(OceanSpectrumParametersName)
		return nil, err
	}
	o := &Ocean{bb: bb, tc: tc, lib: lib, options: cfg, parameters: params, minMaxBuffer: minMax}
	if err := createImages(bb, o.textures(cfg)...); err != nil {
		bb.DestroyBuffer(OceanSpectrumParametersName)
		bb.DestroyBuffer(OceanMinMaxBufferName)
		return nil, err
	}
	return o, nil
}

// Options returns the simulation options.
func (o *Ocean) Options() config.Ocean { return o.options }

// Time returns the simulated time in seconds.
func (o *Ocean) Time() float32 { return o.time }

// DisplacementXYZ returns the displacement and x slope texture.
func (o *Ocean) DisplacementXYZ() ren.Image { return o.displacementXYZ }

// DisplacementSlopes returns the remaining slope texture.
func (o *Ocean) DisplacementSlopes() ren.Image { return o.displacementDX }

// MinMax returns the buffer of per-cascade displacement bounds.
func (o *Ocean) MinMax() ren.Buffer { return o.minMaxBuffer }

// PackedDisplacement returns the normalized displacement texture the
// surface is drawn from.
func (o *Ocean) PackedDisplacement() ren.Image { return o.packedDisplacement }

// PackedDerivatives returns the normalized slope texture.
func (o *Ocean) PackedDerivatives() ren.Image { return o.packedDerivatives }

// FoamWeight returns the foam texture.
func (o *Ocean) FoamWeight() ren.Image { return o.foamWeight }

// SetOptions replaces the simulation options. The textures are recreated
// when their size, cascade count or precision changes.
func (o *Ocean) SetOptions(cfg config.Ocean) error {
	if err := checkOceanOptions(cfg); err != nil {
		return err
	}
	old := o.options
	if cfg.TextureSize != old.TextureSize || cfg.CascadeCount != old.CascadeCount || cfg.FP16Textures != old.FP16Textures {
		for _, s := range o.textures(cfg) {
			if err := s.dst.Recreate(s.info); err != nil {
				return fmt.Errorf("technique: recreate %s: %w", s.name, err)
			}
		}
		slogger().Debug("technique: ocean textures recreated",
			"size", cfg.TextureSize, "cascades", cfg.CascadeCount, "fp16", cfg.FP16Textures)
	}
	o.options = cfg
	return nil
}

// Update advances the simulation clock by dt seconds and stages the
// spectrum parameters.
func (o *Ocean) Update(dt float32) error {
	o.time += dt
	data, err := binary.Append(nil, binary.LittleEndian, ComputeSpectrum(o.options))
	if err != nil {
		return err
	}
	return o.tc.UploadBuffer(o.parameters, data, 0)
}

// Simulate records the spectrum evaluation, the inverse FFT of both
// displacement textures and their packing into the textures Render draws
// from. The displacement textures are left readable by compute shaders.
func (o *Ocean) Simulate(cmd rhi.CommandList, tracker *ren.Tracker) {
	cmd.BeginDebugRegion("ocean:simulate", 0, 0.25, 0.75)
	defer cmd.EndDebugRegion()

	size, cascades := o.options.TextureSize, o.options.CascadeCount

	tracker.UseBuffer(o.parameters, rhi.StageComputeShader, rhi.AccessShaderRead)
	tracker.UseImage(o.initialState, rhi.StageComputeShader, rhi.AccessUnorderedAccessWrite, rhi.LayoutUnorderedAccess, true)
	tracker.UseImage(o.angularFrequency, rhi.StageComputeShader, rhi.AccessUnorderedAccessWrite, rhi.LayoutUnorderedAccess, true)
	tracker.Flush(cmd)

	p := o.lib.Pipeline("initial_spectrum")
	cmd.SetPipeline(p)
	rhi.PushConstants(cmd, oceanPush{
		First:  o.parameters.BindlessIndex(),
		Second: o.initialState.BindlessIndex(),
		Third:  o.angularFrequency.BindlessIndex(),
		Size:   size,
	})
	dispatch2D(cmd, p, size, size, cascades)

	tracker.UseImage(o.initialState, rhi.StageComputeShader, rhi.AccessShaderRead, rhi.LayoutShaderReadOnly, false)
	tracker.UseImage(o.angularFrequency, rhi.StageComputeShader, rhi.AccessShaderRead, rhi.LayoutShaderReadOnly, false)
	tracker.UseImage(o.displacementXYZ, rhi.StageComputeShader, rhi.AccessUnorderedAccessWrite, rhi.LayoutUnorderedAccess, true)
	tracker.UseImage(o.displacementDX, rhi.StageComputeShader, rhi.AccessUnorderedAccessWrite, rhi.LayoutUnorderedAccess, true)
	tracker.Flush(cmd)

	p = o.lib.Pipeline("time_dependent_spectrum")
	cmd.SetPipeline(p)
	rhi.PushConstants(cmd, oceanPush{
		First:  o.initialState.BindlessIndex(),
		Second: o.angularFrequency.BindlessIndex(),
		Third:  o.displacementXYZ.BindlessIndex(),
		Size:   size,
		Fourth: o.displacementDX.BindlessIndex(),
		Time:   o.time,
	})
	dispatch2D(cmd, p, size, size, cascades)

	o.fft(cmd, tracker, "vertical")
	o.fft(cmd, tracker, "horizontal")
	o.resolveMinMax(cmd, tracker)
	o.reorder(cmd, tracker)
}

// fft transforms both displacement textures in place along one axis. The
// dispatches of one direction do not depend on each other; the recorded
// write makes the next direction wait for them. The horizontal pass also
// reduces every row to its bounds in the min/max texture, one layer range
// per displacement texture.
func (o *Ocean) fft(cmd rhi.CommandList, tracker *ren.Tracker, direction string) {
	size, cascades := o.options.TextureSize, o.options.CascadeCount
	images := [2]ren.Image{o.displacementXYZ, o.displacementDX}
	minMax := direction == "horizontal"

	for _, img := range images {
		tracker.UseImage(img, rhi.StageComputeShader, rhi.AccessUnorderedAccessRead, rhi.LayoutUnorderedAccess, false)
	}
	if minMax {
		tracker.UseImage(o.minMaxTexture, rhi.StageComputeShader, rhi.AccessUnorderedAccessWrite, rhi.LayoutUnorderedAccess, true)
	}
	tracker.Flush(cmd)

	cmd.SetPipeline(o.lib.Variant("fft", direction))
	var layer uint32
	for _, img := range images {
		push := fftPush{Input: img.BindlessIndex(), Output: img.BindlessIndex(), Size: size}
		if minMax {
			push.MinMax = o.minMaxTexture.BindlessIndex()
			push.MinMaxLayer = layer
		}
		rhi.PushConstants(cmd, push)
		cmd.Dispatch(1, size, cascades)
		layer += cascades
	}
	for _, img := range images {
		tracker.SetImageState(img, rhi.StageComputeShader, rhi.AccessUnorderedAccessWrite, rhi.LayoutUnorderedAccess)
	}
}

// resolveMinMax folds the row bounds of each displacement texture into
// one minimum and maximum per cascade.
func (o *Ocean) resolveMinMax(cmd rhi.CommandList, tracker *ren.Tracker) {
	cascades := o.options.CascadeCount

	tracker.UseImage(o.minMaxTexture, rhi.StageComputeShader, rhi.AccessShaderRead, rhi.LayoutShaderReadOnly, false)
	tracker.UseBuffer(o.minMaxBuffer, rhi.StageComputeShader, rhi.AccessUnorderedAccessWrite)
	tracker.Flush(cmd)

	cmd.SetPipeline(o.lib.Pipeline("fft_min_max_resolve"))
	for i := range uint32(2) {
		rhi.PushConstants(cmd, minMaxResolvePush{
			Texture:   o.minMaxTexture.BindlessIndex(),
			Buffer:    o.minMaxBuffer.BindlessIndex(),
			LoadLayer: i * cascades,
			Store:     i * 2 * MaxOceanCascades,
		})
		cmd.Dispatch(1, 1, cascades)
	}
}

// reorder normalizes the displacement textures by their bounds into the
// packed textures and the foam weight.
func (o *Ocean) reorder(cmd rhi.CommandList, tracker *ren.Tracker) {
	size, cascades := o.options.TextureSize, o.options.CascadeCount

	tracker.UseImage(o.displacementXYZ, rhi.StageComputeShader, rhi.AccessShaderRead, rhi.LayoutShaderReadOnly, false)
	tracker.UseImage(o.displacementDX, rhi.StageComputeShader, rhi.AccessShaderRead, rhi.LayoutShaderReadOnly, false)
	tracker.UseBuffer(o.minMaxBuffer, rhi.StageComputeShader, rhi.AccessUnorderedAccessRead)
	for _, img := range []ren.Image{o.packedDisplacement, o.packedDerivatives, o.foamWeight} {
		tracker.UseImage(img, rhi.StageComputeShader, rhi.AccessUnorderedAccessWrite, rhi.LayoutUnorderedAccess, true)
	}
	tracker.Flush(cmd)

	p := o.lib.Pipeline("ocean_texture_reorder")
	cmd.SetPipeline(p)
	rhi.PushConstants(cmd, reorderPush{
		DisplacementXYZ:    o.displacementXYZ.BindlessIndex(),
		DisplacementSlopes: o.displacementDX.BindlessIndex(),
		MinMax:             o.minMaxBuffer.BindlessIndex(),
		PackedDisplacement: o.packedDisplacement.BindlessIndex(),
		PackedDerivatives:  o.packedDerivatives.BindlessIndex(),
		FoamWeight:         o.foamWeight.BindlessIndex(),
		Size:               size,
	})
	dispatch2D(cmd, p, size, size, cascades)
}

// Render draws the ocean surface into target over the geometry already in
// it. depth is tested but not written. Simulate must have been recorded
// earlier in the frame.
func (o *Ocean) Render(cmd rhi.CommandList, tracker *ren.Tracker, target, depth ren.Image, camera ren.Buffer) {
	cmd.BeginDebugRegion("ocean:render", 0.25, 0, 1)
	defer cmd.EndDebugRegion()

	for _, img := range []ren.Image{o.packedDisplacement, o.packedDerivatives, o.foamWeight} {
		tracker.UseImage(img, rhi.StageVertexShader|rhi.StagePixelShader, rhi.AccessShaderSampledRead, rhi.LayoutShaderReadOnly, false)
	}
	tracker.UseBuffer(o.minMaxBuffer, rhi.StageVertexShader, rhi.AccessShaderRead)
	tracker.UseImage(target, rhi.StageColorAttachmentOutput, rhi.AccessColorAttachmentWrite, rhi.LayoutColorAttachment, false)
	tracker.UseImage(depth, rhi.StageEarlyFragmentTests, rhi.AccessDepthStencilAttachmentRead, rhi.LayoutDepthStencilReadOnly, false)
	tracker.Flush(cmd)

	w, h := target.Width(), target.Height()
	cmd.BeginRenderPass(rhi.RenderPassInfo{
		Name:   "ocean",
		Colors: []rhi.ColorAttachment{{Image: target.Native(), Load: rhi.LoadOpLoad, Store: rhi.StoreOpStore}},
		Depth: &rhi.DepthAttachment{
			Image: depth.Native(),
			Load:  rhi.LoadOpLoad,
			Store: rhi.StoreOpStore,
		},
		Width:  w,
		Height: h,
	})
	fullViewport(cmd, w, h)
	cmd.SetPipeline(o.lib.Pipeline("ocean_render_patch"))
	rhi.PushConstants(cmd, oceanRenderPush{
		LengthScales:       defaultLengthScales,
		Camera:             camera.BindlessIndex(),
		MinMax:             o.minMaxBuffer.BindlessIndex(),
		PackedDisplacement: o.packedDisplacement.BindlessIndex(),
		PackedDerivatives:  o.packedDerivatives.BindlessIndex(),
		FoamWeight:         o.foamWeight.BindlessIndex(),
		VertexDistance:     oceanVertexDistance,
		TileVertices:       oceanTileVertices,
		TilesPerAxis:       OceanTilesPerAxis,
		Origin:             oceanTileOrigin(),
		TileSize:           oceanTileSize,
	})
	cmd.Draw(OceanTileIndices, OceanTilesPerAxis*OceanTilesPerAxis, 0, 0)
	cmd.EndRenderPass()
}

// Close destroys the buffers and the simulation textures.
func (o *Ocean) Close() {
	o.bb.DestroyBuffer(OceanSpectrumParametersName)
	o.bb.DestroyBuffer(OceanMinMaxBufferName)
	for _, s := range o.textures(o.options) {
		o.bb.DestroyImage(s.name)
	}
}

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package technique

import (
	"encoding/binary"
	"fmt"

	"github.com/chewxy/math32"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/ren"
	"github.com/gogpu/ren/config"
	"github.com/gogpu/ren/rhi"
	"github.com/gogpu/ren/shader"
)

// Sky resource names.
const (
	SkyParametersName = "hosek_wilkie:parameters"
	SkyCubemapName    = "hosek_wilkie:sky_cubemap_texture"
)

// SkyParameters is the GPU layout of the sky model inputs.
type SkyParameters struct {
	SunDirection    [4]float32
	Turbidity       float32
	Albedo          float32
	ZenithLuminance float32
	_               uint32
}

// hosekPush mirrors the push block of hosek_wilkie.wgsl.
type hosekPush struct {
	Parameters uint32
	Cubemap    uint32
	Size       uint32
	_          uint32
}

// SunDirection returns the unit vector towards a sun at elevation and
// azimuth degrees. Y is up.
func SunDirection(elevation, azimuth float32) [3]float32 {
	const toRad = math32.Pi / 180
	el, az := elevation*toRad, azimuth*toRad
	return [3]float32{
		math32.Cos(el) * math32.Sin(az),
		math32.Sin(el),
		math32.Cos(el) * math32.Cos(az),
	}
}

// ZenithLuminance returns the zenith luminance in kcd/m² of a clear sky
// of the given turbidity with the sun at sunZenith radians from the
// zenith.
func ZenithLuminance(turbidity, sunZenith float32) float32 {
	chi := (4.0/9 - turbidity/120) * (math32.Pi - 2*sunZenith)
	return (4.0453*turbidity-4.9710)*math32.Tan(chi) - 0.2155*turbidity + 2.4192
}

// ComputeSky derives the sky parameters for sunDir, which must be a unit
// vector.
func ComputeSky(cfg config.Sky, sunDir [3]float32) SkyParameters {
	cosZenith := max(-1, min(1, sunDir[1]))
	return SkyParameters{
		SunDirection:    [4]float32{sunDir[0], sunDir[1], sunDir[2], 0},
		Turbidity:       cfg.Turbidity,
		Albedo:          cfg.Albedo,
		ZenithLuminance: ZenithLuminance(cfg.Turbidity, math32.Acos(cosZenith)),
	}
}

// Sky renders a Hosek-Wilkie sky into a cubemap and draws it as a skybox.
type Sky struct {
	bb  *ren.Blackboard
	tc  *ren.TransferContext
	lib *shader.Library

	settings   config.Sky
	sunDir     [3]float32
	parameters ren.Buffer
	cubemap    ren.Image
	stale      bool
}

// NewSky creates the parameter buffer and the cubemap and uploads the
// parameters for the sun position of cfg.
func NewSky(bb *ren.Blackboard, tc *ren.TransferContext, lib *shader.Library, cfg config.Sky) (*Sky, error) {
	if cfg.CubemapSize == 0 {
		return nil, fmt.Errorf("%w: sky cubemap size 0", ErrInvalidSize)
	}
	params, err := bb.CreateBuffer(SkyParametersName, rhi.BufferCreateInfo{
		Size: uint64(binary.Size(SkyParameters{})),
		Heap: rhi.HeapGPU,
	})
	if err != nil {
		return nil, err
	}
	s := &Sky{bb: bb, tc: tc, lib: lib, settings: cfg, parameters: params}
	err = createImages(bb, imageSpec{SkyCubemapName, cubemapInfo(gputypes.TextureFormatRG11B10Ufloat, cfg.CubemapSize), &s.cubemap})
	if err != nil {
		bb.DestroyBuffer(SkyParametersName)
		return nil, err
	}
	if err := s.Update(SunDirection(cfg.SunElevation, cfg.SunAzimuth)); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Cubemap returns the sky cubemap.
func (s *Sky) Cubemap() ren.Image { return s.cubemap }

// Parameters returns the parameter buffer.
func (s *Sky) Parameters() ren.Buffer { return s.parameters }

// SunDir returns the sun direction of the last Update.
func (s *Sky) SunDir() [3]float32 { return s.sunDir }

// Stale reports whether the cubemap lags the parameters.
func (s *Sky) Stale() bool { return s.stale }

// SetSettings replaces turbidity, albedo and cubemap size. The sun
// direction is kept.
func (s *Sky) SetSettings(cfg config.Sky) error {
	if cfg.CubemapSize == 0 {
		return fmt.Errorf("%w: sky cubemap size 0", ErrInvalidSize)
	}
	if cfg.CubemapSize != s.settings.CubemapSize {
		if err := s.cubemap.Recreate(cubemapInfo(s.cubemap.Format(), cfg.CubemapSize)); err != nil {
			return err
		}
	}
	s.settings = cfg
	return s.Update(s.sunDir)
}

// Update stages the parameters for sunDir and marks the cubemap stale.
func (s *Sky) Update(sunDir [3]float32) error {
	data, err := binary.Append(nil, binary.LittleEndian, ComputeSky(s.settings, sunDir))
	if err != nil {
		return err
	}
	if err := s.tc.UploadBuffer(s.parameters, data, 0); err != nil {
		return err
	}
	s.sunDir = sunDir
	s.stale = true
	return nil
}

// GenerateCubemap evaluates the sky model into every cubemap face when
// the parameters changed since the last generation.
func (s *Sky) GenerateCubemap(cmd rhi.CommandList, tracker *ren.Tracker) {
	if !s.stale {
		return
	}
	cmd.BeginDebugRegion("hosek_wilkie:generate_cubemap", 0.25, 0.5, 1)
	defer cmd.EndDebugRegion()

	tracker.UseBuffer(s.parameters, rhi.StageComputeShader, rhi.AccessShaderRead)
	tracker.UseImage(s.cubemap, rhi.StageComputeShader, rhi.AccessUnorderedAccessWrite, rhi.LayoutUnorderedAccess, true)
	tracker.Flush(cmd)

	p := s.lib.Pipeline("hosek_wilkie_generate_cubemap")
	size := s.cubemap.Width()
	cmd.SetPipeline(p)
	rhi.PushConstants(cmd, hosekPush{
		Parameters: s.parameters.BindlessIndex(),
		Cubemap:    s.cubemap.BindlessIndex(),
		Size:       size,
	})
	dispatch2D(cmd, p, size, size, 6)
	s.stale = false
}

// Skybox draws the sky cubemap behind the geometry in depth.
func (s *Sky) Skybox(cmd rhi.CommandList, tracker *ren.Tracker, target, depth ren.Image) error {
	return skybox(cmd, tracker, s.bb, s.lib.Pipeline("skybox"), "hosek_wilkie:skybox", s.cubemap, target, depth)
}

// Close destroys the parameter buffer and the cubemap.
func (s *Sky) Close() {
	s.bb.DestroyBuffer(SkyParametersName)
	s.bb.DestroyImage(SkyCubemapName)
}

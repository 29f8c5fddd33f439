// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package config loads renderer settings from TOML.
//
// A file only needs the keys it changes; everything else keeps the value
// from Default:
//
//	[renderer]
//	width = 1920
//	height = 1080
//	hot_reload = true
//
//	[ocean]
//	texture_size = 512
package config

import (
	"bytes"
	"errors"
	"fmt"
	"math/bits"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// ErrInvalidConfig is returned for settings outside their valid range.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config holds all renderer settings.
type Config struct {
	Renderer Renderer `toml:"renderer"`
	ToneMap  ToneMap  `toml:"tone_map"`
	Exposure Exposure `toml:"exposure"`
	Sky      Sky      `toml:"sky"`
	Ocean    Ocean    `toml:"ocean"`
}

// Renderer holds the frame loop settings.
type Renderer struct {
	Width          uint32 `toml:"width"`
	Height         uint32 `toml:"height"`
	FramesInFlight int    `toml:"frames_in_flight"`
	// ShaderDir overrides the built-in shaders with a directory holding
	// a pipelines.yaml manifest. Empty uses the built-in set.
	ShaderDir string `toml:"shader_dir"`
	HotReload bool   `toml:"hot_reload"`
}

// ToneMap holds the GT7 tone curve.
type ToneMap struct {
	Enabled bool `toml:"enabled"`
	HDR     bool `toml:"hdr"`
	// PeakLuminance is the display peak in nits, used in HDR mode.
	PeakLuminance float32 `toml:"peak_luminance"`
	// PaperWhite is the SDR paper white in nits.
	PaperWhite    float32 `toml:"sdr_paper_white"`
	Alpha         float32 `toml:"alpha"`
	MidPoint      float32 `toml:"mid_point"`
	LinearSection float32 `toml:"linear_section"`
	ToeStrength   float32 `toml:"toe_strength"`
	BlendRatio    float32 `toml:"blend_ratio"`
	FadeStart     float32 `toml:"fade_start"`
	FadeEnd       float32 `toml:"fade_end"`
}

// Exposure holds the physical camera.
type Exposure struct {
	// Aperture is the f-stop.
	Aperture float32 `toml:"aperture"`
	// Shutter is the reciprocal exposure time, 100 meaning 1/100 s.
	Shutter      float32 `toml:"shutter"`
	ISO          float32 `toml:"iso"`
	Compensation float32 `toml:"compensation"`
}

// Sky holds the Hosek-Wilkie sky model inputs.
type Sky struct {
	Turbidity float32 `toml:"turbidity"`
	Albedo    float32 `toml:"albedo"`
	// SunElevation and SunAzimuth are in degrees.
	SunElevation float32 `toml:"sun_elevation"`
	SunAzimuth   float32 `toml:"sun_azimuth"`
	CubemapSize  uint32  `toml:"cubemap_size"`
}

// Ocean holds the FFT ocean simulation options.
type Ocean struct {
	Enabled      bool   `toml:"enabled"`
	TextureSize  uint32 `toml:"texture_size"`
	CascadeCount uint32 `toml:"cascade_count"`
	FP16Textures bool   `toml:"fp16_textures"`
	// WindSpeed is U10 in m/s, WindDirection in degrees.
	WindSpeed     float32 `toml:"wind_speed"`
	WindDirection float32 `toml:"wind_direction"`
	// Fetch is in km.
	Fetch   float32 `toml:"fetch"`
	Depth   float32 `toml:"depth"`
	Gravity float32 `toml:"gravity"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Renderer: Renderer{
			Width:          1280,
			Height:         720,
			FramesInFlight: 2,
		},
		ToneMap: ToneMap{
			Enabled:       true,
			PeakLuminance: 1000,
			PaperWhite:    250,
			Alpha:         0.25,
			MidPoint:      0.538,
			LinearSection: 0.444,
			ToeStrength:   1.28,
			BlendRatio:    0.6,
			FadeStart:     0.98,
			FadeEnd:       1.16,
		},
		Exposure: Exposure{
			Aperture: 16,
			Shutter:  100,
			ISO:      100,
		},
		Sky: Sky{
			Turbidity:    3,
			Albedo:       0.1,
			SunElevation: 30,
			SunAzimuth:   0,
			CubemapSize:  256,
		},
		Ocean: Ocean{
			Enabled:       true,
			TextureSize:   256,
			CascadeCount:  4,
			FP16Textures:  true,
			WindSpeed:     10.5,
			WindDirection: 135,
			Fetch:         70,
			Depth:         150,
			Gravity:       9.81,
		},
	}
}

// Parse decodes TOML over Default and validates the result. Unknown keys
// are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return Config{}, fmt.Errorf("%w: %s", ErrInvalidConfig, strict.String())
		}
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return Config{}, fmt.Errorf("%w: line %d column %d: %s", ErrInvalidConfig, row, col, derr.Error())
		}
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads and parses the file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Marshal encodes c as TOML.
func (c Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}

// Validate checks every setting against its valid range.
func (c Config) Validate() error {
	check := func(ok bool, format string, args ...any) error {
		if ok {
			return nil
		}
		return fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...)
	}
	pow2 := func(v uint32) bool { return v != 0 && bits.OnesCount32(v) == 1 }

	return errors.Join(
		check(c.Renderer.Width > 0 && c.Renderer.Height > 0,
			"renderer size %dx%d", c.Renderer.Width, c.Renderer.Height),
		check(c.Renderer.FramesInFlight >= 1 && c.Renderer.FramesInFlight <= 4,
			"frames_in_flight %d not in [1, 4]", c.Renderer.FramesInFlight),
		check(c.ToneMap.Alpha > 0 && c.ToneMap.Alpha < 1,
			"tone_map.alpha %g not in (0, 1)", c.ToneMap.Alpha),
		check(c.ToneMap.LinearSection >= 0 && c.ToneMap.LinearSection < 1,
			"tone_map.linear_section %g not in [0, 1)", c.ToneMap.LinearSection),
		check(c.ToneMap.PaperWhite > 0 && c.ToneMap.PeakLuminance > 0,
			"tone_map luminances must be positive"),
		check(c.ToneMap.FadeStart <= c.ToneMap.FadeEnd,
			"tone_map.fade_start %g after fade_end %g", c.ToneMap.FadeStart, c.ToneMap.FadeEnd),
		check(c.Exposure.Aperture > 0 && c.Exposure.Shutter > 0 && c.Exposure.ISO > 0,
			"exposure aperture, shutter and iso must be positive"),
		check(c.Sky.Turbidity >= 1 && c.Sky.Turbidity <= 10,
			"sky.turbidity %g not in [1, 10]", c.Sky.Turbidity),
		check(c.Sky.Albedo >= 0 && c.Sky.Albedo <= 1,
			"sky.albedo %g not in [0, 1]", c.Sky.Albedo),
		check(pow2(c.Sky.CubemapSize), "sky.cubemap_size %d is not a power of two", c.Sky.CubemapSize),
		check(pow2(c.Ocean.TextureSize) && c.Ocean.TextureSize >= 16 && c.Ocean.TextureSize <= 1024,
			"ocean.texture_size %d must be a power of two in [16, 1024]", c.Ocean.TextureSize),
		check(c.Ocean.CascadeCount >= 1 && c.Ocean.CascadeCount <= 4,
			"ocean.cascade_count %d not in [1, 4]", c.Ocean.CascadeCount),
		check(c.Ocean.Gravity > 0, "ocean.gravity must be positive"),
	)
}

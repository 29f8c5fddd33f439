// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 2, cfg.Renderer.FramesInFlight)
	assert.Equal(t, float32(16), cfg.Exposure.Aperture)
	assert.Equal(t, float32(100), cfg.Exposure.Shutter)
	assert.Equal(t, float32(100), cfg.Exposure.ISO)
	assert.Equal(t, uint32(256), cfg.Ocean.TextureSize)
}

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
[renderer]
width = 1920
height = 1080
frames_in_flight = 3
hot_reload = true

[ocean]
texture_size = 512
cascade_count = 2
`))
	require.NoError(t, err)

	want := Default()
	want.Renderer.Width = 1920
	want.Renderer.Height = 1080
	want.Renderer.FramesInFlight = 3
	want.Renderer.HotReload = true
	want.Ocean.TextureSize = 512
	want.Ocean.CascadeCount = 2
	assert.Equal(t, want, cfg)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"unknown key", "[renderer]\nwidht = 10\n"},
		{"unknown table", "[bloom]\nenabled = true\n"},
		{"syntax", "[renderer\n"},
		{"zero width", "[renderer]\nwidth = 0\n"},
		{"frames in flight", "[renderer]\nframes_in_flight = 0\n"},
		{"ocean size", "[ocean]\ntexture_size = 300\n"},
		{"cascades", "[ocean]\ncascade_count = 5\n"},
		{"tone curve", "[tone_map]\nalpha = 1.5\n"},
		{"fade", "[tone_map]\nfade_start = 2.0\nfade_end = 1.0\n"},
		{"exposure", "[exposure]\niso = 0.0\n"},
		{"sky", "[sky]\nturbidity = 0.5\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Renderer.Width = 0
	cfg.Ocean.CascadeCount = 0
	err := cfg.Validate()
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "renderer size")
	assert.Contains(t, err.Error(), "ocean.cascade_count")
}

func TestLoadAndMarshal(t *testing.T) {
	cfg := Default()
	cfg.Renderer.ShaderDir = "shaders"
	cfg.Sky.SunElevation = 12.5
	data, err := cfg.Marshal()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "ren.toml")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package technique_test

import (
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/ren"
	"github.com/gogpu/ren/asset"
	"github.com/gogpu/ren/config"
	"github.com/gogpu/ren/rhi"
	"github.com/gogpu/ren/rhi/rhitest"
	"github.com/gogpu/ren/technique"
)

func testHDRI() *asset.Texture {
	return &asset.Texture{
		Name:   "hdri",
		Format: gputypes.TextureFormatRGBA16Float,
		Mips:   []asset.Mip{{Width: 8, Height: 4, Data: make([]byte, 8*4*8)}},
	}
}

func TestImageBasedLightingBake(t *testing.T) {
	e := newEnv(t)
	ibl, err := technique.NewImageBasedLighting(e.bb, e.tc, e.lib, testHDRI())
	require.NoError(t, err)
	assert.Equal(t, 1, e.tc.Stats().PendingImages)
	assert.Equal(t, uint32(4), ibl.Cubemap().Width())
	assert.Equal(t, uint32(6), ibl.Prefiltered().CreateInfo().ArraySize)

	cmd := e.commandList(t)
	tr := ren.NewTracker()
	require.NoError(t, ibl.Bake(cmd, tr))
	require.NoError(t, ibl.Bake(cmd, tr))
	assert.True(t, ibl.Baked())

	assert.Equal(t, []string{"equirectangular_to_cubemap", "ibl_prefilter_diffuse"}, pipelines(cmd))
	assert.Equal(t, [][3]uint32{{1, 1, 6}, {1, 1, 6}}, dispatches(cmd))
	settled(t, tr, ibl.HDRI(), rhi.StageComputeShader, rhi.AccessShaderRead, rhi.LayoutShaderReadOnly)
	settled(t, tr, ibl.Prefiltered(), rhi.StageComputeShader, rhi.AccessShaderRead, rhi.LayoutShaderReadOnly)

	first := cmd.Barriers()[0].Images[0]
	assert.Equal(t, rhi.StageAllCommands, first.StageBefore, "uploaded HDRI starts readable")
	assert.Equal(t, rhi.LayoutShaderReadOnly, first.LayoutBefore)

	ibl.Close()
	assert.Empty(t, e.bb.Names())
}

func TestImageBasedLightingRejectsBadHDRI(t *testing.T) {
	e := newEnv(t)
	hdri := testHDRI()
	hdri.Mips[0].Data = hdri.Mips[0].Data[:10]
	_, err := technique.NewImageBasedLighting(e.bb, e.tc, e.lib, hdri)
	assert.ErrorIs(t, err, asset.ErrInvalid)
	assert.Empty(t, e.bb.Names())
}

func TestSkybox(t *testing.T) {
	e := newEnv(t)
	sky, err := technique.NewSky(e.bb, e.tc, e.lib, config.Default().Sky)
	require.NoError(t, err)
	g, err := technique.NewGBuffer(e.bb, e.lib, 16, 8)
	require.NoError(t, err)
	scene := e.target(t, "scene", 16, 8)

	cmd := e.commandList(t)
	tr := ren.NewTracker()
	sky.GenerateCubemap(cmd, tr)
	require.NoError(t, sky.Skybox(cmd, tr, scene, g.Depth()))

	assert.Equal(t, []string{"hosek_wilkie_generate_cubemap", "skybox"}, pipelines(cmd))
	assert.Equal(t, [][3]uint32{{32, 32, 6}, {2, 1, 1}}, dispatches(cmd))
	settled(t, tr, sky.Cubemap(), rhi.StageComputeShader, rhi.AccessShaderRead, rhi.LayoutShaderReadOnly)
	settled(t, tr, scene, rhi.StageComputeShader, rhi.AccessUnorderedAccessWrite, rhi.LayoutUnorderedAccess)

	assert.ErrorIs(t, sky.Skybox(cmd, tr, ren.Image{}, g.Depth()), technique.ErrInvalidSize)
}

func TestSkyRegeneratesOnUpdate(t *testing.T) {
	e := newEnv(t)
	sky, err := technique.NewSky(e.bb, e.tc, e.lib, config.Default().Sky)
	require.NoError(t, err)
	assert.Equal(t, 1, e.tc.Stats().PendingBuffers)
	assert.True(t, sky.Stale())

	cmd := e.commandList(t)
	tr := ren.NewTracker()
	sky.GenerateCubemap(cmd, tr)
	sky.GenerateCubemap(cmd, tr)
	assert.Equal(t, 1, cmd.Count(rhitest.OpDispatch))
	assert.False(t, sky.Stale())

	require.NoError(t, sky.Update(technique.SunDirection(10, 45)))
	assert.Equal(t, 2, e.tc.Stats().PendingBuffers)
	sky.GenerateCubemap(cmd, tr)
	assert.Equal(t, 2, cmd.Count(rhitest.OpDispatch))

	cfg := config.Default().Sky
	cfg.CubemapSize = 64
	require.NoError(t, sky.SetSettings(cfg))
	assert.Equal(t, uint32(64), sky.Cubemap().Width())
	assert.True(t, sky.Stale())

	sky.Close()
	assert.Empty(t, e.bb.Names())
}

func TestSunDirection(t *testing.T) {
	up := technique.SunDirection(90, 0)
	assert.InDelta(t, 1, up[1], 1e-6)
	assert.InDelta(t, 0, up[2], 1e-6)

	east := technique.SunDirection(0, 90)
	assert.InDelta(t, 1, east[0], 1e-6)
	assert.InDelta(t, 0, east[1], 1e-6)

	p := technique.ComputeSky(config.Default().Sky, technique.SunDirection(30, 0))
	assert.Greater(t, p.ZenithLuminance, float32(0))
	assert.Equal(t, float32(3), p.Turbidity)
	assert.Zero(t, p.SunDirection[3])
}

func oceanOptions() config.Ocean {
	cfg := config.Default().Ocean
	cfg.TextureSize = 16
	cfg.CascadeCount = 2
	return cfg
}

func TestOceanSimulate(t *testing.T) {
	e := newEnv(t)
	ocean, err := technique.NewOcean(e.bb, e.tc, e.lib, oceanOptions())
	require.NoError(t, err)
	require.NoError(t, ocean.Update(0.5))

	cmd := e.commandList(t)
	tr := ren.NewTracker()
	ocean.Simulate(cmd, tr)

	assert.Equal(t, []string{
		"initial_spectrum", "time_dependent_spectrum", "fft/vertical", "fft/horizontal",
		"fft_min_max_resolve", "ocean_texture_reorder",
	}, pipelines(cmd))
	assert.Equal(t, [][3]uint32{
		{2, 2, 2}, {2, 2, 2},
		{1, 16, 2}, {1, 16, 2},
		{1, 16, 2}, {1, 16, 2},
		{1, 1, 2}, {1, 1, 2},
		{2, 2, 2},
	}, dispatches(cmd))

	// The two dispatches of one FFT direction share a single barrier.
	B, D := rhitest.OpBarrier, rhitest.OpDispatch
	assert.Equal(t, []rhitest.Op{
		B, D,
		B, D,
		B, D, D,
		B, D, D,
		B, D, D,
		B, D,
	}, ops(cmd, B, D))

	// Each FFT direction waits for the writes of the previous step.
	barriers := cmd.Barriers()
	require.Len(t, barriers, 6)
	for _, b := range barriers[2:4] {
		for _, img := range b.Images[:2] {
			assert.Equal(t, rhi.AccessUnorderedAccessWrite, img.AccessBefore)
			assert.Equal(t, rhi.AccessUnorderedAccessRead, img.AccessAfter)
		}
	}
	assert.Len(t, barriers[2].Images, 2)
	require.Len(t, barriers[3].Images, 3, "the horizontal pass writes the row bounds")
	assert.True(t, barriers[3].Images[2].Discard)

	resolve := barriers[4]
	require.Len(t, resolve.Images, 1)
	assert.Equal(t, rhi.AccessUnorderedAccessWrite, resolve.Images[0].AccessBefore)
	assert.Equal(t, rhi.LayoutShaderReadOnly, resolve.Images[0].LayoutAfter)
	require.Len(t, resolve.Buffers, 1)
	assert.Equal(t, rhi.AccessUnorderedAccessWrite, resolve.Buffers[0].AccessAfter)

	reorder := barriers[5]
	require.Len(t, reorder.Buffers, 1)
	assert.Equal(t, rhi.AccessUnorderedAccessWrite, reorder.Buffers[0].AccessBefore)
	assert.Equal(t, rhi.AccessUnorderedAccessRead, reorder.Buffers[0].AccessAfter)
	assert.Len(t, reorder.Images, 5)

	settled(t, tr, ocean.DisplacementXYZ(), rhi.StageComputeShader, rhi.AccessShaderRead, rhi.LayoutShaderReadOnly)
	settled(t, tr, ocean.DisplacementSlopes(), rhi.StageComputeShader, rhi.AccessShaderRead, rhi.LayoutShaderReadOnly)
	settled(t, tr, ocean.PackedDisplacement(), rhi.StageComputeShader, rhi.AccessUnorderedAccessWrite, rhi.LayoutUnorderedAccess)
	settled(t, tr, ocean.FoamWeight(), rhi.StageComputeShader, rhi.AccessUnorderedAccessWrite, rhi.LayoutUnorderedAccess)
}

func TestOceanRender(t *testing.T) {
	e := newEnv(t)
	ocean, err := technique.NewOcean(e.bb, e.tc, e.lib, oceanOptions())
	require.NoError(t, err)
	scene := e.target(t, "scene", 64, 32)
	depth, err := e.bb.CreateImage("depth", rhi.ImageCreateInfo{
		Format:          gputypes.TextureFormatDepth32Float,
		Width:           64,
		Height:          32,
		Usage:           rhi.ImageUsageDepthStencilAttachment | rhi.ImageUsageSampled,
		PrimaryViewType: rhi.ViewTexture2D,
	})
	require.NoError(t, err)
	camera, err := e.bb.CreateBuffer("camera", rhi.BufferCreateInfo{Size: 64, Heap: rhi.HeapGPU})
	require.NoError(t, err)

	cmd := e.commandList(t)
	tr := ren.NewTracker()
	ocean.Simulate(cmd, tr)
	before := len(cmd.Barriers())
	ocean.Render(cmd, tr, scene, depth, camera)

	// The packed textures move from the reorder writes to vertex and
	// pixel shader reads in the single barrier ahead of the pass.
	barriers := cmd.Barriers()
	require.Len(t, barriers, before+1)
	b := barriers[before]
	require.Len(t, b.Buffers, 1)
	assert.Equal(t, rhi.AccessUnorderedAccessRead, b.Buffers[0].AccessBefore)
	assert.Equal(t, rhi.AccessShaderRead, b.Buffers[0].AccessAfter)
	require.Len(t, b.Images, 5)
	for _, img := range b.Images[:3] {
		assert.Equal(t, rhi.AccessUnorderedAccessWrite, img.AccessBefore)
		assert.Equal(t, rhi.LayoutShaderReadOnly, img.LayoutAfter)
		assert.Equal(t, rhi.StageVertexShader|rhi.StagePixelShader, img.StageAfter)
		assert.False(t, img.Discard)
	}

	var pass rhi.RenderPassInfo
	var draws []rhitest.Command
	for _, c := range cmd.Commands() {
		switch c.Op {
		case rhitest.OpBeginRenderPass:
			pass = c.RenderPass
		case rhitest.OpDraw:
			draws = append(draws, c)
		}
	}
	require.Len(t, pass.Colors, 1)
	assert.Equal(t, rhi.LoadOpLoad, pass.Colors[0].Load, "the ocean draws over the resolved scene")
	require.NotNil(t, pass.Depth)
	assert.Equal(t, rhi.LoadOpLoad, pass.Depth.Load)
	require.Len(t, draws, 1)
	assert.Equal(t, uint32(technique.OceanTileIndices), draws[0].Vertices)
	assert.Equal(t, uint32(technique.OceanTilesPerAxis*technique.OceanTilesPerAxis), draws[0].Instances)
	assert.Contains(t, pipelines(cmd), "ocean_render_patch")

	settled(t, tr, scene, rhi.StageColorAttachmentOutput, rhi.AccessColorAttachmentWrite, rhi.LayoutColorAttachment)
	settled(t, tr, depth, rhi.StageEarlyFragmentTests, rhi.AccessDepthStencilAttachmentRead, rhi.LayoutDepthStencilReadOnly)
	settled(t, tr, ocean.PackedDerivatives(), rhi.StageVertexShader|rhi.StagePixelShader, rhi.AccessShaderSampledRead, rhi.LayoutShaderReadOnly)
}

func TestOceanUpdateAndOptions(t *testing.T) {
	e := newEnv(t)
	cfg := oceanOptions()
	ocean, err := technique.NewOcean(e.bb, e.tc, e.lib, cfg)
	require.NoError(t, err)
	assert.Equal(t, gputypes.TextureFormatRGBA16Float, ocean.DisplacementXYZ().Format())

	require.NoError(t, ocean.Update(0.25))
	require.NoError(t, ocean.Update(0.25))
	assert.InDelta(t, 0.5, ocean.Time(), 1e-6)
	assert.Equal(t, 2, e.tc.Stats().PendingBuffers)

	disp := ocean.DisplacementXYZ()
	id := disp.ID()
	cfg.WindSpeed = 20
	require.NoError(t, ocean.SetOptions(cfg))
	assert.Equal(t, id, disp.ID(), "wind changes keep the textures")

	cfg.TextureSize = 32
	cfg.CascadeCount = 4
	cfg.FP16Textures = false
	require.NoError(t, ocean.SetOptions(cfg))
	assert.NotEqual(t, id, disp.ID())
	info := disp.CreateInfo()
	assert.Equal(t, uint32(32), info.Width)
	assert.Equal(t, uint32(4), info.ArraySize)
	assert.Equal(t, gputypes.TextureFormatRGBA32Float, info.Format)
	minMax := e.bb.Image(technique.OceanMinMaxTextureName).CreateInfo()
	assert.Equal(t, uint32(8), minMax.ArraySize, "bounds of both textures per cascade")
	assert.Equal(t, uint32(4), ocean.PackedDisplacement().CreateInfo().ArraySize)

	bad := cfg
	bad.TextureSize = 24
	assert.ErrorIs(t, ocean.SetOptions(bad), technique.ErrInvalidSize)
	bad = cfg
	bad.CascadeCount = technique.MaxOceanCascades + 1
	assert.ErrorIs(t, ocean.SetOptions(bad), technique.ErrInvalidSize)
	assert.Equal(t, cfg, ocean.Options())

	ocean.Close()
	assert.Empty(t, e.bb.Names())
}

func TestComputeSpectrum(t *testing.T) {
	cfg := oceanOptions()
	p := technique.ComputeSpectrum(cfg)
	assert.Equal(t, cfg.WindSpeed, p.Spectra[1].WindSpeed)
	assert.Equal(t, float32(2.5), p.Spectra[0].WindSpeed)
	assert.Equal(t, uint32(2), p.ActiveCascades)
	assert.Equal(t, technique.SpectrumTMA, p.Spectrum)
	assert.Equal(t, technique.SpreadingDonelanBanner, p.Spreading)
	assert.Equal(t, uint32(16), p.TextureSize)
}

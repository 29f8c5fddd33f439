// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderer

import (
	"context"
	"encoding/binary"
	"fmt"
	"slices"
	"sync"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/ren"
	"github.com/gogpu/ren/asset"
	"github.com/gogpu/ren/config"
	"github.com/gogpu/ren/rhi"
	"github.com/gogpu/ren/shader"
	"github.com/gogpu/ren/technique"
)

// Renderer resource names.
const (
	SceneName  = "renderer:shaded_scene"
	OutputName = "renderer:output"
	CameraName = "renderer:camera_buffer"
)

// Stats aggregates the counters of the renderer and the core it drives.
type Stats struct {
	// Frame is the number of frames submitted.
	Frame  uint64
	Models int
	Draws  int
	// Tracked is the number of resources the last frame's tracker saw.
	Tracked int

	Blackboard ren.BlackboardStats
	Transfer   ren.TransferStats
	Shaders    shader.Stats
}

// String returns a human-readable summary.
func (s Stats) String() string {
	return fmt.Sprintf("Renderer[frame %d, %d models, %d draws, %d tracked]\n  %s\n  %s\n  %s",
		s.Frame, s.Models, s.Draws, s.Tracked, s.Blackboard, s.Transfer, s.Shaders)
}

type model struct {
	buffers asset.ModelBuffers
	draws   []technique.Draw
}

// Renderer records and submits one frame per Frame call.
//
// Renderer is safe for concurrent use from multiple goroutines.
type Renderer struct {
	mu sync.Mutex

	device rhi.Device
	lib    *shader.Library
	cfg    config.Config

	bb *ren.Blackboard
	tc *ren.TransferContext

	gbuffer  *technique.GBuffer
	brdf     *technique.BRDFLUT
	exposure *technique.Exposure
	toneMap  *technique.ToneMap
	sky      *technique.Sky
	ocean    *technique.Ocean
	ibl      *technique.ImageBasedLighting

	scene  ren.Image
	output ren.Image
	camera ren.Buffer
	view   Camera

	models map[string]*model
	order  []string

	// slots holds the submission index of each frame slot; 0 is unused.
	slots   []uint64
	frame   uint64
	tracked int

	resize *[2]uint32
	closed bool
}

// New creates a renderer drawing into an output image of the configured
// size. The shader library stays owned by the caller.
func New(device rhi.Device, cfg config.Config, lib *shader.Library) (*Renderer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	n := cfg.Renderer.FramesInFlight
	r := &Renderer{
		device: device,
		lib:    lib,
		cfg:    cfg,
		bb:     ren.NewBlackboard(device, ren.WithFramesInFlight(n)),
		tc:     ren.NewTransferContext(device, ren.WithTransferFramesInFlight(n)),
		view:   DefaultCamera(),
		models: make(map[string]*model),
		slots:  make([]uint64, n),
	}
	if err := r.init(); err != nil {
		_ = r.release()
		return nil, err
	}
	slogger().Info("renderer: created",
		"width", cfg.Renderer.Width, "height", cfg.Renderer.Height, "frames_in_flight", n)
	return r, nil
}

func (r *Renderer) init() error {
	var err error
	w, h := r.cfg.Renderer.Width, r.cfg.Renderer.Height

	if r.gbuffer, err = technique.NewGBuffer(r.bb, r.lib, w, h); err != nil {
		return err
	}
	if r.brdf, err = technique.NewBRDFLUT(r.bb, r.lib); err != nil {
		return err
	}
	if r.exposure, err = technique.NewExposure(r.bb, r.lib, r.cfg.Exposure); err != nil {
		return err
	}
	if r.toneMap, err = technique.NewToneMap(r.bb, r.tc, r.lib, r.cfg.ToneMap); err != nil {
		return err
	}
	if r.sky, err = technique.NewSky(r.bb, r.tc, r.lib, r.cfg.Sky); err != nil {
		return err
	}
	if r.cfg.Ocean.Enabled {
		if r.ocean, err = technique.NewOcean(r.bb, r.tc, r.lib, r.cfg.Ocean); err != nil {
			return err
		}
	}

	if r.scene, err = r.bb.CreateImage(SceneName, sceneInfo(w, h)); err != nil {
		return err
	}
	if r.output, err = r.bb.CreateImage(OutputName, outputInfo(w, h)); err != nil {
		return err
	}
	r.camera, err = r.bb.CreateBuffer(CameraName, rhi.BufferCreateInfo{
		Size: uint64(binary.Size(cameraData{})),
		Heap: rhi.HeapGPU,
	})
	return err
}

func sceneInfo(w, h uint32) rhi.ImageCreateInfo {
	return rhi.ImageCreateInfo{
		Format:          gputypes.TextureFormatRGBA16Float,
		Width:           w,
		Height:          h,
		Usage:           rhi.ImageUsageUnorderedAccess | rhi.ImageUsageSampled | rhi.ImageUsageColorAttachment,
		PrimaryViewType: rhi.ViewTexture2D,
	}
}

func outputInfo(w, h uint32) rhi.ImageCreateInfo {
	return rhi.ImageCreateInfo{
		Format:          gputypes.TextureFormatRGBA8Unorm,
		Width:           w,
		Height:          h,
		Usage:           rhi.ImageUsageColorAttachment | rhi.ImageUsageSampled,
		PrimaryViewType: rhi.ViewTexture2D,
	}
}

// release closes the techniques and the core. Nil techniques are
// skipped, so it also unwinds a partial init.
func (r *Renderer) release() error {
	if r.ibl != nil {
		r.ibl.Close()
	}
	if r.ocean != nil {
		r.ocean.Close()
	}
	if r.sky != nil {
		r.sky.Close()
	}
	if r.toneMap != nil {
		r.toneMap.Close()
	}
	if r.exposure != nil {
		r.exposure.Close()
	}
	if r.brdf != nil {
		r.brdf.Close()
	}
	if r.gbuffer != nil {
		r.gbuffer.Close()
	}
	r.tc.Close()
	return r.bb.Close()
}

// Close waits for the device to go idle and destroys every resource the
// renderer owns. Close is idempotent.
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if err := r.device.WaitIdle(); err != nil {
		slogger().Warn("renderer: wait idle", "err", err)
	}
	err := r.release()
	slogger().Info("renderer: closed", "frames", r.frame)
	return err
}

// Frame records and submits one frame advancing the simulation by dt
// seconds. It blocks until the GPU finished the frame that last used the
// same frame slot, or ctx is done.
func (r *Renderer) Frame(ctx context.Context, dt float32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}

	slot := r.frame % uint64(len(r.slots))
	if idx := r.slots[slot]; idx != 0 {
		if err := r.device.WaitForSubmission(ctx, idx); err != nil {
			return fmt.Errorf("renderer: wait for frame slot %d: %w", slot, err)
		}
	}
	r.bb.GarbageCollect(r.frame)
	if err := r.applyResize(); err != nil {
		return err
	}
	r.tc.GarbageCollect()
	r.reloadShaders()

	if err := r.update(dt); err != nil {
		return err
	}

	upload, err := r.device.CreateCommandList(rhi.QueueGraphics)
	if err != nil {
		return fmt.Errorf("renderer: create upload list: %w", err)
	}
	cmd, err := r.device.CreateCommandList(rhi.QueueGraphics)
	if err != nil {
		return fmt.Errorf("renderer: create frame list: %w", err)
	}
	tracker := ren.NewTracker()
	if err := r.record(cmd, tracker); err != nil {
		return err
	}
	r.tc.Process(upload)

	idx, err := r.device.Submit(upload, cmd)
	if err != nil {
		return fmt.Errorf("renderer: submit frame %d: %w", r.frame, err)
	}
	r.slots[slot] = idx
	r.tracked = tracker.Len()
	r.frame++
	return nil
}

func (r *Renderer) applyResize() error {
	if r.resize == nil {
		return nil
	}
	w, h := r.resize[0], r.resize[1]
	r.resize = nil
	if err := r.gbuffer.Resize(w, h); err != nil {
		return err
	}
	if err := r.scene.Recreate(sceneInfo(w, h)); err != nil {
		return err
	}
	if err := r.output.Recreate(outputInfo(w, h)); err != nil {
		return err
	}
	r.cfg.Renderer.Width, r.cfg.Renderer.Height = w, h
	slogger().Debug("renderer: resized", "width", w, "height", h, "frame", r.frame)
	return nil
}

func (r *Renderer) reloadShaders() {
	if !r.cfg.Renderer.HotReload {
		return
	}
	n, err := r.lib.Reload()
	if err != nil {
		slogger().Warn("renderer: shader reload rejected", "err", err)
		return
	}
	if n > 0 {
		slogger().Info("renderer: shaders reloaded", "pipelines", n)
	}
}

func (r *Renderer) oceanActive() bool { return r.ocean != nil && r.cfg.Ocean.Enabled }

// update stages the per-frame buffer contents.
func (r *Renderer) update(dt float32) error {
	if r.oceanActive() {
		if err := r.ocean.Update(dt); err != nil {
			return err
		}
	}
	w, h := r.output.Width(), r.output.Height()
	p := r.view.Position
	data, err := binary.Append(nil, binary.LittleEndian, cameraData{
		View:       r.view.View(),
		Projection: r.view.Projection(float32(w) / float32(h)),
		Position:   [4]float32{p[0], p[1], p[2], 1},
		Exposure:   r.exposure.Value(),
	})
	if err != nil {
		return err
	}
	return r.tc.UploadBuffer(r.camera, data, 0)
}

func (r *Renderer) record(cmd rhi.CommandList, tracker *ren.Tracker) error {
	r.brdf.Bake(cmd, tracker)
	if r.ibl != nil {
		if err := r.ibl.Bake(cmd, tracker); err != nil {
			return err
		}
	} else {
		r.sky.GenerateCubemap(cmd, tracker)
	}
	if r.oceanActive() {
		r.ocean.Simulate(cmd, tracker)
	}

	r.gbuffer.Render(cmd, tracker, r.camera, r.draws())
	r.gbuffer.Resolve(cmd, tracker, r.scene, r.brdf.Texture())

	var err error
	if r.ibl != nil {
		err = r.ibl.Skybox(cmd, tracker, r.scene, r.gbuffer.Depth())
	} else {
		err = r.sky.Skybox(cmd, tracker, r.scene, r.gbuffer.Depth())
	}
	if err != nil {
		return err
	}
	if r.oceanActive() {
		r.ocean.Render(cmd, tracker, r.scene, r.gbuffer.Depth(), r.camera)
	}

	r.exposure.Apply(cmd, tracker, r.scene)
	return r.toneMap.Blit(cmd, tracker, r.scene, r.output)
}

func (r *Renderer) draws() []technique.Draw {
	var draws []technique.Draw
	for _, name := range r.order {
		draws = append(draws, r.models[name].draws...)
	}
	return draws
}

// Resize changes the output size. It takes effect at the start of the
// next frame; the images it replaces are destroyed once the frames in
// flight finished.
func (r *Renderer) Resize(width, height uint32) error {
	if width == 0 || height == 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	r.resize = &[2]uint32{width, height}
	return nil
}

// AddModel uploads m and draws every submesh of every instance from the
// next frame on. Adding a model with the name of a drawn one replaces it.
func (r *Renderer) AddModel(m *asset.Model) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if _, ok := r.models[m.Name]; ok {
		r.removeModel(m.Name)
	}
	bufs, err := asset.UploadModel(r.bb, r.tc, m)
	if err != nil {
		return err
	}
	md := &model{buffers: bufs}
	for i, inst := range m.Instances {
		for _, sm := range m.Submeshes[inst.SubmeshStart:inst.SubmeshEnd] {
			md.draws = append(md.draws, technique.Draw{
				Model:    bufs,
				Submesh:  sm,
				Instance: uint32(i), //nolint:gosec // G115: instance counts are bounded by the container
			})
		}
	}
	r.models[m.Name] = md
	r.order = append(r.order, m.Name)
	slogger().Debug("renderer: model added", "name", m.Name, "draws", len(md.draws))
	return nil
}

// RemoveModel stops drawing the model called name and retires its
// buffers.
func (r *Renderer) RemoveModel(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if _, ok := r.models[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownModel, name)
	}
	r.removeModel(name)
	return nil
}

func (r *Renderer) removeModel(name string) {
	b := r.models[name].buffers
	for _, buf := range []ren.Buffer{b.Positions, b.Attributes, b.Indices, b.Materials, b.Instances} {
		if buf.Valid() {
			r.bb.DestroyBuffer(buf.Name())
		}
	}
	delete(r.models, name)
	r.order = slices.DeleteFunc(r.order, func(s string) bool { return s == name })
}

// SetHDRI lights the scene from hdri instead of the procedural sky. The
// environment is baked during the next frame.
func (r *Renderer) SetHDRI(hdri *asset.Texture) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if r.ibl != nil {
		r.ibl.Close()
		r.ibl = nil
	}
	ibl, err := technique.NewImageBasedLighting(r.bb, r.tc, r.lib, hdri)
	if err != nil {
		return err
	}
	r.ibl = ibl
	return nil
}

// SetSun moves the sun of the procedural sky to elevation and azimuth
// degrees.
func (r *Renderer) SetSun(elevation, azimuth float32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	r.cfg.Sky.SunElevation, r.cfg.Sky.SunAzimuth = elevation, azimuth
	return r.sky.Update(technique.SunDirection(elevation, azimuth))
}

// SetToneMap replaces the tone curve settings.
func (r *Renderer) SetToneMap(cfg config.ToneMap) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	r.cfg.ToneMap = cfg
	r.toneMap.SetSettings(cfg)
	return nil
}

// SetExposure replaces the camera exposure settings.
func (r *Renderer) SetExposure(cfg config.Exposure) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	r.cfg.Exposure = cfg
	r.exposure.SetCamera(cfg)
	return nil
}

// SetOcean replaces the ocean options. A disabled ocean is not simulated
// but keeps its resources until Close.
func (r *Renderer) SetOcean(cfg config.Ocean) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if r.ocean == nil && cfg.Enabled {
		ocean, err := technique.NewOcean(r.bb, r.tc, r.lib, cfg)
		if err != nil {
			return err
		}
		r.ocean = ocean
	} else if r.ocean != nil {
		if err := r.ocean.SetOptions(cfg); err != nil {
			return err
		}
	}
	r.cfg.Ocean = cfg
	return nil
}

// SetCamera replaces the camera.
func (r *Renderer) SetCamera(c Camera) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.view = c
}

// Camera returns the camera.
func (r *Renderer) Camera() Camera {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.view
}

// Output returns the tone mapped output image. The view follows resizes.
func (r *Renderer) Output() ren.Image { return r.output }

// Config returns the active settings.
func (r *Renderer) Config() config.Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cfg
}

// Stats returns the renderer counters.
func (r *Renderer) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := Stats{
		Frame:      r.frame,
		Models:     len(r.models),
		Tracked:    r.tracked,
		Blackboard: r.bb.Stats(),
		Transfer:   r.tc.Stats(),
		Shaders:    r.lib.Stats(),
	}
	for _, m := range r.models {
		s.Draws += len(m.draws)
	}
	return s
}

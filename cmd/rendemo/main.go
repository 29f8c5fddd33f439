// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Command rendemo renders a fixed number of frames headless and prints the
// renderer statistics.
package main

import (
	"context"
	"flag"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"

	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/ren/asset"
	"github.com/gogpu/ren/config"
	"github.com/gogpu/ren/renderer"
	"github.com/gogpu/ren/rhi/halrhi"
	"github.com/gogpu/ren/shader"
)

func main() {
	var (
		configPath = flag.String("config", "", "TOML settings file")
		frames     = flag.Int("frames", 120, "frames to render")
		width      = flag.Uint("width", 0, "override the output width")
		height     = flag.Uint("height", 0, "override the output height")
		shaders    = flag.String("shaders", "", "shader directory with a pipelines.yaml manifest")
		modelPath  = flag.String("model", "", "model file to draw")
		hdriPath   = flag.String("hdri", "", "environment texture replacing the procedural sky")
		backend    = flag.String("backend", "noop", "noop or best")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	renderer.SetLogger(logger)
	halrhi.SetLogger(logger)

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	if *width > 0 {
		cfg.Renderer.Width = uint32(*width)
	}
	if *height > 0 {
		cfg.Renderer.Height = uint32(*height)
	}
	if *shaders != "" {
		cfg.Renderer.ShaderDir = *shaders
	}

	var (
		dev *halrhi.Device
		err error
	)
	switch *backend {
	case "noop":
		dev, err = halrhi.Open(noop.API{})
	case "best":
		dev, err = halrhi.OpenBest()
	default:
		log.Fatalf("Unknown backend %q", *backend)
	}
	if err != nil {
		log.Fatalf("Failed to open device: %v", err)
	}
	defer dev.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var opts []shader.Option
	if cfg.Renderer.ShaderDir != "" {
		opts = append(opts, shader.WithDir(cfg.Renderer.ShaderDir))
	}
	lib, err := shader.New(dev, opts...)
	if err != nil {
		log.Fatalf("Failed to build shaders: %v", err)
	}
	defer lib.Close()
	if cfg.Renderer.HotReload {
		if err := lib.Watch(ctx); err != nil {
			log.Printf("Hot reload disabled: %v", err)
		}
	}

	r, err := renderer.New(dev, cfg, lib)
	if err != nil {
		log.Fatalf("Failed to create renderer: %v", err)
	}
	defer r.Close()

	if *modelPath != "" {
		m, err := readFile(*modelPath, asset.ReadModel)
		if err != nil {
			log.Fatalf("Failed to read model: %v", err)
		}
		if err := r.AddModel(m); err != nil {
			log.Fatalf("Failed to add model: %v", err)
		}
	}
	if *hdriPath != "" {
		t, err := readFile(*hdriPath, asset.ReadTexture)
		if err != nil {
			log.Fatalf("Failed to read HDRI: %v", err)
		}
		if err := r.SetHDRI(t); err != nil {
			log.Fatalf("Failed to set HDRI: %v", err)
		}
	}

	const dt = float32(1.0 / 60)
	for i := 0; i < *frames && ctx.Err() == nil; i++ {
		if err := r.Frame(ctx, dt); err != nil {
			log.Printf("Frame %d: %v", i, err)
			break
		}
	}

	log.Println(r.Stats())
}

func readFile[T any](path string, read func(io.Reader) (T, error)) (T, error) {
	f, err := os.Open(path)
	if err != nil {
		var zero T
		return zero, err
	}
	defer f.Close()
	return read(f)
}

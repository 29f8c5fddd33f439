// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package shader

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/gogpu/gputypes"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/ren/rhi"
)

// ManifestName is the file name of the pipeline manifest.
const ManifestName = "pipelines.yaml"

// Shader errors.
var (
	// ErrInvalidManifest is returned for manifests that cannot be used.
	ErrInvalidManifest = errors.New("shader: invalid manifest")

	// ErrUnknownPipeline is returned for names missing from the library.
	ErrUnknownPipeline = errors.New("shader: unknown pipeline")

	// ErrNotWatchable is returned by Watch on embedded libraries.
	ErrNotWatchable = errors.New("shader: library is not backed by a directory")
)

// Kind is the pipeline kind.
type Kind string

// Pipeline kinds.
const (
	KindCompute  Kind = "compute"
	KindGraphics Kind = "graphics"
)

// Variant is a named set of source substitutions.
type Variant struct {
	Name    string            `yaml:"name"`
	Defines map[string]string `yaml:"defines"`
}

// PipelineDesc is one manifest entry.
type PipelineDesc struct {
	Name   string `yaml:"name"`
	Kind   Kind   `yaml:"kind"`
	Source string `yaml:"source"`

	// Entry is the compute entry point, "main" when empty.
	Entry     string    `yaml:"entry,omitempty"`
	GroupSize [3]uint32 `yaml:"group_size,omitempty,flow"`

	Vertex       string   `yaml:"vertex,omitempty"`
	Fragment     string   `yaml:"fragment,omitempty"`
	ColorFormats []string `yaml:"color_formats,omitempty,flow"`
	DepthFormat  string   `yaml:"depth_format,omitempty"`
	DepthTest    bool     `yaml:"depth_test,omitempty"`
	DepthWrite   bool     `yaml:"depth_write,omitempty"`

	PushConstants uint32    `yaml:"push_constants,omitempty"`
	Variants      []Variant `yaml:"variants,omitempty"`
}

// Manifest lists the pipelines of a library.
type Manifest struct {
	Pipelines []PipelineDesc `yaml:"pipelines"`
}

// ParseManifest decodes and validates a YAML manifest.
func ParseManifest(data []byte) (Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}
	if err := m.Validate(); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// Validate checks names, kinds and formats.
func (m Manifest) Validate() error {
	seen := make(map[string]bool, len(m.Pipelines))
	for i, p := range m.Pipelines {
		if p.Name == "" {
			return fmt.Errorf("%w: pipeline %d has no name", ErrInvalidManifest, i)
		}
		if seen[p.Name] {
			return fmt.Errorf("%w: duplicate pipeline %q", ErrInvalidManifest, p.Name)
		}
		seen[p.Name] = true
		if p.Source == "" {
			return fmt.Errorf("%w: %s: no source", ErrInvalidManifest, p.Name)
		}
		switch p.Kind {
		case KindCompute:
		case KindGraphics:
			if p.Vertex == "" {
				return fmt.Errorf("%w: %s: graphics pipeline without vertex entry", ErrInvalidManifest, p.Name)
			}
			if _, err := p.formats(); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: %s: kind %q", ErrInvalidManifest, p.Name, p.Kind)
		}
		variants := make(map[string]bool, len(p.Variants))
		for _, v := range p.Variants {
			if v.Name == "" || variants[v.Name] {
				return fmt.Errorf("%w: %s: variant %q", ErrInvalidManifest, p.Name, v.Name)
			}
			variants[v.Name] = true
		}
	}
	return nil
}

func (p PipelineDesc) formats() ([]gputypes.TextureFormat, error) {
	colors := make([]gputypes.TextureFormat, 0, len(p.ColorFormats))
	for _, name := range p.ColorFormats {
		f, ok := rhi.ParseFormat(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s: color format %q", ErrInvalidManifest, p.Name, name)
		}
		colors = append(colors, f)
	}
	if p.DepthFormat != "" {
		if f, ok := rhi.ParseFormat(p.DepthFormat); !ok || !rhi.IsDepthFormat(f) {
			return nil, fmt.Errorf("%w: %s: depth format %q", ErrInvalidManifest, p.Name, p.DepthFormat)
		}
	}
	return colors, nil
}

// key is the library key of a pipeline variant.
func key(name, variant string) string {
	if variant == "" {
		return name
	}
	return name + "/" + variant
}

// Expand applies the variant substitutions to source. Defines are applied
// in name order.
func (v Variant) Expand(source string) string {
	if len(v.Defines) == 0 {
		return source
	}
	names := make([]string, 0, len(v.Defines))
	for name := range v.Defines {
		names = append(names, name)
	}
	sort.Strings(names)
	pairs := make([]string, 0, 2*len(names))
	for _, name := range names {
		pairs = append(pairs, "${"+name+"}", v.Defines[name])
	}
	return strings.NewReplacer(pairs...).Replace(source)
}

// computeInfo builds the device description of a compute variant.
func (p PipelineDesc) computeInfo(v Variant, source string) rhi.ComputePipelineCreateInfo {
	return rhi.ComputePipelineCreateInfo{
		Name:             key(p.Name, v.Name),
		Source:           v.Expand(source),
		EntryPoint:       p.Entry,
		GroupSize:        p.GroupSize,
		PushConstantSize: p.PushConstants,
	}
}

// graphicsInfo builds the device description of a graphics variant. The
// formats were checked by Validate.
func (p PipelineDesc) graphicsInfo(v Variant, source string) rhi.GraphicsPipelineCreateInfo {
	colors, _ := p.formats()
	depth, _ := rhi.ParseFormat(p.DepthFormat)
	fragment := p.Fragment
	if fragment == "" && len(colors) > 0 {
		fragment = "fs_main"
	}
	return rhi.GraphicsPipelineCreateInfo{
		Name:             key(p.Name, v.Name),
		Source:           v.Expand(source),
		VertexEntry:      p.Vertex,
		FragmentEntry:    fragment,
		ColorFormats:     colors,
		DepthFormat:      depth,
		DepthTest:        p.DepthTest,
		DepthWrite:       p.DepthWrite,
		PushConstantSize: p.PushConstants,
	}
}

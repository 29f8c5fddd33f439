// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package halrhi

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/ren/rhi"
)

type halPipeline struct {
	module  hal.ShaderModule
	layout  hal.PipelineLayout
	compute hal.ComputePipeline
	render  hal.RenderPipeline
}

func pipelineOf(p *rhi.Pipeline) *halPipeline {
	hp, ok := p.Backend.(*halPipeline)
	if !ok {
		panic(ErrForeignResource)
	}
	return hp
}

// CompileWGSL compiles WGSL source to SPIR-V words.
func CompileWGSL(source string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("halrhi: compile shader: %w", err)
	}

	// SPIR-V is little-endian 32-bit words
	code := make([]uint32, len(spirvBytes)/4)
	for i := range code {
		code[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return code, nil
}

// prepare compiles source and creates the module and the layout holding
// the push constant group.
func (d *Device) prepare(name, source string) (*halPipeline, error) {
	code, err := CompileWGSL(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", rhi.ErrInvalidCreateInfo, name, err)
	}
	module, err := d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  name,
		Source: hal.ShaderSource{SPIRV: code},
	})
	if err != nil {
		return nil, translate("create shader module "+name, err)
	}
	layout, err := d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            name,
		BindGroupLayouts: []hal.BindGroupLayout{d.pushLayout},
	})
	if err != nil {
		d.device.DestroyShaderModule(module)
		return nil, translate("create pipeline layout "+name, err)
	}
	return &halPipeline{module: module, layout: layout}, nil
}

func (d *Device) discard(hp *halPipeline) {
	if hp.layout != nil {
		d.device.DestroyPipelineLayout(hp.layout)
	}
	if hp.module != nil {
		d.device.DestroyShaderModule(hp.module)
	}
}

// CreateComputePipeline implements rhi.Device.
func (d *Device) CreateComputePipeline(info rhi.ComputePipelineCreateInfo) (*rhi.Pipeline, error) {
	if info.PushConstantSize > MaxPushConstantSize {
		return nil, fmt.Errorf("%w: %s: %d bytes of push constants", rhi.ErrInvalidCreateInfo, info.Name, info.PushConstantSize)
	}
	hp, err := d.prepare(info.Name, info.Source)
	if err != nil {
		return nil, err
	}
	entry := info.EntryPoint
	if entry == "" {
		entry = "main"
	}
	hp.compute, err = d.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  info.Name,
		Layout: hp.layout,
		Compute: hal.ComputeState{
			Module:     hp.module,
			EntryPoint: entry,
		},
	})
	if err != nil {
		d.discard(hp)
		return nil, translate("create compute pipeline "+info.Name, err)
	}
	d.pipelines++
	slogger().Debug("halrhi: compute pipeline created", "name", info.Name, "group", info.GroupSize)
	return &rhi.Pipeline{
		Name:             info.Name,
		BindPoint:        rhi.BindPointCompute,
		GroupSize:        info.GroupSize,
		PushConstantSize: info.PushConstantSize,
		Backend:          hp,
	}, nil
}

// CreateGraphicsPipeline implements rhi.Device. Pipelines draw triangle
// lists without vertex buffers.
func (d *Device) CreateGraphicsPipeline(info rhi.GraphicsPipelineCreateInfo) (*rhi.Pipeline, error) {
	if info.PushConstantSize > MaxPushConstantSize {
		return nil, fmt.Errorf("%w: %s: %d bytes of push constants", rhi.ErrInvalidCreateInfo, info.Name, info.PushConstantSize)
	}
	hp, err := d.prepare(info.Name, info.Source)
	if err != nil {
		return nil, err
	}

	desc := &hal.RenderPipelineDescriptor{
		Label:  info.Name,
		Layout: hp.layout,
		Vertex: hal.VertexState{
			Module:     hp.module,
			EntryPoint: info.VertexEntry,
		},
		Primitive:   gputypes.PrimitiveState{Topology: gputypes.PrimitiveTopologyTriangleList},
		Multisample: gputypes.DefaultMultisampleState(),
	}
	if len(info.ColorFormats) > 0 {
		targets := make([]gputypes.ColorTargetState, 0, len(info.ColorFormats))
		for _, f := range info.ColorFormats {
			targets = append(targets, gputypes.ColorTargetState{Format: f, WriteMask: gputypes.ColorWriteMaskAll})
		}
		desc.Fragment = &hal.FragmentState{
			Module:     hp.module,
			EntryPoint: info.FragmentEntry,
			Targets:    targets,
		}
	}
	if info.DepthFormat != gputypes.TextureFormatUndefined {
		compare := gputypes.CompareFunctionAlways
		if info.DepthTest {
			compare = gputypes.CompareFunctionLess
		}
		desc.DepthStencil = &hal.DepthStencilState{
			Format:            info.DepthFormat,
			DepthWriteEnabled: info.DepthWrite,
			DepthCompare:      compare,
		}
	}

	hp.render, err = d.device.CreateRenderPipeline(desc)
	if err != nil {
		d.discard(hp)
		return nil, translate("create render pipeline "+info.Name, err)
	}
	d.pipelines++
	slogger().Debug("halrhi: graphics pipeline created", "name", info.Name, "targets", len(info.ColorFormats))
	return &rhi.Pipeline{
		Name:             info.Name,
		BindPoint:        rhi.BindPointGraphics,
		PushConstantSize: info.PushConstantSize,
		Backend:          hp,
	}, nil
}

// DestroyPipeline implements rhi.Device.
func (d *Device) DestroyPipeline(p *rhi.Pipeline) {
	hp := pipelineOf(p)
	if hp.compute != nil {
		d.device.DestroyComputePipeline(hp.compute)
	}
	if hp.render != nil {
		d.device.DestroyRenderPipeline(hp.render)
	}
	d.discard(hp)
	p.Backend = nil
	d.pipelines--
}

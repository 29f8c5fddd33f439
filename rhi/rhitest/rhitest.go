// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package rhitest provides an in-memory rhi.Device that records every
// resource operation and command, for tests of code built on package rhi.
package rhitest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/ren/rhi"
)

// ErrInjected is returned by creation calls failed through Device.FailNext.
var ErrInjected = errors.New("rhitest: injected failure")

// Device is a recording rhi.Device. Buffers in CPU-visible heaps get a real
// byte slice as their mapping; all other resources are bookkeeping only.
//
// Device is safe for concurrent use.
type Device struct {
	mu sync.Mutex

	nextIndex  uint32
	live       map[rhi.Resource]struct{}
	names      map[rhi.Resource]string
	destroyed  []rhi.Resource
	failNext   int
	submission uint64
	lists      []*CommandList

	created   int
	waitIdles int
}

// NewDevice returns an empty recording device.
func NewDevice() *Device {
	return &Device{
		live:  make(map[rhi.Resource]struct{}),
		names: make(map[rhi.Resource]string),
	}
}

// FailNext makes the next n creation calls fail with ErrInjected.
func (d *Device) FailNext(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failNext = n
}

func (d *Device) fail() bool {
	if d.failNext > 0 {
		d.failNext--
		return true
	}
	return false
}

func (d *Device) track(r rhi.Resource) uint32 {
	idx := d.nextIndex
	d.nextIndex++
	d.live[r] = struct{}{}
	d.created++
	return idx
}

// CreateBuffer implements rhi.Device.
func (d *Device) CreateBuffer(info rhi.BufferCreateInfo) (*rhi.Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail() {
		return nil, ErrInjected
	}
	if info.Size == 0 {
		return nil, fmt.Errorf("rhitest: zero-sized buffer: %w", rhi.ErrInvalidCreateInfo)
	}
	b := &rhi.Buffer{BufferCreateInfo: info}
	if info.Heap.IsCPUVisible() {
		b.Data = make([]byte, info.Size)
	}
	b.BindlessIndex = d.track(b)
	return b, nil
}

// CreateImage implements rhi.Device.
func (d *Device) CreateImage(info rhi.ImageCreateInfo) (*rhi.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail() {
		return nil, ErrInjected
	}
	if info.Width == 0 || info.Height == 0 {
		return nil, fmt.Errorf("rhitest: empty image extent: %w", rhi.ErrInvalidCreateInfo)
	}
	img := &rhi.Image{ImageCreateInfo: info.Normalized()}
	img.BindlessIndex = d.track(img)
	return img, nil
}

// CreateSampler implements rhi.Device.
func (d *Device) CreateSampler(info rhi.SamplerCreateInfo) (*rhi.Sampler, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail() {
		return nil, ErrInjected
	}
	s := &rhi.Sampler{SamplerCreateInfo: info}
	s.BindlessIndex = d.track(s)
	return s, nil
}

func (d *Device) destroy(r rhi.Resource) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.live[r]; !ok {
		panic(fmt.Sprintf("rhitest: destroy of unknown or already destroyed resource %T", r))
	}
	delete(d.live, r)
	d.destroyed = append(d.destroyed, r)
}

// DestroyBuffer implements rhi.Device.
func (d *Device) DestroyBuffer(b *rhi.Buffer) { d.destroy(b) }

// DestroyImage implements rhi.Device.
func (d *Device) DestroyImage(img *rhi.Image) { d.destroy(img) }

// DestroySampler implements rhi.Device.
func (d *Device) DestroySampler(s *rhi.Sampler) { d.destroy(s) }

// NameResource implements rhi.Device.
func (d *Device) NameResource(r rhi.Resource, name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.names[r] = name
	switch v := r.(type) {
	case *rhi.Buffer:
		v.Name = name
	case *rhi.Image:
		v.Name = name
	case *rhi.Sampler:
		v.Name = name
	case *rhi.Pipeline:
		v.Name = name
	}
}

// CreateComputePipeline implements rhi.Device.
func (d *Device) CreateComputePipeline(info rhi.ComputePipelineCreateInfo) (*rhi.Pipeline, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail() {
		return nil, ErrInjected
	}
	p := &rhi.Pipeline{
		Name:             info.Name,
		BindPoint:        rhi.BindPointCompute,
		GroupSize:        info.GroupSize,
		PushConstantSize: info.PushConstantSize,
	}
	d.track(p)
	return p, nil
}

// CreateGraphicsPipeline implements rhi.Device.
func (d *Device) CreateGraphicsPipeline(info rhi.GraphicsPipelineCreateInfo) (*rhi.Pipeline, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail() {
		return nil, ErrInjected
	}
	p := &rhi.Pipeline{
		Name:             info.Name,
		BindPoint:        rhi.BindPointGraphics,
		PushConstantSize: info.PushConstantSize,
	}
	d.track(p)
	return p, nil
}

// DestroyPipeline implements rhi.Device.
func (d *Device) DestroyPipeline(p *rhi.Pipeline) { d.destroy(p) }

// CreateCommandList implements rhi.Device.
func (d *Device) CreateCommandList(queue rhi.QueueType) (rhi.CommandList, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cl := &CommandList{Queue: queue}
	d.lists = append(d.lists, cl)
	return cl, nil
}

// Submit implements rhi.Device. Submissions complete immediately.
func (d *Device) Submit(lists ...rhi.CommandList) (uint64, error) {
	for _, l := range lists {
		cl, ok := l.(*CommandList)
		if !ok {
			return 0, fmt.Errorf("rhitest: foreign command list %T", l)
		}
		if !cl.ended {
			if err := cl.End(); err != nil {
				return 0, err
			}
		}
		cl.Submitted = true
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.submission++
	return d.submission, nil
}

// WaitForSubmission implements rhi.Device.
func (d *Device) WaitForSubmission(ctx context.Context, index uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if index > d.submission {
		return fmt.Errorf("rhitest: submission %d was never made", index)
	}
	return nil
}

// WaitIdle implements rhi.Device.
func (d *Device) WaitIdle() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.waitIdles++
	return nil
}

// IsLive reports whether r was created and not yet destroyed.
func (d *Device) IsLive(r rhi.Resource) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.live[r]
	return ok
}

// LiveCount returns the number of resources not yet destroyed.
func (d *Device) LiveCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.live)
}

// Created returns the number of successful creation calls.
func (d *Device) Created() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.created
}

// Destroyed returns the destroyed resources in destruction order.
func (d *Device) Destroyed() []rhi.Resource {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]rhi.Resource(nil), d.destroyed...)
}

// NameOf returns the debug name applied to r.
func (d *Device) NameOf(r rhi.Resource) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.names[r]
}

// CommandLists returns every list created so far.
func (d *Device) CommandLists() []*CommandList {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*CommandList(nil), d.lists...)
}

// WaitIdleCount returns how often WaitIdle was called.
func (d *Device) WaitIdleCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.waitIdles
}

var _ rhi.Device = (*Device)(nil)

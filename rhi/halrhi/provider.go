// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package halrhi

import (
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// halProvider is implemented by hosts sharing their hal device, such as a
// gogpu application.
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

// FromProvider wraps the device of a host application. The provider must
// implement HalDevice() any and HalQueue() any returning hal.Device and
// hal.Queue; a gpucontext.DeviceProvider whose Device and Queue do so is
// accepted as well. The host keeps ownership of the device.
func FromProvider(provider any, opts ...Option) (*Device, error) {
	hp, ok := provider.(halProvider)
	if !ok {
		dp, isDP := provider.(gpucontext.DeviceProvider)
		if !isDP {
			return nil, ErrNoProvider
		}
		dev, devOK := dp.Device().(halProvider)
		if !devOK {
			return nil, ErrNoProvider
		}
		hp = dev
		if q, qOK := dp.Queue().(halProvider); qOK {
			hp = splitProvider{device: dev, queue: q}
		}
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNoProvider)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNoProvider)
	}
	slogger().Info("halrhi: using shared GPU device")
	return New(device, queue, opts...)
}

// splitProvider joins a device and a queue exposed by separate objects.
type splitProvider struct {
	device halProvider
	queue  halProvider
}

func (p splitProvider) HalDevice() any { return p.device.HalDevice() }
func (p splitProvider) HalQueue() any  { return p.queue.HalQueue() }

// Open creates an instance of backend, opens its first adapter with
// default limits and wraps the device. Close destroys the device and the
// instance.
func Open(backend hal.Backend, opts ...Option) (*Device, error) {
	instance, err := backend.CreateInstance(nil)
	if err != nil {
		return nil, translate("create instance", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoAdapter
	}
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, translate("open adapter", err)
	}

	d, err := New(openDev.Device, openDev.Queue, opts...)
	if err != nil {
		openDev.Device.Destroy()
		instance.Destroy()
		return nil, err
	}
	d.release = func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	slogger().Info("halrhi: device opened",
		"backend", backend.Variant().String(), "adapter", adapters[0].Info.Name)
	return d, nil
}

// OpenBest opens the most capable registered backend.
func OpenBest(opts ...Option) (*Device, error) {
	backend, err := hal.SelectBestBackend()
	if err != nil {
		return nil, translate("select backend", err)
	}
	return Open(backend, opts...)
}

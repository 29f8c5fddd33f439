// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package cache provides a generic intern cache for device objects.
//
// A Cache maps a comparable description to the object created from it, so
// equal descriptions share one object:
//
//	samplers := cache.New[rhi.SamplerCreateInfo, *rhi.Sampler](0)
//	s, err := samplers.GetOrCreate(info, func() (*rhi.Sampler, error) {
//		return device.CreateSampler(info)
//	})
//
// A positive soft limit turns the cache into an LRU: when the limit is
// exceeded the least recently used quarter is dropped. Bounded caches hold
// values that need no release, such as validation results.
//
// Cache is safe for concurrent use and must not be copied after creation.
package cache

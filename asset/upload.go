// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package asset

import (
	"fmt"

	"github.com/gogpu/ren"
	"github.com/gogpu/ren/rhi"
)

// ModelBuffers are the GPU buffers of an uploaded model. Sections the
// model does not have are empty views.
type ModelBuffers struct {
	Positions  ren.Buffer
	Attributes ren.Buffer
	Indices    ren.Buffer
	Materials  ren.Buffer
	Instances  ren.Buffer
}

// UploadTexture creates the image t.Name on bb and stages its mips on tc.
func UploadTexture(bb *ren.Blackboard, tc *ren.TransferContext, t *Texture) (ren.Image, error) {
	if err := t.Validate(); err != nil {
		return ren.Image{}, err
	}
	img, err := bb.CreateImage(t.Name, t.CreateInfo())
	if err != nil {
		return ren.Image{}, err
	}
	if err := tc.UploadImage(img, t.MipData()); err != nil {
		return ren.Image{}, fmt.Errorf("asset: upload %s: %w", t.Name, err)
	}
	return img, nil
}

// UploadModel creates the vertex and index buffers of m on bb, named
// after the model with the suffixes ":position", ":attributes",
// ":indices", ":materials" and ":instances", and stages their contents on
// tc.
func UploadModel(bb *ren.Blackboard, tc *ren.TransferContext, m *Model) (ModelBuffers, error) {
	if err := m.Validate(); err != nil {
		return ModelBuffers{}, err
	}
	var out ModelBuffers
	sections := []struct {
		suffix string
		data   []byte
		dst    *ren.Buffer
	}{
		{":position", m.PositionBytes(), &out.Positions},
		{":attributes", m.AttributeBytes(), &out.Attributes},
		{":indices", m.IndexBytes(), &out.Indices},
		{":materials", m.MaterialBytes(), &out.Materials},
		{":instances", m.InstanceBytes(), &out.Instances},
	}
	for _, s := range sections {
		if len(s.data) == 0 {
			continue
		}
		name := m.Name + s.suffix
		b, err := bb.CreateBuffer(name, rhi.BufferCreateInfo{Size: uint64(len(s.data)), Heap: rhi.HeapGPU})
		if err != nil {
			return ModelBuffers{}, err
		}
		if err := tc.UploadBuffer(b, s.data, 0); err != nil {
			return ModelBuffers{}, fmt.Errorf("asset: upload %s: %w", name, err)
		}
		*s.dst = b
	}
	return out, nil
}

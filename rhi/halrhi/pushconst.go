// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package halrhi

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Push constants are emulated with a uniform buffer bound at group 0 with
// a dynamic offset. Each SetPushConstants call takes a new aligned slot.
const (
	// MaxPushConstantSize is the largest push constant block.
	MaxPushConstantSize = 256

	pushAlignment = 256
	pushBlockSize = 64 << 10
)

// pushBlock is one uniform buffer of push constant slots.
type pushBlock struct {
	buffer hal.Buffer
	group  hal.BindGroup
	data   []byte
	used   uint32
}

func (d *Device) newPushBlock() (*pushBlock, error) {
	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "halrhi_push_constants",
		Size:  pushBlockSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, translate("create push constant buffer", err)
	}
	group, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "halrhi_push_constants",
		Layout: d.pushLayout,
		Entries: []gputypes.BindGroupEntry{{
			Binding: 0,
			Resource: gputypes.BufferBinding{
				Buffer: buf.NativeHandle(),
				Size:   MaxPushConstantSize,
			},
		}},
	})
	if err != nil {
		d.device.DestroyBuffer(buf)
		return nil, translate("create push constant group", err)
	}
	slogger().Debug("halrhi: push constant block allocated", "size", pushBlockSize)
	return &pushBlock{buffer: buf, group: group, data: make([]byte, pushBlockSize)}, nil
}

// acquireBlock returns a free block, allocating one when none is left.
func (d *Device) acquireBlock() (*pushBlock, error) {
	if n := len(d.freeBlocks); n > 0 {
		blk := d.freeBlocks[n-1]
		d.freeBlocks[n-1] = nil
		d.freeBlocks = d.freeBlocks[:n-1]
		return blk, nil
	}
	return d.newPushBlock()
}

// pushSlot is a bound push constant range.
type pushSlot struct {
	group  hal.BindGroup
	offset uint32
}

// push copies data into the list's current block and returns its slot.
func (cl *commandList) push(data []byte) (pushSlot, error) {
	if len(data) > MaxPushConstantSize {
		return pushSlot{}, fmt.Errorf("halrhi: %d bytes of push constants, limit %d", len(data), MaxPushConstantSize)
	}
	var blk *pushBlock
	if n := len(cl.blocks); n > 0 && cl.blocks[n-1].used+pushAlignment <= pushBlockSize {
		blk = cl.blocks[n-1]
	} else {
		var err error
		if blk, err = cl.device.acquireBlock(); err != nil {
			return pushSlot{}, err
		}
		cl.blocks = append(cl.blocks, blk)
	}
	off := blk.used
	copy(blk.data[off:off+pushAlignment], data)
	clear(blk.data[off+uint32(len(data)) : off+pushAlignment]) //nolint:gosec // G115: bounded by MaxPushConstantSize
	blk.used += pushAlignment
	return pushSlot{group: blk.group, offset: off}, nil
}

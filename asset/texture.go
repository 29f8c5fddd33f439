// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package asset

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"image"
	"io"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/ren/rhi"
)

const (
	// TextureMagic identifies RTEX containers.
	TextureMagic = 0x58455452
	// TextureExtension is the file extension of RTEX containers.
	TextureExtension = ".rentex"
	// MaxMipLevels is the largest mip count of a texture.
	MaxMipLevels = 14

	version = 1
)

type mipExtent struct {
	Width  uint32
	Height uint32
}

// textureHeader is the on-disk RTEX header.
type textureHeader struct {
	Magic    uint32
	Version  uint32
	MipCount uint32
	Format   uint32
	Name     nameField
	Hash     [HashFieldSize]byte
	Mips     [MaxMipLevels]mipExtent
}

// Mip is one level of a texture.
type Mip struct {
	Width  uint32
	Height uint32
	Data   []byte
}

// Texture is the content of an RTEX container.
type Texture struct {
	Name   string
	Hash   [HashFieldSize]byte
	Format gputypes.TextureFormat
	Mips   []Mip
}

// mipSize returns the byte size of a w×h level of f.
func mipSize(f gputypes.TextureFormat, w, h uint32) int {
	return int(rhi.FormatInfo(f).Bytes) * int(w) * int(h)
}

// ReadTexture decodes an RTEX container.
func ReadTexture(r io.Reader) (*Texture, error) {
	var h textureHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, truncated("texture header", err)
	}
	if h.Magic != TextureMagic {
		return nil, fmt.Errorf("%w: %#08x is not a texture", ErrBadMagic, h.Magic)
	}
	if h.Version != version {
		return nil, fmt.Errorf("%w: texture version %d", ErrUnsupportedVersion, h.Version)
	}
	if h.MipCount == 0 || h.MipCount > MaxMipLevels {
		return nil, fmt.Errorf("%w: %d mips", ErrInvalid, h.MipCount)
	}
	format := gputypes.TextureFormat(h.Format)
	if rhi.FormatInfo(format).Bytes == 0 {
		return nil, fmt.Errorf("%w: texture format %d", ErrInvalid, h.Format)
	}

	t := &Texture{
		Name:   h.Name.String(),
		Hash:   h.Hash,
		Format: format,
		Mips:   make([]Mip, h.MipCount),
	}
	for i := range t.Mips {
		ext := h.Mips[i]
		if ext.Width == 0 || ext.Height == 0 || ext.Width > 1<<15 || ext.Height > 1<<15 {
			return nil, fmt.Errorf("%w: mip %d is %dx%d", ErrInvalid, i, ext.Width, ext.Height)
		}
		data := make([]byte, mipSize(format, ext.Width, ext.Height))
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, truncated(fmt.Sprintf("mip %d", i), err)
		}
		t.Mips[i] = Mip{Width: ext.Width, Height: ext.Height, Data: data}
	}
	return t, nil
}

// Validate checks the mip chain against the format.
func (t *Texture) Validate() error {
	if len(t.Mips) == 0 || len(t.Mips) > MaxMipLevels {
		return fmt.Errorf("%w: %d mips", ErrInvalid, len(t.Mips))
	}
	if rhi.FormatInfo(t.Format).Bytes == 0 {
		return fmt.Errorf("%w: texture format %d", ErrInvalid, t.Format)
	}
	for i, m := range t.Mips {
		if want := mipSize(t.Format, m.Width, m.Height); len(m.Data) != want {
			return fmt.Errorf("%w: mip %d holds %d bytes, want %d", ErrInvalid, i, len(m.Data), want)
		}
	}
	return nil
}

// WriteTo encodes t as an RTEX container.
func (t *Texture) WriteTo(w io.Writer) (int64, error) {
	if err := t.Validate(); err != nil {
		return 0, err
	}
	name, err := makeName(t.Name)
	if err != nil {
		return 0, err
	}
	h := textureHeader{
		Magic:    TextureMagic,
		Version:  version,
		MipCount: uint32(len(t.Mips)), //nolint:gosec // G115: at most MaxMipLevels
		Format:   uint32(t.Format),
		Name:     name,
		Hash:     t.Hash,
	}
	for i, m := range t.Mips {
		h.Mips[i] = mipExtent{Width: m.Width, Height: m.Height}
	}

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, &h); err != nil {
		return 0, err
	}
	n, err := w.Write(buf.Bytes())
	total := int64(n)
	if err != nil {
		return total, err
	}
	for _, m := range t.Mips {
		n, err = w.Write(m.Data)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// CreateInfo describes a sampled image holding the texture.
func (t *Texture) CreateInfo() rhi.ImageCreateInfo {
	return rhi.ImageCreateInfo{
		Format:          t.Format,
		Width:           t.Mips[0].Width,
		Height:          t.Mips[0].Height,
		MipLevels:       uint32(len(t.Mips)), //nolint:gosec // G115: at most MaxMipLevels
		Usage:           rhi.ImageUsageSampled,
		PrimaryViewType: rhi.ViewTexture2D,
	}
}

// MipData returns the mip payloads in level order, as taken by
// ren.TransferContext.UploadImage.
func (t *Texture) MipData() [][]byte {
	data := make([][]byte, len(t.Mips))
	for i, m := range t.Mips {
		data[i] = m.Data
	}
	return data
}

// TextureFromImage converts img to an RGBA8 texture. With mips set the
// full chain is generated. The hash identifier is the SHA-256 of the base
// level.
func TextureFromImage(name string, img image.Image, format gputypes.TextureFormat, mips bool) (*Texture, error) {
	if format != gputypes.TextureFormatRGBA8Unorm && format != gputypes.TextureFormatRGBA8UnormSrgb {
		return nil, fmt.Errorf("%w: images convert to RGBA8 formats only", ErrInvalid)
	}
	levels := GenerateMips(img)
	if !mips {
		levels = levels[:1]
	}
	t := &Texture{Name: name, Format: format, Mips: make([]Mip, len(levels))}
	for i, l := range levels {
		b := l.Bounds()
		t.Mips[i] = Mip{Width: uint32(b.Dx()), Height: uint32(b.Dy()), Data: l.Pix} //nolint:gosec // G115: image bounds are positive
	}
	t.Hash = sha256.Sum256(t.Mips[0].Data)
	return t, nil
}

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package asset_test

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/ren"
	"github.com/gogpu/ren/asset"
	"github.com/gogpu/ren/rhi"
	"github.com/gogpu/ren/rhi/rhitest"
)

func checker(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			if (x+y)%2 == 0 {
				img.Set(x, y, color.RGBA{R: 255, A: 255})
			} else {
				img.Set(x, y, color.RGBA{B: 255, A: 255})
			}
		}
	}
	return img
}

func testModel() *asset.Model {
	return &asset.Model{
		Name: "triangle",
		URIs: []string{"albedo.rentex"},
		Materials: []asset.Material{{
			BaseColorFactor:      [4]float32{1, 1, 1, 1},
			Roughness:            0.5,
			AlbedoURI:            0,
			NormalURI:            asset.NoReference,
			MetallicRoughnessURI: asset.NoReference,
			EmissiveURI:          asset.NoReference,
		}},
		Submeshes: []asset.Submesh{{
			Attributes:   asset.AttributeNormal | asset.AttributeTexCoords,
			PositionEnd:  3,
			AttributeEnd: 3,
			IndexEnd:     3,
		}},
		Instances: []asset.Instance{
			{SubmeshEnd: 1, Parent: asset.NoParent, Rotation: [4]float32{0, 0, 0, 1}, Scale: [3]float32{1, 1, 1}},
			{SubmeshEnd: 1, Parent: 0, Rotation: [4]float32{0, 0, 0, 1}, Scale: [3]float32{2, 2, 2}},
		},
		Positions:  [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Attributes: make([]asset.VertexAttributes, 3),
		Indices:    []uint32{0, 1, 2},
	}
}

func TestGenerateMips(t *testing.T) {
	tests := []struct {
		w, h  int
		sizes [][2]int
	}{
		{4, 4, [][2]int{{4, 4}, {2, 2}, {1, 1}}},
		{8, 2, [][2]int{{8, 2}, {4, 1}, {2, 1}, {1, 1}}},
		{1, 1, [][2]int{{1, 1}}},
	}
	for _, tt := range tests {
		levels := asset.GenerateMips(checker(tt.w, tt.h))
		require.Len(t, levels, len(tt.sizes))
		for i, l := range levels {
			assert.Equal(t, tt.sizes[i][0], l.Bounds().Dx(), "level %d width", i)
			assert.Equal(t, tt.sizes[i][1], l.Bounds().Dy(), "level %d height", i)
		}
	}

	levels := asset.GenerateMips(checker(1<<15, 1))
	assert.Len(t, levels, asset.MaxMipLevels)
}

func TestTextureRoundTrip(t *testing.T) {
	tex, err := asset.TextureFromImage("checker", checker(8, 8), gputypes.TextureFormatRGBA8UnormSrgb, true)
	require.NoError(t, err)
	require.Len(t, tex.Mips, 4)

	var buf bytes.Buffer
	n, err := tex.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)
	assert.Equal(t, 320+4*(64+16+4+1), buf.Len())
	assert.Equal(t, uint32(asset.TextureMagic), binary.LittleEndian.Uint32(buf.Bytes()))

	got, err := asset.ReadTexture(&buf)
	require.NoError(t, err)
	assert.Equal(t, tex, got)

	info := got.CreateInfo()
	assert.Equal(t, uint32(8), info.Width)
	assert.Equal(t, uint32(4), info.MipLevels)
	assert.Equal(t, rhi.ImageUsageSampled, info.Usage)
	assert.Len(t, got.MipData(), 4)
}

func TestTextureFromImageRejectsFormat(t *testing.T) {
	_, err := asset.TextureFromImage("hdr", checker(2, 2), gputypes.TextureFormatRGBA16Float, false)
	require.ErrorIs(t, err, asset.ErrInvalid)
}

func TestReadTextureErrors(t *testing.T) {
	tex, err := asset.TextureFromImage("checker", checker(4, 4), gputypes.TextureFormatRGBA8Unorm, false)
	require.NoError(t, err)
	var buf bytes.Buffer
	_, err = tex.WriteTo(&buf)
	require.NoError(t, err)
	valid := buf.Bytes()

	corrupt := func(off int, v uint32) []byte {
		b := bytes.Clone(valid)
		binary.LittleEndian.PutUint32(b[off:], v)
		return b
	}
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, asset.ErrTruncated},
		{"bad magic", corrupt(0, asset.ModelMagic), asset.ErrBadMagic},
		{"version", corrupt(4, 2), asset.ErrUnsupportedVersion},
		{"no mips", corrupt(8, 0), asset.ErrInvalid},
		{"too many mips", corrupt(8, asset.MaxMipLevels+1), asset.ErrInvalid},
		{"short payload", valid[:len(valid)-1], asset.ErrTruncated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := asset.ReadTexture(bytes.NewReader(tt.data))
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestTextureValidate(t *testing.T) {
	tex := &asset.Texture{Name: "bad", Format: gputypes.TextureFormatRGBA8Unorm,
		Mips: []asset.Mip{{Width: 2, Height: 2, Data: make([]byte, 15)}}}
	require.ErrorIs(t, tex.Validate(), asset.ErrInvalid)
	_, err := tex.WriteTo(&bytes.Buffer{})
	require.ErrorIs(t, err, asset.ErrInvalid)

	tex.Mips[0].Data = make([]byte, 16)
	tex.Name = string(make([]byte, asset.NameFieldSize))
	_, err = tex.WriteTo(&bytes.Buffer{})
	require.ErrorIs(t, err, asset.ErrInvalid, "name without room for the terminator")
}

func TestModelRoundTrip(t *testing.T) {
	m := testModel()
	var buf bytes.Buffer
	n, err := m.WriteTo(&buf)
	require.NoError(t, err)

	off := m.Offsets()
	assert.Equal(t, off[8], n)
	assert.Equal(t, int64(200), off[0], "header size")
	assert.Equal(t, off[0]+160, off[1])
	assert.Equal(t, off[1]+56, off[2], "material size")
	assert.Equal(t, off[2]+40, off[3], "submesh size")
	assert.Equal(t, off[3]+2*52, off[4], "instance size")
	assert.Equal(t, off[4]+3*12, off[5])
	assert.Equal(t, off[5]+3*40, off[6], "vertex attribute size")

	got, err := asset.ReadModel(&buf)
	require.NoError(t, err)
	assert.Equal(t, m.Name, got.Name)
	assert.Equal(t, m.URIs, got.URIs)
	assert.Equal(t, m.Materials, got.Materials)
	assert.Equal(t, m.Submeshes, got.Submeshes)
	assert.Equal(t, m.Instances, got.Instances)
	assert.Equal(t, m.Positions, got.Positions)
	assert.Equal(t, m.Indices, got.Indices)
	assert.Empty(t, got.Skins)
	assert.True(t, got.Submeshes[0].Attributes.Has(asset.AttributeTexCoords))
	assert.False(t, got.Submeshes[0].Attributes.Has(asset.AttributeJoints))
}

func TestModelValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(m *asset.Model)
	}{
		{"material index", func(m *asset.Model) { m.Submeshes[0].Material = 1 }},
		{"position range", func(m *asset.Model) { m.Submeshes[0].PositionEnd = 4 }},
		{"inverted range", func(m *asset.Model) { m.Submeshes[0].IndexStart = 2; m.Submeshes[0].IndexEnd = 1 }},
		{"uri", func(m *asset.Model) { m.Materials[0].NormalURI = 3 }},
		{"instance submeshes", func(m *asset.Model) { m.Instances[0].SubmeshEnd = 2 }},
		{"forward parent", func(m *asset.Model) { m.Instances[0].Parent = 1 }},
		{"index", func(m *asset.Model) { m.Indices[2] = 3 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := testModel()
			tt.mutate(m)
			require.ErrorIs(t, m.Validate(), asset.ErrInvalid)
		})
	}
}

func TestReadModelErrors(t *testing.T) {
	var buf bytes.Buffer
	_, err := testModel().WriteTo(&buf)
	require.NoError(t, err)
	valid := buf.Bytes()

	_, err = asset.ReadModel(bytes.NewReader(valid[:len(valid)-2]))
	require.ErrorIs(t, err, asset.ErrTruncated)

	b := bytes.Clone(valid)
	binary.LittleEndian.PutUint32(b, asset.TextureMagic)
	_, err = asset.ReadModel(bytes.NewReader(b))
	require.ErrorIs(t, err, asset.ErrBadMagic)

	b = bytes.Clone(valid)
	binary.LittleEndian.PutUint32(b[8+160+28:], 1<<30)
	_, err = asset.ReadModel(bytes.NewReader(b))
	require.ErrorIs(t, err, asset.ErrInvalid, "implausible index count")
}

func TestUploadModelAndTexture(t *testing.T) {
	dev := rhitest.NewDevice()
	bb := ren.NewBlackboard(dev)
	tc := ren.NewTransferContext(dev)
	defer func() {
		tc.Close()
		require.NoError(t, bb.Close())
	}()

	bufs, err := asset.UploadModel(bb, tc, testModel())
	require.NoError(t, err)
	assert.Equal(t, "triangle:position", bufs.Positions.Name())
	assert.Equal(t, uint64(36), bufs.Positions.Size())
	assert.Equal(t, uint64(12), bufs.Indices.Size())
	assert.True(t, bufs.Attributes.Valid())
	assert.Equal(t, uint64(56), bufs.Materials.Size())
	assert.Equal(t, uint64(2*52), bufs.Instances.Size())
	assert.Equal(t, 5, tc.Stats().PendingBuffers)

	tex, err := asset.TextureFromImage("checker", checker(4, 4), gputypes.TextureFormatRGBA8Unorm, true)
	require.NoError(t, err)
	img, err := asset.UploadTexture(bb, tc, tex)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), img.CreateInfo().MipLevels)

	cmd, err := dev.CreateCommandList(rhi.QueueGraphics)
	require.NoError(t, err)
	tc.Process(cmd)
	rec := cmd.(*rhitest.CommandList)
	assert.Equal(t, 5, rec.Count(rhitest.OpCopyBuffer))
	assert.Equal(t, 3, rec.Count(rhitest.OpCopyBufferToImage))
}

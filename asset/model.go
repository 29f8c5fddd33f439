// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package asset

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

const (
	// ModelMagic identifies RMDL containers.
	ModelMagic = 0x4C444D52
	// ModelExtension is the file extension of RMDL containers.
	ModelExtension = ".renmdl"

	// NoReference marks a material without a texture.
	NoReference = ^uint32(0)
	// NoParent marks a root instance.
	NoParent = ^uint32(0)

	// maxCount bounds every header count before anything is allocated.
	maxCount = 1 << 26
)

// AttributeFlags lists the vertex attributes a submesh carries.
type AttributeFlags uint32

// Attribute flags.
const (
	AttributeColor     AttributeFlags = 0x1
	AttributeNormal    AttributeFlags = 0x2
	AttributeTangent   AttributeFlags = 0x4
	AttributeTexCoords AttributeFlags = 0x8
	AttributeJoints    AttributeFlags = 0x10
	AttributeWeights   AttributeFlags = 0x20
)

// Has reports whether all bits of a are set.
func (f AttributeFlags) Has(a AttributeFlags) bool { return f&a == a }

// Material is a metallic-roughness material. URI fields index Model.URIs
// or are NoReference.
type Material struct {
	BaseColorFactor      [4]float32
	Roughness            float32
	Metallic             float32
	EmissiveColor        [3]float32
	EmissiveStrength     float32
	AlbedoURI            uint32
	NormalURI            uint32
	MetallicRoughnessURI uint32
	EmissiveURI          uint32
}

// Submesh holds half-open ranges into the vertex and index arrays.
type Submesh struct {
	Attributes     AttributeFlags
	Material       uint32
	PositionStart  uint32
	PositionEnd    uint32
	AttributeStart uint32
	AttributeEnd   uint32
	SkinStart      uint32
	SkinEnd        uint32
	IndexStart     uint32
	IndexEnd       uint32
}

// Instance places a range of submeshes in the node hierarchy.
type Instance struct {
	SubmeshStart uint32
	SubmeshEnd   uint32
	Parent       uint32
	Translation  [3]float32
	Rotation     [4]float32
	Scale        [3]float32
}

// VertexAttributes are the shading attributes of one vertex.
type VertexAttributes struct {
	Normal    [3]float32
	Tangent   [4]float32
	TexCoords [2]float32
	Color     [4]uint8
}

// VertexSkin are the skinning attributes of one vertex.
type VertexSkin struct {
	Joints  [4]uint32
	Weights [4]float32
}

// modelHeader is the on-disk RMDL header.
type modelHeader struct {
	Magic          uint32
	Version        uint32
	Name           nameField
	URICount       uint32
	MaterialCount  uint32
	SubmeshCount   uint32
	InstanceCount  uint32
	PositionCount  uint32
	AttributeCount uint32
	SkinCount      uint32
	IndexCount     uint32
}

// Model is the content of an RMDL container.
type Model struct {
	Name       string
	URIs       []string
	Materials  []Material
	Submeshes  []Submesh
	Instances  []Instance
	Positions  [][3]float32
	Attributes []VertexAttributes
	Skins      []VertexSkin
	Indices    []uint32
}

// Section sizes.
var (
	uriSize       = int64(NameFieldSize)
	materialSize  = int64(binary.Size(Material{}))
	submeshSize   = int64(binary.Size(Submesh{}))
	instanceSize  = int64(binary.Size(Instance{}))
	positionSize  = int64(12)
	attributeSize = int64(binary.Size(VertexAttributes{}))
	skinSize      = int64(binary.Size(VertexSkin{}))
	headerSize    = int64(binary.Size(modelHeader{}))
)

// Offsets returns the byte offset of each section in the container, in
// file order: URIs, materials, submeshes, instances, positions,
// attributes, skins, indices. The last element is the file size.
func (m *Model) Offsets() [9]int64 {
	sizes := [8]int64{
		int64(len(m.URIs)) * uriSize,
		int64(len(m.Materials)) * materialSize,
		int64(len(m.Submeshes)) * submeshSize,
		int64(len(m.Instances)) * instanceSize,
		int64(len(m.Positions)) * positionSize,
		int64(len(m.Attributes)) * attributeSize,
		int64(len(m.Skins)) * skinSize,
		int64(len(m.Indices)) * 4,
	}
	var off [9]int64
	off[0] = headerSize
	for i, s := range sizes {
		off[i+1] = off[i] + s
	}
	return off
}

// ReadModel decodes and validates an RMDL container.
func ReadModel(r io.Reader) (*Model, error) {
	var h modelHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, truncated("model header", err)
	}
	if h.Magic != ModelMagic {
		return nil, fmt.Errorf("%w: %#08x is not a model", ErrBadMagic, h.Magic)
	}
	if h.Version != version {
		return nil, fmt.Errorf("%w: model version %d", ErrUnsupportedVersion, h.Version)
	}
	for _, c := range []uint32{h.URICount, h.MaterialCount, h.SubmeshCount, h.InstanceCount,
		h.PositionCount, h.AttributeCount, h.SkinCount, h.IndexCount} {
		if c > maxCount {
			return nil, fmt.Errorf("%w: section of %d elements", ErrInvalid, c)
		}
	}

	m := &Model{
		Name:       h.Name.String(),
		URIs:       make([]string, h.URICount),
		Materials:  make([]Material, h.MaterialCount),
		Submeshes:  make([]Submesh, h.SubmeshCount),
		Instances:  make([]Instance, h.InstanceCount),
		Positions:  make([][3]float32, h.PositionCount),
		Attributes: make([]VertexAttributes, h.AttributeCount),
		Skins:      make([]VertexSkin, h.SkinCount),
		Indices:    make([]uint32, h.IndexCount),
	}
	uris := make([]nameField, h.URICount)
	sections := []struct {
		name string
		data any
	}{
		{"uris", uris},
		{"materials", m.Materials},
		{"submeshes", m.Submeshes},
		{"instances", m.Instances},
		{"positions", m.Positions},
		{"attributes", m.Attributes},
		{"skins", m.Skins},
		{"indices", m.Indices},
	}
	for _, s := range sections {
		if err := binary.Read(r, binary.LittleEndian, s.data); err != nil {
			return nil, truncated(s.name, err)
		}
	}
	for i := range uris {
		m.URIs[i] = uris[i].String()
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks every range and index of the model.
func (m *Model) Validate() error {
	inRange := func(start, end uint32, n int) bool {
		return start <= end && int(end) <= n
	}
	for i, s := range m.Submeshes {
		switch {
		case int(s.Material) >= len(m.Materials):
			return fmt.Errorf("%w: submesh %d material %d", ErrInvalid, i, s.Material)
		case !inRange(s.PositionStart, s.PositionEnd, len(m.Positions)):
			return fmt.Errorf("%w: submesh %d positions [%d, %d)", ErrInvalid, i, s.PositionStart, s.PositionEnd)
		case !inRange(s.AttributeStart, s.AttributeEnd, len(m.Attributes)):
			return fmt.Errorf("%w: submesh %d attributes [%d, %d)", ErrInvalid, i, s.AttributeStart, s.AttributeEnd)
		case !inRange(s.SkinStart, s.SkinEnd, len(m.Skins)):
			return fmt.Errorf("%w: submesh %d skins [%d, %d)", ErrInvalid, i, s.SkinStart, s.SkinEnd)
		case !inRange(s.IndexStart, s.IndexEnd, len(m.Indices)):
			return fmt.Errorf("%w: submesh %d indices [%d, %d)", ErrInvalid, i, s.IndexStart, s.IndexEnd)
		}
	}
	for i, mat := range m.Materials {
		for _, uri := range [...]uint32{mat.AlbedoURI, mat.NormalURI, mat.MetallicRoughnessURI, mat.EmissiveURI} {
			if uri != NoReference && int(uri) >= len(m.URIs) {
				return fmt.Errorf("%w: material %d references URI %d", ErrInvalid, i, uri)
			}
		}
	}
	for i, inst := range m.Instances {
		if !inRange(inst.SubmeshStart, inst.SubmeshEnd, len(m.Submeshes)) {
			return fmt.Errorf("%w: instance %d submeshes [%d, %d)", ErrInvalid, i, inst.SubmeshStart, inst.SubmeshEnd)
		}
		if inst.Parent != NoParent && int(inst.Parent) >= i {
			return fmt.Errorf("%w: instance %d parent %d is not an earlier instance", ErrInvalid, i, inst.Parent)
		}
	}
	for i, idx := range m.Indices {
		if int(idx) >= len(m.Positions) {
			return fmt.Errorf("%w: index %d refers to vertex %d", ErrInvalid, i, idx)
		}
	}
	return nil
}

// WriteTo encodes m as an RMDL container.
func (m *Model) WriteTo(w io.Writer) (int64, error) {
	if err := m.Validate(); err != nil {
		return 0, err
	}
	name, err := makeName(m.Name)
	if err != nil {
		return 0, err
	}
	uris := make([]nameField, len(m.URIs))
	for i, u := range m.URIs {
		if uris[i], err = makeName(u); err != nil {
			return 0, err
		}
	}
	h := modelHeader{
		Magic:          ModelMagic,
		Version:        version,
		Name:           name,
		URICount:       uint32(len(uris)),         //nolint:gosec // G115: slice lengths fit the format
		MaterialCount:  uint32(len(m.Materials)),  //nolint:gosec // G115
		SubmeshCount:   uint32(len(m.Submeshes)),  //nolint:gosec // G115
		InstanceCount:  uint32(len(m.Instances)),  //nolint:gosec // G115
		PositionCount:  uint32(len(m.Positions)),  //nolint:gosec // G115
		AttributeCount: uint32(len(m.Attributes)), //nolint:gosec // G115
		SkinCount:      uint32(len(m.Skins)),      //nolint:gosec // G115
		IndexCount:     uint32(len(m.Indices)),    //nolint:gosec // G115
	}

	var buf bytes.Buffer
	buf.Grow(int(m.Offsets()[8]))
	for _, v := range []any{&h, uris, m.Materials, m.Submeshes, m.Instances, m.Positions, m.Attributes, m.Skins, m.Indices} {
		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			return 0, err
		}
	}
	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

// PositionBytes returns the positions as tightly packed float triples.
func (m *Model) PositionBytes() []byte {
	data, _ := binary.Append(nil, binary.LittleEndian, m.Positions)
	return data
}

// AttributeBytes returns the vertex attributes in container layout.
func (m *Model) AttributeBytes() []byte {
	data, _ := binary.Append(nil, binary.LittleEndian, m.Attributes)
	return data
}

// MaterialBytes returns the materials in container layout.
func (m *Model) MaterialBytes() []byte {
	data, _ := binary.Append(nil, binary.LittleEndian, m.Materials)
	return data
}

// InstanceBytes returns the instances in container layout.
func (m *Model) InstanceBytes() []byte {
	data, _ := binary.Append(nil, binary.LittleEndian, m.Instances)
	return data
}

// IndexBytes returns the indices as little-endian uint32 values.
func (m *Model) IndexBytes() []byte {
	data, _ := binary.Append(nil, binary.LittleEndian, m.Indices)
	return data
}

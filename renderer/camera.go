// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderer

import (
	"github.com/chewxy/math32"
)

// Camera is a perspective camera. Yaw 0 looks along +Z, positive pitch
// looks up. Angles are in radians.
type Camera struct {
	Position [3]float32
	Yaw      float32
	Pitch    float32
	FovY     float32
	Near     float32
	Far      float32
}

// DefaultCamera looks down -Z from slightly above the origin.
func DefaultCamera() Camera {
	return Camera{
		Position: [3]float32{0, 2, 5},
		Yaw:      math32.Pi,
		FovY:     math32.Pi / 3,
		Near:     0.1,
		Far:      1000,
	}
}

// cameraData is the GPU layout of the camera buffer. Matrices are column
// major.
type cameraData struct {
	View       [16]float32
	Projection [16]float32
	Position   [4]float32
	Exposure   float32
	_          [3]uint32
}

// Forward returns the unit view direction.
func (c Camera) Forward() [3]float32 {
	cp := math32.Cos(c.Pitch)
	return [3]float32{cp * math32.Sin(c.Yaw), math32.Sin(c.Pitch), cp * math32.Cos(c.Yaw)}
}

func dot(a, b [3]float32) float32 { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }

func cross(a, b [3]float32) [3]float32 {
	return [3]float32{a[1]*b[2] - a[2]*b[1], a[2]*b[0] - a[0]*b[2], a[0]*b[1] - a[1]*b[0]}
}

func normalize(v [3]float32) [3]float32 {
	l := math32.Sqrt(dot(v, v))
	if l == 0 {
		return v
	}
	return [3]float32{v[0] / l, v[1] / l, v[2] / l}
}

// View returns the right-handed world to view matrix.
func (c Camera) View() [16]float32 {
	f := c.Forward()
	up := [3]float32{0, 1, 0}
	if math32.Abs(f[1]) > 0.999 {
		up = [3]float32{0, 0, 1}
	}
	s := normalize(cross(f, up))
	u := cross(s, f)
	e := c.Position
	return [16]float32{
		s[0], u[0], -f[0], 0,
		s[1], u[1], -f[1], 0,
		s[2], u[2], -f[2], 0,
		-dot(s, e), -dot(u, e), dot(f, e), 1,
	}
}

// Projection returns the perspective matrix for aspect. View depth maps
// to [0, 1] between the near and far planes.
func (c Camera) Projection(aspect float32) [16]float32 {
	f := 1 / math32.Tan(c.FovY/2)
	nf := c.Near - c.Far
	return [16]float32{
		f / aspect, 0, 0, 0,
		0, f, 0, 0,
		0, 0, c.Far / nf, -1,
		0, 0, c.Near * c.Far / nf, 0,
	}
}

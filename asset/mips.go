// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package asset

import (
	"image"

	"golang.org/x/image/draw"
)

// GenerateMips returns the mip chain of img as RGBA images, level 0 first.
// Each level halves the previous one, clamped to 1, until 1×1 or
// MaxMipLevels levels.
func GenerateMips(img image.Image) []*image.RGBA {
	b := img.Bounds()
	base := image.NewRGBA(image.Rect(0, 0, max(1, b.Dx()), max(1, b.Dy())))
	draw.Draw(base, base.Bounds(), img, b.Min, draw.Src)

	levels := []*image.RGBA{base}
	prev := base
	for len(levels) < MaxMipLevels {
		w, h := prev.Bounds().Dx(), prev.Bounds().Dy()
		if w == 1 && h == 1 {
			break
		}
		next := image.NewRGBA(image.Rect(0, 0, max(1, w/2), max(1, h/2)))
		draw.BiLinear.Scale(next, next.Bounds(), prev, prev.Bounds(), draw.Src, nil)
		levels = append(levels, next)
		prev = next
	}
	return levels
}

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package technique

import (
	"encoding/binary"

	"github.com/chewxy/math32"

	"github.com/gogpu/ren"
	"github.com/gogpu/ren/config"
	"github.com/gogpu/ren/rhi"
	"github.com/gogpu/ren/shader"
)

// LuminanceHistogramName is the name of the exposure histogram buffer.
const LuminanceHistogramName = "exposure:luminance_histogram_buffer"

// histogramBuckets is the bucket count of the luminance histogram.
const histogramBuckets = 256

// luminanceHistogram is the GPU layout of the histogram buffer.
type luminanceHistogram struct {
	AverageLuminance float32
	Buckets          [histogramBuckets]float32
}

// exposurePush mirrors the push block of exposure.wgsl.
type exposurePush struct {
	TargetImage uint32
	Histogram   uint32
	Width       uint32
	Height      uint32
	Exposure    float32
	_           [3]uint32
}

// EV100 returns the exposure value at ISO 100 of a camera with the given
// f-stop, reciprocal shutter time and sensitivity.
func EV100(aperture, shutter, iso float32) float32 {
	return math32.Log2(aperture * aperture * shutter * 100 / iso)
}

// ExposureFromEV100 returns the scale that maps scene luminance to the
// [0, 1] range of a sensor exposed at ev100.
func ExposureFromEV100(ev100 float32) float32 {
	return 1 / (1.2 * math32.Exp2(ev100))
}

// Exposure scales a lit HDR image with a physical camera exposure.
type Exposure struct {
	bb  *ren.Blackboard
	lib *shader.Library

	histogram ren.Buffer
	camera    config.Exposure
}

// NewExposure creates the luminance histogram buffer.
func NewExposure(bb *ren.Blackboard, lib *shader.Library, camera config.Exposure) (*Exposure, error) {
	hist, err := bb.CreateBuffer(LuminanceHistogramName, rhi.BufferCreateInfo{
		Size: uint64(binary.Size(luminanceHistogram{})),
		Heap: rhi.HeapGPU,
	})
	if err != nil {
		return nil, err
	}
	return &Exposure{bb: bb, lib: lib, histogram: hist, camera: camera}, nil
}

// SetCamera replaces the camera settings.
func (e *Exposure) SetCamera(camera config.Exposure) { e.camera = camera }

// Value returns the exposure scale applied by Apply.
func (e *Exposure) Value() float32 {
	c := e.camera
	return ExposureFromEV100(EV100(c.Aperture, c.Shutter, c.ISO) - c.Compensation)
}

// Histogram returns the luminance histogram buffer.
func (e *Exposure) Histogram() ren.Buffer { return e.histogram }

// Apply scales target in place.
func (e *Exposure) Apply(cmd rhi.CommandList, tracker *ren.Tracker, target ren.Image) {
	cmd.BeginDebugRegion("exposure:apply", 0.25, 0.25, 0.5)
	defer cmd.EndDebugRegion()

	tracker.UseImage(target, rhi.StageComputeShader, rhi.AccessUnorderedAccessReadWrite, rhi.LayoutUnorderedAccess, false)
	tracker.UseBuffer(e.histogram, rhi.StageComputeShader, rhi.AccessUnorderedAccessReadWrite)
	tracker.Flush(cmd)

	p := e.lib.Pipeline("apply_exposure")
	w, h := target.Width(), target.Height()
	cmd.SetPipeline(p)
	rhi.PushConstants(cmd, exposurePush{
		TargetImage: target.BindlessIndex(),
		Histogram:   e.histogram.BindlessIndex(),
		Width:       w,
		Height:      h,
		Exposure:    e.Value(),
	})
	dispatch2D(cmd, p, w, h, 1)
}

// Close destroys the histogram buffer.
func (e *Exposure) Close() { e.bb.DestroyBuffer(LuminanceHistogramName) }

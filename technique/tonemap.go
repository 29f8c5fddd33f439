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

// ToneMapParametersName is the name of the GT7 parameter buffer.
const ToneMapParametersName = "tone_map:parameters_buffer"

// referenceLuminance is the luminance in nits of an image value of 1.
const referenceLuminance = 100

// GT7Parameters is the GPU layout of the GT7 tone curve.
type GT7Parameters struct {
	IsHDR              uint32
	ReferenceLuminance float32

	Alpha         float32
	MidPoint      float32
	LinearSection float32
	ToeStrength   float32
	KA            float32
	KB            float32
	KC            float32

	SDRCorrectionFactor   float32
	LuminanceTarget       float32
	LuminanceTargetICtCp  float32
	LuminanceTargetJzazbz float32
	BlendRatio            float32
	FadeStart             float32
	FadeEnd               float32

	Enabled uint32
	_       [3]uint32
}

// pqInverseEOTF encodes a reference luminance with the PQ curve, with the
// m2 exponent scaled by exponentScale.
func pqInverseEOTF(value, exponentScale float32) float32 {
	const (
		m1   = 0.1593017578125
		m2   = 78.84375
		c1   = 0.8359375
		c2   = 18.8515625
		c3   = 18.6875
		peak = 10000
	)
	ym1 := math32.Pow(value*referenceLuminance/peak, m1)
	return math32.Pow((c1+c2*ym1)/(1+c3*ym1), m2*exponentScale)
}

// peakICtCp returns the ICtCp intensity of a grey at peak. The RGB to LMS
// rows of ICtCp each sum to one.
func peakICtCp(peak float32) float32 {
	return pqInverseEOTF(peak, 1)
}

// peakJzazbz returns the Jzazbz lightness of a grey at peak.
func peakJzazbz(peak float32) float32 {
	const (
		lRow = 0.530004 + 0.355704 + 0.086090
		mRow = 0.289388 + 0.525395 + 0.157481
	)
	iz := 0.5*pqInverseEOTF(lRow*peak, 1.7) + 0.5*pqInverseEOTF(mRow*peak, 1.7)
	return (0.44*iz)/(1-0.56*iz) - 1.6295499532821566e-11
}

// ComputeGT7 derives the curve coefficients of cfg.
func ComputeGT7(cfg config.ToneMap) GT7Parameters {
	p := GT7Parameters{
		ReferenceLuminance:  referenceLuminance,
		Alpha:               cfg.Alpha,
		MidPoint:            cfg.MidPoint,
		LinearSection:       cfg.LinearSection,
		ToeStrength:         cfg.ToeStrength,
		SDRCorrectionFactor: 1,
		BlendRatio:          cfg.BlendRatio,
		FadeStart:           cfg.FadeStart,
		FadeEnd:             cfg.FadeEnd,
	}
	if cfg.HDR {
		p.IsHDR = 1
		p.LuminanceTarget = cfg.PeakLuminance / referenceLuminance
	} else {
		p.LuminanceTarget = cfg.PaperWhite / referenceLuminance
		p.SDRCorrectionFactor = 1 / p.LuminanceTarget
	}
	if cfg.Enabled {
		p.Enabled = 1
	}
	p.LuminanceTargetICtCp = peakICtCp(p.LuminanceTarget)
	p.LuminanceTargetJzazbz = peakJzazbz(p.LuminanceTarget)

	k := (p.LinearSection - 1) / (p.Alpha - 1)
	p.KA = p.LuminanceTarget*p.LinearSection + p.LuminanceTarget*k
	p.KB = -p.LuminanceTarget * k * math32.Exp(p.LinearSection/k)
	p.KC = -1 / (k * p.LuminanceTarget)
	return p
}

// toneMapPush mirrors the push block of tone_map.wgsl.
type toneMapPush struct {
	Source     uint32
	Parameters uint32
	Width      uint32
	Height     uint32
}

// ToneMap maps an HDR image into a display target with the GT7 curve.
type ToneMap struct {
	bb  *ren.Blackboard
	tc  *ren.TransferContext
	lib *shader.Library

	parameters ren.Buffer
	settings   config.ToneMap
	dirty      bool
}

// NewToneMap creates the parameter buffer. The curve is uploaded with the
// first Blit.
func NewToneMap(bb *ren.Blackboard, tc *ren.TransferContext, lib *shader.Library, cfg config.ToneMap) (*ToneMap, error) {
	params, err := bb.CreateBuffer(ToneMapParametersName, rhi.BufferCreateInfo{
		Size: uint64(binary.Size(GT7Parameters{})),
		Heap: rhi.HeapGPU,
	})
	if err != nil {
		return nil, err
	}
	return &ToneMap{bb: bb, tc: tc, lib: lib, parameters: params, settings: cfg, dirty: true}, nil
}

// SetSettings replaces the curve; it is uploaded with the next Blit.
func (tm *ToneMap) SetSettings(cfg config.ToneMap) {
	if cfg != tm.settings {
		tm.settings = cfg
		tm.dirty = true
	}
}

// Parameters returns the parameter buffer.
func (tm *ToneMap) Parameters() ren.Buffer { return tm.parameters }

// Blit overwrites dst with the tone mapped src. A changed curve is staged
// on the transfer context, which must be processed before this frame's
// command list executes.
func (tm *ToneMap) Blit(cmd rhi.CommandList, tracker *ren.Tracker, src, dst ren.Image) error {
	if tm.dirty {
		data, err := binary.Append(nil, binary.LittleEndian, ComputeGT7(tm.settings))
		if err != nil {
			return err
		}
		if err := tm.tc.UploadBuffer(tm.parameters, data, 0); err != nil {
			return err
		}
		tm.dirty = false
	}

	cmd.BeginDebugRegion("tone_map", 0.75, 0, 0.25)
	defer cmd.EndDebugRegion()

	tracker.UseImage(dst, rhi.StageColorAttachmentOutput, rhi.AccessColorAttachmentWrite, rhi.LayoutColorAttachment, true)
	tracker.UseImage(src, rhi.StagePixelShader, rhi.AccessShaderSampledRead, rhi.LayoutShaderReadOnly, false)
	tracker.Flush(cmd)

	w, h := dst.Width(), dst.Height()
	cmd.BeginRenderPass(rhi.RenderPassInfo{
		Name:   "tone_map",
		Colors: []rhi.ColorAttachment{{Image: dst.Native(), Load: rhi.LoadOpDiscard, Store: rhi.StoreOpStore}},
		Width:  w,
		Height: h,
	})
	fullViewport(cmd, w, h)
	cmd.SetPipeline(tm.lib.Pipeline("tone_map"))
	rhi.PushConstants(cmd, toneMapPush{
		Source:     src.BindlessIndex(),
		Parameters: tm.parameters.BindlessIndex(),
		Width:      src.Width(),
		Height:     src.Height(),
	})
	cmd.Draw(3, 1, 0, 0)
	cmd.EndRenderPass()
	return nil
}

// Close destroys the parameter buffer.
func (tm *ToneMap) Close() { tm.bb.DestroyBuffer(ToneMapParametersName) }

//go:build !nogpu

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// TargetConfig describes an offscreen render target.
type TargetConfig struct {
	ColorFormat gputypes.TextureFormat
	DepthFormat gputypes.TextureFormat // Undefined for none
	SampleCount uint32
	ClearColor  gputypes.Color
}

// Key returns the pipeline key for targets built from c. A zero sample
// count means one.
func (c TargetConfig) Key() PipelineKey {
	samples := c.SampleCount
	if samples == 0 {
		samples = 1
	}
	return PipelineKey{
		SampleCount: samples,
		ColorFormat: c.ColorFormat,
		DepthFormat: c.DepthFormat,
	}
}

// Target holds the textures of an offscreen sprite render target:
//   - MSAA color: SampleCount samples, RenderAttachment (only when SampleCount > 1)
//   - Depth/stencil: SampleCount samples, RenderAttachment (only with a depth format)
//   - Resolve: 1x sample, RenderAttachment | CopySrc
//
// Textures are created lazily by Ensure and recreated on resize.
type Target struct {
	cfg TargetConfig

	msaaTex     hal.Texture
	msaaView    hal.TextureView
	depthTex    hal.Texture
	depthView   hal.TextureView
	resolveTex  hal.Texture
	resolveView hal.TextureView
	width       uint32
	height      uint32
}

// NewTarget returns a target with no textures yet.
func NewTarget(cfg TargetConfig) *Target {
	if cfg.SampleCount == 0 {
		cfg.SampleCount = 1
	}
	return &Target{cfg: cfg}
}

// Key returns the pipeline key matching this target.
func (t *Target) Key() PipelineKey { return t.cfg.Key() }

// Size returns the current texture size.
func (t *Target) Size() (width, height uint32) { return t.width, t.height }

// ResolveTexture returns the single-sample color texture holding the
// rendered image.
func (t *Target) ResolveTexture() hal.Texture { return t.resolveTex }

// Ensure creates or recreates textures if the requested dimensions differ
// from the current size. If dimensions match and textures exist, this is a
// no-op. labelPrefix distinguishes GPU debug labels between targets.
func (t *Target) Ensure(device hal.Device, w, h uint32, labelPrefix string) error {
	if w == 0 || h == 0 {
		return fmt.Errorf("target size %dx%d: %w", w, h, ErrEmptyImage)
	}
	if t.width == w && t.height == h && t.resolveTex != nil {
		return nil
	}
	t.Destroy(device)

	size := hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1}

	if t.cfg.SampleCount > 1 {
		tex, view, err := createAttachment(device, labelPrefix+"_msaa_color", size,
			t.cfg.SampleCount, t.cfg.ColorFormat, gputypes.TextureUsageRenderAttachment)
		if err != nil {
			t.Destroy(device)
			return err
		}
		t.msaaTex, t.msaaView = tex, view
	}

	if t.cfg.DepthFormat != gputypes.TextureFormatUndefined {
		tex, view, err := createAttachment(device, labelPrefix+"_depth_stencil", size,
			t.cfg.SampleCount, t.cfg.DepthFormat, gputypes.TextureUsageRenderAttachment)
		if err != nil {
			t.Destroy(device)
			return err
		}
		t.depthTex, t.depthView = tex, view
	}

	// Single-sample resolve target (CopySrc for readback).
	tex, view, err := createAttachment(device, labelPrefix+"_resolve", size,
		1, t.cfg.ColorFormat, gputypes.TextureUsageRenderAttachment|gputypes.TextureUsageCopySrc)
	if err != nil {
		t.Destroy(device)
		return err
	}
	t.resolveTex, t.resolveView = tex, view

	t.width = w
	t.height = h
	return nil
}

func createAttachment(device hal.Device, label string, size hal.Extent3D, samples uint32,
	format gputypes.TextureFormat, usage gputypes.TextureUsage,
) (hal.Texture, hal.TextureView, error) {
	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   samples,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         usage,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create %s texture: %w", label, err)
	}
	view, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label: label + "_view",
	})
	if err != nil {
		device.DestroyTexture(tex)
		return nil, nil, fmt.Errorf("create %s view: %w", label, err)
	}
	return tex, view, nil
}

// PassDescriptor returns the render pass descriptor for drawing into the
// target. The color attachment is cleared to the configured clear color.
func (t *Target) PassDescriptor(label string) *hal.RenderPassDescriptor {
	color := hal.RenderPassColorAttachment{
		View:       t.resolveView,
		LoadOp:     gputypes.LoadOpClear,
		StoreOp:    gputypes.StoreOpStore,
		ClearValue: t.cfg.ClearColor,
	}
	if t.msaaView != nil {
		color.View = t.msaaView
		color.ResolveTarget = t.resolveView
		color.StoreOp = gputypes.StoreOpDiscard
	}

	desc := &hal.RenderPassDescriptor{
		Label:            label,
		ColorAttachments: []hal.RenderPassColorAttachment{color},
	}
	if t.depthView != nil {
		ds := &hal.RenderPassDepthStencilAttachment{
			View:            t.depthView,
			DepthLoadOp:     gputypes.LoadOpClear,
			DepthStoreOp:    gputypes.StoreOpDiscard,
			DepthClearValue: 1.0,
		}
		if hasStencil(t.cfg.DepthFormat) {
			ds.StencilLoadOp = gputypes.LoadOpClear
			ds.StencilStoreOp = gputypes.StoreOpDiscard
		}
		desc.DepthStencilAttachment = ds
	}
	return desc
}

func hasStencil(f gputypes.TextureFormat) bool {
	return f == gputypes.TextureFormatDepth24PlusStencil8 || f == gputypes.TextureFormatDepth32FloatStencil8
}

// Destroy releases all texture resources and resets dimensions.
func (t *Target) Destroy(device hal.Device) {
	if device == nil {
		return
	}
	if t.resolveView != nil {
		device.DestroyTextureView(t.resolveView)
		t.resolveView = nil
	}
	if t.resolveTex != nil {
		device.DestroyTexture(t.resolveTex)
		t.resolveTex = nil
	}
	if t.depthView != nil {
		device.DestroyTextureView(t.depthView)
		t.depthView = nil
	}
	if t.depthTex != nil {
		device.DestroyTexture(t.depthTex)
		t.depthTex = nil
	}
	if t.msaaView != nil {
		device.DestroyTextureView(t.msaaView)
		t.msaaView = nil
	}
	if t.msaaTex != nil {
		device.DestroyTexture(t.msaaTex)
		t.msaaTex = nil
	}
	t.width = 0
	t.height = 0
}

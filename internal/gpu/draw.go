//go:build !nogpu

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/sprite/render"
)

// PassEncoder is the subset of hal.RenderPassEncoder the draw steps use.
type PassEncoder interface {
	SetPipeline(pipeline hal.RenderPipeline)
	SetBindGroup(index uint32, group hal.BindGroup, offsets []uint32)
	SetVertexBuffer(slot uint32, buffer hal.Buffer, offset uint64)
	SetIndexBuffer(buffer hal.Buffer, format gputypes.IndexFormat, offset uint64)
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32)
}

var _ PassEncoder = (hal.RenderPassEncoder)(nil)

// StepResult is the outcome of one draw step.
type StepResult uint8

const (
	// Success means the step encoded its commands.
	Success StepResult = iota
	// Skip means data for this item is not ready this frame.
	Skip
	// Failure means a shared resource the step depends on is missing.
	Failure
)

func (r StepResult) String() string {
	switch r {
	case Success:
		return "success"
	case Skip:
		return "skip"
	default:
		return "failure"
	}
}

// DrawContext is the per-view state draw steps read.
type DrawContext struct {
	Frame     *Frame
	View      render.ViewID
	Pipelines *PipelineCache
	Quad      *QuadMesh
}

// DrawStep encodes one part of a draw. It returns a non-nil error with
// Skip and Failure naming the missing data.
type DrawStep interface {
	Encode(pass PassEncoder, ctx *DrawContext, item render.DrawItem) (StepResult, error)
}

// SetItemPipeline binds the item's pipeline.
type SetItemPipeline struct{}

func (SetItemPipeline) Encode(pass PassEncoder, ctx *DrawContext, item render.DrawItem) (StepResult, error) {
	pipeline, ok := ctx.Pipelines.Pipeline(item.Pipeline)
	if !ok {
		return Skip, fmt.Errorf("%w: id %d", ErrMissingPipeline, item.Pipeline)
	}
	pass.SetPipeline(pipeline)
	return Success, nil
}

// SetViewBindGroup binds the view uniform at Index.
type SetViewBindGroup struct{ Index uint32 }

func (s SetViewBindGroup) Encode(pass PassEncoder, ctx *DrawContext, _ render.DrawItem) (StepResult, error) {
	pv, ok := ctx.Frame.Views[ctx.View]
	if !ok {
		return Failure, fmt.Errorf("%w: view %d", ErrMissingViewBinding, ctx.View)
	}
	pass.SetBindGroup(s.Index, pv.BindGroup, nil)
	return Success, nil
}

// SetSpriteBindGroup binds the sprite's texture and sampler at Index.
type SetSpriteBindGroup struct{ Index uint32 }

func (s SetSpriteBindGroup) Encode(pass PassEncoder, ctx *DrawContext, item render.DrawItem) (StepResult, error) {
	ps, ok := ctx.Frame.Prepared[item.Entity]
	if !ok {
		return Skip, fmt.Errorf("%w: entity %v", ErrMissingPreparedData, item.Entity)
	}
	pass.SetBindGroup(s.Index, ps.BindGroup, nil)
	return Success, nil
}

// BindSpriteBuffers binds the quad at slot 0, the instance buffer at slot 1
// and the quad index buffer.
type BindSpriteBuffers struct{}

func (BindSpriteBuffers) Encode(pass PassEncoder, ctx *DrawContext, item render.DrawItem) (StepResult, error) {
	ps, ok := ctx.Frame.Prepared[item.Entity]
	if !ok {
		return Skip, fmt.Errorf("%w: entity %v", ErrMissingPreparedData, item.Entity)
	}
	if !ctx.Quad.Ready() {
		return Failure, ErrMissingGeometry
	}
	pass.SetVertexBuffer(0, ctx.Quad.VertexBuffer(), 0)
	pass.SetVertexBuffer(1, ps.InstanceBuffer, 0)
	pass.SetIndexBuffer(ctx.Quad.IndexBuffer(), gputypes.IndexFormatUint32, 0)
	return Success, nil
}

// DrawSprite issues the indexed draw: six indices over the prepared
// instance count.
type DrawSprite struct{}

func (DrawSprite) Encode(pass PassEncoder, ctx *DrawContext, item render.DrawItem) (StepResult, error) {
	ps, ok := ctx.Frame.Prepared[item.Entity]
	if !ok {
		return Skip, fmt.Errorf("%w: entity %v", ErrMissingPreparedData, item.Entity)
	}
	if !ctx.Quad.Ready() {
		return Failure, ErrMissingGeometry
	}
	pass.DrawIndexed(QuadIndexCount, ps.InstanceCount, 0, 0, 0)
	return Success, nil
}

// DrawFunction runs its steps in order and stops at the first step that
// does not succeed.
type DrawFunction []DrawStep

// SpriteDrawFunction returns the sprite step sequence.
func SpriteDrawFunction() DrawFunction {
	return DrawFunction{
		SetItemPipeline{},
		SetViewBindGroup{Index: 0},
		SetSpriteBindGroup{Index: 1},
		BindSpriteBuffers{},
		DrawSprite{},
	}
}

// Draw encodes item.
func (f DrawFunction) Draw(pass PassEncoder, ctx *DrawContext, item render.DrawItem) (StepResult, error) {
	for _, step := range f {
		if res, err := step.Encode(pass, ctx, item); res != Success {
			return res, err
		}
	}
	return Success, nil
}

// DrawFunctions is the registry of draw functions. Ids start at 1.
type DrawFunctions struct {
	mu    sync.RWMutex
	funcs []DrawFunction
}

// Add registers fn and returns its id.
func (d *DrawFunctions) Add(fn DrawFunction) render.DrawFunctionID {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.funcs = append(d.funcs, fn)
	return render.DrawFunctionID(len(d.funcs))
}

// Get returns the function registered under id.
func (d *DrawFunctions) Get(id render.DrawFunctionID) (DrawFunction, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if id == 0 || int(id) > len(d.funcs) {
		return nil, false
	}
	return d.funcs[id-1], true
}

// EncodeStats reports the outcome of encoding one phase.
type EncodeStats struct {
	Drawn   int
	Skipped int
	Failed  int
}

// Add accumulates o into s.
func (s *EncodeStats) Add(o EncodeStats) {
	s.Drawn += o.Drawn
	s.Skipped += o.Skipped
	s.Failed += o.Failed
}

// EncodePhase runs the draw function of every item in phase, in order.
// Items that skip or fail are counted and logged; encoding continues with
// the next item.
func EncodePhase(pass PassEncoder, ctx *DrawContext, phase *render.SortedPhase, draws *DrawFunctions) EncodeStats {
	var stats EncodeStats
	for _, item := range phase.Items() {
		fn, ok := draws.Get(item.DrawFunction)
		if !ok {
			stats.Failed++
			slogger().Warn("gpu: draw item skipped", "entity", item.Entity,
				"err", fmt.Errorf("%w: %d", ErrUnknownDrawFunction, item.DrawFunction))
			continue
		}
		res, err := fn.Draw(pass, ctx, item)
		switch res {
		case Success:
			stats.Drawn++
		case Skip:
			stats.Skipped++
			slogger().Debug("gpu: draw item skipped", "entity", item.Entity, "err", err)
		default:
			stats.Failed++
			slogger().Warn("gpu: draw item failed", "entity", item.Entity, "err", err)
		}
	}
	return stats
}

//go:build !nogpu

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package sprite

import (
	"errors"
	"fmt"
	"image"
	"iter"
	"maps"
	"sync"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/sprite/assets"
	"github.com/gogpu/sprite/internal/gpu"
	"github.com/gogpu/sprite/render"
	"github.com/gogpu/sprite/scene"
)

// SpriteSource is the scene query the renderer extracts from.
// *scene.World implements it.
type SpriteSource interface {
	Sprites() iter.Seq[scene.SpriteRecord]
}

// PassEncoder is the render pass surface Encode records into.
// hal.RenderPassEncoder satisfies it.
type PassEncoder = gpu.PassEncoder

// EncodeStats counts the draw items encoded for a view.
type EncodeStats = gpu.EncodeStats

// FrameStats summarizes the last frame.
type FrameStats struct {
	Frame     uint64
	Extracted int

	// Queued is the number of draw items per view.
	Queued map[render.ViewID]int
	// MissingPhase lists views that had no registered phase.
	MissingPhase []render.ViewID
	// PipelineError is set when the sprite pipeline could not be built.
	// The frame still runs and every item is skipped at draw time.
	PipelineError error

	Prepared int
	// Deferred counts sprites whose texture was not yet resident.
	Deferred int
	// PrepareFailed counts sprites whose GPU resources failed to build.
	PrepareFailed int

	Encoded EncodeStats

	PipelineHits   uint64
	PipelineMisses uint64
	Pipelines      int
}

// Renderer draws sprites from a scene through the extract, queue, prepare
// and encode stages.
//
// The stages must run in order once per frame: Extract starts a new frame.
// RenderFrame runs them all against an offscreen Target. Renderer methods
// are safe to call from multiple goroutines; they serialize on one lock.
type Renderer struct {
	mu sync.Mutex

	cfg    Config
	device hal.Device
	queue  hal.Queue

	// color, depth and sample layout shared by targets and pipelines
	targetCfg gpu.TargetConfig

	quad     *gpu.QuadMesh
	pipeline *gpu.SpritePipeline
	cache    *gpu.PipelineCache
	textures *gpu.TextureStore
	draws    *gpu.DrawFunctions
	drawFn   render.DrawFunctionID
	phases   *render.ViewPhases
	frame    *gpu.Frame

	stats FrameStats

	// in-flight submission, released once the GPU has caught up
	lastSubmit uint64
	encoder    hal.CommandEncoder
	cmdBuf     hal.CommandBuffer

	destroyed bool
}

// NewRenderer builds the renderer's long-lived GPU state on the provider's
// device: the unit quad, the sprite pipeline layouts and sampler, the
// pipeline cache, and the texture store. Any failure here is fatal.
func NewRenderer(provider render.DeviceHandle, opts ...RendererOption) (*Renderer, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger != nil {
		SetLogger(o.logger)
	}

	cfg := o.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	depth, _ := parseDepthFormat(cfg.DepthFormat)
	filter, _ := parseFilter(cfg.Filter)

	if o.shaderSource != "" {
		if err := assets.ValidateShader(o.shaderSource); err != nil {
			return nil, fmt.Errorf("sprite: custom shader: %w", err)
		}
	}

	device, queue, err := render.HalDevice(provider)
	if err != nil {
		return nil, err
	}

	r := &Renderer{
		cfg:    cfg,
		device: device,
		queue:  queue,
		targetCfg: gpu.TargetConfig{
			ColorFormat: cfg.colorFormat(provider.SurfaceFormat()),
			DepthFormat: depth,
			SampleCount: cfg.SampleCount,
			ClearColor:  cfg.clearColor(),
		},
		draws:  &gpu.DrawFunctions{},
		phases: render.NewViewPhases(),
		frame:  gpu.NewFrame(),
	}

	if r.quad, err = gpu.NewQuadMesh(device, queue); err != nil {
		return nil, fmt.Errorf("sprite: upload quad: %w", err)
	}
	r.pipeline, err = gpu.NewSpritePipeline(device, gpu.SpritePipelineConfig{
		ShaderSource: o.shaderSource,
		Filter:       filter,
	})
	if err != nil {
		r.quad.Destroy(device)
		return nil, fmt.Errorf("sprite: create pipeline: %w", err)
	}
	if r.textures, err = gpu.NewTextureStore(device, queue); err != nil {
		r.pipeline.Destroy()
		r.quad.Destroy(device)
		return nil, err
	}
	r.cache = gpu.NewPipelineCache(r.pipeline)
	r.drawFn = r.draws.Add(gpu.SpriteDrawFunction())

	info := provider.AdapterInfo()
	Logger().Info("sprite: renderer created",
		"adapter", info.Name,
		"adapter_type", info.Type.String(),
		"color", r.targetCfg.ColorFormat.String(),
		"depth", r.targetCfg.DepthFormat.String(),
		"samples", cfg.SampleCount,
		"sort", cfg.SortOrder.String())
	return r, nil
}

// Config returns the configuration the renderer was built with.
func (r *Renderer) Config() Config { return r.cfg }

// Phases returns the per-view phase registry. A view is drawn only after
// a phase has been inserted for it.
func (r *Renderer) Phases() *render.ViewPhases { return r.phases }

func (r *Renderer) key() gpu.PipelineKey { return r.targetCfg.Key() }

// beginFrame waits for the previous submission, releases textures it may
// have sampled, and resets frame state.
func (r *Renderer) beginFrame() {
	r.waitSubmitted()
	r.textures.ReleaseRetired()
	r.frame.Begin(r.device)
	r.stats = FrameStats{Frame: r.frame.Number}
}

func (r *Renderer) waitSubmitted() {
	if r.lastSubmit > r.queue.PollCompleted() {
		if err := r.device.WaitIdle(); err != nil {
			Logger().Warn("sprite: wait idle failed", "err", err)
		}
	}
	if r.cmdBuf != nil {
		r.device.FreeCommandBuffer(r.cmdBuf)
		r.cmdBuf = nil
	}
	if r.encoder != nil {
		r.encoder.Destroy()
		r.encoder = nil
	}
}

// Extract starts a new frame and snapshots the visible sprites of src.
func (r *Renderer) Extract(src SpriteSource) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed {
		return 0, ErrDestroyed
	}
	r.beginFrame()
	r.stats.Extracted = gpu.Extract(r.frame, src)
	return r.stats.Extracted, nil
}

// Queue fills the phase of every view with the sprites it can see. Phases
// of views not passed are emptied. Views without a phase are skipped and
// listed in Stats, as is a pipeline build failure.
func (r *Renderer) Queue(views []render.View) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed {
		return ErrDestroyed
	}
	r.queueLocked(views)
	return nil
}

func (r *Renderer) queueLocked(views []render.View) {
	qs := gpu.Queue(r.frame, views, gpu.QueueParams{
		Phases:       r.phases,
		Pipelines:    r.cache,
		Key:          r.key(),
		DrawFunction: r.drawFn,
		Order:        r.cfg.SortOrder,
	})
	r.stats.Queued = qs.Queued
	r.stats.MissingPhase = qs.MissingPhase
	r.stats.PipelineError = qs.PipelineErr
}

// Prepare builds per-sprite and per-view GPU state for the frame.
func (r *Renderer) Prepare(views []render.View) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed {
		return ErrDestroyed
	}
	r.prepareLocked(views)
	return nil
}

func (r *Renderer) prepareLocked(views []render.View) {
	ps := gpu.Prepare(r.frame, views, gpu.PrepareParams{
		Device:   r.device,
		Queue:    r.queue,
		Pipeline: r.pipeline,
		Textures: r.textures,
	})
	r.stats.Prepared = ps.Prepared
	r.stats.Deferred = ps.Deferred
	r.stats.PrepareFailed = ps.Failed
}

// Encode records the draw items of view into pass.
func (r *Renderer) Encode(pass PassEncoder, view render.ViewID) (EncodeStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed {
		return EncodeStats{}, ErrDestroyed
	}
	return r.encodeLocked(pass, view), nil
}

func (r *Renderer) encodeLocked(pass PassEncoder, view render.ViewID) EncodeStats {
	phase, ok := r.phases.Get(view)
	if !ok {
		Logger().Debug("sprite: encode skipped", "view", view, "err", ErrMissingViewPhase)
		return EncodeStats{}
	}
	es := gpu.EncodePhase(pass, &gpu.DrawContext{
		Frame:     r.frame,
		View:      view,
		Pipelines: r.cache,
		Quad:      r.quad,
	}, phase, r.draws)
	r.stats.Encoded.Add(es)
	return es
}

// RenderFrame runs a full frame into target: extract, queue, prepare, then
// one render pass encoding every view in order, submitted to the queue.
func (r *Renderer) RenderFrame(src SpriteSource, views []render.View, target *Target) (FrameStats, error) {
	if target == nil {
		return FrameStats{}, ErrNoTarget
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed {
		return FrameStats{}, ErrDestroyed
	}

	r.beginFrame()
	r.stats.Extracted = gpu.Extract(r.frame, src)
	r.queueLocked(views)
	r.prepareLocked(views)

	encoder, err := r.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "sprite_encoder"})
	if err != nil {
		return r.statsLocked(), fmt.Errorf("sprite: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("sprite_frame"); err != nil {
		encoder.Destroy()
		return r.statsLocked(), fmt.Errorf("sprite: begin encoding: %w", err)
	}

	pass := encoder.BeginRenderPass(target.t.PassDescriptor("sprite_pass"))
	for _, v := range views {
		r.encodeLocked(pass, v.ID)
	}
	pass.End()

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		encoder.Destroy()
		return r.statsLocked(), fmt.Errorf("sprite: end encoding: %w", err)
	}
	idx, err := r.queue.Submit([]hal.CommandBuffer{cmdBuf})
	if err != nil {
		r.device.FreeCommandBuffer(cmdBuf)
		encoder.Destroy()
		return r.statsLocked(), fmt.Errorf("sprite: submit: %w", err)
	}
	r.lastSubmit = idx
	r.encoder = encoder
	r.cmdBuf = cmdBuf

	s := r.statsLocked()
	Logger().Debug("sprite: frame submitted",
		"frame", s.Frame,
		"extracted", s.Extracted,
		"prepared", s.Prepared,
		"drawn", s.Encoded.Drawn,
		"skipped", s.Encoded.Skipped,
		"submission", idx)
	return s, nil
}

// UploadTexture makes img resident under h. Sprites using h are drawn from
// the next Prepare on. A texture replaced at a new size is destroyed at the
// start of the next frame, once the GPU is done with it.
func (r *Renderer) UploadTexture(h assets.Handle, img *image.RGBA) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed {
		return ErrDestroyed
	}
	return r.textures.Upload(h, img)
}

// TextureResident reports whether h has been uploaded.
func (r *Renderer) TextureResident(h assets.Handle) bool {
	return r.textures.Resident(h)
}

// EvictTexture releases the texture for h. Sprites using it are deferred
// until it is uploaded again. The GPU texture is destroyed at the start of
// the next frame.
func (r *Renderer) EvictTexture(h assets.Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed {
		return false
	}
	return r.textures.Evict(h)
}

// SyncAssets drains server's events and uploads every loaded or reloaded
// image. It returns the number of textures uploaded.
func (r *Renderer) SyncAssets(server *assets.Server) (int, error) {
	var (
		uploaded int
		errs     []error
	)
	for _, ev := range server.Drain() {
		switch {
		case ev.Type == assets.Failed:
			Logger().Warn("sprite: asset failed", "path", ev.Path, "err", ev.Err)
		case ev.Kind == assets.KindImage:
			img, ok := server.Image(ev.Handle)
			if !ok {
				continue
			}
			if err := r.UploadTexture(ev.Handle, img); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", ev.Path, err))
				continue
			}
			uploaded++
			Logger().Debug("sprite: texture synced", "path", ev.Path, "event", ev.Type.String())
		default:
			Logger().Debug("sprite: asset event ignored", "path", ev.Path, "kind", ev.Kind.String())
		}
	}
	return uploaded, errors.Join(errs...)
}

// Stats returns the statistics of the last frame.
func (r *Renderer) Stats() FrameStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.statsLocked()
}

func (r *Renderer) statsLocked() FrameStats {
	s := r.stats
	s.Queued = maps.Clone(r.stats.Queued)
	s.MissingPhase = append([]render.ViewID(nil), r.stats.MissingPhase...)
	cs := r.cache.Stats()
	s.PipelineHits, s.PipelineMisses, s.Pipelines = cs.Hits, cs.Misses, cs.Pipelines
	return s
}

// Destroy waits for the GPU and releases everything the renderer owns.
// Targets created by NewTarget must be destroyed separately.
func (r *Renderer) Destroy() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed {
		return
	}
	r.destroyed = true
	if err := r.device.WaitIdle(); err != nil {
		Logger().Warn("sprite: wait idle failed", "err", err)
	}
	r.waitSubmitted()
	r.frame.Release(r.device)
	r.cache.Destroy()
	r.textures.Destroy()
	r.pipeline.Destroy()
	r.quad.Destroy(r.device)
	Logger().Info("sprite: renderer destroyed")
}

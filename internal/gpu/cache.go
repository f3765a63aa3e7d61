//go:build !nogpu

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/sprite/render"
)

// Specializer turns a key into a pipeline configuration and builds it.
// *SpritePipeline is the production implementation.
type Specializer interface {
	Specialize(key PipelineKey) PipelineDescriptor
	Build(desc PipelineDescriptor) (hal.RenderPipeline, error)
	DestroyPipeline(pipeline hal.RenderPipeline)
}

type cachedPipeline struct {
	key      PipelineKey
	desc     PipelineDescriptor
	pipeline hal.RenderPipeline
}

// CacheStats reports pipeline cache activity.
type CacheStats struct {
	Hits      uint64
	Misses    uint64
	Pipelines int
}

// PipelineCache memoizes specialized pipelines by key.
//
// Thread Safety:
// PipelineCache is safe for concurrent use. It uses RWMutex with
// double-check locking, so concurrent requests for the same key build the
// pipeline once and all observe the same id.
type PipelineCache struct {
	specializer Specializer

	mu      sync.RWMutex
	byKey   map[PipelineKey]render.PipelineID
	entries []cachedPipeline // index = id - 1

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewPipelineCache creates an empty cache.
func NewPipelineCache(s Specializer) *PipelineCache {
	return &PipelineCache{
		specializer: s,
		byKey:       make(map[PipelineKey]render.PipelineID),
	}
}

// Specialize returns the pipeline id for key, building the pipeline on
// first use. A failed build is not cached; the next request retries.
func (c *PipelineCache) Specialize(key PipelineKey) (render.PipelineID, error) {
	// Fast path: read lock
	c.mu.RLock()
	if id, ok := c.byKey[key]; ok {
		c.mu.RUnlock()
		c.hits.Add(1)
		return id, nil
	}
	c.mu.RUnlock()

	// Slow path: write lock with double-check
	c.mu.Lock()
	defer c.mu.Unlock()

	if id, ok := c.byKey[key]; ok {
		c.hits.Add(1)
		return id, nil
	}

	desc := c.specializer.Specialize(key)
	pipeline, err := c.specializer.Build(desc)
	if err != nil {
		return render.InvalidPipeline, fmt.Errorf("specialize %+v: %w", key, err)
	}

	c.entries = append(c.entries, cachedPipeline{key: key, desc: desc, pipeline: pipeline})
	id := render.PipelineID(len(c.entries))
	c.byKey[key] = id
	c.misses.Add(1)

	slogger().Debug("gpu: pipeline specialized",
		"id", id,
		"samples", key.SampleCount,
		"color", key.ColorFormat.String(),
		"depth", key.DepthFormat.String())
	return id, nil
}

func (c *PipelineCache) entry(id render.PipelineID) (cachedPipeline, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if id == render.InvalidPipeline || int(id) > len(c.entries) {
		return cachedPipeline{}, false
	}
	return c.entries[id-1], true
}

// Pipeline returns the GPU pipeline for id.
func (c *PipelineCache) Pipeline(id render.PipelineID) (hal.RenderPipeline, bool) {
	e, ok := c.entry(id)
	return e.pipeline, ok
}

// Descriptor returns the configuration the pipeline id was built from.
func (c *PipelineCache) Descriptor(id render.PipelineID) (PipelineDescriptor, bool) {
	e, ok := c.entry(id)
	return e.desc, ok
}

// Stats returns cache statistics.
// Hits and misses are read atomically and may not be perfectly synchronized.
func (c *PipelineCache) Stats() CacheStats {
	c.mu.RLock()
	n := len(c.entries)
	c.mu.RUnlock()
	return CacheStats{Hits: c.hits.Load(), Misses: c.misses.Load(), Pipelines: n}
}

// Destroy releases every cached pipeline and empties the cache.
func (c *PipelineCache) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		c.specializer.DestroyPipeline(e.pipeline)
	}
	c.entries = nil
	c.byKey = make(map[PipelineKey]render.PipelineID)
}

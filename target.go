//go:build !nogpu

package sprite

import (
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/sprite/internal/gpu"
)

// Target is an offscreen render target matching the renderer's pipeline
// key: MSAA color when the sample count is above one, an optional
// depth/stencil attachment, and a single-sample resolve texture.
type Target struct {
	t *gpu.Target
	r *Renderer
}

// NewTarget creates a target of the given size.
func (r *Renderer) NewTarget(width, height uint32) (*Target, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed {
		return nil, ErrDestroyed
	}
	t := &Target{t: gpu.NewTarget(r.targetCfg), r: r}
	if err := t.t.Ensure(r.device, width, height, "sprite_target"); err != nil {
		return nil, err
	}
	return t, nil
}

// Resize recreates the textures if the size changed. The old textures are
// destroyed only after the last submitted frame has completed.
func (t *Target) Resize(width, height uint32) error {
	t.r.mu.Lock()
	defer t.r.mu.Unlock()
	if t.r.destroyed {
		return ErrDestroyed
	}
	if w, h := t.t.Size(); w != width || h != height {
		t.r.waitSubmitted()
	}
	return t.t.Ensure(t.r.device, width, height, "sprite_target")
}

// Size returns the target size in pixels.
func (t *Target) Size() (width, height uint32) { return t.t.Size() }

// Texture returns the resolved color texture.
func (t *Target) Texture() hal.Texture { return t.t.ResolveTexture() }

// Destroy waits for the last submitted frame and releases the target's
// textures.
func (t *Target) Destroy() {
	t.r.mu.Lock()
	defer t.r.mu.Unlock()
	if !t.r.destroyed {
		t.r.waitSubmitted()
	}
	t.t.Destroy(t.r.device)
}

//go:build !nogpu

package sprite

import (
	"errors"

	"github.com/gogpu/sprite/internal/gpu"
	"github.com/gogpu/sprite/render"
)

// Frame diagnostics. These are logged and counted; a frame call never
// fails because of them.
var (
	ErrMissingViewPhase    = gpu.ErrMissingViewPhase
	ErrMissingPreparedData = gpu.ErrMissingPreparedData
	ErrBindingBuild        = gpu.ErrBindingBuild
	ErrMissingGeometry     = gpu.ErrMissingGeometry
	ErrTextureNotResident  = gpu.ErrTextureNotResident
)

var (
	// ErrNotHalDevice is returned by NewRenderer when the provider does not
	// expose a HAL device and queue.
	ErrNotHalDevice = render.ErrNotHalDevice

	// ErrDestroyed is returned by calls on a destroyed Renderer.
	ErrDestroyed = errors.New("sprite: renderer destroyed")

	// ErrNoTarget is returned by RenderFrame when called without a target.
	ErrNoTarget = errors.New("sprite: nil render target")
)

//go:build !nogpu

package gpu

import "errors"

// Frame diagnostics. None of these abort a frame: the affected view, sprite
// or draw item is dropped and the frame continues.
var (
	// ErrMissingViewPhase is recorded when a view has no registered phase.
	ErrMissingViewPhase = errors.New("gpu: no render phase found for view")

	// ErrMissingPreparedData is reported by draw steps that need prepared
	// per-sprite data which does not exist this frame.
	ErrMissingPreparedData = errors.New("gpu: missing prepared sprite data")

	// ErrBindingBuild is recorded when a sprite's bind group cannot be built.
	ErrBindingBuild = errors.New("gpu: sprite binding build failed")

	// ErrMissingGeometry is reported when the shared quad is not uploaded.
	ErrMissingGeometry = errors.New("gpu: quad geometry not ready")

	// ErrMissingViewBinding is reported when a view has no prepared uniform.
	ErrMissingViewBinding = errors.New("gpu: view bind group not prepared")

	// ErrMissingPipeline is reported when a draw item names an unknown pipeline.
	ErrMissingPipeline = errors.New("gpu: pipeline not found")

	// ErrUnknownDrawFunction is reported when a draw item names an
	// unregistered draw function.
	ErrUnknownDrawFunction = errors.New("gpu: unknown draw function")
)

// Setup errors returned from constructors.
var (
	// ErrNilDevice is returned when a constructor receives a nil device or queue.
	ErrNilDevice = errors.New("gpu: device or queue is nil")

	// ErrTextureNotResident is returned when a texture has not been uploaded.
	ErrTextureNotResident = errors.New("gpu: texture not resident")

	// ErrEmptyImage is returned when uploading an image with no pixels.
	ErrEmptyImage = errors.New("gpu: image has zero size")
)

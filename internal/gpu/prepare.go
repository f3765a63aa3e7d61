//go:build !nogpu

package gpu

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/sprite/assets"
	"github.com/gogpu/sprite/render"
)

// TextureResolver returns the GPU view for a sprite texture.
// *TextureStore implements it.
type TextureResolver interface {
	View(h assets.Handle) (hal.TextureView, error)
}

// PrepareParams is what the prepare stage needs besides the frame.
type PrepareParams struct {
	Device   hal.Device
	Queue    hal.Queue
	Pipeline *SpritePipeline
	Textures TextureResolver
}

// PrepareStats reports the outcome of one prepare pass.
type PrepareStats struct {
	Prepared int
	// Deferred counts sprites whose texture was not resident.
	Deferred int
	// Failed counts sprites whose GPU resources could not be created.
	Failed   int
	Views    int
}

// Prepare builds the GPU state for every extracted sprite and every view.
// Sprites that cannot be prepared are left out of frame.Prepared; they are
// retried from scratch next frame.
func Prepare(frame *Frame, views []render.View, p PrepareParams) PrepareStats {
	var stats PrepareStats

	for _, sp := range frame.Sprites.All() {
		prepared, err := prepareSprite(frame, &sp, p)
		if err != nil {
			if errors.Is(err, ErrTextureNotResident) {
				stats.Deferred++
				slogger().Debug("gpu: sprite deferred", "entity", sp.Entity, "err", err)
			} else {
				stats.Failed++
				slogger().Warn("gpu: sprite prepare failed", "entity", sp.Entity, "err", err)
			}
			continue
		}
		frame.Prepared[sp.Entity] = prepared
		stats.Prepared++
	}

	for _, v := range views {
		pv, err := prepareView(frame, v, p)
		if err != nil {
			slogger().Warn("gpu: view prepare failed", "view", v.ID, "err", err)
			continue
		}
		frame.Views[v.ID] = pv
		stats.Views++
	}

	slogger().Debug("gpu: prepared frame", "frame", frame.Number,
		"prepared", stats.Prepared, "deferred", stats.Deferred, "failed", stats.Failed)
	return stats
}

func prepareSprite(frame *Frame, sp *ExtractedSprite, p PrepareParams) (*PreparedSprite, error) {
	view, err := p.Textures.View(sp.Texture)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBindingBuild, err)
	}

	buf, err := createAndUploadBuffer(p.Device, p.Queue, "sprite_instance", instanceBytes(sp.Instance),
		gputypes.BufferUsageVertex|gputypes.BufferUsageCopyDst)
	if err != nil {
		return nil, err
	}

	bg, err := p.Device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "sprite_material_bind",
		Layout: p.Pipeline.SpriteLayout(),
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.TextureViewBinding{TextureView: view.NativeHandle()}},
			{Binding: 1, Resource: gputypes.SamplerBinding{Sampler: p.Pipeline.Sampler().NativeHandle()}},
		},
	})
	if err != nil {
		p.Device.DestroyBuffer(buf)
		return nil, fmt.Errorf("%w: %w", ErrBindingBuild, err)
	}

	frame.trackBuffer(buf)
	frame.trackBindGroup(bg)
	return &PreparedSprite{BindGroup: bg, InstanceBuffer: buf, InstanceCount: 1}, nil
}

func prepareView(frame *Frame, v render.View, p PrepareParams) (*PreparedView, error) {
	buf, err := createAndUploadBuffer(p.Device, p.Queue, "sprite_view_uniform", viewUniformBytes(v.ViewProjection),
		gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst)
	if err != nil {
		return nil, err
	}
	bg, err := p.Device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "sprite_view_bind",
		Layout: p.Pipeline.ViewLayout(),
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: buf.NativeHandle(), Offset: 0, Size: viewUniformSize,
			}},
		},
	})
	if err != nil {
		p.Device.DestroyBuffer(buf)
		return nil, fmt.Errorf("create view bind group: %w", err)
	}
	frame.trackBuffer(buf)
	frame.trackBindGroup(bg)
	return &PreparedView{Uniform: buf, BindGroup: bg}, nil
}

// instanceBytes encodes the instance rows verbatim, little-endian.
func instanceBytes(m InstanceMatrix) []byte {
	buf := make([]byte, 0, instanceStride)
	for _, row := range m {
		for _, c := range row {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(c))
		}
	}
	return buf
}

// viewUniformBytes encodes a column-major mat4x4<f32>.
func viewUniformBytes(m mgl32.Mat4) []byte {
	buf := make([]byte, 0, viewUniformSize)
	for _, c := range m {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(c))
	}
	return buf
}

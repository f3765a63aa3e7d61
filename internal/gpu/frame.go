//go:build !nogpu

package gpu

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/sprite/assets"
	"github.com/gogpu/sprite/render"
	"github.com/gogpu/sprite/scene"
)

// InstanceMatrix is the per-instance transform uploaded for a sprite: the
// three rows of the affine 3x4 world matrix. Row i holds the i-th row of
// the 3x3 linear part followed by the i-th translation component.
type InstanceMatrix [3]mgl32.Vec4

// ExtractedSprite is the render-side snapshot of one visible sprite.
type ExtractedSprite struct {
	Entity   scene.Entity
	Instance InstanceMatrix
	// Depth is the world Z translation, used as the sort key.
	Depth   float32
	Texture assets.Handle
}

// ExtractedSprites is the frame's snapshot, in extraction order, with an
// index by entity.
type ExtractedSprites struct {
	items []ExtractedSprite
	index map[scene.Entity]int
}

func (s *ExtractedSprites) reset() {
	s.items = s.items[:0]
	if s.index == nil {
		s.index = make(map[scene.Entity]int)
	}
	clear(s.index)
}

func (s *ExtractedSprites) insert(sp ExtractedSprite) {
	if i, ok := s.index[sp.Entity]; ok {
		s.items[i] = sp
		return
	}
	s.index[sp.Entity] = len(s.items)
	s.items = append(s.items, sp)
}

// Get returns the extracted sprite for e.
func (s *ExtractedSprites) Get(e scene.Entity) (ExtractedSprite, bool) {
	i, ok := s.index[e]
	if !ok {
		return ExtractedSprite{}, false
	}
	return s.items[i], true
}

// All returns the sprites in extraction order. The slice is owned by the
// frame and valid until the next Begin.
func (s *ExtractedSprites) All() []ExtractedSprite { return s.items }

// Len returns the number of extracted sprites.
func (s *ExtractedSprites) Len() int { return len(s.items) }

// PreparedSprite is the GPU-ready state of one extracted sprite.
type PreparedSprite struct {
	BindGroup      hal.BindGroup
	InstanceBuffer hal.Buffer
	InstanceCount  uint32
}

// PreparedView is the GPU-ready state of one view.
type PreparedView struct {
	Uniform   hal.Buffer
	BindGroup hal.BindGroup
}

// Frame is the explicit context passed between the stages of one frame.
// Everything in it is rebuilt from scratch each frame.
type Frame struct {
	Number   uint64
	Sprites  ExtractedSprites
	Prepared map[scene.Entity]*PreparedSprite
	Views    map[render.ViewID]*PreparedView

	// transient GPU resources created for this frame, released by the next
	// Begin or by Release.
	buffers    []hal.Buffer
	bindGroups []hal.BindGroup
}

// NewFrame returns an empty frame.
func NewFrame() *Frame {
	f := &Frame{
		Prepared: make(map[scene.Entity]*PreparedSprite),
		Views:    make(map[render.ViewID]*PreparedView),
	}
	f.Sprites.reset()
	return f
}

// Begin starts the next frame: it releases the previous frame's transient
// GPU resources and clears all frame data. The caller must ensure the GPU
// has finished with the previous frame.
func (f *Frame) Begin(device hal.Device) {
	f.Release(device)
	f.Number++
	f.Sprites.reset()
	clear(f.Prepared)
	clear(f.Views)
}

// Release destroys the transient resources without starting a new frame.
func (f *Frame) Release(device hal.Device) {
	if device != nil {
		for _, bg := range f.bindGroups {
			device.DestroyBindGroup(bg)
		}
		for _, b := range f.buffers {
			device.DestroyBuffer(b)
		}
	}
	clear(f.bindGroups)
	clear(f.buffers)
	f.bindGroups = f.bindGroups[:0]
	f.buffers = f.buffers[:0]
}

func (f *Frame) trackBuffer(b hal.Buffer)       { f.buffers = append(f.buffers, b) }
func (f *Frame) trackBindGroup(bg hal.BindGroup) { f.bindGroups = append(f.bindGroups, bg) }

package render

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/sprite/scene"
)

// ViewID identifies a camera view.
type ViewID uint32

// VisibleEntities is a view's visible-entity membership test.
type VisibleEntities interface {
	Contains(e scene.Entity) bool
}

// View is a camera-like viewpoint.
type View struct {
	ID ViewID

	// ViewProjection maps world space to clip space. It is uploaded as the
	// view uniform bound at group 0.
	ViewProjection mgl32.Mat4

	// Visible decides which extracted sprites this view draws. A nil
	// Visible sees nothing.
	Visible VisibleEntities
}

// OrthographicView returns a view with a pixel-space orthographic
// projection: origin at the bottom-left, width by height units, and
// depth range [near, far].
func OrthographicView(id ViewID, width, height, near, far float32, visible VisibleEntities) View {
	return View{
		ID:             id,
		ViewProjection: mgl32.Ortho(0, width, 0, height, near, far),
		Visible:        visible,
	}
}

// EntitySet is a VisibleEntities backed by a set.
type EntitySet map[scene.Entity]struct{}

// NewEntitySet returns a set holding entities.
func NewEntitySet(entities ...scene.Entity) EntitySet {
	s := make(EntitySet, len(entities))
	for _, e := range entities {
		s[e] = struct{}{}
	}
	return s
}

// Add inserts e.
func (s EntitySet) Add(e scene.Entity) { s[e] = struct{}{} }

// Remove deletes e.
func (s EntitySet) Remove(e scene.Entity) { delete(s, e) }

// Contains reports whether e is in the set.
func (s EntitySet) Contains(e scene.Entity) bool {
	_, ok := s[e]
	return ok
}

// AllEntities is a VisibleEntities that contains every entity.
type AllEntities struct{}

// Contains always reports true.
func (AllEntities) Contains(scene.Entity) bool { return true }

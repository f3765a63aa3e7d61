package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/sprite/assets"
)

// GlobalTransform is an entity's world-space affine transform.
type GlobalTransform struct {
	Matrix mgl32.Mat4
}

// IdentityTransform returns the identity transform.
func IdentityTransform() GlobalTransform {
	return GlobalTransform{Matrix: mgl32.Ident4()}
}

// FromTranslation returns a transform that only translates.
func FromTranslation(x, y, z float32) GlobalTransform {
	return GlobalTransform{Matrix: mgl32.Translate3D(x, y, z)}
}

// FromTRS composes translation, rotation about Z (radians) and scale, applied
// in scale, rotate, translate order.
func FromTRS(t mgl32.Vec3, rotationZ float32, s mgl32.Vec3) GlobalTransform {
	m := mgl32.Translate3D(t.X(), t.Y(), t.Z()).
		Mul4(mgl32.HomogRotate3DZ(rotationZ)).
		Mul4(mgl32.Scale3D(s.X(), s.Y(), s.Z()))
	return GlobalTransform{Matrix: m}
}

// Translation returns the translation column.
func (t GlobalTransform) Translation() mgl32.Vec3 {
	return t.Matrix.Col(3).Vec3()
}

// Linear returns the upper-left 3x3 linear part.
func (t GlobalTransform) Linear() mgl32.Mat3 {
	return t.Matrix.Mat3()
}

// Sprite marks an entity as drawable with a texture.
type Sprite struct {
	Texture assets.Handle
}

// SpriteRecord is one row of the sprite query.
type SpriteRecord struct {
	Entity    Entity
	Transform GlobalTransform
	Visible   bool
	Sprite    Sprite
}

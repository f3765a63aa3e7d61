//go:build !nogpu

package gpu

import (
	"iter"

	"github.com/gogpu/sprite/scene"
)

// SpriteSource is the scene query extraction reads from.
// *scene.World implements it.
type SpriteSource interface {
	Sprites() iter.Seq[scene.SpriteRecord]
}

// NewInstanceMatrix packs a world transform into instance rows.
func NewInstanceMatrix(t scene.GlobalTransform) InstanceMatrix {
	lin := t.Linear().Transpose()
	tr := t.Translation()
	return InstanceMatrix{
		lin.Col(0).Vec4(tr.X()),
		lin.Col(1).Vec4(tr.Y()),
		lin.Col(2).Vec4(tr.Z()),
	}
}

// Extract snapshots every visible sprite from src into frame. Any sprites
// already in the frame's snapshot are discarded first. It returns the number
// of sprites extracted.
func Extract(frame *Frame, src SpriteSource) int {
	frame.Sprites.reset()
	hidden := 0
	for rec := range src.Sprites() {
		if !rec.Visible {
			hidden++
			continue
		}
		frame.Sprites.insert(ExtractedSprite{
			Entity:   rec.Entity,
			Instance: NewInstanceMatrix(rec.Transform),
			Depth:    rec.Transform.Translation().Z(),
			Texture:  rec.Sprite.Texture,
		})
	}
	slogger().Debug("gpu: extracted sprites",
		"frame", frame.Number, "extracted", frame.Sprites.Len(), "hidden", hidden)
	return frame.Sprites.Len()
}

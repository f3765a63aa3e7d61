package scene

import "iter"

const defaultCapacity = 64

// World is a typed entity table with one sparse component store per
// component kind.
//
// World is not safe for concurrent use. The render side only reads it
// during extraction.
type World struct {
	generations []uint32
	alive       []bool
	free        []uint32
	count       int

	transforms *Store[GlobalTransform]
	visibility *Store[bool]
	sprites    *Store[Sprite]
}

// NewWorld creates an empty world.
func NewWorld() *World {
	return &World{
		transforms: NewStore[GlobalTransform](defaultCapacity),
		visibility: NewStore[bool](defaultCapacity),
		sprites:    NewStore[Sprite](defaultCapacity),
	}
}

// Spawn allocates a new entity. Generations start at 1 so no live entity
// equals InvalidEntity.
func (w *World) Spawn() Entity {
	w.count++
	if n := len(w.free); n > 0 {
		idx := w.free[n-1]
		w.free = w.free[:n-1]
		w.alive[idx] = true
		return newEntity(idx, w.generations[idx])
	}
	idx := uint32(len(w.generations))
	w.generations = append(w.generations, 1)
	w.alive = append(w.alive, true)
	return newEntity(idx, 1)
}

// Despawn removes e and all of its components. It reports false for stale
// or unknown handles.
func (w *World) Despawn(e Entity) bool {
	if !w.Alive(e) {
		return false
	}
	w.transforms.Remove(e)
	w.visibility.Remove(e)
	w.sprites.Remove(e)

	idx := e.Index()
	w.alive[idx] = false
	w.generations[idx]++
	w.free = append(w.free, idx)
	w.count--
	return true
}

// Alive reports whether e refers to a live entity.
func (w *World) Alive(e Entity) bool {
	idx := int(e.Index())
	return idx < len(w.generations) && w.alive[idx] && w.generations[idx] == e.Generation()
}

// Len returns the number of live entities.
func (w *World) Len() int { return w.count }

// SetTransform sets the world transform of e. Stale handles are ignored.
func (w *World) SetTransform(e Entity, t GlobalTransform) {
	if w.Alive(e) {
		w.transforms.Set(e, t)
	}
}

// SetVisible sets the visibility flag of e.
func (w *World) SetVisible(e Entity, visible bool) {
	if w.Alive(e) {
		w.visibility.Set(e, visible)
	}
}

// SetSprite attaches a sprite to e.
func (w *World) SetSprite(e Entity, s Sprite) {
	if w.Alive(e) {
		w.sprites.Set(e, s)
	}
}

// RemoveSprite detaches the sprite from e.
func (w *World) RemoveSprite(e Entity) bool {
	return w.sprites.Remove(e)
}

// Transform returns the world transform of e.
func (w *World) Transform(e Entity) (GlobalTransform, bool) { return w.transforms.Get(e) }

// Visible returns the visibility flag of e.
func (w *World) Visible(e Entity) (bool, bool) { return w.visibility.Get(e) }

// Sprite returns the sprite attached to e.
func (w *World) Sprite(e Entity) (Sprite, bool) { return w.sprites.Get(e) }

// Sprites yields every entity that has a sprite, a transform and a
// visibility flag, in sprite store order. Entities missing a transform or a
// visibility flag are not part of the query.
func (w *World) Sprites() iter.Seq[SpriteRecord] {
	return func(yield func(SpriteRecord) bool) {
		for i, e := range w.sprites.Entities() {
			t, ok := w.transforms.Get(e)
			if !ok {
				continue
			}
			vis, ok := w.visibility.Get(e)
			if !ok {
				continue
			}
			rec := SpriteRecord{
				Entity:    e,
				Transform: t,
				Visible:   vis,
				Sprite:    w.sprites.dense[i],
			}
			if !yield(rec) {
				return
			}
		}
	}
}

// SpawnSprite is a convenience that spawns an entity with all sprite
// components set.
func (w *World) SpawnSprite(t GlobalTransform, visible bool, s Sprite) Entity {
	e := w.Spawn()
	w.SetTransform(e, t)
	w.SetVisible(e, visible)
	w.SetSprite(e, s)
	return e
}

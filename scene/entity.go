package scene

import "fmt"

// Entity is a stable identity for an object in a World.
//
// The low 32 bits hold the slot index and the high 32 bits hold the slot
// generation. A despawned slot is reused with a bumped generation, so old
// handles never alias the new occupant.
type Entity uint64

// InvalidEntity is the zero Entity. No live entity ever has this value.
const InvalidEntity Entity = 0

func newEntity(index, generation uint32) Entity {
	return Entity(uint64(generation)<<32 | uint64(index))
}

// Index returns the slot index of the entity.
func (e Entity) Index() uint32 { return uint32(e) }

// Generation returns the slot generation of the entity.
func (e Entity) Generation() uint32 { return uint32(e >> 32) }

// String implements fmt.Stringer.
func (e Entity) String() string {
	return fmt.Sprintf("%dv%d", e.Index(), e.Generation())
}

package scene

// tombstone marks an unused sparse slot.
const tombstone int32 = -1

// Store is a sparse set of components of type T keyed by entity index.
//
// sparse maps an entity index to a slot in dense. dense and owners are
// parallel arrays; iteration walks them in insertion order until a removal
// swaps the last element into the freed slot.
type Store[T any] struct {
	sparse []int32
	dense  []T
	owners []Entity
}

// NewStore creates an empty store with room for capacity components.
func NewStore[T any](capacity int) *Store[T] {
	return &Store[T]{
		dense:  make([]T, 0, capacity),
		owners: make([]Entity, 0, capacity),
	}
}

// Set inserts or replaces the component for e.
func (s *Store[T]) Set(e Entity, v T) {
	idx := int(e.Index())
	if idx >= len(s.sparse) {
		grow := idx + 1 - len(s.sparse)
		for i := 0; i < grow; i++ {
			s.sparse = append(s.sparse, tombstone)
		}
	}
	if slot := s.sparse[idx]; slot != tombstone {
		s.dense[slot] = v
		s.owners[slot] = e
		return
	}
	s.sparse[idx] = int32(len(s.dense))
	s.dense = append(s.dense, v)
	s.owners = append(s.owners, e)
}

// Get returns the component for e. The boolean is false when e has none or
// when e is a stale handle for the slot.
func (s *Store[T]) Get(e Entity) (T, bool) {
	slot, ok := s.slot(e)
	if !ok {
		var zero T
		return zero, false
	}
	return s.dense[slot], true
}

// Has reports whether e has a component in the store.
func (s *Store[T]) Has(e Entity) bool {
	_, ok := s.slot(e)
	return ok
}

// Remove deletes the component for e, if any.
func (s *Store[T]) Remove(e Entity) bool {
	slot, ok := s.slot(e)
	if !ok {
		return false
	}
	last := int32(len(s.dense) - 1)
	if slot != last {
		s.dense[slot] = s.dense[last]
		s.owners[slot] = s.owners[last]
		s.sparse[s.owners[slot].Index()] = slot
	}
	var zero T
	s.dense[last] = zero
	s.dense = s.dense[:last]
	s.owners = s.owners[:last]
	s.sparse[e.Index()] = tombstone
	return true
}

// Len returns the number of stored components.
func (s *Store[T]) Len() int { return len(s.dense) }

// Entities returns the owners in dense order. The slice is owned by the store.
func (s *Store[T]) Entities() []Entity { return s.owners }

// Clear removes every component without releasing memory.
func (s *Store[T]) Clear() {
	for i := range s.sparse {
		s.sparse[i] = tombstone
	}
	clear(s.dense)
	s.dense = s.dense[:0]
	s.owners = s.owners[:0]
}

func (s *Store[T]) slot(e Entity) (int32, bool) {
	idx := int(e.Index())
	if idx >= len(s.sparse) {
		return 0, false
	}
	slot := s.sparse[idx]
	if slot == tombstone || s.owners[slot] != e {
		return 0, false
	}
	return slot, true
}

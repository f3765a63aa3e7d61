package render

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/gogpu/sprite/scene"
)

// PipelineID identifies a specialized pipeline in the pipeline cache.
type PipelineID uint32

// InvalidPipeline is never returned for a successfully specialized pipeline.
const InvalidPipeline PipelineID = 0

// DrawFunctionID identifies a registered draw function.
type DrawFunctionID uint32

// Range is a half-open instance range.
type Range struct {
	Start, End uint32
}

// Len returns the number of instances in the range.
func (r Range) Len() uint32 {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start
}

// DrawItem is one queued draw for one view.
type DrawItem struct {
	SortKey      float32
	Entity       scene.Entity
	Pipeline     PipelineID
	DrawFunction DrawFunctionID
	Batch        Range
}

// SortOrder is the depth ordering of a phase.
type SortOrder uint8

const (
	// Ascending draws lower depth first.
	Ascending SortOrder = iota
	// Descending draws higher depth first.
	Descending
)

func (o SortOrder) String() string {
	if o == Descending {
		return "descending"
	}
	return "ascending"
}

// ParseSortOrder parses "ascending" or "descending", case-insensitively.
// The empty string yields Ascending.
func ParseSortOrder(s string) (SortOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ascending", "asc":
		return Ascending, nil
	case "descending", "desc":
		return Descending, nil
	default:
		return Ascending, fmt.Errorf("render: unknown sort order %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (o SortOrder) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *SortOrder) UnmarshalText(b []byte) error {
	v, err := ParseSortOrder(string(b))
	if err != nil {
		return err
	}
	*o = v
	return nil
}

// SortedPhase is one view's draw list.
type SortedPhase struct {
	items []DrawItem
}

// Add appends an item. Order is settled by Sort.
func (p *SortedPhase) Add(item DrawItem) { p.items = append(p.items, item) }

// Clear empties the phase, keeping capacity.
func (p *SortedPhase) Clear() { p.items = p.items[:0] }

// Sort orders items by SortKey. Items with equal keys keep insertion order.
func (p *SortedPhase) Sort(order SortOrder) {
	slices.SortStableFunc(p.items, func(a, b DrawItem) int {
		if order == Descending {
			return cmp.Compare(b.SortKey, a.SortKey)
		}
		return cmp.Compare(a.SortKey, b.SortKey)
	})
}

// Items returns the queued items. The slice is owned by the phase and is
// valid until the next Clear.
func (p *SortedPhase) Items() []DrawItem { return p.items }

// Len returns the number of queued items.
func (p *SortedPhase) Len() int { return len(p.items) }

// ViewPhases is the registry of per-view phases. The host inserts a phase
// for each view it wants drawn.
type ViewPhases struct {
	mu     sync.RWMutex
	phases map[ViewID]*SortedPhase
}

// NewViewPhases creates an empty registry.
func NewViewPhases() *ViewPhases {
	return &ViewPhases{phases: make(map[ViewID]*SortedPhase)}
}

// Insert registers an empty phase for id and returns it. An existing phase
// is returned unchanged.
func (v *ViewPhases) Insert(id ViewID) *SortedPhase {
	v.mu.Lock()
	defer v.mu.Unlock()
	if p, ok := v.phases[id]; ok {
		return p
	}
	p := &SortedPhase{}
	v.phases[id] = p
	return p
}

// Get returns the phase for id.
func (v *ViewPhases) Get(id ViewID) (*SortedPhase, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	p, ok := v.phases[id]
	return p, ok
}

// Remove unregisters the phase for id.
func (v *ViewPhases) Remove(id ViewID) {
	v.mu.Lock()
	delete(v.phases, id)
	v.mu.Unlock()
}

// Views returns the registered view ids in ascending order.
func (v *ViewPhases) Views() []ViewID {
	v.mu.RLock()
	ids := make([]ViewID, 0, len(v.phases))
	for id := range v.phases {
		ids = append(ids, id)
	}
	v.mu.RUnlock()
	slices.Sort(ids)
	return ids
}

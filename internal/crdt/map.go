// Package crdt implements an observed-remove map whose values are
// multi-value registers. Concurrent writes to a key are kept as sibling
// values until a causally later write subsumes them. Apply is idempotent
// and commutative, so operations may arrive duplicated and in any order.
package crdt

import (
	"sort"

	"github.com/gossipkv/gossipkv/internal/clock"
)

// Operation is a single change to the replicated map. Exactly one of
// Update and Remove is set.
type Operation struct {
	Update *UpdateOp `json:"update,omitempty"`
	Remove *RemoveOp `json:"remove,omitempty"`
}

// UpdateOp writes a value at a key. Dot is the operation's unique
// timestamp; Ctx is the writer's clock at write time, Dot included, and
// decides which sibling values the write supersedes.
type UpdateOp struct {
	Dot   clock.Dot         `json:"dot"`
	Key   string            `json:"key"`
	Value string            `json:"value"`
	Ctx   clock.VectorClock `json:"ctx"`
}

// RemoveOp tombstones, for every key in Keys, the entries whose dot is
// covered by Clock.
type RemoveOp struct {
	Clock clock.VectorClock `json:"clock"`
	Keys  []string          `json:"keys"`
}

// entry is one sibling held by a key's multi-value register. Entries of
// the same register are pairwise concurrent by Ctx.
type entry struct {
	value string
	dot   clock.Dot
	ctx   clock.VectorClock
}

// Map is the observed-remove map. Not safe for concurrent use; callers
// serialize access.
type Map struct {
	registers map[string][]entry
	addClock  clock.VectorClock
}

// NewMap returns an empty map
func NewMap() *Map {
	return &Map{
		registers: make(map[string][]entry),
		addClock:  clock.NewVectorClock(),
	}
}

// AddClock returns a copy of the map's add clock: the join of every
// Update dot and Remove clock applied so far.
func (m *Map) AddClock() clock.VectorClock {
	return clock.Clone(m.addClock)
}

// Apply folds an operation into the map. Re-applying an operation that
// was already observed leaves the map unchanged.
func (m *Map) Apply(op Operation) {
	switch {
	case op.Update != nil:
		m.applyUpdate(op.Update)
	case op.Remove != nil:
		m.applyRemove(op.Remove)
	}
}

func (m *Map) applyUpdate(up *UpdateOp) {
	// A dot the add clock covers was observed before, possibly removed
	// since. Either way the op is spent.
	if m.addClock.Seen(up.Dot) {
		return
	}
	m.addClock.Apply(up.Dot)

	existing := m.registers[up.Key]
	next := make([]entry, 0, len(existing)+1)
	dominated := false
	for _, e := range existing {
		switch clock.Compare(e.ctx, up.Ctx) {
		case clock.After, clock.Equal:
			dominated = true
			next = append(next, e)
		case clock.Concurrent:
			next = append(next, e)
		case clock.Before:
			// superseded sibling, dropped
		}
	}
	if !dominated {
		next = append(next, entry{value: up.Value, dot: up.Dot, ctx: clock.Clone(up.Ctx)})
	}
	m.registers[up.Key] = next
}

func (m *Map) applyRemove(rm *RemoveOp) {
	for _, key := range rm.Keys {
		existing, ok := m.registers[key]
		if !ok {
			continue
		}
		next := existing[:0]
		for _, e := range existing {
			if !rm.Clock.Seen(e.dot) {
				next = append(next, e)
			}
		}
		if len(next) == 0 {
			delete(m.registers, key)
		} else {
			m.registers[key] = next
		}
	}
	m.addClock = clock.Merge(m.addClock, rm.Clock)
}

// Get returns the current sibling values of a key in deterministic
// order, or ok=false if the key holds no value.
func (m *Map) Get(key string) ([]string, bool) {
	entries, ok := m.registers[key]
	if !ok || len(entries) == 0 {
		return nil, false
	}
	sorted := make([]entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].dot.Actor != sorted[j].dot.Actor {
			return sorted[i].dot.Actor < sorted[j].dot.Actor
		}
		return sorted[i].dot.Counter < sorted[j].dot.Counter
	})
	values := make([]string, len(sorted))
	for i, e := range sorted {
		values[i] = e.value
	}
	return values, true
}

// Keys returns the keys currently holding a value, sorted
func (m *Map) Keys() []string {
	keys := make([]string, 0, len(m.registers))
	for k := range m.registers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of keys holding a value
func (m *Map) Len() int { return len(m.registers) }

// RemoveContext returns a clock covering exactly the dots of the key's
// current entries, the observed-remove context for building a RemoveOp.
// An empty clock means the key holds nothing to remove.
func (m *Map) RemoveContext(key string) clock.VectorClock {
	ctx := clock.NewVectorClock()
	for _, e := range m.registers[key] {
		ctx.Apply(e.dot)
	}
	return ctx
}

// Package registry implements a generational arena used to hold the
// live set of proxy connections. Pairing one connection to its remote
// counterpart (logger-facing <-> cloud-facing) is expressed as a Handle
// into the arena rather than a direct pointer, so a closed connection
// simply becomes a failed Lookup instead of leaving a dangling
// back-reference for the garbage collector to chase — the Go analogue of
// the original's weakref-based iter_registry.
package registry

import (
	"sync"

	"github.com/google/uuid"
)

// Handle names a slot in a Registry. The zero Handle never resolves;
// callers use it as the "no peer" sentinel.
type Handle struct {
	index uint32
	gen   uint32
}

// Valid reports whether h was ever issued by a Registry (as opposed to
// the zero value).
func (h Handle) Valid() bool {
	return h.gen != 0
}

type slot[T any] struct {
	gen   uint32
	value T
	used  bool
}

// Registry is a generational arena of values of type T, safe for
// concurrent use. T is typically *Connection; the arena itself has no
// dependency on the connection type.
type Registry[T any] struct {
	mu    sync.RWMutex
	slots []slot[T]
	free  []uint32
	ids   map[Handle]uuid.UUID
}

// New returns an empty registry.
func New[T any]() *Registry[T] {
	return &Registry[T]{ids: make(map[Handle]uuid.UUID)}
}

// Insert adds value and returns a Handle to it plus a correlation id
// suitable for structured log fields.
func (r *Registry[T]) Insert(value T) (Handle, uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := uuid.New()
	if n := len(r.free); n > 0 {
		idx := r.free[n-1]
		r.free = r.free[:n-1]
		s := &r.slots[idx]
		s.gen++
		s.value = value
		s.used = true
		h := Handle{index: idx, gen: s.gen}
		r.ids[h] = id
		return h, id
	}

	idx := uint32(len(r.slots))
	r.slots = append(r.slots, slot[T]{gen: 1, value: value, used: true})
	h := Handle{index: idx, gen: 1}
	r.ids[h] = id
	return h, id
}

// Lookup resolves a Handle to its value. It returns false once the slot
// has been Removed and possibly reused by a later Insert.
func (r *Registry[T]) Lookup(h Handle) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var zero T
	if !h.Valid() || int(h.index) >= len(r.slots) {
		return zero, false
	}
	s := &r.slots[h.index]
	if !s.used || s.gen != h.gen {
		return zero, false
	}
	return s.value, true
}

// Remove frees h's slot. Any other Handle still pointing at the same
// index (a stale peer reference) will fail its next Lookup because the
// generation counter has moved on.
func (r *Registry[T]) Remove(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !h.Valid() || int(h.index) >= len(r.slots) {
		return
	}
	s := &r.slots[h.index]
	if !s.used || s.gen != h.gen {
		return
	}
	var zero T
	s.value = zero
	s.used = false
	r.free = append(r.free, h.index)
	delete(r.ids, h)
}

// Snapshot returns every currently live value. It is a point-in-time
// copy, so it stays safe to range over even while other goroutines
// concurrently Insert/Remove — the same tolerance the original gets from
// iterating weakrefs in iter_registry.py.
func (r *Registry[T]) Snapshot() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]T, 0, len(r.slots)-len(r.free))
	for i := range r.slots {
		if r.slots[i].used {
			out = append(out, r.slots[i].value)
		}
	}
	return out
}

// Len returns the number of live entries.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.slots) - len(r.free)
}

package cachingmap

import (
	"fmt"
	"iter"
)

// holder is the separately allocated cell for one cached value.
//
// The table below maps keys to *holder, never to V directly: the Go
// runtime may move map elements when the table grows, but it never moves
// a heap allocation, so &h.value stays valid for as long as the holder is
// reachable. Holders are created on insertion and never written to again;
// destructive operations drop the whole holder instead of reusing it.
type holder[V any] struct {
	value V
}

// Map is an append-only caching map from K to V.
//
// Get and GetOrCreate return *V pointers into per-entry holders. Those
// pointers remain valid across any number of later insertions: inserting
// grows only the table's bookkeeping, never touches an existing holder.
//
// Methods come in two access modes (see the package documentation):
//
//   - Shared: Get, GetOrCreate, Insert, Len, Contains, Keys, All, Stats,
//     ResetStats, Clone. Safe to call while pointers from earlier calls
//     are still in use.
//   - Exclusive: Remove, Replace, Clear. These drop holders; pointers to
//     the affected entries must not be dereferenced afterwards.
//
// Map is NOT safe for concurrent use.
// Map must be created with New and must not be copied after creation
// (enforced by copyCheck).
type Map[K comparable, V any] struct {
	// addr is used for copy protection (Ebitengine pattern).
	// It must point to the Map itself.
	addr *Map[K, V]

	entries map[K]*holder[V]

	// Diagnostic counters. Plain integers: the Map is single-owner by
	// contract, so there is nothing to synchronize against.
	hits         uint64
	misses       uint64
	inserts      uint64
	removals     uint64
	replacements uint64
}

// New creates an empty Map.
func New[K comparable, V any]() *Map[K, V] {
	m := &Map[K, V]{
		entries: make(map[K]*holder[V]),
	}
	m.addr = m // Self-reference for copy detection
	return m
}

// Get returns a pointer to the value cached for key, or (nil, false) if
// the key is absent.
//
// Shared access: Get never mutates the table. It does count a hit or a
// miss for Stats.
func (m *Map[K, V]) Get(key K) (*V, bool) {
	m.copyCheck()
	h, ok := m.entries[key]
	if !ok {
		m.misses++
		return nil, false
	}
	m.hits++
	return &h.value, true
}

// GetOrCreate returns a pointer to the value cached for key, creating it
// if necessary. When the key is present, create is not invoked and the
// existing pointer is returned with created == false. Otherwise create is
// invoked exactly once, its result is stored in a fresh holder, and the
// new pointer is returned with created == true.
//
// Shared access: this is the primary cache-population entry point. It may
// be called while pointers from earlier calls are in use, and create may
// itself call GetOrCreate or Insert on the same Map for a *different*
// key (the entry is linked into the table only after create returns).
// Calling back for the same key from inside create is a contract
// violation: the outer call would install a second holder over the inner
// one, leaving the inner pointer stale.
func (m *Map[K, V]) GetOrCreate(key K, create func() V) (ref *V, created bool) {
	m.copyCheck()
	if h, ok := m.entries[key]; ok {
		m.hits++
		return &h.value, false
	}
	m.misses++
	h := &holder[V]{value: create()}
	m.entries[key] = h
	m.inserts++
	return &h.value, true
}

// Insert stores an already-computed value for a brand-new key and returns
// a pointer to the cached copy.
//
// Shared access: inserting over an existing key is refused with an error
// wrapping ErrKeyExists and the map is left unchanged. Dropping the old
// holder would invalidate outstanding pointers, which only the exclusive
// Replace is allowed to do.
func (m *Map[K, V]) Insert(key K, value V) (*V, error) {
	m.copyCheck()
	if _, ok := m.entries[key]; ok {
		return nil, fmt.Errorf("insert %v: %w", key, ErrKeyExists)
	}
	h := &holder[V]{value: value}
	m.entries[key] = h
	m.inserts++
	return &h.value, nil
}

// Contains reports whether key has a cached value.
func (m *Map[K, V]) Contains(key K) bool {
	m.copyCheck()
	_, ok := m.entries[key]
	return ok
}

// Len returns the number of cached entries.
func (m *Map[K, V]) Len() int {
	m.copyCheck()
	return len(m.entries)
}

// Keys returns the cached keys in unspecified order.
func (m *Map[K, V]) Keys() []K {
	m.copyCheck()
	keys := make([]K, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	return keys
}

// All returns an iterator over all entries in unspecified order. The
// yielded pointers obey the usual stability contract.
//
// Shared access: inserting during iteration follows Go map semantics (new
// entries may or may not be yielded). Exclusive operations must not run
// during iteration.
func (m *Map[K, V]) All() iter.Seq2[K, *V] {
	m.copyCheck()
	return func(yield func(K, *V) bool) {
		for k, h := range m.entries {
			if !yield(k, &h.value) {
				return
			}
		}
	}
}

// Remove deletes the entry for key and returns the value it held.
//
// Exclusive access: the caller must ensure no pointer previously returned
// for key is dereferenced after Remove. The returned value is a copy
// owned by the caller.
func (m *Map[K, V]) Remove(key K) (V, bool) {
	m.copyCheck()
	h, ok := m.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	delete(m.entries, key)
	m.removals++
	return h.value, true
}

// Replace installs value in a fresh holder for key, returning the
// previous value if there was one. It is remove-then-insert in one step:
// when the key is absent, Replace simply inserts.
//
// Exclusive access: the new holder has a different address than the old
// one, so pointers obtained before Replace must not be dereferenced
// afterwards; re-fetch with Get.
func (m *Map[K, V]) Replace(key K, value V) (V, bool) {
	m.copyCheck()
	old, ok := m.entries[key]
	m.entries[key] = &holder[V]{value: value}
	if !ok {
		m.inserts++
		var zero V
		return zero, false
	}
	m.replacements++
	return old.value, true
}

// Clear drops every holder and empties the map.
//
// Exclusive access: all outstanding pointers become stale.
func (m *Map[K, V]) Clear() {
	m.copyCheck()
	n := len(m.entries)
	m.removals += uint64(n)
	m.entries = make(map[K]*holder[V])
	Logger().Debug("map cleared", "entries", n)
}

// Clone returns a new Map holding shallow copies of every value in fresh
// holders. Pointers into the original and the clone are disjoint, and the
// clone's diagnostic counters start at zero.
func (m *Map[K, V]) Clone() *Map[K, V] {
	m.copyCheck()
	c := New[K, V]()
	c.entries = make(map[K]*holder[V], len(m.entries))
	for k, h := range m.entries {
		c.entries[k] = &holder[V]{value: h.value}
	}
	return c
}

// copyCheck panics if the Map was copied by value or not created with New.
// This is the Ebitengine pattern for preventing accidental copies; a copy
// would share the underlying table while breaking the single-owner
// contract.
func (m *Map[K, V]) copyCheck() {
	if m.addr != m {
		panic("cachingmap: Map must be created with New and must not be copied by value")
	}
}

package cachingmap

// LazyMap pairs a Map with a derivation function so that lookups compute
// missing values on demand. It is the memoized-function view of a Map:
// Get never fails, it either returns the cached pointer or derives,
// caches, and returns a new one.
//
// LazyMap shares the Map's access-mode contract. Get is shared; Remove
// and Clear are exclusive. Unwrap exposes the underlying Map for
// anything else. LazyMap is NOT safe for concurrent use.
type LazyMap[K comparable, V any] struct {
	m      *Map[K, V]
	derive func(K) V
}

// NewLazy creates a LazyMap that fills misses with derive. It panics if
// derive is nil.
func NewLazy[K comparable, V any](derive func(K) V) *LazyMap[K, V] {
	if derive == nil {
		panic("cachingmap: NewLazy requires a non-nil derive function")
	}
	return &LazyMap[K, V]{
		m:      New[K, V](),
		derive: derive,
	}
}

// Get returns a pointer to the value for key, deriving and caching it on
// first use. The pointer stays valid across later Gets.
//
// derive may call Get for a different key (see Map.GetOrCreate for the
// re-entrancy contract).
func (l *LazyMap[K, V]) Get(key K) *V {
	ref, _ := l.m.GetOrCreate(key, func() V {
		return l.derive(key)
	})
	return ref
}

// Contains reports whether key has already been derived.
func (l *LazyMap[K, V]) Contains(key K) bool {
	return l.m.Contains(key)
}

// Len returns the number of derived entries.
func (l *LazyMap[K, V]) Len() int {
	return l.m.Len()
}

// Stats returns a snapshot of the underlying Map's counters. Every miss
// corresponds to one derive call.
func (l *LazyMap[K, V]) Stats() Stats {
	return l.m.Stats()
}

// Remove forgets key, returning the derived value if there was one. It
// is an exclusive operation with Map.Remove's contract; a later Get
// derives the key again into a fresh cell.
func (l *LazyMap[K, V]) Remove(key K) (V, bool) {
	return l.m.Remove(key)
}

// Clear forgets every derived entry. It is an exclusive operation with
// Map.Clear's contract.
func (l *LazyMap[K, V]) Clear() {
	l.m.Clear()
}

// Unwrap returns the underlying Map, for operations LazyMap does not
// mirror (Insert, Replace, Keys, All, Clone). The caller takes on the
// access-mode obligations of whatever it calls.
func (l *LazyMap[K, V]) Unwrap() *Map[K, V] {
	return l.m
}

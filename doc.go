// Package cachingmap provides an append-only caching map with stable
// references.
//
// # Overview
//
// A Map attaches lazily-computed derived values to keys. Unlike Go's
// built-in map, whose elements cannot be addressed at all because the
// runtime is free to move them when the table grows, a Map stores every
// value in its own heap-allocated holder and hands out *V pointers into
// those holders. A pointer obtained from a Map stays valid across any
// number of later insertions; only removing or replacing that entry makes
// it stale.
//
// # Quick Start
//
//	import "github.com/stableref/cachingmap"
//
//	// One cache slot inside a larger structure.
//	costs := cachingmap.New[string, float64]()
//
//	// Populate lazily; compute runs at most once per key.
//	price, _ := costs.GetOrCreate("eu-west", computeEUWest)
//
//	// The pointer survives unrelated insertions.
//	costs.GetOrCreate("us-east", computeUSEast)
//	fmt.Println(*price) // still valid
//
// # Access Modes
//
// Methods are split into two documented access modes:
//
//   - Shared: Get, GetOrCreate, Insert, Len, Contains, Keys, All, Stats,
//     ResetStats, Clone. These may add brand-new entries but never disturb
//     an existing holder, so every previously returned pointer remains
//     valid.
//   - Exclusive: Remove, Replace, Clear. These drop holders. The caller
//     must not dereference pointers to the affected entries afterwards;
//     doing so reads a stale (but memory-safe) value.
//
// Go has no borrow checker to reject a stale dereference at compile time,
// so the split is a documented contract rather than a static guarantee.
// The garbage collector keeps violations memory-safe: a stale pointer
// observes the value the entry had when it was dropped, never garbage.
//
// # Concurrency
//
// Map and LazyMap are NOT safe for concurrent use. They are single-owner,
// single-goroutine structures; wrapping one in external synchronization is
// the embedding code's responsibility. Even read-only lookups are
// unsynchronized. A Map must also not be copied by value after creation;
// methods on a copy panic.
//
// # Subpackages
//
//   - metrics: a prometheus.Collector exporting Map statistics.
package cachingmap

// Version information
const (
	// Version is the current version of the library
	Version = "0.2.1"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 2

	// VersionPatch is the patch version
	VersionPatch = 1
)

package cachingmap

// Stats is a snapshot of a Map's diagnostic counters.
//
// Hits and Misses count lookups (Get and GetOrCreate). Inserts counts
// holders created by GetOrCreate, Insert, and absent-key Replace.
// Removals counts holders dropped by Remove and Clear, Replacements
// holders swapped by Replace. Entries is the live entry count at
// snapshot time.
type Stats struct {
	Hits         uint64
	Misses       uint64
	Inserts      uint64
	Removals     uint64
	Replacements uint64
	Entries      int
}

// HitRate returns Hits / (Hits + Misses), or 0 when there have been no
// lookups.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Stats returns a snapshot of the Map's diagnostic counters.
func (m *Map[K, V]) Stats() Stats {
	m.copyCheck()
	return Stats{
		Hits:         m.hits,
		Misses:       m.misses,
		Inserts:      m.inserts,
		Removals:     m.removals,
		Replacements: m.replacements,
		Entries:      len(m.entries),
	}
}

// ResetStats zeroes the diagnostic counters. Cached entries are not
// affected.
func (m *Map[K, V]) ResetStats() {
	m.copyCheck()
	m.hits = 0
	m.misses = 0
	m.inserts = 0
	m.removals = 0
	m.replacements = 0
}

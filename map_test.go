package cachingmap

import (
	"errors"
	"slices"
	"strconv"
	"testing"
)

func TestNew(t *testing.T) {
	m := New[string, int]()
	if m == nil {
		t.Fatal("New returned nil")
	}
	if m.Len() != 0 {
		t.Errorf("expected empty map, got %d entries", m.Len())
	}
}

func TestMapGetAbsent(t *testing.T) {
	m := New[string, int]()

	ref, ok := m.Get("missing")
	if ok {
		t.Error("expected Get to miss on an empty map")
	}
	if ref != nil {
		t.Errorf("expected nil pointer on miss, got %p", ref)
	}
	if m.Contains("missing") {
		t.Error("expected Contains to be false before insertion")
	}
}

func TestMapInsert(t *testing.T) {
	m := New[string, int]()

	ref, err := m.Insert("key1", 42)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if *ref != 42 {
		t.Errorf("expected 42 through returned pointer, got %d", *ref)
	}
	if !m.Contains("key1") {
		t.Error("expected key1 to exist after Insert")
	}
	if m.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", m.Len())
	}

	// Get must return the same cell Insert handed out.
	got, ok := m.Get("key1")
	if !ok {
		t.Fatal("expected key1 to exist")
	}
	if got != ref {
		t.Errorf("Get returned a different pointer than Insert: %p vs %p", got, ref)
	}
}

func TestMapInsertDuplicate(t *testing.T) {
	m := New[string, int]()

	first, err := m.Insert("key1", 1)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	// Second insert for the same key is refused and changes nothing.
	ref, err := m.Insert("key1", 2)
	if err == nil {
		t.Fatal("expected Insert to fail for an existing key")
	}
	if !errors.Is(err, ErrKeyExists) {
		t.Errorf("expected error to wrap ErrKeyExists, got %v", err)
	}
	if ref != nil {
		t.Errorf("expected nil pointer on failed Insert, got %p", ref)
	}
	if *first != 1 {
		t.Errorf("expected existing value to survive failed Insert, got %d", *first)
	}
	if m.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", m.Len())
	}
}

func TestMapGetOrCreate(t *testing.T) {
	m := New[string, int]()
	createCalled := 0

	// First call should create.
	ref, created := m.GetOrCreate("key1", func() int {
		createCalled++
		return 100
	})
	if !created {
		t.Error("expected created=true on first call")
	}
	if *ref != 100 {
		t.Errorf("expected 100, got %d", *ref)
	}
	if createCalled != 1 {
		t.Errorf("expected create called once, got %d", createCalled)
	}

	// Second call should return the cached cell, same address.
	again, created := m.GetOrCreate("key1", func() int {
		createCalled++
		return 200
	})
	if created {
		t.Error("expected created=false on second call")
	}
	if again != ref {
		t.Errorf("expected the same pointer on cache hit: %p vs %p", again, ref)
	}
	if *again != 100 {
		t.Errorf("expected 100 (cached), got %d", *again)
	}
	if createCalled != 1 {
		t.Errorf("expected create still called once, got %d", createCalled)
	}
}

func TestMapPointerStabilityAcrossGrowth(t *testing.T) {
	m := New[int, string]()

	ref, err := m.Insert(0, "zero")
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	// Force several rounds of table growth.
	for i := 1; i < 10000; i++ {
		if _, err := m.Insert(i, strconv.Itoa(i)); err != nil {
			t.Fatalf("Insert(%d) failed: %v", i, err)
		}
	}

	if *ref != "zero" {
		t.Errorf("pointer went stale after growth: got %q", *ref)
	}
	got, ok := m.Get(0)
	if !ok {
		t.Fatal("expected key 0 to exist")
	}
	if got != ref {
		t.Errorf("Get returned a different pointer after growth: %p vs %p", got, ref)
	}

	// Spot-check a few other entries.
	for _, i := range []int{1, 999, 9999} {
		got, ok := m.Get(i)
		if !ok || *got != strconv.Itoa(i) {
			t.Errorf("expected key %d to read back %q", i, strconv.Itoa(i))
		}
	}
}

func TestMapPointerAliasesCell(t *testing.T) {
	type tile struct {
		id    int
		dirty bool
	}
	m := New[string, tile]()

	ref, err := m.Insert("t1", tile{id: 7})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	// Mutating through one pointer is visible through every other.
	ref.dirty = true
	got, _ := m.Get("t1")
	if !got.dirty {
		t.Error("expected mutation through pointer to be visible via Get")
	}
	if got.id != 7 {
		t.Errorf("expected id=7, got %d", got.id)
	}
}

func TestMapRemove(t *testing.T) {
	m := New[string, int]()

	if _, err := m.Insert("key1", 42); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	// Remove existing.
	val, ok := m.Remove("key1")
	if !ok {
		t.Error("expected Remove to return true for existing key")
	}
	if val != 42 {
		t.Errorf("expected removed value 42, got %d", val)
	}

	// Verify removed.
	if _, ok := m.Get("key1"); ok {
		t.Error("expected key1 to be removed")
	}
	if m.Len() != 0 {
		t.Errorf("expected 0 entries, got %d", m.Len())
	}

	// Remove non-existing.
	val, ok = m.Remove("nonexistent")
	if ok {
		t.Error("expected Remove to return false for non-existing key")
	}
	if val != 0 {
		t.Errorf("expected zero value for non-existing key, got %d", val)
	}
}

func TestMapRemoveLeavesHolderIntact(t *testing.T) {
	m := New[string, int]()

	ref, err := m.Insert("key1", 1)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	m.Remove("key1")

	// The dropped holder is never written to, so a pointer held across a
	// misuse of Remove still reads the old value instead of garbage.
	if *ref != 1 {
		t.Errorf("expected stale pointer to keep reading 1, got %d", *ref)
	}

	// Re-inserting the key allocates a fresh cell.
	fresh, err := m.Insert("key1", 2)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if fresh == ref {
		t.Error("expected re-insert to allocate a new holder")
	}
	if *ref != 1 || *fresh != 2 {
		t.Errorf("expected old=1 new=2, got old=%d new=%d", *ref, *fresh)
	}
}

func TestMapReplace(t *testing.T) {
	m := New[string, int]()

	oldRef, err := m.Insert("key1", 1)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	old, ok := m.Replace("key1", 2)
	if !ok {
		t.Error("expected Replace to report a previous value")
	}
	if old != 1 {
		t.Errorf("expected previous value 1, got %d", old)
	}

	newRef, _ := m.Get("key1")
	if *newRef != 2 {
		t.Errorf("expected 2 after Replace, got %d", *newRef)
	}
	if newRef == oldRef {
		t.Error("expected Replace to install a fresh holder")
	}
	if *oldRef != 1 {
		t.Errorf("expected stale pointer to keep reading 1, got %d", *oldRef)
	}
}

func TestMapReplaceAbsentInserts(t *testing.T) {
	m := New[string, int]()

	old, ok := m.Replace("key1", 5)
	if ok {
		t.Error("expected Replace to report no previous value")
	}
	if old != 0 {
		t.Errorf("expected zero previous value, got %d", old)
	}

	ref, ok := m.Get("key1")
	if !ok || *ref != 5 {
		t.Error("expected Replace on an absent key to insert")
	}
}

func TestMapClear(t *testing.T) {
	m := New[string, int]()

	refs := make([]*int, 0, 3)
	for i := 1; i <= 3; i++ {
		ref, err := m.Insert("key"+strconv.Itoa(i), i)
		if err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
		refs = append(refs, ref)
	}

	m.Clear()

	if m.Len() != 0 {
		t.Errorf("expected 0 entries after clear, got %d", m.Len())
	}
	if m.Contains("key1") {
		t.Error("expected key1 to be gone after clear")
	}

	// Dropped holders keep their last value.
	for i, ref := range refs {
		if *ref != i+1 {
			t.Errorf("expected stale pointer %d to keep reading %d, got %d", i, i+1, *ref)
		}
	}

	// The map is reusable after Clear.
	if _, err := m.Insert("key1", 10); err != nil {
		t.Fatalf("Insert after Clear failed: %v", err)
	}
}

func TestMapGetOrCreateReentrantDifferentKey(t *testing.T) {
	m := New[string, int]()

	// create may populate other keys in the same map; the outer entry is
	// linked in only after create returns.
	ref, created := m.GetOrCreate("outer", func() int {
		inner, created := m.GetOrCreate("inner", func() int { return 1 })
		if !created {
			t.Error("expected inner entry to be created")
		}
		return *inner + 10
	})

	if !created {
		t.Error("expected outer entry to be created")
	}
	if *ref != 11 {
		t.Errorf("expected outer=11, got %d", *ref)
	}
	inner, ok := m.Get("inner")
	if !ok || *inner != 1 {
		t.Error("expected inner entry to survive")
	}
	if m.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", m.Len())
	}
}

func TestMapKeys(t *testing.T) {
	m := New[string, int]()
	for i := 0; i < 5; i++ {
		if _, err := m.Insert(strconv.Itoa(i), i); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	keys := m.Keys()
	if len(keys) != 5 {
		t.Fatalf("expected 5 keys, got %d", len(keys))
	}
	slices.Sort(keys)
	for i, k := range keys {
		if k != strconv.Itoa(i) {
			t.Errorf("expected key %q at %d, got %q", strconv.Itoa(i), i, k)
		}
	}
}

func TestMapAll(t *testing.T) {
	m := New[int, int]()
	for i := 0; i < 10; i++ {
		if _, err := m.Insert(i, i*i); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	seen := make(map[int]*int)
	for k, v := range m.All() {
		seen[k] = v
	}
	if len(seen) != 10 {
		t.Fatalf("expected 10 entries from All, got %d", len(seen))
	}
	for k, v := range seen {
		if *v != k*k {
			t.Errorf("expected %d for key %d, got %d", k*k, k, *v)
		}
		// All yields the same cells Get returns.
		got, _ := m.Get(k)
		if got != v {
			t.Errorf("All and Get disagree on the cell for key %d", k)
		}
	}

	// Early break must stop the iteration.
	count := 0
	for range m.All() {
		count++
		if count == 3 {
			break
		}
	}
	if count != 3 {
		t.Errorf("expected early break after 3 entries, got %d", count)
	}
}

func TestMapClone(t *testing.T) {
	m := New[string, int]()
	origRef, err := m.Insert("key1", 1)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	m.Get("key1") // generate a hit so the counters are non-zero

	c := m.Clone()

	if c.Len() != m.Len() {
		t.Errorf("expected clone Len %d, got %d", m.Len(), c.Len())
	}
	cloneRef, ok := c.Get("key1")
	if !ok || *cloneRef != 1 {
		t.Fatal("expected clone to hold key1=1")
	}
	if cloneRef == origRef {
		t.Error("expected clone to allocate fresh holders")
	}

	// Mutations through one map's cells never reach the other.
	*cloneRef = 99
	if *origRef != 1 {
		t.Errorf("expected original to keep 1, got %d", *origRef)
	}

	// Counters start at zero (except the Get above).
	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 0 || stats.Inserts != 0 {
		t.Errorf("expected fresh counters on clone, got %+v", stats)
	}
}

func TestMapStats(t *testing.T) {
	m := New[string, int]()

	if _, err := m.Insert("key1", 1); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	m.GetOrCreate("key2", func() int { return 2 })

	m.Get("key1")        // hit
	m.Get("key2")        // hit
	m.Get("nonexistent") // miss
	m.Remove("key2")
	m.Replace("key1", 10)

	stats := m.Stats()
	if stats.Hits != 2 {
		t.Errorf("expected Hits=2, got %d", stats.Hits)
	}
	if stats.Misses != 2 { // GetOrCreate miss + Get miss
		t.Errorf("expected Misses=2, got %d", stats.Misses)
	}
	if stats.Inserts != 2 {
		t.Errorf("expected Inserts=2, got %d", stats.Inserts)
	}
	if stats.Removals != 1 {
		t.Errorf("expected Removals=1, got %d", stats.Removals)
	}
	if stats.Replacements != 1 {
		t.Errorf("expected Replacements=1, got %d", stats.Replacements)
	}
	if stats.Entries != 1 {
		t.Errorf("expected Entries=1, got %d", stats.Entries)
	}
}

func TestMapStatsClearCountsRemovals(t *testing.T) {
	m := New[int, int]()
	for i := 0; i < 4; i++ {
		if _, err := m.Insert(i, i); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	m.Clear()

	stats := m.Stats()
	if stats.Removals != 4 {
		t.Errorf("expected Removals=4 after Clear, got %d", stats.Removals)
	}
	if stats.Entries != 0 {
		t.Errorf("expected Entries=0 after Clear, got %d", stats.Entries)
	}
}

func TestMapResetStats(t *testing.T) {
	m := New[string, int]()

	if _, err := m.Insert("key1", 1); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	m.Get("key1")
	m.Get("nonexistent")

	m.ResetStats()

	stats := m.Stats()
	if stats.Hits != 0 || stats.Misses != 0 || stats.Inserts != 0 {
		t.Errorf("expected all counters to be 0 after reset, got %+v", stats)
	}
	// Entries is a live count, not a counter.
	if stats.Entries != 1 {
		t.Errorf("expected Entries=1 after reset, got %d", stats.Entries)
	}
	if m.Len() != 1 {
		t.Error("ResetStats must not touch cached entries")
	}
}

func TestStatsHitRate(t *testing.T) {
	s := Stats{}
	if got := s.HitRate(); got != 0 {
		t.Errorf("expected 0 hit rate with no lookups, got %f", got)
	}

	s = Stats{Hits: 3, Misses: 1}
	if got := s.HitRate(); got != 0.75 {
		t.Errorf("expected 0.75 hit rate, got %f", got)
	}
}

func TestMapCopyProtection(t *testing.T) {
	m := New[string, int]()
	if _, err := m.Insert("key1", 1); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic when using a copied Map")
		} else {
			t.Logf("Copy protection panic (expected): %v", r)
		}
	}()

	// This should panic: the copy shares the table but fails copyCheck.
	copied := *m
	_ = copied.Len()
}

func TestMapZeroValuePanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic when using a zero-value Map")
		}
	}()

	var m Map[string, int]
	m.Get("key1")
}

package workload

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/stableref/cachingmap"
)

// Package errors.
var (
	// ErrStabilityViolated is returned when a pinned pointer stops
	// reading back the payload it was pinned with.
	ErrStabilityViolated = errors.New("workload: pinned pointer changed value")
)

// Runner executes one workload run on a single goroutine and publishes
// stats snapshots for scraping from other goroutines.
type Runner struct {
	cfg      *Config
	snapshot atomic.Pointer[cachingmap.Stats]
}

// Result summarizes a completed run.
type Result struct {
	Name      string
	Mode      Mode
	Ops       int
	Duration  time.Duration
	PinChecks int
	Stats     cachingmap.Stats
}

// OpsPerSecond returns the run's throughput.
func (r *Result) OpsPerSecond() float64 {
	if r.Duration <= 0 {
		return 0
	}
	return float64(r.Ops) / r.Duration.Seconds()
}

// NewRunner creates a Runner for cfg.
func NewRunner(cfg *Config) *Runner {
	return &Runner{cfg: cfg}
}

// Snapshot returns the most recently published stats. It is safe to call
// from any goroutine, for example from a metrics.Collector snapshot
// function, while Run is in progress.
func (r *Runner) Snapshot() cachingmap.Stats {
	if s := r.snapshot.Load(); s != nil {
		return *s
	}
	return cachingmap.Stats{}
}

// frontend abstracts the two cache front ends the workload can drive.
type frontend interface {
	get(key int) *[]byte
	stats() cachingmap.Stats
}

type mapFront struct {
	m *cachingmap.Map[int, []byte]
	n int
}

func (f *mapFront) get(key int) *[]byte {
	ref, _ := f.m.GetOrCreate(key, func() []byte { return makeValue(key, f.n) })
	return ref
}

func (f *mapFront) stats() cachingmap.Stats { return f.m.Stats() }

type lazyFront struct {
	l *cachingmap.LazyMap[int, []byte]
}

func (f *lazyFront) get(key int) *[]byte { return f.l.Get(key) }

func (f *lazyFront) stats() cachingmap.Stats { return f.l.Stats() }

// pin is a pointer held across the whole run together with the key whose
// payload it must keep reading.
type pin struct {
	key int
	ref *[]byte
}

// Run executes the configured number of operations on the calling
// goroutine. It returns early when ctx is canceled. A non-nil error with
// ErrStabilityViolated in its chain means a held pointer stopped reading
// its original payload, which is a bug in the map, not in the workload.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	cfg := r.cfg
	log := cachingmap.Logger()

	var front frontend
	switch cfg.Mode {
	case ModeLazy:
		n := cfg.ValueBytes
		front = &lazyFront{l: cachingmap.NewLazy(func(k int) []byte { return makeValue(k, n) })}
	default:
		front = &mapFront{m: cachingmap.New[int, []byte](), n: cfg.ValueBytes}
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	order := rng.Perm(cfg.Keys)
	populated := 0

	pinLimit := min(cfg.PinnedRefs, cfg.Keys)
	pins := make([]pin, 0, pinLimit)

	log.Info("workload started",
		"name", cfg.Name,
		"mode", cfg.Mode,
		"keys", cfg.Keys,
		"ops", cfg.Ops,
		"value_bytes", cfg.ValueBytes,
		"hit_ratio", cfg.HitRatio,
	)

	// Cancellation is polled on its own cadence so that report_every: 0
	// only disables progress logging, not ctx handling.
	const cancelCheckEvery = 8192

	start := time.Now()
	pinChecks := 0
	for op := 0; op < cfg.Ops; op++ {
		if op%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("workload canceled after %d ops: %w", op, err)
			}
		}

		var key int
		if populated == 0 || (populated < cfg.Keys && rng.Float64() >= cfg.HitRatio) {
			// Populate the next key in permutation order.
			key = order[populated]
			populated++
		} else {
			// Aim at an already-cached key.
			key = order[rng.Intn(populated)]
		}

		ref := front.get(key)
		if len(pins) < pinLimit {
			pins = append(pins, pin{key: key, ref: ref})
		}

		if cfg.ReportEvery > 0 && (op+1)%cfg.ReportEvery == 0 {
			if err := verifyPins(pins); err != nil {
				return nil, err
			}
			pinChecks++
			s := front.stats()
			r.snapshot.Store(&s)
			log.Info("workload progress",
				"ops", op+1,
				"entries", s.Entries,
				"hit_rate", s.HitRate(),
			)
		}
	}

	// Final stability check over everything still pinned.
	if err := verifyPins(pins); err != nil {
		return nil, err
	}
	pinChecks++

	s := front.stats()
	r.snapshot.Store(&s)

	res := &Result{
		Name:      cfg.Name,
		Mode:      cfg.Mode,
		Ops:       cfg.Ops,
		Duration:  time.Since(start),
		PinChecks: pinChecks,
		Stats:     s,
	}
	log.Info("workload finished",
		"name", res.Name,
		"ops", res.Ops,
		"duration", res.Duration,
		"entries", s.Entries,
		"hit_rate", s.HitRate(),
	)
	return res, nil
}

// verifyPins checks that every held pointer still reads the payload it
// was pinned with.
func verifyPins(pins []pin) error {
	for _, p := range pins {
		if err := checkValue(p.key, *p.ref); err != nil {
			return fmt.Errorf("%w: key %d: %v", ErrStabilityViolated, p.key, err)
		}
	}
	return nil
}

// makeValue builds the payload cached for key: the key in the first 8
// bytes, a key-derived fill pattern after that. checkValue relies on the
// layout to detect a pointer that drifted to another cell.
func makeValue(key, n int) []byte {
	v := make([]byte, n)
	binary.LittleEndian.PutUint64(v, uint64(key))
	for i := 8; i < n; i++ {
		v[i] = byte(key)
	}
	return v
}

func checkValue(key int, v []byte) error {
	if len(v) < 8 {
		return fmt.Errorf("payload truncated to %d bytes", len(v))
	}
	if got := binary.LittleEndian.Uint64(v); got != uint64(key) {
		return fmt.Errorf("payload encodes key %d", got)
	}
	for i := 8; i < len(v); i++ {
		if v[i] != byte(key) {
			return fmt.Errorf("fill byte %d corrupted", i)
		}
	}
	return nil
}

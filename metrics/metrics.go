// Package metrics exports cachingmap diagnostic counters to Prometheus.
//
// The package bridges pull-based collection and the single-owner contract
// of a Map: the caller supplies a snapshot function, and the Collector
// converts each snapshot into const metrics at scrape time. The snapshot
// function is invoked from the Prometheus scrape goroutine, so it must be
// safe to call there; publish snapshots through an atomic.Pointer when
// the Map lives on another goroutine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/stableref/cachingmap"
)

// Collector implements prometheus.Collector for a Map's Stats.
type Collector struct {
	snapshot func() cachingmap.Stats

	hits         *prometheus.Desc
	misses       *prometheus.Desc
	inserts      *prometheus.Desc
	removals     *prometheus.Desc
	replacements *prometheus.Desc
	entries      *prometheus.Desc
	hitRate      *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector creates a Collector that reports the Stats returned by
// snapshot under the given namespace. It panics if snapshot is nil.
//
// Register the result with a prometheus.Registerer:
//
//	prometheus.MustRegister(metrics.NewCollector("myapp", func() cachingmap.Stats {
//	    return m.Stats()
//	}))
func NewCollector(namespace string, snapshot func() cachingmap.Stats) *Collector {
	if snapshot == nil {
		panic("metrics: NewCollector requires a non-nil snapshot function")
	}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "cachingmap", name), help, nil, nil)
	}
	return &Collector{
		snapshot:     snapshot,
		hits:         desc("hits_total", "Lookups that found a cached value."),
		misses:       desc("misses_total", "Lookups that found no cached value."),
		inserts:      desc("inserts_total", "Holders created by insertion."),
		removals:     desc("removals_total", "Holders dropped by Remove and Clear."),
		replacements: desc("replacements_total", "Holders swapped by Replace."),
		entries:      desc("entries", "Live entries at snapshot time."),
		hitRate:      desc("hit_rate", "Fraction of lookups served from cache."),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hits
	ch <- c.misses
	ch <- c.inserts
	ch <- c.removals
	ch <- c.replacements
	ch <- c.entries
	ch <- c.hitRate
}

// Collect implements prometheus.Collector. It takes one snapshot per
// scrape and emits every counter from it, so a scrape always sees a
// consistent set.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.snapshot()
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(s.Hits))
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(s.Misses))
	ch <- prometheus.MustNewConstMetric(c.inserts, prometheus.CounterValue, float64(s.Inserts))
	ch <- prometheus.MustNewConstMetric(c.removals, prometheus.CounterValue, float64(s.Removals))
	ch <- prometheus.MustNewConstMetric(c.replacements, prometheus.CounterValue, float64(s.Replacements))
	ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(s.Entries))
	ch <- prometheus.MustNewConstMetric(c.hitRate, prometheus.GaugeValue, s.HitRate())
}

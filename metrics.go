package lzblock

import "github.com/prometheus/client_golang/prometheus"

// A CountersCollector exposes PerformanceCounters snapshots as Prometheus
// metrics. It is read-only telemetry: collection calls the snapshot
// function and never touches the engine.
type CountersCollector struct {
	snapshot func() PerformanceCounters

	bytesProcessed  *prometheus.Desc
	compressedBytes *prometheus.Desc
	matches         *prometheus.Desc
	literals        *prometheus.Desc
	cacheHits       *prometheus.Desc
	cacheMisses     *prometheus.Desc
	prefetchHits    *prometheus.Desc
	hashCollisions  *prometheus.Desc
	activeCycles    *prometheus.Desc
	stallCycles     *prometheus.Desc
}

// NewCountersCollector returns a collector reading from snapshot.
func NewCountersCollector(snapshot func() PerformanceCounters) *CountersCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc("lzblock_"+name, help, nil, nil)
	}
	return &CountersCollector{
		snapshot:        snapshot,
		bytesProcessed:  desc("bytes_processed_total", "Input bytes covered by committed results."),
		compressedBytes: desc("compressed_bytes_total", "Output bytes emitted."),
		matches:         desc("matches_total", "Back-references encoded."),
		literals:        desc("literals_total", "Literal bytes encoded."),
		cacheHits:       desc("cache_hits_total", "Dictionary cache hits."),
		cacheMisses:     desc("cache_misses_total", "Dictionary cache misses."),
		prefetchHits:    desc("prefetch_hits_total", "Reads served from the prefetch ring."),
		hashCollisions:  desc("hash_collisions_total", "Live hash buckets overwritten."),
		activeCycles:    desc("active_cycles_total", "Coordinator cycles doing work."),
		stallCycles:     desc("stall_cycles_total", "Coordinator cycles stalled on backpressure."),
	}
}

// Describe implements prometheus.Collector.
func (c *CountersCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.bytesProcessed
	ch <- c.compressedBytes
	ch <- c.matches
	ch <- c.literals
	ch <- c.cacheHits
	ch <- c.cacheMisses
	ch <- c.prefetchHits
	ch <- c.hashCollisions
	ch <- c.activeCycles
	ch <- c.stallCycles
}

// Collect implements prometheus.Collector.
func (c *CountersCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.snapshot()
	counter := func(d *prometheus.Desc, v uint64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v))
	}
	counter(c.bytesProcessed, s.BytesProcessed)
	counter(c.compressedBytes, s.CompressedBytes)
	counter(c.matches, s.Matches)
	counter(c.literals, s.Literals)
	counter(c.cacheHits, s.CacheHits)
	counter(c.cacheMisses, s.CacheMisses)
	counter(c.prefetchHits, s.PrefetchHits)
	counter(c.hashCollisions, s.HashCollisions)
	counter(c.activeCycles, s.ActiveCycles)
	counter(c.stallCycles, s.StallCycles)
}

var _ prometheus.Collector = (*CountersCollector)(nil)

package lzblock

import "fmt"

// PerformanceCounters accumulates the running totals the Coordinator
// maintains for one job. They are reset at job start and are refreshed on
// every coordinator step; a copy returned by Job.Counters is a read-only
// snapshot.
type PerformanceCounters struct {
	BytesProcessed  uint64 // input bytes covered by committed results
	CompressedBytes uint64 // output bytes emitted, including the flush
	Matches         uint64 // back-references encoded
	Literals        uint64 // literal bytes encoded
	MatchedBytes    uint64 // input bytes covered by matches

	CacheHits      uint64
	CacheMisses    uint64
	PrefetchHits   uint64
	Writebacks     uint64
	HashCollisions uint64

	ActiveCycles uint64
	StallCycles  uint64

	// StallExceeded records that the stall-cycle budget was crossed at
	// some point. It is reportable but not fatal on its own.
	StallExceeded bool
}

// CompressionRatio returns compressed size over input size, or 1 when
// nothing has been processed yet.
func (c PerformanceCounters) CompressionRatio() float64 {
	if c.BytesProcessed == 0 {
		return 1
	}
	return float64(c.CompressedBytes) / float64(c.BytesProcessed)
}

// CacheHitRatio returns hits over total cache lookups, or 0 when the cache
// has not been touched.
func (c PerformanceCounters) CacheHitRatio() float64 {
	total := c.CacheHits + c.CacheMisses
	if total == 0 {
		return 0
	}
	return float64(c.CacheHits) / float64(total)
}

func (c PerformanceCounters) String() string {
	return fmt.Sprintf(
		"processed=%d compressed=%d ratio=%.3f matches=%d literals=%d "+
			"cache=%d/%d (%.1f%% hit, %d prefetch) cycles=%d (%d stalled)",
		c.BytesProcessed, c.CompressedBytes, c.CompressionRatio(),
		c.Matches, c.Literals,
		c.CacheHits, c.CacheHits+c.CacheMisses, c.CacheHitRatio()*100,
		c.PrefetchHits, c.ActiveCycles+c.StallCycles, c.StallCycles)
}

package lzblock

import (
	"sync"

	"github.com/lzblock/lzblock/dictcache"
)

const (
	hashBits = 15
	hashSize = 1 << hashBits
	hashMask = hashSize - 1

	fnvOffset = 2166136261
	fnvPrime  = 16777619
)

// A Finder scans the input for back-references into the history window.
// Each step probes ProbeWidth consecutive positions in parallel, one unit
// per offset, and commits the longest qualifying match behind a merge
// barrier so that hash-table updates and emitted results stay in strict
// position order.
//
// The hash table maps a 15-bit trigram hash to the most recent position
// that produced it. Buckets hold a single slot; an overwrite of a live
// bucket is counted as a collision but is otherwise unremarkable.
type Finder struct {
	window *dictcache.Window
	input  []byte

	table      [hashSize]int32
	cursor     int
	collisions uint64
}

// NewFinder returns a finder over input, reading history through w.
func NewFinder(input []byte, w *dictcache.Window) *Finder {
	f := &Finder{window: w, input: input}
	f.clearTable()
	return f
}

// Reset rebinds the finder to a new input block and forgets all hashes.
func (f *Finder) Reset(input []byte) {
	f.input = input
	f.cursor = 0
	f.collisions = 0
	f.clearTable()
}

func (f *Finder) clearTable() {
	for i := range f.table {
		f.table[i] = -1
	}
}

// Pos returns the next position the finder will process.
func (f *Finder) Pos() int {
	return f.cursor
}

// Collisions returns the number of live hash buckets overwritten so far.
func (f *Finder) Collisions() uint64 {
	return f.collisions
}

func trigramHash(b0, b1, b2 byte) uint32 {
	h := uint32(fnvOffset)
	h = (h ^ uint32(b0)) * fnvPrime
	h = (h ^ uint32(b1)) * fnvPrime
	h = (h ^ uint32(b2)) * fnvPrime
	return (h ^ h>>hashBits) & hashMask
}

func (f *Finder) hashAt(q int) uint32 {
	return trigramHash(f.input[q], f.input[q+1], f.input[q+2])
}

type probeResult struct {
	length   int
	distance int
	cycles   int
	err      error
}

// probe looks for a match starting at q. The candidate comes from the
// hash table as committed by previous steps; the table is not written
// here, so concurrent probes are race-free.
func (f *Finder) probe(q int) probeResult {
	if q+MinMatch > len(f.input) {
		return probeResult{}
	}
	cand := f.table[f.hashAt(q)]
	if cand < 0 {
		return probeResult{}
	}
	dist := q - int(cand)
	if dist < 1 || dist > MaxDistance {
		return probeResult{}
	}

	maxEnd := q + MaxMatch
	if maxEnd > len(f.input) {
		maxEnd = len(f.input)
	}
	if w := f.window.Written(); maxEnd > w {
		maxEnd = w
	}

	// Compare the history side, read line by line through the cache,
	// against the input side. Overlapping matches (dist < length) work
	// out naturally because the history side trails the input side.
	length := 0
	cycles := 0
	for q+length < maxEnd {
		data, off, cyc, err := f.window.Line(int(cand)+length, true)
		if err != nil {
			return probeResult{err: err}
		}
		cycles += cyc
		n := dictcache.LineSize - off
		if rem := maxEnd - (q + length); n > rem {
			n = rem
		}
		matched := true
		for j := 0; j < n; j++ {
			if data[off+j] != f.input[q+length] {
				matched = false
				break
			}
			length++
		}
		if !matched {
			break
		}
	}

	if length < MinMatch {
		return probeResult{cycles: cycles}
	}
	return probeResult{length: length, distance: dist, cycles: cycles}
}

// insert commits position q's trigram to the hash table, newest wins.
func (f *Finder) insert(q int) {
	if q+MinMatch > len(f.input) {
		return
	}
	h := f.hashAt(q)
	if f.table[h] >= 0 {
		f.collisions++
	}
	f.table[h] = int32(q)
}

// step advances the cursor once: probe up to ProbeWidth offsets in
// parallel, pick the longest match (ties to the lowest offset), emit the
// skipped leading bytes as literals, and commit the hash updates for every
// consumed position. Returns the appended results and the cycle cost of
// the step (probes run in parallel, so the cost is the slowest unit's).
func (f *Finder) step(dst []MatchResult, limit int) ([]MatchResult, int, error) {
	p := f.cursor
	width := ProbeWidth
	if p+width > limit {
		width = limit - p
	}

	var results [ProbeWidth]probeResult
	var wg sync.WaitGroup
	for k := 0; k < width; k++ {
		wg.Add(1)
		go func(k int) {
			defer wg.Done()
			results[k] = f.probe(p + k)
		}(k)
	}
	wg.Wait()

	cycles := 0
	best := -1
	for k := 0; k < width; k++ {
		if results[k].err != nil {
			return dst, cycles, results[k].err
		}
		if results[k].cycles > cycles {
			cycles = results[k].cycles
		}
		if results[k].length >= MinMatch &&
			(best < 0 || results[k].length > results[best].length) {
			best = k
		}
	}

	next := p + 1
	if best >= 0 {
		for q := p; q < p+best; q++ {
			dst = append(dst, MatchResult{Pos: q, Lit: f.input[q]})
		}
		m := results[best]
		dst = append(dst, MatchResult{
			Pos:      p + best,
			Length:   m.length,
			Distance: m.distance,
		})
		next = p + best + m.length
	} else {
		dst = append(dst, MatchResult{Pos: p, Lit: f.input[p]})
	}

	for q := p; q < next; q++ {
		f.insert(q)
	}
	f.cursor = next
	return dst, cycles, nil
}

// FindChunk runs the finder until the cursor reaches chunkEnd (a match
// near the boundary may carry it past) and returns the results produced,
// in strictly increasing position order, plus the cycle cost.
func (f *Finder) FindChunk(dst []MatchResult, chunkEnd int) ([]MatchResult, int, error) {
	if chunkEnd > len(f.input) {
		chunkEnd = len(f.input)
	}
	total := 0
	for f.cursor < chunkEnd {
		var cycles int
		var err error
		dst, cycles, err = f.step(dst, chunkEnd)
		total += cycles
		if err != nil {
			return dst, total, err
		}
	}
	return dst, total, nil
}

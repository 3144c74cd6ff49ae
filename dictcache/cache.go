// Package dictcache models the dictionary memory behind the compression
// engine's history window: a small set-associative cache with LRU
// eviction, dirty write-back, and a stride prefetcher, in front of a
// 32KB backing store. Lookups are charged a configurable miss latency in
// cycles so that the pipeline coordinator can account for memory time the
// way the rest of the engine accounts for everything else.
package dictcache

import (
	"errors"
	"sync"

	"github.com/chronos-tachyon/assert"
	"github.com/chronos-tachyon/bzero"
)

const (
	// LineSize is the number of bytes per cache line.
	LineSize = 128

	// NumSets is the number of sets; the set index is address bits
	// [11:7], the tag is bits [14:12].
	NumSets = 32

	// NumWays is the associativity of each set.
	NumWays = 4

	// WindowSize is the size of the backing store and the largest
	// address, exclusive.
	WindowSize = 32768

	maxRecency = 15
)

// ErrOutOfWindow is returned for an address outside [0, WindowSize).
var ErrOutOfWindow = errors.New("dictcache: address outside the window bound")

// A Request is one access to the dictionary memory. Writes carry the bytes
// to store at Addr; Urgent marks latency-sensitive random accesses that
// should not train the stride prefetcher.
type Request struct {
	Addr   int
	Data   []byte
	Write  bool
	Urgent bool
}

// A Response carries the cache line containing the requested address and
// the number of cycles the access cost. The Data slice aliases internal
// cache state and is only valid until the next access.
type Response struct {
	Data        []byte
	Cycles      int
	PrefetchHit bool
}

// Counters holds the cache's monotonically increasing access statistics.
type Counters struct {
	Hits         uint64
	Misses       uint64
	PrefetchHits uint64
	Writebacks   uint64
}

type line struct {
	data    [LineSize]byte
	tag     uint16
	recency uint8
	valid   bool
	dirty   bool
}

// Config adjusts cache behavior.
type Config struct {
	// FetchLatency is the cycle cost of filling a line from the backing
	// store on a miss. Zero means misses are free.
	FetchLatency int
}

// A Cache is the set-associative dictionary cache. It is safe for
// concurrent use; accesses from parallel match-finder units are serialized
// internally so that no cache line sees a torn update.
type Cache struct {
	mu       sync.Mutex
	sets     [NumSets][NumWays]line
	backing  [WindowSize]byte
	pf       prefetcher
	counters Counters
	latency  int
}

// New returns an empty cache over a zeroed backing store.
func New(cfg Config) *Cache {
	return &Cache{latency: cfg.FetchLatency}
}

// Reset invalidates every line, zeroes the backing store, and clears the
// counters and the prefetcher.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for s := range c.sets {
		for w := range c.sets[s] {
			c.sets[s][w] = line{}
		}
	}
	bzero.Uint8(c.backing[:])
	c.pf.reset()
	c.counters = Counters{}
}

// Counters returns a snapshot of the access statistics.
func (c *Cache) Counters() Counters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counters
}

func split(addr int) (lineAddr, set int, tag uint16) {
	lineAddr = addr &^ (LineSize - 1)
	set = (addr >> 7) & (NumSets - 1)
	tag = uint16((addr >> 12) & 7)
	return lineAddr, set, tag
}

// Access performs one read or write. Reads return the full line containing
// req.Addr. Writes store req.Data starting at req.Addr within the line,
// loading the line first if it is absent, and mark the line dirty.
func (c *Cache) Access(req Request) (Response, error) {
	if req.Addr < 0 || req.Addr >= WindowSize {
		return Response{}, ErrOutOfWindow
	}
	if req.Write && req.Addr+len(req.Data) > WindowSize {
		return Response{}, ErrOutOfWindow
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	lineAddr, set, tag := split(req.Addr)
	ln, resp := c.lookup(lineAddr, set, tag)

	if req.Write {
		off := req.Addr - lineAddr
		n := copy(ln.data[off:], req.Data)
		assert.Assertf(n == len(req.Data), "write of %d bytes crosses line boundary at %#x", len(req.Data), req.Addr)
		ln.dirty = true
	}
	resp.Data = ln.data[:]

	if !req.Urgent {
		c.prefetch(lineAddr)
	}
	return resp, nil
}

// lookup finds or installs the line for lineAddr and returns it along with
// the latency accounting for this access.
func (c *Cache) lookup(lineAddr, set int, tag uint16) (*line, Response) {
	ways := &c.sets[set]

	for w := range ways {
		if ways[w].valid && ways[w].tag == tag {
			c.counters.Hits++
			c.touch(set, w)
			return &ways[w], Response{}
		}
	}

	// Miss. A prefetched line avoids the fetch latency; otherwise the
	// fill is charged the configured cycle cost.
	victim := c.victim(set)
	if victim.valid && victim.dirty {
		c.writeback(victim, set)
	}

	resp := Response{Cycles: c.latency}
	victim.tag = tag
	victim.valid = true
	victim.dirty = false
	if data, ok := c.pf.take(lineAddr); ok {
		copy(victim.data[:], data)
		c.counters.Hits++
		c.counters.PrefetchHits++
		resp = Response{PrefetchHit: true}
	} else {
		copy(victim.data[:], c.backing[lineAddr:lineAddr+LineSize])
		c.counters.Misses++
	}
	c.touchLine(set, victim)
	return victim, resp
}

// victim selects the line with minimum recency, ties broken by lowest way.
func (c *Cache) victim(set int) *line {
	ways := &c.sets[set]
	best := 0
	for w := 1; w < NumWays; w++ {
		if ways[w].recency < ways[best].recency {
			best = w
		}
	}
	return &ways[best]
}

func (c *Cache) writeback(ln *line, set int) {
	addr := (int(ln.tag) << 12) | (set << 7)
	copy(c.backing[addr:addr+LineSize], ln.data[:])
	ln.dirty = false
	c.counters.Writebacks++
}

// touch refreshes way w's recency to the maximum and ages its siblings.
func (c *Cache) touch(set, w int) {
	c.touchLine(set, &c.sets[set][w])
}

func (c *Cache) touchLine(set int, target *line) {
	ways := &c.sets[set]
	for w := range ways {
		if &ways[w] == target {
			ways[w].recency = maxRecency
		} else if ways[w].recency > 0 {
			ways[w].recency--
		}
	}
}

// prefetch feeds the stride detector and, on a confirmed pattern, fills
// the speculative ring from the backing store.
func (c *Cache) prefetch(lineAddr int) {
	for _, addr := range c.pf.observe(lineAddr) {
		if addr < 0 || addr+LineSize > WindowSize {
			continue
		}
		if c.present(addr) {
			continue
		}
		c.pf.fill(addr, c.backing[addr:addr+LineSize])
	}
}

func (c *Cache) present(lineAddr int) bool {
	_, set, tag := split(lineAddr)
	for w := range c.sets[set] {
		if c.sets[set][w].valid && c.sets[set][w].tag == tag {
			return true
		}
	}
	return false
}

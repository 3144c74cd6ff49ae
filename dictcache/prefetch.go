package dictcache

const (
	historyLen    = 8
	prefetchDepth = 4
)

type prefetchEntry struct {
	data  [LineSize]byte
	addr  int
	valid bool
}

// prefetcher watches the sequence of line addresses flowing through the
// cache. Two consecutive observations of the same nonzero stride declare a
// pattern; the prefetcher then speculates up to four lines ahead into a
// small ring. The first address that breaks the stride drops the pattern
// and the ring with it.
type prefetcher struct {
	history [historyLen]int
	count   int
	stride  int
	streak  int
	ring    [prefetchDepth]prefetchEntry
	next    int
}

func (p *prefetcher) reset() {
	*p = prefetcher{}
}

// observe records one line address and returns the addresses to
// speculatively fetch, if the access confirms a stride pattern.
func (p *prefetcher) observe(lineAddr int) []int {
	var prev int
	havePrev := p.count > 0
	if havePrev {
		prev = p.history[(p.count-1)%historyLen]
	}
	p.history[p.count%historyLen] = lineAddr
	p.count++

	if !havePrev {
		return nil
	}
	stride := lineAddr - prev
	if stride == 0 {
		return nil
	}
	if stride != p.stride {
		// Pattern broken.
		p.stride = stride
		p.streak = 1
		p.invalidate()
		return nil
	}
	p.streak++
	if p.streak < 2 {
		return nil
	}

	addrs := make([]int, 0, prefetchDepth)
	for k := 1; k <= prefetchDepth; k++ {
		addrs = append(addrs, lineAddr+k*stride)
	}
	return addrs
}

// fill stores a speculatively fetched line, replacing the oldest entry.
func (p *prefetcher) fill(addr int, data []byte) {
	if _, ok := p.peek(addr); ok {
		return
	}
	e := &p.ring[p.next]
	e.addr = addr
	e.valid = true
	copy(e.data[:], data)
	p.next = (p.next + 1) % prefetchDepth
}

// take consumes the ring entry for addr, if present.
func (p *prefetcher) take(addr int) ([]byte, bool) {
	e, ok := p.peek(addr)
	if !ok {
		return nil, false
	}
	e.valid = false
	return e.data[:], true
}

func (p *prefetcher) peek(addr int) (*prefetchEntry, bool) {
	for i := range p.ring {
		if p.ring[i].valid && p.ring[i].addr == addr {
			return &p.ring[i], true
		}
	}
	return nil, false
}

func (p *prefetcher) invalidate() {
	for i := range p.ring {
		p.ring[i].valid = false
	}
}

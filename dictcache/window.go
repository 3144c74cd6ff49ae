package dictcache

// A Window is the cyclic history buffer the match finder reads its
// dictionary bytes from. Logical positions grow monotonically and wrap
// onto cache addresses modulo WindowSize; a read is only valid for
// positions that have been written and are still within WindowSize of the
// write frontier.
type Window struct {
	cache   *Cache
	written int
}

// NewWindow returns a Window over c with nothing written yet.
func NewWindow(c *Cache) *Window {
	return &Window{cache: c}
}

// Reset clears the window and the cache behind it.
func (w *Window) Reset() {
	w.cache.Reset()
	w.written = 0
}

// Written returns the logical position one past the last written byte.
func (w *Window) Written() int {
	return w.written
}

// WriteAt stores p at logical position pos, advancing the write frontier.
// It returns the cycles charged by the cache.
func (w *Window) WriteAt(pos int, p []byte) (int, error) {
	if pos < 0 || pos > w.written {
		return 0, ErrOutOfWindow
	}
	cycles := 0
	for len(p) > 0 {
		addr := pos & (WindowSize - 1)
		n := LineSize - addr%LineSize
		if n > len(p) {
			n = len(p)
		}
		resp, err := w.cache.Access(Request{Addr: addr, Data: p[:n], Write: true})
		if err != nil {
			return cycles, err
		}
		cycles += resp.Cycles
		pos += n
		p = p[n:]
	}
	if pos > w.written {
		w.written = pos
	}
	return cycles, nil
}

// Line returns the cache line holding position pos, the byte offset of pos
// within it, and the cycles charged. Urgent requests bypass the stride
// prefetcher's training.
func (w *Window) Line(pos int, urgent bool) ([]byte, int, int, error) {
	if pos < 0 || pos >= w.written || w.written-pos > WindowSize {
		return nil, 0, 0, ErrOutOfWindow
	}
	addr := pos & (WindowSize - 1)
	resp, err := w.cache.Access(Request{Addr: addr, Urgent: urgent})
	if err != nil {
		return nil, 0, 0, err
	}
	return resp.Data, addr % LineSize, resp.Cycles, nil
}

// ReadAt copies n bytes starting at logical position pos into dst and
// returns the cycles charged.
func (w *Window) ReadAt(dst []byte, pos int) (int, error) {
	cycles := 0
	for len(dst) > 0 {
		data, off, cyc, err := w.Line(pos, false)
		if err != nil {
			return cycles, err
		}
		cycles += cyc
		n := copy(dst, data[off:])
		dst = dst[n:]
		pos += n
	}
	return cycles, nil
}

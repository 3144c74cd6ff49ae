package dictcache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// urgent reads keep the stride prefetcher out of the picture so that the
// tests below see pure set/way behavior.
func readLine(t *testing.T, c *Cache, addr int) Response {
	t.Helper()
	resp, err := c.Access(Request{Addr: addr, Urgent: true})
	require.NoError(t, err)
	return resp
}

func TestHitMissAccounting(t *testing.T) {
	c := New(Config{FetchLatency: 4})

	resp := readLine(t, c, 0)
	require.Equal(t, 4, resp.Cycles, "first access must pay the fetch latency")
	resp = readLine(t, c, 64)
	require.Equal(t, 0, resp.Cycles, "same line must hit")
	readLine(t, c, 128)

	cc := c.Counters()
	require.Equal(t, uint64(1), cc.Hits)
	require.Equal(t, uint64(2), cc.Misses)
	require.Equal(t, cc.Hits+cc.Misses, uint64(3), "hits and misses must cover every request")
}

func TestLRUEviction(t *testing.T) {
	c := New(Config{})

	// Five distinct tags mapping to set 0: the fifth install must evict
	// the least recently used line, which is the very first one.
	for _, addr := range []int{0x0000, 0x1000, 0x2000, 0x3000} {
		readLine(t, c, addr)
	}
	readLine(t, c, 0x4000)

	before := c.Counters()
	readLine(t, c, 0x1000) // still resident
	mid := c.Counters()
	require.Equal(t, before.Hits+1, mid.Hits, "unevicted line must still hit")

	readLine(t, c, 0x0000) // evicted
	after := c.Counters()
	require.Equal(t, mid.Misses+1, after.Misses, "evicted line must miss")
}

func TestDirtyWriteback(t *testing.T) {
	c := New(Config{})

	payload := []byte{0xde, 0xad, 0xbe, 0xef}
	_, err := c.Access(Request{Addr: 0x0000, Data: payload, Write: true, Urgent: true})
	require.NoError(t, err)

	// Force the dirty line out of set 0.
	for _, addr := range []int{0x1000, 0x2000, 0x3000, 0x4000} {
		readLine(t, c, addr)
	}
	cc := c.Counters()
	require.Equal(t, uint64(1), cc.Writebacks, "dirty victim must be written back")

	// The refetched line must carry the written bytes.
	resp := readLine(t, c, 0x0000)
	require.Equal(t, payload, resp.Data[:4])
}

func TestOutOfWindowAccess(t *testing.T) {
	c := New(Config{})
	_, err := c.Access(Request{Addr: -1})
	require.ErrorIs(t, err, ErrOutOfWindow)
	_, err = c.Access(Request{Addr: WindowSize})
	require.ErrorIs(t, err, ErrOutOfWindow)
	_, err = c.Access(Request{Addr: WindowSize - 2, Data: []byte{1, 2, 3}, Write: true})
	require.ErrorIs(t, err, ErrOutOfWindow)
}

func TestStridePrefetch(t *testing.T) {
	c := New(Config{FetchLatency: 8})

	// Two observations of a 128-byte stride confirm the pattern; the
	// next access in the stream must be served from the prefetch ring
	// without paying the miss latency.
	for _, addr := range []int{0, 128, 256} {
		_, err := c.Access(Request{Addr: addr})
		require.NoError(t, err)
	}
	resp, err := c.Access(Request{Addr: 384})
	require.NoError(t, err)
	require.True(t, resp.PrefetchHit, "strided access must hit the prefetch ring")
	require.Equal(t, 0, resp.Cycles, "prefetch hit must bypass the miss latency")

	cc := c.Counters()
	require.Equal(t, uint64(1), cc.PrefetchHits)
	require.Equal(t, cc.Hits+cc.Misses, uint64(4), "every request is a hit or a miss")
}

func TestStrideMismatchInvalidates(t *testing.T) {
	c := New(Config{FetchLatency: 8})

	for _, addr := range []int{0, 128, 256} {
		_, err := c.Access(Request{Addr: addr})
		require.NoError(t, err)
	}
	// Break the stride, then come back to an address that had been
	// prefetched: it must miss, because the ring was dropped.
	_, err := c.Access(Request{Addr: 0x4000})
	require.NoError(t, err)
	resp, err := c.Access(Request{Addr: 384})
	require.NoError(t, err)
	require.False(t, resp.PrefetchHit)
	require.Equal(t, 8, resp.Cycles)
}

func TestResetClearsEverything(t *testing.T) {
	c := New(Config{})
	_, err := c.Access(Request{Addr: 0, Data: []byte{1}, Write: true})
	require.NoError(t, err)
	c.Reset()
	require.Equal(t, Counters{}, c.Counters())
	resp := readLine(t, c, 0)
	require.Equal(t, byte(0), resp.Data[0], "backing store must be zeroed")
}

package lzblock

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lzblock/lzblock/dictcache"
	"github.com/lzblock/lzblock/rangecoder"
)

// gatedSink refuses to accept output until opened, then behaves like the
// default buffer sink.
type gatedSink struct {
	open bool
	buf  []byte
}

func (s *gatedSink) Ready() bool     { return s.open }
func (s *gatedSink) Accept(p []byte) { s.buf = append(s.buf, p...) }

func newTestCoordinator(input []byte, cfg CoordinatorConfig) *Coordinator {
	cache := dictcache.New(dictcache.Config{})
	window := dictcache.NewWindow(cache)
	finder := NewFinder(input, window)
	enc := rangecoder.NewEncoder(rangecoder.NewModel())
	return NewCoordinator(input, cache, window, finder, enc, cfg)
}

func runToCompletion(t *testing.T, co *Coordinator) {
	t.Helper()
	for i := 0; !co.Done(); i++ {
		require.NoError(t, co.Step())
		require.Less(t, i, 1<<20, "pipeline must terminate")
	}
	require.NoError(t, co.finish())
}

func TestCoordinatorDrainsWholeBlock(t *testing.T) {
	input := PadBlock(bytes.Repeat([]byte("pipeline"), 512))
	sink := &gatedSink{open: true}
	co := newTestCoordinator(input, CoordinatorConfig{Sink: sink})
	runToCompletion(t, co)

	c := co.Counters()
	require.Equal(t, uint64(len(input)), c.BytesProcessed)
	require.Equal(t, uint64(len(input)), c.Literals+c.MatchedBytes)
	require.Equal(t, uint64(len(sink.buf)), c.CompressedBytes)
	require.NotEmpty(t, sink.buf)
	require.Greater(t, c.ActiveCycles, uint64(0))
}

func TestCoordinatorBackpressureStalls(t *testing.T) {
	input := make([]byte, BlockSize)
	sink := &gatedSink{}
	co := newTestCoordinator(input, CoordinatorConfig{
		Sink:        sink,
		StallBudget: 4,
		CycleBudget: 1 << 16,
	})

	// With the sink closed the first record reaches the tail and parks
	// there; every further step is a stall.
	for i := 0; i < PipelineDepth+16; i++ {
		require.NoError(t, co.Step())
	}
	c := co.Counters()
	require.Greater(t, c.StallCycles, uint64(4))
	require.True(t, c.StallExceeded)
	require.Empty(t, sink.buf)

	// Releasing the sink lets the block finish; the stall report sticks
	// but is not fatal.
	sink.open = true
	runToCompletion(t, co)
	require.True(t, co.Counters().StallExceeded)
	require.NotEmpty(t, sink.buf)
}

func TestCoordinatorTimeout(t *testing.T) {
	input := make([]byte, BlockSize)
	co := newTestCoordinator(input, CoordinatorConfig{
		Sink:        &gatedSink{}, // never ready
		CycleBudget: 32,
	})

	var err error
	for i := 0; i < 1024; i++ {
		if err = co.Step(); err != nil {
			break
		}
	}
	require.ErrorIs(t, err, ErrTimeout)

	// The failure latches.
	require.ErrorIs(t, co.Step(), ErrTimeout)
	require.ErrorIs(t, co.finish(), ErrTimeout)
}

func TestCoordinatorMergeRejectsGaps(t *testing.T) {
	input := make([]byte, BlockSize)
	co := newTestCoordinator(input, CoordinatorConfig{Sink: &gatedSink{open: true}})
	s := &pipelineStage{
		valid:   true,
		results: []MatchResult{{Pos: 7, Lit: 0}},
	}
	err := co.merge(s)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInvalidState))
}

func TestCoordinatorMergeRejectsBadDistance(t *testing.T) {
	input := make([]byte, BlockSize)
	co := newTestCoordinator(input, CoordinatorConfig{Sink: &gatedSink{open: true}})
	s := &pipelineStage{
		valid: true,
		results: []MatchResult{
			{Pos: 0, Length: MinMatch, Distance: 1}, // reaches before the block
		},
	}
	require.ErrorIs(t, co.merge(s), ErrInvalidState)
}

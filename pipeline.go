package lzblock

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/lzblock/lzblock/dictcache"
	"github.com/lzblock/lzblock/rangecoder"
)

// Stage indices where pipeline records do their work. The slots in
// between model the latency of the hardware this engine stands in for;
// records flow strictly head to tail and are never reordered.
const (
	stageAdmit  = 0
	stageFind   = 3
	stageMerge  = 4
	stageEncode = 5
	stageDrain  = PipelineDepth - 1
)

// A Sink accepts drained compressed bytes. A sink that is not ready
// exerts backpressure: the pipeline does not shift and the stall counter
// runs instead.
type Sink interface {
	Ready() bool
	Accept(p []byte)
}

// bufferSink is the always-ready default that accumulates the stream.
type bufferSink struct {
	buf []byte
}

func (s *bufferSink) Ready() bool     { return true }
func (s *bufferSink) Accept(p []byte) { s.buf = append(s.buf, p...) }

type pipelineStage struct {
	valid bool
	last  bool

	chunk      int
	start, end int

	results    []MatchResult
	findCycles int

	compStart, compEnd int
	snap               rangecoder.Snapshot
}

// CoordinatorConfig adjusts pipeline behavior. Zero values pick the
// defaults.
type CoordinatorConfig struct {
	// StallBudget is the number of stall cycles tolerated before the
	// condition is reported. Not fatal on its own.
	StallBudget int

	// CycleBudget bounds the cycles spent without draining a chunk;
	// exceeding it aborts the job with ErrTimeout.
	CycleBudget int

	Sink   Sink
	Logger *zap.Logger
}

const (
	defaultStallBudget = 1024
	defaultCycleBudget = 65536
)

// A Coordinator drives one block through the fixed-depth pipeline: it
// admits input chunks at the head, runs the match finder and the range
// encoder at their stage slots, and drains compressed spans at the tail,
// one Step per logical cycle.
type Coordinator struct {
	input  []byte
	cache  *dictcache.Cache
	window *dictcache.Window
	finder *Finder
	enc    *rangecoder.Encoder

	stages    [PipelineDepth]pipelineStage
	nextChunk int
	numChunks int

	nextEncodePos int
	drained       int // chunks retired at the tail
	sinceDrain    int // cycles since the last retirement

	stallBudget int
	cycleBudget int

	sink     Sink
	logger   *zap.Logger
	counters PerformanceCounters
	complete bool
	failed   error
}

// NewCoordinator wires a pipeline over input. The caches, finder, and
// encoder are owned by the caller (the Job) so that the probability model
// can outlive a single block.
func NewCoordinator(input []byte, cache *dictcache.Cache, window *dictcache.Window,
	finder *Finder, enc *rangecoder.Encoder, cfg CoordinatorConfig) *Coordinator {

	co := &Coordinator{
		input:       input,
		cache:       cache,
		window:      window,
		finder:      finder,
		enc:         enc,
		numChunks:   (len(input) + ChunkSize - 1) / ChunkSize,
		stallBudget: cfg.StallBudget,
		cycleBudget: cfg.CycleBudget,
		sink:        cfg.Sink,
		logger:      cfg.Logger,
	}
	if co.stallBudget == 0 {
		co.stallBudget = defaultStallBudget
	}
	if co.cycleBudget == 0 {
		co.cycleBudget = defaultCycleBudget
	}
	if co.sink == nil {
		co.sink = &bufferSink{}
	}
	if co.logger == nil {
		co.logger = zap.NewNop()
	}
	return co
}

// Done reports whether the block has fully drained.
func (co *Coordinator) Done() bool {
	return co.complete
}

// Counters returns a snapshot of the running totals, refreshed as of the
// last Step.
func (co *Coordinator) Counters() PerformanceCounters {
	return co.counters
}

// Step advances the pipeline by one logical cycle. The first fatal error
// latches; subsequent calls return it unchanged.
func (co *Coordinator) Step() error {
	if co.failed != nil {
		return co.failed
	}
	if co.complete {
		return nil
	}

	if co.stages[stageDrain].valid && !co.sink.Ready() {
		co.counters.StallCycles++
		co.sinceDrain++
		if !co.counters.StallExceeded && co.counters.StallCycles > uint64(co.stallBudget) {
			co.counters.StallExceeded = true
			co.logger.Warn("stall budget exceeded",
				zap.Uint64("stallCycles", co.counters.StallCycles),
				zap.Int("budget", co.stallBudget))
		}
		return co.checkTimeout()
	}

	cycles := 1

	// Retire the tail.
	if tail := &co.stages[stageDrain]; tail.valid {
		co.drain(tail)
		if tail.last {
			co.complete = true
		}
	}

	// Shift head to tail.
	for i := stageDrain; i > 0; i-- {
		co.stages[i] = co.stages[i-1]
	}
	co.stages[0] = pipelineStage{}

	// Admit the next chunk, unless the job is winding down.
	if !co.complete && co.nextChunk < co.numChunks {
		c, err := co.admit()
		if err != nil {
			return co.fail(err)
		}
		cycles += c
	}

	// Run the stage work for whatever just arrived at each slot.
	if s := &co.stages[stageFind]; s.valid {
		c, err := co.find(s)
		if err != nil {
			return co.fail(err)
		}
		cycles += c
	}
	if s := &co.stages[stageMerge]; s.valid {
		if err := co.merge(s); err != nil {
			return co.fail(err)
		}
	}
	if s := &co.stages[stageEncode]; s.valid {
		co.encode(s)
	}

	co.counters.ActiveCycles += uint64(cycles)
	co.sinceDrain++
	co.syncCounters()
	return co.checkTimeout()
}

func (co *Coordinator) checkTimeout() error {
	if co.complete {
		return nil
	}
	if co.sinceDrain > co.cycleBudget {
		return co.fail(fmt.Errorf("%w: %d cycles without progress", ErrTimeout, co.sinceDrain))
	}
	return nil
}

func (co *Coordinator) fail(err error) error {
	co.failed = err
	return err
}

// admit writes the next chunk into the history window and occupies the
// head slot with its record.
func (co *Coordinator) admit() (int, error) {
	start := co.nextChunk * ChunkSize
	end := start + ChunkSize
	if end > len(co.input) {
		end = len(co.input)
	}
	cycles, err := co.window.WriteAt(start, co.input[start:end])
	if err != nil {
		return cycles, fmt.Errorf("%w: admitting chunk %d: %v", ErrMemoryAccess, co.nextChunk, err)
	}
	co.stages[stageAdmit] = pipelineStage{
		valid: true,
		chunk: co.nextChunk,
		start: start,
		end:   end,
		last:  end == len(co.input),
	}
	co.logger.Debug("chunk admitted",
		zap.Int("chunk", co.nextChunk), zap.Int("start", start), zap.Int("end", end))
	co.nextChunk++
	return cycles, nil
}

func (co *Coordinator) find(s *pipelineStage) (int, error) {
	results, cycles, err := co.finder.FindChunk(nil, s.end)
	if err != nil {
		return cycles, fmt.Errorf("%w: finding in chunk %d: %v", ErrMemoryAccess, s.chunk, err)
	}
	s.results = results
	s.findCycles = cycles
	return cycles, nil
}

// merge is the ordering barrier between the parallel finder units and the
// strictly sequential encoder: the chunk's results must cover positions
// contiguously and respect the match bounds before they may touch the
// shared probability model.
func (co *Coordinator) merge(s *pipelineStage) error {
	for _, r := range s.results {
		if r.Pos != co.nextEncodePos {
			return fmt.Errorf("%w: result at position %d, expected %d",
				ErrInvalidState, r.Pos, co.nextEncodePos)
		}
		if r.IsMatch() {
			if r.Distance < 1 || r.Distance > MaxDistance || r.Distance > r.Pos {
				return fmt.Errorf("%w: match distance %d at position %d",
					ErrInvalidState, r.Distance, r.Pos)
			}
			if r.Length > MaxMatch {
				return fmt.Errorf("%w: match length %d at position %d",
					ErrInvalidState, r.Length, r.Pos)
			}
		}
		co.nextEncodePos += r.Consumed()
	}
	if co.nextEncodePos > len(co.input) {
		return fmt.Errorf("%w: processed %d of %d bytes", ErrOverflow, co.nextEncodePos, len(co.input))
	}
	return nil
}

// encode folds the chunk's results into the range encoder, in position
// order, as the single writer of the shared model.
func (co *Coordinator) encode(s *pipelineStage) {
	s.compStart = co.enc.Len()
	for _, r := range s.results {
		if r.IsMatch() {
			co.enc.EncodeMatch(r.Pos, r.Length, r.Distance)
			co.counters.Matches++
			co.counters.MatchedBytes += uint64(r.Length)
		} else {
			var prev byte
			if r.Pos > 0 {
				prev = co.input[r.Pos-1]
			}
			co.enc.EncodeLiteral(prev, r.Lit, r.Pos)
			co.counters.Literals++
		}
		co.counters.BytesProcessed += uint64(r.Consumed())
	}
	if s.last {
		co.enc.Flush()
	}
	s.compEnd = co.enc.Len()
	s.snap = co.enc.Snapshot()
}

// drain hands the chunk's span of the compressed stream to the sink.
func (co *Coordinator) drain(s *pipelineStage) {
	span := co.enc.Bytes()[s.compStart:s.compEnd]
	co.sink.Accept(span)
	co.counters.CompressedBytes += uint64(len(span))
	co.drained++
	co.sinceDrain = 0
	co.logger.Debug("chunk drained",
		zap.Int("chunk", s.chunk),
		zap.Int("compressed", len(span)),
		zap.Uint32("range", s.snap.Range),
		zap.Int("pending", s.snap.CacheLen))
}

// finish validates the byte accounting once the pipeline has drained.
func (co *Coordinator) finish() error {
	if co.failed != nil {
		return co.failed
	}
	n := co.counters.Literals + co.counters.MatchedBytes
	if n > uint64(len(co.input)) {
		return co.fail(fmt.Errorf("%w: covered %d of %d bytes", ErrOverflow, n, len(co.input)))
	}
	if n != uint64(len(co.input)) || co.counters.BytesProcessed != n {
		return co.fail(fmt.Errorf("%w: covered %d of %d bytes", ErrInvalidSize, n, len(co.input)))
	}
	return nil
}

func (co *Coordinator) syncCounters() {
	cc := co.cache.Counters()
	co.counters.CacheHits = cc.Hits
	co.counters.CacheMisses = cc.Misses
	co.counters.PrefetchHits = cc.PrefetchHits
	co.counters.Writebacks = cc.Writebacks
	co.counters.HashCollisions = co.finder.Collisions()
}

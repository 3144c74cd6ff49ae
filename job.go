package lzblock

import (
	"fmt"

	"github.com/chronos-tachyon/enumhelper"
	"go.uber.org/zap"

	"github.com/lzblock/lzblock/dictcache"
	"github.com/lzblock/lzblock/rangecoder"
)

// State is the caller-visible lifecycle state of a Job.
type State byte

const (
	StateIdle State = iota
	StateInit
	StateCompress
	StateVerify
	StateComplete
	StateError
)

var stateData = [...]enumhelper.EnumData{
	{GoName: "StateIdle", Name: "idle"},
	{GoName: "StateInit", Name: "init"},
	{GoName: "StateCompress", Name: "compress"},
	{GoName: "StateVerify", Name: "verify"},
	{GoName: "StateComplete", Name: "complete"},
	{GoName: "StateError", Name: "error"},
}

// GoString returns the name of the Go constant.
func (s State) GoString() string {
	return enumhelper.DereferenceEnumData("State", stateData[:], uint(s)).GoName
}

func (s State) String() string {
	return enumhelper.DereferenceEnumData("State", stateData[:], uint(s)).Name
}

// Config adjusts a Job. Zero values pick the defaults.
type Config struct {
	// FetchLatency is the cycle cost of a dictionary cache miss.
	FetchLatency int

	// StallBudget and CycleBudget are passed to the Coordinator.
	StallBudget int
	CycleBudget int

	// FreshModel resets the probability model at the start of every
	// block, trading adaptation across blocks for reproducible output.
	FreshModel bool

	Logger *zap.Logger
}

// A Result is the outcome of one completed job.
type Result struct {
	Compressed []byte
	Counters   PerformanceCounters
	InputCRC   uint32
	OutputCRC  uint32
}

// A Job compresses fixed-size blocks, one at a time. The probability
// model persists from block to block on the same Job unless
// Config.FreshModel is set; everything else is rebuilt per block.
type Job struct {
	cfg    Config
	logger *zap.Logger
	model  *rangecoder.Model

	state    State
	counters PerformanceCounters
}

// NewJob returns an idle job.
func NewJob(cfg Config) *Job {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Job{
		cfg:    cfg,
		logger: logger,
		model:  rangecoder.NewModel(),
		state:  StateIdle,
	}
}

// State returns the job's current lifecycle state.
func (j *Job) State() State {
	return j.state
}

// Counters returns the totals from the most recent run.
func (j *Job) Counters() PerformanceCounters {
	return j.counters
}

// advance moves the job to next, rejecting transitions the lifecycle does
// not allow.
func (j *Job) advance(next State) error {
	ok := false
	switch next {
	case StateInit:
		ok = j.state == StateIdle || j.state == StateComplete || j.state == StateError
	case StateCompress:
		ok = j.state == StateInit
	case StateVerify:
		ok = j.state == StateCompress
	case StateComplete:
		ok = j.state == StateVerify
	case StateError:
		ok = true
	}
	if !ok {
		return fmt.Errorf("%w: %v -> %v", ErrInvalidState, j.state, next)
	}
	j.logger.Debug("state transition",
		zap.Stringer("from", j.state), zap.Stringer("to", next))
	j.state = next
	return nil
}

func (j *Job) fail(err error) error {
	j.state = StateError
	j.logger.Error("job failed", zap.Error(err))
	return err
}

// Run compresses one block. The input must be exactly BlockSize bytes;
// PadBlock prepares shorter tails. On success the job is Complete and may
// be Run again; on failure it is in the Error state and the partial output
// is not valid.
func (j *Job) Run(input []byte) (*Result, error) {
	if err := j.advance(StateInit); err != nil {
		return nil, j.fail(err)
	}
	if len(input) != BlockSize {
		return nil, j.fail(fmt.Errorf("%w: input is %d bytes, want %d",
			ErrInvalidSize, len(input), BlockSize))
	}

	cache := dictcache.New(dictcache.Config{FetchLatency: j.cfg.FetchLatency})
	window := dictcache.NewWindow(cache)
	finder := NewFinder(input, window)
	if j.cfg.FreshModel {
		j.model.Reset()
	}
	enc := rangecoder.NewEncoder(j.model)
	sink := &bufferSink{}
	inputCRC := Checksum(input)

	if err := j.advance(StateCompress); err != nil {
		return nil, j.fail(err)
	}
	co := NewCoordinator(input, cache, window, finder, enc, CoordinatorConfig{
		StallBudget: j.cfg.StallBudget,
		CycleBudget: j.cfg.CycleBudget,
		Sink:        sink,
		Logger:      j.logger,
	})
	for !co.Done() {
		if err := co.Step(); err != nil {
			return nil, j.fail(err)
		}
	}
	if err := co.finish(); err != nil {
		return nil, j.fail(err)
	}

	if err := j.advance(StateVerify); err != nil {
		return nil, j.fail(err)
	}
	readback := make([]byte, BlockSize)
	if _, err := window.ReadAt(readback, 0); err != nil {
		return nil, j.fail(fmt.Errorf("%w: reading back window: %v", ErrMemoryAccess, err))
	}
	if crc := Checksum(readback); !VerifyChecksum(crc, inputCRC) {
		return nil, j.fail(fmt.Errorf("%w: window crc %#08x, input crc %#08x",
			ErrCrcMismatch, crc, inputCRC))
	}

	j.counters = co.Counters()
	cc := cache.Counters()
	j.counters.CacheHits = cc.Hits
	j.counters.CacheMisses = cc.Misses
	j.counters.PrefetchHits = cc.PrefetchHits
	j.counters.Writebacks = cc.Writebacks

	if err := j.advance(StateComplete); err != nil {
		return nil, j.fail(err)
	}
	res := &Result{
		Compressed: sink.buf,
		Counters:   j.counters,
		InputCRC:   inputCRC,
		OutputCRC:  Checksum(sink.buf),
	}
	j.logger.Info("block complete",
		zap.Uint64("compressed", j.counters.CompressedBytes),
		zap.Uint64("matches", j.counters.Matches),
		zap.Uint64("literals", j.counters.Literals))
	return res, nil
}

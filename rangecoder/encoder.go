package rangecoder

import "github.com/chronos-tachyon/assert"

// An Encoder serializes literals and matches against a shared Model. The
// encoded bytes accumulate in an internal buffer; Bytes exposes the stream
// so far and Flush terminates it.
type Encoder struct {
	coder
	model *Model
}

// NewEncoder returns an encoder writing a fresh stream against model.
func NewEncoder(model *Model) *Encoder {
	e := &Encoder{model: model}
	e.coder.init(nil)
	return e
}

// Reset discards the encoded stream and restarts the numeric state. The
// model is left alone; pass resetModel to also drop its adapted state.
func (e *Encoder) Reset(resetModel bool) {
	e.coder.init(e.dst[:0])
	if resetModel {
		e.model.Reset()
	}
}

// Bytes returns the encoded stream so far.
func (e *Encoder) Bytes() []byte {
	return e.dst
}

// Len returns the number of encoded bytes so far.
func (e *Encoder) Len() int {
	return len(e.dst)
}

// EncodeLiteral codes cur as a literal at pos, with prev the preceding
// byte in the stream (zero at position 0). The eight data bits go out
// most-significant first, all against the single context selected by the
// two bytes' high bits.
func (e *Encoder) EncodeLiteral(prev, cur byte, pos int) {
	e.encodeBit(&e.model.matchFlag[pos&(NumPosStates-1)], 0)
	ctx := &e.model.literal[LiteralContext(prev, cur)]
	for i := 7; i >= 0; i-- {
		e.encodeBit(ctx, int(cur>>uint(i))&1)
	}
}

// EncodeMatch codes a back-reference of length at distance, starting at
// pos. The length is signalled through its class context; the distance
// goes out as 15 bits, most-significant first, each against the context
// for its bit position.
func (e *Encoder) EncodeMatch(pos, length, distance int) {
	assert.Assertf(length >= 3 && length <= 273, "match length %d out of range", length)
	assert.Assertf(distance >= 1 && distance <= 32768, "match distance %d out of range", distance)

	e.encodeBit(&e.model.matchFlag[pos&(NumPosStates-1)], 1)
	e.encodeBit(&e.model.lengthClass[LengthClass(length)], 1)

	d := distance - 1
	for i := distanceBits - 1; i >= 0; i-- {
		bit := (d >> uint(i)) & 1
		e.encodeBit(&e.model.distanceBit[distanceBits-1-i], bit)
	}
}

// Flush terminates the stream. No further symbols may be encoded until
// Reset.
func (e *Encoder) Flush() {
	e.coder.flush()
}

// A Snapshot is a copy of the numeric coder state, taken for pipeline
// observability.
type Snapshot struct {
	Low      uint64
	Range    uint32
	Cache    byte
	CacheLen int
	Emitted  int
}

// Snapshot returns the current numeric state.
func (e *Encoder) Snapshot() Snapshot {
	return Snapshot{
		Low:      e.low,
		Range:    e.rng,
		Cache:    e.cache,
		CacheLen: e.cacheLen,
		Emitted:  len(e.dst),
	}
}

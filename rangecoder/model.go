// Package rangecoder implements the adaptive binary range coder that
// serializes the match finder's output. Probabilities are byte-scaled
// (a value p in [1,255] out of 256) and adapt by a fixed shift after
// every encoded bit; the numeric core is a classic carry-propagating
// range encoder with a 32-bit interval and byte-at-a-time renormalization.
package rangecoder

const (
	probInit = 128 // 50%
	probMin  = 1
	probMax  = 255
	moveBits = 4

	// NumLiteralContexts is the size of the literal probability table.
	// The index packs the high three bits of the previous byte with the
	// high three bits of the byte being coded.
	NumLiteralContexts = 256

	// NumPosStates is the number of match-flag contexts, selected by the
	// low two bits of the position.
	NumPosStates = 4

	// NumLengthClasses is the number of match-length classes.
	NumLengthClasses = 10

	// NumDistanceContexts is the size of the distance-bit table, one
	// context per bit position of the 15-bit distance field.
	NumDistanceContexts = 16

	distanceBits = 15
)

// A Model is the shared table of adaptive context probabilities. One model
// serves every encoder unit in a job and, unless explicitly reset, carries
// its adapted state from one block to the next.
type Model struct {
	literal     [NumLiteralContexts]uint8
	matchFlag   [NumPosStates]uint8
	lengthClass [NumLengthClasses]uint8
	distanceBit [NumDistanceContexts]uint8
}

// NewModel returns a model with every context at the initial 50%
// probability.
func NewModel() *Model {
	m := new(Model)
	m.Reset()
	return m
}

// Reset returns every context to the initial probability.
func (m *Model) Reset() {
	fill(m.literal[:])
	fill(m.matchFlag[:])
	fill(m.lengthClass[:])
	fill(m.distanceBit[:])
}

func fill(probs []uint8) {
	for i := range probs {
		probs[i] = probInit
	}
}

// adapt nudges p by a sixteenth of its headroom toward 255 on a set bit
// and toward 1 on a clear bit. The arithmetic keeps p inside [1,255] on
// its own; the clamp guards the invariant anyway.
func adapt(p *uint8, bit int) {
	if bit != 0 {
		*p += (probMax - *p) >> moveBits
	} else {
		*p -= (*p - probMin) >> moveBits
	}
	if *p < probMin {
		*p = probMin
	} else if *p > probMax {
		*p = probMax
	}
}

// LiteralContext returns the literal table index for coding cur after
// prev.
func LiteralContext(prev, cur byte) int {
	return int(prev>>5)<<3 | int(cur>>5)
}

// LengthClass maps a match length in [3,273] to its class.
func LengthClass(length int) int {
	switch {
	case length <= 10:
		return length - 3
	case length <= 15:
		return 7
	case length <= 31:
		return 8
	default:
		return 9
	}
}

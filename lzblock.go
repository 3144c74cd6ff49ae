// The lzblock package compresses fixed 32KB blocks with an adaptive
// LZ-style engine: a match finder discovers back-references into a sliding
// history window, and a binary range coder serializes the resulting stream
// of literals and matches using continuously adapting probability models.
//
// The two halves are logically separate stages connected by an intermediate
// representation, the MatchResult. A Coordinator drives both through a
// fixed-depth pipeline, one chunk of input per stage, and a Job wraps the
// whole thing in a start/verify/complete lifecycle with CRC integrity
// checks and performance counters.
//
// Only the encode direction is implemented. There is no decoder, no
// container format, and no streaming beyond independent 32KB blocks.
package lzblock

// Version of the lzblock engine.
const Version = "1.0.0"

const (
	// BlockSize is the fixed size of one compression job's input.
	BlockSize = 32768

	// MinMatch is the shortest back-reference worth emitting.
	MinMatch = 3

	// MaxMatch is the longest back-reference a single result may carry.
	MaxMatch = 273

	// MaxDistance is how far back a match may reach into history.
	MaxDistance = 32768

	// ProbeWidth is the number of positions probed in parallel per
	// match-finder step.
	ProbeWidth = 8

	// PipelineDepth is the number of stage slots in the Coordinator.
	PipelineDepth = 8

	// ChunkSize is the number of input bytes admitted per pipeline slot.
	ChunkSize = 4096
)

// A MatchResult is the basic unit passed from the match finder to the
// range encoder: either a back-reference of Length bytes at Distance, or,
// when Length is zero, the single literal byte Lit.
type MatchResult struct {
	Pos      int  // position of the first byte this result covers
	Length   int  // match length, or 0 for a literal
	Distance int  // how far back in history the match copies from
	Lit      byte // the literal byte, valid only when Length == 0
}

// IsMatch reports whether the result is a back-reference rather than a
// literal.
func (r MatchResult) IsMatch() bool {
	return r.Length >= MinMatch
}

// Consumed returns the number of input bytes this result covers.
func (r MatchResult) Consumed() int {
	if r.Length > 0 {
		return r.Length
	}
	return 1
}

// PadBlock returns p extended with zero bytes to a multiple of BlockSize.
// A nil or empty slice pads to one full block.
func PadBlock(p []byte) []byte {
	n := len(p)
	rem := n % BlockSize
	if n > 0 && rem == 0 {
		return p
	}
	padded := make([]byte, n+BlockSize-rem)
	copy(padded, p)
	return padded
}

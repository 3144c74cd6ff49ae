package rangecoder

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func encodeSample(e *Encoder) {
	prev := byte(0)
	for i := 0; i < 64; i++ {
		cur := byte(i * 7)
		e.EncodeLiteral(prev, cur, i)
		prev = cur
	}
	e.EncodeMatch(64, 273, 1)
	e.EncodeMatch(337, 3, 32768)
	e.Flush()
}

func TestEncoderIdempotentFromFreshModel(t *testing.T) {
	model := NewModel()
	e := NewEncoder(model)
	encodeSample(e)
	first := append([]byte(nil), e.Bytes()...)

	e.Reset(true)
	encodeSample(e)
	require.Equal(t, first, e.Bytes(),
		"re-encoding from a fresh model must be byte-identical")
}

func TestEncoderModelCarriesAcrossReset(t *testing.T) {
	model := NewModel()
	e := NewEncoder(model)
	encodeSample(e)
	first := append([]byte(nil), e.Bytes()...)

	e.Reset(false)
	encodeSample(e)
	require.NotEqual(t, first, e.Bytes(),
		"an adapted model must change the encoding")
}

func TestEncoderRejectsBadMatches(t *testing.T) {
	e := NewEncoder(NewModel())
	require.Panics(t, func() { e.EncodeMatch(0, 2, 1) })
	require.Panics(t, func() { e.EncodeMatch(0, 274, 1) })
	require.Panics(t, func() { e.EncodeMatch(0, 3, 0) })
	require.Panics(t, func() { e.EncodeMatch(0, 3, 32769) })
}

func TestSnapshotTracksEmission(t *testing.T) {
	e := NewEncoder(NewModel())
	before := e.Snapshot()
	require.Equal(t, uint32(0xffffffff), before.Range)
	require.Equal(t, 0, before.Emitted)

	encodeSample(e)
	after := e.Snapshot()
	require.Greater(t, after.Emitted, before.Emitted)
}

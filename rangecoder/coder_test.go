package rangecoder

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAdaptStaysInBounds(t *testing.T) {
	p := uint8(probInit)
	for i := 0; i < 100000; i++ {
		adapt(&p, 1)
		if p < probMin || p > probMax {
			t.Fatalf("probability %d escaped [1,255] on a run of ones", p)
		}
	}
	// The fixed shift has dead zones at both ends: +((255-p)>>4) stops
	// moving once p reaches 240, and the low side sticks at 16.
	require.Equal(t, uint8(240), p, "a long run of ones must saturate high")

	for i := 0; i < 100000; i++ {
		adapt(&p, 0)
		if p < probMin || p > probMax {
			t.Fatalf("probability %d escaped [1,255] on a run of zeros", p)
		}
	}
	require.Equal(t, uint8(16), p, "a long run of zeros must saturate low")
}

func TestFlushOnFreshCoder(t *testing.T) {
	var c coder
	c.init(nil)
	c.flush()
	require.Equal(t, []byte{0, 0, 0, 0, 0}, c.dst,
		"an empty stream flushes the pending byte plus four bytes of low")
}

func TestEncodeBitDeterministic(t *testing.T) {
	run := func() []byte {
		var c coder
		c.init(nil)
		p := uint8(probInit)
		q := uint8(probInit)
		for i := 0; i < 4096; i++ {
			c.encodeBit(&p, i&1)
			c.encodeBit(&q, (i>>1)&1)
		}
		c.flush()
		return c.dst
	}
	a := run()
	b := run()
	require.True(t, bytes.Equal(a, b), "same bits, same contexts, same output")
	require.NotEmpty(t, a)
}

// A long run of ones against a saturated-low probability keeps adding
// nearly the whole range to low, so carries out of the 32-bit window are
// frequent. The stream must stay byte-identical across runs regardless.
func TestCarryPropagation(t *testing.T) {
	run := func() []byte {
		var c coder
		c.init(nil)
		p := uint8(probMax)
		for i := 0; i < 10000; i++ {
			c.encodeBit(&p, 1)
			p = probMax
		}
		c.flush()
		return c.dst
	}
	a := run()
	require.True(t, bytes.Equal(a, run()))
	require.NotEmpty(t, a)
}

func TestLengthClass(t *testing.T) {
	cases := []struct {
		length int
		class  int
	}{
		{3, 0}, {4, 1}, {10, 7}, {11, 7}, {15, 7},
		{16, 8}, {31, 8}, {32, 9}, {273, 9},
	}
	for _, tc := range cases {
		if got := LengthClass(tc.length); got != tc.class {
			t.Errorf("LengthClass(%d) = %d, want %d", tc.length, got, tc.class)
		}
	}
}

func TestLiteralContext(t *testing.T) {
	require.Equal(t, 0, LiteralContext(0x00, 0x1f))
	require.Equal(t, NumLiteralContexts/4-1, LiteralContext(0xff, 0xff))
	require.Equal(t, 8, LiteralContext(0x20, 0x00))
}

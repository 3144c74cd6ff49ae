package rangecoder

import "github.com/chronos-tachyon/assert"

const topValue = 1 << 24

// coder is the numeric core: a shrinking interval [low, low+range) whose
// settled top bytes are shifted out as they stop changing. low is kept in
// a 64-bit accumulator so that a carry out of the 32-bit window is visible
// and can be propagated into the pending output bytes.
type coder struct {
	low      uint64
	rng      uint32
	cache    byte // pending output byte, held back for carry propagation
	cacheLen int  // pending bytes: cache plus any run of 0xff after it
	dst      []byte
}

func (c *coder) init(dst []byte) {
	c.low = 0
	c.rng = 0xffffffff
	c.cache = 0
	c.cacheLen = 1
	c.dst = dst
}

// encodeBit codes one bit against *p, the probability of the bit being
// zero, then adapts *p.
func (c *coder) encodeBit(p *uint8, bit int) {
	bound := (c.rng >> 8) * uint32(*p)
	if bit == 0 {
		c.rng = bound
	} else {
		c.low += uint64(bound)
		c.rng -= bound
	}
	adapt(p, bit)

	for c.rng < topValue {
		c.shiftLow()
		c.rng <<= 8
	}
	assert.Assertf(c.rng != 0, "range collapsed to zero outside renormalization")
}

// shiftLow retires the top byte of low. A byte equal to 0xff cannot be
// emitted yet, because a later carry could still ripple through it; such
// bytes only extend the pending count. When a byte below 0xff (or a carry)
// arrives, the pending run is resolved and emitted.
func (c *coder) shiftLow() {
	if uint32(c.low) < 0xff000000 || c.low>>32 != 0 {
		carry := byte(c.low >> 32)
		tmp := c.cache
		for {
			c.dst = append(c.dst, tmp+carry)
			tmp = 0xff
			c.cacheLen--
			if c.cacheLen <= 0 {
				break
			}
		}
		c.cache = byte(c.low >> 24)
	}
	c.cacheLen++
	c.low = uint64(uint32(c.low) << 8)
}

// flush drains the pending byte and the remaining bytes of low,
// most-significant first, making the stream self-terminating.
func (c *coder) flush() {
	for i := 0; i < 5; i++ {
		c.shiftLow()
	}
}

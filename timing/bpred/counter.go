package bpred

import "fmt"

// MaxCounterWidth is the widest SaturatingCounter that can be constructed.
const MaxCounterWidth = 8

// SaturatingCounter is a signed two's-complement counter of a fixed bit
// width. Incrementing at the maximum or decrementing at the minimum has no
// effect.
//
// For a width of N bits the value range is [-2^(N-1), 2^(N-1)-1]. The counter
// predicts taken when its value is non-negative.
type SaturatingCounter struct {
	value int8
	width uint8
}

// NewSaturatingCounter creates a counter of the given width holding the
// initial value, clamped into range. It panics if width is outside
// [1, MaxCounterWidth].
func NewSaturatingCounter(width uint8, initial int8) SaturatingCounter {
	if width == 0 || width > MaxCounterWidth {
		panic(fmt.Sprintf("bpred: invalid saturating counter width %d", width))
	}

	c := SaturatingCounter{width: width}
	c.value = clamp(initial, c.Min(), c.Max())

	return c
}

func clamp(v, lo, hi int8) int8 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Width returns the counter width in bits.
func (c SaturatingCounter) Width() uint8 {
	return c.width
}

// Value returns the current signed value.
func (c SaturatingCounter) Value() int8 {
	return c.value
}

// Max returns the largest representable value, 2^(N-1)-1.
func (c SaturatingCounter) Max() int8 {
	return int8((1 << (c.width - 1)) - 1)
}

// Min returns the smallest representable value, -2^(N-1).
func (c SaturatingCounter) Min() int8 {
	return int8(-(1 << (c.width - 1)))
}

// Predict reports whether the counter favours taken.
func (c SaturatingCounter) Predict() bool {
	return c.value >= 0
}

// IsZero reports whether the counter is in the all-zero state.
func (c SaturatingCounter) IsZero() bool {
	return c.value == 0
}

// Increment moves the counter one step toward taken.
func (c *SaturatingCounter) Increment() {
	if c.value != c.Max() {
		c.value++
	}
}

// Decrement moves the counter one step toward not-taken.
func (c *SaturatingCounter) Decrement() {
	if c.value != c.Min() {
		c.value--
	}
}

// Update trains the counter with a resolved outcome.
func (c *SaturatingCounter) Update(taken bool) {
	if taken {
		c.Increment()
	} else {
		c.Decrement()
	}
}

// ResetBiased sets the counter to its extreme value in the given direction.
func (c *SaturatingCounter) ResetBiased(taken bool) {
	if taken {
		c.value = c.Max()
	} else {
		c.value = c.Min()
	}
}

// Reset returns the counter to zero, the weakest taken state.
func (c *SaturatingCounter) Reset() {
	c.value = 0
}

// ClearHighBit clears the most significant bit of the counter's N-bit
// encoding.
func (c *SaturatingCounter) ClearHighBit() {
	c.clearBit(c.width - 1)
}

// ClearLowBit clears the least significant bit of the counter's N-bit
// encoding.
func (c *SaturatingCounter) ClearLowBit() {
	c.clearBit(0)
}

// clearBit masks one bit of the N-bit pattern and sign-extends the result
// back into range.
func (c *SaturatingCounter) clearBit(pos uint8) {
	mask := uint8(1<<c.width - 1)
	pattern := uint8(c.value) & mask
	pattern &^= 1 << pos

	shift := 8 - c.width
	c.value = int8(pattern<<shift) >> shift
}

// String renders the counter as value/width.
func (c SaturatingCounter) String() string {
	return fmt.Sprintf("%d/%d", c.value, c.width)
}

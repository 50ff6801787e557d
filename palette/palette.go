// Package palette maps scalar particle fields to colours shared by the
// graphical and terminal viewers.
package palette

import (
	"fmt"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// Ramp blends between colour stops in HCL space.
type Ramp struct {
	stops []colorful.Color
}

// NewRamp builds a ramp from two or more hex colours.
func NewRamp(hexes ...string) (Ramp, error) {
	if len(hexes) < 2 {
		return Ramp{}, fmt.Errorf("palette: ramp needs at least 2 stops, got %d", len(hexes))
	}
	stops := make([]colorful.Color, len(hexes))
	for i, h := range hexes {
		c, err := colorful.Hex(h)
		if err != nil {
			return Ramp{}, fmt.Errorf("palette: stop %d: %w", i, err)
		}
		stops[i] = c
	}
	return Ramp{stops: stops}, nil
}

// MustRamp is like NewRamp but panics on error.
func MustRamp(hexes ...string) Ramp {
	r, err := NewRamp(hexes...)
	if err != nil {
		panic(err)
	}
	return r
}

// Density runs from sparse (deep blue) to compressed (near white).
var Density = MustRamp("#0b1f3a", "#1565c0", "#4fc3f7", "#e1f5fe")

// At returns the colour at t, clamped to [0, 1].
func (r Ramp) At(t float64) colorful.Color {
	if math.IsNaN(t) || t <= 0 {
		return r.stops[0]
	}
	if t >= 1 {
		return r.stops[len(r.stops)-1]
	}
	segs := float64(len(r.stops) - 1)
	pos := t * segs
	i := int(pos)
	return r.stops[i].BlendHcl(r.stops[i+1], pos-float64(i)).Clamped()
}

// RGB255 returns the colour at t as 8-bit channels.
func (r Ramp) RGB255(t float64) (uint8, uint8, uint8) {
	return r.At(t).RGB255()
}

// Normalize maps v from [lo, hi] to [0, 1]. A degenerate range maps to 0.5.
func Normalize(v, lo, hi float32) float64 {
	if hi <= lo {
		return 0.5
	}
	t := float64((v - lo) / (hi - lo))
	return math.Max(0, math.Min(1, t))
}

// Range tracks the running min and max of a field over one frame.
type Range struct {
	Lo, Hi float32
	n      int
}

// Add extends the range to include v.
func (r *Range) Add(v float32) {
	if r.n == 0 || v < r.Lo {
		r.Lo = v
	}
	if r.n == 0 || v > r.Hi {
		r.Hi = v
	}
	r.n++
}

// Reset empties the range.
func (r *Range) Reset() { *r = Range{} }

// softclip.go - tanh-based soft clipper / limiter.
//
// Below the threshold the signal passes through untouched; above it, a
// tanh curve bends the signal asymptotically toward +-1.0 so a hot
// input never hard-clips. Grounded in audio_chip.go's overdrive stage
// (math.Tanh waveshaping) and the soft-limiter in
// other_examples/eff74709_lixenwraith-vi-fighter/mixer.go.
package gecko

import (
	"math"
	"sync/atomic"
)

// defaultSoftClipThreshold is 10^(-3/20), about 0.708 linear.
const defaultSoftClipThreshold = 0.707945784

// SoftClipper is a per-sample limiter. Both Threshold and Enabled are
// atomics: the audio thread reads them once per buffer, so a
// mid-buffer change is audibly harmless (spec.md §4.2).
type SoftClipper struct {
	threshold atomic.Uint32 // float32 bits, linear
	enabled   atomic.Bool
}

// NewSoftClipper returns a clipper with the default linear threshold
// (~0.708), enabled.
func NewSoftClipper() *SoftClipper {
	c := &SoftClipper{}
	c.threshold.Store(math.Float32bits(defaultSoftClipThreshold))
	c.enabled.Store(true)
	return c
}

// NewSoftClipperDB returns a clipper whose threshold is given in dBFS
// rather than linear amplitude. Supplemental constructor (see
// SPEC_FULL.md §12); equivalent to NewSoftClipper().SetThresholdDB(db).
func NewSoftClipperDB(db float32) *SoftClipper {
	c := NewSoftClipper()
	c.SetThresholdDB(db)
	return c
}

// SetThreshold sets the linear threshold directly.
func (c *SoftClipper) SetThreshold(linear float32) {
	c.threshold.Store(math.Float32bits(linear))
}

// SetThresholdDB sets the threshold from a dBFS value (db/20 linear
// amplitude convention, per spec.md §9).
func (c *SoftClipper) SetThresholdDB(db float32) {
	c.SetThreshold(float32(math.Pow(10, float64(db)/20)))
}

// Threshold returns the current linear threshold.
func (c *SoftClipper) Threshold() float32 {
	return math.Float32frombits(c.threshold.Load())
}

// SetEnabled toggles the clipper.
func (c *SoftClipper) SetEnabled(enabled bool) {
	c.enabled.Store(enabled)
}

// Enabled reports whether the clipper is active.
func (c *SoftClipper) Enabled() bool {
	return c.enabled.Load()
}

// clipSample applies the soft-clip curve to a single sample given a
// threshold already loaded once per buffer by the caller.
func clipSample(x, t float32) float32 {
	ax := x
	neg := false
	if ax < 0 {
		ax = -ax
		neg = true
	}
	if ax <= t {
		return x
	}
	h := 1 - t
	if h < 1e-3 {
		h = 1e-3
	}
	y := t + h*float32(math.Tanh(float64((ax-t)/h)))
	if neg {
		return -y
	}
	return y
}

// ProcessInterleaved runs the clipper over an interleaved stereo
// buffer in place. When disabled, the input passes through unchanged.
func (c *SoftClipper) ProcessInterleaved(buf []float32) {
	if !c.enabled.Load() {
		return
	}
	t := c.Threshold()
	for i := range buf {
		buf[i] = clipSample(buf[i], t)
	}
}

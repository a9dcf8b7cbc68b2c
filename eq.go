// eq.go - 10-band parametric equalizer: RBJ cookbook biquads in a
// transposed Direct-Form II cascade.
//
// Each EqBand maps to one serial biquad section per channel. Band 0 and
// band 9 are shelves; the middle eight are peaking. Coefficients follow
// the RBJ Audio-EQ Cookbook exactly, with the gain-to-amplitude exponent
// pinned per the spec's resolution of its own ambiguity: db/20 for
// linear amplitude gains (the master gain applied in
// process_interleaved), db/40 inside peaking coefficient derivation.
// Shelves use the cookbook's own A = 10^(db/40) convention.
package gecko

import "math"

// EqFilterKind is the shape of one band's biquad section.
type EqFilterKind int

const (
	LowShelf EqFilterKind = iota
	Peaking
	HighShelf
)

// NumBands is the number of sections in one Equalizer cascade.
const NumBands = 10

// BandCentresHz are the ISO octave band centres used by the 10-band EQ.
var BandCentresHz = [NumBands]float64{
	31, 62, 125, 250, 500, 1000, 2000, 4000, 8000, 16000,
}

const defaultQ = 0.707 // Butterworth

// EqBand is one section of the cascade: a centre frequency, Q, filter
// kind, and gain in dB. GainDB is always clamped into [-24, +24] before
// use (see clampGainDB).
type EqBand struct {
	CentreHz float64
	Q        float64
	Kind     EqFilterKind
	GainDB   float32
}

func clampGainDB(db float32) float32 {
	return clampF32(db, -24, 24)
}

// biquadCoeffs holds the five coefficients of one RBJ biquad section,
// normalised so that a0 == 1.
type biquadCoeffs struct {
	b0, b1, b2 float32
	a1, a2     float32
}

// BiquadState is the transposed Direct-Form II delay memory for one
// band on one channel. Transposed DF-II is used instead of direct
// Form-I for better numerical stability under the frequent coefficient
// updates a live EQ slider produces.
type BiquadState struct {
	coeffs biquadCoeffs
	z1, z2 float32
}

func (s *BiquadState) reset() {
	s.z1, s.z2 = 0, 0
}

// process runs one sample through the section. Transposed DF-II:
//
//	y[n]  = b0*x[n] + z1
//	z1'   = b1*x[n] + z2 - a1*y[n]
//	z2'   = b2*x[n] - a2*y[n]
func (s *BiquadState) process(x float32) float32 {
	c := s.coeffs
	y := c.b0*x + s.z1
	s.z1 = c.b1*x + s.z2 - c.a1*y
	s.z2 = c.b2*x - c.a2*y
	return y
}

// rbjCoeffs derives biquad coefficients for one band at one sample
// rate, following the RBJ Audio-EQ Cookbook.
func rbjCoeffs(kind EqFilterKind, centreHz, q float64, gainDB float32, sampleRate int) (biquadCoeffs, error) {
	if sampleRate <= 0 {
		return biquadCoeffs{}, ErrInvalidSampleRate
	}
	if centreHz <= 0 || centreHz >= float64(sampleRate)/2 {
		return biquadCoeffs{}, ErrInvalidCoefficients
	}
	if q <= 0 {
		q = defaultQ
	}

	w0 := 2 * math.Pi * centreHz / float64(sampleRate)
	cosW0 := math.Cos(w0)
	sinW0 := math.Sin(w0)
	alpha := sinW0 / (2 * q)

	var a0, a1, a2, b0, b1, b2 float64

	switch kind {
	case Peaking:
		a := math.Pow(10, float64(gainDB)/40)
		b0 = 1 + alpha*a
		b1 = -2 * cosW0
		b2 = 1 - alpha*a
		a0 = 1 + alpha/a
		a1 = -2 * cosW0
		a2 = 1 - alpha/a

	case LowShelf:
		a := math.Pow(10, float64(gainDB)/40)
		sqrtA := math.Sqrt(a)
		twoSqrtAAlpha := 2 * sqrtA * alpha
		b0 = a * ((a + 1) - (a-1)*cosW0 + twoSqrtAAlpha)
		b1 = 2 * a * ((a - 1) - (a+1)*cosW0)
		b2 = a * ((a + 1) - (a-1)*cosW0 - twoSqrtAAlpha)
		a0 = (a + 1) + (a-1)*cosW0 + twoSqrtAAlpha
		a1 = -2 * ((a - 1) + (a+1)*cosW0)
		a2 = (a + 1) + (a-1)*cosW0 - twoSqrtAAlpha

	case HighShelf:
		a := math.Pow(10, float64(gainDB)/40)
		sqrtA := math.Sqrt(a)
		twoSqrtAAlpha := 2 * sqrtA * alpha
		b0 = a * ((a + 1) + (a-1)*cosW0 + twoSqrtAAlpha)
		b1 = -2 * a * ((a - 1) + (a+1)*cosW0)
		b2 = a * ((a + 1) + (a-1)*cosW0 - twoSqrtAAlpha)
		a0 = (a + 1) - (a-1)*cosW0 + twoSqrtAAlpha
		a1 = 2 * ((a - 1) - (a+1)*cosW0)
		a2 = (a + 1) - (a-1)*cosW0 - twoSqrtAAlpha

	default:
		return biquadCoeffs{}, ErrInvalidCoefficients
	}

	if a0 == 0 {
		return biquadCoeffs{}, ErrInvalidCoefficients
	}

	return biquadCoeffs{
		b0: float32(b0 / a0),
		b1: float32(b1 / a0),
		b2: float32(b2 / a0),
		a1: float32(a1 / a0),
		a2: float32(a2 / a0),
	}, nil
}

// bandKind returns the fixed shelf/peaking shape for band index i.
func bandKind(i int) EqFilterKind {
	switch i {
	case 0:
		return LowShelf
	case NumBands - 1:
		return HighShelf
	default:
		return Peaking
	}
}

// Equalizer owns a 10-band EqConfig and the 20 BiquadStates (10 bands
// times 2 channels) that process stereo audio through it.
type Equalizer struct {
	sampleRate int
	bands      [NumBands]EqBand
	masterGain float32 // linear; set via SetMasterGainDB (db/20 convention)
	left       [NumBands]BiquadState
	right      [NumBands]BiquadState
	bypass     bool
}

// NewEqualizer returns a flat (0dB every band) EQ at the given sample
// rate, using the ISO octave centres and Butterworth Q.
func NewEqualizer(sampleRate int) *Equalizer {
	eq := &Equalizer{sampleRate: sampleRate, masterGain: 1}
	for i := range eq.bands {
		eq.bands[i] = EqBand{
			CentreHz: BandCentresHz[i],
			Q:        defaultQ,
			Kind:     bandKind(i),
			GainDB:   0,
		}
		eq.recomputeBand(i)
	}
	return eq
}

func (eq *Equalizer) recomputeBand(i int) {
	b := eq.bands[i]
	c, err := rbjCoeffs(b.Kind, b.CentreHz, b.Q, b.GainDB, eq.sampleRate)
	if err != nil {
		// Unreachable for in-range ISO centres at any sane sample rate;
		// fall back to a transparent pass-through rather than panic on
		// the audio thread's behalf.
		c = biquadCoeffs{b0: 1}
	}
	eq.left[i].coeffs = c
	eq.right[i].coeffs = c
}

// SetBandGain clamps gainDB into [-24,+24], recomputes that band's
// coefficients, and updates both channels' biquad coefficients in
// place. Delay lines (z1/z2) are left untouched so no click is
// introduced. Returns ErrInvalidBand if index is out of [0,9].
func (eq *Equalizer) SetBandGain(index int, gainDB float32) error {
	if index < 0 || index >= NumBands {
		return ErrInvalidBand
	}
	eq.bands[index].GainDB = clampGainDB(gainDB)
	eq.recomputeBand(index)
	return nil
}

// SetBandQ overrides the Q of one band away from the spec's 0.707
// default. Supplemental operation (see SPEC_FULL.md §12); every
// spec-named operation behaves identically when Q is left at its
// default.
func (eq *Equalizer) SetBandQ(index int, q float64) error {
	if index < 0 || index >= NumBands {
		return ErrInvalidBand
	}
	if q <= 0 {
		q = defaultQ
	}
	eq.bands[index].Q = q
	eq.recomputeBand(index)
	return nil
}

// BandGain returns the currently stored (clamped) gain for a band.
func (eq *Equalizer) BandGain(index int) (float32, error) {
	if index < 0 || index >= NumBands {
		return 0, ErrInvalidBand
	}
	return eq.bands[index].GainDB, nil
}

// SetMasterGainDB sets the cascade's final linear multiplier using the
// db/20 linear-amplitude convention.
func (eq *Equalizer) SetMasterGainDB(db float32) {
	eq.masterGain = float32(math.Pow(10, float64(db)/20))
}

// SetBypass enables or disables the fast pass-through path.
func (eq *Equalizer) SetBypass(bypass bool) {
	eq.bypass = bypass
}

// Bypass reports whether the EQ is currently bypassed.
func (eq *Equalizer) Bypass() bool {
	return eq.bypass
}

// ProcessInterleaved runs every (L,R) pair through all 10 bands in
// order 0->9, then multiplies both samples by the master linear gain.
// In-place, O(n), no allocation, no syscall: safe to call from an audio
// callback. Returns ErrInvalidBufferLen if len(buf) is odd. When
// bypassed, returns immediately (fast path), leaving buf unchanged.
func (eq *Equalizer) ProcessInterleaved(buf []float32) error {
	if len(buf)%2 != 0 {
		return ErrInvalidBufferLen
	}
	if eq.bypass {
		return nil
	}
	for i := 0; i < len(buf); i += 2 {
		l := buf[i]
		r := buf[i+1]
		for b := 0; b < NumBands; b++ {
			l = eq.left[b].process(l)
			r = eq.right[b].process(r)
		}
		buf[i] = l * eq.masterGain
		buf[i+1] = r * eq.masterGain
	}
	return nil
}

// Reset zeroes all delay lines on both channels. Call whenever a
// processor's capture source has discontinued, to avoid ringing.
func (eq *Equalizer) Reset() {
	for i := range eq.left {
		eq.left[i].reset()
		eq.right[i].reset()
	}
}

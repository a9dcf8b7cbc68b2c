// spectrum.go - post-master spectrum analyzer feedback path.
//
// Gives the UI a <=60Hz log-frequency magnitude view of the final
// mixed signal. The push side (called from the output callback) is
// lock-free and allocation-free; the consumer side (Update, called
// from the engine thread at its own cadence) owns the FFT and all scratch
// allocation. Grounded in
// other_examples/8d7f17ca_austinkregel-vscode-music-player's analyzer
// (gonum FFT, Hann window, log-band reduction, smoothing factor)
// adapted to the exact bin edges, normalisation and asymmetric
// attack/decay smoothing spec.md §4.6 specifies.
package gecko

import (
	"math"
	"sync/atomic"

	"gonum.org/v1/gonum/dsp/fourier"
)

const (
	spectrumRingSize = 2048
	spectrumBins     = 32
	fftLowBin        = 1
	fftHighBin       = 1024
)

// SpectrumAnalyzer reduces a rolling window of post-DSP samples to a
// 32-bin log-frequency magnitude spectrum normalised to [0,1].
type SpectrumAnalyzer struct {
	// Push-path state: single producer (the output callback), written
	// with plain stores under the single-writer discipline and read
	// with atomic loads so Update (a different goroutine) observes a
	// consistent write position.
	ring         [spectrumRingSize]float32
	writePos     atomic.Uint32
	sinceFFT     atomic.Uint32
	samplesPerFFT uint32
	ready        atomic.Bool

	// Consumer-side scratch, touched only from Update (the engine thread).
	window   [spectrumRingSize]float64
	fft      *fourier.FFT
	fftInput []float64
	raw      [spectrumBins]float32
	smoothed [spectrumBins]float32
}

// NewSpectrumAnalyzer builds an analyzer targeting targetFPS updates
// per second at the given sample rate.
func NewSpectrumAnalyzer(sampleRate, targetFPS int) *SpectrumAnalyzer {
	if targetFPS <= 0 {
		targetFPS = 60
	}
	s := &SpectrumAnalyzer{
		samplesPerFFT: uint32(sampleRate / targetFPS),
		fft:           fourier.NewFFT(spectrumRingSize),
		fftInput:      make([]float64, spectrumRingSize),
	}
	if s.samplesPerFFT == 0 {
		s.samplesPerFFT = 1
	}
	for i := range s.window {
		s.window[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(spectrumRingSize-1)))
	}
	return s
}

// Push feeds one stereo sample pair into the analyzer. Mixes to mono
// as (L+R)/2 and writes into the circular sample buffer. Must only be
// called from the single producer (the output callback); allocates
// nothing and never blocks.
func (s *SpectrumAnalyzer) Push(l, r float32) {
	mono := (l + r) * 0.5
	pos := s.writePos.Load()
	s.ring[pos%spectrumRingSize] = mono
	s.writePos.Store(pos + 1)

	since := s.sinceFFT.Add(1)
	if since >= s.samplesPerFFT {
		s.ready.Store(true)
	}
}

// Update computes a new spectrum frame if enough samples have
// accumulated since the last one, and reports whether it did. The
// engine thread calls it at the spectrum target frame rate. Only
// Update resets the since-last-FFT counter, so a call that arrives
// late never silently drops the samples accumulated in the meantime.
func (s *SpectrumAnalyzer) Update() bool {
	if !s.ready.CompareAndSwap(true, false) {
		return false
	}

	for {
		since := s.sinceFFT.Load()
		next := uint32(0)
		if since > s.samplesPerFFT {
			next = since - s.samplesPerFFT
		}
		if s.sinceFFT.CompareAndSwap(since, next) {
			break
		}
	}

	writePos := s.writePos.Load()
	for i := 0; i < spectrumRingSize; i++ {
		idx := (uint64(writePos) + uint64(i)) % spectrumRingSize
		s.fftInput[i] = float64(s.ring[idx]) * s.window[i]
	}

	coeffs := s.fft.Coefficients(nil, s.fftInput)

	lnLow := math.Log(fftLowBin)
	lnHigh := math.Log(fftHighBin)
	delta := (lnHigh - lnLow) / spectrumBins

	const refMagnitude = spectrumRingSize / 4.0

	for i := 0; i < spectrumBins; i++ {
		lo := int(math.Round(math.Exp(lnLow + float64(i)*delta)))
		hi := int(math.Round(math.Exp(lnLow + float64(i+1)*delta)))
		if hi <= lo {
			hi = lo + 1
		}
		if lo < fftLowBin {
			lo = fftLowBin
		}
		if hi > len(coeffs) {
			hi = len(coeffs)
		}

		var sum float64
		count := 0
		for bin := lo; bin < hi; bin++ {
			c := coeffs[bin]
			sum += math.Hypot(real(c), imag(c))
			count++
		}
		var mag float64
		if count > 0 {
			mag = sum / float64(count)
		}

		db := 20 * math.Log10(math.Max(mag/refMagnitude, 1e-10))
		norm := (db + 60) / 60
		if norm < 0 {
			norm = 0
		}
		if norm > 1 {
			norm = 1
		}
		rawVal := float32(norm)
		s.raw[i] = rawVal

		cur := s.smoothed[i]
		if rawVal > cur {
			s.smoothed[i] = cur + (rawVal-cur)*0.5
		} else {
			s.smoothed[i] = 0.7*cur + 0.3*rawVal
		}
	}

	return true
}

// GetSpectrum returns the smoothed 32-bin magnitude spectrum.
func (s *SpectrumAnalyzer) GetSpectrum() [spectrumBins]float32 {
	return s.smoothed
}

// GetRawSpectrum returns the unsmoothed spectrum, for tests.
func (s *SpectrumAnalyzer) GetRawSpectrum() [spectrumBins]float32 {
	return s.raw
}

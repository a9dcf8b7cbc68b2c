package gecko

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feedSine(s *SpectrumAnalyzer, freqHz float64, sampleRate, n int) {
	for i := 0; i < n; i++ {
		v := float32(0.8 * math.Sin(2*math.Pi*freqHz*float64(i)/float64(sampleRate)))
		s.Push(v, v)
	}
}

func TestSpectrumUpdateRequiresEnoughSamples(t *testing.T) {
	s := NewSpectrumAnalyzer(48000, 60)
	feedSine(s, 1000, 48000, int(s.samplesPerFFT)-1)
	assert.False(t, s.Update())
}

func TestSpectrumUpdateFiresOnceEnoughAccumulated(t *testing.T) {
	s := NewSpectrumAnalyzer(48000, 60)
	feedSine(s, 1000, 48000, spectrumRingSize)
	require.True(t, s.Update())
	assert.False(t, s.Update(), "a second call before new samples arrive should not fire")
}

func TestSpectrumBinsAreNormalised(t *testing.T) {
	s := NewSpectrumAnalyzer(48000, 60)
	feedSine(s, 2000, 48000, spectrumRingSize*2)
	require.True(t, s.Update())
	spec := s.GetSpectrum()
	for _, v := range spec {
		assert.GreaterOrEqual(t, v, float32(0))
		assert.LessOrEqual(t, v, float32(1))
	}
}

func TestSpectrumSilenceIsNearZero(t *testing.T) {
	s := NewSpectrumAnalyzer(48000, 60)
	for i := 0; i < spectrumRingSize*2; i++ {
		s.Push(0, 0)
	}
	require.True(t, s.Update())
	raw := s.GetRawSpectrum()
	for _, v := range raw {
		assert.LessOrEqual(t, v, float32(0.05))
	}
}

func TestSpectrumToneShowsPeakNearItsBin(t *testing.T) {
	s := NewSpectrumAnalyzer(48000, 60)
	feedSine(s, 4000, 48000, spectrumRingSize*2)
	require.True(t, s.Update())
	raw := s.GetRawSpectrum()

	maxIdx := 0
	for i, v := range raw {
		if v > raw[maxIdx] {
			maxIdx = i
		}
	}
	assert.Greater(t, maxIdx, spectrumBins/4)
}

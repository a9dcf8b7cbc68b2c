package gecko

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEqualizerFlatIsPassThrough(t *testing.T) {
	eq := NewEqualizer(48000)
	in := []float32{0.5, -0.25, 0.1, 0.9, -0.8, 0.3}
	buf := append([]float32(nil), in...)

	require.NoError(t, eq.ProcessInterleaved(buf))

	for i := range in {
		assert.InDelta(t, in[i], buf[i], 1e-3, "flat EQ should not materially alter sample %d", i)
	}
}

func TestEqualizerSetBandGainClamps(t *testing.T) {
	eq := NewEqualizer(48000)

	require.NoError(t, eq.SetBandGain(0, 100))
	gain, err := eq.BandGain(0)
	require.NoError(t, err)
	assert.Equal(t, float32(24), gain)

	require.NoError(t, eq.SetBandGain(0, -100))
	gain, err = eq.BandGain(0)
	require.NoError(t, err)
	assert.Equal(t, float32(-24), gain)
}

func TestEqualizerSetBandGainInvalidIndex(t *testing.T) {
	eq := NewEqualizer(48000)
	assert.ErrorIs(t, eq.SetBandGain(-1, 0), ErrInvalidBand)
	assert.ErrorIs(t, eq.SetBandGain(NumBands, 0), ErrInvalidBand)
	_, err := eq.BandGain(NumBands)
	assert.ErrorIs(t, err, ErrInvalidBand)
}

func TestEqualizerBypassPassesThroughUnchanged(t *testing.T) {
	eq := NewEqualizer(48000)
	require.NoError(t, eq.SetBandGain(5, 18))
	eq.SetBypass(true)

	in := []float32{0.2, -0.4, 0.6, -0.1}
	buf := append([]float32(nil), in...)
	require.NoError(t, eq.ProcessInterleaved(buf))
	assert.Equal(t, in, buf)
}

func TestEqualizerProcessInterleavedRejectsOddLength(t *testing.T) {
	eq := NewEqualizer(48000)
	buf := []float32{0.1, 0.2, 0.3}
	assert.ErrorIs(t, eq.ProcessInterleaved(buf), ErrInvalidBufferLen)
}

func TestEqualizerBoostedBandIncreasesEnergy(t *testing.T) {
	eq := NewEqualizer(48000)
	require.NoError(t, eq.SetBandGain(5, 12))

	n := 512
	buf := make([]float32, n*2)
	centre := BandCentresHz[5]
	for i := 0; i < n; i++ {
		s := float32(0.2 * math.Sin(2*math.Pi*centre*float64(i)/48000))
		buf[2*i] = s
		buf[2*i+1] = s
	}
	var inEnergy float64
	for _, v := range buf {
		inEnergy += float64(v) * float64(v)
	}

	require.NoError(t, eq.ProcessInterleaved(buf))

	var outEnergy float64
	for _, v := range buf {
		outEnergy += float64(v) * float64(v)
	}
	assert.Greater(t, outEnergy, inEnergy)
}

func TestEqualizerResetClearsDelayLines(t *testing.T) {
	eq := NewEqualizer(48000)
	require.NoError(t, eq.SetBandGain(3, 10))
	buf := []float32{0.9, 0.9, 0.9, 0.9}
	require.NoError(t, eq.ProcessInterleaved(buf))

	eq.Reset()
	for i := range eq.left {
		assert.Equal(t, float32(0), eq.left[i].z1)
		assert.Equal(t, float32(0), eq.left[i].z2)
		assert.Equal(t, float32(0), eq.right[i].z1)
		assert.Equal(t, float32(0), eq.right[i].z2)
	}
}

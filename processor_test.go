package gecko

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppProcessorAppliesVolume(t *testing.T) {
	state := NewMasterState(48000, 60)
	key := AppKey("app")
	state.SetAppVolume(key, 0.5)

	p := NewAppProcessor(key, 48000, 4096, state)
	buf := []float32{0.4, 0.4, -0.2, -0.2}
	require.NoError(t, p.OnCapture(buf))

	out := make([]float32, 4)
	n := p.ReadInto(out)
	require.Equal(t, 4, n)
	for _, v := range out {
		assert.InDelta(t, 0.2, absf32(v), 1e-3)
	}
}

func TestAppProcessorBypassSkipsEQButAppliesVolume(t *testing.T) {
	state := NewMasterState(48000, 60)
	key := AppKey("app")
	vol := float32(0.1)
	state.SetAppVolume(key, vol)
	state.SetAppBypass(key, true)
	require.NoError(t, state.SetAppBandGain(key, 0, 20))

	p := NewAppProcessor(key, 48000, 4096, state)
	in := []float32{0.3, -0.3}
	// OnCapture works in place, so keep an untouched copy for the
	// expectation: the +20dB EQ is skipped, the 0.1 volume is not.
	want := []float32{in[0] * vol, in[1] * vol}
	require.NoError(t, p.OnCapture(append([]float32(nil), in...)))

	out := make([]float32, 2)
	p.ReadInto(out)
	assert.Equal(t, want, out)
}

func TestAppProcessorRefreshesEqOnVersionChange(t *testing.T) {
	state := NewMasterState(48000, 60)
	key := AppKey("app")
	p := NewAppProcessor(key, 48000, 4096, state)

	v0 := p.localEqVersion
	require.NoError(t, state.SetAppBandGain(key, 0, 12))

	buf := []float32{0.1, 0.1}
	require.NoError(t, p.OnCapture(buf))
	assert.NotEqual(t, v0, p.localEqVersion)
}

func TestAppProcessorOverflowReportsError(t *testing.T) {
	state := NewMasterState(48000, 60)
	p := NewAppProcessor("app", 48000, 4, state) // tiny ring, 3 usable slots

	err := p.OnCapture(make([]float32, 10))
	assert.ErrorIs(t, err, ErrRingOverflow)
}

func absf32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

package gecko

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMixerSumsProcessors(t *testing.T) {
	state := NewMasterState(48000, 60)
	state.SetSoftClipEnabled(false)
	m := NewMixer(48000, state)

	p1 := NewAppProcessor("a", 48000, 4096, state)
	p2 := NewAppProcessor("b", 48000, 4096, state)
	require.NoError(t, p1.OnCapture([]float32{0.2, 0.2}))
	require.NoError(t, p2.OnCapture([]float32{0.1, 0.1}))

	out := make([]float32, 2)
	m.Process([]*AppProcessor{p1, p2}, out)
	assert.InDelta(t, 0.3, out[0], 1e-3)
	assert.InDelta(t, 0.3, out[1], 1e-3)
}

func TestMixerBypassAllSkipsMasterEQ(t *testing.T) {
	state := NewMasterState(48000, 60)
	require.NoError(t, state.SetMasterBandGain(0, 24))
	state.SetBypassAll(true)
	m := NewMixer(48000, state)

	// Soft clip stays enabled (the spec default) and the sample is loud
	// enough to cross the clip threshold if the clipper ran -- proving
	// bypass skips the clipper too, not just the master EQ.
	p := NewAppProcessor("a", 48000, 4096, state)
	require.NoError(t, p.OnCapture([]float32{0.95, 0.95}))

	out := make([]float32, 2)
	m.Process([]*AppProcessor{p}, out)
	assert.InDelta(t, 0.95, out[0], 1e-3)
	assert.InDelta(t, 0.95, out[1], 1e-3)

	peakL, peakR := state.Peaks()
	assert.Zero(t, peakL)
	assert.Zero(t, peakR)
}

func TestMixerSoftClipContainsOutput(t *testing.T) {
	state := NewMasterState(48000, 60)
	state.SetMasterVolume(2)
	m := NewMixer(48000, state)

	p := NewAppProcessor("a", 48000, 4096, state)
	require.NoError(t, p.OnCapture([]float32{0.9, 0.9}))

	out := make([]float32, 2)
	m.Process([]*AppProcessor{p}, out)
	assert.LessOrEqual(t, out[0], float32(1.0))
	assert.GreaterOrEqual(t, out[0], float32(-1.0))
}

func TestMixerRecordsUnderrunOnShortRead(t *testing.T) {
	state := NewMasterState(48000, 60)
	m := NewMixer(48000, state)
	p := NewAppProcessor("a", 48000, 4096, state)
	// no data written: read will come up short

	out := make([]float32, 4)
	m.Process([]*AppProcessor{p}, out)

	underruns, _ := state.Counters()
	assert.Equal(t, uint64(1), underruns)
}

func TestMixerUpdatesPeaks(t *testing.T) {
	state := NewMasterState(48000, 60)
	state.SetSoftClipEnabled(false)
	m := NewMixer(48000, state)
	p := NewAppProcessor("a", 48000, 4096, state)
	require.NoError(t, p.OnCapture([]float32{0.5, -0.6}))

	out := make([]float32, 2)
	m.Process([]*AppProcessor{p}, out)

	l, r := state.Peaks()
	assert.Greater(t, l, float32(0))
	assert.Greater(t, r, float32(0))
}

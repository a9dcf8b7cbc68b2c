// mixer.go - the master mix stage: sums every captured app's processed
// ring output, applies master EQ, master volume and soft-clip, and
// feeds the spectrum analyzer and peak meters (spec.md §4.5).
//
// Mixer.Process runs entirely on the output callback's thread. It
// never allocates once its scratch buffers are sized, never locks, and
// the only cross-thread reads it performs are atomic loads off
// MasterState and each AppProcessor's ring.
//
// Grounded in audio_chip.go's mixdown loop (accumulate N voices into a
// scratch buffer, then run the master chain once) adapted from a fixed
// voice array to a caller-supplied slice of live AppProcessors.
package gecko

import "math"

// Mixer owns the master-stage DSP chain: EQ, soft clip, and the
// scratch buffers used to sum processors without allocating per
// callback.
type Mixer struct {
	state   *MasterState
	masterEq *Equalizer
	clipper *SoftClipper

	localMasterEqVersion uint32

	accum  []float32 // mix accumulator, len == callback buffer length
	perApp []float32 // scratch for one processor's drained samples
}

// NewMixer builds a mixer bound to state, with a flat master EQ and a
// soft clipper at the spec default threshold.
func NewMixer(sampleRate int, state *MasterState) *Mixer {
	return &Mixer{
		state:    state,
		masterEq: NewEqualizer(sampleRate),
		clipper:  NewSoftClipper(),
	}
}

// ensureScratch grows the scratch buffers to n samples if needed. Only
// ever grows (never shrinks), so a steady-state callback buffer length
// never triggers an allocation after warm-up.
func (m *Mixer) ensureScratch(n int) {
	if cap(m.accum) < n {
		m.accum = make([]float32, n)
	}
	m.accum = m.accum[:n]
	if cap(m.perApp) < n {
		m.perApp = make([]float32, n)
	}
	m.perApp = m.perApp[:n]
}

// Process mixes every processor in procs into out (an interleaved
// stereo buffer), runs the master chain, and reports the post-clip
// peak levels it measured. procs is a snapshot the caller (the engine)
// takes under its own discipline; Process itself never touches the
// processor set's membership.
func (m *Mixer) Process(procs []*AppProcessor, out []float32) {
	n := len(out)
	m.ensureScratch(n)

	for i := range m.accum {
		m.accum[i] = 0
	}

	for _, p := range procs {
		for i := range m.perApp {
			m.perApp[i] = 0
		}
		read := p.ReadInto(m.perApp)
		if read < n {
			m.state.RecordUnderrun()
		}
		for i := range m.accum {
			m.accum[i] += m.perApp[i]
		}
	}

	copy(out, m.accum)

	// BypassAll skips the entire post-mix chain -- master EQ, master
	// volume, soft-clip, peak metering and the spectrum feed -- leaving
	// the raw mixed-down signal untouched, exactly as captured.
	if m.state.BypassAll() {
		m.state.SetPeaks(0, 0)
		return
	}

	if v := m.state.MasterEqVersion(); v != m.localMasterEqVersion {
		for i := 0; i < NumBands; i++ {
			_ = m.masterEq.SetBandGain(i, m.state.MasterBandGain(i))
		}
		m.localMasterEqVersion = v
	}
	_ = m.masterEq.ProcessInterleaved(out)

	vol := m.state.MasterVolume()
	for i := range out {
		out[i] *= vol
	}

	m.clipper.SetEnabled(m.state.SoftClipEnabled())
	m.clipper.SetThresholdDB(m.state.SoftClipThresholdDB())
	m.clipper.ProcessInterleaved(out)

	var peakL, peakR float32
	for i := 0; i+1 < n; i += 2 {
		l := float32(math.Abs(float64(out[i])))
		r := float32(math.Abs(float64(out[i+1])))
		if l > peakL {
			peakL = l
		}
		if r > peakR {
			peakR = r
		}
		m.state.Spectrum().Push(out[i], out[i+1])
	}
	m.state.SetPeaks(peakL, peakR)
}

// processor.go - AppProcessor: per-application capture, EQ and volume
// stage (spec.md §4.4).
//
// One AppProcessor exists per currently-captured app. Its capture
// callback runs on that app's own capture thread and writes into a
// private RingBuffer; the mixer's audio thread drains that ring every
// output callback. The two sides never share anything but the ring
// and the appShared pointer cached at construction time, so a slow or
// stalled capture source can never block the mixer.
//
// Grounded in audio_chip.go's Channel (per-voice processing block read
// by the mixdown loop) adapted from a fixed array of hardware voices to
// a dynamic, version-counted map of per-app processors.
package gecko

import "math"

// AppProcessor owns one app's capture-to-ring pipeline: its own 10-band
// EQ, volume and bypass, and the ring buffer the mixer drains.
type AppProcessor struct {
	key   AppKey
	ring  *RingBuffer
	eq    *Equalizer
	shared *appShared // owned by MasterState; read-only from here on

	localEqVersion uint32 // audio-thread-only cache of shared.eqVersion
}

// NewAppProcessor builds a processor for key. state supplies (and
// persists) this app's shared volume/bypass/EQ-offset block; the
// processor applies the block's current values immediately so a
// re-captured app picks up exactly where it left off.
func NewAppProcessor(key AppKey, sampleRate, ringCapacity int, state *MasterState) *AppProcessor {
	p := &AppProcessor{
		key:    key,
		ring:   NewRingBuffer(ringCapacity),
		eq:     NewEqualizer(sampleRate),
		shared: state.SharedFor(key),
	}
	p.syncEq()
	return p
}

// syncEq re-reads the shared EQ gains into the local Equalizer and
// records the version it synced to. Called on construction and
// whenever the cached local version falls behind shared.eqVersion.
func (p *AppProcessor) syncEq() {
	for i := 0; i < NumBands; i++ {
		// SetBandGain only fails on an out-of-range index, which i
		// never is here.
		_ = p.eq.SetBandGain(i, p.shared.eqGains[i].Load())
	}
	p.localEqVersion = p.shared.eqVersion.Load()
}

// OnCapture is the capture callback: it is called by the capture
// backend with a fresh interleaved stereo buffer of this app's raw
// audio. It applies bypass, per-app EQ (refreshing from the shared
// block first if the version counter has moved) and volume, then
// writes the result into the ring. Must only ever be called from this
// app's single capture thread.
func (p *AppProcessor) OnCapture(buf []float32) error {
	if !p.shared.bypass.Load() {
		if v := p.shared.eqVersion.Load(); v != p.localEqVersion {
			p.syncEq()
		}

		if err := p.eq.ProcessInterleaved(buf); err != nil {
			return err
		}
	}

	// Volume applies whether or not this app is bypassed -- bypass only
	// skips the EQ stage (spec.md §4.4 step 2/3).
	vol := p.shared.volume.Load()
	for i := range buf {
		buf[i] *= vol
	}

	written := p.ring.Write(buf)
	if written < len(buf) {
		return ErrRingOverflow
	}
	return nil
}

// ReadInto drains up to len(dst) processed samples into dst, returning
// the number actually read. Any samples not supplied (dst[n:]) are left
// untouched by Read -- the mixer is responsible for treating them as
// silence. Must only ever be called from the mixer's single audio
// thread.
func (p *AppProcessor) ReadInto(dst []float32) int {
	return p.ring.Read(dst)
}

// Close tears the processor down: the capture source must already be
// stopped by the caller before Close runs, so no writer can race the
// ring reset.
func (p *AppProcessor) Close() {
	p.ring.Reset()
	p.eq.Reset()
}

// Key returns the app key this processor belongs to.
func (p *AppProcessor) Key() AppKey { return p.key }

// peakOf returns the largest absolute sample value in buf. The mix
// stage does its own peak metering in Mixer.Process and does not call
// it.
func peakOf(buf []float32) float32 {
	var peak float32
	for _, v := range buf {
		a := float32(math.Abs(float64(v)))
		if a > peak {
			peak = a
		}
	}
	return peak
}

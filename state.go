// state.go - MasterState: the single shared instance owned by an
// Engine and referenced by every thread that touches audio (spec.md
// §3, §9 Open Question 1). MasterState is the authoritative store for
// persisted per-app parameters; AppProcessor only ever keeps a
// version-counter-refreshed cache of it, never an independent copy.
//
// Grounded in audio_chip.go's SoundChip struct (cache-line-grouped hot
// atomics next to a cold RWMutex-guarded section) adapted from a
// single mutex covering everything to the spec's per-concern version
// counters so unrelated parameters never block on each other.
package gecko

import (
	"sync"
	"sync/atomic"
)

// AppKey is a stable, human-readable identifier for one audio source
// (its display name). Keys persist across a process restart of that
// app.
type AppKey string

// appShared is the per-app block of lock-free state shared between the
// control thread (which writes it in response to commands) and that
// app's AppProcessor on the audio thread (which only ever reads it,
// never locks). Created once, on first touch, and handed to the
// processor as a pointer it keeps for its whole lifetime -- even after
// the app is uncaptured and the processor torn down, the pointer stays
// valid so its persisted values survive a later re-capture.
type appShared struct {
	eqGains   [NumBands]atomicF32
	eqVersion atomic.Uint32
	volume    atomicF32
	bypass    atomic.Bool
}

func newAppShared() *appShared {
	s := &appShared{}
	s.volume = newAtomicF32(1.0)
	return s
}

// MasterState is the shared, single-instance control-plane state for
// one Engine. It is never a process-wide singleton: each Engine owns
// its own MasterState and passes it by reference to every thread that
// needs it (spec.md §9), so multiple engines can coexist in one
// process.
type MasterState struct {
	masterVolume     atomicF32
	bypassAll        atomic.Bool
	masterEqGains    [NumBands]atomicF32
	masterEqVersion  atomic.Uint32
	peakL            atomicF32
	peakR            atomicF32
	softClipEnabled  atomic.Bool
	softClipThreshDB atomicF32
	running          atomic.Bool

	mu           sync.RWMutex
	apps         map[AppKey]*appShared
	capturedApps map[AppKey]struct{}
	capturedAppsVer atomic.Uint32

	underrunCount uint64 // atomically incremented
	overflowCount uint64 // atomically incremented

	spectrum *SpectrumAnalyzer
}

// NewMasterState constructs a fresh MasterState: flat master EQ, unity
// master volume, soft clip enabled at the spec default threshold, and
// no persisted per-app parameters.
func NewMasterState(sampleRate, spectrumTargetFPS int) *MasterState {
	ms := &MasterState{
		apps:         make(map[AppKey]*appShared),
		capturedApps: make(map[AppKey]struct{}),
		spectrum:     NewSpectrumAnalyzer(sampleRate, spectrumTargetFPS),
	}
	ms.masterVolume = newAtomicF32(1.0)
	ms.softClipThreshDB.Store(-3)
	ms.softClipEnabled.Store(true)
	return ms
}

// --- master volume / bypass / soft clip -----------------------------

func (ms *MasterState) MasterVolume() float32 { return ms.masterVolume.Load() }

// SetMasterVolume stores a new master volume (clamped to [0,2]) and
// does NOT bump a version counter: the mixer reads it with a plain
// atomic load every buffer (spec.md §4.5 step 6), so no staleness
// window needs closing.
func (ms *MasterState) SetMasterVolume(vol float32) {
	ms.masterVolume.Store(clampF32(vol, 0, 2))
}

func (ms *MasterState) BypassAll() bool { return ms.bypassAll.Load() }
func (ms *MasterState) SetBypassAll(b bool) { ms.bypassAll.Store(b) }

func (ms *MasterState) SoftClipEnabled() bool { return ms.softClipEnabled.Load() }
func (ms *MasterState) SetSoftClipEnabled(b bool) { ms.softClipEnabled.Store(b) }

func (ms *MasterState) SoftClipThresholdDB() float32 { return ms.softClipThreshDB.Load() }
func (ms *MasterState) SetSoftClipThresholdDB(db float32) { ms.softClipThreshDB.Store(db) }

func (ms *MasterState) Running() bool { return ms.running.Load() }
func (ms *MasterState) SetRunning(b bool) { ms.running.Store(b) }

// --- master EQ (version-counted) ------------------------------------

// SetMasterBandGain clamps and stores the master EQ gain for a band,
// then bumps the master EQ version counter with a release Add(1).
func (ms *MasterState) SetMasterBandGain(band int, db float32) error {
	if band < 0 || band >= NumBands {
		return ErrInvalidBand
	}
	ms.masterEqGains[band].Store(clampGainDB(db))
	ms.masterEqVersion.Add(1)
	return nil
}

func (ms *MasterState) MasterBandGain(band int) float32 {
	return ms.masterEqGains[band].Load()
}

// MasterEqVersion is the counter the mixer's cached local version is
// compared against (acquire load).
func (ms *MasterState) MasterEqVersion() uint32 { return ms.masterEqVersion.Load() }

// --- peak metering ----------------------------------------------------

func (ms *MasterState) SetPeaks(l, r float32) {
	ms.peakL.Store(l)
	ms.peakR.Store(r)
}

func (ms *MasterState) Peaks() (float32, float32) {
	return ms.peakL.Load(), ms.peakR.Load()
}

// --- per-app shared state (control thread only; audio thread holds a
// pointer obtained via SharedFor and never touches the map or mutex
// again) -----------------------------------------------------------

// SharedFor returns (creating on first touch) the appShared block for
// key. Call this from the control thread only -- typically once, when
// an AppProcessor is constructed, so the processor can cache the
// returned pointer and read it lock-free from then on.
func (ms *MasterState) SharedFor(key AppKey) *appShared {
	ms.mu.RLock()
	s, ok := ms.apps[key]
	ms.mu.RUnlock()
	if ok {
		return s
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if s, ok := ms.apps[key]; ok {
		return s
	}
	s = newAppShared()
	ms.apps[key] = s
	return s
}

// SetAppBandGain persists one band's gain offset for an app and bumps
// that app's EQ version counter. Safe to call whether or not the app
// is currently captured: the value is picked up the next time a
// processor for this key reads its version counter.
func (ms *MasterState) SetAppBandGain(key AppKey, band int, db float32) error {
	if band < 0 || band >= NumBands {
		return ErrInvalidBand
	}
	s := ms.SharedFor(key)
	s.eqGains[band].Store(clampGainDB(db))
	s.eqVersion.Add(1)
	return nil
}

// AppEqGains returns the persisted 10-band gains for an app.
func (ms *MasterState) AppEqGains(key AppKey) [NumBands]float32 {
	s := ms.SharedFor(key)
	var out [NumBands]float32
	for i := range out {
		out[i] = s.eqGains[i].Load()
	}
	return out
}

func (ms *MasterState) SetAppVolume(key AppKey, vol float32) {
	ms.SharedFor(key).volume.Store(clampF32(vol, 0, 2))
}

func (ms *MasterState) AppVolume(key AppKey) float32 {
	return ms.SharedFor(key).volume.Load()
}

func (ms *MasterState) SetAppBypass(key AppKey, bypass bool) {
	ms.SharedFor(key).bypass.Store(bypass)
}

func (ms *MasterState) AppBypass(key AppKey) bool {
	return ms.SharedFor(key).bypass.Load()
}

// --- captured-apps set (version-counted) -----------------------------

// AddCapturedApp inserts key into the captured-apps set (no-op if
// already present) and bumps its version counter on any actual change.
func (ms *MasterState) AddCapturedApp(key AppKey) (inserted bool) {
	ms.mu.Lock()
	if _, ok := ms.capturedApps[key]; ok {
		ms.mu.Unlock()
		return false
	}
	ms.capturedApps[key] = struct{}{}
	ms.mu.Unlock()
	ms.capturedAppsVer.Add(1)
	return true
}

// RemoveCapturedApp removes key from the captured-apps set and bumps
// its version counter on any actual change. Persisted per-app EQ/
// volume/bypass survive removal (spec.md S5).
func (ms *MasterState) RemoveCapturedApp(key AppKey) (removed bool) {
	ms.mu.Lock()
	if _, ok := ms.capturedApps[key]; !ok {
		ms.mu.Unlock()
		return false
	}
	delete(ms.capturedApps, key)
	ms.mu.Unlock()
	ms.capturedAppsVer.Add(1)
	return true
}

// CapturedApps returns a snapshot of the currently captured app keys.
func (ms *MasterState) CapturedApps() []AppKey {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	keys := make([]AppKey, 0, len(ms.capturedApps))
	for k := range ms.capturedApps {
		keys = append(keys, k)
	}
	return keys
}

func (ms *MasterState) CapturedAppsVersion() uint32 { return ms.capturedAppsVer.Load() }

// --- rate-limited error counters --------------------------------------

func (ms *MasterState) RecordUnderrun() { atomic.AddUint64(&ms.underrunCount, 1) }
func (ms *MasterState) RecordOverflow() { atomic.AddUint64(&ms.overflowCount, 1) }

func (ms *MasterState) Counters() (underruns, overflows uint64) {
	return atomic.LoadUint64(&ms.underrunCount), atomic.LoadUint64(&ms.overflowCount)
}

// Spectrum returns the shared spectrum analyzer fed by the mixer.
func (ms *MasterState) Spectrum() *SpectrumAnalyzer { return ms.spectrum }

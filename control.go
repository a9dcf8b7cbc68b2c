// control.go - UI<->engine command/event sum types and the lock-free
// version-counter protocol that carries live parameter changes onto
// the audio thread.
//
// Grounded in the teacher's runtime_ipc.go (one dispatcher consuming a
// small tagged-request sum type) for the shape of Command/Event, and in
// audio_backend_oto.go's atomic.Pointer hot-path load for the
// release-store/acquire-load discipline: the control thread bumps a
// counter with a release Add(1) after storing new parameter values;
// the audio thread does an acquire Load at the top of every buffer and
// re-reads the parameters only when the counter has moved (spec.md
// §4.3).
package gecko

// CommandKind tags which variant a Command carries.
type CommandKind int

const (
	CmdStart CommandKind = iota
	CmdStop
	CmdSetBandGain
	CmdSetStreamBandGain
	CmdSetStreamVolume
	CmdSetMasterVolume
	CmdSetBypass
	CmdSetAppBypass
	CmdSetSoftClipEnabled
	CmdSetSoftClipThresholdDB
	CmdStartAppCapture
	CmdStopAppCapture
	CmdRequestState
	CmdShutdown
)

// Command is a single control-plane instruction sent from the UI/
// caller thread to the engine thread over a bounded channel (>=32
// slots, spec.md §4.3). Only the fields relevant to Kind are set.
type Command struct {
	Kind   CommandKind
	Key    AppKey
	Pid    int
	Band   int
	GainDB float32
	Vol    float32
	Bool   bool
}

// EventKind tags which variant an Event carries.
type EventKind int

const (
	EvtStarted EventKind = iota
	EvtStopped
	EvtLevelUpdate
	EvtSpectrumUpdate
	EvtStreamDiscovered
	EvtStreamRemoved
	EvtStateUpdate
	EvtBufferUnderrun
	EvtError
)

// Event is a single notification sent from the engine thread to the
// UI/caller thread over an unbounded channel. Only the fields relevant
// to Kind are set.
type Event struct {
	Kind     EventKind
	Key      AppKey
	PeakL    float32
	PeakR    float32
	Spectrum [spectrumBins]float32
	State    EngineStateSnapshot
	Message  string
}

// EngineStateSnapshot is the payload of a StateUpdate event / the
// response to RequestState.
type EngineStateSnapshot struct {
	Running        bool
	MasterVolume   float32
	BypassAll      bool
	SoftClipOn     bool
	CapturedApps   []AppKey
	UnderrunCount  uint64
	OverflowCount  uint64
	ProcessorCount int
}

// engine.go - Engine: the top-level orchestrator wiring MasterState,
// the Mixer, and the capture/output backends into one running audio
// graph, plus the public command/event API callers use to control it
// (spec.md §4.7, §6).
//
// One goroutine -- the engine thread -- owns every AppProcessor's
// lifecycle and every command dispatch; it is the only thread that
// ever calls capture.StartCapture/StopCapture or mutates the
// processor map. The output callback thread (oto's internal thread,
// or the synthetic backend's puller) only ever reads a snapshot slice
// published through an atomic.Pointer, so the two threads never
// share a lock.
//
// Grounded in runtime_ipc.go's accept-loop-plus-handler shape (one
// goroutine, one dispatch function per request) adapted from a Unix
// socket request loop to a Command-channel select loop, and in
// audio_backend_oto.go's atomic.Pointer publish/read pattern for the
// processor-set snapshot.
package gecko

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// Engine wires a MasterState, Mixer, CaptureBackend and OutputBackend
// into one running per-application mixing graph.
type Engine struct {
	id     string
	cfg    EngineConfig
	state  *MasterState
	mixer  *Mixer
	capture CaptureBackend
	output OutputBackend
	logger *log.Logger

	procs    map[AppKey]*AppProcessor // engine-thread owned, authoritative
	snapshot atomic.Pointer[[]*AppProcessor]

	cmdCh chan Command
	evtCh chan Event

	stopCh chan struct{}
	wg     sync.WaitGroup

	lastReportedUnderruns uint64
	lastReportedOverflows uint64
}

// bufferErrorReportPeriod is the cadence at which the engine thread
// checks the underrun/overflow counters and emits a BufferUnderrun
// event if either has advanced -- deliberately much slower than the
// level/spectrum ticker so a run of dropped buffers produces one event,
// not a flood (spec.md §4.3, §7).
const bufferErrorReportPeriod = time.Second

// NewEngine builds an Engine around the given backends. Capture and
// output backends are not opened/started until Start is called.
func NewEngine(cfg EngineConfig, capture CaptureBackend, output OutputBackend) *Engine {
	cfg = cfg.withDefaults()
	id := uuid.NewString()
	state := NewMasterState(cfg.SampleRate, cfg.SpectrumFPS)
	e := &Engine{
		id:      id,
		cfg:     cfg,
		state:   state,
		mixer:   NewMixer(cfg.SampleRate, state),
		capture: capture,
		output:  output,
		logger:  newLogger(id),
		procs:   make(map[AppKey]*AppProcessor),
		cmdCh:   make(chan Command, cfg.CommandQueueSize),
		evtCh:   make(chan Event, 256),
		stopCh:  make(chan struct{}),
	}
	empty := []*AppProcessor{}
	e.snapshot.Store(&empty)
	return e
}

// ReadSamples implements SampleSource: it is called by the output
// backend's own thread once per output buffer. It loads the current
// processor snapshot and hands it straight to the mixer; it never
// blocks and never touches e.procs or e.cmdCh.
func (e *Engine) ReadSamples(buf []float32) {
	procs := *e.snapshot.Load()
	e.mixer.Process(procs, buf)
}

// Start opens the output backend, begins playback, and spawns the
// engine thread. Start is not safe to call concurrently with itself.
func (e *Engine) Start() error {
	if err := e.output.Open(e.cfg.SampleRate, e); err != nil {
		return fmt.Errorf("gecko: opening output backend: %w", err)
	}
	if err := e.output.Start(); err != nil {
		return fmt.Errorf("gecko: starting output backend: %w", err)
	}
	e.state.SetRunning(true)
	e.wg.Add(1)
	go e.run()
	e.logger.Info("engine started", "sample_rate", e.cfg.SampleRate)
	return nil
}

// Shutdown stops playback, tears down every processor and capture
// stream, and terminates the engine thread. Shutdown blocks until the
// engine thread has exited. After Shutdown returns, the Engine must
// not be reused.
func (e *Engine) Shutdown() {
	select {
	case e.cmdCh <- Command{Kind: CmdShutdown}:
	case <-time.After(time.Second):
		e.logger.Warn("shutdown command dropped, forcing stop channel")
	}
	close(e.stopCh)
	e.wg.Wait()
	_ = e.output.Stop()
	_ = e.output.Close()
	e.state.SetRunning(false)
	e.logger.Info("engine shut down")
}

// run is the engine thread body: one select loop dispatching commands
// and driving the discovery/spectrum tickers, until stopCh closes.
func (e *Engine) run() {
	defer e.wg.Done()

	discovery := time.NewTicker(e.cfg.DiscoveryPeriod)
	defer discovery.Stop()

	eventPeriod := time.Second / time.Duration(maxInt(e.cfg.SpectrumFPS, 1))
	events := time.NewTicker(eventPeriod)
	defer events.Stop()

	errorReport := time.NewTicker(bufferErrorReportPeriod)
	defer errorReport.Stop()

	for {
		select {
		case <-e.stopCh:
			e.teardownAll()
			return
		case cmd := <-e.cmdCh:
			if e.handleCommand(cmd) {
				e.teardownAll()
				return
			}
		case <-discovery.C:
			e.runDiscovery()
		case <-events.C:
			e.emitPeriodicEvents()
		case <-errorReport.C:
			e.reportBufferErrors()
		}
	}
}

// reportBufferErrors emits a rate-limited BufferUnderrun event when the
// underrun or overflow counters have advanced since the last report.
func (e *Engine) reportBufferErrors() {
	underruns, overflows := e.state.Counters()
	if underruns == e.lastReportedUnderruns && overflows == e.lastReportedOverflows {
		return
	}
	e.lastReportedUnderruns = underruns
	e.lastReportedOverflows = overflows
	e.trySendEvent(Event{
		Kind: EvtBufferUnderrun,
		Message: fmt.Sprintf("underruns=%d overflows=%d", underruns, overflows),
	})
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// publishSnapshot copies the current processor map into a slice and
// atomically swaps it in for the output thread to read.
func (e *Engine) publishSnapshot() {
	procs := make([]*AppProcessor, 0, len(e.procs))
	for _, p := range e.procs {
		procs = append(procs, p)
	}
	e.snapshot.Store(&procs)
}

// runDiscovery polls the capture backend for currently-available
// streams and reconciles e.procs against it: new streams get a
// processor and a capture callback, vanished streams get torn down.
// Idempotent: calling it twice with the same discovered set changes
// nothing the second time.
func (e *Engine) runDiscovery() {
	discovered, err := e.capture.DiscoverStreams()
	if err != nil {
		e.emitError(fmt.Errorf("discovery: %w", err))
		return
	}

	seen := make(map[AppKey]struct{}, len(discovered))
	for _, key := range discovered {
		seen[key] = struct{}{}
		if _, ok := e.procs[key]; ok {
			continue
		}
		e.startCapture(key)
	}

	for key := range e.procs {
		if _, ok := seen[key]; !ok {
			e.stopCapture(key)
		}
	}
}

func (e *Engine) startCapture(key AppKey) {
	proc := NewAppProcessor(key, e.cfg.SampleRate, e.cfg.RingCapacity, e.state)
	onCapture := func(buf []float32) {
		if err := proc.OnCapture(buf); err != nil {
			e.state.RecordOverflow()
		}
	}
	if err := e.capture.StartCapture(key, e.cfg.SampleRate, onCapture); err != nil {
		e.emitError(fmt.Errorf("starting capture for %s: %w", key, err))
		return
	}
	e.procs[key] = proc
	e.state.AddCapturedApp(key)
	e.publishSnapshot()
	e.evtCh <- Event{Kind: EvtStreamDiscovered, Key: key}
}

// stopCapture order matters: the capture source must stop delivering
// callbacks before the ring it writes into is reset, so Close never
// races a concurrent Write.
func (e *Engine) stopCapture(key AppKey) {
	if err := e.capture.StopCapture(key); err != nil {
		e.emitError(fmt.Errorf("stopping capture for %s: %w", key, err))
	}
	if proc, ok := e.procs[key]; ok {
		proc.Close()
		delete(e.procs, key)
	}
	e.state.RemoveCapturedApp(key)
	e.publishSnapshot()
	e.evtCh <- Event{Kind: EvtStreamRemoved, Key: key}
}

// teardownAll stops every live capture stream in an arbitrary order;
// called once, on shutdown.
func (e *Engine) teardownAll() {
	for key := range e.procs {
		e.stopCapture(key)
	}
}

func (e *Engine) emitPeriodicEvents() {
	l, r := e.state.Peaks()
	e.trySendEvent(Event{Kind: EvtLevelUpdate, PeakL: l, PeakR: r})

	if e.state.Spectrum().Update() {
		e.trySendEvent(Event{Kind: EvtSpectrumUpdate, Spectrum: e.state.Spectrum().GetSpectrum()})
	}
}

func (e *Engine) emitError(err error) {
	e.logger.Error("engine error", "err", err)
	e.trySendEvent(Event{Kind: EvtError, Message: err.Error()})
}

// trySendEvent drops the event rather than blocking the engine thread
// if a slow consumer has let the event channel fill up.
func (e *Engine) trySendEvent(evt Event) {
	select {
	case e.evtCh <- evt:
	default:
		e.logger.Warn("event dropped, consumer too slow", "kind", evt.Kind)
	}
}

// handleCommand applies one Command and reports whether the engine
// thread should exit (true only for CmdShutdown).
func (e *Engine) handleCommand(cmd Command) bool {
	switch cmd.Kind {
	case CmdSetBandGain:
		if err := e.state.SetMasterBandGain(cmd.Band, cmd.GainDB); err != nil {
			e.emitError(err)
		}
	case CmdSetStreamBandGain:
		if err := e.state.SetAppBandGain(cmd.Key, cmd.Band, cmd.GainDB); err != nil {
			e.emitError(err)
		}
	case CmdSetStreamVolume:
		e.state.SetAppVolume(cmd.Key, cmd.Vol)
	case CmdSetMasterVolume:
		e.state.SetMasterVolume(cmd.Vol)
	case CmdSetBypass:
		e.state.SetBypassAll(cmd.Bool)
	case CmdSetAppBypass:
		e.state.SetAppBypass(cmd.Key, cmd.Bool)
	case CmdSetSoftClipEnabled:
		e.state.SetSoftClipEnabled(cmd.Bool)
	case CmdSetSoftClipThresholdDB:
		e.state.SetSoftClipThresholdDB(cmd.GainDB)
	case CmdStartAppCapture:
		if _, ok := e.procs[cmd.Key]; ok {
			e.emitError(ErrDuplicateStream)
		} else {
			e.startCapture(cmd.Key)
		}
	case CmdStopAppCapture:
		if _, ok := e.procs[cmd.Key]; !ok {
			e.emitError(ErrUnknownStream)
		} else {
			e.stopCapture(cmd.Key)
		}
	case CmdRequestState:
		e.trySendEvent(Event{Kind: EvtStateUpdate, State: e.snapshotState()})
	case CmdShutdown:
		return true
	}
	return false
}

func (e *Engine) snapshotState() EngineStateSnapshot {
	underruns, overflows := e.state.Counters()
	return EngineStateSnapshot{
		Running:        e.state.Running(),
		MasterVolume:   e.state.MasterVolume(),
		BypassAll:      e.state.BypassAll(),
		SoftClipOn:     e.state.SoftClipEnabled(),
		CapturedApps:   e.state.CapturedApps(),
		UnderrunCount:  underruns,
		OverflowCount:  overflows,
		ProcessorCount: len(*e.snapshot.Load()),
	}
}

// --- public parameter API: each sends a Command over the bounded
// channel, returning ErrCommandQueueFull if the engine thread has
// fallen behind -----------------------------------------------------

func (e *Engine) send(cmd Command) error {
	select {
	case e.cmdCh <- cmd:
		return nil
	default:
		return ErrCommandQueueFull
	}
}

func (e *Engine) SetMasterBandGain(band int, db float32) error {
	return e.send(Command{Kind: CmdSetBandGain, Band: band, GainDB: db})
}

func (e *Engine) SetStreamBandGain(key AppKey, band int, db float32) error {
	return e.send(Command{Kind: CmdSetStreamBandGain, Key: key, Band: band, GainDB: db})
}

func (e *Engine) SetStreamVolume(key AppKey, vol float32) error {
	return e.send(Command{Kind: CmdSetStreamVolume, Key: key, Vol: vol})
}

func (e *Engine) SetMasterVolume(vol float32) error {
	return e.send(Command{Kind: CmdSetMasterVolume, Vol: vol})
}

func (e *Engine) SetBypassAll(bypass bool) error {
	return e.send(Command{Kind: CmdSetBypass, Bool: bypass})
}

func (e *Engine) SetStreamBypass(key AppKey, bypass bool) error {
	return e.send(Command{Kind: CmdSetAppBypass, Key: key, Bool: bypass})
}

func (e *Engine) SetSoftClipEnabled(enabled bool) error {
	return e.send(Command{Kind: CmdSetSoftClipEnabled, Bool: enabled})
}

func (e *Engine) SetSoftClipThresholdDB(db float32) error {
	return e.send(Command{Kind: CmdSetSoftClipThresholdDB, GainDB: db})
}

func (e *Engine) StartAppCapture(key AppKey) error {
	return e.send(Command{Kind: CmdStartAppCapture, Key: key})
}

func (e *Engine) StopAppCapture(key AppKey) error {
	return e.send(Command{Kind: CmdStopAppCapture, Key: key})
}

// PollEvent returns the next pending event without blocking.
func (e *Engine) PollEvent() (Event, bool) {
	select {
	case evt := <-e.evtCh:
		return evt, true
	default:
		return Event{}, false
	}
}

// WaitEvent blocks for the next event until ctx is cancelled.
func (e *Engine) WaitEvent(ctx context.Context) (Event, error) {
	select {
	case evt := <-e.evtCh:
		return evt, nil
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}

// Stats requests a fresh state snapshot and waits for it. Blocks until
// the engine thread processes the request or ctx is cancelled.
func (e *Engine) Stats(ctx context.Context) (EngineStateSnapshot, error) {
	if err := e.send(Command{Kind: CmdRequestState}); err != nil {
		return EngineStateSnapshot{}, err
	}
	for {
		evt, err := e.WaitEvent(ctx)
		if err != nil {
			return EngineStateSnapshot{}, err
		}
		if evt.Kind == EvtStateUpdate {
			return evt.State, nil
		}
	}
}

// ID returns this engine's correlation identifier, used to tag its log
// lines.
func (e *Engine) ID() string { return e.id }

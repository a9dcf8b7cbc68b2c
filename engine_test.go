package gecko

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCaptureBackend offers a fixed roster of app keys and records the
// callback on StartCapture; tests deliver buffers synchronously through
// push, for deterministic tests.
type fakeCaptureBackend struct {
	mu      sync.Mutex
	roster  []AppKey
	started map[AppKey]CaptureCallback
}

func newFakeCaptureBackend(roster ...AppKey) *fakeCaptureBackend {
	return &fakeCaptureBackend{roster: roster, started: make(map[AppKey]CaptureCallback)}
}

func (f *fakeCaptureBackend) DiscoverStreams() ([]AppKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]AppKey(nil), f.roster...), nil
}

func (f *fakeCaptureBackend) StartCapture(key AppKey, sampleRate int, cb CaptureCallback) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started[key] = cb
	return nil
}

func (f *fakeCaptureBackend) StopCapture(key AppKey) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.started, key)
	return nil
}

func (f *fakeCaptureBackend) push(key AppKey, buf []float32) {
	f.mu.Lock()
	cb := f.started[key]
	f.mu.Unlock()
	if cb != nil {
		cb(buf)
	}
}

// fakeOutputBackend records the bound source but never pulls on its
// own; tests call engine.ReadSamples directly.
type fakeOutputBackend struct {
	source SampleSource
}

func (f *fakeOutputBackend) Open(sampleRate int, source SampleSource) error {
	f.source = source
	return nil
}
func (f *fakeOutputBackend) Start() error { return nil }
func (f *fakeOutputBackend) Stop() error  { return nil }
func (f *fakeOutputBackend) Close() error { return nil }

func testConfig() EngineConfig {
	cfg := DefaultEngineConfig()
	cfg.DiscoveryPeriod = 10 * time.Millisecond
	cfg.SpectrumFPS = 200
	cfg.RingCapacity = 8192
	return cfg
}

func TestEngineDiscoversAndEmitsEvent(t *testing.T) {
	capture := newFakeCaptureBackend("app-1")
	output := &fakeOutputBackend{}
	engine := NewEngine(testConfig(), capture, output)

	require.NoError(t, engine.Start())
	defer engine.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	found := false
	for !found {
		evt, err := engine.WaitEvent(ctx)
		require.NoError(t, err)
		if evt.Kind == EvtStreamDiscovered && evt.Key == "app-1" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestEngineMixesCapturedAudio(t *testing.T) {
	capture := newFakeCaptureBackend("app-1")
	output := &fakeOutputBackend{}
	engine := NewEngine(testConfig(), capture, output)

	require.NoError(t, engine.Start())
	defer engine.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for {
		evt, err := engine.WaitEvent(ctx)
		require.NoError(t, err)
		if evt.Kind == EvtStreamDiscovered {
			break
		}
	}

	capture.push("app-1", []float32{0.3, 0.3})

	require.Eventually(t, func() bool {
		out := make([]float32, 2)
		engine.ReadSamples(out)
		return out[0] > 0.01
	}, time.Second, 5*time.Millisecond)
}

func TestEngineSetMasterVolumeAppliesToMix(t *testing.T) {
	capture := newFakeCaptureBackend("app-1")
	output := &fakeOutputBackend{}
	engine := NewEngine(testConfig(), capture, output)
	require.NoError(t, engine.Start())
	defer engine.Shutdown()

	require.NoError(t, engine.SetMasterVolume(0))
	require.NoError(t, engine.SetSoftClipEnabled(false))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for {
		evt, err := engine.WaitEvent(ctx)
		require.NoError(t, err)
		if evt.Kind == EvtStreamDiscovered {
			break
		}
	}
	capture.push("app-1", []float32{0.5, 0.5})

	require.Eventually(t, func() bool {
		out := make([]float32, 2)
		engine.ReadSamples(out)
		return out[0] == 0 && out[1] == 0
	}, time.Second, 5*time.Millisecond)
}

func TestEngineStatsReportsProcessorCount(t *testing.T) {
	capture := newFakeCaptureBackend("app-1", "app-2")
	output := &fakeOutputBackend{}
	engine := NewEngine(testConfig(), capture, output)
	require.NoError(t, engine.Start())
	defer engine.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.Eventually(t, func() bool {
		stats, err := engine.Stats(ctx)
		return err == nil && stats.ProcessorCount == 2
	}, time.Second, 20*time.Millisecond)
}

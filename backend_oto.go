// backend_oto.go - OutputBackend implementation on top of oto/v3.
//
// Grounded directly in audio_backend_oto.go's OtoPlayer: an
// atomic.Pointer swap for the hot-path source (no lock needed to read
// it from the Read callback oto invokes on its own internal thread)
// and a sync.Mutex reserved for setup/teardown only.
package gecko

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/ebitengine/oto/v3"
)

// OtoOutputBackend plays an interleaved stereo float32 SampleSource
// through the system's default output device via oto/v3.
type OtoOutputBackend struct {
	ctx    *oto.Context
	player *oto.Player
	source atomic.Pointer[SampleSource]

	sampleBuf []float32
	mu        sync.Mutex
	started   bool
}

// NewOtoOutputBackend returns a backend not yet bound to a device;
// call Open to create the oto context.
func NewOtoOutputBackend() *OtoOutputBackend {
	return &OtoOutputBackend{}
}

// Open creates the oto context at sampleRate, stereo float32LE, and
// binds source as the pull-model sample provider for the player's
// Read callback.
func (b *OtoOutputBackend) Open(sampleRate int, source SampleSource) error {
	if sampleRate <= 0 {
		return ErrInvalidSampleRate
	}
	opts := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
		BufferSize:   0, // oto default, tuned per platform
	}
	ctx, ready, err := oto.NewContext(opts)
	if err != nil {
		return ErrBackendOpenFailed
	}
	<-ready

	b.mu.Lock()
	defer b.mu.Unlock()
	b.ctx = ctx
	b.source.Store(&source)
	b.player = ctx.NewPlayer(b)
	b.sampleBuf = make([]float32, 4096)
	return nil
}

// Read implements io.Reader for oto's player: it is called on oto's
// own internal playback thread, never on Gecko's engine thread.
func (b *OtoOutputBackend) Read(p []byte) (int, error) {
	srcPtr := b.source.Load()
	if srcPtr == nil {
		for i := range p {
			p[i] = 0
		}
		return len(p), nil
	}
	src := *srcPtr

	numSamples := len(p) / 4
	if len(b.sampleBuf) < numSamples {
		b.sampleBuf = make([]float32, numSamples)
	}
	samples := b.sampleBuf[:numSamples]
	src.ReadSamples(samples)

	copy(p, (*[1 << 30]byte)(unsafe.Pointer(&samples[0]))[:len(p)])
	return len(p), nil
}

// Start begins playback. A no-op if already started; returns
// ErrBackendOpenFailed if Open was never called.
func (b *OtoOutputBackend) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.player == nil {
		return ErrBackendOpenFailed
	}
	if !b.started {
		b.player.Play()
		b.started = true
	}
	return nil
}

// Stop pauses playback; Start may be called again afterwards.
func (b *OtoOutputBackend) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started && b.player != nil {
		_ = b.player.Pause()
		b.started = false
	}
	return nil
}

// Close releases the player and device. The backend must not be reused
// after Close.
func (b *OtoOutputBackend) Close() error {
	_ = b.Stop()
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.player != nil {
		err := b.player.Close()
		b.player = nil
		return err
	}
	return nil
}

// Package synthbackend provides an in-process, no-hardware
// implementation of gecko's CaptureBackend and OutputBackend
// interfaces, standing in for real per-application capture and a real
// output device. It exists for geckoctl's demo mode: a handful of
// sine-wave "applications" play instead of real captured audio, and
// the mixed result is discarded (its peak is measured) instead of
// reaching a speaker.
//
// Grounded in audio_chip.go's software oscillator (phase accumulator,
// sine lookup) adapted from a hardware voice driven by register writes
// to a free-running goroutine driven by a time.Ticker.
package synthbackend

import (
	"math"
	"sync"
	"time"

	gecko "github.com/enscrypted/gecko"
)

// Voice describes one synthetic "application": a sine wave at FreqHz,
// identified by Key.
type Voice struct {
	Key    gecko.AppKey
	FreqHz float64
}

type activeVoice struct {
	voice  Voice
	phase  float64
	cb     gecko.CaptureCallback
	stop   chan struct{}
	done   chan struct{}
}

// CaptureBackend generates sine-wave audio for a fixed roster of
// voices in place of real per-application capture.
type CaptureBackend struct {
	mu         sync.Mutex
	sampleRate int
	bufFrames  int
	roster     []Voice
	active     map[gecko.AppKey]*activeVoice
}

// NewCaptureBackend builds a backend that will offer every voice in
// roster for capture, generating bufFrames stereo frames per callback.
func NewCaptureBackend(roster []Voice, bufFrames int) *CaptureBackend {
	if bufFrames <= 0 {
		bufFrames = 512
	}
	return &CaptureBackend{
		bufFrames: bufFrames,
		roster:    roster,
		active:    make(map[gecko.AppKey]*activeVoice),
	}
}

// DiscoverStreams returns the full roster every time: every synthetic
// voice is always "available".
func (b *CaptureBackend) DiscoverStreams() ([]gecko.AppKey, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	keys := make([]gecko.AppKey, len(b.roster))
	for i, v := range b.roster {
		keys[i] = v.Key
	}
	return keys, nil
}

// StartCapture spawns a goroutine that generates buf of sine-wave
// stereo audio and invokes cb at the buffer's real-time cadence, until
// StopCapture is called for the same key.
func (b *CaptureBackend) StartCapture(key gecko.AppKey, sampleRate int, cb gecko.CaptureCallback) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var voice Voice
	found := false
	for _, v := range b.roster {
		if v.Key == key {
			voice, found = v, true
			break
		}
	}
	if !found {
		return gecko.ErrUnknownStream
	}
	if _, ok := b.active[key]; ok {
		return gecko.ErrDuplicateStream
	}

	b.sampleRate = sampleRate
	av := &activeVoice{
		voice: voice,
		cb:    cb,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	b.active[key] = av
	go b.generate(av, sampleRate)
	return nil
}

func (b *CaptureBackend) generate(av *activeVoice, sampleRate int) {
	defer close(av.done)
	buf := make([]float32, b.bufFrames*2)
	period := time.Duration(b.bufFrames) * time.Second / time.Duration(sampleRate)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	step := 2 * math.Pi * av.voice.FreqHz / float64(sampleRate)
	for {
		select {
		case <-av.stop:
			return
		case <-ticker.C:
			for i := 0; i < b.bufFrames; i++ {
				s := float32(0.25 * math.Sin(av.phase))
				av.phase += step
				if av.phase > 2*math.Pi {
					av.phase -= 2 * math.Pi
				}
				buf[2*i] = s
				buf[2*i+1] = s
			}
			av.cb(buf)
		}
	}
}

// StopCapture signals the voice's generator goroutine to exit and
// waits for it to do so before returning, so the caller can safely
// tear down anything the callback touched.
func (b *CaptureBackend) StopCapture(key gecko.AppKey) error {
	b.mu.Lock()
	av, ok := b.active[key]
	if ok {
		delete(b.active, key)
	}
	b.mu.Unlock()
	if !ok {
		return gecko.ErrUnknownStream
	}
	close(av.stop)
	<-av.done
	return nil
}

// OutputBackend pulls from the bound SampleSource at a fixed cadence
// and discards the result, while tracking the peak level it observed
// -- a stand-in for a real speaker, used by geckoctl's demo mode to
// drive the mixer without a sound card.
type OutputBackend struct {
	sampleRate int
	bufFrames  int
	source     gecko.SampleSource

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}

	lastPeak float32
	peakMu   sync.Mutex
}

// NewOutputBackend builds an output backend pulling bufFrames stereo
// frames at a time.
func NewOutputBackend(bufFrames int) *OutputBackend {
	if bufFrames <= 0 {
		bufFrames = 512
	}
	return &OutputBackend{bufFrames: bufFrames}
}

func (o *OutputBackend) Open(sampleRate int, source gecko.SampleSource) error {
	if sampleRate <= 0 {
		return gecko.ErrInvalidSampleRate
	}
	o.sampleRate = sampleRate
	o.source = source
	return nil
}

func (o *OutputBackend) Start() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		return nil
	}
	o.running = true
	o.stop = make(chan struct{})
	o.done = make(chan struct{})
	go o.pull()
	return nil
}

func (o *OutputBackend) pull() {
	defer close(o.done)
	buf := make([]float32, o.bufFrames*2)
	period := time.Duration(o.bufFrames) * time.Second / time.Duration(o.sampleRate)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-o.stop:
			return
		case <-ticker.C:
			o.source.ReadSamples(buf)
			var peak float32
			for _, s := range buf {
				a := s
				if a < 0 {
					a = -a
				}
				if a > peak {
					peak = a
				}
			}
			o.peakMu.Lock()
			o.lastPeak = peak
			o.peakMu.Unlock()
		}
	}
}

func (o *OutputBackend) Stop() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.running {
		return nil
	}
	close(o.stop)
	<-o.done
	o.running = false
	return nil
}

func (o *OutputBackend) Close() error {
	return o.Stop()
}

// LastPeak reports the largest absolute sample value seen in the most
// recently pulled buffer.
func (o *OutputBackend) LastPeak() float32 {
	o.peakMu.Lock()
	defer o.peakMu.Unlock()
	return o.lastPeak
}

// backend.go - capture/output backend abstractions (spec.md §6).
//
// Gecko never talks to an OS audio API directly from the engine: it
// depends on these two small interfaces, exactly the seam
// audio_backend_oto.go draws between SoundChip (the DSP) and OtoPlayer
// (the OS-facing player). A platform capture backend (PulseAudio,
// WASAPI, CoreAudio...) is out of scope for this module; the output
// side has a real oto-backed OutputBackend (backend_oto.go). The
// synthetic backend used by cmd/geckoctl implements both interfaces
// in-process, and the engine tests use their own in-file fakes.
package gecko

// SampleSource is pulled from by an OutputBackend once per output
// buffer. ReadSamples must fill buf completely -- silence-pad the tail
// if fewer real samples are available -- and must never block.
type SampleSource interface {
	ReadSamples(buf []float32)
}

// OutputBackend drives the system's audio output device. Open must be
// called before Start; Close releases the device and may not be
// reopened.
type OutputBackend interface {
	// Open prepares the device at sampleRate and binds source as the
	// pull-model sample source for the output callback.
	Open(sampleRate int, source SampleSource) error
	Start() error
	Stop() error
	Close() error
}

// CaptureCallback receives one interleaved stereo buffer of raw audio
// captured from a single application. Implementations of
// CaptureBackend call it on that application's own capture thread.
type CaptureCallback func(buf []float32)

// CaptureBackend discovers capturable application audio streams and
// delivers their raw audio to a per-app callback. DiscoverStreams
// returns the AppKeys currently available to capture (spec.md §4.7
// polls this on its discovery tick); StartCapture/StopCapture attach
// or detach a callback for one of them.
type CaptureBackend interface {
	DiscoverStreams() ([]AppKey, error)
	StartCapture(key AppKey, sampleRate int, cb CaptureCallback) error
	StopCapture(key AppKey) error
}

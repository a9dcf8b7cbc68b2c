// errors.go - error sentinels for the gecko audio engine
package gecko

import "errors"

// Config-layer errors. These indicate a caller passed a parameter the
// engine cannot honour; all are recoverable by the caller.
var (
	ErrInvalidBand         = errors.New("gecko: band index out of range")
	ErrInvalidCoefficients = errors.New("gecko: unreachable biquad coefficients for given freq/rate")
	ErrInvalidSampleRate   = errors.New("gecko: sample rate must be positive")
	ErrInvalidBufferLen    = errors.New("gecko: interleaved buffer length must be even")
)

// Lifecycle / backend errors. Backend-open failure and engine-thread
// spawn failure are the only fatal errors (spec.md §7); everything else
// is recoverable.
var (
	ErrBackendOpenFailed = errors.New("gecko: backend open failed")
	ErrEngineNotRunning  = errors.New("gecko: engine is not running")
	ErrEngineShutdown    = errors.New("gecko: engine has been shut down")
	ErrUnknownStream     = errors.New("gecko: unknown app key")
	ErrDuplicateStream   = errors.New("gecko: app key already has a live processor")
)

// Channel-send errors. Returned synchronously from the parameter API
// when the bounded command channel is full.
var ErrCommandQueueFull = errors.New("gecko: command channel full")

// ErrRingOverflow is returned by AppProcessor.OnCapture when the
// mixer has fallen behind and the ring could not accept the full
// buffer; the newest samples are the ones dropped. Not fatal: capture
// continues on the next callback.
var ErrRingOverflow = errors.New("gecko: ring buffer overflow, samples dropped")

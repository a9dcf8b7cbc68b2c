// log.go - structured logging for off-audio-thread components
//
// Audio callbacks (processor.go's capture path, mixer.go's output
// callback) never call into this package: per spec.md §5, real-time
// code must not call into the logging framework above trace level, and
// in practice this engine never logs from a callback at all. Every
// call site below is reachable only from the engine thread or the UI
// thread.
package gecko

import (
	"os"

	"github.com/charmbracelet/log"
)

// newLogger builds a logger scoped to one Engine instance, tagged with
// its correlation id so log lines from concurrently-running engines
// (spec.md §9: "tests must be able to construct multiple engines in one
// process") can be told apart.
func newLogger(engineID string) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "gecko",
	})
	logger.SetLevel(log.InfoLevel)
	return logger.With("engine", engineID)
}

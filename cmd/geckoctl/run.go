package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	gecko "github.com/enscrypted/gecko"
	"github.com/enscrypted/gecko/cmd/geckoctl/synthbackend"
)

// newRunCommand builds the "run" subcommand: it starts an Engine
// against the synthetic capture/output backends (a handful of
// sine-wave "applications" mixed down and discarded) and logs
// stream-lifecycle and error events until interrupted or until
// --duration elapses. Level updates are logged at debug level, which
// the logger's default info level does not print.
func newRunCommand() *cobra.Command {
	var (
		configPath string
		voiceCount int
		duration   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a demo engine against synthetic per-application sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := gecko.DefaultEngineConfig()
			if configPath != "" {
				loaded, err := gecko.LoadEngineConfig(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}

			roster := make([]synthbackend.Voice, voiceCount)
			baseFreq := 220.0
			for i := range roster {
				roster[i] = synthbackend.Voice{
					Key:    gecko.AppKey(fmt.Sprintf("demo-app-%d", i+1)),
					FreqHz: baseFreq * float64(i+1),
				}
			}

			capture := synthbackend.NewCaptureBackend(roster, 512)
			output := synthbackend.NewOutputBackend(512)
			engine := gecko.NewEngine(cfg, capture, output)

			if err := engine.Start(); err != nil {
				return fmt.Errorf("starting engine: %w", err)
			}

			logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true, Prefix: "geckoctl"})

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			if duration > 0 {
				var durationCancel context.CancelFunc
				ctx, durationCancel = context.WithTimeout(ctx, duration)
				defer durationCancel()
			}

			go watchEvents(ctx, engine, logger)

			<-ctx.Done()
			logger.Info("shutting down")
			engine.Shutdown()
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to an engine config YAML file")
	cmd.Flags().IntVar(&voiceCount, "voices", 3, "number of synthetic sine-wave applications")
	cmd.Flags().DurationVar(&duration, "duration", 0, "stop automatically after this long (0 = run until interrupted)")

	return cmd
}

func watchEvents(ctx context.Context, engine *gecko.Engine, logger *log.Logger) {
	for {
		evt, err := engine.WaitEvent(ctx)
		if err != nil {
			return
		}
		switch evt.Kind {
		case gecko.EvtStreamDiscovered:
			logger.Info("stream discovered", "app", evt.Key)
		case gecko.EvtStreamRemoved:
			logger.Info("stream removed", "app", evt.Key)
		case gecko.EvtLevelUpdate:
			logger.Debug("levels", "peak_l", evt.PeakL, "peak_r", evt.PeakR)
		case gecko.EvtError:
			logger.Error("engine error", "message", evt.Message)
		}
	}
}

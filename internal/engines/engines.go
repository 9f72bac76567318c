package engines

import (
	"context"
	"log/slog"
	"time"

	"avatarstudio/internal/artifacts"
	"avatarstudio/internal/config"
	"avatarstudio/internal/logging"
	"avatarstudio/internal/stage"
)

const progressSteps = 10

// Options configure the reference executors.
type Options struct {
	Layout artifacts.Layout
	// TimeScale multiplies the modelled stage durations. Zero completes
	// every stage immediately.
	TimeScale float64
	// Backoff is the base wait between retry attempts.
	Backoff time.Duration
	Logger  *slog.Logger
}

// New builds the reference executor set from the application config.
func New(cfg *config.Config, logger *slog.Logger) stage.Executors {
	return NewWithOptions(Options{
		Layout:    artifacts.Layout{Root: cfg.Paths.ArtifactDir},
		TimeScale: cfg.Engines.TimeScale,
		Backoff:   250 * time.Millisecond,
		Logger:    logger,
	})
}

// NewWithOptions builds the reference executor set.
func NewWithOptions(opts Options) stage.Executors {
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	return stage.Executors{
		Synthesizer:   &Synthesizer{opts: opts, logger: logging.NewComponentLogger(opts.Logger, "tts")},
		Aligner:       &Aligner{opts: opts, logger: logging.NewComponentLogger(opts.Logger, "lipsync")},
		Renderer:      &Renderer{opts: opts, logger: logging.NewComponentLogger(opts.Logger, "renderer")},
		PostProcessor: &PostProcessor{opts: opts, logger: logging.NewComponentLogger(opts.Logger, "postprocess")},
	}
}

// simulate waits for the scaled duration in even steps, reporting progress
// after each one. It returns a cancellation or timeout error when ctx ends.
func simulate(ctx context.Context, scale float64, d time.Duration, progress stage.ProgressFunc) error {
	wait := time.Duration(float64(d) * scale)
	step := wait / progressSteps
	for i := 1; i <= progressSteps; i++ {
		if step > 0 {
			timer := time.NewTimer(step)
			select {
			case <-ctx.Done():
				timer.Stop()
				return stage.ContextError(ctx)
			case <-timer.C:
			}
		} else if ctx.Err() != nil {
			return stage.ContextError(ctx)
		}
		progress.Report(float64(i) / progressSteps)
	}
	return nil
}

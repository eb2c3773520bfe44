package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// FanOutOpts bounds TranscribeAll.
type FanOutOpts struct {
	// Concurrency caps in-flight requests. Zero or less means one per path.
	Concurrency int
	// RatePerMin caps request starts per minute. Zero or less disables pacing.
	RatePerMin int
	Logger     *slog.Logger
}

// TranscribeAll transcribes every path concurrently and returns one
// Transcript per path in input order. Every path is attempted; when any
// fail, the returned error joins all of their errors.
func TranscribeAll(ctx context.Context, t Transcriber, paths []string, opts FanOutOpts) ([]Transcript, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	limit := opts.Concurrency
	if limit <= 0 {
		limit = max(len(paths), 1)
	}

	var limiter *rate.Limiter
	if opts.RatePerMin > 0 {
		// tokens per second = RPM / 60
		limiter = rate.NewLimiter(rate.Limit(float64(opts.RatePerMin)/60.0), 1)
	}

	results := make([]Transcript, len(paths))
	errs := make([]error, len(paths))

	var g errgroup.Group
	g.SetLimit(limit)

	for i, p := range paths {
		results[i] = Transcript{Index: i, Path: p}
		g.Go(func() error {
			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					errs[i] = fmt.Errorf("segment %d: rate limiter: %w", i, err)
					results[i].Error = errs[i].Error()
					return nil
				}
			}

			text, err := t.Transcribe(ctx, p)
			if err != nil {
				errs[i] = fmt.Errorf("segment %d (%s): %w", i, filepath.Base(p), err)
				results[i].Error = errs[i].Error()
				logger.Warn("segment transcription failed",
					slog.Int("segment", i),
					slog.String("error", err.Error()),
				)
				return nil
			}
			results[i].Text = text
			logger.Debug("segment transcribed", slog.Int("segment", i), slog.Int("chars", len(text)))
			return nil
		})
	}
	_ = g.Wait()

	return results, errors.Join(errs...)
}

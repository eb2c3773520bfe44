package segment

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ojeelafriend/meeting-notes-ai/internal/audio"
	"github.com/ojeelafriend/meeting-notes-ai/internal/media"
)

// DirManager hands out the exclusive output directory of a job.
type DirManager interface {
	Ensure(ctx context.Context, jobID string) (string, error)
}

// Engine runs the probe, detect, snap and cut pipeline for one job at a time
// per call. Calls for different job ids may run concurrently.
type Engine struct {
	dirs     DirManager
	prober   media.Prober
	detector audio.Detector
	cutter   audio.Cutter

	validator  *validator.Validate
	checkTools func() error
	workers    int
	logger     *slog.Logger
	now        func() time.Time
}

// EngineOption is a function that configures an Engine.
type EngineOption func(*Engine)

// WithToolCheck sets the check run before any process is spawned.
// A failing check yields ErrToolsUnavailable.
func WithToolCheck(check func() error) EngineOption {
	return func(e *Engine) {
		e.checkTools = check
	}
}

// WithCutWorkers bounds concurrent cuts within one job.
func WithCutWorkers(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates a new Engine.
func NewEngine(dirs DirManager, prober media.Prober, detector audio.Detector, cutter audio.Cutter, opts ...EngineOption) *Engine {
	e := &Engine{
		dirs:      dirs,
		prober:    prober,
		detector:  detector,
		cutter:    cutter,
		validator: validator.New(),
		workers:   1,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Split segments req.InputPath into <root>/<jobId>/<prefix>_NNN.wav files,
// plus video copies when requested. Failures are reported in Result.Error;
// files written before a failure are left on disk.
func (e *Engine) Split(ctx context.Context, req Request) Result {
	req = req.withDefaults()
	if err := validate(e.validator, req); err != nil {
		return failure(err)
	}
	if e.checkTools != nil {
		if err := e.checkTools(); err != nil {
			e.logger.Error("media tools unavailable", slog.String("error", err.Error()))
			return failure(ErrToolsUnavailable)
		}
	}

	input, err := filepath.Abs(req.InputPath)
	if err != nil {
		return failure(fmt.Errorf("resolve input path: %w", err))
	}

	logger := e.logger.With(slog.String("job_id", req.JobID))
	start := time.Now()
	logger.Info("segmentation started",
		slog.String("input", input),
		slog.Float64("segment_seconds", req.SegmentSeconds),
	)

	res, err := e.split(ctx, logger, input, req)
	if err != nil {
		logger.Error("segmentation failed",
			slog.String("error", err.Error()),
			slog.Duration("elapsed", time.Since(start)),
		)
		return failure(err)
	}

	logger.Info("segmentation completed",
		slog.Int("segments", len(res.AudioPaths)),
		slog.String("output_dir", res.OutputDir),
		slog.Duration("elapsed", time.Since(start)),
	)
	return res
}

func (e *Engine) split(ctx context.Context, logger *slog.Logger, input string, req Request) (Result, error) {
	outDir, err := e.dirs.Ensure(ctx, req.JobID)
	if err != nil {
		return Result{}, err
	}

	duration, err := e.prober.Duration(ctx, input)
	if err != nil {
		return Result{}, err
	}

	silences, err := e.detector.Detect(ctx, input, audio.DetectOpts{
		NoiseThreshold: req.NoiseThreshold,
		MinSilenceSec:  req.MinSilenceSec,
	})
	if err != nil {
		return Result{}, err
	}

	boundaries := audio.SnapBoundaries(duration, silences, audio.SnapOpts{
		TargetSec: req.SegmentSeconds,
		WindowSec: req.SnapWindowSec,
		MinGapSec: req.MinGapSec,
		Prefer:    req.PreferBoundary,
	})
	plans := audio.BuildCutPlans(boundaries, duration, req.PaddingSec)

	logger.Debug("cut plans ready",
		slog.Float64("duration", duration),
		slog.Int("silences", len(silences)),
		slog.Int("plans", len(plans)),
	)

	cut, err := e.cutter.Cut(ctx, input, outDir, plans, audio.CutOpts{
		Prefix:       req.FilePrefix,
		EmitVideo:    req.EmitVideo,
		VideoPrecise: req.VideoPrecise,
		Workers:      e.workers,
	})
	if err != nil {
		return Result{}, err
	}

	manifest := Manifest{
		JobID:           req.JobID,
		InputPath:       input,
		DurationSeconds: duration,
		CreatedAt:       e.now().UTC(),
		Request:         req,
		Silences:        len(silences),
		Boundaries:      boundaries,
		Plans:           plans,
		Audio:           fileNames(cut.Audio),
		Video:           fileNames(cut.Video),
	}
	if err := WriteManifest(outDir, manifest); err != nil {
		// segments are already usable; the manifest is informational
		logger.Warn("failed to write manifest", slog.String("error", err.Error()))
	}

	return Result{
		AudioPaths: paths(cut.Audio),
		VideoPaths: paths(cut.Video),
		OutputDir:  outDir,
		Message:    fmt.Sprintf("Split OK: %d segment(s). Directory: %s", len(cut.Audio), outDir),
	}, nil
}

func paths(files []audio.SegmentFile) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out
}

// Package bootstrap provides dependency initialization for the segmentation service.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ojeelafriend/meeting-notes-ai/internal/audio"
	"github.com/ojeelafriend/meeting-notes-ai/internal/config"
	"github.com/ojeelafriend/meeting-notes-ai/internal/job"
	"github.com/ojeelafriend/meeting-notes-ai/internal/media"
	"github.com/ojeelafriend/meeting-notes-ai/internal/segment"
	"github.com/ojeelafriend/meeting-notes-ai/internal/storage"
	"github.com/ojeelafriend/meeting-notes-ai/internal/transcribe"
)

// Dependencies holds all initialized dependencies for the CLI and HTTP server.
type Dependencies struct {
	SegmentService *job.SegmentService
	Engine         *segment.Engine
	Dirs           *storage.JobDirs
	// Defaults carries the configured tuning values; callers copy it and fill
	// InputPath and JobID.
	Defaults segment.Request
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	if logger == nil {
		logger = slog.Default()
	}

	// Initialize job directories
	dirs, err := storage.NewJobDirs(cfg.UploadsRoot)
	if err != nil {
		return nil, fmt.Errorf("create job directories: %w", err)
	}

	// Initialize media tools
	runner := media.NewExecRunner(logger)
	prober := media.NewFFprobeProber(runner, cfg.FFprobePath)
	detector := audio.NewFFmpegDetector(runner, cfg.FFmpegPath)
	cutter := audio.NewFFmpegCutter(runner, cfg.FFmpegPath, logger)

	engine := segment.NewEngine(dirs, prober, detector, cutter,
		segment.WithToolCheck(func() error {
			_, err := media.LookupTools(cfg.FFmpegPath, cfg.FFprobePath)
			return err
		}),
		segment.WithCutWorkers(cfg.CutWorkers),
		segment.WithLogger(logger),
	)

	opts := []job.ServiceOption{
		job.WithFanOut(transcribe.FanOutOpts{
			Concurrency: cfg.TranscribeConcurrency,
			RatePerMin:  cfg.TranscribeRatePerMin,
			Logger:      logger,
		}),
	}

	// Initialize transcription client
	if cfg.TranscribeEnabled() {
		client, err := transcribe.NewClient(
			transcribe.WithAPIKey(cfg.TranscribeAPIKey),
			transcribe.WithBaseURL(cfg.TranscribeURL),
			transcribe.WithModel(cfg.TranscribeModel),
			transcribe.WithLanguage(cfg.TranscribeLanguage),
		)
		if err != nil {
			return nil, fmt.Errorf("create transcription client: %w", err)
		}
		opts = append(opts, job.WithTranscriber(client))
		logger.Info("transcription configured",
			slog.String("url", cfg.TranscribeURL),
			slog.String("model", cfg.TranscribeModel),
		)
	}

	// Initialize object storage
	publisher, err := initPublisher(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if publisher != nil {
		opts = append(opts, job.WithPublisher(publisher))
	}

	// Initialize job repository
	repo := job.NewMemoryRepository()

	svc := job.NewSegmentService(repo, engine, dirs, logger, opts...)

	logger.Debug("segment service initialized",
		slog.String("uploads_root", dirs.Root()),
		slog.Int("cut_workers", cfg.CutWorkers),
	)

	return &Dependencies{
		SegmentService: svc,
		Engine:         engine,
		Dirs:           dirs,
		Defaults:       DefaultRequest(cfg),
	}, nil
}

// DefaultRequest builds a request template from the configured defaults.
func DefaultRequest(cfg *config.Config) segment.Request {
	req := segment.NewRequest("", "", cfg.SegmentSeconds)
	req.FilePrefix = cfg.FilePrefix
	req.SnapWindowSec = cfg.SnapWindowSec
	req.MinGapSec = cfg.MinGapSec
	req.PaddingSec = cfg.PaddingSec
	req.PreferBoundary = audio.Prefer(cfg.PreferBoundary)
	req.NoiseThreshold = cfg.NoiseThreshold
	req.MinSilenceSec = cfg.MinSilenceSec
	return req
}

// initPublisher creates the object storage backend based on configuration.
// S3 wins when both S3 and MinIO are configured; neither yields nil.
func initPublisher(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Publisher, error) {
	if cfg.S3Enabled() {
		pub, err := storage.NewS3Publisher(ctx, storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		})
		if err != nil {
			return nil, fmt.Errorf("create S3 publisher: %w", err)
		}
		logger.Info("S3 publishing configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return pub, nil
	}

	if cfg.MinIOEnabled() {
		pub, err := storage.NewMinIOPublisher(storage.MinIOConfig{
			Endpoint:  cfg.MinIOEndpoint,
			Bucket:    cfg.MinIOBucket,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			UseSSL:    cfg.MinIOUseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("create MinIO publisher: %w", err)
		}

		bucketCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := pub.EnsureBucket(bucketCtx); err != nil {
			return nil, fmt.Errorf("prepare MinIO bucket: %w", err)
		}
		logger.Info("MinIO publishing configured",
			slog.String("endpoint", cfg.MinIOEndpoint),
			slog.String("bucket", cfg.MinIOBucket),
		)
		return pub, nil
	}

	logger.Info("object storage not configured, segments stay local",
		slog.String("uploads_root", cfg.UploadsRoot),
	)
	return nil, nil
}

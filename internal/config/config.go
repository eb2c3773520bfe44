// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrInvalidSegmentSeconds is returned when SEGMENT_SECONDS is not positive.
	ErrInvalidSegmentSeconds = errors.New("config: SEGMENT_SECONDS must be > 0")
	// ErrInvalidPreferBoundary is returned when PREFER_BOUNDARY is not end, start or both.
	ErrInvalidPreferBoundary = errors.New("config: PREFER_BOUNDARY must be one of end, start, both")
	// ErrInvalidCutWorkers is returned when CUT_WORKERS is not positive.
	ErrInvalidCutWorkers = errors.New("config: CUT_WORKERS must be > 0")
	// ErrInvalidTranscribeConcurrency is returned when TRANSCRIBE_CONCURRENCY is not positive.
	ErrInvalidTranscribeConcurrency = errors.New("config: TRANSCRIBE_CONCURRENCY must be > 0")
	// ErrNegativeTuning is returned when a snapping or silence setting is negative.
	ErrNegativeTuning = errors.New("config: snap window, min gap, padding and min silence must be >= 0")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port int `env:"PORT, default=8080" json:"port"`

	// Storage settings
	UploadsRoot string `env:"UPLOADS_ROOT, default=./uploads" json:"uploads_root"`

	// Tool binaries
	FFmpegPath  string `env:"FFMPEG_PATH, default=ffmpeg" json:"ffmpeg_path"`
	FFprobePath string `env:"FFPROBE_PATH, default=ffprobe" json:"ffprobe_path"`

	// Segmentation defaults
	SegmentSeconds float64 `env:"SEGMENT_SECONDS, default=60" json:"segment_seconds"`
	SnapWindowSec  float64 `env:"SNAP_WINDOW_SEC, default=2.0" json:"snap_window_sec"`
	MinGapSec      float64 `env:"MIN_GAP_SEC, default=5.0" json:"min_gap_sec"`
	PaddingSec     float64 `env:"PADDING_SEC, default=0.25" json:"padding_sec"`
	PreferBoundary string  `env:"PREFER_BOUNDARY, default=end" json:"prefer_boundary"`
	NoiseThreshold string  `env:"NOISE_THRESHOLD, default=-30dB" json:"noise_threshold"`
	MinSilenceSec  float64 `env:"MIN_SILENCE_SEC, default=0.35" json:"min_silence_sec"`
	FilePrefix     string  `env:"FILE_PREFIX, default=part" json:"file_prefix"`
	CutWorkers     int     `env:"CUT_WORKERS, default=1" json:"cut_workers"`

	// Optional transcription settings (OpenAI-compatible endpoint)
	TranscribeURL         string `env:"TRANSCRIBE_URL, default=https://api.openai.com/v1" json:"transcribe_url"`
	TranscribeAPIKey      string `env:"TRANSCRIBE_API_KEY" json:"-"` // Masked in JSON
	TranscribeModel       string `env:"TRANSCRIBE_MODEL, default=whisper-1" json:"transcribe_model"`
	TranscribeLanguage    string `env:"TRANSCRIBE_LANGUAGE, default=es" json:"transcribe_language"`
	TranscribeConcurrency int    `env:"TRANSCRIBE_CONCURRENCY, default=4" json:"transcribe_concurrency"`
	TranscribeRatePerMin  int    `env:"TRANSCRIBE_RATE_PER_MIN, default=50" json:"transcribe_rate_per_min"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Optional MinIO settings
	MinIOEndpoint  string `env:"MINIO_ENDPOINT" json:"minio_endpoint,omitempty"`
	MinIOBucket    string `env:"MINIO_BUCKET" json:"minio_bucket,omitempty"`
	MinIOAccessKey string `env:"MINIO_ACCESS_KEY" json:"-"` // Masked in JSON
	MinIOSecretKey string `env:"MINIO_SECRET_KEY" json:"-"` // Masked in JSON
	MinIOUseSSL    bool   `env:"MINIO_USE_SSL, default=false" json:"minio_use_ssl"`

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// MinIOEnabled returns true if MinIO configuration is provided.
func (c *Config) MinIOEnabled() bool {
	return c.MinIOEndpoint != "" && c.MinIOBucket != ""
}

// TranscribeEnabled returns true if a transcription API key is configured.
func (c *Config) TranscribeEnabled() bool {
	return c.TranscribeAPIKey != ""
}

// Load reads configuration from environment variables using go-envconfig.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Validate checks that the segmentation defaults are usable.
func (c *Config) Validate() error {
	if c.SegmentSeconds <= 0 {
		return ErrInvalidSegmentSeconds
	}
	switch c.PreferBoundary {
	case "end", "start", "both":
	default:
		return ErrInvalidPreferBoundary
	}
	if c.SnapWindowSec < 0 || c.MinGapSec < 0 || c.PaddingSec < 0 || c.MinSilenceSec < 0 {
		return ErrNegativeTuning
	}
	if c.CutWorkers <= 0 {
		return ErrInvalidCutWorkers
	}
	if c.TranscribeEnabled() && c.TranscribeConcurrency <= 0 {
		return ErrInvalidTranscribeConcurrency
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	return c.NewLoggerWithLevel(parseLogLevel(c.LogLevel))
}

// NewLoggerWithLevel is NewLogger with an explicit level, used by the CLI
// verbosity flags.
func (c *Config) NewLoggerWithLevel(level slog.Level) *slog.Logger {
	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, UploadsRoot: %s, FFmpegPath: %s, FFprobePath: %s, SegmentSeconds: %g, SnapWindowSec: %g, MinGapSec: %g, PaddingSec: %g, PreferBoundary: %s, NoiseThreshold: %s, MinSilenceSec: %g, CutWorkers: %d, TranscribeURL: %s, TranscribeModel: %s, TranscribeEnabled: %t, S3Bucket: %s, S3Region: %s, MinIOEndpoint: %s, MinIOBucket: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.UploadsRoot,
		c.FFmpegPath,
		c.FFprobePath,
		c.SegmentSeconds,
		c.SnapWindowSec,
		c.MinGapSec,
		c.PaddingSec,
		c.PreferBoundary,
		c.NoiseThreshold,
		c.MinSilenceSec,
		c.CutWorkers,
		c.TranscribeURL,
		c.TranscribeModel,
		c.TranscribeEnabled(),
		c.S3Bucket,
		c.S3Region,
		c.MinIOEndpoint,
		c.MinIOBucket,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Package segment splits one media file into silence-aligned segment files
// inside the job's own output directory.
package segment

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/ojeelafriend/meeting-notes-ai/internal/audio"
)

// Validation errors, reported before any external process is started.
var (
	ErrInputRequired         = errors.New("inputPath is required")
	ErrJobIDRequired         = errors.New("jobId is required")
	ErrInvalidSegmentSeconds = errors.New("segmentSeconds must be > 0")
	ErrToolsUnavailable      = errors.New("ffmpeg/ffprobe bins not available")
	ErrInvalidFilePrefix     = errors.New("filePrefix must be a plain file name")
	ErrInvalidRequest        = errors.New("invalid segmentation request")
)

// Request describes one segmentation job.
// Start from NewRequest so omitted tuning fields keep their defaults.
type Request struct {
	InputPath      string       `json:"input_path" yaml:"input_path" validate:"required"`
	JobID          string       `json:"job_id" yaml:"job_id" validate:"required"`
	SegmentSeconds float64      `json:"segment_seconds" yaml:"segment_seconds" validate:"gt=0"`
	FilePrefix     string       `json:"file_prefix" yaml:"file_prefix" validate:"omitempty,max=128,excludesall=/\\,ne=.,ne=.."`
	SnapWindowSec  float64      `json:"snap_window_sec" yaml:"snap_window_sec" validate:"gte=0"`
	MinGapSec      float64      `json:"min_gap_sec" yaml:"min_gap_sec" validate:"gte=0"`
	PaddingSec     float64      `json:"padding_sec" yaml:"padding_sec" validate:"gte=0"`
	PreferBoundary audio.Prefer `json:"prefer_boundary" yaml:"prefer_boundary" validate:"omitempty,oneof=end start both"`
	NoiseThreshold string       `json:"noise_threshold" yaml:"noise_threshold"`
	MinSilenceSec  float64      `json:"min_silence_sec" yaml:"min_silence_sec" validate:"gte=0"`
	EmitVideo      bool         `json:"emit_video" yaml:"emit_video"`
	VideoPrecise   bool         `json:"video_precise" yaml:"video_precise"`
}

// NewRequest returns a Request with every tuning field at its default.
func NewRequest(inputPath, jobID string, segmentSeconds float64) Request {
	return Request{
		InputPath:      inputPath,
		JobID:          jobID,
		SegmentSeconds: segmentSeconds,
		FilePrefix:     audio.DefaultPrefix,
		SnapWindowSec:  audio.DefaultSnapWindowSec,
		MinGapSec:      audio.DefaultMinGapSec,
		PaddingSec:     audio.DefaultPaddingSec,
		PreferBoundary: audio.PreferEnd,
		NoiseThreshold: audio.DefaultNoiseThreshold,
		MinSilenceSec:  audio.DefaultMinSilenceSec,
	}
}

// withDefaults fills fields whose zero value is never meaningful.
func (r Request) withDefaults() Request {
	if r.FilePrefix == "" {
		r.FilePrefix = audio.DefaultPrefix
	}
	if r.PreferBoundary == "" {
		r.PreferBoundary = audio.PreferEnd
	}
	if r.NoiseThreshold == "" {
		r.NoiseThreshold = audio.DefaultNoiseThreshold
	}
	if r.MinSilenceSec == 0 {
		r.MinSilenceSec = audio.DefaultMinSilenceSec
	}
	return r
}

// validate checks the request and maps the first failing field to its
// sentinel error.
func validate(v *validator.Validate, r Request) error {
	err := v.Struct(r)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	fe := fieldErrs[0]
	switch fe.StructField() {
	case "InputPath":
		return ErrInputRequired
	case "JobID":
		return ErrJobIDRequired
	case "SegmentSeconds":
		return ErrInvalidSegmentSeconds
	case "FilePrefix":
		return ErrInvalidFilePrefix
	}
	return fmt.Errorf("%w: %s failed %q", ErrInvalidRequest, fe.Field(), fe.Tag())
}

// Result is the outcome of Engine.Split. A failed split has Error set and
// no paths; nothing else crosses the engine boundary.
type Result struct {
	AudioPaths []string `json:"audio_paths"`
	VideoPaths []string `json:"video_paths"`
	OutputDir  string   `json:"output_dir"`
	Message    string   `json:"message,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// Failed reports whether the split failed.
func (r Result) Failed() bool {
	return r.Error != ""
}

func failure(err error) Result {
	return Result{AudioPaths: []string{}, VideoPaths: []string{}, Error: err.Error()}
}

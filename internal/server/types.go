// Package server provides the HTTP API of the segmentation service.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

import (
	"time"

	"github.com/ojeelafriend/meeting-notes-ai/internal/audio"
	"github.com/ojeelafriend/meeting-notes-ai/internal/segment"
	"github.com/ojeelafriend/meeting-notes-ai/internal/transcribe"
)

// CreateSegmentsRequest is the HTTP request body for submitting a split.
// Omitted tuning fields keep the server defaults.
type CreateSegmentsRequest struct {
	// InputPath is the media file to split, absolute or relative to the server's working directory.
	InputPath string `json:"input_path" validate:"required"`
	// JobID names the output directory. Generated when empty.
	JobID string `json:"job_id,omitempty" validate:"omitempty,max=128,excludesall=/\\"`
	// SegmentSeconds is the target segment length.
	SegmentSeconds *float64 `json:"segment_seconds,omitempty" validate:"omitempty,gt=0"`
	// FilePrefix is the segment file name prefix.
	FilePrefix string `json:"file_prefix,omitempty" validate:"omitempty,max=64,excludesall=/\\"`
	// SnapWindowSec is how far a cut may move to reach a silence.
	SnapWindowSec *float64 `json:"snap_window_sec,omitempty" validate:"omitempty,gte=0"`
	// MinGapSec is the minimum spacing between cuts.
	MinGapSec *float64 `json:"min_gap_sec,omitempty" validate:"omitempty,gte=0"`
	// PaddingSec widens every segment on both sides.
	PaddingSec *float64 `json:"padding_sec,omitempty" validate:"omitempty,gte=0"`
	// PreferBoundary selects silence ends, starts or both as snap targets.
	PreferBoundary string `json:"prefer_boundary,omitempty" validate:"omitempty,oneof=end start both"`
	// NoiseThreshold is the silence detector level, e.g. "-30dB".
	NoiseThreshold string `json:"noise_threshold,omitempty"`
	// MinSilenceSec is the shortest silence the detector reports.
	MinSilenceSec *float64 `json:"min_silence_sec,omitempty" validate:"omitempty,gt=0"`
	// EmitVideo also writes a video copy of every segment.
	EmitVideo bool `json:"emit_video"`
	// VideoPrecise re-encodes video copies for frame-accurate cuts.
	VideoPrecise bool `json:"video_precise"`
	// Publish uploads the audio segments to object storage when the split succeeds.
	Publish bool `json:"publish"`
}

// ToRequest overlays the fields present in r onto defaults.
func (r CreateSegmentsRequest) ToRequest(defaults segment.Request) segment.Request {
	req := defaults
	req.InputPath = r.InputPath
	req.JobID = r.JobID
	if r.SegmentSeconds != nil {
		req.SegmentSeconds = *r.SegmentSeconds
	}
	if r.FilePrefix != "" {
		req.FilePrefix = r.FilePrefix
	}
	if r.SnapWindowSec != nil {
		req.SnapWindowSec = *r.SnapWindowSec
	}
	if r.MinGapSec != nil {
		req.MinGapSec = *r.MinGapSec
	}
	if r.PaddingSec != nil {
		req.PaddingSec = *r.PaddingSec
	}
	if r.PreferBoundary != "" {
		req.PreferBoundary = audio.Prefer(r.PreferBoundary)
	}
	if r.NoiseThreshold != "" {
		req.NoiseThreshold = r.NoiseThreshold
	}
	if r.MinSilenceSec != nil {
		req.MinSilenceSec = *r.MinSilenceSec
	}
	req.EmitVideo = r.EmitVideo
	req.VideoPrecise = r.VideoPrecise
	return req
}

// CreateSegmentsResponse is the HTTP response after submitting a split.
type CreateSegmentsResponse struct {
	// ID is the job id, which is also the output directory name.
	ID string `json:"id"`
	// Status is the initial job status.
	Status string `json:"status"`
}

// JobResponse is the HTTP response for getting job details.
type JobResponse struct {
	ID          string                  `json:"id"`
	Status      string                  `json:"status"`
	InputPath   string                  `json:"input_path"`
	OutputDir   string                  `json:"output_dir,omitempty"`
	AudioPaths  []string                `json:"audio_paths,omitempty"`
	VideoPaths  []string                `json:"video_paths,omitempty"`
	URLs        []string                `json:"urls,omitempty"`
	Message     string                  `json:"message,omitempty"`
	Error       string                  `json:"error,omitempty"`
	Transcripts []transcribe.Transcript `json:"transcripts,omitempty"`
	CreatedAt   time.Time               `json:"created_at"`
	UpdatedAt   time.Time               `json:"updated_at"`
}

// JobListResponse is the HTTP response for listing jobs.
type JobListResponse struct {
	Jobs []JobResponse `json:"jobs"`
}

// FilesResponse lists the segment files found in a job directory.
type FilesResponse struct {
	JobID string   `json:"job_id"`
	Files []string `json:"files"`
}

// TranscribeResponse carries the per-segment transcripts of a job.
type TranscribeResponse struct {
	JobID    string                  `json:"job_id"`
	Segments []transcribe.Transcript `json:"segments"`
	// Text joins the segment texts in order.
	Text string `json:"text"`
	// Error is set when at least one segment failed.
	Error string `json:"error,omitempty"`
}

// PublishResponse lists the object URLs of a job's segments.
type PublishResponse struct {
	JobID string   `json:"job_id"`
	URLs  []string `json:"urls"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}

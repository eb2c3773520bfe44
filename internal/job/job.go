// Package job tracks segmentation jobs: the Job aggregate with its state
// machine, repository ports, and the service that runs splits, lists
// segments and fans them out to transcription.
package job

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/ojeelafriend/meeting-notes-ai/internal/job/id"
	"github.com/ojeelafriend/meeting-notes-ai/internal/segment"
	"github.com/ojeelafriend/meeting-notes-ai/internal/transcribe"
)

// Status represents the current state of a Job.
type Status string

const (
	// StatusInQueue indicates the job is waiting to be processed.
	StatusInQueue Status = "IN_QUEUE"
	// StatusRunning indicates the split is in progress.
	StatusRunning Status = "RUNNING"
	// StatusCompleted indicates the split finished successfully.
	StatusCompleted Status = "COMPLETED"
	// StatusFailed indicates the split failed.
	StatusFailed Status = "FAILED"
	// StatusCancelled indicates the job was manually cancelled.
	StatusCancelled Status = "CANCELLED"
	// StatusTimedOut indicates the job exceeded its deadline.
	StatusTimedOut Status = "TIMED_OUT"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// validTransitions defines which state transitions are allowed.
var validTransitions = map[Status][]Status{
	StatusInQueue:   {StatusRunning, StatusCancelled, StatusTimedOut},
	StatusRunning:   {StatusCompleted, StatusFailed, StatusCancelled, StatusTimedOut},
	StatusCompleted: {},
	StatusFailed:    {},
	StatusCancelled: {},
	StatusTimedOut:  {},
}

// canTransition checks if a transition from one status to another is valid.
func canTransition(from, to Status) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	return slices.Contains(allowed, to)
}

// Job represents one segmentation request and everything produced for it.
type Job struct {
	mu sync.RWMutex

	// ID is the unique identifier for this job; it names the output directory.
	ID string
	// Status is the current job state.
	Status Status
	// Request is the segmentation request, with JobID equal to ID.
	Request segment.Request
	// Publish indicates whether segments are uploaded to object storage.
	Publish bool
	// OutputDir is the job directory once the split succeeded.
	OutputDir string
	// AudioPaths are the WAV segments in index order.
	AudioPaths []string
	// VideoPaths are the video copies in index order, if requested.
	VideoPaths []string
	// URLs are the published object URLs of the audio segments.
	URLs []string
	// Message is the engine's success message.
	Message string
	// Transcripts holds the latest transcription of the segments.
	Transcripts []transcribe.Transcript
	// Error contains any error message if the job failed.
	Error string
	// CreatedAt is when the job was created.
	CreatedAt time.Time
	// UpdatedAt is when the job was last updated.
	UpdatedAt time.Time
	// StartedAt is when processing started.
	StartedAt time.Time
	// CompletedAt is when processing finished.
	CompletedAt time.Time
}

// New creates a new Job with a generated ID and initial IN_QUEUE status.
func New() *Job {
	return NewWithID(id.Generate())
}

// NewWithID creates a new Job with the specified ID and initial IN_QUEUE status.
func NewWithID(jobID string) *Job {
	now := time.Now()
	return &Job{
		ID:         jobID,
		Status:     StatusInQueue,
		Request:    segment.Request{JobID: jobID},
		AudioPaths: make([]string, 0),
		VideoPaths: make([]string, 0),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// TransitionTo attempts to change the job status to the specified state.
// Returns ErrInvalidTransition if the transition is not allowed.
func (j *Job) TransitionTo(status Status) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !canTransition(j.Status, status) {
		return ErrInvalidTransition
	}

	j.Status = status
	j.UpdatedAt = time.Now()

	// Set timestamps based on state
	switch status {
	case StatusRunning:
		j.StartedAt = j.UpdatedAt
	case StatusCompleted, StatusFailed, StatusCancelled, StatusTimedOut:
		j.CompletedAt = j.UpdatedAt
	}

	return nil
}

// Start transitions the job from IN_QUEUE to RUNNING.
func (j *Job) Start() error {
	return j.TransitionTo(StatusRunning)
}

// Complete transitions the job to COMPLETED state.
func (j *Job) Complete() error {
	return j.TransitionTo(StatusCompleted)
}

// Fail transitions the job to FAILED state with an error message.
func (j *Job) Fail(errMsg string) error {
	j.mu.Lock()
	j.Error = errMsg
	j.mu.Unlock()
	return j.TransitionTo(StatusFailed)
}

// Cancel transitions the job to CANCELLED state.
func (j *Job) Cancel() error {
	return j.TransitionTo(StatusCancelled)
}

// Timeout transitions the job to TIMED_OUT state.
func (j *Job) Timeout() error {
	return j.TransitionTo(StatusTimedOut)
}

// GetStatus returns the current job status (thread-safe).
func (j *Job) GetStatus() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// IsActive reports whether the job is queued or running.
func (j *Job) IsActive() bool {
	s := j.GetStatus()
	return s == StatusInQueue || s == StatusRunning
}

// SetResult records the outcome of a successful split.
func (j *Job) SetResult(res segment.Result) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.OutputDir = res.OutputDir
	j.AudioPaths = slices.Clone(res.AudioPaths)
	j.VideoPaths = slices.Clone(res.VideoPaths)
	j.Message = res.Message
	j.UpdatedAt = time.Now()
}

// SetURLs records the published URLs of the audio segments.
func (j *Job) SetURLs(urls []string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.URLs = slices.Clone(urls)
	j.UpdatedAt = time.Now()
}

// SetTranscripts records the latest transcription.
func (j *Job) SetTranscripts(ts []transcribe.Transcript) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Transcripts = slices.Clone(ts)
	j.UpdatedAt = time.Now()
}

// IsTerminal returns true if the job is in a terminal state.
func (j *Job) IsTerminal() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status == StatusCompleted ||
		j.Status == StatusFailed ||
		j.Status == StatusCancelled ||
		j.Status == StatusTimedOut
}

// Clone creates a deep copy of the job for safe reads.
func (j *Job) Clone() *Job {
	j.mu.RLock()
	defer j.mu.RUnlock()

	return &Job{
		ID:          j.ID,
		Status:      j.Status,
		Request:     j.Request,
		Publish:     j.Publish,
		OutputDir:   j.OutputDir,
		AudioPaths:  slices.Clone(j.AudioPaths),
		VideoPaths:  slices.Clone(j.VideoPaths),
		URLs:        slices.Clone(j.URLs),
		Message:     j.Message,
		Transcripts: slices.Clone(j.Transcripts),
		Error:       j.Error,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
	}
}

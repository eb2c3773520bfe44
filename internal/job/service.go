package job

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"

	"github.com/ojeelafriend/meeting-notes-ai/internal/audio"
	"github.com/ojeelafriend/meeting-notes-ai/internal/job/id"
	"github.com/ojeelafriend/meeting-notes-ai/internal/segment"
	"github.com/ojeelafriend/meeting-notes-ai/internal/storage"
	"github.com/ojeelafriend/meeting-notes-ai/internal/transcribe"
)

// Static errors for the segmentation service.
var (
	// ErrJobInProgress is returned when a job id is reused while that job is
	// still queued or running.
	ErrJobInProgress = errors.New("job is already in progress")
	// ErrNoSegments is returned when a job directory holds no segment files.
	ErrNoSegments = errors.New("no segments found for job")
	// ErrNoManifest is returned when a job directory exists but holds no
	// manifest, as after a failed split.
	ErrNoManifest = errors.New("no manifest found for job")
	// ErrTranscriberNotConfigured is returned when transcription is requested
	// without a transcription client.
	ErrTranscriberNotConfigured = errors.New("transcription is not configured")
)

// Splitter runs one segmentation request.
type Splitter interface {
	Split(ctx context.Context, req segment.Request) segment.Result
}

// JobDirectories maps job ids to output directories.
type JobDirectories interface {
	Resolve(jobID string) (string, error)
	Remove(ctx context.Context, jobID string) error
}

// SegmentService orchestrates segmentation jobs: split, list, transcribe
// and publish.
type SegmentService struct {
	repo        Repository
	splitter    Splitter
	dirs        JobDirectories
	transcriber transcribe.Transcriber
	publisher   storage.Publisher
	fanOut      transcribe.FanOutOpts
	logger      *slog.Logger

	// submitMu makes the in-progress check and the save atomic.
	submitMu sync.Mutex
}

// ServiceOption is a function that configures a SegmentService.
type ServiceOption func(*SegmentService)

// WithTranscriber sets the transcription client used by Transcribe.
func WithTranscriber(t transcribe.Transcriber) ServiceOption {
	return func(s *SegmentService) {
		s.transcriber = t
	}
}

// WithPublisher sets the object store used for jobs submitted with Publish.
func WithPublisher(p storage.Publisher) ServiceOption {
	return func(s *SegmentService) {
		s.publisher = p
	}
}

// WithFanOut bounds the transcription fan-out.
func WithFanOut(opts transcribe.FanOutOpts) ServiceOption {
	return func(s *SegmentService) {
		s.fanOut = opts
	}
}

// NewSegmentService creates a new SegmentService.
func NewSegmentService(repo Repository, splitter Splitter, dirs JobDirectories, logger *slog.Logger, opts ...ServiceOption) *SegmentService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &SegmentService{
		repo:     repo,
		splitter: splitter,
		dirs:     dirs,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.fanOut.Logger == nil {
		s.fanOut.Logger = logger
	}
	return s
}

// CreateJob registers a job for req in IN_QUEUE state. An empty req.JobID
// gets a generated id. Reusing the id of a queued or running job fails with
// ErrJobInProgress; the id of a finished job may be reused. Publishing
// without a configured publisher fails with storage.ErrPublisherNotConfigured.
func (s *SegmentService) CreateJob(ctx context.Context, req segment.Request, publish bool) (*Job, error) {
	if publish && s.publisher == nil {
		return nil, storage.ErrPublisherNotConfigured
	}
	if req.JobID == "" {
		req.JobID = id.Generate()
	}

	s.submitMu.Lock()
	defer s.submitMu.Unlock()

	existing, err := s.repo.FindByID(ctx, req.JobID)
	switch {
	case err == nil && existing.IsActive():
		return nil, fmt.Errorf("%w: %s", ErrJobInProgress, req.JobID)
	case err != nil && !errors.Is(err, ErrJobNotFound):
		return nil, err
	}

	job := NewWithID(req.JobID)
	job.Request = req
	job.Publish = publish

	s.logger.Info("creating new job",
		slog.String("job_id", job.ID),
		slog.String("input", req.InputPath),
		slog.Float64("segment_seconds", req.SegmentSeconds),
		slog.Bool("publish", publish),
	)

	if err := s.repo.Save(ctx, job); err != nil {
		s.logger.Error("failed to save job",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	return job.Clone(), nil
}

// GetJob retrieves a job by ID.
func (s *SegmentService) GetJob(ctx context.Context, id string) (*Job, error) {
	return s.repo.FindByID(ctx, id)
}

// ListJobs returns every tracked job, oldest first.
func (s *SegmentService) ListJobs(ctx context.Context) ([]*Job, error) {
	return s.repo.List(ctx)
}

// DeleteJob removes the job directory and forgets the job. A job that is
// still queued or running is left alone with ErrJobInProgress. Directories
// of untracked jobs are removed as well.
func (s *SegmentService) DeleteJob(ctx context.Context, jobID string) error {
	s.submitMu.Lock()
	defer s.submitMu.Unlock()

	existing, err := s.repo.FindByID(ctx, jobID)
	switch {
	case err == nil && existing.IsActive():
		return fmt.Errorf("%w: %s", ErrJobInProgress, jobID)
	case err != nil && !errors.Is(err, ErrJobNotFound):
		return err
	}

	if err := s.dirs.Remove(ctx, jobID); err != nil {
		return err
	}
	if existing != nil {
		if err := s.repo.Delete(ctx, jobID); err != nil && !errors.Is(err, ErrJobNotFound) {
			return err
		}
	}

	s.logger.Info("job deleted", slog.String("job_id", jobID))
	return nil
}

// ProcessExistingJob runs the split of a queued job and records the outcome.
// A failed split is not an error of this method: the job ends FAILED with
// the engine's message and is returned.
func (s *SegmentService) ProcessExistingJob(ctx context.Context, jobID string) (*Job, error) {
	job, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if err := job.Start(); err != nil {
		return nil, fmt.Errorf("start job %s: %w", jobID, err)
	}
	if err := s.repo.Save(ctx, job); err != nil {
		return nil, err
	}

	res := s.splitter.Split(ctx, job.Request)
	if res.Failed() {
		_ = job.Fail(res.Error)
		s.logger.Warn("job failed",
			slog.String("job_id", jobID),
			slog.String("error", res.Error),
		)
		return job.Clone(), s.repo.Save(ctx, job)
	}

	job.SetResult(res)

	if job.Publish {
		urls, err := storage.PublishFiles(ctx, s.publisher, jobID, res.AudioPaths)
		if err != nil {
			_ = job.Fail(err.Error())
			s.logger.Warn("job publish failed",
				slog.String("job_id", jobID),
				slog.String("error", err.Error()),
			)
			return job.Clone(), s.repo.Save(ctx, job)
		}
		job.SetURLs(urls)
	}

	_ = job.Complete()
	s.logger.Info("job completed",
		slog.String("job_id", jobID),
		slog.Int("segments", len(res.AudioPaths)),
	)
	return job.Clone(), s.repo.Save(ctx, job)
}

// Run creates and processes a job synchronously.
func (s *SegmentService) Run(ctx context.Context, req segment.Request, publish bool) (*Job, error) {
	job, err := s.CreateJob(ctx, req, publish)
	if err != nil {
		return nil, err
	}
	return s.ProcessExistingJob(ctx, job.ID)
}

// Segments lists the segment files of a job directory in index order.
// It only needs the job id, not a tracked job.
func (s *SegmentService) Segments(_ context.Context, jobID, prefix string) ([]string, error) {
	dir, err := s.dirs.Resolve(jobID)
	if err != nil {
		return nil, err
	}
	return audio.ListSegments(dir, prefix)
}

// Manifest reads the manifest a successful split left in the job directory.
// A missing directory is reported as fs.ErrNotExist.
func (s *SegmentService) Manifest(_ context.Context, jobID string) (segment.Manifest, error) {
	dir, err := s.dirs.Resolve(jobID)
	if err != nil {
		return segment.Manifest{}, err
	}
	if _, err := os.Stat(dir); err != nil {
		return segment.Manifest{}, fmt.Errorf("job directory: %w", err)
	}

	m, err := segment.ReadManifest(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return segment.Manifest{}, fmt.Errorf("%w: %s", ErrNoManifest, jobID)
	}
	return m, err
}

// Transcribe sends every WAV segment of the job to the transcription client
// concurrently. Transcripts come back in segment order; when some segments
// fail, the rest are still returned with the joined error.
func (s *SegmentService) Transcribe(ctx context.Context, jobID, prefix string) ([]transcribe.Transcript, error) {
	if s.transcriber == nil {
		return nil, ErrTranscriberNotConfigured
	}

	paths, err := s.Segments(ctx, jobID, prefix)
	if err != nil {
		return nil, err
	}
	wavs := audio.FilterExt(paths, ".wav")
	if len(wavs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSegments, jobID)
	}

	s.logger.Info("transcribing segments",
		slog.String("job_id", jobID),
		slog.Int("segments", len(wavs)),
	)

	transcripts, err := transcribe.TranscribeAll(ctx, s.transcriber, wavs, s.fanOut)

	if job, findErr := s.repo.FindByID(ctx, jobID); findErr == nil {
		job.SetTranscripts(transcripts)
		if saveErr := s.repo.Save(ctx, job); saveErr != nil {
			s.logger.Warn("failed to store transcripts",
				slog.String("job_id", jobID),
				slog.String("error", saveErr.Error()),
			)
		}
	}

	return transcripts, err
}

// Publish uploads the job's segment files and returns their URLs in order.
func (s *SegmentService) Publish(ctx context.Context, jobID, prefix string) ([]string, error) {
	paths, err := s.Segments(ctx, jobID, prefix)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSegments, jobID)
	}
	return storage.PublishFiles(ctx, s.publisher, jobID, paths)
}

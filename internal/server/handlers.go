package server

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/ojeelafriend/meeting-notes-ai/internal/job"
	"github.com/ojeelafriend/meeting-notes-ai/internal/segment"
	"github.com/ojeelafriend/meeting-notes-ai/internal/storage"
	"github.com/ojeelafriend/meeting-notes-ai/internal/transcribe"
)

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	service            *job.SegmentService
	validator          *validator.Validate
	logger             *slog.Logger
	defaults           segment.Request
	enableAsyncProcess bool
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithAsyncProcessing enables or disables background processing.
// When disabled, CreateSegments only creates the job and returns immediately
// without starting the split.
func WithAsyncProcessing(enabled bool) HandlerOption {
	return func(h *Handlers) {
		h.enableAsyncProcess = enabled
	}
}

// WithRequestDefaults sets the tuning values used for fields a client omits.
func WithRequestDefaults(req segment.Request) HandlerOption {
	return func(h *Handlers) {
		h.defaults = req
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service *job.SegmentService, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		service:            service,
		validator:          validator.New(),
		logger:             logger,
		defaults:           segment.NewRequest("", "", 60),
		enableAsyncProcess: true, // Default to enabled
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// CreateSegments handles POST /segments requests.
func (h *Handlers) CreateSegments(w http.ResponseWriter, r *http.Request) {
	var body CreateSegmentsRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}

	if err := h.validator.Struct(body); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	req := body.ToRequest(h.defaults)

	createdJob, err := h.service.CreateJob(r.Context(), req, body.Publish)
	if err != nil {
		switch {
		case errors.Is(err, job.ErrJobInProgress):
			writeError(w, http.StatusConflict, err.Error(), "JOB_IN_PROGRESS")
			return
		case errors.Is(err, storage.ErrPublisherNotConfigured):
			writeError(w, http.StatusNotImplemented, err.Error(), "PUBLISHING_DISABLED")
			return
		}
		h.logger.Error("failed to create job",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to create job", "JOB_CREATION_FAILED")
		return
	}

	// The split outlives the request, so it runs on a detached context.
	if h.enableAsyncProcess {
		go func(ctx context.Context, jobID string) {
			if _, processErr := h.service.ProcessExistingJob(ctx, jobID); processErr != nil {
				h.logger.Error("background processing failed",
					slog.String("job_id", jobID),
					slog.String("error", processErr.Error()),
				)
			}
		}(context.WithoutCancel(r.Context()), createdJob.ID)
	}

	h.logger.Info("segmentation job created",
		slog.String("job_id", createdJob.ID),
		slog.String("input", req.InputPath),
	)

	writeJSON(w, http.StatusAccepted, CreateSegmentsResponse{
		ID:     createdJob.ID,
		Status: string(createdJob.Status),
	})
}

// ListJobs handles GET /segments requests.
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.service.ListJobs(r.Context())
	if err != nil {
		h.logger.Error("failed to list jobs", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list jobs", "JOB_LIST_FAILED")
		return
	}

	resp := JobListResponse{Jobs: make([]JobResponse, 0, len(jobs))}
	for _, j := range jobs {
		resp.Jobs = append(resp.Jobs, toJobResponse(j))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetJob handles GET /segments/{id} requests.
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID, ok := requireJobID(w, r)
	if !ok {
		return
	}

	foundJob, err := h.service.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found", "JOB_NOT_FOUND")
			return
		}
		h.logger.Error("failed to get job",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get job", "JOB_FETCH_FAILED")
		return
	}

	writeJSON(w, http.StatusOK, toJobResponse(foundJob))
}

// ListFiles handles GET /segments/{id}/files requests. It reads the job
// directory, so it also works for directories written by earlier runs.
func (h *Handlers) ListFiles(w http.ResponseWriter, r *http.Request) {
	jobID, ok := requireJobID(w, r)
	if !ok {
		return
	}

	files, err := h.service.Segments(r.Context(), jobID, r.URL.Query().Get("prefix"))
	if err != nil {
		h.writeServiceError(w, jobID, "failed to list segments", err)
		return
	}

	writeJSON(w, http.StatusOK, FilesResponse{JobID: jobID, Files: files})
}

// GetManifest handles GET /segments/{id}/manifest requests with the
// boundaries and cut plans recorded by the split.
func (h *Handlers) GetManifest(w http.ResponseWriter, r *http.Request) {
	jobID, ok := requireJobID(w, r)
	if !ok {
		return
	}

	m, err := h.service.Manifest(r.Context(), jobID)
	if err != nil {
		h.writeServiceError(w, jobID, "failed to read manifest", err)
		return
	}

	writeJSON(w, http.StatusOK, m)
}

// Transcribe handles POST /segments/{id}/transcribe requests. Partial
// failures still return 200 with every transcript and the joined error.
func (h *Handlers) Transcribe(w http.ResponseWriter, r *http.Request) {
	jobID, ok := requireJobID(w, r)
	if !ok {
		return
	}

	transcripts, err := h.service.Transcribe(r.Context(), jobID, r.URL.Query().Get("prefix"))
	if err != nil && transcripts == nil {
		h.writeServiceError(w, jobID, "failed to transcribe segments", err)
		return
	}

	resp := TranscribeResponse{
		JobID:    jobID,
		Segments: transcripts,
		Text:     transcribe.JoinText(transcripts),
	}
	if err != nil {
		h.logger.Warn("some segments failed to transcribe",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// Publish handles POST /segments/{id}/publish requests.
func (h *Handlers) Publish(w http.ResponseWriter, r *http.Request) {
	jobID, ok := requireJobID(w, r)
	if !ok {
		return
	}

	urls, err := h.service.Publish(r.Context(), jobID, r.URL.Query().Get("prefix"))
	if err != nil {
		h.writeServiceError(w, jobID, "failed to publish segments", err)
		return
	}

	writeJSON(w, http.StatusOK, PublishResponse{JobID: jobID, URLs: urls})
}

// DeleteJob handles DELETE /segments/{id} requests. Deleting an unknown or
// already removed job is not an error.
func (h *Handlers) DeleteJob(w http.ResponseWriter, r *http.Request) {
	jobID, ok := requireJobID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteJob(r.Context(), jobID); err != nil {
		h.writeServiceError(w, jobID, "failed to delete job", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// writeServiceError maps service and storage errors to HTTP statuses.
func (h *Handlers) writeServiceError(w http.ResponseWriter, jobID, message string, err error) {
	switch {
	case errors.Is(err, storage.ErrInvalidJobID):
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_JOB_ID")
	case errors.Is(err, fs.ErrNotExist):
		writeError(w, http.StatusNotFound, "job directory not found", "DIRECTORY_NOT_FOUND")
	case errors.Is(err, job.ErrNoSegments):
		writeError(w, http.StatusNotFound, err.Error(), "NO_SEGMENTS")
	case errors.Is(err, job.ErrNoManifest):
		writeError(w, http.StatusNotFound, err.Error(), "NO_MANIFEST")
	case errors.Is(err, job.ErrJobInProgress):
		writeError(w, http.StatusConflict, err.Error(), "JOB_IN_PROGRESS")
	case errors.Is(err, job.ErrTranscriberNotConfigured):
		writeError(w, http.StatusNotImplemented, err.Error(), "TRANSCRIPTION_DISABLED")
	case errors.Is(err, storage.ErrPublisherNotConfigured):
		writeError(w, http.StatusNotImplemented, err.Error(), "PUBLISHING_DISABLED")
	default:
		h.logger.Error(message,
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, message, "INTERNAL_ERROR")
	}
}

func requireJobID(w http.ResponseWriter, r *http.Request) (string, bool) {
	jobID := r.PathValue("id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job ID is required", "MISSING_JOB_ID")
		return "", false
	}
	return jobID, true
}

func toJobResponse(j *job.Job) JobResponse {
	return JobResponse{
		ID:          j.ID,
		Status:      string(j.Status),
		InputPath:   j.Request.InputPath,
		OutputDir:   j.OutputDir,
		AudioPaths:  j.AudioPaths,
		VideoPaths:  j.VideoPaths,
		URLs:        j.URLs,
		Message:     j.Message,
		Error:       j.Error,
		Transcripts: j.Transcripts,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

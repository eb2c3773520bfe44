package transcribe

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// writeSegment creates a small fake WAV file and returns its path.
func writeSegment(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("RIFF....WAVEfmt "), 0644); err != nil {
		t.Fatalf("failed to write segment: %v", err)
	}
	return path
}

func TestNewClient_MissingAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, err := NewClient()
	if !errors.Is(err, ErrAPIKeyNotSet) {
		t.Errorf("expected ErrAPIKeyNotSet, got %v", err)
	}
}

func TestNewClient_FromEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-key")

	client, err := NewClient()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.apiKey != "env-key" {
		t.Errorf("expected apiKey 'env-key', got %q", client.apiKey)
	}
	if client.model != DefaultModel || client.language != DefaultLanguage {
		t.Errorf("unexpected defaults: model=%q language=%q", client.model, client.language)
	}
}

func TestNewClient_WithAPIKeyOptionOverridesEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-key")

	client, err := NewClient(WithAPIKey("explicit-api-key"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.apiKey != "explicit-api-key" {
		t.Errorf("expected apiKey to be 'explicit-api-key', got '%s'", client.apiKey)
	}
}

func TestTranscribe_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/v1/audio/transcriptions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("expected Bearer test-key, got %s", r.Header.Get("Authorization"))
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("failed to parse multipart form: %v", err)
		}
		if got := r.FormValue("model"); got != "whisper-large" {
			t.Errorf("expected model whisper-large, got %q", got)
		}
		if got := r.FormValue("response_format"); got != "text" {
			t.Errorf("expected response_format text, got %q", got)
		}
		if got := r.FormValue("language"); got != "en" {
			t.Errorf("expected language en, got %q", got)
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("missing file part: %v", err)
		}
		defer f.Close()
		if hdr.Filename != "part_000.wav" {
			t.Errorf("expected filename part_000.wav, got %s", hdr.Filename)
		}
		data, _ := io.ReadAll(f)
		if string(data) != "RIFF....WAVEfmt " {
			t.Errorf("unexpected file content %q", data)
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("  hola a todos\n"))
	}))
	defer server.Close()

	client, _ := NewClient(
		WithAPIKey("test-key"),
		WithBaseURL(server.URL+"/v1/"),
		WithModel("whisper-large"),
		WithLanguage("en"),
	)

	text, err := client.Transcribe(context.Background(), writeSegment(t, "part_000.wav"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "hola a todos" {
		t.Errorf("expected 'hola a todos', got %q", text)
	}
}

func TestTranscribe_JSONResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"buenos días"}`))
	}))
	defer server.Close()

	client, _ := NewClient(WithAPIKey("k"), WithBaseURL(server.URL))

	text, err := client.Transcribe(context.Background(), writeSegment(t, "part_001.wav"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "buenos días" {
		t.Errorf("expected 'buenos días', got %q", text)
	}
}

func TestTranscribe_MissingFile(t *testing.T) {
	client, _ := NewClient(WithAPIKey("k"))

	if _, err := client.Transcribe(context.Background(), ""); !errors.Is(err, ErrPathRequired) {
		t.Errorf("expected ErrPathRequired, got %v", err)
	}
	if _, err := client.Transcribe(context.Background(), filepath.Join(t.TempDir(), "nope.wav")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestTranscribe_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second) // Simulate slow response
	}))
	defer server.Close()

	client, _ := NewClient(WithAPIKey("k"), WithBaseURL(server.URL))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := client.Transcribe(ctx, writeSegment(t, "part_000.wav"))
	if err == nil {
		t.Error("expected error due to context cancellation")
	}
}

func TestRetry_TransientFailure(t *testing.T) {
	var attempts int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count := atomic.AddInt32(&attempts, 1)
		if count < 3 {
			// First two attempts fail with 503
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("service unavailable"))
			return
		}
		_, _ = w.Write([]byte("third time lucky"))
	}))
	defer server.Close()

	client, _ := NewClient(
		WithAPIKey("k"),
		WithBaseURL(server.URL),
		WithMaxRetries(3),
		WithBaseBackoff(10*time.Millisecond),
	)

	text, err := client.Transcribe(context.Background(), writeSegment(t, "part_000.wav"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "third time lucky" {
		t.Errorf("unexpected text %q", text)
	}
	if atomic.LoadInt32(&attempts) != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetry_MaxRetriesExceeded(t *testing.T) {
	var attempts int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client, _ := NewClient(
		WithAPIKey("k"),
		WithBaseURL(server.URL),
		WithMaxRetries(2),
		WithBaseBackoff(10*time.Millisecond),
	)

	_, err := client.Transcribe(context.Background(), writeSegment(t, "part_000.wav"))
	if !errors.Is(err, ErrServerError) {
		t.Errorf("expected ErrServerError, got %v", err)
	}
	if atomic.LoadInt32(&attempts) != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetry_NonRetryableError(t *testing.T) {
	var attempts int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest) // 400 is not retryable
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid file format.","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	client, _ := NewClient(
		WithAPIKey("k"),
		WithBaseURL(server.URL),
		WithMaxRetries(3),
		WithBaseBackoff(10*time.Millisecond),
	)

	_, err := client.Transcribe(context.Background(), writeSegment(t, "part_000.wav"))
	if !errors.Is(err, ErrRequestFailed) {
		t.Errorf("expected ErrRequestFailed, got %v", err)
	}
	if err != nil && !strings.Contains(err.Error(), "Invalid file format.") {
		t.Errorf("expected API message in error, got %v", err)
	}
	if atomic.LoadInt32(&attempts) != 1 {
		t.Errorf("expected 1 attempt (no retries for 400), got %d", attempts)
	}
}

func TestRetry_RateLimited(t *testing.T) {
	var attempts int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count := atomic.AddInt32(&attempts, 1)
		if count < 2 {
			w.WriteHeader(http.StatusTooManyRequests) // 429 is retryable
			_, _ = w.Write([]byte("rate limited"))
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	client, _ := NewClient(
		WithAPIKey("k"),
		WithBaseURL(server.URL),
		WithMaxRetries(3),
		WithBaseBackoff(10*time.Millisecond),
	)

	if _, err := client.Transcribe(context.Background(), writeSegment(t, "part_000.wav")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if atomic.LoadInt32(&attempts) != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}
}

package server

import (
	"log/slog"
	"net/http"
)

// Config contains server configuration options.
type Config struct {
	// AllowedOrigins is the list of allowed CORS origins.
	AllowedOrigins []string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		AllowedOrigins: []string{"*"},
	}
}

// NewRouter creates a new HTTP router with all routes configured.
// It uses Go 1.22+ ServeMux with method-based routing.
func NewRouter(h *Handlers, logger *slog.Logger, cfg Config) http.Handler {
	mux := http.NewServeMux()

	// Register routes with method-based patterns (Go 1.22+)
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("POST /segments", h.CreateSegments)
	mux.HandleFunc("GET /segments", h.ListJobs)
	mux.HandleFunc("GET /segments/{id}", h.GetJob)
	mux.HandleFunc("DELETE /segments/{id}", h.DeleteJob)
	mux.HandleFunc("GET /segments/{id}/files", h.ListFiles)
	mux.HandleFunc("GET /segments/{id}/manifest", h.GetManifest)
	mux.HandleFunc("POST /segments/{id}/transcribe", h.Transcribe)
	mux.HandleFunc("POST /segments/{id}/publish", h.Publish)

	// Apply middleware chain
	chain := ChainMiddleware(
		RecoveryMiddleware(logger),
		LoggingMiddleware(logger),
		CORSMiddleware(cfg.AllowedOrigins),
	)

	return chain(mux)
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/ojeelafriend/meeting-notes-ai/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		port    int
		origins []string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				a.cfg.Port = port
			}
			ln, err := net.Listen("tcp", fmt.Sprintf(":%d", a.cfg.Port))
			if err != nil {
				return fmt.Errorf("listen: %w", err)
			}
			return a.serve(cmd.Context(), ln, origins)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (default: PORT)")
	cmd.Flags().StringSliceVar(&origins, "cors-origin", []string{"*"}, "allowed CORS origins")
	return cmd
}

// serve runs the API on ln until ctx is done, then shuts down gracefully.
func (a *app) serve(ctx context.Context, ln net.Listener, origins []string) error {
	logger := a.logger

	logger.Info("starting segmentation API",
		slog.String("addr", ln.Addr().String()),
		slog.String("uploads_root", a.cfg.UploadsRoot),
		slog.Float64("segment_seconds", a.cfg.SegmentSeconds),
		slog.Int("cut_workers", a.cfg.CutWorkers),
		slog.Bool("transcribe_enabled", a.cfg.TranscribeEnabled()),
		slog.Bool("s3_enabled", a.cfg.S3Enabled()),
		slog.Bool("minio_enabled", a.cfg.MinIOEnabled()),
	)
	logger.Debug("configuration", slog.String("config", a.cfg.String()))

	deps, err := a.dependencies(ctx)
	if err != nil {
		return err
	}

	handlers := server.NewHandlers(deps.SegmentService, logger,
		server.WithRequestDefaults(deps.Defaults),
	)
	router := server.NewRouter(handlers, logger, server.Config{AllowedOrigins: origins})

	srv := &http.Server{
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // Transcription of a long job answers late
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening",
			slog.String("addr", ln.Addr().String()),
		)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server failed: %w", err)
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case err := <-errCh:
		return err
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	logger.Info("shutting down server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}

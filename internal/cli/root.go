// Package cli implements the segmenter command line: one-shot splits,
// segment listing, transcription and the HTTP server.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ojeelafriend/meeting-notes-ai/internal/bootstrap"
	"github.com/ojeelafriend/meeting-notes-ai/internal/config"
)

// app carries state shared by every subcommand once the root has run.
type app struct {
	verbose bool
	quiet   bool
	envFile string

	cfg    *config.Config
	logger *slog.Logger
}

// NewRootCmd builds the segmenter command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "segmenter",
		Short: "Split meeting recordings into silence-aligned segments",
		Long: `Segmenter cuts long audio or video recordings into fixed-length WAV segments,
moving each cut to a nearby silence so no sentence is split in half. Segments can
then be transcribed through an OpenAI-compatible API or uploaded to S3/MinIO.

Configuration is read from the environment and from an optional .env file.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}

	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "verbose logging")
	root.PersistentFlags().BoolVarP(&a.quiet, "quiet", "q", false, "suppress non-error output")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before the environment is read")

	root.AddCommand(
		newSplitCmd(a),
		newSegmentsCmd(a),
		newTranscribeCmd(a),
		newServeCmd(a),
	)
	return root
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// setup loads the dotenv file and the configuration, then installs the
// logger. Variables already set in the environment win over the file.
func (a *app) setup() error {
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", a.envFile, err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	switch {
	case a.quiet:
		a.logger = cfg.NewLoggerWithLevel(slog.LevelError)
	case a.verbose:
		a.logger = cfg.NewLoggerWithLevel(slog.LevelDebug)
	default:
		a.logger = cfg.NewLogger()
	}
	slog.SetDefault(a.logger)

	a.cfg = cfg
	return nil
}

func (a *app) dependencies(ctx context.Context) (*bootstrap.Dependencies, error) {
	deps, err := bootstrap.NewDependencies(ctx, a.cfg, a.logger)
	if err != nil {
		return nil, fmt.Errorf("initialize dependencies: %w", err)
	}
	return deps, nil
}

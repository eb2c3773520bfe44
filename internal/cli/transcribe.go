package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ojeelafriend/meeting-notes-ai/internal/transcribe"
)

func newTranscribeCmd(a *app) *cobra.Command {
	var (
		prefix string
		output string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "transcribe <job-id>",
		Short: "Transcribe the WAV segments of a job",
		Long: `Transcribe sends every WAV segment of <UPLOADS_ROOT>/<job-id> to the configured
transcription API, TRANSCRIBE_CONCURRENCY at a time, and prints the texts joined
in segment order. Segments that fail are reported after the others finish.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := a.dependencies(cmd.Context())
			if err != nil {
				return err
			}
			if prefix == "" {
				prefix = a.cfg.FilePrefix
			}

			transcripts, tErr := deps.SegmentService.Transcribe(cmd.Context(), args[0], prefix)
			if tErr != nil && transcripts == nil {
				return tErr
			}

			out := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				defer f.Close()
				out = f
			}

			if asJSON {
				if err := writeJSON(out, transcripts); err != nil {
					return err
				}
			} else if _, err := fmt.Fprintln(out, transcribe.JoinText(transcripts)); err != nil {
				return fmt.Errorf("write output: %w", err)
			}

			if tErr != nil {
				return fmt.Errorf("some segments failed: %w", tErr)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&prefix, "prefix", "", "segment file name prefix (default: FILE_PREFIX)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the transcript to this file instead of stdout")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print per-segment transcripts as JSON")
	return cmd
}

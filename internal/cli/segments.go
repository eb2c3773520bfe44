package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ojeelafriend/meeting-notes-ai/internal/audio"
)

func newSegmentsCmd(a *app) *cobra.Command {
	var (
		prefix   string
		ext      string
		asJSON   bool
		manifest bool
	)

	cmd := &cobra.Command{
		Use:   "segments <job-id>",
		Short: "List the segment files of a job in index order",
		Long: `Segments reads <UPLOADS_ROOT>/<job-id> and prints every <prefix>_NNN.<ext> file
ordered by its numeric index, one path per line. Other files are ignored.
With --manifest it prints the boundaries and cut plans recorded by the split.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := a.dependencies(cmd.Context())
			if err != nil {
				return err
			}
			if manifest {
				m, err := deps.SegmentService.Manifest(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), m)
			}
			if prefix == "" {
				prefix = a.cfg.FilePrefix
			}

			paths, err := deps.SegmentService.Segments(cmd.Context(), args[0], prefix)
			if err != nil {
				return err
			}
			if ext != "" {
				if !strings.HasPrefix(ext, ".") {
					ext = "." + ext
				}
				paths = audio.FilterExt(paths, ext)
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), paths)
			}
			for _, p := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&prefix, "prefix", "", "segment file name prefix (default: FILE_PREFIX)")
	cmd.Flags().StringVar(&ext, "ext", "", "only list files with this extension, e.g. .wav")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print a JSON array instead of one path per line")
	cmd.Flags().BoolVar(&manifest, "manifest", false, "print the job manifest as JSON instead of the file list")
	return cmd
}

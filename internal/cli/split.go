package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ojeelafriend/meeting-notes-ai/internal/audio"
	"github.com/ojeelafriend/meeting-notes-ai/internal/job"
	"github.com/ojeelafriend/meeting-notes-ai/internal/segment"
	"github.com/ojeelafriend/meeting-notes-ai/internal/transcribe"
)

// splitOutput is printed as JSON after a split.
type splitOutput struct {
	JobID       string                  `json:"job_id"`
	Status      string                  `json:"status"`
	AudioPaths  []string                `json:"audio_paths"`
	VideoPaths  []string                `json:"video_paths"`
	OutputDir   string                  `json:"output_dir,omitempty"`
	Message     string                  `json:"message,omitempty"`
	Error       string                  `json:"error,omitempty"`
	URLs        []string                `json:"urls,omitempty"`
	Transcripts []transcribe.Transcript `json:"transcripts,omitempty"`
	Text        string                  `json:"text,omitempty"`
}

type splitFlags struct {
	jobID          string
	segmentSeconds float64
	prefix         string
	snapWindow     float64
	minGap         float64
	padding        float64
	prefer         string
	noise          string
	minSilence     float64
	video          bool
	videoPrecise   bool
	publish        bool
	transcribe     bool
}

func newSplitCmd(a *app) *cobra.Command {
	var f splitFlags

	cmd := &cobra.Command{
		Use:   "split <input-file>",
		Short: "Split a recording into silence-aligned segments",
		Long: `Split probes the input, detects silences and cuts it into WAV segments of roughly
--segment-seconds each, written to <UPLOADS_ROOT>/<job-id>/<prefix>_NNN.wav.
Flags left unset use the configured defaults. The result is printed as JSON.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSplit(cmd, args[0], f)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.jobID, "job-id", "", "job id and output directory name (default: generated)")
	flags.Float64VarP(&f.segmentSeconds, "segment-seconds", "s", 0, "target segment length in seconds")
	flags.StringVar(&f.prefix, "prefix", "", "segment file name prefix")
	flags.Float64Var(&f.snapWindow, "snap-window", 0, "max seconds a cut may move to reach a silence")
	flags.Float64Var(&f.minGap, "min-gap", 0, "minimum seconds between cuts")
	flags.Float64Var(&f.padding, "padding", 0, "seconds added before and after every segment")
	flags.StringVar(&f.prefer, "prefer", "", "silence boundary to snap to: end, start or both")
	flags.StringVar(&f.noise, "noise", "", "silence detection threshold, e.g. -30dB")
	flags.Float64Var(&f.minSilence, "min-silence", 0, "shortest silence in seconds")
	flags.BoolVar(&f.video, "video", false, "also write a video copy of each segment")
	flags.BoolVar(&f.videoPrecise, "video-precise", false, "re-encode video copies for frame-accurate cuts")
	flags.BoolVar(&f.publish, "publish", false, "upload the audio segments to the configured object storage")
	flags.BoolVar(&f.transcribe, "transcribe", false, "transcribe the segments after splitting")

	return cmd
}

// request overlays the flags the user set onto the configured defaults.
func (f splitFlags) request(cmd *cobra.Command, defaults segment.Request, input string) segment.Request {
	req := defaults
	req.InputPath = input
	req.JobID = f.jobID

	flags := cmd.Flags()
	if flags.Changed("segment-seconds") {
		req.SegmentSeconds = f.segmentSeconds
	}
	if flags.Changed("prefix") {
		req.FilePrefix = f.prefix
	}
	if flags.Changed("snap-window") {
		req.SnapWindowSec = f.snapWindow
	}
	if flags.Changed("min-gap") {
		req.MinGapSec = f.minGap
	}
	if flags.Changed("padding") {
		req.PaddingSec = f.padding
	}
	if flags.Changed("prefer") {
		req.PreferBoundary = audio.Prefer(f.prefer)
	}
	if flags.Changed("noise") {
		req.NoiseThreshold = f.noise
	}
	if flags.Changed("min-silence") {
		req.MinSilenceSec = f.minSilence
	}
	req.EmitVideo = f.video
	req.VideoPrecise = f.videoPrecise
	return req
}

func (a *app) runSplit(cmd *cobra.Command, input string, f splitFlags) error {
	ctx := cmd.Context()

	deps, err := a.dependencies(ctx)
	if err != nil {
		return err
	}

	req := f.request(cmd, deps.Defaults, input)
	done, err := deps.SegmentService.Run(ctx, req, f.publish)
	if err != nil {
		return err
	}

	out := splitOutput{
		JobID:      done.ID,
		Status:     string(done.Status),
		AudioPaths: nonNil(done.AudioPaths),
		VideoPaths: nonNil(done.VideoPaths),
		OutputDir:  done.OutputDir,
		Message:    done.Message,
		Error:      done.Error,
		URLs:       done.URLs,
	}

	var transcribeErr error
	if f.transcribe && done.Status == job.StatusCompleted {
		out.Transcripts, transcribeErr = deps.SegmentService.Transcribe(ctx, done.ID, req.FilePrefix)
		out.Text = transcribe.JoinText(out.Transcripts)
	}

	if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
		return err
	}

	if done.Status != job.StatusCompleted {
		return fmt.Errorf("split failed: %s", done.Error)
	}
	if transcribeErr != nil {
		return fmt.Errorf("transcribe: %w", transcribeErr)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

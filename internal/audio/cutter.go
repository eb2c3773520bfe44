package audio

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ojeelafriend/meeting-notes-ai/internal/media"
)

// DefaultPrefix names segment files when no prefix is given.
const DefaultPrefix = "part"

// Kind tells audio segments from their viewer-grade video copies.
type Kind string

const (
	KindAudio Kind = "audio"
	KindVideo Kind = "video"
)

// SegmentFile is a materialized segment on disk.
type SegmentFile struct {
	Path  string
	Index int
	Kind  Kind
}

// CutOpts configures how plans are materialized.
type CutOpts struct {
	// Prefix names the files: <prefix>_<index>.<ext>. Default "part".
	Prefix string
	// EmitVideo also writes a video copy of every plan.
	EmitVideo bool
	// VideoPrecise re-encodes video for frame-accurate cuts instead of
	// stream-copying from the nearest keyframe.
	VideoPrecise bool
	// VideoExt is the extension of video copies, including the dot.
	// Defaults to the input extension, or ".mp4".
	VideoExt string
	// Workers bounds concurrent cuts. Values below 2 cut sequentially.
	Workers int
}

// CutResult lists the files written, ordered by index.
type CutResult struct {
	Audio []SegmentFile
	Video []SegmentFile
}

// Cutter materializes cut plans into segment files.
type Cutter interface {
	Cut(ctx context.Context, input, outputDir string, plans []CutPlan, opts CutOpts) (CutResult, error)
}

// FFmpegCutter implements Cutter with one ffmpeg invocation per file.
type FFmpegCutter struct {
	runner     media.Runner
	ffmpegPath string
	logger     *slog.Logger
}

// NewFFmpegCutter creates a new FFmpegCutter.
// If ffmpegPath is empty, it defaults to "ffmpeg" (found in PATH).
func NewFFmpegCutter(runner media.Runner, ffmpegPath string, logger *slog.Logger) *FFmpegCutter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FFmpegCutter{runner: runner, ffmpegPath: ffmpegPath, logger: logger}
}

// SegmentName returns the file name for a segment index. ext includes the dot.
func SegmentName(prefix string, index int, ext string) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return fmt.Sprintf("%s_%03d%s", prefix, index, ext)
}

// Cut writes a 16 kHz mono PCM WAV for every plan and, when requested, a
// video copy of the same interval. Files already written stay on disk if a
// later cut fails.
func (c *FFmpegCutter) Cut(ctx context.Context, input, outputDir string, plans []CutPlan, opts CutOpts) (CutResult, error) {
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if opts.VideoExt == "" {
		opts.VideoExt = filepath.Ext(input)
		if opts.VideoExt == "" {
			opts.VideoExt = ".mp4"
		}
	}

	audio := make([]SegmentFile, len(plans))
	var video []SegmentFile
	if opts.EmitVideo {
		video = make([]SegmentFile, len(plans))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Workers, 1))

	for i, plan := range plans {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			wav := filepath.Join(outputDir, SegmentName(opts.Prefix, plan.Index, ".wav"))
			if err := c.run(gctx, audioCutArgs(input, plan, wav)); err != nil {
				return fmt.Errorf("cut audio segment %d: %w", plan.Index, err)
			}
			audio[i] = SegmentFile{Path: wav, Index: plan.Index, Kind: KindAudio}

			if !opts.EmitVideo {
				return nil
			}
			out := filepath.Join(outputDir, SegmentName(opts.Prefix, plan.Index, opts.VideoExt))
			if err := c.run(gctx, videoCutArgs(input, plan, out, opts.VideoPrecise)); err != nil {
				return fmt.Errorf("cut video segment %d: %w", plan.Index, err)
			}
			video[i] = SegmentFile{Path: out, Index: plan.Index, Kind: KindVideo}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return CutResult{}, err
	}

	c.logger.Debug("segments cut",
		slog.String("output_dir", outputDir),
		slog.Int("plans", len(plans)),
		slog.Bool("video", opts.EmitVideo),
	)
	return CutResult{Audio: audio, Video: video}, nil
}

func (c *FFmpegCutter) run(ctx context.Context, args []string) error {
	res, err := c.runner.Run(ctx, c.ffmpegPath, args)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return media.NewToolError("ffmpeg", args, res)
	}
	return nil
}

// audioCutArgs decodes first and seeks afterwards so the cut is sample
// accurate, then drops every non-audio stream and resamples to 16 kHz mono.
func audioCutArgs(input string, plan CutPlan, output string) []string {
	return []string{
		"-hide_banner",
		"-i", input,
		"-ss", formatSeconds(plan.Start),
		"-to", formatSeconds(plan.End),
		"-vn", "-sn", "-dn",
		"-af", "aresample=async=1:first_pts=0",
		"-ar", "16000",
		"-ac", "1",
		"-c:a", "pcm_s16le",
		"-y", output,
	}
}

// videoCutArgs builds either a keyframe-bound stream copy (input seeking)
// or a frame-accurate libx264/aac re-encode.
func videoCutArgs(input string, plan CutPlan, output string, precise bool) []string {
	var args []string
	if precise {
		args = []string{
			"-hide_banner",
			"-i", input,
			"-ss", formatSeconds(plan.Start),
			"-to", formatSeconds(plan.End),
			"-c:v", "libx264",
			"-preset", "veryfast",
			"-crf", "22",
			"-c:a", "aac",
			"-b:a", "128k",
		}
	} else {
		args = []string{
			"-hide_banner",
			"-ss", formatSeconds(plan.Start),
			"-to", formatSeconds(plan.End),
			"-i", input,
			"-c", "copy",
			"-copyts",
			"-avoid_negative_ts", "make_zero",
		}
	}
	if isMP4Family(output) {
		args = append(args, "-movflags", "+faststart")
	}
	return append(args, "-y", output)
}

func isMP4Family(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp4", ".m4v", ".m4a", ".mov":
		return true
	}
	return false
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

var _ Cutter = (*FFmpegCutter)(nil)

// Package audio turns silence analysis into segment boundaries and cuts
// media files into ordered, index-named audio (and optional video) segments.
package audio

import (
	"bufio"
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/ojeelafriend/meeting-notes-ai/internal/media"
)

// Default silence detection parameters.
const (
	DefaultNoiseThreshold = "-30dB"
	DefaultMinSilenceSec  = 0.35
)

// SilenceInterval is a span where the level stayed below the noise threshold.
type SilenceInterval struct {
	Start    float64
	End      float64
	Duration float64
}

// DetectOpts configures silence detection.
type DetectOpts struct {
	// NoiseThreshold is passed verbatim to silencedetect, e.g. "-30dB".
	NoiseThreshold string
	// MinSilenceSec is the shortest span reported as silence.
	MinSilenceSec float64
}

// DefaultDetectOpts returns the default detection options.
func DefaultDetectOpts() DetectOpts {
	return DetectOpts{
		NoiseThreshold: DefaultNoiseThreshold,
		MinSilenceSec:  DefaultMinSilenceSec,
	}
}

// Detector finds silence intervals in a media file.
type Detector interface {
	// Detect returns the silence intervals of path sorted by start.
	Detect(ctx context.Context, path string, opts DetectOpts) ([]SilenceInterval, error)
}

// FFmpegDetector implements Detector with ffmpeg's silencedetect filter.
type FFmpegDetector struct {
	runner     media.Runner
	ffmpegPath string
}

// NewFFmpegDetector creates a new FFmpegDetector.
// If ffmpegPath is empty, it defaults to "ffmpeg" (found in PATH).
func NewFFmpegDetector(runner media.Runner, ffmpegPath string) *FFmpegDetector {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &FFmpegDetector{runner: runner, ffmpegPath: ffmpegPath}
}

// Detect runs one full pass of silencedetect over path and parses the
// diagnostic stream ffmpeg writes to stderr.
func (d *FFmpegDetector) Detect(ctx context.Context, path string, opts DetectOpts) ([]SilenceInterval, error) {
	if opts.NoiseThreshold == "" {
		opts.NoiseThreshold = DefaultNoiseThreshold
	}
	if opts.MinSilenceSec <= 0 {
		opts.MinSilenceSec = DefaultMinSilenceSec
	}

	filter := fmt.Sprintf("silencedetect=noise=%s:d=%s",
		opts.NoiseThreshold,
		strconv.FormatFloat(opts.MinSilenceSec, 'f', -1, 64),
	)
	args := []string{
		"-hide_banner",
		"-i", path,
		"-af", filter,
		"-f", "null",
		"-",
	}

	res, err := d.runner.Run(ctx, d.ffmpegPath, args)
	if err != nil {
		return nil, fmt.Errorf("silencedetect: %w", err)
	}
	if res.ExitCode != 0 {
		return nil, media.NewToolError("ffmpeg", args, res)
	}

	return ParseSilenceOutput(res.Stderr), nil
}

var (
	silenceStartRe = regexp.MustCompile(`silence_start:\s*(-?[0-9.]+)`)
	silenceEndRe   = regexp.MustCompile(`silence_end:\s*(-?[0-9.]+)\s*\|\s*silence_duration:\s*([0-9.]+)`)
)

// ParseSilenceOutput extracts silence intervals from silencedetect output.
//
// A start marker opens a pending interval and the next end marker closes
// it. A start followed by another start loses the first one; an end with
// nothing pending is ignored.
func ParseSilenceOutput(output string) []SilenceInterval {
	var intervals []SilenceInterval
	var pending *float64

	scanner := bufio.NewScanner(strings.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		if m := silenceStartRe.FindStringSubmatch(line); m != nil {
			start, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				continue
			}
			start = max(start, 0)
			pending = &start
			continue
		}

		m := silenceEndRe.FindStringSubmatch(line)
		if m == nil || pending == nil {
			continue
		}
		end, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		dur, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		if end > *pending {
			intervals = append(intervals, SilenceInterval{Start: *pending, End: end, Duration: dur})
		}
		pending = nil
	}

	slices.SortStableFunc(intervals, func(a, b SilenceInterval) int {
		switch {
		case a.Start < b.Start:
			return -1
		case a.Start > b.Start:
			return 1
		}
		return 0
	})
	return intervals
}

var _ Detector = (*FFmpegDetector)(nil)

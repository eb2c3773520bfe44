package media

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidDuration is returned when the probe output is not a finite,
// positive number of seconds.
var ErrInvalidDuration = errors.New("invalid duration")

// Prober obtains the total duration of a media file.
type Prober interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// ProbeError is returned when the duration of Path could not be determined.
type ProbeError struct {
	Path string
	Err  error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe %s: %v", e.Path, e.Err)
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}

// FFprobeProber implements Prober with a single ffprobe invocation.
type FFprobeProber struct {
	runner      Runner
	ffprobePath string
}

// NewFFprobeProber creates a FFprobeProber.
// If ffprobePath is empty, it defaults to "ffprobe" (found via PATH).
func NewFFprobeProber(runner Runner, ffprobePath string) *FFprobeProber {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFprobeProber{runner: runner, ffprobePath: ffprobePath}
}

// Duration returns the container duration of path in seconds.
func (p *FFprobeProber) Duration(ctx context.Context, path string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}

	res, err := p.runner.Run(ctx, p.ffprobePath, args)
	if err != nil {
		return 0, &ProbeError{Path: path, Err: err}
	}
	if res.ExitCode != 0 {
		return 0, &ProbeError{Path: path, Err: NewToolError("ffprobe", args, res)}
	}

	d, err := ParseDuration(res.Stdout)
	if err != nil {
		return 0, &ProbeError{Path: path, Err: err}
	}
	return d, nil
}

// ParseDuration parses ffprobe's bare duration output.
func ParseDuration(out string) (float64, error) {
	s := strings.TrimSpace(out)
	d, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
	}
	if math.IsNaN(d) || math.IsInf(d, 0) || d <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
	}
	return d, nil
}

var _ Prober = (*FFprobeProber)(nil)

// Package media runs the external media tools (ffmpeg and ffprobe) and
// provides the duration probe used before a file is segmented.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// stderrTailLines is the number of trailing diagnostic lines kept on failure.
const stderrTailLines = 8

// Static errors for tool execution.
var (
	// ErrToolNotFound is returned when an external binary cannot be resolved.
	ErrToolNotFound = errors.New("media: external tool not found")
)

// Result is the outcome of one external process invocation.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner abstracts external process execution.
//
// Run returns a nil error when the process ran to completion, whatever its
// exit code; callers inspect Result.ExitCode. A non-nil error means the
// process could not be started or the context ended before it exited.
type Runner interface {
	Run(ctx context.Context, name string, args []string) (Result, error)
}

// ExecRunner implements Runner with os/exec.
type ExecRunner struct {
	logger *slog.Logger
}

// NewExecRunner creates an ExecRunner. A nil logger uses slog.Default().
func NewExecRunner(logger *slog.Logger) *ExecRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecRunner{logger: logger}
}

// Run executes name with args and waits for it to exit.
func (r *ExecRunner) Run(ctx context.Context, name string, args []string) (Result, error) {
	// #nosec G204 - binary paths come from configuration, not request input
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Debug("running external tool",
		slog.String("tool", name),
		slog.Int("args", len(args)),
	)

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		if ctx.Err() != nil {
			return res, fmt.Errorf("%s cancelled: %w", name, ctx.Err())
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, fmt.Errorf("start %s: %w", name, err)
	}
	return res, nil
}

// ToolError describes an external tool that exited non-zero. StderrTail
// holds the last lines of its diagnostic output.
type ToolError struct {
	Tool       string
	Args       []string
	ExitCode   int
	StderrTail string
}

// NewToolError builds a ToolError from a finished invocation.
func NewToolError(tool string, args []string, res Result) *ToolError {
	return &ToolError{
		Tool:       tool,
		Args:       args,
		ExitCode:   res.ExitCode,
		StderrTail: Tail(res.Stderr, stderrTailLines),
	}
}

func (e *ToolError) Error() string {
	if e.StderrTail == "" {
		return fmt.Sprintf("%s exited with code %d", e.Tool, e.ExitCode)
	}
	return fmt.Sprintf("%s exited with code %d: %s", e.Tool, e.ExitCode, e.StderrTail)
}

// Tail returns the last n non-empty lines of s joined by newlines.
func Tail(s string, n int) string {
	var lines []string
	for _, ln := range strings.Split(s, "\n") {
		ln = strings.TrimRight(ln, "\r ")
		if ln != "" {
			lines = append(lines, ln)
		}
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

// Tools holds resolved paths of the external binaries.
type Tools struct {
	FFmpeg  string
	FFprobe string
}

// LookupTools resolves the ffmpeg and ffprobe binaries. Empty names default
// to "ffmpeg" and "ffprobe" looked up in PATH.
func LookupTools(ffmpegPath, ffprobePath string) (Tools, error) {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}

	ffmpeg, err := exec.LookPath(ffmpegPath)
	if err != nil {
		return Tools{}, fmt.Errorf("%w: %s", ErrToolNotFound, ffmpegPath)
	}
	ffprobe, err := exec.LookPath(ffprobePath)
	if err != nil {
		return Tools{}, fmt.Errorf("%w: %s", ErrToolNotFound, ffprobePath)
	}
	return Tools{FFmpeg: ffmpeg, FFprobe: ffprobe}, nil
}

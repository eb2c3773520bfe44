// Package mediatest provides a scripted media.Runner for tests.
package mediatest

import (
	"context"
	"os"
	"slices"
	"sync"

	"github.com/ojeelafriend/meeting-notes-ai/internal/media"
)

// Call is one recorded invocation.
type Call struct {
	Name string
	Args []string
}

// HandlerFunc answers an invocation.
type HandlerFunc func(name string, args []string) (media.Result, error)

// Runner records invocations and answers them with Handler. When
// CreateOutputs is set, every successful call carrying "-y" gets its last
// argument created as an empty file, mimicking ffmpeg writing its output.
type Runner struct {
	Handler       HandlerFunc
	CreateOutputs bool

	mu    sync.Mutex
	calls []Call
}

// Run implements media.Runner.
func (r *Runner) Run(ctx context.Context, name string, args []string) (media.Result, error) {
	r.mu.Lock()
	r.calls = append(r.calls, Call{Name: name, Args: append([]string(nil), args...)})
	r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return media.Result{}, err
	}

	var res media.Result
	if r.Handler != nil {
		var err error
		res, err = r.Handler(name, args)
		if err != nil {
			return res, err
		}
	}

	if r.CreateOutputs && res.ExitCode == 0 && slices.Contains(args, "-y") {
		if err := os.WriteFile(args[len(args)-1], nil, 0o600); err != nil {
			return res, err
		}
	}
	return res, nil
}

// Calls returns a copy of the recorded invocations.
func (r *Runner) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// CallsTo returns the recorded invocations of name.
func (r *Runner) CallsTo(name string) []Call {
	var out []Call
	for _, c := range r.Calls() {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

var _ media.Runner = (*Runner)(nil)

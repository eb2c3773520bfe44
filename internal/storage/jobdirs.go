package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DefaultRoot is the uploads root used when none is configured.
const DefaultRoot = "./uploads"

// Static errors for job directories.
var (
	ErrInvalidJobID          = errors.New("storage: invalid job id")
	ErrDirectoryInaccessible = errors.New("storage: job directory is not accessible")
)

// JobDirs maps job ids to exclusive output directories under one root.
type JobDirs struct {
	root string
}

// NewJobDirs creates a JobDirs rooted at root, made absolute.
// If root is empty, DefaultRoot is used. Nothing is created until Ensure.
func NewJobDirs(root string) (*JobDirs, error) {
	if root == "" {
		root = DefaultRoot
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve uploads root: %w", err)
	}
	return &JobDirs{root: abs}, nil
}

// Root returns the absolute uploads root.
func (d *JobDirs) Root() string {
	return d.root
}

// Resolve returns the absolute directory of jobID without touching disk.
func (d *JobDirs) Resolve(jobID string) (string, error) {
	if err := validateJobID(jobID); err != nil {
		return "", err
	}
	return filepath.Join(d.root, jobID), nil
}

// Ensure creates the root and the job directory if absent, then checks the
// directory can be listed. It is idempotent.
func (d *JobDirs) Ensure(ctx context.Context, jobID string) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	dir, err := d.Resolve(jobID)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(d.root, 0750); err != nil {
		return "", fmt.Errorf("create uploads root: %w", err)
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("create job directory: %w", err)
	}
	if err := checkAccessible(dir); err != nil {
		return "", err
	}
	return dir, nil
}

// Remove deletes the job directory and everything in it.
// A missing directory is not an error.
func (d *JobDirs) Remove(ctx context.Context, jobID string) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	dir, err := d.Resolve(jobID)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove job directory: %w", err)
	}
	return nil
}

func checkAccessible(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDirectoryInaccessible, dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrDirectoryInaccessible, dir)
	}
	f, err := os.Open(dir) // #nosec G304 - dir is derived from the configured root
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDirectoryInaccessible, dir, err)
	}
	defer func() { _ = f.Close() }()
	if _, err := f.Readdirnames(1); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %s: %v", ErrDirectoryInaccessible, dir, err)
	}
	return nil
}

// validateJobID keeps ids to a single path element so no two jobs can
// share or escape into each other's directory.
func validateJobID(jobID string) error {
	switch {
	case strings.TrimSpace(jobID) == "":
		return fmt.Errorf("%w: empty", ErrInvalidJobID)
	case jobID == "." || jobID == "..":
		return fmt.Errorf("%w: %q", ErrInvalidJobID, jobID)
	case strings.ContainsAny(jobID, `/\`+"\x00"):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidJobID, jobID)
	}
	return nil
}

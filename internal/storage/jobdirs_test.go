package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestNewJobDirs(t *testing.T) {
	t.Run("makes root absolute without creating it", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "uploads")

		dirs, err := NewJobDirs(root)
		if err != nil {
			t.Fatalf("NewJobDirs() error = %v", err)
		}
		if dirs.Root() != root {
			t.Errorf("Root() = %v, want %v", dirs.Root(), root)
		}
		if _, err := os.Stat(root); !os.IsNotExist(err) {
			t.Errorf("root should not exist yet, stat err = %v", err)
		}
	})

	t.Run("uses default root when empty", func(t *testing.T) {
		dirs, err := NewJobDirs("")
		if err != nil {
			t.Fatalf("NewJobDirs() error = %v", err)
		}
		want, _ := filepath.Abs(DefaultRoot)
		if dirs.Root() != want {
			t.Errorf("Root() = %v, want %v", dirs.Root(), want)
		}
	})
}

func TestJobDirs_Resolve(t *testing.T) {
	dirs := setupJobDirs(t)

	dir, err := dirs.Resolve("abc123")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if dir != filepath.Join(dirs.Root(), "abc123") {
		t.Errorf("Resolve() = %v", dir)
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("Resolve() = %v, want absolute path", dir)
	}

	for _, id := range []string{"", "  ", ".", "..", "../escape", "a/b", `a\b`} {
		if _, err := dirs.Resolve(id); !errors.Is(err, ErrInvalidJobID) {
			t.Errorf("Resolve(%q) error = %v, want ErrInvalidJobID", id, err)
		}
	}
}

func TestJobDirs_Ensure(t *testing.T) {
	ctx := context.Background()

	t.Run("creates root and job directory", func(t *testing.T) {
		dirs := setupJobDirs(t)

		dir, err := dirs.Ensure(ctx, "job1")
		if err != nil {
			t.Fatalf("Ensure() error = %v", err)
		}
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("directory not created: %v", err)
		}
		if !info.IsDir() {
			t.Error("expected directory, got file")
		}
	})

	t.Run("is idempotent and keeps existing files", func(t *testing.T) {
		dirs := setupJobDirs(t)

		dir, err := dirs.Ensure(ctx, "job1")
		if err != nil {
			t.Fatalf("Ensure() error = %v", err)
		}
		keep := filepath.Join(dir, "part_000.wav")
		if err := os.WriteFile(keep, []byte("data"), 0644); err != nil {
			t.Fatal(err)
		}

		again, err := dirs.Ensure(ctx, "job1")
		if err != nil {
			t.Fatalf("second Ensure() error = %v", err)
		}
		if again != dir {
			t.Errorf("Ensure() = %v, want %v", again, dir)
		}
		if _, err := os.Stat(keep); err != nil {
			t.Errorf("existing file lost: %v", err)
		}
	})

	t.Run("fails when the job path is a file", func(t *testing.T) {
		dirs := setupJobDirs(t)
		if err := os.MkdirAll(dirs.Root(), 0750); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dirs.Root(), "taken"), nil, 0644); err != nil {
			t.Fatal(err)
		}

		if _, err := dirs.Ensure(ctx, "taken"); err == nil {
			t.Error("expected error when job path is a regular file")
		}
	})

	t.Run("rejects invalid job id before touching disk", func(t *testing.T) {
		dirs := setupJobDirs(t)

		if _, err := dirs.Ensure(ctx, "../x"); !errors.Is(err, ErrInvalidJobID) {
			t.Errorf("expected ErrInvalidJobID, got %v", err)
		}
		if _, err := os.Stat(dirs.Root()); !os.IsNotExist(err) {
			t.Error("root should not be created for an invalid id")
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := setupJobDirs(t).Ensure(ctx, "job1")
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestJobDirs_Remove(t *testing.T) {
	ctx := context.Background()
	dirs := setupJobDirs(t)

	dir, err := dirs.Ensure(ctx, "gone")
	if err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "part_000.wav"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := dirs.Remove(ctx, "gone"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("directory %s still exists", dir)
	}

	t.Run("ignores missing directory", func(t *testing.T) {
		if err := dirs.Remove(ctx, "never-created"); err != nil {
			t.Errorf("Remove() should ignore missing directory, got %v", err)
		}
	})
}

func setupJobDirs(t *testing.T) *JobDirs {
	t.Helper()
	dirs, err := NewJobDirs(filepath.Join(t.TempDir(), "uploads"))
	if err != nil {
		t.Fatalf("failed to create job dirs: %v", err)
	}
	return dirs
}

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ojeelafriend/meeting-notes-ai/internal/audio"
	"github.com/ojeelafriend/meeting-notes-ai/internal/segment"
	"github.com/ojeelafriend/meeting-notes-ai/internal/storage"
	"github.com/ojeelafriend/meeting-notes-ai/internal/transcribe"
)

// setupEnv points the configuration at a temporary uploads root and returns it.
func setupEnv(t *testing.T) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "uploads")
	t.Setenv("UPLOADS_ROOT", root)
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("TRANSCRIBE_API_KEY", "")
	t.Setenv("S3_BUCKET", "")
	t.Setenv("MINIO_ENDPOINT", "")
	return root
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append(args, "--env-file", "", "--quiet"))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("RIFF"), 0644))
	}
}

func TestSegmentsCommand(t *testing.T) {
	root := setupEnv(t)
	writeFiles(t, filepath.Join(root, "job1"),
		"part_010.wav", "part_002.wav", "part_001.mp4", "notes.txt", "manifest.yaml")

	out, err := execute(t, "segments", "job1")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "part_001.mp4", filepath.Base(lines[0]))
	assert.Equal(t, "part_002.wav", filepath.Base(lines[1]))
	assert.Equal(t, "part_010.wav", filepath.Base(lines[2]))
}

func TestSegmentsCommand_ExtAndJSON(t *testing.T) {
	root := setupEnv(t)
	writeFiles(t, filepath.Join(root, "job2"), "clip_000.wav", "clip_000.mp4", "clip_001.wav")

	out, err := execute(t, "segments", "job2", "--prefix", "clip", "--ext", "wav", "--json")
	require.NoError(t, err)

	var paths []string
	require.NoError(t, json.Unmarshal([]byte(out), &paths))
	require.Len(t, paths, 2)
	assert.Equal(t, "clip_000.wav", filepath.Base(paths[0]))
	assert.Equal(t, "clip_001.wav", filepath.Base(paths[1]))
}

func TestSegmentsCommand_Manifest(t *testing.T) {
	root := setupEnv(t)
	dir := filepath.Join(root, "job4")
	writeFiles(t, dir, "part_000.wav")
	require.NoError(t, segment.WriteManifest(dir, segment.Manifest{
		JobID:      "job4",
		Boundaries: []float64{0, 42},
		Audio:      []string{"part_000.wav"},
	}))

	out, err := execute(t, "segments", "job4", "--manifest")
	require.NoError(t, err)

	var m segment.Manifest
	require.NoError(t, json.Unmarshal([]byte(out), &m))
	assert.Equal(t, "job4", m.JobID)
	assert.Equal(t, []float64{0, 42}, m.Boundaries)
}

func TestSegmentsCommand_MissingDirectory(t *testing.T) {
	setupEnv(t)

	_, err := execute(t, "segments", "nope")
	assert.Error(t, err)
}

func TestSplitCommand_InvalidSegmentSeconds(t *testing.T) {
	root := setupEnv(t)

	out, err := execute(t, "split", "/media/meeting.mp4", "--job-id", "bad", "--segment-seconds", "0")
	require.Error(t, err)

	var res splitOutput
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "FAILED", res.Status)
	assert.Equal(t, segment.ErrInvalidSegmentSeconds.Error(), res.Error)
	assert.Empty(t, res.AudioPaths)
	assert.NotNil(t, res.AudioPaths)

	// Validation fails before the job directory is created
	assert.NoDirExists(t, filepath.Join(root, "bad"))
}

func TestSplitCommand_PrefixOutsideJobDirectory(t *testing.T) {
	root := setupEnv(t)

	out, err := execute(t, "split", "/media/meeting.mp4", "--job-id", "jobA", "--prefix", "../jobB/part")
	require.Error(t, err)

	var res splitOutput
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, segment.ErrInvalidFilePrefix.Error(), res.Error)
	assert.NoDirExists(t, filepath.Join(root, "jobA"))
	assert.NoDirExists(t, filepath.Join(root, "jobB"))
}

func TestSplitCommand_PublishWithoutStorage(t *testing.T) {
	root := setupEnv(t)

	_, err := execute(t, "split", "/media/meeting.mp4", "--job-id", "pub", "--publish")
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrPublisherNotConfigured)
	assert.NoDirExists(t, filepath.Join(root, "pub"))
}

func TestSplitCommand_MissingTools(t *testing.T) {
	setupEnv(t)
	t.Setenv("FFMPEG_PATH", "/nonexistent/bin/ffmpeg")

	out, err := execute(t, "split", "/media/meeting.mp4", "--job-id", "notools")
	require.Error(t, err)
	assert.Contains(t, err.Error(), segment.ErrToolsUnavailable.Error())

	var res splitOutput
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "notools", res.JobID)
	assert.Equal(t, segment.ErrToolsUnavailable.Error(), res.Error)
}

func TestRootCommand_InvalidConfig(t *testing.T) {
	setupEnv(t)
	t.Setenv("SEGMENT_SECONDS", "-1")

	_, err := execute(t, "segments", "job")
	assert.Error(t, err)
}

func TestRootCommand_EnvFile(t *testing.T) {
	root := setupEnv(t)
	t.Setenv("FILE_PREFIX", "")
	os.Unsetenv("FILE_PREFIX")

	envFile := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("FILE_PREFIX=chunk\n"), 0644))
	writeFiles(t, filepath.Join(root, "job3"), "chunk_000.wav", "part_000.wav")

	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"segments", "job3", "--env-file", envFile, "--quiet"})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, "chunk_000.wav", filepath.Base(strings.TrimSpace(out.String())))
}

func TestSplitFlags_Request(t *testing.T) {
	defaults := segment.NewRequest("", "", 60)
	cmd := newSplitCmd(&app{})
	require.NoError(t, cmd.ParseFlags([]string{
		"--job-id", "j1",
		"--snap-window", "0",
		"--prefer", "both",
		"--noise", "-40dB",
		"--video",
	}))

	var f splitFlags
	f.jobID = "j1"
	f.prefer = "both"
	f.noise = "-40dB"
	f.video = true
	req := f.request(cmd, defaults, "in.mp4")

	assert.Equal(t, "in.mp4", req.InputPath)
	assert.Equal(t, "j1", req.JobID)
	assert.Equal(t, 60.0, req.SegmentSeconds)
	assert.Equal(t, 0.0, req.SnapWindowSec)
	assert.Equal(t, audio.PreferBoth, req.PreferBoundary)
	assert.Equal(t, "-40dB", req.NoiseThreshold)
	assert.Equal(t, defaults.PaddingSec, req.PaddingSec)
	assert.True(t, req.EmitVideo)
}

func TestTranscribeCommand(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprintf(w, "text of %s\n", header.Filename)
	}))
	defer server.Close()

	root := setupEnv(t)
	t.Setenv("TRANSCRIBE_API_KEY", "sk-test")
	t.Setenv("TRANSCRIBE_URL", server.URL)
	t.Setenv("TRANSCRIBE_RATE_PER_MIN", "0")
	writeFiles(t, filepath.Join(root, "talk"), "part_001.wav", "part_000.wav", "part_000.mp4")

	out, err := execute(t, "transcribe", "talk")
	require.NoError(t, err)
	assert.Equal(t, "text of part_000.wav\ntext of part_001.wav\n", out)

	outFile := filepath.Join(t.TempDir(), "talk.json")
	_, err = execute(t, "transcribe", "talk", "--json", "-o", outFile)
	require.NoError(t, err)

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	var transcripts []transcribe.Transcript
	require.NoError(t, json.Unmarshal(data, &transcripts))
	require.Len(t, transcripts, 2)
	assert.Equal(t, 1, transcripts[1].Index)
}

func TestTranscribeCommand_NotConfigured(t *testing.T) {
	root := setupEnv(t)
	writeFiles(t, filepath.Join(root, "talk"), "part_000.wav")

	_, err := execute(t, "transcribe", "talk")
	assert.Error(t, err)
}

func TestServe(t *testing.T) {
	setupEnv(t)

	a := &app{}
	require.NoError(t, a.setup())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.serve(ctx, ln, []string{"*"}) }()

	url := "http://" + ln.Addr().String() + "/health"
	assert.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

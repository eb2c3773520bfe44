package audio

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ojeelafriend/meeting-notes-ai/internal/media"
)

// checkFFmpeg skips test if ffmpeg or ffprobe is not available.
func checkFFmpeg(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping ffmpeg integration test in short mode")
	}
	for _, tool := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(tool); err != nil {
			t.Skipf("%s not found in PATH, skipping test", tool)
		}
	}
}

// createTestWAV renders an aevalsrc expression to a 16 kHz mono WAV.
func createTestWAV(t *testing.T, outputPath, expr string) {
	t.Helper()

	cmd := exec.Command("ffmpeg", "-y",
		"-f", "lavfi", "-i", "aevalsrc="+expr,
		"-ar", "16000", "-ac", "1",
		outputPath,
	)
	out, _ := cmd.CombinedOutput()
	if _, err := os.Stat(outputPath); os.IsNotExist(err) {
		t.Fatalf("failed to create test WAV: %s", string(out))
	}
}

func TestPipeline_Integration(t *testing.T) {
	checkFFmpeg(t)

	tmpDir := t.TempDir()
	input := filepath.Join(tmpDir, "meeting.wav")
	createTestWAV(t, input, "'if(between(t,59,61),0,0.5*sin(440*2*PI*t))':s=16000:d=130")

	ctx := context.Background()
	runner := media.NewExecRunner(nil)

	duration, err := media.NewFFprobeProber(runner, "").Duration(ctx, input)
	require.NoError(t, err)
	assert.InDelta(t, 130.0, duration, 0.1)

	silences, err := NewFFmpegDetector(runner, "").Detect(ctx, input, DefaultDetectOpts())
	require.NoError(t, err)
	require.NotEmpty(t, silences)
	assert.InDelta(t, 61.0, silences[0].End, 0.2)

	bounds := SnapBoundaries(duration, silences, DefaultSnapOpts(60))
	require.Len(t, bounds, 4)
	assert.InDelta(t, 61.0, bounds[1], 0.2)

	plans := BuildCutPlans(bounds, duration, DefaultPaddingSec)
	require.Len(t, plans, 3)

	outDir := filepath.Join(tmpDir, "out")
	require.NoError(t, os.MkdirAll(outDir, 0755))

	res, err := NewFFmpegCutter(runner, "", nil).Cut(ctx, input, outDir, plans, CutOpts{Workers: 2})
	require.NoError(t, err)
	require.Len(t, res.Audio, 3)

	paths, err := ListSegments(outDir, "part")
	require.NoError(t, err)
	require.Len(t, paths, 3)
	for i, p := range paths {
		assert.Equal(t, res.Audio[i].Path, p)
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(44), "segment %d has no samples", i)
	}
}

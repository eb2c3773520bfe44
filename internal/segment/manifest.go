package segment

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ojeelafriend/meeting-notes-ai/internal/audio"
)

// ManifestName is the file written next to the segments of a finished job.
const ManifestName = "manifest.yaml"

// Manifest records how a job directory was produced.
type Manifest struct {
	JobID           string          `json:"job_id" yaml:"job_id"`
	InputPath       string          `json:"input_path" yaml:"input_path"`
	DurationSeconds float64         `json:"duration_seconds" yaml:"duration_seconds"`
	CreatedAt       time.Time       `json:"created_at" yaml:"created_at"`
	Request         Request         `json:"request" yaml:"request"`
	Silences        int             `json:"silences" yaml:"silences"`
	Boundaries      []float64       `json:"boundaries" yaml:"boundaries"`
	Plans           []audio.CutPlan `json:"plans" yaml:"plans"`
	Audio           []string        `json:"audio" yaml:"audio"`
	Video           []string        `json:"video,omitempty" yaml:"video,omitempty"`
}

// WriteManifest stores m as <dir>/manifest.yaml.
func WriteManifest(dir string, m Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestName), data, 0600); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// ReadManifest loads <dir>/manifest.yaml.
func ReadManifest(dir string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(filepath.Join(dir, ManifestName)) // #nosec G304 - dir is a job directory
	if err != nil {
		return m, fmt.Errorf("read manifest: %w", err)
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("decode manifest: %w", err)
	}
	return m, nil
}

func fileNames(files []audio.SegmentFile) []string {
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = filepath.Base(f.Path)
	}
	return names
}

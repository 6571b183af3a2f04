// Package manifest emits a machine-readable record of everything a build
// produced, written to the root of the output tree. Deployment tooling and
// the verify command consume it to know which artifacts exist without
// rescanning the tree.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the manifest's location relative to the output root.
const FileName = "manifest.yaml"

// Artifact is one produced file in the output tree.
type Artifact struct {
	Path     string `yaml:"path"`     // relative to the output root
	Category string `yaml:"category"` // category key, or "cname" for the CNAME file
	Size     int64  `yaml:"size"`
	SHA256   string `yaml:"sha256"`
	Source   string `yaml:"source,omitempty"` // source-relative origin, empty for generated files
}

// Manifest describes a single pipeline run.
type Manifest struct {
	RunID       string     `yaml:"run_id"`
	GeneratedAt time.Time  `yaml:"generated_at"`
	BaseURL     string     `yaml:"base_url"`
	Artifacts   []Artifact `yaml:"artifacts"`
}

// New builds a manifest with artifacts sorted by path so that reruns over an
// unchanged tree differ only in run id and timestamp.
func New(runID, baseURL string, artifacts []Artifact) *Manifest {
	sorted := make([]Artifact, len(artifacts))
	copy(sorted, artifacts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })
	return &Manifest{
		RunID:       runID,
		GeneratedAt: time.Now().UTC(),
		BaseURL:     baseURL,
		Artifacts:   sorted,
	}
}

// Write serializes the manifest into outputDir.
func (m *Manifest) Write(outputDir string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	path := filepath.Join(outputDir, FileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// Read loads a previously written manifest from outputDir.
func Read(outputDir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(outputDir, FileName))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}
	return &m, nil
}

package pipeline

import (
	"time"

	"git.home.luguber.info/inful/assetbuilder/internal/manifest"
)

// Report aggregates the outcome of one pipeline run.
type Report struct {
	RunID           string
	Started         time.Time
	Duration        time.Duration
	Outcome         string // success|failed|canceled
	FilesCopied     int
	ImagesConverted int
	FilesMinified   int
	StageDurations  map[string]time.Duration
	Artifacts       []manifest.Artifact
	Warnings        []*StageError
	Errors          []*StageError
}

func newReport(runID string) *Report {
	return &Report{
		RunID:          runID,
		Started:        time.Now(),
		Outcome:        "success",
		StageDurations: make(map[string]time.Duration),
	}
}

// addArtifact records a produced output file for the manifest stage.
func (r *Report) addArtifact(relPath, categoryKey, source string) {
	r.Artifacts = append(r.Artifacts, manifest.Artifact{
		Path:     relPath,
		Category: categoryKey,
		Source:   source,
	})
}

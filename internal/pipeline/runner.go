// Package pipeline implements the asset build: it mirrors the source tree
// into the output tree, converts raster images to WebP, minifies stylesheets
// and scripts, and records everything it produced in a manifest. The run is
// sequential and fail-fast: the first fatal stage error aborts the build.
package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/assetbuilder/internal/category"
	"git.home.luguber.info/inful/assetbuilder/internal/config"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/metrics"
	"git.home.luguber.info/inful/assetbuilder/internal/tools"
)

// categoryDir pairs a mirrored source subdirectory with the categories whose
// files live in it. The directory name may be overridden in configuration;
// the conventional name keys the category table.
type categoryDir struct {
	conventional string // "images", "css", "js", "data", "md"
	dir          string // configured directory name
	categories   []category.Category
}

// BuildState carries mutable state across stages.
type BuildState struct {
	Config     *config.Config
	SourceRoot string
	OutputRoot string
	Dirs       []categoryDir
	Converter  tools.Tool
	CSSMin     tools.Tool
	JSMin      tools.Tool
	Report     *Report
	Recorder   metrics.Recorder
}

// Runner executes the asset pipeline.
type Runner struct {
	cfg      *config.Config
	recorder metrics.Recorder
}

// Option customizes a Runner.
type Option func(*Runner)

// WithRecorder injects a metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(run *Runner) { run.recorder = r }
}

// NewRunner creates a pipeline runner for the given configuration.
func NewRunner(cfg *config.Config, opts ...Option) *Runner {
	r := &Runner{cfg: cfg, recorder: metrics.NoopRecorder{}}
	for _, o := range opts {
		o(r)
	}
	return r
}

// buildDirs assembles the mirrored directory list from the category table
// and the configured directory names.
func buildDirs(cfg *config.Config) []categoryDir {
	var dirs []categoryDir
	for _, conventional := range category.SourceDirs() {
		var cats []category.Category
		for _, c := range category.Table {
			if c.SourceDir == conventional {
				cats = append(cats, c)
			}
		}
		dirs = append(dirs, categoryDir{
			conventional: conventional,
			dir:          cfg.Build.DirFor(conventional),
			categories:   cats,
		})
	}
	return dirs
}

// Run executes all stages. The returned report is non-nil even on failure.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	runID := uuid.NewString()
	bs := &BuildState{
		Config:     r.cfg,
		SourceRoot: r.cfg.Paths.SourceDir,
		OutputRoot: r.cfg.Paths.OutputDir,
		Dirs:       buildDirs(r.cfg),
		Converter:  tools.NewTool("image_converter", r.cfg.Tools.ImageConverter),
		CSSMin:     tools.NewTool("css_minifier", r.cfg.Tools.CSSMinifier),
		JSMin:      tools.NewTool("js_minifier", r.cfg.Tools.JSMinifier),
		Report:     newReport(runID),
		Recorder:   r.recorder,
	}

	slog.Info("Starting asset build",
		logfields.RunID(runID),
		logfields.Path(bs.SourceRoot),
		slog.String("output", bs.OutputRoot))

	stages := []namedStage{
		{"prepare_output", stagePrepareOutput},
		{"copy_assets", stageCopyAssets},
		{"convert_images", stageConvertImages},
		{"minify_styles", stageMinifyStyles},
		{"minify_scripts", stageMinifyScripts},
		{"copy_cname", stageCopyCNAME},
		{"write_manifest", stageWriteManifest},
	}

	err := runStages(ctx, bs, stages)
	bs.Report.Duration = time.Since(bs.Report.Started)
	r.recorder.ObserveBuildDuration(bs.Report.Duration)

	switch {
	case err == nil:
		bs.Report.Outcome = "success"
	case isCanceled(err):
		bs.Report.Outcome = "canceled"
	default:
		bs.Report.Outcome = "failed"
	}
	r.recorder.IncBuildOutcome(bs.Report.Outcome)

	if err != nil {
		slog.Error("Asset build failed", logfields.RunID(runID), logfields.Error(err))
		return bs.Report, err
	}

	slog.Info("Asset build completed",
		logfields.RunID(runID),
		slog.Int("copied", bs.Report.FilesCopied),
		slog.Int("converted", bs.Report.ImagesConverted),
		slog.Int("minified", bs.Report.FilesMinified),
		logfields.DurationMS(float64(bs.Report.Duration.Milliseconds())))
	return bs.Report, nil
}

func isCanceled(err error) bool {
	se, ok := err.(*StageError)
	return ok && se.Kind == StageErrorCanceled
}

// sourceDir returns the absolute-ish path of a mirrored source directory.
func (bs *BuildState) sourceDir(d categoryDir) string {
	return filepath.Join(bs.SourceRoot, d.dir)
}

// outputDir returns the matching output directory.
func (bs *BuildState) outputDir(d categoryDir) string {
	return filepath.Join(bs.OutputRoot, d.dir)
}

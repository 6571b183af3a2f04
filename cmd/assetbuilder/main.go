package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	"git.home.luguber.info/inful/assetbuilder/internal/history"
	"git.home.luguber.info/inful/assetbuilder/internal/linkcheck"
	"git.home.luguber.info/inful/assetbuilder/internal/links"
	"git.home.luguber.info/inful/assetbuilder/internal/metrics"
	"git.home.luguber.info/inful/assetbuilder/internal/pipeline"
	"git.home.luguber.info/inful/assetbuilder/internal/preview"
	"git.home.luguber.info/inful/assetbuilder/internal/watch"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"config.toml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Build struct {
	} `cmd:"" help:"Run the asset pipeline: copy, convert and minify src/ into dist/"`

	Links struct {
		Dist      bool   `help:"Scan dist/ for actual built files instead of predicting from src/"`
		BaseURL   string `help:"Base URL override for generated links"`
		OutputDir string `help:"Directory to write markdown listings (default from config)"`
	} `cmd:"" help:"Generate per-category markdown files with public asset links"`

	Verify struct {
		Dist    bool   `help:"Also verify each link resolves to a file under dist/"`
		BaseURL string `help:"Base URL override"`
	} `cmd:"" help:"Verify generated link listings against the base URL and output tree"`

	Watch struct {
		Debounce time.Duration `help:"Settle time before rebuilding after a change" default:"2s"`
		Interval time.Duration `help:"Periodic full rebuild interval (0 disables)" default:"0"`
		Addr     string        `help:"Optional preview server address (empty disables)" default:""`
	} `cmd:"" help:"Watch src/ and rebuild on changes"`

	Preview struct {
		Addr string `help:"Listen address" default:"127.0.0.1:8080"`
	} `cmd:"" help:"Serve dist/ locally with a metrics endpoint"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Initialize a new configuration file"`
}

func main() {
	ctx := kong.Parse(&CLI)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	if err := run(ctx.Command()); err != nil {
		slog.Error("Command failed", "command", ctx.Command(), "error", err)
		os.Exit(1)
	}
}

func run(command string) error {
	if command == "init" {
		return config.Init(CLI.Config, CLI.Init.Force)
	}

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	switch command {
	case "build":
		return runBuild(context.Background(), cfg, metrics.NoopRecorder{})
	case "links":
		return runLinks(cfg)
	case "verify":
		return runVerify(cfg)
	case "watch":
		return runWatch(cfg)
	case "preview":
		return runPreview(cfg)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// runBuild executes the pipeline and records the run in the history store.
func runBuild(ctx context.Context, cfg *config.Config, recorder metrics.Recorder) error {
	report, buildErr := pipeline.NewRunner(cfg, pipeline.WithRecorder(recorder)).Run(ctx)
	if report != nil {
		recordRun(ctx, cfg, report)
	}
	return buildErr
}

// recordRun appends the run outcome to the history store. History failures
// are logged, never fatal: a missing database must not fail a build.
func recordRun(ctx context.Context, cfg *config.Config, report *pipeline.Report) {
	if cfg.History.Disabled {
		return
	}
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		slog.Warn("Failed to open history store", "path", cfg.History.Path, "error", err)
		return
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("Failed to close history store", "error", err)
		}
	}()

	run := history.Run{
		ID:              report.RunID,
		Started:         report.Started,
		Duration:        report.Duration,
		Outcome:         report.Outcome,
		FilesCopied:     report.FilesCopied,
		ImagesConverted: report.ImagesConverted,
		FilesMinified:   report.FilesMinified,
		Warnings:        len(report.Warnings),
	}
	if err := store.Append(ctx, run); err != nil {
		slog.Warn("Failed to record run history", "run_id", report.RunID, "error", err)
	}
}

func runLinks(cfg *config.Config) error {
	mode := links.ModePredict
	if CLI.Links.Dist {
		mode = links.ModeActual
	}
	gen := links.NewGenerator(cfg, mode, CLI.Links.BaseURL, CLI.Links.OutputDir)
	summary, err := gen.Generate()
	if err != nil {
		return err
	}
	slog.Info("Link generation completed",
		slog.String("mode", string(mode)),
		slog.Int("total_links", summary.Total),
		slog.Int("categories", len(summary.Files)))
	return nil
}

func runVerify(cfg *config.Config) error {
	checker := linkcheck.NewChecker(cfg, CLI.Verify.BaseURL)
	violations, err := checker.Check(cfg.Paths.LinksDir, CLI.Verify.Dist)
	if err != nil {
		return err
	}
	for _, v := range violations {
		slog.Error("Link check failed", "file", v.File, "url", v.URL, "reason", v.Reason)
	}
	if len(violations) > 0 {
		return fmt.Errorf("%d invalid links found", len(violations))
	}
	slog.Info("All links verified")
	return nil
}

// runWatch performs an initial build, then rebuilds on source changes until
// interrupted. Link listings are regenerated after every successful build.
func runWatch(cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	registry := prometheus.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(registry)

	// The watcher and the scheduler share one Rebuilder so runs never
	// overlap on the output tree.
	rebuilder := watch.NewRebuilder(func(ctx context.Context) error {
		if err := runBuild(ctx, cfg, recorder); err != nil {
			return err
		}
		logRecentRuns(ctx, cfg)
		gen := links.NewGenerator(cfg, links.ModeActual, "", "")
		_, err := gen.Generate()
		return err
	})

	if err := rebuilder.Rebuild(ctx); err != nil {
		// Watch mode stays up after a failed initial build; the next change
		// can fix it.
		slog.Error("Initial build failed", "error", err)
	}

	if CLI.Watch.Interval > 0 {
		scheduler, err := watch.NewScheduler(CLI.Watch.Interval, rebuilder.Rebuild)
		if err != nil {
			return err
		}
		if err := scheduler.Start(ctx); err != nil {
			return err
		}
		defer func() {
			if err := scheduler.Stop(); err != nil {
				slog.Warn("Failed to stop scheduler", "error", err)
			}
		}()
	}

	if CLI.Watch.Addr != "" {
		srv := preview.NewServer(cfg.Paths.OutputDir, CLI.Watch.Addr, registry)
		go func() {
			if err := srv.Run(ctx); err != nil {
				slog.Error("Preview server failed", "error", err)
				cancel()
			}
		}()
	}

	watcher, err := watch.NewWatcher(cfg.Paths.SourceDir, CLI.Watch.Debounce, rebuilder.Rebuild)
	if err != nil {
		return err
	}
	if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	slog.Info("Watch mode stopped")
	return nil
}

// logRecentRuns surfaces the last few build outcomes from the history store
// so watch mode shows a rolling record across rebuilds.
func logRecentRuns(ctx context.Context, cfg *config.Config) {
	if cfg.History.Disabled {
		return
	}
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		slog.Debug("History store unavailable", "path", cfg.History.Path, "error", err)
		return
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("Failed to close history store", "error", err)
		}
	}()

	runs, err := store.Recent(ctx, 5)
	if err != nil {
		slog.Debug("Failed to query run history", "error", err)
		return
	}
	lines := make([]string, 0, len(runs))
	for _, r := range runs {
		lines = append(lines, r.Summary())
	}
	slog.Info("Recent builds", "count", len(runs), "runs", strings.Join(lines, "; "))
}

func runPreview(cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	srv := preview.NewServer(cfg.Paths.OutputDir, CLI.Preview.Addr, nil)
	return srv.Run(ctx)
}

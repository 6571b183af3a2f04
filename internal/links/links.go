// Package links generates the per-category markdown listings of public
// asset URLs. It can run before a build ("predict" mode, scanning the
// source tree and rewriting extensions the way the pipeline will) or after
// one ("actual" mode, listing exactly what the output tree contains).
package links

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"git.home.luguber.info/inful/assetbuilder/internal/category"
	"git.home.luguber.info/inful/assetbuilder/internal/config"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
)

// Mode selects which tree is scanned.
type Mode string

const (
	ModePredict Mode = "predict" // scan the source tree, rewrite extensions
	ModeActual  Mode = "actual"  // scan the output tree as-is
)

// Record is one generated link.
type Record struct {
	Category string
	URL      string
	Label    string
}

// Summary reports what Generate wrote, keyed by category.
type Summary struct {
	Files map[string]int // category key -> link count
	Total int
}

// Generator derives public URLs for discovered files and writes one
// markdown listing per non-empty category.
type Generator struct {
	cfg     *config.Config
	baseURL string
	mode    Mode
	outDir  string
}

// NewGenerator builds a Generator. baseURL overrides the configured one
// when non-empty; outDir overrides the configured links directory.
func NewGenerator(cfg *config.Config, mode Mode, baseURL, outDir string) *Generator {
	if baseURL == "" {
		baseURL = cfg.Repository.BaseURL
	}
	if outDir == "" {
		outDir = cfg.Paths.LinksDir
	}
	return &Generator{
		cfg:     cfg,
		baseURL: config.NormalizeBaseURL(baseURL),
		mode:    mode,
		outDir:  outDir,
	}
}

// scanRoot returns the directory scanned for a category in the current mode.
func (g *Generator) scanRoot(c category.Category) string {
	if g.mode == ModeActual {
		return filepath.Join(g.cfg.Paths.OutputDir, g.cfg.Build.DirFor(c.OutputDir))
	}
	return filepath.Join(g.cfg.Paths.SourceDir, g.cfg.Build.DirFor(c.SourceDir))
}

// collect walks one category's tree and returns its link records in sorted
// discovery order. Absent directories yield no records.
func (g *Generator) collect(c category.Category) ([]Record, error) {
	root := g.scanRoot(c)
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil, nil
	}

	var rels []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		matches := c.Matches(d.Name())
		if g.mode == ModeActual {
			matches = c.MatchesDist(d.Name())
		}
		if !matches {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rels = append(rels, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	sort.Strings(rels)

	records := make([]Record, 0, len(rels))
	for _, rel := range rels {
		final := rel
		if g.mode == ModePredict {
			final = c.Rewrite(rel)
		}
		records = append(records, Record{
			Category: c.Key,
			URL:      g.baseURL + "/" + c.URLPath + "/" + final,
			Label:    Label(final),
		})
	}
	return records, nil
}

// Label derives the display label: path separators become hyphens and the
// final extension is dropped.
func Label(relPath string) string {
	label := strings.ReplaceAll(relPath, "/", "-")
	return strings.TrimSuffix(label, path.Ext(relPath))
}

// Generate scans every category and writes one markdown file per category
// with at least one match. Existing files are fully rewritten; categories
// with zero matches produce no file.
func (g *Generator) Generate() (*Summary, error) {
	if err := os.MkdirAll(g.outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create links directory: %w", err)
	}

	summary := &Summary{Files: make(map[string]int)}
	for _, c := range category.Table {
		records, err := g.collect(c)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			slog.Info("No files found for category", logfields.Category(c.Key), logfields.Mode(string(g.mode)))
			continue
		}
		outPath := filepath.Join(g.outDir, c.OutputFile)
		if err := os.WriteFile(outPath, []byte(g.render(c, records)), 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", outPath, err)
		}
		summary.Files[c.Key] = len(records)
		summary.Total += len(records)
		slog.Info("Wrote link listing",
			logfields.Category(c.Key),
			logfields.Count(len(records)),
			logfields.Path(outPath))
	}
	return summary, nil
}

// render produces the markdown body for one category listing.
func (g *Generator) render(c category.Category, records []Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", c.Description)

	if g.mode == ModeActual {
		fmt.Fprintf(&b, "Generated from built files in `%s/`\n", filepath.ToSlash(g.scanRoot(c)))
		b.WriteString("These are the actual URLs available after build.\n\n")
	} else {
		fmt.Fprintf(&b, "Generated from source files in `%s/`\n", filepath.ToSlash(g.scanRoot(c)))
		b.WriteString("These URLs are predicted based on build transformations.\n\n")
	}

	b.WriteString("Copy and paste these links into your markdown files:\n\n")
	for _, r := range records {
		fmt.Fprintf(&b, "[%s](%s)\n\n", r.Label, r.URL)
	}
	return b.String()
}

// Package linkcheck validates the generated link listings: every link must
// live under the configured base URL, and when checked against a built
// output tree, must resolve to a file that physically exists and was
// recorded in the build manifest.
package linkcheck

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"git.home.luguber.info/inful/assetbuilder/internal/category"
	"git.home.luguber.info/inful/assetbuilder/internal/config"
	"git.home.luguber.info/inful/assetbuilder/internal/manifest"
)

// Violation is one failed check.
type Violation struct {
	File   string // listing file the link came from
	URL    string
	Reason string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s: %s", v.File, v.URL, v.Reason)
}

// Checker validates listings against a base URL and, optionally, the
// built output tree.
type Checker struct {
	cfg     *config.Config
	baseURL string
}

// NewChecker builds a Checker; baseURL overrides the configured one when
// non-empty.
func NewChecker(cfg *config.Config, baseURL string) *Checker {
	if baseURL == "" {
		baseURL = cfg.Repository.BaseURL
	}
	return &Checker{cfg: cfg, baseURL: config.NormalizeBaseURL(baseURL)}
}

// ExtractURLs parses markdown and returns all inline link destinations in
// document order.
func ExtractURLs(source []byte) ([]string, error) {
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(source))

	var urls []string
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if link, ok := n.(*ast.Link); ok {
			urls = append(urls, string(link.Destination))
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk markdown: %w", err)
	}
	return urls, nil
}

// distPath maps a public URL back to its output-relative slash path, or
// returns false when the URL does not follow the base/urlPath/rel shape.
func (c *Checker) distPath(url string) (string, bool) {
	rest, ok := strings.CutPrefix(url, c.baseURL+"/")
	if !ok {
		return "", false
	}
	seg, rel, ok := strings.Cut(rest, "/")
	if !ok || rel == "" {
		return "", false
	}
	for _, cat := range category.Table {
		if cat.URLPath == seg {
			return path.Join(c.cfg.Build.DirFor(cat.OutputDir), rel), true
		}
	}
	return "", false
}

// manifestArtifacts loads the artifact paths the last build recorded. A
// missing or unreadable manifest disables the cross-check so listings can
// still be verified against trees not produced by this tool.
func (c *Checker) manifestArtifacts() map[string]struct{} {
	m, err := manifest.Read(c.cfg.Paths.OutputDir)
	if err != nil {
		return nil
	}
	set := make(map[string]struct{}, len(m.Artifacts))
	for _, a := range m.Artifacts {
		set[a.Path] = struct{}{}
	}
	return set
}

// Check parses every markdown listing in linksDir. With checkDist set, each
// link must also map to an existing file under the output tree, and when a
// build manifest is present, to an artifact recorded in it.
func (c *Checker) Check(linksDir string, checkDist bool) ([]Violation, error) {
	entries, err := os.ReadDir(linksDir)
	if err != nil {
		return nil, fmt.Errorf("read links directory: %w", err)
	}

	var artifacts map[string]struct{}
	if checkDist {
		artifacts = c.manifestArtifacts()
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".md") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var violations []Violation
	for _, name := range names {
		source, err := os.ReadFile(filepath.Join(linksDir, name))
		if err != nil {
			return nil, fmt.Errorf("read listing %s: %w", name, err)
		}
		urls, err := ExtractURLs(source)
		if err != nil {
			return nil, fmt.Errorf("parse listing %s: %w", name, err)
		}
		for _, url := range urls {
			if !strings.HasPrefix(url, c.baseURL+"/") {
				violations = append(violations, Violation{
					File: name, URL: url,
					Reason: fmt.Sprintf("outside base URL %s", c.baseURL),
				})
				continue
			}
			if !checkDist {
				continue
			}
			rel, ok := c.distPath(url)
			if !ok {
				violations = append(violations, Violation{
					File: name, URL: url,
					Reason: "does not match any category URL path",
				})
				continue
			}
			full := filepath.Join(c.cfg.Paths.OutputDir, filepath.FromSlash(rel))
			if _, err := os.Stat(full); os.IsNotExist(err) {
				violations = append(violations, Violation{
					File: name, URL: url,
					Reason: fmt.Sprintf("no such file in output tree: %s", full),
				})
				continue
			} else if err != nil {
				return nil, fmt.Errorf("stat %s: %w", full, err)
			}
			if artifacts != nil {
				if _, ok := artifacts[rel]; !ok {
					violations = append(violations, Violation{
						File: name, URL: url,
						Reason: "present on disk but not recorded in the build manifest",
					})
				}
			}
		}
	}
	return violations, nil
}

package linkcheck

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	"git.home.luguber.info/inful/assetbuilder/internal/manifest"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := &config.Config{}
	cfg.Repository.BaseURL = "https://u.github.io/r"
	cfg.Paths.SourceDir = filepath.Join(root, "src")
	cfg.Paths.OutputDir = filepath.Join(root, "dist")
	cfg.Paths.LinksDir = filepath.Join(root, "links")
	cfg.Build.ImagesDir = "images"
	cfg.Build.CSSDir = "css"
	cfg.Build.JSDir = "js"
	cfg.Build.DataDir = "data"
	cfg.Build.MarkdownDir = "md"
	return cfg
}

func TestExtractURLs(t *testing.T) {
	src := []byte("# Links\n\nintro text\n\n[a](https://x.example/a.webp)\n\n[b](https://x.example/b.webp)\n")
	urls, err := ExtractURLs(src)
	require.NoError(t, err)
	require.Equal(t, []string{"https://x.example/a.webp", "https://x.example/b.webp"}, urls)
}

func TestExtractURLs_NoLinks(t *testing.T) {
	urls, err := ExtractURLs([]byte("# Empty\n\nnothing here\n"))
	require.NoError(t, err)
	require.Empty(t, urls)
}

func TestCheck_AcceptsLinksUnderBaseURL(t *testing.T) {
	cfg := testConfig(t)
	writeFile(t, filepath.Join(cfg.Paths.LinksDir, "webp.md"),
		"# WebP Image Links\n\n[logo](https://u.github.io/r/images/logo.webp)\n")

	vs, err := NewChecker(cfg, "").Check(cfg.Paths.LinksDir, false)
	require.NoError(t, err)
	require.Empty(t, vs)
}

func TestCheck_FlagsForeignBaseURL(t *testing.T) {
	cfg := testConfig(t)
	writeFile(t, filepath.Join(cfg.Paths.LinksDir, "webp.md"),
		"# WebP Image Links\n\n[logo](https://evil.example/images/logo.webp)\n")

	vs, err := NewChecker(cfg, "").Check(cfg.Paths.LinksDir, false)
	require.NoError(t, err)
	require.Len(t, vs, 1)
	require.Contains(t, vs[0].Reason, "outside base URL")
}

func TestCheck_AgainstDist_FlagsDanglingLink(t *testing.T) {
	cfg := testConfig(t)
	writeFile(t, filepath.Join(cfg.Paths.OutputDir, "images", "logo.webp"), "webp")
	writeFile(t, filepath.Join(cfg.Paths.LinksDir, "webp.md"),
		"# WebP Image Links\n\n"+
			"[logo](https://u.github.io/r/images/logo.webp)\n\n"+
			"[ghost](https://u.github.io/r/images/ghost.webp)\n")

	vs, err := NewChecker(cfg, "").Check(cfg.Paths.LinksDir, true)
	require.NoError(t, err)
	require.Len(t, vs, 1)
	require.Equal(t, "https://u.github.io/r/images/ghost.webp", vs[0].URL)
	require.Contains(t, vs[0].Reason, "no such file")
}

func TestCheck_AgainstDist_FlagsUnknownURLPath(t *testing.T) {
	cfg := testConfig(t)
	writeFile(t, filepath.Join(cfg.Paths.LinksDir, "webp.md"),
		"# WebP Image Links\n\n[x](https://u.github.io/r/fonts/x.woff)\n")

	vs, err := NewChecker(cfg, "").Check(cfg.Paths.LinksDir, true)
	require.NoError(t, err)
	require.Len(t, vs, 1)
	require.Contains(t, vs[0].Reason, "category URL path")
}

func TestCheck_AgainstDist_FlagsFileMissingFromManifest(t *testing.T) {
	cfg := testConfig(t)
	writeFile(t, filepath.Join(cfg.Paths.OutputDir, "images", "logo.webp"), "webp")
	writeFile(t, filepath.Join(cfg.Paths.OutputDir, "images", "stale.webp"), "webp")
	m := manifest.New("run-1", cfg.Repository.BaseURL, []manifest.Artifact{
		{Path: "images/logo.webp", Category: "webp"},
	})
	require.NoError(t, m.Write(cfg.Paths.OutputDir))
	writeFile(t, filepath.Join(cfg.Paths.LinksDir, "webp.md"),
		"# WebP Image Links\n\n"+
			"[logo](https://u.github.io/r/images/logo.webp)\n\n"+
			"[stale](https://u.github.io/r/images/stale.webp)\n")

	vs, err := NewChecker(cfg, "").Check(cfg.Paths.LinksDir, true)
	require.NoError(t, err)
	require.Len(t, vs, 1)
	require.Equal(t, "https://u.github.io/r/images/stale.webp", vs[0].URL)
	require.Contains(t, vs[0].Reason, "build manifest")
}

func TestCheck_AgainstDist_NoManifestSkipsCrossCheck(t *testing.T) {
	cfg := testConfig(t)
	writeFile(t, filepath.Join(cfg.Paths.OutputDir, "images", "logo.webp"), "webp")
	writeFile(t, filepath.Join(cfg.Paths.LinksDir, "webp.md"),
		"# WebP Image Links\n\n[logo](https://u.github.io/r/images/logo.webp)\n")

	vs, err := NewChecker(cfg, "").Check(cfg.Paths.LinksDir, true)
	require.NoError(t, err)
	require.Empty(t, vs)
}

func TestCheck_BaseURLOverride(t *testing.T) {
	cfg := testConfig(t)
	writeFile(t, filepath.Join(cfg.Paths.LinksDir, "md.md"),
		"# Markdown File Links\n\n[a](https://cdn.example.org/md/a.md)\n")

	vs, err := NewChecker(cfg, "https://cdn.example.org").Check(cfg.Paths.LinksDir, false)
	require.NoError(t, err)
	require.Empty(t, vs)

	vs, err = NewChecker(cfg, "").Check(cfg.Paths.LinksDir, false)
	require.NoError(t, err)
	require.Len(t, vs, 1)
}

func TestCheck_MissingLinksDir(t *testing.T) {
	cfg := testConfig(t)
	_, err := NewChecker(cfg, "").Check(cfg.Paths.LinksDir, false)
	require.Error(t, err)
}

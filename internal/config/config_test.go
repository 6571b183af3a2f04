package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_MissingFile_ReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrConfigNotFound))
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
[repository]
base_url = "https://u.github.io/r"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "https://u.github.io/r", cfg.Repository.BaseURL)
	require.Equal(t, "images", cfg.Build.ImagesDir)
	require.Equal(t, "md", cfg.Build.MarkdownDir)
	require.Equal(t, []string{"cwebp", "-q", "80"}, cfg.Tools.ImageConverter)
	require.Equal(t, "src", cfg.Paths.SourceDir)
	require.Equal(t, "dist", cfg.Paths.OutputDir)
	require.Equal(t, "links", cfg.Paths.LinksDir)
	require.Equal(t, ".assetbuilder/history.db", cfg.History.Path)
}

func TestLoad_EmptyBaseURL_FallsBackToDefault(t *testing.T) {
	path := writeConfig(t, "[repository]\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, DefaultBaseURL, cfg.Repository.BaseURL)
}

func TestLoad_MalformedBaseURL_IsFatal(t *testing.T) {
	path := writeConfig(t, `
[repository]
base_url = "ftp://assets.example.com"
`)
	_, err := Load(path)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInvalidBaseURL))
}

func TestLoad_MalformedTOML_IsFatal(t *testing.T) {
	path := writeConfig(t, "[repository\nbase_url = ")
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_ExpandsEnvironmentVariables(t *testing.T) {
	t.Setenv("ASSET_BASE_URL", "https://cdn.example.org/site")
	path := writeConfig(t, `
[repository]
base_url = "${ASSET_BASE_URL}"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "https://cdn.example.org/site", cfg.Repository.BaseURL)
}

func TestValidateBaseURL(t *testing.T) {
	require.NoError(t, ValidateBaseURL("https://u.github.io/r"))
	require.NoError(t, ValidateBaseURL("http://localhost:8080"))
	require.Error(t, ValidateBaseURL("not a url"))
	require.Error(t, ValidateBaseURL("https://"))
	require.Error(t, ValidateBaseURL(""))
}

func TestNormalizeBaseURL_StripsTrailingSlash(t *testing.T) {
	require.Equal(t, "https://a.example", NormalizeBaseURL("https://a.example/"))
	require.Equal(t, "https://a.example", NormalizeBaseURL("https://a.example"))
}

func TestInit_RefusesToOverwriteWithoutForce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, Init(path, false))

	err := Init(path, false)
	require.Error(t, err)
	require.NoError(t, Init(path, true))
}

func TestInit_ExampleConfigIsLoadable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, Init(path, false))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, DefaultBaseURL, cfg.Repository.BaseURL)
	require.Equal(t, []string{"cleancss"}, cfg.Tools.CSSMinifier)
}

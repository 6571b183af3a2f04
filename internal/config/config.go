// Package config loads and validates the pipeline configuration from
// config.toml. Configuration is read once at process start and treated as
// immutable for the duration of the run.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// DefaultBaseURL is used when no base URL is configured anywhere.
const DefaultBaseURL = "https://assets.example.com"

var (
	ErrConfigNotFound = errors.New("configuration file not found")
	ErrInvalidBaseURL = errors.New("invalid base URL")
)

// Config is the root configuration.
type Config struct {
	Repository RepositoryConfig `toml:"repository"`
	Build      BuildConfig      `toml:"build"`
	Tools      ToolsConfig      `toml:"tools"`
	Paths      PathsConfig      `toml:"paths"`
	History    HistoryConfig    `toml:"history"`
}

// RepositoryConfig identifies where the built assets will be published.
type RepositoryConfig struct {
	BaseURL string `toml:"base_url"` // public URL prefix for all generated links
	Domain  string `toml:"domain"`   // custom domain; written to dist/CNAME when set and src/CNAME is absent
}

// BuildConfig lists the category source directories, relative to the source
// root. Empty entries fall back to the conventional names.
type BuildConfig struct {
	ImagesDir   string `toml:"images_dir"`
	CSSDir      string `toml:"css_dir"`
	JSDir       string `toml:"js_dir"`
	DataDir     string `toml:"data_dir"`
	MarkdownDir string `toml:"markdown_dir"`
}

// DirFor maps a conventional category source directory name ("images",
// "css", "js", "data", "md") to its configured override.
func (b BuildConfig) DirFor(conventional string) string {
	switch conventional {
	case "images":
		return b.ImagesDir
	case "css":
		return b.CSSDir
	case "js":
		return b.JSDir
	case "data":
		return b.DataDir
	case "md":
		return b.MarkdownDir
	default:
		return conventional
	}
}

// ToolsConfig names the external converters. Each entry is an argv prefix;
// the pipeline appends `<input> -o <output>`.
type ToolsConfig struct {
	ImageConverter []string `toml:"image_converter"`
	CSSMinifier    []string `toml:"css_minifier"`
	JSMinifier     []string `toml:"js_minifier"`
}

// PathsConfig fixes the tree roots. All are relative to the working
// directory unless absolute.
type PathsConfig struct {
	SourceDir string `toml:"source_dir"`
	OutputDir string `toml:"output_dir"`
	LinksDir  string `toml:"links_dir"`
}

// HistoryConfig controls the build run history store.
type HistoryConfig struct {
	Path     string `toml:"path"`
	Disabled bool   `toml:"disabled"`
}

// Load loads configuration from the specified file, expanding environment
// variables in the raw TOML text before decoding. A missing file is an
// error; a missing or malformed base URL is fatal here, before any file
// processing begins.
func Load(configPath string) (*Config, error) {
	loadEnvFile()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := toml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Repository.BaseURL == "" {
		c.Repository.BaseURL = DefaultBaseURL
	}
	if c.Build.ImagesDir == "" {
		c.Build.ImagesDir = "images"
	}
	if c.Build.CSSDir == "" {
		c.Build.CSSDir = "css"
	}
	if c.Build.JSDir == "" {
		c.Build.JSDir = "js"
	}
	if c.Build.DataDir == "" {
		c.Build.DataDir = "data"
	}
	if c.Build.MarkdownDir == "" {
		c.Build.MarkdownDir = "md"
	}
	if len(c.Tools.ImageConverter) == 0 {
		c.Tools.ImageConverter = []string{"cwebp", "-q", "80"}
	}
	if len(c.Tools.CSSMinifier) == 0 {
		c.Tools.CSSMinifier = []string{"cleancss"}
	}
	if len(c.Tools.JSMinifier) == 0 {
		c.Tools.JSMinifier = []string{"terser"}
	}
	if c.Paths.SourceDir == "" {
		c.Paths.SourceDir = "src"
	}
	if c.Paths.OutputDir == "" {
		c.Paths.OutputDir = "dist"
	}
	if c.Paths.LinksDir == "" {
		c.Paths.LinksDir = "links"
	}
	if c.History.Path == "" {
		c.History.Path = ".assetbuilder/history.db"
	}
}

func (c *Config) validate() error {
	if err := ValidateBaseURL(c.Repository.BaseURL); err != nil {
		return err
	}
	return nil
}

// ValidateBaseURL checks that raw is an absolute http(s) URL with a host.
func ValidateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidBaseURL, raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: %q: scheme must be http or https", ErrInvalidBaseURL, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: %q: missing host", ErrInvalidBaseURL, raw)
	}
	return nil
}

// NormalizeBaseURL strips a trailing slash so URL joining stays predictable.
func NormalizeBaseURL(raw string) string {
	return strings.TrimRight(raw, "/")
}

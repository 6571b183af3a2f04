// Package category defines the closed table of asset categories handled by
// the pipeline and the link generator. Classification and URL rewriting are
// table lookups; adding a category means adding a record, not a branch.
package category

import (
	"path"
	"strings"
)

// RewriteRule transforms a source-relative path into the path the build
// produces for it (predict mode). Identity for categories whose files pass
// through the build unchanged.
type RewriteRule func(relPath string) string

// Category describes one asset category: which extensions belong to it,
// where its files live in the source and output trees, and how a source
// path maps to a published path.
type Category struct {
	Key            string      // stable identifier, also the listing file stem
	Description    string      // heading used in the generated listing
	Extensions     []string    // recognized source extensions (lowercase, with dot)
	DistExtensions []string    // extensions physically present in the output tree
	SourceDir      string      // source subdirectory relative to the source root
	OutputDir      string      // output subdirectory relative to the output root
	URLPath        string      // path segment joined after the base URL
	Rewrite        RewriteRule // source path -> published path (predict mode)
	OutputFile     string      // listing file name under the links directory
}

func identity(p string) string { return p }

// replaceExt swaps the final extension of p for newExt (which includes the dot).
func replaceExt(p, newExt string) string {
	return strings.TrimSuffix(p, path.Ext(p)) + newExt
}

// minified inserts ".min" before the final extension: app.css -> app.min.css.
func minified(p string) string {
	ext := path.Ext(p)
	return strings.TrimSuffix(p, ext) + ".min" + ext
}

// Table is the closed set of categories, in listing order. It is treated as
// immutable; callers must not modify the records.
var Table = []Category{
	{
		Key:            "webp",
		Description:    "WebP Image Links",
		Extensions:     []string{".png", ".jpg", ".jpeg", ".webp"},
		DistExtensions: []string{".webp"},
		SourceDir:      "images",
		OutputDir:      "images",
		URLPath:        "images",
		Rewrite:        func(p string) string { return replaceExt(p, ".webp") },
		OutputFile:     "webp.md",
	},
	{
		Key:         "svg",
		Description: "SVG Image Links",
		Extensions:  []string{".svg"},
		SourceDir:   "images",
		OutputDir:   "images",
		URLPath:     "images",
		Rewrite:     identity,
		OutputFile:  "svg.md",
	},
	{
		Key:         "gif",
		Description: "GIF Image Links",
		Extensions:  []string{".gif"},
		SourceDir:   "images",
		OutputDir:   "images",
		URLPath:     "images",
		Rewrite:     identity,
		OutputFile:  "gif.md",
	},
	{
		Key:            "css",
		Description:    "CSS File Links",
		Extensions:     []string{".css"},
		DistExtensions: []string{".min.css"},
		SourceDir:      "css",
		OutputDir:      "css",
		URLPath:        "css",
		Rewrite:        minified,
		OutputFile:     "css.md",
	},
	{
		Key:            "js",
		Description:    "JavaScript File Links",
		Extensions:     []string{".js"},
		DistExtensions: []string{".min.js"},
		SourceDir:      "js",
		OutputDir:      "js",
		URLPath:        "js",
		Rewrite:        minified,
		OutputFile:     "js.md",
	},
	{
		Key:         "data",
		Description: "Data File Links",
		Extensions:  []string{".csv", ".json", ".txt", ".xml"},
		SourceDir:   "data",
		OutputDir:   "data",
		URLPath:     "data",
		Rewrite:     identity,
		OutputFile:  "data.md",
	},
	{
		Key:         "md",
		Description: "Markdown File Links",
		Extensions:  []string{".md"},
		SourceDir:   "md",
		OutputDir:   "md",
		URLPath:     "md",
		Rewrite:     identity,
		OutputFile:  "md.md",
	},
}

// SourceDirs returns the distinct source subdirectories referenced by the
// table, in table order. These are the directories the pipeline mirrors.
func SourceDirs() []string {
	seen := map[string]struct{}{}
	var dirs []string
	for _, c := range Table {
		if _, ok := seen[c.SourceDir]; ok {
			continue
		}
		seen[c.SourceDir] = struct{}{}
		dirs = append(dirs, c.SourceDir)
	}
	return dirs
}

// Lookup returns the category with the given key.
func Lookup(key string) (Category, bool) {
	for _, c := range Table {
		if c.Key == key {
			return c, true
		}
	}
	return Category{}, false
}

// matchesExt reports whether name carries ext, matching case-insensitively.
// Multi-part extensions like ".min.css" are compared against the name's tail.
func matchesExt(name, ext string) bool {
	return strings.HasSuffix(strings.ToLower(name), ext)
}

// Matches reports whether the file name belongs to this category when
// scanning a source tree.
func (c Category) Matches(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	if ext == "" {
		return false
	}
	for _, e := range c.Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// MatchesDist reports whether the file name belongs to this category when
// scanning the output tree. Categories without explicit dist extensions use
// their source extensions unchanged.
func (c Category) MatchesDist(name string) bool {
	exts := c.DistExtensions
	if len(exts) == 0 {
		return c.Matches(name)
	}
	for _, e := range exts {
		if matchesExt(name, e) {
			return true
		}
	}
	return false
}

// RasterImageExtensions are the source image formats the pipeline converts
// to WebP. Already-WebP sources are copied, never re-encoded.
var RasterImageExtensions = []string{".png", ".jpg", ".jpeg"}

// IsRasterImage reports whether the file name is a convertible raster image.
func IsRasterImage(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	for _, e := range RasterImageExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

package category

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLookup_KnownAndUnknownKeys(t *testing.T) {
	c, ok := Lookup("webp")
	require.True(t, ok)
	require.Equal(t, "images", c.SourceDir)
	require.Equal(t, "webp.md", c.OutputFile)

	_, ok = Lookup("fonts")
	require.False(t, ok)
}

func TestSourceDirs_DistinctInTableOrder(t *testing.T) {
	require.Equal(t, []string{"images", "css", "js", "data", "md"}, SourceDirs())
}

func TestMatches_CaseInsensitiveExtension(t *testing.T) {
	webp, _ := Lookup("webp")
	require.True(t, webp.Matches("logo.PNG"))
	require.True(t, webp.Matches("photo.jpeg"))
	require.True(t, webp.Matches("already.webp"))
	require.False(t, webp.Matches("vector.svg"))
}

func TestMatches_NoExtensionIsNeverClassified(t *testing.T) {
	for _, c := range Table {
		require.False(t, c.Matches("Makefile"), "category %s", c.Key)
	}
}

func TestMatches_UnrecognizedExtensionStaysUnclassified(t *testing.T) {
	for _, c := range Table {
		require.False(t, c.Matches("notes.bak"), "category %s", c.Key)
	}
}

func TestRewrite_RasterBecomesWebP(t *testing.T) {
	webp, _ := Lookup("webp")
	require.Equal(t, "a/logo.webp", webp.Rewrite("a/logo.png"))
	require.Equal(t, "b/photo.webp", webp.Rewrite("b/photo.jpeg"))
	require.Equal(t, "c/done.webp", webp.Rewrite("c/done.webp"))
}

func TestRewrite_StylesheetsAndScriptsGainMinInfix(t *testing.T) {
	css, _ := Lookup("css")
	require.Equal(t, "theme/site.min.css", css.Rewrite("theme/site.css"))

	js, _ := Lookup("js")
	require.Equal(t, "app.min.js", js.Rewrite("app.js"))
}

func TestRewrite_IdentityCategories(t *testing.T) {
	for _, key := range []string{"svg", "gif", "data", "md"} {
		c, ok := Lookup(key)
		require.True(t, ok)
		require.Equal(t, "sub/file"+c.Extensions[0], c.Rewrite("sub/file"+c.Extensions[0]))
	}
}

func TestMatchesDist_UsesPhysicalExtensions(t *testing.T) {
	css, _ := Lookup("css")
	require.True(t, css.MatchesDist("site.min.css"))
	// Only the minified variant is listed from the output tree.
	require.False(t, css.MatchesDist("site.css"))

	webp, _ := Lookup("webp")
	require.True(t, webp.MatchesDist("logo.webp"))
	require.False(t, webp.MatchesDist("logo.png"))

	data, _ := Lookup("data")
	require.True(t, data.MatchesDist("report.csv"))
}

func TestIsRasterImage(t *testing.T) {
	require.True(t, IsRasterImage("a.png"))
	require.True(t, IsRasterImage("a.JPG"))
	require.True(t, IsRasterImage("a.jpeg"))
	require.False(t, IsRasterImage("a.webp"))
	require.False(t, IsRasterImage("a.svg"))
	require.False(t, IsRasterImage("noext"))
}

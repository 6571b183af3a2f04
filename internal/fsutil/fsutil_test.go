package fsutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestCopyFile_ContentIdentical(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a", "in.txt")
	dst := filepath.Join(dir, "b", "nested", "out.txt")
	writeFile(t, src, "hello")

	require.NoError(t, CopyFile(src, dst))

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, "hello", string(got))
}

func TestCopyFile_MissingSource_ReturnsError(t *testing.T) {
	dir := t.TempDir()
	err := CopyFile(filepath.Join(dir, "absent"), filepath.Join(dir, "out"))
	require.Error(t, err)
}

func TestCopyDir_PreservesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	writeFile(t, filepath.Join(src, "top.txt"), "1")
	writeFile(t, filepath.Join(src, "a", "b", "deep.txt"), "2")

	copied, skipped, err := CopyDir(context.Background(), src, dst)
	require.NoError(t, err)
	require.Empty(t, skipped)
	require.ElementsMatch(t, []string{"top.txt", "a/b/deep.txt"}, copied)

	got, err := os.ReadFile(filepath.Join(dst, "a", "b", "deep.txt"))
	require.NoError(t, err)
	require.Equal(t, "2", string(got))

	got, err = os.ReadFile(filepath.Join(dst, "top.txt"))
	require.NoError(t, err)
	require.Equal(t, "1", string(got))
}

func TestCopyDir_SkipsNonRegularEntries(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	writeFile(t, filepath.Join(src, "real.txt"), "1")
	require.NoError(t, os.Symlink(filepath.Join(src, "real.txt"), filepath.Join(src, "alias.txt")))

	copied, skipped, err := CopyDir(context.Background(), src, dst)
	require.NoError(t, err)
	require.Equal(t, []string{"real.txt"}, copied)
	require.Equal(t, []string{"alias.txt"}, skipped)
	require.NoFileExists(t, filepath.Join(dst, "alias.txt"))
}

func TestDirHasFiles(t *testing.T) {
	dir := t.TempDir()

	ok, err := DirHasFiles(filepath.Join(dir, "absent"))
	require.NoError(t, err)
	require.False(t, ok)

	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.MkdirAll(empty, 0o755))
	ok, err = DirHasFiles(empty)
	require.NoError(t, err)
	require.False(t, ok)

	// Nested empty directories still count as empty.
	require.NoError(t, os.MkdirAll(filepath.Join(empty, "inner"), 0o755))
	ok, err = DirHasFiles(empty)
	require.NoError(t, err)
	require.False(t, ok)

	writeFile(t, filepath.Join(empty, "inner", "f.txt"), "x")
	ok, err = DirHasFiles(empty)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestHashFile_StableDigest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	writeFile(t, path, "abc")

	h1, err := HashFile(path)
	require.NoError(t, err)
	// sha256("abc")
	require.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", h1)

	h2, err := HashFile(path)
	require.NoError(t, err)
	require.Equal(t, h1, h2)
}

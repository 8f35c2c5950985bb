package filefilter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func write(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestNilFilterAllowsEverything(t *testing.T) {
	var ff *FileFilter
	require.False(t, ff.Hidden("/x/.git", true))
	require.NoError(t, ff.CheckReadable("/does/not/matter", 1<<40))
}

func TestExcludeDirs(t *testing.T) {
	ff, err := NewFileFilter(WithDefaultExcludedDirs())
	require.NoError(t, err)
	require.True(t, ff.Hidden("/repo/node_modules", true))
	require.False(t, ff.Hidden("/repo/node_modules", false))
	require.False(t, ff.Hidden("/repo/src", true))
}

func TestGitIgnore(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, ".gitignore"), []byte("*.log\n"))
	write(t, filepath.Join(dir, "app.log"), []byte("x"))
	write(t, filepath.Join(dir, "main.go"), []byte("package main\n"))

	ff, err := NewFileFilter(WithGitIgnore(dir))
	require.NoError(t, err)
	require.NotNil(t, ff.GitIgnoreFilter)
	require.True(t, ff.Hidden(filepath.Join(ff.root, "app.log"), false))
	require.False(t, ff.Hidden(filepath.Join(ff.root, "main.go"), false))
	require.False(t, ff.Hidden(ff.root, true))
}

func TestGitIgnoreMissingFile(t *testing.T) {
	ff, err := NewFileFilter(WithGitIgnore(t.TempDir()))
	require.NoError(t, err)
	require.Nil(t, ff.GitIgnoreFilter)
}

func TestCheckReadable(t *testing.T) {
	dir := t.TempDir()
	text := filepath.Join(dir, "a.txt")
	bin := filepath.Join(dir, "a.bin")
	write(t, text, []byte("hello"))
	write(t, bin, []byte{0x7f, 'E', 'L', 'F', 0x00, 0x01})

	ff, err := NewFileFilter(WithMaxFileSize(4), WithFilterBinaryFiles(true))
	require.NoError(t, err)
	require.ErrorIs(t, ff.CheckReadable(text, 5), ErrTooLarge)
	require.ErrorIs(t, ff.CheckReadable(bin, 6), ErrTooLarge)

	ff, err = NewFileFilter(WithFilterBinaryFiles(true))
	require.NoError(t, err)
	require.NoError(t, ff.CheckReadable(text, 5))
	require.ErrorIs(t, ff.CheckReadable(bin, 6), ErrBinary)

	_, err = NewFileFilter(WithMaxFileSize(-1))
	require.Error(t, err)
}

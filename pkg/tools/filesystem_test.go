package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/devassist/pkg/filefilter"
)

func newTestFS(t *testing.T) (*FileSystem, string) {
	t.Helper()
	dir := t.TempDir()
	f, err := NewFileSystem(dir)
	require.NoError(t, err)
	return f, f.Root()
}

func TestFileSystem_ListProjectFiles(t *testing.T) {
	f, root := newTestFS(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.txt"), []byte("b"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("a"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0o755))

	res := f.ListProjectFiles(".")
	require.True(t, res.OK())
	require.Equal(t, []string{"a.txt", "b.txt", "sub"}, res.Value)

	res = f.ListProjectFiles("missing")
	require.False(t, res.OK())
	require.Equal(t, KindNotFound, res.Err.Kind)
}

func TestFileSystem_ReadFileContent(t *testing.T) {
	f, root := newTestFS(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello"), 0o644))

	res := f.ReadFileContent("a.txt")
	require.True(t, res.OK())
	require.Equal(t, "hello", res.Value)

	res = f.ReadFileContent("nope.txt")
	require.Equal(t, KindNotFound, res.Err.Kind)

	res = f.ReadFileContent(".")
	require.Equal(t, KindInvalidArgument, res.Err.Kind)

	res = f.ReadFileContent("")
	require.Equal(t, KindInvalidArgument, res.Err.Kind)
}

func TestFileSystem_WriteFileContentCreatesParents(t *testing.T) {
	f, root := newTestFS(t)

	res := f.WriteFileContent("out/deep/c.txt", "content")
	require.True(t, res.OK(), "%v", res.Err)
	b, err := os.ReadFile(filepath.Join(root, "out", "deep", "c.txt"))
	require.NoError(t, err)
	require.Equal(t, "content", string(b))

	res = f.WriteFileContent("out/deep/c.txt", "overwritten")
	require.True(t, res.OK())
	b, err = os.ReadFile(filepath.Join(root, "out", "deep", "c.txt"))
	require.NoError(t, err)
	require.Equal(t, "overwritten", string(b))
}

func TestFileSystem_RejectsEscapes(t *testing.T) {
	f, _ := newTestFS(t)

	res := f.ReadFileContent("../outside.txt")
	require.Equal(t, KindPermissionDenied, res.Err.Kind)

	w := f.WriteFileContent("/etc/devassist-should-not-exist", "x")
	require.Equal(t, KindPermissionDenied, w.Err.Kind)

	l := f.ListProjectFiles("..")
	require.Equal(t, KindPermissionDenied, l.Err.Kind)
}

func TestFileSystem_RejectsSymlinkEscapes(t *testing.T) {
	f, root := newTestFS(t)
	outside := t.TempDir()
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "link")))

	w := f.WriteFileContent("link/newdir/escaped.txt", "x")
	require.False(t, w.OK())
	require.Equal(t, KindPermissionDenied, w.Err.Kind)
	_, err := os.Stat(filepath.Join(outside, "newdir"))
	require.True(t, os.IsNotExist(err))

	w = f.WriteFileContent("link/escaped.txt", "x")
	require.Equal(t, KindPermissionDenied, w.Err.Kind)

	r := f.ReadFileContent("link/missing/deeper.txt")
	require.Equal(t, KindPermissionDenied, r.Err.Kind)

	require.NoError(t, os.Mkdir(filepath.Join(root, "inside"), 0o755))
	require.NoError(t, os.Symlink(filepath.Join(root, "inside"), filepath.Join(root, "alias")))
	w = f.WriteFileContent("alias/new/ok.txt", "fine")
	require.True(t, w.OK(), "%v", w.Err)
	b, err := os.ReadFile(filepath.Join(root, "inside", "new", "ok.txt"))
	require.NoError(t, err)
	require.Equal(t, "fine", string(b))
}

func TestRegisterFileSystemTools_Execute(t *testing.T) {
	f, root := newTestFS(t)
	r := NewRegistry()
	require.NoError(t, RegisterFileSystemTools(r, f))
	require.Equal(t, 3, r.Len())

	names := []string{}
	for _, d := range r.Definitions() {
		names = append(names, d.Name)
	}
	require.Equal(t, []string{"list_project_files", "read_file_content", "write_file_content"}, names)

	ctx := context.Background()
	out := r.Execute(ctx, "write_file_content", map[string]any{"filepath": "a.txt", "content": "hi"})
	require.Contains(t, out, "result")

	out = r.Execute(ctx, "read_file_content", map[string]any{"filepath": "a.txt"})
	require.Equal(t, map[string]any{"result": "hi"}, out)

	out = r.Execute(ctx, "list_project_files", nil)
	require.Equal(t, map[string]any{"result": []string{"a.txt"}}, out)

	out = r.Execute(ctx, "read_file_content", map[string]any{"filepath": 42.0})
	require.Equal(t, "invalid_argument", out["error"].(map[string]any)["kind"])

	out = r.Execute(ctx, "read_file_content", map[string]any{"filepath": "missing.txt"})
	require.Equal(t, "not_found", out["error"].(map[string]any)["kind"])

	out = r.Execute(ctx, "rm_rf", nil)
	require.Equal(t, "unknown_tool", out["error"].(map[string]any)["kind"])

	_, err := os.Stat(filepath.Join(root, "a.txt"))
	require.NoError(t, err)
}

func TestRegistry_RegisterValidation(t *testing.T) {
	r := NewRegistry()
	noop := func(context.Context, map[string]any) (any, *ToolError) { return nil, nil }
	require.Error(t, r.Register(Definition{Name: " "}, noop))
	require.Error(t, r.Register(Definition{Name: "x"}, nil))
	require.NoError(t, r.Register(Definition{Name: "x"}, noop))
	require.Error(t, r.Register(Definition{Name: "x"}, noop))
	require.Error(t, RegisterFileSystemTools(nil, nil))
}

func TestFileSystem_WithFileFilter(t *testing.T) {
	dir := t.TempDir()
	plain, err := NewFileSystem(dir)
	require.NoError(t, err)
	root := plain.Root()

	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("*.log\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "debug.log"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "blob.bin"), []byte{0, 1, 2}, 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "node_modules"), 0o755))

	ff, err := filefilter.NewFileFilter(
		filefilter.WithGitIgnore(root),
		filefilter.WithDefaultExcludedDirs(),
		filefilter.WithFilterBinaryFiles(true),
	)
	require.NoError(t, err)
	f, err := NewFileSystem(root, WithFileFilter(ff))
	require.NoError(t, err)

	res := f.ListProjectFiles(".")
	require.True(t, res.OK())
	require.Equal(t, []string{".gitignore", "blob.bin", "main.go"}, res.Value)

	read := f.ReadFileContent("blob.bin")
	require.False(t, read.OK())
	require.Equal(t, KindInvalidArgument, read.Err.Kind)

	require.True(t, f.ReadFileContent("main.go").OK())

	all := plain.ListProjectFiles(".")
	require.Len(t, all.Value, 5)
}

package tools

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/devassist/pkg/filefilter"
)

// FileSystem runs the file tools confined to a root directory.
type FileSystem struct {
	root   string
	filter *filefilter.FileFilter
}

type FileSystemOption func(*FileSystem)

// WithFileFilter hides filtered entries from listings and refuses to read
// filtered files.
func WithFileFilter(ff *filefilter.FileFilter) FileSystemOption {
	return func(f *FileSystem) {
		f.filter = ff
	}
}

// NewFileSystem resolves root to an absolute path. An empty root means the
// working directory.
func NewFileSystem(root string, opts ...FileSystemOption) (*FileSystem, error) {
	if strings.TrimSpace(root) == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "tools: resolve root %s", root)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	f := &FileSystem{root: abs}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

func (f *FileSystem) Root() string { return f.root }

// resolve maps a caller path to an absolute path inside the root.
func (f *FileSystem) resolve(p string) (string, *ToolError) {
	if strings.TrimSpace(p) == "" {
		p = "."
	}
	candidate := p
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(f.root, candidate)
	}
	candidate, err := resolveExisting(filepath.Clean(candidate))
	if err != nil {
		return "", &ToolError{Kind: KindIO, Message: "path could not be resolved", Err: err}
	}

	rel, err := filepath.Rel(f.root, candidate)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", &ToolError{Kind: KindPermissionDenied, Message: "path resolves outside the project root"}
	}
	return candidate, nil
}

// resolveExisting evaluates symlinks on the deepest ancestor of p that exists
// and re-joins the missing tail, so a link followed by directories that do not
// exist yet still resolves to where MkdirAll would write.
func resolveExisting(p string) (string, error) {
	tail := []string{}
	cur := p
	for {
		resolved, err := filepath.EvalSymlinks(cur)
		if err == nil {
			return filepath.Join(append([]string{resolved}, tail...)...), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return p, nil
		}
		tail = append([]string{filepath.Base(cur)}, tail...)
		cur = parent
	}
}

// ListProjectFiles returns the sorted entry names of directory.
func (f *FileSystem) ListProjectFiles(directory string) Result[[]string] {
	log.Info().Str("tool", "list_project_files").Str("directory", directory).Msg("listing files")
	abs, terr := f.resolve(directory)
	if terr != nil {
		return Result[[]string]{Err: terr}
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return fail[[]string](kindForOSError(err), "directory could not be listed", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if f.filter.Hidden(filepath.Join(abs, e.Name()), e.IsDir()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return ok(names)
}

// ReadFileContent returns the content of a text file.
func (f *FileSystem) ReadFileContent(path string) Result[string] {
	log.Info().Str("tool", "read_file_content").Str("filepath", path).Msg("reading file")
	if strings.TrimSpace(path) == "" {
		return fail[string](KindInvalidArgument, "filepath is required", nil)
	}
	abs, terr := f.resolve(path)
	if terr != nil {
		return Result[string]{Err: terr}
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return fail[string](kindForOSError(err), "file could not be read", err)
	}
	if fi.IsDir() {
		return fail[string](KindInvalidArgument, "path is a directory", nil)
	}
	if err := f.filter.CheckReadable(abs, fi.Size()); err != nil {
		if errors.Is(err, filefilter.ErrTooLarge) || errors.Is(err, filefilter.ErrBinary) {
			return fail[string](KindInvalidArgument, err.Error(), nil)
		}
		return fail[string](kindForOSError(err), "file could not be read", err)
	}
	b, err := os.ReadFile(abs)
	if err != nil {
		return fail[string](kindForOSError(err), "file could not be read", err)
	}
	return ok(string(b))
}

// WriteFileContent creates or overwrites a file, creating parent directories.
func (f *FileSystem) WriteFileContent(path, content string) Result[string] {
	log.Info().Str("tool", "write_file_content").Str("filepath", path).Int("bytes", len(content)).Msg("writing file")
	if strings.TrimSpace(path) == "" {
		return fail[string](KindInvalidArgument, "filepath is required", nil)
	}
	abs, terr := f.resolve(path)
	if terr != nil {
		return Result[string]{Err: terr}
	}
	if abs == f.root {
		return fail[string](KindInvalidArgument, "path is the project root", nil)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fail[string](kindForOSError(err), "parent directory could not be created", err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		return fail[string](kindForOSError(err), "file could not be written", err)
	}
	return ok("file '" + path + "' saved")
}

func kindForOSError(err error) ErrorKind {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return KindNotFound
	case errors.Is(err, fs.ErrPermission):
		return KindPermissionDenied
	default:
		return KindIO
	}
}

// RegisterFileSystemTools declares list_project_files, read_file_content and
// write_file_content on r.
func RegisterFileSystemTools(r *Registry, f *FileSystem) error {
	if r == nil || f == nil {
		return pkgerrors.New("tools: registry and file system are required")
	}
	defs := []struct {
		def Definition
		fn  Func
	}{
		{
			def: Definition{
				Name:        "list_project_files",
				Description: "Returns the list of files and folders in the given directory.",
				Parameters: []Parameter{
					{Name: "directory", Type: TypeString, Description: "Directory to list, relative to the project root. Defaults to '.'."},
				},
			},
			fn: func(_ context.Context, args map[string]any) (any, *ToolError) {
				dir, terr := optionalString(args, "directory", ".")
				if terr != nil {
					return nil, terr
				}
				res := f.ListProjectFiles(dir)
				return res.Value, res.Err
			},
		},
		{
			def: Definition{
				Name:        "read_file_content",
				Description: "Reads and returns the content of a specific text file.",
				Parameters: []Parameter{
					{Name: "filepath", Type: TypeString, Description: "Path of the file to read.", Required: true},
				},
			},
			fn: func(_ context.Context, args map[string]any) (any, *ToolError) {
				p, terr := requiredString(args, "filepath")
				if terr != nil {
					return nil, terr
				}
				res := f.ReadFileContent(p)
				return res.Value, res.Err
			},
		},
		{
			def: Definition{
				Name:        "write_file_content",
				Description: "Writes or overwrites the content of a specific text file.",
				Parameters: []Parameter{
					{Name: "filepath", Type: TypeString, Description: "Path of the file to write.", Required: true},
					{Name: "content", Type: TypeString, Description: "Full content to write.", Required: true},
				},
			},
			fn: func(_ context.Context, args map[string]any) (any, *ToolError) {
				p, terr := requiredString(args, "filepath")
				if terr != nil {
					return nil, terr
				}
				content, terr := requiredString(args, "content")
				if terr != nil {
					return nil, terr
				}
				res := f.WriteFileContent(p, content)
				return res.Value, res.Err
			},
		},
	}
	for _, d := range defs {
		if err := r.Register(d.def, d.fn); err != nil {
			return err
		}
	}
	return nil
}

func requiredString(args map[string]any, key string) (string, *ToolError) {
	v, ok := args[key]
	if !ok {
		return "", &ToolError{Kind: KindInvalidArgument, Message: key + " is required"}
	}
	s, ok := v.(string)
	if !ok {
		return "", &ToolError{Kind: KindInvalidArgument, Message: key + " must be a string"}
	}
	return s, nil
}

func optionalString(args map[string]any, key, def string) (string, *ToolError) {
	if _, ok := args[key]; !ok {
		return def, nil
	}
	return requiredString(args, key)
}

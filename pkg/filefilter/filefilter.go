// Package filefilter decides which project files the file tools expose:
// entries hidden by .gitignore or excluded directory names are left out of
// listings, and oversized or binary files are not read.
package filefilter

import (
	"bytes"
	"io"
	"os"
	"path/filepath"

	"github.com/denormal/go-gitignore"
	"github.com/pkg/errors"
)

var (
	ErrTooLarge = errors.New("file exceeds the maximum readable size")
	ErrBinary   = errors.New("file looks binary")
)

// DefaultExcludedDirs are hidden from listings when WithDefaultExcludedDirs
// is set.
var DefaultExcludedDirs = []string{
	".git", ".svn", "node_modules", "vendor", ".history", ".idea", ".vscode", "build", "dist",
}

type FileFilter struct {
	// MaxFileSize in bytes; 0 means unlimited.
	MaxFileSize       int64
	ExcludeDirs       []string
	FilterBinaryFiles bool
	GitIgnoreFilter   gitignore.GitIgnore
	root              string
}

type FileFilterOption func(*FileFilter) error

// NewFileFilter builds a filter. Without options it lets everything through.
func NewFileFilter(options ...FileFilterOption) (*FileFilter, error) {
	ff := &FileFilter{}
	for _, option := range options {
		if err := option(ff); err != nil {
			return nil, err
		}
	}
	return ff, nil
}

func WithMaxFileSize(size int64) FileFilterOption {
	return func(ff *FileFilter) error {
		if size < 0 {
			return errors.Errorf("filefilter: negative max file size %d", size)
		}
		ff.MaxFileSize = size
		return nil
	}
}

func WithExcludeDirs(dirs []string) FileFilterOption {
	return func(ff *FileFilter) error {
		ff.ExcludeDirs = append(ff.ExcludeDirs, dirs...)
		return nil
	}
}

func WithDefaultExcludedDirs() FileFilterOption {
	return WithExcludeDirs(DefaultExcludedDirs)
}

func WithFilterBinaryFiles(filter bool) FileFilterOption {
	return func(ff *FileFilter) error {
		ff.FilterBinaryFiles = filter
		return nil
	}
}

// WithGitIgnore loads root/.gitignore. A missing file leaves gitignore
// filtering off.
func WithGitIgnore(root string) FileFilterOption {
	return func(ff *FileFilter) error {
		abs, err := filepath.Abs(root)
		if err != nil {
			return errors.Wrapf(err, "filefilter: resolve %s", root)
		}
		path := filepath.Join(abs, ".gitignore")
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return errors.Wrapf(err, "filefilter: stat %s", path)
		}
		gi, err := gitignore.NewFromFile(path)
		if err != nil {
			return errors.Wrapf(err, "filefilter: load %s", path)
		}
		ff.GitIgnoreFilter = gi
		ff.root = abs
		return nil
	}
}

// Hidden reports whether a directory entry is left out of listings.
func (ff *FileFilter) Hidden(absPath string, isDir bool) bool {
	if ff == nil {
		return false
	}
	if isDir {
		base := filepath.Base(absPath)
		for _, d := range ff.ExcludeDirs {
			if base == d {
				return true
			}
		}
	}
	// the gitignore matcher panics on its own root
	if ff.GitIgnoreFilter != nil && filepath.Clean(absPath) != ff.root {
		if match := ff.GitIgnoreFilter.Match(absPath); match != nil && match.Ignore() {
			return true
		}
	}
	return false
}

// CheckReadable returns ErrTooLarge or ErrBinary when the file should not be
// handed to the model.
func (ff *FileFilter) CheckReadable(absPath string, size int64) error {
	if ff == nil {
		return nil
	}
	if ff.MaxFileSize > 0 && size > ff.MaxFileSize {
		return ErrTooLarge
	}
	if ff.FilterBinaryFiles {
		isBinary, err := isBinaryFile(absPath)
		if err != nil {
			return err
		}
		if isBinary {
			return ErrBinary
		}
	}
	return nil
}

func isBinaryFile(filePath string) (bool, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return false, err
	}
	defer func(file *os.File) {
		_ = file.Close()
	}(file)

	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return false, err
	}
	return bytes.IndexByte(buffer[:n], 0) != -1, nil
}

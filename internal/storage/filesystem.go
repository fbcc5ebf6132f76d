package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Store abstracts durable artifact storage so the filesystem backend can
// later be swapped for an object store. Keys are root-relative,
// slash-separated paths.
type Store interface {
	EnsureDir(dir string) error
	Exists(key string) bool
	Remove(key string) error
	WriteFile(key string, r io.Reader) (int64, error)
	Open(key string) (io.ReadCloser, error)
}

// Filesystem implements Store on a local directory tree
type Filesystem struct {
	root string
}

// NewFilesystem creates a filesystem store rooted at root, creating the
// directory if needed
func NewFilesystem(root string) (*Filesystem, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &Filesystem{root: root}, nil
}

// Root returns the storage root directory
func (fs *Filesystem) Root() string {
	return fs.root
}

// resolve maps a key to an absolute path, rejecting traversal outside the root
func (fs *Filesystem) resolve(key string) (string, error) {
	key = strings.TrimPrefix(key, "/")
	path := filepath.Join(fs.root, filepath.FromSlash(key))
	cleanRoot := filepath.Clean(fs.root) + string(filepath.Separator)
	if !strings.HasPrefix(filepath.Clean(path)+string(filepath.Separator), cleanRoot) {
		return "", fmt.Errorf("invalid key %q: path escapes storage root", key)
	}
	return path, nil
}

// EnsureDir creates a directory under the root if it does not exist
func (fs *Filesystem) EnsureDir(dir string) error {
	path, err := fs.resolve(dir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %q: %w", dir, err)
	}
	return nil
}

// Exists reports whether a file exists at key
func (fs *Filesystem) Exists(key string) bool {
	path, err := fs.resolve(key)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Remove deletes the file at key
func (fs *Filesystem) Remove(key string) error {
	path, err := fs.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return nil
}

// WriteFile streams r into the file at key, returning the bytes written
func (fs *Filesystem) WriteFile(key string, r io.Reader) (int64, error) {
	path, err := fs.resolve(key)
	if err != nil {
		return 0, err
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create %q: %w", key, err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("failed to write %q: %w", key, err)
	}
	return n, nil
}

// Open returns a reader for the file at key
func (fs *Filesystem) Open(key string) (io.ReadCloser, error) {
	path, err := fs.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", key)
		}
		return nil, fmt.Errorf("failed to open %q: %w", key, err)
	}
	return f, nil
}

package persist

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
)

// Compile-time interface check.
var _ Storage = (*FileStorage)(nil)

// FileStorage keeps one file per key in a directory. Writes go to a temp
// file that is renamed into place, so readers never see a partial value.
type FileStorage struct {
	dir  string
	mode os.FileMode
}

// NewFileStorage creates dir if needed and returns a FileStorage over it.
func NewFileStorage(dir string) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("persist: create dir: %w", err)
	}
	return &FileStorage{dir: dir, mode: 0o600}, nil
}

// Dir returns the storage directory.
func (f *FileStorage) Dir() string {
	return f.dir
}

// path maps key to a file name. Keys are escaped so that any string is a
// single safe path element.
func (f *FileStorage) path(key string) string {
	return filepath.Join(f.dir, url.PathEscape(key)+".json")
}

// GetItem reads the file for key.
func (f *FileStorage) GetItem(_ context.Context, key string) ([]byte, error) {
	b, err := os.ReadFile(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// SetItem writes value via a temp file then rename.
func (f *FileStorage) SetItem(_ context.Context, key string, value []byte) error {
	dst := f.path(key)
	tmp, err := os.CreateTemp(f.dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(f.mode); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, dst)
}

// RemoveItem deletes the file for key.
func (f *FileStorage) RemoveItem(_ context.Context, key string) error {
	err := os.Remove(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Close is a no-op.
func (f *FileStorage) Close() error {
	return nil
}

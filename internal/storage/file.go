package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

// File keeps the EEPROM image in a file. The image is read once in Begin,
// Commit rewrites the whole file atomically.
type File struct {
	image
	path string
}

// NewFile create new file backed store
func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) Path() string {
	return f.path
}

// Begin loads the image. A missing or short file reads as erased cells.
func (f *File) Begin(size int) error {
	if size <= 0 {
		return ErrInvalidSize
	}
	buf := erased(size)
	data, err := os.ReadFile(f.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("begin: %w", err)
	}
	copy(buf, data)
	if len(data) > size {
		// keep bytes past the region, a bigger Begin may follow
		buf = data
	}
	f.buf = buf
	f.dirty = len(data) < size
	return nil
}

func (f *File) Commit() error {
	if f.buf == nil {
		return ErrNotBegun
	}
	if !f.dirty {
		return nil
	}
	if err := f.write(); err != nil {
		return fmt.Errorf("commit %s: %w", f.path, err)
	}
	f.dirty = false
	return nil
}

func (f *File) write() error {
	if dir := filepath.Dir(f.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return renameio.WriteFile(f.path, f.buf, 0644)
}

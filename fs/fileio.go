// Package fs contains a graphkv.Store keeping one file per storage key, optionally erasure
// coded across folders on different drives.
package fs

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/sharedcode/graphkv"
)

const (
	permission     os.FileMode = 0o755
	filePermission os.FileMode = 0o644
)

// FileIO defines filesystem operations used by this package. The default
// implementation delegates to the os package with retry on transient errors.
type FileIO interface {
	WriteFile(ctx context.Context, name string, data []byte, perm os.FileMode) error
	ReadFile(ctx context.Context, name string) ([]byte, error)
	Remove(ctx context.Context, name string) error
	Exists(ctx context.Context, path string) bool

	// Directory API.
	RemoveAll(ctx context.Context, path string) error
	MkdirAll(ctx context.Context, path string, perm os.FileMode) error
}

type defaultFileIO struct{}

// NewFileIO returns a FileIO that performs I/O via the os package.
func NewFileIO() FileIO {
	return defaultFileIO{}
}

// WriteFile writes data to a temp file then renames it over name, readers never see a partial file.
// Missing parent folders are created.
func (dio defaultFileIO) WriteFile(ctx context.Context, name string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(name)
	if err := dio.MkdirAll(ctx, dir, permission); err != nil {
		return err
	}
	return graphkv.Retry(ctx, func(context.Context) error {
		return graphkv.RetryableIf(writeAndRename(dir, name, data, perm))
	}, nil)
}

func writeAndRename(dir, name string, data []byte, perm os.FileMode) error {
	f, err := os.CreateTemp(dir, filepath.Base(name)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	_, err = f.Write(data)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Chmod(tmp, perm)
	}
	if err == nil {
		err = os.Rename(tmp, name)
	}
	if err != nil {
		os.Remove(tmp)
	}
	return err
}

func (dio defaultFileIO) ReadFile(ctx context.Context, name string) ([]byte, error) {
	var ba []byte
	err := graphkv.Retry(ctx, func(context.Context) error {
		var err error
		ba, err = os.ReadFile(name)
		return graphkv.RetryableIf(err)
	}, nil)
	return ba, err
}

// Remove deletes a file. A file already gone is not an error.
func (dio defaultFileIO) Remove(ctx context.Context, name string) error {
	return graphkv.Retry(ctx, func(context.Context) error {
		err := os.Remove(name)
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return graphkv.RetryableIf(err)
	}, nil)
}

func (dio defaultFileIO) MkdirAll(ctx context.Context, path string, perm os.FileMode) error {
	return graphkv.Retry(ctx, func(context.Context) error {
		return graphkv.RetryableIf(os.MkdirAll(path, perm))
	}, nil)
}

func (dio defaultFileIO) RemoveAll(ctx context.Context, path string) error {
	return graphkv.Retry(ctx, func(context.Context) error {
		return graphkv.RetryableIf(os.RemoveAll(path))
	}, nil)
}

func (dio defaultFileIO) Exists(ctx context.Context, path string) bool {
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return true
	}
	return false
}

// Package filesource abstracts the read side of scan roots so the core is
// agnostic to whether a root is a local directory or a cloud mount.
package filesource

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/curatord/curator/internal/types"
)

// Source is the read-only view of a file tree
type Source interface {
	// Walk visits every regular file under root
	Walk(ctx context.Context, root string, fn func(path string, info fs.FileInfo) error) error
	// Open returns a byte stream for path
	Open(path string) (io.ReadCloser, error)
	// Stat returns metadata for path
	Stat(path string) (fs.FileInfo, error)
}

// Local implements Source over the local filesystem
type Local struct{}

// Compile-time check that Local implements Source
var _ Source = (*Local)(nil)

// NewLocal creates a local filesystem source
func NewLocal() *Local { return &Local{} }

// Walk visits every regular file under root, depth first. Directory read
// errors are surfaced to fn with a nil info so the caller can record and
// continue.
func (l *Local) Walk(ctx context.Context, root string, fn func(path string, info fs.FileInfo) error) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			return fn(path, nil)
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return fn(path, nil)
		}
		return fn(path, info)
	})
}

// Open returns a byte stream for path
func (l *Local) Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, types.NewIOError("open", path, err)
	}
	return f, nil
}

// Stat returns metadata for path
func (l *Local) Stat(path string) (fs.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, types.NewIOError("stat", path, err)
	}
	return info, nil
}

package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Compile-time check that LocalSink implements Sink.
var _ Sink = (*LocalSink)(nil)

// LocalSink writes outputs to the local disk. It never creates
// directories: a missing destination directory is a write error.
type LocalSink struct{}

// NewLocalSink creates a new LocalSink.
func NewLocalSink() *LocalSink {
	return &LocalSink{}
}

// Save writes data to dir/name, truncating any existing file.
// An empty dir writes into the current working directory.
func (s *LocalSink) Save(ctx context.Context, dir, name string, data io.Reader) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("storage: context cancelled: %w", ctx.Err())
	default:
	}

	path := name
	if dir != "" {
		path = filepath.Join(dir, name)
	}

	f, err := os.Create(path) // #nosec G304 - destination chosen by the caller
	if err != nil {
		return "", fmt.Errorf("storage: create %s: %w", path, err)
	}

	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("storage: write %s: %w", path, err)
	}

	if err := f.Close(); err != nil {
		return "", fmt.Errorf("storage: close %s: %w", path, err)
	}

	return path, nil
}

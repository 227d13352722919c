package output

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Filesystem writes output below a root directory.
type Filesystem struct {
	Root string
}

// NewFilesystem creates a filesystem destination rooted at root.
func NewFilesystem(root string) *Filesystem {
	return &Filesystem{Root: root}
}

// Write implements Destination.
func (f *Filesystem) Write(ctx context.Context, path string, data []byte) (Action, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	rel, err := cleanPath(path)
	if err != nil {
		return "", err
	}
	full := filepath.Join(f.Root, filepath.FromSlash(rel))

	action := Create
	existing, err := os.ReadFile(full)
	switch {
	case err == nil:
		if bytes.Equal(existing, data) {
			return Identical, nil
		}
		action = Update
	case !errors.Is(err, fs.ErrNotExist):
		return "", fmt.Errorf("read %s: %w", full, err)
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create directory: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", full, err)
	}
	return action, nil
}

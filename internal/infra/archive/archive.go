// Package archive stores the original bytes of uploaded documents.
package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Nop discards documents. Used when no archive is configured.
type Nop struct{}

func (Nop) Put(context.Context, string, []byte, string) error { return nil }

// Local writes documents under a directory, mirroring the object key as a path.
type Local struct {
	dir string
}

func NewLocal(dir string) (*Local, error) {
	if dir == "" {
		return nil, fmt.Errorf("archive: local dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("archive: create dir: %w", err)
	}
	return &Local{dir: dir}, nil
}

func (l *Local) Put(_ context.Context, key string, data []byte, _ string) error {
	if strings.Contains(key, "..") {
		return fmt.Errorf("archive: invalid key %q", key)
	}
	path := filepath.Join(l.dir, filepath.Clean("/"+key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("archive: create dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("archive: write %s: %w", key, err)
	}
	return nil
}

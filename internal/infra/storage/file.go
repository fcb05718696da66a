package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileDocuments keeps each document in <dir>/<key>.json. Writes go to a temp file
// that is renamed over the target, so a crash never leaves a half-written document.
type FileDocuments struct {
	dir string
	mu  sync.Mutex
}

func OpenFile(dir string) (*FileDocuments, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir %s: %w", dir, err)
	}
	return &FileDocuments{dir: dir}, nil
}

func (f *FileDocuments) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("invalid document key %q", key)
	}
	return filepath.Join(f.dir, key+".json"), nil
}

func (f *FileDocuments) Get(ctx context.Context, key string) ([]byte, bool, error) {
	_ = ctx
	p, err := f.path(key)
	if err != nil {
		return nil, false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	b, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("error reading %s: %w", p, err)
	}
	return b, true, nil
}

func (f *FileDocuments) Put(ctx context.Context, key string, body []byte) error {
	_ = ctx
	p, err := f.path(key)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	tmp, err := os.CreateTemp(f.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("error creating temp file for %s: %w", key, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("error writing %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("error syncing %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("error closing %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("error replacing %s: %w", p, err)
	}
	return nil
}

func (f *FileDocuments) Close() error { return nil }

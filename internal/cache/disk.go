// SPDX-License-Identifier: MIT

package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

// diskStore persists blobs as files under a root directory. Writes are
// atomic and durable so a crash mid-refresh never leaves a truncated blob
// for the fallback path to pick up.
type diskStore struct {
	root string
}

// NewDiskStore creates a persistent store rooted at dir, creating it when
// missing.
func NewDiskStore(dir string) (Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("cache: disk store requires a root dir")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: create root: %w", err)
	}
	return &diskStore{root: dir}, nil
}

func (s *diskStore) file(key string) string {
	return filepath.Join(s.root, sanitizeKey(key))
}

func (s *diskStore) Put(ctx context.Context, key string, data []byte) error {
	if err := renameio.WriteFile(s.file(key), data, 0o644); err != nil {
		return fmt.Errorf("cache: write %s: %w", key, err)
	}
	return nil
}

func (s *diskStore) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := os.ReadFile(s.file(key))
	if err != nil {
		return nil, false
	}
	return data, true
}

func (s *diskStore) Path(ctx context.Context, key string) (string, bool) {
	p := s.file(key)
	if _, err := os.Stat(p); err != nil {
		return "", false
	}
	return p, true
}

// Clear wipes and recreates the root directory.
func (s *diskStore) Clear(ctx context.Context) error {
	if err := os.RemoveAll(s.root); err != nil {
		return fmt.Errorf("cache: clear: %w", err)
	}
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("cache: recreate root: %w", err)
	}
	return nil
}

// SPDX-License-Identifier: MIT

// Package cache provides named-blob persistence for fetched source
// documents. The store has no expiry of its own; staleness is decided by
// the catalog layer.
package cache

import (
	"context"
	"os"
	"path/filepath"
	"sync"
)

// Store persists named blobs. Backends differ in durability, not semantics.
type Store interface {
	// Put stores data under key, replacing any previous blob.
	Put(ctx context.Context, key string, data []byte) error
	// Get retrieves the blob for key. The second return is false when absent.
	Get(ctx context.Context, key string) ([]byte, bool)
	// Path resolves key to a readable file on the local filesystem, for
	// consumers that stream large payloads instead of holding them in
	// memory. The second return is false when absent.
	Path(ctx context.Context, key string) (string, bool)
	// Clear removes all blobs.
	Clear(ctx context.Context) error
}

// memoryStore keeps blobs in process memory. Path spills the blob to a
// temp file on demand.
type memoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
	spill map[string]string
}

// NewMemoryStore creates a volatile in-memory store.
func NewMemoryStore() Store {
	return &memoryStore{
		blobs: make(map[string][]byte),
		spill: make(map[string]string),
	}
}

func (s *memoryStore) Put(ctx context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = append([]byte(nil), data...)
	if p, ok := s.spill[key]; ok {
		_ = os.Remove(p)
		delete(s.spill, key)
	}
	return nil
}

func (s *memoryStore) Get(ctx context.Context, key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), b...), true
}

func (s *memoryStore) Path(ctx context.Context, key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.spill[key]; ok {
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
		delete(s.spill, key)
	}
	b, ok := s.blobs[key]
	if !ok {
		return "", false
	}
	f, err := os.CreateTemp("", "relaycast-cache-*")
	if err != nil {
		return "", false
	}
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", false
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", false
	}
	s.spill[key] = f.Name()
	return f.Name(), true
}

func (s *memoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.spill {
		_ = os.Remove(p)
	}
	s.blobs = make(map[string][]byte)
	s.spill = make(map[string]string)
	return nil
}

// sanitizeKey maps a logical key onto a safe file name.
func sanitizeKey(key string) string {
	return filepath.Base(filepath.Clean("/" + key))
}

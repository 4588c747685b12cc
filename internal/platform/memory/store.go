// Package memory provides an in-process store.KV. Nothing survives the
// process; it backs tests and throwaway sessions.
package memory

import (
	"bytes"
	"context"
	"sync"

	"github.com/phrazzld/storefront/internal/store"
)

// Store is a map-backed store.KV.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ store.KV = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

// Get implements store.KV.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	blob, ok := s.data[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return bytes.Clone(blob), nil
}

// Set implements store.KV.
func (s *Store) Set(ctx context.Context, key string, blob []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if blob == nil {
		blob = []byte{}
	}
	s.data[key] = bytes.Clone(blob)
	return nil
}

// Remove implements store.KV.
func (s *Store) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
	return nil
}

// Close implements io.Closer. The store stays usable.
func (s *Store) Close() error {
	return nil
}

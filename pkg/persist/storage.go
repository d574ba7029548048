// Package persist mirrors store state into a durable key-value medium.
//
// A Storage is the medium: memory, a directory of JSON files, a SQLite
// database, an S3 bucket or a Redis server. Middleware attaches a Persister to a
// store.Store: it hydrates the store from the medium when the store is
// created and writes the state back after every committed change.
//
// Persistence is best-effort. A missing or malformed payload is discarded
// and the store keeps its default state; write failures are logged and never
// reach the caller of Set.
//
// Example:
//
//	st, _ := persist.NewFileStorage(".counter")
//	p := persist.Middleware[counter.State](st, persist.WithName(counter.StorageKey))
//	c := counter.New(store.WithMiddleware[counter.State](p))
//	defer p.Close()
package persist

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned by Storage.GetItem when the key is absent.
var ErrNotFound = errors.New("persist: key not found")

// Storage is a durable key-value medium.
type Storage interface {
	// GetItem returns the value stored under key, or ErrNotFound.
	GetItem(ctx context.Context, key string) ([]byte, error)

	// SetItem stores value under key, replacing any previous value.
	SetItem(ctx context.Context, key string, value []byte) error

	// RemoveItem deletes key. Removing an absent key is not an error.
	RemoveItem(ctx context.Context, key string) error

	// Close releases any resources held by the storage.
	Close() error
}

// Compile-time interface check.
var _ Storage = (*MemoryStorage)(nil)

// MemoryStorage is a Storage kept in process memory.
type MemoryStorage struct {
	mu    sync.RWMutex
	items map[string][]byte
}

// NewMemoryStorage creates an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{items: make(map[string][]byte)}
}

// GetItem returns a copy of the value stored under key.
func (m *MemoryStorage) GetItem(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// SetItem stores a copy of value under key.
func (m *MemoryStorage) SetItem(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = append([]byte(nil), value...)
	return nil
}

// RemoveItem deletes key.
func (m *MemoryStorage) RemoveItem(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

// Close is a no-op.
func (m *MemoryStorage) Close() error {
	return nil
}

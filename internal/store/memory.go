package store

import (
	"context"
	"sync"
)

// MemoryStore implements an in-process object store. Entries are kept
// until Close; content addressing makes expiry a capacity concern, not
// a correctness one, and the in-process backend does not bound itself.
type MemoryStore struct {
	data   sync.Map
	config Config
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithConfig(DefaultConfig())
}

// NewMemoryStoreWithConfig creates a new in-memory store with custom
// configuration.
func NewMemoryStoreWithConfig(config Config) *MemoryStore {
	return &MemoryStore{config: config}
}

// Get retrieves a payload from the store.
func (m *MemoryStore) Get(ctx context.Context, objectID string) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	value, ok := m.data.Load(m.config.Prefix + objectID)
	if !ok {
		return nil, MissError{ObjectID: objectID}
	}
	return value.([]byte), nil
}

// Put stores a payload.
func (m *MemoryStore) Put(ctx context.Context, objectID string, payload []byte) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	m.data.Store(m.config.Prefix+objectID, payload)
	return nil
}

// Close releases the store's contents.
func (m *MemoryStore) Close() error {
	m.data.Range(func(key, _ any) bool {
		m.data.Delete(key)
		return true
	})
	return nil
}

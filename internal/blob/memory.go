package blob

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-process blob store.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

// Put stores a copy of data under key, replacing any previous value.
func (m *MemoryStore) Put(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	m.data[key] = append([]byte(nil), data...)
	m.mu.Unlock()
	return nil
}

// Get returns a copy of the bytes stored under key.
func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	d, ok := m.data[key]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, key)
	}
	return append([]byte(nil), d...), nil
}

// Delete removes key. Deleting a missing key is not an error.
func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored blobs.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

package store

import (
	"context"
	"maps"
	"slices"
	"sync"
)

// MemoryBackend keeps records in process memory.
type MemoryBackend struct {
	mu      sync.RWMutex
	records map[string][]byte

	// PutErr, when set, is returned by Put without writing.
	PutErr error
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{records: map[string][]byte{}}
}

func (m *MemoryBackend) Get(_ context.Context, name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.records[name]
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(data), nil
}

func (m *MemoryBackend) Put(_ context.Context, records map[string][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.PutErr != nil {
		return m.PutErr
	}
	for name, data := range records {
		m.records[name] = slices.Clone(data)
	}
	return nil
}

// Set writes a raw record; useful for seeding state.
func (m *MemoryBackend) Set(name string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[name] = slices.Clone(data)
}

// Names returns the stored record names, sorted.
func (m *MemoryBackend) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.records))
}

func (m *MemoryBackend) Close() error { return nil }

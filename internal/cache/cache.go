package cache

import (
	"context"
	"sync"
)

// ModelList caches the model ids reported by a provider.
type ModelList interface {
	// Get returns the cached ids and whether an entry exists.
	Get(ctx context.Context, provider string) ([]string, bool, error)
	Set(ctx context.Context, provider string, ids []string) error
}

// Memory is a process-local ModelList.
type Memory struct {
	mu      sync.RWMutex
	entries map[string][]string
}

var _ ModelList = (*Memory)(nil)

func NewMemory() *Memory { return &Memory{entries: make(map[string][]string)} }

func (m *Memory) Get(_ context.Context, provider string) ([]string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids, ok := m.entries[provider]
	if !ok {
		return nil, false, nil
	}
	return append([]string(nil), ids...), true, nil
}

func (m *Memory) Set(_ context.Context, provider string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[provider] = append([]string(nil), ids...)
	return nil
}

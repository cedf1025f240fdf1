package session

import (
	"context"
	"sync"
)

// MemoryBackend keeps keys in process memory. It does not survive a restart
// and exists for tests and embedded use.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryBackend returns an empty backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string]string)}
}

// Get returns the requested keys.
func (b *MemoryBackend) Get(_ context.Context, keys ...string) (map[string]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := b.data[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

// Put writes entries under one lock.
func (b *MemoryBackend) Put(_ context.Context, entries map[string]string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for k, v := range entries {
		b.data[k] = v
	}
	return nil
}

// Delete removes keys.
func (b *MemoryBackend) Delete(_ context.Context, keys ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, k := range keys {
		delete(b.data, k)
	}
	return nil
}

// Durable is false.
func (b *MemoryBackend) Durable() bool { return false }

// Len returns the number of stored keys.
func (b *MemoryBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.data)
}

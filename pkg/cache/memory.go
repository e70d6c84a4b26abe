package cache

import (
	"bytes"
	"context"
	"sync"
	"time"
)

const sweepInterval = 5 * time.Minute

type entry struct {
	data      []byte
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryCache is a process-local Cache. Values are copied in and out, so
// callers may reuse their buffers.
type MemoryCache struct {
	mu        sync.RWMutex
	items     map[string]entry
	done      chan struct{}
	closeOnce sync.Once
}

func NewMemoryCache() *MemoryCache {
	mc := &MemoryCache{items: make(map[string]entry), done: make(chan struct{})}
	go mc.sweep(sweepInterval)
	return mc
}

func (m *MemoryCache) lookup(key string) (entry, bool) {
	m.mu.RLock()
	e, ok := m.items[key]
	m.mu.RUnlock()
	if !ok || e.expired(time.Now()) {
		return entry{}, false
	}
	return e, true
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	e, ok := m.lookup(key)
	if !ok {
		return nil, nil
	}
	return bytes.Clone(e.data), nil
}

func (m *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}

	m.mu.Lock()
	m.items[key] = entry{data: bytes.Clone(value), expiresAt: expiresAt}
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache) Exists(_ context.Context, key string) (bool, error) {
	_, ok := m.lookup(key)
	return ok, nil
}

// Len reports the number of stored keys, including expired ones not yet swept.
func (m *MemoryCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

func (m *MemoryCache) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.evictExpired(time.Now())
		case <-m.done:
			return
		}
	}
}

func (m *MemoryCache) evictExpired(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, e := range m.items {
		if e.expired(now) {
			delete(m.items, k)
		}
	}
}

func (m *MemoryCache) Close() error {
	m.closeOnce.Do(func() { close(m.done) })
	return nil
}

func (m *MemoryCache) Ping(_ context.Context) error {
	return nil
}

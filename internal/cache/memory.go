package cache

import (
	"context"
	"sync"
	"time"
)

type memoryItem struct {
	value   string
	expires time.Time
}

// Memory is an in-process TTL cache bounded by entry count.
type Memory struct {
	mu         sync.Mutex
	items      map[string]memoryItem
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

// NewMemory returns an empty cache.
func NewMemory(ttl time.Duration, maxEntries int) *Memory {
	return &Memory{
		items:      make(map[string]memoryItem),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (m *Memory) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[key]
	if !ok {
		return "", ErrMiss
	}
	if !m.now().Before(item.expires) {
		delete(m.items, key)
		return "", ErrMiss
	}
	return item.value, nil
}

func (m *Memory) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if _, exists := m.items[key]; !exists && len(m.items) >= m.maxEntries {
		m.evict(now)
	}
	m.items[key] = memoryItem{value: value, expires: now.Add(m.ttl)}
	return nil
}

// evict drops expired entries, then the one closest to expiry if still full.
// Caller holds m.mu.
func (m *Memory) evict(now time.Time) {
	var oldestKey string
	var oldest time.Time
	for k, it := range m.items {
		if !now.Before(it.expires) {
			delete(m.items, k)
			continue
		}
		if oldestKey == "" || it.expires.Before(oldest) {
			oldestKey, oldest = k, it.expires
		}
	}
	if len(m.items) >= m.maxEntries && oldestKey != "" {
		delete(m.items, oldestKey)
	}
}

// Len reports the number of stored entries, including expired ones not yet
// evicted.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

func (m *Memory) Close() error { return nil }

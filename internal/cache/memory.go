package cache

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"storefront/internal/domain"
)

// Memory keeps entries in a size bounded LRU with a TTL.
type Memory struct {
	mu  sync.Mutex
	lru *expirable.LRU[string, domain.CachedPage]
}

func NewMemory(size int, ttl time.Duration) *Memory {
	if size <= 0 {
		size = 256
	}
	return &Memory{lru: expirable.NewLRU[string, domain.CachedPage](size, nil, ttl)}
}

func (m *Memory) Load(_ context.Context, key string) (domain.CachedPage, bool, error) {
	page, ok := m.lru.Get(key)
	return page, ok, nil
}

func (m *Memory) Store(_ context.Context, key string, expected int64, next domain.CachedPage) (domain.CachedPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, found := m.lru.Peek(key)
	out, write := resolve(cur, found, expected, next)
	if write {
		m.lru.Add(key, out)
	}
	return out, nil
}

func (m *Memory) Len() int {
	return m.lru.Len()
}

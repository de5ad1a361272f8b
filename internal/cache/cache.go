// Package cache holds catalog page entries keyed by normalized search text
// and sort mode.
package cache

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"storefront/internal/config"
	"storefront/internal/domain"
)

// PageStore is a versioned store of CachedPage entries. Entries are never
// mutated in place; every write replaces the whole entry.
type PageStore interface {
	// Load returns the entry for key. A missing entry reports ok=false.
	Load(ctx context.Context, key string) (page domain.CachedPage, ok bool, err error)
	// Store writes next when the stored version still equals expected
	// (0 for a missing entry). When another writer got there first the longer
	// entry is kept. The returned entry is the one now stored.
	Store(ctx context.Context, key string, expected int64, next domain.CachedPage) (domain.CachedPage, error)
}

// resolve decides what a Store call leaves behind. write is false when cur
// already covers next.
func resolve(cur domain.CachedPage, found bool, expected int64, next domain.CachedPage) (out domain.CachedPage, write bool) {
	var curVersion int64
	if found {
		curVersion = cur.Version
	}
	if curVersion != expected && found && len(cur.Items) >= len(next.Items) {
		if cur.Total == domain.TotalUnknown && next.Total != domain.TotalUnknown {
			cur.Total = next.Total
			cur.Version++
			return cur, true
		}
		return cur, false
	}
	next.Version = curVersion + 1
	return next, true
}

// New builds the PageStore selected by configuration.
func New(cfg config.Config, logger *zap.Logger) (PageStore, error) {
	switch cfg.Cache.Backend {
	case "memory":
		return NewMemory(cfg.Cache.Size, cfg.Cache.TTL), nil
	case "redis":
		return NewRedis(cfg.Redis, cfg.Cache.TTL, logger)
	default:
		return nil, fmt.Errorf("cache: unknown backend %q", cfg.Cache.Backend)
	}
}

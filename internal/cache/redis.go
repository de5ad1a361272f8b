package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"storefront/internal/config"
	"storefront/internal/domain"
	"storefront/internal/logger"
)

const maxStoreRetries = 5

// Redis keeps entries as JSON values with a TTL. Store is an optimistic
// WATCH/MULTI transaction on the entry key.
type Redis struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
	logger    *zap.Logger
}

// NewRedis connects to cfg.Addr and verifies the connection with a ping.
func NewRedis(cfg config.Redis, ttl time.Duration, l *zap.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewRedisWithClient(client, cfg.KeyPrefix, ttl, l), nil
}

func NewRedisWithClient(client redis.UniversalClient, keyPrefix string, ttl time.Duration, l *zap.Logger) *Redis {
	if keyPrefix == "" {
		keyPrefix = "catalog:page:"
	}
	return &Redis{client: client, keyPrefix: keyPrefix, ttl: ttl, logger: logger.OrNop(l).Named("page_cache")}
}

func (r *Redis) Load(ctx context.Context, key string) (domain.CachedPage, bool, error) {
	return get(ctx, r.client, r.keyPrefix+key)
}

func (r *Redis) Store(ctx context.Context, key string, expected int64, next domain.CachedPage) (domain.CachedPage, error) {
	k := r.keyPrefix + key
	var out domain.CachedPage

	txf := func(tx *redis.Tx) error {
		cur, found, err := get(ctx, tx, k)
		if err != nil {
			return err
		}
		var write bool
		out, write = resolve(cur, found, expected, next)
		if !write {
			return nil
		}
		payload, err := json.Marshal(out)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, payload, r.ttl)
			return nil
		})
		return err
	}

	for i := 0; i < maxStoreRetries; i++ {
		err := r.client.Watch(ctx, txf, k)
		if err == nil {
			return out, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return domain.CachedPage{}, fmt.Errorf("store page %s: %w", key, err)
		}
		r.logger.Debug("page store contended, retrying", zap.String("key", key), zap.Int("attempt", i+1))
	}
	return domain.CachedPage{}, fmt.Errorf("store page %s: too much contention", key)
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func get(ctx context.Context, c redis.Cmdable, k string) (domain.CachedPage, bool, error) {
	raw, err := c.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.CachedPage{}, false, nil
	}
	if err != nil {
		return domain.CachedPage{}, false, err
	}
	var page domain.CachedPage
	if err := json.Unmarshal(raw, &page); err != nil {
		return domain.CachedPage{}, false, fmt.Errorf("decode page %s: %w", k, err)
	}
	return page, true, nil
}

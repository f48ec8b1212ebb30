// Package redis provides an AncestorCache shared across processes through Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/permsync/internal/core/ports/driven"
	"github.com/custodia-labs/permsync/internal/logger"
)

var _ driven.AncestorCache = (*Cache)(nil)

// Config holds Redis connection configuration.
type Config struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// Cache stores ancestor chains as JSON arrays with a Redis TTL.
type Cache struct {
	rdb    redis.Cmdable
	prefix string
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, cfg Config) (*Cache, *redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.Addr, err)
	}

	logger.Info("connected to redis at %s", cfg.Addr)
	return NewWithClient(rdb, cfg.KeyPrefix), rdb, nil
}

// NewWithClient wraps an existing client.
func NewWithClient(rdb redis.Cmdable, prefix string) *Cache {
	return &Cache{rdb: rdb, prefix: prefix}
}

func (c *Cache) key(k string) string {
	if c.prefix == "" {
		return "ancestors:" + k
	}
	return c.prefix + ":ancestors:" + k
}

// Get returns the cached chain and true on a hit.
func (c *Cache) Get(ctx context.Context, key string) ([]string, bool, error) {
	raw, err := c.rdb.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var chain []string
	if err := json.Unmarshal(raw, &chain); err != nil {
		return nil, false, fmt.Errorf("decode cached chain: %w", err)
	}
	return chain, true, nil
}

// Set stores chain under key for ttl.
func (c *Cache) Set(ctx context.Context, key string, chain []string, ttl time.Duration) error {
	raw, err := json.Marshal(chain)
	if err != nil {
		return fmt.Errorf("encode chain: %w", err)
	}
	if err := c.rdb.Set(ctx, c.key(key), raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

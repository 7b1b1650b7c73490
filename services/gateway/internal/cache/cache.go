// Package cache keeps short-lived copies of public catalog responses so
// repeated strain reads do not hit the upstream.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New connects a catalog cache. addr may be empty, in which case nil is
// returned and callers fall through to the upstream on every read.
func New(addr string, ttl time.Duration) *Cache {
	if addr == "" {
		return nil
	}
	return &Cache{
		rdb: redis.NewClient(&redis.Options{Addr: addr}),
		ttl: ttl,
	}
}

// Get returns the cached body for key, or nil on a miss or cache error.
func (c *Cache) Get(ctx context.Context, key string) []byte {
	if c == nil {
		return nil
	}
	b, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil
	}
	return b
}

// Set stores body under key, best effort.
func (c *Cache) Set(ctx context.Context, key string, body []byte) {
	if c == nil {
		return
	}
	_ = c.rdb.Set(ctx, key, body, c.ttl).Err()
}

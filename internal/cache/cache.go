// Package cache stores the latest JSON snapshot per series in Redis, so
// multiple httpapi replicas avoid recomputing it. Grounded on the donor's
// use of github.com/redis/go-redis/v9 for read-path caching.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/forex24/czsc-go/internal/czerr"
)

// Cache wraps a Redis client keyed by series name.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New builds a Cache against a Redis address.
func New(addr string, ttl time.Duration) *Cache {
	return &Cache{rdb: redis.NewClient(&redis.Options{Addr: addr}), ttl: ttl}
}

func snapshotKey(series string) string { return "czsc:snapshot:" + series }

// PutSnapshot stores a series' serialized snapshot JSON with the configured
// TTL.
func (c *Cache) PutSnapshot(ctx context.Context, series string, payload []byte) error {
	if err := c.rdb.Set(ctx, snapshotKey(series), payload, c.ttl).Err(); err != nil {
		return czerr.Wrap(czerr.ParamError, "writing snapshot to redis", err)
	}
	return nil
}

// GetSnapshot retrieves a series' cached snapshot JSON, returning
// (nil, nil) on a cache miss.
func (c *Cache) GetSnapshot(ctx context.Context, series string) ([]byte, error) {
	payload, err := c.rdb.Get(ctx, snapshotKey(series)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, czerr.Wrap(czerr.ParamError, "reading snapshot from redis", err)
	}
	return payload, nil
}

// Close releases the underlying connection pool.
func (c *Cache) Close() error { return c.rdb.Close() }

// Package redis implements [github.com/inkpad/inkpad/pkg/cache.Cache] on a
// Redis endpoint.
package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/inkpad/inkpad/pkg/cache"
)

// Cache is a Redis-backed cache.Cache.
type Cache struct {
	client redis.UniversalClient
}

// New connects to the Redis endpoint at addr and verifies it with a ping.
func New(ctx context.Context, addr string) (cache.Cache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Cache{client: client}, nil
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

// Package cache defines the small read-through cache the leaderboard handler
// uses. It is response caching, not a data store: values are opaque encoded
// payloads with a TTL, and a miss or a cache failure always falls through to
// the database.
package cache

import (
	"context"
	"time"
)

// Cache stores encoded payloads under string keys with a TTL.
type Cache interface {
	// Get returns the payload for key, or (nil, nil) on a miss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores the payload under key for ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Noop is the cache used when no Redis endpoint is configured: every read is
// a miss and writes are dropped.
type Noop struct{}

func (Noop) Get(ctx context.Context, key string) ([]byte, error) { return nil, nil }

func (Noop) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return nil
}

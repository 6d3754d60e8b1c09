package cache

import (
	"context"
	"time"
)

// Backend is a key/value store with per-entry TTL. Implementations hold a
// single cache tier: the local filesystem or a remote Redis instance.
type Backend interface {
	// Get returns the stored value. The second return is false when the key
	// is absent or its TTL has elapsed.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Name() string
}

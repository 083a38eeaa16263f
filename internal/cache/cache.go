package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache: key not found")

// Store defines the TTL key-value semantics the query core needs.
// Staged results are write-once, read-many; entries expire on their own.
type Store interface {
	// Set stores value under key with the given time-to-live.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get returns the value for key, or ErrCacheMiss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Del removes the key. Deleting an absent key is not an error.
	Del(ctx context.Context, key string) error
}

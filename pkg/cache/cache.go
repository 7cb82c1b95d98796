// Package cache stores rendered letter pages so identical letters are not
// rasterized twice.
//
// The [Cache] interface has three implementations: [FileCache] for the CLI,
// [RedisCache] for servers sharing a cache, and [NullCache] when caching is
// disabled. Keys come from a [Keyer], which derives them from a hash of the
// encoded letter and the render settings.
//
// Errors that are worth retrying are wrapped with [Retryable];
// [RetryWithBackoff] and [Retry] act only on those.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with expiry.
type Cache interface {
	// Get returns the stored bytes and whether the key was present.
	// A missing or expired key is a miss, not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases the underlying resources.
	Close() error
}

// Default expiry for cached entries.
const (
	TTLRender  = 7 * 24 * time.Hour
	TTLPreview = 30 * 24 * time.Hour
)

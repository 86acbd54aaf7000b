package core

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UnifiedNewsCachePrefix starts every cached unified news feed key.
const UnifiedNewsCachePrefix = "news:unified:"

// Cache stores JSON-serializable values under string keys with a TTL.
type Cache interface {
	// Get decodes the value stored under key into dest; ok is false on a miss or an expired entry.
	Get(ctx context.Context, key string, dest interface{}) (ok bool, err error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// DeletePrefix drops every key starting with prefix.
	DeletePrefix(ctx context.Context, prefix string) error
}

func generationKey(prefix string) string { return "gen:" + prefix }

// CacheKey returns the key `name` is cached under in the current generation of the `prefix` family.
// Compute it before reading the source: a value read while an invalidation runs then lands in a
// generation nobody reads anymore. On error the key is still usable.
func CacheKey(ctx context.Context, cache Cache, prefix, name string) (string, error) {
	var gen string
	_, err := cache.Get(ctx, generationKey(prefix), &gen)
	return prefix + gen + ":" + name, err
}

// InvalidateCache starts a new generation of the `prefix` family and drops the entries cached so far.
func InvalidateCache(ctx context.Context, cache Cache, prefix string) error {
	if err := cache.Set(ctx, generationKey(prefix), uuid.New().String(), 0); err != nil {
		return err
	}
	return cache.DeletePrefix(ctx, prefix)
}

package core_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cresol/portal/core"
	cachesvc "github.com/cresol/portal/services/cache"
)

func TestInvalidateCache(t *testing.T) {
	ctx := context.Background()
	cache := cachesvc.NewMemoryCache()

	key, err := core.CacheKey(ctx, cache, core.UnifiedNewsCachePrefix, "all:20")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, core.UnifiedNewsCachePrefix))
	require.NoError(t, cache.Set(ctx, key, []string{"a"}, time.Minute))

	same, err := core.CacheKey(ctx, cache, core.UnifiedNewsCachePrefix, "all:20")
	require.NoError(t, err)
	assert.Equal(t, key, same)

	// a reader that computed its key before the invalidation writes into a dead generation
	require.NoError(t, core.InvalidateCache(ctx, cache, core.UnifiedNewsCachePrefix))
	require.NoError(t, cache.Set(ctx, key, []string{"stale"}, time.Minute))

	fresh, err := core.CacheKey(ctx, cache, core.UnifiedNewsCachePrefix, "all:20")
	require.NoError(t, err)
	assert.NotEqual(t, key, fresh)
	var got []string
	ok, err := cache.Get(ctx, fresh, &got)
	require.NoError(t, err)
	assert.False(t, ok)

	// other families keep their generation
	other, err := core.CacheKey(ctx, cache, "collections:", "all")
	require.NoError(t, err)
	assert.Equal(t, "collections::all", other)
}

package cachesvc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cached struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	nowFunc = func() time.Time { return now }
	defer func() { nowFunc = time.Now }()

	c := NewMemoryCache()
	require.NoError(t, c.Set(ctx, "news:unified:all:20", cached{Name: "a", Count: 1}, time.Minute))
	require.NoError(t, c.Set(ctx, "news:unified:all:5", cached{Name: "b", Count: 2}, time.Minute))
	require.NoError(t, c.Set(ctx, "collections:all", []cached{{Name: "c"}}, 0))

	var got cached
	ok, err := c.Get(ctx, "news:unified:all:20", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, cached{Name: "a", Count: 1}, got)

	ok, err = c.Get(ctx, "missing", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	// expiry
	nowFunc = func() time.Time { return now.Add(time.Minute) }
	ok, err = c.Get(ctx, "news:unified:all:5", &got)
	require.NoError(t, err)
	assert.False(t, ok, "entry should have expired")

	var list []cached
	ok, err = c.Get(ctx, "collections:all", &list)
	require.NoError(t, err)
	assert.True(t, ok, "entries without ttl never expire")
	assert.Len(t, list, 1)

	// prefix invalidation
	nowFunc = func() time.Time { return now }
	require.NoError(t, c.Set(ctx, "news:unified:all:5", cached{Name: "b"}, time.Minute))
	require.NoError(t, c.DeletePrefix(ctx, "news:unified:"))
	for _, key := range []string{"news:unified:all:20", "news:unified:all:5"} {
		ok, err = c.Get(ctx, key, &got)
		require.NoError(t, err)
		assert.False(t, ok, key)
	}
	ok, err = c.Get(ctx, "collections:all", &list)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, c.Delete(ctx, "collections:all"))
	ok, err = c.Get(ctx, "collections:all", &list)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCache_copies(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	val := []cached{{Name: "a"}}
	require.NoError(t, c.Set(ctx, "k", val, time.Minute))
	val[0].Name = "changed"

	var got []cached
	ok, err := c.Get(ctx, "k", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a", got[0].Name)
}

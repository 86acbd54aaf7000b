package filestore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cresol/portal/core"
)

func newTestStore(t *testing.T) *DiskStore {
	conf := core.NewTestConfig()
	conf.Media.Root = t.TempDir()
	store, err := NewDiskStore(conf)
	require.NoError(t, err)
	return store
}

func TestDiskStore(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Put(ctx, "videos/a.mp4", strings.NewReader("video")))
	data, err := os.ReadFile(filepath.Join(store.Root(), "videos", "a.mp4"))
	require.NoError(t, err)
	assert.Equal(t, "video", string(data))

	ok, err := store.Exists(ctx, "videos/a.mp4")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/media/videos/a.mp4", store.URL("videos/a.mp4"))

	require.NoError(t, store.Delete(ctx, "videos/a.mp4", "videos/missing.mp4"))
	ok, err = store.Exists(ctx, "videos/a.mp4")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDiskStore_invalidPaths(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for _, p := range []string{"", "/", "../secret", "videos/../../secret"} {
		assert.Error(t, store.Put(ctx, p, strings.NewReader("x")), p)
	}
}

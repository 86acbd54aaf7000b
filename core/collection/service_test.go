package collection_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cresol/portal/core"
	"github.com/cresol/portal/core/collection"
	"github.com/cresol/portal/core/user"
	cachesvc "github.com/cresol/portal/services/cache"
	inmemdb "github.com/cresol/portal/storage/database/inmem"
	"github.com/cresol/portal/testutil"
)

func TestService_cache(t *testing.T) {
	ctx := context.Background()
	conf := core.NewTestConfig()
	conf.Cache.CollectionsTTL = time.Hour
	repos := inmemdb.NewRepositories(inmemdb.Open())
	cache := cachesvc.NewMemoryCache()
	svc := collection.NewService(repos.Collection, cache, conf, testutil.NewLogger(conf))

	admin := testutil.CreateUser(t, repos.User, "Admin", "admin@cresol.test", "", user.RoleAdmin, true)
	bruno := testutil.CreateUser(t, repos.User, "Bruno", "bruno@cresol.test", "", user.RoleUser, true)

	_, err := svc.Create(ctx, bruno, collection.NewCollection{Title: "lol"})
	assert.Equal(t, core.ErrForbidden, err)

	c, err := svc.Create(ctx, admin, collection.NewCollection{Title: "Eventos", Type: collection.TypeMixed})
	require.NoError(t, err)
	_, err = svc.Create(ctx, admin, collection.NewCollection{Title: "Rascunhos", IsActive: core.BoolPtr(false)})
	require.NoError(t, err)

	colls, err := svc.Query(ctx, bruno)
	require.NoError(t, err)
	require.Len(t, colls, 1)
	colls, err = svc.Query(ctx, admin)
	require.NoError(t, err)
	require.Len(t, colls, 2)

	// writes behind the service's back are not seen until the cache is invalidated
	_, err = repos.Collection.CreateCollection(ctx, collection.Collection{Title: "Direto", Type: collection.TypeMixed, IsActive: true})
	require.NoError(t, err)
	colls, err = svc.Query(ctx, bruno)
	require.NoError(t, err)
	assert.Len(t, colls, 1)

	it, err := svc.AddItem(ctx, admin, c, collection.NewItem{MediaURL: "/media/a.jpg", MediaType: collection.MediaImage})
	require.NoError(t, err)
	assert.Equal(t, 0, it.OrderIndex)
	it, err = svc.AddItem(ctx, admin, c, collection.NewItem{MediaURL: "/media/b.mp4", MediaType: collection.MediaVideo})
	require.NoError(t, err)
	assert.Equal(t, 1, it.OrderIndex)

	colls, err = svc.Query(ctx, bruno)
	require.NoError(t, err)
	require.Len(t, colls, 2)
	assert.Equal(t, "Direto", colls[0].Title)
	assert.Equal(t, "Eventos", colls[1].Title)
	assert.Len(t, colls[1].Items, 2)
	colls, err = svc.Query(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, colls, 3)
}

// slowRepo runs during once, after reading collections and before they are returned.
type slowRepo struct {
	collection.Repository
	during func()
}

func (r *slowRepo) QueryCollections(ctx context.Context, filter *collection.QueryFilter) ([]collection.Collection, error) {
	colls, err := r.Repository.QueryCollections(ctx, filter)
	if r.during != nil {
		during := r.during
		r.during = nil
		during()
	}
	return colls, err
}

func TestService_cache_concurrentInvalidation(t *testing.T) {
	ctx := context.Background()
	conf := core.NewTestConfig()
	conf.Cache.CollectionsTTL = time.Hour
	repos := inmemdb.NewRepositories(inmemdb.Open())
	repo := &slowRepo{Repository: repos.Collection}
	svc := collection.NewService(repo, cachesvc.NewMemoryCache(), conf, testutil.NewLogger(conf))
	admin := testutil.CreateUser(t, repos.User, "Admin", "admin@cresol.test", "", user.RoleAdmin, true)

	_, err := svc.Create(ctx, admin, collection.NewCollection{Title: "Eventos", Type: collection.TypeMixed})
	require.NoError(t, err)

	repo.during = func() {
		_, err := svc.Create(ctx, admin, collection.NewCollection{Title: "Festa junina", Type: collection.TypePhotos})
		require.NoError(t, err)
	}
	colls, err := svc.Query(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, colls, 1, "read before the write landed")

	colls, err = svc.Query(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, colls, 2, "the list read during the invalidation is not served afterwards")
}

func TestCollection_Accepts(t *testing.T) {
	tests := []struct {
		typ       string
		mediaType string
		want      bool
	}{
		{collection.TypePhotos, collection.MediaImage, true},
		{collection.TypePhotos, collection.MediaVideo, false},
		{collection.TypeVideos, collection.MediaVideo, true},
		{collection.TypeVideos, collection.MediaImage, false},
		{collection.TypeMixed, collection.MediaImage, true},
		{collection.TypeMixed, collection.MediaVideo, true},
	}
	for _, tt := range tests {
		t.Run(tt.typ+"/"+tt.mediaType, func(t *testing.T) {
			assert.Equal(t, tt.want, collection.Collection{Type: tt.typ}.Accepts(tt.mediaType))
		})
	}
}

package video_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cresol/portal/core"
	"github.com/cresol/portal/core/user"
	"github.com/cresol/portal/core/video"
	inmemdb "github.com/cresol/portal/storage/database/inmem"
	"github.com/cresol/portal/testutil"
)

var errDiskFull = errors.New("disk is read-only")

// failingStore refuses to delete anything.
type failingStore struct {
	deleted []string
}

var _ core.FileStore = (*failingStore)(nil) // interface compliance check

func (s *failingStore) Put(context.Context, string, io.Reader) error { return nil }

func (s *failingStore) Delete(_ context.Context, paths ...string) error {
	s.deleted = append(s.deleted, paths...)
	return errDiskFull
}

func (s *failingStore) Exists(context.Context, string) (bool, error) { return true, nil }

func (s *failingStore) URL(p string) string { return "/media/" + p }

func setup(t *testing.T) (video.Service, video.Repository, *failingStore, user.User) {
	t.Helper()
	conf := core.NewTestConfig()
	repos := inmemdb.NewRepositories(inmemdb.Open())
	store := &failingStore{}
	svc := video.NewService(repos.Video, store, testutil.NewLogger(conf))
	admin := testutil.CreateUser(t, repos.User, "Admin", "admin@cresol.test", "", user.RoleAdmin, true)
	return svc, repos.Video, store, admin
}

func TestService_Delete_storageFailure(t *testing.T) {
	svc, repo, store, admin := setup(t)
	ctx := context.Background()

	v, err := repo.CreateVideo(ctx, video.Video{
		Title:         "Boas-vindas",
		StoragePath:   "videos/welcome.mp4",
		ThumbnailPath: "thumbnails/welcome.jpg",
		IsActive:      true,
	})
	require.NoError(t, err)

	err = svc.Delete(ctx, admin, v)
	assert.ErrorIs(t, err, errDiskFull)
	assert.ElementsMatch(t, []string{"videos/welcome.mp4", "thumbnails/welcome.jpg"}, store.deleted)

	kept, err := repo.GetVideo(ctx, v.ID)
	require.NoError(t, err, "the row stays when its files could not be removed")
	assert.Equal(t, v.StoragePath, kept.StoragePath)
}

func TestService_Update_orderIndexConflict(t *testing.T) {
	svc, repo, _, admin := setup(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, admin, video.NewVideo{Title: "Um", VideoURL: "https://videos.cresol.test/1"}, nil)
	require.NoError(t, err)
	second, err := svc.Create(ctx, admin, video.NewVideo{Title: "Dois", VideoURL: "https://videos.cresol.test/2"}, nil)
	require.NoError(t, err)
	require.Equal(t, []int{0, 1}, []int{first.OrderIndex, second.OrderIndex})

	moved, err := svc.Update(ctx, admin, second, video.UpdateVideo{OrderIndex: core.IntPtr(0)})
	require.NoError(t, err)
	assert.Equal(t, 2, moved.OrderIndex, "a taken index falls back to the end")

	first, err = repo.GetVideo(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, first.OrderIndex)
}

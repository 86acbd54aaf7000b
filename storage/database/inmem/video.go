package inmemdb

import (
	"context"
	"sort"

	"github.com/cresol/portal/core"
	"github.com/cresol/portal/core/video"
)

type videoRepository struct {
	db *DB
}

var _ video.Repository = (*videoRepository)(nil) // interface compliance check

func NewVideoRepository(db *DB) *videoRepository {
	return &videoRepository{db: db}
}

func (repo *videoRepository) indexTaken(idx int, excludeID string) bool {
	for _, v := range repo.db.videos {
		if v.OrderIndex == idx && v.ID != excludeID {
			return true
		}
	}
	return false
}

func (repo *videoRepository) MaxOrderIndex(context.Context) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	indexes := make([]int, 0, len(repo.db.videos))
	for _, v := range repo.db.videos {
		indexes = append(indexes, v.OrderIndex)
	}
	return maxOrderIndex(indexes), nil
}

func (repo *videoRepository) CreateVideo(_ context.Context, v video.Video) (video.Video, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	if repo.indexTaken(v.OrderIndex, "") {
		return video.Video{}, core.ErrOrderIndexConflict
	}
	v.ID = newID()
	repo.db.videos[v.ID] = v
	return v, nil
}

func (repo *videoRepository) QueryVideos(_ context.Context, filter *video.QueryFilter) ([]video.Video, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	videos := make([]video.Video, 0, len(repo.db.videos))
	for _, v := range repo.db.videos {
		if filter != nil && filter.IsActive != nil && v.IsActive != *filter.IsActive {
			continue
		}
		videos = append(videos, v)
	}
	sort.Slice(videos, func(i, j int) bool { return videos[i].OrderIndex < videos[j].OrderIndex })
	return videos, nil
}

func (repo *videoRepository) GetVideo(_ context.Context, id string) (video.Video, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if v, ok := repo.db.videos[id]; ok {
		return v, nil
	}
	return video.Video{}, video.ErrNotFound
}

func (repo *videoRepository) UpdateVideo(_ context.Context, v video.Video) (video.Video, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	if _, ok := repo.db.videos[v.ID]; !ok {
		return video.Video{}, video.ErrNotFound
	}
	if repo.indexTaken(v.OrderIndex, v.ID) {
		return video.Video{}, core.ErrOrderIndexConflict
	}
	repo.db.videos[v.ID] = v
	return v, nil
}

func (repo *videoRepository) DeleteVideo(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	if _, ok := repo.db.videos[id]; !ok {
		return video.ErrNotFound
	}
	delete(repo.db.videos, id)
	return nil
}

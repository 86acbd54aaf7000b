package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/cresol/portal/core"
	"github.com/cresol/portal/core/banner"
)

type bannerRepository struct {
	db *DB
}

var _ banner.Repository = (*bannerRepository)(nil) // interface compliance check

func NewBannerRepository(db *DB) *bannerRepository {
	return &bannerRepository{db: db}
}

func (repo *bannerRepository) indexTaken(idx int, excludeID string) bool {
	for _, b := range repo.db.banners {
		if b.OrderIndex == idx && b.ID != excludeID {
			return true
		}
	}
	return false
}

func (repo *bannerRepository) MaxOrderIndex(context.Context) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	indexes := make([]int, 0, len(repo.db.banners))
	for _, b := range repo.db.banners {
		indexes = append(indexes, b.OrderIndex)
	}
	return maxOrderIndex(indexes), nil
}

func (repo *bannerRepository) CreateBanner(_ context.Context, b banner.Banner) (banner.Banner, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	if repo.indexTaken(b.OrderIndex, "") {
		return banner.Banner{}, core.ErrOrderIndexConflict
	}
	b.ID = newID()
	repo.db.banners[b.ID] = b
	return b, nil
}

func (repo *bannerRepository) QueryBanners(_ context.Context, filter *banner.QueryFilter) ([]banner.Banner, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var at time.Time
	if filter != nil && filter.Active {
		at = filter.DisplayedAt
		if at.IsZero() {
			at = time.Now().UTC()
		}
	}
	banners := make([]banner.Banner, 0, len(repo.db.banners))
	for _, b := range repo.db.banners {
		if !at.IsZero() && !b.IsDisplayed(at) {
			continue
		}
		banners = append(banners, b)
	}
	sort.Slice(banners, func(i, j int) bool { return banners[i].OrderIndex < banners[j].OrderIndex })
	return banners, nil
}

func (repo *bannerRepository) GetBanner(_ context.Context, id string) (banner.Banner, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if b, ok := repo.db.banners[id]; ok {
		return b, nil
	}
	return banner.Banner{}, banner.ErrNotFound
}

func (repo *bannerRepository) UpdateBanner(_ context.Context, b banner.Banner) (banner.Banner, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	if _, ok := repo.db.banners[b.ID]; !ok {
		return banner.Banner{}, banner.ErrNotFound
	}
	if repo.indexTaken(b.OrderIndex, b.ID) {
		return banner.Banner{}, core.ErrOrderIndexConflict
	}
	repo.db.banners[b.ID] = b
	return b, nil
}

func (repo *bannerRepository) DeleteBanner(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	if _, ok := repo.db.banners[id]; !ok {
		return banner.ErrNotFound
	}
	delete(repo.db.banners, id)
	return nil
}

func (repo *bannerRepository) SetOrder(_ context.Context, ids []string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, id := range ids {
		if _, ok := repo.db.banners[id]; !ok {
			return banner.ErrNotFound
		}
	}
	now := time.Now().UTC()
	for i, id := range ids {
		b := repo.db.banners[id]
		b.OrderIndex = i
		b.UpdatedAt = now
		repo.db.banners[id] = b
	}
	return nil
}

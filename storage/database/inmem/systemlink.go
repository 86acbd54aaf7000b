package inmemdb

import (
	"context"
	"sort"

	"github.com/cresol/portal/core"
	"github.com/cresol/portal/core/systemlink"
)

type systemLinkRepository struct {
	db *DB
}

var _ systemlink.Repository = (*systemLinkRepository)(nil) // interface compliance check

func NewSystemLinkRepository(db *DB) *systemLinkRepository {
	return &systemLinkRepository{db: db}
}

func (repo *systemLinkRepository) indexTaken(idx int, excludeID string) bool {
	for _, l := range repo.db.links {
		if l.OrderIndex == idx && l.ID != excludeID {
			return true
		}
	}
	return false
}

func (repo *systemLinkRepository) MaxOrderIndex(context.Context) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	indexes := make([]int, 0, len(repo.db.links))
	for _, l := range repo.db.links {
		indexes = append(indexes, l.OrderIndex)
	}
	return maxOrderIndex(indexes), nil
}

func (repo *systemLinkRepository) CreateLink(_ context.Context, l systemlink.SystemLink) (systemlink.SystemLink, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	if repo.indexTaken(l.OrderIndex, "") {
		return systemlink.SystemLink{}, core.ErrOrderIndexConflict
	}
	l.ID = newID()
	repo.db.links[l.ID] = l
	return l, nil
}

func (repo *systemLinkRepository) QueryLinks(_ context.Context, activeOnly bool) ([]systemlink.SystemLink, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	links := make([]systemlink.SystemLink, 0, len(repo.db.links))
	for _, l := range repo.db.links {
		if activeOnly && !l.IsActive {
			continue
		}
		links = append(links, l)
	}
	sort.Slice(links, func(i, j int) bool { return links[i].OrderIndex < links[j].OrderIndex })
	return links, nil
}

func (repo *systemLinkRepository) GetLink(_ context.Context, id string) (systemlink.SystemLink, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if l, ok := repo.db.links[id]; ok {
		return l, nil
	}
	return systemlink.SystemLink{}, systemlink.ErrNotFound
}

func (repo *systemLinkRepository) UpdateLink(_ context.Context, l systemlink.SystemLink) (systemlink.SystemLink, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	if _, ok := repo.db.links[l.ID]; !ok {
		return systemlink.SystemLink{}, systemlink.ErrNotFound
	}
	if repo.indexTaken(l.OrderIndex, l.ID) {
		return systemlink.SystemLink{}, core.ErrOrderIndexConflict
	}
	repo.db.links[l.ID] = l
	return l, nil
}

func (repo *systemLinkRepository) DeleteLink(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	if _, ok := repo.db.links[id]; !ok {
		return systemlink.ErrNotFound
	}
	delete(repo.db.links, id)
	return nil
}

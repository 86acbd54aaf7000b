package inmemdb

import (
	"context"
	"sort"

	"github.com/cresol/portal/core"
	"github.com/cresol/portal/core/news"
)

type newsRepository struct {
	db *DB
}

var _ news.Repository = (*newsRepository)(nil) // interface compliance check

func NewNewsRepository(db *DB) *newsRepository {
	return &newsRepository{db: db}
}

func matchNews(n news.News, filter *news.QueryFilter) bool {
	if n.Source != filter.Source {
		return false
	}
	if filter.Source == news.SourceSector && filter.SectorID != "" && core.StringVal(n.SectorID) != filter.SectorID {
		return false
	}
	if filter.PublishedOnly && !n.IsPublished {
		return false
	}
	if filter.Search != "" && !containsFold(n.Title, filter.Search) && !containsFold(n.Summary, filter.Search) {
		return false
	}
	if filter.IsFeatured != nil && n.IsFeatured != *filter.IsFeatured {
		return false
	}
	return true
}

func (repo *newsRepository) CreateNews(_ context.Context, n news.News) (news.News, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	if n.Source == news.SourceSector {
		if _, ok := repo.db.sectors[core.StringVal(n.SectorID)]; !ok {
			return news.News{}, core.DBError{Message: "sector does not exist", Code: "23503"}
		}
	} else {
		n.SectorID = nil
	}
	n.ID = newID()
	repo.db.news[n.ID] = n
	return n, nil
}

func (repo *newsRepository) QueryNews(_ context.Context, filter *news.QueryFilter) ([]news.News, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	list := make([]news.News, 0)
	for _, n := range repo.db.news {
		if matchNews(n, filter) {
			list = append(list, n)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if filter.ByWeight {
			if wa, wb := news.Weight(a), news.Weight(b); wa != wb {
				return wa > wb
			}
		}
		if ta, tb := a.Timestamp(), b.Timestamp(); !ta.Equal(tb) {
			return ta.After(tb)
		}
		return a.ID < b.ID
	})
	if filter.Limit > 0 && len(list) > filter.Limit {
		list = list[:filter.Limit]
	}
	return list, nil
}

func (repo *newsRepository) GetNews(_ context.Context, source, id string) (news.News, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if n, ok := repo.db.news[id]; ok && n.Source == source {
		return n, nil
	}
	return news.News{}, news.ErrNotFound
}

func (repo *newsRepository) UpdateNews(_ context.Context, n news.News) (news.News, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	orig, ok := repo.db.news[n.ID]
	if !ok || orig.Source != n.Source {
		return news.News{}, news.ErrNotFound
	}
	n.SectorID = orig.SectorID
	repo.db.news[n.ID] = n
	return n, nil
}

func (repo *newsRepository) DeleteNews(_ context.Context, source, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	if n, ok := repo.db.news[id]; !ok || n.Source != source {
		return news.ErrNotFound
	}
	delete(repo.db.news, id)
	return nil
}

package inmemdb

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/cresol/portal/core/news"
	"github.com/cresol/portal/core/stats"
)

type statsRepository struct {
	db *DB

	// Fail makes GetStats error out, to exercise the placeholder path.
	Fail bool
}

var _ stats.Repository = (*statsRepository)(nil) // interface compliance check

func NewStatsRepository(db *DB) *statsRepository {
	return &statsRepository{db: db}
}

func (repo *statsRepository) GetStats(_ context.Context, now time.Time) (stats.Stats, error) {
	if repo.Fail {
		return stats.Stats{}, errors.New("stats unavailable")
	}
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	st := stats.Stats{
		Users:       len(repo.db.users),
		Sectors:     len(repo.db.sectors),
		Subsectors:  len(repo.db.subsectors),
		Banners:     len(repo.db.banners),
		Videos:      len(repo.db.videos),
		Events:      len(repo.db.events),
		Collections: len(repo.db.collections),
		SystemLinks: len(repo.db.links),
	}
	for _, u := range repo.db.users {
		if u.IsActive {
			st.ActiveUsers++
		}
	}
	for _, b := range repo.db.banners {
		if b.IsDisplayed(now) {
			st.ActiveBanners++
		}
	}
	for _, n := range repo.db.news {
		if n.Source == news.SourceGeneral {
			st.GeneralNews++
		} else {
			st.SectorNews++
		}
		if n.IsPublished {
			st.PublishedNews++
		}
	}
	for _, e := range repo.db.events {
		end := e.StartsAt
		if e.EndsAt != nil {
			end = *e.EndsAt
		}
		if !end.Before(now) {
			st.UpcomingEvents++
		}
	}
	return st, nil
}

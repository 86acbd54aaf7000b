package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/cresol/portal/core/stats"
)

const statsQuery = `SELECT
	(SELECT COUNT(*) FROM profiles) AS users,
	(SELECT COUNT(*) FROM profiles WHERE is_active) AS active_users,
	(SELECT COUNT(*) FROM sectors) AS sectors,
	(SELECT COUNT(*) FROM subsectors) AS subsectors,
	(SELECT COUNT(*) FROM banners) AS banners,
	(SELECT COUNT(*) FROM banners
		WHERE is_active AND (starts_at IS NULL OR starts_at <= $1) AND (ends_at IS NULL OR ends_at > $1)) AS active_banners,
	(SELECT COUNT(*) FROM dashboard_videos) AS videos,
	(SELECT COUNT(*) FROM general_news) AS general_news,
	(SELECT COUNT(*) FROM sector_news) AS sector_news,
	(SELECT COUNT(*) FROM general_news WHERE is_published)
		+ (SELECT COUNT(*) FROM sector_news WHERE is_published) AS published_news,
	(SELECT COUNT(*) FROM events) AS events,
	(SELECT COUNT(*) FROM events WHERE COALESCE(ends_at, starts_at) >= $1) AS upcoming_events,
	(SELECT COUNT(*) FROM collections) AS collections,
	(SELECT COUNT(*) FROM system_links) AS system_links`

type statsRow struct {
	Users          int `db:"users"`
	ActiveUsers    int `db:"active_users"`
	Sectors        int `db:"sectors"`
	Subsectors     int `db:"subsectors"`
	Banners        int `db:"banners"`
	ActiveBanners  int `db:"active_banners"`
	Videos         int `db:"videos"`
	GeneralNews    int `db:"general_news"`
	SectorNews     int `db:"sector_news"`
	PublishedNews  int `db:"published_news"`
	Events         int `db:"events"`
	UpcomingEvents int `db:"upcoming_events"`
	Collections    int `db:"collections"`
	SystemLinks    int `db:"system_links"`
}

type statsRepository struct {
	db *sqlx.DB
}

var _ stats.Repository = (*statsRepository)(nil) // interface compliance check

func NewStatsRepository(db *sqlx.DB) *statsRepository {
	return &statsRepository{db: db}
}

func (repo *statsRepository) GetStats(ctx context.Context, now time.Time) (stats.Stats, error) {
	var r statsRow
	if err := repo.db.GetContext(ctx, &r, statsQuery, now.UTC()); err != nil {
		return stats.Stats{}, dbError(err, "computing stats")
	}
	return stats.Stats{
		Users:          r.Users,
		ActiveUsers:    r.ActiveUsers,
		Sectors:        r.Sectors,
		Subsectors:     r.Subsectors,
		Banners:        r.Banners,
		ActiveBanners:  r.ActiveBanners,
		Videos:         r.Videos,
		GeneralNews:    r.GeneralNews,
		SectorNews:     r.SectorNews,
		PublishedNews:  r.PublishedNews,
		Events:         r.Events,
		UpcomingEvents: r.UpcomingEvents,
		Collections:    r.Collections,
		SystemLinks:    r.SystemLinks,
	}, nil
}

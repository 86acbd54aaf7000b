package stats

import (
	"context"
	"time"

	"github.com/cresol/portal/core"
	"github.com/cresol/portal/core/user"
)

// Stats feeds the admin monitoring dashboard.
type Stats struct {
	Users          int       `json:"users"`
	ActiveUsers    int       `json:"active_users"`
	Sectors        int       `json:"sectors"`
	Subsectors     int       `json:"subsectors"`
	Banners        int       `json:"banners"`
	ActiveBanners  int       `json:"active_banners"`
	Videos         int       `json:"videos"`
	GeneralNews    int       `json:"general_news"`
	SectorNews     int       `json:"sector_news"`
	PublishedNews  int       `json:"published_news"`
	Events         int       `json:"events"`
	UpcomingEvents int       `json:"upcoming_events"`
	Collections    int       `json:"collections"`
	SystemLinks    int       `json:"system_links"`
	GeneratedAt    time.Time `json:"generated_at"`
	Fallback       bool      `json:"fallback"`
	FallbackReason string    `json:"fallback_reason,omitempty"`
}

// Placeholder is served when the counts cannot be computed, so the dashboard still renders.
func Placeholder(at time.Time) Stats {
	return Stats{
		GeneratedAt:    at,
		Fallback:       true,
		FallbackReason: "statistics are temporarily unavailable, please try again later",
	}
}

type Repository interface {
	// GetStats counts the dashboard figures; `now` splits upcoming from past events.
	GetStats(ctx context.Context, now time.Time) (Stats, error)
}

type (
	Service interface {
		// Get only fails on missing rights: count errors are logged and Placeholder is returned instead.
		Get(ctx context.Context, actor user.User) (Stats, error)
	}

	service struct {
		repo   Repository
		logger core.Logger
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(repo Repository, logger core.Logger) Service {
	return &service{repo: repo, logger: logger}
}

func (svc *service) Get(ctx context.Context, actor user.User) (Stats, error) {
	if !actor.IsAdmin() {
		return Stats{}, core.ErrForbidden
	}
	now := time.Now().UTC()
	st, err := svc.repo.GetStats(ctx, now)
	if err != nil {
		svc.logger.Error("computing dashboard stats", err, actor)
		return Placeholder(now), nil
	}
	st.GeneratedAt = now
	st.Fallback = false
	return st, nil
}

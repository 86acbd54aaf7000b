package news

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/cresol/portal/core"
)

// News sources
const (
	SourceGeneral = "general"
	SourceSector  = "sector"
)

const (
	DefaultUnifiedLimit = 20
	MaxUnifiedLimit     = 100
)

// News is either a general news (SectorID is nil) or a sector news.
type News struct {
	ID             string     `json:"id"`
	Source         string     `json:"source"`
	SectorID       *string    `json:"sector_id,omitempty"`
	Title          string     `json:"title"`
	Summary        string     `json:"summary"`
	Content        string     `json:"content"`
	ImageURL       string     `json:"image_url"`
	IsPublished    bool       `json:"is_published"`
	IsFeatured     bool       `json:"is_featured"`
	ShowOnHomepage bool       `json:"show_on_homepage"`
	Priority       int        `json:"priority"`
	PublishedAt    *time.Time `json:"published_at"`
	CreatedBy      *string    `json:"created_by"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Timestamp is when the news went out, falling back to its creation time.
func (n News) Timestamp() time.Time {
	if n.PublishedAt != nil {
		return *n.PublishedAt
	}
	return n.CreatedAt
}

// Weight ranks news in the unified feed: priority*100 + featured*30 + homepage*70 + normalized timestamp.
// The timestamp is normalized to seconds/1e10 so it only breaks ties between equally flagged news.
func Weight(n News) float64 {
	w := float64(n.Priority * 100)
	if n.IsFeatured {
		w += 30
	}
	if n.ShowOnHomepage {
		w += 70
	}
	return w + float64(n.Timestamp().Unix())/1e10
}

// UnifiedItem is a news of the unified feed along with its ranking weight.
type UnifiedItem struct {
	News
	Weight float64 `json:"weight"`
}

type NewNews struct {
	Title          string     `json:"title" validate:"required,max=250"`
	Summary        string     `json:"summary" validate:"max=500"`
	Content        string     `json:"content" validate:"required"`
	ImageURL       string     `json:"image_url" validate:"omitempty,link"`
	IsPublished    bool       `json:"is_published"`
	IsFeatured     bool       `json:"is_featured"`
	ShowOnHomepage bool       `json:"show_on_homepage"`
	Priority       int        `json:"priority" validate:"min=0,max=10"`
	PublishedAt    *time.Time `json:"published_at"`
}

func (nn *NewNews) Validate(validate *validator.Validate) error {
	nn.Title = core.CleanString(nn.Title)
	nn.Summary = core.CleanString(nn.Summary)
	nn.ImageURL = core.CleanString(nn.ImageURL)
	return validate.Struct(nn)
}

type UpdateNews struct {
	Title          *string    `json:"title" validate:"omitempty,min=1,max=250"`
	Summary        *string    `json:"summary" validate:"omitempty,max=500"`
	Content        *string    `json:"content" validate:"omitempty,min=1"`
	ImageURL       *string    `json:"image_url" validate:"omitempty,link"`
	IsPublished    *bool      `json:"is_published"`
	IsFeatured     *bool      `json:"is_featured"`
	ShowOnHomepage *bool      `json:"show_on_homepage"`
	Priority       *int       `json:"priority" validate:"omitempty,min=0,max=10"`
	PublishedAt    *time.Time `json:"published_at"`
}

func (un *UpdateNews) Validate(validate *validator.Validate) error {
	if un.Title != nil {
		title := core.CleanString(*un.Title)
		un.Title = &title
	}
	if un.Summary != nil {
		summary := core.CleanString(*un.Summary)
		un.Summary = &summary
	}
	return validate.Struct(un)
}

type QueryFilter struct {
	Search     string `query:"search"`
	IsFeatured *bool  `query:"is_featured"`

	// set by the service
	Source        string `query:"-"`
	SectorID      string `query:"-"` // only with SourceSector; empty means every sector
	PublishedOnly bool   `query:"-"`
	// ByWeight orders by Weight instead of newest first
	ByWeight bool `query:"-"`
	Limit    int  `query:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

type UnifiedFilter struct {
	Limit    int    `query:"limit"`
	SectorID string `query:"sector_id" validate:"omitempty,uuid"`
}

func (uf *UnifiedFilter) Validate(validate *validator.Validate) error {
	uf.SectorID = core.CleanString(uf.SectorID, true /* lower */)
	if uf.Limit <= 0 {
		uf.Limit = DefaultUnifiedLimit
	}
	if uf.Limit > MaxUnifiedLimit {
		uf.Limit = MaxUnifiedLimit
	}
	return validate.Struct(uf)
}

// Repository persists news in their source table (general_news or sector_news).
type Repository interface {
	CreateNews(ctx context.Context, n News) (News, error)
	// QueryNews returns news of filter.Source, newest first unless filter.ByWeight.
	QueryNews(ctx context.Context, filter *QueryFilter) ([]News, error)
	GetNews(ctx context.Context, source, id string) (News, error)
	UpdateNews(ctx context.Context, n News) (News, error)
	DeleteNews(ctx context.Context, source, id string) error
}

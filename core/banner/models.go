package banner

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/cresol/portal/core"
)

type Banner struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	ImageURL   string     `json:"image_url"`
	LinkURL    string     `json:"link_url"`
	OrderIndex int        `json:"order_index"`
	IsActive   bool       `json:"is_active"`
	StartsAt   *time.Time `json:"starts_at"`
	EndsAt     *time.Time `json:"ends_at"`
	CreatedBy  *string    `json:"created_by"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// IsDisplayed reports whether the banner is active and inside its display window at `at`.
func (b Banner) IsDisplayed(at time.Time) bool {
	if !b.IsActive {
		return false
	}
	if b.StartsAt != nil && at.Before(*b.StartsAt) {
		return false
	}
	if b.EndsAt != nil && !at.Before(*b.EndsAt) {
		return false
	}
	return true
}

var errEndsBeforeStart = "ends_at must be after starts_at"

func checkWindow(startsAt, endsAt *time.Time) error {
	if startsAt != nil && endsAt != nil && endsAt.Before(*startsAt) {
		return core.NewFieldValidationError("ends_at", errEndsBeforeStart)
	}
	return nil
}

type NewBanner struct {
	Title      string     `json:"title" validate:"required,max=200"`
	ImageURL   string     `json:"image_url" validate:"required,link"`
	LinkURL    string     `json:"link_url" validate:"omitempty,link"`
	OrderIndex *int       `json:"order_index" validate:"omitempty,min=0"`
	IsActive   *bool      `json:"is_active"`
	StartsAt   *time.Time `json:"starts_at"`
	EndsAt     *time.Time `json:"ends_at"`
}

func (nb *NewBanner) Validate(validate *validator.Validate) error {
	nb.Title = core.CleanString(nb.Title)
	nb.ImageURL = core.CleanString(nb.ImageURL)
	nb.LinkURL = core.CleanString(nb.LinkURL)
	if err := validate.Struct(nb); err != nil {
		return err
	}
	return checkWindow(nb.StartsAt, nb.EndsAt)
}

type UpdateBanner struct {
	Title      *string    `json:"title" validate:"omitempty,min=1,max=200"`
	ImageURL   *string    `json:"image_url" validate:"omitempty,link"`
	LinkURL    *string    `json:"link_url" validate:"omitempty,link"`
	OrderIndex *int       `json:"order_index" validate:"omitempty,min=0"`
	IsActive   *bool      `json:"is_active"`
	StartsAt   *time.Time `json:"starts_at"`
	EndsAt     *time.Time `json:"ends_at"`
}

func (ub *UpdateBanner) Validate(orig Banner, validate *validator.Validate) error {
	if ub.Title != nil {
		title := core.CleanString(*ub.Title)
		ub.Title = &title
	}
	if err := validate.Struct(ub); err != nil {
		return err
	}
	startsAt, endsAt := orig.StartsAt, orig.EndsAt
	if ub.StartsAt != nil {
		startsAt = ub.StartsAt
	}
	if ub.EndsAt != nil {
		endsAt = ub.EndsAt
	}
	return checkWindow(startsAt, endsAt)
}

// Reorder lists banner IDs in their new display order.
type Reorder struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,uuid"`
}

func (r Reorder) Validate(validate *validator.Validate) error { return validate.Struct(r) }

type QueryFilter struct {
	Active bool `query:"active"`

	// set by the service when Active is true
	DisplayedAt time.Time `query:"-"`
}

type Repository interface {
	core.OrderIndexStore

	CreateBanner(ctx context.Context, b Banner) (Banner, error)
	// QueryBanners returns banners ordered by order_index.
	QueryBanners(ctx context.Context, filter *QueryFilter) ([]Banner, error)
	GetBanner(ctx context.Context, id string) (Banner, error)
	UpdateBanner(ctx context.Context, b Banner) (Banner, error)
	DeleteBanner(ctx context.Context, id string) error
	// SetOrder gives ids[i] the order_index i, atomically.
	SetOrder(ctx context.Context, ids []string) error
}

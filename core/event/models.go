package event

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/cresol/portal/core"
)

// Event is a general event when SectorID is nil, a sector event otherwise.
type Event struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Location    string     `json:"location"`
	StartsAt    time.Time  `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
	SectorID    *string    `json:"sector_id"`
	IsPublished bool       `json:"is_published"`
	IsFeatured  bool       `json:"is_featured"`
	CreatedBy   *string    `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

const errEndsBeforeStart = "ends_at must be after starts_at"

type NewEvent struct {
	Title       string     `json:"title" validate:"required,max=250"`
	Description string     `json:"description"`
	Location    string     `json:"location" validate:"max=250"`
	StartsAt    time.Time  `json:"starts_at" validate:"required"`
	EndsAt      *time.Time `json:"ends_at"`
	SectorID    *string    `json:"sector_id" validate:"omitempty,uuid"`
	IsPublished bool       `json:"is_published"`
	IsFeatured  bool       `json:"is_featured"`
}

func (ne *NewEvent) Validate(validate *validator.Validate) error {
	ne.Title = core.CleanString(ne.Title)
	ne.Description = core.CleanString(ne.Description)
	ne.Location = core.CleanString(ne.Location)
	if ne.SectorID != nil {
		ne.SectorID = core.StringPtr(core.CleanString(*ne.SectorID, true /* lower */))
	}
	if err := validate.Struct(ne); err != nil {
		return err
	}
	if ne.EndsAt != nil && ne.EndsAt.Before(ne.StartsAt) {
		return core.NewFieldValidationError("ends_at", errEndsBeforeStart)
	}
	return nil
}

type UpdateEvent struct {
	Title       *string    `json:"title" validate:"omitempty,min=1,max=250"`
	Description *string    `json:"description"`
	Location    *string    `json:"location" validate:"omitempty,max=250"`
	StartsAt    *time.Time `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
	IsPublished *bool      `json:"is_published"`
	IsFeatured  *bool      `json:"is_featured"`
}

func (ue *UpdateEvent) Validate(orig Event, validate *validator.Validate) error {
	if ue.Title != nil {
		title := core.CleanString(*ue.Title)
		ue.Title = &title
	}
	if err := validate.Struct(ue); err != nil {
		return err
	}
	startsAt, endsAt := orig.StartsAt, orig.EndsAt
	if ue.StartsAt != nil {
		startsAt = *ue.StartsAt
	}
	if ue.EndsAt != nil {
		endsAt = ue.EndsAt
	}
	if endsAt != nil && endsAt.Before(startsAt) {
		return core.NewFieldValidationError("ends_at", errEndsBeforeStart)
	}
	return nil
}

type QueryFilter struct {
	Upcoming bool   `query:"upcoming"`
	SectorID string `query:"sector_id"`

	// set by the service
	From          time.Time `query:"-"`
	PublishedOnly bool      `query:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.SectorID = core.CleanString(qf.SectorID, true /* lower */)
}

type Repository interface {
	CreateEvent(ctx context.Context, e Event) (Event, error)
	// QueryEvents returns events ordered by starts_at.
	QueryEvents(ctx context.Context, filter *QueryFilter) ([]Event, error)
	GetEvent(ctx context.Context, id string) (Event, error)
	UpdateEvent(ctx context.Context, e Event) (Event, error)
	DeleteEvent(ctx context.Context, id string) error
}

package event

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/cresol/portal/core"
	"github.com/cresol/portal/core/sector"
	"github.com/cresol/portal/core/user"
)

var (
	nowFunc = time.Now // mockable

	// errors
	ErrNotFound = errors.New("event not found")
)

type (
	Service interface {
		CanManage(ctx context.Context, actor user.User, sectorID *string) (bool, error)

		Create(ctx context.Context, actor user.User, ne NewEvent) (Event, error)
		// Query lists events by start date. Only managers of the listed events see unpublished ones.
		Query(ctx context.Context, actor user.User, filter *QueryFilter) ([]Event, error)
		GetByID(ctx context.Context, id string) (Event, error)
		Update(ctx context.Context, actor user.User, e Event, ue UpdateEvent) (Event, error)
		Delete(ctx context.Context, actor user.User, e Event) error
	}

	service struct {
		repo      Repository
		sectorSvc sector.Service
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(repo Repository, sectorSvc sector.Service) Service {
	return &service{repo: repo, sectorSvc: sectorSvc}
}

// CanManage: general events belong to admins, sector events to the sector's managers.
func (svc *service) CanManage(ctx context.Context, actor user.User, sectorID *string) (bool, error) {
	if sectorID == nil {
		return actor.IsActive && actor.IsAdmin(), nil
	}
	return svc.sectorSvc.CanManageSector(ctx, actor, *sectorID)
}

func (svc *service) checkManage(ctx context.Context, actor user.User, sectorID *string) error {
	ok, err := svc.CanManage(ctx, actor, sectorID)
	if err != nil {
		return err
	}
	if !ok {
		return core.ErrForbidden
	}
	return nil
}

func (svc *service) Create(ctx context.Context, actor user.User, ne NewEvent) (Event, error) {
	if ne.SectorID != nil {
		if _, err := svc.sectorSvc.GetByID(ctx, *ne.SectorID); err != nil {
			if errors.Cause(err) == sector.ErrNotFound {
				return Event{}, core.NewFieldValidationError("sector_id", sector.ErrNotFound.Error())
			}
			return Event{}, errors.Wrap(err, "finding sector")
		}
	}
	if err := svc.checkManage(ctx, actor, ne.SectorID); err != nil {
		return Event{}, err
	}
	now := nowFunc().UTC()
	e := Event{
		Title:       ne.Title,
		Description: ne.Description,
		Location:    ne.Location,
		StartsAt:    ne.StartsAt.UTC(),
		EndsAt:      ne.EndsAt,
		SectorID:    ne.SectorID,
		IsPublished: ne.IsPublished,
		IsFeatured:  ne.IsFeatured,
		CreatedBy:   core.StringPtr(actor.ID),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateEvent(ctx, e)
}

func (svc *service) Query(ctx context.Context, actor user.User, filter *QueryFilter) ([]Event, error) {
	ok, err := svc.CanManage(ctx, actor, core.StringPtr(filter.SectorID))
	if err != nil {
		return nil, err
	}
	filter.PublishedOnly = !ok
	if filter.Upcoming {
		filter.From = nowFunc().UTC()
	}
	return svc.repo.QueryEvents(ctx, filter)
}

func (svc *service) GetByID(ctx context.Context, id string) (Event, error) {
	return svc.repo.GetEvent(ctx, id)
}

func (svc *service) Update(ctx context.Context, actor user.User, e Event, ue UpdateEvent) (Event, error) {
	if err := svc.checkManage(ctx, actor, e.SectorID); err != nil {
		return Event{}, err
	}
	if ue.Title != nil {
		e.Title = *ue.Title
	}
	if ue.Description != nil {
		e.Description = *ue.Description
	}
	if ue.Location != nil {
		e.Location = *ue.Location
	}
	if ue.StartsAt != nil {
		e.StartsAt = ue.StartsAt.UTC()
	}
	if ue.EndsAt != nil {
		e.EndsAt = ue.EndsAt
	}
	if ue.IsPublished != nil {
		e.IsPublished = *ue.IsPublished
	}
	if ue.IsFeatured != nil {
		e.IsFeatured = *ue.IsFeatured
	}
	e.UpdatedAt = nowFunc().UTC()
	return svc.repo.UpdateEvent(ctx, e)
}

func (svc *service) Delete(ctx context.Context, actor user.User, e Event) error {
	if err := svc.checkManage(ctx, actor, e.SectorID); err != nil {
		return err
	}
	return svc.repo.DeleteEvent(ctx, e.ID)
}

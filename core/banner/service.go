package banner

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/cresol/portal/core"
	"github.com/cresol/portal/core/user"
)

var (
	nowFunc = time.Now // mockable

	// errors
	ErrNotFound      = errors.New("banner not found")
	errDuplicateID   = "ids must not contain duplicates"
	errUnknownBanner = "unknown banner id"
)

type (
	Service interface {
		Create(ctx context.Context, actor user.User, nb NewBanner) (Banner, error)
		Query(ctx context.Context, filter *QueryFilter) ([]Banner, error)
		GetByID(ctx context.Context, id string) (Banner, error)
		Update(ctx context.Context, actor user.User, b Banner, ub UpdateBanner) (Banner, error)
		Delete(ctx context.Context, actor user.User, b Banner) error
		Reorder(ctx context.Context, actor user.User, r Reorder) ([]Banner, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Create(ctx context.Context, actor user.User, nb NewBanner) (Banner, error) {
	if !actor.IsAdmin() {
		return Banner{}, core.ErrForbidden
	}
	now := nowFunc().UTC()
	b := Banner{
		Title:     nb.Title,
		ImageURL:  nb.ImageURL,
		LinkURL:   nb.LinkURL,
		IsActive:  nb.IsActive == nil || *nb.IsActive,
		StartsAt:  nb.StartsAt,
		EndsAt:    nb.EndsAt,
		CreatedBy: core.StringPtr(actor.ID),
		CreatedAt: now,
		UpdatedAt: now,
	}

	var saved Banner
	_, err := core.SaveWithOrderIndex(ctx, svc.repo, nb.OrderIndex, func(idx int) error {
		b.OrderIndex = idx
		var err error
		saved, err = svc.repo.CreateBanner(ctx, b)
		return err
	})
	if err != nil {
		return Banner{}, errors.Wrap(err, "creating banner")
	}
	return saved, nil
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter) ([]Banner, error) {
	if filter != nil && filter.Active {
		filter.DisplayedAt = nowFunc().UTC()
	}
	return svc.repo.QueryBanners(ctx, filter)
}

func (svc *service) GetByID(ctx context.Context, id string) (Banner, error) {
	return svc.repo.GetBanner(ctx, id)
}

func (svc *service) Update(ctx context.Context, actor user.User, b Banner, ub UpdateBanner) (Banner, error) {
	if !actor.IsAdmin() {
		return Banner{}, core.ErrForbidden
	}
	if ub.Title != nil {
		b.Title = *ub.Title
	}
	if ub.ImageURL != nil {
		b.ImageURL = *ub.ImageURL
	}
	if ub.LinkURL != nil {
		b.LinkURL = *ub.LinkURL
	}
	if ub.IsActive != nil {
		b.IsActive = *ub.IsActive
	}
	if ub.StartsAt != nil {
		b.StartsAt = ub.StartsAt
	}
	if ub.EndsAt != nil {
		b.EndsAt = ub.EndsAt
	}
	b.UpdatedAt = nowFunc().UTC()

	idx := b.OrderIndex
	if ub.OrderIndex != nil {
		idx = *ub.OrderIndex
	}
	var saved Banner
	_, err := core.SaveWithOrderIndex(ctx, svc.repo, &idx, func(idx int) error {
		b.OrderIndex = idx
		var err error
		saved, err = svc.repo.UpdateBanner(ctx, b)
		return err
	})
	if err != nil {
		return Banner{}, errors.Wrap(err, "updating banner")
	}
	return saved, nil
}

func (svc *service) Delete(ctx context.Context, actor user.User, b Banner) error {
	if !actor.IsAdmin() {
		return core.ErrForbidden
	}
	return svc.repo.DeleteBanner(ctx, b.ID)
}

// Reorder moves the listed banners to the top, in the given order. Unlisted banners keep their relative order after them.
func (svc *service) Reorder(ctx context.Context, actor user.User, r Reorder) ([]Banner, error) {
	if !actor.IsAdmin() {
		return nil, core.ErrForbidden
	}
	all, err := svc.repo.QueryBanners(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "querying banners")
	}
	known := make(map[string]bool, len(all))
	for _, b := range all {
		known[b.ID] = true
	}

	listed := make(map[string]bool, len(r.IDs))
	ids := make([]string, 0, len(all))
	for _, id := range r.IDs {
		if listed[id] {
			return nil, core.NewFieldValidationError("ids", errDuplicateID)
		}
		if !known[id] {
			return nil, core.NewFieldValidationError("ids", errUnknownBanner+": "+id)
		}
		listed[id] = true
		ids = append(ids, id)
	}
	for _, b := range all {
		if !listed[b.ID] {
			ids = append(ids, b.ID)
		}
	}

	if err = svc.repo.SetOrder(ctx, ids); err != nil {
		return nil, errors.Wrap(err, "reordering banners")
	}
	return svc.repo.QueryBanners(ctx, nil)
}

package collection

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/cresol/portal/core"
	"github.com/cresol/portal/core/user"
)

const cachePrefix = "collections:"

var (
	nowFunc = time.Now // mockable

	// errors
	ErrNotFound     = errors.New("collection not found")
	ErrItemNotFound = errors.New("collection item not found")
	ErrMediaType    = errors.New("media type does not match the collection type")
)

type (
	Service interface {
		Create(ctx context.Context, actor user.User, nc NewCollection) (Collection, error)
		// Query serves collections from the cache, refetching them once it expired or got invalidated.
		Query(ctx context.Context, actor user.User) ([]Collection, error)
		GetByID(ctx context.Context, id string) (Collection, error)
		Update(ctx context.Context, actor user.User, c Collection, uc UpdateCollection) (Collection, error)
		Delete(ctx context.Context, actor user.User, c Collection) error

		AddItem(ctx context.Context, actor user.User, c Collection, ni NewItem) (Item, error)
		GetItem(ctx context.Context, c Collection, id string) (Item, error)
		UpdateItem(ctx context.Context, actor user.User, c Collection, it Item, ui UpdateItem) (Item, error)
		RemoveItem(ctx context.Context, actor user.User, c Collection, it Item) error
	}

	service struct {
		repo     Repository
		cache    core.Cache
		cacheTTL time.Duration
		logger   core.Logger
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(repo Repository, cache core.Cache, conf *core.Config, logger core.Logger) Service {
	return &service{repo: repo, cache: cache, cacheTTL: conf.Cache.CollectionsTTL, logger: logger}
}

func (svc *service) Create(ctx context.Context, actor user.User, nc NewCollection) (Collection, error) {
	if !actor.IsAdmin() {
		return Collection{}, core.ErrForbidden
	}
	now := nowFunc().UTC()
	c := Collection{
		Title:         nc.Title,
		Description:   nc.Description,
		CoverImageURL: nc.CoverImageURL,
		Type:          nc.Type,
		IsActive:      nc.IsActive == nil || *nc.IsActive,
		OrderIndex:    nc.OrderIndex,
		Items:         []Item{},
		CreatedBy:     core.StringPtr(actor.ID),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	c, err := svc.repo.CreateCollection(ctx, c)
	if err != nil {
		return Collection{}, errors.Wrap(err, "creating collection")
	}
	svc.invalidate(ctx)
	return c, nil
}

func (svc *service) Query(ctx context.Context, actor user.User) ([]Collection, error) {
	activeOnly := !actor.IsAdmin()
	name := "all"
	if activeOnly {
		name = "active"
	}
	key, err := core.CacheKey(ctx, svc.cache, cachePrefix, name)
	if err != nil {
		svc.logger.Warn("reading collections cache generation", err)
	}

	var colls []Collection
	ok, err := svc.cache.Get(ctx, key, &colls)
	if err != nil {
		svc.logger.Warn("reading collections cache", err)
	}
	if ok {
		return colls, nil
	}

	colls, err = svc.repo.QueryCollections(ctx, &QueryFilter{ActiveOnly: activeOnly})
	if err != nil {
		return nil, errors.Wrap(err, "querying collections")
	}
	if err = svc.cache.Set(ctx, key, colls, svc.cacheTTL); err != nil {
		svc.logger.Warn("writing collections cache", err)
	}
	return colls, nil
}

func (svc *service) GetByID(ctx context.Context, id string) (Collection, error) {
	return svc.repo.GetCollection(ctx, id)
}

func (svc *service) Update(ctx context.Context, actor user.User, c Collection, uc UpdateCollection) (Collection, error) {
	if !actor.IsAdmin() {
		return Collection{}, core.ErrForbidden
	}
	if uc.Title != nil {
		c.Title = *uc.Title
	}
	if uc.Description != nil {
		c.Description = *uc.Description
	}
	if uc.CoverImageURL != nil {
		c.CoverImageURL = *uc.CoverImageURL
	}
	if uc.Type != nil {
		c.Type = *uc.Type
		for _, it := range c.Items {
			if !c.Accepts(it.MediaType) {
				return Collection{}, core.NewValidationError(ErrMediaType, core.FieldError{Field: "type", Error: ErrMediaType.Error()})
			}
		}
	}
	if uc.IsActive != nil {
		c.IsActive = *uc.IsActive
	}
	if uc.OrderIndex != nil {
		c.OrderIndex = *uc.OrderIndex
	}
	c.UpdatedAt = nowFunc().UTC()

	c, err := svc.repo.UpdateCollection(ctx, c)
	if err != nil {
		return Collection{}, errors.Wrap(err, "updating collection")
	}
	svc.invalidate(ctx)
	return c, nil
}

func (svc *service) Delete(ctx context.Context, actor user.User, c Collection) error {
	if !actor.IsAdmin() {
		return core.ErrForbidden
	}
	if err := svc.repo.DeleteCollection(ctx, c.ID); err != nil {
		return errors.Wrap(err, "deleting collection")
	}
	svc.invalidate(ctx)
	return nil
}

func (svc *service) AddItem(ctx context.Context, actor user.User, c Collection, ni NewItem) (Item, error) {
	if !actor.IsAdmin() {
		return Item{}, core.ErrForbidden
	}
	if !c.Accepts(ni.MediaType) {
		return Item{}, core.NewValidationError(ErrMediaType, core.FieldError{Field: "media_type", Error: ErrMediaType.Error()})
	}
	it := Item{
		CollectionID: c.ID,
		Title:        ni.Title,
		MediaURL:     ni.MediaURL,
		MediaType:    ni.MediaType,
		CreatedAt:    nowFunc().UTC(),
	}
	if ni.OrderIndex != nil {
		it.OrderIndex = *ni.OrderIndex
	} else {
		max, err := svc.repo.MaxItemOrderIndex(ctx, c.ID)
		if err != nil {
			return Item{}, errors.Wrap(err, "getting max item order_index")
		}
		it.OrderIndex = max + 1
	}

	it, err := svc.repo.CreateItem(ctx, it)
	if err != nil {
		return Item{}, errors.Wrap(err, "creating collection item")
	}
	svc.invalidate(ctx)
	return it, nil
}

func (svc *service) GetItem(ctx context.Context, c Collection, id string) (Item, error) {
	return svc.repo.GetItem(ctx, c.ID, id)
}

func (svc *service) UpdateItem(ctx context.Context, actor user.User, c Collection, it Item, ui UpdateItem) (Item, error) {
	if !actor.IsAdmin() {
		return Item{}, core.ErrForbidden
	}
	if ui.Title != nil {
		it.Title = core.CleanString(*ui.Title)
	}
	if ui.MediaURL != nil {
		it.MediaURL = core.CleanString(*ui.MediaURL)
	}
	if ui.MediaType != nil {
		if !c.Accepts(*ui.MediaType) {
			return Item{}, core.NewValidationError(ErrMediaType, core.FieldError{Field: "media_type", Error: ErrMediaType.Error()})
		}
		it.MediaType = *ui.MediaType
	}
	if ui.OrderIndex != nil {
		it.OrderIndex = *ui.OrderIndex
	}

	it, err := svc.repo.UpdateItem(ctx, it)
	if err != nil {
		return Item{}, errors.Wrap(err, "updating collection item")
	}
	svc.invalidate(ctx)
	return it, nil
}

func (svc *service) RemoveItem(ctx context.Context, actor user.User, c Collection, it Item) error {
	if !actor.IsAdmin() {
		return core.ErrForbidden
	}
	if err := svc.repo.DeleteItem(ctx, c.ID, it.ID); err != nil {
		return errors.Wrap(err, "deleting collection item")
	}
	svc.invalidate(ctx)
	return nil
}

func (svc *service) invalidate(ctx context.Context) {
	if err := core.InvalidateCache(ctx, svc.cache, cachePrefix); err != nil {
		svc.logger.Error("invalidating collections cache", err)
	}
}

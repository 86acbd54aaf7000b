package news

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/cresol/portal/core"
	"github.com/cresol/portal/core/sector"
	"github.com/cresol/portal/core/user"
)

var (
	nowFunc = time.Now // mockable

	// errors
	ErrNotFound = errors.New("news not found")
)

type (
	Service interface {
		CanManage(ctx context.Context, actor user.User, sectorID *string) (bool, error)

		Create(ctx context.Context, actor user.User, sectorID *string, nn NewNews) (News, error)
		Query(ctx context.Context, actor user.User, filter *QueryFilter) ([]News, error)
		GetByID(ctx context.Context, source, id string) (News, error)
		Update(ctx context.Context, actor user.User, n News, un UpdateNews) (News, error)
		Delete(ctx context.Context, actor user.User, n News) error

		// Unified merges published general & sector news ranked by Weight.
		Unified(ctx context.Context, filter UnifiedFilter) ([]UnifiedItem, error)
	}

	service struct {
		repo      Repository
		sectorSvc sector.Service
		cache     core.Cache
		cacheTTL  time.Duration
		logger    core.Logger
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(repo Repository, sectorSvc sector.Service, cache core.Cache, conf *core.Config, logger core.Logger) Service {
	return &service{
		repo:      repo,
		sectorSvc: sectorSvc,
		cache:     cache,
		cacheTTL:  conf.Cache.UnifiedNewsTTL,
		logger:    logger,
	}
}

// CanManage reports whether actor may manage general news (nil sectorID) or the given sector's news.
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

func (svc *service) Create(ctx context.Context, actor user.User, sectorID *string, nn NewNews) (News, error) {
	if err := svc.checkManage(ctx, actor, sectorID); err != nil {
		return News{}, err
	}
	now := nowFunc().UTC()
	n := News{
		Source:         SourceGeneral,
		SectorID:       sectorID,
		Title:          nn.Title,
		Summary:        nn.Summary,
		Content:        nn.Content,
		ImageURL:       nn.ImageURL,
		IsPublished:    nn.IsPublished,
		IsFeatured:     nn.IsFeatured,
		ShowOnHomepage: nn.ShowOnHomepage,
		Priority:       nn.Priority,
		PublishedAt:    nn.PublishedAt,
		CreatedBy:      core.StringPtr(actor.ID),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if sectorID != nil {
		n.Source = SourceSector
	}
	if n.IsPublished && n.PublishedAt == nil {
		n.PublishedAt = &now
	}

	n, err := svc.repo.CreateNews(ctx, n)
	if err != nil {
		return News{}, errors.Wrap(err, "creating news")
	}
	svc.invalidate(ctx)
	return n, nil
}

// Query lists news of filter.Source. Only managers see unpublished news.
func (svc *service) Query(ctx context.Context, actor user.User, filter *QueryFilter) ([]News, error) {
	var sectorID *string
	if filter.Source == SourceSector {
		sectorID = core.StringPtr(filter.SectorID)
	}
	ok, err := svc.CanManage(ctx, actor, sectorID)
	if err != nil {
		return nil, err
	}
	filter.PublishedOnly = !ok
	return svc.repo.QueryNews(ctx, filter)
}

func (svc *service) GetByID(ctx context.Context, source, id string) (News, error) {
	return svc.repo.GetNews(ctx, source, id)
}

func (svc *service) Update(ctx context.Context, actor user.User, n News, un UpdateNews) (News, error) {
	if err := svc.checkManage(ctx, actor, n.SectorID); err != nil {
		return News{}, err
	}
	if un.Title != nil {
		n.Title = *un.Title
	}
	if un.Summary != nil {
		n.Summary = *un.Summary
	}
	if un.Content != nil {
		n.Content = *un.Content
	}
	if un.ImageURL != nil {
		n.ImageURL = *un.ImageURL
	}
	if un.IsFeatured != nil {
		n.IsFeatured = *un.IsFeatured
	}
	if un.ShowOnHomepage != nil {
		n.ShowOnHomepage = *un.ShowOnHomepage
	}
	if un.Priority != nil {
		n.Priority = *un.Priority
	}
	if un.PublishedAt != nil {
		n.PublishedAt = un.PublishedAt
	}
	now := nowFunc().UTC()
	if un.IsPublished != nil {
		n.IsPublished = *un.IsPublished
	}
	if n.IsPublished && n.PublishedAt == nil {
		n.PublishedAt = &now
	}
	n.UpdatedAt = now

	n, err := svc.repo.UpdateNews(ctx, n)
	if err != nil {
		return News{}, errors.Wrap(err, "updating news")
	}
	svc.invalidate(ctx)
	return n, nil
}

func (svc *service) Delete(ctx context.Context, actor user.User, n News) error {
	if err := svc.checkManage(ctx, actor, n.SectorID); err != nil {
		return err
	}
	if err := svc.repo.DeleteNews(ctx, n.Source, n.ID); err != nil {
		return errors.Wrap(err, "deleting news")
	}
	svc.invalidate(ctx)
	return nil
}

func unifiedCacheName(filter UnifiedFilter) string {
	sectorID := filter.SectorID
	if sectorID == "" {
		sectorID = "all"
	}
	return fmt.Sprintf("%s:%d", sectorID, filter.Limit)
}

func (svc *service) Unified(ctx context.Context, filter UnifiedFilter) ([]UnifiedItem, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultUnifiedLimit
	}
	if filter.Limit > MaxUnifiedLimit {
		filter.Limit = MaxUnifiedLimit
	}

	key, err := core.CacheKey(ctx, svc.cache, core.UnifiedNewsCachePrefix, unifiedCacheName(filter))
	if err != nil {
		svc.logger.Warn("reading unified news cache generation", err)
	}
	var items []UnifiedItem
	ok, err := svc.cache.Get(ctx, key, &items)
	if err != nil {
		svc.logger.Warn("reading unified news cache", err)
	}
	if ok {
		return items, nil
	}

	general, err := svc.repo.QueryNews(ctx, &QueryFilter{
		Source: SourceGeneral, PublishedOnly: true, ByWeight: true, Limit: filter.Limit,
	})
	if err != nil {
		return nil, errors.Wrap(err, "querying general news")
	}
	sectorNews, err := svc.repo.QueryNews(ctx, &QueryFilter{
		Source: SourceSector, SectorID: filter.SectorID, PublishedOnly: true, ByWeight: true, Limit: filter.Limit,
	})
	if err != nil {
		return nil, errors.Wrap(err, "querying sector news")
	}

	items = Merge(filter.Limit, general, sectorNews)
	if err = svc.cache.Set(ctx, key, items, svc.cacheTTL); err != nil {
		svc.logger.Warn("writing unified news cache", err)
	}
	return items, nil
}

// Merge weighs and concatenates news lists, sorts them by weight (ties: newer first, then ID) and keeps the first `limit`.
func Merge(limit int, lists ...[]News) []UnifiedItem {
	var size int
	for _, l := range lists {
		size += len(l)
	}
	items := make([]UnifiedItem, 0, size)
	for _, l := range lists {
		for _, n := range l {
			items = append(items, UnifiedItem{News: n, Weight: Weight(n)})
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Weight != items[j].Weight {
			return items[i].Weight > items[j].Weight
		}
		ti, tj := items[i].Timestamp(), items[j].Timestamp()
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return items[i].ID < items[j].ID
	})

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

// invalidate drops every cached unified feed.
func (svc *service) invalidate(ctx context.Context) {
	if err := core.InvalidateCache(ctx, svc.cache, core.UnifiedNewsCachePrefix); err != nil {
		svc.logger.Error("invalidating unified news cache", err)
	}
}

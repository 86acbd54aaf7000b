package inmemdb

import (
	"context"
	"sort"

	"github.com/cresol/portal/core"
	"github.com/cresol/portal/core/event"
)

type eventRepository struct {
	db *DB
}

var _ event.Repository = (*eventRepository)(nil) // interface compliance check

func NewEventRepository(db *DB) *eventRepository {
	return &eventRepository{db: db}
}

func matchEvent(e event.Event, filter *event.QueryFilter) bool {
	if filter == nil {
		return true
	}
	if filter.SectorID != "" && core.StringVal(e.SectorID) != filter.SectorID {
		return false
	}
	if !filter.From.IsZero() {
		end := e.StartsAt
		if e.EndsAt != nil {
			end = *e.EndsAt
		}
		if end.Before(filter.From) {
			return false
		}
	}
	if filter.PublishedOnly && !e.IsPublished {
		return false
	}
	return true
}

func (repo *eventRepository) CreateEvent(_ context.Context, e event.Event) (event.Event, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	if e.SectorID != nil {
		if _, ok := repo.db.sectors[*e.SectorID]; !ok {
			return event.Event{}, core.DBError{Message: "sector does not exist", Code: "23503"}
		}
	}
	e.ID = newID()
	repo.db.events[e.ID] = e
	return e, nil
}

func (repo *eventRepository) QueryEvents(_ context.Context, filter *event.QueryFilter) ([]event.Event, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	events := make([]event.Event, 0)
	for _, e := range repo.db.events {
		if matchEvent(e, filter) {
			events = append(events, e)
		}
	}
	sort.Slice(events, func(i, j int) bool {
		if !events[i].StartsAt.Equal(events[j].StartsAt) {
			return events[i].StartsAt.Before(events[j].StartsAt)
		}
		return events[i].ID < events[j].ID
	})
	return events, nil
}

func (repo *eventRepository) GetEvent(_ context.Context, id string) (event.Event, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if e, ok := repo.db.events[id]; ok {
		return e, nil
	}
	return event.Event{}, event.ErrNotFound
}

func (repo *eventRepository) UpdateEvent(_ context.Context, e event.Event) (event.Event, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	orig, ok := repo.db.events[e.ID]
	if !ok {
		return event.Event{}, event.ErrNotFound
	}
	e.SectorID = orig.SectorID
	repo.db.events[e.ID] = e
	return e, nil
}

func (repo *eventRepository) DeleteEvent(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	if _, ok := repo.db.events[id]; !ok {
		return event.ErrNotFound
	}
	delete(repo.db.events, id)
	return nil
}

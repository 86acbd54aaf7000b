package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/cresol/portal/core/event"
)

const eventColumns = `id, title, description, location, starts_at, ends_at, sector_id, is_published, is_featured,
	created_by, created_at, updated_at`

type eventRow struct {
	ID          string      `db:"id"`
	Title       string      `db:"title"`
	Description string      `db:"description"`
	Location    string      `db:"location"`
	StartsAt    time.Time   `db:"starts_at"`
	EndsAt      null.Time   `db:"ends_at"`
	SectorID    null.String `db:"sector_id"`
	IsPublished bool        `db:"is_published"`
	IsFeatured  bool        `db:"is_featured"`
	CreatedBy   null.String `db:"created_by"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

func toEventRow(e event.Event) eventRow {
	return eventRow{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		Location:    e.Location,
		StartsAt:    e.StartsAt.UTC(),
		EndsAt:      null.TimeFromPtr(e.EndsAt),
		SectorID:    null.StringFromPtr(e.SectorID),
		IsPublished: e.IsPublished,
		IsFeatured:  e.IsFeatured,
		CreatedBy:   null.StringFromPtr(e.CreatedBy),
		CreatedAt:   e.CreatedAt.UTC(),
		UpdatedAt:   e.UpdatedAt.UTC(),
	}
}

func (r eventRow) toEvent() event.Event {
	return event.Event{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Location:    r.Location,
		StartsAt:    r.StartsAt.UTC(),
		EndsAt:      utcPtr(r.EndsAt),
		SectorID:    r.SectorID.Ptr(),
		IsPublished: r.IsPublished,
		IsFeatured:  r.IsFeatured,
		CreatedBy:   r.CreatedBy.Ptr(),
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

type eventRepository struct {
	db *sqlx.DB
}

var _ event.Repository = (*eventRepository)(nil) // interface compliance check

func NewEventRepository(db *sqlx.DB) *eventRepository {
	return &eventRepository{db: db}
}

func (repo *eventRepository) CreateEvent(ctx context.Context, e event.Event) (event.Event, error) {
	e.ID = newID()
	row := toEventRow(e)
	_, err := repo.db.NamedExecContext(ctx, `INSERT INTO events (`+eventColumns+`) VALUES (
		:id, :title, :description, :location, :starts_at, :ends_at, :sector_id, :is_published, :is_featured,
		:created_by, :created_at, :updated_at)`, row)
	if err != nil {
		return event.Event{}, dbError(err, "inserting event")
	}
	return row.toEvent(), nil
}

func (repo *eventRepository) QueryEvents(ctx context.Context, filter *event.QueryFilter) ([]event.Event, error) {
	var w where
	if filter != nil {
		if filter.SectorID != "" {
			if !isValidID(filter.SectorID) {
				return []event.Event{}, nil
			}
			w.add("sector_id = ?", filter.SectorID)
		}
		if !filter.From.IsZero() {
			// still running counts as upcoming
			w.add("COALESCE(ends_at, starts_at) >= ?", filter.From.UTC())
		}
		if filter.PublishedOnly {
			w.add("is_published")
		}
	}
	var rows []eventRow
	q := repo.db.Rebind("SELECT " + eventColumns + " FROM events" + w.String() + " ORDER BY starts_at, id")
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, dbError(err, "querying events")
	}
	events := make([]event.Event, 0, len(rows))
	for _, r := range rows {
		events = append(events, r.toEvent())
	}
	return events, nil
}

func (repo *eventRepository) GetEvent(ctx context.Context, id string) (event.Event, error) {
	if !isValidID(id) {
		return event.Event{}, event.ErrNotFound
	}
	var row eventRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+eventColumns+" FROM events WHERE id = $1", id); err != nil {
		return event.Event{}, trapNoRowsErr(err, event.ErrNotFound, "finding event")
	}
	return row.toEvent(), nil
}

func (repo *eventRepository) UpdateEvent(ctx context.Context, e event.Event) (event.Event, error) {
	row := toEventRow(e)
	res, err := repo.db.NamedExecContext(ctx, `UPDATE events SET
		title = :title, description = :description, location = :location, starts_at = :starts_at, ends_at = :ends_at,
		is_published = :is_published, is_featured = :is_featured, updated_at = :updated_at
		WHERE id = :id`, row)
	if err != nil {
		return event.Event{}, dbError(err, "updating event")
	}
	if err = checkAffected(res, event.ErrNotFound); err != nil {
		return event.Event{}, err
	}
	return row.toEvent(), nil
}

func (repo *eventRepository) DeleteEvent(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, "DELETE FROM events WHERE id = $1", id)
	if err != nil {
		return dbError(err, "deleting event")
	}
	return checkAffected(res, event.ErrNotFound)
}

package sqlxrepos

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/cresol/portal/core/news"
)

const (
	newsColumns = `id, title, summary, content, image_url, is_published, is_featured, show_on_homepage, priority,
	published_at, created_by, created_at, updated_at`

	// same ranking as news.Weight, whole seconds included
	newsWeightExpr = `(priority * 100
	+ CASE WHEN is_featured THEN 30 ELSE 0 END
	+ CASE WHEN show_on_homepage THEN 70 ELSE 0 END
	+ FLOOR(EXTRACT(EPOCH FROM COALESCE(published_at, created_at))) / 1e10)`
)

type newsRow struct {
	ID             string      `db:"id"`
	SectorID       null.String `db:"sector_id"`
	Title          string      `db:"title"`
	Summary        string      `db:"summary"`
	Content        string      `db:"content"`
	ImageURL       null.String `db:"image_url"`
	IsPublished    bool        `db:"is_published"`
	IsFeatured     bool        `db:"is_featured"`
	ShowOnHomepage bool        `db:"show_on_homepage"`
	Priority       int         `db:"priority"`
	PublishedAt    null.Time   `db:"published_at"`
	CreatedBy      null.String `db:"created_by"`
	CreatedAt      time.Time   `db:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at"`
}

func toNewsRow(n news.News) newsRow {
	return newsRow{
		ID:             n.ID,
		SectorID:       null.StringFromPtr(n.SectorID),
		Title:          n.Title,
		Summary:        n.Summary,
		Content:        n.Content,
		ImageURL:       null.NewString(n.ImageURL, n.ImageURL != ""),
		IsPublished:    n.IsPublished,
		IsFeatured:     n.IsFeatured,
		ShowOnHomepage: n.ShowOnHomepage,
		Priority:       n.Priority,
		PublishedAt:    null.TimeFromPtr(n.PublishedAt),
		CreatedBy:      null.StringFromPtr(n.CreatedBy),
		CreatedAt:      n.CreatedAt.UTC(),
		UpdatedAt:      n.UpdatedAt.UTC(),
	}
}

func (r newsRow) toNews() news.News {
	n := news.News{
		ID:             r.ID,
		Source:         news.SourceGeneral,
		SectorID:       r.SectorID.Ptr(),
		Title:          r.Title,
		Summary:        r.Summary,
		Content:        r.Content,
		ImageURL:       r.ImageURL.String,
		IsPublished:    r.IsPublished,
		IsFeatured:     r.IsFeatured,
		ShowOnHomepage: r.ShowOnHomepage,
		Priority:       r.Priority,
		PublishedAt:    utcPtr(r.PublishedAt),
		CreatedBy:      r.CreatedBy.Ptr(),
		CreatedAt:      r.CreatedAt.UTC(),
		UpdatedAt:      r.UpdatedAt.UTC(),
	}
	if r.SectorID.Valid {
		n.Source = news.SourceSector
	}
	return n
}

type newsRepository struct {
	db *sqlx.DB
}

var _ news.Repository = (*newsRepository)(nil) // interface compliance check

func NewNewsRepository(db *sqlx.DB) *newsRepository {
	return &newsRepository{db: db}
}

// table returns the table & column list of a news source.
func (repo *newsRepository) table(source string) (string, string, error) {
	switch source {
	case news.SourceGeneral:
		return "general_news", newsColumns, nil
	case news.SourceSector:
		return "sector_news", "sector_id, " + newsColumns, nil
	}
	return "", "", errors.Errorf("unknown news source %q", source)
}

func (repo *newsRepository) CreateNews(ctx context.Context, n news.News) (news.News, error) {
	n.ID = newID()
	row := toNewsRow(n)
	table, columns, err := repo.table(n.Source)
	if err != nil {
		return news.News{}, err
	}
	values := `:id, :title, :summary, :content, :image_url, :is_published, :is_featured, :show_on_homepage, :priority,
		:published_at, :created_by, :created_at, :updated_at`
	if n.Source == news.SourceSector {
		values = ":sector_id, " + values
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, columns, values)
	if _, err = repo.db.NamedExecContext(ctx, q, row); err != nil {
		return news.News{}, dbError(err, "inserting news")
	}
	return row.toNews(), nil
}

func (repo *newsRepository) QueryNews(ctx context.Context, filter *news.QueryFilter) ([]news.News, error) {
	table, columns, err := repo.table(filter.Source)
	if err != nil {
		return nil, err
	}

	var w where
	if filter.Source == news.SourceSector && filter.SectorID != "" {
		if !isValidID(filter.SectorID) {
			return []news.News{}, nil
		}
		w.add("sector_id = ?", filter.SectorID)
	}
	if filter.PublishedOnly {
		w.add("is_published")
	}
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		w.add("(title ILIKE ? OR summary ILIKE ?)", pattern, pattern)
	}
	if filter.IsFeatured != nil {
		w.add("is_featured = ?", *filter.IsFeatured)
	}

	order := " ORDER BY COALESCE(published_at, created_at) DESC, id"
	if filter.ByWeight {
		order = " ORDER BY " + newsWeightExpr + " DESC, COALESCE(published_at, created_at) DESC, id"
	}
	q := fmt.Sprintf("SELECT %s FROM %s%s%s", columns, table, w.String(), order)
	if filter.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	var rows []newsRow
	if err = repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), w.args...); err != nil {
		return nil, dbError(err, "querying news")
	}
	list := make([]news.News, 0, len(rows))
	for _, r := range rows {
		list = append(list, r.toNews())
	}
	return list, nil
}

func (repo *newsRepository) GetNews(ctx context.Context, source, id string) (news.News, error) {
	table, columns, err := repo.table(source)
	if err != nil || !isValidID(id) {
		return news.News{}, news.ErrNotFound
	}
	var row newsRow
	q := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", columns, table)
	if err = repo.db.GetContext(ctx, &row, q, id); err != nil {
		return news.News{}, trapNoRowsErr(err, news.ErrNotFound, "finding news")
	}
	return row.toNews(), nil
}

func (repo *newsRepository) UpdateNews(ctx context.Context, n news.News) (news.News, error) {
	table, _, err := repo.table(n.Source)
	if err != nil {
		return news.News{}, err
	}
	row := toNewsRow(n)
	q := fmt.Sprintf(`UPDATE %s SET
		title = :title, summary = :summary, content = :content, image_url = :image_url, is_published = :is_published,
		is_featured = :is_featured, show_on_homepage = :show_on_homepage, priority = :priority,
		published_at = :published_at, updated_at = :updated_at
		WHERE id = :id`, table)
	res, err := repo.db.NamedExecContext(ctx, q, row)
	if err != nil {
		return news.News{}, dbError(err, "updating news")
	}
	if err = checkAffected(res, news.ErrNotFound); err != nil {
		return news.News{}, err
	}
	return row.toNews(), nil
}

func (repo *newsRepository) DeleteNews(ctx context.Context, source, id string) error {
	table, _, err := repo.table(source)
	if err != nil {
		return news.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", table), id)
	if err != nil {
		return dbError(err, "deleting news")
	}
	return checkAffected(res, news.ErrNotFound)
}

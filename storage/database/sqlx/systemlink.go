package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/cresol/portal/core/systemlink"
)

const (
	linkColumns         = "id, name, url, icon, description, order_index, is_active, created_at, updated_at"
	linkOrderConstraint = "system_links_order_index_key"
)

type linkRow struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	URL         string    `db:"url"`
	Icon        string    `db:"icon"`
	Description string    `db:"description"`
	OrderIndex  int       `db:"order_index"`
	IsActive    bool      `db:"is_active"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func toLinkRow(l systemlink.SystemLink) linkRow {
	return linkRow{
		ID:          l.ID,
		Name:        l.Name,
		URL:         l.URL,
		Icon:        l.Icon,
		Description: l.Description,
		OrderIndex:  l.OrderIndex,
		IsActive:    l.IsActive,
		CreatedAt:   l.CreatedAt.UTC(),
		UpdatedAt:   l.UpdatedAt.UTC(),
	}
}

func (r linkRow) toLink() systemlink.SystemLink {
	return systemlink.SystemLink{
		ID:          r.ID,
		Name:        r.Name,
		URL:         r.URL,
		Icon:        r.Icon,
		Description: r.Description,
		OrderIndex:  r.OrderIndex,
		IsActive:    r.IsActive,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

type systemLinkRepository struct {
	db *sqlx.DB
}

var _ systemlink.Repository = (*systemLinkRepository)(nil) // interface compliance check

func NewSystemLinkRepository(db *sqlx.DB) *systemLinkRepository {
	return &systemLinkRepository{db: db}
}

func (repo *systemLinkRepository) MaxOrderIndex(ctx context.Context) (int, error) {
	var max int
	if err := repo.db.GetContext(ctx, &max, "SELECT COALESCE(MAX(order_index), -1) FROM system_links"); err != nil {
		return 0, dbError(err, "getting max system link order_index")
	}
	return max, nil
}

func (repo *systemLinkRepository) CreateLink(ctx context.Context, l systemlink.SystemLink) (systemlink.SystemLink, error) {
	l.ID = newID()
	row := toLinkRow(l)
	_, err := repo.db.NamedExecContext(ctx, `INSERT INTO system_links (`+linkColumns+`) VALUES (
		:id, :name, :url, :icon, :description, :order_index, :is_active, :created_at, :updated_at)`, row)
	if err != nil {
		return systemlink.SystemLink{}, orderIndexErr(err, linkOrderConstraint, "inserting system link")
	}
	return row.toLink(), nil
}

func (repo *systemLinkRepository) QueryLinks(ctx context.Context, activeOnly bool) ([]systemlink.SystemLink, error) {
	var w where
	if activeOnly {
		w.add("is_active")
	}
	var rows []linkRow
	q := "SELECT " + linkColumns + " FROM system_links" + w.String() + " ORDER BY order_index"
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, dbError(err, "querying system links")
	}
	links := make([]systemlink.SystemLink, 0, len(rows))
	for _, r := range rows {
		links = append(links, r.toLink())
	}
	return links, nil
}

func (repo *systemLinkRepository) GetLink(ctx context.Context, id string) (systemlink.SystemLink, error) {
	if !isValidID(id) {
		return systemlink.SystemLink{}, systemlink.ErrNotFound
	}
	var row linkRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+linkColumns+" FROM system_links WHERE id = $1", id); err != nil {
		return systemlink.SystemLink{}, trapNoRowsErr(err, systemlink.ErrNotFound, "finding system link")
	}
	return row.toLink(), nil
}

func (repo *systemLinkRepository) UpdateLink(ctx context.Context, l systemlink.SystemLink) (systemlink.SystemLink, error) {
	row := toLinkRow(l)
	res, err := repo.db.NamedExecContext(ctx, `UPDATE system_links SET
		name = :name, url = :url, icon = :icon, description = :description, order_index = :order_index,
		is_active = :is_active, updated_at = :updated_at
		WHERE id = :id`, row)
	if err != nil {
		return systemlink.SystemLink{}, orderIndexErr(err, linkOrderConstraint, "updating system link")
	}
	if err = checkAffected(res, systemlink.ErrNotFound); err != nil {
		return systemlink.SystemLink{}, err
	}
	return row.toLink(), nil
}

func (repo *systemLinkRepository) DeleteLink(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, "DELETE FROM system_links WHERE id = $1", id)
	if err != nil {
		return dbError(err, "deleting system link")
	}
	return checkAffected(res, systemlink.ErrNotFound)
}

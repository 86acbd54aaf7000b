package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/cresol/portal/core/banner"
)

const (
	bannerColumns         = "id, title, image_url, link_url, order_index, is_active, starts_at, ends_at, created_by, created_at, updated_at"
	bannerOrderConstraint = "banners_order_index_key"
)

type bannerRow struct {
	ID         string      `db:"id"`
	Title      string      `db:"title"`
	ImageURL   string      `db:"image_url"`
	LinkURL    null.String `db:"link_url"`
	OrderIndex int         `db:"order_index"`
	IsActive   bool        `db:"is_active"`
	StartsAt   null.Time   `db:"starts_at"`
	EndsAt     null.Time   `db:"ends_at"`
	CreatedBy  null.String `db:"created_by"`
	CreatedAt  time.Time   `db:"created_at"`
	UpdatedAt  time.Time   `db:"updated_at"`
}

func toBannerRow(b banner.Banner) bannerRow {
	return bannerRow{
		ID:         b.ID,
		Title:      b.Title,
		ImageURL:   b.ImageURL,
		LinkURL:    null.NewString(b.LinkURL, b.LinkURL != ""),
		OrderIndex: b.OrderIndex,
		IsActive:   b.IsActive,
		StartsAt:   null.TimeFromPtr(b.StartsAt),
		EndsAt:     null.TimeFromPtr(b.EndsAt),
		CreatedBy:  null.StringFromPtr(b.CreatedBy),
		CreatedAt:  b.CreatedAt.UTC(),
		UpdatedAt:  b.UpdatedAt.UTC(),
	}
}

func (r bannerRow) toBanner() banner.Banner {
	return banner.Banner{
		ID:         r.ID,
		Title:      r.Title,
		ImageURL:   r.ImageURL,
		LinkURL:    r.LinkURL.String,
		OrderIndex: r.OrderIndex,
		IsActive:   r.IsActive,
		StartsAt:   utcPtr(r.StartsAt),
		EndsAt:     utcPtr(r.EndsAt),
		CreatedBy:  r.CreatedBy.Ptr(),
		CreatedAt:  r.CreatedAt.UTC(),
		UpdatedAt:  r.UpdatedAt.UTC(),
	}
}

func utcPtr(t null.Time) *time.Time {
	if !t.Valid {
		return nil
	}
	utc := t.Time.UTC()
	return &utc
}

type bannerRepository struct {
	db *sqlx.DB
}

var _ banner.Repository = (*bannerRepository)(nil) // interface compliance check

func NewBannerRepository(db *sqlx.DB) *bannerRepository {
	return &bannerRepository{db: db}
}

func (repo *bannerRepository) MaxOrderIndex(ctx context.Context) (int, error) {
	var max int
	if err := repo.db.GetContext(ctx, &max, "SELECT COALESCE(MAX(order_index), -1) FROM banners"); err != nil {
		return 0, dbError(err, "getting max banner order_index")
	}
	return max, nil
}

func (repo *bannerRepository) CreateBanner(ctx context.Context, b banner.Banner) (banner.Banner, error) {
	b.ID = newID()
	row := toBannerRow(b)
	_, err := repo.db.NamedExecContext(ctx, `INSERT INTO banners (`+bannerColumns+`) VALUES (
		:id, :title, :image_url, :link_url, :order_index, :is_active, :starts_at, :ends_at, :created_by, :created_at, :updated_at)`, row)
	if err != nil {
		return banner.Banner{}, orderIndexErr(err, bannerOrderConstraint, "inserting banner")
	}
	return row.toBanner(), nil
}

func (repo *bannerRepository) QueryBanners(ctx context.Context, filter *banner.QueryFilter) ([]banner.Banner, error) {
	var w where
	if filter != nil && filter.Active {
		at := filter.DisplayedAt
		if at.IsZero() {
			at = time.Now().UTC()
		}
		w.add("is_active")
		w.add("(starts_at IS NULL OR starts_at <= ?)", at)
		w.add("(ends_at IS NULL OR ends_at > ?)", at)
	}
	var rows []bannerRow
	q := repo.db.Rebind("SELECT " + bannerColumns + " FROM banners" + w.String() + " ORDER BY order_index")
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, dbError(err, "querying banners")
	}
	banners := make([]banner.Banner, 0, len(rows))
	for _, r := range rows {
		banners = append(banners, r.toBanner())
	}
	return banners, nil
}

func (repo *bannerRepository) GetBanner(ctx context.Context, id string) (banner.Banner, error) {
	if !isValidID(id) {
		return banner.Banner{}, banner.ErrNotFound
	}
	var row bannerRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+bannerColumns+" FROM banners WHERE id = $1", id); err != nil {
		return banner.Banner{}, trapNoRowsErr(err, banner.ErrNotFound, "finding banner")
	}
	return row.toBanner(), nil
}

func (repo *bannerRepository) UpdateBanner(ctx context.Context, b banner.Banner) (banner.Banner, error) {
	row := toBannerRow(b)
	res, err := repo.db.NamedExecContext(ctx, `UPDATE banners SET
		title = :title, image_url = :image_url, link_url = :link_url, order_index = :order_index, is_active = :is_active,
		starts_at = :starts_at, ends_at = :ends_at, updated_at = :updated_at
		WHERE id = :id`, row)
	if err != nil {
		return banner.Banner{}, orderIndexErr(err, bannerOrderConstraint, "updating banner")
	}
	if err = checkAffected(res, banner.ErrNotFound); err != nil {
		return banner.Banner{}, err
	}
	return row.toBanner(), nil
}

func (repo *bannerRepository) DeleteBanner(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, "DELETE FROM banners WHERE id = $1", id)
	if err != nil {
		return dbError(err, "deleting banner")
	}
	return checkAffected(res, banner.ErrNotFound)
}

// SetOrder moves every banner to a negative index first, so the unique constraint holds between the two passes.
func (repo *bannerRepository) SetOrder(ctx context.Context, ids []string) error {
	return withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, "UPDATE banners SET order_index = -(order_index + 1)"); err != nil {
			return dbError(err, "parking banner order_index")
		}
		for idx, id := range ids {
			if _, err := tx.ExecContext(ctx, "UPDATE banners SET order_index = $2 WHERE id = $1", id, idx); err != nil {
				return dbError(err, "setting banner order_index")
			}
		}
		return nil
	})
}

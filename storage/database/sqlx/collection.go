package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/volatiletech/null/v8"

	"github.com/cresol/portal/core/collection"
)

const (
	collectionColumns = "id, title, description, cover_image_url, type, is_active, order_index, created_by, created_at, updated_at"
	itemColumns       = "id, collection_id, title, media_url, media_type, order_index, created_at"
)

type collectionRow struct {
	ID            string      `db:"id"`
	Title         string      `db:"title"`
	Description   string      `db:"description"`
	CoverImageURL null.String `db:"cover_image_url"`
	Type          string      `db:"type"`
	IsActive      bool        `db:"is_active"`
	OrderIndex    int         `db:"order_index"`
	CreatedBy     null.String `db:"created_by"`
	CreatedAt     time.Time   `db:"created_at"`
	UpdatedAt     time.Time   `db:"updated_at"`
}

func toCollectionRow(c collection.Collection) collectionRow {
	return collectionRow{
		ID:            c.ID,
		Title:         c.Title,
		Description:   c.Description,
		CoverImageURL: null.NewString(c.CoverImageURL, c.CoverImageURL != ""),
		Type:          c.Type,
		IsActive:      c.IsActive,
		OrderIndex:    c.OrderIndex,
		CreatedBy:     null.StringFromPtr(c.CreatedBy),
		CreatedAt:     c.CreatedAt.UTC(),
		UpdatedAt:     c.UpdatedAt.UTC(),
	}
}

func (r collectionRow) toCollection(items []collection.Item) collection.Collection {
	if items == nil {
		items = []collection.Item{}
	}
	return collection.Collection{
		ID:            r.ID,
		Title:         r.Title,
		Description:   r.Description,
		CoverImageURL: r.CoverImageURL.String,
		Type:          r.Type,
		IsActive:      r.IsActive,
		OrderIndex:    r.OrderIndex,
		Items:         items,
		CreatedBy:     r.CreatedBy.Ptr(),
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
}

type itemRow struct {
	ID           string    `db:"id"`
	CollectionID string    `db:"collection_id"`
	Title        string    `db:"title"`
	MediaURL     string    `db:"media_url"`
	MediaType    string    `db:"media_type"`
	OrderIndex   int       `db:"order_index"`
	CreatedAt    time.Time `db:"created_at"`
}

func (r itemRow) toItem() collection.Item {
	return collection.Item{
		ID:           r.ID,
		CollectionID: r.CollectionID,
		Title:        r.Title,
		MediaURL:     r.MediaURL,
		MediaType:    r.MediaType,
		OrderIndex:   r.OrderIndex,
		CreatedAt:    r.CreatedAt.UTC(),
	}
}

type collectionRepository struct {
	db *sqlx.DB
}

var _ collection.Repository = (*collectionRepository)(nil) // interface compliance check

func NewCollectionRepository(db *sqlx.DB) *collectionRepository {
	return &collectionRepository{db: db}
}

// items loads the items of the given collections, grouped by collection.
func (repo *collectionRepository) items(ctx context.Context, ids []string) (map[string][]collection.Item, error) {
	res := make(map[string][]collection.Item, len(ids))
	if len(ids) == 0 {
		return res, nil
	}
	var rows []itemRow
	q := "SELECT " + itemColumns + " FROM collection_items WHERE collection_id = ANY($1) ORDER BY order_index, created_at"
	if err := repo.db.SelectContext(ctx, &rows, q, pq.Array(ids)); err != nil {
		return nil, dbError(err, "querying collection items")
	}
	for _, r := range rows {
		res[r.CollectionID] = append(res[r.CollectionID], r.toItem())
	}
	return res, nil
}

func (repo *collectionRepository) CreateCollection(ctx context.Context, c collection.Collection) (collection.Collection, error) {
	c.ID = newID()
	row := toCollectionRow(c)
	_, err := repo.db.NamedExecContext(ctx, `INSERT INTO collections (`+collectionColumns+`) VALUES (
		:id, :title, :description, :cover_image_url, :type, :is_active, :order_index, :created_by, :created_at, :updated_at)`, row)
	if err != nil {
		return collection.Collection{}, dbError(err, "inserting collection")
	}
	return row.toCollection(nil), nil
}

func (repo *collectionRepository) QueryCollections(ctx context.Context, filter *collection.QueryFilter) ([]collection.Collection, error) {
	var w where
	if filter != nil && filter.ActiveOnly {
		w.add("is_active")
	}
	var rows []collectionRow
	q := repo.db.Rebind("SELECT " + collectionColumns + " FROM collections" + w.String() + " ORDER BY order_index, title")
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, dbError(err, "querying collections")
	}

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	items, err := repo.items(ctx, ids)
	if err != nil {
		return nil, err
	}
	colls := make([]collection.Collection, 0, len(rows))
	for _, r := range rows {
		colls = append(colls, r.toCollection(items[r.ID]))
	}
	return colls, nil
}

func (repo *collectionRepository) GetCollection(ctx context.Context, id string) (collection.Collection, error) {
	if !isValidID(id) {
		return collection.Collection{}, collection.ErrNotFound
	}
	var row collectionRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+collectionColumns+" FROM collections WHERE id = $1", id); err != nil {
		return collection.Collection{}, trapNoRowsErr(err, collection.ErrNotFound, "finding collection")
	}
	items, err := repo.items(ctx, []string{id})
	if err != nil {
		return collection.Collection{}, err
	}
	return row.toCollection(items[id]), nil
}

func (repo *collectionRepository) UpdateCollection(ctx context.Context, c collection.Collection) (collection.Collection, error) {
	row := toCollectionRow(c)
	res, err := repo.db.NamedExecContext(ctx, `UPDATE collections SET
		title = :title, description = :description, cover_image_url = :cover_image_url, type = :type,
		is_active = :is_active, order_index = :order_index, updated_at = :updated_at
		WHERE id = :id`, row)
	if err != nil {
		return collection.Collection{}, dbError(err, "updating collection")
	}
	if err = checkAffected(res, collection.ErrNotFound); err != nil {
		return collection.Collection{}, err
	}
	return row.toCollection(c.Items), nil
}

func (repo *collectionRepository) DeleteCollection(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, "DELETE FROM collections WHERE id = $1", id)
	if err != nil {
		return dbError(err, "deleting collection")
	}
	return checkAffected(res, collection.ErrNotFound)
}

func (repo *collectionRepository) MaxItemOrderIndex(ctx context.Context, collectionID string) (int, error) {
	var max int
	q := "SELECT COALESCE(MAX(order_index), -1) FROM collection_items WHERE collection_id = $1"
	if err := repo.db.GetContext(ctx, &max, q, collectionID); err != nil {
		return 0, dbError(err, "getting max item order_index")
	}
	return max, nil
}

func (repo *collectionRepository) CreateItem(ctx context.Context, it collection.Item) (collection.Item, error) {
	it.ID = newID()
	_, err := repo.db.ExecContext(ctx,
		"INSERT INTO collection_items ("+itemColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7)",
		it.ID, it.CollectionID, it.Title, it.MediaURL, it.MediaType, it.OrderIndex, it.CreatedAt.UTC())
	if err != nil {
		return collection.Item{}, dbError(err, "inserting collection item")
	}
	return it, nil
}

func (repo *collectionRepository) GetItem(ctx context.Context, collectionID, id string) (collection.Item, error) {
	if !isValidID(id) {
		return collection.Item{}, collection.ErrItemNotFound
	}
	var row itemRow
	q := "SELECT " + itemColumns + " FROM collection_items WHERE collection_id = $1 AND id = $2"
	if err := repo.db.GetContext(ctx, &row, q, collectionID, id); err != nil {
		return collection.Item{}, trapNoRowsErr(err, collection.ErrItemNotFound, "finding collection item")
	}
	return row.toItem(), nil
}

func (repo *collectionRepository) UpdateItem(ctx context.Context, it collection.Item) (collection.Item, error) {
	res, err := repo.db.ExecContext(ctx,
		"UPDATE collection_items SET title = $2, media_url = $3, media_type = $4, order_index = $5 WHERE id = $1",
		it.ID, it.Title, it.MediaURL, it.MediaType, it.OrderIndex)
	if err != nil {
		return collection.Item{}, dbError(err, "updating collection item")
	}
	if err = checkAffected(res, collection.ErrItemNotFound); err != nil {
		return collection.Item{}, err
	}
	return it, nil
}

func (repo *collectionRepository) DeleteItem(ctx context.Context, collectionID, id string) error {
	res, err := repo.db.ExecContext(ctx, "DELETE FROM collection_items WHERE collection_id = $1 AND id = $2", collectionID, id)
	if err != nil {
		return dbError(err, "deleting collection item")
	}
	return checkAffected(res, collection.ErrItemNotFound)
}

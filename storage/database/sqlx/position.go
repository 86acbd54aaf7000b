package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/cresol/portal/core/position"
)

const (
	positionColumns        = "id, name, description, is_active, created_at, updated_at"
	positionNameConstraint = "positions_name_key"
)

type positionRow struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	IsActive    bool      `db:"is_active"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r positionRow) toPosition() position.Position {
	return position.Position{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		IsActive:    r.IsActive,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

type positionRepository struct {
	db *sqlx.DB
}

var _ position.Repository = (*positionRepository)(nil) // interface compliance check

func NewPositionRepository(db *sqlx.DB) *positionRepository {
	return &positionRepository{db: db}
}

func (repo *positionRepository) CheckName(ctx context.Context, name, excludeID string) error {
	var exists bool
	q := "SELECT EXISTS(SELECT 1 FROM positions WHERE LOWER(name) = LOWER($1) AND id::text <> $2)"
	if err := repo.db.GetContext(ctx, &exists, q, name, excludeID); err != nil {
		return dbError(err, "checking position name")
	}
	if exists {
		return position.ErrNameExists
	}
	return nil
}

func (repo *positionRepository) CreatePosition(ctx context.Context, p position.Position) (position.Position, error) {
	p.ID = newID()
	_, err := repo.db.ExecContext(ctx,
		"INSERT INTO positions ("+positionColumns+") VALUES ($1, $2, $3, $4, $5, $6)",
		p.ID, p.Name, p.Description, p.IsActive, p.CreatedAt.UTC(), p.UpdatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err, positionNameConstraint) {
			return position.Position{}, position.ErrNameExists
		}
		return position.Position{}, dbError(err, "inserting position")
	}
	return p, nil
}

func (repo *positionRepository) QueryPositions(ctx context.Context, activeOnly bool) ([]position.Position, error) {
	var w where
	if activeOnly {
		w.add("is_active")
	}
	var rows []positionRow
	q := "SELECT " + positionColumns + " FROM positions" + w.String() + " ORDER BY name"
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, dbError(err, "querying positions")
	}
	positions := make([]position.Position, 0, len(rows))
	for _, r := range rows {
		positions = append(positions, r.toPosition())
	}
	return positions, nil
}

func (repo *positionRepository) GetPosition(ctx context.Context, id string) (position.Position, error) {
	if !isValidID(id) {
		return position.Position{}, position.ErrNotFound
	}
	var row positionRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+positionColumns+" FROM positions WHERE id = $1", id); err != nil {
		return position.Position{}, trapNoRowsErr(err, position.ErrNotFound, "finding position")
	}
	return row.toPosition(), nil
}

func (repo *positionRepository) UpdatePosition(ctx context.Context, p position.Position) (position.Position, error) {
	res, err := repo.db.ExecContext(ctx,
		"UPDATE positions SET name = $2, description = $3, is_active = $4, updated_at = $5 WHERE id = $1",
		p.ID, p.Name, p.Description, p.IsActive, p.UpdatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err, positionNameConstraint) {
			return position.Position{}, position.ErrNameExists
		}
		return position.Position{}, dbError(err, "updating position")
	}
	if err = checkAffected(res, position.ErrNotFound); err != nil {
		return position.Position{}, err
	}
	return p, nil
}

func (repo *positionRepository) CountHolders(ctx context.Context, id string) (int, error) {
	var n int
	if err := repo.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM profiles WHERE position_id = $1", id); err != nil {
		return 0, dbError(err, "counting position holders")
	}
	return n, nil
}

func (repo *positionRepository) DeletePosition(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, "DELETE FROM positions WHERE id = $1", id)
	if err != nil {
		return dbError(err, "deleting position")
	}
	return checkAffected(res, position.ErrNotFound)
}

package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/cresol/portal/core/sector"
)

const (
	sectorColumns    = "id, name, description, is_active, created_at, updated_at"
	subsectorColumns = "id, sector_id, name, description, is_active, created_at, updated_at"
)

type sectorRow struct {
	ID          string    `db:"id"`
	SectorID    string    `db:"sector_id"` // subsectors only
	Name        string    `db:"name"`
	Description string    `db:"description"`
	IsActive    bool      `db:"is_active"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r sectorRow) toSector() sector.Sector {
	return sector.Sector{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		IsActive:    r.IsActive,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

func (r sectorRow) toSubsector() sector.Subsector {
	return sector.Subsector{
		ID:          r.ID,
		SectorID:    r.SectorID,
		Name:        r.Name,
		Description: r.Description,
		IsActive:    r.IsActive,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

type sectorRepository struct {
	db *sqlx.DB
}

var _ sector.Repository = (*sectorRepository)(nil) // interface compliance check

func NewSectorRepository(db *sqlx.DB) *sectorRepository {
	return &sectorRepository{db: db}
}

// Sectors

func (repo *sectorRepository) CheckSectorName(ctx context.Context, name string, excludeID string) error {
	var w where
	w.add("LOWER(name) = LOWER(?)", name)
	if excludeID != "" {
		w.add("id <> ?", excludeID)
	}
	var exists bool
	if err := repo.db.GetContext(ctx, &exists, repo.db.Rebind("SELECT EXISTS(SELECT 1 FROM sectors"+w.String()+")"), w.args...); err != nil {
		return dbError(err, "checking sector name")
	}
	if exists {
		return sector.ErrNameExists
	}
	return nil
}

func (repo *sectorRepository) CreateSector(ctx context.Context, s sector.Sector) (sector.Sector, error) {
	s.ID = newID()
	_, err := repo.db.ExecContext(ctx,
		"INSERT INTO sectors ("+sectorColumns+") VALUES ($1, $2, $3, $4, $5, $6)",
		s.ID, s.Name, s.Description, s.IsActive, s.CreatedAt.UTC(), s.UpdatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err, "sectors_name_key") {
			return sector.Sector{}, sector.ErrNameExists
		}
		return sector.Sector{}, dbError(err, "inserting sector")
	}
	return s, nil
}

func (repo *sectorRepository) QuerySectors(ctx context.Context, filter *sector.QueryFilter) ([]sector.Sector, error) {
	var w where
	if filter != nil {
		if filter.Search != "" {
			w.add("name ILIKE ?", likePattern(filter.Search))
		}
		if filter.IsActive != nil {
			w.add("is_active = ?", *filter.IsActive)
		}
	}
	var rows []sectorRow
	q := repo.db.Rebind("SELECT " + sectorColumns + " FROM sectors" + w.String() + " ORDER BY name")
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, dbError(err, "querying sectors")
	}
	sectors := make([]sector.Sector, 0, len(rows))
	for _, r := range rows {
		sectors = append(sectors, r.toSector())
	}
	return sectors, nil
}

func (repo *sectorRepository) GetSector(ctx context.Context, id string) (sector.Sector, error) {
	if !isValidID(id) {
		return sector.Sector{}, sector.ErrNotFound
	}
	var row sectorRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+sectorColumns+" FROM sectors WHERE id = $1", id); err != nil {
		return sector.Sector{}, trapNoRowsErr(err, sector.ErrNotFound, "finding sector")
	}
	return row.toSector(), nil
}

func (repo *sectorRepository) UpdateSector(ctx context.Context, s sector.Sector) (sector.Sector, error) {
	res, err := repo.db.ExecContext(ctx,
		"UPDATE sectors SET name = $2, description = $3, is_active = $4, updated_at = $5 WHERE id = $1",
		s.ID, s.Name, s.Description, s.IsActive, s.UpdatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err, "sectors_name_key") {
			return sector.Sector{}, sector.ErrNameExists
		}
		return sector.Sector{}, dbError(err, "updating sector")
	}
	return s, checkAffected(res, sector.ErrNotFound)
}

func (repo *sectorRepository) DeleteSector(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, "DELETE FROM sectors WHERE id = $1", id)
	if err != nil {
		return dbError(err, "deleting sector")
	}
	return checkAffected(res, sector.ErrNotFound)
}

// Subsectors

func (repo *sectorRepository) CheckSubsectorName(ctx context.Context, sectorID, name string, excludeID string) error {
	var w where
	w.add("sector_id = ?", sectorID)
	w.add("LOWER(name) = LOWER(?)", name)
	if excludeID != "" {
		w.add("id <> ?", excludeID)
	}
	var exists bool
	if err := repo.db.GetContext(ctx, &exists, repo.db.Rebind("SELECT EXISTS(SELECT 1 FROM subsectors"+w.String()+")"), w.args...); err != nil {
		return dbError(err, "checking subsector name")
	}
	if exists {
		return sector.ErrSubsectorNameExists
	}
	return nil
}

func (repo *sectorRepository) CreateSubsector(ctx context.Context, s sector.Subsector) (sector.Subsector, error) {
	s.ID = newID()
	_, err := repo.db.ExecContext(ctx,
		"INSERT INTO subsectors ("+subsectorColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7)",
		s.ID, s.SectorID, s.Name, s.Description, s.IsActive, s.CreatedAt.UTC(), s.UpdatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err, "subsectors_sector_name_key") {
			return sector.Subsector{}, sector.ErrSubsectorNameExists
		}
		return sector.Subsector{}, dbError(err, "inserting subsector")
	}
	return s, nil
}

func (repo *sectorRepository) QuerySubsectors(ctx context.Context, sectorID string) ([]sector.Subsector, error) {
	if !isValidID(sectorID) {
		return []sector.Subsector{}, nil
	}
	var rows []sectorRow
	q := "SELECT " + subsectorColumns + " FROM subsectors WHERE sector_id = $1 ORDER BY name"
	if err := repo.db.SelectContext(ctx, &rows, q, sectorID); err != nil {
		return nil, dbError(err, "querying subsectors")
	}
	subs := make([]sector.Subsector, 0, len(rows))
	for _, r := range rows {
		subs = append(subs, r.toSubsector())
	}
	return subs, nil
}

func (repo *sectorRepository) CountSubsectors(ctx context.Context, sectorID string) (int, error) {
	var n int
	if err := repo.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM subsectors WHERE sector_id = $1", sectorID); err != nil {
		return 0, dbError(err, "counting subsectors")
	}
	return n, nil
}

func (repo *sectorRepository) GetSubsector(ctx context.Context, id string) (sector.Subsector, error) {
	if !isValidID(id) {
		return sector.Subsector{}, sector.ErrSubsectorNotFound
	}
	var row sectorRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+subsectorColumns+" FROM subsectors WHERE id = $1", id); err != nil {
		return sector.Subsector{}, trapNoRowsErr(err, sector.ErrSubsectorNotFound, "finding subsector")
	}
	return row.toSubsector(), nil
}

func (repo *sectorRepository) UpdateSubsector(ctx context.Context, s sector.Subsector) (sector.Subsector, error) {
	res, err := repo.db.ExecContext(ctx,
		"UPDATE subsectors SET name = $2, description = $3, is_active = $4, updated_at = $5 WHERE id = $1",
		s.ID, s.Name, s.Description, s.IsActive, s.UpdatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err, "subsectors_sector_name_key") {
			return sector.Subsector{}, sector.ErrSubsectorNameExists
		}
		return sector.Subsector{}, dbError(err, "updating subsector")
	}
	return s, checkAffected(res, sector.ErrSubsectorNotFound)
}

func (repo *sectorRepository) DeleteSubsector(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, "DELETE FROM subsectors WHERE id = $1", id)
	if err != nil {
		return dbError(err, "deleting subsector")
	}
	return checkAffected(res, sector.ErrSubsectorNotFound)
}

// Admins

func (repo *sectorRepository) AddSectorAdmin(ctx context.Context, sectorID, userID string) error {
	_, err := repo.db.ExecContext(ctx,
		"INSERT INTO sector_admins (sector_id, user_id, created_at) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING",
		sectorID, userID, time.Now().UTC())
	return dbError(err, "adding sector admin")
}

func (repo *sectorRepository) RemoveSectorAdmin(ctx context.Context, sectorID, userID string) error {
	if !isValidID(userID) {
		return nil
	}
	_, err := repo.db.ExecContext(ctx, "DELETE FROM sector_admins WHERE sector_id = $1 AND user_id = $2", sectorID, userID)
	return dbError(err, "removing sector admin")
}

func (repo *sectorRepository) SectorAdminIDs(ctx context.Context, sectorID string) ([]string, error) {
	ids := make([]string, 0)
	q := "SELECT user_id FROM sector_admins WHERE sector_id = $1 ORDER BY created_at"
	if err := repo.db.SelectContext(ctx, &ids, q, sectorID); err != nil {
		return nil, dbError(err, "listing sector admins")
	}
	return ids, nil
}

func (repo *sectorRepository) AddSubsectorAdmin(ctx context.Context, subsectorID, userID string) error {
	_, err := repo.db.ExecContext(ctx,
		"INSERT INTO subsector_admins (subsector_id, user_id, created_at) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING",
		subsectorID, userID, time.Now().UTC())
	return dbError(err, "adding subsector admin")
}

func (repo *sectorRepository) RemoveSubsectorAdmin(ctx context.Context, subsectorID, userID string) error {
	if !isValidID(userID) {
		return nil
	}
	_, err := repo.db.ExecContext(ctx, "DELETE FROM subsector_admins WHERE subsector_id = $1 AND user_id = $2", subsectorID, userID)
	return dbError(err, "removing subsector admin")
}

func (repo *sectorRepository) SubsectorAdminIDs(ctx context.Context, subsectorID string) ([]string, error) {
	ids := make([]string, 0)
	q := "SELECT user_id FROM subsector_admins WHERE subsector_id = $1 ORDER BY created_at"
	if err := repo.db.SelectContext(ctx, &ids, q, subsectorID); err != nil {
		return nil, dbError(err, "listing subsector admins")
	}
	return ids, nil
}

func (repo *sectorRepository) GetScope(ctx context.Context, userID string) (sector.Scope, error) {
	scope := sector.Scope{SectorIDs: []string{}, SubsectorIDs: []string{}}
	if !isValidID(userID) {
		return scope, nil
	}
	if err := repo.db.SelectContext(ctx, &scope.SectorIDs, "SELECT sector_id FROM sector_admins WHERE user_id = $1", userID); err != nil {
		return sector.Scope{}, dbError(err, "listing admin sectors")
	}
	if err := repo.db.SelectContext(ctx, &scope.SubsectorIDs, "SELECT subsector_id FROM subsector_admins WHERE user_id = $1", userID); err != nil {
		return sector.Scope{}, dbError(err, "listing admin subsectors")
	}
	return scope, nil
}

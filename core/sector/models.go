package sector

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/cresol/portal/core"
)

type Sector struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Subsector struct {
	ID          string    `json:"id"`
	SectorID    string    `json:"sector_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Scope lists what a user administers besides their role.
type Scope struct {
	SectorIDs    []string `json:"sector_ids"`
	SubsectorIDs []string `json:"subsector_ids"`
}

func (s Scope) HasSector(id string) bool {
	for _, sid := range s.SectorIDs {
		if sid == id {
			return true
		}
	}
	return false
}

func (s Scope) HasSubsector(id string) bool {
	for _, sid := range s.SubsectorIDs {
		if sid == id {
			return true
		}
	}
	return false
}

// NewSector contains information needed to create a Sector or a Subsector.
type NewSector struct {
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description" validate:"max=2000"`
	IsActive    *bool  `json:"is_active"`
}

func (ns *NewSector) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Description = core.CleanString(ns.Description)
	return validate.Struct(ns)
}

type UpdateSector struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=120"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	IsActive    *bool   `json:"is_active"`
}

func (us *UpdateSector) Validate(validate *validator.Validate) error {
	if us.Name != nil {
		name := core.CleanString(*us.Name)
		us.Name = &name
	}
	if us.Description != nil {
		desc := core.CleanString(*us.Description)
		us.Description = &desc
	}
	return validate.Struct(us)
}

type QueryFilter struct {
	Search   string `query:"search"`
	IsActive *bool  `query:"is_active"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

type AdminRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
}

func (ar *AdminRequest) Validate(validate *validator.Validate) error {
	ar.UserID = core.CleanString(ar.UserID, true /* lower */)
	return validate.Struct(ar)
}

type Repository interface {
	CheckSectorName(ctx context.Context, name string, excludeID string) error
	CreateSector(ctx context.Context, s Sector) (Sector, error)
	QuerySectors(ctx context.Context, filter *QueryFilter) ([]Sector, error)
	GetSector(ctx context.Context, id string) (Sector, error)
	UpdateSector(ctx context.Context, s Sector) (Sector, error)
	DeleteSector(ctx context.Context, id string) error

	CheckSubsectorName(ctx context.Context, sectorID, name string, excludeID string) error
	CreateSubsector(ctx context.Context, s Subsector) (Subsector, error)
	QuerySubsectors(ctx context.Context, sectorID string) ([]Subsector, error)
	CountSubsectors(ctx context.Context, sectorID string) (int, error)
	GetSubsector(ctx context.Context, id string) (Subsector, error)
	UpdateSubsector(ctx context.Context, s Subsector) (Subsector, error)
	DeleteSubsector(ctx context.Context, id string) error

	AddSectorAdmin(ctx context.Context, sectorID, userID string) error
	RemoveSectorAdmin(ctx context.Context, sectorID, userID string) error
	SectorAdminIDs(ctx context.Context, sectorID string) ([]string, error)
	AddSubsectorAdmin(ctx context.Context, subsectorID, userID string) error
	RemoveSubsectorAdmin(ctx context.Context, subsectorID, userID string) error
	SubsectorAdminIDs(ctx context.Context, subsectorID string) ([]string, error)
	// GetScope returns the sectors & subsectors userID is assigned to as an admin.
	GetScope(ctx context.Context, userID string) (Scope, error)
}

package sector

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/cresol/portal/core"
	"github.com/cresol/portal/core/user"
)

var (
	// errors
	ErrNotFound             = errors.New("sector not found")
	ErrSubsectorNotFound    = errors.New("subsector not found")
	ErrNameExists           = errors.New("a sector with this name already exists")
	ErrSubsectorNameExists  = errors.New("a subsector with this name already exists in this sector")
	ErrHasSubsectors        = errors.New("sector still has subsectors")
	ErrInactiveAdminAccount = errors.New("inactive users cannot be admins")
)

type (
	Service interface {
		Scope(ctx context.Context, usr user.User) (Scope, error)
		CanManageSector(ctx context.Context, usr user.User, sectorID string) (bool, error)
		CanManageSubsector(ctx context.Context, usr user.User, sub Subsector) (bool, error)

		Create(ctx context.Context, actor user.User, ns NewSector) (Sector, error)
		Query(ctx context.Context, filter *QueryFilter) ([]Sector, error)
		GetByID(ctx context.Context, id string) (Sector, error)
		Update(ctx context.Context, actor user.User, s Sector, us UpdateSector) (Sector, error)
		Delete(ctx context.Context, actor user.User, s Sector) error

		CreateSubsector(ctx context.Context, actor user.User, sectorID string, ns NewSector) (Subsector, error)
		QuerySubsectors(ctx context.Context, sectorID string) ([]Subsector, error)
		GetSubsector(ctx context.Context, id string) (Subsector, error)
		UpdateSubsector(ctx context.Context, actor user.User, sub Subsector, us UpdateSector) (Subsector, error)
		DeleteSubsector(ctx context.Context, actor user.User, sub Subsector) error

		ListSectorAdmins(ctx context.Context, sectorID string) ([]user.User, error)
		AddSectorAdmin(ctx context.Context, actor user.User, sectorID, userID string) error
		RemoveSectorAdmin(ctx context.Context, actor user.User, sectorID, userID string) error
		ListSubsectorAdmins(ctx context.Context, sub Subsector) ([]user.User, error)
		AddSubsectorAdmin(ctx context.Context, actor user.User, sub Subsector, userID string) error
		RemoveSubsectorAdmin(ctx context.Context, actor user.User, sub Subsector, userID string) error
	}

	service struct {
		repo   Repository
		usrSvc user.Service
		cache  core.Cache
		logger core.Logger
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(repo Repository, usrSvc user.Service, cache core.Cache, logger core.Logger) Service {
	return &service{repo: repo, usrSvc: usrSvc, cache: cache, logger: logger}
}

// Scope returns the sectors & subsectors usr administers. Admins get an empty scope: they manage everything.
func (svc *service) Scope(ctx context.Context, usr user.User) (Scope, error) {
	if usr.IsAdmin() || !(usr.IsSectorAdmin() || usr.IsSubsectorAdmin()) {
		return Scope{SectorIDs: []string{}, SubsectorIDs: []string{}}, nil
	}
	scope, err := svc.repo.GetScope(ctx, usr.ID)
	if err != nil {
		return Scope{}, errors.Wrap(err, "getting admin scope")
	}
	if scope.SectorIDs == nil {
		scope.SectorIDs = []string{}
	}
	if scope.SubsectorIDs == nil {
		scope.SubsectorIDs = []string{}
	}
	return scope, nil
}

func (svc *service) CanManageSector(ctx context.Context, usr user.User, sectorID string) (bool, error) {
	if !usr.IsActive {
		return false, nil
	}
	if usr.IsAdmin() {
		return true, nil
	}
	if !usr.IsSectorAdmin() {
		return false, nil
	}
	scope, err := svc.Scope(ctx, usr)
	if err != nil {
		return false, err
	}
	return scope.HasSector(sectorID), nil
}

func (svc *service) CanManageSubsector(ctx context.Context, usr user.User, sub Subsector) (bool, error) {
	if !usr.IsActive {
		return false, nil
	}
	if usr.IsAdmin() {
		return true, nil
	}
	if !(usr.IsSectorAdmin() || usr.IsSubsectorAdmin()) {
		return false, nil
	}
	scope, err := svc.Scope(ctx, usr)
	if err != nil {
		return false, err
	}
	return scope.HasSector(sub.SectorID) || scope.HasSubsector(sub.ID), nil
}

func (svc *service) checkSectorName(ctx context.Context, name, excludeID string) error {
	if err := svc.repo.CheckSectorName(ctx, name, excludeID); err != nil {
		if errors.Cause(err) == ErrNameExists {
			return core.NewValidationError(ErrNameExists, core.FieldError{Field: "name", Error: ErrNameExists.Error()})
		}
		return errors.Wrap(err, "checking sector name")
	}
	return nil
}

func (svc *service) checkSubsectorName(ctx context.Context, sectorID, name, excludeID string) error {
	if err := svc.repo.CheckSubsectorName(ctx, sectorID, name, excludeID); err != nil {
		if errors.Cause(err) == ErrSubsectorNameExists {
			return core.NewValidationError(ErrSubsectorNameExists, core.FieldError{Field: "name", Error: ErrSubsectorNameExists.Error()})
		}
		return errors.Wrap(err, "checking subsector name")
	}
	return nil
}

// Sectors

func (svc *service) Create(ctx context.Context, actor user.User, ns NewSector) (Sector, error) {
	if !actor.IsAdmin() {
		return Sector{}, core.ErrForbidden
	}
	if err := svc.checkSectorName(ctx, ns.Name, ""); err != nil {
		return Sector{}, err
	}
	now := time.Now().UTC()
	s := Sector{
		Name:        ns.Name,
		Description: ns.Description,
		IsActive:    ns.IsActive == nil || *ns.IsActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateSector(ctx, s)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter) ([]Sector, error) {
	return svc.repo.QuerySectors(ctx, filter)
}

func (svc *service) GetByID(ctx context.Context, id string) (Sector, error) {
	return svc.repo.GetSector(ctx, id)
}

func (svc *service) Update(ctx context.Context, actor user.User, s Sector, us UpdateSector) (Sector, error) {
	ok, err := svc.CanManageSector(ctx, actor, s.ID)
	if err != nil {
		return Sector{}, err
	}
	if !ok {
		return Sector{}, core.ErrForbidden
	}
	if us.Name != nil && *us.Name != s.Name {
		if err = svc.checkSectorName(ctx, *us.Name, s.ID); err != nil {
			return Sector{}, err
		}
		s.Name = *us.Name
	}
	if us.Description != nil {
		s.Description = *us.Description
	}
	if us.IsActive != nil {
		// sector admins cannot switch their own sector off
		if !actor.IsAdmin() && *us.IsActive != s.IsActive {
			return Sector{}, core.ErrForbidden
		}
		s.IsActive = *us.IsActive
	}
	s.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateSector(ctx, s)
}

func (svc *service) Delete(ctx context.Context, actor user.User, s Sector) error {
	if !actor.IsAdmin() {
		return core.ErrForbidden
	}
	cnt, err := svc.repo.CountSubsectors(ctx, s.ID)
	if err != nil {
		return errors.Wrap(err, "counting subsectors")
	}
	if cnt > 0 {
		return core.NewValidationError(ErrHasSubsectors)
	}
	admins, err := svc.repo.SectorAdminIDs(ctx, s.ID)
	if err != nil {
		return errors.Wrap(err, "listing sector admins")
	}
	if err = svc.repo.DeleteSector(ctx, s.ID); err != nil {
		return errors.Wrap(err, "deleting sector")
	}
	// the sector's news went with it
	if err = core.InvalidateCache(ctx, svc.cache, core.UnifiedNewsCachePrefix); err != nil {
		svc.logger.Error("invalidating unified news cache", err)
	}
	// assignments are gone with the sector: settle the former admins' roles
	for _, id := range admins {
		if err = svc.settleRole(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Subsectors

func (svc *service) CreateSubsector(ctx context.Context, actor user.User, sectorID string, ns NewSector) (Subsector, error) {
	if _, err := svc.repo.GetSector(ctx, sectorID); err != nil {
		return Subsector{}, err
	}
	ok, err := svc.CanManageSector(ctx, actor, sectorID)
	if err != nil {
		return Subsector{}, err
	}
	if !ok {
		return Subsector{}, core.ErrForbidden
	}
	if err = svc.checkSubsectorName(ctx, sectorID, ns.Name, ""); err != nil {
		return Subsector{}, err
	}
	now := time.Now().UTC()
	sub := Subsector{
		SectorID:    sectorID,
		Name:        ns.Name,
		Description: ns.Description,
		IsActive:    ns.IsActive == nil || *ns.IsActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateSubsector(ctx, sub)
}

func (svc *service) QuerySubsectors(ctx context.Context, sectorID string) ([]Subsector, error) {
	return svc.repo.QuerySubsectors(ctx, sectorID)
}

func (svc *service) GetSubsector(ctx context.Context, id string) (Subsector, error) {
	return svc.repo.GetSubsector(ctx, id)
}

func (svc *service) UpdateSubsector(ctx context.Context, actor user.User, sub Subsector, us UpdateSector) (Subsector, error) {
	ok, err := svc.CanManageSubsector(ctx, actor, sub)
	if err != nil {
		return Subsector{}, err
	}
	if !ok {
		return Subsector{}, core.ErrForbidden
	}
	if us.Name != nil && *us.Name != sub.Name {
		if err = svc.checkSubsectorName(ctx, sub.SectorID, *us.Name, sub.ID); err != nil {
			return Subsector{}, err
		}
		sub.Name = *us.Name
	}
	if us.Description != nil {
		sub.Description = *us.Description
	}
	if us.IsActive != nil {
		sub.IsActive = *us.IsActive
	}
	sub.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateSubsector(ctx, sub)
}

func (svc *service) DeleteSubsector(ctx context.Context, actor user.User, sub Subsector) error {
	// only managers of the parent sector may delete a subsector
	ok, err := svc.CanManageSector(ctx, actor, sub.SectorID)
	if err != nil {
		return err
	}
	if !ok {
		return core.ErrForbidden
	}
	admins, err := svc.repo.SubsectorAdminIDs(ctx, sub.ID)
	if err != nil {
		return errors.Wrap(err, "listing subsector admins")
	}
	if err = svc.repo.DeleteSubsector(ctx, sub.ID); err != nil {
		return errors.Wrap(err, "deleting subsector")
	}
	for _, id := range admins {
		if err = svc.settleRole(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Admins

func (svc *service) listUsers(ctx context.Context, ids []string) ([]user.User, error) {
	users := make([]user.User, 0, len(ids))
	for _, id := range ids {
		usr, err := svc.usrSvc.GetByID(ctx, id)
		if err != nil {
			if errors.Cause(err) == user.ErrNotFound {
				continue
			}
			return nil, errors.Wrap(err, "finding user by ID")
		}
		users = append(users, usr)
	}
	return users, nil
}

func (svc *service) ListSectorAdmins(ctx context.Context, sectorID string) ([]user.User, error) {
	ids, err := svc.repo.SectorAdminIDs(ctx, sectorID)
	if err != nil {
		return nil, errors.Wrap(err, "listing sector admins")
	}
	return svc.listUsers(ctx, ids)
}

func (svc *service) getAdminCandidate(ctx context.Context, userID string) (user.User, error) {
	usr, err := svc.usrSvc.GetByID(ctx, userID)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return user.User{}, core.NewValidationError(user.ErrNotFound, core.FieldError{Field: "user_id", Error: user.ErrNotFound.Error()})
		}
		return user.User{}, errors.Wrap(err, "finding user by ID")
	}
	if !usr.IsActive {
		return user.User{}, core.NewValidationError(ErrInactiveAdminAccount, core.FieldError{Field: "user_id", Error: ErrInactiveAdminAccount.Error()})
	}
	return usr, nil
}

// AddSectorAdmin assigns userID to the sector and promotes them to sector admin.
func (svc *service) AddSectorAdmin(ctx context.Context, actor user.User, sectorID, userID string) error {
	if !actor.IsAdmin() {
		return core.ErrForbidden
	}
	usr, err := svc.getAdminCandidate(ctx, userID)
	if err != nil {
		return err
	}
	if err = svc.repo.AddSectorAdmin(ctx, sectorID, usr.ID); err != nil {
		return errors.Wrap(err, "adding sector admin")
	}
	if usr.IsAdmin() {
		return nil
	}
	if _, err = svc.usrSvc.SetRole(ctx, usr, user.RoleSectorAdmin); err != nil {
		return errors.Wrap(err, "promoting user")
	}
	return nil
}

func (svc *service) RemoveSectorAdmin(ctx context.Context, actor user.User, sectorID, userID string) error {
	if !actor.IsAdmin() {
		return core.ErrForbidden
	}
	if err := svc.repo.RemoveSectorAdmin(ctx, sectorID, userID); err != nil {
		return errors.Wrap(err, "removing sector admin")
	}
	return svc.settleRole(ctx, userID)
}

func (svc *service) ListSubsectorAdmins(ctx context.Context, sub Subsector) ([]user.User, error) {
	ids, err := svc.repo.SubsectorAdminIDs(ctx, sub.ID)
	if err != nil {
		return nil, errors.Wrap(err, "listing subsector admins")
	}
	return svc.listUsers(ctx, ids)
}

// AddSubsectorAdmin assigns userID to the subsector; plain users are promoted to subsector admin.
func (svc *service) AddSubsectorAdmin(ctx context.Context, actor user.User, sub Subsector, userID string) error {
	ok, err := svc.CanManageSector(ctx, actor, sub.SectorID)
	if err != nil {
		return err
	}
	if !ok {
		return core.ErrForbidden
	}
	usr, err := svc.getAdminCandidate(ctx, userID)
	if err != nil {
		return err
	}
	if err = svc.repo.AddSubsectorAdmin(ctx, sub.ID, usr.ID); err != nil {
		return errors.Wrap(err, "adding subsector admin")
	}
	if usr.Role != user.RoleUser {
		return nil
	}
	if _, err = svc.usrSvc.SetRole(ctx, usr, user.RoleSubsectorAdmin); err != nil {
		return errors.Wrap(err, "promoting user")
	}
	return nil
}

func (svc *service) RemoveSubsectorAdmin(ctx context.Context, actor user.User, sub Subsector, userID string) error {
	ok, err := svc.CanManageSector(ctx, actor, sub.SectorID)
	if err != nil {
		return err
	}
	if !ok {
		return core.ErrForbidden
	}
	if err = svc.repo.RemoveSubsectorAdmin(ctx, sub.ID, userID); err != nil {
		return errors.Wrap(err, "removing subsector admin")
	}
	return svc.settleRole(ctx, userID)
}

// settleRole demotes a sector/subsector admin whose assignments no longer back their role.
func (svc *service) settleRole(ctx context.Context, userID string) error {
	usr, err := svc.usrSvc.GetByID(ctx, userID)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return nil
		}
		return errors.Wrap(err, "finding user by ID")
	}
	if !(usr.IsSectorAdmin() || usr.IsSubsectorAdmin()) {
		return nil
	}
	scope, err := svc.repo.GetScope(ctx, usr.ID)
	if err != nil {
		return errors.Wrap(err, "getting admin scope")
	}

	role := user.RoleUser
	switch {
	case len(scope.SectorIDs) > 0:
		role = user.RoleSectorAdmin
	case len(scope.SubsectorIDs) > 0:
		role = user.RoleSubsectorAdmin
	}
	if role == usr.Role {
		return nil
	}
	if _, err = svc.usrSvc.SetRole(ctx, usr, role); err != nil {
		return errors.Wrap(err, "settling user role")
	}
	return nil
}

package user

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/cresol/portal/core"
)

// Roles
const (
	RoleAdmin          = "admin"
	RoleSectorAdmin    = "sector_admin"
	RoleSubsectorAdmin = "subsector_admin"
	RoleUser           = "user"
)

var (
	AllRoles = []string{RoleAdmin, RoleSectorAdmin, RoleSubsectorAdmin, RoleUser}

	rolePriorities = map[string]int{
		RoleAdmin:          30,
		RoleSectorAdmin:    20,
		RoleSubsectorAdmin: 15,
		RoleUser:           1,
	}

	Roles = []Role{
		{Name: "Usuário", Value: RoleUser},
		{Name: "Administrador de Subsetor", Value: RoleSubsectorAdmin},
		{Name: "Administrador de Setor", Value: RoleSectorAdmin},
		{Name: "Administrador", Value: RoleAdmin},
	}
)

func RolePriority(role string) int {
	return rolePriorities[role]
}

func IsValidRole(role string) bool {
	_, ok := rolePriorities[role]
	return ok
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// User is a portal profile.
type User struct {
	ID           string    `json:"id"`
	FullName     string    `json:"full_name"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	SectorID     *string   `json:"sector_id"`
	SubsectorID  *string   `json:"subsector_id"`
	PositionID   *string   `json:"position_id"`
	AvatarURL    string    `json:"avatar_url"`
	IsActive     bool      `json:"is_active"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u User) IsSectorAdmin() bool {
	return u.Role == RoleSectorAdmin
}

func (u User) IsSubsectorAdmin() bool {
	return u.Role == RoleSubsectorAdmin
}

// CanGrant reports whether u may give `role` to someone: nobody grants above their own role.
func (u User) CanGrant(role string) bool {
	return RolePriority(role) <= RolePriority(u.Role)
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	FullName        string  `json:"full_name" validate:"required,max=150"`
	Email           string  `json:"email" validate:"required,email,max=254"`
	Role            string  `json:"role" validate:"omitempty,role"`
	SectorID        *string `json:"sector_id" validate:"omitempty,uuid"`
	SubsectorID     *string `json:"subsector_id" validate:"omitempty,uuid"`
	PositionID      *string `json:"position_id" validate:"omitempty,uuid"`
	AvatarURL       string  `json:"avatar_url" validate:"omitempty,link"`
	Password        string  `json:"password" validate:"required"`
	PasswordConfirm string  `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (nu *NewUser) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	nu.FullName = core.CleanString(nu.FullName)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	if nu.Role == "" {
		nu.Role = RoleUser
	}

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckEmailUniqueness(ctx, nu.Email)
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	FullName        *string `json:"full_name" validate:"omitempty,max=150"`
	Email           *string `json:"email" validate:"omitempty,email,max=254"`
	Role            *string `json:"role" validate:"omitempty,role"`
	SectorID        *string `json:"sector_id" validate:"omitempty,uuid"`
	SubsectorID     *string `json:"subsector_id" validate:"omitempty,uuid"`
	PositionID      *string `json:"position_id" validate:"omitempty,uuid"`
	AvatarURL       *string `json:"avatar_url" validate:"omitempty,link"`
	IsActive        *bool   `json:"is_active"`
	Password        string  `json:"password" validate:"omitempty"`
	PasswordConfirm string  `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`

	// set by Validate, used by the password policy
	origName  string
	origEmail string
}

func (uu *UpdateUser) Validate(ctx context.Context, origUsr User, validate *validator.Validate, svc Service) error {
	if uu.FullName != nil {
		name := core.CleanString(*uu.FullName)
		uu.FullName = &name
	}
	if uu.Email != nil {
		email := core.CleanString(*uu.Email, true /* lower */)
		uu.Email = &email
	}
	uu.origName = origUsr.FullName
	uu.origEmail = origUsr.Email

	if err := validate.Struct(uu); err != nil {
		return err
	}
	if uu.Email != nil && *uu.Email != origUsr.Email {
		return svc.CheckEmailUniqueness(ctx, *uu.Email, origUsr)
	}
	return nil
}

// ChangesRestrictedFields reports whether the update touches fields only admins may change.
func (uu UpdateUser) ChangesRestrictedFields() bool {
	return uu.Role != nil || uu.IsActive != nil || uu.Email != nil || uu.SectorID != nil || uu.SubsectorID != nil
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate(validate *validator.Validate) error { return validate.Struct(rp) }

type QueryFilter struct {
	Search      string    `query:"search"`
	Roles       []string  `query:"role"`
	IsActive    *bool     `query:"is_active"`
	SectorID    string    `query:"sector_id"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Roles == nil && qf.IsActive == nil && qf.SectorID == "" &&
		qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.SectorID = core.CleanString(qf.SectorID)
}

// GetFilter selects a single User; the first non-empty field wins.
type GetFilter struct {
	ID    string
	Email string
}

// OrderingFields are the columns users can be ordered by.
var OrderingFields = []string{"full_name", "email", "role", "is_active", "created_at", "updated_at", "last_login"}

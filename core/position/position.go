package position

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/cresol/portal/core"
	"github.com/cresol/portal/core/user"
)

var (
	// errors
	ErrNotFound   = errors.New("position not found")
	ErrNameExists = errors.New("a position with this name already exists")
	ErrInUse      = errors.New("position is assigned to users")
)

// Position is a job title users can hold.
type Position struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type NewPosition struct {
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active"`
}

func (np *NewPosition) Validate(validate *validator.Validate) error {
	np.Name = core.CleanString(np.Name)
	np.Description = core.CleanString(np.Description)
	return validate.Struct(np)
}

type UpdatePosition struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=120"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

func (up *UpdatePosition) Validate(validate *validator.Validate) error {
	if up.Name != nil {
		name := core.CleanString(*up.Name)
		up.Name = &name
	}
	return validate.Struct(up)
}

type Repository interface {
	// CheckName returns ErrNameExists when another position (case-insensitively) has the name.
	CheckName(ctx context.Context, name, excludeID string) error
	CreatePosition(ctx context.Context, p Position) (Position, error)
	// QueryPositions returns positions ordered by name.
	QueryPositions(ctx context.Context, activeOnly bool) ([]Position, error)
	GetPosition(ctx context.Context, id string) (Position, error)
	UpdatePosition(ctx context.Context, p Position) (Position, error)
	// CountHolders counts the profiles holding the position.
	CountHolders(ctx context.Context, id string) (int, error)
	DeletePosition(ctx context.Context, id string) error
}

type (
	Service interface {
		Create(ctx context.Context, actor user.User, np NewPosition) (Position, error)
		Query(ctx context.Context, actor user.User) ([]Position, error)
		GetByID(ctx context.Context, id string) (Position, error)
		Update(ctx context.Context, actor user.User, p Position, up UpdatePosition) (Position, error)
		Delete(ctx context.Context, actor user.User, p Position) error
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) checkName(ctx context.Context, name, excludeID string) error {
	if err := svc.repo.CheckName(ctx, name, excludeID); err != nil {
		if errors.Cause(err) == ErrNameExists {
			return core.NewValidationError(ErrNameExists, core.FieldError{Field: "name", Error: ErrNameExists.Error()})
		}
		return errors.Wrap(err, "checking position name")
	}
	return nil
}

func (svc *service) Create(ctx context.Context, actor user.User, np NewPosition) (Position, error) {
	if !actor.IsAdmin() {
		return Position{}, core.ErrForbidden
	}
	if err := svc.checkName(ctx, np.Name, ""); err != nil {
		return Position{}, err
	}
	now := time.Now().UTC()
	return svc.repo.CreatePosition(ctx, Position{
		Name:        np.Name,
		Description: np.Description,
		IsActive:    np.IsActive == nil || *np.IsActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

// Query lists positions; only admins see inactive ones.
func (svc *service) Query(ctx context.Context, actor user.User) ([]Position, error) {
	return svc.repo.QueryPositions(ctx, !actor.IsAdmin())
}

func (svc *service) GetByID(ctx context.Context, id string) (Position, error) {
	return svc.repo.GetPosition(ctx, id)
}

func (svc *service) Update(ctx context.Context, actor user.User, p Position, up UpdatePosition) (Position, error) {
	if !actor.IsAdmin() {
		return Position{}, core.ErrForbidden
	}
	if up.Name != nil && *up.Name != p.Name {
		if err := svc.checkName(ctx, *up.Name, p.ID); err != nil {
			return Position{}, err
		}
		p.Name = *up.Name
	}
	if up.Description != nil {
		p.Description = core.CleanString(*up.Description)
	}
	if up.IsActive != nil {
		p.IsActive = *up.IsActive
	}
	p.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdatePosition(ctx, p)
}

func (svc *service) Delete(ctx context.Context, actor user.User, p Position) error {
	if !actor.IsAdmin() {
		return core.ErrForbidden
	}
	n, err := svc.repo.CountHolders(ctx, p.ID)
	if err != nil {
		return errors.Wrap(err, "counting position holders")
	}
	if n > 0 {
		return core.NewValidationError(ErrInUse)
	}
	return svc.repo.DeletePosition(ctx, p.ID)
}

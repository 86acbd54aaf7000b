package systemlink

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/cresol/portal/core"
	"github.com/cresol/portal/core/user"
)

var ErrNotFound = errors.New("system link not found")

// SystemLink points to an internal or external system from the portal's launcher.
type SystemLink struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	URL         string    `json:"url"`
	Icon        string    `json:"icon"`
	Description string    `json:"description"`
	OrderIndex  int       `json:"order_index"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type NewSystemLink struct {
	Name        string `json:"name" validate:"required,max=120"`
	URL         string `json:"url" validate:"required,httpurl"`
	Icon        string `json:"icon" validate:"max=60"`
	Description string `json:"description"`
	OrderIndex  *int   `json:"order_index" validate:"omitempty,min=0"`
	IsActive    *bool  `json:"is_active"`
}

func (nl *NewSystemLink) Validate(validate *validator.Validate) error {
	nl.Name = core.CleanString(nl.Name)
	nl.URL = core.CleanString(nl.URL)
	nl.Icon = core.CleanString(nl.Icon)
	nl.Description = core.CleanString(nl.Description)
	return validate.Struct(nl)
}

type UpdateSystemLink struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=120"`
	URL         *string `json:"url" validate:"omitempty,httpurl"`
	Icon        *string `json:"icon" validate:"omitempty,max=60"`
	Description *string `json:"description"`
	OrderIndex  *int    `json:"order_index" validate:"omitempty,min=0"`
	IsActive    *bool   `json:"is_active"`
}

func (ul *UpdateSystemLink) Validate(validate *validator.Validate) error {
	if ul.Name != nil {
		name := core.CleanString(*ul.Name)
		ul.Name = &name
	}
	if ul.URL != nil {
		u := core.CleanString(*ul.URL)
		ul.URL = &u
	}
	return validate.Struct(ul)
}

type Repository interface {
	core.OrderIndexStore

	CreateLink(ctx context.Context, l SystemLink) (SystemLink, error)
	// QueryLinks returns links ordered by order_index.
	QueryLinks(ctx context.Context, activeOnly bool) ([]SystemLink, error)
	GetLink(ctx context.Context, id string) (SystemLink, error)
	UpdateLink(ctx context.Context, l SystemLink) (SystemLink, error)
	DeleteLink(ctx context.Context, id string) error
}

type (
	Service interface {
		Create(ctx context.Context, actor user.User, nl NewSystemLink) (SystemLink, error)
		Query(ctx context.Context, actor user.User) ([]SystemLink, error)
		GetByID(ctx context.Context, id string) (SystemLink, error)
		Update(ctx context.Context, actor user.User, l SystemLink, ul UpdateSystemLink) (SystemLink, error)
		Delete(ctx context.Context, actor user.User, l SystemLink) error
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Create(ctx context.Context, actor user.User, nl NewSystemLink) (SystemLink, error) {
	if !actor.IsAdmin() {
		return SystemLink{}, core.ErrForbidden
	}
	now := time.Now().UTC()
	l := SystemLink{
		Name:        nl.Name,
		URL:         nl.URL,
		Icon:        nl.Icon,
		Description: nl.Description,
		IsActive:    nl.IsActive == nil || *nl.IsActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var saved SystemLink
	_, err := core.SaveWithOrderIndex(ctx, svc.repo, nl.OrderIndex, func(idx int) error {
		l.OrderIndex = idx
		var err error
		saved, err = svc.repo.CreateLink(ctx, l)
		return err
	})
	if err != nil {
		return SystemLink{}, errors.Wrap(err, "creating system link")
	}
	return saved, nil
}

// Query lists links; only admins see inactive ones.
func (svc *service) Query(ctx context.Context, actor user.User) ([]SystemLink, error) {
	return svc.repo.QueryLinks(ctx, !actor.IsAdmin())
}

func (svc *service) GetByID(ctx context.Context, id string) (SystemLink, error) {
	return svc.repo.GetLink(ctx, id)
}

func (svc *service) Update(ctx context.Context, actor user.User, l SystemLink, ul UpdateSystemLink) (SystemLink, error) {
	if !actor.IsAdmin() {
		return SystemLink{}, core.ErrForbidden
	}
	if ul.Name != nil {
		l.Name = *ul.Name
	}
	if ul.URL != nil {
		l.URL = *ul.URL
	}
	if ul.Icon != nil {
		l.Icon = core.CleanString(*ul.Icon)
	}
	if ul.Description != nil {
		l.Description = core.CleanString(*ul.Description)
	}
	if ul.IsActive != nil {
		l.IsActive = *ul.IsActive
	}
	l.UpdatedAt = time.Now().UTC()

	idx := l.OrderIndex
	if ul.OrderIndex != nil {
		idx = *ul.OrderIndex
	}
	var saved SystemLink
	_, err := core.SaveWithOrderIndex(ctx, svc.repo, &idx, func(idx int) error {
		l.OrderIndex = idx
		var err error
		saved, err = svc.repo.UpdateLink(ctx, l)
		return err
	})
	if err != nil {
		return SystemLink{}, errors.Wrap(err, "updating system link")
	}
	return saved, nil
}

func (svc *service) Delete(ctx context.Context, actor user.User, l SystemLink) error {
	if !actor.IsAdmin() {
		return core.ErrForbidden
	}
	return svc.repo.DeleteLink(ctx, l.ID)
}

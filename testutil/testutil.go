// Package testutil holds fixtures shared by the service and API tests.
package testutil

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/cresol/portal/core"
	"github.com/cresol/portal/core/sector"
	"github.com/cresol/portal/core/user"
	logsvc "github.com/cresol/portal/services/logger"
)

// NewLogger returns a logger that reports nothing and prints nothing.
func NewLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
}

// NewValidator returns a validator with every custom tag & translation registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate, translator
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, pwd, role string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	if role == "" {
		role = user.RoleUser
	}
	usr := user.User{
		FullName:  name,
		Email:     email,
		Role:      role,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateSector(t *testing.T, repo sector.Repository, name string) sector.Sector {
	t.Helper()
	now := time.Now().UTC()
	s, err := repo.CreateSector(context.Background(), sector.Sector{
		Name:      name,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateSector() failed: %v", err)
	}
	return s
}

func CreateSubsector(t *testing.T, repo sector.Repository, sectorID, name string) sector.Subsector {
	t.Helper()
	now := time.Now().UTC()
	sub, err := repo.CreateSubsector(context.Background(), sector.Subsector{
		SectorID:  sectorID,
		Name:      name,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateSubsector() failed: %v", err)
	}
	return sub
}

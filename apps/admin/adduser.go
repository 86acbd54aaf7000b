package main

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/cresol/portal/core"
	"github.com/cresol/portal/core/user"
)

// addUser creates a user, or reactivates and re-keys the one owning `email`.
// An existing role is only ever raised to admin, never lowered.
func (cli *commandLine) addUser(name, email, pwd string, isAdmin bool) error {
	ctx := context.Background()
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Email: email})
	exists := err == nil
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		usr = user.User{Email: email, Role: user.RoleUser}
	}

	now := time.Now().UTC()
	usr.FullName = name
	usr.IsActive = true
	usr.UpdatedAt = now
	if isAdmin {
		usr.Role = user.RoleAdmin
	}
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}

	if exists {
		_, err = cli.usrRepo.UpdateUser(ctx, usr)
		return err
	}
	usr.CreatedAt = now
	_, err = cli.usrRepo.CreateUser(ctx, usr)
	return err
}

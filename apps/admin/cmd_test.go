package main

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cresol/portal/core/user"
	inmemdb "github.com/cresol/portal/storage/database/inmem"
	"github.com/cresol/portal/testutil"
)

var usrRepo user.Repository

func setup(t *testing.T) *commandLine {
	t.Helper()
	usrRepo = inmemdb.NewUserRepository(inmemdb.Open())
	return &commandLine{usrRepo: usrRepo}
}

func mockPassword(t *testing.T, pwd string) {
	t.Helper()
	orig := readPasswordFunc
	readPasswordFunc = func(fd int) ([]byte, error) { return []byte(pwd), nil }
	t.Cleanup(func() { readPasswordFunc = orig })
}

type cliTest struct {
	name       string
	args       []string // without program name
	pwd        string
	wantErr    error
	wantErrStr string
}

func (tt cliTest) check(t *testing.T, err error) {
	t.Helper()
	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, err)
	case tt.wantErrStr != "":
		if assert.Error(t, err) {
			assert.Equal(t, tt.wantErrStr, err.Error())
		}
	default:
		assert.NoError(t, err)
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	var gotCmd string
	orig := gooseRunFunc
	t.Cleanup(func() { gooseRunFunc = orig })
	gooseRunFunc = func(db *sql.DB, command string, args ...string) error {
		gotCmd = command
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			gotCmd = ""
			err := cli.run(append([]string{"admin"}, tt.args...))
			tt.check(t, err)
			if len(tt.args) > 1 {
				assert.Equal(t, tt.args[1], gotCmd)
			}
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()

	existing := testutil.CreateUser(t, usrRepo, "Ana Souza", "ana@cresol.com.br", "Old.pwd42", user.RoleSectorAdmin, false)

	tests := []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "missing email", args: []string{"adduser", "-name", "Bruno"}, pwd: "x", wantErr: errHelp},
		{name: "missing name", args: []string{"adduser", "-email", "bruno@cresol.com.br"}, pwd: "x", wantErr: errHelp},
		{name: "empty password", args: []string{"adduser", "-name", "Bruno", "-email", "bruno@cresol.com.br"}, wantErr: errHelp},
		{name: "create user", args: []string{"adduser", "-name", " Bruno Lima ", "-email", "Bruno@Cresol.com.br"}, pwd: "New.pwd42"},
		{name: "create admin", args: []string{"adduser", "-name", "Carla", "-email", "carla@cresol.com.br", "-admin"}, pwd: "New.pwd42"},
		{name: "update existing", args: []string{"adduser", "-name", "Ana S.", "-email", existing.Email}, pwd: "New.pwd42"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			mockPassword(t, tt.pwd)
			tt.check(t, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}

	bruno, err := usrRepo.GetUser(ctx, user.GetFilter{Email: "bruno@cresol.com.br"})
	require.NoError(t, err)
	assert.Equal(t, "Bruno Lima", bruno.FullName)
	assert.Equal(t, user.RoleUser, bruno.Role)
	assert.True(t, bruno.IsActive)
	assert.NoError(t, bruno.CheckPassword("New.pwd42"))
	assert.False(t, bruno.CreatedAt.IsZero())

	carla, err := usrRepo.GetUser(ctx, user.GetFilter{Email: "carla@cresol.com.br"})
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, carla.Role)

	ana, err := usrRepo.GetUser(ctx, user.GetFilter{ID: existing.ID})
	require.NoError(t, err)
	assert.Equal(t, "Ana S.", ana.FullName)
	assert.Equal(t, user.RoleSectorAdmin, ana.Role, "role is never lowered")
	assert.True(t, ana.IsActive)
	assert.NoError(t, ana.CheckPassword("New.pwd42"))
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "Ana Souza", "ana@cresol.com.br", "Old.pwd42", "", true)

	tests := []cliTest{
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "lol@cresol.com.br"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-email", "lol@cresol.com.br"}, pwd: "lol", wantErr: user.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "-email", "ANA@cresol.com.br"}, pwd: "New.pwd42"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			mockPassword(t, tt.pwd)
			tt.check(t, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}

	refreshed, err := usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
	require.NoError(t, err)
	assert.Error(t, refreshed.CheckPassword("Old.pwd42"))
	assert.NoError(t, refreshed.CheckPassword("New.pwd42"))
}

package echoapi_test

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cresol/portal/core/user"
	"github.com/cresol/portal/testutil"
)

func Test_userApi_query(t *testing.T) {
	env := setup(t)

	path := func(search, ordering string, isActive *bool, roles ...string) string {
		v := make(url.Values)
		if search != "" {
			v.Add("search", search)
		}
		if ordering != "" {
			v.Add("ordering", ordering)
		}
		if isActive != nil {
			v.Add("is_active", strconv.FormatBool(*isActive))
		}
		for _, r := range roles {
			v.Add("role", r)
		}
		return "/v1/users?" + v.Encode()
	}
	bPtr := func(b bool) *bool { return &b }

	now := time.Now()
	repo := env.repos.User
	ana := testutil.CreateUser(t, repo, "Ana Souza", "ana@cresol.test", "", user.RoleUser, true, now.Add(1*time.Hour))
	bruno := testutil.CreateUser(t, repo, "Bruno Lima", "bruno@cresol.test", "", user.RoleSectorAdmin, true, now.Add(2*time.Hour))
	carla := testutil.CreateUser(t, repo, "Carla Dias", "carla@cresol.test", "", user.RoleSubsectorAdmin, true, now.Add(3*time.Hour))
	admin := testutil.CreateUser(t, repo, "Admin", "admin@cresol.test", "", user.RoleAdmin, true, now.Add(4*time.Hour))
	naughty := testutil.CreateUser(t, repo, "N Dog", "ndog@cresol.test", "", user.RoleUser, false, now.Add(5*time.Hour)) // 😂

	adminToken := getToken(t, env.conf, admin)
	empty := marchallList(t, []interface{}{}...)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/users", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", path: "/v1/users", token: getToken(t, env.conf, bruno), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "Get all", path: "/v1/users", token: adminToken, wantData: marchallList(t, naughty, admin, carla, bruno, ana)},
		// filtering
		{name: "search (unknown)", path: path("lol", "", nil), token: adminToken, wantData: empty},
		{name: "search=LIM", path: path("LIM", "", nil), token: adminToken, wantData: marchallList(t, bruno)},
		{name: "search by email", path: path("carla@", "", nil), token: adminToken, wantData: marchallList(t, carla)},
		{name: "role (unknown)", path: path("", "", nil, "lol"), token: adminToken, wantData: empty},
		{name: "role=user", path: path("", "", nil, user.RoleUser), token: adminToken, wantData: marchallList(t, naughty, ana)},
		{
			name: "role=sector_admin,subsector_admin", path: path("", "", nil, user.RoleSectorAdmin, user.RoleSubsectorAdmin),
			token: adminToken, wantData: marchallList(t, carla, bruno),
		},
		{name: "is_active=false", path: path("", "", bPtr(false)), token: adminToken, wantData: marchallList(t, naughty)},
		{name: "all combo", path: path("a", "", bPtr(true), user.RoleUser), token: adminToken, wantData: marchallList(t, ana)},
		// ordering
		{name: "order by created_at", path: path("", "created_at", nil), token: adminToken, wantData: marchallList(t, ana, bruno, carla, admin, naughty)},
		{name: "order by full_name", path: path("", "full_name", nil), token: adminToken, wantData: marchallList(t, admin, ana, bruno, carla, naughty)},
		{name: "order by is_active,-full_name", path: path("", "is_active,-full_name", nil), token: adminToken, wantData: marchallList(t, naughty, carla, bruno, ana, admin)},
		{name: "unknown ordering field is ignored", path: path("", "password_hash", nil), token: adminToken, wantData: marchallList(t, naughty, admin, carla, bruno, ana)},
	}
	for i := range tests {
		tests[i].method = http.MethodGet
	}
	runTests(t, env, tests)
}

func Test_userApi_queryRoles(t *testing.T) {
	env := setup(t)
	admin := env.createUser(t, "Admin", "admin@cresol.test", user.RoleAdmin, true)

	runTests(t, env, []httpTest{
		{name: "roles", method: http.MethodGet, path: "/v1/users/roles", token: getToken(t, env.conf, admin), wantData: marchallObj(t, user.Roles)},
	})
}

func Test_userApi_create(t *testing.T) {
	env := setup(t)
	admin := env.createUser(t, "Admin", "admin@cresol.test", user.RoleAdmin, true)
	ana := env.createUser(t, "Ana Souza", "ana@cresol.test", user.RoleUser, true)
	adminToken := getToken(t, env.conf, admin)

	reqMsg := "this field is required"
	tests := []httpTest{
		{name: "Admin required", token: getToken(t, env.conf, ana), wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})},
		{
			name: "required fields", token: adminToken, wantCode: http.StatusBadRequest,
			body:     marchallObj(t, map[string]string{}),
			wantData: marchallObj(t, map[string]string{
				"full_name": reqMsg, "email": reqMsg, "password": "password must contain at least 8 characters", "password_confirm": reqMsg,
			}),
		},
		{
			name: "invalid role", token: adminToken, wantCode: http.StatusBadRequest,
			body: marchallObj(t, user.NewUser{
				FullName: "Bruno Lima", Email: "bruno@cresol.test", Role: "lol", Password: "B3st!Pass", PasswordConfirm: "B3st!Pass",
			}),
			wantData: marchallObj(t, map[string]string{"role": "invalid role"}),
		},
		{
			name: "email taken", token: adminToken, wantCode: http.StatusBadRequest,
			body: marchallObj(t, user.NewUser{
				FullName: "Ana Again", Email: "ANA@cresol.test", Password: "B3st!Pass", PasswordConfirm: "B3st!Pass",
			}),
			wantData: marchallObj(t, map[string]string{"email": user.ErrEmailExists.Error()}),
		},
		{
			name: "password similar to email", token: adminToken, wantCode: http.StatusBadRequest,
			body: marchallObj(t, user.NewUser{
				FullName: "Bruno Lima", Email: "brunolima@cresol.test", Password: "Brunolima1!", PasswordConfirm: "Brunolima1!",
			}),
			wantData: marchallObj(t, map[string]string{"password": "password cannot be similar to user attributes"}),
		},
		{
			name: "created", token: adminToken, wantCode: http.StatusCreated,
			body: marchallObj(t, user.NewUser{
				FullName: "  Bruno Lima ", Email: "Bruno@Cresol.test", Role: user.RoleSectorAdmin, Password: "B3st!Pass", PasswordConfirm: "B3st!Pass",
			}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			env.serve(req, rec)

			if tt.wantCode == http.StatusCreated {
				require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
				var usr user.User
				unmarshal(t, rec, &usr)
				assert.NotEmpty(t, usr.ID)
				assert.Equal(t, "Bruno Lima", usr.FullName)
				assert.Equal(t, "bruno@cresol.test", usr.Email)
				assert.Equal(t, user.RoleSectorAdmin, usr.Role)
				assert.True(t, usr.IsActive)

				saved, err := env.repos.User.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
				require.NoError(t, err)
				assert.NoError(t, saved.CheckPassword("B3st!Pass"))
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_update(t *testing.T) {
	env := setup(t)
	admin := env.createUser(t, "Admin", "admin@cresol.test", user.RoleAdmin, true)
	ana := env.createUser(t, "Ana Souza", "ana@cresol.test", user.RoleUser, true)
	bruno := env.createUser(t, "Bruno Lima", "bruno@cresol.test", user.RoleUser, true)
	adminToken := getToken(t, env.conf, admin)
	anaToken := getToken(t, env.conf, ana)

	sPtr := func(s string) *string { return &s }
	bPtr := func(b bool) *bool { return &b }

	tests := []httpTest{
		{name: "Auth required", path: "/v1/users/" + ana.ID, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "other profiles are hidden from users", path: "/v1/users/" + bruno.ID, token: anaToken,
			body: marchallObj(t, user.UpdateUser{FullName: sPtr("Lol")}), wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{
			name: "users cannot change their role", path: "/v1/users/" + ana.ID, token: anaToken,
			body: marchallObj(t, map[string]interface{}{"role": user.RoleAdmin}), wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "users cannot reactivate themselves", path: "/v1/users/" + ana.ID, token: anaToken,
			body: marchallObj(t, map[string]interface{}{"is_active": true}), wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "users update their own name", path: "/v1/users/" + ana.ID, token: anaToken,
			body: marchallObj(t, map[string]interface{}{"full_name": " Ana S. Souza "}),
		},
		{
			name: "admin: unknown user", path: "/v1/users/e2c6cb5a-3f35-4c4d-8ab6-11a5f3d2a0b9", token: adminToken,
			body: marchallObj(t, user.UpdateUser{FullName: sPtr("Lol")}), wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{
			name: "admin: email taken", path: "/v1/users/" + bruno.ID, token: adminToken,
			body: marchallObj(t, map[string]interface{}{"email": ana.Email}), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": user.ErrEmailExists.Error()}),
		},
		{
			name: "admin: deactivate & promote", path: "/v1/users/" + bruno.ID, token: adminToken,
			body: marchallObj(t, map[string]interface{}{"is_active": bPtr(false), "role": user.RoleSectorAdmin}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPut
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			env.serve(req, rec)
			if tt.wantCode != http.StatusOK {
				checkCodeAndData(t, tt, rec)
				return
			}
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		})
	}

	ctx := context.Background()
	updated, err := env.repos.User.GetUser(ctx, user.GetFilter{ID: ana.ID})
	require.NoError(t, err)
	assert.Equal(t, "Ana S. Souza", updated.FullName)
	assert.Equal(t, user.RoleUser, updated.Role)

	updated, err = env.repos.User.GetUser(ctx, user.GetFilter{ID: bruno.ID})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.Equal(t, user.RoleSectorAdmin, updated.Role)
}

func Test_userApi_destroy(t *testing.T) {
	env := setup(t)
	admin := env.createUser(t, "Admin", "admin@cresol.test", user.RoleAdmin, true)
	ana := env.createUser(t, "Ana Souza", "ana@cresol.test", user.RoleUser, true)
	bruno := env.createUser(t, "Bruno Lima", "bruno@cresol.test", user.RoleUser, true)
	carla := env.createUser(t, "Carla Dias", "carla@cresol.test", user.RoleUser, true)
	adminToken := getToken(t, env.conf, admin)

	tests := []httpTest{
		{name: "Admin required", path: "/v1/users/" + ana.ID, token: getToken(t, env.conf, ana), wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})},
		{name: "cannot delete self", path: "/v1/users/" + admin.ID, token: adminToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: user.ErrSelfDelete.Error()})},
		{name: "cannot delete self (bulk)", path: "/v1/users?id=" + ana.ID + "&id=" + admin.ID, token: adminToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: user.ErrSelfDelete.Error()})},
		{name: "deleted", path: "/v1/users/" + ana.ID, token: adminToken, wantCode: http.StatusNoContent},
		{name: "already deleted", path: "/v1/users/" + ana.ID, token: adminToken, wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})},
		{name: "bulk deleted", path: "/v1/users?id=" + bruno.ID + "&id=" + carla.ID, token: adminToken, wantCode: http.StatusNoContent},
	}
	for i := range tests {
		tests[i].method = http.MethodDelete
	}
	runTests(t, env, tests)

	users, err := env.repos.User.QueryUsers(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []user.User{admin}, users)
}

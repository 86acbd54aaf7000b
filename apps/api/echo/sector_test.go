package echoapi_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cresol/portal/core/sector"
	"github.com/cresol/portal/core/user"
	"github.com/cresol/portal/testutil"
)

func Test_sectorApi_crud(t *testing.T) {
	env := setup(t)
	admin := env.createUser(t, "Admin", "admin@cresol.test", user.RoleAdmin, true)
	ana := env.createUser(t, "Ana Souza", "ana@cresol.test", user.RoleUser, true)
	adminToken := getToken(t, env.conf, admin)
	anaToken := getToken(t, env.conf, ana)

	rh := env.createSector(t, "RH")
	ti := env.createSector(t, "TI")
	testutil.CreateSubsector(t, env.repos.Sector, ti.ID, "Infra")

	tests := []httpTest{
		{name: "list", method: http.MethodGet, path: "/v1/sectors", token: anaToken, wantData: marchallList(t, rh, ti)},
		{name: "list: search", method: http.MethodGet, path: "/v1/sectors?search=t", token: anaToken, wantData: marchallList(t, ti)},
		{name: "retrieve", method: http.MethodGet, path: "/v1/sectors/" + rh.ID, token: anaToken, wantData: marchallObj(t, rh)},
		{
			name: "retrieve: invalid id", method: http.MethodGet, path: "/v1/sectors/lol", token: anaToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{
			name: "create: admin required", method: http.MethodPost, path: "/v1/sectors", token: anaToken,
			body: marchallObj(t, sector.NewSector{Name: "Jurídico"}), wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "create: name required", method: http.MethodPost, path: "/v1/sectors", token: adminToken,
			body: marchallObj(t, sector.NewSector{Name: "  "}), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"name": "this field is required"}),
		},
		{
			name: "create: name taken (case insensitive)", method: http.MethodPost, path: "/v1/sectors", token: adminToken,
			body: marchallObj(t, sector.NewSector{Name: "ti"}), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"name": sector.ErrNameExists.Error()}),
		},
		{
			name: "create", method: http.MethodPost, path: "/v1/sectors", token: adminToken,
			body: marchallObj(t, sector.NewSector{Name: "Jurídico"}), wantCode: http.StatusCreated,
		},
		{
			name: "update: managers only", method: http.MethodPut, path: "/v1/sectors/" + rh.ID, token: anaToken,
			body: marchallObj(t, map[string]string{"description": "lol"}), wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "update: name taken", method: http.MethodPut, path: "/v1/sectors/" + rh.ID, token: adminToken,
			body: marchallObj(t, map[string]string{"name": "TI"}), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"name": sector.ErrNameExists.Error()}),
		},
		{
			name: "update", method: http.MethodPut, path: "/v1/sectors/" + rh.ID, token: adminToken,
			body: marchallObj(t, map[string]string{"name": "Recursos Humanos"}),
		},
		{
			name: "delete: still has subsectors", method: http.MethodDelete, path: "/v1/sectors/" + ti.ID, token: adminToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: sector.ErrHasSubsectors.Error()}),
		},
		{name: "delete: admin required", method: http.MethodDelete, path: "/v1/sectors/" + rh.ID, token: anaToken, wantCode: http.StatusForbidden},
		{name: "delete", method: http.MethodDelete, path: "/v1/sectors/" + rh.ID, token: adminToken, wantCode: http.StatusNoContent},
		{name: "deleted", method: http.MethodGet, path: "/v1/sectors/" + rh.ID, token: adminToken, wantCode: http.StatusNotFound},
	}
	runTests(t, env, tests)

	sectors, err := env.repos.Sector.QuerySectors(context.Background(), nil)
	require.NoError(t, err)
	names := make([]string, 0, len(sectors))
	for _, s := range sectors {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"Jurídico", "TI"}, names)
}

func Test_sectorApi_admins(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	admin := env.createUser(t, "Admin", "admin@cresol.test", user.RoleAdmin, true)
	ana := env.createUser(t, "Ana Souza", "ana@cresol.test", user.RoleUser, true)
	bruno := env.createUser(t, "Bruno Lima", "bruno@cresol.test", user.RoleUser, true)
	naughty := env.createUser(t, "N Dog", "ndog@cresol.test", user.RoleUser, false)
	adminToken := getToken(t, env.conf, admin)

	ti := env.createSector(t, "TI")
	rh := env.createSector(t, "RH")
	infra := testutil.CreateSubsector(t, env.repos.Sector, ti.ID, "Infra")

	role := func(id string) string {
		usr, err := env.repos.User.GetUser(ctx, user.GetFilter{ID: id})
		require.NoError(t, err)
		return usr.Role
	}
	do := func(method, path, token string, body interface{}) int {
		var data []byte
		if body != nil {
			data = marchallObj(t, body)
		}
		req, rec := newAuthRequest(method, path, token, data)
		env.serve(req, rec)
		return rec.Code
	}

	// only admins appoint sector admins
	assert.Equal(t, http.StatusForbidden, do(http.MethodPost, "/v1/sectors/"+ti.ID+"/admins", getToken(t, env.conf, ana), sector.AdminRequest{UserID: ana.ID}))
	assert.Equal(t, http.StatusBadRequest, do(http.MethodPost, "/v1/sectors/"+ti.ID+"/admins", adminToken, sector.AdminRequest{UserID: naughty.ID}))
	assert.Equal(t, http.StatusBadRequest, do(http.MethodPost, "/v1/sectors/"+ti.ID+"/admins", adminToken, sector.AdminRequest{UserID: "lol"}))

	// promote
	require.Equal(t, http.StatusNoContent, do(http.MethodPost, "/v1/sectors/"+ti.ID+"/admins", adminToken, sector.AdminRequest{UserID: ana.ID}))
	require.Equal(t, http.StatusNoContent, do(http.MethodPost, "/v1/sectors/"+rh.ID+"/admins", adminToken, sector.AdminRequest{UserID: ana.ID}))
	assert.Equal(t, user.RoleSectorAdmin, role(ana.ID))

	req, rec := newAuthRequest(http.MethodGet, "/v1/sectors/"+ti.ID+"/admins", adminToken)
	env.serve(req, rec)
	require.Equal(t, http.StatusOK, rec.Code)
	var admins []user.User
	unmarshal(t, rec, &admins)
	require.Len(t, admins, 1)
	assert.Equal(t, ana.ID, admins[0].ID)

	// the sector admin manages their sector & its subsectors, not the other ones
	anaToken := getToken(t, env.conf, ana)
	assert.Equal(t, http.StatusOK, do(http.MethodPut, "/v1/sectors/"+ti.ID, anaToken, map[string]string{"description": "Tecnologia"}))
	assert.Equal(t, http.StatusForbidden, do(http.MethodPut, "/v1/sectors/"+ti.ID, anaToken, map[string]bool{"is_active": false}))
	assert.Equal(t, http.StatusCreated, do(http.MethodPost, "/v1/sectors/"+ti.ID+"/subsectors", anaToken, sector.NewSector{Name: "Dev"}))
	assert.Equal(t, http.StatusBadRequest, do(http.MethodPost, "/v1/sectors/"+ti.ID+"/subsectors", anaToken, sector.NewSector{Name: "INFRA"}))
	assert.Equal(t, http.StatusNoContent, do(http.MethodPost, "/v1/subsectors/"+infra.ID+"/admins", anaToken, sector.AdminRequest{UserID: bruno.ID}))
	assert.Equal(t, user.RoleSubsectorAdmin, role(bruno.ID))

	// the subsector admin manages their subsector only
	brunoToken := getToken(t, env.conf, bruno)
	assert.Equal(t, http.StatusOK, do(http.MethodPut, "/v1/subsectors/"+infra.ID, brunoToken, map[string]string{"description": "Redes"}))
	assert.Equal(t, http.StatusForbidden, do(http.MethodDelete, "/v1/subsectors/"+infra.ID, brunoToken, nil))
	assert.Equal(t, http.StatusForbidden, do(http.MethodPut, "/v1/sectors/"+ti.ID, brunoToken, map[string]string{"description": "lol"}))

	// demote once the last assignment is gone
	assert.Equal(t, http.StatusNoContent, do(http.MethodDelete, "/v1/sectors/"+ti.ID+"/admins/"+ana.ID, adminToken, nil))
	assert.Equal(t, user.RoleSectorAdmin, role(ana.ID), "still admin of RH")
	assert.Equal(t, http.StatusNoContent, do(http.MethodDelete, "/v1/sectors/"+rh.ID+"/admins/"+ana.ID, adminToken, nil))
	assert.Equal(t, user.RoleUser, role(ana.ID))

	// deleting a subsector settles its admins' roles
	assert.Equal(t, http.StatusNoContent, do(http.MethodDelete, "/v1/subsectors/"+infra.ID, adminToken, nil))
	assert.Equal(t, user.RoleUser, role(bruno.ID))
	assert.Equal(t, http.StatusNotFound, do(http.MethodGet, "/v1/subsectors/"+infra.ID, adminToken, nil))
}

package echoapi_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cresol/portal/core"
	"github.com/cresol/portal/core/position"
	"github.com/cresol/portal/core/user"
)

func Test_positionApi(t *testing.T) {
	env := setup(t)
	admin := env.createUser(t, "Admin", "admin@cresol.test", user.RoleAdmin, true)
	bruno := env.createUser(t, "Bruno Lima", "bruno@cresol.test", user.RoleUser, true)
	adminToken := getToken(t, env.conf, admin)
	brunoToken := getToken(t, env.conf, bruno)

	create := func(np position.NewPosition) position.Position {
		t.Helper()
		req, rec := newAuthRequest(http.MethodPost, "/v1/positions", adminToken, marchallObj(t, np))
		env.serve(req, rec)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var p position.Position
		unmarshal(t, rec, &p)
		return p
	}
	analyst := create(position.NewPosition{Name: "Analista"})
	manager := create(position.NewPosition{Name: "Gerente", Description: "Gerente de agência"})
	retired := create(position.NewPosition{Name: "Caixa", IsActive: core.BoolPtr(false)})

	bruno.PositionID = &analyst.ID
	_, err := env.repos.User.UpdateUser(context.Background(), bruno)
	require.NoError(t, err)

	tests := []httpTest{
		{name: "list: admin", method: http.MethodGet, path: "/v1/positions", token: adminToken, wantData: marchallList(t, analyst, retired, manager)},
		{name: "list: users see active positions", method: http.MethodGet, path: "/v1/positions", token: brunoToken, wantData: marchallList(t, analyst, manager)},
		{name: "retrieve", method: http.MethodGet, path: "/v1/positions/" + manager.ID, token: brunoToken, wantData: marchallObj(t, manager)},
		{
			name: "create: admin required", method: http.MethodPost, path: "/v1/positions", token: brunoToken,
			body: marchallObj(t, position.NewPosition{Name: "Diretor"}), wantCode: http.StatusForbidden,
		},
		{
			name: "create: name taken", method: http.MethodPost, path: "/v1/positions", token: adminToken,
			body:     marchallObj(t, position.NewPosition{Name: " gerente "}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"name": position.ErrNameExists.Error()}),
		},
		{
			name: "update: name taken", method: http.MethodPut, path: "/v1/positions/" + retired.ID, token: adminToken,
			body:     marchallObj(t, position.UpdatePosition{Name: core.StringPtr("Analista")}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"name": position.ErrNameExists.Error()}),
		},
		{
			name: "update", method: http.MethodPut, path: "/v1/positions/" + retired.ID, token: adminToken,
			body: marchallObj(t, position.UpdatePosition{Name: core.StringPtr("Operador de caixa"), IsActive: core.BoolPtr(true)}),
		},
		{
			name: "delete: held by users", method: http.MethodDelete, path: "/v1/positions/" + analyst.ID, token: adminToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: position.ErrInUse.Error()}),
		},
		{name: "delete: admin required", method: http.MethodDelete, path: "/v1/positions/" + manager.ID, token: brunoToken, wantCode: http.StatusForbidden},
		{name: "delete", method: http.MethodDelete, path: "/v1/positions/" + manager.ID, token: adminToken, wantCode: http.StatusNoContent},
		{name: "deleted", method: http.MethodGet, path: "/v1/positions/" + manager.ID, token: adminToken, wantCode: http.StatusNotFound},
	}
	runTests(t, env, tests)
}

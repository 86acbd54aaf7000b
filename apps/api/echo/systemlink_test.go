package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cresol/portal/core"
	"github.com/cresol/portal/core/systemlink"
	"github.com/cresol/portal/core/user"
)

func Test_systemLinkApi(t *testing.T) {
	env := setup(t)
	admin := env.createUser(t, "Admin", "admin@cresol.test", user.RoleAdmin, true)
	bruno := env.createUser(t, "Bruno Lima", "bruno@cresol.test", user.RoleUser, true)
	adminToken := getToken(t, env.conf, admin)
	brunoToken := getToken(t, env.conf, bruno)

	create := func(nl systemlink.NewSystemLink) systemlink.SystemLink {
		t.Helper()
		req, rec := newAuthRequest(http.MethodPost, "/v1/system-links", adminToken, marchallObj(t, nl))
		env.serve(req, rec)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var l systemlink.SystemLink
		unmarshal(t, rec, &l)
		return l
	}
	webmail := create(systemlink.NewSystemLink{Name: "Webmail", URL: "https://mail.cresol.test", Icon: "mail"})
	erp := create(systemlink.NewSystemLink{Name: "ERP", URL: "https://erp.cresol.test", IsActive: core.BoolPtr(false)})
	crm := create(systemlink.NewSystemLink{Name: "CRM", URL: "http://crm.cresol.test", OrderIndex: core.IntPtr(0)})
	assert.Equal(t, 0, webmail.OrderIndex)
	assert.Equal(t, 1, erp.OrderIndex)
	assert.Equal(t, 2, crm.OrderIndex, "a taken index falls back to the end")

	tests := []httpTest{
		{name: "list: admin", method: http.MethodGet, path: "/v1/system-links", token: adminToken, wantData: marchallList(t, webmail, erp, crm)},
		{name: "list: users see active links", method: http.MethodGet, path: "/v1/system-links", token: brunoToken, wantData: marchallList(t, webmail, crm)},
		{name: "retrieve", method: http.MethodGet, path: "/v1/system-links/" + crm.ID, token: brunoToken, wantData: marchallObj(t, crm)},
		{name: "retrieve: unknown", method: http.MethodGet, path: "/v1/system-links/" + admin.ID, token: brunoToken, wantCode: http.StatusNotFound},
		{
			name: "create: admin required", method: http.MethodPost, path: "/v1/system-links", token: brunoToken,
			body: marchallObj(t, systemlink.NewSystemLink{Name: "lol", URL: "https://lol.test"}), wantCode: http.StatusForbidden,
		},
		{
			name: "create: invalid url", method: http.MethodPost, path: "/v1/system-links", token: adminToken,
			body:     marchallObj(t, systemlink.NewSystemLink{Name: "lol", URL: "ftp://lol.test"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"url": "must be an http(s) URL"}),
		},
		{
			name: "create: look-alike scheme", method: http.MethodPost, path: "/v1/system-links", token: adminToken,
			body:     marchallObj(t, systemlink.NewSystemLink{Name: "lol", URL: "httpx://lol.test"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"url": "must be an http(s) URL"}),
		},
		{
			name: "update", method: http.MethodPut, path: "/v1/system-links/" + erp.ID, token: adminToken,
			body: marchallObj(t, systemlink.UpdateSystemLink{IsActive: core.BoolPtr(true), Description: core.StringPtr("Gestão")}),
		},
		{name: "delete: admin required", method: http.MethodDelete, path: "/v1/system-links/" + webmail.ID, token: brunoToken, wantCode: http.StatusForbidden},
		{name: "delete", method: http.MethodDelete, path: "/v1/system-links/" + webmail.ID, token: adminToken, wantCode: http.StatusNoContent},
	}
	runTests(t, env, tests)

	req, rec := newAuthRequest(http.MethodGet, "/v1/system-links", brunoToken)
	env.serve(req, rec)
	require.Equal(t, http.StatusOK, rec.Code)
	var links []systemlink.SystemLink
	unmarshal(t, rec, &links)
	require.Len(t, links, 2)
	assert.Equal(t, erp.ID, links[0].ID)
	assert.Equal(t, "Gestão", links[0].Description)
	assert.Equal(t, crm.ID, links[1].ID)
}

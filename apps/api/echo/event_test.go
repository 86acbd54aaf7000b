package echoapi_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cresol/portal/core/event"
	"github.com/cresol/portal/core/user"
)

func Test_eventApi(t *testing.T) {
	env := setup(t)
	admin := env.createUser(t, "Admin", "admin@cresol.test", user.RoleAdmin, true)
	bruno := env.createUser(t, "Bruno Lima", "bruno@cresol.test", user.RoleUser, true)
	adminToken := getToken(t, env.conf, admin)
	brunoToken := getToken(t, env.conf, bruno)

	ti := env.createSector(t, "TI")
	ana := env.createUser(t, "Ana Souza", "ana@cresol.test", user.RoleSectorAdmin, true)
	require.NoError(t, env.repos.Sector.AddSectorAdmin(context.Background(), ti.ID, ana.ID))
	anaToken := getToken(t, env.conf, ana)

	now := time.Now().UTC().Truncate(time.Second)
	lastWeek, nextWeek := now.Add(-7*24*time.Hour), now.Add(7*24*time.Hour)
	nextWeekEnd := nextWeek.Add(2 * time.Hour)

	create := func(token string, ne event.NewEvent) event.Event {
		t.Helper()
		req, rec := newAuthRequest(http.MethodPost, "/v1/events", token, marchallObj(t, ne))
		env.serve(req, rec)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var e event.Event
		unmarshal(t, rec, &e)
		return e
	}
	past := create(adminToken, event.NewEvent{Title: "Confraternização", StartsAt: lastWeek, IsPublished: true})
	fair := create(adminToken, event.NewEvent{Title: "Feira de crédito", Location: "Sede", StartsAt: nextWeek, EndsAt: &nextWeekEnd, IsPublished: true})
	training := create(anaToken, event.NewEvent{Title: "Treinamento de segurança", StartsAt: nextWeek.Add(time.Hour), SectorID: &ti.ID})
	assert.Equal(t, ti.ID, *training.SectorID)
	assert.False(t, training.IsPublished)

	tests := []httpTest{
		{name: "list: admin", method: http.MethodGet, path: "/v1/events", token: adminToken, wantData: marchallList(t, past, fair, training)},
		{name: "list: users see published events", method: http.MethodGet, path: "/v1/events", token: brunoToken, wantData: marchallList(t, past, fair)},
		{name: "list: upcoming", method: http.MethodGet, path: "/v1/events?upcoming=true", token: brunoToken, wantData: marchallList(t, fair)},
		{name: "list: sector, as its admin", method: http.MethodGet, path: "/v1/events?sector_id=" + ti.ID, token: anaToken, wantData: marchallList(t, training)},
		{name: "list: sector, as a user", method: http.MethodGet, path: "/v1/events?sector_id=" + ti.ID, token: brunoToken, wantData: []byte("[]")},
		{name: "retrieve", method: http.MethodGet, path: "/v1/events/" + fair.ID, token: brunoToken, wantData: marchallObj(t, fair)},
		{name: "retrieve: unpublished is hidden", method: http.MethodGet, path: "/v1/events/" + training.ID, token: brunoToken, wantCode: http.StatusNotFound},
		{name: "retrieve: unpublished, as a manager", method: http.MethodGet, path: "/v1/events/" + training.ID, token: anaToken, wantData: marchallObj(t, training)},
		{
			name: "create: general events are admin only", method: http.MethodPost, path: "/v1/events", token: anaToken,
			body: marchallObj(t, event.NewEvent{Title: "lol", StartsAt: nextWeek}), wantCode: http.StatusForbidden,
		},
		{
			name: "create: required fields", method: http.MethodPost, path: "/v1/events", token: adminToken,
			body: marchallObj(t, map[string]string{}), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"title": "this field is required", "starts_at": "this field is required"}),
		},
		{
			name: "create: ends before it starts", method: http.MethodPost, path: "/v1/events", token: adminToken,
			body:     marchallObj(t, event.NewEvent{Title: "lol", StartsAt: nextWeek, EndsAt: &lastWeek}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"ends_at": "ends_at must be after starts_at"}),
		},
		{
			name: "create: unknown sector", method: http.MethodPost, path: "/v1/events", token: adminToken,
			body:     marchallObj(t, event.NewEvent{Title: "lol", StartsAt: nextWeek, SectorID: &admin.ID}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"sector_id": "sector not found"}),
		},
		{
			name: "update: rights", method: http.MethodPut, path: "/v1/events/" + fair.ID, token: anaToken,
			body: marchallObj(t, map[string]string{"title": "lol"}), wantCode: http.StatusForbidden,
		},
		{
			name: "update: window", method: http.MethodPut, path: "/v1/events/" + fair.ID, token: adminToken,
			body:     marchallObj(t, map[string]interface{}{"starts_at": nextWeekEnd.Add(time.Hour)}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"ends_at": "ends_at must be after starts_at"}),
		},
		{name: "delete: rights", method: http.MethodDelete, path: "/v1/events/" + past.ID, token: brunoToken, wantCode: http.StatusForbidden},
		{name: "delete", method: http.MethodDelete, path: "/v1/events/" + past.ID, token: adminToken, wantCode: http.StatusNoContent},
	}
	runTests(t, env, tests)

	t.Run("publish", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/events/"+training.ID, anaToken, marchallObj(t, map[string]bool{"is_published": true}))
		env.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		req, rec = newAuthRequest(http.MethodGet, "/v1/events?upcoming=true", brunoToken)
		env.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code)
		var events []event.Event
		unmarshal(t, rec, &events)
		require.Len(t, events, 2)
		assert.Equal(t, fair.ID, events[0].ID)
		assert.Equal(t, training.ID, events[1].ID)
	})
}

package echoapi_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cresol/portal/core/stats"
	"github.com/cresol/portal/core/user"
	"github.com/cresol/portal/testutil"
)

func Test_statsApi(t *testing.T) {
	env := setup(t)
	admin := env.createUser(t, "Admin", "admin@cresol.test", user.RoleAdmin, true)
	bruno := env.createUser(t, "Bruno Lima", "bruno@cresol.test", user.RoleUser, true)
	env.createUser(t, "N Dog", "ndog@cresol.test", user.RoleUser, false)
	ti := env.createSector(t, "TI")
	env.createSector(t, "RH")
	testutil.CreateSubsector(t, env.repos.Sector, ti.ID, "Infra")
	adminToken := getToken(t, env.conf, admin)

	get := func(token string) (*stats.Stats, int) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/admin/stats", token)
		env.serve(req, rec)
		if rec.Code != http.StatusOK {
			return nil, rec.Code
		}
		var st stats.Stats
		unmarshal(t, rec, &st)
		return &st, rec.Code
	}

	t.Run("admin required", func(t *testing.T) {
		_, code := get(getToken(t, env.conf, bruno))
		assert.Equal(t, http.StatusForbidden, code)
		_, code = get("")
		assert.Equal(t, http.StatusUnauthorized, code)
	})

	t.Run("counts", func(t *testing.T) {
		st, code := get(adminToken)
		require.Equal(t, http.StatusOK, code)
		assert.False(t, st.Fallback)
		assert.Equal(t, 3, st.Users)
		assert.Equal(t, 2, st.ActiveUsers)
		assert.Equal(t, 2, st.Sectors)
		assert.Equal(t, 1, st.Subsectors)
		assert.WithinDuration(t, time.Now(), st.GeneratedAt, time.Minute)
	})

	t.Run("placeholder when counting fails", func(t *testing.T) {
		env.repos.Stats.Fail = true
		defer func() { env.repos.Stats.Fail = false }()

		st, code := get(adminToken)
		require.Equal(t, http.StatusOK, code)
		assert.True(t, st.Fallback)
		assert.NotEmpty(t, st.FallbackReason)
		assert.Zero(t, st.Users)
	})
}

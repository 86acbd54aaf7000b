package systemlink_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cresol/portal/core"
	"github.com/cresol/portal/core/systemlink"
	"github.com/cresol/portal/core/user"
	inmemdb "github.com/cresol/portal/storage/database/inmem"
	"github.com/cresol/portal/testutil"
)

func TestService_Update_orderIndexConflict(t *testing.T) {
	ctx := context.Background()
	repos := inmemdb.NewRepositories(inmemdb.Open())
	svc := systemlink.NewService(repos.SystemLink)
	admin := testutil.CreateUser(t, repos.User, "Admin", "admin@cresol.test", "", user.RoleAdmin, true)

	webmail, err := svc.Create(ctx, admin, systemlink.NewSystemLink{Name: "Webmail", URL: "https://mail.cresol.test"})
	require.NoError(t, err)
	erp, err := svc.Create(ctx, admin, systemlink.NewSystemLink{Name: "ERP", URL: "https://erp.cresol.test"})
	require.NoError(t, err)
	crm, err := svc.Create(ctx, admin, systemlink.NewSystemLink{Name: "CRM", URL: "https://crm.cresol.test"})
	require.NoError(t, err)
	require.Equal(t, []int{0, 1, 2}, []int{webmail.OrderIndex, erp.OrderIndex, crm.OrderIndex})

	moved, err := svc.Update(ctx, admin, webmail, systemlink.UpdateSystemLink{OrderIndex: core.IntPtr(1)})
	require.NoError(t, err)
	assert.Equal(t, 3, moved.OrderIndex, "a taken index falls back to the end")

	// a free index is kept as is
	moved, err = svc.Update(ctx, admin, moved, systemlink.UpdateSystemLink{OrderIndex: core.IntPtr(7)})
	require.NoError(t, err)
	assert.Equal(t, 7, moved.OrderIndex)

	links, err := svc.Query(ctx, admin)
	require.NoError(t, err)
	require.Len(t, links, 3)
	assert.Equal(t, []string{erp.ID, crm.ID, webmail.ID}, []string{links[0].ID, links[1].ID, links[2].ID})
}

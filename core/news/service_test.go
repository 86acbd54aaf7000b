package news_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cresol/portal/core"
	"github.com/cresol/portal/core/news"
	"github.com/cresol/portal/core/sector"
	"github.com/cresol/portal/core/user"
	cachesvc "github.com/cresol/portal/services/cache"
	emailsvc "github.com/cresol/portal/services/email"
	inmemdb "github.com/cresol/portal/storage/database/inmem"
	"github.com/cresol/portal/testutil"
)

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func at(d time.Duration) *time.Time {
	t := base.Add(d)
	return &t
}

func TestWeight(t *testing.T) {
	tstamp := float64(base.Unix()) / 1e10
	tests := []struct {
		name string
		n    news.News
		want float64
	}{
		{"plain", news.News{PublishedAt: at(0)}, tstamp},
		{"featured", news.News{IsFeatured: true, PublishedAt: at(0)}, 30 + tstamp},
		{"homepage", news.News{ShowOnHomepage: true, PublishedAt: at(0)}, 70 + tstamp},
		{"everything", news.News{Priority: 2, IsFeatured: true, ShowOnHomepage: true, PublishedAt: at(0)}, 300 + tstamp},
		{"unpublished falls back to created_at", news.News{Priority: 1, CreatedAt: base}, 100 + tstamp},
		{"sub-second part is ignored", news.News{PublishedAt: at(900 * time.Millisecond)}, tstamp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, news.Weight(tt.n), 1e-9)
		})
	}
}

func TestMerge(t *testing.T) {
	general := []news.News{
		{ID: "g1", Priority: 1, PublishedAt: at(0)},
		{ID: "g2", PublishedAt: at(2 * time.Hour)},
		{ID: "g3", IsFeatured: true, PublishedAt: at(-time.Hour)},
	}
	sectorNews := []news.News{
		{ID: "s1", ShowOnHomepage: true, PublishedAt: at(0)},
		{ID: "s2", PublishedAt: at(3 * time.Hour)},
		{ID: "s0", PublishedAt: at(3 * time.Hour)}, // same weight & time as s2
	}

	ids := func(items []news.UnifiedItem) []string {
		out := make([]string, 0, len(items))
		for _, it := range items {
			out = append(out, it.ID)
		}
		return out
	}

	all := news.Merge(0, general, sectorNews)
	assert.Equal(t, []string{"g1", "s1", "g3", "s0", "s2", "g2"}, ids(all))
	for i := 1; i < len(all); i++ {
		assert.GreaterOrEqual(t, all[i-1].Weight, all[i].Weight)
	}
	assert.Equal(t, []string{"g1", "s1", "g3"}, ids(news.Merge(3, general, sectorNews)))

	// equal weights within the same second: the later instant wins
	late := []news.News{{ID: "a", PublishedAt: at(100 * time.Millisecond)}, {ID: "b", PublishedAt: at(800 * time.Millisecond)}}
	assert.Equal(t, []string{"b", "a"}, ids(news.Merge(0, late)))
	assert.Empty(t, news.Merge(5))
}

type testEnv struct {
	svc       news.Service
	repos     *inmemdb.Repositories
	sectorSvc sector.Service
}

func setup(t *testing.T) *testEnv {
	conf := core.NewTestConfig()
	logger := testutil.NewLogger(conf)
	repos := inmemdb.NewRepositories(inmemdb.Open())
	usrSvc := user.NewService(repos.User, emailsvc.NewConsoleServiceMock(conf, logger), conf)
	cache := cachesvc.NewMemoryCache()
	sectorSvc := sector.NewService(repos.Sector, usrSvc, cache, logger)
	svc := news.NewService(repos.News, sectorSvc, cache, conf, logger)
	return &testEnv{svc: svc, repos: repos, sectorSvc: sectorSvc}
}

func TestService_rights(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	admin := testutil.CreateUser(t, env.repos.User, "Admin", "admin@cresol.test", "", user.RoleAdmin, true)
	ana := testutil.CreateUser(t, env.repos.User, "Ana", "ana@cresol.test", "", user.RoleUser, true)
	ti := testutil.CreateSector(t, env.repos.Sector, "TI")
	rh := testutil.CreateSector(t, env.repos.Sector, "RH")
	require.NoError(t, env.sectorSvc.AddSectorAdmin(ctx, admin, ti.ID, ana.ID))
	ana, err := env.repos.User.GetUser(ctx, user.GetFilter{ID: ana.ID})
	require.NoError(t, err)

	nn := news.NewNews{Title: "Novo sistema", Content: "..."}

	_, err = env.svc.Create(ctx, ana, nil, nn)
	assert.Equal(t, core.ErrForbidden, err, "general news are admin only")
	_, err = env.svc.Create(ctx, ana, &rh.ID, nn)
	assert.Equal(t, core.ErrForbidden, err, "not their sector")

	n, err := env.svc.Create(ctx, ana, &ti.ID, nn)
	require.NoError(t, err)
	assert.Equal(t, news.SourceSector, n.Source)
	assert.Equal(t, ti.ID, *n.SectorID)
	assert.Nil(t, n.PublishedAt, "drafts have no publication date")

	n, err = env.svc.Update(ctx, ana, n, news.UpdateNews{IsPublished: core.BoolPtr(true)})
	require.NoError(t, err)
	require.NotNil(t, n.PublishedAt)

	g, err := env.svc.Create(ctx, admin, nil, news.NewNews{Title: "Rascunho", Content: "..."})
	require.NoError(t, err)
	assert.Equal(t, news.SourceGeneral, g.Source)
	assert.Nil(t, g.SectorID)

	// users only see published general news
	list, err := env.svc.Query(ctx, ana, &news.QueryFilter{Source: news.SourceGeneral})
	require.NoError(t, err)
	assert.Empty(t, list)
	list, err = env.svc.Query(ctx, admin, &news.QueryFilter{Source: news.SourceGeneral})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestService_Unified(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	admin := testutil.CreateUser(t, env.repos.User, "Admin", "admin@cresol.test", "", user.RoleAdmin, true)
	ti := testutil.CreateSector(t, env.repos.Sector, "TI")
	rh := testutil.CreateSector(t, env.repos.Sector, "RH")

	create := func(sectorID *string, nn news.NewNews) news.News {
		nn.Content = "..."
		n, err := env.svc.Create(ctx, admin, sectorID, nn)
		require.NoError(t, err)
		return n
	}
	low := create(nil, news.NewNews{Title: "Comunicado", IsPublished: true, PublishedAt: at(0)})
	top := create(&ti.ID, news.NewNews{Title: "Manutenção", IsPublished: true, Priority: 3, PublishedAt: at(0)})
	home := create(&rh.ID, news.NewNews{Title: "Benefícios", IsPublished: true, ShowOnHomepage: true, PublishedAt: at(0)})
	create(nil, news.NewNews{Title: "Rascunho", Priority: 10})

	ids := func(items []news.UnifiedItem) []string {
		out := make([]string, 0, len(items))
		for _, it := range items {
			out = append(out, it.ID)
		}
		return out
	}

	items, err := env.svc.Unified(ctx, news.UnifiedFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{top.ID, home.ID, low.ID}, ids(items))

	items, err = env.svc.Unified(ctx, news.UnifiedFilter{SectorID: ti.ID, Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, []string{top.ID, low.ID}, ids(items), "general news plus the sector's")

	// bypassing the service leaves the cached feed untouched
	_, err = env.repos.News.CreateNews(ctx, news.News{
		Source: news.SourceGeneral, Title: "Direto", IsPublished: true, Priority: 9, PublishedAt: at(0), CreatedAt: base,
	})
	require.NoError(t, err)
	items, err = env.svc.Unified(ctx, news.UnifiedFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{top.ID, home.ID, low.ID}, ids(items))

	// any write through the service invalidates it
	_, err = env.svc.Update(ctx, admin, low, news.UpdateNews{Title: core.StringPtr("Comunicado geral")})
	require.NoError(t, err)
	items, err = env.svc.Unified(ctx, news.UnifiedFilter{})
	require.NoError(t, err)
	require.Len(t, items, 4)
	assert.Equal(t, "Direto", items[0].Title)
	assert.Equal(t, top.ID, items[1].ID)
}

func TestService_Unified_sectorDelete(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	admin := testutil.CreateUser(t, env.repos.User, "Admin", "admin@cresol.test", "", user.RoleAdmin, true)
	ti := testutil.CreateSector(t, env.repos.Sector, "TI")

	n, err := env.svc.Create(ctx, admin, &ti.ID, news.NewNews{Title: "Manutenção", Content: "...", IsPublished: true})
	require.NoError(t, err)

	items, err := env.svc.Unified(ctx, news.UnifiedFilter{})
	require.NoError(t, err)
	require.Len(t, items, 1)

	// the sector's news are deleted with it, cached feeds included
	require.NoError(t, env.sectorSvc.Delete(ctx, admin, ti))
	_, err = env.svc.GetByID(ctx, news.SourceSector, n.ID)
	assert.Equal(t, news.ErrNotFound, errors.Cause(err))

	items, err = env.svc.Unified(ctx, news.UnifiedFilter{})
	require.NoError(t, err)
	assert.Empty(t, items)
}

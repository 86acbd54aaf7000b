package echoapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/cresol/portal/apps/api/echo"
	"github.com/cresol/portal/core"
	"github.com/cresol/portal/core/banner"
	"github.com/cresol/portal/core/collection"
	"github.com/cresol/portal/core/event"
	"github.com/cresol/portal/core/news"
	"github.com/cresol/portal/core/position"
	"github.com/cresol/portal/core/sector"
	"github.com/cresol/portal/core/stats"
	"github.com/cresol/portal/core/systemlink"
	"github.com/cresol/portal/core/user"
	"github.com/cresol/portal/core/video"
	cachesvc "github.com/cresol/portal/services/cache"
	emailsvc "github.com/cresol/portal/services/email"
	"github.com/cresol/portal/services/filestore"
	inmemdb "github.com/cresol/portal/storage/database/inmem"
	"github.com/cresol/portal/testutil"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testEnv struct {
	app   *echoapi.Server
	conf  *core.Config
	db    *inmemdb.DB
	repos *inmemdb.Repositories
	mail  *emailsvc.ConsoleServiceMock
	store *filestore.DiskStore
	cache *cachesvc.MemoryCache
}

func setup(t *testing.T) *testEnv {
	conf := core.NewTestConfig()
	conf.Media.Root = t.TempDir()
	logger := testutil.NewLogger(conf)
	validate, translator := testutil.NewValidator()
	user.LoadCommonPasswords(logger)

	// set up DB & repos
	db := inmemdb.Open()
	repos := inmemdb.NewRepositories(db)

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	store, err := filestore.NewDiskStore(conf)
	require.NoError(t, err)
	cache := cachesvc.NewMemoryCache()

	usrSvc := user.NewService(repos.User, mailSvc, conf)
	sectorSvc := sector.NewService(repos.Sector, usrSvc, cache, logger)

	app := echoapi.NewServer(echoapi.ServerDeps{
		Conf:           conf,
		Logger:         logger,
		Validate:       validate,
		Translator:     translator,
		MediaRoot:      store.Root(),
		DisableReqLogs: true,

		UserSvc:       usrSvc,
		SectorSvc:     sectorSvc,
		BannerSvc:     banner.NewService(repos.Banner),
		VideoSvc:      video.NewService(repos.Video, store, logger),
		NewsSvc:       news.NewService(repos.News, sectorSvc, cache, conf, logger),
		EventSvc:      event.NewService(repos.Event, sectorSvc),
		CollectionSvc: collection.NewService(repos.Collection, cache, conf, logger),
		PositionSvc:   position.NewService(repos.Position),
		SystemLinkSvc: systemlink.NewService(repos.SystemLink),
		StatsSvc:      stats.NewService(repos.Stats, logger),
	})

	return &testEnv{app: app, conf: conf, db: db, repos: repos, mail: mailSvc, store: store, cache: cache}
}

func (env *testEnv) createUser(t *testing.T, name, email, role string, isActive bool) user.User {
	return testutil.CreateUser(t, env.repos.User, name, email, "LolC@t123", role, isActive)
}

func (env *testEnv) createSector(t *testing.T, name string) sector.Sector {
	return testutil.CreateSector(t, env.repos.Sector, name)
}

func (env *testEnv) serve(req *http.Request, rec *httptest.ResponseRecorder) {
	env.app.ServeHTTP(rec, req)
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, conf *core.Config, usr user.User) string {
	claims := echoapi.GetUserClaims(conf, usr)
	token, err := echoapi.GenerateToken(conf, claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

// unmarshal decodes the recorded response into dest.
func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), dest); err != nil {
		t.Fatalf("json.Unmarshal() failed: %v; body %s", err, rec.Body.String())
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runTests(t *testing.T, env *testEnv, tests []httpTest) {
	for _, tt := range tests {
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			env.serve(req, rec)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func TestServer_home(t *testing.T) {
	env := setup(t)
	req, rec := newRequest(http.MethodGet, "/")
	env.serve(req, rec)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Portal Cresol API!", rec.Body.String())
}

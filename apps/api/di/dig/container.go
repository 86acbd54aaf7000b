package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

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
	logsvc "github.com/cresol/portal/services/logger"
	"github.com/cresol/portal/storage/database"
	sqlxrepos "github.com/cresol/portal/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) (*sqlx.DB, core.DB) {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db.DB, "up"); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db, db
}

// newCache picks redis when it is configured, so every API instance shares the cached feeds.
func newCache(conf *core.Config, logger core.Logger) core.Cache {
	if conf.Redis.Address == "" {
		return cachesvc.NewMemoryCache()
	}
	cache := cachesvc.NewRedisCache(conf)
	if err := cache.Ping(context.Background()); err != nil {
		logger.Fatal(fmt.Sprintf("connecting to redis: %v", err), err)
	}
	return cache
}

func newFileStore(conf *core.Config, logger core.Logger) *filestore.DiskStore {
	store, err := filestore.NewDiskStore(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up media storage: %v", err), err)
	}
	return store
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

// Repositories

type reposResult struct {
	dig.Out

	User       user.Repository
	Sector     sector.Repository
	Banner     banner.Repository
	Video      video.Repository
	News       news.Repository
	Event      event.Repository
	Collection collection.Repository
	Position   position.Repository
	SystemLink systemlink.Repository
	Stats      stats.Repository
}

func newRepositories(db *sqlx.DB) reposResult {
	repos := sqlxrepos.NewRepositories(db)
	return reposResult{
		User:       repos.User,
		Sector:     repos.Sector,
		Banner:     repos.Banner,
		Video:      repos.Video,
		News:       repos.News,
		Event:      repos.Event,
		Collection: repos.Collection,
		Position:   repos.Position,
		SystemLink: repos.SystemLink,
		Stats:      repos.Stats,
	}
}

// Server

type serverParams struct {
	dig.In

	Conf       *core.Config
	Logger     core.Logger
	Validate   *validator.Validate
	Translator ut.Translator
	Store      *filestore.DiskStore

	UserSvc       user.Service
	SectorSvc     sector.Service
	BannerSvc     banner.Service
	VideoSvc      video.Service
	NewsSvc       news.Service
	EventSvc      event.Service
	CollectionSvc collection.Service
	PositionSvc   position.Service
	SystemLinkSvc systemlink.Service
	StatsSvc      stats.Service
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:       p.Conf,
		Logger:     p.Logger,
		Validate:   p.Validate,
		Translator: p.Translator,
		MediaRoot:  p.Store.Root(),

		UserSvc:       p.UserSvc,
		SectorSvc:     p.SectorSvc,
		BannerSvc:     p.BannerSvc,
		VideoSvc:      p.VideoSvc,
		NewsSvc:       p.NewsSvc,
		EventSvc:      p.EventSvc,
		CollectionSvc: p.CollectionSvc,
		PositionSvc:   p.PositionSvc,
		SystemLinkSvc: p.SystemLinkSvc,
		StatsSvc:      p.StatsSvc,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newRepositories))
	must(c.Provide(newCache))
	must(c.Provide(newFileStore))
	must(c.Provide(func(s *filestore.DiskStore) core.FileStore { return s }))
	must(c.Provide(newEmailService))
	must(c.Provide(validator.New))
	must(c.Provide(core.NewTranslator))

	must(c.Provide(user.NewService))
	must(c.Provide(sector.NewService))
	must(c.Provide(banner.NewService))
	must(c.Provide(video.NewService))
	must(c.Provide(news.NewService))
	must(c.Provide(event.NewService))
	must(c.Provide(collection.NewService))
	must(c.Provide(position.NewService))
	must(c.Provide(systemlink.NewService))
	must(c.Provide(stats.NewService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}

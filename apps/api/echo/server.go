package echoapi

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

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
)

type (
	// ServerDeps lists everything the API needs.
	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator
		// MediaRoot is the directory served under Conf.Media.URLPrefix; empty disables media serving.
		MediaRoot string
		// DisableReqLogs silences the request logger, for tests.
		DisableReqLogs bool

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

	Server struct {
		app      *echo.Echo
		addr     string
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		app:      echo.New(),
		addr:     deps.Conf.Server.Host,
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup(deps)
	return s
}

func (s *Server) setup(deps ServerDeps) {
	conf := deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{conf.FrontendBaseURL},
		AllowCredentials: true,
	}))
	if conf.Media.MaxUploadSize > 0 {
		s.app.Use(middleware.BodyLimit(fmt.Sprintf("%dB", conf.Media.MaxUploadSize)))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(deps.Logger, deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)
	if deps.MediaRoot != "" {
		s.app.Static(conf.Media.URLPrefix, deps.MediaRoot)
	}

	v1 := s.app.Group("/v1", cookieTokenMiddleware(conf.Server.AuthCookieName))
	authed := []echo.MiddlewareFunc{
		middleware.JWTWithConfig(jwtConfig(conf)),
		contextUserMiddleware(deps.UserSvc),
	}

	registerAuthAPI(v1, authed, &authApi{
		conf:      conf,
		usrSvc:    deps.UserSvc,
		sectorSvc: deps.SectorSvc,
		validate:  deps.Validate,
		logger:    deps.Logger,
	})

	ag := v1.Group("", authed...)
	registerUserAPI(ag, deps.UserSvc, deps.Validate)
	registerSectorAPI(ag, deps.SectorSvc, deps.Validate)
	registerNewsAPI(ag, deps.NewsSvc, deps.SectorSvc, deps.Validate)
	registerBannerAPI(ag, deps.BannerSvc, deps.Validate)
	registerVideoAPI(ag, deps.VideoSvc, deps.Validate)
	registerEventAPI(ag, deps.EventSvc, deps.Validate)
	registerCollectionAPI(ag, deps.CollectionSvc, deps.Validate)
	registerPositionAPI(ag, deps.PositionSvc, deps.Validate)
	registerSystemLinkAPI(ag, deps.SystemLinkSvc, deps.Validate)
	registerStatsAPI(ag, deps.StatsSvc)
}

// Start blocks until the server stops; a failure is reported on Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.addr); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Portal Cresol API!")
}

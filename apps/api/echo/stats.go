package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/cresol/portal/core/stats"
)

func registerStatsAPI(g *echo.Group, svc stats.Service) {
	g.GET("/admin/stats", func(ctx echo.Context) error {
		ctxUsr, err := getContextUser(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context user")
		}
		st, err := svc.Get(ctx.Request().Context(), ctxUsr)
		if err != nil {
			return errors.Wrap(err, "getting dashboard stats")
		}
		return ctx.JSON(http.StatusOK, st)
	}, adminMiddleware())
}

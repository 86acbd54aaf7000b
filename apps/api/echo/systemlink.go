package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/cresol/portal/core/systemlink"
)

type systemLinkApi struct {
	svc      systemlink.Service
	validate *validator.Validate
}

func registerSystemLinkAPI(g *echo.Group, svc systemlink.Service, validate *validator.Validate) {
	api := systemLinkApi{svc: svc, validate: validate}

	lg := g.Group("/system-links")
	lg.GET("", api.query)
	lg.POST("", api.create)

	dg := lg.Group("/:id", objectMiddleware(api.load))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
}

func (api *systemLinkApi) load(ctx echo.Context, id string) (interface{}, error) {
	return api.svc.GetByID(ctx.Request().Context(), id)
}

func (api *systemLinkApi) query(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	links, err := api.svc.Query(ctx.Request().Context(), ctxUsr)
	if err != nil {
		return errors.Wrap(err, "querying system links")
	}
	if links == nil {
		links = []systemlink.SystemLink{}
	}
	return ctx.JSON(http.StatusOK, links)
}

func (api *systemLinkApi) create(ctx echo.Context) error {
	var data systemlink.NewSystemLink
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSystemLink")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	l, err := api.svc.Create(ctx.Request().Context(), ctxUsr, data)
	if err != nil {
		return errors.Wrap(err, "creating system link")
	}
	return ctx.JSON(http.StatusCreated, l)
}

func (api *systemLinkApi) retrieve(ctx echo.Context) error {
	l, ok := ctx.Get(contextObjectKey).(systemlink.SystemLink)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving system link from context")
	}
	return ctx.JSON(http.StatusOK, l)
}

func (api *systemLinkApi) update(ctx echo.Context) error {
	l, ok := ctx.Get(contextObjectKey).(systemlink.SystemLink)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving system link from context")
	}
	var data systemlink.UpdateSystemLink
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSystemLink")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	l, err = api.svc.Update(ctx.Request().Context(), ctxUsr, l, data)
	if err != nil {
		return errors.Wrap(err, "updating system link")
	}
	return ctx.JSON(http.StatusOK, l)
}

func (api *systemLinkApi) destroy(ctx echo.Context) error {
	l, ok := ctx.Get(contextObjectKey).(systemlink.SystemLink)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving system link from context")
	}
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err = api.svc.Delete(ctx.Request().Context(), ctxUsr, l); err != nil {
		return errors.Wrap(err, "deleting system link")
	}
	return ctx.NoContent(http.StatusNoContent)
}

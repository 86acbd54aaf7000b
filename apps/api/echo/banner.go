package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/cresol/portal/core/banner"
)

type bannerApi struct {
	svc      banner.Service
	validate *validator.Validate
}

func registerBannerAPI(g *echo.Group, svc banner.Service, validate *validator.Validate) {
	api := bannerApi{svc: svc, validate: validate}

	bg := g.Group("/banners")
	bg.GET("", api.query)
	bg.POST("", api.create)
	bg.PUT("/order", api.reorder)

	dg := bg.Group("/:id", objectMiddleware(api.load))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
}

func (api *bannerApi) load(ctx echo.Context, id string) (interface{}, error) {
	return api.svc.GetByID(ctx.Request().Context(), id)
}

func (api *bannerApi) query(ctx echo.Context) error {
	filter := new(banner.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []banner.Banner{})
	}
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	// only admins see the whole carousel
	if !ctxUsr.IsAdmin() {
		filter.Active = true
	}

	banners, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying banners")
	}
	if banners == nil {
		banners = []banner.Banner{}
	}
	return ctx.JSON(http.StatusOK, banners)
}

func (api *bannerApi) create(ctx echo.Context) error {
	var data banner.NewBanner
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewBanner")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	b, err := api.svc.Create(ctx.Request().Context(), ctxUsr, data)
	if err != nil {
		return errors.Wrap(err, "creating banner")
	}
	return ctx.JSON(http.StatusCreated, b)
}

func (api *bannerApi) retrieve(ctx echo.Context) error {
	b, ok := ctx.Get(contextObjectKey).(banner.Banner)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving banner from context")
	}
	return ctx.JSON(http.StatusOK, b)
}

func (api *bannerApi) update(ctx echo.Context) error {
	b, ok := ctx.Get(contextObjectKey).(banner.Banner)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving banner from context")
	}
	var data banner.UpdateBanner
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateBanner")
	}
	if err := data.Validate(b, api.validate); err != nil {
		return err
	}
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	b, err = api.svc.Update(ctx.Request().Context(), ctxUsr, b, data)
	if err != nil {
		return errors.Wrap(err, "updating banner")
	}
	return ctx.JSON(http.StatusOK, b)
}

func (api *bannerApi) destroy(ctx echo.Context) error {
	b, ok := ctx.Get(contextObjectKey).(banner.Banner)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving banner from context")
	}
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err = api.svc.Delete(ctx.Request().Context(), ctxUsr, b); err != nil {
		return errors.Wrap(err, "deleting banner")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *bannerApi) reorder(ctx echo.Context) error {
	var data banner.Reorder
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Reorder")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	banners, err := api.svc.Reorder(ctx.Request().Context(), ctxUsr, data)
	if err != nil {
		return errors.Wrap(err, "reordering banners")
	}
	return ctx.JSON(http.StatusOK, banners)
}

package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/cresol/portal/core/position"
)

type positionApi struct {
	svc      position.Service
	validate *validator.Validate
}

func registerPositionAPI(g *echo.Group, svc position.Service, validate *validator.Validate) {
	api := positionApi{svc: svc, validate: validate}

	pg := g.Group("/positions")
	pg.GET("", api.query)
	pg.POST("", api.create)

	dg := pg.Group("/:id", objectMiddleware(api.load))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
}

func (api *positionApi) load(ctx echo.Context, id string) (interface{}, error) {
	return api.svc.GetByID(ctx.Request().Context(), id)
}

func (api *positionApi) query(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	positions, err := api.svc.Query(ctx.Request().Context(), ctxUsr)
	if err != nil {
		return errors.Wrap(err, "querying positions")
	}
	if positions == nil {
		positions = []position.Position{}
	}
	return ctx.JSON(http.StatusOK, positions)
}

func (api *positionApi) create(ctx echo.Context) error {
	var data position.NewPosition
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPosition")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	p, err := api.svc.Create(ctx.Request().Context(), ctxUsr, data)
	if err != nil {
		return errors.Wrap(err, "creating position")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *positionApi) retrieve(ctx echo.Context) error {
	p, ok := ctx.Get(contextObjectKey).(position.Position)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving position from context")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *positionApi) update(ctx echo.Context) error {
	p, ok := ctx.Get(contextObjectKey).(position.Position)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving position from context")
	}
	var data position.UpdatePosition
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdatePosition")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	p, err = api.svc.Update(ctx.Request().Context(), ctxUsr, p, data)
	if err != nil {
		return errors.Wrap(err, "updating position")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *positionApi) destroy(ctx echo.Context) error {
	p, ok := ctx.Get(contextObjectKey).(position.Position)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving position from context")
	}
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err = api.svc.Delete(ctx.Request().Context(), ctxUsr, p); err != nil {
		return errors.Wrap(err, "deleting position")
	}
	return ctx.NoContent(http.StatusNoContent)
}

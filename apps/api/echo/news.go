package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/cresol/portal/core/news"
	"github.com/cresol/portal/core/sector"
)

type newsApi struct {
	svc       news.Service
	sectorSvc sector.Service
	validate  *validator.Validate
}

func registerNewsAPI(g *echo.Group, svc news.Service, sectorSvc sector.Service, validate *validator.Validate) {
	api := newsApi{svc: svc, sectorSvc: sectorSvc, validate: validate}

	ng := g.Group("/news")
	ng.GET("/unified", api.unified)

	ng.GET("/general", api.queryGeneral)
	ng.POST("/general", api.createGeneral)
	gdg := ng.Group("/general/:id", objectMiddleware(api.loader(news.SourceGeneral)), api.visibleMiddleware)
	gdg.GET("", api.retrieve)
	gdg.PUT("", api.update)
	gdg.DELETE("", api.destroy)

	sdg := ng.Group("/sector/:id", objectMiddleware(api.loader(news.SourceSector)), api.visibleMiddleware)
	sdg.GET("", api.retrieve)
	sdg.PUT("", api.update)
	sdg.DELETE("", api.destroy)

	// a sector's news
	sg := g.Group("/sectors/:id/news", detailMiddleware("id", "sector", api.loadSector))
	sg.GET("", api.querySector)
	sg.POST("", api.createSector)
}

func (api *newsApi) loader(source string) loaderFunc {
	return func(ctx echo.Context, id string) (interface{}, error) {
		return api.svc.GetByID(ctx.Request().Context(), source, id)
	}
}

func (api *newsApi) loadSector(ctx echo.Context, id string) (interface{}, error) {
	return api.sectorSvc.GetByID(ctx.Request().Context(), id)
}

// visibleMiddleware hides unpublished news from users who cannot manage them.
func (api *newsApi) visibleMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		n, ok := ctx.Get(contextObjectKey).(news.News)
		if !ok {
			return errors.Wrap(errObjNotFoundInCtx, "retrieving news from context")
		}
		if n.IsPublished {
			return next(ctx)
		}
		ctxUsr, err := getContextUser(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context user")
		}
		canManage, err := api.svc.CanManage(ctx.Request().Context(), ctxUsr, n.SectorID)
		if err != nil {
			return errors.Wrap(err, "checking news rights")
		}
		if !canManage {
			return errHttpNotFound
		}
		return next(ctx)
	}
}

func (api *newsApi) unified(ctx echo.Context) error {
	var filter news.UnifiedFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to UnifiedFilter")
	}
	if err := filter.Validate(api.validate); err != nil {
		return err
	}

	items, err := api.svc.Unified(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "building unified news")
	}
	if items == nil {
		items = []news.UnifiedItem{}
	}
	return ctx.JSON(http.StatusOK, items)
}

func (api *newsApi) list(ctx echo.Context, filter *news.QueryFilter) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	list, err := api.svc.Query(ctx.Request().Context(), ctxUsr, filter)
	if err != nil {
		return errors.Wrap(err, "querying news")
	}
	if list == nil {
		list = []news.News{}
	}
	return ctx.JSON(http.StatusOK, list)
}

func (api *newsApi) queryGeneral(ctx echo.Context) error {
	filter := new(news.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []news.News{})
	}
	filter.Clean()
	filter.Source = news.SourceGeneral
	return api.list(ctx, filter)
}

func (api *newsApi) querySector(ctx echo.Context) error {
	s, ok := ctx.Get("sector").(sector.Sector)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving sector from context")
	}
	filter := new(news.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []news.News{})
	}
	filter.Clean()
	filter.Source = news.SourceSector
	filter.SectorID = s.ID
	return api.list(ctx, filter)
}

func (api *newsApi) create(ctx echo.Context, sectorID *string) error {
	var data news.NewNews
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewNews")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	n, err := api.svc.Create(ctx.Request().Context(), ctxUsr, sectorID, data)
	if err != nil {
		return errors.Wrap(err, "creating news")
	}
	return ctx.JSON(http.StatusCreated, n)
}

func (api *newsApi) createGeneral(ctx echo.Context) error {
	return api.create(ctx, nil)
}

func (api *newsApi) createSector(ctx echo.Context) error {
	s, ok := ctx.Get("sector").(sector.Sector)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving sector from context")
	}
	return api.create(ctx, &s.ID)
}

func (api *newsApi) retrieve(ctx echo.Context) error {
	n, ok := ctx.Get(contextObjectKey).(news.News)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving news from context")
	}
	return ctx.JSON(http.StatusOK, n)
}

func (api *newsApi) update(ctx echo.Context) error {
	n, ok := ctx.Get(contextObjectKey).(news.News)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving news from context")
	}
	var data news.UpdateNews
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateNews")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	n, err = api.svc.Update(ctx.Request().Context(), ctxUsr, n, data)
	if err != nil {
		return errors.Wrap(err, "updating news")
	}
	return ctx.JSON(http.StatusOK, n)
}

func (api *newsApi) destroy(ctx echo.Context) error {
	n, ok := ctx.Get(contextObjectKey).(news.News)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving news from context")
	}
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err = api.svc.Delete(ctx.Request().Context(), ctxUsr, n); err != nil {
		return errors.Wrap(err, "deleting news")
	}
	return ctx.NoContent(http.StatusNoContent)
}

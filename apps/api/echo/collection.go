package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/cresol/portal/core/collection"
)

const contextItemKey = "item"

type collectionApi struct {
	svc      collection.Service
	validate *validator.Validate
}

func registerCollectionAPI(g *echo.Group, svc collection.Service, validate *validator.Validate) {
	api := collectionApi{svc: svc, validate: validate}

	cg := g.Group("/collections")
	cg.GET("", api.query)
	cg.POST("", api.create)

	dg := cg.Group("/:id", objectMiddleware(api.load))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
	dg.POST("/items", api.addItem)

	ig := dg.Group("/items/:itemId", detailMiddleware("itemId", contextItemKey, api.loadItem))
	ig.PUT("", api.updateItem)
	ig.DELETE("", api.removeItem)
}

func (api *collectionApi) load(ctx echo.Context, id string) (interface{}, error) {
	c, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil || c.IsActive {
		return c, err
	}
	// inactive collections only exist for admins
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "getting context user")
	}
	if !ctxUsr.IsAdmin() {
		return nil, collection.ErrNotFound
	}
	return c, nil
}

func (api *collectionApi) loadItem(ctx echo.Context, id string) (interface{}, error) {
	c, ok := ctx.Get(contextObjectKey).(collection.Collection)
	if !ok {
		return nil, errors.Wrap(errObjNotFoundInCtx, "retrieving collection from context")
	}
	return api.svc.GetItem(ctx.Request().Context(), c, id)
}

func ctxCollection(ctx echo.Context) (collection.Collection, error) {
	c, ok := ctx.Get(contextObjectKey).(collection.Collection)
	if !ok {
		return collection.Collection{}, errors.Wrap(errObjNotFoundInCtx, "retrieving collection from context")
	}
	return c, nil
}

func (api *collectionApi) query(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	colls, err := api.svc.Query(ctx.Request().Context(), ctxUsr)
	if err != nil {
		return errors.Wrap(err, "querying collections")
	}
	if colls == nil {
		colls = []collection.Collection{}
	}
	return ctx.JSON(http.StatusOK, colls)
}

func (api *collectionApi) create(ctx echo.Context) error {
	var data collection.NewCollection
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCollection")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	c, err := api.svc.Create(ctx.Request().Context(), ctxUsr, data)
	if err != nil {
		return errors.Wrap(err, "creating collection")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *collectionApi) retrieve(ctx echo.Context) error {
	c, err := ctxCollection(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *collectionApi) update(ctx echo.Context) error {
	c, err := ctxCollection(ctx)
	if err != nil {
		return err
	}
	var data collection.UpdateCollection
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCollection")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	c, err = api.svc.Update(ctx.Request().Context(), ctxUsr, c, data)
	if err != nil {
		return errors.Wrap(err, "updating collection")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *collectionApi) destroy(ctx echo.Context) error {
	c, err := ctxCollection(ctx)
	if err != nil {
		return err
	}
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err = api.svc.Delete(ctx.Request().Context(), ctxUsr, c); err != nil {
		return errors.Wrap(err, "deleting collection")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Items

func (api *collectionApi) addItem(ctx echo.Context) error {
	c, err := ctxCollection(ctx)
	if err != nil {
		return err
	}
	var data collection.NewItem
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewItem")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	it, err := api.svc.AddItem(ctx.Request().Context(), ctxUsr, c, data)
	if err != nil {
		return errors.Wrap(err, "adding collection item")
	}
	return ctx.JSON(http.StatusCreated, it)
}

func (api *collectionApi) updateItem(ctx echo.Context) error {
	c, err := ctxCollection(ctx)
	if err != nil {
		return err
	}
	it, ok := ctx.Get(contextItemKey).(collection.Item)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving collection item from context")
	}
	var data collection.UpdateItem
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateItem")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	it, err = api.svc.UpdateItem(ctx.Request().Context(), ctxUsr, c, it, data)
	if err != nil {
		return errors.Wrap(err, "updating collection item")
	}
	return ctx.JSON(http.StatusOK, it)
}

func (api *collectionApi) removeItem(ctx echo.Context) error {
	c, err := ctxCollection(ctx)
	if err != nil {
		return err
	}
	it, ok := ctx.Get(contextItemKey).(collection.Item)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving collection item from context")
	}
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err = api.svc.RemoveItem(ctx.Request().Context(), ctxUsr, c, it); err != nil {
		return errors.Wrap(err, "removing collection item")
	}
	return ctx.NoContent(http.StatusNoContent)
}

package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/cresol/portal/core/sector"
	"github.com/cresol/portal/core/user"
)

const contextSubsectorKey = "subsector"

type sectorApi struct {
	svc      sector.Service
	validate *validator.Validate
}

func registerSectorAPI(g *echo.Group, svc sector.Service, validate *validator.Validate) {
	api := sectorApi{svc: svc, validate: validate}

	sg := g.Group("/sectors")
	sg.GET("", api.query)
	sg.POST("", api.create)

	dg := sg.Group("/:id", objectMiddleware(api.loadSector))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
	dg.GET("/subsectors", api.querySubsectors)
	dg.POST("/subsectors", api.createSubsector)
	dg.GET("/admins", api.queryAdmins)
	dg.POST("/admins", api.addAdmin)
	dg.DELETE("/admins/:userId", api.removeAdmin)

	ssg := g.Group("/subsectors/:id", detailMiddleware("id", contextSubsectorKey, api.loadSubsector))
	ssg.GET("", api.retrieveSubsector)
	ssg.PUT("", api.updateSubsector)
	ssg.DELETE("", api.destroySubsector)
	ssg.GET("/admins", api.querySubsectorAdmins)
	ssg.POST("/admins", api.addSubsectorAdmin)
	ssg.DELETE("/admins/:userId", api.removeSubsectorAdmin)
}

func (api *sectorApi) loadSector(ctx echo.Context, id string) (interface{}, error) {
	return api.svc.GetByID(ctx.Request().Context(), id)
}

func (api *sectorApi) loadSubsector(ctx echo.Context, id string) (interface{}, error) {
	return api.svc.GetSubsector(ctx.Request().Context(), id)
}

func ctxSector(ctx echo.Context) (sector.Sector, error) {
	s, ok := ctx.Get(contextObjectKey).(sector.Sector)
	if !ok {
		return sector.Sector{}, errors.Wrap(errObjNotFoundInCtx, "retrieving sector from context")
	}
	return s, nil
}

func ctxSubsector(ctx echo.Context) (sector.Subsector, error) {
	sub, ok := ctx.Get(contextSubsectorKey).(sector.Subsector)
	if !ok {
		return sector.Subsector{}, errors.Wrap(errObjNotFoundInCtx, "retrieving subsector from context")
	}
	return sub, nil
}

// Sectors

func (api *sectorApi) query(ctx echo.Context) error {
	filter := new(sector.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []sector.Sector{})
	}
	filter.Clean()

	sectors, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying sectors")
	}
	if sectors == nil {
		sectors = []sector.Sector{}
	}
	return ctx.JSON(http.StatusOK, sectors)
}

func (api *sectorApi) create(ctx echo.Context) error {
	var data sector.NewSector
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSector")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	s, err := api.svc.Create(ctx.Request().Context(), ctxUsr, data)
	if err != nil {
		return errors.Wrap(err, "creating sector")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *sectorApi) retrieve(ctx echo.Context) error {
	s, err := ctxSector(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *sectorApi) update(ctx echo.Context) error {
	s, err := ctxSector(ctx)
	if err != nil {
		return err
	}
	var data sector.UpdateSector
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSector")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	s, err = api.svc.Update(ctx.Request().Context(), ctxUsr, s, data)
	if err != nil {
		return errors.Wrap(err, "updating sector")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *sectorApi) destroy(ctx echo.Context) error {
	s, err := ctxSector(ctx)
	if err != nil {
		return err
	}
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err = api.svc.Delete(ctx.Request().Context(), ctxUsr, s); err != nil {
		return errors.Wrap(err, "deleting sector")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *sectorApi) queryAdmins(ctx echo.Context) error {
	s, err := ctxSector(ctx)
	if err != nil {
		return err
	}
	admins, err := api.svc.ListSectorAdmins(ctx.Request().Context(), s.ID)
	if err != nil {
		return errors.Wrap(err, "listing sector admins")
	}
	if admins == nil {
		admins = []user.User{}
	}
	return ctx.JSON(http.StatusOK, admins)
}

func (api *sectorApi) addAdmin(ctx echo.Context) error {
	s, err := ctxSector(ctx)
	if err != nil {
		return err
	}
	var data sector.AdminRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AdminRequest")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err = api.svc.AddSectorAdmin(ctx.Request().Context(), ctxUsr, s.ID, data.UserID); err != nil {
		return errors.Wrap(err, "adding sector admin")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *sectorApi) removeAdmin(ctx echo.Context) error {
	s, err := ctxSector(ctx)
	if err != nil {
		return err
	}
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err = api.svc.RemoveSectorAdmin(ctx.Request().Context(), ctxUsr, s.ID, ctx.Param("userId")); err != nil {
		return errors.Wrap(err, "removing sector admin")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Subsectors

func (api *sectorApi) querySubsectors(ctx echo.Context) error {
	s, err := ctxSector(ctx)
	if err != nil {
		return err
	}
	subs, err := api.svc.QuerySubsectors(ctx.Request().Context(), s.ID)
	if err != nil {
		return errors.Wrap(err, "querying subsectors")
	}
	if subs == nil {
		subs = []sector.Subsector{}
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *sectorApi) createSubsector(ctx echo.Context) error {
	s, err := ctxSector(ctx)
	if err != nil {
		return err
	}
	var data sector.NewSector
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSector")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	sub, err := api.svc.CreateSubsector(ctx.Request().Context(), ctxUsr, s.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating subsector")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *sectorApi) retrieveSubsector(ctx echo.Context) error {
	sub, err := ctxSubsector(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *sectorApi) updateSubsector(ctx echo.Context) error {
	sub, err := ctxSubsector(ctx)
	if err != nil {
		return err
	}
	var data sector.UpdateSector
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSector")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	sub, err = api.svc.UpdateSubsector(ctx.Request().Context(), ctxUsr, sub, data)
	if err != nil {
		return errors.Wrap(err, "updating subsector")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *sectorApi) destroySubsector(ctx echo.Context) error {
	sub, err := ctxSubsector(ctx)
	if err != nil {
		return err
	}
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err = api.svc.DeleteSubsector(ctx.Request().Context(), ctxUsr, sub); err != nil {
		return errors.Wrap(err, "deleting subsector")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *sectorApi) querySubsectorAdmins(ctx echo.Context) error {
	sub, err := ctxSubsector(ctx)
	if err != nil {
		return err
	}
	admins, err := api.svc.ListSubsectorAdmins(ctx.Request().Context(), sub)
	if err != nil {
		return errors.Wrap(err, "listing subsector admins")
	}
	if admins == nil {
		admins = []user.User{}
	}
	return ctx.JSON(http.StatusOK, admins)
}

func (api *sectorApi) addSubsectorAdmin(ctx echo.Context) error {
	sub, err := ctxSubsector(ctx)
	if err != nil {
		return err
	}
	var data sector.AdminRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AdminRequest")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err = api.svc.AddSubsectorAdmin(ctx.Request().Context(), ctxUsr, sub, data.UserID); err != nil {
		return errors.Wrap(err, "adding subsector admin")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *sectorApi) removeSubsectorAdmin(ctx echo.Context) error {
	sub, err := ctxSubsector(ctx)
	if err != nil {
		return err
	}
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err = api.svc.RemoveSubsectorAdmin(ctx.Request().Context(), ctxUsr, sub, ctx.Param("userId")); err != nil {
		return errors.Wrap(err, "removing subsector admin")
	}
	return ctx.NoContent(http.StatusNoContent)
}

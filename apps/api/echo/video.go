package echoapi

import (
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/cresol/portal/core"
	"github.com/cresol/portal/core/video"
)

const uploadField = "file"

type videoApi struct {
	svc      video.Service
	validate *validator.Validate
}

func registerVideoAPI(g *echo.Group, svc video.Service, validate *validator.Validate) {
	api := videoApi{svc: svc, validate: validate}

	vg := g.Group("/videos")
	vg.GET("", api.query)
	vg.POST("", api.create)

	dg := vg.Group("/:id", objectMiddleware(api.load))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
	dg.POST("/thumbnail", api.setThumbnail)
}

func (api *videoApi) load(ctx echo.Context, id string) (interface{}, error) {
	return api.svc.GetByID(ctx.Request().Context(), id)
}

// formUpload opens the uploaded file of the request, if any. The caller closes it.
func formUpload(ctx echo.Context) (*video.Upload, multipart.File, error) {
	fh, err := ctx.FormFile(uploadField)
	if err != nil {
		if err == http.ErrMissingFile || err == http.ErrNotMultipart {
			return nil, nil, nil
		}
		return nil, nil, errors.Wrap(err, "reading uploaded file")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, nil, errors.Wrap(err, "opening uploaded file")
	}
	return &video.Upload{Name: fh.Filename, Size: fh.Size, Content: f}, f, nil
}

func (api *videoApi) query(ctx echo.Context) error {
	filter := new(video.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []video.Video{})
	}
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if !ctxUsr.IsAdmin() {
		active := true
		filter.IsActive = &active
	}

	videos, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying videos")
	}
	if videos == nil {
		videos = []video.Video{}
	}
	return ctx.JSON(http.StatusOK, videos)
}

func (api *videoApi) create(ctx echo.Context) error {
	var data video.NewVideo
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewVideo")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	upload, f, err := formUpload(ctx)
	if err != nil {
		return err
	}
	if f != nil {
		defer f.Close()
	}

	v, err := api.svc.Create(ctx.Request().Context(), ctxUsr, data, upload)
	if err != nil {
		return errors.Wrap(err, "creating video")
	}
	return ctx.JSON(http.StatusCreated, v)
}

func (api *videoApi) retrieve(ctx echo.Context) error {
	v, ok := ctx.Get(contextObjectKey).(video.Video)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving video from context")
	}
	return ctx.JSON(http.StatusOK, v)
}

func (api *videoApi) update(ctx echo.Context) error {
	v, ok := ctx.Get(contextObjectKey).(video.Video)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving video from context")
	}
	var data video.UpdateVideo
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateVideo")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	v, err = api.svc.Update(ctx.Request().Context(), ctxUsr, v, data)
	if err != nil {
		return errors.Wrap(err, "updating video")
	}
	return ctx.JSON(http.StatusOK, v)
}

func (api *videoApi) destroy(ctx echo.Context) error {
	v, ok := ctx.Get(contextObjectKey).(video.Video)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving video from context")
	}
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err = api.svc.Delete(ctx.Request().Context(), ctxUsr, v); err != nil {
		return errors.Wrap(err, "deleting video")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// setThumbnail expects a multipart image under "file" and, optionally, the capture time under "at" (seconds).
func (api *videoApi) setThumbnail(ctx echo.Context) error {
	v, ok := ctx.Get(contextObjectKey).(video.Video)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving video from context")
	}
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var at *float64
	if val := ctx.FormValue("at"); val != "" {
		secs, err := strconv.ParseFloat(val, 64)
		if err != nil || secs < 0 {
			return core.NewFieldValidationError("at", "must be a positive number of seconds")
		}
		at = &secs
	}

	upload, f, err := formUpload(ctx)
	if err != nil {
		return err
	}
	if f != nil {
		defer f.Close()
	}

	v, err = api.svc.SetThumbnail(ctx.Request().Context(), ctxUsr, v, upload, at)
	if err != nil {
		return errors.Wrap(err, "setting video thumbnail")
	}
	return ctx.JSON(http.StatusOK, v)
}

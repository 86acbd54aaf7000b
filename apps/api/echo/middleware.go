package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

const contextObjectKey = "object"

func adminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			if usr.IsAdmin() {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// loaderFunc fetches the object a detail route points to.
type loaderFunc func(ctx echo.Context, id string) (interface{}, error)

// detailMiddleware loads the object identified by the `param` path parameter into the context under `key`.
// Unknown objects end the request with a 404.
func detailMiddleware(param, key string, load loaderFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			obj, err := load(ctx, ctx.Param(param))
			if err != nil {
				if isNotFound(err) {
					return errHttpNotFound
				}
				return errors.Wrapf(err, "loading %s", key)
			}
			ctx.Set(key, obj)
			return next(ctx)
		}
	}
}

func objectMiddleware(load loaderFunc) echo.MiddlewareFunc {
	return detailMiddleware("id", contextObjectKey, load)
}

package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/cresol/portal/core"
	"github.com/cresol/portal/core/banner"
	"github.com/cresol/portal/core/collection"
	"github.com/cresol/portal/core/event"
	"github.com/cresol/portal/core/news"
	"github.com/cresol/portal/core/position"
	"github.com/cresol/portal/core/sector"
	"github.com/cresol/portal/core/systemlink"
	"github.com/cresol/portal/core/user"
	"github.com/cresol/portal/core/video"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "invalid credentials")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")

	errObjNotFoundInCtx = errors.New("object not found in echo.Context")

	notFoundErrs = map[error]struct{}{
		user.ErrNotFound:            {},
		sector.ErrNotFound:          {},
		sector.ErrSubsectorNotFound: {},
		banner.ErrNotFound:          {},
		video.ErrNotFound:           {},
		news.ErrNotFound:            {},
		event.ErrNotFound:           {},
		collection.ErrNotFound:      {},
		collection.ErrItemNotFound:  {},
		position.ErrNotFound:        {},
		systemlink.ErrNotFound:      {},
	}
)

func isNotFound(err error) bool {
	_, ok := notFoundErrs[errors.Cause(err)]
	return ok
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		case core.DBError:
			if origErr.IsConstraintViolation() {
				code = http.StatusBadRequest
				message = origErr
				break
			}
			code, message = serverError(ctx, logger, err)
		default:
			switch {
			case origErr == core.ErrForbidden, origErr == user.ErrSelfDelete:
				code = http.StatusForbidden
				message = origErr.Error()
			case origErr == core.ErrOrderIndexConflict:
				code = http.StatusBadRequest
				message = origErr.Error()
			case isNotFound(origErr):
				code = http.StatusNotFound
				message = origErr.Error()
			default: // any other error is a server error
				code, message = serverError(ctx, logger, err)

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug && code >= http.StatusInternalServerError {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

func serverError(ctx echo.Context, logger core.Logger, err error) (int, string) {
	msg := http.StatusText(http.StatusInternalServerError)

	var usr user.User
	if u, uErr := getContextUser(ctx); uErr == nil {
		usr = u
	} else if claims, cErr := getContextClaims(ctx); cErr == nil {
		usr.ID = claims.Subject
		usr.Email = claims.Email
		usr.FullName = claims.FullName
	}
	logger.Error(msg, errors.Wrap(err, msg), usr)
	return http.StatusInternalServerError, msg
}

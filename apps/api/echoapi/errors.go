package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/tshola/ngoma/core"
	"github.com/tshola/ngoma/core/chat"
	"github.com/tshola/ngoma/core/course"
	"github.com/tshola/ngoma/core/feedback"
	"github.com/tshola/ngoma/core/member"
	"github.com/tshola/ngoma/core/redeem"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "member not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHTTPForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")

	notFoundErrs = []error{
		member.ErrNotFound, course.ErrNotFound, course.ErrLessonNotFound,
		course.ErrCommentNotFound, chat.ErrNotFound, redeem.ErrNotFound,
		feedback.ErrNotFound,
	}
	badRequestErrs = []error{
		redeem.ErrExpired, redeem.ErrExhausted, redeem.ErrAlreadyRedeemed,
	}
	notAllowedErrs = []error{
		course.ErrNotAllowed, chat.ErrNotAllowed, redeem.ErrNotAllowed,
		feedback.ErrNotAllowed,
	}
)

func isIn(err error, errs []error) bool {
	for _, e := range errs {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
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
				fldErrs[vErr.Field()] = vErr.Translate(core.Translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if flds := origErr.FieldMap(); flds != nil {
				message = flds
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		default:
			switch {
			case isIn(err, notFoundErrs):
				code = http.StatusNotFound
				message = origErr.Error()
			case isIn(err, notAllowedErrs):
				code = http.StatusForbidden
				message = origErr.Error()
			case isIn(err, badRequestErrs):
				code = http.StatusBadRequest
				message = origErr.Error()
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg

				var mbr member.Member
				if claims, cErr := getContextClaims(ctx); cErr == nil {
					mbr.Key = claims.Subject
					mbr.Username = claims.Username
					mbr.Email = claims.Email
				}
				logger.Error(msg, errors.Wrap(err, msg), mbr)

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		} else if m, ok := message.(string); ok {
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

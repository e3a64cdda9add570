package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/tshola/ngoma/core/member"
)

func adminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAdmin {
				return next(ctx)
			}
			return errHTTPForbidden
		}
	}
}

// requireCapability resolves the acting member's capabilities once and rejects
// the request when cap is missing.
func (s *server) requireCapability(cap member.Capability) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			mbr, err := s.getContextMember(ctx)
			if err != nil {
				return err
			}
			if !mbr.Can(cap) {
				return errHTTPForbidden
			}
			return next(ctx)
		}
	}
}

// selfOrAdminMiddleware allows a member through for their own :key, admins for
// any key.
func (s *server) selfOrAdminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAdmin || claims.Subject == ctx.Param("key") {
				return next(ctx)
			}
			return errHTTPForbidden
		}
	}
}

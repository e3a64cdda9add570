package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tshola/ngoma/core"
	"github.com/tshola/ngoma/core/redeem"
)

type redeemRequest struct {
	Code string `json:"code" validate:"required"`
}

func (r *redeemRequest) Validate() error {
	r.Code = core.CleanString(r.Code, true /* lower */)
	return core.Validate.Struct(r)
}

func (s *server) registerRedeemAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	kg := g.Group("/keys", jwt)

	kg.POST("", s.keyCreate)
	kg.GET("", s.keyQuery)
	kg.DELETE("/:key", s.keyRevoke)
	kg.POST("/redeem", s.keyRedeem)
}

// Handlers

func (s *server) keyCreate(ctx echo.Context) error {
	data := new(redeem.NewKey)
	if err := ctx.Bind(data); err != nil {
		return err
	}

	mbr, err := s.getContextMember(ctx)
	if err != nil {
		return err
	}
	key, err := s.opts.RedeemSvc.Create(ctx.Request().Context(), *data, &mbr)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, key)
}

func (s *server) keyQuery(ctx echo.Context) error {
	mbr, err := s.getContextMember(ctx)
	if err != nil {
		return err
	}
	keys, err := s.opts.RedeemSvc.QueryAll(&mbr)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, keys)
}

func (s *server) keyRevoke(ctx echo.Context) error {
	mbr, err := s.getContextMember(ctx)
	if err != nil {
		return err
	}
	if err = s.opts.RedeemSvc.Revoke(ctx.Request().Context(), ctx.Param("key"), &mbr); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *server) keyRedeem(ctx echo.Context) error {
	data := new(redeemRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	mbr, err := s.getContextMember(ctx)
	if err != nil {
		return err
	}
	key, err := s.opts.RedeemSvc.Redeem(ctx.Request().Context(), data.Code, mbr.Key)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"code": key.Code, "grant": key.Grant})
}

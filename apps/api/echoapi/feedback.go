package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tshola/ngoma/core/feedback"
)

func (s *server) registerFeedbackAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	fg := g.Group("/feedback", jwt)

	fg.POST("", s.feedbackSubmit)
	fg.GET("", s.feedbackQuery)
	fg.DELETE("/:key", s.feedbackDestroy)
}

// Handlers

func (s *server) feedbackSubmit(ctx echo.Context) error {
	data := new(feedback.NewFeedback)
	if err := ctx.Bind(data); err != nil {
		return err
	}

	mbr, err := s.getContextMember(ctx)
	if err != nil {
		return err
	}
	fb, err := s.opts.FeedbackSvc.Submit(ctx.Request().Context(), *data, mbr.Key)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, fb)
}

func (s *server) feedbackQuery(ctx echo.Context) error {
	mbr, err := s.getContextMember(ctx)
	if err != nil {
		return err
	}
	fbs, err := s.opts.FeedbackSvc.QueryAll(&mbr)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, fbs)
}

func (s *server) feedbackDestroy(ctx echo.Context) error {
	mbr, err := s.getContextMember(ctx)
	if err != nil {
		return err
	}
	if err = s.opts.FeedbackSvc.Delete(ctx.Request().Context(), ctx.Param("key"), &mbr); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

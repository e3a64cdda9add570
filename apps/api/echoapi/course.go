package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tshola/ngoma/core"
	"github.com/tshola/ngoma/core/course"
	"github.com/tshola/ngoma/core/member"
)

type (
	publishRequest struct {
		Published bool `json:"published"`
	}

	newCommentRequest struct {
		Body string `json:"body" validate:"required,max=2000"`
	}
)

func (r *newCommentRequest) Validate() error {
	r.Body = core.CleanString(r.Body)
	return core.Validate.Struct(r)
}

func (s *server) registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	cg := g.Group("/courses")

	// created before the open routes: echo's Group registers an Any("")
	// placeholder carrying the jwt middleware, and the later cg.GET("")
	// must overwrite it so the catalog stays public
	ag := cg.Group("", jwt)

	// browsing is open; the mobile app shows the catalog before sign-in
	cg.GET("", s.courseCatalog)
	cg.GET("/:key", s.courseRetrieve)
	cg.GET("/:key/lessons", s.courseLessons)
	cg.GET("/:key/comments", s.courseComments)

	ag.GET("/all", s.courseQueryAll, s.requireCapability(member.CapPublishCourses))
	ag.POST("", s.courseCreate, s.requireCapability(member.CapPublishCourses))
	ag.PUT("/:key/publish", s.coursePublish)
	ag.DELETE("/:key", s.courseDestroy)
	ag.POST("/:key/lessons", s.courseAddLesson, s.requireCapability(member.CapPublishCourses))
	ag.POST("/:key/comments", s.courseAddComment)
	ag.DELETE("/comments/:key", s.courseModerateComment)
}

// Handlers

func (s *server) courseCatalog(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, s.opts.CourseSvc.Catalog())
}

func (s *server) courseQueryAll(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, s.opts.CourseSvc.QueryAll())
}

func (s *server) courseCreate(ctx echo.Context) error {
	data := new(course.NewCourse)
	if err := ctx.Bind(data); err != nil {
		return err
	}

	mbr, err := s.getContextMember(ctx)
	if err != nil {
		return err
	}
	data.TrainerKey = mbr.Key

	crs, err := s.opts.CourseSvc.Create(ctx.Request().Context(), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (s *server) courseRetrieve(ctx echo.Context) error {
	crs, err := s.opts.CourseSvc.Get(ctx.Param("key"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (s *server) coursePublish(ctx echo.Context) error {
	data := new(publishRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}

	mbr, err := s.getContextMember(ctx)
	if err != nil {
		return err
	}
	crs, err := s.opts.CourseSvc.SetPublished(ctx.Request().Context(), ctx.Param("key"), data.Published, &mbr)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (s *server) courseDestroy(ctx echo.Context) error {
	mbr, err := s.getContextMember(ctx)
	if err != nil {
		return err
	}
	if err = s.opts.CourseSvc.Delete(ctx.Request().Context(), ctx.Param("key"), &mbr); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *server) courseAddLesson(ctx echo.Context) error {
	data := new(course.NewLesson)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	data.CourseKey = ctx.Param("key")

	lsn, err := s.opts.CourseSvc.AddLesson(ctx.Request().Context(), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, lsn)
}

func (s *server) courseLessons(ctx echo.Context) error {
	lessons := s.opts.CourseSvc.Lessons(ctx.Param("key"))
	return ctx.JSON(http.StatusOK, lessons)
}

func (s *server) courseAddComment(ctx echo.Context) error {
	data := new(newCommentRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}

	mbr, err := s.getContextMember(ctx)
	if err != nil {
		return err
	}

	cmt, err := s.opts.CourseSvc.AddComment(ctx.Request().Context(), course.NewComment{
		CourseKey: ctx.Param("key"),
		AuthorKey: mbr.Key,
		Body:      data.Body,
	})
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, cmt)
}

func (s *server) courseComments(ctx echo.Context) error {
	comments := s.opts.CourseSvc.Comments(ctx.Param("key"))
	return ctx.JSON(http.StatusOK, comments)
}

func (s *server) courseModerateComment(ctx echo.Context) error {
	mbr, err := s.getContextMember(ctx)
	if err != nil {
		return err
	}
	if err = s.opts.CourseSvc.ModerateComment(ctx.Request().Context(), ctx.Param("key"), &mbr); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

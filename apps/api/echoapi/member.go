package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tshola/ngoma/core"
	"github.com/tshola/ngoma/core/member"
)

type (
	loginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	loginResponse struct {
		Token string `json:"token"`
	}

	checkinResponse struct {
		Current   int  `json:"current"`
		Longest   int  `json:"longest"`
		DidChange bool `json:"did_change"`
	}

	usernameAvailableResponse struct {
		Username  string `json:"username"`
		Available bool   `json:"available"`
	}

	// memberResponse is the public view of a Member; the password hash and
	// raw login bookkeeping stay internal.
	memberResponse struct {
		Key           string    `json:"key"`
		Name          string    `json:"name"`
		Username      string    `json:"username"`
		Email         string    `json:"email"`
		IsActive      bool      `json:"is_active"`
		Roles         []string  `json:"roles"`
		StreakCurrent int       `json:"streak_current"`
		StreakLongest int       `json:"streak_longest"`
		CreatedAt     time.Time `json:"created_at"`
	}
)

func (r *loginRequest) Validate() error {
	r.Username = core.CleanString(r.Username, true /* lower */)
	return core.Validate.Struct(r)
}

func newMemberResponse(m member.Member) memberResponse {
	return memberResponse{
		Key:           m.Key,
		Name:          m.Name,
		Username:      m.Username,
		Email:         m.Email,
		IsActive:      m.IsActive,
		Roles:         m.Roles,
		StreakCurrent: m.StreakCurrent,
		StreakLongest: m.StreakLongest,
		CreatedAt:     m.CreatedAt,
	}
}

func (s *server) registerMemberAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	mg := g.Group("/members")

	// un-authed endpoints
	mg.POST("/login", s.memberLogin)
	mg.POST("/register", s.memberRegister)
	mg.GET("/username-available", s.memberUsernameAvailable)

	// authed endpoints
	ag := mg.Group("", jwt)
	ag.POST("/token-refresh", s.memberTokenRefresh)
	ag.GET("/me", s.memberMe)
	ag.POST("/me/checkin", s.memberCheckin)
	ag.GET("", s.memberQuery, adminMiddleware())

	// detail endpoints
	dg := ag.Group("/:key", s.selfOrAdminMiddleware())
	dg.GET("", s.memberRetrieve)
	dg.PUT("", s.memberUpdate)
	dg.DELETE("", s.memberDestroy, adminMiddleware())
}

// Handlers

func (s *server) memberLogin(ctx echo.Context) error {
	data := new(loginRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	claims, err := s.authenticate(ctx.Request().Context(), data.Username, data.Password)
	if err != nil {
		return err
	}
	token, err := s.generateToken(claims)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, loginResponse{Token: token})
}

func (s *server) memberRegister(ctx echo.Context) error {
	data := new(member.NewMember)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	data.Roles = nil // self-registration never picks roles

	mbr, err := s.opts.MemberSvc.Register(ctx.Request().Context(), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, newMemberResponse(mbr))
}

func (s *server) memberUsernameAvailable(ctx echo.Context) error {
	uname := core.CleanString(ctx.QueryParam("username"), true /* lower */)
	if uname == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username is required")
	}
	return ctx.JSON(http.StatusOK, usernameAvailableResponse{
		Username:  uname,
		Available: !s.opts.MemberSvc.UsernameTaken(uname),
	})
}

func (s *server) memberTokenRefresh(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	// a token can only be refreshed for so long after the original login
	origIat := time.Unix(claims.OrigIssuedAt, 0)
	if time.Since(origIat) > s.opts.Conf.JWTRefreshExpirationDelta {
		return errRefreshExpired
	}

	mbr, err := s.getContextMember(ctx, claims)
	if err != nil {
		return err
	}
	token, err := s.generateToken(s.getMemberClaims(mbr, claims.OrigIssuedAt))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, loginResponse{Token: token})
}

func (s *server) memberMe(ctx echo.Context) error {
	mbr, err := s.getContextMember(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, newMemberResponse(mbr))
}

// memberCheckin counts opening the app today towards the login streak.
func (s *server) memberCheckin(ctx echo.Context) error {
	mbr, err := s.getContextMember(ctx)
	if err != nil {
		return err
	}
	streak, changed, err := s.opts.MemberSvc.RecordLogin(ctx.Request().Context(), mbr.Key, time.Now())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, checkinResponse{
		Current:   streak.Current,
		Longest:   streak.Longest,
		DidChange: changed,
	})
}

func (s *server) memberQuery(ctx echo.Context) error {
	members := s.opts.MemberSvc.QueryAll()
	res := make([]memberResponse, 0, len(members))
	for _, m := range members {
		res = append(res, newMemberResponse(m))
	}
	return ctx.JSON(http.StatusOK, res)
}

func (s *server) memberRetrieve(ctx echo.Context) error {
	mbr, err := s.opts.MemberSvc.GetByKey(ctx.Param("key"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, newMemberResponse(mbr))
}

func (s *server) memberUpdate(ctx echo.Context) error {
	data := new(member.UpdateMember)
	if err := ctx.Bind(data); err != nil {
		return err
	}

	// only admins may touch roles or the active flag
	if claims, err := getContextClaims(ctx); err != nil || !claims.IsAdmin {
		data.Roles = nil
		data.IsActive = nil
	}

	mbr, err := s.opts.MemberSvc.Update(ctx.Request().Context(), ctx.Param("key"), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, newMemberResponse(mbr))
}

func (s *server) memberDestroy(ctx echo.Context) error {
	if err := s.opts.MemberSvc.Deactivate(ctx.Request().Context(), ctx.Param("key")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

package echoapi

import (
	"context"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/tshola/ngoma/core/member"
)

const contextMemberKey = "member"

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64    `json:"oriat,omitempty"`
	Username     string   `json:"username,omitempty"`
	Email        string   `json:"email,omitempty"`
	IsMember     bool     `json:"is_member,omitempty"`
	IsTrainer    bool     `json:"is_trainer,omitempty"`  // -> TRAINER TOOLS
	IsSupport    bool     `json:"is_support,omitempty"`  // -> SUPPORT INBOX
	IsAdmin      bool     `json:"is_admin,omitempty"`    // -> ADMIN PORTAL
	Roles        []string `json:"roles,omitempty"`
}

func (s *server) newJWTConfig() middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    s.opts.Conf.SecretKey,
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    "memberToken",
		Claims:        new(Claims),
	}
}

func (s *server) getMemberClaims(mbr member.Member, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	var oriat int64
	if len(origIat) > 0 {
		oriat = origIat[0]
	} else {
		oriat = nownix
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    s.opts.Conf.AppName,
			Subject:   mbr.Key,
			Audience:  "Ngoma",
			ExpiresAt: now.Add(s.opts.Conf.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Username:     mbr.Username,
		Email:        mbr.Email,
		IsMember:     !(mbr.IsAdmin() || mbr.IsSupport() || mbr.IsTrainer()),
		IsTrainer:    mbr.IsTrainer(),
		IsSupport:    mbr.IsSupport(),
		IsAdmin:      mbr.IsAdmin(),
		Roles:        mbr.Roles,
	}
}

// authenticate checks credentials, counts the login towards the member's day
// streak and returns fresh claims.
func (s *server) authenticate(ctx context.Context, uname, pwd string) (*Claims, error) {
	mbr, err := s.opts.MemberSvc.GetByUsernameOrEmail(uname)
	if err != nil {
		if errors.Is(err, member.ErrNotFound) {
			return nil, errAuthenticationFailed
		}
		return nil, errors.Wrap(err, "finding member by username or email")
	}
	if err = mbr.CheckPassword([]byte(pwd)); err != nil {
		return nil, errAuthenticationFailed
	}
	if !mbr.IsActive {
		return nil, errAccountDeactivated
	}
	if _, _, err = s.opts.MemberSvc.RecordLogin(ctx, mbr.Key, time.Now()); err != nil {
		return nil, errors.Wrap(err, "recording login")
	}
	return s.getMemberClaims(mbr), nil
}

// generateToken generates a signed JWT token string representing the member Claims.
func (s *server) generateToken(claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(middleware.AlgorithmHS256)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(s.opts.Conf.SecretKey)
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get("memberToken").(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func (s *server) getContextMember(ctx echo.Context, clms ...Claims) (member.Member, error) {
	if mbr, ok := ctx.Get(contextMemberKey).(member.Member); ok {
		return mbr, nil
	}

	var claims Claims
	var err error
	if len(clms) > 0 {
		claims = clms[0]
	} else {
		claims, err = getContextClaims(ctx)
		if err != nil {
			return member.Member{}, errors.Wrap(err, "getting context claims")
		}
	}

	mbr, err := s.opts.MemberSvc.GetByKey(claims.Subject)
	if err != nil {
		return member.Member{}, errors.Wrap(err, "finding member by key")
	}
	ctx.Set(contextMemberKey, mbr)
	return mbr, nil
}

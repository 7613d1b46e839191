// Package middleware holds the request-time guard and CSRF protection.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/rbac_auth/internal/logging"
	"github.com/Skotchmaster/rbac_auth/internal/tokens"
)

const (
	CookieAccessToken  = "accessToken"
	CookieRefreshToken = "refreshToken"

	ctxUserID = "user_id"
)

type Authorizer interface {
	Allowed(ctx context.Context, userID uuid.UUID, method, path string) (bool, error)
}

type Guard struct {
	Tokens *tokens.Manager
	Perms  Authorizer
}

func NewGuard(tm *tokens.Manager, perms Authorizer) *Guard {
	return &Guard{Tokens: tm, Perms: perms}
}

// RequireAuth accepts a valid access token from the Authorization header or,
// failing that, the access token cookie.
func (g *Guard) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := g.authenticate(c); err != nil {
			return err
		}
		return next(c)
	}
}

// RequirePermission authenticates the caller and checks the permission code of
// the matched route. Storage failures deny the request with 500.
func (g *Guard) RequirePermission(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := g.authenticate(c); err != nil {
			return err
		}

		ctx := c.Request().Context()
		l := logging.FromContext(ctx).With("middleware", "require_permission")
		uid, _ := UserID(c)

		ok, err := g.Perms.Allowed(ctx, uid, c.Request().Method, c.Path())
		if err != nil {
			l.Error("permission_check_failed", "status", 500, "user_id", uid, "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "permission check unavailable")
		}
		if !ok {
			l.Warn("permission_denied", "status", 403, "user_id", uid)
			return echo.NewHTTPError(http.StatusForbidden, "permission denied")
		}
		return next(c)
	}
}

func (g *Guard) authenticate(c echo.Context) error {
	raw, fromCookie := accessToken(c)
	if raw == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
	}

	claims, err := g.Tokens.ParseAccess(raw)
	if err != nil {
		if fromCookie {
			c.SetCookie(ExpiredCookie(CookieAccessToken))
		}
		logging.FromContext(c.Request().Context()).Warn("auth_failed", "status", 401, "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
	}
	uid, err := tokens.UserID(claims)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
	}

	c.Set(ctxUserID, uid)
	return nil
}

func accessToken(c echo.Context) (string, bool) {
	if h := c.Request().Header.Get(echo.HeaderAuthorization); h != "" {
		scheme, tok, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(tok), false
		}
	}
	if ck, err := c.Cookie(CookieAccessToken); err == nil && ck.Value != "" {
		return ck.Value, true
	}
	return "", false
}

var errNoUser = errors.New("no authenticated user in context")

// UserID returns the caller set by the guard.
func UserID(c echo.Context) (uuid.UUID, bool) {
	uid, ok := c.Get(ctxUserID).(uuid.UUID)
	return uid, ok
}

// MustUserID is UserID for handlers mounted behind the guard.
func MustUserID(c echo.Context) (uuid.UUID, error) {
	uid, ok := UserID(c)
	if !ok {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, errNoUser.Error())
	}
	return uid, nil
}

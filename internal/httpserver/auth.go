package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/rbac_auth/internal/logging"
	"github.com/Skotchmaster/rbac_auth/internal/middleware"
	"github.com/Skotchmaster/rbac_auth/internal/service"
	"github.com/Skotchmaster/rbac_auth/internal/transport"
)

const msgInvalidLogin = "Invalid username or password."

type AuthHTTP struct {
	Svc          *service.AuthService
	CookieSecure bool
}

func (h *AuthHTTP) PublicKey(c echo.Context) error {
	pem, err := h.Svc.PublicKey()
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Not Found")
		}
		return fail(logging.FromContext(c.Request().Context()), "public_key_failed", err)
	}
	return c.JSON(http.StatusOK, transport.OK(transport.PublicKeyResponse{PublicKey: string(pem)}))
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	pair, err := h.Svc.Login(ctx, service.LoginInput{
		Username:  req.Username,
		Password:  req.Password,
		UserAgent: c.Request().UserAgent(),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			l.Warn("login_failed", "status", 400, "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, msgInvalidLogin)
		case errors.Is(err, service.ErrInvalidCredentials):
			l.Warn("login_failed", "status", 401, "error", err)
			return echo.NewHTTPError(http.StatusUnauthorized, msgInvalidLogin)
		}
		return fail(l, "login_failed", err)
	}

	h.setTokenCookies(c, pair)
	l.Info("login_successful", "user_id", pair.User.ID)
	return c.JSON(http.StatusOK, transport.OK(h.tokenResponse(pair)))
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_refresh")

	var req transport.RefreshRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("refresh_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	raw := req.RefreshToken
	if raw == "" {
		if ck, err := c.Cookie(middleware.CookieRefreshToken); err == nil {
			raw = ck.Value
		}
	}

	pair, err := h.Svc.Refresh(ctx, raw, c.Request().UserAgent())
	if err != nil {
		if statusOf(err) == http.StatusUnauthorized || statusOf(err) == http.StatusForbidden {
			clearTokenCookies(c)
		}
		return fail(l, "refresh_failed", err)
	}

	h.setTokenCookies(c, pair)
	l.Info("refresh_successful", "user_id", pair.User.ID)
	return c.JSON(http.StatusOK, transport.OK(h.tokenResponse(pair)))
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_logout")

	var req transport.RefreshRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("logout_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	raw := req.RefreshToken
	if raw == "" {
		if ck, err := c.Cookie(middleware.CookieRefreshToken); err == nil {
			raw = ck.Value
		}
	}

	clearTokenCookies(c)
	if err := h.Svc.Logout(ctx, raw); err != nil {
		return fail(l, "logout_failed", err)
	}

	l.Info("successful_logout")
	return c.JSON(http.StatusOK, transport.OK(nil))
}

func (h *AuthHTTP) UserInfo(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user_info")

	uid, err := middleware.MustUserID(c)
	if err != nil {
		return err
	}
	user, err := h.Svc.UserInfo(ctx, uid)
	if err != nil {
		return fail(l, "user_info_failed", err)
	}
	return c.JSON(http.StatusOK, transport.OK(transport.NewUserInfo(user)))
}

func (h *AuthHTTP) tokenResponse(pair *service.TokenPair) transport.TokenResponse {
	return transport.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(h.Svc.Tokens.AccessTTL().Seconds()),
	}
}

func (h *AuthHTTP) setTokenCookies(c echo.Context, pair *service.TokenPair) {
	c.SetCookie(middleware.SessionCookie(middleware.CookieAccessToken, pair.AccessToken, pair.AccessExp, h.CookieSecure))
	c.SetCookie(middleware.SessionCookie(middleware.CookieRefreshToken, pair.RefreshToken, pair.RefreshExp, h.CookieSecure))
}

func clearTokenCookies(c echo.Context) {
	c.SetCookie(middleware.ExpiredCookie(middleware.CookieAccessToken))
	c.SetCookie(middleware.ExpiredCookie(middleware.CookieRefreshToken))
}

package httpserver

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/rbac_auth/internal/logging"
	"github.com/Skotchmaster/rbac_auth/internal/middleware"
	"github.com/Skotchmaster/rbac_auth/internal/permission"
	"github.com/Skotchmaster/rbac_auth/internal/transport"
)

type Deps struct {
	AuthHandler  *AuthHTTP
	RoleHandler  *RoleHTTP
	RouteHandler *RouteHTTP
	AuditHandler *AuditHTTP
	Guard        *middleware.Guard
	// Ready reports whether the database and cache are reachable.
	Ready func(ctx context.Context) error
}

// Register mounts every endpoint. Guards are attached per route so unknown
// paths still answer 404 rather than 401.
func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", d.ready)

	auth, perm := d.Guard.RequireAuth, d.Guard.RequirePermission

	e.GET("/keys/public", d.AuthHandler.PublicKey)
	e.POST("/login", d.AuthHandler.Login)
	e.POST("/token/refresh", d.AuthHandler.Refresh)
	e.POST("/logout", d.AuthHandler.Logout)
	e.GET("/user/info", d.AuthHandler.UserInfo, auth)

	e.GET("/router/backend", d.RouteHandler.List, perm)

	e.GET("/roles", d.RoleHandler.List, perm)
	e.GET("/roles/all", d.RoleHandler.All, perm)
	e.GET("/roles/mine", d.RoleHandler.Mine, auth)
	e.POST("/roles", d.RoleHandler.Create, perm)
	e.PUT("/roles/:id", d.RoleHandler.Update, perm)
	e.DELETE("/roles", d.RoleHandler.BatchDelete, perm)
	e.DELETE("/roles/:id", d.RoleHandler.Delete, perm)

	e.GET("/audit/events", d.AuditHandler.Events, perm)
}

func (d *Deps) ready(c echo.Context) error {
	if d.Ready == nil {
		return c.NoContent(http.StatusOK)
	}
	if err := d.Ready(c.Request().Context()); err != nil {
		logging.FromContext(c.Request().Context()).Error("readiness_failed", "error", err)
		return c.JSON(http.StatusServiceUnavailable, transport.Fail(http.StatusServiceUnavailable, "not ready"))
	}
	return c.NoContent(http.StatusOK)
}

// RouteDescriptions documents the permission codes published in the route table.
var RouteDescriptions = map[string]string{
	"GET:/keys/public":    "RSA public key for login encryption",
	"POST:/login":         "Log in with username and password",
	"POST:/token/refresh": "Rotate a refresh token",
	"POST:/logout":        "End a refresh session",
	"GET:/user/info":      "Current user",
	"GET:/router/backend": "Registered route table",
	"GET:/roles":          "List roles",
	"GET:/roles/all":      "All roles",
	"GET:/roles/mine":     "Roles of the current user",
	"POST:/roles":         "Create role",
	"PUT:/roles/{}":       "Update role",
	"DELETE:/roles":       "Delete roles",
	"DELETE:/roles/{}":    "Delete role",
	"GET:/audit/events":   "Search authentication events",
}

// NewRegistry returns the route registry used to publish this server's routes.
func NewRegistry() *permission.Registry {
	return &permission.Registry{
		Skip:         func(p string) bool { return strings.HasPrefix(p, "/health") },
		Descriptions: RouteDescriptions,
	}
}

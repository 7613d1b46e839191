package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/rbac_auth/internal/logging"
	"github.com/Skotchmaster/rbac_auth/internal/service"
	"github.com/Skotchmaster/rbac_auth/internal/transport"
)

type RouteHTTP struct {
	Svc *service.RouteService
}

func (h *RouteHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "router.backend")

	routes, err := h.Svc.List(ctx)
	if err != nil {
		return fail(l, "list_routes_failed", err)
	}
	return c.JSON(http.StatusOK, transport.OK(transport.NewRouteResponses(routes)))
}

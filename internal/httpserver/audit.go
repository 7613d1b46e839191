package httpserver

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/rbac_auth/internal/audit"
	"github.com/Skotchmaster/rbac_auth/internal/events"
	"github.com/Skotchmaster/rbac_auth/internal/logging"
	"github.com/Skotchmaster/rbac_auth/internal/transport"
	"github.com/Skotchmaster/rbac_auth/internal/util"
)

type AuditSearcher interface {
	Search(ctx context.Context, q audit.Query) (int64, []events.Event, error)
}

type AuditHTTP struct {
	// Search is nil when no Elasticsearch cluster is configured.
	Search AuditSearcher
}

func (h *AuditHTTP) Events(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "audit.events")

	if h.Search == nil {
		return echo.NewHTTPError(http.StatusNotFound, "audit search is not configured")
	}

	page, from, size := util.Calculate(
		util.ParseIntDefault(c.QueryParam("page"), 1),
		util.ParseIntDefault(c.QueryParam("page_size"), util.DefaultPageSize),
	)
	if from+size > audit.MaxResultWindow {
		return echo.NewHTTPError(http.StatusBadRequest, "page out of range")
	}
	total, evs, err := h.Search.Search(ctx, audit.Query{
		Text:   c.QueryParam("q"),
		UserID: c.QueryParam("user_id"),
		Type:   c.QueryParam("type"),
		From:   from,
		Size:   size,
	})
	if err != nil {
		l.Error("audit_search_failed", "status", 502, "error", err)
		return echo.NewHTTPError(http.StatusBadGateway, "audit search failed")
	}

	return c.JSON(http.StatusOK, transport.OK(transport.Page[events.Event]{
		Page:     page,
		PageSize: size,
		Total:    total,
		Records:  evs,
	}))
}

package httpserver

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/rbac_auth/internal/logging"
	"github.com/Skotchmaster/rbac_auth/internal/middleware"
	"github.com/Skotchmaster/rbac_auth/internal/repo"
	"github.com/Skotchmaster/rbac_auth/internal/service"
	"github.com/Skotchmaster/rbac_auth/internal/transport"
	"github.com/Skotchmaster/rbac_auth/internal/util"
)

type RoleHTTP struct {
	Svc *service.RoleService
}

func roleFilter(c echo.Context) repo.RoleFilter {
	return repo.RoleFilter{
		Status:  util.ParseBool(c.QueryParam("status")),
		Keyword: strings.TrimSpace(c.QueryParam("keyword")),
	}
}

func (h *RoleHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "role.list")

	page, offset, limit := util.Calculate(
		util.ParseIntDefault(c.QueryParam("page"), 1),
		util.ParseIntDefault(c.QueryParam("page_size"), util.DefaultPageSize),
	)
	total, items, err := h.Svc.List(ctx, roleFilter(c), offset, limit)
	if err != nil {
		return fail(l, "list_roles_failed", err)
	}

	return c.JSON(http.StatusOK, transport.OK(transport.Page[transport.RoleResponse]{
		Page:     page,
		PageSize: limit,
		Total:    total,
		Records:  transport.NewRoleResponses(items),
	}))
}

func (h *RoleHTTP) All(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "role.all")

	items, err := h.Svc.All(ctx, roleFilter(c))
	if err != nil {
		return fail(l, "all_roles_failed", err)
	}
	return c.JSON(http.StatusOK, transport.OK(transport.NewRoleResponses(items)))
}

func (h *RoleHTTP) Mine(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "role.mine")

	uid, err := middleware.MustUserID(c)
	if err != nil {
		return err
	}
	items, err := h.Svc.Mine(ctx, uid)
	if err != nil {
		return fail(l, "my_roles_failed", err)
	}
	return c.JSON(http.StatusOK, transport.OK(transport.NewRoleResponses(items)))
}

func (h *RoleHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "role.create")

	var req transport.CreateRoleRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("role_create_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	role, err := h.Svc.Create(ctx, service.CreateRoleInput{
		Name:                 req.Name,
		Code:                 req.Code,
		Description:          req.Description,
		Status:               req.Status,
		InterfacePermissions: req.InterfacePermissions,
	})
	if err != nil {
		return fail(l, "role_create_error", err)
	}

	l.Info("create_role_success", "role_id", role.ID)
	return c.JSON(http.StatusCreated, transport.Success(http.StatusCreated, transport.NewRoleResponse(*role)))
}

func (h *RoleHTTP) Update(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "role.update")

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		l.Warn("role_update_error", "status", 400, "reason", "id not a uuid", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "id not a uuid")
	}

	var req transport.UpdateRoleRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("role_update_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	role, err := h.Svc.Update(ctx, id, repo.RoleUpdate{
		Name:                 req.Name,
		Description:          req.Description,
		Status:               req.Status,
		InterfacePermissions: req.InterfacePermissions,
	})
	if err != nil {
		return fail(l, "role_update_error", err)
	}

	l.Info("update_role_success", "role_id", role.ID)
	return c.JSON(http.StatusOK, transport.OK(transport.NewRoleResponse(*role)))
}

func (h *RoleHTTP) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "role.delete")

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		l.Warn("role_delete_error", "status", 400, "reason", "id not a uuid", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "id not a uuid")
	}
	if err := h.Svc.Delete(ctx, id); err != nil {
		return fail(l, "role_delete_error", err)
	}

	l.Info("delete_role_success", "role_id", id)
	return c.JSON(http.StatusOK, transport.OK(transport.DeletedResponse{Deleted: 1}))
}

func (h *RoleHTTP) BatchDelete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "role.batch_delete")

	var req transport.BatchDeleteRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("role_delete_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	n, err := h.Svc.BatchDelete(ctx, req.IDs)
	if err != nil {
		return fail(l, "role_delete_error", err)
	}

	l.Info("batch_delete_roles_success", "deleted", n)
	return c.JSON(http.StatusOK, transport.OK(transport.DeletedResponse{Deleted: n}))
}

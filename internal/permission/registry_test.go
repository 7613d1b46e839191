package permission

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/rbac_auth/internal/models"
)

type fakeWriter struct {
	routes []models.InterfaceRoute
}

func (f *fakeWriter) ReplaceRoutes(_ context.Context, routes []models.InterfaceRoute) error {
	f.routes = routes
	return nil
}

type roleHandler struct{}

func (roleHandler) Update(c echo.Context) error { return c.NoContent(http.StatusOK) }

func TestRegistry_Sync(t *testing.T) {
	e := echo.New()
	noop := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	e.GET("/health/live", noop)
	e.GET("/user/info", noop)
	e.PUT("/roles/:id", roleHandler{}.Update)
	e.DELETE("/roles/:id", noop)

	w := &fakeWriter{}
	reg := &Registry{
		Skip:         func(p string) bool { return strings.HasPrefix(p, "/health") },
		Descriptions: map[string]string{"GET:/user/info": "current user"},
	}
	n, err := reg.Sync(context.Background(), e, w)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	codes := make([]string, 0, len(w.routes))
	for _, r := range w.routes {
		codes = append(codes, r.Code)
	}
	assert.Equal(t, []string{"DELETE:/roles/{}", "PUT:/roles/{}", "GET:/user/info"}, codes)
	assert.Equal(t, "current user", w.routes[2].Description)
	assert.Equal(t, "roleHandler.Update", w.routes[1].Name)
}

func TestHandlerName(t *testing.T) {
	assert.Equal(t, "AuthHTTP.Login", handlerName("github.com/x/y/internal/httpserver.(*AuthHTTP).Login-fm"))
	assert.Equal(t, "Register.func1", handlerName("github.com/x/y/internal/httpserver.Register.func1"))
}

package permission

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/rbac_auth/internal/models"
)

type RouteWriter interface {
	ReplaceRoutes(ctx context.Context, routes []models.InterfaceRoute) error
}

var httpMethods = []string{
	http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
	http.MethodPatch, http.MethodDelete, http.MethodOptions,
}

// Registry turns the echo route table into persisted InterfaceRoute rows.
type Registry struct {
	// Skip excludes paths from the table. Nil keeps everything.
	Skip func(path string) bool
	// Descriptions maps a permission code to a human readable description.
	Descriptions map[string]string
}

func (g *Registry) Collect(routes []*echo.Route) []models.InterfaceRoute {
	seen := make(map[string]struct{})
	out := make([]models.InterfaceRoute, 0, len(routes))

	for _, rt := range routes {
		if !slices.Contains(httpMethods, rt.Method) {
			continue
		}
		if g.Skip != nil && g.Skip(rt.Path) {
			continue
		}
		methods := []string{rt.Method}
		code := Code(methods, rt.Path)
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}

		out = append(out, models.InterfaceRoute{
			Name:        handlerName(rt.Name),
			Description: g.Descriptions[code],
			Path:        Normalize(rt.Path),
			Methods:     methods,
			Code:        code,
		})
	}

	slices.SortFunc(out, func(a, b models.InterfaceRoute) int {
		if c := strings.Compare(a.Path, b.Path); c != 0 {
			return c
		}
		return strings.Compare(a.Code, b.Code)
	})
	return out
}

// Sync replaces the stored route table with the routes registered on e.
func (g *Registry) Sync(ctx context.Context, e *echo.Echo, w RouteWriter) (int, error) {
	routes := g.Collect(e.Routes())
	if err := w.ReplaceRoutes(ctx, routes); err != nil {
		return 0, fmt.Errorf("sync route table: %w", err)
	}
	return len(routes), nil
}

// handlerName shortens "pkg/path.(*Type).Method-fm" to "Type.Method".
func handlerName(name string) string {
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.Index(name, "."); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSuffix(name, "-fm")
	name = strings.NewReplacer("(*", "", ")", "").Replace(name)
	return name
}

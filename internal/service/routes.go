package service

import (
	"context"
	"fmt"

	"github.com/Skotchmaster/rbac_auth/internal/models"
)

type RouteLister interface {
	ListRoutes(ctx context.Context) ([]models.InterfaceRoute, error)
}

type RouteService struct {
	Repo RouteLister
}

func (s *RouteService) List(ctx context.Context) ([]models.InterfaceRoute, error) {
	routes, err := s.Repo.ListRoutes(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return routes, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/Skotchmaster/rbac_auth/internal/models"
	"github.com/Skotchmaster/rbac_auth/internal/permission"
	"github.com/Skotchmaster/rbac_auth/internal/repo"
)

var codePattern = regexp.MustCompile(`^[A-Z]+:/\S*$`)

type RoleRepo interface {
	ListRoles(ctx context.Context, f repo.RoleFilter, offset, limit int) (int64, []models.Role, error)
	AllRoles(ctx context.Context, f repo.RoleFilter) ([]models.Role, error)
	RolesOfUser(ctx context.Context, userID uuid.UUID) ([]models.Role, error)
	RoleCodeExists(ctx context.Context, code string) (bool, error)
	CreateRole(ctx context.Context, role *models.Role) error
	UpdateRole(ctx context.Context, id uuid.UUID, u repo.RoleUpdate) (*models.Role, error)
	DeleteRoles(ctx context.Context, ids []uuid.UUID) (int64, error)
}

// RoleService manages roles. Cached permission sets are not invalidated here;
// changes reach users once their cached set expires.
type RoleService struct {
	Repo RoleRepo
}

type CreateRoleInput struct {
	Name                 string
	Code                 string
	Description          string
	Status               *bool
	InterfacePermissions []string
}

func (s *RoleService) List(ctx context.Context, f repo.RoleFilter, offset, limit int) (int64, []models.Role, error) {
	total, items, err := s.Repo.ListRoles(ctx, f, offset, limit)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return total, items, nil
}

func (s *RoleService) All(ctx context.Context, f repo.RoleFilter) ([]models.Role, error) {
	items, err := s.Repo.AllRoles(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return items, nil
}

func (s *RoleService) Mine(ctx context.Context, userID uuid.UUID) ([]models.Role, error) {
	items, err := s.Repo.RolesOfUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return items, nil
}

func (s *RoleService) Create(ctx context.Context, in CreateRoleInput) (*models.Role, error) {
	name, code := strings.TrimSpace(in.Name), strings.TrimSpace(in.Code)
	if name == "" || code == "" {
		return nil, fmt.Errorf("%w: name and code are required", ErrValidation)
	}
	perms, err := validatePermissions(in.InterfacePermissions)
	if err != nil {
		return nil, err
	}

	exists, err := s.Repo.RoleCodeExists(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if exists {
		return nil, fmt.Errorf("%w: role code %q already exists", ErrConflict, code)
	}

	role := &models.Role{
		Name:                 name,
		Code:                 code,
		Description:          in.Description,
		Status:               in.Status == nil || *in.Status,
		InterfacePermissions: perms,
	}
	if err := s.Repo.CreateRole(ctx, role); err != nil {
		if errors.Is(err, repo.ErrAlreadyExists) {
			return nil, fmt.Errorf("%w: role code %q already exists", ErrConflict, code)
		}
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return role, nil
}

func (s *RoleService) Update(ctx context.Context, id uuid.UUID, u repo.RoleUpdate) (*models.Role, error) {
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		return nil, fmt.Errorf("%w: name cannot be empty", ErrValidation)
	}
	if u.InterfacePermissions != nil {
		perms, err := validatePermissions(*u.InterfacePermissions)
		if err != nil {
			return nil, err
		}
		u.InterfacePermissions = &perms
	}

	role, err := s.Repo.UpdateRole(ctx, id, u)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return role, nil
}

func (s *RoleService) Delete(ctx context.Context, id uuid.UUID) error {
	n, err := s.Repo.DeleteRoles(ctx, []uuid.UUID{id})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RoleService) BatchDelete(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, fmt.Errorf("%w: ids are required", ErrValidation)
	}
	n, err := s.Repo.DeleteRoles(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return n, nil
}

// validatePermissions upper-cases methods, normalizes paths and drops duplicates.
// validatePermissions normalizes permission codes. A code naming several
// methods ("GET:POST:/x") expands to one code per method, the form the
// resolver checks against.
func validatePermissions(in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	add := func(p string) {
		if _, dup := seen[p]; dup {
			return
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}

	for _, raw := range in {
		p := strings.TrimSpace(raw)
		if p == permission.Wildcard {
			add(p)
			continue
		}
		i := strings.Index(p, ":/")
		if i < 0 {
			return nil, fmt.Errorf("%w: invalid permission code %q", ErrValidation, raw)
		}
		for _, m := range strings.Split(p[:i], ":") {
			code := permission.MethodCode(m, p[i+1:])
			if !codePattern.MatchString(code) {
				return nil, fmt.Errorf("%w: invalid permission code %q", ErrValidation, raw)
			}
			add(code)
		}
	}
	return out, nil
}

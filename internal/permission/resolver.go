package permission

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/rbac_auth/internal/cache"
	"github.com/Skotchmaster/rbac_auth/internal/models"
	"github.com/Skotchmaster/rbac_auth/internal/repo"
)

var ErrStoreUnavailable = errors.New("permission store unavailable")

type UserLoader interface {
	GetUserWithRoles(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Key is the cache key of a user's permission set.
func Key(userID uuid.UUID) string {
	return fmt.Sprintf("auth:permission:<%s>", userID)
}

// Resolver answers permission questions from the cache, falling back to the
// role tables on a miss. Cached sets live for ttl and are not invalidated when
// roles change.
type Resolver struct {
	users UserLoader
	cache cache.Store
	ttl   time.Duration
}

func NewResolver(users UserLoader, c cache.Store, ttl time.Duration) *Resolver {
	return &Resolver{users: users, cache: c, ttl: ttl}
}

// Allowed reports whether userID may call method on path. Any storage failure
// yields false together with ErrStoreUnavailable.
func (r *Resolver) Allowed(ctx context.Context, userID uuid.UUID, method, path string) (bool, error) {
	perms, err := r.Permissions(ctx, userID)
	if err != nil {
		return false, err
	}
	code := MethodCode(method, path)
	return slices.Contains(perms, Wildcard) || slices.Contains(perms, code), nil
}

// Permissions returns the user's permission codes, computing and caching them
// on a miss. Unknown or inactive users have no permissions.
func (r *Resolver) Permissions(ctx context.Context, userID uuid.UUID) ([]string, error) {
	key := Key(userID)

	perms, err := r.cache.GetList(ctx, key)
	if err == nil {
		return perms, nil
	}
	if !errors.Is(err, cache.ErrNotFound) {
		return nil, fmt.Errorf("%w: read cache: %w", ErrStoreUnavailable, err)
	}

	user, err := r.users.GetUserWithRoles(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load roles: %w", ErrStoreUnavailable, err)
	}

	perms = Compute(user)
	if err := r.cache.SetList(ctx, key, perms, r.ttl); err != nil {
		return nil, fmt.Errorf("%w: write cache: %w", ErrStoreUnavailable, err)
	}
	return perms, nil
}

// Compute unions the permissions of the user's enabled roles. Admins get the
// wildcard alone.
func Compute(user *models.User) []string {
	if !user.IsActive {
		return nil
	}
	if user.IsAdmin {
		return []string{Wildcard}
	}

	seen := make(map[string]struct{})
	var out []string
	for _, role := range user.Roles {
		if !role.Status {
			continue
		}
		for _, p := range role.InterfacePermissions {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	slices.Sort(out)
	return out
}

package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/rbac_auth/internal/hash"
	"github.com/Skotchmaster/rbac_auth/internal/models"
	"github.com/Skotchmaster/rbac_auth/internal/permission"
	"github.com/Skotchmaster/rbac_auth/internal/repo"
)

const AdminRoleCode = "admin"

type SeedInput struct {
	Username string
	Password string
	Name     string
	Email    string
}

// Seed creates the administrator account and the admin role granting every
// permission. Existing rows are left untouched, so running it twice is safe.
func Seed(ctx context.Context, gdb *gorm.DB, in SeedInput, l *slog.Logger) (*models.User, error) {
	if in.Username == "" || in.Password == "" {
		return nil, errors.New("seed: username and password are required")
	}
	r := repo.New(gdb)

	role := &models.Role{
		Name:                 "Administrator",
		Code:                 AdminRoleCode,
		Description:          "Full access to every endpoint",
		Status:               true,
		InterfacePermissions: []string{permission.Wildcard},
	}
	switch err := r.CreateRoleIfNotExists(ctx, role); {
	case err == nil:
		l.Info("admin role created", "role_id", role.ID)
	case errors.Is(err, repo.ErrAlreadyExists):
		l.Info("admin role already exists", "role_id", role.ID)
	default:
		return nil, fmt.Errorf("seed admin role: %w", err)
	}

	pw, err := hash.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("seed: hash password: %w", err)
	}
	name := in.Name
	if name == "" {
		name = in.Username
	}
	user := &models.User{
		Name:         name,
		Email:        in.Email,
		Username:     in.Username,
		PasswordHash: pw,
		IsAdmin:      true,
		IsActive:     true,
	}
	switch err := r.CreateUserIfNotExists(ctx, user); {
	case err == nil:
		l.Info("admin user created", "user_id", user.ID, "username", user.Username)
	case errors.Is(err, repo.ErrAlreadyExists):
		l.Info("admin user already exists", "user_id", user.ID, "username", user.Username)
		return user, nil
	default:
		return nil, fmt.Errorf("seed admin user: %w", err)
	}

	if err := r.AssignRoles(ctx, user.ID, []uuid.UUID{role.ID}); err != nil {
		return nil, fmt.Errorf("seed: assign admin role: %w", err)
	}
	return user, nil
}

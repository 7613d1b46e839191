package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/Skotchmaster/rbac_auth/internal/models"
)

func (r *GormRepo) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *GormRepo) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// GetUserWithRoles loads the user together with all of its roles.
func (r *GormRepo) GetUserWithRoles(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Preload("Roles").Where("id = ?", id).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *GormRepo) CreateUserIfNotExists(ctx context.Context, u *models.User) error {
	tx := r.DB.WithContext(ctx).Where("username = ?", u.Username).FirstOrCreate(u)
	if tx.Error != nil {
		return translate(tx.Error)
	}
	if tx.RowsAffected == 0 {
		return ErrAlreadyExists
	}
	return nil
}

// AssignRoles replaces the user's role set.
func (r *GormRepo) AssignRoles(ctx context.Context, userID uuid.UUID, roleIDs []uuid.UUID) error {
	user, err := r.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	var roles []models.Role
	if len(roleIDs) > 0 {
		if err := r.DB.WithContext(ctx).Where("id IN ?", roleIDs).Find(&roles).Error; err != nil {
			return err
		}
	}
	return r.DB.WithContext(ctx).Model(user).Association("Roles").Replace(roles)
}

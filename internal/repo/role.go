package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/rbac_auth/internal/models"
)

type RoleFilter struct {
	Status  *bool
	Keyword string
}

// RoleUpdate carries the fields to change; nil fields are left alone.
type RoleUpdate struct {
	Name                 *string
	Description          *string
	Status               *bool
	InterfacePermissions *[]string
}

func (f RoleFilter) apply(db *gorm.DB) *gorm.DB {
	if f.Status != nil {
		db = db.Where("status = ?", *f.Status)
	}
	if f.Keyword != "" {
		like := "%" + f.Keyword + "%"
		db = db.Where("(name LIKE ? OR code LIKE ?)", like, like)
	}
	return db
}

func (r *GormRepo) ListRoles(ctx context.Context, f RoleFilter, offset, limit int) (int64, []models.Role, error) {
	var total int64
	if err := f.apply(r.DB.WithContext(ctx).Model(&models.Role{})).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	items := make([]models.Role, 0, limit)
	if err := f.apply(r.DB.WithContext(ctx).Model(&models.Role{})).
		Order("create_time ASC").Order("id ASC").
		Offset(offset).Limit(limit).
		Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

func (r *GormRepo) AllRoles(ctx context.Context, f RoleFilter) ([]models.Role, error) {
	var items []models.Role
	if err := f.apply(r.DB.WithContext(ctx).Model(&models.Role{})).Order("create_time ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) RolesOfUser(ctx context.Context, userID uuid.UUID) ([]models.Role, error) {
	user, err := r.GetUserWithRoles(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.Roles, nil
}

func (r *GormRepo) GetRole(ctx context.Context, id uuid.UUID) (*models.Role, error) {
	var role models.Role
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&role).Error; err != nil {
		return nil, translate(err)
	}
	return &role, nil
}

func (r *GormRepo) RoleCodeExists(ctx context.Context, code string) (bool, error) {
	var n int64
	if err := r.DB.WithContext(ctx).Model(&models.Role{}).Where("code = ?", code).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *GormRepo) CreateRole(ctx context.Context, role *models.Role) error {
	return translate(r.DB.WithContext(ctx).Create(role).Error)
}

// CreateRoleIfNotExists inserts role unless its code is taken, in which case
// role is filled with the stored row and ErrAlreadyExists is returned.
func (r *GormRepo) CreateRoleIfNotExists(ctx context.Context, role *models.Role) error {
	tx := r.DB.WithContext(ctx).Where("code = ?", role.Code).FirstOrCreate(role)
	if tx.Error != nil {
		return translate(tx.Error)
	}
	if tx.RowsAffected == 0 {
		return ErrAlreadyExists
	}
	return nil
}

func (r *GormRepo) UpdateRole(ctx context.Context, id uuid.UUID, u RoleUpdate) (*models.Role, error) {
	role, err := r.GetRole(ctx, id)
	if err != nil {
		return nil, err
	}

	if u.Name != nil {
		role.Name = *u.Name
	}
	if u.Description != nil {
		role.Description = *u.Description
	}
	if u.Status != nil {
		role.Status = *u.Status
	}
	if u.InterfacePermissions != nil {
		role.InterfacePermissions = *u.InterfacePermissions
	}

	if err := r.DB.WithContext(ctx).Save(role).Error; err != nil {
		return nil, translate(err)
	}
	return role, nil
}

// DeleteRoles removes the roles and their user assignments. It returns the
// number of roles deleted.
func (r *GormRepo) DeleteRoles(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var deleted int64
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM user_roles WHERE role_id IN ?", ids).Error; err != nil {
			return err
		}
		res := tx.Where("id IN ?", ids).Delete(&models.Role{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected
		return nil
	})
	return deleted, err
}

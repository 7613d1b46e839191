package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/Skotchmaster/rbac_auth/internal/models"
)

// ReplaceRoutes swaps the persisted route table for routes in one transaction.
func (r *GormRepo) ReplaceRoutes(ctx context.Context, routes []models.InterfaceRoute) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.InterfaceRoute{}).Error; err != nil {
			return err
		}
		if len(routes) == 0 {
			return nil
		}
		return tx.CreateInBatches(routes, 100).Error
	})
}

func (r *GormRepo) ListRoutes(ctx context.Context) ([]models.InterfaceRoute, error) {
	var items []models.InterfaceRoute
	if err := r.DB.WithContext(ctx).Order("path ASC").Order("code ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

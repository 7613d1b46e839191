package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Base struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"  json:"id"`
	CreateTime time.Time `gorm:"autoCreateTime"        json:"create_time"`
	UpdateTime time.Time `gorm:"autoUpdateTime"        json:"update_time"`
}

func (b *Base) BeforeCreate(*gorm.DB) error {
	if b.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		b.ID = id
	}
	return nil
}

type User struct {
	Base
	Name         string `gorm:"not null"                   json:"name"`
	Email        string `gorm:"not null"                   json:"email"`
	Username     string `gorm:"uniqueIndex;not null"       json:"username"`
	PasswordHash string `gorm:"not null"                   json:"-"`
	IsAdmin      bool   `gorm:"not null"                   json:"is_admin"`
	IsActive     bool   `gorm:"not null"                   json:"is_active"`
	Roles        []Role `gorm:"many2many:user_roles;"      json:"roles,omitempty"`
}

type Role struct {
	Base
	Name                 string   `gorm:"not null"                  json:"name"`
	Code                 string   `gorm:"uniqueIndex;not null"      json:"code"`
	Description          string   `json:"description"`
	Status               bool     `gorm:"not null"                  json:"status"`
	InterfacePermissions []string `gorm:"type:text;serializer:json" json:"interface_permissions"`
}

// InterfaceRoute is the persisted copy of one registered HTTP route.
type InterfaceRoute struct {
	Base
	Name        string   `gorm:"not null"                  json:"name"`
	Description string   `json:"description"`
	Path        string   `gorm:"not null"                  json:"path"`
	Methods     []string `gorm:"type:text;serializer:json" json:"methods"`
	Code        string   `gorm:"index;not null"            json:"code"`
}

func (InterfaceRoute) TableName() string { return "interface_routers" }

func All() []any {
	return []any{&User{}, &Role{}, &InterfaceRoute{}}
}

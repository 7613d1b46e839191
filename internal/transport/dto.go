package transport

import (
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/rbac_auth/internal/models"
)

type LoginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" form:"refresh_token"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

type PublicKeyResponse struct {
	PublicKey string `json:"public_key"`
}

type RoleBrief struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Code string    `json:"code"`
}

type UserInfo struct {
	ID       uuid.UUID   `json:"id"`
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Username string      `json:"username"`
	IsAdmin  bool        `json:"is_admin"`
	Roles    []RoleBrief `json:"roles"`
}

func NewUserInfo(u *models.User) UserInfo {
	roles := make([]RoleBrief, 0, len(u.Roles))
	for _, r := range u.Roles {
		roles = append(roles, RoleBrief{ID: r.ID, Name: r.Name, Code: r.Code})
	}
	return UserInfo{
		ID:       u.ID,
		Name:     u.Name,
		Email:    u.Email,
		Username: u.Username,
		IsAdmin:  u.IsAdmin,
		Roles:    roles,
	}
}

type RoleResponse struct {
	ID                   uuid.UUID `json:"id"`
	Name                 string    `json:"name"`
	Code                 string    `json:"code"`
	Description          string    `json:"description"`
	Status               bool      `json:"status"`
	InterfacePermissions []string  `json:"interface_permissions"`
	CreateTime           time.Time `json:"create_time"`
	UpdateTime           time.Time `json:"update_time"`
}

func NewRoleResponse(r models.Role) RoleResponse {
	perms := r.InterfacePermissions
	if perms == nil {
		perms = []string{}
	}
	return RoleResponse{
		ID:                   r.ID,
		Name:                 r.Name,
		Code:                 r.Code,
		Description:          r.Description,
		Status:               r.Status,
		InterfacePermissions: perms,
		CreateTime:           r.CreateTime,
		UpdateTime:           r.UpdateTime,
	}
}

func NewRoleResponses(in []models.Role) []RoleResponse {
	out := make([]RoleResponse, len(in))
	for i, r := range in {
		out[i] = NewRoleResponse(r)
	}
	return out
}

type CreateRoleRequest struct {
	Name                 string   `json:"name"`
	Code                 string   `json:"code"`
	Description          string   `json:"description"`
	Status               *bool    `json:"status"`
	InterfacePermissions []string `json:"interface_permissions"`
}

type UpdateRoleRequest struct {
	Name                 *string   `json:"name"`
	Description          *string   `json:"description"`
	Status               *bool     `json:"status"`
	InterfacePermissions *[]string `json:"interface_permissions"`
}

type BatchDeleteRequest struct {
	IDs []uuid.UUID `json:"ids"`
}

type DeletedResponse struct {
	Deleted int64 `json:"deleted"`
}

type RouteResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Path        string    `json:"path"`
	Methods     []string  `json:"methods"`
	Code        string    `json:"code"`
}

func NewRouteResponses(in []models.InterfaceRoute) []RouteResponse {
	out := make([]RouteResponse, len(in))
	for i, r := range in {
		out[i] = RouteResponse{
			ID:          r.ID,
			Name:        r.Name,
			Description: r.Description,
			Path:        r.Path,
			Methods:     r.Methods,
			Code:        r.Code,
		}
	}
	return out
}

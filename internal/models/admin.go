package models

import (
	"strings"
	"time"

	"github.com/uptrace/bun"
)

const (
	AdminRoleAdmin      = "admin"
	AdminRoleSuperAdmin = "super_admin"
)

// Admin accounts live in their own identity space and are created by
// seeding or operations, never by self-signup.
type Admin struct {
	bun.BaseModel `bun:"table:admins"`

	ID           string    `bun:"id,pk" json:"id"`
	Username     string    `bun:"username,unique,notnull" json:"username"`
	Email        string    `bun:"email,unique,notnull" json:"email"`
	Name         string    `bun:"name,notnull" json:"name"`
	PasswordHash string    `bun:"password_hash,notnull" json:"-"`
	Role         string    `bun:"role,notnull,default:'admin'" json:"role"`
	// Permissions is stored comma-joined so the column stays portable
	// across the postgres and sqlite dialects.
	Permissions string    `bun:"permissions,nullzero" json:"-"`
	IsActive    bool      `bun:"is_active,notnull,default:true" json:"isActive"`
	LastLogin   time.Time `bun:"last_login,nullzero" json:"lastLogin,omitempty"`
	Avatar      string    `bun:"avatar,nullzero" json:"avatar,omitempty"`
	Phone       string    `bun:"phone,nullzero" json:"phone,omitempty"`
	Department  string    `bun:"department,nullzero" json:"department,omitempty"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
}

func (a *Admin) PermissionList() []string {
	if a.Permissions == "" {
		return nil
	}
	return strings.Split(a.Permissions, ",")
}

func (a *Admin) SetPermissions(perms []string) {
	a.Permissions = strings.Join(perms, ",")
}

// AdminPermissions enumerates every grantable permission.
var AdminPermissions = []string{
	"manage_reservations",
	"manage_orders",
	"manage_tables",
	"view_reports",
	"manage_users",
	"manage_admins",
}

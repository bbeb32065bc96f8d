package models

import (
	"time"

	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:users"`

	ID           string    `bun:"id,pk" json:"id"`
	Name         string    `bun:"name,notnull" json:"name"`
	Phone        string    `bun:"phone,unique,nullzero" json:"phone,omitempty"`
	Email        string    `bun:"email,unique,nullzero" json:"email,omitempty"`
	PasswordHash string    `bun:"password_hash,nullzero" json:"-"`
	Avatar       string    `bun:"avatar,notnull" json:"avatar"`
	Color        string    `bun:"color,notnull" json:"color"`
	IsActive     bool      `bun:"is_active,notnull,default:true" json:"isActive"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt    time.Time `bun:"updated_at,nullzero" json:"updatedAt,omitempty"`
}

// PendingInvite is a group invitation offered to a user; (user_id, group_id)
// is unique so the same group can never be offered twice.
type PendingInvite struct {
	bun.BaseModel `bun:"table:pending_invites"`

	ID        int64     `bun:"id,pk,autoincrement" json:"-"`
	UserID    string    `bun:"user_id,notnull,unique:user_group_invite" json:"-"`
	GroupID   string    `bun:"group_id,notnull,unique:user_group_invite" json:"groupId"`
	GroupName string    `bun:"group_name,notnull" json:"groupName"`
	InvitedBy string    `bun:"invited_by,notnull" json:"invitedBy"`
	InvitedAt time.Time `bun:"invited_at,notnull,default:current_timestamp" json:"invitedAt"`
}

// PublicUser is the caller-facing projection without credentials.
type PublicUser struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Phone  string `json:"phone,omitempty"`
	Avatar string `json:"avatar"`
	Color  string `json:"color"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:     u.ID,
		Name:   u.Name,
		Phone:  u.Phone,
		Avatar: u.Avatar,
		Color:  u.Color,
	}
}

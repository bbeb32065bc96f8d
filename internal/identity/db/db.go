package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"browntable/internal/apperr"
	"browntable/internal/database"
	"browntable/internal/models"
)

// DBLayer is the storage surface the identity service depends on.
type DBLayer interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByPhone(ctx context.Context, phone string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	SearchUsersByPhone(ctx context.Context, phonePrefix string, limit int) ([]models.User, error)
	GetAdminByUsername(ctx context.Context, username string) (*models.Admin, error)
	TouchAdminLogin(ctx context.Context, admin *models.Admin) error
	ListPendingInvites(ctx context.Context, userID string) ([]models.PendingInvite, error)
}

type IdentityDB struct {
	bun *bun.DB
}

func NewIdentityDB(bunDB *bun.DB) *IdentityDB {
	return &IdentityDB{bun: bunDB}
}

func (d *IdentityDB) CreateUser(ctx context.Context, user *models.User) error {
	_, err := d.bun.NewInsert().Model(user).Exec(ctx)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperr.Conflict("phone number already registered")
		}
		return apperr.Internal(err, "failed to create user")
	}
	return nil
}

func (d *IdentityDB) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	user := new(models.User)
	err := d.bun.NewSelect().Model(user).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Internal(err, "failed to load user")
	}
	return user, nil
}

func (d *IdentityDB) GetUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	user := new(models.User)
	err := d.bun.NewSelect().Model(user).Where("phone = ?", phone).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Internal(err, "failed to load user")
	}
	return user, nil
}

func (d *IdentityDB) UpdateUser(ctx context.Context, user *models.User) error {
	_, err := d.bun.NewUpdate().Model(user).WherePK().Exec(ctx)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperr.Conflict("phone number already registered")
		}
		return apperr.Internal(err, "failed to update user")
	}
	return nil
}

func (d *IdentityDB) SearchUsersByPhone(ctx context.Context, phonePrefix string, limit int) ([]models.User, error) {
	var users []models.User
	err := d.bun.NewSelect().Model(&users).
		Where("phone LIKE ?", phonePrefix+"%").
		Where("is_active = ?", true).
		Order("phone ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, apperr.Internal(err, "failed to search users")
	}
	return users, nil
}

func (d *IdentityDB) GetAdminByUsername(ctx context.Context, username string) (*models.Admin, error) {
	admin := new(models.Admin)
	err := d.bun.NewSelect().Model(admin).Where("username = ?", username).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("admin not found")
		}
		return nil, apperr.Internal(err, "failed to load admin")
	}
	return admin, nil
}

func (d *IdentityDB) TouchAdminLogin(ctx context.Context, admin *models.Admin) error {
	_, err := d.bun.NewUpdate().Model(admin).
		Column("last_login").
		WherePK().
		Exec(ctx)
	if err != nil {
		return apperr.Internal(err, "failed to record admin login")
	}
	return nil
}

func (d *IdentityDB) ListPendingInvites(ctx context.Context, userID string) ([]models.PendingInvite, error) {
	var invites []models.PendingInvite
	err := d.bun.NewSelect().Model(&invites).
		Where("user_id = ?", userID).
		Order("invited_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, apperr.Internal(err, "failed to list pending invites")
	}
	return invites, nil
}

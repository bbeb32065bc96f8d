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

// DBLayer is the storage surface the group registry depends on.
type DBLayer interface {
	CreateGroup(ctx context.Context, group *models.Group, admin *models.GroupMember) error
	GetGroupByID(ctx context.Context, id string) (*models.Group, error)
	GetGroupByInviteCode(ctx context.Context, code string) (*models.Group, error)
	UpdateGroup(ctx context.Context, group *models.Group) error
	DeleteGroupCascade(ctx context.Context, groupID string) error
	ListGroupsForUser(ctx context.Context, userID string) ([]models.Group, error)
	AddMember(ctx context.Context, member *models.GroupMember) error
	AddPendingInvite(ctx context.Context, invite *models.PendingInvite) error
	GetPendingInvite(ctx context.Context, userID, groupID string) (*models.PendingInvite, error)
	RemovePendingInvite(ctx context.Context, userID, groupID string) error
	GetOrderSummary(ctx context.Context, orderID string) (*models.OrderSummary, error)
}

type GroupDB struct {
	bun *bun.DB
}

func NewGroupDB(bunDB *bun.DB) *GroupDB {
	return &GroupDB{bun: bunDB}
}

// CreateGroup inserts the group and its admin membership atomically. A
// unique violation on the invite code surfaces as Conflict so the caller
// can regenerate and retry.
func (d *GroupDB) CreateGroup(ctx context.Context, group *models.Group, admin *models.GroupMember) error {
	err := d.bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(group).Exec(ctx); err != nil {
			return err
		}
		if admin != nil {
			if _, err := tx.NewInsert().Model(admin).Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperr.Conflict("invite code already in use")
		}
		return apperr.Internal(err, "failed to create group")
	}
	return nil
}

func (d *GroupDB) GetGroupByID(ctx context.Context, id string) (*models.Group, error) {
	group := new(models.Group)
	err := d.bun.NewSelect().Model(group).
		Relation("Members").
		Where("g.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("group not found")
		}
		return nil, apperr.Internal(err, "failed to load group")
	}
	return group, nil
}

func (d *GroupDB) GetGroupByInviteCode(ctx context.Context, code string) (*models.Group, error) {
	group := new(models.Group)
	err := d.bun.NewSelect().Model(group).
		Relation("Members").
		Where("g.invite_code = ?", code).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("group not found")
		}
		return nil, apperr.Internal(err, "failed to load group")
	}
	return group, nil
}

func (d *GroupDB) UpdateGroup(ctx context.Context, group *models.Group) error {
	_, err := d.bun.NewUpdate().Model(group).WherePK().Exec(ctx)
	if err != nil {
		return apperr.Internal(err, "failed to update group")
	}
	return nil
}

// DeleteGroupCascade removes the group and everything hanging off it:
// memberships, pending invites, orders and their items.
func (d *GroupDB) DeleteGroupCascade(ctx context.Context, groupID string) error {
	err := d.bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*models.OrderItem)(nil)).
			Where("order_id IN (SELECT id FROM orders WHERE group_id = ?)", groupID).
			Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*models.Order)(nil)).
			Where("group_id = ?", groupID).
			Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*models.GroupMember)(nil)).
			Where("group_id = ?", groupID).
			Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*models.PendingInvite)(nil)).
			Where("group_id = ?", groupID).
			Exec(ctx); err != nil {
			return err
		}
		res, err := tx.NewDelete().Model((*models.Group)(nil)).
			Where("id = ?", groupID).
			Exec(ctx)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperr.NotFound("group not found")
		}
		return nil
	})
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return appErr
		}
		return apperr.Internal(err, "failed to delete group")
	}
	return nil
}

func (d *GroupDB) ListGroupsForUser(ctx context.Context, userID string) ([]models.Group, error) {
	var groups []models.Group
	err := d.bun.NewSelect().Model(&groups).
		Relation("Members").
		Where("g.id IN (SELECT group_id FROM group_members WHERE user_id = ?)", userID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, apperr.Internal(err, "failed to list groups")
	}
	return groups, nil
}

// AddMember inserts a membership row; the (group_id, user_id) unique
// constraint is the source of truth for double joins.
func (d *GroupDB) AddMember(ctx context.Context, member *models.GroupMember) error {
	_, err := d.bun.NewInsert().Model(member).Exec(ctx)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperr.Conflict("already a member of this group")
		}
		return apperr.Internal(err, "failed to add member")
	}
	return nil
}

func (d *GroupDB) AddPendingInvite(ctx context.Context, invite *models.PendingInvite) error {
	_, err := d.bun.NewInsert().Model(invite).Exec(ctx)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperr.Conflict("user already invited to this group")
		}
		return apperr.Internal(err, "failed to record invite")
	}
	return nil
}

func (d *GroupDB) GetPendingInvite(ctx context.Context, userID, groupID string) (*models.PendingInvite, error) {
	invite := new(models.PendingInvite)
	err := d.bun.NewSelect().Model(invite).
		Where("user_id = ?", userID).
		Where("group_id = ?", groupID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("invite not found")
		}
		return nil, apperr.Internal(err, "failed to load invite")
	}
	return invite, nil
}

func (d *GroupDB) RemovePendingInvite(ctx context.Context, userID, groupID string) error {
	_, err := d.bun.NewDelete().Model((*models.PendingInvite)(nil)).
		Where("user_id = ?", userID).
		Where("group_id = ?", groupID).
		Exec(ctx)
	if err != nil {
		return apperr.Internal(err, "failed to remove invite")
	}
	return nil
}

// GetOrderSummary projects the compact order block embedded in group
// listings.
func (d *GroupDB) GetOrderSummary(ctx context.Context, orderID string) (*models.OrderSummary, error) {
	order := new(models.Order)
	err := d.bun.NewSelect().Model(order).
		Relation("Items").
		Where("o.id = ?", orderID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("order not found")
		}
		return nil, apperr.Internal(err, "failed to load order")
	}
	return &models.OrderSummary{
		ID:          order.ID,
		TotalAmount: order.TotalAmount,
		FinalAmount: order.FinalAmount,
		Status:      order.Status,
		ItemCount:   len(order.Items),
	}, nil
}

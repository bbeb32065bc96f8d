package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"browntable/internal/apperr"
	"browntable/internal/models"
)

// DBLayer is the storage surface the order ledger depends on. The mutating
// methods recompute the derived amounts inside the same transaction as the
// item writes.
type DBLayer interface {
	CreateOrderForGroup(ctx context.Context, order *models.Order) error
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	GetLatestOrderForGroup(ctx context.Context, groupID string) (*models.Order, error)
	ReplaceMemberItems(ctx context.Context, orderID, memberID string, items []*models.OrderItem, discount int64) (*models.Order, error)
	RemoveItem(ctx context.Context, orderID, itemID, callerID string, override bool) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, order *models.Order) error
	RecalculateOrder(ctx context.Context, orderID string, discount int64) (*models.Order, error)
}

type OrderDB struct {
	bun *bun.DB
}

func NewOrderDB(bunDB *bun.DB) *OrderDB {
	return &OrderDB{bun: bunDB}
}

// CreateOrderForGroup inserts the order and points the group's
// current_order_id at it in one transaction.
func (d *OrderDB) CreateOrderForGroup(ctx context.Context, order *models.Order) error {
	err := d.bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(order).Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewUpdate().Model((*models.Group)(nil)).
			Set("current_order_id = ?", order.ID).
			Where("id = ?", order.GroupID).
			Exec(ctx)
		return err
	})
	if err != nil {
		return apperr.Internal(err, "failed to create order")
	}
	return nil
}

func (d *OrderDB) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	order := new(models.Order)
	err := d.bun.NewSelect().Model(order).
		Relation("Items", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("added_at ASC")
		}).
		Where("o.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("order not found")
		}
		return nil, apperr.Internal(err, "failed to load order")
	}
	return order, nil
}

// GetLatestOrderForGroup picks the most recently created order for groups
// written before current_order_id existed.
func (d *OrderDB) GetLatestOrderForGroup(ctx context.Context, groupID string) (*models.Order, error) {
	order := new(models.Order)
	err := d.bun.NewSelect().Model(order).
		Relation("Items", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("added_at ASC")
		}).
		Where("o.group_id = ?", groupID).
		Order("o.created_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("order not found")
		}
		return nil, apperr.Internal(err, "failed to load order")
	}
	return order, nil
}

// ReplaceMemberItems swaps out everything the member previously added for
// the submitted list and recomputes the totals, all in one transaction.
// Submitting the same list twice leaves the order unchanged.
func (d *OrderDB) ReplaceMemberItems(ctx context.Context, orderID, memberID string, items []*models.OrderItem, discount int64) (*models.Order, error) {
	var order *models.Order
	err := d.bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*models.OrderItem)(nil)).
			Where("order_id = ?", orderID).
			Where("added_by = ?", memberID).
			Exec(ctx); err != nil {
			return err
		}
		if len(items) > 0 {
			if _, err := tx.NewInsert().Model(&items).Exec(ctx); err != nil {
				return err
			}
		}
		var err error
		order, err = d.recalculateTx(ctx, tx, orderID, discount)
		return err
	})
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperr.Internal(err, "failed to update order items")
	}
	return order, nil
}

// RemoveItem deletes one item. Unless override is set, only the member who
// added the item may remove it; the check runs inside the transaction so
// the answer cannot go stale.
func (d *OrderDB) RemoveItem(ctx context.Context, orderID, itemID, callerID string, override bool) (*models.Order, error) {
	var order *models.Order
	err := d.bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		item := new(models.OrderItem)
		err := tx.NewSelect().Model(item).
			Where("id = ?", itemID).
			Where("order_id = ?", orderID).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.NotFound("item not found")
			}
			return err
		}
		if !override && item.AddedBy != callerID {
			return apperr.Forbidden("you can only remove your own items")
		}
		if _, err := tx.NewDelete().Model(item).WherePK().Exec(ctx); err != nil {
			return err
		}
		order, err = d.recalculateTx(ctx, tx, orderID, -1)
		return err
	})
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperr.Internal(err, "failed to remove item")
	}
	return order, nil
}

func (d *OrderDB) UpdateOrderStatus(ctx context.Context, order *models.Order) error {
	_, err := d.bun.NewUpdate().Model(order).
		Column("status", "payment_status", "served_at", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return apperr.Internal(err, "failed to update order status")
	}
	return nil
}

// RecalculateOrder reloads the items and rewrites the derived amounts.
// Pass discount < 0 to keep the stored discount.
func (d *OrderDB) RecalculateOrder(ctx context.Context, orderID string, discount int64) (*models.Order, error) {
	var order *models.Order
	err := d.bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var err error
		order, err = d.recalculateTx(ctx, tx, orderID, discount)
		return err
	})
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperr.Internal(err, "failed to recalculate order")
	}
	return order, nil
}

func (d *OrderDB) recalculateTx(ctx context.Context, tx bun.Tx, orderID string, discount int64) (*models.Order, error) {
	order := new(models.Order)
	err := tx.NewSelect().Model(order).
		Relation("Items", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("added_at ASC")
		}).
		Where("o.id = ?", orderID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("order not found")
		}
		return nil, err
	}
	if discount >= 0 {
		order.Discount = discount
	}
	order.Recalculate()
	order.UpdatedAt = time.Now()

	_, err = tx.NewUpdate().Model(order).
		Column("total_amount", "service_charge", "tax", "discount", "final_amount", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	return order, nil
}

package db

import (
	"context"
	"database/sql"

	"github.com/uptrace/bun"

	"browntable/internal/apperr"
	"browntable/internal/models"
)

// DBLayer is the storage surface for the reservation workflows that touch
// the group and table registries together. Each workflow is one
// transaction; partial states never land.
type DBLayer interface {
	ConfirmReservationTx(ctx context.Context, group *models.Group, table *models.Table) error
	CancelReservationTx(ctx context.Context, group *models.Group, table *models.Table) error
	ClearGroupTx(ctx context.Context, group *models.Group, order *models.Order, table *models.Table, history *models.TableHistory) error
	ListPendingGroups(ctx context.Context) ([]models.Group, error)
	CountGroups(ctx context.Context) (int, error)
	CountOrders(ctx context.Context) (int, error)
	ListOpenOrders(ctx context.Context) ([]models.Order, error)
	GetGroupByID(ctx context.Context, id string) (*models.Group, error)
}

type CoordinatorDB struct {
	bun *bun.DB
}

func NewCoordinatorDB(bunDB *bun.DB) *CoordinatorDB {
	return &CoordinatorDB{bun: bunDB}
}

// ConfirmReservationTx persists a confirmation. The table binding is written
// first; if anything fails the group is never left confirmed without a
// bound table.
func (d *CoordinatorDB) ConfirmReservationTx(ctx context.Context, group *models.Group, table *models.Table) error {
	err := d.bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewUpdate().Model(table).WherePK().Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewUpdate().Model(group).WherePK().Exec(ctx)
		return err
	})
	if err != nil {
		return apperr.Internal(err, "failed to confirm reservation")
	}
	return nil
}

// CancelReservationTx persists a cancellation; table is nil when the group
// never had one bound.
func (d *CoordinatorDB) CancelReservationTx(ctx context.Context, group *models.Group, table *models.Table) error {
	err := d.bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if table != nil {
			if _, err := tx.NewUpdate().Model(table).WherePK().Exec(ctx); err != nil {
				return err
			}
		}
		_, err := tx.NewUpdate().Model(group).WherePK().Exec(ctx)
		return err
	})
	if err != nil {
		return apperr.Internal(err, "failed to cancel reservation")
	}
	return nil
}

// ClearGroupTx closes out a finished visit: order, group, table and the
// history row land together.
func (d *CoordinatorDB) ClearGroupTx(ctx context.Context, group *models.Group, order *models.Order, table *models.Table, history *models.TableHistory) error {
	err := d.bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if order != nil {
			if _, err := tx.NewUpdate().Model(order).
				Column("status", "payment_status", "served_at", "updated_at").
				WherePK().Exec(ctx); err != nil {
				return err
			}
		}
		if table != nil {
			if _, err := tx.NewUpdate().Model(table).WherePK().Exec(ctx); err != nil {
				return err
			}
		}
		if history != nil {
			if _, err := tx.NewInsert().Model(history).Exec(ctx); err != nil {
				return err
			}
		}
		_, err := tx.NewUpdate().Model(group).WherePK().Exec(ctx)
		return err
	})
	if err != nil {
		return apperr.Internal(err, "failed to clear group")
	}
	return nil
}

// ListPendingGroups returns the groups awaiting staff action, oldest first.
func (d *CoordinatorDB) ListPendingGroups(ctx context.Context) ([]models.Group, error) {
	var groups []models.Group
	err := d.bun.NewSelect().Model(&groups).
		Relation("Members").
		Where("g.status IN (?)", bun.In([]string{models.GroupStatusActive, models.GroupStatusPending})).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, apperr.Internal(err, "failed to list pending groups")
	}
	return groups, nil
}

func (d *CoordinatorDB) CountGroups(ctx context.Context) (int, error) {
	count, err := d.bun.NewSelect().Model((*models.Group)(nil)).Count(ctx)
	if err != nil {
		return 0, apperr.Internal(err, "failed to count groups")
	}
	return count, nil
}

func (d *CoordinatorDB) CountOrders(ctx context.Context) (int, error) {
	count, err := d.bun.NewSelect().Model((*models.Order)(nil)).Count(ctx)
	if err != nil {
		return 0, apperr.Internal(err, "failed to count orders")
	}
	return count, nil
}

// ListOpenOrders returns orders still in flight, with items, for the
// upcoming-orders window.
func (d *CoordinatorDB) ListOpenOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := d.bun.NewSelect().Model(&orders).
		Relation("Items", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("added_at ASC")
		}).
		Where("o.status IN (?)", bun.In([]string{
			models.OrderStatusPending,
			models.OrderStatusConfirmed,
			models.OrderStatusPreparing,
			models.OrderStatusReady,
		})).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, apperr.Internal(err, "failed to list open orders")
	}
	return orders, nil
}

func (d *CoordinatorDB) GetGroupByID(ctx context.Context, id string) (*models.Group, error) {
	group := new(models.Group)
	err := d.bun.NewSelect().Model(group).
		Relation("Members").
		Where("g.id = ?", id).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.NotFound("group not found")
		}
		return nil, apperr.Internal(err, "failed to load group")
	}
	return group, nil
}


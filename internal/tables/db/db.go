package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"browntable/internal/apperr"
	"browntable/internal/models"
)

// DBLayer is the storage surface the table registry depends on.
type DBLayer interface {
	ListTables(ctx context.Context) ([]models.Table, error)
	GetTableByNumber(ctx context.Context, number int) (*models.Table, error)
	SaveTableWithHistory(ctx context.Context, table *models.Table, history *models.TableHistory) error
	ListHistory(ctx context.Context, tableID string, limit int) ([]models.TableHistory, error)
}

type TableDB struct {
	bun *bun.DB
}

func NewTableDB(bunDB *bun.DB) *TableDB {
	return &TableDB{bun: bunDB}
}

func (d *TableDB) ListTables(ctx context.Context) ([]models.Table, error) {
	var tables []models.Table
	err := d.bun.NewSelect().Model(&tables).
		Where("is_active = ?", true).
		Order("number ASC").
		Scan(ctx)
	if err != nil {
		return nil, apperr.Internal(err, "failed to list tables")
	}
	return tables, nil
}

func (d *TableDB) GetTableByNumber(ctx context.Context, number int) (*models.Table, error) {
	table := new(models.Table)
	err := d.bun.NewSelect().Model(table).
		Where("number = ?", number).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("table not found")
		}
		return nil, apperr.Internal(err, "failed to load table")
	}
	return table, nil
}

// SaveTableWithHistory writes the table row and, when the transition closed
// out a reservation, the history row, in one transaction.
func (d *TableDB) SaveTableWithHistory(ctx context.Context, table *models.Table, history *models.TableHistory) error {
	err := d.bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewUpdate().Model(table).WherePK().Exec(ctx); err != nil {
			return err
		}
		if history != nil {
			if _, err := tx.NewInsert().Model(history).Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return apperr.Internal(err, "failed to save table")
	}
	return nil
}

func (d *TableDB) ListHistory(ctx context.Context, tableID string, limit int) ([]models.TableHistory, error) {
	var rows []models.TableHistory
	err := d.bun.NewSelect().Model(&rows).
		Where("table_id = ?", tableID).
		Order("recorded_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, apperr.Internal(err, "failed to list table history")
	}
	return rows, nil
}

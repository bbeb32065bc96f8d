// Package tables implements the table registry: live status, the single
// bound reservation per table, and the append-only history.
package tables

import (
	"context"
	"fmt"
	"time"

	"browntable/internal/apperr"
	"browntable/internal/logger"
	"browntable/internal/models"
	"browntable/internal/tables/db"
)

const historyLimit = 50

// Bind attaches a reservation to an unbound table. A table already carrying
// a reservation rejects the second one outright; the caller decides what to
// do with the conflict.
func Bind(table *models.Table, groupID string, start, end time.Time, guests int) error {
	if table.ReservationGroupID != "" {
		return apperr.Conflict(fmt.Sprintf("table %d already has a reservation", table.Number))
	}
	if table.Status != models.TableStatusFree {
		return apperr.Conflict(fmt.Sprintf("table %d is not free", table.Number))
	}
	table.Status = models.TableStatusReserved
	table.ReservationGroupID = groupID
	table.ReservationStart = start
	table.ReservationEnd = end
	table.ReservationGuests = guests
	table.LastUpdated = time.Now()
	return nil
}

// Release reverts a reserved table to free and clears the snapshot. Only
// reserved tables release; an occupied table must be closed out by staff.
func Release(table *models.Table) error {
	if table.Status != models.TableStatusReserved {
		return apperr.Conflict(fmt.Sprintf("table %d is not reserved", table.Number))
	}
	table.Status = models.TableStatusFree
	table.ClearReservation()
	table.CurrentGuests = 0
	table.LastUpdated = time.Now()
	return nil
}

type Service struct {
	db  db.DBLayer
	log *logger.Logger
}

func NewService(dbLayer db.DBLayer, log *logger.Logger) *Service {
	return &Service{db: dbLayer, log: log}
}

// ListTables returns every active table with its reservation projection.
func (s *Service) ListTables(ctx context.Context) ([]models.TableView, error) {
	rows, err := s.db.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]models.TableView, 0, len(rows))
	for i := range rows {
		views = append(views, models.NewTableView(&rows[i]))
	}
	return views, nil
}

// TableByNumber returns one table with its recent history.
func (s *Service) TableByNumber(ctx context.Context, number int) (*models.TableView, error) {
	table, err := s.db.GetTableByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	history, err := s.db.ListHistory(ctx, table.ID, historyLimit)
	if err != nil {
		return nil, err
	}
	table.History = make([]*models.TableHistory, 0, len(history))
	for i := range history {
		table.History = append(table.History, &history[i])
	}
	view := models.NewTableView(table)
	return &view, nil
}

// SetStatus is the staff status change. The history row is built from the
// table's state BEFORE the mutation, so closing out an occupied table
// records the session that just ended rather than the cleared row.
func (s *Service) SetStatus(ctx context.Context, number int, req models.TableStatusRequest) (*models.TableView, error) {
	if !models.ValidTableStatus(req.Status) {
		return nil, apperr.Validation("invalid table status")
	}

	table, err := s.db.GetTableByNumber(ctx, number)
	if err != nil {
		return nil, err
	}

	before := *table

	table.Status = req.Status
	if req.CurrentGuests != nil {
		if *req.CurrentGuests < 0 {
			return nil, apperr.Validation("current guests cannot be negative")
		}
		table.CurrentGuests = *req.CurrentGuests
	}
	table.LastUpdated = time.Now()

	var history *models.TableHistory
	if req.Status == models.TableStatusFree && before.ReservationGroupID != "" {
		history = &models.TableHistory{
			TableID:    before.ID,
			GroupID:    before.ReservationGroupID,
			StartTime:  before.ReservationStart,
			EndTime:    time.Now(),
			GuestCount: before.ReservationGuests,
			RecordedAt: time.Now(),
		}
		table.ClearReservation()
		table.CurrentGuests = 0
	}

	if err := s.db.SaveTableWithHistory(ctx, table, history); err != nil {
		return nil, err
	}

	s.log.LogTable("STATUS", number, fmt.Sprintf("Status %s -> %s", before.Status, table.Status))
	view := models.NewTableView(table)
	return &view, nil
}

// Package coordinator drives the reservation workflows that span the
// group, order and table registries: confirmation, cancellation, clearing
// a finished visit, and the staff dashboard.
package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"browntable/internal/apperr"
	"browntable/internal/coordinator/db"
	"browntable/internal/kafka"
	"browntable/internal/logger"
	"browntable/internal/models"
	"browntable/internal/tables"
	tablesdb "browntable/internal/tables/db"
	"browntable/internal/tables/redis"
	"browntable/internal/utils"
)

const (
	// How far ahead the dashboard looks for orders about to be ready.
	upcomingWindow = 30 * time.Minute

	// Fallback visit length when a group has no departure time.
	defaultVisitLength = 2 * time.Hour
)

// Topics carries the event topic names the coordinator publishes to.
type Topics struct {
	ReservationConfirmed string
	ReservationCancelled string
}

type OrderStore interface {
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
}

type Service struct {
	db        db.DBLayer
	tables    tablesdb.DBLayer
	orders    OrderStore
	locks     redis.RedisLock
	publisher kafka.Publisher
	topics    Topics
	log       *logger.Logger
}

func NewService(dbLayer db.DBLayer, tableDB tablesdb.DBLayer, orders OrderStore, locks redis.RedisLock, publisher kafka.Publisher, topics Topics, log *logger.Logger) *Service {
	return &Service{
		db:        dbLayer,
		tables:    tableDB,
		orders:    orders,
		locks:     locks,
		publisher: publisher,
		topics:    topics,
		log:       log,
	}
}

// Confirm books a group onto a table and marks the reservation confirmed.
// The table's lock is held for the duration so two confirmations cannot
// race onto the same table; the binding and the status change land in one
// transaction, table first.
func (s *Service) Confirm(ctx context.Context, groupID string, tableNumber int) (*models.Group, error) {
	group, err := s.db.GetGroupByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	switch group.Status {
	case models.GroupStatusConfirmed:
		return nil, apperr.Conflict("reservation is already confirmed")
	case models.GroupStatusCancelled, models.GroupStatusCompleted:
		return nil, apperr.Conflict("this reservation can no longer be confirmed")
	}

	if tableNumber == 0 {
		tableNumber = group.TableNumber
	}
	if tableNumber == 0 {
		return nil, apperr.Validation("a table number is required to confirm")
	}

	acquired, err := s.locks.AcquireTableLock(ctx, tableNumber, group.ID)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, apperr.Conflict(fmt.Sprintf("table %d is being assigned to another group", tableNumber))
	}
	defer func() {
		if err := s.locks.ReleaseTableLock(context.Background(), tableNumber, group.ID); err != nil {
			s.log.Warn("REDIS", "Failed to release table lock: "+err.Error())
		}
	}()

	// Re-read under the lock; the status seen before acquisition may be stale.
	table, err := s.tables.GetTableByNumber(ctx, tableNumber)
	if err != nil {
		return nil, err
	}

	start, end, err := s.reservationWindow(group)
	if err != nil {
		return nil, err
	}
	guests := guestCountOf(group)
	if guests == 0 {
		guests = 1
	}
	if err := tables.Bind(table, group.ID, start, end, guests); err != nil {
		return nil, err
	}

	group.Status = models.GroupStatusConfirmed
	group.ConfirmedAt = time.Now()
	group.TableNumber = tableNumber
	group.UpdatedAt = time.Now()

	if err := s.db.ConfirmReservationTx(ctx, group, table); err != nil {
		return nil, err
	}

	s.log.LogReservation("CONFIRM", group.ID, fmt.Sprintf("Confirmed on table %d", tableNumber))
	s.publishReservationEvent(s.topics.ReservationConfirmed, group, tableNumber)
	return group, nil
}

// Cancel marks the reservation cancelled and, if a table was reserved for
// the group, releases it. An occupied table is left alone; staff closes it
// out through the table registry.
func (s *Service) Cancel(ctx context.Context, groupID string) (*models.Group, error) {
	group, err := s.db.GetGroupByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	switch group.Status {
	case models.GroupStatusCancelled:
		return nil, apperr.Conflict("reservation is already cancelled")
	case models.GroupStatusCompleted:
		return nil, apperr.Conflict("a completed visit cannot be cancelled")
	}

	var table *models.Table
	if group.TableNumber != 0 {
		t, err := s.tables.GetTableByNumber(ctx, group.TableNumber)
		if err != nil && !apperr.IsKind(err, apperr.KindNotFound) {
			return nil, err
		}
		if t != nil && t.ReservationGroupID == group.ID && t.Status == models.TableStatusReserved {
			if err := tables.Release(t); err != nil {
				return nil, err
			}
			table = t
		}
	}

	group.Status = models.GroupStatusCancelled
	group.CancelledAt = time.Now()
	group.UpdatedAt = time.Now()

	if err := s.db.CancelReservationTx(ctx, group, table); err != nil {
		return nil, err
	}

	s.log.LogReservation("CANCEL", group.ID, "Reservation cancelled")
	s.publishReservationEvent(s.topics.ReservationCancelled, group, group.TableNumber)
	return group, nil
}

// ClearOrder closes out a finished visit: the order is marked served, the
// group completed, and the table freed with a history row recording the
// session and its bill.
func (s *Service) ClearOrder(ctx context.Context, groupID string) (*models.Group, error) {
	group, err := s.db.GetGroupByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.Status == models.GroupStatusCancelled || group.Status == models.GroupStatusCompleted {
		return nil, apperr.Conflict("this visit is already closed")
	}

	var order *models.Order
	if group.CurrentOrderID != "" {
		order, err = s.orders.GetOrderByID(ctx, group.CurrentOrderID)
		if err != nil && !apperr.IsKind(err, apperr.KindNotFound) {
			return nil, err
		}
		if order != nil {
			order.Status = models.OrderStatusServed
			order.PaymentStatus = models.PaymentStatusPaid
			if order.ServedAt.IsZero() {
				order.ServedAt = time.Now()
			}
			order.UpdatedAt = time.Now()
		}
	}

	var table *models.Table
	var history *models.TableHistory
	if group.TableNumber != 0 {
		t, err := s.tables.GetTableByNumber(ctx, group.TableNumber)
		if err != nil && !apperr.IsKind(err, apperr.KindNotFound) {
			return nil, err
		}
		if t != nil && t.ReservationGroupID == group.ID {
			history = &models.TableHistory{
				TableID:      t.ID,
				GroupID:      group.ID,
				GroupAdminID: group.GroupAdminID,
				StartTime:    t.ReservationStart,
				EndTime:      time.Now(),
				GuestCount:   t.ReservationGuests,
				RecordedAt:   time.Now(),
			}
			if order != nil {
				history.OrderID = order.ID
				history.TotalBill = order.FinalAmount
			}
			t.Status = models.TableStatusFree
			t.ClearReservation()
			t.CurrentGuests = 0
			t.LastUpdated = time.Now()
			table = t
		}
	}

	group.Status = models.GroupStatusCompleted
	group.UpdatedAt = time.Now()

	if err := s.db.ClearGroupTx(ctx, group, order, table, history); err != nil {
		return nil, err
	}

	s.log.LogReservation("CLEAR", group.ID, "Visit closed out")
	return group, nil
}

// ClearByOrder resolves an order to its group and closes the visit out.
func (s *Service) ClearByOrder(ctx context.Context, orderID string) (*models.Group, error) {
	order, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.ClearOrder(ctx, order.GroupID)
}

// Dashboard assembles the staff overview: tables, pending reservations,
// upcoming orders and the aggregate counters.
func (s *Service) Dashboard(ctx context.Context) (*models.DashboardView, error) {
	tableRows, err := s.tables.ListTables(ctx)
	if err != nil {
		return nil, err
	}

	view := &models.DashboardView{
		Tables:         make([]models.TableView, 0, len(tableRows)),
		Reservations:   []models.PendingReservation{},
		UpcomingOrders: []models.UpcomingOrder{},
	}
	for i := range tableRows {
		t := &tableRows[i]
		view.Tables = append(view.Tables, models.NewTableView(t))
		switch t.Status {
		case models.TableStatusFree:
			view.Stats.FreeTables++
		case models.TableStatusReserved:
			view.Stats.ReservedTables++
			view.Stats.ActiveReservations++
		case models.TableStatusOccupied:
			view.Stats.OccupiedTables++
		case models.TableStatusMaintenance:
			view.Stats.MaintenanceTables++
		}
	}

	pending, err := s.db.ListPendingGroups(ctx)
	if err != nil {
		return nil, err
	}
	for i := range pending {
		view.Reservations = append(view.Reservations, pendingReservation(&pending[i]))
	}
	view.Stats.PendingRequests = len(view.Reservations)

	if view.Stats.TotalGroups, err = s.db.CountGroups(ctx); err != nil {
		return nil, err
	}
	if view.Stats.TotalOrders, err = s.db.CountOrders(ctx); err != nil {
		return nil, err
	}

	if view.UpcomingOrders, err = s.UpcomingOrders(ctx); err != nil {
		return nil, err
	}
	return view, nil
}

// UpcomingOrders lists open orders expected to be ready within the
// lookahead window, soonest first.
func (s *Service) UpcomingOrders(ctx context.Context) ([]models.UpcomingOrder, error) {
	open, err := s.db.ListOpenOrders(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	cutoff := now.Add(upcomingWindow)
	upcoming := make([]models.UpcomingOrder, 0, len(open))
	for i := range open {
		order := &open[i]
		if len(order.Items) == 0 {
			continue
		}
		readyAt := order.CreatedAt.Add(time.Duration(order.EstimatedTime) * time.Minute)
		if readyAt.After(cutoff) {
			continue
		}

		row := models.UpcomingOrder{
			ID:                 order.ID,
			GroupID:            order.GroupID,
			OrderSummary:       summarizeItems(order.Items),
			TotalAmount:        order.FinalAmount,
			Status:             order.Status,
			EstimatedTime:      order.EstimatedTime,
			EstimatedReadyTime: readyAt,
			CreatedAt:          order.CreatedAt,
			Items:              order.Items,
		}
		if group, err := s.db.GetGroupByID(ctx, order.GroupID); err == nil {
			row.GuestName = displayName(group)
			row.TableNumber = group.TableNumber
		}
		upcoming = append(upcoming, row)
	}
	return upcoming, nil
}

func (s *Service) reservationWindow(group *models.Group) (time.Time, time.Time, error) {
	start, err := utils.ParseReservationTime(group.Date, group.ArrivalTime)
	if err != nil {
		return time.Time{}, time.Time{}, apperr.Validation("group has an unusable arrival time")
	}
	end := start.Add(defaultVisitLength)
	if group.DepartureTime != "" {
		if parsed, err := utils.ParseReservationTime(group.Date, group.DepartureTime); err == nil && parsed.After(start) {
			end = parsed
		}
	}
	return start, end, nil
}

func pendingReservation(group *models.Group) models.PendingReservation {
	return models.PendingReservation{
		ID:              group.ID,
		GuestName:       displayName(group),
		GuestCount:      guestCountOf(group),
		ReservationTime: strings.TrimSpace(group.Date + " " + group.ArrivalTime),
		TableNumber:     group.TableNumber,
		Status:          group.Status,
		Phone:           group.Phone,
		SpecialRequests: group.SpecialRequests,
		Members:         group.Members,
		CreatedAt:       group.CreatedAt,
	}
}

func summarizeItems(items []*models.OrderItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, fmt.Sprintf("%dx %s", item.Quantity, item.Name))
	}
	return strings.Join(parts, ", ")
}

func displayName(group *models.Group) string {
	if group.GuestName != "" {
		return group.GuestName
	}
	return group.Name
}

func guestCountOf(group *models.Group) int {
	if group.GuestCount > 0 {
		return group.GuestCount
	}
	return len(group.Members)
}

type reservationEvent struct {
	GroupID     string    `json:"groupId"`
	Status      string    `json:"status"`
	TableNumber int       `json:"table,omitempty"`
	At          time.Time `json:"at"`
}

func (s *Service) publishReservationEvent(topic string, group *models.Group, tableNumber int) {
	if s.publisher == nil || topic == "" {
		return
	}
	payload, err := json.Marshal(reservationEvent{
		GroupID:     group.ID,
		Status:      group.Status,
		TableNumber: tableNumber,
		At:          time.Now(),
	})
	if err != nil {
		return
	}
	if err := s.publisher.Publish(topic, group.ID, payload); err != nil {
		s.log.Warn("KAFKA", "Failed to publish reservation event: "+err.Error())
	}
}

package coordinator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"browntable/internal/apperr"
	"browntable/internal/logger"
	"browntable/internal/models"
)

// Mock implementations for testing

type MockCoordinatorDB struct {
	groups map[string]*models.Group
	orders []models.Order

	confirmed []string
	cancelled []string
	cleared   []string
	histories []*models.TableHistory
}

func NewMockCoordinatorDB(groups ...*models.Group) *MockCoordinatorDB {
	m := &MockCoordinatorDB{groups: make(map[string]*models.Group)}
	for _, g := range groups {
		m.groups[g.ID] = g
	}
	return m
}

func (m *MockCoordinatorDB) ConfirmReservationTx(_ context.Context, group *models.Group, _ *models.Table) error {
	m.groups[group.ID] = group
	m.confirmed = append(m.confirmed, group.ID)
	return nil
}

func (m *MockCoordinatorDB) CancelReservationTx(_ context.Context, group *models.Group, _ *models.Table) error {
	m.groups[group.ID] = group
	m.cancelled = append(m.cancelled, group.ID)
	return nil
}

func (m *MockCoordinatorDB) ClearGroupTx(_ context.Context, group *models.Group, _ *models.Order, _ *models.Table, history *models.TableHistory) error {
	m.groups[group.ID] = group
	m.cleared = append(m.cleared, group.ID)
	if history != nil {
		m.histories = append(m.histories, history)
	}
	return nil
}

func (m *MockCoordinatorDB) ListPendingGroups(_ context.Context) ([]models.Group, error) {
	var out []models.Group
	for _, g := range m.groups {
		if g.Status == models.GroupStatusActive || g.Status == models.GroupStatusPending {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (m *MockCoordinatorDB) CountGroups(_ context.Context) (int, error) { return len(m.groups), nil }
func (m *MockCoordinatorDB) CountOrders(_ context.Context) (int, error) { return len(m.orders), nil }

func (m *MockCoordinatorDB) ListOpenOrders(_ context.Context) ([]models.Order, error) {
	return m.orders, nil
}

func (m *MockCoordinatorDB) GetGroupByID(_ context.Context, id string) (*models.Group, error) {
	group, ok := m.groups[id]
	if !ok {
		return nil, apperr.NotFound("group not found")
	}
	return group, nil
}

type MockTableDB struct {
	tables map[int]*models.Table
	saved  []*models.Table
}

func NewMockTableDB(tables ...*models.Table) *MockTableDB {
	m := &MockTableDB{tables: make(map[int]*models.Table)}
	for _, table := range tables {
		m.tables[table.Number] = table
	}
	return m
}

func (m *MockTableDB) ListTables(_ context.Context) ([]models.Table, error) {
	var out []models.Table
	for _, table := range m.tables {
		out = append(out, *table)
	}
	return out, nil
}

func (m *MockTableDB) GetTableByNumber(_ context.Context, number int) (*models.Table, error) {
	table, ok := m.tables[number]
	if !ok {
		return nil, apperr.NotFound("table not found")
	}
	return table, nil
}

func (m *MockTableDB) SaveTableWithHistory(_ context.Context, table *models.Table, _ *models.TableHistory) error {
	m.tables[table.Number] = table
	m.saved = append(m.saved, table)
	return nil
}

func (m *MockTableDB) ListHistory(_ context.Context, _ string, _ int) ([]models.TableHistory, error) {
	return nil, nil
}

type MockOrderStore struct {
	orders map[string]*models.Order
}

func (m *MockOrderStore) GetOrderByID(_ context.Context, id string) (*models.Order, error) {
	order, ok := m.orders[id]
	if !ok {
		return nil, apperr.NotFound("order not found")
	}
	return order, nil
}

type FakeLock struct {
	held     map[int]string
	acquired []int
	released []int
}

func NewFakeLock() *FakeLock {
	return &FakeLock{held: make(map[int]string)}
}

func (f *FakeLock) AcquireTableLock(_ context.Context, tableNumber int, owner string) (bool, error) {
	if _, exists := f.held[tableNumber]; exists {
		return false, nil
	}
	f.held[tableNumber] = owner
	f.acquired = append(f.acquired, tableNumber)
	return true, nil
}

func (f *FakeLock) ReleaseTableLock(_ context.Context, tableNumber int, owner string) error {
	if f.held[tableNumber] == owner {
		delete(f.held, tableNumber)
		f.released = append(f.released, tableNumber)
	}
	return nil
}

type RecordingPublisher struct {
	topics []string
}

func (p *RecordingPublisher) Publish(topic, _ string, _ []byte) error {
	p.topics = append(p.topics, topic)
	return nil
}

func (p *RecordingPublisher) Close() error { return nil }

func activeGroup() *models.Group {
	return &models.Group{
		ID:           "group-1",
		Name:         "Alice's Group",
		GroupAdminID: "alice",
		ArrivalTime:  "7:00 PM",
		DepartureTime: "9:00 PM",
		Date:         "2026-09-01",
		Status:       models.GroupStatusActive,
		MaxMembers:   10,
		GuestCount:   4,
		Members: []*models.GroupMember{
			{GroupID: "group-1", UserID: "alice", Name: "Alice", IsAdmin: true},
		},
	}
}

func freeTable(number int) *models.Table {
	return &models.Table{
		ID:       "table-" + string(rune('0'+number)),
		Number:   number,
		Capacity: 6,
		Status:   models.TableStatusFree,
		IsActive: true,
	}
}

func newTestService(coordDB *MockCoordinatorDB, tableDB *MockTableDB, orderStore *MockOrderStore, lock *FakeLock) (*Service, *RecordingPublisher) {
	publisher := &RecordingPublisher{}
	if orderStore == nil {
		orderStore = &MockOrderStore{orders: map[string]*models.Order{}}
	}
	svc := NewService(coordDB, tableDB, orderStore, lock, publisher, Topics{
		ReservationConfirmed: "reservation.confirmed",
		ReservationCancelled: "reservation.cancelled",
	}, logger.NewLogger())
	return svc, publisher
}

func TestConfirmBindsTableAndConfirmsGroup(t *testing.T) {
	group := activeGroup()
	coordDB := NewMockCoordinatorDB(group)
	tableDB := NewMockTableDB(freeTable(5))
	lock := NewFakeLock()
	svc, publisher := newTestService(coordDB, tableDB, nil, lock)

	confirmed, err := svc.Confirm(context.Background(), group.ID, 5)
	require.NoError(t, err)

	assert.Equal(t, models.GroupStatusConfirmed, confirmed.Status)
	assert.Equal(t, 5, confirmed.TableNumber)
	assert.False(t, confirmed.ConfirmedAt.IsZero())

	table := tableDB.tables[5]
	assert.Equal(t, models.TableStatusReserved, table.Status)
	assert.Equal(t, group.ID, table.ReservationGroupID)
	assert.Equal(t, 4, table.ReservationGuests)

	assert.Equal(t, []string{group.ID}, coordDB.confirmed)
	assert.Contains(t, publisher.topics, "reservation.confirmed")
	// lock is acquired and released around the workflow
	assert.Equal(t, []int{5}, lock.acquired)
	assert.Equal(t, []int{5}, lock.released)
}

func TestConfirmWhileLockedConflicts(t *testing.T) {
	group := activeGroup()
	coordDB := NewMockCoordinatorDB(group)
	tableDB := NewMockTableDB(freeTable(5))
	lock := NewFakeLock()
	lock.held[5] = "someone-else"
	svc, _ := newTestService(coordDB, tableDB, nil, lock)

	_, err := svc.Confirm(context.Background(), group.ID, 5)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
	assert.Empty(t, coordDB.confirmed)
}

func TestConfirmBoundTableConflicts(t *testing.T) {
	group := activeGroup()
	other := freeTable(5)
	other.Status = models.TableStatusReserved
	other.ReservationGroupID = "group-2"
	coordDB := NewMockCoordinatorDB(group)
	tableDB := NewMockTableDB(other)
	svc, _ := newTestService(coordDB, tableDB, nil, NewFakeLock())

	_, err := svc.Confirm(context.Background(), group.ID, 5)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
	// the existing binding is untouched
	assert.Equal(t, "group-2", tableDB.tables[5].ReservationGroupID)
}

func TestConfirmGuardsGroupStatus(t *testing.T) {
	for _, status := range []string{models.GroupStatusConfirmed, models.GroupStatusCancelled, models.GroupStatusCompleted} {
		group := activeGroup()
		group.Status = status
		coordDB := NewMockCoordinatorDB(group)
		svc, _ := newTestService(coordDB, NewMockTableDB(freeTable(5)), nil, NewFakeLock())

		_, err := svc.Confirm(context.Background(), group.ID, 5)
		require.Error(t, err, status)
		assert.True(t, apperr.IsKind(err, apperr.KindConflict), status)
	}
}

func TestConfirmRequiresTableNumber(t *testing.T) {
	group := activeGroup()
	svc, _ := newTestService(NewMockCoordinatorDB(group), NewMockTableDB(), nil, NewFakeLock())

	_, err := svc.Confirm(context.Background(), group.ID, 0)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestConfirmUsesGroupTableWhenUnspecified(t *testing.T) {
	group := activeGroup()
	group.TableNumber = 7
	coordDB := NewMockCoordinatorDB(group)
	tableDB := NewMockTableDB(freeTable(7))
	svc, _ := newTestService(coordDB, tableDB, nil, NewFakeLock())

	confirmed, err := svc.Confirm(context.Background(), group.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 7, confirmed.TableNumber)
	assert.Equal(t, models.TableStatusReserved, tableDB.tables[7].Status)
}

func TestCancelReleasesReservedTable(t *testing.T) {
	group := activeGroup()
	group.Status = models.GroupStatusConfirmed
	group.TableNumber = 5
	table := freeTable(5)
	table.Status = models.TableStatusReserved
	table.ReservationGroupID = group.ID
	table.ReservationGuests = 4

	coordDB := NewMockCoordinatorDB(group)
	tableDB := NewMockTableDB(table)
	svc, publisher := newTestService(coordDB, tableDB, nil, NewFakeLock())

	cancelled, err := svc.Cancel(context.Background(), group.ID)
	require.NoError(t, err)

	assert.Equal(t, models.GroupStatusCancelled, cancelled.Status)
	assert.False(t, cancelled.CancelledAt.IsZero())
	assert.Equal(t, models.TableStatusFree, tableDB.tables[5].Status)
	assert.Nil(t, tableDB.tables[5].CurrentReservation())
	assert.Contains(t, publisher.topics, "reservation.cancelled")
}

func TestCancelLeavesOccupiedTableAlone(t *testing.T) {
	group := activeGroup()
	group.Status = models.GroupStatusConfirmed
	group.TableNumber = 5
	table := freeTable(5)
	table.Status = models.TableStatusOccupied
	table.ReservationGroupID = group.ID

	coordDB := NewMockCoordinatorDB(group)
	tableDB := NewMockTableDB(table)
	svc, _ := newTestService(coordDB, tableDB, nil, NewFakeLock())

	cancelled, err := svc.Cancel(context.Background(), group.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GroupStatusCancelled, cancelled.Status)
	assert.Equal(t, models.TableStatusOccupied, tableDB.tables[5].Status)
}

func TestCancelGuards(t *testing.T) {
	for _, status := range []string{models.GroupStatusCancelled, models.GroupStatusCompleted} {
		group := activeGroup()
		group.Status = status
		svc, _ := newTestService(NewMockCoordinatorDB(group), NewMockTableDB(), nil, NewFakeLock())

		_, err := svc.Cancel(context.Background(), group.ID)
		require.Error(t, err, status)
		assert.True(t, apperr.IsKind(err, apperr.KindConflict), status)
	}
}

func TestClearOrderClosesEverything(t *testing.T) {
	group := activeGroup()
	group.Status = models.GroupStatusConfirmed
	group.TableNumber = 5
	group.CurrentOrderID = "order-1"

	table := freeTable(5)
	table.Status = models.TableStatusOccupied
	table.ReservationGroupID = group.ID
	table.ReservationStart = time.Now().Add(-time.Hour)
	table.ReservationGuests = 4

	order := &models.Order{
		ID: "order-1", GroupID: group.ID,
		Status: models.OrderStatusReady, PaymentStatus: models.PaymentStatusPending,
		FinalAmount: 1357, CreatedAt: time.Now().Add(-time.Hour),
	}

	coordDB := NewMockCoordinatorDB(group)
	tableDB := NewMockTableDB(table)
	orderStore := &MockOrderStore{orders: map[string]*models.Order{order.ID: order}}
	svc, _ := newTestService(coordDB, tableDB, orderStore, NewFakeLock())

	cleared, err := svc.ClearOrder(context.Background(), group.ID)
	require.NoError(t, err)

	assert.Equal(t, models.GroupStatusCompleted, cleared.Status)
	assert.Equal(t, models.OrderStatusServed, order.Status)
	assert.Equal(t, models.PaymentStatusPaid, order.PaymentStatus)
	assert.False(t, order.ServedAt.IsZero())
	assert.Equal(t, models.TableStatusFree, table.Status)

	require.Len(t, coordDB.histories, 1)
	history := coordDB.histories[0]
	assert.Equal(t, group.ID, history.GroupID)
	assert.Equal(t, "order-1", history.OrderID)
	assert.Equal(t, int64(1357), history.TotalBill)
	assert.Equal(t, 4, history.GuestCount)
}

func TestDashboardStatsSumToTableCount(t *testing.T) {
	reserved := freeTable(2)
	reserved.Status = models.TableStatusReserved
	occupied := freeTable(3)
	occupied.Status = models.TableStatusOccupied
	maintenance := freeTable(4)
	maintenance.Status = models.TableStatusMaintenance

	pending := activeGroup()
	coordDB := NewMockCoordinatorDB(pending)
	tableDB := NewMockTableDB(freeTable(1), reserved, occupied, maintenance)
	svc, _ := newTestService(coordDB, tableDB, nil, NewFakeLock())

	view, err := svc.Dashboard(context.Background())
	require.NoError(t, err)

	stats := view.Stats
	assert.Equal(t, 1, stats.FreeTables)
	assert.Equal(t, 1, stats.ReservedTables)
	assert.Equal(t, 1, stats.OccupiedTables)
	assert.Equal(t, 1, stats.MaintenanceTables)
	assert.Equal(t, len(view.Tables), stats.FreeTables+stats.ReservedTables+stats.OccupiedTables+stats.MaintenanceTables)
	assert.Equal(t, 1, stats.PendingRequests)
	assert.Equal(t, 1, stats.TotalGroups)
	require.Len(t, view.Reservations, 1)
	assert.Equal(t, "Alice's Group", view.Reservations[0].GuestName)
}

func TestUpcomingOrdersWindow(t *testing.T) {
	group := activeGroup()
	group.TableNumber = 5

	soon := models.Order{
		ID: "soon", GroupID: group.ID, Status: models.OrderStatusPreparing,
		EstimatedTime: 20, CreatedAt: time.Now().Add(-10 * time.Minute),
		Items: []*models.OrderItem{{ID: "i1", Name: "Biryani", Quantity: 1, Price: 420}},
	}
	farOut := models.Order{
		ID: "far", GroupID: group.ID, Status: models.OrderStatusPending,
		EstimatedTime: 120, CreatedAt: time.Now(),
		Items: []*models.OrderItem{{ID: "i2", Name: "Thali", Quantity: 1, Price: 500}},
	}
	empty := models.Order{
		ID: "empty", GroupID: group.ID, Status: models.OrderStatusPending,
		EstimatedTime: 10, CreatedAt: time.Now(),
	}

	coordDB := NewMockCoordinatorDB(group)
	coordDB.orders = []models.Order{soon, farOut, empty}
	svc, _ := newTestService(coordDB, NewMockTableDB(), nil, NewFakeLock())

	rows, err := svc.UpcomingOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "soon", rows[0].ID)
	assert.Equal(t, 5, rows[0].TableNumber)
	assert.Equal(t, "Alice's Group", rows[0].GuestName)
	assert.Contains(t, rows[0].OrderSummary, "Biryani")
}

package tables

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

type MockTableDB struct {
	tables  map[int]*models.Table
	history []*models.TableHistory
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
	copied := *table
	return &copied, nil
}

func (m *MockTableDB) SaveTableWithHistory(_ context.Context, table *models.Table, history *models.TableHistory) error {
	m.tables[table.Number] = table
	if history != nil {
		m.history = append(m.history, history)
	}
	return nil
}

func (m *MockTableDB) ListHistory(_ context.Context, tableID string, _ int) ([]models.TableHistory, error) {
	var out []models.TableHistory
	for _, h := range m.history {
		if h.TableID == tableID {
			out = append(out, *h)
		}
	}
	return out, nil
}

func occupiedTable() *models.Table {
	return &models.Table{
		ID: "table-5", Number: 5, Capacity: 4,
		Status:             models.TableStatusOccupied,
		CurrentGuests:      3,
		IsActive:           true,
		ReservationGroupID: "group-1",
		ReservationStart:   time.Now().Add(-time.Hour),
		ReservationEnd:     time.Now().Add(time.Hour),
		ReservationGuests:  3,
	}
}

func TestBindRejectsBoundTable(t *testing.T) {
	table := &models.Table{ID: "t1", Number: 1, Status: models.TableStatusFree}
	require.NoError(t, Bind(table, "group-1", time.Now(), time.Now().Add(2*time.Hour), 4))
	assert.Equal(t, models.TableStatusReserved, table.Status)

	err := Bind(table, "group-2", time.Now(), time.Now().Add(2*time.Hour), 2)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
	// first reservation untouched
	assert.Equal(t, "group-1", table.ReservationGroupID)
}

func TestBindRequiresFreeTable(t *testing.T) {
	table := &models.Table{ID: "t1", Number: 1, Status: models.TableStatusMaintenance}
	err := Bind(table, "group-1", time.Now(), time.Now().Add(time.Hour), 2)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
}

func TestReleaseOnlyReservedTables(t *testing.T) {
	table := &models.Table{ID: "t1", Number: 1, Status: models.TableStatusFree}
	require.NoError(t, Bind(table, "group-1", time.Now(), time.Now().Add(time.Hour), 2))
	require.NoError(t, Release(table))
	assert.Equal(t, models.TableStatusFree, table.Status)
	assert.Nil(t, table.CurrentReservation())

	occupied := occupiedTable()
	err := Release(occupied)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
	assert.Equal(t, models.TableStatusOccupied, occupied.Status)
}

func TestSetStatusRecordsHistoryFromPreMutationState(t *testing.T) {
	mockDB := NewMockTableDB(occupiedTable())
	svc := NewService(mockDB, logger.NewLogger())

	view, err := svc.SetStatus(context.Background(), 5, models.TableStatusRequest{Status: models.TableStatusFree})
	require.NoError(t, err)

	assert.Equal(t, models.TableStatusFree, view.Table.Status)
	assert.Nil(t, view.CurrentReservation)
	assert.Equal(t, 0, view.Table.CurrentGuests)

	// the history row carries the reservation that was on the table when
	// the transition started, not the cleared state
	require.Len(t, mockDB.history, 1)
	row := mockDB.history[0]
	assert.Equal(t, "group-1", row.GroupID)
	assert.Equal(t, 3, row.GuestCount)
	assert.False(t, row.StartTime.IsZero())
}

func TestSetStatusWithoutReservationSkipsHistory(t *testing.T) {
	mockDB := NewMockTableDB(&models.Table{ID: "t2", Number: 2, Status: models.TableStatusMaintenance, IsActive: true})
	svc := NewService(mockDB, logger.NewLogger())

	_, err := svc.SetStatus(context.Background(), 2, models.TableStatusRequest{Status: models.TableStatusFree})
	require.NoError(t, err)
	assert.Empty(t, mockDB.history)
}

func TestSetStatusValidation(t *testing.T) {
	mockDB := NewMockTableDB(occupiedTable())
	svc := NewService(mockDB, logger.NewLogger())
	ctx := context.Background()

	_, err := svc.SetStatus(ctx, 5, models.TableStatusRequest{Status: "broken"})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	negative := -1
	_, err = svc.SetStatus(ctx, 5, models.TableStatusRequest{Status: models.TableStatusOccupied, CurrentGuests: &negative})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = svc.SetStatus(ctx, 99, models.TableStatusRequest{Status: models.TableStatusFree})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestSetStatusUpdatesGuestCount(t *testing.T) {
	mockDB := NewMockTableDB(&models.Table{ID: "t3", Number: 3, Status: models.TableStatusFree, IsActive: true})
	svc := NewService(mockDB, logger.NewLogger())

	guests := 4
	view, err := svc.SetStatus(context.Background(), 3, models.TableStatusRequest{
		Status: models.TableStatusOccupied, CurrentGuests: &guests,
	})
	require.NoError(t, err)
	assert.Equal(t, models.TableStatusOccupied, view.Table.Status)
	assert.Equal(t, 4, view.Table.CurrentGuests)
}

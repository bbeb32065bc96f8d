package groups

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	groupsdb "browntable/internal/groups/db"
	"browntable/internal/kafka"
	"browntable/internal/logger"
	"browntable/internal/models"
	"browntable/internal/orders"
	ordersdb "browntable/internal/orders/db"
)

// setupFlowServices wires the real registry and ledger on top of an
// in-memory database, as main does against Postgres.
func setupFlowServices(t *testing.T) (*Service, *orders.Service) {
	t.Helper()
	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { sqldb.Close() })

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	ctx := context.Background()
	for _, m := range []interface{}{
		(*models.Group)(nil), (*models.GroupMember)(nil), (*models.PendingInvite)(nil),
		(*models.Order)(nil), (*models.OrderItem)(nil),
	} {
		require.NoError(t, bunDB.ResetModel(ctx, m))
	}

	log := logger.NewLogger()
	groupDB := groupsdb.NewGroupDB(bunDB)
	orderDB := ordersdb.NewOrderDB(bunDB)
	orderSvc := orders.NewService(orderDB, groupDB, kafka.MockProducer{}, "order.updated", log)
	groupSvc := NewService(groupDB, NewMockUserDirectory(), orderSvc, log, "http://localhost:5173")
	return groupSvc, orderSvc
}

// TestGroupDinnerFlow walks the happy path end to end: Alice opens a
// group, Bob joins through the invite code, both put in their dishes and
// the shared order view comes back partitioned with the amounts rederived.
func TestGroupDinnerFlow(t *testing.T) {
	groupSvc, orderSvc := setupFlowServices(t)
	ctx := context.Background()
	alice := aliceSession()
	bob := bobSession()

	group, err := groupSvc.CreateGroup(ctx, alice, models.CreateGroupRequest{
		AdminName:     "Alice",
		Date:          "2024-01-01",
		ArrivalTime:   "7:00 PM",
		DepartureTime: "9:00 PM",
		GuestCount:    2,
	})
	require.NoError(t, err)
	require.NotEmpty(t, group.InviteCode)
	require.NotEmpty(t, group.CurrentOrderID, "a fresh group starts with an empty order")

	joined, err := groupSvc.JoinByInviteCode(ctx, bob, group.InviteCode)
	require.NoError(t, err)
	require.True(t, joined.IsMember("bob"))
	require.Len(t, joined.Members, 2)

	_, err = orderSvc.ReplaceMyItems(ctx, alice, group.ID, models.UpdateOrderRequest{
		Items: []models.OrderItemInput{
			{Name: "Paneer Tikka", Price: 280, Quantity: 2},
		},
	})
	require.NoError(t, err)

	_, err = orderSvc.ReplaceMyItems(ctx, bob, group.ID, models.UpdateOrderRequest{
		Items: []models.OrderItemInput{
			{Name: "Dal Makhani", Price: 500, Quantity: 1, Type: models.ItemTypeVeg},
		},
	})
	require.NoError(t, err)

	view, err := orderSvc.GroupOrderView(ctx, alice, group.ID)
	require.NoError(t, err)
	require.NotNil(t, view.Order)
	assert.Equal(t, group.CurrentOrderID, view.Order.ID)

	require.Contains(t, view.ItemsByMember, "alice")
	require.Len(t, view.ItemsByMember["alice"].Items, 1)
	assert.Equal(t, "Paneer Tikka", view.ItemsByMember["alice"].Items[0].Name)
	assert.Equal(t, 2, view.ItemsByMember["alice"].Items[0].Quantity)

	require.Contains(t, view.ItemsByMember, "bob")
	require.Len(t, view.ItemsByMember["bob"].Items, 1)
	assert.Equal(t, "Dal Makhani", view.ItemsByMember["bob"].Items[0].Name)

	assert.Equal(t, int64(1060), view.Order.TotalAmount)
	assert.Equal(t, int64(106), view.Order.ServiceCharge)
	assert.Equal(t, int64(191), view.Order.Tax)
	assert.Equal(t, int64(1357), view.Order.FinalAmount)
}

package db

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"browntable/internal/apperr"
	"browntable/internal/models"
)

func setupTestDB(t *testing.T) *OrderDB {
	t.Helper()
	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { sqldb.Close() })

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	ctx := context.Background()
	for _, m := range []interface{}{
		(*models.Group)(nil), (*models.GroupMember)(nil),
		(*models.Order)(nil), (*models.OrderItem)(nil),
	} {
		require.NoError(t, bunDB.ResetModel(ctx, m))
	}
	return NewOrderDB(bunDB)
}

func seedOrder(t *testing.T, d *OrderDB) *models.Order {
	t.Helper()
	ctx := context.Background()
	group := &models.Group{
		ID: "group-1", Name: "Test Group", GroupAdminID: "alice",
		InviteCode: "abc12345", ArrivalTime: "7:00 PM", DepartureTime: "9:00 PM",
		Date: "2026-09-01", Status: models.GroupStatusActive, MaxMembers: 10,
		Restaurant: "The Brown Table", CreatedAt: time.Now(),
	}
	_, err := d.bun.NewInsert().Model(group).Exec(ctx)
	require.NoError(t, err)

	order := &models.Order{
		ID: "order-1", GroupID: group.ID,
		Status: models.OrderStatusPending, PaymentStatus: models.PaymentStatusPending,
		OrderBy: "alice", EstimatedTime: 30, CreatedAt: time.Now(),
	}
	require.NoError(t, d.CreateOrderForGroup(context.Background(), order))
	return order
}

func TestCreateOrderForGroupLinksGroup(t *testing.T) {
	d := setupTestDB(t)
	order := seedOrder(t, d)

	group := new(models.Group)
	err := d.bun.NewSelect().Model(group).Where("g.id = ?", order.GroupID).Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, order.ID, group.CurrentOrderID)
}

func TestReplaceMemberItemsRecomputesTotals(t *testing.T) {
	d := setupTestDB(t)
	order := seedOrder(t, d)
	ctx := context.Background()

	items := []*models.OrderItem{
		{ID: "i1", OrderID: order.ID, Name: "Paneer Tikka", Price: 280, Quantity: 2, ItemType: models.ItemTypeVeg, AddedBy: "alice", AddedAt: time.Now()},
		{ID: "i2", OrderID: order.ID, Name: "Butter Chicken", Price: 450, Quantity: 1, ItemType: models.ItemTypeNonVeg, AddedBy: "alice", AddedAt: time.Now()},
		{ID: "i3", OrderID: order.ID, Name: "Naan", Price: 50, Quantity: 1, ItemType: models.ItemTypeVeg, AddedBy: "alice", AddedAt: time.Now()},
	}
	updated, err := d.ReplaceMemberItems(ctx, order.ID, "alice", items, 0)
	require.NoError(t, err)

	assert.Equal(t, int64(1060), updated.TotalAmount)
	assert.Equal(t, int64(106), updated.ServiceCharge)
	assert.Equal(t, int64(191), updated.Tax)
	assert.Equal(t, int64(1357), updated.FinalAmount)
	assert.Len(t, updated.Items, 3)
}

func TestReplaceMemberItemsIsIdempotent(t *testing.T) {
	d := setupTestDB(t)
	order := seedOrder(t, d)
	ctx := context.Background()

	build := func() []*models.OrderItem {
		return []*models.OrderItem{
			{ID: "a1", OrderID: order.ID, Name: "Dal Makhani", Price: 320, Quantity: 1, ItemType: models.ItemTypeVeg, AddedBy: "alice", AddedAt: time.Now()},
		}
	}
	first, err := d.ReplaceMemberItems(ctx, order.ID, "alice", build(), 0)
	require.NoError(t, err)
	second, err := d.ReplaceMemberItems(ctx, order.ID, "alice", build(), 0)
	require.NoError(t, err)

	assert.Equal(t, first.TotalAmount, second.TotalAmount)
	assert.Equal(t, first.FinalAmount, second.FinalAmount)
	assert.Len(t, second.Items, 1)
}

func TestReplaceMemberItemsOnlyTouchesOwnItems(t *testing.T) {
	d := setupTestDB(t)
	order := seedOrder(t, d)
	ctx := context.Background()

	_, err := d.ReplaceMemberItems(ctx, order.ID, "alice", []*models.OrderItem{
		{ID: "a1", OrderID: order.ID, Name: "Biryani", Price: 420, Quantity: 1, ItemType: models.ItemTypeNonVeg, AddedBy: "alice", AddedAt: time.Now()},
	}, 0)
	require.NoError(t, err)

	updated, err := d.ReplaceMemberItems(ctx, order.ID, "bob", []*models.OrderItem{
		{ID: "b1", OrderID: order.ID, Name: "Lassi", Price: 120, Quantity: 2, ItemType: models.ItemTypeVeg, AddedBy: "bob", AddedAt: time.Now()},
	}, 0)
	require.NoError(t, err)
	assert.Len(t, updated.Items, 2)

	// clearing bob's items leaves alice's untouched
	cleared, err := d.ReplaceMemberItems(ctx, order.ID, "bob", nil, 0)
	require.NoError(t, err)
	require.Len(t, cleared.Items, 1)
	assert.Equal(t, "alice", cleared.Items[0].AddedBy)
	assert.Equal(t, int64(420), cleared.TotalAmount)
}

func TestRemoveItemChecksOwnership(t *testing.T) {
	d := setupTestDB(t)
	order := seedOrder(t, d)
	ctx := context.Background()

	_, err := d.ReplaceMemberItems(ctx, order.ID, "alice", []*models.OrderItem{
		{ID: "a1", OrderID: order.ID, Name: "Chai", Price: 60, Quantity: 1, ItemType: models.ItemTypeVeg, AddedBy: "alice", AddedAt: time.Now()},
	}, 0)
	require.NoError(t, err)

	_, err = d.RemoveItem(ctx, order.ID, "a1", "bob", false)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))

	// override path used by staff and the group admin
	updated, err := d.RemoveItem(ctx, order.ID, "a1", "bob", true)
	require.NoError(t, err)
	assert.Len(t, updated.Items, 0)
	assert.Equal(t, int64(0), updated.FinalAmount)
}

func TestRemoveItemNotFound(t *testing.T) {
	d := setupTestDB(t)
	order := seedOrder(t, d)

	_, err := d.RemoveItem(context.Background(), order.ID, "missing", "alice", false)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

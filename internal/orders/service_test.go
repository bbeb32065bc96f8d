package orders

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

type MockOrderDB struct {
	orders map[string]*models.Order
}

func NewMockOrderDB() *MockOrderDB {
	return &MockOrderDB{orders: make(map[string]*models.Order)}
}

func (m *MockOrderDB) CreateOrderForGroup(_ context.Context, order *models.Order) error {
	copied := *order
	m.orders[order.ID] = &copied
	return nil
}

func (m *MockOrderDB) GetOrderByID(_ context.Context, id string) (*models.Order, error) {
	order, ok := m.orders[id]
	if !ok {
		return nil, apperr.NotFound("order not found")
	}
	return order, nil
}

func (m *MockOrderDB) GetLatestOrderForGroup(_ context.Context, groupID string) (*models.Order, error) {
	var latest *models.Order
	for _, order := range m.orders {
		if order.GroupID != groupID {
			continue
		}
		if latest == nil || order.CreatedAt.After(latest.CreatedAt) {
			latest = order
		}
	}
	if latest == nil {
		return nil, apperr.NotFound("order not found")
	}
	return latest, nil
}

func (m *MockOrderDB) ReplaceMemberItems(_ context.Context, orderID, memberID string, items []*models.OrderItem, discount int64) (*models.Order, error) {
	order, ok := m.orders[orderID]
	if !ok {
		return nil, apperr.NotFound("order not found")
	}
	kept := make([]*models.OrderItem, 0, len(order.Items)+len(items))
	for _, item := range order.Items {
		if item.AddedBy != memberID {
			kept = append(kept, item)
		}
	}
	order.Items = append(kept, items...)
	order.Discount = discount
	order.Recalculate()
	return order, nil
}

func (m *MockOrderDB) RemoveItem(_ context.Context, orderID, itemID, callerID string, override bool) (*models.Order, error) {
	order, ok := m.orders[orderID]
	if !ok {
		return nil, apperr.NotFound("order not found")
	}
	kept := order.Items[:0]
	found := false
	for _, item := range order.Items {
		if item.ID == itemID {
			found = true
			if !override && item.AddedBy != callerID {
				return nil, apperr.Forbidden("you can only remove your own items")
			}
			continue
		}
		kept = append(kept, item)
	}
	if !found {
		return nil, apperr.NotFound("item not found")
	}
	order.Items = kept
	order.Recalculate()
	return order, nil
}

func (m *MockOrderDB) UpdateOrderStatus(_ context.Context, order *models.Order) error {
	m.orders[order.ID] = order
	return nil
}

func (m *MockOrderDB) RecalculateOrder(_ context.Context, orderID string, discount int64) (*models.Order, error) {
	return m.ReplaceMemberItems(context.Background(), orderID, "", nil, discount)
}

type MockGroupStore struct {
	groups map[string]*models.Group
}

func (m *MockGroupStore) GetGroupByID(_ context.Context, id string) (*models.Group, error) {
	group, ok := m.groups[id]
	if !ok {
		return nil, apperr.NotFound("group not found")
	}
	return group, nil
}

type RecordingPublisher struct {
	topics []string
	keys   []string
}

func (p *RecordingPublisher) Publish(topic, key string, _ []byte) error {
	p.topics = append(p.topics, topic)
	p.keys = append(p.keys, key)
	return nil
}

func (p *RecordingPublisher) Close() error { return nil }

func testGroup() *models.Group {
	return &models.Group{
		ID:           "group-1",
		Name:         "Alice's Group",
		GroupAdminID: "alice",
		Status:       models.GroupStatusActive,
		MaxMembers:   10,
		Members: []*models.GroupMember{
			{GroupID: "group-1", UserID: "alice", Name: "Alice", IsAdmin: true},
			{GroupID: "group-1", UserID: "bob", Name: "Bob"},
		},
	}
}

func newTestService(group *models.Group) (*Service, *MockOrderDB, *RecordingPublisher) {
	mockDB := NewMockOrderDB()
	groupStore := &MockGroupStore{groups: map[string]*models.Group{group.ID: group}}
	publisher := &RecordingPublisher{}
	svc := NewService(mockDB, groupStore, publisher, "order.updated", logger.NewLogger())
	return svc, mockDB, publisher
}

func session(userID, name string) *models.Session {
	return &models.Session{UserID: userID, Name: name}
}

func TestCurrentOrderFallsBackToLatest(t *testing.T) {
	group := testGroup()
	svc, mockDB, _ := newTestService(group)
	ctx := context.Background()

	// a legacy row: the order exists but the group does not point at it
	older := &models.Order{ID: "legacy-1", GroupID: group.ID, CreatedAt: time.Now().Add(-2 * time.Hour)}
	newer := &models.Order{ID: "legacy-2", GroupID: group.ID, CreatedAt: time.Now().Add(-time.Hour)}
	require.NoError(t, mockDB.CreateOrderForGroup(ctx, older))
	require.NoError(t, mockDB.CreateOrderForGroup(ctx, newer))

	order, err := svc.CurrentOrder(ctx, session("alice", "Alice"), group.ID)
	require.NoError(t, err)
	assert.Equal(t, "legacy-2", order.ID)
}

func TestCurrentOrderWithoutAnyOrder(t *testing.T) {
	group := testGroup()
	svc, _, _ := newTestService(group)

	_, err := svc.CurrentOrder(context.Background(), session("alice", "Alice"), group.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestEnsureCurrentOrderCreatesOnce(t *testing.T) {
	group := testGroup()
	svc, mockDB, _ := newTestService(group)
	ctx := context.Background()

	order, err := svc.EnsureCurrentOrder(ctx, session("alice", "Alice"), group.ID)
	require.NoError(t, err)
	require.NotEmpty(t, order.ID)
	assert.Equal(t, models.OrderStatusPending, order.Status)

	// mirror what the real db layer does inside the transaction
	group.CurrentOrderID = order.ID

	again, err := svc.EnsureCurrentOrder(ctx, session("bob", "Bob"), group.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, again.ID)
	assert.Len(t, mockDB.orders, 1)
}

func TestEnsureCurrentOrderRequiresMembership(t *testing.T) {
	group := testGroup()
	svc, _, _ := newTestService(group)

	_, err := svc.EnsureCurrentOrder(context.Background(), session("mallory", "Mallory"), group.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
}

func TestReplaceMyItemsComputesTotals(t *testing.T) {
	group := testGroup()
	svc, _, publisher := newTestService(group)
	ctx := context.Background()

	order, err := svc.ReplaceMyItems(ctx, session("alice", "Alice"), group.ID, models.UpdateOrderRequest{
		Items: []models.OrderItemInput{
			{Name: "Paneer Tikka", Price: 280, Quantity: 2, Type: models.ItemTypeVeg},
			{Name: "Butter Chicken", Price: 450, Quantity: 1, Type: models.ItemTypeNonVeg},
			{Name: "Naan", Price: 50, Quantity: 1, Type: models.ItemTypeVeg},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1060), order.TotalAmount)
	assert.Equal(t, int64(106), order.ServiceCharge)
	assert.Equal(t, int64(191), order.Tax)
	assert.Equal(t, int64(1357), order.FinalAmount)
	assert.Contains(t, publisher.topics, "order.updated")
}

func TestReplaceMyItemsRejectsEditingOthers(t *testing.T) {
	group := testGroup()
	svc, _, _ := newTestService(group)

	_, err := svc.ReplaceMyItems(context.Background(), session("bob", "Bob"), group.ID, models.UpdateOrderRequest{
		UserID: "alice",
		Items:  []models.OrderItemInput{{Name: "Chai", Price: 60, Quantity: 1}},
	})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
}

func TestReplaceMyItemsGroupAdminEditsForMember(t *testing.T) {
	group := testGroup()
	svc, _, _ := newTestService(group)

	order, err := svc.ReplaceMyItems(context.Background(), session("alice", "Alice"), group.ID, models.UpdateOrderRequest{
		UserID: "bob",
		Items:  []models.OrderItemInput{{Name: "Lassi", Price: 120, Quantity: 1}},
	})
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "bob", order.Items[0].AddedBy)
}

func TestReplaceMyItemsValidation(t *testing.T) {
	group := testGroup()
	svc, _, _ := newTestService(group)
	ctx := context.Background()

	cases := []models.OrderItemInput{
		{Name: "", Price: 100, Quantity: 1},
		{Name: "Naan", Price: -5, Quantity: 1},
		{Name: "Naan", Price: 60, Quantity: 0},
		{Name: "Naan", Price: 60, Quantity: 1, Type: "vegan"},
	}
	for _, input := range cases {
		_, err := svc.ReplaceMyItems(ctx, session("alice", "Alice"), group.ID, models.UpdateOrderRequest{
			Items: []models.OrderItemInput{input},
		})
		require.Error(t, err)
		assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	}
}

func TestRemoveItemOwnershipAndOverride(t *testing.T) {
	group := testGroup()
	svc, _, _ := newTestService(group)
	ctx := context.Background()

	order, err := svc.ReplaceMyItems(ctx, session("bob", "Bob"), group.ID, models.UpdateOrderRequest{
		Items: []models.OrderItemInput{{Name: "Biryani", Price: 420, Quantity: 1, Type: models.ItemTypeNonVeg}},
	})
	require.NoError(t, err)
	group.CurrentOrderID = order.ID
	itemID := order.Items[0].ID

	// group admin removes someone else's item
	updated, err := svc.RemoveItem(ctx, "alice", group.ID, itemID, false)
	require.NoError(t, err)
	assert.Len(t, updated.Items, 0)
}

func TestSetStatusStampsServedAt(t *testing.T) {
	group := testGroup()
	svc, mockDB, _ := newTestService(group)
	ctx := context.Background()

	order, err := svc.EnsureCurrentOrder(ctx, session("alice", "Alice"), group.ID)
	require.NoError(t, err)

	updated, err := svc.SetStatus(ctx, order.ID, models.OrderStatusRequest{Status: models.OrderStatusServed})
	require.NoError(t, err)
	assert.False(t, updated.ServedAt.IsZero())
	assert.WithinDuration(t, time.Now(), updated.ServedAt, time.Minute)
	assert.Equal(t, models.OrderStatusServed, mockDB.orders[order.ID].Status)
}

func TestSetStatusRejectsUnknownStatus(t *testing.T) {
	group := testGroup()
	svc, _, _ := newTestService(group)

	_, err := svc.SetStatus(context.Background(), "whatever", models.OrderStatusRequest{Status: "eaten"})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestGroupOrderViewPartitionsByMember(t *testing.T) {
	group := testGroup()
	svc, _, _ := newTestService(group)
	ctx := context.Background()

	order, err := svc.ReplaceMyItems(ctx, session("alice", "Alice"), group.ID, models.UpdateOrderRequest{
		Items: []models.OrderItemInput{{Name: "Paneer Tikka", Price: 280, Quantity: 1, Type: models.ItemTypeVeg}},
	})
	require.NoError(t, err)
	group.CurrentOrderID = order.ID

	_, err = svc.ReplaceMyItems(ctx, session("bob", "Bob"), group.ID, models.UpdateOrderRequest{
		Items: []models.OrderItemInput{{Name: "Chicken 65", Price: 320, Quantity: 1, Type: models.ItemTypeNonVeg}},
	})
	require.NoError(t, err)

	view, err := svc.GroupOrderView(ctx, session("alice", "Alice"), group.ID)
	require.NoError(t, err)
	require.NotNil(t, view.Order)
	assert.Len(t, view.ItemsByMember["alice"].Items, 1)
	assert.Len(t, view.ItemsByMember["bob"].Items, 1)
	assert.Equal(t, "Paneer Tikka", view.ItemsByMember["alice"].Items[0].Name)
}

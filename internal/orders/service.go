// Package orders implements the shared order ledger: one current order per
// group, collectively edited, with all amounts rederived on every write.
package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"browntable/internal/apperr"
	"browntable/internal/kafka"
	"browntable/internal/logger"
	"browntable/internal/models"
	"browntable/internal/orders/db"
)

const defaultEstimatedMinutes = 30

// GroupStore is the slice of the group registry the ledger needs.
type GroupStore interface {
	GetGroupByID(ctx context.Context, id string) (*models.Group, error)
}

type Service struct {
	db        db.DBLayer
	groups    GroupStore
	publisher kafka.Publisher
	topic     string
	log       *logger.Logger
}

func NewService(dbLayer db.DBLayer, groups GroupStore, publisher kafka.Publisher, topic string, log *logger.Logger) *Service {
	return &Service{db: dbLayer, groups: groups, publisher: publisher, topic: topic, log: log}
}

// EnsureCurrentOrder returns the group's current order, creating an empty
// one if the group has none yet.
func (s *Service) EnsureCurrentOrder(ctx context.Context, session *models.Session, groupID string) (*models.Order, error) {
	group, err := s.memberGroup(ctx, session, groupID)
	if err != nil {
		return nil, err
	}
	return s.ensureOrder(ctx, group, session.UserID)
}

// OpenInitialOrder creates the group's first empty order; the group
// registry calls this right after the group row exists.
func (s *Service) OpenInitialOrder(ctx context.Context, group *models.Group, creatorID string) (*models.Order, error) {
	return s.ensureOrder(ctx, group, creatorID)
}

func (s *Service) ensureOrder(ctx context.Context, group *models.Group, creatorID string) (*models.Order, error) {
	if group.CurrentOrderID != "" {
		return s.db.GetOrderByID(ctx, group.CurrentOrderID)
	}

	order := &models.Order{
		ID:            uuid.NewString(),
		GroupID:       group.ID,
		Status:        models.OrderStatusPending,
		PaymentStatus: models.PaymentStatusPending,
		Discount:      int64(group.Discount),
		OrderBy:       creatorID,
		EstimatedTime: defaultEstimatedMinutes,
		CreatedAt:     time.Now(),
	}
	if err := s.db.CreateOrderForGroup(ctx, order); err != nil {
		return nil, err
	}
	s.log.LogOrder("CREATE", order.ID, "Order opened for group "+group.ID)
	return order, nil
}

// CurrentOrder returns the group's current order without creating one.
func (s *Service) CurrentOrder(ctx context.Context, session *models.Session, groupID string) (*models.Order, error) {
	group, err := s.memberGroup(ctx, session, groupID)
	if err != nil {
		return nil, err
	}
	if group.CurrentOrderID == "" {
		// rows from before the explicit pointer existed
		order, err := s.db.GetLatestOrderForGroup(ctx, groupID)
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, apperr.NotFound("group has no order yet")
		}
		return order, err
	}
	return s.db.GetOrderByID(ctx, group.CurrentOrderID)
}

// ReplaceMyItems swaps the caller's contribution to the group order for
// the submitted list. Submitting an empty list clears their items. The
// whole swap and the totals rewrite happen atomically.
func (s *Service) ReplaceMyItems(ctx context.Context, session *models.Session, groupID string, req models.UpdateOrderRequest) (*models.Order, error) {
	group, err := s.memberGroup(ctx, session, groupID)
	if err != nil {
		return nil, err
	}

	// Members edit their own items; the group admin may edit anyone's.
	targetID := session.UserID
	if req.UserID != "" && req.UserID != session.UserID {
		if group.GroupAdminID != session.UserID {
			return nil, apperr.Forbidden("you can only edit your own items")
		}
		if !group.IsMember(req.UserID) {
			return nil, apperr.Validation("target user is not a member of this group")
		}
		targetID = req.UserID
	}

	order, err := s.ensureOrder(ctx, group, session.UserID)
	if err != nil {
		return nil, err
	}

	items := make([]*models.OrderItem, 0, len(req.Items))
	for _, input := range req.Items {
		item, err := buildItem(order.ID, targetID, input)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	updated, err := s.db.ReplaceMemberItems(ctx, order.ID, targetID, items, int64(group.Discount))
	if err != nil {
		return nil, err
	}

	s.log.LogOrder("UPDATE", order.ID, fmt.Sprintf("Member %s set %d item(s)", targetID, len(items)))
	s.publishOrderEvent(updated)
	return updated, nil
}

func buildItem(orderID, memberID string, input models.OrderItemInput) (*models.OrderItem, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperr.Validation("item name is required")
	}
	if input.Price < 0 {
		return nil, apperr.Validation("item price cannot be negative")
	}
	if input.Quantity < 1 {
		return nil, apperr.Validation("item quantity must be at least 1")
	}
	itemType := input.Type
	if itemType == "" {
		itemType = models.ItemTypeVeg
	}
	if itemType != models.ItemTypeVeg && itemType != models.ItemTypeNonVeg {
		return nil, apperr.Validation("item type must be veg or non-veg")
	}
	return &models.OrderItem{
		ID:                  uuid.NewString(),
		OrderID:             orderID,
		Name:                name,
		Price:               input.Price,
		Quantity:            input.Quantity,
		ItemType:            itemType,
		AddedBy:             memberID,
		SpecialInstructions: strings.TrimSpace(input.SpecialInstructions),
		AddedAt:             time.Now(),
	}, nil
}

// RemoveItem deletes a single item from the group order. Members remove
// only their own items; staff calls pass override to remove anyone's.
func (s *Service) RemoveItem(ctx context.Context, callerID, groupID, itemID string, override bool) (*models.Order, error) {
	group, err := s.groups.GetGroupByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !override && !group.IsMember(callerID) {
		return nil, apperr.Forbidden("not a member of this group")
	}
	if group.CurrentOrderID == "" {
		return nil, apperr.NotFound("group has no order yet")
	}

	// The group admin overrides ownership like staff does.
	if group.GroupAdminID == callerID {
		override = true
	}

	order, err := s.db.RemoveItem(ctx, group.CurrentOrderID, itemID, callerID, override)
	if err != nil {
		return nil, err
	}

	s.log.LogOrder("REMOVE_ITEM", order.ID, fmt.Sprintf("Item %s removed by %s", itemID, callerID))
	s.publishOrderEvent(order)
	return order, nil
}

// SetStatus moves the order's status and payment status. Transitions are
// deliberately unrestricted so staff can correct mistakes; served stamps
// served_at once.
func (s *Service) SetStatus(ctx context.Context, orderID string, req models.OrderStatusRequest) (*models.Order, error) {
	if req.Status == "" && req.PaymentStatus == "" {
		return nil, apperr.Validation("status or payment status is required")
	}
	if req.Status != "" && !models.ValidOrderStatus(req.Status) {
		return nil, apperr.Validation("invalid order status")
	}
	if req.PaymentStatus != "" && !models.ValidPaymentStatus(req.PaymentStatus) {
		return nil, apperr.Validation("invalid payment status")
	}

	order, err := s.db.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if req.Status != "" {
		order.Status = req.Status
		if req.Status == models.OrderStatusServed && order.ServedAt.IsZero() {
			order.ServedAt = time.Now()
		}
	}
	if req.PaymentStatus != "" {
		order.PaymentStatus = req.PaymentStatus
	}
	order.UpdatedAt = time.Now()

	if err := s.db.UpdateOrderStatus(ctx, order); err != nil {
		return nil, err
	}

	s.log.LogOrder("STATUS", order.ID, "Status set to "+order.Status)
	s.publishOrderEvent(order)
	return order, nil
}

// GroupOrderView returns the group, its current order and the items
// partitioned by the member who added them.
func (s *Service) GroupOrderView(ctx context.Context, session *models.Session, groupID string) (*models.GroupOrderView, error) {
	group, err := s.memberGroup(ctx, session, groupID)
	if err != nil {
		return nil, err
	}

	view := &models.GroupOrderView{
		Group:         group,
		ItemsByMember: make(map[string]*models.MemberItems, len(group.Members)),
	}
	for _, member := range group.Members {
		view.ItemsByMember[member.UserID] = &models.MemberItems{Member: member, Items: []*models.OrderItem{}}
	}

	if group.CurrentOrderID == "" {
		return view, nil
	}
	order, err := s.db.GetOrderByID(ctx, group.CurrentOrderID)
	if err != nil {
		return nil, err
	}
	view.Order = order
	for _, item := range order.Items {
		bucket, ok := view.ItemsByMember[item.AddedBy]
		if !ok {
			// item from a member who has since left the group
			bucket = &models.MemberItems{Items: []*models.OrderItem{}}
			view.ItemsByMember[item.AddedBy] = bucket
		}
		bucket.Items = append(bucket.Items, item)
	}
	return view, nil
}

// OrderByID is the staff lookup; no membership check.
func (s *Service) OrderByID(ctx context.Context, orderID string) (*models.Order, error) {
	return s.db.GetOrderByID(ctx, orderID)
}

func (s *Service) memberGroup(ctx context.Context, session *models.Session, groupID string) (*models.Group, error) {
	group, err := s.groups.GetGroupByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !group.IsMember(session.UserID) {
		return nil, apperr.Forbidden("not a member of this group")
	}
	return group, nil
}

type orderEvent struct {
	OrderID     string    `json:"orderId"`
	GroupID     string    `json:"groupId"`
	Status      string    `json:"status"`
	FinalAmount int64     `json:"finalAmount"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (s *Service) publishOrderEvent(order *models.Order) {
	if s.publisher == nil {
		return
	}
	payload, err := json.Marshal(orderEvent{
		OrderID:     order.ID,
		GroupID:     order.GroupID,
		Status:      order.Status,
		FinalAmount: order.FinalAmount,
		UpdatedAt:   time.Now(),
	})
	if err != nil {
		return
	}
	if err := s.publisher.Publish(s.topic, order.GroupID, payload); err != nil {
		s.log.Warn("KAFKA", "Failed to publish order event: "+err.Error())
	}
}

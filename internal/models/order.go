package models

import (
	"math"
	"time"

	"github.com/uptrace/bun"
)

const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusPreparing = "preparing"
	OrderStatusReady     = "ready"
	OrderStatusServed    = "served"
	OrderStatusCancelled = "cancelled"

	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusFailed   = "failed"
	PaymentStatusRefunded = "refunded"
)

func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusPreparing,
		OrderStatusReady, OrderStatusServed, OrderStatusCancelled:
		return true
	}
	return false
}

func ValidPaymentStatus(s string) bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// Order is the collectively built item list for one group session. The
// derived amount fields are recomputed on every save and never trusted
// from input.
type Order struct {
	bun.BaseModel `bun:"table:orders,alias:o"`

	ID            string    `bun:"id,pk" json:"id"`
	GroupID       string    `bun:"group_id,notnull" json:"groupId"`
	Status        string    `bun:"status,notnull,default:'pending'" json:"status"`
	PaymentStatus string    `bun:"payment_status,notnull,default:'pending'" json:"paymentStatus"`
	TotalAmount   int64     `bun:"total_amount,notnull,default:0" json:"totalAmount"`
	ServiceCharge int64     `bun:"service_charge,notnull,default:0" json:"serviceCharge"`
	Tax           int64     `bun:"tax,notnull,default:0" json:"tax"`
	Discount      int64     `bun:"discount,notnull,default:0" json:"discount"`
	FinalAmount   int64     `bun:"final_amount,notnull,default:0" json:"finalAmount"`
	OrderBy       string    `bun:"order_by,notnull" json:"orderBy"`
	EstimatedTime int       `bun:"estimated_time,notnull,default:30" json:"estimatedTime"`
	Notes         string    `bun:"notes,nullzero" json:"notes,omitempty"`
	ServedAt      time.Time `bun:"served_at,nullzero" json:"servedAt,omitempty"`
	CreatedAt     time.Time `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt     time.Time `bun:"updated_at,nullzero" json:"updatedAt,omitempty"`

	Items []*OrderItem `bun:"rel:has-many,join:id=order_id" json:"items,omitempty"`
}

const (
	ItemTypeVeg    = "veg"
	ItemTypeNonVeg = "non-veg"
)

const (
	ServiceChargeRate = 0.10
	TaxRate           = 0.18
)

// Recalculate rederives every amount field from Items and Discount. The
// derived fields are never trusted from input; every write path calls this
// before saving.
func (o *Order) Recalculate() {
	var subtotal int64
	for _, item := range o.Items {
		subtotal += item.Price * int64(item.Quantity)
	}
	o.TotalAmount = subtotal
	o.ServiceCharge = int64(math.Round(float64(subtotal) * ServiceChargeRate))
	o.Tax = int64(math.Round(float64(subtotal) * TaxRate))
	o.FinalAmount = o.TotalAmount + o.ServiceCharge + o.Tax - o.Discount
}

type OrderItem struct {
	bun.BaseModel `bun:"table:order_items"`

	ID                  string    `bun:"id,pk" json:"id"`
	OrderID             string    `bun:"order_id,notnull" json:"-"`
	Name                string    `bun:"name,notnull" json:"name"`
	Price               int64     `bun:"price,notnull" json:"price"`
	Quantity            int       `bun:"quantity,notnull" json:"quantity"`
	ItemType            string    `bun:"item_type,notnull" json:"type"`
	AddedBy             string    `bun:"added_by,notnull" json:"addedBy"`
	SpecialInstructions string    `bun:"special_instructions,nullzero" json:"specialInstructions,omitempty"`
	AddedAt             time.Time `bun:"added_at,notnull,default:current_timestamp" json:"addedAt"`
}

package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	TableStatusFree        = "free"
	TableStatusReserved    = "reserved"
	TableStatusOccupied    = "occupied"
	TableStatusMaintenance = "maintenance"
)

func ValidTableStatus(s string) bool {
	switch s {
	case TableStatusFree, TableStatusReserved, TableStatusOccupied, TableStatusMaintenance:
		return true
	}
	return false
}

// Table is a physical table. At most one active reservation may be bound at
// a time; the snapshot columns are cleared when the table reverts to free.
type Table struct {
	bun.BaseModel `bun:"table:tables,alias:t"`

	ID            string    `bun:"id,pk" json:"id"`
	Number        int       `bun:"number,unique,notnull" json:"number"`
	Capacity      int       `bun:"capacity,notnull" json:"capacity"`
	Status        string    `bun:"status,notnull,default:'free'" json:"status"`
	CurrentGuests int       `bun:"current_guests,notnull,default:0" json:"currentGuests"`
	Location      string    `bun:"location,notnull,default:'indoor'" json:"location"`
	Section       string    `bun:"section,notnull,default:'main'" json:"section"`
	IsActive      bool      `bun:"is_active,notnull,default:true" json:"isActive"`
	Notes         string    `bun:"notes,nullzero" json:"notes,omitempty"`
	LastUpdated   time.Time `bun:"last_updated,nullzero" json:"lastUpdated,omitempty"`
	CreatedAt     time.Time `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`

	// Reservation snapshot; empty ReservationGroupID means unbound.
	ReservationGroupID string    `bun:"reservation_group_id,nullzero" json:"-"`
	ReservationStart   time.Time `bun:"reservation_start,nullzero" json:"-"`
	ReservationEnd     time.Time `bun:"reservation_end,nullzero" json:"-"`
	ReservationGuests  int       `bun:"reservation_guests,nullzero" json:"-"`

	History []*TableHistory `bun:"rel:has-many,join:id=table_id" json:"history,omitempty"`
}

// Reservation is the JSON projection of the snapshot columns.
type Reservation struct {
	GroupID    string    `json:"groupId"`
	StartTime  time.Time `json:"startTime"`
	EndTime    time.Time `json:"endTime"`
	GuestCount int       `json:"guestCount"`
}

// CurrentReservation returns the bound reservation, or nil.
func (t *Table) CurrentReservation() *Reservation {
	if t.ReservationGroupID == "" {
		return nil
	}
	return &Reservation{
		GroupID:    t.ReservationGroupID,
		StartTime:  t.ReservationStart,
		EndTime:    t.ReservationEnd,
		GuestCount: t.ReservationGuests,
	}
}

func (t *Table) ClearReservation() {
	t.ReservationGroupID = ""
	t.ReservationStart = time.Time{}
	t.ReservationEnd = time.Time{}
	t.ReservationGuests = 0
}

// TableHistory is the append-only log of past reservations and status
// changes.
type TableHistory struct {
	bun.BaseModel `bun:"table:table_history"`

	ID           int64     `bun:"id,pk,autoincrement" json:"-"`
	TableID      string    `bun:"table_id,notnull" json:"-"`
	GroupID      string    `bun:"group_id,nullzero" json:"groupId,omitempty"`
	GroupAdminID string    `bun:"group_admin_id,nullzero" json:"groupAdminId,omitempty"`
	OrderID      string    `bun:"order_id,nullzero" json:"orderId,omitempty"`
	TotalBill    int64     `bun:"total_bill,notnull,default:0" json:"totalBill"`
	StartTime    time.Time `bun:"start_time,nullzero" json:"startTime,omitempty"`
	EndTime      time.Time `bun:"end_time,nullzero" json:"endTime,omitempty"`
	GuestCount   int       `bun:"guest_count,notnull,default:0" json:"guestCount"`
	RecordedAt   time.Time `bun:"recorded_at,notnull,default:current_timestamp" json:"recordedAt"`
}

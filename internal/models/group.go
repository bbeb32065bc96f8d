package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	GroupStatusActive    = "active"
	GroupStatusPending   = "pending"
	GroupStatusConfirmed = "confirmed"
	GroupStatusCancelled = "cancelled"
	GroupStatusCompleted = "completed"
)

func ValidGroupStatus(s string) bool {
	switch s {
	case GroupStatusActive, GroupStatusPending, GroupStatusConfirmed,
		GroupStatusCancelled, GroupStatusCompleted:
		return true
	}
	return false
}

// Group is the reservation/order unit: a party of diners sharing one
// session, identified by an invite code.
type Group struct {
	bun.BaseModel `bun:"table:groups,alias:g"`

	ID           string `bun:"id,pk" json:"id"`
	Name         string `bun:"name,notnull" json:"name"`
	GroupAdminID string `bun:"group_admin_id,notnull" json:"groupAdminId"`
	InviteCode   string `bun:"invite_code,unique,notnull" json:"inviteCode"`
	// Arrival/departure/date are stored as the client sent them; they are
	// only combined into timestamps when a table reservation is bound.
	ArrivalTime   string `bun:"arrival_time,notnull" json:"arrivalTime"`
	DepartureTime string `bun:"departure_time,notnull" json:"departureTime"`
	Date          string `bun:"date,notnull" json:"date"`
	TableNumber   int    `bun:"table_number,nullzero" json:"table,omitempty"`
	Discount      int    `bun:"discount,notnull,default:0" json:"discount"`
	Status        string `bun:"status,notnull,default:'active'" json:"status"`
	MaxMembers    int    `bun:"max_members,notnull,default:10" json:"maxMembers"`
	Restaurant    string `bun:"restaurant,notnull,default:'The Brown Table'" json:"restaurant"`
	// CurrentOrderID points at the single current order for the group,
	// replacing the legacy sort-by-recency lookup.
	CurrentOrderID string `bun:"current_order_id,nullzero" json:"orderId,omitempty"`

	// Walk-in reservations entered by staff carry guest details instead of
	// a signed-up admin user.
	GuestName       string `bun:"guest_name,nullzero" json:"guestName,omitempty"`
	GuestCount      int    `bun:"guest_count,nullzero" json:"guestCount,omitempty"`
	Phone           string `bun:"phone,nullzero" json:"phone,omitempty"`
	SpecialRequests string `bun:"special_requests,nullzero" json:"specialRequests,omitempty"`

	ConfirmedAt time.Time `bun:"confirmed_at,nullzero" json:"confirmedAt,omitempty"`
	CancelledAt time.Time `bun:"cancelled_at,nullzero" json:"cancelledAt,omitempty"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt   time.Time `bun:"updated_at,nullzero" json:"updatedAt,omitempty"`

	Members []*GroupMember `bun:"rel:has-many,join:id=group_id" json:"groupMembers,omitempty"`
}

// GroupMember rows are unique per (group_id, user_id); the constraint backs
// the membership-uniqueness invariant the coordinator also checks.
type GroupMember struct {
	bun.BaseModel `bun:"table:group_members"`

	ID          int64     `bun:"id,pk,autoincrement" json:"-"`
	GroupID     string    `bun:"group_id,notnull,unique:group_member" json:"-"`
	UserID      string    `bun:"user_id,notnull,unique:group_member" json:"userId"`
	Name        string    `bun:"name,notnull" json:"name"`
	Avatar      string    `bun:"avatar,notnull" json:"avatar"`
	Color       string    `bun:"color,notnull" json:"color"`
	IsAdmin     bool      `bun:"is_admin,notnull,default:false" json:"isAdmin"`
	HasAccepted bool      `bun:"has_accepted,notnull,default:false" json:"hasAccepted"`
	JoinedAt    time.Time `bun:"joined_at,notnull,default:current_timestamp" json:"joinedAt"`
}

// MemberFor reports the membership row for a user, if any.
func (g *Group) MemberFor(userID string) *GroupMember {
	for _, m := range g.Members {
		if m.UserID == userID {
			return m
		}
	}
	return nil
}

func (g *Group) IsMember(userID string) bool {
	return g.MemberFor(userID) != nil
}

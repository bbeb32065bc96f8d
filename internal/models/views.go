package models

import "time"

// Consolidated views returned by the services; shaped to match what the
// frontend consumes.

type AuthView struct {
	User  PublicUser `json:"user"`
	Token string     `json:"token"`
}

type AdminAuthView struct {
	Admin AdminView `json:"admin"`
	Token string    `json:"token"`
}

type AdminView struct {
	ID          string   `json:"id"`
	Username    string   `json:"username"`
	Role        string   `json:"role"`
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Permissions []string `json:"permissions"`
	Avatar      string   `json:"avatar,omitempty"`
}

// OrderSummary is the compact order projection embedded in group listings.
type OrderSummary struct {
	ID          string `json:"id"`
	TotalAmount int64  `json:"totalAmount"`
	FinalAmount int64  `json:"finalAmount"`
	Status      string `json:"status"`
	ItemCount   int    `json:"itemCount"`
}

// GroupSummary is one entry of the my-groups listing.
type GroupSummary struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	GroupAdminID string         `json:"groupAdminId"`
	InviteCode   string         `json:"inviteCode"`
	ArrivalTime  string         `json:"arrivalTime"`
	Departure    string         `json:"departureTime"`
	Date         string         `json:"date"`
	TableNumber  int            `json:"table,omitempty"`
	Discount     int            `json:"discount"`
	Status       string         `json:"status"`
	Restaurant   string         `json:"restaurant"`
	MemberCount  int            `json:"memberCount"`
	MaxMembers   int            `json:"maxMembers"`
	IsAdmin      bool           `json:"isAdmin"`
	UserRole     string         `json:"userRole"`
	Members      []*GroupMember `json:"groupMembers"`
	Order        *OrderSummary  `json:"order"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt,omitempty"`
}

// GroupPreview is the public projection returned for an invite-code lookup.
type GroupPreview struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ArrivalTime   string `json:"arrivalTime"`
	DepartureTime string `json:"departureTime"`
	Date          string `json:"date"`
	MemberCount   int    `json:"memberCount"`
}

// MemberItems partitions a group order by the member who added each item.
type MemberItems struct {
	Member *GroupMember `json:"member"`
	Items  []*OrderItem `json:"items"`
}

// GroupOrderView is the consolidated group + order + partition response.
type GroupOrderView struct {
	Group         *Group                  `json:"group"`
	Order         *Order                  `json:"order"`
	ItemsByMember map[string]*MemberItems `json:"itemsByMember"`
}

// TableView adds the reservation projection to a table row.
type TableView struct {
	*Table
	CurrentReservation *Reservation `json:"currentReservation"`
}

func NewTableView(t *Table) TableView {
	return TableView{Table: t, CurrentReservation: t.CurrentReservation()}
}

// DashboardStats are the aggregate counters on the staff dashboard. The
// four table counters always sum to the number of active tables.
type DashboardStats struct {
	FreeTables         int `json:"freeTables"`
	ReservedTables     int `json:"reservedTables"`
	OccupiedTables     int `json:"occupiedTables"`
	MaintenanceTables  int `json:"maintenanceTables"`
	PendingRequests    int `json:"pendingRequests"`
	TotalGroups        int `json:"totalGroups"`
	TotalOrders        int `json:"totalOrders"`
	ActiveReservations int `json:"activeReservations"`
}

// PendingReservation is a dashboard row for a group awaiting confirmation.
type PendingReservation struct {
	ID              string         `json:"id"`
	GuestName       string         `json:"guestName"`
	GuestCount      int            `json:"guestCount"`
	ReservationTime string         `json:"reservationTime"`
	TableNumber     int            `json:"table,omitempty"`
	Status          string         `json:"status"`
	Phone           string         `json:"phone"`
	SpecialRequests string         `json:"preOrderDetails"`
	Members         []*GroupMember `json:"members"`
	CreatedAt       time.Time      `json:"createdAt"`
}

// UpcomingOrder is an order expected to be ready within the lookahead
// window.
type UpcomingOrder struct {
	ID                 string       `json:"id"`
	GroupID            string       `json:"groupId"`
	GuestName          string       `json:"guestName"`
	TableNumber        int          `json:"table,omitempty"`
	OrderSummary       string       `json:"orderSummary"`
	TotalAmount        int64        `json:"totalAmount"`
	Status             string       `json:"status"`
	EstimatedTime      int          `json:"estimatedTime"`
	EstimatedReadyTime time.Time    `json:"estimatedReadyTime"`
	CreatedAt          time.Time    `json:"createdAt"`
	Items              []*OrderItem `json:"items"`
}

// DashboardView is the full staff dashboard payload.
type DashboardView struct {
	Tables         []TableView          `json:"tables"`
	Reservations   []PendingReservation `json:"reservations"`
	UpcomingOrders []UpcomingOrder      `json:"upcomingOrders"`
	Stats          DashboardStats       `json:"stats"`
}

// WeatherView is the current-weather payload.
type WeatherView struct {
	Current     string    `json:"current"`
	LastUpdated time.Time `json:"lastUpdated"`
}

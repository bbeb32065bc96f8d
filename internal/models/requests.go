package models

// Request bodies for the public API. Validation happens in the services so
// every transport shares it.

type SignupRequest struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type SendOTPRequest struct {
	Phone string `json:"phone"`
}

type VerifyOTPRequest struct {
	Phone string `json:"phone"`
	OTP   string `json:"otp"`
}

type AdminLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type UpdateProfileRequest struct {
	Name string `json:"name"`
}

type SearchUserRequest struct {
	Phone string `json:"phone"`
}

type CreateGroupRequest struct {
	AdminName     string `json:"adminName"`
	AdminID       string `json:"adminId"`
	ArrivalTime   string `json:"arrivalTime"`
	DepartureTime string `json:"departureTime"`
	Date          string `json:"date"`
	GuestCount    int    `json:"guestCount"`
}

// UpdateGroupRequest carries only the fields members may change; pointers
// distinguish "absent" from zero values.
type UpdateGroupRequest struct {
	Name          *string `json:"name"`
	ArrivalTime   *string `json:"arrivalTime"`
	DepartureTime *string `json:"departureTime"`
	Date          *string `json:"date"`
	TableNumber   *int    `json:"table"`
	Discount      *int    `json:"discount"`
}

type JoinGroupRequest struct {
	InviteCode string `json:"inviteCode"`
}

type InviteMemberRequest struct {
	GroupID string `json:"groupId"`
	AdminID string `json:"adminId"`
}

type InviteUserRequest struct {
	GroupID string `json:"groupId"`
	Phone   string `json:"phone"`
}

type OrderItemInput struct {
	Name                string `json:"name"`
	Price               int64  `json:"price"`
	Quantity            int    `json:"quantity"`
	Type                string `json:"type"`
	SpecialInstructions string `json:"specialInstructions"`
}

// UpdateOrderRequest replaces the caller's items wholesale; group members
// without accounts identify themselves by the member user id.
type UpdateOrderRequest struct {
	UserID string           `json:"userId"`
	Items  []OrderItemInput `json:"items"`
}

type RemoveItemRequest struct {
	UserID string `json:"userId"`
}

type OrderStatusRequest struct {
	Status        string `json:"status"`
	PaymentStatus string `json:"paymentStatus"`
}

type TableStatusRequest struct {
	Status        string `json:"status"`
	CurrentGuests *int   `json:"currentGuests"`
}

type DeleteGroupRequest struct {
	UserID string `json:"userId"`
}

type WeatherUpdateRequest struct {
	Weather string `json:"weather"`
}

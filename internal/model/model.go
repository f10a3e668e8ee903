// Package model defines the core domain types for the ticketing system.
package model

import "time"

// TicketStatus is the lifecycle state of an issued ticket.
type TicketStatus string

const (
	TicketSold      TicketStatus = "SOLD"
	TicketUsed      TicketStatus = "USED"
	TicketCancelled TicketStatus = "CANCELLED"
)

// Valid reports whether s is one of the known ticket statuses.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketSold, TicketUsed, TicketCancelled:
		return true
	}
	return false
}

// DiscountKind selects how a coupon's value is applied to a price.
type DiscountKind string

const (
	DiscountPercent DiscountKind = "PERCENT"
	DiscountFixed   DiscountKind = "FIXED"
)

// Valid reports whether k is one of the known discount kinds.
func (k DiscountKind) Valid() bool {
	return k == DiscountPercent || k == DiscountFixed
}

// Event represents a ticketed event with finite capacity.
// Capacity is fixed at creation; Available moves between 0 and Capacity
// exclusively through version-checked updates.
type Event struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	Location    string    `json:"location"`
	Price       float64   `json:"price"`
	Capacity    int       `json:"capacity"`
	Available   int       `json:"available"`
	OrganizerID string    `json:"organizer_id"`
	Version     int64     `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

// Sold returns the number of seats currently allocated to tickets.
func (e *Event) Sold() int {
	return e.Capacity - e.Available
}

// User is an account that can purchase tickets, organize events, and
// create coupons.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Coupon is a single-use discount. Used transitions false to true exactly
// once, guarded by the version counter; EventID nil means the coupon is
// valid for any event.
type Coupon struct {
	ID        string       `json:"id"`
	Code      string       `json:"code"`
	Kind      DiscountKind `json:"kind"`
	Value     float64      `json:"value"`
	ExpiresAt time.Time    `json:"expires_at"`
	EventID   *string      `json:"event_id,omitempty"`
	CreatedBy string       `json:"created_by"`
	Used      bool         `json:"used"`
	Version   int64        `json:"-"`
	CreatedAt time.Time    `json:"created_at"`
}

// Redeemable reports whether the coupon could still be applied at the
// given instant, ignoring event scope.
func (c *Coupon) Redeemable(now time.Time) bool {
	return !c.Used && !now.After(c.ExpiresAt)
}

// Ticket is an issued admission for one event and one purchaser.
type Ticket struct {
	ID            string       `json:"id"`
	EventID       string       `json:"event_id"`
	UserID        string       `json:"user_id"`
	CouponID      *string      `json:"coupon_id,omitempty"`
	Status        TicketStatus `json:"status"`
	PriceOriginal float64      `json:"price_original"`
	PriceFinal    float64      `json:"price_final"`
	Version       int64        `json:"-"`
	CreatedAt     time.Time    `json:"created_at"`
}

// ─── Request payloads ─────────────────────────────────────────────────────────

// CreateUserRequest is the payload for creating a user account.
type CreateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// UpdateUserRequest carries optional replacement fields for a user.
type UpdateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// CreateEventRequest is the payload for creating a new event.
type CreateEventRequest struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	Location    string    `json:"location"`
	Price       float64   `json:"price"`
	Capacity    int       `json:"capacity"`
	OrganizerID string    `json:"organizer_id"`
}

// UpdateEventRequest carries optional metadata edits for an event.
// Capacity and availability are not editable after creation.
type UpdateEventRequest struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Date        *time.Time `json:"date"`
	Location    string     `json:"location"`
	Price       *float64   `json:"price"`
	OrganizerID string     `json:"organizer_id"`
}

// CreateCouponRequest is the payload for creating a coupon. Code is
// generated when left empty.
type CreateCouponRequest struct {
	Code      string       `json:"code"`
	Kind      DiscountKind `json:"kind"`
	Value     float64      `json:"value"`
	ExpiresAt time.Time    `json:"expires_at"`
	EventID   *string      `json:"event_id"`
	CreatedBy string       `json:"created_by"`
}

// UpdateCouponRequest carries optional edits for an unused coupon.
type UpdateCouponRequest struct {
	Value     *float64   `json:"value"`
	ExpiresAt *time.Time `json:"expires_at"`
	EventID   *string    `json:"event_id"`
}

// IssueTicketRequest is the payload for purchasing a ticket.
type IssueTicketRequest struct {
	EventID    string `json:"event_id"`
	UserID     string `json:"user_id"`
	CouponCode string `json:"coupon_code,omitempty"`
}

// UpdateTicketRequest is the payload for a ticket status transition.
type UpdateTicketRequest struct {
	Status TicketStatus `json:"status"`
}

// ValidateCouponRequest is the payload for a read-only coupon check.
type ValidateCouponRequest struct {
	Code    string `json:"code"`
	EventID string `json:"event_id"`
}

// ErrorResponse is the standard JSON error envelope. Code is a stable
// machine-readable error kind; Error is a human-readable message.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

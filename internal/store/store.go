// Package store defines the persistence contract the rest of the system
// is written against. Implementations guarantee atomicity for a single
// record only; cross-record consistency is the caller's problem. The one
// concurrency primitive offered is the version-checked Update: a
// compare-and-swap that applies a mutation only when the stored record
// still carries the expected version.
package store

import (
	"context"
	"errors"

	"github.com/caiomelo/ticketeer/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrVersionConflict is returned by Update when the stored version no
// longer matches the expected one, meaning a concurrent writer won.
var ErrVersionConflict = errors.New("version conflict")

// ErrDuplicate is returned by Create when a unique field (user email,
// coupon code) already exists.
var ErrDuplicate = errors.New("duplicate value for unique field")

// EventFilter enumerates the supported event listing options.
type EventFilter struct {
	// Location matches events whose location contains the value.
	Location string
	// OrganizerID restricts to one organizer.
	OrganizerID string
	// SortBy orders results by "date" (default) or "name".
	SortBy string
}

// TicketFilter enumerates the supported ticket listing options.
type TicketFilter struct {
	Status  model.TicketStatus
	UserID  string
	EventID string
}

// CouponFilter enumerates the supported coupon listing options.
type CouponFilter struct {
	// Used filters on the redeemed flag when non-nil.
	Used *bool
	// EventID restricts to coupons scoped to one event.
	EventID string
	Kind    model.DiscountKind
	// ValidOnly keeps only unredeemed coupons that have not expired.
	ValidOnly bool
}

// UserFilter enumerates the supported user listing options.
type UserFilter struct {
	Role string
}

// Events persists event records.
type Events interface {
	Get(ctx context.Context, id string) (*model.Event, error)
	Create(ctx context.Context, e *model.Event) error
	// Update applies mutate to the record iff its version equals
	// expectedVersion, bumping the version on success. Returns
	// ErrVersionConflict when a concurrent update got there first.
	// Every field the mutation touches is persisted except ID and
	// CreatedAt, which are fixed at creation; the same holds for the
	// Tickets and Coupons Update below.
	Update(ctx context.Context, id string, expectedVersion int64, mutate func(*model.Event)) (*model.Event, error)
	// Delete removes the record and returns its final state.
	Delete(ctx context.Context, id string) (*model.Event, error)
	List(ctx context.Context, f EventFilter) ([]model.Event, error)
}

// Tickets persists ticket records.
type Tickets interface {
	Get(ctx context.Context, id string) (*model.Ticket, error)
	Create(ctx context.Context, t *model.Ticket) error
	Update(ctx context.Context, id string, expectedVersion int64, mutate func(*model.Ticket)) (*model.Ticket, error)
	Delete(ctx context.Context, id string) (*model.Ticket, error)
	List(ctx context.Context, f TicketFilter) ([]model.Ticket, error)
}

// Coupons persists coupon records.
type Coupons interface {
	Get(ctx context.Context, id string) (*model.Coupon, error)
	GetByCode(ctx context.Context, code string) (*model.Coupon, error)
	Create(ctx context.Context, c *model.Coupon) error
	Update(ctx context.Context, id string, expectedVersion int64, mutate func(*model.Coupon)) (*model.Coupon, error)
	Delete(ctx context.Context, id string) (*model.Coupon, error)
	List(ctx context.Context, f CouponFilter) ([]model.Coupon, error)
}

// Users persists user records. Users carry no shared mutable state the
// core touches, so updates are plain last-write-wins.
type Users interface {
	Get(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Create(ctx context.Context, u *model.User) error
	Update(ctx context.Context, u *model.User) error
	Delete(ctx context.Context, id string) (*model.User, error)
	List(ctx context.Context, f UserFilter) ([]model.User, error)
}

// Store bundles the four record collections behind one handle,
// constructed once at process start and shared by reference.
type Store interface {
	Events() Events
	Tickets() Tickets
	Coupons() Coupons
	Users() Users
}

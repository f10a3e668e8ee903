// Package ticket implements ticket issuance and the ticket lifecycle.
//
// The underlying store is atomic per record only, so issuing a ticket is
// a saga: coupon redemption, capacity reservation, and ticket creation
// happen as separate steps, and a failure after a reservation triggers
// explicit compensating actions. A compensation failure leaves the data
// inconsistent; it is logged and surfaced as ErrInconsistentState for
// operator reconciliation, never swallowed.
package ticket

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/caiomelo/ticketeer/internal/clock"
	"github.com/caiomelo/ticketeer/internal/coupon"
	"github.com/caiomelo/ticketeer/internal/model"
)

// ErrInconsistentState is returned when a compensating action fails and
// manual reconciliation is required.
var ErrInconsistentState = errors.New("compensation failed, state requires manual reconciliation")

// ErrInvalidTransition is returned for a disallowed ticket status change.
var ErrInvalidTransition = errors.New("invalid ticket status transition")

// TicketStore is the slice of the persistence layer this package needs.
type TicketStore interface {
	Get(ctx context.Context, id string) (*model.Ticket, error)
	Create(ctx context.Context, t *model.Ticket) error
	Update(ctx context.Context, id string, expectedVersion int64, mutate func(*model.Ticket)) (*model.Ticket, error)
	Delete(ctx context.Context, id string) (*model.Ticket, error)
}

// UserGetter fetches purchaser records.
type UserGetter interface {
	Get(ctx context.Context, id string) (*model.User, error)
}

// EventGetter fetches event records.
type EventGetter interface {
	Get(ctx context.Context, id string) (*model.Event, error)
}

// Inventory reserves and releases event capacity.
type Inventory interface {
	Reserve(ctx context.Context, eventID string) error
	Release(ctx context.Context, eventID string) error
}

// CouponRedeemer reserves and releases single-use coupons.
type CouponRedeemer interface {
	ValidateAndReserve(ctx context.Context, code, eventID string, basePrice float64) (*coupon.Redemption, error)
	Release(ctx context.Context, couponID string) error
}

const defaultSagaTimeout = 5 * time.Second

// Orchestrator composes coupon redemption, inventory reservation, and
// ticket creation into one logical purchase.
type Orchestrator struct {
	tickets   TicketStore
	users     UserGetter
	events    EventGetter
	inventory Inventory
	coupons   CouponRedeemer
	clock     clock.Clock
	log       *zap.Logger
	timeout   time.Duration
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithSagaTimeout bounds the wall-clock duration of one issuance.
func WithSagaTimeout(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// NewOrchestrator constructs an Orchestrator.
func NewOrchestrator(
	tickets TicketStore,
	users UserGetter,
	events EventGetter,
	inv Inventory,
	coupons CouponRedeemer,
	clk clock.Clock,
	log *zap.Logger,
	opts ...OrchestratorOption,
) *Orchestrator {
	o := &Orchestrator{
		tickets:   tickets,
		users:     users,
		events:    events,
		inventory: inv,
		coupons:   coupons,
		clock:     clk,
		log:       log,
		timeout:   defaultSagaTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// IssueInput identifies the purchase being made.
type IssueInput struct {
	EventID    string
	UserID     string
	CouponCode string
}

// IssueResult is the outcome of a successful purchase.
type IssueResult struct {
	Ticket        *model.Ticket `json:"ticket"`
	PriceOriginal float64       `json:"price_original"`
	PriceFinal    float64       `json:"price_final"`
}

// Issue purchases one ticket. Steps, in order: fetch purchaser and
// event, reserve the coupon if one was supplied, reserve capacity,
// persist the ticket. A failure after the coupon or capacity reservation
// compensates everything reserved so far before the error is surfaced.
func (o *Orchestrator) Issue(ctx context.Context, in IssueInput) (*IssueResult, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	user, err := o.users.Get(ctx, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("fetch user: %w", err)
	}
	event, err := o.events.Get(ctx, in.EventID)
	if err != nil {
		return nil, fmt.Errorf("fetch event: %w", err)
	}

	priceFinal := event.Price
	var redemption *coupon.Redemption
	if in.CouponCode != "" {
		redemption, err = o.coupons.ValidateAndReserve(ctx, in.CouponCode, in.EventID, event.Price)
		if err != nil {
			// Nothing reserved yet; abort without compensation.
			return nil, err
		}
		priceFinal = redemption.PriceFinal
	}

	if err := o.inventory.Reserve(ctx, in.EventID); err != nil {
		if cerr := o.releaseCoupon(ctx, redemption); cerr != nil {
			return nil, cerr
		}
		return nil, err
	}

	tkt := &model.Ticket{
		ID:            uuid.New().String(),
		EventID:       event.ID,
		UserID:        user.ID,
		Status:        model.TicketSold,
		PriceOriginal: event.Price,
		PriceFinal:    priceFinal,
		CreatedAt:     o.clock.Now(),
	}
	if redemption != nil {
		tkt.CouponID = &redemption.CouponID
	}

	if err := o.tickets.Create(ctx, tkt); err != nil {
		// Both reservations must be reverted even if one revert fails.
		cerr := errors.Join(
			o.releaseInventory(ctx, in.EventID),
			o.releaseCoupon(ctx, redemption),
		)
		if cerr != nil {
			return nil, cerr
		}
		return nil, fmt.Errorf("create ticket: %w", err)
	}

	return &IssueResult{
		Ticket:        tkt,
		PriceOriginal: event.Price,
		PriceFinal:    priceFinal,
	}, nil
}

// releaseCoupon reverts a pending coupon redemption. It runs on a
// context detached from request cancellation: even when the caller's
// deadline fired, the reservation must not be left dangling.
func (o *Orchestrator) releaseCoupon(ctx context.Context, redemption *coupon.Redemption) error {
	if redemption == nil {
		return nil
	}
	if err := o.coupons.Release(context.WithoutCancel(ctx), redemption.CouponID); err != nil {
		o.log.Error("coupon compensation failed",
			zap.String("coupon_id", redemption.CouponID),
			zap.Error(err),
		)
		return fmt.Errorf("revert coupon %s: %w", redemption.CouponID, ErrInconsistentState)
	}
	return nil
}

// releaseInventory returns a reserved seat. Same cancellation rules as
// releaseCoupon.
func (o *Orchestrator) releaseInventory(ctx context.Context, eventID string) error {
	if err := o.inventory.Release(context.WithoutCancel(ctx), eventID); err != nil {
		o.log.Error("inventory compensation failed",
			zap.String("event_id", eventID),
			zap.Error(err),
		)
		return fmt.Errorf("release capacity for event %s: %w", eventID, ErrInconsistentState)
	}
	return nil
}

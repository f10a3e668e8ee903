// Package coupon implements validity checking and atomic single-use
// redemption of discount coupons. A coupon's used flag flips false to
// true exactly once across its lifetime; the flip is guarded by the
// store's version-checked update, so two concurrent redemptions of the
// same code resolve to one winner and one ErrAlreadyRedeemed.
package coupon

import (
	"context"
	"errors"

	"github.com/caiomelo/ticketeer/internal/clock"
	"github.com/caiomelo/ticketeer/internal/model"
	"github.com/caiomelo/ticketeer/internal/store"
)

// ErrExpired is returned when the coupon's expiry has passed.
var ErrExpired = errors.New("coupon has expired")

// ErrAlreadyRedeemed is returned when the coupon was already consumed,
// including when a concurrent redemption wins the race.
var ErrAlreadyRedeemed = errors.New("coupon has already been redeemed")

// ErrEventMismatch is returned when an event-scoped coupon is applied to
// a different event.
var ErrEventMismatch = errors.New("coupon is not valid for this event")

// releaseRetries bounds the version-conflict retries when reverting a
// consumed coupon. Matches the inventory controller's retry budget.
const releaseRetries = 5

// CouponStore is the slice of the persistence layer the validator needs.
type CouponStore interface {
	Get(ctx context.Context, id string) (*model.Coupon, error)
	GetByCode(ctx context.Context, code string) (*model.Coupon, error)
	Update(ctx context.Context, id string, expectedVersion int64, mutate func(*model.Coupon)) (*model.Coupon, error)
}

// Redemption is the outcome of a successful reservation. The caller owns
// a pending redemption and must call Release if the surrounding purchase
// fails after this point.
type Redemption struct {
	CouponID   string
	PriceFinal float64
}

// Validator checks and consumes coupons.
type Validator struct {
	coupons CouponStore
	clock   clock.Clock
}

// NewValidator constructs a Validator.
func NewValidator(coupons CouponStore, clk clock.Clock) *Validator {
	return &Validator{coupons: coupons, clock: clk}
}

// ValidateAndReserve checks the coupon identified by code against the
// event and base price, then atomically marks it used. Losing the
// used-flag race reports ErrAlreadyRedeemed rather than silently falling
// back to full price: two requests must never both believe they hold the
// discount.
func (v *Validator) ValidateAndReserve(ctx context.Context, code, eventID string, basePrice float64) (*Redemption, error) {
	cpn, err := v.coupons.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if v.clock.Now().After(cpn.ExpiresAt) {
		return nil, ErrExpired
	}
	if cpn.Used {
		return nil, ErrAlreadyRedeemed
	}
	if cpn.EventID != nil && *cpn.EventID != eventID {
		return nil, ErrEventMismatch
	}

	price := Discount(cpn.Kind, cpn.Value, basePrice)

	_, err = v.coupons.Update(ctx, cpn.ID, cpn.Version, func(c *model.Coupon) {
		c.Used = true
	})
	if err != nil {
		if errors.Is(err, store.ErrVersionConflict) {
			return nil, ErrAlreadyRedeemed
		}
		return nil, err
	}
	return &Redemption{CouponID: cpn.ID, PriceFinal: price}, nil
}

// Release reverts a reserved coupon to unused. It is the compensating
// action for an aborted purchase and is a no-op if the coupon is already
// unused.
func (v *Validator) Release(ctx context.Context, couponID string) error {
	for attempt := 0; attempt < releaseRetries; attempt++ {
		cpn, err := v.coupons.Get(ctx, couponID)
		if err != nil {
			return err
		}
		if !cpn.Used {
			return nil
		}
		_, err = v.coupons.Update(ctx, couponID, cpn.Version, func(c *model.Coupon) {
			c.Used = false
		})
		if errors.Is(err, store.ErrVersionConflict) {
			continue
		}
		return err
	}
	return store.ErrVersionConflict
}

// CheckDetails itemizes the individual validity conditions.
type CheckDetails struct {
	NotExpired      bool               `json:"not_expired"`
	NotUsed         bool               `json:"not_used"`
	EventCompatible bool               `json:"event_compatible"`
	Kind            model.DiscountKind `json:"kind"`
	Value           float64            `json:"value"`
}

// CheckResult is the outcome of a read-only validity check.
type CheckResult struct {
	Valid   bool         `json:"valid"`
	Details CheckDetails `json:"details"`
}

// Check reports whether the coupon could be redeemed for the event right
// now, without consuming it.
func (v *Validator) Check(ctx context.Context, code, eventID string) (*CheckResult, error) {
	cpn, err := v.coupons.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	details := CheckDetails{
		NotExpired:      !v.clock.Now().After(cpn.ExpiresAt),
		NotUsed:         !cpn.Used,
		EventCompatible: cpn.EventID == nil || *cpn.EventID == eventID,
		Kind:            cpn.Kind,
		Value:           cpn.Value,
	}
	return &CheckResult{
		Valid:   details.NotExpired && details.NotUsed && details.EventCompatible,
		Details: details,
	}, nil
}

// Discount applies a coupon's value to a base price. The result is
// clamped at zero; a discount never produces a negative price.
func Discount(kind model.DiscountKind, value, basePrice float64) float64 {
	var final float64
	switch kind {
	case model.DiscountPercent:
		final = basePrice * (1 - value/100)
	case model.DiscountFixed:
		final = basePrice - value
	default:
		final = basePrice
	}
	if final < 0 {
		return 0
	}
	return final
}

package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/caiomelo/ticketeer/internal/clock"
	"github.com/caiomelo/ticketeer/internal/coupon"
	"github.com/caiomelo/ticketeer/internal/model"
	"github.com/caiomelo/ticketeer/internal/store"
)

// CouponService manages coupon metadata. Redemption itself is the
// validator's job; this service only creates, edits, and lists records.
type CouponService struct {
	coupons   store.Coupons
	users     store.Users
	events    store.Events
	validator *coupon.Validator
	clock     clock.Clock
}

// NewCouponService constructs a CouponService.
func NewCouponService(
	coupons store.Coupons,
	users store.Users,
	events store.Events,
	validator *coupon.Validator,
	clk clock.Clock,
) *CouponService {
	return &CouponService{
		coupons:   coupons,
		users:     users,
		events:    events,
		validator: validator,
		clock:     clk,
	}
}

// CouponView is a coupon plus its computed validity at read time.
type CouponView struct {
	model.Coupon
	Valid bool `json:"valid"`
}

// Create validates and persists a new coupon. A code is generated when
// the request leaves it empty; uniqueness is enforced by the store.
func (s *CouponService) Create(ctx context.Context, req model.CreateCouponRequest) (*model.Coupon, error) {
	if !req.Kind.Valid() {
		return nil, invalid("kind", "must be PERCENT or FIXED")
	}
	if req.Value <= 0 {
		return nil, invalid("value", "must be positive")
	}
	if req.Kind == model.DiscountPercent && req.Value > 100 {
		return nil, invalid("value", "percent discount cannot exceed 100")
	}
	if req.ExpiresAt.IsZero() {
		return nil, invalid("expires_at", "is required")
	}
	if req.CreatedBy == "" {
		return nil, invalid("created_by", "is required")
	}
	if _, err := s.users.Get(ctx, req.CreatedBy); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, invalid("created_by", "user not found")
		}
		return nil, err
	}
	if req.EventID != nil {
		if _, err := s.events.Get(ctx, *req.EventID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, invalid("event_id", "event not found")
			}
			return nil, err
		}
	}

	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if code == "" {
		code = generateCode()
	}

	cpn := &model.Coupon{
		ID:        uuid.New().String(),
		Code:      code,
		Kind:      req.Kind,
		Value:     req.Value,
		ExpiresAt: req.ExpiresAt,
		EventID:   req.EventID,
		CreatedBy: req.CreatedBy,
		CreatedAt: s.clock.Now(),
	}
	if err := s.coupons.Create(ctx, cpn); err != nil {
		return nil, err
	}
	return cpn, nil
}

// Get returns a single coupon with its computed validity.
func (s *CouponService) Get(ctx context.Context, id string) (*CouponView, error) {
	cpn, err := s.coupons.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &CouponView{Coupon: *cpn, Valid: cpn.Redeemable(s.clock.Now())}, nil
}

// List returns coupons matching the filter, each with computed validity.
func (s *CouponService) List(ctx context.Context, f store.CouponFilter) ([]CouponView, error) {
	coupons, err := s.coupons.List(ctx, f)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	views := make([]CouponView, 0, len(coupons))
	for _, cpn := range coupons {
		views = append(views, CouponView{Coupon: cpn, Valid: cpn.Redeemable(now)})
	}
	return views, nil
}

// Update edits an unredeemed coupon. Redeemed coupons are immutable.
func (s *CouponService) Update(ctx context.Context, id string, req model.UpdateCouponRequest) (*model.Coupon, error) {
	cpn, err := s.coupons.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if cpn.Used {
		return nil, invalid("coupon", "a redeemed coupon cannot be modified")
	}
	if req.Value != nil {
		if *req.Value <= 0 {
			return nil, invalid("value", "must be positive")
		}
		if cpn.Kind == model.DiscountPercent && *req.Value > 100 {
			return nil, invalid("value", "percent discount cannot exceed 100")
		}
	}
	if req.EventID != nil && *req.EventID != "" {
		if _, err := s.events.Get(ctx, *req.EventID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, invalid("event_id", "event not found")
			}
			return nil, err
		}
	}

	return s.coupons.Update(ctx, id, cpn.Version, func(c *model.Coupon) {
		if req.Value != nil {
			c.Value = *req.Value
		}
		if req.ExpiresAt != nil {
			c.ExpiresAt = *req.ExpiresAt
		}
		if req.EventID != nil {
			if *req.EventID == "" {
				c.EventID = nil
			} else {
				c.EventID = req.EventID
			}
		}
	})
}

// Delete removes a coupon.
func (s *CouponService) Delete(ctx context.Context, id string) error {
	_, err := s.coupons.Delete(ctx, id)
	return err
}

// Check reports whether a coupon code could be redeemed for an event,
// without consuming it.
func (s *CouponService) Check(ctx context.Context, req model.ValidateCouponRequest) (*coupon.CheckResult, error) {
	if req.Code == "" {
		return nil, invalid("code", "is required")
	}
	return s.validator.Check(ctx, req.Code, req.EventID)
}

// generateCode derives an 8-character upper-case coupon code from a
// random UUID.
func generateCode() string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return strings.ToUpper(raw[:8])
}

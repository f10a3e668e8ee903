package postgres_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/caiomelo/ticketeer/internal/model"
	"github.com/caiomelo/ticketeer/internal/store"
	"github.com/caiomelo/ticketeer/internal/store/postgres"
)

// newTestStore connects to the database named by TICKETEER_TEST_DATABASE_URL
// and runs the migration. Tests are skipped when the variable is unset so
// the suite stays runnable without a live server.
func newTestStore(t *testing.T) *postgres.Store {
	t.Helper()
	dsn := os.Getenv("TICKETEER_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TICKETEER_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	if err := postgres.Migrate(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return postgres.New(pool)
}

func seedEvent(t *testing.T, st *postgres.Store, capacity int) *model.Event {
	t.Helper()
	ctx := context.Background()
	user := &model.User{
		ID: uuid.New().String(), Name: "Organizer",
		Email: fmt.Sprintf("%s@example.com", uuid.New().String()[:8]),
		Role:  "USER", CreatedAt: time.Now(),
	}
	if err := st.Users().Create(ctx, user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	event := &model.Event{
		ID: uuid.New().String(), Name: "show", Location: "arena",
		Date: time.Now().Add(72 * time.Hour), Price: 100,
		Capacity: capacity, Available: capacity,
		OrganizerID: user.ID, CreatedAt: time.Now(),
	}
	if err := st.Events().Create(ctx, event); err != nil {
		t.Fatalf("seed event: %v", err)
	}
	return event
}

func TestEventVersionConflict(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	event := seedEvent(t, st, 10)

	updated, err := st.Events().Update(ctx, event.ID, event.Version, func(e *model.Event) {
		e.Available--
	})
	if err != nil {
		t.Fatalf("first update: %v", err)
	}
	if updated.Available != 9 || updated.Version != event.Version+1 {
		t.Fatalf("unexpected state after update: %+v", updated)
	}

	// Retry with the stale version the first writer already consumed.
	_, err = st.Events().Update(ctx, event.ID, event.Version, func(e *model.Event) {
		e.Available--
	})
	if !errors.Is(err, store.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}
}

func TestCouponCodeUnique(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	event := seedEvent(t, st, 5)

	code := uuid.New().String()[:8]
	mk := func() *model.Coupon {
		return &model.Coupon{
			ID: uuid.New().String(), Code: code, Kind: model.DiscountFixed,
			Value: 10, ExpiresAt: time.Now().Add(time.Hour),
			CreatedBy: event.OrganizerID, CreatedAt: time.Now(),
		}
	}
	if err := st.Coupons().Create(ctx, mk()); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if err := st.Coupons().Create(ctx, mk()); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestTicketUpdatePersistsAllMutatedFields(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	event := seedEvent(t, st, 5)

	cpn := &model.Coupon{
		ID: uuid.New().String(), Code: uuid.New().String()[:8],
		Kind: model.DiscountFixed, Value: 10,
		ExpiresAt: time.Now().Add(time.Hour),
		CreatedBy: event.OrganizerID, CreatedAt: time.Now(),
	}
	if err := st.Coupons().Create(ctx, cpn); err != nil {
		t.Fatalf("create coupon: %v", err)
	}
	tkt := &model.Ticket{
		ID: uuid.New().String(), EventID: event.ID, UserID: event.OrganizerID,
		CouponID: &cpn.ID, Status: model.TicketSold,
		PriceOriginal: 100, PriceFinal: 90, CreatedAt: time.Now(),
	}
	if err := st.Tickets().Create(ctx, tkt); err != nil {
		t.Fatalf("create ticket: %v", err)
	}

	_, err := st.Tickets().Update(ctx, tkt.ID, tkt.Version, func(tk *model.Ticket) {
		tk.Status = model.TicketUsed
		tk.PriceOriginal = 120
		tk.PriceFinal = 110
		tk.CouponID = nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := st.Tickets().Get(ctx, tkt.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != model.TicketUsed || got.PriceOriginal != 120 || got.PriceFinal != 110 {
		t.Fatalf("mutation not fully persisted: %+v", got)
	}
	if got.CouponID != nil {
		t.Fatal("expected coupon reference cleared")
	}
}

func TestTicketDeleteReturnsFinalState(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	event := seedEvent(t, st, 5)

	tkt := &model.Ticket{
		ID: uuid.New().String(), EventID: event.ID, UserID: event.OrganizerID,
		Status: model.TicketSold, PriceOriginal: 100, PriceFinal: 100,
		CreatedAt: time.Now(),
	}
	if err := st.Tickets().Create(ctx, tkt); err != nil {
		t.Fatalf("create: %v", err)
	}

	deleted, err := st.Tickets().Delete(ctx, tkt.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted.Status != model.TicketSold {
		t.Fatalf("expected SOLD at deletion, got %s", deleted.Status)
	}
	if _, err := st.Tickets().Delete(ctx, tkt.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

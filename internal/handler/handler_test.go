package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap/zaptest"

	"github.com/caiomelo/ticketeer/internal/clock"
	"github.com/caiomelo/ticketeer/internal/coupon"
	"github.com/caiomelo/ticketeer/internal/handler"
	"github.com/caiomelo/ticketeer/internal/inventory"
	"github.com/caiomelo/ticketeer/internal/model"
	"github.com/caiomelo/ticketeer/internal/service"
	"github.com/caiomelo/ticketeer/internal/store/memory"
	"github.com/caiomelo/ticketeer/internal/ticket"
)

// newTestRouter wires the full stack over the in-memory store, the same
// way cmd/main.go does against postgres.
func newTestRouter(t *testing.T) chi.Router {
	t.Helper()

	st := memory.New()
	log := zaptest.NewLogger(t)
	clk := clock.NewSystem()

	invCtl := inventory.NewController(st.Events())
	validator := coupon.NewValidator(st.Coupons(), clk)
	orch := ticket.NewOrchestrator(st.Tickets(), st.Users(), st.Events(), invCtl, validator, clk, log)
	lifecycle := ticket.NewLifecycle(st.Tickets(), invCtl, log)

	h := handler.New(
		service.NewUserService(st.Users(), clk),
		service.NewEventService(st.Events(), st.Users(), clk),
		service.NewCouponService(st.Coupons(), st.Users(), st.Events(), validator, clk),
		service.NewTicketService(st.Tickets(), orch, lifecycle),
	)

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(handler.AccessLog(log))

	r.Get("/health", handler.HealthCheck)
	r.Route("/users", func(r chi.Router) {
		r.Post("/", h.CreateUser)
		r.Get("/", h.ListUsers)
		r.Get("/{id}", h.GetUser)
		r.Put("/{id}", h.UpdateUser)
		r.Delete("/{id}", h.DeleteUser)
	})
	r.Route("/events", func(r chi.Router) {
		r.Post("/", h.CreateEvent)
		r.Get("/", h.ListEvents)
		r.Get("/{id}", h.GetEvent)
		r.Put("/{id}", h.UpdateEvent)
		r.Delete("/{id}", h.DeleteEvent)
	})
	r.Route("/coupons", func(r chi.Router) {
		r.Post("/", h.CreateCoupon)
		r.Get("/", h.ListCoupons)
		r.Post("/validate", h.ValidateCoupon)
		r.Get("/{id}", h.GetCoupon)
		r.Put("/{id}", h.UpdateCoupon)
		r.Delete("/{id}", h.DeleteCoupon)
	})
	r.Route("/tickets", func(r chi.Router) {
		r.Post("/", h.IssueTicket)
		r.Get("/", h.ListTickets)
		r.Get("/{id}", h.GetTicket)
		r.Put("/{id}", h.UpdateTicket)
		r.Delete("/{id}", h.DeleteTicket)
	})
	return r
}

func do(t *testing.T, r chi.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
}

func wantStatus(t *testing.T, rec *httptest.ResponseRecorder, status int) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("expected status %d, got %d (body %s)", status, rec.Code, rec.Body.String())
	}
}

func wantErrorCode(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	wantStatus(t, rec, status)
	var body model.ErrorResponse
	decode(t, rec, &body)
	if body.Code != code {
		t.Fatalf("expected error code %q, got %q (%s)", code, body.Code, body.Error)
	}
	if body.Error == "" {
		t.Fatal("error message must not be empty")
	}
}

func createUser(t *testing.T, r chi.Router, name, email string) model.User {
	t.Helper()
	rec := do(t, r, http.MethodPost, "/users", model.CreateUserRequest{
		Name: name, Email: email, Password: "secret",
	})
	wantStatus(t, rec, http.StatusCreated)
	var u model.User
	decode(t, rec, &u)
	return u
}

func createEvent(t *testing.T, r chi.Router, organizerID string, price float64, capacity int) model.Event {
	t.Helper()
	rec := do(t, r, http.MethodPost, "/events", model.CreateEventRequest{
		Name: "show", Location: "arena", Date: time.Now().Add(72 * time.Hour),
		Price: price, Capacity: capacity, OrganizerID: organizerID,
	})
	wantStatus(t, rec, http.StatusCreated)
	var ev model.Event
	decode(t, rec, &ev)
	return ev
}

func createCoupon(t *testing.T, r chi.Router, req model.CreateCouponRequest) model.Coupon {
	t.Helper()
	rec := do(t, r, http.MethodPost, "/coupons", req)
	wantStatus(t, rec, http.StatusCreated)
	var c model.Coupon
	decode(t, rec, &c)
	return c
}

func getAvailable(t *testing.T, r chi.Router, eventID string) int {
	t.Helper()
	rec := do(t, r, http.MethodGet, "/events/"+eventID, nil)
	wantStatus(t, rec, http.StatusOK)
	var ev model.Event
	decode(t, rec, &ev)
	return ev.Available
}

func TestHealth(t *testing.T) {
	t.Parallel()
	rec := do(t, newTestRouter(t), http.MethodGet, "/health", nil)
	wantStatus(t, rec, http.StatusOK)
}

func TestUserCRUD(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t)

	u := createUser(t, r, "Ana", "ana@example.com")
	if u.ID == "" || u.Role != "USER" {
		t.Fatalf("unexpected user: %+v", u)
	}

	rec := do(t, r, http.MethodPut, "/users/"+u.ID, model.UpdateUserRequest{Name: "Ana Clara"})
	wantStatus(t, rec, http.StatusOK)
	var updated model.User
	decode(t, rec, &updated)
	if updated.Name != "Ana Clara" {
		t.Fatalf("expected updated name, got %q", updated.Name)
	}

	rec = do(t, r, http.MethodDelete, "/users/"+u.ID, nil)
	wantStatus(t, rec, http.StatusOK)

	rec = do(t, r, http.MethodGet, "/users/"+u.ID, nil)
	wantErrorCode(t, rec, http.StatusNotFound, "not_found")
}

func TestValidationEnvelope(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t)

	rec := do(t, r, http.MethodPost, "/events", model.CreateEventRequest{Location: "arena"})
	wantErrorCode(t, rec, http.StatusBadRequest, "validation_error")
}

func TestUnknownJSONFieldRejected(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t)

	rec := do(t, r, http.MethodPost, "/users", map[string]string{
		"name": "Ana", "email": "ana@example.com", "password": "x", "admin": "yes",
	})
	wantErrorCode(t, rec, http.StatusBadRequest, "validation_error")
}

func TestPurchaseUntilSoldOut(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t)

	u := createUser(t, r, "Ana", "ana@example.com")
	ev := createEvent(t, r, u.ID, 100, 1)

	rec := do(t, r, http.MethodPost, "/tickets", model.IssueTicketRequest{EventID: ev.ID, UserID: u.ID})
	wantStatus(t, rec, http.StatusCreated)
	var result ticket.IssueResult
	decode(t, rec, &result)
	if result.Ticket.Status != model.TicketSold {
		t.Fatalf("expected SOLD ticket, got %s", result.Ticket.Status)
	}
	if result.PriceFinal != 100 {
		t.Fatalf("expected price 100, got %v", result.PriceFinal)
	}

	rec = do(t, r, http.MethodPost, "/tickets", model.IssueTicketRequest{EventID: ev.ID, UserID: u.ID})
	wantErrorCode(t, rec, http.StatusConflict, "insufficient_inventory")

	if got := getAvailable(t, r, ev.ID); got != 0 {
		t.Fatalf("expected 0 available, got %d", got)
	}
}

func TestCouponDiscountAndSingleUse(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t)

	u := createUser(t, r, "Ana", "ana@example.com")
	ev := createEvent(t, r, u.ID, 100, 3)
	createCoupon(t, r, model.CreateCouponRequest{
		Code: "PROMO10", Kind: model.DiscountPercent, Value: 10,
		ExpiresAt: time.Now().Add(24 * time.Hour), CreatedBy: u.ID,
	})

	rec := do(t, r, http.MethodPost, "/tickets", model.IssueTicketRequest{
		EventID: ev.ID, UserID: u.ID, CouponCode: "PROMO10",
	})
	wantStatus(t, rec, http.StatusCreated)
	var result ticket.IssueResult
	decode(t, rec, &result)
	if result.PriceOriginal != 100 || result.PriceFinal != 90 {
		t.Fatalf("expected 100 -> 90, got %v -> %v", result.PriceOriginal, result.PriceFinal)
	}
	if result.Ticket.CouponID == nil {
		t.Fatal("expected ticket to record the coupon")
	}

	// Same code again: rejected, and no seat is taken by the failure.
	rec = do(t, r, http.MethodPost, "/tickets", model.IssueTicketRequest{
		EventID: ev.ID, UserID: u.ID, CouponCode: "PROMO10",
	})
	wantErrorCode(t, rec, http.StatusConflict, "coupon_already_redeemed")

	if got := getAvailable(t, r, ev.ID); got != 2 {
		t.Fatalf("expected 2 available, got %d", got)
	}
}

func TestCouponScopedToOtherEvent(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t)

	u := createUser(t, r, "Ana", "ana@example.com")
	ev := createEvent(t, r, u.ID, 100, 3)
	other := createEvent(t, r, u.ID, 50, 3)
	createCoupon(t, r, model.CreateCouponRequest{
		Code: "OTHERONLY", Kind: model.DiscountFixed, Value: 10,
		ExpiresAt: time.Now().Add(24 * time.Hour), CreatedBy: u.ID, EventID: &other.ID,
	})

	rec := do(t, r, http.MethodPost, "/tickets", model.IssueTicketRequest{
		EventID: ev.ID, UserID: u.ID, CouponCode: "OTHERONLY",
	})
	wantErrorCode(t, rec, http.StatusConflict, "coupon_event_mismatch")
}

func TestTicketCheckInThenCancelRejected(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t)

	u := createUser(t, r, "Ana", "ana@example.com")
	ev := createEvent(t, r, u.ID, 100, 2)

	rec := do(t, r, http.MethodPost, "/tickets", model.IssueTicketRequest{EventID: ev.ID, UserID: u.ID})
	wantStatus(t, rec, http.StatusCreated)
	var result ticket.IssueResult
	decode(t, rec, &result)
	id := result.Ticket.ID

	rec = do(t, r, http.MethodPut, "/tickets/"+id, model.UpdateTicketRequest{Status: model.TicketUsed})
	wantStatus(t, rec, http.StatusOK)

	// A used ticket cannot be cancelled.
	rec = do(t, r, http.MethodPut, "/tickets/"+id, model.UpdateTicketRequest{Status: model.TicketCancelled})
	wantErrorCode(t, rec, http.StatusBadRequest, "invalid_transition")

	// Check-in consumes the seat for good.
	if got := getAvailable(t, r, ev.ID); got != 1 {
		t.Fatalf("expected 1 available, got %d", got)
	}
}

func TestCancelReleasesSeat(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t)

	u := createUser(t, r, "Ana", "ana@example.com")
	ev := createEvent(t, r, u.ID, 100, 1)

	rec := do(t, r, http.MethodPost, "/tickets", model.IssueTicketRequest{EventID: ev.ID, UserID: u.ID})
	wantStatus(t, rec, http.StatusCreated)
	var result ticket.IssueResult
	decode(t, rec, &result)

	rec = do(t, r, http.MethodPut, "/tickets/"+result.Ticket.ID, model.UpdateTicketRequest{Status: model.TicketCancelled})
	wantStatus(t, rec, http.StatusOK)

	if got := getAvailable(t, r, ev.ID); got != 1 {
		t.Fatalf("expected seat back after cancel, got %d", got)
	}

	rec = do(t, r, http.MethodPost, "/tickets", model.IssueTicketRequest{EventID: ev.ID, UserID: u.ID})
	wantStatus(t, rec, http.StatusCreated)
}

func TestDeleteSoldTicketReleasesSeat(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t)

	u := createUser(t, r, "Ana", "ana@example.com")
	ev := createEvent(t, r, u.ID, 100, 1)

	rec := do(t, r, http.MethodPost, "/tickets", model.IssueTicketRequest{EventID: ev.ID, UserID: u.ID})
	wantStatus(t, rec, http.StatusCreated)
	var result ticket.IssueResult
	decode(t, rec, &result)

	rec = do(t, r, http.MethodDelete, "/tickets/"+result.Ticket.ID, nil)
	wantStatus(t, rec, http.StatusOK)

	if got := getAvailable(t, r, ev.ID); got != 1 {
		t.Fatalf("expected seat back after delete, got %d", got)
	}
}

func TestValidateCouponIsReadOnly(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t)

	u := createUser(t, r, "Ana", "ana@example.com")
	ev := createEvent(t, r, u.ID, 100, 2)
	createCoupon(t, r, model.CreateCouponRequest{
		Code: "CHECKME", Kind: model.DiscountFixed, Value: 30,
		ExpiresAt: time.Now().Add(24 * time.Hour), CreatedBy: u.ID,
	})

	for i := 0; i < 2; i++ {
		rec := do(t, r, http.MethodPost, "/coupons/validate", model.ValidateCouponRequest{
			Code: "CHECKME", EventID: ev.ID,
		})
		wantStatus(t, rec, http.StatusOK)
		var result coupon.CheckResult
		decode(t, rec, &result)
		if !result.Valid {
			t.Fatalf("check %d: expected valid coupon: %+v", i, result)
		}
	}

	// Two checks and the coupon still redeems.
	rec := do(t, r, http.MethodPost, "/tickets", model.IssueTicketRequest{
		EventID: ev.ID, UserID: u.ID, CouponCode: "CHECKME",
	})
	wantStatus(t, rec, http.StatusCreated)
	var result ticket.IssueResult
	decode(t, rec, &result)
	if result.PriceFinal != 70 {
		t.Fatalf("expected price 70, got %v", result.PriceFinal)
	}
}

func TestListTicketsFilters(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t)

	u := createUser(t, r, "Ana", "ana@example.com")
	ev := createEvent(t, r, u.ID, 100, 3)

	var ids []string
	for i := 0; i < 3; i++ {
		rec := do(t, r, http.MethodPost, "/tickets", model.IssueTicketRequest{EventID: ev.ID, UserID: u.ID})
		wantStatus(t, rec, http.StatusCreated)
		var result ticket.IssueResult
		decode(t, rec, &result)
		ids = append(ids, result.Ticket.ID)
	}
	rec := do(t, r, http.MethodPut, "/tickets/"+ids[0], model.UpdateTicketRequest{Status: model.TicketUsed})
	wantStatus(t, rec, http.StatusOK)

	rec = do(t, r, http.MethodGet, fmt.Sprintf("/tickets?status=USED&event_id=%s", ev.ID), nil)
	wantStatus(t, rec, http.StatusOK)
	var used []model.Ticket
	decode(t, rec, &used)
	if len(used) != 1 || used[0].ID != ids[0] {
		t.Fatalf("expected exactly the checked-in ticket, got %+v", used)
	}

	rec = do(t, r, http.MethodGet, "/tickets?status=REFUNDED", nil)
	wantErrorCode(t, rec, http.StatusBadRequest, "validation_error")
}

// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/caiomelo/ticketeer/internal/coupon"
	"github.com/caiomelo/ticketeer/internal/inventory"
	"github.com/caiomelo/ticketeer/internal/model"
	"github.com/caiomelo/ticketeer/internal/service"
	"github.com/caiomelo/ticketeer/internal/store"
	"github.com/caiomelo/ticketeer/internal/ticket"
)

// Stable machine-readable error kinds returned in the error envelope.
const (
	codeValidation            = "validation_error"
	codeNotFound              = "not_found"
	codeDuplicate             = "duplicate"
	codeConflict              = "conflict"
	codeInsufficientInventory = "insufficient_inventory"
	codeContention            = "contention"
	codeCouponExpired         = "coupon_expired"
	codeCouponRedeemed        = "coupon_already_redeemed"
	codeCouponEventMismatch   = "coupon_event_mismatch"
	codeInvalidTransition     = "invalid_transition"
	codeInconsistentState     = "inconsistent_state"
	codeInternalError         = "internal_error"
)

// Handler holds all HTTP handlers for the ticketing API.
type Handler struct {
	users   *service.UserService
	events  *service.EventService
	coupons *service.CouponService
	tickets *service.TicketService
}

// New constructs a Handler.
func New(
	users *service.UserService,
	events *service.EventService,
	coupons *service.CouponService,
	tickets *service.TicketService,
) *Handler {
	return &Handler{users: users, events: events, coupons: coupons, tickets: tickets}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg, Code: code})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// respondError maps a service or core error to the single structured
// error response. Anything unrecognized becomes an opaque 500.
func respondError(w http.ResponseWriter, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, codeValidation, verr.Error())
	case errors.Is(err, ticket.ErrInvalidTransition):
		writeError(w, http.StatusBadRequest, codeInvalidTransition, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, err.Error())
	case errors.Is(err, store.ErrDuplicate):
		writeError(w, http.StatusBadRequest, codeDuplicate, err.Error())
	case errors.Is(err, inventory.ErrInsufficientInventory):
		writeError(w, http.StatusConflict, codeInsufficientInventory, err.Error())
	case errors.Is(err, inventory.ErrContention):
		writeError(w, http.StatusConflict, codeContention, err.Error())
	case errors.Is(err, coupon.ErrExpired):
		writeError(w, http.StatusConflict, codeCouponExpired, err.Error())
	case errors.Is(err, coupon.ErrAlreadyRedeemed):
		writeError(w, http.StatusConflict, codeCouponRedeemed, err.Error())
	case errors.Is(err, coupon.ErrEventMismatch):
		writeError(w, http.StatusConflict, codeCouponEventMismatch, err.Error())
	case errors.Is(err, store.ErrVersionConflict):
		writeError(w, http.StatusConflict, codeConflict, err.Error())
	case errors.Is(err, ticket.ErrInconsistentState):
		writeError(w, http.StatusInternalServerError, codeInconsistentState, err.Error())
	case errors.Is(err, inventory.ErrReleaseExceedsCapacity):
		writeError(w, http.StatusInternalServerError, codeInconsistentState, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/caiomelo/ticketeer/internal/model"
	"github.com/caiomelo/ticketeer/internal/service"
	"github.com/caiomelo/ticketeer/internal/store"
)

// CreateCoupon handles POST /coupons
func (h *Handler) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	var req model.CreateCouponRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid request body: "+err.Error())
		return
	}

	cpn, err := h.coupons.Create(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, cpn)
}

// ListCoupons handles GET /coupons
// Supports the enumerated filters: used, event_id, kind, valid.
func (h *Handler) ListCoupons(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.CouponFilter{
		EventID:   q.Get("event_id"),
		Kind:      model.DiscountKind(q.Get("kind")),
		ValidOnly: q.Get("valid") == "true",
	}
	switch q.Get("used") {
	case "true":
		used := true
		f.Used = &used
	case "false":
		used := false
		f.Used = &used
	}

	coupons, err := h.coupons.List(r.Context(), f)
	if err != nil {
		respondError(w, err)
		return
	}
	if coupons == nil {
		coupons = []service.CouponView{}
	}
	writeJSON(w, http.StatusOK, coupons)
}

// GetCoupon handles GET /coupons/{id}
func (h *Handler) GetCoupon(w http.ResponseWriter, r *http.Request) {
	cpn, err := h.coupons.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cpn)
}

// UpdateCoupon handles PUT /coupons/{id}
func (h *Handler) UpdateCoupon(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateCouponRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid request body: "+err.Error())
		return
	}

	cpn, err := h.coupons.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cpn)
}

// DeleteCoupon handles DELETE /coupons/{id}
func (h *Handler) DeleteCoupon(w http.ResponseWriter, r *http.Request) {
	if err := h.coupons.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "coupon removed"})
}

// ValidateCoupon handles POST /coupons/validate
// Read-only check; never consumes the coupon.
func (h *Handler) ValidateCoupon(w http.ResponseWriter, r *http.Request) {
	var req model.ValidateCouponRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid request body: "+err.Error())
		return
	}

	result, err := h.coupons.Check(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/caiomelo/ticketeer/internal/model"
	"github.com/caiomelo/ticketeer/internal/store"
)

// IssueTicket handles POST /tickets
// Runs the purchase saga: optional coupon redemption, capacity
// reservation, ticket creation.
func (h *Handler) IssueTicket(w http.ResponseWriter, r *http.Request) {
	var req model.IssueTicketRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid request body: "+err.Error())
		return
	}

	result, err := h.tickets.Issue(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// ListTickets handles GET /tickets
// Supports the enumerated filters: status, user_id, event_id.
func (h *Handler) ListTickets(w http.ResponseWriter, r *http.Request) {
	f := store.TicketFilter{
		Status:  model.TicketStatus(r.URL.Query().Get("status")),
		UserID:  r.URL.Query().Get("user_id"),
		EventID: r.URL.Query().Get("event_id"),
	}
	tickets, err := h.tickets.List(r.Context(), f)
	if err != nil {
		respondError(w, err)
		return
	}
	if tickets == nil {
		tickets = []model.Ticket{}
	}
	writeJSON(w, http.StatusOK, tickets)
}

// GetTicket handles GET /tickets/{id}
func (h *Handler) GetTicket(w http.ResponseWriter, r *http.Request) {
	tkt, err := h.tickets.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tkt)
}

// UpdateTicket handles PUT /tickets/{id}
// Applies a status transition through the lifecycle state machine.
func (h *Handler) UpdateTicket(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateTicketRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid request body: "+err.Error())
		return
	}

	tkt, err := h.tickets.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tkt)
}

// DeleteTicket handles DELETE /tickets/{id}
func (h *Handler) DeleteTicket(w http.ResponseWriter, r *http.Request) {
	if err := h.tickets.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "ticket removed"})
}

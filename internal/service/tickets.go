package service

import (
	"context"

	"github.com/caiomelo/ticketeer/internal/model"
	"github.com/caiomelo/ticketeer/internal/store"
	"github.com/caiomelo/ticketeer/internal/ticket"
)

// TicketService fronts the issuance orchestrator and lifecycle state
// machine, adding request validation, and serves the ticket read side.
type TicketService struct {
	tickets      store.Tickets
	orchestrator *ticket.Orchestrator
	lifecycle    *ticket.Lifecycle
}

// NewTicketService constructs a TicketService.
func NewTicketService(tickets store.Tickets, orch *ticket.Orchestrator, lc *ticket.Lifecycle) *TicketService {
	return &TicketService{tickets: tickets, orchestrator: orch, lifecycle: lc}
}

// Issue validates the purchase request and runs the issuance saga.
func (s *TicketService) Issue(ctx context.Context, req model.IssueTicketRequest) (*ticket.IssueResult, error) {
	if req.EventID == "" {
		return nil, invalid("event_id", "is required")
	}
	if req.UserID == "" {
		return nil, invalid("user_id", "is required")
	}
	return s.orchestrator.Issue(ctx, ticket.IssueInput{
		EventID:    req.EventID,
		UserID:     req.UserID,
		CouponCode: req.CouponCode,
	})
}

// UpdateStatus validates the target status and applies the transition.
func (s *TicketService) UpdateStatus(ctx context.Context, id string, status model.TicketStatus) (*model.Ticket, error) {
	if !status.Valid() {
		return nil, invalid("status", "must be one of SOLD, USED, CANCELLED")
	}
	return s.lifecycle.UpdateStatus(ctx, id, status)
}

// Delete removes a ticket, releasing its seat when appropriate.
func (s *TicketService) Delete(ctx context.Context, id string) error {
	return s.lifecycle.Delete(ctx, id)
}

// Get returns a single ticket by ID.
func (s *TicketService) Get(ctx context.Context, id string) (*model.Ticket, error) {
	return s.tickets.Get(ctx, id)
}

// List returns tickets matching the filter.
func (s *TicketService) List(ctx context.Context, f store.TicketFilter) ([]model.Ticket, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, invalid("status", "must be one of SOLD, USED, CANCELLED")
	}
	return s.tickets.List(ctx, f)
}

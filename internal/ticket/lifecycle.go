package ticket

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/caiomelo/ticketeer/internal/inventory"
	"github.com/caiomelo/ticketeer/internal/model"
	"github.com/caiomelo/ticketeer/internal/store"
)

// Lifecycle governs ticket status transitions and their capacity side
// effects. The allowed transitions:
//
//	SOLD -> USED        check-in, no capacity effect
//	SOLD -> CANCELLED   releases one seat
//
// USED and CANCELLED are terminal; nothing returns to SOLD. Re-applying
// a transition to a ticket already in the target state is a no-op.
type Lifecycle struct {
	tickets   TicketStore
	inventory Inventory
	log       *zap.Logger
}

// NewLifecycle constructs a Lifecycle.
func NewLifecycle(tickets TicketStore, inv Inventory, log *zap.Logger) *Lifecycle {
	return &Lifecycle{tickets: tickets, inventory: inv, log: log}
}

func canTransition(from, to model.TicketStatus) bool {
	return from == model.TicketSold &&
		(to == model.TicketUsed || to == model.TicketCancelled)
}

// UpdateStatus applies a status transition. The status write is
// version-checked so concurrent transitions on the same ticket resolve
// to one winner; the capacity release for a cancellation happens exactly
// once, on the winning update.
func (l *Lifecycle) UpdateStatus(ctx context.Context, id string, target model.TicketStatus) (*model.Ticket, error) {
	for attempt := 0; attempt < inventory.DefaultRetries; attempt++ {
		tkt, err := l.tickets.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if tkt.Status == target {
			// Already there; idempotent no-op, no further side effects.
			return tkt, nil
		}
		if !canTransition(tkt.Status, target) {
			return nil, fmt.Errorf("%s to %s: %w", tkt.Status, target, ErrInvalidTransition)
		}

		updated, err := l.tickets.Update(ctx, id, tkt.Version, func(t *model.Ticket) {
			t.Status = target
		})
		if errors.Is(err, store.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}

		if target == model.TicketCancelled {
			if err := l.release(ctx, updated.EventID, updated.ID); err != nil {
				return nil, err
			}
		}
		return updated, nil
	}
	return nil, inventory.ErrContention
}

// Delete removes a ticket. Deleting a SOLD ticket is an implicit
// cancellation and releases its seat; USED tickets consumed their seat
// permanently and CANCELLED tickets already gave theirs back, so neither
// releases anything.
func (l *Lifecycle) Delete(ctx context.Context, id string) error {
	tkt, err := l.tickets.Delete(ctx, id)
	if err != nil {
		return err
	}
	if tkt.Status == model.TicketSold {
		return l.release(ctx, tkt.EventID, tkt.ID)
	}
	return nil
}

// release returns a seat on behalf of a cancelled ticket. The ticket's
// status is already final at this point, so a failed release means the
// conservation invariant is broken until an operator intervenes.
func (l *Lifecycle) release(ctx context.Context, eventID, ticketID string) error {
	if err := l.inventory.Release(context.WithoutCancel(ctx), eventID); err != nil {
		l.log.Error("capacity release failed after cancellation",
			zap.String("event_id", eventID),
			zap.String("ticket_id", ticketID),
			zap.Error(err),
		)
		return fmt.Errorf("release capacity for event %s: %w", eventID, ErrInconsistentState)
	}
	return nil
}

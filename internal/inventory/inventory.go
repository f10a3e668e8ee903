// Package inventory implements atomic capacity reservation and release
// for a single event. It is the only code path allowed to write an
// event's available counter, and it does so exclusively through the
// store's version-checked update so concurrent reservations across
// processes resolve to exactly one winner per seat.
package inventory

import (
	"context"
	"errors"

	"github.com/caiomelo/ticketeer/internal/model"
	"github.com/caiomelo/ticketeer/internal/store"
)

// ErrInsufficientInventory is returned when the event has no seats left.
// The condition is not transient, so there is no retry.
var ErrInsufficientInventory = errors.New("no tickets available for event")

// ErrContention is returned when the version-conflict retry budget is
// exhausted. The caller may retry the whole operation.
var ErrContention = errors.New("too much contention on event inventory")

// ErrReleaseExceedsCapacity is returned when a release would push the
// available count past the event's capacity. It signals a double-release
// bug and is never clamped silently.
var ErrReleaseExceedsCapacity = errors.New("release would exceed event capacity")

// EventStore is the slice of the persistence layer the controller needs.
type EventStore interface {
	Get(ctx context.Context, id string) (*model.Event, error)
	Update(ctx context.Context, id string, expectedVersion int64, mutate func(*model.Event)) (*model.Event, error)
}

// DefaultRetries bounds the compare-and-swap retry loop. No backoff is
// needed for correctness, only the bound.
const DefaultRetries = 5

// Controller performs capacity accounting for events.
type Controller struct {
	events  EventStore
	retries int
}

// Option configures a Controller.
type Option func(*Controller)

// WithRetries overrides the version-conflict retry budget.
func WithRetries(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.retries = n
		}
	}
}

// NewController constructs a Controller.
func NewController(events EventStore, opts ...Option) *Controller {
	c := &Controller{events: events, retries: DefaultRetries}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Reserve takes one seat from the event. It fails immediately with
// ErrInsufficientInventory when the event is sold out, and with
// ErrContention when concurrent writers keep invalidating the read.
func (c *Controller) Reserve(ctx context.Context, eventID string) error {
	for attempt := 0; attempt < c.retries; attempt++ {
		event, err := c.events.Get(ctx, eventID)
		if err != nil {
			return err
		}
		if event.Available < 1 {
			return ErrInsufficientInventory
		}
		_, err = c.events.Update(ctx, eventID, event.Version, func(e *model.Event) {
			e.Available--
		})
		if errors.Is(err, store.ErrVersionConflict) {
			continue
		}
		return err
	}
	return ErrContention
}

// Release returns one seat to the event. Releasing past capacity fails
// with ErrReleaseExceedsCapacity so a compensation bug surfaces instead
// of silently inflating inventory.
func (c *Controller) Release(ctx context.Context, eventID string) error {
	for attempt := 0; attempt < c.retries; attempt++ {
		event, err := c.events.Get(ctx, eventID)
		if err != nil {
			return err
		}
		if event.Available >= event.Capacity {
			return ErrReleaseExceedsCapacity
		}
		_, err = c.events.Update(ctx, eventID, event.Version, func(e *model.Event) {
			e.Available++
		})
		if errors.Is(err, store.ErrVersionConflict) {
			continue
		}
		return err
	}
	return ErrContention
}

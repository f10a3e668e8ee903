package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/caiomelo/ticketeer/internal/clock"
	"github.com/caiomelo/ticketeer/internal/model"
	"github.com/caiomelo/ticketeer/internal/store"
)

// EventService manages event metadata. Capacity is fixed at creation and
// the available counter belongs to the inventory controller; neither is
// editable through this service.
type EventService struct {
	events store.Events
	users  store.Users
	clock  clock.Clock
}

// NewEventService constructs an EventService.
func NewEventService(events store.Events, users store.Users, clk clock.Clock) *EventService {
	return &EventService{events: events, users: users, clock: clk}
}

// Create validates the request and persists a new event with
// available == capacity.
func (s *EventService) Create(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, invalid("name", "is required")
	}
	if req.Location == "" {
		return nil, invalid("location", "is required")
	}
	if req.Date.IsZero() {
		return nil, invalid("date", "is required")
	}
	if req.Price < 0 {
		return nil, invalid("price", "cannot be negative")
	}
	if req.Capacity <= 0 {
		return nil, invalid("capacity", "must be a positive integer")
	}
	if req.Capacity > 100_000 {
		return nil, invalid("capacity", "cannot exceed 100,000")
	}
	if req.OrganizerID == "" {
		return nil, invalid("organizer_id", "is required")
	}
	if _, err := s.users.Get(ctx, req.OrganizerID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, invalid("organizer_id", "organizer not found")
		}
		return nil, err
	}

	event := &model.Event{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Description: req.Description,
		Date:        req.Date,
		Location:    req.Location,
		Price:       req.Price,
		Capacity:    req.Capacity,
		Available:   req.Capacity,
		OrganizerID: req.OrganizerID,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

// Get returns a single event by ID.
func (s *EventService) Get(ctx context.Context, id string) (*model.Event, error) {
	return s.events.Get(ctx, id)
}

// List returns events matching the filter.
func (s *EventService) List(ctx context.Context, f store.EventFilter) ([]model.Event, error) {
	return s.events.List(ctx, f)
}

// Update edits event metadata through a version-checked write so a
// concurrent reservation is never overwritten.
func (s *EventService) Update(ctx context.Context, id string, req model.UpdateEventRequest) (*model.Event, error) {
	event, err := s.events.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.OrganizerID != "" && req.OrganizerID != event.OrganizerID {
		if _, err := s.users.Get(ctx, req.OrganizerID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, invalid("organizer_id", "organizer not found")
			}
			return nil, err
		}
	}
	if req.Price != nil && *req.Price < 0 {
		return nil, invalid("price", "cannot be negative")
	}

	return s.events.Update(ctx, id, event.Version, func(e *model.Event) {
		if req.Name != "" {
			e.Name = strings.TrimSpace(req.Name)
		}
		if req.Description != "" {
			e.Description = req.Description
		}
		if req.Date != nil {
			e.Date = *req.Date
		}
		if req.Location != "" {
			e.Location = req.Location
		}
		if req.Price != nil {
			e.Price = *req.Price
		}
		if req.OrganizerID != "" {
			e.OrganizerID = req.OrganizerID
		}
	})
}

// Delete removes an event.
func (s *EventService) Delete(ctx context.Context, id string) error {
	_, err := s.events.Delete(ctx, id)
	return err
}

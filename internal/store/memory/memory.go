// Package memory implements the store interfaces in process memory.
// It backs tests and local development runs without Postgres. All
// operations copy records on the way in and out so callers never alias
// the stored state, and the version-checked updates are linearizable
// under the single mutex.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/caiomelo/ticketeer/internal/model"
	"github.com/caiomelo/ticketeer/internal/store"
)

// Store holds all four collections behind one mutex.
type Store struct {
	mu      sync.RWMutex
	events  map[string]model.Event
	tickets map[string]model.Ticket
	coupons map[string]model.Coupon
	users   map[string]model.User
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		events:  make(map[string]model.Event),
		tickets: make(map[string]model.Ticket),
		coupons: make(map[string]model.Coupon),
		users:   make(map[string]model.User),
	}
}

func (s *Store) Events() store.Events   { return eventsCol{s} }
func (s *Store) Tickets() store.Tickets { return ticketsCol{s} }
func (s *Store) Coupons() store.Coupons { return couponsCol{s} }
func (s *Store) Users() store.Users     { return usersCol{s} }

// ─── Events ───────────────────────────────────────────────────────────────────

type eventsCol struct{ s *Store }

func (c eventsCol) Get(_ context.Context, id string) (*model.Event, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	e, ok := c.s.events[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &e, nil
}

func (c eventsCol) Create(_ context.Context, e *model.Event) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	c.s.events[e.ID] = *e
	return nil
}

func (c eventsCol) Update(_ context.Context, id string, expectedVersion int64, mutate func(*model.Event)) (*model.Event, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	e, ok := c.s.events[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if e.Version != expectedVersion {
		return nil, store.ErrVersionConflict
	}
	mutate(&e)
	e.Version++
	c.s.events[id] = e
	return &e, nil
}

func (c eventsCol) Delete(_ context.Context, id string) (*model.Event, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	e, ok := c.s.events[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	delete(c.s.events, id)
	return &e, nil
}

func (c eventsCol) List(_ context.Context, f store.EventFilter) ([]model.Event, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	var out []model.Event
	for _, e := range c.s.events {
		if f.Location != "" && !strings.Contains(strings.ToLower(e.Location), strings.ToLower(f.Location)) {
			continue
		}
		if f.OrganizerID != "" && e.OrganizerID != f.OrganizerID {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if f.SortBy == "name" {
			return out[i].Name < out[j].Name
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

// ─── Tickets ──────────────────────────────────────────────────────────────────

type ticketsCol struct{ s *Store }

func (c ticketsCol) Get(_ context.Context, id string) (*model.Ticket, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	t, ok := c.s.tickets[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &t, nil
}

func (c ticketsCol) Create(_ context.Context, t *model.Ticket) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	c.s.tickets[t.ID] = *t
	return nil
}

func (c ticketsCol) Update(_ context.Context, id string, expectedVersion int64, mutate func(*model.Ticket)) (*model.Ticket, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	t, ok := c.s.tickets[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if t.Version != expectedVersion {
		return nil, store.ErrVersionConflict
	}
	mutate(&t)
	t.Version++
	c.s.tickets[id] = t
	return &t, nil
}

func (c ticketsCol) Delete(_ context.Context, id string) (*model.Ticket, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	t, ok := c.s.tickets[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	delete(c.s.tickets, id)
	return &t, nil
}

func (c ticketsCol) List(_ context.Context, f store.TicketFilter) ([]model.Ticket, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	var out []model.Ticket
	for _, t := range c.s.tickets {
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.UserID != "" && t.UserID != f.UserID {
			continue
		}
		if f.EventID != "" && t.EventID != f.EventID {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ─── Coupons ──────────────────────────────────────────────────────────────────

type couponsCol struct{ s *Store }

func (c couponsCol) Get(_ context.Context, id string) (*model.Coupon, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	cp, ok := c.s.coupons[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &cp, nil
}

func (c couponsCol) GetByCode(_ context.Context, code string) (*model.Coupon, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	for _, cp := range c.s.coupons {
		if cp.Code == code {
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (c couponsCol) Create(_ context.Context, cp *model.Coupon) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	for _, existing := range c.s.coupons {
		if existing.Code == cp.Code {
			return store.ErrDuplicate
		}
	}
	c.s.coupons[cp.ID] = *cp
	return nil
}

func (c couponsCol) Update(_ context.Context, id string, expectedVersion int64, mutate func(*model.Coupon)) (*model.Coupon, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	cp, ok := c.s.coupons[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if cp.Version != expectedVersion {
		return nil, store.ErrVersionConflict
	}
	mutate(&cp)
	cp.Version++
	c.s.coupons[id] = cp
	return &cp, nil
}

func (c couponsCol) Delete(_ context.Context, id string) (*model.Coupon, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	cp, ok := c.s.coupons[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	delete(c.s.coupons, id)
	return &cp, nil
}

func (c couponsCol) List(_ context.Context, f store.CouponFilter) ([]model.Coupon, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	now := time.Now().UTC()
	var out []model.Coupon
	for _, cp := range c.s.coupons {
		if f.Used != nil && cp.Used != *f.Used {
			continue
		}
		if f.EventID != "" && (cp.EventID == nil || *cp.EventID != f.EventID) {
			continue
		}
		if f.Kind != "" && cp.Kind != f.Kind {
			continue
		}
		if f.ValidOnly && !cp.Redeemable(now) {
			continue
		}
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ─── Users ────────────────────────────────────────────────────────────────────

type usersCol struct{ s *Store }

func (c usersCol) Get(_ context.Context, id string) (*model.User, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	u, ok := c.s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (c usersCol) GetByEmail(_ context.Context, email string) (*model.User, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	for _, u := range c.s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (c usersCol) Create(_ context.Context, u *model.User) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	for _, existing := range c.s.users {
		if existing.Email == u.Email {
			return store.ErrDuplicate
		}
	}
	c.s.users[u.ID] = *u
	return nil
}

func (c usersCol) Update(_ context.Context, u *model.User) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if _, ok := c.s.users[u.ID]; !ok {
		return store.ErrNotFound
	}
	for _, existing := range c.s.users {
		if existing.ID != u.ID && existing.Email == u.Email {
			return store.ErrDuplicate
		}
	}
	c.s.users[u.ID] = *u
	return nil
}

func (c usersCol) Delete(_ context.Context, id string) (*model.User, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	u, ok := c.s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	delete(c.s.users, id)
	return &u, nil
}

func (c usersCol) List(_ context.Context, f store.UserFilter) ([]model.User, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	var out []model.User
	for _, u := range c.s.users {
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

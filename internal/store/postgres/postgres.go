// Package postgres implements the store interfaces on PostgreSQL using
// pgx directly (no ORM). The version-checked updates run inside a short
// transaction: the row is read FOR UPDATE, the version compared, and the
// mutated record written back with the version bumped. A caller holding
// a stale version gets store.ErrVersionConflict.
package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/caiomelo/ticketeer/internal/store"
)

// Store implements store.Store on a pgx connection pool.
type Store struct {
	db *pgxpool.Pool
}

// New constructs a Store.
func New(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Events() store.Events   { return &eventsRepo{db: s.db} }
func (s *Store) Tickets() store.Tickets { return &ticketsRepo{db: s.db} }
func (s *Store) Coupons() store.Coupons { return &couponsRepo{db: s.db} }
func (s *Store) Users() store.Users     { return &usersRepo{db: s.db} }

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

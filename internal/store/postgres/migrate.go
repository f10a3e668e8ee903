package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is applied idempotently at startup. Capacity arithmetic is also
// enforced here as a CHECK so an application bug cannot silently corrupt
// the inventory counters.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id         UUID PRIMARY KEY,
	name       TEXT NOT NULL,
	email      TEXT NOT NULL UNIQUE,
	password   TEXT NOT NULL,
	role       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS events (
	id           UUID PRIMARY KEY,
	name         TEXT NOT NULL,
	description  TEXT NOT NULL,
	date         TIMESTAMPTZ NOT NULL,
	location     TEXT NOT NULL,
	price        DOUBLE PRECISION NOT NULL,
	capacity     INT NOT NULL,
	available    INT NOT NULL,
	organizer_id UUID NOT NULL REFERENCES users(id),
	version      BIGINT NOT NULL DEFAULT 0,
	created_at   TIMESTAMPTZ NOT NULL,
	CHECK (available >= 0 AND available <= capacity)
);

CREATE TABLE IF NOT EXISTS coupons (
	id         UUID PRIMARY KEY,
	code       TEXT NOT NULL UNIQUE,
	kind       TEXT NOT NULL,
	value      DOUBLE PRECISION NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL,
	event_id   UUID REFERENCES events(id) ON DELETE CASCADE,
	created_by UUID NOT NULL REFERENCES users(id),
	used       BOOLEAN NOT NULL DEFAULT FALSE,
	version    BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS tickets (
	id             UUID PRIMARY KEY,
	event_id       UUID NOT NULL REFERENCES events(id) ON DELETE CASCADE,
	user_id        UUID NOT NULL REFERENCES users(id),
	coupon_id      UUID REFERENCES coupons(id) ON DELETE SET NULL,
	status         TEXT NOT NULL,
	price_original DOUBLE PRECISION NOT NULL,
	price_final    DOUBLE PRECISION NOT NULL,
	version        BIGINT NOT NULL DEFAULT 0,
	created_at     TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tickets_event ON tickets(event_id);
CREATE INDEX IF NOT EXISTS idx_tickets_user ON tickets(user_id);
CREATE INDEX IF NOT EXISTS idx_coupons_event ON coupons(event_id);
`

// Migrate creates the schema if it does not exist yet.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

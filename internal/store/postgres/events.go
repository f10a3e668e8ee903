package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/caiomelo/ticketeer/internal/model"
	"github.com/caiomelo/ticketeer/internal/store"
)

type eventsRepo struct {
	db *pgxpool.Pool
}

const eventColumns = `id, name, description, date, location, price, capacity, available, organizer_id, version, created_at`

func scanEvent(row pgx.Row) (*model.Event, error) {
	var e model.Event
	err := row.Scan(&e.ID, &e.Name, &e.Description, &e.Date, &e.Location,
		&e.Price, &e.Capacity, &e.Available, &e.OrganizerID, &e.Version, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("scan event: %w", err)
	}
	return &e, nil
}

func (r *eventsRepo) Get(ctx context.Context, id string) (*model.Event, error) {
	row := r.db.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
	return scanEvent(row)
}

func (r *eventsRepo) Create(ctx context.Context, e *model.Event) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO events (`+eventColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		e.ID, e.Name, e.Description, e.Date, e.Location,
		e.Price, e.Capacity, e.Available, e.OrganizerID, e.Version, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (r *eventsRepo) Update(ctx context.Context, id string, expectedVersion int64, mutate func(*model.Event)) (*model.Event, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	e, err := scanEvent(tx.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, err
	}
	if e.Version != expectedVersion {
		return nil, store.ErrVersionConflict
	}

	mutate(e)
	e.Version++

	_, err = tx.Exec(ctx,
		`UPDATE events
		 SET name = $2, description = $3, date = $4, location = $5, price = $6,
		     capacity = $7, available = $8, organizer_id = $9, version = $10
		 WHERE id = $1`,
		e.ID, e.Name, e.Description, e.Date, e.Location, e.Price,
		e.Capacity, e.Available, e.OrganizerID, e.Version,
	)
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return e, nil
}

func (r *eventsRepo) Delete(ctx context.Context, id string) (*model.Event, error) {
	row := r.db.QueryRow(ctx,
		`DELETE FROM events WHERE id = $1 RETURNING `+eventColumns, id)
	return scanEvent(row)
}

func (r *eventsRepo) List(ctx context.Context, f store.EventFilter) ([]model.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events`
	var conds []string
	var args []any
	if f.Location != "" {
		args = append(args, "%"+f.Location+"%")
		conds = append(conds, fmt.Sprintf("location ILIKE $%d", len(args)))
	}
	if f.OrganizerID != "" {
		args = append(args, f.OrganizerID)
		conds = append(conds, fmt.Sprintf("organizer_id = $%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	if f.SortBy == "name" {
		query += " ORDER BY name ASC"
	} else {
		query += " ORDER BY date ASC"
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

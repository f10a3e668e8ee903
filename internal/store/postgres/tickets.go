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

type ticketsRepo struct {
	db *pgxpool.Pool
}

const ticketColumns = `id, event_id, user_id, coupon_id, status, price_original, price_final, version, created_at`

func scanTicket(row pgx.Row) (*model.Ticket, error) {
	var t model.Ticket
	err := row.Scan(&t.ID, &t.EventID, &t.UserID, &t.CouponID, &t.Status,
		&t.PriceOriginal, &t.PriceFinal, &t.Version, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("scan ticket: %w", err)
	}
	return &t, nil
}

func (r *ticketsRepo) Get(ctx context.Context, id string) (*model.Ticket, error) {
	row := r.db.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = $1`, id)
	return scanTicket(row)
}

func (r *ticketsRepo) Create(ctx context.Context, t *model.Ticket) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO tickets (`+ticketColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		t.ID, t.EventID, t.UserID, t.CouponID, t.Status,
		t.PriceOriginal, t.PriceFinal, t.Version, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ticket: %w", err)
	}
	return nil
}

func (r *ticketsRepo) Update(ctx context.Context, id string, expectedVersion int64, mutate func(*model.Ticket)) (*model.Ticket, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	t, err := scanTicket(tx.QueryRow(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, err
	}
	if t.Version != expectedVersion {
		return nil, store.ErrVersionConflict
	}

	mutate(t)
	t.Version++

	_, err = tx.Exec(ctx,
		`UPDATE tickets
		 SET event_id = $2, user_id = $3, coupon_id = $4, status = $5,
		     price_original = $6, price_final = $7, version = $8
		 WHERE id = $1`,
		t.ID, t.EventID, t.UserID, t.CouponID, t.Status,
		t.PriceOriginal, t.PriceFinal, t.Version,
	)
	if err != nil {
		return nil, fmt.Errorf("update ticket: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return t, nil
}

func (r *ticketsRepo) Delete(ctx context.Context, id string) (*model.Ticket, error) {
	row := r.db.QueryRow(ctx,
		`DELETE FROM tickets WHERE id = $1 RETURNING `+ticketColumns, id)
	return scanTicket(row)
}

func (r *ticketsRepo) List(ctx context.Context, f store.TicketFilter) ([]model.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets`
	var conds []string
	var args []any
	if f.Status != "" {
		args = append(args, f.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.UserID != "" {
		args = append(args, f.UserID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if f.EventID != "" {
		args = append(args, f.EventID)
		conds = append(conds, fmt.Sprintf("event_id = $%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at ASC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	var tickets []model.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, *t)
	}
	return tickets, rows.Err()
}

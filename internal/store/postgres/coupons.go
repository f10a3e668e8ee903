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

type couponsRepo struct {
	db *pgxpool.Pool
}

const couponColumns = `id, code, kind, value, expires_at, event_id, created_by, used, version, created_at`

func scanCoupon(row pgx.Row) (*model.Coupon, error) {
	var c model.Coupon
	err := row.Scan(&c.ID, &c.Code, &c.Kind, &c.Value, &c.ExpiresAt,
		&c.EventID, &c.CreatedBy, &c.Used, &c.Version, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("scan coupon: %w", err)
	}
	return &c, nil
}

func (r *couponsRepo) Get(ctx context.Context, id string) (*model.Coupon, error) {
	row := r.db.QueryRow(ctx, `SELECT `+couponColumns+` FROM coupons WHERE id = $1`, id)
	return scanCoupon(row)
}

func (r *couponsRepo) GetByCode(ctx context.Context, code string) (*model.Coupon, error) {
	row := r.db.QueryRow(ctx, `SELECT `+couponColumns+` FROM coupons WHERE code = $1`, code)
	return scanCoupon(row)
}

func (r *couponsRepo) Create(ctx context.Context, c *model.Coupon) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO coupons (`+couponColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		c.ID, c.Code, c.Kind, c.Value, c.ExpiresAt,
		c.EventID, c.CreatedBy, c.Used, c.Version, c.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		return fmt.Errorf("insert coupon: %w", err)
	}
	return nil
}

func (r *couponsRepo) Update(ctx context.Context, id string, expectedVersion int64, mutate func(*model.Coupon)) (*model.Coupon, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	c, err := scanCoupon(tx.QueryRow(ctx,
		`SELECT `+couponColumns+` FROM coupons WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, err
	}
	if c.Version != expectedVersion {
		return nil, store.ErrVersionConflict
	}

	mutate(c)
	c.Version++

	_, err = tx.Exec(ctx,
		`UPDATE coupons
		 SET code = $2, kind = $3, value = $4, expires_at = $5, event_id = $6,
		     created_by = $7, used = $8, version = $9
		 WHERE id = $1`,
		c.ID, c.Code, c.Kind, c.Value, c.ExpiresAt, c.EventID,
		c.CreatedBy, c.Used, c.Version,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		return nil, fmt.Errorf("update coupon: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return c, nil
}

func (r *couponsRepo) Delete(ctx context.Context, id string) (*model.Coupon, error) {
	row := r.db.QueryRow(ctx,
		`DELETE FROM coupons WHERE id = $1 RETURNING `+couponColumns, id)
	return scanCoupon(row)
}

func (r *couponsRepo) List(ctx context.Context, f store.CouponFilter) ([]model.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons`
	var conds []string
	var args []any
	if f.Used != nil {
		args = append(args, *f.Used)
		conds = append(conds, fmt.Sprintf("used = $%d", len(args)))
	}
	if f.EventID != "" {
		args = append(args, f.EventID)
		conds = append(conds, fmt.Sprintf("event_id = $%d", len(args)))
	}
	if f.Kind != "" {
		args = append(args, f.Kind)
		conds = append(conds, fmt.Sprintf("kind = $%d", len(args)))
	}
	if f.ValidOnly {
		conds = append(conds, "used = FALSE", "expires_at >= NOW()")
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at ASC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	defer rows.Close()

	var coupons []model.Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		coupons = append(coupons, *c)
	}
	return coupons, rows.Err()
}

package fx

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository stores currency_rates rows.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const rateColumns = `id, value, source, is_active, created_by, created_at`

func scanRate(row pgx.Row) (Rate, error) {
	var r Rate
	err := row.Scan(&r.ID, &r.Value, &r.Source, &r.IsActive, &r.CreatedBy, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Rate{}, ErrNotFound
	}
	return r, err
}

// Latest returns the most recent active rate.
func (r *Repository) Latest(ctx context.Context) (Rate, error) {
	return scanRate(r.pool.QueryRow(ctx, `SELECT `+rateColumns+` FROM currency_rates
WHERE is_active ORDER BY created_at DESC, id DESC LIMIT 1`))
}

func (r *Repository) Insert(ctx context.Context, rate Rate) (Rate, error) {
	return scanRate(r.pool.QueryRow(ctx, `INSERT INTO currency_rates (value, source, is_active, created_by)
VALUES ($1, $2, TRUE, $3) RETURNING `+rateColumns, rate.Value, rate.Source, rate.CreatedBy))
}

func (r *Repository) SetActive(ctx context.Context, id int64, active bool) (Rate, error) {
	return scanRate(r.pool.QueryRow(ctx, `UPDATE currency_rates SET is_active = $2 WHERE id = $1 RETURNING `+rateColumns, id, active))
}

func (r *Repository) History(ctx context.Context, limit int) ([]Rate, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+rateColumns+` FROM currency_rates ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Rate{}
	for rows.Next() {
		rate, err := scanRate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rate)
	}
	return out, rows.Err()
}

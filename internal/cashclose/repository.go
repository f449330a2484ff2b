package cashclose

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/naguara/naguara-pos/internal/platform/db"
	"github.com/naguara/naguara-pos/internal/shared"
)

// Repository persists closures in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository is the transactional view used by Create.
type TxRepository interface {
	Exists(ctx context.Context, day time.Time, userID int64) (bool, error)
	Totals(ctx context.Context, userID int64, from, to time.Time) (Totals, error)
	Insert(ctx context.Context, c *Closure) error
}

type txRepo struct {
	q db.Querier
}

// WithTx runs fn in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, db.DefaultTx, func(tx pgx.Tx) error {
		return fn(ctx, txRepo{q: tx})
	})
}

func (t txRepo) Exists(ctx context.Context, day time.Time, userID int64) (bool, error) {
	var exists bool
	err := t.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM cash_closures WHERE closure_date = $1 AND user_id = $2)`,
		day, userID).Scan(&exists)
	return exists, err
}

func (t txRepo) Totals(ctx context.Context, userID int64, from, to time.Time) (Totals, error) {
	return totals(ctx, t.q, userID, from, to)
}

func (t txRepo) Insert(ctx context.Context, c *Closure) error {
	day, err := time.Parse(shared.DateLayout, c.Date)
	if err != nil {
		return shared.ErrInvalidDate
	}
	err = t.q.QueryRow(ctx, `INSERT INTO cash_closures (closure_date, user_id, opening_cash, counted_cash, expected_cash,
expected_by_method, sales_count, variance, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id, created_at`,
		day, c.UserID, c.OpeningCash, c.CountedCash, c.ExpectedCash, c.ExpectedByMethod, c.SalesCount, c.Variance, c.Notes,
	).Scan(&c.ID, &c.CreatedAt)
	if shared.IsUniqueViolation(err) {
		return ErrDuplicateClosure
	}
	return err
}

// Totals sums completed sales outside a transaction, for previews.
func (r *Repository) Totals(ctx context.Context, userID int64, from, to time.Time) (Totals, error) {
	return totals(ctx, r.pool, userID, from, to)
}

func totals(ctx context.Context, q db.Querier, userID int64, from, to time.Time) (Totals, error) {
	t := Totals{Total: decimal.Zero, ByMethod: map[string]decimal.Decimal{}}
	err := q.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(total), 0) FROM sales
WHERE user_id = $1 AND status = 'completed' AND created_at >= $2 AND created_at < $3`, userID, from, to).
		Scan(&t.SalesCount, &t.Total)
	if err != nil {
		return Totals{}, err
	}
	rows, err := q.Query(ctx, `SELECT p.method, SUM(p.amount)
FROM sale_payments p JOIN sales s ON s.id = p.sale_id
WHERE s.user_id = $1 AND s.status = 'completed' AND s.created_at >= $2 AND s.created_at < $3
GROUP BY p.method`, userID, from, to)
	if err != nil {
		return Totals{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			method string
			amount decimal.Decimal
		)
		if err := rows.Scan(&method, &amount); err != nil {
			return Totals{}, err
		}
		t.ByMethod[method] = amount
	}
	return t, rows.Err()
}

const closureColumns = `c.id, c.closure_date, c.user_id, u.username, c.opening_cash, c.counted_cash, c.expected_cash,
c.expected_by_method, c.sales_count, c.variance, c.notes, c.created_at
FROM cash_closures c JOIN users u ON u.id = c.user_id`

func scanClosure(row pgx.Row) (Closure, error) {
	var (
		c   Closure
		day time.Time
	)
	err := row.Scan(&c.ID, &day, &c.UserID, &c.Username, &c.OpeningCash, &c.CountedCash, &c.ExpectedCash,
		&c.ExpectedByMethod, &c.SalesCount, &c.Variance, &c.Notes, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Closure{}, ErrNotFound
	}
	if err != nil {
		return Closure{}, err
	}
	c.Date = day.Format(shared.DateLayout)
	return c, nil
}

// Find returns the closure of a day and operator.
func (r *Repository) Find(ctx context.Context, day time.Time, userID int64) (Closure, error) {
	return scanClosure(r.pool.QueryRow(ctx, `SELECT `+closureColumns+` WHERE c.closure_date = $1 AND c.user_id = $2`, day, userID))
}

// List returns closures, newest day first.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Closure, int, error) {
	where := []string{"TRUE"}
	var args []any
	if filter.UserID > 0 {
		args = append(args, filter.UserID)
		where = append(where, fmt.Sprintf("c.user_id = $%d", len(args)))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		where = append(where, fmt.Sprintf("c.closure_date >= $%d", len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		where = append(where, fmt.Sprintf("c.closure_date < $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM cash_closures c WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, filter.Page.Limit(), filter.Page.Offset())
	rows, err := r.pool.Query(ctx, `SELECT `+closureColumns+` WHERE `+cond+
		fmt.Sprintf(` ORDER BY c.closure_date DESC, c.id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []Closure{}
	for rows.Next() {
		c, err := scanClosure(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

package reports

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/naguara/naguara-pos/internal/shared"
)

// Repository runs the report queries.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// DailySummary aggregates the sales created inside r.
func (r *Repository) DailySummary(ctx context.Context, rng Range) (DailySummary, error) {
	s := DailySummary{ByMethod: map[string]decimal.Decimal{}, TopProducts: []ProductTotal{}}
	err := r.pool.QueryRow(ctx, `SELECT
    COUNT(*) FILTER (WHERE status = 'completed'),
    COUNT(*) FILTER (WHERE status = 'voided'),
    COALESCE(SUM(subtotal) FILTER (WHERE status = 'completed'), 0),
    COALESCE(SUM(tax) FILTER (WHERE status = 'completed'), 0),
    COALESCE(SUM(total) FILTER (WHERE status = 'completed'), 0),
    COALESCE(SUM(total_local) FILTER (WHERE status = 'completed'), 0)
FROM sales WHERE created_at >= $1 AND created_at < $2`, rng.From, rng.To).
		Scan(&s.SalesCount, &s.VoidedCount, &s.Subtotal, &s.Tax, &s.Total, &s.TotalLocal)
	if err != nil {
		return DailySummary{}, err
	}

	rows, err := r.pool.Query(ctx, `SELECT p.method, SUM(p.amount)
FROM sale_payments p JOIN sales s ON s.id = p.sale_id
WHERE s.status = 'completed' AND s.created_at >= $1 AND s.created_at < $2
GROUP BY p.method`, rng.From, rng.To)
	if err != nil {
		return DailySummary{}, err
	}
	for rows.Next() {
		var (
			method string
			amount decimal.Decimal
		)
		if err := rows.Scan(&method, &amount); err != nil {
			rows.Close()
			return DailySummary{}, err
		}
		s.ByMethod[method] = amount
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return DailySummary{}, err
	}

	rows, err = r.pool.Query(ctx, `SELECT l.product_id, l.product_name, SUM(l.quantity), SUM(l.total)
FROM sale_lines l JOIN sales s ON s.id = l.sale_id
WHERE s.status = 'completed' AND s.created_at >= $1 AND s.created_at < $2
GROUP BY l.product_id, l.product_name
ORDER BY SUM(l.total) DESC, l.product_id
LIMIT $3`, rng.From, rng.To, topProductsLimit)
	if err != nil {
		return DailySummary{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var p ProductTotal
		if err := rows.Scan(&p.ProductID, &p.Name, &p.Quantity, &p.Total); err != nil {
			return DailySummary{}, err
		}
		s.TopProducts = append(s.TopProducts, p)
	}
	return s, rows.Err()
}

// SalesSeries groups completed sales by local day in loc.
func (r *Repository) SalesSeries(ctx context.Context, rng Range, loc *time.Location) ([]DayPoint, error) {
	rows, err := r.pool.Query(ctx, `SELECT (created_at AT TIME ZONE $3)::date AS day, COUNT(*), SUM(total), SUM(tax)
FROM sales
WHERE status = 'completed' AND created_at >= $1 AND created_at < $2
GROUP BY day ORDER BY day`, rng.From, rng.To, loc.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []DayPoint{}
	for rows.Next() {
		var (
			p   DayPoint
			day time.Time
		)
		if err := rows.Scan(&day, &p.SalesCount, &p.Total, &p.Tax); err != nil {
			return nil, err
		}
		p.Date = day.Format(shared.DateLayout)
		out = append(out, p)
	}
	return out, rows.Err()
}

// LowStockCount counts active products at or below their minimum.
func (r *Repository) LowStockCount(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE is_active AND stock <= min_stock`).Scan(&n)
	return n, err
}

// ProductCount counts active products.
func (r *Repository) ProductCount(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE is_active`).Scan(&n)
	return n, err
}

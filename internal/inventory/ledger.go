package inventory

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/naguara/naguara-pos/internal/platform/db"
)

// Ledger is the transaction-scoped stock primitive shared by every module that
// moves stock. Callers lock the products they touch, check availability against
// the locked rows and then apply movements; all within their own transaction.
type Ledger interface {
	LockProducts(ctx context.Context, ids []int64) (map[int64]StockLevel, error)
	Apply(ctx context.Context, m Movement) (decimal.Decimal, error)
}

// PGLedger implements Ledger on an open PostgreSQL transaction.
type PGLedger struct {
	q db.Querier
}

// NewLedger binds a ledger to tx. The isolation level should be db.LedgerTx.
func NewLedger(q db.Querier) *PGLedger {
	return &PGLedger{q: q}
}

// SortedIDs returns ids deduplicated in ascending order, the lock order used
// by every ledger caller.
func SortedIDs(ids []int64) []int64 {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}

// LockProducts locks the given product rows FOR UPDATE in ascending id order.
func (l *PGLedger) LockProducts(ctx context.Context, ids []int64) (map[int64]StockLevel, error) {
	sorted := SortedIDs(ids)
	if len(sorted) == 0 {
		return map[int64]StockLevel{}, nil
	}
	rows, err := l.q.Query(ctx, `SELECT p.id, p.code, p.name, p.unit, p.stock, p.min_stock, p.price, p.cost, t.rate, p.is_active
FROM products p
JOIN tax_rates t ON t.id = p.tax_rate_id
WHERE p.id = ANY($1)
ORDER BY p.id
FOR UPDATE OF p`, sorted)
	if err != nil {
		return nil, fmt.Errorf("inventory: lock products: %w", err)
	}
	defer rows.Close()
	levels := make(map[int64]StockLevel, len(sorted))
	for rows.Next() {
		var lvl StockLevel
		if err := rows.Scan(&lvl.ID, &lvl.Code, &lvl.Name, &lvl.Unit, &lvl.Stock, &lvl.MinStock, &lvl.Price, &lvl.Cost, &lvl.TaxRate, &lvl.Active); err != nil {
			return nil, err
		}
		levels[lvl.ID] = lvl
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(levels) != len(sorted) {
		return nil, ErrProductNotFound
	}
	return levels, nil
}

// Apply adds m.Qty to the product stock and appends the movement row. The row
// must already be locked by LockProducts.
func (l *PGLedger) Apply(ctx context.Context, m Movement) (decimal.Decimal, error) {
	if m.Qty.IsZero() {
		return decimal.Zero, ErrInvalidQuantity
	}
	if !QuantityFits(m.Qty) {
		return decimal.Zero, ErrQuantityPrecision
	}
	var balance decimal.Decimal
	err := l.q.QueryRow(ctx, `UPDATE products SET stock = stock + $2, updated_at = NOW()
WHERE id = $1 AND stock + $2 >= 0
RETURNING stock`, m.ProductID, m.Qty).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, l.rejection(ctx, m)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("inventory: apply movement: %w", err)
	}
	_, err = l.q.Exec(ctx, `INSERT INTO stock_movements (product_id, kind, qty, balance_after, ref_module, ref_id, note, user_id)
VALUES ($1, $2, $3, $4, $5, NULLIF($6, 0), $7, NULLIF($8, 0))`,
		m.ProductID, string(m.Kind), m.Qty, balance, m.RefModule, m.RefID, m.Note, m.UserID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("inventory: insert movement: %w", err)
	}
	return balance, nil
}

func (l *PGLedger) rejection(ctx context.Context, m Movement) error {
	var name string
	var stock decimal.Decimal
	err := l.q.QueryRow(ctx, `SELECT name, stock FROM products WHERE id = $1`, m.ProductID).Scan(&name, &stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrProductNotFound
	}
	if err != nil {
		return err
	}
	return &StockError{ProductID: m.ProductID, Name: name, Available: stock, Requested: m.Qty.Neg(), Kind: ErrNegativeStock}
}

var _ Ledger = (*PGLedger)(nil)

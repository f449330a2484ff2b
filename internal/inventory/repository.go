package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/naguara/naguara-pos/internal/platform/db"
)

// Repository persists inventory data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	Ledger
	InsertTransformation(ctx context.Context, t Transformation) (int64, time.Time, error)
	InsertTransformationDetails(ctx context.Context, transformationID int64, details []TransformationDetail) error
}

type txRepository struct {
	*PGLedger
	tx pgx.Tx
}

// WithTx executes the callback inside a ledger transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("inventory repository not initialised")
	}
	return db.WithTx(ctx, r.pool, db.LedgerTx, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{PGLedger: NewLedger(tx), tx: tx})
	})
}

func (r *txRepository) InsertTransformation(ctx context.Context, t Transformation) (int64, time.Time, error) {
	var id int64
	var createdAt time.Time
	err := r.tx.QueryRow(ctx, `INSERT INTO transformations (user_id, source_product_id, source_qty, notes)
VALUES ($1, $2, $3, $4) RETURNING id, created_at`, t.UserID, t.SourceProductID, t.SourceQty, t.Notes).Scan(&id, &createdAt)
	return id, createdAt, err
}

func (r *txRepository) InsertTransformationDetails(ctx context.Context, transformationID int64, details []TransformationDetail) error {
	for _, d := range details {
		if _, err := r.tx.Exec(ctx, `INSERT INTO transformation_details (transformation_id, product_id, quantity)
VALUES ($1, $2, $3)`, transformationID, d.ProductID, d.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// ListMovements returns one page of a product's stock card, newest first.
func (r *Repository) ListMovements(ctx context.Context, filter MovementFilter) ([]MovementRecord, int, error) {
	where := []string{"product_id = $1"}
	args := []any{filter.ProductID}
	if filter.Kind != "" {
		args = append(args, string(filter.Kind))
		where = append(where, fmt.Sprintf("kind = $%d", len(args)))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		where = append(where, fmt.Sprintf("created_at < $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM stock_movements WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, filter.Page.Limit(), filter.Page.Offset())
	rows, err := r.pool.Query(ctx, `SELECT id, product_id, kind, qty, balance_after, ref_module, ref_id, note, user_id, created_at
FROM stock_movements WHERE `+cond+fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []MovementRecord
	for rows.Next() {
		var m MovementRecord
		if err := rows.Scan(&m.ID, &m.ProductID, &m.Kind, &m.Qty, &m.BalanceAfter, &m.RefModule, &m.RefID, &m.Note, &m.UserID, &m.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, m)
	}
	return out, total, rows.Err()
}

// ListTransformations returns transformation headers, newest first.
func (r *Repository) ListTransformations(ctx context.Context, filter TransformationFilter) ([]Transformation, int, error) {
	where := []string{"TRUE"}
	var args []any
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		where = append(where, fmt.Sprintf("t.created_at >= $%d", len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		where = append(where, fmt.Sprintf("t.created_at < $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM transformations t WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, filter.Page.Limit(), filter.Page.Offset())
	rows, err := r.pool.Query(ctx, `SELECT t.id, t.user_id, t.source_product_id, p.name, t.source_qty, t.notes, t.created_at
FROM transformations t JOIN products p ON p.id = t.source_product_id
WHERE `+cond+fmt.Sprintf(` ORDER BY t.created_at DESC, t.id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Transformation
	for rows.Next() {
		var t Transformation
		if err := rows.Scan(&t.ID, &t.UserID, &t.SourceProductID, &t.SourceName, &t.SourceQty, &t.Notes, &t.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, t)
	}
	return out, total, rows.Err()
}

// GetTransformation loads a transformation with its details.
func (r *Repository) GetTransformation(ctx context.Context, id int64) (Transformation, error) {
	var t Transformation
	err := r.pool.QueryRow(ctx, `SELECT t.id, t.user_id, t.source_product_id, p.name, t.source_qty, t.notes, t.created_at
FROM transformations t JOIN products p ON p.id = t.source_product_id
WHERE t.id = $1`, id).Scan(&t.ID, &t.UserID, &t.SourceProductID, &t.SourceName, &t.SourceQty, &t.Notes, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Transformation{}, ErrTransformationNotFound
	}
	if err != nil {
		return Transformation{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT d.id, d.product_id, p.name, d.quantity
FROM transformation_details d JOIN products p ON p.id = d.product_id
WHERE d.transformation_id = $1 ORDER BY d.id`, id)
	if err != nil {
		return Transformation{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var d TransformationDetail
		if err := rows.Scan(&d.ID, &d.ProductID, &d.ProductName, &d.Quantity); err != nil {
			return Transformation{}, err
		}
		t.Details = append(t.Details, d)
	}
	return t, rows.Err()
}

// LowStock lists active products whose stock is at or below the minimum.
func (r *Repository) LowStock(ctx context.Context) ([]LowStockAlert, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, code, name, unit, stock, min_stock
FROM products
WHERE is_active AND stock <= min_stock
ORDER BY (min_stock - stock) DESC, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LowStockAlert
	for rows.Next() {
		var a LowStockAlert
		if err := rows.Scan(&a.ProductID, &a.Code, &a.Name, &a.Unit, &a.Stock, &a.MinStock); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

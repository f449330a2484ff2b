package procurement

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/naguara/naguara-pos/internal/inventory"
	"github.com/naguara/naguara-pos/internal/platform/db"
	"github.com/naguara/naguara-pos/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	inventory.Ledger
	InsertPurchase(ctx context.Context, p *Purchase) error
	InsertLines(ctx context.Context, purchaseID int64, lines []Line) error
	LockPurchase(ctx context.Context, id int64) (Purchase, error)
	SetLineReceived(ctx context.Context, lineID int64, qty decimal.Decimal) error
	SetProductCost(ctx context.Context, productID int64, cost decimal.Decimal) error
	MarkReceived(ctx context.Context, id, userID int64) error
	MarkCancelled(ctx context.Context, id int64) error
}

type txRepo struct {
	*inventory.PGLedger
	tx pgx.Tx
}

// WithTx wraps callback in a ledger transaction; stock rows are locked by the callback.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, db.LedgerTx, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{PGLedger: inventory.NewLedger(tx), tx: tx})
	})
}

func (t *txRepo) InsertPurchase(ctx context.Context, p *Purchase) error {
	err := t.tx.QueryRow(ctx, `INSERT INTO purchases (supplier_id, invoice_number, status, notes, created_by)
VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`,
		p.SupplierID, p.InvoiceNumber, p.Status, p.Notes, p.CreatedBy).Scan(&p.ID, &p.CreatedAt)
	if shared.IsForeignKeyViolation(err) && shared.ConstraintName(err) == "purchases_supplier_id_fkey" {
		return ErrSupplierNotFound
	}
	return err
}

func (t *txRepo) InsertLines(ctx context.Context, purchaseID int64, lines []Line) error {
	batch := &pgx.Batch{}
	for _, l := range lines {
		batch.Queue(`INSERT INTO purchase_lines (purchase_id, product_id, qty_ordered, unit_cost) VALUES ($1, $2, $3, $4)`,
			purchaseID, l.ProductID, l.QtyOrdered, l.UnitCost)
	}
	err := t.tx.SendBatch(ctx, batch).Close()
	if shared.IsForeignKeyViolation(err) {
		return ErrProductNotFound
	}
	return err
}

func (t *txRepo) LockPurchase(ctx context.Context, id int64) (Purchase, error) {
	var p Purchase
	err := t.tx.QueryRow(ctx, `SELECT id, supplier_id, invoice_number, status, notes, created_by, created_at
FROM purchases WHERE id = $1 FOR UPDATE`, id).
		Scan(&p.ID, &p.SupplierID, &p.InvoiceNumber, &p.Status, &p.Notes, &p.CreatedBy, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Purchase{}, ErrNotFound
	}
	if err != nil {
		return Purchase{}, err
	}
	p.Lines, err = loadLines(ctx, t.tx, id)
	return p, err
}

func (t *txRepo) SetLineReceived(ctx context.Context, lineID int64, qty decimal.Decimal) error {
	_, err := t.tx.Exec(ctx, `UPDATE purchase_lines SET qty_received = $2 WHERE id = $1`, lineID, qty)
	return err
}

func (t *txRepo) SetProductCost(ctx context.Context, productID int64, cost decimal.Decimal) error {
	_, err := t.tx.Exec(ctx, `UPDATE products SET cost = $2, updated_at = NOW() WHERE id = $1`, productID, cost)
	return err
}

func (t *txRepo) MarkReceived(ctx context.Context, id, userID int64) error {
	_, err := t.tx.Exec(ctx, `UPDATE purchases SET status = $2, received_by = $3, received_at = NOW(), updated_at = NOW()
WHERE id = $1`, id, StatusReceived, userID)
	return err
}

func (t *txRepo) MarkCancelled(ctx context.Context, id int64) error {
	_, err := t.tx.Exec(ctx, `UPDATE purchases SET status = $2, updated_at = NOW() WHERE id = $1`, id, StatusCancelled)
	return err
}

const purchaseColumns = `p.id, p.supplier_id, s.name, p.invoice_number, p.status, p.notes,
COALESCE((SELECT SUM(round(l.qty_ordered * l.unit_cost, 2)) FROM purchase_lines l WHERE l.purchase_id = p.id), 0),
p.created_by, p.received_by, p.received_at, p.created_at
FROM purchases p JOIN suppliers s ON s.id = p.supplier_id`

func scanPurchase(row pgx.Row) (Purchase, error) {
	var p Purchase
	err := row.Scan(&p.ID, &p.SupplierID, &p.SupplierName, &p.InvoiceNumber, &p.Status, &p.Notes, &p.Total,
		&p.CreatedBy, &p.ReceivedBy, &p.ReceivedAt, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Purchase{}, ErrNotFound
	}
	return p, err
}

// Get returns a purchase with its lines.
func (r *Repository) Get(ctx context.Context, id int64) (Purchase, error) {
	p, err := scanPurchase(r.pool.QueryRow(ctx, `SELECT `+purchaseColumns+` WHERE p.id = $1`, id))
	if err != nil {
		return Purchase{}, err
	}
	p.Lines, err = loadLines(ctx, r.pool, id)
	return p, err
}

// List returns purchase headers, newest first.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Purchase, int, error) {
	where := []string{"TRUE"}
	var args []any
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("p.status = $%d", len(args)))
	}
	if filter.SupplierID > 0 {
		args = append(args, filter.SupplierID)
		where = append(where, fmt.Sprintf("p.supplier_id = $%d", len(args)))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		where = append(where, fmt.Sprintf("p.created_at >= $%d", len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		where = append(where, fmt.Sprintf("p.created_at < $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM purchases p WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, filter.Page.Limit(), filter.Page.Offset())
	rows, err := r.pool.Query(ctx, `SELECT `+purchaseColumns+` WHERE `+cond+
		fmt.Sprintf(` ORDER BY p.created_at DESC, p.id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []Purchase{}
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

func loadLines(ctx context.Context, q db.Querier, purchaseID int64) ([]Line, error) {
	rows, err := q.Query(ctx, `SELECT l.id, l.product_id, p.name, l.qty_ordered, l.qty_received, l.unit_cost
FROM purchase_lines l JOIN products p ON p.id = l.product_id
WHERE l.purchase_id = $1 ORDER BY l.id`, purchaseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.ProductID, &l.ProductName, &l.QtyOrdered, &l.QtyReceived, &l.UnitCost); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

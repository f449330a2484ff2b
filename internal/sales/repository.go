package sales

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/naguara/naguara-pos/internal/inventory"
	"github.com/naguara/naguara-pos/internal/platform/db"
	"github.com/naguara/naguara-pos/internal/shared"
)

// Repository provides PostgreSQL backed persistence for sales.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the writes of one sale transaction.
type TxRepository interface {
	inventory.Ledger
	NextNumber(ctx context.Context) (string, error)
	InsertSale(ctx context.Context, sale *Sale) error
	InsertLines(ctx context.Context, saleID int64, lines []Line) error
	InsertPayments(ctx context.Context, saleID int64, payments []Payment) error
	LockSale(ctx context.Context, id int64) (Sale, error)
	MarkVoided(ctx context.Context, id, userID int64, reason string) (time.Time, error)
}

type txRepo struct {
	*inventory.PGLedger
	tx pgx.Tx
}

// WithTx runs fn in a read-committed transaction so ledger row locks see committed stock.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, db.LedgerTx, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{PGLedger: inventory.NewLedger(tx), tx: tx})
	})
}

func (t *txRepo) NextNumber(ctx context.Context) (string, error) {
	var number string
	err := t.tx.QueryRow(ctx, `SELECT 'V-' || lpad(nextval('sale_number_seq')::text, 6, '0')`).Scan(&number)
	return number, err
}

func (t *txRepo) InsertSale(ctx context.Context, s *Sale) error {
	err := t.tx.QueryRow(ctx, `INSERT INTO sales (number, customer_id, user_id, payment_method, payment_reference,
payment_bank, received_amount, change_amount, subtotal, tax, total, exchange_rate, total_local, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
RETURNING id, created_at`,
		s.Number, s.CustomerID, s.UserID, s.PaymentMethod, s.PaymentReference, s.PaymentBank,
		s.ReceivedAmount, s.Change, s.Subtotal, s.Tax, s.Total, s.ExchangeRate, s.TotalLocal, s.Status,
	).Scan(&s.ID, &s.CreatedAt)
	if shared.IsForeignKeyViolation(err) && shared.ConstraintName(err) == "sales_customer_id_fkey" {
		return ErrCustomerNotFound
	}
	return err
}

func (t *txRepo) InsertLines(ctx context.Context, saleID int64, lines []Line) error {
	rows := make([][]any, len(lines))
	for i, l := range lines {
		rows[i] = []any{saleID, l.ProductID, l.ProductName, l.Quantity, l.UnitPrice, l.TaxRate, l.Subtotal, l.Tax, l.Total}
	}
	_, err := t.tx.CopyFrom(ctx, pgx.Identifier{"sale_lines"},
		[]string{"sale_id", "product_id", "product_name", "quantity", "unit_price", "tax_rate", "subtotal", "tax", "total"},
		pgx.CopyFromRows(rows))
	return err
}

func (t *txRepo) InsertPayments(ctx context.Context, saleID int64, payments []Payment) error {
	batch := &pgx.Batch{}
	for _, p := range payments {
		batch.Queue(`INSERT INTO sale_payments (sale_id, method, amount, reference, bank) VALUES ($1, $2, $3, $4, $5)`,
			saleID, p.Method, p.Amount, p.Reference, p.Bank)
	}
	return t.tx.SendBatch(ctx, batch).Close()
}

// LockSale locks the header row and loads its lines.
func (t *txRepo) LockSale(ctx context.Context, id int64) (Sale, error) {
	var s Sale
	err := t.tx.QueryRow(ctx, `SELECT id, number, status, total FROM sales WHERE id = $1 FOR UPDATE`, id).
		Scan(&s.ID, &s.Number, &s.Status, &s.Total)
	if errors.Is(err, pgx.ErrNoRows) {
		return Sale{}, ErrNotFound
	}
	if err != nil {
		return Sale{}, err
	}
	s.Lines, err = loadLines(ctx, t.tx, id)
	return s, err
}

func (t *txRepo) MarkVoided(ctx context.Context, id, userID int64, reason string) (time.Time, error) {
	var at time.Time
	err := t.tx.QueryRow(ctx, `UPDATE sales SET status = $2, void_reason = $3, voided_by = $4, voided_at = NOW()
WHERE id = $1 RETURNING voided_at`, id, StatusVoided, reason, userID).Scan(&at)
	return at, err
}

const saleColumns = `s.id, s.number, s.customer_id, c.name, s.user_id, u.username, s.payment_method,
s.payment_reference, s.payment_bank, s.received_amount, s.change_amount, s.subtotal, s.tax, s.total,
s.exchange_rate, s.total_local, s.status, s.void_reason, s.voided_by, s.voided_at, s.created_at`

const saleFrom = ` FROM sales s
JOIN users u ON u.id = s.user_id
LEFT JOIN customers c ON c.id = s.customer_id`

func scanSale(row pgx.Row) (Sale, error) {
	var s Sale
	err := row.Scan(&s.ID, &s.Number, &s.CustomerID, &s.CustomerName, &s.UserID, &s.Username, &s.PaymentMethod,
		&s.PaymentReference, &s.PaymentBank, &s.ReceivedAmount, &s.Change, &s.Subtotal, &s.Tax, &s.Total,
		&s.ExchangeRate, &s.TotalLocal, &s.Status, &s.VoidReason, &s.VoidedBy, &s.VoidedAt, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Sale{}, ErrNotFound
	}
	return s, err
}

// Get loads a sale with its lines and payments.
func (r *Repository) Get(ctx context.Context, id int64) (Sale, error) {
	s, err := scanSale(r.pool.QueryRow(ctx, `SELECT `+saleColumns+saleFrom+` WHERE s.id = $1`, id))
	if err != nil {
		return Sale{}, err
	}
	if s.Lines, err = loadLines(ctx, r.pool, id); err != nil {
		return Sale{}, err
	}
	if s.Payments, err = loadPayments(ctx, r.pool, id); err != nil {
		return Sale{}, err
	}
	return s, nil
}

// List returns sale headers matching the filter, newest first.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]Sale, int, error) {
	where, args := listWhere(f)
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM sales s`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, f.Page.Limit(), f.Page.Offset())
	rows, err := r.pool.Query(ctx, `SELECT `+saleColumns+saleFrom+where+
		` ORDER BY s.created_at DESC, s.id DESC LIMIT $`+strconv.Itoa(len(args)-1)+` OFFSET $`+strconv.Itoa(len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []Sale{}
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	return out, total, rows.Err()
}

func listWhere(f ListFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, cond+strconv.Itoa(len(args)))
	}
	if !f.From.IsZero() {
		add("s.created_at >= $", f.From)
	}
	if !f.To.IsZero() {
		add("s.created_at < $", f.To)
	}
	if f.Status != "" {
		add("s.status = $", f.Status)
	}
	if f.UserID > 0 {
		add("s.user_id = $", f.UserID)
	}
	if f.CustomerID > 0 {
		add("s.customer_id = $", f.CustomerID)
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func loadLines(ctx context.Context, q db.Querier, saleID int64) ([]Line, error) {
	rows, err := q.Query(ctx, `SELECT id, product_id, product_name, quantity, unit_price, tax_rate, subtotal, tax, total
FROM sale_lines WHERE sale_id = $1 ORDER BY id`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.ProductID, &l.ProductName, &l.Quantity, &l.UnitPrice, &l.TaxRate, &l.Subtotal, &l.Tax, &l.Total); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func loadPayments(ctx context.Context, q db.Querier, saleID int64) ([]Payment, error) {
	rows, err := q.Query(ctx, `SELECT method, amount, reference, bank FROM sale_payments WHERE sale_id = $1 ORDER BY id`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var payments []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.Method, &p.Amount, &p.Reference, &p.Bank); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

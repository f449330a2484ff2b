package products

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/naguara/naguara-pos/internal/inventory"
	"github.com/naguara/naguara-pos/internal/masterdata/shared"
	"github.com/naguara/naguara-pos/internal/platform/db"
	core "github.com/naguara/naguara-pos/internal/shared"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Product, int, error)
	Get(ctx context.Context, id int64) (Product, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository is the product write surface inside one ledger transaction.
type TxRepository interface {
	inventory.Ledger
	Get(ctx context.Context, id int64) (Product, error)
	DefaultTaxRateID(ctx context.Context) (int64, error)
	Insert(ctx context.Context, p Product) (int64, error)
	Update(ctx context.Context, id int64, p Product) error
	HasHistory(ctx context.Context, id int64) (bool, error)
	Delete(ctx context.Context, id int64) error
	Deactivate(ctx context.Context, id int64) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

type txRepository struct {
	*inventory.PGLedger
	q db.Querier
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, db.LedgerTx, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{PGLedger: inventory.NewLedger(tx), q: tx})
	})
}

const selectProduct = `SELECT p.id, p.code, p.name, p.unit, p.stock, p.min_stock, p.price, p.cost,
p.tax_rate_id, t.rate, p.supplier_id, p.category_id, c.name, p.is_active, p.created_at, p.updated_at
FROM products p
JOIN tax_rates t ON t.id = p.tax_rate_id
LEFT JOIN categories c ON c.id = p.category_id`

func scan(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Code, &p.Name, &p.Unit, &p.Stock, &p.MinStock, &p.Price, &p.Cost,
		&p.TaxRateID, &p.TaxRate, &p.SupplierID, &p.CategoryID, &p.CategoryName, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	return p, err
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Product, int, error) {
	var where shared.Where
	if filters.Search != "" {
		where.Add("(p.search_key LIKE ? OR p.code ILIKE ?)", "%"+core.SearchKey(filters.Search)+"%")
	}
	if filters.CategoryID > 0 {
		where.Add("p.category_id = ?", filters.CategoryID)
	}
	if filters.IsActive != nil {
		where.Add("p.is_active = ?", *filters.IsActive)
	}
	if filters.LowStock {
		where.AddRaw("p.stock <= p.min_stock")
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM products p`+where.SQL(), where.Args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	limit, args := where.Page(filters.Page)
	rows, err := r.db.Query(ctx, selectProduct+where.SQL()+` ORDER BY `+sortOrder(filters.SortBy, filters.SortDir)+limit, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scan(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Product, error) {
	return scan(r.db.QueryRow(ctx, selectProduct+` WHERE p.id = $1`, id))
}

func (r *txRepository) Get(ctx context.Context, id int64) (Product, error) {
	return scan(r.q.QueryRow(ctx, selectProduct+` WHERE p.id = $1`, id))
}

func (r *txRepository) DefaultTaxRateID(ctx context.Context) (int64, error) {
	var id int64
	err := r.q.QueryRow(ctx, `SELECT id FROM tax_rates ORDER BY is_default DESC, rate DESC, id LIMIT 1`).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrTaxRateNotFound
	}
	return id, err
}

func (r *txRepository) Insert(ctx context.Context, p Product) (int64, error) {
	var id int64
	err := r.q.QueryRow(ctx, `INSERT INTO products (code, name, search_key, unit, stock, min_stock, price, cost, tax_rate_id, supplier_id, category_id, is_active)
VALUES ($1, $2, $3, $4, 0, $5, $6, $7, $8, $9, $10, $11) RETURNING id`,
		p.Code, p.Name, core.SearchKey(p.Name), p.Unit, p.MinStock, p.Price, p.Cost, p.TaxRateID, p.SupplierID, p.CategoryID, p.IsActive).Scan(&id)
	return id, translate(err)
}

func (r *txRepository) Update(ctx context.Context, id int64, p Product) error {
	_, err := r.q.Exec(ctx, `UPDATE products SET code = $2, name = $3, search_key = $4, unit = $5, min_stock = $6,
price = $7, cost = $8, tax_rate_id = $9, supplier_id = $10, category_id = $11, is_active = $12, updated_at = NOW()
WHERE id = $1`,
		id, p.Code, p.Name, core.SearchKey(p.Name), p.Unit, p.MinStock, p.Price, p.Cost, p.TaxRateID, p.SupplierID, p.CategoryID, p.IsActive)
	return translate(err)
}

// HasHistory reports whether anything other than the initial stock movement
// references the product.
func (r *txRepository) HasHistory(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `SELECT
    EXISTS (SELECT 1 FROM sale_lines WHERE product_id = $1)
 OR EXISTS (SELECT 1 FROM purchase_lines WHERE product_id = $1)
 OR EXISTS (SELECT 1 FROM transformations WHERE source_product_id = $1)
 OR EXISTS (SELECT 1 FROM transformation_details WHERE product_id = $1)
 OR EXISTS (SELECT 1 FROM stock_movements WHERE product_id = $1 AND kind <> 'initial')`, id).Scan(&exists)
	return exists, err
}

func (r *txRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.q.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	return err
}

func (r *txRepository) Deactivate(ctx context.Context, id int64) error {
	_, err := r.q.Exec(ctx, `UPDATE products SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	return err
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case core.IsUniqueViolation(err):
		return ErrDuplicateCode
	case core.IsForeignKeyViolation(err):
		switch core.ConstraintName(err) {
		case "products_category_id_fkey":
			return ErrCategoryNotFound
		case "products_supplier_id_fkey":
			return ErrSupplierNotFound
		case "products_tax_rate_id_fkey":
			return ErrTaxRateNotFound
		}
		return fmt.Errorf("%w: %s", ErrReferenceNotFound, core.ConstraintName(err))
	}
	return err
}

func sortOrder(sortBy, sortDir string) string {
	dir := shared.SortDirection(sortDir)
	switch sortBy {
	case "code":
		return "p.code " + dir
	case "price":
		return "p.price " + dir
	case "stock":
		return "p.stock " + dir
	case "created_at":
		return "p.created_at " + dir
	default:
		return "p.name " + dir
	}
}

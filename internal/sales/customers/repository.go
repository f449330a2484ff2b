package customers

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/naguara/naguara-pos/internal/masterdata/shared"
	core "github.com/naguara/naguara-pos/internal/shared"
)

type Repository interface {
	Get(ctx context.Context, id int64) (Customer, error)
	GetByCedula(ctx context.Context, cedula string) (Customer, error)
	List(ctx context.Context, filters shared.ListFilters) ([]Customer, int, error)
	Create(ctx context.Context, c Customer) (Customer, error)
	Update(ctx context.Context, id int64, c Customer) (Customer, error)
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const customerColumns = `id, cedula, name, phone, email, address, created_at, updated_at`

func scanCustomer(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.Cedula, &c.Name, &c.Phone, &c.Email, &c.Address, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, ErrNotFound
	}
	return c, err
}

func (r *repository) Get(ctx context.Context, id int64) (Customer, error) {
	return scanCustomer(r.pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
}

func (r *repository) GetByCedula(ctx context.Context, cedula string) (Customer, error) {
	return scanCustomer(r.pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE cedula = $1`, cedula))
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Customer, int, error) {
	var where shared.Where
	if filters.Search != "" {
		where.Add("(search_key LIKE ? OR cedula ILIKE ?)", "%"+core.SearchKey(filters.Search)+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM customers`+where.SQL(), where.Args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	limit, args := where.Page(filters.Page)
	rows, err := r.pool.Query(ctx, `SELECT `+customerColumns+` FROM customers`+where.SQL()+
		` ORDER BY name `+shared.SortDirection(filters.SortDir)+`, id`+limit, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, c Customer) (Customer, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO customers (cedula, name, search_key, phone, email, address)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING `+customerColumns,
		c.Cedula, c.Name, core.SearchKey(c.Name), c.Phone, c.Email, c.Address)
	created, err := scanCustomer(row)
	if core.IsUniqueViolation(err) {
		return Customer{}, ErrDuplicateCedula
	}
	return created, err
}

func (r *repository) Update(ctx context.Context, id int64, c Customer) (Customer, error) {
	row := r.pool.QueryRow(ctx, `UPDATE customers SET cedula = $2, name = $3, search_key = $4, phone = $5,
email = $6, address = $7, updated_at = NOW() WHERE id = $1 RETURNING `+customerColumns,
		id, c.Cedula, c.Name, core.SearchKey(c.Name), c.Phone, c.Email, c.Address)
	updated, err := scanCustomer(row)
	if core.IsUniqueViolation(err) {
		return Customer{}, ErrDuplicateCedula
	}
	return updated, err
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if core.IsForeignKeyViolation(err) {
		return ErrHasSales
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

package categories

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/naguara/naguara-pos/internal/masterdata/shared"
	core "github.com/naguara/naguara-pos/internal/shared"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Category, int, error)
	Get(ctx context.Context, id int64) (Category, error)
	Create(ctx context.Context, form CategoryForm) (Category, error)
	Update(ctx context.Context, id int64, form CategoryForm) (Category, error)
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const columns = `id, name, description, created_at, updated_at`

func scan(row pgx.Row) (Category, error) {
	var c Category
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Category{}, ErrNotFound
	}
	return c, err
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Category, int, error) {
	var where shared.Where
	if filters.Search != "" {
		where.Add("name ILIKE ?", "%"+filters.Search+"%")
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM categories`+where.SQL(), where.Args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	limit, args := where.Page(filters.Page)
	rows, err := r.pool.Query(ctx, `SELECT `+columns+` FROM categories`+where.SQL()+
		` ORDER BY name `+shared.SortDirection(filters.SortDir)+limit, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Category
	for rows.Next() {
		c, err := scan(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Category, error) {
	return scan(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM categories WHERE id = $1`, id))
}

func (r *repository) Create(ctx context.Context, form CategoryForm) (Category, error) {
	c, err := scan(r.pool.QueryRow(ctx, `INSERT INTO categories (name, description) VALUES ($1, $2) RETURNING `+columns,
		form.Name, form.Description))
	if core.IsUniqueViolation(err) {
		return Category{}, ErrDuplicateName
	}
	return c, err
}

func (r *repository) Update(ctx context.Context, id int64, form CategoryForm) (Category, error) {
	c, err := scan(r.pool.QueryRow(ctx, `UPDATE categories SET name = $2, description = $3, updated_at = NOW()
WHERE id = $1 RETURNING `+columns, id, form.Name, form.Description))
	if core.IsUniqueViolation(err) {
		return Category{}, ErrDuplicateName
	}
	return c, err
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if core.IsForeignKeyViolation(err) {
		return ErrInUse
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

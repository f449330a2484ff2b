package suppliers

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/naguara/naguara-pos/internal/masterdata/shared"
	core "github.com/naguara/naguara-pos/internal/shared"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Supplier, int, error)
	Get(ctx context.Context, id int64) (Supplier, error)
	Create(ctx context.Context, supplier Supplier) (Supplier, error)
	Update(ctx context.Context, id int64, supplier Supplier) (Supplier, error)
	Delete(ctx context.Context, id int64) error
	Deactivate(ctx context.Context, id int64) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const columns = `id, name, rif, phone, email, address, is_active, created_at, updated_at`

func scan(row pgx.Row) (Supplier, error) {
	var s Supplier
	err := row.Scan(&s.ID, &s.Name, &s.RIF, &s.Phone, &s.Email, &s.Address, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Supplier{}, ErrNotFound
	}
	return s, err
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Supplier, int, error) {
	var where shared.Where
	if filters.Search != "" {
		where.Add("(name ILIKE ? OR rif ILIKE ?)", "%"+filters.Search+"%")
	}
	if filters.IsActive != nil {
		where.Add("is_active = ?", *filters.IsActive)
	}
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM suppliers`+where.SQL(), where.Args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	limit, args := where.Page(filters.Page)
	rows, err := r.db.Query(ctx, `SELECT `+columns+` FROM suppliers`+where.SQL()+
		` ORDER BY `+sortOrder(filters.SortBy, filters.SortDir)+limit, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Supplier
	for rows.Next() {
		s, err := scan(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Supplier, error) {
	return scan(r.db.QueryRow(ctx, `SELECT `+columns+` FROM suppliers WHERE id = $1`, id))
}

func (r *repository) Create(ctx context.Context, s Supplier) (Supplier, error) {
	created, err := scan(r.db.QueryRow(ctx, `INSERT INTO suppliers (name, rif, phone, email, address, is_active)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING `+columns, s.Name, s.RIF, s.Phone, s.Email, s.Address, s.IsActive))
	if core.IsUniqueViolation(err) {
		return Supplier{}, ErrDuplicateRIF
	}
	return created, err
}

func (r *repository) Update(ctx context.Context, id int64, s Supplier) (Supplier, error) {
	updated, err := scan(r.db.QueryRow(ctx, `UPDATE suppliers
SET name = $2, rif = $3, phone = $4, email = $5, address = $6, is_active = $7, updated_at = NOW()
WHERE id = $1 RETURNING `+columns, id, s.Name, s.RIF, s.Phone, s.Email, s.Address, s.IsActive))
	if core.IsUniqueViolation(err) {
		return Supplier{}, ErrDuplicateRIF
	}
	return updated, err
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM suppliers WHERE id = $1`, id)
	if core.IsForeignKeyViolation(err) {
		return ErrHasPurchases
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `UPDATE suppliers SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func sortOrder(sortBy, sortDir string) string {
	dir := shared.SortDirection(sortDir)
	switch sortBy {
	case "rif":
		return "rif " + dir
	case "created_at":
		return "created_at " + dir
	default:
		return "name " + dir
	}
}

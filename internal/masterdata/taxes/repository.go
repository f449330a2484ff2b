package taxes

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/naguara/naguara-pos/internal/platform/db"
	core "github.com/naguara/naguara-pos/internal/shared"
)

type Repository interface {
	List(ctx context.Context) ([]TaxRate, error)
	Get(ctx context.Context, id int64) (TaxRate, error)
	Create(ctx context.Context, form TaxForm) (TaxRate, error)
	Update(ctx context.Context, id int64, form TaxForm) (TaxRate, error)
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const columns = `id, name, rate, is_default, created_at, updated_at`

func scan(row pgx.Row) (TaxRate, error) {
	var t TaxRate
	err := row.Scan(&t.ID, &t.Name, &t.Rate, &t.IsDefault, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return TaxRate{}, ErrNotFound
	}
	return t, err
}

func (r *repository) List(ctx context.Context) ([]TaxRate, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+columns+` FROM tax_rates ORDER BY rate, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TaxRate
	for rows.Next() {
		t, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (TaxRate, error) {
	return scan(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM tax_rates WHERE id = $1`, id))
}

// save runs write with the previous default cleared when form claims the flag.
func (r *repository) save(ctx context.Context, form TaxForm, write func(pgx.Tx) (TaxRate, error)) (TaxRate, error) {
	var out TaxRate
	err := db.WithTx(ctx, r.pool, db.DefaultTx, func(tx pgx.Tx) error {
		if form.IsDefault {
			if _, err := tx.Exec(ctx, `UPDATE tax_rates SET is_default = FALSE, updated_at = NOW() WHERE is_default`); err != nil {
				return err
			}
		}
		var err error
		out, err = write(tx)
		return err
	})
	if core.IsUniqueViolation(err) {
		return TaxRate{}, ErrDuplicateName
	}
	return out, err
}

func (r *repository) Create(ctx context.Context, form TaxForm) (TaxRate, error) {
	return r.save(ctx, form, func(tx pgx.Tx) (TaxRate, error) {
		return scan(tx.QueryRow(ctx, `INSERT INTO tax_rates (name, rate, is_default) VALUES ($1, $2, $3) RETURNING `+columns,
			form.Name, form.Rate, form.IsDefault))
	})
}

func (r *repository) Update(ctx context.Context, id int64, form TaxForm) (TaxRate, error) {
	return r.save(ctx, form, func(tx pgx.Tx) (TaxRate, error) {
		return scan(tx.QueryRow(ctx, `UPDATE tax_rates SET name = $2, rate = $3, is_default = $4, updated_at = NOW()
WHERE id = $1 RETURNING `+columns, id, form.Name, form.Rate, form.IsDefault))
	})
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tax_rates WHERE id = $1`, id)
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

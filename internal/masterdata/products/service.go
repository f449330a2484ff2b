package products

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/naguara/naguara-pos/internal/inventory"
	"github.com/naguara/naguara-pos/internal/masterdata/shared"
	core "github.com/naguara/naguara-pos/internal/shared"
)

var (
	ErrNotFound          = core.NewError(core.ErrNotFound, "producto no encontrado")
	ErrDuplicateCode     = core.NewError(core.ErrConflict, "ya existe un producto con ese código")
	ErrCategoryNotFound  = core.Validation("la categoría indicada no existe")
	ErrSupplierNotFound  = core.Validation("el proveedor indicado no existe")
	ErrTaxRateNotFound   = core.Validation("la tasa de impuesto indicada no existe")
	ErrReferenceNotFound = core.Validation("referencia inexistente")
	ErrInvalidUnit       = core.Validation("unidad inválida, use kg, unidad o paquete")
	ErrNegativeAmount    = core.Validation("precio, costo y stock no pueden ser negativos")
)

// AuditPort records catalog changes.
type AuditPort interface {
	Record(ctx context.Context, log core.AuditLog) error
}

type Service struct {
	repo   Repository
	audit  AuditPort
	logger *slog.Logger
}

func NewService(repo Repository, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) (core.Paged[Product], error) {
	items, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return core.Paged[Product]{}, err
	}
	if items == nil {
		items = []Product{}
	}
	return core.NewPaged(items, filters.Page, total), nil
}

func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	if id <= 0 {
		return Product{}, shared.ErrInvalidID
	}
	return s.repo.Get(ctx, id)
}

// Create inserts the product and books its opening stock as an initial movement.
func (s *Service) Create(ctx context.Context, userID int64, form ProductForm) (Product, error) {
	p, err := validate(form)
	if err != nil {
		return Product{}, err
	}
	opening := decimal.Zero
	if form.Stock.Valid {
		opening = form.Stock.Decimal
	}

	var created Product
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if p.TaxRateID == 0 {
			id, err := tx.DefaultTaxRateID(ctx)
			if err != nil {
				return err
			}
			p.TaxRateID = id
		}
		id, err := tx.Insert(ctx, p)
		if err != nil {
			return err
		}
		if opening.IsPositive() {
			if _, err := tx.Apply(ctx, inventory.Movement{
				ProductID: id,
				Kind:      inventory.KindInitial,
				Qty:       opening,
				RefModule: "product",
				RefID:     id,
				UserID:    userID,
			}); err != nil {
				return err
			}
		}
		created, err = tx.Get(ctx, id)
		return err
	})
	if err != nil {
		return Product{}, err
	}
	s.recordAudit(ctx, userID, "product.create", created.ID, map[string]any{"code": created.Code, "stock": opening.String()})
	return created, nil
}

// Update replaces the product's attributes. A stock value different from the
// current balance is booked as an adjustment in the same transaction.
func (s *Service) Update(ctx context.Context, userID, id int64, form ProductForm) (Product, error) {
	if id <= 0 {
		return Product{}, shared.ErrInvalidID
	}
	p, err := validate(form)
	if err != nil {
		return Product{}, err
	}

	var (
		updated  Product
		adjusted bool
	)
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		levels, err := tx.LockProducts(ctx, []int64{id})
		if err != nil {
			return notFound(err)
		}
		level := levels[id]
		if p.TaxRateID == 0 {
			current, err := tx.Get(ctx, id)
			if err != nil {
				return err
			}
			p.TaxRateID = current.TaxRateID
		}
		if err := tx.Update(ctx, id, p); err != nil {
			return err
		}
		if form.Stock.Valid && !form.Stock.Decimal.Equal(level.Stock) {
			if _, err := inventory.AdjustTo(ctx, tx, level, inventory.AdjustmentInput{
				ProductID: id,
				NewStock:  form.Stock.Decimal,
				Reason:    form.Reason,
				UserID:    userID,
			}); err != nil {
				return err
			}
			adjusted = true
		}
		updated, err = tx.Get(ctx, id)
		return err
	})
	if err != nil {
		return Product{}, err
	}
	meta := map[string]any{"code": updated.Code}
	if adjusted {
		meta["stock"] = updated.Stock.String()
		meta["reason"] = form.Reason
	}
	s.recordAudit(ctx, userID, "product.update", id, meta)
	return updated, nil
}

// Delete hard-deletes products without history and deactivates the rest.
func (s *Service) Delete(ctx context.Context, userID, id int64) (DeleteResult, error) {
	if id <= 0 {
		return DeleteResult{}, shared.ErrInvalidID
	}
	result := DeleteResult{ID: id}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.LockProducts(ctx, []int64{id}); err != nil {
			return notFound(err)
		}
		history, err := tx.HasHistory(ctx, id)
		if err != nil {
			return err
		}
		if history {
			result.Deactivated = true
			result.Message = "el producto tiene historial y fue desactivado"
			return tx.Deactivate(ctx, id)
		}
		result.Deleted = true
		result.Message = "producto eliminado"
		return tx.Delete(ctx, id)
	})
	if err != nil {
		return DeleteResult{}, err
	}
	action := "product.delete"
	if result.Deactivated {
		action = "product.deactivate"
	}
	s.recordAudit(ctx, userID, action, id, nil)
	return result, nil
}

func notFound(err error) error {
	if errors.Is(err, inventory.ErrProductNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, core.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "product",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("product audit", slog.String("action", action), slog.Any("error", err))
	}
}

package suppliers

import (
	"context"
	"errors"

	"github.com/naguara/naguara-pos/internal/masterdata/shared"
	core "github.com/naguara/naguara-pos/internal/shared"
)

var (
	ErrNotFound     = core.NewError(core.ErrNotFound, "proveedor no encontrado")
	ErrDuplicateRIF = core.NewError(core.ErrConflict, "ya existe un proveedor con ese RIF")
	ErrInvalidRIF   = core.Validation("RIF inválido, use el formato J-12345678-9")
	ErrHasPurchases = core.NewError(core.ErrConflict, "el proveedor tiene compras registradas")
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) (core.Paged[Supplier], error) {
	items, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return core.Paged[Supplier]{}, err
	}
	return core.NewPaged(items, filters.Page, total), nil
}

func (s *Service) Get(ctx context.Context, id int64) (Supplier, error) {
	if id <= 0 {
		return Supplier{}, shared.ErrInvalidID
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, form SupplierForm) (Supplier, error) {
	sup, err := s.validate(form)
	if err != nil {
		return Supplier{}, err
	}
	return s.repo.Create(ctx, sup)
}

func (s *Service) Update(ctx context.Context, id int64, form SupplierForm) (Supplier, error) {
	if id <= 0 {
		return Supplier{}, shared.ErrInvalidID
	}
	sup, err := s.validate(form)
	if err != nil {
		return Supplier{}, err
	}
	return s.repo.Update(ctx, id, sup)
}

// Delete removes a supplier, falling back to deactivation when purchases
// still reference it.
func (s *Service) Delete(ctx context.Context, id int64) (DeleteResult, error) {
	if id <= 0 {
		return DeleteResult{}, shared.ErrInvalidID
	}
	err := s.repo.Delete(ctx, id)
	if errors.Is(err, ErrHasPurchases) {
		if err := s.repo.Deactivate(ctx, id); err != nil {
			return DeleteResult{}, err
		}
		return DeleteResult{ID: id, Deactivated: true}, nil
	}
	if err != nil {
		return DeleteResult{}, err
	}
	return DeleteResult{ID: id, Deleted: true}, nil
}

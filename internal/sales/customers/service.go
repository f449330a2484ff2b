package customers

import (
	"context"

	"github.com/naguara/naguara-pos/internal/masterdata/shared"
	core "github.com/naguara/naguara-pos/internal/shared"
)

var (
	ErrNotFound        = core.NewError(core.ErrNotFound, "cliente no encontrado")
	ErrDuplicateCedula = core.NewError(core.ErrConflict, "ya existe un cliente con esa cédula")
	ErrHasSales        = core.NewError(core.ErrConflict, "el cliente tiene ventas registradas y no puede eliminarse")
	ErrInvalidCedula   = core.Validation("cédula inválida, use el formato V-12345678")
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) (core.Paged[Customer], error) {
	items, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return core.Paged[Customer]{}, err
	}
	if items == nil {
		items = []Customer{}
	}
	return core.NewPaged(items, filters.Page, total), nil
}

func (s *Service) Get(ctx context.Context, id int64) (Customer, error) {
	if id <= 0 {
		return Customer{}, shared.ErrInvalidID
	}
	return s.repo.Get(ctx, id)
}

// ByCedula looks a customer up by identity document in any accepted spelling.
func (s *Service) ByCedula(ctx context.Context, raw string) (Customer, error) {
	cedula, err := NormalizeCedula(raw)
	if err != nil {
		return Customer{}, err
	}
	return s.repo.GetByCedula(ctx, cedula)
}

func (s *Service) Create(ctx context.Context, req CustomerRequest) (Customer, error) {
	c, err := normalize(req)
	if err != nil {
		return Customer{}, err
	}
	return s.repo.Create(ctx, c)
}

func (s *Service) Update(ctx context.Context, id int64, req CustomerRequest) (Customer, error) {
	if id <= 0 {
		return Customer{}, shared.ErrInvalidID
	}
	c, err := normalize(req)
	if err != nil {
		return Customer{}, err
	}
	return s.repo.Update(ctx, id, c)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	return s.repo.Delete(ctx, id)
}

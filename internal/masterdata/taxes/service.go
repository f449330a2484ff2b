package taxes

import (
	"context"

	"github.com/naguara/naguara-pos/internal/masterdata/shared"
	core "github.com/naguara/naguara-pos/internal/shared"
)

var (
	ErrNotFound      = core.NewError(core.ErrNotFound, "impuesto no encontrado")
	ErrDuplicateName = core.NewError(core.ErrConflict, "ya existe un impuesto con ese nombre")
	ErrInUse         = core.NewError(core.ErrConflict, "el impuesto está asignado a productos")
	ErrInvalidRate   = core.Validation("la tasa debe estar entre 0 y 1 (0.16 = 16%)")
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context) ([]TaxRate, error) {
	items, err := s.repo.List(ctx)
	if items == nil {
		items = []TaxRate{}
	}
	return items, err
}

func (s *Service) Get(ctx context.Context, id int64) (TaxRate, error) {
	if id <= 0 {
		return TaxRate{}, shared.ErrInvalidID
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, form TaxForm) (TaxRate, error) {
	form, err := s.validate(form)
	if err != nil {
		return TaxRate{}, err
	}
	return s.repo.Create(ctx, form)
}

func (s *Service) Update(ctx context.Context, id int64, form TaxForm) (TaxRate, error) {
	if id <= 0 {
		return TaxRate{}, shared.ErrInvalidID
	}
	form, err := s.validate(form)
	if err != nil {
		return TaxRate{}, err
	}
	return s.repo.Update(ctx, id, form)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	return s.repo.Delete(ctx, id)
}

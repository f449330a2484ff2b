package categories

import (
	"context"

	"github.com/naguara/naguara-pos/internal/masterdata/shared"
	core "github.com/naguara/naguara-pos/internal/shared"
)

var (
	ErrNotFound      = core.NewError(core.ErrNotFound, "categoría no encontrada")
	ErrDuplicateName = core.NewError(core.ErrConflict, "ya existe una categoría con ese nombre")
	ErrInUse         = core.NewError(core.ErrConflict, "la categoría tiene productos asociados")
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) (core.Paged[Category], error) {
	items, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return core.Paged[Category]{}, err
	}
	return core.NewPaged(items, filters.Page, total), nil
}

func (s *Service) Get(ctx context.Context, id int64) (Category, error) {
	if id <= 0 {
		return Category{}, shared.ErrInvalidID
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, form CategoryForm) (Category, error) {
	form, err := s.validate(form)
	if err != nil {
		return Category{}, err
	}
	return s.repo.Create(ctx, form)
}

func (s *Service) Update(ctx context.Context, id int64, form CategoryForm) (Category, error) {
	if id <= 0 {
		return Category{}, shared.ErrInvalidID
	}
	form, err := s.validate(form)
	if err != nil {
		return Category{}, err
	}
	return s.repo.Update(ctx, id, form)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	return s.repo.Delete(ctx, id)
}

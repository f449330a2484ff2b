package taxes

import (
	"github.com/shopspring/decimal"

	"github.com/naguara/naguara-pos/internal/masterdata/shared"
	core "github.com/naguara/naguara-pos/internal/shared"
)

func (s *Service) validate(f TaxForm) (TaxForm, error) {
	f.Name = core.Clean(f.Name)
	if f.Name == "" {
		return f, shared.Required("el nombre")
	}
	if f.Rate.IsNegative() || f.Rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return f, ErrInvalidRate
	}
	return f, nil
}

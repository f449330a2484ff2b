package products

import (
	"strings"

	"github.com/naguara/naguara-pos/internal/inventory"
	"github.com/naguara/naguara-pos/internal/masterdata/shared"
	core "github.com/naguara/naguara-pos/internal/shared"
)

func validate(f ProductForm) (Product, error) {
	p := Product{
		Code:       strings.ToUpper(strings.TrimSpace(f.Code)),
		Name:       core.Clean(f.Name),
		Unit:       strings.ToLower(strings.TrimSpace(f.Unit)),
		MinStock:   f.MinStock,
		Price:      f.Price,
		Cost:       f.Cost,
		TaxRateID:  f.TaxRateID,
		SupplierID: f.SupplierID,
		CategoryID: f.CategoryID,
		IsActive:   f.IsActive == nil || *f.IsActive,
	}
	if p.Code == "" {
		return Product{}, shared.Required("el código")
	}
	if p.Name == "" {
		return Product{}, shared.Required("el nombre")
	}
	if !shared.ValidUnit(p.Unit) {
		return Product{}, ErrInvalidUnit
	}
	if p.Price.IsNegative() || p.Cost.IsNegative() || p.MinStock.IsNegative() {
		return Product{}, ErrNegativeAmount
	}
	if f.Stock.Valid && f.Stock.Decimal.IsNegative() {
		return Product{}, ErrNegativeAmount
	}
	if !inventory.QuantityFits(p.MinStock) || (f.Stock.Valid && !inventory.QuantityFits(f.Stock.Decimal)) {
		return Product{}, inventory.ErrQuantityPrecision
	}
	if p.TaxRateID < 0 {
		return Product{}, ErrTaxRateNotFound
	}
	return p, nil
}

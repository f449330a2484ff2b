package products

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a product entity
type Product struct {
	ID           int64           `json:"id"`
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	Unit         string          `json:"unit"`
	Stock        decimal.Decimal `json:"stock"`
	MinStock     decimal.Decimal `json:"min_stock"`
	Price        decimal.Decimal `json:"price"`
	Cost         decimal.Decimal `json:"cost"`
	TaxRateID    int64           `json:"tax_rate_id"`
	TaxRate      decimal.Decimal `json:"tax_rate"`
	SupplierID   *int64          `json:"supplier_id"`
	CategoryID   *int64          `json:"category_id"`
	CategoryName *string         `json:"category_name,omitempty"`
	IsActive     bool            `json:"is_active"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// LowStock reports whether stock is at or below the configured minimum.
func (p Product) LowStock() bool {
	return p.Stock.LessThanOrEqual(p.MinStock)
}

// DeleteResult tells whether a product was removed or only deactivated.
type DeleteResult struct {
	ID          int64  `json:"id"`
	Deleted     bool   `json:"deleted"`
	Deactivated bool   `json:"deactivated"`
	Message     string `json:"message"`
}

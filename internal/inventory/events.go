package inventory

import "github.com/shopspring/decimal"

// LowStockAlert reports a product whose stock is at or below its minimum.
type LowStockAlert struct {
	ProductID int64           `json:"product_id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Unit      string          `json:"unit"`
	Stock     decimal.Decimal `json:"stock"`
	MinStock  decimal.Decimal `json:"min_stock"`
}

// Shortfall is how much stock is missing to reach the minimum.
func (a LowStockAlert) Shortfall() decimal.Decimal {
	return a.MinStock.Sub(a.Stock)
}

package products

import "github.com/shopspring/decimal"

// ProductForm is the create/update payload. On update, Stock is optional and
// when it differs from the current stock an adjustment with Reason is recorded.
type ProductForm struct {
	Code       string              `json:"code" validate:"required,max=40"`
	Name       string              `json:"name" validate:"required,max=160"`
	Unit       string              `json:"unit" validate:"required,oneof=kg unidad paquete"`
	Stock      decimal.NullDecimal `json:"stock"`
	MinStock   decimal.Decimal     `json:"min_stock"`
	Price      decimal.Decimal     `json:"price"`
	Cost       decimal.Decimal     `json:"cost"`
	TaxRateID  int64               `json:"tax_rate_id" validate:"gte=0"`
	SupplierID *int64              `json:"supplier_id" validate:"omitempty,gt=0"`
	CategoryID *int64              `json:"category_id" validate:"omitempty,gt=0"`
	IsActive   *bool               `json:"is_active"`
	Reason     string              `json:"reason" validate:"max=300"`
}

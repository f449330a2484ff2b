package taxes

import (
	"time"

	"github.com/shopspring/decimal"
)

// TaxRate is a VAT rate applied to tax-inclusive product prices.
type TaxRate struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Rate      decimal.Decimal `json:"rate"`
	IsDefault bool            `json:"is_default"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TaxForm is the create/update payload. Rate is a fraction, 0.16 for 16%.
type TaxForm struct {
	Name      string          `json:"name" validate:"required,max=60"`
	Rate      decimal.Decimal `json:"rate"`
	IsDefault bool            `json:"is_default"`
}

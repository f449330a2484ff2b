// Package fx resolves the bolívar exchange rate used to price sales in local currency.
package fx

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/naguara/naguara-pos/internal/shared"
)

// Rate sources.
const (
	SourceAPI      = "api"
	SourceManual   = "manual"
	SourceFallback = "fallback"
)

// Rate is one stored exchange rate row. Rows are append-only except for IsActive.
type Rate struct {
	ID        int64           `json:"id"`
	Value     decimal.Decimal `json:"value"`
	Source    string          `json:"source"`
	IsActive  bool            `json:"is_active"`
	CreatedBy *int64          `json:"created_by"`
	CreatedAt time.Time       `json:"created_at"`
}

// Quote is the rate handed to callers together with where it came from.
type Quote struct {
	Value     decimal.Decimal `json:"value"`
	Source    string          `json:"source"`
	UpdatedAt time.Time       `json:"updated_at"`
}

var (
	ErrNotFound    = shared.NewError(shared.ErrNotFound, "tasa de cambio no encontrada")
	ErrInvalidRate = shared.Validation("la tasa debe ser mayor que cero")
)

// Package reports aggregates sales for the daily summary, the sales series
// and the dashboard.
package reports

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/naguara/naguara-pos/internal/fx"
	"github.com/naguara/naguara-pos/internal/shared"
)

// Range bounds a report in instants: [From, To).
type Range struct {
	From time.Time
	To   time.Time
}

// DailySummary is the sales picture of one local day.
type DailySummary struct {
	Date        string                     `json:"date"`
	SalesCount  int                        `json:"sales_count"`
	VoidedCount int                        `json:"voided_count"`
	Subtotal    decimal.Decimal            `json:"subtotal"`
	Tax         decimal.Decimal            `json:"tax"`
	Total       decimal.Decimal            `json:"total"`
	TotalLocal  decimal.Decimal            `json:"total_local"`
	ByMethod    map[string]decimal.Decimal `json:"by_method"`
	TopProducts []ProductTotal             `json:"top_products"`
}

// ProductTotal ranks a product by revenue.
type ProductTotal struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `json:"quantity"`
	Total     decimal.Decimal `json:"total"`
}

// DayPoint is one day of the sales series.
type DayPoint struct {
	Date       string          `json:"date"`
	SalesCount int             `json:"sales_count"`
	Total      decimal.Decimal `json:"total"`
	Tax        decimal.Decimal `json:"tax"`
}

// Dashboard is the landing page summary. Sections that failed to load are
// listed in Degraded and carry zero values.
type Dashboard struct {
	Today         DailySummary `json:"today"`
	LowStockCount int          `json:"low_stock_count"`
	ProductCount  int          `json:"product_count"`
	Rate          fx.Quote     `json:"rate"`
	Degraded      []string     `json:"degraded,omitempty"`
}

const (
	topProductsLimit = 10
	maxSeriesDays    = 366
)

var ErrRangeTooLong = shared.Validation("el rango máximo del reporte es de 366 días")

// Package cashclose reconciles a cashier's drawer against the day's sales.
package cashclose

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/naguara/naguara-pos/internal/shared"
)

// CashMethod is the payment method counted in the drawer.
const CashMethod = "efectivo"

// Closure is the persisted reconciliation of one operator's day.
type Closure struct {
	ID               int64                      `json:"id"`
	Date             string                     `json:"date"`
	UserID           int64                      `json:"user_id"`
	Username         string                     `json:"username,omitempty"`
	OpeningCash      decimal.Decimal            `json:"opening_cash"`
	CountedCash      decimal.Decimal            `json:"counted_cash"`
	ExpectedCash     decimal.Decimal            `json:"expected_cash"`
	ExpectedByMethod map[string]decimal.Decimal `json:"expected_by_method"`
	SalesCount       int                        `json:"sales_count"`
	Variance         decimal.Decimal            `json:"variance"`
	Notes            string                     `json:"notes"`
	CreatedAt        time.Time                  `json:"created_at"`
}

// Totals are the completed sales of one operator in one local day.
type Totals struct {
	SalesCount int                        `json:"sales_count"`
	Total      decimal.Decimal            `json:"total"`
	ByMethod   map[string]decimal.Decimal `json:"by_method"`
}

// Cash returns the cash part of the totals.
func (t Totals) Cash() decimal.Decimal {
	return t.ByMethod[CashMethod]
}

// Summary previews a closure without persisting it.
type Summary struct {
	Date   string `json:"date"`
	UserID int64  `json:"user_id"`
	Totals
	Closed bool `json:"closed"`
}

// Verification answers whether a closure exists for a date and operator.
type Verification struct {
	Exists  bool     `json:"exists"`
	Closure *Closure `json:"closure,omitempty"`
}

// CreateInput carries the counted drawer.
type CreateInput struct {
	Date        string
	UserID      int64
	OpeningCash decimal.Decimal
	CountedCash decimal.Decimal
	Notes       string
}

// ListFilter narrows the closure listing. UserID 0 lists every operator.
type ListFilter struct {
	UserID int64
	From   time.Time
	To     time.Time
	Page   shared.PageRequest
}

var (
	ErrNotFound         = shared.NewError(shared.ErrNotFound, "cierre de caja no encontrado")
	ErrDuplicateClosure = shared.NewError(shared.ErrConflict, "ya existe un cierre de caja para esta fecha y usuario")
	ErrFutureDate       = shared.Validation("la fecha del cierre no puede ser futura")
	ErrNegativeAmount   = shared.Validation("los montos de caja no pueden ser negativos")
	ErrUserRequired     = shared.Validation("el usuario es obligatorio")
)

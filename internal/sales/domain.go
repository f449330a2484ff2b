package sales

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/naguara/naguara-pos/internal/shared"
)

// Sale statuses.
const (
	StatusCompleted = "completed"
	StatusVoided    = "voided"
)

// Sale is an invoice header with its lines and payments.
type Sale struct {
	ID               int64            `json:"id"`
	Number           string           `json:"number"`
	CustomerID       *int64           `json:"customer_id"`
	CustomerName     *string          `json:"customer_name,omitempty"`
	UserID           int64            `json:"user_id"`
	Username         string           `json:"username,omitempty"`
	PaymentMethod    string           `json:"payment_method"`
	PaymentReference string           `json:"payment_reference,omitempty"`
	PaymentBank      string           `json:"payment_bank,omitempty"`
	ReceivedAmount   *decimal.Decimal `json:"received_amount,omitempty"`
	Change           decimal.Decimal  `json:"change"`
	Subtotal         decimal.Decimal  `json:"subtotal"`
	Tax              decimal.Decimal  `json:"tax"`
	Total            decimal.Decimal  `json:"total"`
	ExchangeRate     decimal.Decimal  `json:"exchange_rate"`
	TotalLocal       decimal.Decimal  `json:"total_local"`
	Status           string           `json:"status"`
	VoidReason       *string          `json:"void_reason,omitempty"`
	VoidedBy         *int64           `json:"voided_by,omitempty"`
	VoidedAt         *time.Time       `json:"voided_at,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	Lines            []Line           `json:"lines,omitempty"`
	Payments         []Payment        `json:"payments,omitempty"`
}

// Line freezes the product name, price and tax rate at sale time.
type Line struct {
	ID          int64           `json:"id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Tax         decimal.Decimal `json:"tax"`
	Total       decimal.Decimal `json:"total"`
}

// Payment is one settled method of a sale.
type Payment struct {
	Method    string          `json:"method"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference,omitempty"`
	Bank      string          `json:"bank,omitempty"`
}

// LineInput is one requested cart line.
type LineInput struct {
	ProductID int64
	Quantity  decimal.Decimal
}

// CreateInput carries everything needed to register a sale.
type CreateInput struct {
	CustomerID     *int64
	UserID         int64
	Payment        PaymentInput
	Lines          []LineInput
	IdempotencyKey string
}

// VoidInput identifies the sale to void and why.
type VoidInput struct {
	SaleID int64
	UserID int64
	Reason string
}

// ListFilter narrows the invoice listing.
type ListFilter struct {
	From       time.Time
	To         time.Time
	Status     string
	UserID     int64
	CustomerID int64
	Page       shared.PageRequest
}

var (
	ErrNotFound         = shared.NewError(shared.ErrNotFound, "venta no encontrada")
	ErrEmptyCart        = shared.Validation("la venta debe tener al menos un producto")
	ErrAlreadyVoided    = shared.NewError(shared.ErrConflict, "la venta ya fue anulada")
	ErrInvalidState     = shared.NewError(shared.ErrConflict, "la venta no se puede anular en su estado actual")
	ErrReasonRequired   = shared.Validation("el motivo de anulación es obligatorio")
	ErrCustomerNotFound = shared.NewError(shared.ErrNotFound, "cliente no encontrado")
	ErrProductInactive  = shared.NewError(shared.ErrNotFound, "producto inactivo")
	ErrZeroTotal        = shared.Validation("el total de la venta debe ser mayor que cero")
)

package procurement

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/naguara/naguara-pos/internal/shared"
)

// Purchase lifecycle statuses.
const (
	StatusPending   = "pending"
	StatusReceived  = "received"
	StatusCancelled = "cancelled"
)

// Purchase is a supplier invoice waiting to be, or already, received into stock.
type Purchase struct {
	ID            int64           `json:"id"`
	SupplierID    int64           `json:"supplier_id"`
	SupplierName  string          `json:"supplier_name,omitempty"`
	InvoiceNumber string          `json:"invoice_number"`
	Status        string          `json:"status"`
	Notes         string          `json:"notes"`
	Total         decimal.Decimal `json:"total"`
	CreatedBy     int64           `json:"created_by"`
	ReceivedBy    *int64          `json:"received_by,omitempty"`
	ReceivedAt    *time.Time      `json:"received_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	Lines         []Line          `json:"lines,omitempty"`
}

// Line is one product of a purchase.
type Line struct {
	ID          int64           `json:"id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name,omitempty"`
	QtyOrdered  decimal.Decimal `json:"qty_ordered"`
	QtyReceived decimal.Decimal `json:"qty_received"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
}

// Amount is the ordered quantity valued at the unit cost.
func (l Line) Amount() decimal.Decimal {
	return l.QtyOrdered.Mul(l.UnitCost).Round(2)
}

// LineInput describes a requested purchase line.
type LineInput struct {
	ProductID int64
	Qty       decimal.Decimal
	UnitCost  decimal.Decimal
}

// CreateInput carries a new purchase.
type CreateInput struct {
	SupplierID    int64
	InvoiceNumber string
	Notes         string
	UserID        int64
	Lines         []LineInput
}

// ReceivedQty overrides the received quantity of one line.
type ReceivedQty struct {
	LineID int64
	Qty    decimal.Decimal
}

// ReceiveInput identifies the purchase to receive. Lines not listed are
// received in full.
type ReceiveInput struct {
	PurchaseID int64
	UserID     int64
	Lines      []ReceivedQty
}

// ListFilter narrows the purchase listing.
type ListFilter struct {
	Status     string
	SupplierID int64
	From       time.Time
	To         time.Time
	Page       shared.PageRequest
}

var (
	ErrNotFound         = shared.NewError(shared.ErrNotFound, "compra no encontrada")
	ErrSupplierNotFound = shared.NewError(shared.ErrNotFound, "proveedor no encontrado")
	ErrProductNotFound  = shared.NewError(shared.ErrNotFound, "producto no encontrado")
	ErrAlreadyReceived  = shared.NewError(shared.ErrConflict, "la compra ya fue recibida")
	ErrInvalidState     = shared.NewError(shared.ErrConflict, "la compra no admite esta operación en su estado actual")
	ErrEmptyLines       = shared.Validation("la compra debe tener al menos un producto")
	ErrSupplierRequired = shared.Validation("el proveedor es obligatorio")
	ErrInvalidQuantity  = shared.Validation("la cantidad debe ser mayor que cero")
	ErrInvalidCost      = shared.Validation("el costo unitario no puede ser negativo")
	ErrUnknownLine      = shared.Validation("la línea indicada no pertenece a la compra")
	ErrNegativeReceived = shared.Validation("la cantidad recibida no puede ser negativa")
)

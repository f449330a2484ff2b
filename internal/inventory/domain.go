package inventory

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/naguara/naguara-pos/internal/shared"
)

// MovementKind classifies a stock movement.
type MovementKind string

const (
	KindInitial      MovementKind = "initial"
	KindSale         MovementKind = "sale"
	KindVoid         MovementKind = "void"
	KindTransformOut MovementKind = "transform_out"
	KindTransformIn  MovementKind = "transform_in"
	KindPurchase     MovementKind = "purchase"
	KindAdjustment   MovementKind = "adjustment"
)

// Valid reports whether k is a known movement kind.
func (k MovementKind) Valid() bool {
	switch k {
	case KindInitial, KindSale, KindVoid, KindTransformOut, KindTransformIn, KindPurchase, KindAdjustment:
		return true
	}
	return false
}

// QuantityScale is the number of decimals stored for stock quantities.
const QuantityScale int32 = 3

// QuantityFits reports whether q is representable without rounding in the
// NUMERIC(14,3) stock columns.
func QuantityFits(q decimal.Decimal) bool {
	return q.Equal(q.Round(QuantityScale))
}

// ValidateQuantity accepts strictly positive quantities of at most three decimals.
func ValidateQuantity(q decimal.Decimal) error {
	if !q.IsPositive() {
		return ErrInvalidQuantity
	}
	if !QuantityFits(q) {
		return ErrQuantityPrecision
	}
	return nil
}

// YieldTolerance is how far transformation outputs may exceed the source quantity.
var YieldTolerance = decimal.RequireFromString("0.01")

// StockLevel is a product row as seen by a locked ledger read.
type StockLevel struct {
	ID       int64           `json:"id"`
	Code     string          `json:"code"`
	Name     string          `json:"name"`
	Unit     string          `json:"unit"`
	Stock    decimal.Decimal `json:"stock"`
	MinStock decimal.Decimal `json:"min_stock"`
	Price    decimal.Decimal `json:"price"`
	Cost     decimal.Decimal `json:"cost"`
	TaxRate  decimal.Decimal `json:"tax_rate"`
	Active   bool            `json:"active"`
}

// Movement is a signed stock delta to apply through the ledger.
type Movement struct {
	ProductID int64
	Kind      MovementKind
	Qty       decimal.Decimal
	RefModule string
	RefID     int64
	Note      string
	UserID    int64
}

// MovementRecord is a persisted stock_movements row.
type MovementRecord struct {
	ID           int64           `json:"id"`
	ProductID    int64           `json:"product_id"`
	Kind         MovementKind    `json:"kind"`
	Qty          decimal.Decimal `json:"qty"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	RefModule    string          `json:"ref_module,omitempty"`
	RefID        *int64          `json:"ref_id,omitempty"`
	Note         string          `json:"note,omitempty"`
	UserID       *int64          `json:"user_id,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// MovementFilter narrows a stock card listing.
type MovementFilter struct {
	ProductID int64
	Kind      MovementKind
	From      time.Time
	To        time.Time
	Page      shared.PageRequest
}

// Transformation converts a quantity of one product into several others.
type Transformation struct {
	ID              int64                  `json:"id"`
	UserID          int64                  `json:"user_id"`
	SourceProductID int64                  `json:"source_product_id"`
	SourceName      string                 `json:"source_name"`
	SourceQty       decimal.Decimal        `json:"source_qty"`
	Notes           string                 `json:"notes"`
	CreatedAt       time.Time              `json:"created_at"`
	Details         []TransformationDetail `json:"details"`
}

// TransformationDetail is one output of a transformation.
type TransformationDetail struct {
	ID          int64           `json:"id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
}

// TransformationInput is the request to process a transformation.
type TransformationInput struct {
	UserID          int64
	SourceProductID int64
	SourceQty       decimal.Decimal
	Outputs         []TransformationOutput
	Notes           string
}

// TransformationOutput is a requested destination quantity.
type TransformationOutput struct {
	ProductID int64
	Quantity  decimal.Decimal
}

// TransformationFilter narrows the transformation listing.
type TransformationFilter struct {
	From time.Time
	To   time.Time
	Page shared.PageRequest
}

// AdjustmentInput sets a product's stock to an absolute value.
type AdjustmentInput struct {
	ProductID int64
	NewStock  decimal.Decimal
	Reason    string
	UserID    int64
}

var (
	// ErrProductNotFound indicates an unknown or inactive product.
	ErrProductNotFound = shared.NewError(shared.ErrNotFound, "producto no encontrado")
	// ErrInsufficientStock is returned when a request needs more stock than available.
	ErrInsufficientStock = shared.NewError(shared.ErrBusinessRule, "stock insuficiente")
	// ErrNegativeStock is returned when a movement would leave stock below zero.
	ErrNegativeStock = shared.NewError(shared.ErrBusinessRule, "el stock no puede quedar negativo")
	// ErrInvalidQuantity indicates a non-positive quantity.
	ErrInvalidQuantity = shared.Validation("la cantidad debe ser mayor que cero")
	// ErrQuantityPrecision indicates more decimals than the stock columns hold.
	ErrQuantityPrecision = shared.Validation("la cantidad admite como máximo 3 decimales")
	// ErrEmptyOutputs indicates a transformation without destinations.
	ErrEmptyOutputs = shared.Validation("la transformación requiere al menos un producto de salida")
	// ErrSourceAsOutput indicates a destination equal to the source product.
	ErrSourceAsOutput = shared.Validation("el producto de origen no puede ser también de salida")
	// ErrYieldExceedsInput indicates outputs larger than the source quantity.
	ErrYieldExceedsInput = shared.NewError(shared.ErrBusinessRule, "la suma de salidas excede la cantidad de origen")
	// ErrTransformationNotFound indicates an unknown transformation.
	ErrTransformationNotFound = shared.NewError(shared.ErrNotFound, "transformación no encontrada")
	// ErrReasonRequired indicates an adjustment without a reason.
	ErrReasonRequired = shared.Validation("el motivo del ajuste es obligatorio")
)

// StockError carries the detail of a rejected stock check. It matches
// ErrInsufficientStock or ErrNegativeStock with errors.Is.
type StockError struct {
	ProductID int64
	Name      string
	Available decimal.Decimal
	Requested decimal.Decimal
	Kind      error
}

func (e *StockError) Error() string {
	return fmt.Sprintf("stock insuficiente para %s: disponible %s, solicitado %s",
		e.Name, e.Available.StringFixed(3), e.Requested.StringFixed(3))
}

func (e *StockError) Unwrap() error {
	if e.Kind == nil {
		return ErrInsufficientStock
	}
	return e.Kind
}

// CheckAvailable returns a StockError when level cannot cover qty.
func CheckAvailable(level StockLevel, qty decimal.Decimal) error {
	if qty.GreaterThan(level.Stock) {
		return &StockError{ProductID: level.ID, Name: level.Name, Available: level.Stock, Requested: qty, Kind: ErrInsufficientStock}
	}
	return nil
}

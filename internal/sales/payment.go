package sales

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/naguara/naguara-pos/internal/shared"
)

// Payment methods. Prices and payment amounts are in the reference
// currency. Efectivo is tendered in bolívares and divisas in the reference
// currency; their received and change amounts are in the tendered currency.
const (
	MethodCash        = "efectivo"
	MethodCard        = "punto"
	MethodMobile      = "pago_movil"
	MethodTransfer    = "transferencia"
	MethodForeignCash = "divisas"
	MethodMixed       = "mixto"
)

// PaymentMethods lists the single methods, in reporting order.
func PaymentMethods() []string {
	return []string{MethodCash, MethodCard, MethodMobile, MethodTransfer, MethodForeignCash}
}

var (
	ErrInvalidMethod       = shared.Validation("método de pago inválido")
	ErrReferenceRequired   = shared.Validation("la referencia del pago es obligatoria")
	ErrBankRequired        = shared.Validation("el banco del pago es obligatorio")
	ErrReceivedRequired    = shared.Validation("el monto recibido es obligatorio")
	ErrInsufficientPayment = shared.NewError(shared.ErrBusinessRule, "el monto recibido es menor que el total")
	ErrSplitsRequired      = shared.Validation("el pago mixto requiere al menos dos pagos")
	ErrInvalidSplit        = shared.Validation("cada pago del pago mixto debe tener un método simple y un monto mayor que cero")
	ErrSplitMismatch       = shared.NewError(shared.ErrBusinessRule, "la suma de los pagos no coincide con el total")
)

// PaymentInput is the tagged payment variant chosen at checkout.
type PaymentInput struct {
	Method    string
	Reference string
	Bank      string
	Received  *decimal.Decimal
	Splits    []SplitInput
}

// SplitInput is one part of a mixed payment.
type SplitInput struct {
	Method    string
	Amount    decimal.Decimal
	Reference string
	Bank      string
}

// settlement is the validated payment ready to be stored.
type settlement struct {
	Method    string
	Reference string
	Bank      string
	Received  *decimal.Decimal
	Change    decimal.Decimal
	Payments  []Payment
}

// normalize trims fields and checks everything that does not depend on the total.
func (p PaymentInput) normalize() (PaymentInput, error) {
	p.Method = strings.ToLower(strings.TrimSpace(p.Method))
	p.Reference = strings.TrimSpace(p.Reference)
	p.Bank = strings.TrimSpace(p.Bank)
	if p.Method == MethodMixed {
		if len(p.Splits) < 2 {
			return p, ErrSplitsRequired
		}
		splits := make([]SplitInput, len(p.Splits))
		for i, s := range p.Splits {
			s.Method = strings.ToLower(strings.TrimSpace(s.Method))
			s.Reference = strings.TrimSpace(s.Reference)
			s.Bank = strings.TrimSpace(s.Bank)
			if !isSingleMethod(s.Method) || !s.Amount.IsPositive() {
				return p, ErrInvalidSplit
			}
			if err := checkDetails(s.Method, s.Reference, s.Bank); err != nil {
				return p, err
			}
			splits[i] = s
		}
		p.Splits = splits
		return p, nil
	}
	if !isSingleMethod(p.Method) {
		return p, ErrInvalidMethod
	}
	if len(p.Splits) > 0 {
		return p, ErrInvalidMethod
	}
	if isCash(p.Method) && p.Received == nil {
		return p, ErrReceivedRequired
	}
	return p, checkDetails(p.Method, p.Reference, p.Bank)
}

// settle applies the total-dependent rules. totalLocal is total converted at
// the sale's exchange rate and is what efectivo must cover.
func (p PaymentInput) settle(total, totalLocal decimal.Decimal) (settlement, error) {
	if p.Method == MethodMixed {
		sum := decimal.Zero
		payments := make([]Payment, 0, len(p.Splits))
		for _, s := range p.Splits {
			amount := s.Amount.Round(2)
			sum = sum.Add(amount)
			payments = append(payments, Payment{Method: s.Method, Amount: amount, Reference: s.Reference, Bank: s.Bank})
		}
		if !sum.Equal(total) {
			return settlement{}, ErrSplitMismatch
		}
		return settlement{Method: MethodMixed, Payments: payments}, nil
	}

	st := settlement{
		Method:    p.Method,
		Reference: p.Reference,
		Bank:      p.Bank,
		Payments:  []Payment{{Method: p.Method, Amount: total, Reference: p.Reference, Bank: p.Bank}},
	}
	if isCash(p.Method) {
		due := total
		if p.Method == MethodCash {
			due = totalLocal
		}
		received := p.Received.Round(2)
		if received.LessThan(due) {
			return settlement{}, ErrInsufficientPayment
		}
		st.Received = &received
		st.Change = received.Sub(due)
	}
	return st, nil
}

func checkDetails(method, reference, bank string) error {
	switch method {
	case MethodCard:
		if reference == "" {
			return ErrReferenceRequired
		}
	case MethodMobile, MethodTransfer:
		if reference == "" {
			return ErrReferenceRequired
		}
		if bank == "" {
			return ErrBankRequired
		}
	}
	return nil
}

func isCash(method string) bool {
	return method == MethodCash || method == MethodForeignCash
}

func isSingleMethod(method string) bool {
	for _, m := range PaymentMethods() {
		if m == method {
			return true
		}
	}
	return false
}

package sales

import "github.com/shopspring/decimal"

// LineAmounts splits a tax-inclusive line into subtotal and tax:
// total = round2(price × qty), subtotal = round2(total / (1 + rate)), tax = total − subtotal.
func LineAmounts(qty, price, rate decimal.Decimal) (subtotal, tax, total decimal.Decimal) {
	total = price.Mul(qty).Round(2)
	subtotal = total.Div(decimal.NewFromInt(1).Add(rate)).Round(2)
	tax = total.Sub(subtotal)
	return subtotal, tax, total
}

// sumLines totals the header from the lines.
func sumLines(lines []Line) (subtotal, tax, total decimal.Decimal) {
	for _, l := range lines {
		subtotal = subtotal.Add(l.Subtotal)
		tax = tax.Add(l.Tax)
		total = total.Add(l.Total)
	}
	return subtotal, tax, total
}

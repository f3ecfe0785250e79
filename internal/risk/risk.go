package risk

import "github.com/shopspring/decimal"

// Limits caps a single swap's input size in display units. A zero cap disables the check.
type Limits struct {
	MaxAmountIn decimal.Decimal
}

func (l Limits) Allow(amount decimal.Decimal) bool {
	if !l.MaxAmountIn.IsPositive() {
		return true
	}
	return amount.LessThanOrEqual(l.MaxAmountIn)
}

package domain

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// ComputeTotal returns quantity x rate x (1 + taxRate/100), rounded half
// away from zero to two places.
func ComputeTotal(quantity int, rate, taxRate decimal.Decimal) decimal.Decimal {
	multiplier := decimal.NewFromInt(1).Add(taxRate.Div(hundred))
	return decimal.NewFromInt(int64(quantity)).Mul(rate).Mul(multiplier).Round(2)
}

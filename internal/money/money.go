// Package money formats decimal cash amounts for display.
package money

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// USD formats d as US dollars, rounded to cents, e.g. "$1,234.50".
func USD(d decimal.Decimal) string {
	cur := money.GetCurrency(money.USD)
	minor := d.Shift(int32(cur.Fraction)).Round(0)
	if minor.IsNegative() {
		return "-" + cur.Formatter().Format(minor.Abs().IntPart())
	}
	return cur.Formatter().Format(minor.IntPart())
}

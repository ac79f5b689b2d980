package models

import "github.com/shopspring/decimal"

// Holding is the net number of shares an account owns in one symbol.
type Holding struct {
	Symbol string `json:"symbol"`
	Shares int64  `json:"shares"`
}

// Position is a holding valued at the current market price.
type Position struct {
	Symbol string          `json:"symbol"`
	Name   string          `json:"name"`
	Shares int64           `json:"shares"`
	Price  decimal.Decimal `json:"price"`
	Total  decimal.Decimal `json:"total"`
}

// PriceAnomaly records a holding that could not be priced.
type PriceAnomaly struct {
	Symbol string `json:"symbol"`
	Shares int64  `json:"shares"`
	Reason string `json:"reason"`
}

// Portfolio is the valuation of an account at a point in time.
// Value excludes every holding listed in Unpriced.
type Portfolio struct {
	UserID    string          `json:"userId"`
	Username  string          `json:"username"`
	Positions []Position      `json:"positions"`
	Unpriced  []PriceAnomaly  `json:"unpriced,omitempty"`
	Cash      decimal.Decimal `json:"cash"`
	Value     decimal.Decimal `json:"value"`
}

// Degraded reports whether some holdings are missing from Value.
func (p Portfolio) Degraded() bool {
	return len(p.Unpriced) > 0
}

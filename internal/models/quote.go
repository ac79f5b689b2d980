package models

import "github.com/shopspring/decimal"

// Quote is the current market price of a symbol.
type Quote struct {
	Symbol string          `json:"symbol"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
}

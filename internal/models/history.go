package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// HistoryEntry is one immutable row of the trade ledger.
type HistoryEntry struct {
	ID         int64           `json:"id"`
	UserID     string          `json:"userId"`
	Symbol     string          `json:"symbol"`
	Shares     int64           `json:"shares"`     // positive = buy, negative = sell
	ShareValue decimal.Decimal `json:"shareValue"` // total value of the trade, never negative
	Date       time.Time       `json:"date"`
}

// Kind returns "buy" or "sell".
func (e HistoryEntry) Kind() string {
	if e.Shares < 0 {
		return "sell"
	}
	return "buy"
}

// AbsShares returns the number of shares traded.
func (e HistoryEntry) AbsShares() int64 {
	if e.Shares < 0 {
		return -e.Shares
	}
	return e.Shares
}

// PricePerShare is the execution price of the trade.
func (e HistoryEntry) PricePerShare() decimal.Decimal {
	n := e.AbsShares()
	if n == 0 {
		return decimal.Zero
	}
	return e.ShareValue.Div(decimal.NewFromInt(n))
}

// CashDelta is the signed effect of the trade on the account's cash.
func (e HistoryEntry) CashDelta() decimal.Decimal {
	if e.Shares < 0 {
		return e.ShareValue
	}
	return e.ShareValue.Neg()
}

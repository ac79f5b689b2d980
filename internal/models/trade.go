package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeEvent is published after a trade is committed.
type TradeEvent struct {
	EntryID   int64           `json:"entryId"`
	UserID    string          `json:"userId"`
	Kind      string          `json:"kind"` // "buy" or "sell"
	Symbol    string          `json:"symbol"`
	Shares    int64           `json:"shares"`
	Price     decimal.Decimal `json:"price"`
	Total     decimal.Decimal `json:"total"`
	CashAfter decimal.Decimal `json:"cashAfter"`
	At        time.Time       `json:"at"`
}

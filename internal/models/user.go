package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents a trading account.
type User struct {
	ID           string          `json:"id"`
	Username     string          `json:"username"`
	PasswordHash string          `json:"-"` // Never expose this to the client
	Cash         decimal.Decimal `json:"cash"`
	CreatedAt    time.Time       `json:"createdAt"`
}

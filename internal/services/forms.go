package services

import (
	"strconv"
	"strings"
)

// ParseTradeForm validates the symbol and shares fields of a buy or sell form.
func ParseTradeForm(symbol, shares string) (string, int64, error) {
	symbol = strings.TrimSpace(symbol)
	shares = strings.TrimSpace(shares)
	if symbol == "" {
		return "", 0, missing("symbol")
	}
	if shares == "" {
		return "", 0, missing("shares")
	}
	n, err := strconv.ParseInt(shares, 10, 64)
	if err != nil || n <= 0 {
		return "", 0, ErrInvalidShares
	}
	return symbol, n, nil
}

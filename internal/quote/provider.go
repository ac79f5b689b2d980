// Package quote looks up current stock prices.
package quote

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/isdelr/papertrade-be/internal/models"
	"github.com/shopspring/decimal"
)

var (
	// ErrSymbolNotFound is returned for symbols the provider does not know.
	ErrSymbolNotFound = errors.New("symbol not found")
	// ErrUnavailable wraps transport failures, timeouts and provider outages.
	ErrUnavailable = errors.New("quote service unavailable")
)

// Provider returns the current quote for a ticker symbol.
type Provider interface {
	Lookup(ctx context.Context, symbol string) (models.Quote, error)
}

// NormalizeSymbol trims and upper-cases a ticker.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func validSymbol(symbol string) bool {
	if symbol == "" || len(symbol) > 16 {
		return false
	}
	for _, r := range symbol {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
		default:
			return false
		}
	}
	return true
}

// New builds the provider named by kind, "http" or "static".
func New(kind string, opts HTTPOptions, prices map[string]decimal.Decimal) (Provider, error) {
	switch kind {
	case "http":
		if opts.URL == "" || opts.PricePath == "" {
			return nil, errors.New("http quote provider needs a URL and a price path")
		}
		return NewHTTPProvider(opts), nil
	case "static":
		return NewStaticProvider(prices), nil
	default:
		return nil, fmt.Errorf("unknown quote provider %q", kind)
	}
}

package quote

import (
	"context"
	"fmt"
	"sync"

	"github.com/isdelr/papertrade-be/internal/models"
	"github.com/shopspring/decimal"
)

// StaticProvider serves quotes from a fixed in-memory table.
type StaticProvider struct {
	mu       sync.RWMutex
	quotes   map[string]models.Quote
	failures map[string]error
}

// NewStaticProvider creates a provider pricing each symbol at the given value.
func NewStaticProvider(prices map[string]decimal.Decimal) *StaticProvider {
	p := &StaticProvider{
		quotes:   make(map[string]models.Quote),
		failures: make(map[string]error),
	}
	for sym, price := range prices {
		p.SetPrice(sym, price)
	}
	return p
}

// SetPrice sets or replaces the price of symbol and clears any failure.
func (p *StaticProvider) SetPrice(symbol string, price decimal.Decimal) {
	symbol = NormalizeSymbol(symbol)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.quotes[symbol] = models.Quote{Symbol: symbol, Name: symbol, Price: price}
	delete(p.failures, symbol)
}

// SetFailure makes lookups of symbol fail with err until the next SetPrice.
func (p *StaticProvider) SetFailure(symbol string, err error) {
	symbol = NormalizeSymbol(symbol)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures[symbol] = err
}

// Lookup implements Provider.
func (p *StaticProvider) Lookup(ctx context.Context, symbol string) (models.Quote, error) {
	if err := ctx.Err(); err != nil {
		return models.Quote{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	symbol = NormalizeSymbol(symbol)

	p.mu.RLock()
	defer p.mu.RUnlock()
	if err, ok := p.failures[symbol]; ok {
		return models.Quote{}, err
	}
	q, ok := p.quotes[symbol]
	if !ok {
		return models.Quote{}, fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
	}
	return q, nil
}

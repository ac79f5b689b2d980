package quote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/isdelr/papertrade-be/internal/models"
	"github.com/shopspring/decimal"
)

// HTTPOptions configures an HTTPProvider.
type HTTPOptions struct {
	// URL is a template; {symbol} and {token} are substituted per request.
	URL     string
	Token   string
	Timeout time.Duration

	// JSONPath expressions locating fields in the response payload.
	PricePath  string
	NamePath   string // optional
	SymbolPath string // optional

	Client *http.Client // optional, for tests
}

// HTTPProvider fetches quotes from a JSON web API.
type HTTPProvider struct {
	opts   HTTPOptions
	client *http.Client
}

// NewHTTPProvider creates an HTTPProvider.
func NewHTTPProvider(opts HTTPOptions) *HTTPProvider {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &HTTPProvider{opts: opts, client: client}
}

// Lookup implements Provider.
func (p *HTTPProvider) Lookup(ctx context.Context, symbol string) (models.Quote, error) {
	symbol = NormalizeSymbol(symbol)
	if !validSymbol(symbol) {
		return models.Quote{}, fmt.Errorf("%w: %q", ErrSymbolNotFound, symbol)
	}

	ctx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	addr := strings.NewReplacer(
		"{symbol}", url.PathEscape(symbol),
		"{token}", url.QueryEscape(p.opts.Token),
	).Replace(p.opts.URL)

	var payload any
	if err := p.getJSON(ctx, addr, &payload); err != nil {
		return models.Quote{}, err
	}

	price, err := p.price(payload)
	if err != nil {
		return models.Quote{}, fmt.Errorf("%w: %s: %v", ErrSymbolNotFound, symbol, err)
	}

	q := models.Quote{Symbol: symbol, Name: symbol, Price: price}
	if s, ok := p.text(p.opts.SymbolPath, payload); ok {
		q.Symbol = NormalizeSymbol(s)
	}
	if s, ok := p.text(p.opts.NamePath, payload); ok {
		q.Name = s
	}
	return q, nil
}

// getJSON performs an HTTP GET request and decodes the JSON response, keeping numbers exact.
func (p *HTTPProvider) getJSON(ctx context.Context, addr string, data any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrSymbolNotFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: GET %s%s: %s", ErrUnavailable, resp.Request.URL.Host, resp.Request.URL.Path, resp.Status)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(resp.Body, 1<<20)); err != nil {
		return fmt.Errorf("%w: reading body: %v", ErrUnavailable, err)
	}
	dec := json.NewDecoder(&buf)
	dec.UseNumber()
	if err := dec.Decode(data); err != nil {
		return fmt.Errorf("%w: decoding body: %v", ErrUnavailable, err)
	}
	return nil
}

func (p *HTTPProvider) price(payload any) (decimal.Decimal, error) {
	val, err := get(p.opts.PricePath, payload)
	if err != nil {
		return decimal.Zero, err
	}
	var price decimal.Decimal
	switch v := val.(type) {
	case json.Number:
		price, err = decimal.NewFromString(v.String())
	case string:
		price, err = decimal.NewFromString(strings.TrimSpace(v))
	case float64:
		price = decimal.NewFromFloat(v)
	default:
		err = fmt.Errorf("price is %T, not a number", val)
	}
	if err != nil {
		return decimal.Zero, err
	}
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("non-positive price %s", price)
	}
	return price, nil
}

func (p *HTTPProvider) text(path string, payload any) (string, bool) {
	if path == "" {
		return "", false
	}
	val, err := get(path, payload)
	if err != nil {
		return "", false
	}
	s, ok := val.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

func get(path string, payload any) (any, error) {
	val, err := jsonpath.Get(path, payload)
	if err != nil {
		return nil, err
	}
	// jsonpath may answer a list of one; keep the first one if any.
	if list, ok := val.([]any); ok {
		if len(list) == 0 {
			return nil, fmt.Errorf("no value at %s", path)
		}
		val = list[0]
	}
	if val == nil {
		return nil, fmt.Errorf("null at %s", path)
	}
	return val, nil
}

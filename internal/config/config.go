package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds the application configuration.
type Config struct {
	ServerPort     int
	AppEnv         string
	LogLevel       string
	AllowedOrigins []string

	DatabaseDriver string // "sqlite" or "postgres"
	DatabaseURL    string

	JWTSecret        string
	SessionTTL       time.Duration
	SessionPurgeCron string

	StartingCash decimal.Decimal

	QuoteProvider   string // "http" or "static"
	QuoteAPIURL     string // may contain {symbol} and {token}
	QuoteAPIToken   string
	QuoteTimeout    time.Duration
	QuotePricePath  string
	QuoteNamePath   string
	QuoteSymbolPath string
	StaticQuotes    map[string]decimal.Decimal

	KafkaBrokers []string
	KafkaTopic   string
}

// IsProduction reports whether the app runs with APP_ENV=production.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Load loads configuration from an optional .env file and environment
// variables, falling back to defaults.
func Load() (*Config, error) {
	// A missing .env is the normal case outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading .env: %w", err)
	}

	port, err := strconv.Atoi(getEnv("PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	sessionTTL, err := time.ParseDuration(getEnv("SESSION_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
	}

	quoteTimeout, err := time.ParseDuration(getEnv("QUOTE_TIMEOUT", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid QUOTE_TIMEOUT: %w", err)
	}

	startingCash, err := decimal.NewFromString(getEnv("STARTING_CASH", "10000.00"))
	if err != nil {
		return nil, fmt.Errorf("invalid STARTING_CASH: %w", err)
	}
	if startingCash.IsNegative() {
		return nil, fmt.Errorf("invalid STARTING_CASH: must not be negative")
	}

	staticQuotes, err := ParseStaticQuotes(getEnv("STATIC_QUOTES", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid STATIC_QUOTES: %w", err)
	}

	cfg := &Config{
		ServerPort:     port,
		AppEnv:         getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),

		DatabaseDriver: getEnv("DATABASE_DRIVER", "sqlite"),
		DatabaseURL:    getEnv("DATABASE_URL", "./papertrade.db"),

		JWTSecret:        getEnv("JWT_SECRET", ""),
		SessionTTL:       sessionTTL,
		SessionPurgeCron: getEnv("SESSION_PURGE_CRON", "@every 15m"),

		StartingCash: startingCash,

		QuoteProvider:   getEnv("QUOTE_PROVIDER", "http"),
		QuoteAPIURL:     getEnv("QUOTE_API_URL", "https://api.iex.cloud/v1/data/core/quote/{symbol}?token={token}"),
		QuoteAPIToken:   getEnv("QUOTE_API_TOKEN", ""),
		QuoteTimeout:    quoteTimeout,
		QuotePricePath:  getEnv("QUOTE_PRICE_PATH", "$[0].latestPrice"),
		QuoteNamePath:   getEnv("QUOTE_NAME_PATH", "$[0].companyName"),
		QuoteSymbolPath: getEnv("QUOTE_SYMBOL_PATH", "$[0].symbol"),
		StaticQuotes:    staticQuotes,

		KafkaBrokers: splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "trades"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("invalid DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	switch c.QuoteProvider {
	case "http", "static":
	default:
		return fmt.Errorf("invalid QUOTE_PROVIDER %q", c.QuoteProvider)
	}
	if c.JWTSecret == "" {
		if c.IsProduction() {
			return errors.New("JWT_SECRET is required in production")
		}
		c.JWTSecret = "development-only-secret"
	}
	return nil
}

// ParseStaticQuotes parses a "SYM=price,SYM=price" list.
func ParseStaticQuotes(s string) (map[string]decimal.Decimal, error) {
	quotes := make(map[string]decimal.Decimal)
	for _, pair := range splitList(s) {
		sym, price, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("expected SYMBOL=price, got %q", pair)
		}
		p, err := decimal.NewFromString(strings.TrimSpace(price))
		if err != nil {
			return nil, fmt.Errorf("price for %s: %w", sym, err)
		}
		quotes[strings.ToUpper(strings.TrimSpace(sym))] = p
	}
	return quotes, nil
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

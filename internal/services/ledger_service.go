package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/isdelr/papertrade-be/internal/database"
	"github.com/isdelr/papertrade-be/internal/logger"
	"github.com/isdelr/papertrade-be/internal/models"
	"github.com/isdelr/papertrade-be/internal/quote"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// TradePublisher receives every committed trade.
type TradePublisher interface {
	PublishTrade(ctx context.Context, ev models.TradeEvent) error
}

// LedgerServiceProvider defines the interface for the trading ledger.
type LedgerServiceProvider interface {
	ComputeHoldings(ctx context.Context, userID string) ([]models.Holding, error)
	ComputePortfolio(ctx context.Context, userID string) (models.Portfolio, error)
	ExecuteBuy(ctx context.Context, userID, symbol string, shares int64) (models.HistoryEntry, error)
	ExecuteSell(ctx context.Context, userID, symbol string, shares int64) (models.HistoryEntry, error)
	History(ctx context.Context, userID string) ([]models.HistoryEntry, error)
	OwnedSymbols(ctx context.Context, userID string) ([]string, error)
	Quote(ctx context.Context, symbol string) (models.Quote, error)
}

// LedgerService derives holdings and cash from the append-only history
// table and executes trades against it.
//
// Every trade updates users.cash and appends to history in one database
// transaction; the history table is never updated or deleted from.
type LedgerService struct {
	db         *database.DB
	quotes     quote.Provider
	events     EventServiceProvider
	publishers []TradePublisher
	now        func() time.Time
}

// NewLedgerService creates a new LedgerService.
func NewLedgerService(db *database.DB, quotes quote.Provider, events EventServiceProvider, publishers ...TradePublisher) *LedgerService {
	return &LedgerService{
		db:         db,
		quotes:     quotes,
		events:     events,
		publishers: publishers,
		now:        time.Now,
	}
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Quote looks up the current price of symbol.
func (s *LedgerService) Quote(ctx context.Context, symbol string) (models.Quote, error) {
	symbol = quote.NormalizeSymbol(symbol)
	if symbol == "" {
		return models.Quote{}, missing("symbol")
	}
	return s.quotes.Lookup(ctx, symbol)
}

// ComputeHoldings returns the account's non-zero net positions, ordered by symbol.
func (s *LedgerService) ComputeHoldings(ctx context.Context, userID string) ([]models.Holding, error) {
	rows, err := s.db.QueryContext(ctx, s.db.Rebind(`
		SELECT symbol, SUM(shares) FROM history
		WHERE user_id = ?
		GROUP BY symbol
		HAVING SUM(shares) <> 0
		ORDER BY symbol`), userID)
	if err != nil {
		return nil, storeErr("query holdings", err)
	}
	defer rows.Close()

	var holdings []models.Holding
	for rows.Next() {
		var h models.Holding
		if err := rows.Scan(&h.Symbol, &h.Shares); err != nil {
			return nil, storeErr("scan holding", err)
		}
		holdings = append(holdings, h)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate holdings", err)
	}
	return holdings, nil
}

// OwnedSymbols lists the symbols the account can sell.
func (s *LedgerService) OwnedSymbols(ctx context.Context, userID string) ([]string, error) {
	holdings, err := s.ComputeHoldings(ctx, userID)
	if err != nil {
		return nil, err
	}
	var symbols []string
	for _, h := range holdings {
		if h.Shares > 0 {
			symbols = append(symbols, h.Symbol)
		}
	}
	return symbols, nil
}

// ComputePortfolio values every positive holding at its current price.
// Holdings that cannot be priced are left out of Value and listed in
// Unpriced instead.
func (s *LedgerService) ComputePortfolio(ctx context.Context, userID string) (models.Portfolio, error) {
	var p models.Portfolio
	err := s.db.QueryRowContext(ctx, s.db.Rebind("SELECT id, username, cash FROM users WHERE id = ?"), userID).
		Scan(&p.UserID, &p.Username, &p.Cash)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Portfolio{}, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return models.Portfolio{}, storeErr("get cash", err)
	}

	holdings, err := s.ComputeHoldings(ctx, userID)
	if err != nil {
		return models.Portfolio{}, err
	}

	p.Value = p.Cash
	for _, h := range holdings {
		if h.Shares <= 0 {
			continue
		}
		q, err := s.quotes.Lookup(ctx, h.Symbol)
		if err != nil {
			l := logger.FromContext(ctx)
			l.Warn().Err(err).Str("user_id", userID).Str("symbol", h.Symbol).Int64("shares", h.Shares).Msg("Holding left unpriced")
			p.Unpriced = append(p.Unpriced, models.PriceAnomaly{Symbol: h.Symbol, Shares: h.Shares, Reason: err.Error()})
			continue
		}
		total := q.Price.Mul(decimal.NewFromInt(h.Shares))
		p.Positions = append(p.Positions, models.Position{
			Symbol: h.Symbol,
			Name:   q.Name,
			Shares: h.Shares,
			Price:  q.Price,
			Total:  total,
		})
		p.Value = p.Value.Add(total)
	}
	return p, nil
}

// ExecuteBuy buys shares of symbol at the current price. The purchase is
// refused unless its cost is strictly below the available cash.
func (s *LedgerService) ExecuteBuy(ctx context.Context, userID, symbol string, shares int64) (models.HistoryEntry, error) {
	if shares <= 0 {
		return models.HistoryEntry{}, ErrInvalidShares
	}
	q, err := s.Quote(ctx, symbol)
	if err != nil {
		return models.HistoryEntry{}, err
	}
	symbol = quote.NormalizeSymbol(q.Symbol)
	cost := q.Price.Mul(decimal.NewFromInt(shares))

	var (
		entry     models.HistoryEntry
		cashAfter decimal.Decimal
	)
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		cash, err := s.lockCash(ctx, tx, userID)
		if err != nil {
			return err
		}
		if cost.GreaterThanOrEqual(cash) {
			return fmt.Errorf("%w: %s costs %s, cash is %s", ErrInsufficientFunds, symbol, cost.StringFixed(2), cash.StringFixed(2))
		}
		cashAfter = cash.Sub(cost)
		if err := s.setCash(ctx, tx, userID, cashAfter); err != nil {
			return err
		}
		entry, err = s.appendEntry(ctx, tx, userID, symbol, shares, cost)
		return err
	})
	if err != nil {
		return models.HistoryEntry{}, err
	}

	s.afterTrade(ctx, entry, q.Price, cashAfter)
	return entry, nil
}

// ExecuteSell sells shares of symbol at the current price.
func (s *LedgerService) ExecuteSell(ctx context.Context, userID, symbol string, shares int64) (models.HistoryEntry, error) {
	if shares <= 0 {
		return models.HistoryEntry{}, ErrInvalidShares
	}
	symbol = quote.NormalizeSymbol(symbol)
	if symbol == "" {
		return models.HistoryEntry{}, missing("symbol")
	}

	// Checked before the lookup so a failing provider never hides it;
	// checked again under the transaction.
	held, err := s.holding(ctx, s.db, userID, symbol)
	if err != nil {
		return models.HistoryEntry{}, err
	}
	if shares > held {
		return models.HistoryEntry{}, fmt.Errorf("%w: selling %d %s, holding %d", ErrInsufficientShares, shares, symbol, held)
	}

	q, err := s.quotes.Lookup(ctx, symbol)
	if err != nil {
		return models.HistoryEntry{}, err
	}
	proceeds := q.Price.Mul(decimal.NewFromInt(shares))

	var (
		entry     models.HistoryEntry
		cashAfter decimal.Decimal
	)
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		// Locking the user row first serialises trades of one account.
		cash, err := s.lockCash(ctx, tx, userID)
		if err != nil {
			return err
		}
		held, err := s.holding(ctx, tx, userID, symbol)
		if err != nil {
			return err
		}
		if shares > held {
			return fmt.Errorf("%w: selling %d %s, holding %d", ErrInsufficientShares, shares, symbol, held)
		}
		cashAfter = cash.Add(proceeds)
		if err := s.setCash(ctx, tx, userID, cashAfter); err != nil {
			return err
		}
		entry, err = s.appendEntry(ctx, tx, userID, symbol, -shares, proceeds)
		return err
	})
	if err != nil {
		return models.HistoryEntry{}, err
	}

	s.afterTrade(ctx, entry, q.Price, cashAfter)
	return entry, nil
}

// History returns every ledger entry of the account in the order written.
func (s *LedgerService) History(ctx context.Context, userID string) ([]models.HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, s.db.Rebind(`
		SELECT id, user_id, symbol, shares, share_value, date FROM history
		WHERE user_id = ?
		ORDER BY id`), userID)
	if err != nil {
		return nil, storeErr("query history", err)
	}
	defer rows.Close()

	var entries []models.HistoryEntry
	for rows.Next() {
		var e models.HistoryEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Symbol, &e.Shares, &e.ShareValue, &e.Date); err != nil {
			return nil, storeErr("scan history", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate history", err)
	}
	return entries, nil
}

// inTx runs fn in a transaction, rolling back on any error.
func (s *LedgerService) inTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				log.Error().Err(rbErr).Msg("Rollback failed")
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return storeErr("commit", err)
	}
	return nil
}

func (s *LedgerService) lockCash(ctx context.Context, tx *sql.Tx, userID string) (decimal.Decimal, error) {
	var cash decimal.Decimal
	err := tx.QueryRowContext(ctx, s.db.Rebind("SELECT cash FROM users WHERE id = ?"+s.db.ForUpdate()), userID).Scan(&cash)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return decimal.Zero, storeErr("read cash", err)
	}
	return cash, nil
}

func (s *LedgerService) setCash(ctx context.Context, tx *sql.Tx, userID string, cash decimal.Decimal) error {
	if cash.IsNegative() {
		return fmt.Errorf("%w: cash would become %s", ErrInsufficientFunds, cash)
	}
	res, err := tx.ExecContext(ctx, s.db.Rebind("UPDATE users SET cash = ? WHERE id = ?"), cash, userID)
	if err != nil {
		return storeErr("update cash", err)
	}
	if n, err := res.RowsAffected(); err != nil || n != 1 {
		return storeErr("update cash", fmt.Errorf("%d rows affected: %v", n, err))
	}
	return nil
}

func (s *LedgerService) holding(ctx context.Context, q queryRower, userID, symbol string) (int64, error) {
	var held int64
	err := q.QueryRowContext(ctx,
		s.db.Rebind("SELECT COALESCE(SUM(shares), 0) FROM history WHERE user_id = ? AND symbol = ?"),
		userID, symbol).Scan(&held)
	if err != nil {
		return 0, storeErr("read holding", err)
	}
	return held, nil
}

func (s *LedgerService) appendEntry(ctx context.Context, tx *sql.Tx, userID, symbol string, shares int64, value decimal.Decimal) (models.HistoryEntry, error) {
	entry := models.HistoryEntry{
		UserID:     userID,
		Symbol:     symbol,
		Shares:     shares,
		ShareValue: value,
		Date:       s.now().UTC(),
	}
	err := tx.QueryRowContext(ctx,
		s.db.Rebind("INSERT INTO history (user_id, symbol, shares, share_value, date) VALUES (?, ?, ?, ?, ?) RETURNING id"),
		entry.UserID, entry.Symbol, entry.Shares, entry.ShareValue, entry.Date).Scan(&entry.ID)
	if err != nil {
		return models.HistoryEntry{}, storeErr("append history", err)
	}
	return entry, nil
}

// afterTrade records and publishes a committed trade. Failures here are
// logged; the trade itself stands.
func (s *LedgerService) afterTrade(ctx context.Context, entry models.HistoryEntry, price, cashAfter decimal.Decimal) {
	ev := models.TradeEvent{
		EntryID:   entry.ID,
		UserID:    entry.UserID,
		Kind:      entry.Kind(),
		Symbol:    entry.Symbol,
		Shares:    entry.AbsShares(),
		Price:     price,
		Total:     entry.ShareValue,
		CashAfter: cashAfter,
		At:        entry.Date,
	}

	l := logger.FromContext(ctx).With().Str("user_id", ev.UserID).Str("symbol", ev.Symbol).Int64("entry_id", ev.EntryID).Logger()
	l.Info().Str("kind", ev.Kind).Int64("shares", ev.Shares).Str("total", ev.Total.String()).Msg("Trade executed")

	if s.events != nil {
		verb := "Bought"
		if ev.Kind == "sell" {
			verb = "Sold"
		}
		msg := fmt.Sprintf("%s %d %s at %s.", verb, ev.Shares, ev.Symbol, price.StringFixed(2))
		if err := s.events.CreateEvent(ctx, "trade."+ev.Kind, "info", msg, &ev.UserID); err != nil {
			l.Error().Err(err).Msg("Failed to record trade event")
		}
	}
	for _, p := range s.publishers {
		if err := p.PublishTrade(ctx, ev); err != nil {
			l.Error().Err(err).Msg("Failed to publish trade")
		}
	}
}

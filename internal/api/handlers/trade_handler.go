package handlers

import (
	"net/http"

	"github.com/isdelr/papertrade-be/internal/api/views"
	"github.com/isdelr/papertrade-be/internal/auth"
	"github.com/isdelr/papertrade-be/internal/services"
)

// TradeHandler handles quotes, trades and the trade history.
type TradeHandler struct {
	ledger services.LedgerServiceProvider
	views  *views.Renderer
}

// NewTradeHandler creates a new TradeHandler.
func NewTradeHandler(ledger services.LedgerServiceProvider, v *views.Renderer) *TradeHandler {
	return &TradeHandler{ledger: ledger, views: v}
}

// BuyForm shows the buy form.
func (h *TradeHandler) BuyForm(w http.ResponseWriter, r *http.Request) {
	render(h.views, w, r, "buy.html", nil)
}

// Buy executes a purchase and returns to the portfolio.
func (h *TradeHandler) Buy(w http.ResponseWriter, r *http.Request) {
	session, _ := auth.SessionFrom(r.Context())
	symbol, shares, err := services.ParseTradeForm(r.FormValue("symbol"), r.FormValue("shares"))
	if err != nil {
		fail(h.views, w, r, err, "Rejected buy form")
		return
	}
	if _, err := h.ledger.ExecuteBuy(r.Context(), session.UserID, symbol, shares); err != nil {
		fail(h.views, w, r, err, "Buy failed")
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// SellForm shows the sell form with the symbols the account holds.
func (h *TradeHandler) SellForm(w http.ResponseWriter, r *http.Request) {
	session, _ := auth.SessionFrom(r.Context())
	symbols, err := h.ledger.OwnedSymbols(r.Context(), session.UserID)
	if err != nil {
		fail(h.views, w, r, err, "Failed to list owned symbols")
		return
	}
	render(h.views, w, r, "sell.html", symbols)
}

// Sell executes a sale and returns to the portfolio.
func (h *TradeHandler) Sell(w http.ResponseWriter, r *http.Request) {
	session, _ := auth.SessionFrom(r.Context())
	symbol, shares, err := services.ParseTradeForm(r.FormValue("symbol"), r.FormValue("shares"))
	if err != nil {
		fail(h.views, w, r, err, "Rejected sell form")
		return
	}
	if _, err := h.ledger.ExecuteSell(r.Context(), session.UserID, symbol, shares); err != nil {
		fail(h.views, w, r, err, "Sell failed")
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// QuoteForm shows the quote form.
func (h *TradeHandler) QuoteForm(w http.ResponseWriter, r *http.Request) {
	render(h.views, w, r, "quote.html", nil)
}

// Quote shows the current price of the requested symbol.
func (h *TradeHandler) Quote(w http.ResponseWriter, r *http.Request) {
	q, err := h.ledger.Quote(r.Context(), r.FormValue("symbol"))
	if err != nil {
		fail(h.views, w, r, err, "Quote failed")
		return
	}
	render(h.views, w, r, "quoted.html", q)
}

// History lists every trade of the account.
func (h *TradeHandler) History(w http.ResponseWriter, r *http.Request) {
	session, _ := auth.SessionFrom(r.Context())
	entries, err := h.ledger.History(r.Context(), session.UserID)
	if err != nil {
		fail(h.views, w, r, err, "Failed to load history")
		return
	}
	render(h.views, w, r, "history.html", entries)
}

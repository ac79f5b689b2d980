package handlers

import (
	"net/http"

	"github.com/isdelr/papertrade-be/internal/api/views"
	"github.com/isdelr/papertrade-be/internal/auth"
	"github.com/isdelr/papertrade-be/internal/services"
)

// PortfolioHandler serves the portfolio overview.
type PortfolioHandler struct {
	ledger services.LedgerServiceProvider
	views  *views.Renderer
}

// NewPortfolioHandler creates a new PortfolioHandler.
func NewPortfolioHandler(ledger services.LedgerServiceProvider, v *views.Renderer) *PortfolioHandler {
	return &PortfolioHandler{ledger: ledger, views: v}
}

// Index shows every holding at its current price, the cash balance and the grand total.
func (h *PortfolioHandler) Index(w http.ResponseWriter, r *http.Request) {
	session, _ := auth.SessionFrom(r.Context())
	portfolio, err := h.ledger.ComputePortfolio(r.Context(), session.UserID)
	if err != nil {
		fail(h.views, w, r, err, "Failed to compute portfolio")
		return
	}
	render(h.views, w, r, "index.html", portfolio)
}

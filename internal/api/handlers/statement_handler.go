package handlers

import (
	"html/template"
	"net/http"
	"time"

	"github.com/isdelr/papertrade-be/internal/api/views"
	"github.com/isdelr/papertrade-be/internal/auth"
	"github.com/isdelr/papertrade-be/internal/report"
	"github.com/isdelr/papertrade-be/internal/services"
)

// StatementHandler serves the account statement.
type StatementHandler struct {
	ledger services.LedgerServiceProvider
	views  *views.Renderer
}

// NewStatementHandler creates a new StatementHandler.
func NewStatementHandler(ledger services.LedgerServiceProvider, v *views.Renderer) *StatementHandler {
	return &StatementHandler{ledger: ledger, views: v}
}

// Get renders the statement as HTML, or as markdown with ?format=md.
func (h *StatementHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, _ := auth.SessionFrom(r.Context())
	stmt, err := report.Build(r.Context(), h.ledger, session.UserID, time.Now())
	if err != nil {
		fail(h.views, w, r, err, "Failed to build statement")
		return
	}
	md, err := stmt.Markdown()
	if err != nil {
		fail(h.views, w, r, err, "Failed to render statement")
		return
	}

	if r.URL.Query().Get("format") == "md" {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="statement.md"`)
		w.Write([]byte(md))
		return
	}

	html, err := report.ToHTML(md)
	if err != nil {
		fail(h.views, w, r, err, "Failed to convert statement")
		return
	}
	// ToHTML drops raw HTML, and user text is escaped by the markdown templates.
	render(h.views, w, r, "statement.html", template.HTML(html))
}

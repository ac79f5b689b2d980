package handlers

import (
	"net/http"
	"strconv"

	"github.com/isdelr/papertrade-be/internal/api/views"
	"github.com/isdelr/papertrade-be/internal/auth"
	"github.com/isdelr/papertrade-be/internal/services"
)

// EventHandler handles HTTP requests related to account activity.
type EventHandler struct {
	service services.EventServiceProvider
	views   *views.Renderer
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(service services.EventServiceProvider, v *views.Renderer) *EventHandler {
	return &EventHandler{service: service, views: v}
}

// GetRecent shows the account's most recent events.
func (h *EventHandler) GetRecent(w http.ResponseWriter, r *http.Request) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 20 // Default limit
	}
	if limit > 100 {
		limit = 100
	}

	session, _ := auth.SessionFrom(r.Context())
	events, err := h.service.GetRecentEvents(r.Context(), session.UserID, limit)
	if err != nil {
		fail(h.views, w, r, err, "Failed to retrieve events")
		return
	}
	render(h.views, w, r, "activity.html", events)
}

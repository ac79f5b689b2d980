package handlers

import (
	"errors"
	"net/http"

	"github.com/isdelr/papertrade-be/internal/api/views"
	"github.com/isdelr/papertrade-be/internal/auth"
	"github.com/isdelr/papertrade-be/internal/services"
	"github.com/rs/zerolog/log"
)

// apology is the data of the error page.
type apology struct {
	Code    int
	Message string
}

// pageFor builds page data for the visitor of r.
func pageFor(r *http.Request, data any) views.Page {
	p := views.Page{Data: data}
	if s, ok := auth.SessionFrom(r.Context()); ok {
		p.Username = s.Username
	}
	return p
}

func render(v *views.Renderer, w http.ResponseWriter, r *http.Request, page string, data any) {
	if err := v.Render(w, http.StatusOK, page, pageFor(r, data)); err != nil {
		log.Error().Err(err).Str("page", page).Msg("Failed to render page")
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// Apologize renders the error page with code and message.
func Apologize(v *views.Renderer, w http.ResponseWriter, r *http.Request, code int, message string) {
	if err := v.Render(w, code, "apology.html", pageFor(r, apology{Code: code, Message: message})); err != nil {
		log.Error().Err(err).Int("code", code).Msg("Failed to render apology")
		http.Error(w, message, code)
	}
}

// StatusFor maps a service error to an HTTP status and a message safe to show.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrQuoteUnavailable):
		return http.StatusServiceUnavailable, "quote service unavailable"
	case errors.Is(err, services.ErrStore):
		return http.StatusInternalServerError, "internal server error"
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrUsernameTaken),
		errors.Is(err, services.ErrPasswordMismatch),
		errors.Is(err, services.ErrInsufficientFunds),
		errors.Is(err, services.ErrInsufficientShares),
		errors.Is(err, services.ErrSymbolNotFound):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// fail logs err and renders the matching apology.
func fail(v *views.Renderer, w http.ResponseWriter, r *http.Request, err error, what string) {
	code, msg := StatusFor(err)
	ev := log.Warn()
	if code >= http.StatusInternalServerError {
		ev = log.Error()
	}
	ev.Err(err).Str("path", r.URL.Path).Int("status", code).Msg(what)
	Apologize(v, w, r, code, msg)
}

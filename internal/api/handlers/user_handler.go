package handlers

import (
	"net/http"

	"github.com/isdelr/papertrade-be/internal/api/views"
	"github.com/isdelr/papertrade-be/internal/auth"
	"github.com/isdelr/papertrade-be/internal/models"
	"github.com/isdelr/papertrade-be/internal/services"
	"github.com/rs/zerolog/log"
)

// UserHandler handles registration, login and logout.
type UserHandler struct {
	users    services.UserServiceProvider
	sessions services.SessionServiceProvider
	views    *views.Renderer
	secure   bool
}

// NewUserHandler creates a new UserHandler. secure marks the session cookie Secure.
func NewUserHandler(users services.UserServiceProvider, sessions services.SessionServiceProvider, v *views.Renderer, secure bool) *UserHandler {
	return &UserHandler{users: users, sessions: sessions, views: v, secure: secure}
}

// RegisterForm forgets the current session and shows the registration form.
func (h *UserHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	h.forget(w, r)
	render(h.views, w, r, "register.html", nil)
}

// Register creates an account and logs it in.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	h.forget(w, r)
	user, err := h.users.Register(r.Context(), r.FormValue("username"), r.FormValue("password"), r.FormValue("confirmation"))
	if err != nil {
		fail(h.views, w, r, err, "Registration failed")
		return
	}
	h.login(w, r, user)
}

// LoginForm forgets the current session and shows the login form.
func (h *UserHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.forget(w, r)
	render(h.views, w, r, "login.html", nil)
}

// Login checks the credentials and starts a session.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	h.forget(w, r)
	user, err := h.users.Authenticate(r.Context(), r.FormValue("username"), r.FormValue("password"))
	if err != nil {
		fail(h.views, w, r, err, "Failed authentication attempt")
		return
	}
	h.login(w, r, user)
}

// Logout ends the current session.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.forget(w, r)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *UserHandler) login(w http.ResponseWriter, r *http.Request, user models.User) {
	token, expires, err := h.sessions.Issue(r.Context(), user)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to issue session")
		Apologize(h.views, w, r, http.StatusInternalServerError, "internal server error")
		return
	}
	auth.SetCookie(w, token, expires, h.secure)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// forget revokes the session the request carries, if any.
func (h *UserHandler) forget(w http.ResponseWriter, r *http.Request) {
	token := auth.TokenFrom(r)
	if token == "" {
		return
	}
	if err := h.sessions.Revoke(r.Context(), token); err != nil {
		log.Error().Err(err).Msg("Failed to revoke session")
	}
	auth.ClearCookie(w, h.secure)
}

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/isdelr/papertrade-be/internal/api/handlers"
	"github.com/isdelr/papertrade-be/internal/api/views"
	"github.com/isdelr/papertrade-be/internal/auth"
	"github.com/isdelr/papertrade-be/internal/services"
	"github.com/isdelr/papertrade-be/internal/websocket"
)

// Options configures the HTTP surface.
type Options struct {
	AllowedOrigins []string
	// SecureCookies marks the session cookie Secure; set it behind TLS.
	SecureCookies bool
}

// NewRouter creates and configures a new Chi router.
func NewRouter(
	opts Options,
	hub *websocket.Hub,
	ledger services.LedgerServiceProvider,
	users services.UserServiceProvider,
	sessions services.SessionServiceProvider,
	events services.EventServiceProvider,
	db handlers.Pinger,
) (*chi.Mux, error) {
	v, err := views.New()
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(noCache)

	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
			ExposedHeaders:   []string{"Link"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Initialize handlers
	portfolioHandler := handlers.NewPortfolioHandler(ledger, v)
	tradeHandler := handlers.NewTradeHandler(ledger, v)
	statementHandler := handlers.NewStatementHandler(ledger, v)
	userHandler := handlers.NewUserHandler(users, sessions, v, opts.SecureCookies)
	eventHandler := handlers.NewEventHandler(events, v)
	healthHandler := handlers.NewHealthHandler(db)
	wsHandler := handlers.NewWebSocketHandler(hub, opts.AllowedOrigins)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		handlers.Apologize(v, w, r, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		handlers.Apologize(v, w, r, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Handle("/static/*", http.StripPrefix("/static/", views.Static()))
	r.Get("/healthz", healthHandler.Get)

	r.Get("/register", userHandler.RegisterForm)
	r.Post("/register", userHandler.Register)
	r.Get("/login", userHandler.LoginForm)
	r.Post("/login", userHandler.Login)
	r.Get("/logout", userHandler.Logout)

	// Pages that need a logged-in account
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireSession(sessions, "/login", opts.SecureCookies))

		r.Get("/", portfolioHandler.Index)
		r.Get("/buy", tradeHandler.BuyForm)
		r.Post("/buy", tradeHandler.Buy)
		r.Get("/sell", tradeHandler.SellForm)
		r.Post("/sell", tradeHandler.Sell)
		r.Get("/quote", tradeHandler.QuoteForm)
		r.Post("/quote", tradeHandler.Quote)
		r.Get("/history", tradeHandler.History)
		r.Get("/activity", eventHandler.GetRecent)
		r.Get("/statement", statementHandler.Get)
		r.Get("/ws", wsHandler.Serve)
	})

	return r, nil
}

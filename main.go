package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/isdelr/papertrade-be/internal/api"
	"github.com/isdelr/papertrade-be/internal/auth"
	"github.com/isdelr/papertrade-be/internal/config"
	"github.com/isdelr/papertrade-be/internal/database"
	"github.com/isdelr/papertrade-be/internal/events/kafka"
	"github.com/isdelr/papertrade-be/internal/logger"
	"github.com/isdelr/papertrade-be/internal/monitoring"
	"github.com/isdelr/papertrade-be/internal/quote"
	"github.com/isdelr/papertrade-be/internal/services"
	"github.com/isdelr/papertrade-be/internal/websocket"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.LogLevel)

	// Set up database
	db, err := database.New(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DatabaseDriver).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	quotes, err := quote.New(cfg.QuoteProvider, quote.HTTPOptions{
		URL:        cfg.QuoteAPIURL,
		Token:      cfg.QuoteAPIToken,
		Timeout:    cfg.QuoteTimeout,
		PricePath:  cfg.QuotePricePath,
		NamePath:   cfg.QuoteNamePath,
		SymbolPath: cfg.QuoteSymbolPath,
	}, cfg.StaticQuotes)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up quote provider")
	}

	// Set up WebSocket Hub
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	hub := websocket.NewHub()
	go hub.Run(ctx)

	publishers := []services.TradePublisher{hub}
	if len(cfg.KafkaBrokers) > 0 {
		publisher := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer publisher.Close()
		publishers = append(publishers, publisher)
		log.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("Publishing trades to Kafka")
	}

	// Set up services
	eventService := services.NewEventService(db)
	userService := services.NewUserService(db, eventService, cfg.StartingCash)
	sessionService := services.NewSessionService(db, auth.NewSigner(cfg.JWTSecret), cfg.SessionTTL)
	ledgerService := services.NewLedgerService(db, quotes, eventService, publishers...)

	// Set up and run the background scheduler
	scheduler, err := monitoring.NewScheduler(sessionService, cfg.SessionPurgeCron)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up scheduler")
	}
	scheduler.Start()

	// Set up router
	router, err := api.NewRouter(api.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		SecureCookies:  cfg.IsProduction(),
	}, hub, ledgerService, userService, sessionService, eventService, db)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up router")
	}

	// Set up server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Str("env", cfg.AppEnv).Msg("Server starting")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	scheduler.Stop(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	stop() // disconnects websocket clients

	log.Info().Msg("Server exiting")
}

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"
	"github.com/isdelr/papertrade-be/internal/auth"
	"github.com/isdelr/papertrade-be/internal/config"
	"github.com/isdelr/papertrade-be/internal/database"
	"github.com/isdelr/papertrade-be/internal/quote"
	"github.com/isdelr/papertrade-be/internal/services"
)

// commands lists every tradectl subcommand, writing their output to out.
func commands(out io.Writer) []subcommands.Command {
	return []subcommands.Command{
		&migrateCmd{out: out},
		&registerCmd{out: out},
		&portfolioCmd{out: out},
		&historyCmd{out: out},
		&purgeSessionsCmd{out: out},
	}
}

// env is the configuration and services a command works with.
type env struct {
	cfg      *config.Config
	db       *database.DB
	users    *services.UserService
	sessions *services.SessionService
	ledger   *services.LedgerService
}

// openEnv loads the configuration and opens the database it names.
func openEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	db, err := database.New(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		db.Close()
		return nil, err
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
		db.Close()
		return nil, err
	}

	events := services.NewEventService(db)
	return &env{
		cfg:      cfg,
		db:       db,
		users:    services.NewUserService(db, events, cfg.StartingCash),
		sessions: services.NewSessionService(db, auth.NewSigner(cfg.JWTSecret), cfg.SessionTTL),
		ledger:   services.NewLedgerService(db, quotes, events),
	}, nil
}

func (e *env) Close() error {
	return e.db.Close()
}

// printMarkdown renders md for the terminal, or writes it as-is when raw.
func printMarkdown(out io.Writer, md string, raw bool) {
	if !raw {
		r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
		if err == nil {
			if rendered, err := r.Render(md); err == nil {
				md = rendered
			}
		}
	}
	fmt.Fprint(out, md)
}

func fail(format string, args ...any) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	return subcommands.ExitFailure
}

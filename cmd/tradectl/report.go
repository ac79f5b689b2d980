package main

import (
	"context"
	"flag"
	"io"
	"time"

	"github.com/google/subcommands"
	"github.com/isdelr/papertrade-be/internal/report"
)

type portfolioCmd struct {
	out      io.Writer
	username string
	raw      bool
}

func (*portfolioCmd) Name() string     { return "portfolio" }
func (*portfolioCmd) Synopsis() string { return "display an account's holdings at current prices" }
func (*portfolioCmd) Usage() string {
	return `tradectl portfolio -u <username> [-raw]

  Values every holding of the account at its current quote.
`
}

func (c *portfolioCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.username, "u", "", "Account to report on")
	f.BoolVar(&c.raw, "raw", false, "Print markdown instead of rendering it")
}

func (c *portfolioCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return runReport(ctx, c.out, c.username, c.raw, report.Statement.HoldingsMarkdown)
}

type historyCmd struct {
	out      io.Writer
	username string
	raw      bool
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "display an account's trades" }
func (*historyCmd) Usage() string {
	return `tradectl history -u <username> [-raw]

  Lists every trade of the account in the order it was made.
`
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.username, "u", "", "Account to report on")
	f.BoolVar(&c.raw, "raw", false, "Print markdown instead of rendering it")
}

func (c *historyCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return runReport(ctx, c.out, c.username, c.raw, report.Statement.HistoryMarkdown)
}

func runReport(ctx context.Context, out io.Writer, username string, raw bool, section func(report.Statement) (string, error)) subcommands.ExitStatus {
	if username == "" {
		return fail("-u is required")
	}
	e, err := openEnv()
	if err != nil {
		return fail("%v", err)
	}
	defer e.Close()

	user, err := e.users.GetUserByUsername(ctx, username)
	if err != nil {
		return fail("%v", err)
	}
	stmt, err := report.Build(ctx, e.ledger, user.ID, time.Now())
	if err != nil {
		return fail("%v", err)
	}
	md, err := section(stmt)
	if err != nil {
		return fail("%v", err)
	}
	printMarkdown(out, md, raw)
	return subcommands.ExitSuccess
}

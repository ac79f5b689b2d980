package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/google/subcommands"
	"github.com/isdelr/papertrade-be/internal/money"
)

type registerCmd struct {
	out      io.Writer
	username string
	password string
}

func (*registerCmd) Name() string     { return "register" }
func (*registerCmd) Synopsis() string { return "create a trading account" }
func (*registerCmd) Usage() string {
	return `tradectl register -u <username> -p <password>

  Creates an account holding the configured starting cash.
`
}

func (c *registerCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.username, "u", "", "Username of the new account")
	f.StringVar(&c.password, "p", "", "Password of the new account")
}

func (c *registerCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.username == "" || c.password == "" {
		return fail("both -u and -p are required")
	}
	e, err := openEnv()
	if err != nil {
		return fail("%v", err)
	}
	defer e.Close()

	user, err := e.users.Register(ctx, c.username, c.password, c.password)
	if err != nil {
		return fail("%v", err)
	}
	fmt.Fprintf(c.out, "Registered %s (%s) with %s.\n", user.Username, user.ID, money.USD(user.Cash))
	return subcommands.ExitSuccess
}

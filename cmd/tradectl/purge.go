package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/google/subcommands"
)

type purgeSessionsCmd struct {
	out io.Writer
}

func (*purgeSessionsCmd) Name() string     { return "purge-sessions" }
func (*purgeSessionsCmd) Synopsis() string { return "delete expired login sessions" }
func (*purgeSessionsCmd) Usage() string {
	return `tradectl purge-sessions

  Deletes every session that has expired. The server does this on
  SESSION_PURGE_CRON; this runs it once.
`
}

func (c *purgeSessionsCmd) SetFlags(*flag.FlagSet) {}

func (c *purgeSessionsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	e, err := openEnv()
	if err != nil {
		return fail("%v", err)
	}
	defer e.Close()

	n, err := e.sessions.PurgeExpired(ctx, time.Now())
	if err != nil {
		return fail("%v", err)
	}
	fmt.Fprintf(c.out, "Purged %d expired sessions.\n", n)
	return subcommands.ExitSuccess
}

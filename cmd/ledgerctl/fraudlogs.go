package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/subcommands"
	"github.com/olekukonko/tablewriter"

	"github.com/sanbank/core/internal/risk"
)

type fraudLogsCmd struct {
	user  string
	limit int
}

func (*fraudLogsCmd) Name() string     { return "fraud-logs" }
func (*fraudLogsCmd) Synopsis() string { return "list a customer's fraud log" }
func (*fraudLogsCmd) Usage() string {
	return `ledgerctl fraud-logs -user <id> [-limit n]

  Prints the newest fraud log entries of a customer.
`
}

func (c *fraudLogsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.user, "user", "", "The customer id.")
	f.IntVar(&c.limit, "limit", 50, "Maximum number of entries.")
}

func (c *fraudLogsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.user == "" {
		fmt.Fprintln(os.Stderr, "-user is required")
		return subcommands.ExitUsageError
	}
	e, err := openEnv(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer e.Close()

	logs, err := risk.NewService(risk.NewPostgresRepository(e.db), e.logger).FraudLogs(ctx, c.user, c.limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Created", "Score", "Flagged", "Transaction", "Reason"})
	table.SetAutoWrapText(false)
	for _, l := range logs {
		table.Append([]string{
			l.CreatedAt.In(e.cfg.Location).Format(time.DateTime),
			strconv.Itoa(l.RiskScore),
			strconv.FormatBool(l.IsFlagged),
			l.TransactionID,
			l.Reason,
		})
	}
	table.Render()
	return subcommands.ExitSuccess
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"

	"github.com/sanbank/core/internal/audit"
	"github.com/sanbank/core/internal/interest"
	"github.com/sanbank/core/internal/ledger"
	"github.com/sanbank/core/internal/notification"
)

type accrueInterestCmd struct{}

func (*accrueInterestCmd) Name() string     { return "accrue-interest" }
func (*accrueInterestCmd) Synopsis() string { return "credit one month of interest to savings accounts" }
func (*accrueInterestCmd) Usage() string {
	return `ledgerctl accrue-interest

  Credits monthly interest to every savings account with a positive balance
  and prints the credited accounts. Running it twice in a month credits twice.
`
}

func (*accrueInterestCmd) SetFlags(*flag.FlagSet) {}

func (*accrueInterestCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	e, err := openEnv(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer e.Close()

	var recorder audit.Recorder = audit.NewLogRecorder(e.logger)
	if e.cfg.Immu.Address != "" {
		immu, err := audit.NewImmuRecorder(ctx, audit.ImmuConfig(e.cfg.Immu))
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
		defer immu.Close(context.Background()) // nolint:errcheck
		recorder = immu
	}

	store := ledger.NewPostgresStore(e.db, e.cfg.LockTimeout)
	engine := ledger.NewEngine(store,
		ledger.WithLocation(e.cfg.Location),
		ledger.WithCurrency(e.cfg.Currency),
		ledger.WithLogger(e.logger),
	)
	notifier := notification.NewStoreNotifier(notification.NewPostgresStore(e.db))
	job := interest.NewJob(engine, notifier, audit.NewSafe(recorder, e.logger), e.logger)

	credits, runErr := job.Run(ctx)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Account", "Interest"})
	total := decimal.Zero
	for _, c := range credits {
		total = total.Add(c.Amount)
		table.Append([]string{c.AccountID, ledger.FormatAmount(c.Amount, engine.Currency())})
	}
	table.SetFooter([]string{fmt.Sprintf("%d accounts", len(credits)), ledger.FormatAmount(total, engine.Currency())})
	table.Render()

	if runErr != nil {
		fmt.Fprintln(os.Stderr, runErr)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

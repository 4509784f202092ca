package interest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sanbank/core/internal/audit"
	"github.com/sanbank/core/internal/ledger"
	"github.com/sanbank/core/internal/logging"
	"github.com/sanbank/core/internal/notification"
)

// Job credits monthly interest to savings accounts and tells each owner.
type Job struct {
	engine   *ledger.Engine
	notifier notification.Notifier
	recorder audit.Recorder
	logger   *slog.Logger
}

// NewJob builds the interest job. notifier and recorder may be nil.
func NewJob(engine *ledger.Engine, notifier notification.Notifier, recorder audit.Recorder, logger *slog.Logger) *Job {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Job{engine: engine, notifier: notifier, recorder: recorder, logger: logger}
}

// Run performs one interest run. Credits committed before a failure are
// returned along with the error; notifications are sent for those too.
func (j *Job) Run(ctx context.Context) ([]ledger.InterestCredit, error) {
	started := time.Now()
	j.logger.Info("interest job starting")

	credits, err := j.engine.AccrueInterest(ctx)

	total := decimal.Zero
	for _, credit := range credits {
		total = total.Add(credit.Amount)
		j.notify(ctx, credit)
	}
	j.record(ctx, len(credits), total, err)

	if err != nil {
		j.logger.Error("interest job failed", "credited", len(credits), "error", err)
		return credits, err
	}
	j.logger.Info("interest job finished",
		"credited", len(credits),
		"total", total.StringFixed(2),
		"duration", time.Since(started).String(),
	)
	return credits, nil
}

func (j *Job) notify(ctx context.Context, credit ledger.InterestCredit) {
	if j.notifier == nil {
		return
	}
	acc, err := j.engine.Store().Account(ctx, credit.AccountID)
	if err != nil {
		j.logger.Warn("interest notification skipped", "account_id", credit.AccountID, "error", err)
		return
	}
	msg := notification.Message{
		Kind:   notification.KindInterestCredited,
		UserID: acc.UserID,
		Title:  "Interest Credited",
		Body:   fmt.Sprintf("%s interest was credited to account %s.", ledger.FormatAmount(credit.Amount, j.engine.Currency()), acc.Number),
		Type:   notification.TypeSuccess,
	}
	if err := j.notifier.Send(ctx, msg); err != nil {
		j.logger.Warn("notification failed", "kind", msg.Kind, "account_id", credit.AccountID, "error", err)
	}
}

func (j *Job) record(ctx context.Context, credited int, total decimal.Decimal, runErr error) {
	if j.recorder == nil {
		return
	}
	detail := fmt.Sprintf("credited=%d", credited)
	if runErr != nil {
		detail += " error=" + runErr.Error()
	}
	e := audit.NewEvent(audit.ActionInterestRun, "", "interest-run", detail)
	e.Amount = total.StringFixed(2)
	if err := j.recorder.Record(ctx, e); err != nil {
		j.logger.Warn("audit record failed", "action", e.Action, "error", err)
	}
}

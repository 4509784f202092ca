package risk

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sanbank/core/internal/ledger"
)

const (
	maxScore = 100

	frequencyWindow    = 10 * time.Minute
	frequencyThreshold = 5

	oddHourStart = 1
	oddHourEnd   = 4
)

var (
	highValueThreshold = decimal.NewFromInt(1_000_000)
	largeThreshold     = decimal.NewFromInt(100_000)
	roundUnit          = decimal.NewFromInt(1_000)
	roundMinimum       = decimal.NewFromInt(5_000)
)

// Rule reasons, reported in this order when several fire.
const (
	ReasonHighValue   = "high value transaction anomaly"
	ReasonLargeAmount = "large transaction amount"
	ReasonFrequency   = "rapid transaction frequency detected"
	ReasonRoundNumber = "suspicious round-number amount"
	ReasonOddHours    = "transaction during unusual hours"
	ReasonNone        = "no suspicious patterns detected"
)

// Input describes a transaction about to be submitted to the ledger.
type Input struct {
	UserID          string
	Amount          decimal.Decimal
	Kind            ledger.TransactionKind
	SourceAccountID string
}

// Assessment is the outcome of scoring one transaction. A high score is a
// normal result, not an error.
type Assessment struct {
	Score   int
	Reasons []string
}

// Reason joins the fired rule reasons, or ReasonNone when nothing fired.
func (a Assessment) Reason() string {
	if len(a.Reasons) == 0 {
		return ReasonNone
	}
	return strings.Join(a.Reasons, ", ")
}

// Assessor scores transactions for fraud risk.
type Assessor interface {
	Analyze(ctx context.Context, in Input) (Assessment, error)
}

// ActivityCounter reports how many debits a user made since a point in time.
// ledger.Store satisfies it.
type ActivityCounter interface {
	CountOutgoingSince(ctx context.Context, userID string, since time.Time) (int, error)
}

// HeuristicAssessor applies additive rules on amount, recent frequency and
// time of day. It only reads the store and takes no ledger locks.
type HeuristicAssessor struct {
	counter ActivityCounter
	now     func() time.Time
	loc     *time.Location
}

// Option customises a HeuristicAssessor.
type Option func(*HeuristicAssessor)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(a *HeuristicAssessor) { a.now = now }
}

// WithLocation sets the zone whose wall clock decides unusual hours.
func WithLocation(loc *time.Location) Option {
	return func(a *HeuristicAssessor) {
		if loc != nil {
			a.loc = loc
		}
	}
}

// NewHeuristicAssessor builds the rule-based assessor.
func NewHeuristicAssessor(counter ActivityCounter, opts ...Option) *HeuristicAssessor {
	a := &HeuristicAssessor{counter: counter, now: time.Now, loc: time.Local}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze scores in. The round-number rule only applies when neither amount
// size rule fired, so a single amount never scores twice.
func (a *HeuristicAssessor) Analyze(ctx context.Context, in Input) (Assessment, error) {
	now := a.now()
	var out Assessment

	sized := false
	switch {
	case in.Amount.GreaterThan(highValueThreshold):
		out.add(50, ReasonHighValue)
		sized = true
	case in.Amount.GreaterThan(largeThreshold):
		out.add(20, ReasonLargeAmount)
		sized = true
	}

	recent, err := a.counter.CountOutgoingSince(ctx, in.UserID, now.Add(-frequencyWindow))
	if err != nil {
		return Assessment{}, fmt.Errorf("count recent activity: %w", err)
	}
	if recent > frequencyThreshold {
		out.add(40, ReasonFrequency)
	}

	// Not additive with the size tiers: a round 2,00,000 scores 20, not 30,
	// which keeps a round 1,00,000 with a velocity burst at 65 instead of 75.
	if !sized && in.Amount.GreaterThan(roundMinimum) && in.Amount.Mod(roundUnit).IsZero() {
		out.add(10, ReasonRoundNumber)
	}

	if hour := now.In(a.loc).Hour(); hour >= oddHourStart && hour <= oddHourEnd {
		out.add(15, ReasonOddHours)
	}

	if out.Score > maxScore {
		out.Score = maxScore
	}
	return out, nil
}

func (a *Assessment) add(points int, reason string) {
	a.Score += points
	a.Reasons = append(a.Reasons, reason)
}

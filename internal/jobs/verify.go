package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/refuelos/ledger/internal/ledger"
	"github.com/refuelos/ledger/internal/service/report"
)

var (
	verifyRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "verify_runs_total",
			Help:      "Ledger integrity runs by outcome",
		},
		[]string{"outcome"},
	)
	verifyUnbalancedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "verify_unbalanced_total",
			Help:      "Integrity runs that found an unbalanced report",
		},
		[]string{"report"},
	)
)

// VerifyResult summarises one integrity run.
type VerifyResult struct {
	AsOf               time.Time
	TrialBalanceOK     bool
	BalanceSheetOK     bool
	DanglingReferences int
}

// OK reports whether both checks passed.
func (r VerifyResult) OK() bool { return r.TrialBalanceOK && r.BalanceSheetOK }

// VerifyJob rebuilds the all-time trial balance and the balance sheet and
// flags any imbalance. The balance sheet is checked with unclosed net income
// added to equity, since revenue and expense are never closed. Posted entries
// are always balanced, so a failure here means the store was changed behind
// the validator's back.
type VerifyJob struct {
	Reports report.Service
	Logger  *slog.Logger
	clock   func() time.Time
}

// NewVerifyJob initialises the verify handler.
func NewVerifyJob(reports report.Service, logger *slog.Logger) *VerifyJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &VerifyJob{
		Reports: reports,
		Logger:  logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes TaskLedgerVerify tasks. Imbalances are logged and counted
// but do not fail the task; retrying would not change the outcome.
func (j *VerifyJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload VerifyPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			verifyRunsTotal.WithLabelValues("bad_payload").Inc()
			return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	asOf := ledger.DateOf(j.clock())
	if payload.AsOf != "" {
		d, err := ledger.ParseDate(payload.AsOf)
		if err != nil {
			verifyRunsTotal.WithLabelValues("bad_payload").Inc()
			return fmt.Errorf("as_of %q: %v: %w", payload.AsOf, err, asynq.SkipRetry)
		}
		asOf = d
	}
	res, err := j.Run(ctx, asOf)
	if err != nil {
		verifyRunsTotal.WithLabelValues("error").Inc()
		j.Logger.ErrorContext(ctx, "ledger verify failed", slog.String("job", TaskLedgerVerify), slog.Any("error", err))
		return err
	}
	outcome := "ok"
	if !res.OK() {
		outcome = "unbalanced"
	}
	verifyRunsTotal.WithLabelValues(outcome).Inc()
	j.Logger.InfoContext(ctx, "ledger verify complete",
		slog.String("job", TaskLedgerVerify),
		slog.String("trigger", payload.Trigger),
		slog.String("as_of", res.AsOf.Format(ledger.DateLayout)),
		slog.String("outcome", outcome),
		slog.Int("dangling", res.DanglingReferences),
	)
	return nil
}

// Run performs the checks for asOf without going through the queue.
func (j *VerifyJob) Run(ctx context.Context, asOf time.Time) (VerifyResult, error) {
	res := VerifyResult{AsOf: asOf}
	tb, err := j.Reports.TrialBalance(ctx, ledger.DateRange{})
	if err != nil {
		return res, fmt.Errorf("trial balance: %w", err)
	}
	bs, err := j.Reports.BalanceSheet(ctx, asOf)
	if err != nil {
		return res, fmt.Errorf("balance sheet: %w", err)
	}
	res.TrialBalanceOK = tb.IsBalanced
	res.BalanceSheetOK = bs.Reconciles()
	res.DanglingReferences = len(tb.Warnings)
	if !res.TrialBalanceOK {
		verifyUnbalancedTotal.WithLabelValues("trial_balance").Inc()
		j.Logger.ErrorContext(ctx, "trial balance out of balance",
			slog.String("total_debit", tb.TotalDebit.String()),
			slog.String("total_credit", tb.TotalCredit.String()),
			slog.String("carried", tb.Carried.String()))
	}
	if !res.BalanceSheetOK {
		verifyUnbalancedTotal.WithLabelValues("balance_sheet").Inc()
		j.Logger.ErrorContext(ctx, "balance sheet out of balance",
			slog.String("as_of", asOf.Format(ledger.DateLayout)),
			slog.String("total_assets", bs.TotalAssets.String()),
			slog.String("total_liabilities", bs.TotalLiabilities.String()),
			slog.String("total_equity", bs.TotalEquity.String()),
			slog.String("net_income", bs.NetIncome.String()))
	}
	return res, nil
}

package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refuelos/ledger/internal/ledger"
	"github.com/refuelos/ledger/internal/service/journal"
	"github.com/refuelos/ledger/internal/service/report"
	"github.com/refuelos/ledger/internal/storage/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func day(s string) time.Time {
	d, err := ledger.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func seeded(t *testing.T) (*memory.Store, ledger.Account, ledger.Account) {
	t.Helper()
	store := memory.New()
	cash := ledger.Account{ID: uuid.New(), Code: "1000", Name: "Cash", Type: ledger.AccountTypeAsset, Classification: ledger.ClassificationCurrent}
	capital := ledger.Account{ID: uuid.New(), Code: "3000", Name: "Capital", Type: ledger.AccountTypeEquity, Classification: ledger.ClassificationNonCurrent}
	store.SeedAccount(cash)
	store.SeedAccount(capital)
	return store, cash, capital
}

func entry(date string, lines ...ledger.JournalLine) ledger.JournalEntry {
	return ledger.JournalEntry{ID: uuid.New(), EntryDate: day(date), Description: "seed", Details: lines}
}

func newJob(store *memory.Store) *VerifyJob {
	j := NewVerifyJob(report.New(store, testLogger(), report.Options{}), testLogger())
	j.clock = func() time.Time { return day("2024-06-30") }
	return j
}

func TestVerifyJob_Balanced(t *testing.T) {
	store, cash, capital := seeded(t)
	amt := decimal.NewFromInt(500)
	store.SeedEntry(entry("2024-01-01",
		ledger.JournalLine{AccountID: cash.ID, Debit: amt},
		ledger.JournalLine{AccountID: capital.ID, Credit: amt}))

	res, err := newJob(store).Run(context.Background(), day("2024-06-30"))
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Zero(t, res.DanglingReferences)
}

func TestVerifyJob_UnclosedIncomeIsNotAnImbalance(t *testing.T) {
	store, cash, capital := seeded(t)
	sales := ledger.Account{ID: uuid.New(), Code: "4000", Name: "Sales", Type: ledger.AccountTypeRevenue, Classification: ledger.ClassificationCurrent}
	store.SeedAccount(sales)

	entries := journal.New(store, store, testLogger())
	for _, e := range []ledger.JournalEntry{
		entry("2024-01-01",
			ledger.JournalLine{AccountID: cash.ID, Debit: decimal.NewFromInt(500), Credit: decimal.Zero},
			ledger.JournalLine{AccountID: capital.ID, Debit: decimal.Zero, Credit: decimal.NewFromInt(500)}),
		entry("2024-02-01",
			ledger.JournalLine{AccountID: cash.ID, Debit: decimal.NewFromInt(75), Credit: decimal.Zero},
			ledger.JournalLine{AccountID: sales.ID, Debit: decimal.Zero, Credit: decimal.NewFromInt(75)}),
	} {
		_, _, err := entries.Create(context.Background(), e)
		require.NoError(t, err)
	}

	before := testutil.ToFloat64(verifyUnbalancedTotal.WithLabelValues("balance_sheet"))
	res, err := newJob(store).Run(context.Background(), day("2024-06-30"))
	require.NoError(t, err)
	assert.True(t, res.TrialBalanceOK)
	assert.True(t, res.BalanceSheetOK)
	assert.True(t, res.OK())
	assert.Equal(t, before, testutil.ToFloat64(verifyUnbalancedTotal.WithLabelValues("balance_sheet")))
}

func TestVerifyJob_ToleratedCentsAcrossEntries(t *testing.T) {
	store, cash, capital := seeded(t)
	entries := journal.New(store, store, testLogger())
	for i := 0; i < 3; i++ {
		_, _, err := entries.Create(context.Background(), entry("2024-01-01",
			ledger.JournalLine{AccountID: cash.ID, Debit: decimal.RequireFromString("100.01"), Credit: decimal.Zero},
			ledger.JournalLine{AccountID: capital.ID, Debit: decimal.Zero, Credit: decimal.RequireFromString("100.00")}))
		require.NoError(t, err)
	}

	res, err := newJob(store).Run(context.Background(), day("2024-06-30"))
	require.NoError(t, err)
	assert.True(t, res.OK())
}

func TestVerifyJob_DetectsTamperedStore(t *testing.T) {
	store, cash, capital := seeded(t)
	// written straight to the store, bypassing validation
	store.SeedEntry(entry("2024-01-01",
		ledger.JournalLine{AccountID: cash.ID, Debit: decimal.NewFromInt(500)},
		ledger.JournalLine{AccountID: capital.ID, Credit: decimal.NewFromInt(400)}))

	before := testutil.ToFloat64(verifyUnbalancedTotal.WithLabelValues("trial_balance"))
	task, err := NewVerifyTask(VerifyPayload{Trigger: "test"})
	require.NoError(t, err)
	require.NoError(t, newJob(store).Handle(context.Background(), task))
	assert.Equal(t, before+1, testutil.ToFloat64(verifyUnbalancedTotal.WithLabelValues("trial_balance")))

	res, err := newJob(store).Run(context.Background(), day("2024-06-30"))
	require.NoError(t, err)
	assert.False(t, res.TrialBalanceOK)
	assert.False(t, res.BalanceSheetOK)
}

func TestVerifyJob_DanglingCounted(t *testing.T) {
	store, cash, _ := seeded(t)
	amt := decimal.NewFromInt(10)
	store.SeedEntry(entry("2024-01-01",
		ledger.JournalLine{AccountID: cash.ID, Debit: amt},
		ledger.JournalLine{AccountID: uuid.New(), Credit: amt}))

	res, err := newJob(store).Run(context.Background(), day("2024-06-30"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.DanglingReferences)
}

func TestVerifyJob_StrictModeFailsTask(t *testing.T) {
	store, cash, _ := seeded(t)
	amt := decimal.NewFromInt(10)
	store.SeedEntry(entry("2024-01-01",
		ledger.JournalLine{AccountID: cash.ID, Debit: amt},
		ledger.JournalLine{AccountID: uuid.New(), Credit: amt}))

	j := NewVerifyJob(report.New(store, testLogger(), report.Options{StrictReferences: true}), testLogger())
	task, err := NewVerifyTask(VerifyPayload{})
	require.NoError(t, err)
	err = j.Handle(context.Background(), task)
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}

func TestVerifyJob_BadPayloadSkipsRetry(t *testing.T) {
	store, _, _ := seeded(t)
	j := newJob(store)

	err := j.Handle(context.Background(), asynq.NewTask(TaskLedgerVerify, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	task, err := NewVerifyTask(VerifyPayload{AsOf: "30/06/2024"})
	require.NoError(t, err)
	assert.ErrorIs(t, j.Handle(context.Background(), task), asynq.SkipRetry)
}

func TestClient_EnqueueVerify(t *testing.T) {
	mr := miniredis.RunT(t)
	c := NewClient(asynq.RedisClientOpt{Addr: mr.Addr()})
	t.Cleanup(func() { _ = c.Close() })

	info, err := c.EnqueueVerify(context.Background(), VerifyPayload{Trigger: "manual"})
	require.NoError(t, err)
	assert.Equal(t, TaskLedgerVerify, info.Type)
	assert.Equal(t, QueueDefault, info.Queue)
}

func TestNewWorker_RequiresVerifyJob(t *testing.T) {
	_, err := NewWorker(WorkerConfig{})
	assert.Error(t, err)
}

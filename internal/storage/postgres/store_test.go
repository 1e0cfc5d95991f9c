package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refuelos/ledger/internal/errs"
	"github.com/refuelos/ledger/internal/ledger"
	"github.com/refuelos/ledger/internal/service/report"
)

func getTestDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping Postgres store tests")
	}
	return dsn
}

// openClean migrates the test database, wipes it and returns an open store.
func openClean(t *testing.T) *Store {
	t.Helper()
	dsn := getTestDSN(t)
	_, err := Migrate(dsn)
	require.NoError(t, err, "migrate")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := Open(ctx, dsn)
	require.NoError(t, err, "open")
	t.Cleanup(s.Close)
	_, err = s.pool.Exec(ctx, `truncate table idempotency_keys, journal_lines, journal_entries, accounts cascade`)
	require.NoError(t, err, "truncate")
	return s
}

func day(s string) time.Time {
	d, err := ledger.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestMigrate_Idempotent(t *testing.T) {
	dsn := getTestDSN(t)
	_, err := Migrate(dsn)
	require.NoError(t, err)
	changed, err := Migrate(dsn)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestStore_Accounts(t *testing.T) {
	s := openClean(t)
	ctx := context.Background()
	require.NoError(t, s.Ready(ctx))

	added, err := s.SeedDev(ctx)
	require.NoError(t, err)
	assert.Positive(t, added)
	again, err := s.SeedDev(ctx)
	require.NoError(t, err)
	assert.Zero(t, again)

	list, err := s.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, list, added)
	for i := 1; i < len(list); i++ {
		assert.Less(t, list[i-1].Code, list[i].Code)
	}

	got, err := s.GetAccount(ctx, list[0].ID)
	require.NoError(t, err)
	got.Name += " (upd)"
	upd, err := s.UpdateAccount(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, got.Name, upd.Name)

	dup := ledger.Account{ID: uuid.New(), Code: list[0].Code, Name: "Dup", Type: list[0].Type, Classification: list[0].Classification}
	_, err = s.CreateAccount(ctx, dup)
	assert.ErrorIs(t, err, errs.ErrConflict)

	batch := []ledger.Account{
		{ID: uuid.New(), Code: "9000", Name: "Suspense", Type: ledger.AccountTypeAsset, Classification: ledger.ClassificationCurrent},
		{ID: uuid.New(), Code: list[1].Code, Name: "Clash", Type: ledger.AccountTypeAsset, Classification: ledger.ClassificationCurrent},
	}
	_, err = s.CreateAccounts(ctx, batch)
	assert.ErrorIs(t, err, errs.ErrConflict)
	_, err = s.GetAccount(ctx, batch[0].ID)
	assert.ErrorIs(t, err, errs.ErrNotFound, "batch must be atomic")

	require.NoError(t, s.DeleteAccount(ctx, list[0].ID))
	assert.ErrorIs(t, s.DeleteAccount(ctx, list[0].ID), errs.ErrNotFound)
}

func TestStore_EntriesAndReports(t *testing.T) {
	s := openClean(t)
	ctx := context.Background()

	cash := ledger.Account{ID: uuid.New(), Code: "1000", Name: "Cash", Type: ledger.AccountTypeAsset, Classification: ledger.ClassificationCurrent}
	equip := ledger.Account{ID: uuid.New(), Code: "1500", Name: "Equipment", Type: ledger.AccountTypeAsset, Classification: ledger.ClassificationNonCurrent}
	equity := ledger.Account{ID: uuid.New(), Code: "3000", Name: "Capital", Type: ledger.AccountTypeEquity, Classification: ledger.ClassificationNonCurrent}
	_, err := s.CreateAccounts(ctx, []ledger.Account{cash, equip, equity})
	require.NoError(t, err)

	d500 := decimal.RequireFromString("500.25")
	e1 := ledger.JournalEntry{
		ID: uuid.New(), EntryDate: day("2024-01-01"), Reference: "JV-1", Description: "capital",
		Details: []ledger.JournalLine{
			{AccountID: cash.ID, Debit: d500},
			{AccountID: equity.ID, Credit: d500},
		},
		TotalDebit: d500, TotalCredit: d500,
	}
	d200 := decimal.NewFromInt(200)
	e2 := ledger.JournalEntry{
		ID: uuid.New(), EntryDate: day("2024-01-02"), Description: "equipment",
		Details: []ledger.JournalLine{
			{AccountID: equip.ID, Debit: d200, Description: "pump"},
			{AccountID: cash.ID, Credit: d200},
		},
		TotalDebit: d200, TotalCredit: d200,
	}
	_, err = s.CreateEntry(ctx, e1)
	require.NoError(t, err)
	_, err = s.CreateEntry(ctx, e2)
	require.NoError(t, err)

	got, err := s.GetEntry(ctx, e2.ID)
	require.NoError(t, err)
	require.Len(t, got.Details, 2)
	assert.Equal(t, equip.ID, got.Details[0].AccountID)
	assert.Equal(t, "pump", got.Details[0].Description)
	assert.True(t, got.TotalDebit.Equal(d200))
	assert.True(t, got.EntryDate.Equal(day("2024-01-02")))

	all, err := s.ListEntries(ctx, ledger.DateRange{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, e1.ID, all[0].ID)
	assert.True(t, all[0].Details[0].Debit.Equal(d500))

	asOf, err := s.ListEntries(ctx, ledger.AsOf(day("2024-01-01")))
	require.NoError(t, err)
	require.Len(t, asOf, 1)

	bs, err := report.New(s, nil, report.Options{}).BalanceSheet(ctx, day("2024-01-31"))
	require.NoError(t, err)
	assert.True(t, bs.IsBalanced)
	assert.True(t, bs.TotalAssets.Equal(d500))

	e2.Details[0].Debit = decimal.NewFromInt(150)
	e2.Details[1].Credit = decimal.NewFromInt(150)
	e2.TotalDebit, e2.TotalCredit = decimal.NewFromInt(150), decimal.NewFromInt(150)
	_, err = s.UpdateEntry(ctx, e2)
	require.NoError(t, err)
	got, err = s.GetEntry(ctx, e2.ID)
	require.NoError(t, err)
	assert.True(t, got.Details[0].Debit.Equal(decimal.NewFromInt(150)))

	_, err = s.UpdateEntry(ctx, ledger.JournalEntry{ID: uuid.New(), EntryDate: day("2024-01-01")})
	assert.ErrorIs(t, err, errs.ErrNotFound)

	// lines survive the account they point at
	require.NoError(t, s.DeleteAccount(ctx, equip.ID))
	got, err = s.GetEntry(ctx, e2.ID)
	require.NoError(t, err)
	assert.Len(t, got.Details, 2)

	require.NoError(t, s.DeleteEntry(ctx, e2.ID))
	_, err = s.GetEntry(ctx, e2.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestStore_KeepsFullPrecision(t *testing.T) {
	s := openClean(t)
	ctx := context.Background()

	cash := ledger.Account{ID: uuid.New(), Code: "1000", Name: "Cash", Type: ledger.AccountTypeAsset, Classification: ledger.ClassificationCurrent}
	equity := ledger.Account{ID: uuid.New(), Code: "3000", Name: "Capital", Type: ledger.AccountTypeEquity, Classification: ledger.ClassificationNonCurrent}
	_, err := s.CreateAccounts(ctx, []ledger.Account{cash, equity})
	require.NoError(t, err)

	// finer than a cent and finer than four places
	dr := decimal.RequireFromString("0.00004")
	cr := decimal.RequireFromString("1234567890123456.123456789")
	e := ledger.JournalEntry{
		ID: uuid.New(), EntryDate: day("2024-01-01"), Description: "precision",
		Details: []ledger.JournalLine{
			{AccountID: cash.ID, Debit: dr},
			{AccountID: equity.ID, Credit: dr},
			{AccountID: cash.ID, Debit: cr},
			{AccountID: equity.ID, Credit: cr},
		},
		TotalDebit: dr.Add(cr), TotalCredit: dr.Add(cr),
	}
	_, err = s.CreateEntry(ctx, e)
	require.NoError(t, err)

	got, err := s.GetEntry(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, got.Details, 4)
	assert.True(t, got.Details[0].Debit.Equal(dr), got.Details[0].Debit.String())
	assert.True(t, got.Details[3].Credit.Equal(cr), got.Details[3].Credit.String())
	totals := ledger.SumLines(got.Details)
	assert.True(t, totals.Debit.Equal(got.TotalDebit))
	assert.True(t, totals.Credit.Equal(got.TotalCredit))
	assert.True(t, got.TotalDebit.Equal(e.TotalDebit))
}

func TestStore_Idempotency(t *testing.T) {
	s := openClean(t)
	ctx := context.Background()

	first, second := uuid.New(), uuid.New()
	owner, claimed, err := s.ClaimIdempotencyKey(ctx, "k1", first)
	require.NoError(t, err)
	require.True(t, claimed)
	assert.Equal(t, first, owner)

	owner, claimed, err = s.ClaimIdempotencyKey(ctx, "k1", second)
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.Equal(t, first, owner)

	require.NoError(t, s.ReleaseIdempotencyKey(ctx, "k1", second))
	_, claimed, err = s.ClaimIdempotencyKey(ctx, "k1", second)
	require.NoError(t, err)
	assert.False(t, claimed, "only the owner releases")

	require.NoError(t, s.ReleaseIdempotencyKey(ctx, "k1", first))
	_, claimed, err = s.ClaimIdempotencyKey(ctx, "k1", second)
	require.NoError(t, err)
	assert.True(t, claimed)

	s.SetIdempotencyTTL(-time.Second)
	_, _, err = s.ClaimIdempotencyKey(ctx, "k2", first)
	require.NoError(t, err)
	owner, claimed, err = s.ClaimIdempotencyKey(ctx, "k2", second)
	require.NoError(t, err)
	assert.True(t, claimed, "expired keys are not honoured")
	assert.Equal(t, second, owner)
}

package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refuelos/ledger/internal/errs"
	"github.com/refuelos/ledger/internal/ledger"
)

func mkEntry(date time.Time) ledger.JournalEntry {
	one := decimal.NewFromInt(1)
	return ledger.JournalEntry{
		ID:          uuid.New(),
		EntryDate:   date,
		Description: "x",
		Details: []ledger.JournalLine{
			{AccountID: uuid.New(), Debit: one, Credit: decimal.Zero},
			{AccountID: uuid.New(), Debit: decimal.Zero, Credit: one},
		},
	}
}

func day(n int) time.Time { return time.Date(2025, 1, n, 0, 0, 0, 0, time.UTC) }

func TestListEntries_OrderedAndRanged(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, n := range []int{5, 1, 3, 3, 9} {
		_, err := s.CreateEntry(ctx, mkEntry(day(n)))
		require.NoError(t, err)
	}
	all, err := s.ListEntries(ctx, ledger.DateRange{})
	require.NoError(t, err)
	require.Len(t, all, 5)
	for i := 1; i < len(all); i++ {
		assert.False(t, all[i].EntryDate.Before(all[i-1].EntryDate))
	}

	from, to := day(3), day(5)
	got, err := s.ListEntries(ctx, ledger.Between(&from, &to))
	require.NoError(t, err)
	assert.Len(t, got, 3)

	from, to = day(6), day(8)
	got, err = s.ListEntries(ctx, ledger.Between(&from, &to))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestUpdateEntry_MovesIndex(t *testing.T) {
	ctx := context.Background()
	s := New()
	e, err := s.CreateEntry(ctx, mkEntry(day(1)))
	require.NoError(t, err)

	e.EntryDate = day(20)
	_, err = s.UpdateEntry(ctx, e)
	require.NoError(t, err)

	from, to := day(1), day(1)
	got, _ := s.ListEntries(ctx, ledger.Between(&from, &to))
	assert.Empty(t, got)
	from, to = day(20), day(20)
	got, _ = s.ListEntries(ctx, ledger.Between(&from, &to))
	assert.Len(t, got, 1)

	_, err = s.UpdateEntry(ctx, mkEntry(day(2)))
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestDeleteEntry(t *testing.T) {
	ctx := context.Background()
	s := New()
	e, _ := s.CreateEntry(ctx, mkEntry(day(1)))
	require.NoError(t, s.DeleteEntry(ctx, e.ID))
	all, _ := s.ListEntries(ctx, ledger.DateRange{})
	assert.Empty(t, all)
	assert.ErrorIs(t, s.DeleteEntry(ctx, e.ID), errs.ErrNotFound)
}

func TestEntries_NotAliased(t *testing.T) {
	ctx := context.Background()
	s := New()
	in := mkEntry(day(1))
	_, err := s.CreateEntry(ctx, in)
	require.NoError(t, err)
	in.Details[0].Description = "mutated"
	got, _ := s.GetEntry(ctx, in.ID)
	assert.Empty(t, got.Details[0].Description)
}

func TestAccounts_CodeUniqueness(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := ledger.Account{ID: uuid.New(), Code: "1000", Name: "Cash", Type: ledger.AccountTypeAsset}
	_, err := s.CreateAccount(ctx, a)
	require.NoError(t, err)

	_, err = s.CreateAccount(ctx, ledger.Account{ID: uuid.New(), Code: "1000"})
	assert.ErrorIs(t, err, errs.ErrConflict)

	_, err = s.CreateAccounts(ctx, []ledger.Account{
		{ID: uuid.New(), Code: "2000"},
		{ID: uuid.New(), Code: "1000"},
	})
	assert.ErrorIs(t, err, errs.ErrConflict)
	all, _ := s.ListAccounts(ctx)
	assert.Len(t, all, 1, "batch must be all or nothing")

	require.NoError(t, s.DeleteAccount(ctx, a.ID))
	assert.ErrorIs(t, s.DeleteAccount(ctx, a.ID), errs.ErrNotFound)
}

func TestIdempotencyKeys_Expire(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	s.SetIdempotencyTTL(time.Hour)

	first, second := uuid.New(), uuid.New()
	owner, claimed, err := s.ClaimIdempotencyKey(ctx, "k", first)
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Equal(t, first, owner)

	owner, claimed, err = s.ClaimIdempotencyKey(ctx, "k", second)
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.Equal(t, first, owner)

	now = now.Add(2 * time.Hour)
	owner, claimed, err = s.ClaimIdempotencyKey(ctx, "k", second)
	require.NoError(t, err)
	assert.True(t, claimed, "expired bindings can be claimed again")
	assert.Equal(t, second, owner)
}

func TestIdempotencyKeys_Release(t *testing.T) {
	ctx := context.Background()
	s := New()
	first, second := uuid.New(), uuid.New()

	_, _, err := s.ClaimIdempotencyKey(ctx, "k", first)
	require.NoError(t, err)
	require.NoError(t, s.ReleaseIdempotencyKey(ctx, "k", second))
	owner, claimed, err := s.ClaimIdempotencyKey(ctx, "k", second)
	require.NoError(t, err)
	assert.False(t, claimed, "release by a non-owner is ignored")
	assert.Equal(t, first, owner)

	require.NoError(t, s.ReleaseIdempotencyKey(ctx, "k", first))
	_, claimed, err = s.ClaimIdempotencyKey(ctx, "k", second)
	require.NoError(t, err)
	assert.True(t, claimed)
}

package journal

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refuelos/ledger/internal/errs"
	"github.com/refuelos/ledger/internal/ledger"
	"github.com/refuelos/ledger/internal/storage/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func setup(t *testing.T) (*memory.Store, Service) {
	t.Helper()
	store := memory.New()
	for _, a := range testRegistry() {
		store.SeedAccount(a)
	}
	return store, New(store, store, testLogger())
}

func TestCreate_PersistsValidatedEntry(t *testing.T) {
	ctx := context.Background()
	store, svc := setup(t)

	got, warnings, err := svc.Create(ctx, entry(dr(cashID, "100"), cr(revenueID, "100")))
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.NotEqual(t, uuid.Nil, got.ID)

	stored, err := store.GetEntry(ctx, got.ID)
	require.NoError(t, err)
	assert.True(t, stored.TotalDebit.Equal(d("100")))
	assert.Len(t, stored.Details, 2)
}

func TestCreate_RejectedEntryIsNotPersisted(t *testing.T) {
	ctx := context.Background()
	store, svc := setup(t)

	_, _, err := svc.Create(ctx, entry(dr(cashID, "100"), cr(revenueID, "99")))
	assert.ErrorIs(t, err, errs.ErrUnprocessable)

	all, err := store.ListEntries(ctx, ledger.DateRange{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestUpdate_ReplacesInPlace(t *testing.T) {
	ctx := context.Background()
	_, svc := setup(t)

	created, _, err := svc.Create(ctx, entry(dr(cashID, "100"), cr(revenueID, "100")))
	require.NoError(t, err)

	next := entry(dr(cashID, "250"), cr(equityID, "250"))
	next.Description = "Capital injection"
	updated, _, err := svc.Update(ctx, created.ID, next)
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.True(t, updated.TotalCredit.Equal(d("250")))

	_, _, err = svc.Update(ctx, created.ID, entry(dr(cashID, "1")))
	kind, _ := errs.KindOf(err)
	assert.Equal(t, errs.KindTooFewLines, kind)

	_, _, err = svc.Update(ctx, uuid.New(), next)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestDeleteAndGet(t *testing.T) {
	ctx := context.Background()
	_, svc := setup(t)

	created, _, err := svc.Create(ctx, entry(dr(cashID, "10"), cr(revenueID, "10")))
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, created.ID))

	_, err = svc.Get(ctx, created.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, created.ID), errs.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, uuid.Nil), errs.ErrInvalid)
}

func TestList_InclusiveBounds(t *testing.T) {
	ctx := context.Background()
	_, svc := setup(t)
	dates := []time.Time{
		time.Date(2025, 1, 9, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 21, 0, 0, 0, 0, time.UTC),
	}
	for _, dt := range dates {
		e := entry(dr(cashID, "1"), cr(revenueID, "1"))
		e.EntryDate = dt
		_, _, err := svc.Create(ctx, e)
		require.NoError(t, err)
	}

	got, err := svc.List(ctx, ledger.Between(&dates[1], &dates[2]))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, dates[1], got[0].EntryDate)
	assert.Equal(t, dates[2], got[1].EntryDate)

	_, err = svc.List(ctx, ledger.Between(&dates[2], &dates[1]))
	assert.ErrorIs(t, err, errs.ErrInvalid)
}

func TestCreate_KeepsPreassignedID(t *testing.T) {
	ctx := context.Background()
	store, svc := setup(t)

	e := entry(dr(cashID, "10"), cr(revenueID, "10"))
	e.ID = uuid.New()
	got, _, err := svc.Create(ctx, e)
	require.NoError(t, err)
	assert.Equal(t, e.ID, got.ID)

	_, err = store.GetEntry(ctx, e.ID)
	require.NoError(t, err)

	_, _, err = svc.Create(ctx, e)
	assert.ErrorIs(t, err, errs.ErrConflict)
}

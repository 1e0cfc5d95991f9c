package journal

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refuelos/ledger/internal/errs"
	"github.com/refuelos/ledger/internal/ledger"
)

func TestEditor_StartsWithTwoLines(t *testing.T) {
	e := NewEditor()
	assert.Equal(t, 2, e.Len())
	st := e.Status()
	assert.True(t, st.TotalDebit.IsZero())
	assert.True(t, st.IsBalanced)
}

func TestEditor_RemoveGuardedByMinimum(t *testing.T) {
	e := NewEditor()
	_, err := e.RemoveAt(0)
	kind, ok := errs.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, errs.KindTooFewLines, kind)

	e3 := e.Append()
	assert.Equal(t, 3, e3.Len())
	assert.Equal(t, 2, e.Len(), "receiver must not change")

	e2, err := e3.RemoveAt(2)
	require.NoError(t, err)
	assert.Equal(t, 2, e2.Len())

	_, err = e3.RemoveAt(7)
	assert.ErrorIs(t, err, errs.ErrInvalid)
}

func TestEditor_LiveTotals(t *testing.T) {
	acc := uuid.New()
	e := NewEditor()
	var err error
	e, err = e.SetField(0, FieldAccount, acc.String())
	require.NoError(t, err)
	e, err = e.SetField(0, FieldDebit, "100")
	require.NoError(t, err)

	st := e.Status()
	assert.False(t, st.IsBalanced)
	assert.Equal(t, "100.00", st.Difference.StringFixed(2))

	e, err = e.SetField(1, FieldCredit, "99.995")
	require.NoError(t, err)
	st = e.Status()
	assert.True(t, st.IsBalanced)
	assert.Equal(t, "99.995", st.TotalCredit.String())

	e, err = e.SetField(1, FieldDebit, "5")
	require.NoError(t, err)
	assert.Equal(t, []int{1}, e.Status().DualSided)

	e, err = e.SetField(1, FieldDebit, "")
	require.NoError(t, err)
	assert.Empty(t, e.Status().DualSided)

	assert.Equal(t, acc, e.Lines()[0].AccountID)
}

func TestEditor_SetFieldRejectsBadInput(t *testing.T) {
	e := NewEditor()
	_, err := e.SetField(0, FieldDebit, "-1")
	kind, ok := errs.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, errs.KindInvalidAmount, kind)

	_, err = e.SetField(0, FieldCredit, "ten")
	kind, _ = errs.KindOf(err)
	assert.Equal(t, errs.KindInvalidAmount, kind)

	_, err = e.SetField(0, FieldAccount, "not-a-uuid")
	assert.ErrorIs(t, err, errs.ErrInvalid)

	_, err = e.SetField(0, Field("memo"), "x")
	assert.ErrorIs(t, err, errs.ErrInvalid)

	_, err = e.SetField(5, FieldDescription, "x")
	assert.ErrorIs(t, err, errs.ErrInvalid)
}

func TestEditor_EntryFeedsValidator(t *testing.T) {
	e := NewEditor()
	e, _ = e.SetField(0, FieldAccount, cashID.String())
	e, _ = e.SetField(0, FieldDebit, "250")
	e, _ = e.SetField(1, FieldAccount, revenueID.String())
	e, _ = e.SetField(1, FieldCredit, "250")
	e, _ = e.SetField(1, FieldDescription, "  pump 3 ")

	candidate := e.Entry(ledger.JournalEntry{EntryDate: entry().EntryDate, Description: "Shift close"})
	got, _, err := NewValidator(testRegistry()).Validate(t.Context(), candidate)
	require.NoError(t, err)
	assert.Equal(t, "pump 3", got.Details[1].Description)
	assert.True(t, got.TotalCredit.Equal(d("250")))
}

package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountType enumerates the broad classification of an account in the chart of accounts.
type AccountType string

const (
	// AccountTypeAsset increases on the debit side and holds resources owned by the business.
	AccountTypeAsset AccountType = "ASSET"
	// AccountTypeLiability increases on the credit side and tracks obligations.
	AccountTypeLiability AccountType = "LIABILITY"
	// AccountTypeEquity captures the owner's residual interest in the business.
	AccountTypeEquity AccountType = "EQUITY"
	// AccountTypeRevenue represents inflows that increase equity.
	AccountTypeRevenue AccountType = "REVENUE"
	// AccountTypeExpense represents outflows that decrease equity.
	AccountTypeExpense AccountType = "EXPENSE"
)

// Valid reports whether t is one of the known account types.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

// DebitNormal reports whether the account type increases on the debit side.
func (t AccountType) DebitNormal() bool {
	return t == AccountTypeAsset || t == AccountTypeExpense
}

// Classification is informational only and never used in balance computation.
type Classification string

const (
	ClassificationCurrent      Classification = "CURRENT"
	ClassificationNonCurrent   Classification = "NON_CURRENT"
	ClassificationOperating    Classification = "OPERATING"
	ClassificationNonOperating Classification = "NON_OPERATING"
)

// Valid reports whether c is one of the known classifications.
func (c Classification) Valid() bool {
	switch c {
	case ClassificationCurrent, ClassificationNonCurrent, ClassificationOperating, ClassificationNonOperating:
		return true
	}
	return false
}

// Account represents a single ledger account in the chart of accounts.
type Account struct {
	ID             uuid.UUID
	Code           string
	Name           string
	Type           AccountType
	Classification Classification
	// CurrentBalance is a denormalized cache; the authoritative balance is
	// always recomputed from posted entries.
	CurrentBalance decimal.Decimal
}

// NormalBalance returns the balance of the account on its normal side given raw sums.
func (a Account) NormalBalance(debit, credit decimal.Decimal) decimal.Decimal {
	if a.Type.DebitNormal() {
		return debit.Sub(credit)
	}
	return credit.Sub(debit)
}

// JournalLine is one debit-or-credit movement within an entry.
type JournalLine struct {
	AccountID   uuid.UUID
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Description string
}

// DualSided reports whether the line carries a nonzero value on both sides.
func (l JournalLine) DualSided() bool {
	return !l.Debit.IsZero() && !l.Credit.IsZero()
}

// JournalEntry is one atomic accounting transaction.
type JournalEntry struct {
	ID          uuid.UUID
	EntryDate   time.Time
	Reference   string
	Description string
	Details     []JournalLine
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
}

// AccountIDs returns the distinct account ids referenced by the entry, in line order.
func (e JournalEntry) AccountIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(e.Details))
	out := make([]uuid.UUID, 0, len(e.Details))
	for _, ln := range e.Details {
		if _, ok := seen[ln.AccountID]; ok {
			continue
		}
		seen[ln.AccountID] = struct{}{}
		out = append(out, ln.AccountID)
	}
	return out
}

// Clone returns a copy of the entry whose Details slice is not shared.
func (e JournalEntry) Clone() JournalEntry {
	out := e
	out.Details = append([]JournalLine(nil), e.Details...)
	return out
}

// AggregatedBalance is the per-account net position over a set of entries.
// It is derived and never persisted.
type AggregatedBalance struct {
	Account Account
	Debit   decimal.Decimal
	Credit  decimal.Decimal
}

// Balance returns the aggregated balance on the account's normal side.
func (b AggregatedBalance) Balance() decimal.Decimal {
	return b.Account.NormalBalance(b.Debit, b.Credit)
}

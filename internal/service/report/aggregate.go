// Package report derives the trial balance, balance sheet and profit & loss
// from posted journal entries. The builders are pure functions; Service adds
// the fetching and logging around them.
package report

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/refuelos/ledger/internal/code"
	"github.com/refuelos/ledger/internal/errs"
	"github.com/refuelos/ledger/internal/ledger"
)

// Aggregate sums debits and credits per account over the entries that fall
// inside r. An entry is either wholly in or wholly out of the range. Lines whose
// account is missing from accounts are skipped and reported as warnings.
// The result holds one balance per account with at least one in-scope line,
// ordered by account code.
func Aggregate(accounts []ledger.Account, entries []ledger.JournalEntry, r ledger.DateRange) ([]ledger.AggregatedBalance, []errs.Warning) {
	byID := make(map[uuid.UUID]ledger.Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}

	acc := make(map[uuid.UUID]*ledger.AggregatedBalance)
	var warnings []errs.Warning
	for _, e := range entries {
		if !r.Contains(e.EntryDate) {
			continue
		}
		for i, ln := range e.Details {
			a, ok := byID[ln.AccountID]
			if !ok {
				warnings = append(warnings, errs.DanglingAccount(e.ID, ln.AccountID, i))
				continue
			}
			b, ok := acc[a.ID]
			if !ok {
				b = &ledger.AggregatedBalance{Account: a, Debit: decimal.Zero, Credit: decimal.Zero}
				acc[a.ID] = b
			}
			b.Debit = b.Debit.Add(ln.Debit)
			b.Credit = b.Credit.Add(ln.Credit)
		}
	}

	out := make([]ledger.AggregatedBalance, 0, len(acc))
	for _, b := range acc {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Account.Code != out[j].Account.Code {
			return code.Less(out[i].Account.Code, out[j].Account.Code)
		}
		return out[i].Account.ID.String() < out[j].Account.ID.String()
	})
	return out, warnings
}

// Carried is the net debit-minus-credit difference that in-range entries carry
// while each is balanced on its own within ledger.Tolerance. Every entry may
// leave up to a cent behind, so report totals are compared net of this sum.
// Entries that are not balanced on their own contribute nothing and show up
// as an imbalance.
func Carried(entries []ledger.JournalEntry, r ledger.DateRange) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range entries {
		if !r.Contains(e.EntryDate) {
			continue
		}
		t := ledger.SumLines(e.Details)
		if !t.Balanced() {
			continue
		}
		sum = sum.Add(t.Debit.Sub(t.Credit))
	}
	return sum
}

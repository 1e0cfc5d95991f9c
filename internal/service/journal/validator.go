package journal

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/refuelos/ledger/internal/errs"
	"github.com/refuelos/ledger/internal/ledger"
)

// AccountLookup resolves account ids against the registry. Ids that do not
// resolve are absent from the returned map.
type AccountLookup interface {
	AccountsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]ledger.Account, error)
}

// Validator enforces the structural and balance rules a journal entry must
// satisfy before it may be persisted. It has no side effects.
type Validator struct {
	accounts AccountLookup
}

func NewValidator(accounts AccountLookup) *Validator { return &Validator{accounts: accounts} }

// Validate checks the candidate and returns a ready-to-persist copy whose
// totals are derived from its lines. Caller-supplied totals are ignored.
//
// A rejected candidate yields a *errs.ValidationError. A non-nil error of any
// other type comes from the account lookup.
func (v *Validator) Validate(ctx context.Context, candidate ledger.JournalEntry) (ledger.JournalEntry, []errs.Warning, error) {
	if candidate.EntryDate.IsZero() {
		return ledger.JournalEntry{}, nil, errs.MissingField("entry_date")
	}
	desc := strings.TrimSpace(candidate.Description)
	if desc == "" {
		return ledger.JournalEntry{}, nil, errs.MissingField("description")
	}
	if len(candidate.Details) < 2 {
		return ledger.JournalEntry{}, nil, errs.TooFewLines()
	}

	var warnings []errs.Warning
	for i, ln := range candidate.Details {
		if ln.Debit.IsNegative() {
			return ledger.JournalEntry{}, nil, errs.InvalidAmount(i, "debit")
		}
		if ln.Credit.IsNegative() {
			return ledger.JournalEntry{}, nil, errs.InvalidAmount(i, "credit")
		}
		if ln.AccountID == uuid.Nil {
			return ledger.JournalEntry{}, nil, errs.UnknownAccount(i, ln.AccountID)
		}
		if ln.DualSided() {
			warnings = append(warnings, errs.DualSidedLine(i, ln.AccountID))
		}
	}

	found, err := v.accounts.AccountsByIDs(ctx, candidate.AccountIDs())
	if err != nil {
		return ledger.JournalEntry{}, nil, err
	}
	for i, ln := range candidate.Details {
		if _, ok := found[ln.AccountID]; !ok {
			return ledger.JournalEntry{}, nil, errs.UnknownAccount(i, ln.AccountID)
		}
	}

	totals := ledger.SumLines(candidate.Details)
	if !totals.Balanced() {
		return ledger.JournalEntry{}, nil, errs.Unbalanced(totals.Debit, totals.Credit, totals.Difference())
	}

	out := candidate.Clone()
	out.EntryDate = ledger.DateOf(candidate.EntryDate)
	out.Reference = strings.TrimSpace(candidate.Reference)
	out.Description = desc
	for i := range out.Details {
		out.Details[i].Description = strings.TrimSpace(out.Details[i].Description)
	}
	out.TotalDebit = totals.Debit
	out.TotalCredit = totals.Credit
	return out, warnings, nil
}

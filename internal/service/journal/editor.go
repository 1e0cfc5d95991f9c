package journal

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/refuelos/ledger/internal/errs"
	"github.com/refuelos/ledger/internal/ledger"
)

// Field names an editable column of a line.
type Field string

const (
	FieldAccount     Field = "account"
	FieldDescription Field = "description"
	FieldDebit       Field = "debit"
	FieldCredit      Field = "credit"
)

// Status is the live balance shown while lines are being edited. It is
// informational; only Validate decides whether an entry may be persisted.
type Status struct {
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
	Difference  decimal.Decimal
	IsBalanced  bool
	// DualSided lists the indexes of lines carrying both a debit and a credit.
	DualSided []int
}

// Editor is an immutable line list. Every transition returns a new Editor and
// leaves the receiver untouched.
type Editor struct {
	lines []ledger.JournalLine
}

// NewEditor starts from the given lines, padding with blank lines up to the
// two-line minimum.
func NewEditor(lines ...ledger.JournalLine) Editor {
	out := make([]ledger.JournalLine, 0, max(len(lines), 2))
	out = append(out, lines...)
	for len(out) < 2 {
		out = append(out, blankLine())
	}
	return Editor{lines: out}
}

func blankLine() ledger.JournalLine {
	return ledger.JournalLine{Debit: decimal.Zero, Credit: decimal.Zero}
}

// Lines returns a copy of the current lines.
func (e Editor) Lines() []ledger.JournalLine {
	return append([]ledger.JournalLine(nil), e.lines...)
}

// Len returns the number of lines.
func (e Editor) Len() int { return len(e.lines) }

// Append adds a blank line at the end. No validation happens here.
func (e Editor) Append() Editor {
	next := e.Lines()
	next = append(next, blankLine())
	return Editor{lines: next}
}

// RemoveAt drops line i. Removal that would leave fewer than two lines is
// rejected with a TooFewLines error.
func (e Editor) RemoveAt(i int) (Editor, error) {
	if i < 0 || i >= len(e.lines) {
		return e, fmt.Errorf("line[%d]: %w", i, errs.ErrInvalid)
	}
	if len(e.lines) <= 2 {
		return e, errs.TooFewLines()
	}
	next := make([]ledger.JournalLine, 0, len(e.lines)-1)
	next = append(next, e.lines[:i]...)
	next = append(next, e.lines[i+1:]...)
	return Editor{lines: next}, nil
}

// SetField changes one column of line i. Amounts accept an empty string as zero
// and must otherwise be non-negative decimals; the account must be a UUID or empty.
func (e Editor) SetField(i int, f Field, value string) (Editor, error) {
	if i < 0 || i >= len(e.lines) {
		return e, fmt.Errorf("line[%d]: %w", i, errs.ErrInvalid)
	}
	next := e.Lines()
	ln := next[i]
	value = strings.TrimSpace(value)
	switch f {
	case FieldAccount:
		if value == "" {
			ln.AccountID = uuid.Nil
			break
		}
		id, err := uuid.Parse(value)
		if err != nil {
			return e, fmt.Errorf("line[%d]: account: %w", i, errs.ErrInvalid)
		}
		ln.AccountID = id
	case FieldDescription:
		ln.Description = value
	case FieldDebit, FieldCredit:
		amt, err := parseAmount(value)
		if err != nil {
			return e, errs.InvalidAmount(i, string(f))
		}
		if f == FieldDebit {
			ln.Debit = amt
		} else {
			ln.Credit = amt
		}
	default:
		return e, fmt.Errorf("unknown field %q: %w", f, errs.ErrInvalid)
	}
	next[i] = ln
	return Editor{lines: next}, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative amount %s", s)
	}
	return d, nil
}

// Status recomputes the live totals for the current lines.
func (e Editor) Status() Status {
	return StatusOf(e.lines)
}

// StatusOf computes live totals for an arbitrary line list.
func StatusOf(lines []ledger.JournalLine) Status {
	t := ledger.SumLines(lines)
	st := Status{
		TotalDebit:  t.Debit,
		TotalCredit: t.Credit,
		Difference:  t.Difference(),
		IsBalanced:  t.Balanced(),
	}
	for i, ln := range lines {
		if ln.DualSided() {
			st.DualSided = append(st.DualSided, i)
		}
	}
	return st
}

// Entry assembles a candidate entry from the current lines for Validate.
func (e Editor) Entry(header ledger.JournalEntry) ledger.JournalEntry {
	header.Details = e.Lines()
	return header
}

package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-date layout used on the wire and in storage.
const DateLayout = "2006-01-02"

// Tolerance absorbs rounding noise when comparing debit and credit sides.
var Tolerance = decimal.New(1, -2)

// Totals summarises the two sides of a set of lines.
type Totals struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

// SumLines adds up the debit and credit columns at full precision.
func SumLines(lines []JournalLine) Totals {
	t := Totals{Debit: decimal.Zero, Credit: decimal.Zero}
	for _, ln := range lines {
		t.Debit = t.Debit.Add(ln.Debit)
		t.Credit = t.Credit.Add(ln.Credit)
	}
	return t
}

// Difference returns debit minus credit, each rounded to 2 places first.
// Rounding applies to the comparison only; stored totals keep full precision.
func (t Totals) Difference() decimal.Decimal {
	return t.Debit.Round(2).Sub(t.Credit.Round(2))
}

// Balanced reports whether the two sides agree within Tolerance.
func (t Totals) Balanced() bool {
	return WithinTolerance(t.Debit, t.Credit)
}

// WithinTolerance reports whether abs(round2(a) - round2(b)) <= Tolerance.
func WithinTolerance(a, b decimal.Decimal) bool {
	return a.Round(2).Sub(b.Round(2)).Abs().LessThanOrEqual(Tolerance)
}

// DateOf strips the time-of-day component, keeping the calendar date in UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// DateRange is an optional inclusive window over entry dates. A nil bound is
// unbounded on that side.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

// AsOf returns a range with an unbounded start and the given inclusive cutoff.
func AsOf(cutoff time.Time) DateRange {
	c := DateOf(cutoff)
	return DateRange{End: &c}
}

// Between returns a range over [start, end]; either may be nil.
func Between(start, end *time.Time) DateRange {
	r := DateRange{}
	if start != nil {
		s := DateOf(*start)
		r.Start = &s
	}
	if end != nil {
		e := DateOf(*end)
		r.End = &e
	}
	return r
}

// Contains reports whether the calendar date d falls inside the range.
func (r DateRange) Contains(d time.Time) bool {
	day := DateOf(d)
	if r.Start != nil && day.Before(*r.Start) {
		return false
	}
	if r.End != nil && day.After(*r.End) {
		return false
	}
	return true
}

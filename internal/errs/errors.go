package errs

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Common sentinel errors for cross-layer signaling.
var (
	ErrNotFound = errors.New("not_found")
	ErrConflict = errors.New("conflict")
	ErrInvalid  = errors.New("invalid")
	// ErrImmutable indicates an attempt to change immutable fields
	ErrImmutable = errors.New("immutable")
	// ErrUnprocessable is used for semantic validation failures (HTTP 422)
	ErrUnprocessable = errors.New("unprocessable")
	// ErrDanglingReference is returned by reports in strict mode when a posted
	// line refers to an account that is no longer in the registry.
	ErrDanglingReference = errors.New("dangling_account_reference")
)

// Kind identifies why a candidate entry was rejected.
type Kind string

const (
	KindMissingField   Kind = "missing_field"
	KindTooFewLines    Kind = "too_few_lines"
	KindUnknownAccount Kind = "unknown_account"
	KindUnbalanced     Kind = "unbalanced_entry"
	KindInvalidAmount  Kind = "invalid_amount"
)

// ValidationError rejects a candidate journal entry. It always blocks persistence.
type ValidationError struct {
	Kind      Kind
	Field     string
	Line      int
	AccountID uuid.UUID
	// Set for KindUnbalanced only.
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
	Difference  decimal.Decimal
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case KindMissingField:
		return e.Field + " is required"
	case KindTooFewLines:
		return "entry requires at least 2 lines"
	case KindUnknownAccount:
		return fmt.Sprintf("line[%d]: account %s not found", e.Line, e.AccountID)
	case KindUnbalanced:
		return fmt.Sprintf("sum(debits) %s must equal sum(credits) %s (difference %s)",
			e.TotalDebit.StringFixed(2), e.TotalCredit.StringFixed(2), e.Difference.StringFixed(2))
	case KindInvalidAmount:
		return fmt.Sprintf("line[%d]: %s must be a non-negative amount", e.Line, e.Field)
	}
	return string(e.Kind)
}

// Unwrap lets callers match any validation failure with errors.Is(err, ErrUnprocessable).
func (e *ValidationError) Unwrap() error { return ErrUnprocessable }

// MissingField builds a KindMissingField error.
func MissingField(field string) *ValidationError {
	return &ValidationError{Kind: KindMissingField, Field: field, Line: -1}
}

// TooFewLines builds a KindTooFewLines error.
func TooFewLines() *ValidationError {
	return &ValidationError{Kind: KindTooFewLines, Field: "details", Line: -1}
}

// UnknownAccount builds a KindUnknownAccount error for the given line.
func UnknownAccount(line int, id uuid.UUID) *ValidationError {
	return &ValidationError{Kind: KindUnknownAccount, Field: "account", Line: line, AccountID: id}
}

// InvalidAmount builds a KindInvalidAmount error for the given line and column.
func InvalidAmount(line int, field string) *ValidationError {
	return &ValidationError{Kind: KindInvalidAmount, Field: field, Line: line}
}

// Unbalanced builds a KindUnbalanced error carrying both totals and the signed difference.
func Unbalanced(debit, credit, diff decimal.Decimal) *ValidationError {
	return &ValidationError{Kind: KindUnbalanced, Line: -1, TotalDebit: debit, TotalCredit: credit, Difference: diff}
}

// KindOf returns the validation kind carried by err, if any.
func KindOf(err error) (Kind, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Kind, true
	}
	return "", false
}

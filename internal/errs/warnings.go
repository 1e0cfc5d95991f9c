package errs

import (
	"fmt"

	"github.com/google/uuid"
)

// WarningKind identifies a non-fatal condition surfaced alongside a result.
type WarningKind string

const (
	// WarnDanglingAccount marks a posted line whose account is no longer in the registry.
	WarnDanglingAccount WarningKind = "dangling_account_reference"
	// WarnDualSidedLine marks a line carrying both a debit and a credit.
	WarnDualSidedLine WarningKind = "dual_sided_line"
)

// Warning is reported to the caller but never stops the operation.
type Warning struct {
	Kind      WarningKind `json:"kind"`
	EntryID   uuid.UUID   `json:"entry_id"`
	AccountID uuid.UUID   `json:"account_id"`
	Line      int         `json:"line"`
	Message   string      `json:"message"`
}

// DanglingAccount builds a WarnDanglingAccount warning.
func DanglingAccount(entryID, accountID uuid.UUID, line int) Warning {
	return Warning{
		Kind:      WarnDanglingAccount,
		EntryID:   entryID,
		AccountID: accountID,
		Line:      line,
		Message:   fmt.Sprintf("entry %s line[%d] references missing account %s; excluded", entryID, line, accountID),
	}
}

// DualSidedLine builds a WarnDualSidedLine warning.
func DualSidedLine(line int, accountID uuid.UUID) Warning {
	return Warning{
		Kind:      WarnDualSidedLine,
		AccountID: accountID,
		Line:      line,
		Message:   fmt.Sprintf("line[%d] carries both a debit and a credit", line),
	}
}

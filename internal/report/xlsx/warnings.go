package xlsx

import "github.com/refuelos/ledger/internal/errs"

type warning struct {
	kind    string
	entry   string
	account string
	line    int
	message string
}

func toWarnings(ws []errs.Warning) []warning {
	out := make([]warning, 0, len(ws))
	for _, w := range ws {
		out = append(out, warning{
			kind:    string(w.Kind),
			entry:   w.EntryID.String(),
			account: w.AccountID.String(),
			line:    w.Line,
			message: w.Message,
		})
	}
	return out
}

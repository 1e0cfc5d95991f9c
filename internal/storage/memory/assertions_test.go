package memory_test

import (
	"github.com/refuelos/ledger/internal/httpapi"
	"github.com/refuelos/ledger/internal/service/account"
	"github.com/refuelos/ledger/internal/service/journal"
	"github.com/refuelos/ledger/internal/service/report"
	"github.com/refuelos/ledger/internal/storage/memory"
)

// Compile-time interface assertions documenting which interfaces Store satisfies.
var (
	_ journal.Repo             = (*memory.Store)(nil)
	_ journal.Writer           = (*memory.Store)(nil)
	_ account.Repo             = (*memory.Store)(nil)
	_ account.Writer           = (*memory.Store)(nil)
	_ account.BatchWriter      = (*memory.Store)(nil)
	_ report.Repo              = (*memory.Store)(nil)
	_ httpapi.IdempotencyStore = (*memory.Store)(nil)
	_ httpapi.ReadinessChecker = (*memory.Store)(nil)
)

package postgres_test

import (
	"github.com/refuelos/ledger/internal/httpapi"
	"github.com/refuelos/ledger/internal/service/account"
	"github.com/refuelos/ledger/internal/service/journal"
	"github.com/refuelos/ledger/internal/service/report"
	"github.com/refuelos/ledger/internal/storage/postgres"
)

// Compile-time interface assertions documenting which interfaces Store satisfies.
var (
	_ journal.Repo             = (*postgres.Store)(nil)
	_ journal.Writer           = (*postgres.Store)(nil)
	_ account.Repo             = (*postgres.Store)(nil)
	_ account.Writer           = (*postgres.Store)(nil)
	_ account.BatchWriter      = (*postgres.Store)(nil)
	_ report.Repo              = (*postgres.Store)(nil)
	_ httpapi.IdempotencyStore = (*postgres.Store)(nil)
	_ httpapi.ReadinessChecker = (*postgres.Store)(nil)
)

// Package postgres provides a pgx-backed storage implementation that satisfies
// the repository and writer interfaces used by the services and the HTTP API.
//
// Schema lives in migrations/ and is applied with Migrate. Amounts travel as
// numeric text so no precision is lost between decimal and the database.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/refuelos/ledger/internal/dictionary"
	"github.com/refuelos/ledger/internal/errs"
	"github.com/refuelos/ledger/internal/ledger"
)

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// Store holds a pgx connection pool and implements the read/write interfaces
// used across the service layer. All methods are safe for concurrent use.
type Store struct {
	pool    *pgxpool.Pool
	idemTTL time.Duration
}

// Open establishes a pgx pool using the provided connection string.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool, idemTTL: 24 * time.Hour}, nil
}

// SetIdempotencyTTL changes how long idempotency keys are honoured.
func (s *Store) SetIdempotencyTTL(ttl time.Duration) { s.idemTTL = ttl }

// Close releases the underlying pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ready pings the pool to verify connectivity.
func (s *Store) Ready(ctx context.Context) error { return s.pool.Ping(ctx) }

// SeedDev inserts the default chart of accounts, skipping codes that already exist.
// It returns how many accounts were added.
func (s *Store) SeedDev(ctx context.Context) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	added := 0
	for _, def := range dictionary.Chart(nil) {
		ct, err := tx.Exec(ctx, `
			insert into accounts (id, code, name, type, classification)
			values ($1,$2,$3,$4,$5)
			on conflict (code) do nothing
		`, uuid.New(), def.Code, def.Name, def.Type, def.Classification)
		if err != nil {
			return 0, err
		}
		added += int(ct.RowsAffected())
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return added, nil
}

func parseAmount(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("decode amount %q: %w", raw, err)
	}
	return d, nil
}

func mapWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", errs.ErrConflict, pgErr.ConstraintName)
	}
	return err
}

// --- Account reads ---

const accountColumns = `id, code, name, type, classification, current_balance::text`

func scanAccount(row pgx.Row) (ledger.Account, error) {
	var a ledger.Account
	var bal string
	if err := row.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.Classification, &bal); err != nil {
		return ledger.Account{}, err
	}
	d, err := parseAmount(bal)
	if err != nil {
		return ledger.Account{}, err
	}
	a.CurrentBalance = d
	return a, nil
}

func collectAccounts(rows pgx.Rows) ([]ledger.Account, error) {
	defer rows.Close()
	out := make([]ledger.Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// AccountsByIDs returns the registered accounts among ids. Unknown ids are absent.
func (s *Store) AccountsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]ledger.Account, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]ledger.Account{}, nil
	}
	rows, err := s.pool.Query(ctx, `select `+accountColumns+` from accounts where id = any($1)`, ids)
	if err != nil {
		return nil, err
	}
	accs, err := collectAccounts(rows)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]ledger.Account, len(accs))
	for _, a := range accs {
		out[a.ID] = a
	}
	return out, nil
}

// ListAccounts returns the whole chart ordered by code.
func (s *Store) ListAccounts(ctx context.Context) ([]ledger.Account, error) {
	rows, err := s.pool.Query(ctx, `select `+accountColumns+` from accounts order by code collate "C"`)
	if err != nil {
		return nil, err
	}
	return collectAccounts(rows)
}

// GetAccount fetches a single account by id.
func (s *Store) GetAccount(ctx context.Context, accountID uuid.UUID) (ledger.Account, error) {
	a, err := scanAccount(s.pool.QueryRow(ctx, `select `+accountColumns+` from accounts where id = $1`, accountID))
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Account{}, errs.ErrNotFound
	}
	return a, err
}

// --- Account writes ---

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertAccount(ctx context.Context, ex execer, a ledger.Account) error {
	_, err := ex.Exec(ctx, `
		insert into accounts (id, code, name, type, classification, current_balance)
		values ($1,$2,$3,$4,$5,$6)
	`, a.ID, a.Code, a.Name, a.Type, a.Classification, a.CurrentBalance.String())
	return mapWriteErr(err)
}

// CreateAccount inserts an account row. A taken code yields errs.ErrConflict.
func (s *Store) CreateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error) {
	if err := insertAccount(ctx, s.pool, a); err != nil {
		return ledger.Account{}, err
	}
	return a, nil
}

// CreateAccounts inserts all accounts in one transaction; nothing is written on failure.
func (s *Store) CreateAccounts(ctx context.Context, accs []ledger.Account) ([]ledger.Account, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	for _, a := range accs {
		if err := insertAccount(ctx, tx, a); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return append([]ledger.Account(nil), accs...), nil
}

// UpdateAccount rewrites code, name and classification. Type is never updated here.
func (s *Store) UpdateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error) {
	ct, err := s.pool.Exec(ctx, `
		update accounts
		set code=$1, name=$2, classification=$3
		where id=$4
	`, a.Code, a.Name, a.Classification, a.ID)
	if err != nil {
		return ledger.Account{}, mapWriteErr(err)
	}
	if ct.RowsAffected() == 0 {
		return ledger.Account{}, errs.ErrNotFound
	}
	return s.GetAccount(ctx, a.ID)
}

// DeleteAccount removes the account row. Journal lines keep their reference.
func (s *Store) DeleteAccount(ctx context.Context, accountID uuid.UUID) error {
	ct, err := s.pool.Exec(ctx, `delete from accounts where id=$1`, accountID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// --- Entry reads ---

const entryColumns = `id, entry_date, reference, description, total_debit::text, total_credit::text`

func scanEntry(row pgx.Row) (ledger.JournalEntry, error) {
	var e ledger.JournalEntry
	var debit, credit string
	if err := row.Scan(&e.ID, &e.EntryDate, &e.Reference, &e.Description, &debit, &credit); err != nil {
		return ledger.JournalEntry{}, err
	}
	var err error
	if e.TotalDebit, err = parseAmount(debit); err != nil {
		return ledger.JournalEntry{}, err
	}
	if e.TotalCredit, err = parseAmount(credit); err != nil {
		return ledger.JournalEntry{}, err
	}
	e.EntryDate = ledger.DateOf(e.EntryDate)
	return e, nil
}

// ListEntries returns entries whose date falls in r (inclusive) with lines
// populated, ordered by date then id.
func (s *Store) ListEntries(ctx context.Context, r ledger.DateRange) ([]ledger.JournalEntry, error) {
	rows, err := s.pool.Query(ctx, `
		select `+entryColumns+`
		from journal_entries
		where ($1::date is null or entry_date >= $1::date)
		  and ($2::date is null or entry_date <= $2::date)
		order by entry_date asc, id asc
	`, r.Start, r.End)
	if err != nil {
		return nil, err
	}
	entries := make([]ledger.JournalEntry, 0)
	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		entries = append(entries, e)
		ids = append(ids, e.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return entries, nil
	}
	idx := make(map[uuid.UUID]int, len(entries))
	for i := range entries {
		idx[entries[i].ID] = i
	}
	lines, err := s.pool.Query(ctx, `
		select entry_id, account_id, debit::text, credit::text, description
		from journal_lines
		where entry_id = any($1)
		order by entry_id, line_no
	`, ids)
	if err != nil {
		return nil, err
	}
	defer lines.Close()
	for lines.Next() {
		var entryID uuid.UUID
		ln, err := scanLine(lines, &entryID)
		if err != nil {
			return nil, err
		}
		i, ok := idx[entryID]
		if !ok {
			continue
		}
		entries[i].Details = append(entries[i].Details, ln)
	}
	return entries, lines.Err()
}

func scanLine(row pgx.Row, entryID *uuid.UUID) (ledger.JournalLine, error) {
	var ln ledger.JournalLine
	var debit, credit string
	if err := row.Scan(entryID, &ln.AccountID, &debit, &credit, &ln.Description); err != nil {
		return ledger.JournalLine{}, err
	}
	var err error
	if ln.Debit, err = parseAmount(debit); err != nil {
		return ledger.JournalLine{}, err
	}
	if ln.Credit, err = parseAmount(credit); err != nil {
		return ledger.JournalLine{}, err
	}
	return ln, nil
}

// GetEntry returns an entry by id with lines populated.
func (s *Store) GetEntry(ctx context.Context, entryID uuid.UUID) (ledger.JournalEntry, error) {
	e, err := scanEntry(s.pool.QueryRow(ctx, `select `+entryColumns+` from journal_entries where id = $1`, entryID))
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.JournalEntry{}, errs.ErrNotFound
	}
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	rows, err := s.pool.Query(ctx, `
		select entry_id, account_id, debit::text, credit::text, description
		from journal_lines
		where entry_id = $1
		order by line_no
	`, entryID)
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var id uuid.UUID
		ln, err := scanLine(rows, &id)
		if err != nil {
			return ledger.JournalEntry{}, err
		}
		e.Details = append(e.Details, ln)
	}
	if err := rows.Err(); err != nil {
		return ledger.JournalEntry{}, err
	}
	return e, nil
}

// --- Entry writes ---

// CreateEntry inserts an entry and its lines in a transaction.
func (s *Store) CreateEntry(ctx context.Context, entry ledger.JournalEntry) (ledger.JournalEntry, error) {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			insert into journal_entries (id, entry_date, reference, description, total_debit, total_credit)
			values ($1,$2,$3,$4,$5,$6)
		`, entry.ID, ledger.DateOf(entry.EntryDate), entry.Reference, entry.Description,
			entry.TotalDebit.String(), entry.TotalCredit.String()); err != nil {
			return mapWriteErr(err)
		}
		return insertLines(ctx, tx, entry)
	})
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	return entry.Clone(), nil
}

// UpdateEntry replaces the header and every line of an existing entry.
func (s *Store) UpdateEntry(ctx context.Context, entry ledger.JournalEntry) (ledger.JournalEntry, error) {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx, `
			update journal_entries
			set entry_date=$1, reference=$2, description=$3, total_debit=$4, total_credit=$5
			where id=$6
		`, ledger.DateOf(entry.EntryDate), entry.Reference, entry.Description,
			entry.TotalDebit.String(), entry.TotalCredit.String(), entry.ID)
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 0 {
			return errs.ErrNotFound
		}
		if _, err := tx.Exec(ctx, `delete from journal_lines where entry_id=$1`, entry.ID); err != nil {
			return err
		}
		return insertLines(ctx, tx, entry)
	})
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	return entry.Clone(), nil
}

// DeleteEntry removes an entry; its lines go with it.
func (s *Store) DeleteEntry(ctx context.Context, entryID uuid.UUID) error {
	ct, err := s.pool.Exec(ctx, `delete from journal_entries where id=$1`, entryID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// insertLines queues every line in one batch, numbering them in entry order.
func insertLines(ctx context.Context, tx pgx.Tx, e ledger.JournalEntry) error {
	batch := &pgx.Batch{}
	for i, ln := range e.Details {
		batch.Queue(`
			insert into journal_lines (entry_id, line_no, account_id, debit, credit, description)
			values ($1,$2,$3,$4,$5,$6)
		`, e.ID, i, ln.AccountID, ln.Debit.String(), ln.Credit.String(), ln.Description)
	}
	br := tx.SendBatch(ctx, batch)
	for i := range e.Details {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("insert line %d: %w", i, err)
		}
	}
	return br.Close()
}

// --- Idempotency ---

// ClaimIdempotencyKey binds key to entryID unless a live binding exists and
// returns the bound entry. An expired binding is taken over.
func (s *Store) ClaimIdempotencyKey(ctx context.Context, key string, entryID uuid.UUID) (uuid.UUID, bool, error) {
	ttl := fmt.Sprintf("%d milliseconds", s.idemTTL.Milliseconds())
	for attempt := 0; attempt < 3; attempt++ {
		var owner uuid.UUID
		err := s.pool.QueryRow(ctx, `
			insert into idempotency_keys (key, entry_id, expires_at)
			values ($1, $2, now() + $3::interval)
			on conflict (key) do update
			set entry_id = excluded.entry_id, expires_at = excluded.expires_at
			where idempotency_keys.expires_at <= now()
			returning entry_id
		`, key, entryID, ttl).Scan(&owner)
		if err == nil {
			return owner, owner == entryID, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, false, err
		}
		// a live binding blocked the upsert
		err = s.pool.QueryRow(ctx, `
			select entry_id from idempotency_keys where key=$1 and expires_at > now()
		`, key).Scan(&owner)
		if err == nil {
			return owner, owner == entryID, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, false, err
		}
	}
	return uuid.Nil, false, fmt.Errorf("claim idempotency key %q: binding keeps expiring", key)
}

// ReleaseIdempotencyKey drops key if it is still bound to entryID.
func (s *Store) ReleaseIdempotencyKey(ctx context.Context, key string, entryID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `delete from idempotency_keys where key=$1 and entry_id=$2`, key, entryID)
	return err
}

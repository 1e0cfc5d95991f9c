// Package memory provides a simple in-memory implementation used for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/refuelos/ledger/internal/errs"
	"github.com/refuelos/ledger/internal/ledger"
)

// entryKey tracks ordering for entries: sorted asc by (EntryDate, ID)
type entryKey struct {
	Date time.Time
	ID   uuid.UUID
}

func (k entryKey) less(o entryKey) bool {
	if !k.Date.Equal(o.Date) {
		return k.Date.Before(o.Date)
	}
	return k.ID.String() < o.ID.String()
}

type idemRecord struct {
	entryID uuid.UUID
	expires time.Time
}

// Store is an in-memory implementation of the repositories and writers used by
// the services. It is guarded by an RWMutex for concurrent reads/writes.
type Store struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]ledger.Account
	entries  map[uuid.UUID]ledger.JournalEntry
	// Sorted index of entries for ordered date-range scans
	entryKeys []entryKey
	// Idempotency: key -> entry
	idem    map[string]idemRecord
	idemTTL time.Duration
	now     func() time.Time
}

// New constructs an empty in-memory store.
func New() *Store {
	return &Store{
		accounts: make(map[uuid.UUID]ledger.Account),
		entries:  make(map[uuid.UUID]ledger.JournalEntry),
		idem:     make(map[string]idemRecord),
		idemTTL:  24 * time.Hour,
		now:      time.Now,
	}
}

// SetIdempotencyTTL changes how long idempotency keys are remembered.
func (s *Store) SetIdempotencyTTL(ttl time.Duration) {
	s.mu.Lock()
	s.idemTTL = ttl
	s.mu.Unlock()
}

// Seed helpers for local dev/tests.
func (s *Store) SeedAccount(a ledger.Account) { s.mu.Lock(); s.accounts[a.ID] = a; s.mu.Unlock() }

// SeedEntry stores e as-is, bypassing validation. Tests use it to build
// ledgers that a validated write path could never produce.
func (s *Store) SeedEntry(e ledger.JournalEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putEntryLocked(e.Clone())
}

func (s *Store) Reset() {
	s.mu.Lock()
	s.accounts = map[uuid.UUID]ledger.Account{}
	s.entries = map[uuid.UUID]ledger.JournalEntry{}
	s.entryKeys = nil
	s.idem = map[string]idemRecord{}
	s.mu.Unlock()
}

// Ready always succeeds; there is nothing to connect to.
func (s *Store) Ready(context.Context) error { return nil }

// AccountsByIDs returns the accounts among ids that exist.
func (s *Store) AccountsByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[uuid.UUID]ledger.Account, len(ids))
	for _, id := range ids {
		if acc, ok := s.accounts[id]; ok {
			out[id] = acc
		}
	}
	return out, nil
}

// ListAccounts returns every account, unordered.
func (s *Store) ListAccounts(_ context.Context) ([]ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a)
	}
	return out, nil
}

func (s *Store) GetAccount(_ context.Context, accountID uuid.UUID) (ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[accountID]
	if !ok {
		return ledger.Account{}, errs.ErrNotFound
	}
	return a, nil
}

// CreateAccount persists a new account. Codes are unique.
func (s *Store) CreateAccount(_ context.Context, a ledger.Account) (ledger.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.codeTakenLocked(a.Code, a.ID) {
		return ledger.Account{}, errs.ErrConflict
	}
	s.accounts[a.ID] = a
	return a, nil
}

// CreateAccounts inserts all accounts or none.
func (s *Store) CreateAccounts(_ context.Context, accs []ledger.Account) ([]ledger.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]struct{}, len(accs))
	for _, a := range accs {
		if _, dup := seen[a.Code]; dup || s.codeTakenLocked(a.Code, a.ID) {
			return nil, errs.ErrConflict
		}
		seen[a.Code] = struct{}{}
	}
	for _, a := range accs {
		s.accounts[a.ID] = a
	}
	return append([]ledger.Account(nil), accs...), nil
}

// UpdateAccount persists changes to an account.
func (s *Store) UpdateAccount(_ context.Context, a ledger.Account) (ledger.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[a.ID]; !ok {
		return ledger.Account{}, errs.ErrNotFound
	}
	if s.codeTakenLocked(a.Code, a.ID) {
		return ledger.Account{}, errs.ErrConflict
	}
	s.accounts[a.ID] = a
	return a, nil
}

// DeleteAccount removes the account. Lines that reference it are left alone.
func (s *Store) DeleteAccount(_ context.Context, accountID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[accountID]; !ok {
		return errs.ErrNotFound
	}
	delete(s.accounts, accountID)
	return nil
}

func (s *Store) codeTakenLocked(code string, self uuid.UUID) bool {
	for id, a := range s.accounts {
		if id != self && a.Code == code {
			return true
		}
	}
	return false
}

// CreateEntry stores a copy of entry.
func (s *Store) CreateEntry(_ context.Context, entry ledger.JournalEntry) (ledger.JournalEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[entry.ID]; ok {
		return ledger.JournalEntry{}, errs.ErrConflict
	}
	e := entry.Clone()
	s.putEntryLocked(e)
	return e.Clone(), nil
}

// UpdateEntry replaces an existing entry in place.
func (s *Store) UpdateEntry(_ context.Context, entry ledger.JournalEntry) (ledger.JournalEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[entry.ID]; !ok {
		return ledger.JournalEntry{}, errs.ErrNotFound
	}
	e := entry.Clone()
	s.putEntryLocked(e)
	return e.Clone(), nil
}

func (s *Store) DeleteEntry(_ context.Context, entryID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[entryID]
	if !ok {
		return errs.ErrNotFound
	}
	s.removeEntryIndexLocked(entryKey{Date: e.EntryDate, ID: e.ID})
	delete(s.entries, entryID)
	return nil
}

func (s *Store) GetEntry(_ context.Context, entryID uuid.UUID) (ledger.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[entryID]
	if !ok {
		return ledger.JournalEntry{}, errs.ErrNotFound
	}
	return e.Clone(), nil
}

// ListEntries returns entries whose date falls in r (inclusive), ordered by date then id.
func (s *Store) ListEntries(_ context.Context, r ledger.DateRange) ([]ledger.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := s.rangeByDateLocked(r.Start, r.End)
	out := make([]ledger.JournalEntry, 0, len(keys))
	for _, k := range keys {
		if e, ok := s.entries[k.ID]; ok {
			out = append(out, e.Clone())
		}
	}
	return out, nil
}

// ClaimIdempotencyKey binds key to entryID unless a live binding exists, and
// returns the entry the key is bound to afterwards. claimed is true when that
// is entryID.
func (s *Store) ClaimIdempotencyKey(_ context.Context, key string, entryID uuid.UUID) (uuid.UUID, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if rec, ok := s.idem[key]; ok && !now.After(rec.expires) {
		return rec.entryID, rec.entryID == entryID, nil
	}
	s.idem[key] = idemRecord{entryID: entryID, expires: now.Add(s.idemTTL)}
	return entryID, true, nil
}

// ReleaseIdempotencyKey drops the binding of key if it still points at entryID.
func (s *Store) ReleaseIdempotencyKey(_ context.Context, key string, entryID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.idem[key]; ok && rec.entryID == entryID {
		delete(s.idem, key)
	}
	return nil
}

// putEntryLocked stores e and keeps the index in step, moving the key when the
// date changed. Caller must hold s.mu (write lock).
func (s *Store) putEntryLocked(e ledger.JournalEntry) {
	if prev, ok := s.entries[e.ID]; ok {
		s.removeEntryIndexLocked(entryKey{Date: prev.EntryDate, ID: prev.ID})
	}
	s.entries[e.ID] = e
	s.insertEntryIndexLocked(entryKey{Date: ledger.DateOf(e.EntryDate), ID: e.ID})
}

// insertEntryIndexLocked inserts k into the sorted index, keeping order asc by (Date, ID).
// Caller must hold s.mu (write lock).
func (s *Store) insertEntryIndexLocked(k entryKey) {
	i := sort.Search(len(s.entryKeys), func(i int) bool { return k.less(s.entryKeys[i]) })
	s.entryKeys = append(s.entryKeys, entryKey{})
	copy(s.entryKeys[i+1:], s.entryKeys[i:])
	s.entryKeys[i] = k
}

func (s *Store) removeEntryIndexLocked(k entryKey) {
	for i, cur := range s.entryKeys {
		if cur.ID == k.ID {
			s.entryKeys = append(s.entryKeys[:i], s.entryKeys[i+1:]...)
			return
		}
	}
}

// rangeByDateLocked returns a copy of keys within [from,to] inclusive.
// Caller must hold s.mu.
func (s *Store) rangeByDateLocked(from, to *time.Time) []entryKey {
	keys := s.entryKeys
	if len(keys) == 0 {
		return nil
	}
	start := 0
	if from != nil {
		f := ledger.DateOf(*from)
		start = sort.Search(len(keys), func(i int) bool { return !keys[i].Date.Before(f) })
	}
	end := len(keys)
	if to != nil {
		t := ledger.DateOf(*to)
		end = sort.Search(len(keys), func(i int) bool { return keys[i].Date.After(t) })
	}
	if start >= end {
		return nil
	}
	subset := make([]entryKey, end-start)
	copy(subset, keys[start:end])
	return subset
}

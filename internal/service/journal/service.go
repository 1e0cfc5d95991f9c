// Package journal validates, edits and stores journal entries.
package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/refuelos/ledger/internal/errs"
	"github.com/refuelos/ledger/internal/ledger"
)

// Repo defines read operations needed by the service.
type Repo interface {
	AccountLookup
	ListEntries(ctx context.Context, r ledger.DateRange) ([]ledger.JournalEntry, error)
	GetEntry(ctx context.Context, entryID uuid.UUID) (ledger.JournalEntry, error)
}

// Writer defines write operations needed by the service.
type Writer interface {
	CreateEntry(ctx context.Context, entry ledger.JournalEntry) (ledger.JournalEntry, error)
	UpdateEntry(ctx context.Context, entry ledger.JournalEntry) (ledger.JournalEntry, error)
	DeleteEntry(ctx context.Context, entryID uuid.UUID) error
}

// Service exposes validation and persistence of journal entries.
type Service interface {
	Validate(ctx context.Context, e ledger.JournalEntry) (ledger.JournalEntry, []errs.Warning, error)
	Create(ctx context.Context, e ledger.JournalEntry) (ledger.JournalEntry, []errs.Warning, error)
	Update(ctx context.Context, entryID uuid.UUID, e ledger.JournalEntry) (ledger.JournalEntry, []errs.Warning, error)
	Delete(ctx context.Context, entryID uuid.UUID) error
	Get(ctx context.Context, entryID uuid.UUID) (ledger.JournalEntry, error)
	List(ctx context.Context, r ledger.DateRange) ([]ledger.JournalEntry, error)
}

type service struct {
	repo      Repo
	writer    Writer
	validator *Validator
	log       *slog.Logger
}

func New(repo Repo, writer Writer, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &service{repo: repo, writer: writer, validator: NewValidator(repo), log: logger}
}

func (s *service) Validate(ctx context.Context, e ledger.JournalEntry) (ledger.JournalEntry, []errs.Warning, error) {
	return s.validator.Validate(ctx, e)
}

// Create validates and persists a new entry. Nothing is written when validation
// fails. A caller-supplied ID is kept so it can be reserved before posting;
// otherwise one is assigned.
func (s *service) Create(ctx context.Context, e ledger.JournalEntry) (ledger.JournalEntry, []errs.Warning, error) {
	valid, warnings, err := s.validator.Validate(ctx, e)
	if err != nil {
		s.logRejected(ctx, err)
		return ledger.JournalEntry{}, nil, err
	}
	if valid.ID == uuid.Nil {
		valid.ID = uuid.New()
	}
	saved, err := s.writer.CreateEntry(ctx, valid)
	if err != nil {
		return ledger.JournalEntry{}, nil, err
	}
	s.log.InfoContext(ctx, "entry posted", "entry_id", saved.ID, "total_debit", saved.TotalDebit.String(), "lines", len(saved.Details))
	return saved, warnings, nil
}

// Update validates and replaces an existing entry in place.
func (s *service) Update(ctx context.Context, entryID uuid.UUID, e ledger.JournalEntry) (ledger.JournalEntry, []errs.Warning, error) {
	if entryID == uuid.Nil {
		return ledger.JournalEntry{}, nil, errs.ErrInvalid
	}
	if _, err := s.repo.GetEntry(ctx, entryID); err != nil {
		return ledger.JournalEntry{}, nil, err
	}
	valid, warnings, err := s.validator.Validate(ctx, e)
	if err != nil {
		s.logRejected(ctx, err)
		return ledger.JournalEntry{}, nil, err
	}
	valid.ID = entryID
	saved, err := s.writer.UpdateEntry(ctx, valid)
	if err != nil {
		return ledger.JournalEntry{}, nil, err
	}
	s.log.InfoContext(ctx, "entry replaced", "entry_id", saved.ID)
	return saved, warnings, nil
}

func (s *service) Delete(ctx context.Context, entryID uuid.UUID) error {
	if entryID == uuid.Nil {
		return errs.ErrInvalid
	}
	if err := s.writer.DeleteEntry(ctx, entryID); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "entry deleted", "entry_id", entryID)
	return nil
}

func (s *service) Get(ctx context.Context, entryID uuid.UUID) (ledger.JournalEntry, error) {
	if entryID == uuid.Nil {
		return ledger.JournalEntry{}, errs.ErrInvalid
	}
	return s.repo.GetEntry(ctx, entryID)
}

// List returns entries whose date falls in r, ordered by date then id.
func (s *service) List(ctx context.Context, r ledger.DateRange) ([]ledger.JournalEntry, error) {
	if r.Start != nil && r.End != nil && r.Start.After(*r.End) {
		return nil, fmt.Errorf("%w: start_date after end_date", errs.ErrInvalid)
	}
	return s.repo.ListEntries(ctx, r)
}

func (s *service) logRejected(ctx context.Context, err error) {
	var ve *errs.ValidationError
	if errors.As(err, &ve) {
		s.log.DebugContext(ctx, "entry rejected", "kind", ve.Kind, "line", ve.Line, "err", err)
	}
}

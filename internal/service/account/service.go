// Package account implements the account registry: the chart of accounts that
// journal lines reference. The accounting engine only reads from it; the
// management operations here back the ERP API's account screens.
package account

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/refuelos/ledger/internal/code"
	"github.com/refuelos/ledger/internal/errs"
	"github.com/refuelos/ledger/internal/ledger"
)

type Repo interface {
	ListAccounts(ctx context.Context) ([]ledger.Account, error)
	GetAccount(ctx context.Context, accountID uuid.UUID) (ledger.Account, error)
	AccountsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]ledger.Account, error)
}

type Writer interface {
	CreateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error)
	UpdateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error)
	DeleteAccount(ctx context.Context, accountID uuid.UUID) error
}

// BatchWriter is optionally implemented by stores that can insert many
// accounts atomically.
type BatchWriter interface {
	CreateAccounts(ctx context.Context, accs []ledger.Account) ([]ledger.Account, error)
}

type Service interface {
	ValidateCreate(a ledger.Account) error
	Create(ctx context.Context, a ledger.Account) (ledger.Account, error)
	List(ctx context.Context) ([]ledger.Account, error)
	Get(ctx context.Context, accountID uuid.UUID) (ledger.Account, error)
	Lookup(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]ledger.Account, error)
	Update(ctx context.Context, a ledger.Account) (ledger.Account, error)
	Delete(ctx context.Context, accountID uuid.UUID) error
	EnsureAccountsBatch(ctx context.Context, specs []ledger.Account) ([]ledger.Account, []ItemError, error)
}

type service struct {
	repo   Repo
	writer Writer
}

func New(repo Repo, writer Writer) Service { return &service{repo: repo, writer: writer} }

// ItemError represents a per-item failure in a batch operation.
type ItemError struct {
	Index int
	Code  string
	Err   error
}

// ErrCodeExists indicates an account with the same code already exists.
var ErrCodeExists = errors.New("account code already exists")

func normalize(a ledger.Account) ledger.Account {
	a.Code = code.Normalize(a.Code)
	a.Name = strings.TrimSpace(a.Name)
	a.Type = ledger.AccountType(strings.ToUpper(strings.TrimSpace(string(a.Type))))
	a.Classification = ledger.Classification(strings.ToUpper(strings.TrimSpace(string(a.Classification))))
	return a
}

func (s *service) ValidateCreate(account ledger.Account) error {
	account = normalize(account)
	if account.Code == "" {
		return errors.New("code is required")
	}
	if !code.IsCode(account.Code) {
		return errors.New("invalid account code")
	}
	if account.Name == "" {
		return errors.New("name is required")
	}
	if !account.Type.Valid() {
		return errors.New("invalid account type")
	}
	if !account.Classification.Valid() {
		return errors.New("invalid classification")
	}
	return nil
}

func (s *service) Create(ctx context.Context, account ledger.Account) (ledger.Account, error) {
	account = normalize(account)
	if err := s.ValidateCreate(account); err != nil {
		return ledger.Account{}, fmt.Errorf("%w: %v", errs.ErrInvalid, err)
	}
	existing, err := s.repo.ListAccounts(ctx)
	if err != nil {
		return ledger.Account{}, err
	}
	for _, a := range existing {
		if a.Code == account.Code {
			return ledger.Account{}, ErrCodeExists
		}
	}
	account.ID = uuid.New()
	return s.writer.CreateAccount(ctx, account)
}

// List returns the chart of accounts sorted by code ascending.
func (s *service) List(ctx context.Context) ([]ledger.Account, error) {
	accs, err := s.repo.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(accs, func(i, j int) bool { return code.Less(accs[i].Code, accs[j].Code) })
	return accs, nil
}

func (s *service) Get(ctx context.Context, accountID uuid.UUID) (ledger.Account, error) {
	if accountID == uuid.Nil {
		return ledger.Account{}, errs.ErrInvalid
	}
	return s.repo.GetAccount(ctx, accountID)
}

// Lookup resolves ids against the registry. Missing ids are simply absent from the map.
func (s *service) Lookup(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]ledger.Account, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]ledger.Account{}, nil
	}
	return s.repo.AccountsByIDs(ctx, ids)
}

// Update applies changes to code, name and classification. The type is immutable
// because it decides the normal side of every historical posting.
func (s *service) Update(ctx context.Context, a ledger.Account) (ledger.Account, error) {
	if a.ID == uuid.Nil {
		return ledger.Account{}, errs.ErrInvalid
	}
	a = normalize(a)
	current, err := s.repo.GetAccount(ctx, a.ID)
	if err != nil {
		return ledger.Account{}, err
	}
	if a.Type == "" {
		a.Type = current.Type
	}
	if a.Type != current.Type {
		return ledger.Account{}, errs.ErrImmutable
	}
	if err := s.ValidateCreate(a); err != nil {
		return ledger.Account{}, fmt.Errorf("%w: %v", errs.ErrInvalid, err)
	}
	if a.Code != current.Code {
		existing, err := s.repo.ListAccounts(ctx)
		if err != nil {
			return ledger.Account{}, err
		}
		for _, other := range existing {
			if other.ID != a.ID && other.Code == a.Code {
				return ledger.Account{}, ErrCodeExists
			}
		}
	}
	a.CurrentBalance = current.CurrentBalance
	return s.writer.UpdateAccount(ctx, a)
}

// Delete removes the account outright. Entries that referenced it keep the
// reference; reports surface those lines as dangling.
func (s *service) Delete(ctx context.Context, accountID uuid.UUID) error {
	if accountID == uuid.Nil {
		return errs.ErrInvalid
	}
	if _, err := s.repo.GetAccount(ctx, accountID); err != nil {
		return err
	}
	return s.writer.DeleteAccount(ctx, accountID)
}

// EnsureAccountsBatch validates all specs and, if valid, creates the ones whose
// code is not yet taken. Specs whose code already exists with the same type are
// skipped. If any item fails, nothing is created and per-item errors are returned.
func (s *service) EnsureAccountsBatch(ctx context.Context, specs []ledger.Account) ([]ledger.Account, []ItemError, error) {
	errsList := make([]ItemError, 0)
	normalized := make([]ledger.Account, len(specs))
	for i, in := range specs {
		in = normalize(in)
		normalized[i] = in
		if err := s.ValidateCreate(in); err != nil {
			errsList = append(errsList, ItemError{Index: i, Code: "validation_error", Err: err})
		}
	}
	if len(errsList) > 0 {
		return nil, errsList, nil
	}
	existing, err := s.repo.ListAccounts(ctx)
	if err != nil {
		return nil, nil, err
	}
	byCode := make(map[string]ledger.Account, len(existing))
	for _, a := range existing {
		byCode[a.Code] = a
	}
	seen := make(map[string]int)
	toCreate := make([]ledger.Account, 0, len(normalized))
	for i, a := range normalized {
		if prevIdx, ok := seen[a.Code]; ok {
			errsList = append(errsList, ItemError{Index: i, Code: "conflict", Err: ErrCodeExists})
			errsList = append(errsList, ItemError{Index: prevIdx, Code: "conflict", Err: ErrCodeExists})
			continue
		}
		seen[a.Code] = i
		if other, ok := byCode[a.Code]; ok {
			if other.Type != a.Type {
				errsList = append(errsList, ItemError{Index: i, Code: "conflict", Err: ErrCodeExists})
			}
			continue
		}
		a.ID = uuid.New()
		toCreate = append(toCreate, a)
	}
	if len(errsList) > 0 {
		return nil, errsList, nil
	}
	if len(toCreate) == 0 {
		return []ledger.Account{}, nil, nil
	}
	if b, ok := s.writer.(BatchWriter); ok {
		created, err := b.CreateAccounts(ctx, toCreate)
		if err != nil {
			return nil, nil, err
		}
		return created, nil, nil
	}
	created := make([]ledger.Account, 0, len(toCreate))
	for _, a := range toCreate {
		acc, err := s.writer.CreateAccount(ctx, a)
		if err != nil {
			return nil, nil, err
		}
		created = append(created, acc)
	}
	return created, nil, nil
}

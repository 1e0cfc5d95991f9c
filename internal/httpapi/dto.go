package httpapi

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/refuelos/ledger/internal/errs"
	"github.com/refuelos/ledger/internal/ledger"
	"github.com/refuelos/ledger/internal/service/report"
)

// newValidator reports failures under JSON field names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Entries

// entryRequest is the body of POST/PUT /v1/entries. Presence of the date and
// description is left to the journal validator so the caller gets the same
// missing_field error whichever path it takes.
type entryRequest struct {
	EntryDate   string        `json:"entry_date" validate:"omitempty,datetime=2006-01-02"`
	Reference   string        `json:"reference" validate:"max=64"`
	Description string        `json:"description" validate:"max=500"`
	Details     []lineRequest `json:"details" validate:"max=500,dive"`
}

type lineRequest struct {
	AccountID   string           `json:"account_id" validate:"omitempty,uuid"`
	Debit       *decimal.Decimal `json:"debit"`
	Credit      *decimal.Decimal `json:"credit"`
	Description string           `json:"description" validate:"max=500"`
}

// previewRequest is the body of POST /v1/entries/preview.
type previewRequest struct {
	Details []lineRequest `json:"details" validate:"max=500,dive"`
}

func amountOrZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

func toLines(in []lineRequest) []ledger.JournalLine {
	out := make([]ledger.JournalLine, 0, len(in))
	for _, ln := range in {
		id, _ := uuid.Parse(ln.AccountID)
		out = append(out, ledger.JournalLine{
			AccountID:   id,
			Debit:       amountOrZero(ln.Debit),
			Credit:      amountOrZero(ln.Credit),
			Description: ln.Description,
		})
	}
	return out
}

func toEntryDomain(req entryRequest) ledger.JournalEntry {
	var date time.Time
	if req.EntryDate != "" {
		date, _ = ledger.ParseDate(req.EntryDate)
	}
	return ledger.JournalEntry{
		EntryDate:   date,
		Reference:   req.Reference,
		Description: req.Description,
		Details:     toLines(req.Details),
	}
}

type lineResponse struct {
	AccountID   uuid.UUID       `json:"account_id"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description"`
}

type entryResponse struct {
	ID          uuid.UUID       `json:"id"`
	EntryDate   string          `json:"entry_date"`
	Reference   string          `json:"reference"`
	Description string          `json:"description"`
	Details     []lineResponse  `json:"details"`
	TotalDebit  decimal.Decimal `json:"total_debit"`
	TotalCredit decimal.Decimal `json:"total_credit"`
	Warnings    []errs.Warning  `json:"warnings,omitempty"`
}

func toEntryResponse(e ledger.JournalEntry, warnings []errs.Warning) entryResponse {
	out := entryResponse{
		ID:          e.ID,
		EntryDate:   e.EntryDate.Format(ledger.DateLayout),
		Reference:   e.Reference,
		Description: e.Description,
		Details:     make([]lineResponse, 0, len(e.Details)),
		TotalDebit:  e.TotalDebit,
		TotalCredit: e.TotalCredit,
		Warnings:    warnings,
	}
	for _, ln := range e.Details {
		out.Details = append(out.Details, lineResponse{AccountID: ln.AccountID, Debit: ln.Debit, Credit: ln.Credit, Description: ln.Description})
	}
	return out
}

type listEntriesResponse struct {
	Items []entryResponse `json:"items"`
}

type validateEntryResponse struct {
	Valid bool          `json:"valid"`
	Entry entryResponse `json:"entry"`
}

type previewResponse struct {
	TotalDebit  decimal.Decimal `json:"total_debit"`
	TotalCredit decimal.Decimal `json:"total_credit"`
	Difference  decimal.Decimal `json:"difference"`
	IsBalanced  bool            `json:"is_balanced"`
	DualSided   []int           `json:"dual_sided_lines"`
}

// Accounts

type postAccountRequest struct {
	Code           string `json:"code" validate:"required,max=20"`
	Name           string `json:"name" validate:"required,max=120"`
	Type           string `json:"type" validate:"required"`
	Classification string `json:"classification" validate:"required"`
}

type patchAccountRequest struct {
	Code           *string `json:"code" validate:"omitempty,max=20"`
	Name           *string `json:"name" validate:"omitempty,max=120"`
	Type           *string `json:"type"`
	Classification *string `json:"classification"`
}

func toAccountDomain(req postAccountRequest) ledger.Account {
	return ledger.Account{
		Code:           req.Code,
		Name:           req.Name,
		Type:           ledger.AccountType(req.Type),
		Classification: ledger.Classification(req.Classification),
	}
}

type accountResponse struct {
	ID             uuid.UUID             `json:"id"`
	Code           string                `json:"code"`
	Name           string                `json:"name"`
	Type           ledger.AccountType    `json:"type"`
	Classification ledger.Classification `json:"classification"`
	CurrentBalance decimal.Decimal       `json:"current_balance"`
}

func toAccountResponse(a ledger.Account) accountResponse {
	return accountResponse{
		ID:             a.ID,
		Code:           a.Code,
		Name:           a.Name,
		Type:           a.Type,
		Classification: a.Classification,
		CurrentBalance: a.CurrentBalance,
	}
}

type listAccountsResponse struct {
	Items []accountResponse `json:"items"`
}

// Reports

type trialBalanceItem struct {
	AccountID uuid.UUID       `json:"account_id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
}

type trialBalanceResponse struct {
	StartDate   *string            `json:"start_date"`
	EndDate     *string            `json:"end_date"`
	Items       []trialBalanceItem `json:"items"`
	TotalDebit  decimal.Decimal    `json:"total_debit"`
	TotalCredit decimal.Decimal    `json:"total_credit"`
	IsBalanced  bool               `json:"is_balanced"`
	Warnings    []errs.Warning     `json:"warnings"`
}

type statementLine struct {
	AccountID uuid.UUID       `json:"account_id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Balance   decimal.Decimal `json:"balance"`
}

type balanceSheetResponse struct {
	AsOf             string          `json:"as_of"`
	Assets           []statementLine `json:"assets"`
	Liabilities      []statementLine `json:"liabilities"`
	Equity           []statementLine `json:"equity"`
	TotalAssets      decimal.Decimal `json:"total_assets"`
	TotalLiabilities decimal.Decimal `json:"total_liabilities"`
	TotalEquity      decimal.Decimal `json:"total_equity"`
	IsBalanced       bool            `json:"is_balanced"`
	Warnings         []errs.Warning  `json:"warnings"`
}

type profitAndLossResponse struct {
	StartDate    *string         `json:"start_date"`
	EndDate      *string         `json:"end_date"`
	Revenue      []statementLine `json:"revenue"`
	Expenses     []statementLine `json:"expenses"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	TotalExpense decimal.Decimal `json:"total_expense"`
	NetIncome    decimal.Decimal `json:"net_income"`
	Warnings     []errs.Warning  `json:"warnings"`
}

func dateString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(ledger.DateLayout)
	return &s
}

func toStatementLines(in []report.Line) []statementLine {
	out := make([]statementLine, 0, len(in))
	for _, ln := range in {
		out = append(out, statementLine{AccountID: ln.AccountID, Code: ln.Code, Name: ln.Name, Balance: ln.Balance})
	}
	return out
}

func toTrialBalanceResponse(tb report.TrialBalance) trialBalanceResponse {
	out := trialBalanceResponse{
		StartDate:   dateString(tb.StartDate),
		EndDate:     dateString(tb.EndDate),
		Items:       make([]trialBalanceItem, 0, len(tb.Items)),
		TotalDebit:  tb.TotalDebit,
		TotalCredit: tb.TotalCredit,
		IsBalanced:  tb.IsBalanced,
		Warnings:    tb.Warnings,
	}
	for _, it := range tb.Items {
		out.Items = append(out.Items, trialBalanceItem{AccountID: it.AccountID, Code: it.Code, Name: it.Name, Debit: it.Debit, Credit: it.Credit})
	}
	return out
}

func toBalanceSheetResponse(bs report.BalanceSheet) balanceSheetResponse {
	return balanceSheetResponse{
		AsOf:             bs.AsOf.Format(ledger.DateLayout),
		Assets:           toStatementLines(bs.Assets),
		Liabilities:      toStatementLines(bs.Liabilities),
		Equity:           toStatementLines(bs.Equity),
		TotalAssets:      bs.TotalAssets,
		TotalLiabilities: bs.TotalLiabilities,
		TotalEquity:      bs.TotalEquity,
		IsBalanced:       bs.IsBalanced,
		Warnings:         bs.Warnings,
	}
}

func toProfitAndLossResponse(pl report.ProfitAndLoss) profitAndLossResponse {
	return profitAndLossResponse{
		StartDate:    dateString(pl.StartDate),
		EndDate:      dateString(pl.EndDate),
		Revenue:      toStatementLines(pl.Revenue),
		Expenses:     toStatementLines(pl.Expenses),
		TotalRevenue: pl.TotalRevenue,
		TotalExpense: pl.TotalExpense,
		NetIncome:    pl.NetIncome,
		Warnings:     pl.Warnings,
	}
}

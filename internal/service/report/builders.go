package report

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/refuelos/ledger/internal/errs"
	"github.com/refuelos/ledger/internal/ledger"
)

// TrialBalanceItem is one account row of the trial balance. Debit and credit
// are raw sums, never netted.
type TrialBalanceItem struct {
	AccountID uuid.UUID
	Code      string
	Name      string
	Type      ledger.AccountType
	Debit     decimal.Decimal
	Credit    decimal.Decimal
}

type TrialBalance struct {
	StartDate   *time.Time
	EndDate     *time.Time
	Items       []TrialBalanceItem
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
	// Carried is the sum of per-entry differences accepted at posting time.
	Carried     decimal.Decimal
	IsBalanced  bool
	Warnings    []errs.Warning
}

// Carry records the differences the underlying entries were posted with and
// re-evaluates IsBalanced net of them.
func (tb *TrialBalance) Carry(carried decimal.Decimal) {
	tb.Carried = carried
	tb.IsBalanced = ledger.WithinTolerance(tb.TotalDebit.Sub(carried), tb.TotalCredit)
}

// BuildTrialBalance projects aggregated balances into debit and credit columns.
// Accounts with no activity are omitted.
func BuildTrialBalance(balances []ledger.AggregatedBalance) TrialBalance {
	tb := TrialBalance{Items: make([]TrialBalanceItem, 0, len(balances)), TotalDebit: decimal.Zero, TotalCredit: decimal.Zero, Carried: decimal.Zero}
	for _, b := range balances {
		if b.Debit.IsZero() && b.Credit.IsZero() {
			continue
		}
		tb.Items = append(tb.Items, TrialBalanceItem{
			AccountID: b.Account.ID,
			Code:      b.Account.Code,
			Name:      b.Account.Name,
			Type:      b.Account.Type,
			Debit:     b.Debit,
			Credit:    b.Credit,
		})
		tb.TotalDebit = tb.TotalDebit.Add(b.Debit)
		tb.TotalCredit = tb.TotalCredit.Add(b.Credit)
	}
	tb.Carry(decimal.Zero)
	return tb
}

// Line is one account row of a classified statement, signed on the account's normal side.
type Line struct {
	AccountID uuid.UUID
	Code      string
	Name      string
	Balance   decimal.Decimal
}

type BalanceSheet struct {
	AsOf             time.Time
	Assets           []Line
	Liabilities      []Line
	Equity           []Line
	TotalAssets      decimal.Decimal
	TotalLiabilities decimal.Decimal
	TotalEquity      decimal.Decimal
	// NetIncome is revenue less expense up to AsOf. It is not closed into
	// equity, so IsBalanced does not see it.
	NetIncome        decimal.Decimal
	Carried          decimal.Decimal
	IsBalanced       bool
	Warnings         []errs.Warning
}

// Carry records the differences the underlying entries were posted with and
// re-evaluates IsBalanced net of them.
func (bs *BalanceSheet) Carry(carried decimal.Decimal) {
	bs.Carried = carried
	bs.IsBalanced = ledger.WithinTolerance(bs.TotalAssets.Sub(carried), bs.TotalLiabilities.Add(bs.TotalEquity))
}

// Reconciles reports whether assets equal liabilities plus equity once the
// unclosed net income is added to equity. Unlike IsBalanced it holds for any
// ledger whose entries are balanced, revenue and expense activity included.
func (bs BalanceSheet) Reconciles() bool {
	return ledger.WithinTolerance(bs.TotalAssets.Sub(bs.Carried), bs.TotalLiabilities.Add(bs.TotalEquity).Add(bs.NetIncome))
}

// BuildBalanceSheet partitions balances into assets, liabilities and equity.
// Revenue and expense accounts are left out of the sections; closing them into
// equity is not done here, they only feed NetIncome. Assets are debit minus
// credit, the other two credit minus debit.
func BuildBalanceSheet(asOf time.Time, balances []ledger.AggregatedBalance) BalanceSheet {
	bs := BalanceSheet{
		AsOf:             ledger.DateOf(asOf),
		Assets:           []Line{},
		Liabilities:      []Line{},
		Equity:           []Line{},
		TotalAssets:      decimal.Zero,
		TotalLiabilities: decimal.Zero,
		TotalEquity:      decimal.Zero,
		NetIncome:        decimal.Zero,
	}
	for _, b := range balances {
		ln := Line{AccountID: b.Account.ID, Code: b.Account.Code, Name: b.Account.Name}
		switch b.Account.Type {
		case ledger.AccountTypeAsset:
			ln.Balance = b.Debit.Sub(b.Credit)
			bs.Assets = append(bs.Assets, ln)
			bs.TotalAssets = bs.TotalAssets.Add(ln.Balance)
		case ledger.AccountTypeLiability:
			ln.Balance = b.Credit.Sub(b.Debit)
			bs.Liabilities = append(bs.Liabilities, ln)
			bs.TotalLiabilities = bs.TotalLiabilities.Add(ln.Balance)
		case ledger.AccountTypeEquity:
			ln.Balance = b.Credit.Sub(b.Debit)
			bs.Equity = append(bs.Equity, ln)
			bs.TotalEquity = bs.TotalEquity.Add(ln.Balance)
		case ledger.AccountTypeRevenue:
			bs.NetIncome = bs.NetIncome.Add(b.Credit.Sub(b.Debit))
		case ledger.AccountTypeExpense:
			bs.NetIncome = bs.NetIncome.Sub(b.Debit.Sub(b.Credit))
		}
	}
	bs.Carry(decimal.Zero)
	return bs
}

type ProfitAndLoss struct {
	StartDate    *time.Time
	EndDate      *time.Time
	Revenue      []Line
	Expenses     []Line
	TotalRevenue decimal.Decimal
	TotalExpense decimal.Decimal
	NetIncome    decimal.Decimal
	Warnings     []errs.Warning
}

// BuildProfitAndLoss sums revenue (credit minus debit) and expense (debit minus
// credit) accounts for the period.
func BuildProfitAndLoss(balances []ledger.AggregatedBalance) ProfitAndLoss {
	pl := ProfitAndLoss{Revenue: []Line{}, Expenses: []Line{}, TotalRevenue: decimal.Zero, TotalExpense: decimal.Zero}
	for _, b := range balances {
		ln := Line{AccountID: b.Account.ID, Code: b.Account.Code, Name: b.Account.Name, Balance: b.Balance()}
		switch b.Account.Type {
		case ledger.AccountTypeRevenue:
			pl.Revenue = append(pl.Revenue, ln)
			pl.TotalRevenue = pl.TotalRevenue.Add(ln.Balance)
		case ledger.AccountTypeExpense:
			pl.Expenses = append(pl.Expenses, ln)
			pl.TotalExpense = pl.TotalExpense.Add(ln.Balance)
		}
	}
	pl.NetIncome = pl.TotalRevenue.Sub(pl.TotalExpense)
	return pl
}

// ApplyBalances returns a copy of accounts with CurrentBalance recomputed from
// balances. Accounts without activity get zero.
func ApplyBalances(accounts []ledger.Account, balances []ledger.AggregatedBalance) []ledger.Account {
	byID := make(map[uuid.UUID]ledger.AggregatedBalance, len(balances))
	for _, b := range balances {
		byID[b.Account.ID] = b
	}
	out := make([]ledger.Account, len(accounts))
	for i, a := range accounts {
		a.CurrentBalance = decimal.Zero
		if b, ok := byID[a.ID]; ok {
			a.CurrentBalance = b.Balance()
		}
		out[i] = a
	}
	return out
}

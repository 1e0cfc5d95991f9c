// Package dictionary holds the default chart of accounts used for seeding a
// new fuel-station ledger.
package dictionary

import "github.com/refuelos/ledger/internal/ledger"

// AccountDef describes one account in the default chart.
type AccountDef struct {
	Code           string                `json:"code"`
	Name           string                `json:"name"`
	Type           ledger.AccountType    `json:"type"`
	Classification ledger.Classification `json:"classification"`
}

var chart = []AccountDef{
	{Code: "1000", Name: "Cash in Hand", Type: ledger.AccountTypeAsset, Classification: ledger.ClassificationCurrent},
	{Code: "1010", Name: "Bank", Type: ledger.AccountTypeAsset, Classification: ledger.ClassificationCurrent},
	{Code: "1100", Name: "Accounts Receivable", Type: ledger.AccountTypeAsset, Classification: ledger.ClassificationCurrent},
	{Code: "1200", Name: "Fuel Inventory", Type: ledger.AccountTypeAsset, Classification: ledger.ClassificationCurrent},
	{Code: "1210", Name: "Lubricant Inventory", Type: ledger.AccountTypeAsset, Classification: ledger.ClassificationCurrent},
	{Code: "1500", Name: "Dispensers and Equipment", Type: ledger.AccountTypeAsset, Classification: ledger.ClassificationNonCurrent},
	{Code: "1510", Name: "Storage Tanks", Type: ledger.AccountTypeAsset, Classification: ledger.ClassificationNonCurrent},
	{Code: "2000", Name: "Accounts Payable", Type: ledger.AccountTypeLiability, Classification: ledger.ClassificationCurrent},
	{Code: "2100", Name: "VAT Payable", Type: ledger.AccountTypeLiability, Classification: ledger.ClassificationCurrent},
	{Code: "2500", Name: "Long-Term Loan", Type: ledger.AccountTypeLiability, Classification: ledger.ClassificationNonCurrent},
	{Code: "3000", Name: "Owner Capital", Type: ledger.AccountTypeEquity, Classification: ledger.ClassificationNonCurrent},
	{Code: "3100", Name: "Retained Earnings", Type: ledger.AccountTypeEquity, Classification: ledger.ClassificationNonCurrent},
	{Code: "4000", Name: "Fuel Sales", Type: ledger.AccountTypeRevenue, Classification: ledger.ClassificationOperating},
	{Code: "4100", Name: "Lubricant Sales", Type: ledger.AccountTypeRevenue, Classification: ledger.ClassificationOperating},
	{Code: "4900", Name: "Other Income", Type: ledger.AccountTypeRevenue, Classification: ledger.ClassificationNonOperating},
	{Code: "5000", Name: "Cost of Fuel Sold", Type: ledger.AccountTypeExpense, Classification: ledger.ClassificationOperating},
	{Code: "5100", Name: "Wages", Type: ledger.AccountTypeExpense, Classification: ledger.ClassificationOperating},
	{Code: "5200", Name: "Utilities", Type: ledger.AccountTypeExpense, Classification: ledger.ClassificationOperating},
	{Code: "5900", Name: "Interest Expense", Type: ledger.AccountTypeExpense, Classification: ledger.ClassificationNonOperating},
}

// Chart returns the default chart of accounts, optionally filtered by type.
// The result is sorted by code and safe to modify.
func Chart(t *ledger.AccountType) []AccountDef {
	out := make([]AccountDef, 0, len(chart))
	for _, def := range chart {
		if t != nil && def.Type != *t {
			continue
		}
		out = append(out, def)
	}
	return out
}

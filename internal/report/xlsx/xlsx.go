// Package xlsx renders financial reports as Excel workbooks.
package xlsx

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/refuelos/ledger/internal/ledger"
	"github.com/refuelos/ledger/internal/service/report"
)

// ContentType is the MIME type of the produced workbooks.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	sheetTrialBalance = "Trial Balance"
	sheetBalanceSheet = "Balance Sheet"
	sheetProfitLoss   = "Profit and Loss"
	sheetWarnings     = "Warnings"
)

// numFmt 4 is the built-in "#,##0.00".
const numFmt = 4

type book struct {
	f      *excelize.File
	sheet  string
	header int
	money  int
	bold   int
	row    int
}

func newBook(sheet string) (*book, error) {
	f := excelize.NewFile()
	index, err := f.NewSheet(sheet)
	if err != nil {
		f.Close()
		return nil, err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		f.Close()
		return nil, err
	}
	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 12},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		f.Close()
		return nil, err
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: numFmt})
	if err != nil {
		f.Close()
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}, NumFmt: numFmt})
	if err != nil {
		f.Close()
		return nil, err
	}
	if err := f.SetColWidth(sheet, "A", "A", 14); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.SetColWidth(sheet, "B", "B", 36); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.SetColWidth(sheet, "C", "D", 18); err != nil {
		f.Close()
		return nil, err
	}
	return &book{f: f, sheet: sheet, header: header, money: money, bold: bold, row: 1}, nil
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func (b *book) title(text string) error {
	if err := b.f.SetCellValue(b.sheet, cell(1, b.row), text); err != nil {
		return err
	}
	b.row += 2
	return nil
}

func (b *book) headers(cols ...string) error {
	for i, h := range cols {
		c := cell(i+1, b.row)
		if err := b.f.SetCellValue(b.sheet, c, h); err != nil {
			return err
		}
		if err := b.f.SetCellStyle(b.sheet, c, c, b.header); err != nil {
			return err
		}
	}
	b.row++
	return nil
}

// line writes text cells followed by amount cells on the current row.
func (b *book) line(style int, texts []string, amounts ...decimal.Decimal) error {
	for i, t := range texts {
		if err := b.f.SetCellValue(b.sheet, cell(i+1, b.row), t); err != nil {
			return err
		}
	}
	for j, a := range amounts {
		c := cell(len(texts)+j+1, b.row)
		if err := b.f.SetCellValue(b.sheet, c, a.InexactFloat64()); err != nil {
			return err
		}
		if err := b.f.SetCellStyle(b.sheet, c, c, style); err != nil {
			return err
		}
	}
	b.row++
	return nil
}

func (b *book) verdict(label string, ok bool) error {
	v := "YES"
	if !ok {
		v = "NO"
	}
	if err := b.f.SetCellValue(b.sheet, cell(1, b.row), label); err != nil {
		return err
	}
	if err := b.f.SetCellValue(b.sheet, cell(2, b.row), v); err != nil {
		return err
	}
	b.row++
	return nil
}

func (b *book) section(title string, lines []report.Line, total decimal.Decimal) error {
	if err := b.headers(title, "Account", "Balance"); err != nil {
		return err
	}
	for _, ln := range lines {
		if err := b.line(b.money, []string{ln.Code, ln.Name}, ln.Balance); err != nil {
			return err
		}
	}
	if err := b.line(b.bold, []string{"", "Total " + title}, total); err != nil {
		return err
	}
	b.row++
	return nil
}

// warnings adds a second sheet listing dangling references, when there are any.
func (b *book) warnings(ws []warning) error {
	if len(ws) == 0 {
		return nil
	}
	if _, err := b.f.NewSheet(sheetWarnings); err != nil {
		return err
	}
	for i, h := range []string{"Kind", "Entry", "Account", "Line", "Message"} {
		if err := b.f.SetCellValue(sheetWarnings, cell(i+1, 1), h); err != nil {
			return err
		}
	}
	for i, w := range ws {
		row := []any{w.kind, w.entry, w.account, w.line, w.message}
		for j, v := range row {
			if err := b.f.SetCellValue(sheetWarnings, cell(j+1, i+2), v); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *book) flush(w io.Writer) error {
	_, err := b.f.WriteTo(w)
	return err
}

func period(start, end *time.Time) string {
	s, e := "beginning", "today"
	if start != nil {
		s = start.Format(ledger.DateLayout)
	}
	if end != nil {
		e = end.Format(ledger.DateLayout)
	}
	return fmt.Sprintf("%s to %s", s, e)
}

// TrialBalance writes tb as a workbook. currency labels the amount columns.
func TrialBalance(w io.Writer, tb report.TrialBalance, currency string) error {
	b, err := newBook(sheetTrialBalance)
	if err != nil {
		return err
	}
	defer b.f.Close()
	if err := b.title("Trial Balance, " + period(tb.StartDate, tb.EndDate)); err != nil {
		return err
	}
	if err := b.headers("Code", "Account", "Debit ("+currency+")", "Credit ("+currency+")"); err != nil {
		return err
	}
	for _, it := range tb.Items {
		if err := b.line(b.money, []string{it.Code, it.Name}, it.Debit, it.Credit); err != nil {
			return err
		}
	}
	if err := b.line(b.bold, []string{"", "Total"}, tb.TotalDebit, tb.TotalCredit); err != nil {
		return err
	}
	b.row++
	if err := b.verdict("Balanced", tb.IsBalanced); err != nil {
		return err
	}
	if err := b.warnings(toWarnings(tb.Warnings)); err != nil {
		return err
	}
	return b.flush(w)
}

// BalanceSheet writes bs as a workbook.
func BalanceSheet(w io.Writer, bs report.BalanceSheet, currency string) error {
	b, err := newBook(sheetBalanceSheet)
	if err != nil {
		return err
	}
	defer b.f.Close()
	if err := b.title(fmt.Sprintf("Balance Sheet as of %s (%s)", bs.AsOf.Format(ledger.DateLayout), currency)); err != nil {
		return err
	}
	if err := b.section("Assets", bs.Assets, bs.TotalAssets); err != nil {
		return err
	}
	if err := b.section("Liabilities", bs.Liabilities, bs.TotalLiabilities); err != nil {
		return err
	}
	if err := b.section("Equity", bs.Equity, bs.TotalEquity); err != nil {
		return err
	}
	if err := b.line(b.bold, []string{"", "Liabilities + Equity"}, bs.TotalLiabilities.Add(bs.TotalEquity)); err != nil {
		return err
	}
	if err := b.verdict("Balanced", bs.IsBalanced); err != nil {
		return err
	}
	if err := b.warnings(toWarnings(bs.Warnings)); err != nil {
		return err
	}
	return b.flush(w)
}

// ProfitAndLoss writes pl as a workbook.
func ProfitAndLoss(w io.Writer, pl report.ProfitAndLoss, currency string) error {
	b, err := newBook(sheetProfitLoss)
	if err != nil {
		return err
	}
	defer b.f.Close()
	if err := b.title(fmt.Sprintf("Profit and Loss, %s (%s)", period(pl.StartDate, pl.EndDate), currency)); err != nil {
		return err
	}
	if err := b.section("Revenue", pl.Revenue, pl.TotalRevenue); err != nil {
		return err
	}
	if err := b.section("Expenses", pl.Expenses, pl.TotalExpense); err != nil {
		return err
	}
	if err := b.line(b.bold, []string{"", "Net Income"}, pl.NetIncome); err != nil {
		return err
	}
	if err := b.warnings(toWarnings(pl.Warnings)); err != nil {
		return err
	}
	return b.flush(w)
}

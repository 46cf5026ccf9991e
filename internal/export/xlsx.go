// Package export renders a period's finances as an Excel workbook.
package export

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"bilancio/internal/core"
	"bilancio/internal/services"
)

const (
	SummarySheet  = "Summary"
	ExpensesSheet = "Expenses"

	// ContentType is the media type of the produced workbook.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	moneyFormat = "#,##0.00"
)

// Filename returns the download name for p, e.g. bilancio-2024-06.xlsx.
func Filename(p core.Period) string {
	return fmt.Sprintf("bilancio-%s.xlsx", p)
}

// WriteMonth builds the workbook for m and writes it to w.
func WriteMonth(w io.Writer, m services.MonthExport) error {
	f := excelize.NewFile()
	defer f.Close()

	styles, err := newStyles(f)
	if err != nil {
		return err
	}

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeSummary(f, styles, m); err != nil {
		return fmt.Errorf("write summary sheet: %w", err)
	}

	if _, err := f.NewSheet(ExpensesSheet); err != nil {
		return fmt.Errorf("create expenses sheet: %w", err)
	}
	if err := writeExpenses(f, styles, m.Expenses); err != nil {
		return fmt.Errorf("write expenses sheet: %w", err)
	}

	f.SetActiveSheet(0)
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

type styles struct {
	header int
	money  int
}

func newStyles(f *excelize.File) (styles, error) {
	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
	})
	if err != nil {
		return styles{}, fmt.Errorf("header style: %w", err)
	}
	numFmt := moneyFormat
	money, err := f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
	if err != nil {
		return styles{}, fmt.Errorf("money style: %w", err)
	}
	return styles{header: header, money: money}, nil
}

func writeSummary(f *excelize.File, st styles, m services.MonthExport) error {
	s := m.Summary
	rows := [][]interface{}{
		{"Period", m.Period.String()},
		{"Income", amount(s.Income)},
		{"Total expenses", amount(s.TotalExpenses)},
		{"Balance", amount(s.Balance)},
		{"Spent (%)", amount(s.Percentage)},
	}
	for i, row := range rows {
		if err := setRow(f, SummarySheet, 1, i+1, row); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(SummarySheet, "A1", "A5", st.header); err != nil {
		return err
	}
	if err := f.SetCellStyle(SummarySheet, "B2", "B4", st.money); err != nil {
		return err
	}

	start := len(rows) + 2
	if err := setRow(f, SummarySheet, 1, start, []interface{}{"Category", "Amount"}); err != nil {
		return err
	}
	if err := f.SetCellStyle(SummarySheet, cell(1, start), cell(2, start), st.header); err != nil {
		return err
	}
	for i, c := range s.Categories() {
		if err := setRow(f, SummarySheet, 1, start+1+i, []interface{}{c.Name, amount(c.Amount)}); err != nil {
			return err
		}
	}
	if n := len(s.CategoryData); n > 0 {
		if err := f.SetCellStyle(SummarySheet, cell(2, start+1), cell(2, start+n), st.money); err != nil {
			return err
		}
	}
	return f.SetColWidth(SummarySheet, "A", "A", 18)
}

func writeExpenses(f *excelize.File, st styles, expenses []core.Expense) error {
	header := []interface{}{"ID", "Date", "Category", "Description", "Amount"}
	if err := setRow(f, ExpensesSheet, 1, 1, header); err != nil {
		return err
	}
	if err := f.SetCellStyle(ExpensesSheet, "A1", "E1", st.header); err != nil {
		return err
	}

	for i, e := range expenses {
		row := []interface{}{e.ID, e.Date.String(), e.Category, e.Description, amount(e.Amount)}
		if err := setRow(f, ExpensesSheet, 1, i+2, row); err != nil {
			return err
		}
	}
	if len(expenses) > 0 {
		if err := f.SetCellStyle(ExpensesSheet, "E2", cell(5, len(expenses)+1), st.money); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(ExpensesSheet, "B", "C", 14); err != nil {
		return err
	}
	return f.SetColWidth(ExpensesSheet, "D", "D", 40)
}

func setRow(f *excelize.File, sheet string, col, row int, values []interface{}) error {
	return f.SetSheetRow(sheet, cell(col, row), &values)
}

func cell(col, row int) string {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		// col and row are always positive here
		panic(err)
	}
	return name
}

// amount converts to float64 so spreadsheet formulas can use the value.
func amount(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

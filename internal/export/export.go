package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	expensemodel "github.com/eyuksel/reimbursement-api/internal/core/datamodel/expense"
)

var columns = []string{"Date", "Merchant", "Category", "Amount", "Currency", "Status", "Description", "Warnings"}

func row(exp *expensemodel.Expense) []string {
	return []string{
		exp.Date.Format("2006-01-02"),
		exp.Merchant,
		exp.Category,
		exp.Amount.StringFixed(2),
		exp.Currency,
		exp.Status,
		exp.Description,
		strings.Join(exp.Warnings.Render(), "; "),
	}
}

// WriteCSV streams the expenses as a CSV document.
func WriteCSV(w io.Writer, expenses []*expensemodel.Expense) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, exp := range expenses {
		if err := cw.Write(row(exp)); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes the expenses as a single-sheet workbook with a summary
// row at the bottom.
func WriteXLSX(w io.Writer, expenses []*expensemodel.Expense) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Expenses"
	f.SetSheetName("Sheet1", sheet)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for i, col := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, col)
	}
	endHeader, _ := excelize.CoordinatesToCellName(len(columns), 1)
	f.SetCellStyle(sheet, "A1", endHeader, headerStyle)

	for i, exp := range expenses {
		values := []interface{}{
			exp.Date.Format("2006-01-02"),
			exp.Merchant,
			exp.Category,
			exp.Amount.InexactFloat64(),
			exp.Currency,
			exp.Status,
			exp.Description,
			strings.Join(exp.Warnings.Render(), "; "),
		}
		for j, v := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	totalsByCurrency := map[string]float64{}
	for _, exp := range expenses {
		totalsByCurrency[exp.Currency] += exp.Amount.InexactFloat64()
	}
	summaryRow := len(expenses) + 3
	labelCell, _ := excelize.CoordinatesToCellName(1, summaryRow)
	f.SetCellValue(sheet, labelCell, "Total")
	var parts []string
	for currency, total := range totalsByCurrency {
		parts = append(parts, fmt.Sprintf("%.2f %s", total, currency))
	}
	totalCell, _ := excelize.CoordinatesToCellName(2, summaryRow)
	f.SetCellValue(sheet, totalCell, strings.Join(parts, ", "))

	f.SetColWidth(sheet, "A", "A", 12)
	f.SetColWidth(sheet, "B", "C", 22)
	f.SetColWidth(sheet, "G", "H", 40)

	return f.Write(w)
}

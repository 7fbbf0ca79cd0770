package reporting

import (
	"encoding/csv"
	"fmt"
	"io"
)

// WriteSummaryCSV writes the KPI block, a blank row, then the category breakdown.
// Rows are CRLF-terminated and amounts carry exactly two decimals.
func WriteSummaryCSV(w io.Writer, budgetName string, k KPIs, breakdown []CategoryTotal) error {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true

	rows := [][]string{
		{"Budget", budgetName},
		{"Income", k.Income.StringFixed(2)},
		{"Expense", k.Expense.StringFixed(2)},
		{"Net", k.Net.StringFixed(2)},
		{},
		{"Category", "Total Expense"},
	}
	for _, ct := range breakdown {
		rows = append(rows, []string{ct.Category, ct.Total.StringFixed(2)})
	}

	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write summary csv: %w", err)
	}
	return nil
}

// SummaryFilename is the attachment name used for a budget's CSV export.
func SummaryFilename(budgetID int64) string {
	return fmt.Sprintf("budget_%d_summary.csv", budgetID)
}

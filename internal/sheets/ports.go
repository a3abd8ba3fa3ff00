package sheets

import (
	"context"

	"rently/internal/report"
)

// Ports for outbound adapters.
type (
	// ReportWriter replaces an owner's monthly report in the spreadsheet.
	ReportWriter interface {
		WriteMonthlyReport(ctx context.Context, ownerID string, rows []report.MonthRow) (ref string, err error)
	}
)

// ReportHeader is the first row of every report tab.
var ReportHeader = []string{"Month", "Income", "Expense", "Net", "Entries"}

// ReportValues lays rows out under ReportHeader. Amounts are plain decimal
// strings so the spreadsheet parses them as numbers.
func ReportValues(rows []report.MonthRow) [][]any {
	out := make([][]any, 0, len(rows)+1)
	header := make([]any, len(ReportHeader))
	for i, h := range ReportHeader {
		header[i] = h
	}
	out = append(out, header)
	for _, r := range rows {
		out = append(out, []any{
			r.Label,
			r.Income.Decimal().StringFixed(2),
			r.Expense.Decimal().StringFixed(2),
			r.Net.Decimal().StringFixed(2),
			r.Count,
		})
	}
	return out
}

package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/phpdave11/gofpdf"

	"rently/internal/core"
	"rently/internal/ledger"
)

const maxStatementRows = 500

// Statement is the input of the printable statement.
type Statement struct {
	Owner core.Identity
	// Period is shown under the title, e.g. "January 2026" or "All time".
	Period      string
	Currency    string
	Records     []core.Transaction
	GeneratedAt time.Time
}

var statementCols = []float64{24, 26, 72, 40, 24}

// WriteStatementPDF renders s as an A4 statement. Amounts are printed with
// the currency code because the core PDF fonts cannot draw most currency
// symbols.
func WriteStatementPDF(w io.Writer, s Statement) error {
	totals := ledger.ComputeTotals(s.Records)
	f := Formatter{Code: s.Currency}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(14, 14, 14)
	pdf.SetTitle("Rently Statement", false)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetTextColor(20, 20, 20)
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "Rently Statement")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(80, 80, 80)
	pdf.Cell(0, 6, tr("Period: "+s.Period))
	pdf.Ln(5)
	owner := s.Owner.DisplayName
	if owner == "" {
		owner = s.Owner.Email
	}
	if owner != "" {
		pdf.Cell(0, 6, tr("Owner: "+owner))
		pdf.Ln(5)
	}
	pdf.Ln(5)

	pdf.SetDrawColor(200, 200, 200)
	pdf.SetFillColor(248, 248, 248)
	pdf.SetTextColor(20, 20, 20)
	pdf.SetFont("Helvetica", "B", 11)
	sumW := 62.0
	pdf.CellFormat(sumW, 10, "Income ("+s.Currency+")", "1", 0, "C", true, 0, "")
	pdf.CellFormat(sumW, 10, "Expense ("+s.Currency+")", "1", 0, "C", true, 0, "")
	pdf.CellFormat(sumW, 10, "Net ("+s.Currency+")", "1", 1, "C", true, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(sumW, 10, f.Amount(totals.Income), "1", 0, "C", false, 0, "")
	pdf.CellFormat(sumW, 10, f.Amount(totals.Expense), "1", 0, "C", false, 0, "")
	pdf.CellFormat(sumW, 10, f.Amount(totals.Net), "1", 1, "C", false, 0, "")
	pdf.Ln(6)

	header := func() {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(245, 245, 245)
		pdf.CellFormat(statementCols[0], 8, "TYPE", "1", 0, "C", true, 0, "")
		pdf.CellFormat(statementCols[1], 8, "DATE", "1", 0, "C", true, 0, "")
		pdf.CellFormat(statementCols[2], 8, "DESCRIPTION", "1", 0, "L", true, 0, "")
		pdf.CellFormat(statementCols[3], 8, "TENANT", "1", 0, "L", true, 0, "")
		pdf.CellFormat(statementCols[4], 8, "AMOUNT", "1", 1, "R", true, 0, "")
		pdf.SetFont("Helvetica", "", 9)
	}
	header()

	if len(s.Records) == 0 {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.CellFormat(0, 8, "No transactions in this period", "1", 1, "C", false, 0, "")
	}
	for i, r := range s.Records {
		if i >= maxStatementRows {
			pdf.SetFont("Helvetica", "I", 9)
			pdf.CellFormat(0, 8, fmt.Sprintf("%d more rows not shown", len(s.Records)-i), "1", 1, "C", false, 0, "")
			break
		}
		if pdf.GetY() > 270 {
			pdf.AddPage()
			header()
		}
		date := r.Date.String()
		if date == "" {
			date = "unknown"
		}
		pdf.CellFormat(statementCols[0], 8, strings.ToUpper(string(r.Kind())), "1", 0, "C", false, 0, "")
		pdf.CellFormat(statementCols[1], 8, date, "1", 0, "C", false, 0, "")
		pdf.CellFormat(statementCols[2], 8, tr(trimTo(r.Description, 40)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(statementCols[3], 8, tr(trimTo(r.TenantName, 22)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(statementCols[4], 8, f.Amount(r.Amount), "1", 1, "R", false, 0, "")
	}

	generated := s.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}
	pdf.SetY(-18)
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(120, 120, 120)
	pdf.CellFormat(0, 10, "Generated by Rently - "+generated.UTC().Format(time.RFC3339), "", 0, "C", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("build statement pdf: %w", err)
	}
	return nil
}

func trimTo(s string, max int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

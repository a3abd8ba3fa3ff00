package http

import (
	"strings"
	"time"

	"rently/internal/core"
	"rently/internal/ledger"
	"rently/internal/report"
)

// sanitizeInput trims and drops control characters other than tab and newlines.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

// transactionJSON is a transaction as the web client sees it.
type transactionJSON struct {
	ID              string     `json:"id"`
	Type            core.Kind  `json:"type"`
	Amount          core.Money `json:"amount"`
	AmountFormatted string     `json:"amountFormatted"`
	Description     string     `json:"description"`
	TenantName      *string    `json:"tenantName"`
	Date            core.Date  `json:"date"`
	CreatedAt       time.Time  `json:"createdAt"`
}

func toTransactionJSON(records []core.Transaction, f report.Formatter) []transactionJSON {
	out := make([]transactionJSON, 0, len(records))
	for _, t := range records {
		j := transactionJSON{
			ID:              t.ID,
			Type:            t.Kind(),
			Amount:          t.Amount,
			AmountFormatted: f.Amount(t.Amount),
			Description:     t.Description,
			Date:            t.Date,
			CreatedAt:       t.CreatedAt,
		}
		if t.IsIncome() {
			name := t.TenantName
			j.TenantName = &name
		}
		out = append(out, j)
	}
	return out
}

// totalsJSON carries the global figures with their display strings.
type totalsJSON struct {
	ledger.Totals
	IncomeFormatted  string `json:"incomeFormatted"`
	ExpenseFormatted string `json:"expenseFormatted"`
	NetFormatted     string `json:"netFormatted"`
}

func toTotalsJSON(t ledger.Totals, f report.Formatter) totalsJSON {
	return totalsJSON{
		Totals:           t,
		IncomeFormatted:  f.Amount(t.Income),
		ExpenseFormatted: f.Amount(t.Expense),
		NetFormatted:     f.Amount(t.Net),
	}
}

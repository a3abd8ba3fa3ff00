// Package report shapes aggregates for people: labelled month rows, formatted
// amounts and the printable statement.
package report

import (
	"rently/internal/core"
	"rently/internal/ledger"
)

// Formatter renders money with a fixed currency symbol. Rupee amounts are
// grouped the Indian way.
type Formatter struct {
	Symbol string
	Code   string
}

func (f Formatter) Amount(m core.Money) string {
	return core.FormatAmountGrouped(f.Symbol, m, core.GroupingFor(f.Symbol, f.Code))
}

// MonthRow is one month of the monthly report.
type MonthRow struct {
	Key        core.MonthKey `json:"key"`
	Label      string        `json:"label"`
	Income     core.Money    `json:"income"`
	Expense    core.Money    `json:"expense"`
	Net        core.Money    `json:"net"`
	Count      int           `json:"count"`
	IncomeFmt  string        `json:"incomeFormatted"`
	ExpenseFmt string        `json:"expenseFormatted"`
	NetFmt     string        `json:"netFormatted"`
}

type Monthly struct {
	Totals ledger.Totals `json:"totals"`
	Months []MonthRow    `json:"months"`
}

// BuildMonthly aggregates records into the most-recent-first monthly report.
func BuildMonthly(records []core.Transaction, f Formatter) Monthly {
	buckets := ledger.GroupByMonth(records, ledger.Descending)
	rows := make([]MonthRow, 0, len(buckets))
	for _, b := range buckets {
		rows = append(rows, NewMonthRow(b, f))
	}
	return Monthly{Totals: ledger.ComputeTotals(records), Months: rows}
}

func NewMonthRow(b ledger.MonthBucket, f Formatter) MonthRow {
	return MonthRow{
		Key:        b.Key,
		Label:      b.Key.Label(),
		Income:     b.Income,
		Expense:    b.Expense,
		Net:        b.Net,
		Count:      b.Count,
		IncomeFmt:  f.Amount(b.Income),
		ExpenseFmt: f.Amount(b.Expense),
		NetFmt:     f.Amount(b.Net),
	}
}

// MonthDetail is the drill-down of a single month.
type MonthDetail struct {
	Month   MonthRow           `json:"month"`
	Records []core.Transaction `json:"-"`
}

// DrillDown returns key's bucket and its records, newest first. A month with
// no records yields an empty bucket, not an error.
func DrillDown(records []core.Transaction, key core.MonthKey, f Formatter) MonthDetail {
	in := ledger.FilterByMonth(records, key)
	ledger.SortNewestFirst(in)
	b := ledger.MonthBucket{Key: key}
	if got := ledger.GroupByMonth(in, ledger.Descending); len(got) == 1 {
		b = got[0]
	}
	return MonthDetail{Month: NewMonthRow(b, f), Records: in}
}

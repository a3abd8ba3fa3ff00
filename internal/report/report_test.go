package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"rently/internal/core"
)

func rec(amount int64, tenant string, y, m, d int) core.Transaction {
	return core.Transaction{
		Amount:      core.MoneyFromInt(amount),
		Description: "entry",
		TenantName:  tenant,
		Date:        core.NewDate(y, m, d),
	}
}

func TestBuildMonthly(t *testing.T) {
	records := []core.Transaction{
		rec(6000, "Asha", 2026, 1, 5),
		rec(-300, "", 2026, 1, 10),
		rec(6000, "Asha", 2026, 2, 5),
		{Amount: core.MoneyFromInt(-5), Description: "legacy"},
	}
	got := BuildMonthly(records, Formatter{Symbol: "₹"})

	labels := make([]string, len(got.Months))
	for i, m := range got.Months {
		labels[i] = m.Label
	}
	want := []string{"February 2026", "January 2026", "Unknown"}
	if strings.Join(labels, "|") != strings.Join(want, "|") {
		t.Fatalf("labels = %v, want %v", labels, want)
	}
	jan := got.Months[1]
	if jan.IncomeFmt != "₹6,000.00" || jan.ExpenseFmt != "₹300.00" || jan.NetFmt != "₹5,700.00" {
		t.Fatalf("unexpected january row %+v", jan)
	}
	if !got.Totals.Net.Equal(core.MoneyFromInt(11695)) {
		t.Fatalf("net = %s", got.Totals.Net)
	}
}

func TestDrillDown(t *testing.T) {
	records := []core.Transaction{
		rec(6000, "Asha", 2026, 1, 5),
		rec(-300, "", 2026, 1, 10),
		rec(6000, "Asha", 2026, 2, 5),
	}
	jan, _ := core.ParseMonthKey("2026-01")
	d := DrillDown(records, jan, Formatter{})
	if d.Month.Count != 2 || len(d.Records) != 2 || d.Records[0].Date.Day() != 10 {
		t.Fatalf("unexpected drill-down %+v", d)
	}

	empty, _ := core.ParseMonthKey("2025-06")
	d = DrillDown(records, empty, Formatter{})
	if d.Month.Count != 0 || d.Month.Label != "June 2025" || len(d.Records) != 0 {
		t.Fatalf("expected empty month, got %+v", d)
	}
}

func TestWriteStatementPDF(t *testing.T) {
	var buf bytes.Buffer
	err := WriteStatementPDF(&buf, Statement{
		Owner:       core.Identity{DisplayName: "Meera"},
		Period:      "January 2026",
		Currency:    "INR",
		Records:     []core.Transaction{rec(6000, "Asha", 2026, 1, 5), rec(-300, "", 2026, 1, 10)},
		GeneratedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("pdf: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Fatalf("output is not a PDF")
	}

	buf.Reset()
	if err := WriteStatementPDF(&buf, Statement{Period: "All time", Currency: "INR"}); err != nil {
		t.Fatalf("empty pdf: %v", err)
	}
}

func TestTrimTo(t *testing.T) {
	if got := trimTo("  short ", 10); got != "short" {
		t.Fatalf("got %q", got)
	}
	if got := trimTo("a very long description indeed", 10); got != "a very ..." {
		t.Fatalf("got %q", got)
	}
}

func TestFormatterGrouping(t *testing.T) {
	lakh := core.MoneyFromInt(1000000)
	cases := []struct {
		f    Formatter
		want string
	}{
		{Formatter{Symbol: "₹"}, "₹10,00,000.00"},
		{Formatter{Code: "INR"}, "10,00,000.00"},
		{Formatter{Symbol: "$", Code: "USD"}, "$1,000,000.00"},
	}
	for _, tc := range cases {
		if got := tc.f.Amount(lakh); got != tc.want {
			t.Fatalf("%+v: got %q, want %q", tc.f, got, tc.want)
		}
	}
}

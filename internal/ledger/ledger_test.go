package ledger

import (
	"reflect"
	"testing"
	"time"

	"rently/internal/core"
)

func income(amount int64, tenant, date string) core.Transaction {
	d, _ := core.ParseDate(date)
	return core.Transaction{Amount: core.MoneyFromInt(amount), TenantName: tenant, Date: d, Description: "rent"}
}

func expense(amount int64, date string) core.Transaction {
	d, _ := core.ParseDate(date)
	return core.Transaction{Amount: core.MoneyFromInt(-amount), Date: d, Description: "repair"}
}

func money(units int64) core.Money { return core.MoneyFromInt(units) }

func TestScenarioSingleTenantOneMonth(t *testing.T) {
	records := []core.Transaction{
		income(6000, "Asha", "2026-01-05"),
		expense(300, "2026-01-10"),
	}

	totals := ComputeTotals(records)
	if !totals.Income.Equal(money(6000)) || !totals.Expense.Equal(money(300)) || !totals.Net.Equal(money(5700)) {
		t.Fatalf("unexpected totals %+v", totals)
	}

	buckets := GroupByMonth(records, Ascending)
	if len(buckets) != 1 {
		t.Fatalf("expected 1 bucket, got %d", len(buckets))
	}
	b := buckets[0]
	if b.Key.String() != "2026-01" || !b.Income.Equal(money(6000)) || !b.Expense.Equal(money(300)) || b.Count != 2 {
		t.Fatalf("unexpected bucket %+v", b)
	}

	dir := BuildTenantDirectory(records)
	if len(dir) != 1 || dir[0].Name != "Asha" || !dir[0].TotalPaid.Equal(money(6000)) || dir[0].PaymentCount != 1 {
		t.Fatalf("unexpected directory %+v", dir)
	}
}

func TestEmptyInput(t *testing.T) {
	totals := ComputeTotals(nil)
	if !totals.Income.IsZero() || !totals.Expense.IsZero() || !totals.Net.IsZero() {
		t.Fatalf("expected zero totals, got %+v", totals)
	}
	if got := GroupByMonth(nil, Descending); len(got) != 0 {
		t.Fatalf("expected no buckets, got %v", got)
	}
	if got := BuildTenantDirectory([]core.Transaction{}); len(got) != 0 {
		t.Fatalf("expected no tenants, got %v", got)
	}
	if got := Recent(nil, 10); len(got) != 0 {
		t.Fatalf("expected no recent records, got %v", got)
	}
}

func TestSameTenantTwoMonths(t *testing.T) {
	records := []core.Transaction{
		income(5000, "Ravi", "2026-02-03"),
		income(5000, "Ravi", "2026-01-04"),
	}
	buckets := GroupByMonth(records, Ascending)
	if len(buckets) != 2 || buckets[0].Key.String() != "2026-01" || buckets[1].Key.String() != "2026-02" {
		t.Fatalf("unexpected buckets %+v", buckets)
	}
	dir := BuildTenantDirectory(records)
	if len(dir) != 1 {
		t.Fatalf("expected one tenant, got %+v", dir)
	}
	if !dir[0].TotalPaid.Equal(money(10000)) || dir[0].PaymentCount != 2 {
		t.Fatalf("unexpected summary %+v", dir[0])
	}
	if dir[0].LastPaymentDate.String() != "2026-02-03" {
		t.Fatalf("last payment = %s", dir[0].LastPaymentDate)
	}
}

func TestGroupByMonthOrdering(t *testing.T) {
	records := []core.Transaction{
		income(1, "A", "2025-12-01"),
		income(1, "A", "2026-03-01"),
		{Amount: money(7), Description: "legacy row"}, // no date
		income(1, "A", "2026-01-01"),
	}
	asc := GroupByMonth(records, Ascending)
	desc := GroupByMonth(records, Descending)

	wantAsc := []string{"2025-12", "2026-01", "2026-03", core.UnknownMonth}
	wantDesc := []string{"2026-03", "2026-01", "2025-12", core.UnknownMonth}
	for i := range wantAsc {
		if asc[i].Key.String() != wantAsc[i] {
			t.Fatalf("asc[%d] = %s, want %s", i, asc[i].Key, wantAsc[i])
		}
		if desc[i].Key.String() != wantDesc[i] {
			t.Fatalf("desc[%d] = %s, want %s", i, desc[i].Key, wantDesc[i])
		}
	}
}

func TestGroupByMonthPartitionsAndSums(t *testing.T) {
	records := []core.Transaction{
		income(6000, "Asha", "2026-01-05"),
		income(4500, "Ravi", "2026-01-07"),
		expense(300, "2026-01-10"),
		expense(1200, "2026-02-11"),
		income(6000, "Asha", "2026-02-05"),
		expense(50, "2026-03-01"),
	}
	buckets := GroupByMonth(records, Descending)

	count := 0
	inc, exp := core.Zero, core.Zero
	seen := map[core.MonthKey]bool{}
	for _, b := range buckets {
		if seen[b.Key] {
			t.Fatalf("bucket %s appears twice", b.Key)
		}
		seen[b.Key] = true
		count += b.Count
		inc = inc.Add(b.Income)
		exp = exp.Add(b.Expense)
		if !b.Net.Equal(b.Income.Sub(b.Expense)) {
			t.Fatalf("bucket %s net mismatch", b.Key)
		}
	}
	totals := ComputeTotals(records)
	if count != len(records) {
		t.Fatalf("bucket counts = %d, want %d", count, len(records))
	}
	if !inc.Equal(totals.Income) || !exp.Equal(totals.Expense) {
		t.Fatalf("bucket sums %s/%s != totals %+v", inc, exp, totals)
	}
	if totals.Income.IsNegative() || totals.Expense.IsNegative() {
		t.Fatalf("totals must be non-negative: %+v", totals)
	}
	if !totals.Net.Equal(totals.Income.Sub(totals.Expense)) {
		t.Fatalf("net mismatch %+v", totals)
	}
}

func TestTenantDirectoryProperties(t *testing.T) {
	records := []core.Transaction{
		income(6000, "Asha", "2026-01-05"),
		income(4500, "Ravi", "2026-01-07"),
		income(6000, "Asha", "2026-02-05"),
		expense(300, "2026-01-10"),
		income(100, "asha", "2026-02-06"), // different spelling, separate entry
	}
	dir := BuildTenantDirectory(records)
	names := make([]string, len(dir))
	sum := core.Zero
	for i, s := range dir {
		names[i] = s.Name
		sum = sum.Add(s.TotalPaid)
	}
	if !reflect.DeepEqual(names, []string{"Asha", "asha", "Ravi"}) {
		t.Fatalf("unexpected names %v", names)
	}
	if !sum.Equal(ComputeTotals(records).Income) {
		t.Fatalf("directory total %s != income %s", sum, ComputeTotals(records).Income)
	}
}

func TestDeletingOnlyIncomeRemovesTenant(t *testing.T) {
	records := []core.Transaction{
		income(4500, "Ravi", "2026-01-07"),
		income(6000, "Asha", "2026-01-05"),
	}
	remaining := records[1:]
	for _, s := range BuildTenantDirectory(remaining) {
		if s.Name == "Ravi" {
			t.Fatalf("Ravi should be gone after deleting his only payment")
		}
	}
}

func TestUnnamedIncomeFallsBackToUnknown(t *testing.T) {
	dir := BuildTenantDirectory([]core.Transaction{income(10, "", "2026-01-01")})
	if len(dir) != 1 || dir[0].Name != core.UnknownTenant {
		t.Fatalf("unexpected directory %+v", dir)
	}
}

func TestAggregationDoesNotMutateInput(t *testing.T) {
	records := []core.Transaction{
		expense(300, "2026-01-10"),
		income(6000, "Asha", "2026-01-05"),
		income(10, "Ravi", "2025-11-01"),
	}
	before := make([]string, len(records))
	for i, r := range records {
		before[i] = r.Date.String() + r.Amount.String()
	}

	first := GroupByMonth(records, Ascending)
	second := GroupByMonth(records, Ascending)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("GroupByMonth not idempotent")
	}
	if !reflect.DeepEqual(BuildTenantDirectory(records), BuildTenantDirectory(records)) {
		t.Fatalf("BuildTenantDirectory not idempotent")
	}
	if !reflect.DeepEqual(ComputeTotals(records), ComputeTotals(records)) {
		t.Fatalf("ComputeTotals not idempotent")
	}
	_ = Recent(records, 2)

	for i, r := range records {
		if before[i] != r.Date.String()+r.Amount.String() {
			t.Fatalf("record %d mutated", i)
		}
	}
}

func TestFilters(t *testing.T) {
	records := []core.Transaction{
		income(6000, "Asha", "2026-01-05"),
		expense(300, "2026-01-10"),
		income(6000, "Asha", "2026-02-05"),
		{Amount: money(-3), Description: "no date"},
	}
	jan, _ := core.ParseMonthKey("2026-01")
	if got := FilterByMonth(records, jan); len(got) != 2 {
		t.Fatalf("january filter = %d records", len(got))
	}
	if got := FilterByMonth(records, core.MonthKey{}); len(got) != 1 || got[0].Description != "no date" {
		t.Fatalf("unknown filter = %+v", got)
	}
	if got := FilterByTenant(records, " Asha "); len(got) != 2 {
		t.Fatalf("tenant filter = %d records", len(got))
	}
	if got := FilterByTenant(records, "Nobody"); len(got) != 0 {
		t.Fatalf("expected no records, got %d", len(got))
	}
}

func TestFilterByUnknownTenantMatchesDirectory(t *testing.T) {
	records := []core.Transaction{
		income(6000, "Asha", "2026-01-05"),
		income(2500, "", "2026-01-07"),
		income(1500, "  ", "2026-02-07"),
		expense(300, "2026-01-10"),
	}

	dir := BuildTenantDirectory(records)
	var unknown TenantSummary
	for _, s := range dir {
		if s.Name == core.UnknownTenant {
			unknown = s
		}
	}
	if unknown.PaymentCount != 2 {
		t.Fatalf("directory unknown entry = %+v", unknown)
	}

	got := FilterByTenant(records, core.UnknownTenant)
	if len(got) != unknown.PaymentCount {
		t.Fatalf("filter returned %d records, directory counts %d", len(got), unknown.PaymentCount)
	}
	for _, r := range got {
		if !r.IsIncome() || r.TenantName == "Asha" {
			t.Fatalf("unexpected record %+v", r)
		}
	}
}

func TestRecentOrdering(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var records []core.Transaction
	for i := 0; i < 15; i++ {
		r := income(int64(i+1), "Asha", "2026-01-01")
		r.Date = core.NewDate(2026, 1, 1+i)
		r.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		records = append(records, r)
	}
	sameDay := records[14]
	sameDay.CreatedAt = sameDay.CreatedAt.Add(time.Hour)
	sameDay.Description = "later entry same day"
	records = append(records, sameDay)

	recent := Recent(records, 10)
	if len(recent) != 10 {
		t.Fatalf("expected 10, got %d", len(recent))
	}
	if recent[0].Description != "later entry same day" {
		t.Fatalf("newest first broken: %+v", recent[0])
	}
	for i := 1; i < len(recent); i++ {
		if recent[i].Date.After(recent[i-1].Date.Time) {
			t.Fatalf("not sorted at %d", i)
		}
	}
}

func TestAttachContacts(t *testing.T) {
	dir := []TenantSummary{{Name: "Asha Rao"}, {Name: "Ravi"}}
	out := AttachContacts(dir, []core.TenantContact{{Name: "asha  rao", Phone: "+919876543210"}})
	if out[0].Phone != "+919876543210" || out[1].Phone != "" {
		t.Fatalf("unexpected phones %+v", out)
	}
	if dir[0].Phone != "" {
		t.Fatalf("input directory mutated")
	}
}

// Package ledger aggregates transaction snapshots into the figures every view
// shows: totals, month buckets and the tenant directory.
//
// All functions are pure. They never modify the slice they are given and always
// recompute from the full list.
package ledger

import (
	"cmp"
	"slices"
	"strings"

	"rently/internal/core"
)

// Order selects the direction of month buckets.
type Order int

const (
	// Ascending is chronological, as the dashboard chart wants it.
	Ascending Order = iota
	// Descending puts the most recent month first, as reports want it.
	Descending
)

// Totals are the global figures. Expense is a magnitude.
type Totals struct {
	Income  core.Money `json:"income"`
	Expense core.Money `json:"expense"`
	Net     core.Money `json:"net"`
}

// MonthBucket aggregates every record of one calendar month.
type MonthBucket struct {
	Key     core.MonthKey `json:"key"`
	Income  core.Money    `json:"income"`
	Expense core.Money    `json:"expense"`
	Net     core.Money    `json:"net"`
	Count   int           `json:"count"`
}

// TenantSummary is the rollup of all income sharing a tenant name.
type TenantSummary struct {
	Name            string     `json:"name"`
	TotalPaid       core.Money `json:"totalPaid"`
	PaymentCount    int        `json:"paymentCount"`
	LastPaymentDate core.Date  `json:"lastPaymentDate"`
	Phone           string     `json:"phone,omitempty"`
}

// ComputeTotals sums income and expense magnitudes.
func ComputeTotals(records []core.Transaction) Totals {
	var t Totals
	for _, r := range records {
		switch {
		case r.Amount.IsPositive():
			t.Income = t.Income.Add(r.Amount)
		case r.Amount.IsNegative():
			t.Expense = t.Expense.Add(r.Amount.Abs())
		}
	}
	t.Net = t.Income.Sub(t.Expense)
	return t
}

// GroupByMonth partitions records by calendar month. Records without a usable
// date land in the unknown bucket, which is always last.
func GroupByMonth(records []core.Transaction, order Order) []MonthBucket {
	index := make(map[core.MonthKey]int)
	var buckets []MonthBucket
	for _, r := range records {
		key := r.MonthKey()
		if key.IsUnknown() {
			key = core.MonthKey{}
		}
		i, ok := index[key]
		if !ok {
			i = len(buckets)
			index[key] = i
			buckets = append(buckets, MonthBucket{Key: key})
		}
		b := &buckets[i]
		b.Count++
		switch {
		case r.Amount.IsPositive():
			b.Income = b.Income.Add(r.Amount)
		case r.Amount.IsNegative():
			b.Expense = b.Expense.Add(r.Amount.Abs())
		}
	}
	for i := range buckets {
		buckets[i].Net = buckets[i].Income.Sub(buckets[i].Expense)
	}

	slices.SortFunc(buckets, func(a, b MonthBucket) int {
		switch {
		case a.Key == b.Key:
			return 0
		case a.Key.IsUnknown():
			return 1
		case b.Key.IsUnknown():
			return -1
		}
		c := -1
		if b.Key.Before(a.Key) {
			c = 1
		}
		if order == Descending {
			c = -c
		}
		return c
	})
	return buckets
}

// BuildTenantDirectory rolls income up per tenant name. Names are matched
// exactly, so two spellings of one tenant are two entries.
func BuildTenantDirectory(records []core.Transaction) []TenantSummary {
	index := make(map[string]int)
	var dir []TenantSummary
	for _, r := range records {
		if !r.IsIncome() {
			continue
		}
		name := strings.TrimSpace(r.TenantName)
		if name == "" {
			name = core.UnknownTenant
		}
		i, ok := index[name]
		if !ok {
			i = len(dir)
			index[name] = i
			dir = append(dir, TenantSummary{Name: name, LastPaymentDate: r.Date})
		}
		s := &dir[i]
		s.TotalPaid = s.TotalPaid.Add(r.Amount)
		s.PaymentCount++
		if r.Date.After(s.LastPaymentDate.Time) {
			s.LastPaymentDate = r.Date
		}
	}

	slices.SortFunc(dir, func(a, b TenantSummary) int {
		if c := cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return dir
}

// AttachContacts returns a copy of dir with phone numbers filled in from
// contacts whose sanitized name matches.
func AttachContacts(dir []TenantSummary, contacts []core.TenantContact) []TenantSummary {
	phones := make(map[string]string, len(contacts))
	for _, c := range contacts {
		phones[core.SanitizeTenantName(c.Name)] = c.Phone
	}
	out := slices.Clone(dir)
	for i := range out {
		if p, ok := phones[core.SanitizeTenantName(out[i].Name)]; ok {
			out[i].Phone = p
		}
	}
	return out
}

// FilterByMonth returns the records whose date falls in key. The unknown key
// selects records without a usable date.
func FilterByMonth(records []core.Transaction, key core.MonthKey) []core.Transaction {
	var out []core.Transaction
	for _, r := range records {
		rk := r.MonthKey()
		if rk == key || (rk.IsUnknown() && key.IsUnknown()) {
			out = append(out, r)
		}
	}
	return out
}

// FilterByTenant returns the records carrying exactly this tenant name.
// core.UnknownTenant also selects the unnamed income that
// BuildTenantDirectory groups under it.
func FilterByTenant(records []core.Transaction, name string) []core.Transaction {
	name = strings.TrimSpace(name)
	var out []core.Transaction
	for _, r := range records {
		tenant := strings.TrimSpace(r.TenantName)
		if tenant == name || (name == core.UnknownTenant && tenant == "" && r.IsIncome()) {
			out = append(out, r)
		}
	}
	return out
}

// Recent returns the n newest records by date, then creation time.
func Recent(records []core.Transaction, n int) []core.Transaction {
	out := slices.Clone(records)
	SortNewestFirst(out)
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// SortNewestFirst orders records in place by date then creation time, both
// descending. Records without a date go last.
func SortNewestFirst(records []core.Transaction) {
	slices.SortStableFunc(records, func(a, b core.Transaction) int {
		if c := b.Date.Compare(a.Date.Time); c != 0 {
			return c
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}

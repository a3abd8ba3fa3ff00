package core

import (
	"strings"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.0", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{"1.005", "1.005", true}, // precision kept
		{" 2.50 ", "2.5", true},
		{"6000", "6000", true},
		{"6,000", "6000", true},
		{"12,345", "12345", true},
		{"1,234,567.5", "1234567.5", true},
		{"1,00,000", "100000", true},
		{"10,00,000.25", "1000000.25", true},
		{"300,50", "300.5", true},
		{"1,2,3", "", false},
		{"1,2345", "", false},
		{"1,", "", false},
		{",5", "", false},
		{"1,5.0", "", false},
		{"1.000,50", "", false},
		{"-1", "", false},
		{"+1", "", false},
		{"0", "", false},
		{"0.00", "", false},
		{"abc", "", false},
		{"1e3", "", false},
		{"1.2.3", "", false},
		{".", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.String() != tc.out {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error, got %s", tc.in, got)
		}
	}
}

func TestMoneyArithmeticIsExact(t *testing.T) {
	tenth, _ := ParseAmount("0.1")
	sum := Zero
	for i := 0; i < 10; i++ {
		sum = sum.Add(tenth)
	}
	if !sum.Equal(MoneyFromInt(1)) {
		t.Fatalf("expected exactly 1, got %s", sum)
	}
}

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"0", "₹0.00"},
		{"5", "₹5.00"},
		{"1234.5", "₹1,234.50"},
		{"1234567.899", "₹12,34,567.89"}, // truncated, not rounded
		{"1000000", "₹10,00,000.00"},
		{"99999", "₹99,999.00"},
		{"-300", "-₹300.00"},
		{"-0.001", "₹0.00"},
		{"100", "₹100.00"},
	}
	for _, tc := range cases {
		m, err := MoneyFromString(tc.in)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.in, err)
		}
		if got := FormatAmount("₹", m); got != tc.want {
			t.Fatalf("FormatAmount(%s) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatAmountRoundTripsThroughParse(t *testing.T) {
	for _, units := range []int64{6000, 45000, 100000, 1234567} {
		m := MoneyFromInt(units)
		shown := strings.TrimPrefix(FormatAmount("₹", m), "₹")
		back, err := ParseAmount(shown)
		if err != nil || !back.Equal(m) {
			t.Fatalf("%d shown as %q parsed back to %s (err=%v)", units, shown, back, err)
		}
	}
}

func TestFormatAmountGrouping(t *testing.T) {
	m := MoneyFromInt(1234567)
	if got := FormatAmountGrouped("$", m, GroupThousands); got != "$1,234,567.00" {
		t.Fatalf("thousands = %q", got)
	}
	if got := FormatAmount("$", m); got != "$1,234,567.00" {
		t.Fatalf("non-rupee default = %q", got)
	}
	if GroupingFor("", "inr") != GroupIndian || GroupingFor("€", "EUR") != GroupThousands {
		t.Fatal("unexpected grouping choice")
	}
}

func TestMoneyJSONRoundTrip(t *testing.T) {
	m, _ := MoneyFromString("-1234.567")
	b, err := m.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"-1234.567"` {
		t.Fatalf("unexpected json %s", b)
	}
	var back Money
	if err := back.UnmarshalJSON(b); err != nil || !back.Equal(m) {
		t.Fatalf("unmarshal got %s err=%v", back, err)
	}
	if err := back.UnmarshalJSON([]byte("6000")); err != nil || !back.Equal(MoneyFromInt(6000)) {
		t.Fatalf("bare number: got %s err=%v", back, err)
	}
}

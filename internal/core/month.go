package core

import (
	"fmt"
	"strings"
	"time"
)

// UnknownMonth is the key of the bucket holding records without a usable date.
const UnknownMonth = "unknown"

// MonthKey identifies a month bucket. The zero value is the unknown bucket.
type MonthKey struct {
	Year  int
	Month time.Month
}

func NewMonthKey(year int, month time.Month) MonthKey {
	return MonthKey{Year: year, Month: month}
}

// ParseMonthKey accepts "YYYY-MM" or "unknown".
func ParseMonthKey(s string) (MonthKey, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, UnknownMonth) {
		return MonthKey{}, nil
	}
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return MonthKey{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return MonthKey{Year: t.Year(), Month: t.Month()}, nil
}

func (k MonthKey) IsUnknown() bool {
	return k.Year == 0 || k.Month < time.January || k.Month > time.December
}

func (k MonthKey) String() string {
	if k.IsUnknown() {
		return UnknownMonth
	}
	return fmt.Sprintf("%04d-%02d", k.Year, int(k.Month))
}

// Label renders the key for people, e.g. "January 2026".
func (k MonthKey) Label() string {
	if k.IsUnknown() {
		return "Unknown"
	}
	return fmt.Sprintf("%s %d", k.Month.String(), k.Year)
}

// Before orders known months chronologically; unknown sorts after every month.
func (k MonthKey) Before(o MonthKey) bool {
	switch {
	case k.IsUnknown():
		return false
	case o.IsUnknown():
		return true
	case k.Year != o.Year:
		return k.Year < o.Year
	default:
		return k.Month < o.Month
	}
}

func (k MonthKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *MonthKey) UnmarshalText(b []byte) error {
	parsed, err := ParseMonthKey(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"

	// DateLayout is the only accepted wire format for calendar dates.
	DateLayout = "2006-01-02"

	// ExpenseTenantSentinel is what older clients stored as tenantName on expenses.
	ExpenseTenantSentinel = "Property Expense"

	// UnknownTenant groups income records that were stored without a tenant name.
	UnknownTenant = "Unknown"

	MaxDescriptionLength = 200
	MaxTenantNameLength  = 100
)

type (
	Kind string

	// Date is a calendar date at UTC midnight. The zero Date marks a record whose
	// stored date could not be parsed.
	Date struct {
		time.Time
	}

	// Transaction is one ledger entry. Amount is signed and is the only source
	// of truth for the entry kind.
	Transaction struct {
		ID          string
		OwnerID     string
		Amount      Money
		Description string
		TenantName  string
		Date        Date
		CreatedAt   time.Time
	}

	// NewTransaction is a user submission before it becomes a Transaction.
	// Amount carries the magnitude; Kind decides the sign.
	NewTransaction struct {
		Kind        Kind
		Amount      Money
		Description string
		TenantName  string
		Date        Date
	}

	// Identity is what the identity provider tells us about a signed-in user.
	Identity struct {
		UID         string `json:"uid"`
		DisplayName string `json:"displayName"`
		Email       string `json:"email"`
		PhotoURL    string `json:"photoURL"`
	}
)

// ParseKind accepts "income" or "expense", case-insensitively.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindIncome:
		return KindIncome, nil
	case KindExpense:
		return KindExpense, nil
	default:
		return "", ErrInvalidKind
	}
}

// KindOf derives the kind from a signed amount. Zero counts as expense so
// that it never contributes a tenant payment.
func KindOf(m Money) Kind {
	if m.IsPositive() {
		return KindIncome
	}
	return KindExpense
}

func (k Kind) Validate() error {
	if k != KindIncome && k != KindExpense {
		return ErrInvalidKind
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a strict YYYY-MM-DD date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// String returns the YYYY-MM-DD form, or "" for the zero Date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// MonthKey returns the (year, month) bucket of the date. The zero Date maps to
// the unknown bucket.
func (d Date) MonthKey() MonthKey {
	if d.IsZero() {
		return MonthKey{}
	}
	return MonthKey{Year: d.Year(), Month: d.Time.Month()}
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Kind derives income/expense from the amount sign.
func (t Transaction) Kind() Kind {
	return KindOf(t.Amount)
}

func (t Transaction) IsIncome() bool {
	return t.Amount.IsPositive()
}

func (t Transaction) MonthKey() MonthKey {
	return t.Date.MonthKey()
}

// NormalizeTenantName maps what a store returned to the in-memory form:
// expenses never carry a tenant and the legacy sentinel reads as empty.
func NormalizeTenantName(amount Money, stored string) string {
	stored = strings.TrimSpace(stored)
	if !amount.IsPositive() || stored == ExpenseTenantSentinel {
		return ""
	}
	return stored
}

// Validate checks a submission before any store call is made.
func (n NewTransaction) Validate() error {
	if err := n.Kind.Validate(); err != nil {
		return &ValidationError{Field: "type", Err: err}
	}
	if !n.Amount.IsPositive() {
		return &ValidationError{Field: "amount", Err: ErrInvalidAmount}
	}
	desc := strings.TrimSpace(n.Description)
	if desc == "" {
		return &ValidationError{Field: "description", Err: ErrEmptyDescription}
	}
	if len(desc) > MaxDescriptionLength {
		return &ValidationError{Field: "description", Err: ErrDescriptionTooLong}
	}
	if n.Kind == KindIncome {
		name := strings.TrimSpace(n.TenantName)
		if name == "" {
			return &ValidationError{Field: "tenantName", Err: ErrMissingTenant}
		}
		if len(name) > MaxTenantNameLength {
			return &ValidationError{Field: "tenantName", Err: ErrTenantNameTooLong}
		}
	}
	if err := n.Date.Validate(); err != nil {
		return &ValidationError{Field: "date", Err: err}
	}
	return nil
}

// Record turns a validated submission into a signed Transaction. The store
// assigns the ID.
func (n NewTransaction) Record(ownerID string, createdAt time.Time) Transaction {
	amount := n.Amount.Abs()
	tenant := strings.TrimSpace(n.TenantName)
	if n.Kind == KindExpense {
		amount = amount.Neg()
		tenant = ""
	}
	return Transaction{
		OwnerID:     ownerID,
		Amount:      amount,
		Description: strings.TrimSpace(n.Description),
		TenantName:  tenant,
		Date:        n.Date,
		CreatedAt:   createdAt.UTC(),
	}
}

// Fingerprint identifies a submission for duplicate suppression.
func (n NewTransaction) Fingerprint() string {
	return strings.Join([]string{
		string(n.Kind),
		n.Amount.String(),
		strings.TrimSpace(n.Description),
		strings.TrimSpace(n.TenantName),
		n.Date.String(),
	}, "|")
}

var errEmptyOwner = errors.New("empty owner id")

// ValidateOwner is used by stores before touching owner-scoped data.
func ValidateOwner(ownerID string) error {
	if strings.TrimSpace(ownerID) == "" {
		return errEmptyOwner
	}
	return nil
}

package core

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// TenantContact is the phone number a landlord saved against a tenant name.
// It is addressed by name and outlives the tenant's transactions.
type TenantContact struct {
	OwnerID   string
	Name      string
	Phone     string
	UpdatedAt time.Time
}

// SanitizeTenantName folds a tenant name into a key-safe form:
// "  Asha  Rao!" -> "asha_rao". Letters of any script survive, so "José" and
// "Jos" stay distinct. Input is NFC-normalized first so composed and
// decomposed spellings share a key.
func SanitizeTenantName(name string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(norm.NFC.String(strings.TrimSpace(name))) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || (unicode.IsMark(r) && b.Len() > 0 && !pendingSep) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	return b.String()
}

// ContactKey is the document key of a contact record.
func ContactKey(ownerID, tenantName string) string {
	return ownerID + "_" + SanitizeTenantName(tenantName)
}

func (c TenantContact) Key() string {
	return ContactKey(c.OwnerID, c.Name)
}

// NormalizePhone strips formatting and keeps a leading "+".
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	var b strings.Builder
	for i, r := range phone {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (c TenantContact) Validate() error {
	if strings.TrimSpace(c.Name) == "" || SanitizeTenantName(c.Name) == "" {
		return &ValidationError{Field: "name", Err: ErrMissingTenant}
	}
	digits := strings.TrimPrefix(NormalizePhone(c.Phone), "+")
	if len(digits) < 7 || len(digits) > 15 {
		return &ValidationError{Field: "phone", Err: ErrInvalidPhone}
	}
	return nil
}

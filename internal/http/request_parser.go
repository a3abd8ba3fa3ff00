package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"rently/internal/core"
)

const maxBodyBytes = 64 << 10

var errBadBody = errors.New("malformed request body")

// decodeJSON reads one JSON object from the body into dst. Unknown fields and
// trailing data are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &core.ValidationError{Field: "body", Err: fmt.Errorf("%w: %v", errBadBody, err)}
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return &core.ValidationError{Field: "body", Err: errBadBody}
	}
	return nil
}

// amountInput accepts an amount written as a JSON string ("12,50") or number.
type amountInput string

func (a *amountInput) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*a = amountInput(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("amount must be a string or number")
	}
	*a = amountInput(n.String())
	return nil
}

// transactionRequest is the body of POST /api/transactions.
type transactionRequest struct {
	Type        string      `json:"type"`
	Amount      amountInput `json:"amount"`
	Description string      `json:"description"`
	TenantName  string      `json:"tenantName"`
	Date        string      `json:"date"`
}

// parseTransactionRequest turns the body into a draft. Field level problems
// come back as *core.ValidationError naming the field.
func parseTransactionRequest(req transactionRequest) (core.NewTransaction, error) {
	kind, err := core.ParseKind(req.Type)
	if err != nil {
		return core.NewTransaction{}, &core.ValidationError{Field: "type", Err: err}
	}
	amount, err := core.ParseAmount(string(req.Amount))
	if err != nil {
		return core.NewTransaction{}, &core.ValidationError{Field: "amount", Err: err}
	}
	date, err := core.ParseDate(req.Date)
	if err != nil {
		return core.NewTransaction{}, &core.ValidationError{Field: "date", Err: core.ErrInvalidDate}
	}
	draft := core.NewTransaction{
		Kind:        kind,
		Amount:      amount,
		Description: sanitizeInput(req.Description),
		TenantName:  sanitizeInput(req.TenantName),
		Date:        date,
	}
	return draft, draft.Validate()
}

// parseMonthParam reads a "YYYY-MM" or "unknown" value. ok is false when the
// value is empty.
func parseMonthParam(raw string) (key core.MonthKey, ok bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return core.MonthKey{}, false, nil
	}
	key, err = core.ParseMonthKey(raw)
	if err != nil {
		return core.MonthKey{}, false, &core.ValidationError{Field: "month", Err: core.ErrInvalidMonth}
	}
	return key, true, nil
}

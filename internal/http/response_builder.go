package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"rently/internal/core"
	applog "rently/internal/log"
)

// JSONResponseBuilder assembles a JSON response with a fluent API.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	data       any
}

// NewJSONResponse starts a 200 response.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

func (b *JSONResponseBuilder) Data(v any) *JSONResponseBuilder {
	b.data = v
	return b
}

func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for k, v := range b.headers {
		w.Header().Set(k, v)
	}
	if b.data == nil || b.statusCode == http.StatusNoContent {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	if err := json.NewEncoder(w).Encode(b.data); err != nil {
		slog.Error("Failed to encode JSON response", "component", applog.ComponentHTTP, "error", err)
	}
}

// errorBody is the shape of every error response.
type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Data(errorBody{Error: message})
}

func UnauthorizedError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnauthorized, "sign in required")
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// writeError maps the core error taxonomy onto a status code. Unknown errors
// become 500 without leaking their text.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	logger := applog.FromContext(r.Context())

	var (
		ve *core.ValidationError
		ae *core.AuthError
		we *core.StoreWriteError
		re *core.StoreReadError
	)
	switch {
	case errors.As(err, &ve):
		NewJSONResponse().Status(http.StatusUnprocessableEntity).
			Data(errorBody{Error: ve.Err.Error(), Field: ve.Field}).Write(w)
	case errors.As(err, &ae):
		logger.WarnContext(r.Context(), "Authentication failed", applog.FieldOperation, op, applog.FieldError, err)
		UnauthorizedError().Write(w)
	case errors.As(err, &we):
		switch {
		case errors.Is(err, core.ErrNotFound):
			NotFoundError("transaction not found").Write(w)
		case errors.Is(err, core.ErrPermission):
			ErrorResponse(http.StatusForbidden, "permission denied").Write(w)
		default:
			applog.NewStructuredLogger(logger).LogError(r.Context(), "Store write failed", err, applog.ComponentLedger, op, nil)
			ErrorResponse(http.StatusBadGateway, we.Error()).Write(w)
		}
	case errors.As(err, &re):
		applog.NewStructuredLogger(logger).LogError(r.Context(), "Store read failed", err, applog.ComponentLedger, op, nil)
		ErrorResponse(http.StatusServiceUnavailable, "ledger temporarily unavailable").Write(w)
	default:
		logger.ErrorContext(r.Context(), "Unexpected error", applog.FieldOperation, op, applog.FieldError, err)
		ErrorResponse(http.StatusInternalServerError, "internal error").Write(w)
	}
}

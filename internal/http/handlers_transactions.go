package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"rently/internal/core"
	"rently/internal/ledger"
	applog "rently/internal/log"
	"rently/internal/session"
)

type transactionListJSON struct {
	Ready        bool              `json:"ready"`
	Degraded     bool              `json:"degraded"`
	Transactions []transactionJSON `json:"transactions"`
}

// handleListTransactions serves the live snapshot, optionally narrowed by
// ?month=YYYY-MM|unknown and ?tenant=.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	q := r.URL.Query()
	month, byMonth, err := parseMonthParam(q.Get("month"))
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}

	v := sess.Current()
	records := v.Records
	if byMonth {
		records = ledger.FilterByMonth(records, month)
	}
	if tenant := strings.TrimSpace(q.Get("tenant")); tenant != "" {
		records = ledger.FilterByTenant(records, tenant)
	}
	ledger.SortNewestFirst(records)

	NewJSONResponse().Data(transactionListJSON{
		Ready:        v.Ready,
		Degraded:     v.Err != nil,
		Transactions: toTransactionJSON(records, s.format),
	}).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "create", err)
		return
	}
	draft, err := parseTransactionRequest(req)
	if err != nil {
		writeError(w, r, "create", err)
		return
	}

	id, err := sess.Create(r.Context(), draft)
	if err != nil {
		writeError(w, r, "create", err)
		return
	}

	owner, _ := sess.Identity()
	applog.NewStructuredLogger(applog.FromContext(r.Context())).
		LogTransactionCreated(r.Context(), owner.UID, id, string(draft.Kind), draft.Amount.String(), draft.TenantName)

	NewJSONResponse().Status(http.StatusCreated).
		Header("Location", "/api/transactions/"+id).
		Data(map[string]string{"id": id}).Write(w)
}

// handleDeleteTransaction needs ?confirm=true; deletes are not undoable.
func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	id := strings.TrimSpace(mux.Vars(r)["id"])
	if confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm")); !confirmed {
		ErrorResponse(http.StatusPreconditionRequired, "deleting a transaction needs confirm=true").Write(w)
		return
	}
	if id == "" {
		writeError(w, r, "delete", &core.ValidationError{Field: "id", Err: core.ErrNotFound})
		return
	}

	if err := sess.Delete(r.Context(), id); err != nil {
		writeError(w, r, "delete", err)
		return
	}

	owner, _ := sess.Identity()
	applog.NewStructuredLogger(applog.FromContext(r.Context())).
		LogTransactionDeleted(r.Context(), owner.UID, id)
	w.WriteHeader(http.StatusNoContent)
}

package http

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"rently/internal/ledger"
	applog "rently/internal/log"
	"rently/internal/report"
	"rently/internal/session"
)

type reportsJSON struct {
	Degraded bool              `json:"degraded"`
	Totals   totalsJSON        `json:"totals"`
	Months   []report.MonthRow `json:"months"`
}

// handleReports reads the owner's records once and returns month rows, most
// recent first. A failed read answers 503 with the empty shape.
func (s *Server) handleReports(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	records, err := sess.QueryOnce(r.Context())
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Report query failed", applog.FieldError, err)
		NewJSONResponse().Status(http.StatusServiceUnavailable).Data(reportsJSON{
			Degraded: true,
			Totals:   toTotalsJSON(ledger.Totals{}, s.format),
			Months:   []report.MonthRow{},
		}).Write(w)
		return
	}

	monthly := report.BuildMonthly(records, s.format)
	NewJSONResponse().Data(reportsJSON{
		Totals: toTotalsJSON(monthly.Totals, s.format),
		Months: monthly.Months,
	}).Write(w)
}

type monthDetailJSON struct {
	Ready        bool              `json:"ready"`
	Degraded     bool              `json:"degraded"`
	Month        report.MonthRow   `json:"month"`
	Transactions []transactionJSON `json:"transactions"`
}

// handleMonthDetail drills into one month of the live snapshot.
func (s *Server) handleMonthDetail(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	key, _, err := parseMonthParam(mux.Vars(r)["month"])
	if err != nil {
		writeError(w, r, "drill_down", err)
		return
	}
	v := sess.Current()
	detail := report.DrillDown(v.Records, key, s.format)
	NewJSONResponse().Data(monthDetailJSON{
		Ready:        v.Ready,
		Degraded:     v.Err != nil,
		Month:        detail.Month,
		Transactions: toTransactionJSON(detail.Records, s.format),
	}).Write(w)
}

// handleStatement renders a PDF of all records, or of ?month= only.
func (s *Server) handleStatement(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	key, byMonth, err := parseMonthParam(r.URL.Query().Get("month"))
	if err != nil {
		writeError(w, r, applog.OpRender, err)
		return
	}
	records, err := sess.QueryOnce(r.Context())
	if err != nil {
		writeError(w, r, applog.OpRender, err)
		return
	}

	period, suffix := "All time", "all"
	if byMonth {
		records = ledger.FilterByMonth(records, key)
		period, suffix = key.Label(), key.String()
	}
	owner, _ := sess.Identity()

	var buf bytes.Buffer
	err = report.WriteStatementPDF(&buf, report.Statement{
		Owner:       owner,
		Period:      period,
		Currency:    s.opts.CurrencyCode,
		Records:     records,
		GeneratedAt: time.Now(),
	})
	if err != nil {
		writeError(w, r, applog.OpRender, err)
		return
	}

	applog.FromContext(r.Context()).DebugContext(r.Context(), "Statement rendered",
		applog.FieldOperation, applog.OpRender,
		applog.FieldMonth, suffix,
		applog.FieldCount, len(records))

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="rently-statement-`+suffix+`.pdf"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

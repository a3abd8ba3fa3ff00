package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"rently/internal/ledger"
	applog "rently/internal/log"
	"rently/internal/session"
)

const (
	recentLimit       = 10
	streamHeartbeat   = 25 * time.Second
	streamEventUpdate = "dashboard"
	streamEventEnd    = "signed_out"
)

type chartPoint struct {
	ledger.MonthBucket
	Label string `json:"label"`
}

type dashboardJSON struct {
	Ready     bool              `json:"ready"`
	Degraded  bool              `json:"degraded"`
	Version   uint64            `json:"version"`
	UpdatedAt *time.Time        `json:"updatedAt,omitempty"`
	Totals    totalsJSON        `json:"totals"`
	Chart     []chartPoint      `json:"chart"`
	Recent    []transactionJSON `json:"recent"`
}

// dashboard aggregates the session's live snapshot. An empty or failed
// snapshot still yields a complete, zeroed payload.
func (s *Server) dashboard(v session.View) dashboardJSON {
	buckets := ledger.GroupByMonth(v.Records, ledger.Ascending)
	chart := make([]chartPoint, 0, len(buckets))
	for _, b := range buckets {
		chart = append(chart, chartPoint{MonthBucket: b, Label: b.Key.Label()})
	}
	d := dashboardJSON{
		Ready:    v.Ready,
		Degraded: v.Err != nil,
		Version:  v.Version,
		Totals:   toTotalsJSON(ledger.ComputeTotals(v.Records), s.format),
		Chart:    chart,
		Recent:   toTransactionJSON(ledger.Recent(v.Records, recentLimit), s.format),
	}
	if !v.At.IsZero() {
		at := v.At.UTC()
		d.UpdatedAt = &at
	}
	return d
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	NewJSONResponse().Data(s.dashboard(sess.Current())).Write(w)
}

// handleStream pushes one dashboard event per snapshot version until the
// client goes away or the session ends.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	changed, stop := sess.Watch()
	defer stop()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	logger := applog.FromContext(r.Context())
	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	var sent uint64
	first := true
	for {
		if _, ok := sess.Identity(); !ok {
			_, _ = fmt.Fprintf(w, "event: %s\ndata: {}\n\n", streamEventEnd)
			_ = rc.Flush()
			return
		}
		if v := sess.Current(); first || v.Version != sent {
			payload, err := json.Marshal(s.dashboard(v))
			if err != nil {
				logger.ErrorContext(r.Context(), "Encode stream event failed", applog.FieldError, err)
				return
			}
			if _, err := fmt.Fprintf(w, "event: %s\nid: %d\ndata: %s\n\n", streamEventUpdate, v.Version, payload); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
			sent, first = v.Version, false
		}

		select {
		case <-r.Context().Done():
			return
		case <-changed:
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

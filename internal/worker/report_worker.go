package worker

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"rently/internal/amqp"
	applog "rently/internal/log"
	"rently/internal/report"
	"rently/internal/sheets"
	"rently/internal/store"
)

// ReportWorker keeps each owner's spreadsheet report in step with the ledger.
// Every change event triggers a full rebuild from the store, so lost or
// reordered events heal on the next one.
type ReportWorker struct {
	reader store.Reader
	writer sheets.ReportWriter
	flight singleflight.Group
	// concurrency bounds Resync.
	concurrency int
}

func NewReportWorker(reader store.Reader, writer sheets.ReportWriter, concurrency int) *ReportWorker {
	if concurrency < 1 {
		concurrency = 1
	}
	return &ReportWorker{reader: reader, writer: writer, concurrency: concurrency}
}

// HandleLedgerChanged processes one change event from AMQP.
func (w *ReportWorker) HandleLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error {
	slog.InfoContext(ctx, "Processing ledger change",
		applog.FieldComponent, applog.ComponentWorker,
		applog.FieldOwner, msg.OwnerID,
		"op", msg.Op,
		applog.FieldTransactionID, msg.TransactionID)
	return w.SyncOwner(ctx, msg.OwnerID)
}

// SyncOwner rebuilds ownerID's report. Concurrent calls for one owner share a
// single rebuild.
func (w *ReportWorker) SyncOwner(ctx context.Context, ownerID string) error {
	_, err, _ := w.flight.Do(ownerID, func() (any, error) {
		records, err := w.reader.QueryOnce(ctx, ownerID)
		if err != nil {
			return nil, fmt.Errorf("load ledger: %w", err)
		}
		monthly := report.BuildMonthly(records, report.Formatter{})
		ref, err := w.writer.WriteMonthlyReport(ctx, ownerID, monthly.Months)
		if err != nil {
			return nil, fmt.Errorf("write report: %w", err)
		}
		slog.InfoContext(ctx, "Report synced",
			applog.FieldComponent, applog.ComponentWorker,
			applog.FieldOperation, applog.OpSync,
			applog.FieldOwner, ownerID,
			"months", len(monthly.Months),
			applog.FieldCount, len(records),
			applog.FieldSheetsRef, ref)
		return nil, nil
	})
	return err
}

// Resync rebuilds the reports of several owners, used at startup to recover
// from events missed while the worker was down. It keeps going past failures
// and reports how many owners failed.
func (w *ReportWorker) Resync(ctx context.Context, owners []string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)

	failed := make(chan string, len(owners))
	for _, owner := range owners {
		g.Go(func() error {
			if err := w.SyncOwner(ctx, owner); err != nil {
				slog.ErrorContext(ctx, "Resync failed", applog.FieldComponent, applog.ComponentWorker, applog.FieldOwner, owner, applog.FieldError, err)
				failed <- owner
			}
			return nil
		})
	}
	_ = g.Wait()
	close(failed)

	if n := len(failed); n > 0 {
		return fmt.Errorf("resync: %d of %d owners failed", n, len(owners))
	}
	slog.InfoContext(ctx, "Startup resync completed", "owners", len(owners))
	return nil
}

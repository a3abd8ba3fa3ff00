package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"strings"
	"time"

	"rently/internal/amqp"
	"rently/internal/cli"
	applog "rently/internal/log"
	gsheet "rently/internal/sheets/google"
	"rently/internal/worker"
)

func main() {
	resync := flag.String("resync", "", "comma separated owner IDs whose reports are rebuilt at startup")
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger("rently-worker")
	cfg := cli.LoadAndValidateConfig(logger)
	if err := cfg.ValidateWorker(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	logger = applog.FromSettings(cfg.LogLevel, cfg.LogFormat, "rently-worker")
	applog.SetDefault(logger)

	logger.Info("Starting rently-worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app := cli.InitFirebase(ctx, logger, cfg)
	be := cli.InitBackend(ctx, logger, cfg, app)
	defer be.Close()

	sheetsClient, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
		TabPrefix:          cfg.GoogleReportTabPrefix,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	reports := worker.NewReportWorker(be.Gateway, sheetsClient, cfg.WorkerConcurrency)

	if owners := splitOwners(*resync); len(owners) > 0 {
		logger.Info("Performing startup resync", "owners", len(owners))
		if err := reports.Resync(ctx, owners); err != nil {
			// Keep consuming; the next change event retries.
			logger.Error("Startup resync incomplete", "error", err)
		}
	}

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		cancel()
	})

	consumed := make(chan error, 1)
	go func() {
		consumed <- amqpClient.ConsumeLedgerChanged(ctx, reports.HandleLedgerChanged)
	}()

	select {
	case <-shutdownCtx.Done():
		<-done
	case err := <-consumed:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", "error", err)
			os.Exit(1)
		}
	}
	logger.Info("Worker stopped gracefully")
}

func splitOwners(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

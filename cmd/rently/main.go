package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	fb "firebase.google.com/go/v4"

	"rently/internal/amqp"
	"rently/internal/auth"
	"rently/internal/cli"
	"rently/internal/config"
	apphttp "rently/internal/http"
	applog "rently/internal/log"
	"rently/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("rently")
	cfg := cli.LoadAndValidateConfig(logger)

	// LOG_* may have come from .env
	logger = applog.FromSettings(cfg.LogLevel, cfg.LogFormat, "rently")
	applog.SetDefault(logger)

	ctx := context.Background()
	app := cli.InitFirebase(ctx, logger, cfg)
	be := cli.InitBackend(ctx, logger, cfg, app)

	var publisher services.Publisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		publisher = amqpClient
		logger.Info("Publishing ledger changes", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	ledger := services.NewLedgerService(be.Gateway, publisher)

	verifier, err := newVerifier(ctx, cfg, app)
	if err != nil {
		logger.Error("Failed to initialize identity verifier", "error", err, "provider", cfg.AuthProvider)
		os.Exit(1)
	}

	opts := apphttp.OptionsFromConfig(cfg)
	opts.Logger = logger
	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Gateway:  ledger,
		Contacts: be.Contacts,
		Verifier: verifier,
		Ready:    be.Ready,
	}, opts)

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Error("AMQP close error", "error", err)
			}
		}
		if err := be.Close(); err != nil {
			logger.Error("Backend close error", "error", err)
		}
	})

	logger.Info("Starting rently server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"auth", cfg.AuthProvider)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}

func newVerifier(ctx context.Context, cfg *config.Config, app *fb.App) (auth.Verifier, error) {
	if cfg.AuthProvider != "firebase" {
		return auth.DevVerifier{}, nil
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, err
	}
	return auth.NewFirebaseVerifier(client), nil
}

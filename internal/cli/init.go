// Package cli holds the startup steps shared by cmd/rently and
// cmd/rently-worker.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	fb "firebase.google.com/go/v4"
	"github.com/joho/godotenv"

	"rently/internal/backend"
	"rently/internal/config"
	"rently/internal/firebase"
	applog "rently/internal/log"
)

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default.
func SetupLogger(component string) *applog.Logger {
	logger := applog.FromSettings(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"), component)
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads .env for local development. A missing file is fine.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and exits the process when it is
// invalid.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldOperation, applog.OpStartup, applog.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// InitFirebase returns the Admin app when the config needs one, nil otherwise.
// It exits the process on failure.
func InitFirebase(ctx context.Context, logger *applog.Logger, cfg *config.Config) *fb.App {
	if !cfg.UsesFirebase() {
		return nil
	}
	app, err := firebase.NewApp(ctx, firebase.Credentials{
		ProjectID: cfg.FirebaseProjectID,
		JSON:      cfg.FirebaseServiceAccountJSON,
		Base64:    cfg.FirebaseServiceAccountB64,
		File:      cfg.FirebaseServiceAccountFile,
	})
	if err != nil {
		logger.Error("Failed to initialize Firebase", "error", err)
		os.Exit(1)
	}
	return app
}

// InitBackend builds the configured transaction store. It exits the process
// on failure.
func InitBackend(ctx context.Context, logger *applog.Logger, cfg *config.Config, app *fb.App) *backend.Result {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}

	var openFirestore backend.FirestoreClientFunc
	if app != nil {
		openFirestore = app.Firestore
	}
	res, err := backend.NewFactory(logger.Logger, openFirestore).Create(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldOperation, applog.OpStartup, applog.FieldError, err, "backend", bcfg.Type)
		os.Exit(1)
	}
	return res
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. cleanup
// runs with a deadline of timeout; done closes once it has returned.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		sig := <-sigChan
		logger.Info("Shutdown signal received", applog.FieldOperation, applog.OpShutdown, "signal", sig.String())
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup(shutdownCtx)
			}
			close(finished)
		}()

		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached")
		}
	}()

	return ctx, done
}

// WaitForShutdown blocks until the signal arrives and cleanup finished.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}


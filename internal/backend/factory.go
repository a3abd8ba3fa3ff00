package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	gcfirestore "cloud.google.com/go/firestore"

	applog "rently/internal/log"
	"rently/internal/store/firestore"
	"rently/internal/store/memory"
	"rently/internal/store/sqlite"
)

// FirestoreClientFunc opens a Firestore client, typically app.Firestore.
type FirestoreClientFunc func(ctx context.Context) (*gcfirestore.Client, error)

var ErrNoFirestore = errors.New("firestore backend needs a firebase app")

type DefaultFactory struct {
	logger    *slog.Logger
	firestore FirestoreClientFunc
}

// NewFactory returns a factory. openFirestore may be nil when the firestore
// backend is not used.
func NewFactory(logger *slog.Logger, openFirestore FirestoreClientFunc) *DefaultFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger, firestore: openFirestore}
}

var _ Factory = (*DefaultFactory)(nil)

func (f *DefaultFactory) Create(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case SQLite:
		return f.createSQLite(cfg)
	case Firestore:
		return f.createFirestore(ctx)
	case Memory:
		return f.createMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.Type)
	}
}

func (f *DefaultFactory) createSQLite(cfg Config) (*Result, error) {
	repo, err := sqlite.Open(cfg.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	f.logger.Info("Initialized SQLite backend", applog.FieldComponent, applog.ComponentBackend, "db_path", cfg.SQLiteDBPath)
	return &Result{
		Type:     SQLite,
		Gateway:  repo,
		Contacts: repo,
		Ready:    repo.Ping,
		Cleanup:  repo.Close,
	}, nil
}

func (f *DefaultFactory) createFirestore(ctx context.Context) (*Result, error) {
	if f.firestore == nil {
		return nil, ErrNoFirestore
	}
	client, err := f.firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open Firestore client: %w", err)
	}
	st := firestore.New(client)
	f.logger.Info("Initialized Firestore backend", applog.FieldComponent, applog.ComponentBackend)
	return &Result{
		Type:     Firestore,
		Gateway:  st,
		Contacts: st,
		Cleanup:  st.Close,
	}, nil
}

func (f *DefaultFactory) createMemory() *Result {
	st := memory.New()
	f.logger.Warn("Using in-memory backend, data is lost on restart", applog.FieldComponent, applog.ComponentBackend)
	return &Result{
		Type:     Memory,
		Gateway:  st,
		Contacts: st,
	}
}

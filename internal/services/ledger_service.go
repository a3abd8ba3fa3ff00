package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"rently/internal/amqp"
	"rently/internal/core"
	"rently/internal/store"
)

// Publisher announces ledger changes to downstream consumers.
type Publisher interface {
	PublishLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error
}

// LedgerService wraps a store gateway and publishes a change event after each
// successful write. Reads and subscriptions pass straight through.
type LedgerService struct {
	store.Gateway
	publisher Publisher
	closers   []io.Closer
}

var _ store.Gateway = (*LedgerService)(nil)

// NewLedgerService returns the decorated gateway. publisher may be nil, in
// which case no events are sent. closers are closed by Close in order.
func NewLedgerService(gw store.Gateway, publisher Publisher, closers ...io.Closer) *LedgerService {
	return &LedgerService{Gateway: gw, publisher: publisher, closers: closers}
}

func (s *LedgerService) Create(ctx context.Context, t core.Transaction) (string, error) {
	id, err := s.Gateway.Create(ctx, t)
	if err != nil {
		return "", err
	}
	s.publish(ctx, amqp.NewLedgerChangedMessage(t.OwnerID, amqp.OpCreated, id))
	return id, nil
}

func (s *LedgerService) Delete(ctx context.Context, ownerID, id string) error {
	if err := s.Gateway.Delete(ctx, ownerID, id); err != nil {
		return err
	}
	s.publish(ctx, amqp.NewLedgerChangedMessage(ownerID, amqp.OpDeleted, id))
	return nil
}

// publish never fails the write: the record is already stored.
func (s *LedgerService) publish(ctx context.Context, msg *amqp.LedgerChangedMessage) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "No publisher configured, skipping ledger change", "op", msg.Op)
		return
	}
	if err := s.publisher.PublishLedgerChanged(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger change",
			"owner", msg.OwnerID,
			"op", msg.Op,
			"transaction_id", msg.TransactionID,
			"error", err)
	}
}

// Close releases the store and the publisher.
func (s *LedgerService) Close() error {
	var errs []error
	for _, c := range s.closers {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %w", errors.Join(errs...))
	}
	return nil
}

package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sethvargo/go-retry"

	"github.com/waseembabar1113-crypto/Treasure-money-backend/internal/domain"
	"github.com/waseembabar1113-crypto/Treasure-money-backend/internal/repository"
	"github.com/waseembabar1113-crypto/Treasure-money-backend/internal/service"
)

// JournalWorker listens on the deposits.settled topic and records each
// settlement in the ledger journal. The journal insert is keyed by deposit
// id, so redelivered events are absorbed; transient storage failures are
// retried with backoff before the event is dropped.
type JournalWorker struct {
	svc      service.LedgerService
	natsConn *nats.Conn
}

func NewJournalWorker(svc service.LedgerService, nc *nats.Conn) *JournalWorker {
	return &JournalWorker{
		svc:      svc,
		natsConn: nc,
	}
}

// Run subscribes to deposits.settled and blocks until ctx is cancelled.
func (w *JournalWorker) Run(ctx context.Context) error {
	// QueueSubscribe: each settlement is journaled by exactly one member of
	// the group even when several replicas run.
	sub, err := w.natsConn.QueueSubscribe(repository.TopicDepositsSettled, "journal_group", func(m *nats.Msg) {
		w.handleSettlement(ctx, m.Data)
	})
	if err != nil {
		return fmt.Errorf("worker: failed to subscribe to NATS: %w", err)
	}

	slog.Info("Journal worker is running")

	<-ctx.Done()

	slog.Info("Worker received shutdown signal, draining subscription...")
	return sub.Drain()
}

func (w *JournalWorker) handleSettlement(ctx context.Context, data []byte) {
	var event domain.SettlementEvent
	if err := json.Unmarshal(data, &event); err != nil {
		slog.Error("worker: failed to unmarshal settlement event", "error", err)
		return
	}

	backoff := retry.WithMaxRetries(5, retry.NewFibonacci(50*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := w.svc.RecordSettlement(ctx, event); err != nil {
			if errors.Is(err, domain.ErrStorage) {
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		slog.Error("worker: failed to journal settlement",
			"deposit_id", event.DepositID,
			"account_id", event.AccountID,
			"error", err,
		)
		return
	}

	slog.Info("worker: settlement journaled",
		"deposit_id", event.DepositID,
		"status", event.Status,
	)
}

// Start implements the infrastructure.Server interface.
func (w *JournalWorker) Start(ctx context.Context) error {
	return w.Run(ctx)
}

// Stop implements the infrastructure.Server interface (no-op, shutdown is via ctx).
func (w *JournalWorker) Stop(ctx context.Context) error {
	return nil
}

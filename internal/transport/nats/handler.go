package nats

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/waseembabar1113-crypto/Treasure-money-backend/internal/domain"
	"github.com/waseembabar1113-crypto/Treasure-money-backend/internal/repository"
	"github.com/waseembabar1113-crypto/Treasure-money-backend/internal/service"
)

// Handler subscribes to the payment confirmation topic and feeds the
// reconciler. A simulated confirmer (or a bridge from a real payment
// network) publishes domain.DepositConfirmation payloads here; delivery may
// be duplicated or out of order, which the reconciler absorbs.
type Handler struct {
	svc  service.LedgerService
	nc   *nats.Conn
	subs []*nats.Subscription
}

func NewHandler(svc service.LedgerService, nc *nats.Conn) *Handler {
	return &Handler{svc: svc, nc: nc}
}

// Start subscribes and blocks until ctx is cancelled (graceful shutdown).
func (h *Handler) Start(ctx context.Context) error {
	// QueueSubscribe: with several API replicas, each confirmation is
	// delivered to one member of the group.
	sub, err := h.nc.QueueSubscribe(repository.TopicPaymentsConfirmations, "reconciler_group", func(m *nats.Msg) {
		h.handleConfirmation(ctx, m.Data)
	})
	if err != nil {
		return err
	}
	h.subs = append(h.subs, sub)

	slog.Info("NATS confirmation handler is running")

	<-ctx.Done()
	slog.Info("NATS confirmation handler shutting down, draining subscriptions...")

	for _, s := range h.subs {
		_ = s.Drain()
	}
	return nil
}

func (h *Handler) Stop(ctx context.Context) error {
	for _, s := range h.subs {
		_ = s.Unsubscribe()
	}
	return nil
}

func (h *Handler) handleConfirmation(ctx context.Context, data []byte) {
	var conf domain.DepositConfirmation
	if err := json.Unmarshal(data, &conf); err != nil {
		slog.Error("nats: failed to unmarshal confirmation", "error", err)
		return
	}

	res, err := h.svc.ReconcileDeposit(ctx, conf)
	if err != nil {
		// Conflicts and duplicates are the reconciler doing its job, not a
		// transport failure.
		if errors.Is(err, domain.ErrConflict) || errors.Is(err, domain.ErrIllegalTransition) {
			slog.Warn("nats: confirmation rejected",
				"deposit_id", conf.DepositID,
				"tx_ref", conf.ExternalTxRef,
				"error", err,
			)
			return
		}
		slog.Error("nats: reconcile failed",
			"deposit_id", conf.DepositID,
			"tx_ref", conf.ExternalTxRef,
			"error", err,
		)
		return
	}

	slog.Info("nats: confirmation reconciled",
		"deposit_id", conf.DepositID,
		"applied", res.Applied,
		"status", res.Intent.Status,
	)
}

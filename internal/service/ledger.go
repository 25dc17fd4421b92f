package service

import (
	"context"

	"github.com/waseembabar1113-crypto/Treasure-money-backend/internal/domain"
)

// LedgerService defines the business operations for the deposit/withdrawal
// ledger. All transport layers (HTTP, NATS, the journal worker) depend on
// this interface, not on a concrete store.
type LedgerService interface {
	CreateAccount(ctx context.Context, req domain.CreateAccountRequest) (*domain.Account, error)
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
	GetBalance(ctx context.Context, accountID string) (int64, error)
	CreateDepositIntent(ctx context.Context, req domain.CreateDepositRequest) (*domain.DepositIntent, error)
	GetDepositIntent(ctx context.Context, id string) (*domain.DepositIntent, error)
	CreateWithdrawIntent(ctx context.Context, req domain.CreateWithdrawRequest) (*domain.WithdrawIntent, error)

	// ReconcileDeposit consumes one external confirmation, however it was
	// delivered. Duplicate deliveries of the same verdict are no-op
	// successes; a verdict disagreeing with a stored terminal state is
	// domain.ErrConflict and mutates nothing.
	ReconcileDeposit(ctx context.Context, conf domain.DepositConfirmation) (*domain.ReconcileResult, error)

	// RecordSettlement journals a settlement event emitted after a
	// confirmation committed. Keyed by deposit id, so redelivered events
	// are absorbed.
	RecordSettlement(ctx context.Context, event domain.SettlementEvent) error
}

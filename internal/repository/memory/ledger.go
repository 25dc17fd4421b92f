// Package memory implements the ledger service against in-process maps.
// A single mutex serializes every atomic unit, which gives the same
// exactly-once guarantees as the Postgres row locks. Used by tests and as
// a standalone dev mode without infrastructure.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/waseembabar1113-crypto/Treasure-money-backend/internal/domain"
	"github.com/waseembabar1113-crypto/Treasure-money-backend/internal/repository"
)

type Ledger struct {
	mu            sync.Mutex
	accounts      map[string]*domain.Account
	emails        map[string]struct{}
	deposits      map[string]*domain.DepositIntent
	withdrawals   map[string]*domain.WithdrawIntent
	journal       map[string]domain.SettlementEvent
	bus           repository.MessageBus
	converter     *domain.Converter
	allowNegative bool
}

func NewLedger(bus repository.MessageBus, conv *domain.Converter, allowNegative bool) *Ledger {
	return &Ledger{
		accounts:      make(map[string]*domain.Account),
		emails:        make(map[string]struct{}),
		deposits:      make(map[string]*domain.DepositIntent),
		withdrawals:   make(map[string]*domain.WithdrawIntent),
		journal:       make(map[string]domain.SettlementEvent),
		bus:           bus,
		converter:     conv,
		allowNegative: allowNegative,
	}
}

func (l *Ledger) CreateAccount(ctx context.Context, req domain.CreateAccountRequest) (*domain.Account, error) {
	if req.Email == "" {
		return nil, fmt.Errorf("%w: email is required", domain.ErrValidation)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.emails[req.Email]; ok {
		return nil, fmt.Errorf("%w: email already registered", domain.ErrConflict)
	}

	acc := &domain.Account{
		ID:        uuid.NewString(),
		Email:     req.Email,
		Name:      req.Name,
		Balance:   0,
		CreatedAt: time.Now().UTC(),
	}
	l.accounts[acc.ID] = acc
	l.emails[acc.Email] = struct{}{}

	cp := *acc
	return &cp, nil
}

func (l *Ledger) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	acc, ok := l.accounts[id]
	if !ok {
		return nil, fmt.Errorf("%w: account %s", domain.ErrNotFound, id)
	}
	cp := *acc
	return &cp, nil
}

func (l *Ledger) GetBalance(ctx context.Context, accountID string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	acc, ok := l.accounts[accountID]
	if !ok {
		return 0, fmt.Errorf("%w: account %s", domain.ErrNotFound, accountID)
	}
	return acc.Balance, nil
}

func (l *Ledger) CreateDepositIntent(ctx context.Context, req domain.CreateDepositRequest) (*domain.DepositIntent, error) {
	if req.AccountID == "" {
		return nil, fmt.Errorf("%w: account_id is required", domain.ErrValidation)
	}
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive, got %d", domain.ErrValidation, req.Amount)
	}

	coins, err := l.converter.AmountToCoins(req.Amount)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.accounts[req.AccountID]; !ok {
		return nil, fmt.Errorf("%w: account %s", domain.ErrNotFound, req.AccountID)
	}

	intent := &domain.DepositIntent{
		ID:        uuid.NewString(),
		AccountID: req.AccountID,
		AmountPKR: req.Amount,
		Coins:     coins,
		Method:    req.Method,
		Status:    domain.DepositInitiated,
		CreatedAt: time.Now().UTC(),
	}
	l.deposits[intent.ID] = intent

	cp := *intent
	return &cp, nil
}

func (l *Ledger) GetDepositIntent(ctx context.Context, id string) (*domain.DepositIntent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	intent, ok := l.deposits[id]
	if !ok {
		return nil, fmt.Errorf("%w: deposit %s", domain.ErrNotFound, id)
	}
	cp := *intent
	return &cp, nil
}

func (l *Ledger) CreateWithdrawIntent(ctx context.Context, req domain.CreateWithdrawRequest) (*domain.WithdrawIntent, error) {
	if req.AccountID == "" {
		return nil, fmt.Errorf("%w: account_id is required", domain.ErrValidation)
	}
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive, got %d", domain.ErrValidation, req.Amount)
	}
	if req.Destination == "" {
		return nil, fmt.Errorf("%w: destination is required", domain.ErrValidation)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	acc, ok := l.accounts[req.AccountID]
	if !ok {
		return nil, fmt.Errorf("%w: account %s", domain.ErrNotFound, req.AccountID)
	}

	if !l.allowNegative && acc.Balance < req.Amount {
		return nil, fmt.Errorf("%w: balance %d, requested %d", domain.ErrInsufficientFunds, acc.Balance, req.Amount)
	}

	intent := &domain.WithdrawIntent{
		ID:          uuid.NewString(),
		AccountID:   req.AccountID,
		Destination: req.Destination,
		Method:      req.Method,
		Amount:      req.Amount,
		Status:      domain.WithdrawPending,
		CreatedAt:   time.Now().UTC(),
	}
	l.withdrawals[intent.ID] = intent
	acc.Balance -= intent.Amount

	l.publish(repository.TopicWithdrawalsRequested, domain.WithdrawalEvent{
		WithdrawID: intent.ID,
		AccountID:  intent.AccountID,
		Amount:     intent.Amount,
		CreatedAt:  intent.CreatedAt,
	})

	cp := *intent
	return &cp, nil
}

func (l *Ledger) ReconcileDeposit(ctx context.Context, conf domain.DepositConfirmation) (*domain.ReconcileResult, error) {
	if conf.DepositID == "" {
		return nil, fmt.Errorf("%w: deposit_id is required", domain.ErrValidation)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	intent, ok := l.deposits[conf.DepositID]
	if !ok {
		return nil, fmt.Errorf("%w: deposit %s", domain.ErrNotFound, conf.DepositID)
	}
	acc := l.accounts[intent.AccountID]

	action, target, err := domain.PlanReconcile(intent.Status, intent.ExternalTxRef, conf)
	if err != nil {
		return nil, err
	}

	if action == domain.ReconcileNoop {
		cp := *intent
		return &domain.ReconcileResult{Intent: &cp, NewBalance: acc.Balance, Applied: false}, nil
	}

	intent.Status = target
	intent.ExternalTxRef = conf.ExternalTxRef
	if target == domain.DepositApproved {
		acc.Balance += intent.Coins
	}

	l.publish(repository.TopicDepositsSettled, domain.SettlementEvent{
		DepositID:     intent.ID,
		AccountID:     intent.AccountID,
		Coins:         intent.Coins,
		Status:        intent.Status,
		ExternalTxRef: intent.ExternalTxRef,
		SettledAt:     time.Now().UTC(),
	})

	cp := *intent
	return &domain.ReconcileResult{Intent: &cp, NewBalance: acc.Balance, Applied: true}, nil
}

func (l *Ledger) RecordSettlement(ctx context.Context, event domain.SettlementEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.journal[event.DepositID]; ok {
		return nil
	}
	l.journal[event.DepositID] = event
	return nil
}

// publish is called with the mutex held; the bus must not call back into the
// ledger.
func (l *Ledger) publish(topic string, event any) {
	if l.bus == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to marshal event", "topic", topic, "error", err)
		return
	}
	if err := l.bus.Publish(topic, data); err != nil {
		slog.Error("failed to publish event", "topic", topic, "error", err)
	}
}

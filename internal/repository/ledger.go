package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/waseembabar1113-crypto/Treasure-money-backend/internal/domain"
)

// LedgerRepo is the Postgres-backed ledger store. Every multi-step operation
// (status transition plus balance mutation, funds check plus reservation)
// runs in a single pgx transaction; per-intent serialization comes from
// SELECT ... FOR UPDATE on the intent row, so two confirmations racing for
// the same deposit are ordered by the row lock and only the first one
// observes a non-terminal state.
type LedgerRepo struct {
	dbPool        *pgxpool.Pool
	redisClient   *redis.Client
	bus           MessageBus
	converter     *domain.Converter
	allowNegative bool
}

func NewLedgerRepo(db *pgxpool.Pool, rdb *redis.Client, bus MessageBus, conv *domain.Converter, allowNegative bool) *LedgerRepo {
	return &LedgerRepo{
		dbPool:        db,
		redisClient:   rdb,
		bus:           bus,
		converter:     conv,
		allowNegative: allowNegative,
	}
}

func (r *LedgerRepo) CreateAccount(ctx context.Context, req domain.CreateAccountRequest) (*domain.Account, error) {
	if req.Email == "" {
		return nil, fmt.Errorf("%w: email is required", domain.ErrValidation)
	}

	acc := &domain.Account{
		ID:        uuid.NewString(),
		Email:     req.Email,
		Name:      req.Name,
		Balance:   0,
		CreatedAt: time.Now().UTC(),
	}

	_, err := r.dbPool.Exec(ctx, `
		INSERT INTO accounts (id, email, name, balance, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		acc.ID, acc.Email, acc.Name, acc.Balance, acc.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: email already registered", domain.ErrConflict)
		}
		return nil, storageErr("create account", err)
	}

	return acc, nil
}

func (r *LedgerRepo) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	var acc domain.Account
	err := r.dbPool.QueryRow(ctx, `
		SELECT id, email, name, balance, created_at
		FROM accounts WHERE id = $1`, id,
	).Scan(&acc.ID, &acc.Email, &acc.Name, &acc.Balance, &acc.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: account %s", domain.ErrNotFound, id)
		}
		return nil, storageErr("get account", err)
	}

	r.cacheBalance(ctx, acc.ID, acc.Balance)
	return &acc, nil
}

// GetBalance reads the balance from Redis and falls back to Postgres on a
// cache miss, warming the cache for the next caller.
func (r *LedgerRepo) GetBalance(ctx context.Context, accountID string) (int64, error) {
	if r.redisClient != nil {
		val, err := r.redisClient.Get(ctx, balanceKey(accountID)).Result()
		if err == nil {
			if bal, perr := strconv.ParseInt(val, 10, 64); perr == nil {
				return bal, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			slog.Warn("balance cache read failed, falling back to postgres", "account_id", accountID, "error", err)
		}
	}

	var balance int64
	err := r.dbPool.QueryRow(ctx, `SELECT balance FROM accounts WHERE id = $1`, accountID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("%w: account %s", domain.ErrNotFound, accountID)
		}
		return 0, storageErr("get balance", err)
	}

	r.cacheBalance(ctx, accountID, balance)
	return balance, nil
}

func (r *LedgerRepo) CreateDepositIntent(ctx context.Context, req domain.CreateDepositRequest) (*domain.DepositIntent, error) {
	if req.AccountID == "" {
		return nil, fmt.Errorf("%w: account_id is required", domain.ErrValidation)
	}
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive, got %d", domain.ErrValidation, req.Amount)
	}

	coins, err := r.converter.AmountToCoins(req.Amount)
	if err != nil {
		return nil, err
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

	_, err = r.dbPool.Exec(ctx, `
		INSERT INTO deposit_intents (id, account_id, amount_pkr, coins, method, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		intent.ID, intent.AccountID, intent.AmountPKR, intent.Coins, intent.Method, intent.Status, intent.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("%w: account %s", domain.ErrNotFound, req.AccountID)
		}
		return nil, storageErr("create deposit intent", err)
	}

	return intent, nil
}

func (r *LedgerRepo) GetDepositIntent(ctx context.Context, id string) (*domain.DepositIntent, error) {
	intent, err := scanDepositIntent(r.dbPool.QueryRow(ctx, `
		SELECT id, account_id, amount_pkr, coins, method, COALESCE(external_tx_ref, ''), status, created_at
		FROM deposit_intents WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: deposit %s", domain.ErrNotFound, id)
		}
		return nil, storageErr("get deposit intent", err)
	}
	return intent, nil
}

// CreateWithdrawIntent reserves funds optimistically: the balance is reduced
// in the same transaction that persists the pending record. Unless negative
// balances are allowed by configuration, the projected balance is checked
// under the account row lock first.
func (r *LedgerRepo) CreateWithdrawIntent(ctx context.Context, req domain.CreateWithdrawRequest) (*domain.WithdrawIntent, error) {
	if req.AccountID == "" {
		return nil, fmt.Errorf("%w: account_id is required", domain.ErrValidation)
	}
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive, got %d", domain.ErrValidation, req.Amount)
	}
	if req.Destination == "" {
		return nil, fmt.Errorf("%w: destination is required", domain.ErrValidation)
	}

	tx, err := r.dbPool.Begin(ctx)
	if err != nil {
		return nil, storageErr("begin withdraw", err)
	}
	defer tx.Rollback(ctx)

	var balance int64
	err = tx.QueryRow(ctx, `SELECT balance FROM accounts WHERE id = $1 FOR UPDATE`, req.AccountID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: account %s", domain.ErrNotFound, req.AccountID)
		}
		return nil, storageErr("lock account", err)
	}

	if !r.allowNegative && balance < req.Amount {
		return nil, fmt.Errorf("%w: balance %d, requested %d", domain.ErrInsufficientFunds, balance, req.Amount)
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

	_, err = tx.Exec(ctx, `
		INSERT INTO withdraw_intents (id, account_id, destination, method, amount, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		intent.ID, intent.AccountID, intent.Destination, intent.Method, intent.Amount, intent.Status, intent.CreatedAt,
	)
	if err != nil {
		return nil, storageErr("create withdraw intent", err)
	}

	var newBalance int64
	err = tx.QueryRow(ctx, `
		UPDATE accounts SET balance = balance - $1 WHERE id = $2 RETURNING balance`,
		intent.Amount, intent.AccountID,
	).Scan(&newBalance)
	if err != nil {
		return nil, storageErr("reserve funds", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storageErr("commit withdraw", err)
	}

	r.cacheBalance(ctx, intent.AccountID, newBalance)
	r.publish(TopicWithdrawalsRequested, domain.WithdrawalEvent{
		WithdrawID: intent.ID,
		AccountID:  intent.AccountID,
		Amount:     intent.Amount,
		CreatedAt:  intent.CreatedAt,
	})

	return intent, nil
}

// ReconcileDeposit applies one external confirmation. The intent row lock
// serializes duplicates: the first confirmation transitions the intent and
// credits the account, later identical ones commit nothing and report
// Applied=false, and a disagreeing verdict rolls back with ErrConflict.
func (r *LedgerRepo) ReconcileDeposit(ctx context.Context, conf domain.DepositConfirmation) (*domain.ReconcileResult, error) {
	if conf.DepositID == "" {
		return nil, fmt.Errorf("%w: deposit_id is required", domain.ErrValidation)
	}

	tx, err := r.dbPool.Begin(ctx)
	if err != nil {
		return nil, storageErr("begin reconcile", err)
	}
	defer tx.Rollback(ctx)

	intent, err := scanDepositIntent(tx.QueryRow(ctx, `
		SELECT id, account_id, amount_pkr, coins, method, COALESCE(external_tx_ref, ''), status, created_at
		FROM deposit_intents WHERE id = $1 FOR UPDATE`, conf.DepositID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: deposit %s", domain.ErrNotFound, conf.DepositID)
		}
		return nil, storageErr("lock deposit intent", err)
	}

	action, target, err := domain.PlanReconcile(intent.Status, intent.ExternalTxRef, conf)
	if err != nil {
		return nil, err
	}

	if action == domain.ReconcileNoop {
		var balance int64
		if err := tx.QueryRow(ctx, `SELECT balance FROM accounts WHERE id = $1`, intent.AccountID).Scan(&balance); err != nil {
			return nil, storageErr("read balance", err)
		}
		return &domain.ReconcileResult{Intent: intent, NewBalance: balance, Applied: false}, nil
	}

	_, err = tx.Exec(ctx, `
		UPDATE deposit_intents SET status = $1, external_tx_ref = $2 WHERE id = $3`,
		target, conf.ExternalTxRef, intent.ID,
	)
	if err != nil {
		return nil, storageErr("transition deposit", err)
	}

	var newBalance int64
	if target == domain.DepositApproved {
		err = tx.QueryRow(ctx, `
			UPDATE accounts SET balance = balance + $1 WHERE id = $2 RETURNING balance`,
			intent.Coins, intent.AccountID,
		).Scan(&newBalance)
	} else {
		err = tx.QueryRow(ctx, `SELECT balance FROM accounts WHERE id = $1`, intent.AccountID).Scan(&newBalance)
	}
	if err != nil {
		return nil, storageErr("apply balance delta", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storageErr("commit reconcile", err)
	}

	intent.Status = target
	intent.ExternalTxRef = conf.ExternalTxRef

	r.cacheBalance(ctx, intent.AccountID, newBalance)
	r.publish(TopicDepositsSettled, domain.SettlementEvent{
		DepositID:     intent.ID,
		AccountID:     intent.AccountID,
		Coins:         intent.Coins,
		Status:        intent.Status,
		ExternalTxRef: intent.ExternalTxRef,
		SettledAt:     time.Now().UTC(),
	})

	return &domain.ReconcileResult{Intent: intent, NewBalance: newBalance, Applied: true}, nil
}

// RecordSettlement journals a settlement event. The deposit id is the
// journal's primary key, so redelivered events insert nothing.
func (r *LedgerRepo) RecordSettlement(ctx context.Context, event domain.SettlementEvent) error {
	_, err := r.dbPool.Exec(ctx, `
		INSERT INTO ledger_journal (deposit_id, account_id, coins, status, external_tx_ref, settled_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (deposit_id) DO NOTHING`,
		event.DepositID, event.AccountID, event.Coins, event.Status, event.ExternalTxRef, event.SettledAt,
	)
	if err != nil {
		return storageErr("record settlement", err)
	}
	return nil
}

func (r *LedgerRepo) cacheBalance(ctx context.Context, accountID string, balance int64) {
	if r.redisClient == nil {
		return
	}
	// No TTL: Postgres stays the source of truth and every committed
	// mutation refreshes the key.
	if err := r.redisClient.Set(ctx, balanceKey(accountID), balance, 0).Err(); err != nil {
		slog.Warn("failed to update balance cache", "account_id", accountID, "error", err)
	}
}

func (r *LedgerRepo) publish(topic string, event any) {
	if r.bus == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to marshal event", "topic", topic, "error", err)
		return
	}
	if err := r.bus.Publish(topic, data); err != nil {
		slog.Error("failed to publish event", "topic", topic, "error", err)
	}
}

func scanDepositIntent(row pgx.Row) (*domain.DepositIntent, error) {
	var intent domain.DepositIntent
	err := row.Scan(
		&intent.ID, &intent.AccountID, &intent.AmountPKR, &intent.Coins,
		&intent.Method, &intent.ExternalTxRef, &intent.Status, &intent.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &intent, nil
}

func balanceKey(accountID string) string {
	return fmt.Sprintf("balance:%s", accountID)
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", domain.ErrStorage, op, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

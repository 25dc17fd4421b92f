package domain

import "time"

// Account holds a user's coin balance. Balance is only ever mutated inside
// the store's atomic units: +coins when a deposit intent reaches approved,
// -amount when a withdrawal intent is created.
type Account struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Balance   int64     `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
}

// DepositIntent is a requested deposit waiting for (or settled by) an
// external payment confirmation. Coins is fixed at creation and immutable;
// ExternalTxRef is empty until the first confirmation is reconciled.
type DepositIntent struct {
	ID            string        `json:"id"`
	AccountID     string        `json:"account_id"`
	AmountPKR     int64         `json:"amount_pkr"`
	Coins         int64         `json:"coins"`
	Method        string        `json:"method"`
	ExternalTxRef string        `json:"external_tx_ref,omitempty"`
	Status        DepositStatus `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
}

// WithdrawIntent reserves funds at creation time: the account balance is
// reduced in the same atomic unit that persists the record.
type WithdrawIntent struct {
	ID          string         `json:"id"`
	AccountID   string         `json:"account_id"`
	Destination string         `json:"destination"`
	Method      string         `json:"method"`
	Amount      int64          `json:"amount"`
	Status      WithdrawStatus `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
}

type CreateAccountRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type CreateDepositRequest struct {
	AccountID string `json:"account_id"`
	Amount    int64  `json:"amount"`
	Method    string `json:"method"`
}

type CreateWithdrawRequest struct {
	AccountID   string `json:"account_id"`
	Amount      int64  `json:"amount"`
	Destination string `json:"destination"`
	Method      string `json:"method"`
}

// DepositConfirmation is the reconciler's input, however the confirmation
// reached us (payment-network webhook, NATS message, simulator page).
type DepositConfirmation struct {
	DepositID     string  `json:"deposit_id"`
	ExternalTxRef string  `json:"external_tx_ref"`
	Outcome       Outcome `json:"outcome"`
}

// ReconcileResult reports what a confirmation did. Applied is false for
// idempotent redeliveries that matched the stored terminal state.
type ReconcileResult struct {
	Intent     *DepositIntent `json:"intent"`
	NewBalance int64          `json:"new_balance"`
	Applied    bool           `json:"applied"`
}

// SettlementEvent is published on the bus after a confirmation commits and
// journaled by the worker. DepositID doubles as the journal idempotency key.
type SettlementEvent struct {
	DepositID     string        `json:"deposit_id"`
	AccountID     string        `json:"account_id"`
	Coins         int64         `json:"coins"`
	Status        DepositStatus `json:"status"`
	ExternalTxRef string        `json:"external_tx_ref"`
	SettledAt     time.Time     `json:"settled_at"`
}

// WithdrawalEvent is published when a withdrawal intent is created and funds
// are reserved.
type WithdrawalEvent struct {
	WithdrawID string    `json:"withdraw_id"`
	AccountID  string    `json:"account_id"`
	Amount     int64     `json:"amount"`
	CreatedAt  time.Time `json:"created_at"`
}

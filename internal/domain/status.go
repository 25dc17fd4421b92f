package domain

import "fmt"

type DepositStatus string

const (
	DepositInitiated DepositStatus = "initiated"
	DepositApproved  DepositStatus = "approved"
	DepositFailed    DepositStatus = "failed"
)

type WithdrawStatus string

// WithdrawPending is the only withdrawal state this core exercises; funds
// are reserved at creation, before any external approval.
const WithdrawPending WithdrawStatus = "pending"

// Outcome is an external confirmer's verdict on a deposit.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

func (o Outcome) Valid() bool {
	return o == OutcomeSuccess || o == OutcomeFailure
}

// DepositStatus maps a confirmation outcome to its target terminal state.
func (o Outcome) DepositStatus() DepositStatus {
	if o == OutcomeSuccess {
		return DepositApproved
	}
	return DepositFailed
}

// Terminal reports whether no further transition is permitted out of s.
func (s DepositStatus) Terminal() bool {
	return s == DepositApproved || s == DepositFailed
}

// CanTransition enforces the deposit lifecycle: initiated may move to either
// terminal state, a terminal state may only be "re-entered" (a retry no-op).
// approved->failed and failed->approved are never legal.
func CanTransition(from, to DepositStatus) error {
	if from == to {
		return nil
	}
	if from.Terminal() {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}
	if !to.Terminal() {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}
	return nil
}

// ReconcileAction tells the store what a confirmation requires.
type ReconcileAction int

const (
	// ReconcileApply commits the transition (and, for approved, the balance
	// delta) in one atomic unit.
	ReconcileApply ReconcileAction = iota
	// ReconcileNoop acknowledges an idempotent redelivery without touching
	// anything.
	ReconcileNoop
)

// PlanReconcile decides how a confirmation applies to the intent's current
// state. It is pure; both stores call it while holding the per-intent lock
// so that exactly one of N racing confirmations observes a non-terminal
// state and gets ReconcileApply.
func PlanReconcile(current DepositStatus, storedRef string, conf DepositConfirmation) (ReconcileAction, DepositStatus, error) {
	if !conf.Outcome.Valid() {
		return ReconcileNoop, current, fmt.Errorf("%w: unknown outcome %q", ErrValidation, conf.Outcome)
	}
	target := conf.Outcome.DepositStatus()

	if current.Terminal() {
		if current != target {
			return ReconcileNoop, current, fmt.Errorf("%w: deposit already %s, got outcome %s", ErrConflict, current, conf.Outcome)
		}
		if storedRef != "" && conf.ExternalTxRef != "" && storedRef != conf.ExternalTxRef {
			return ReconcileNoop, current, fmt.Errorf("%w: external reference %q does not match stored %q", ErrConflict, conf.ExternalTxRef, storedRef)
		}
		return ReconcileNoop, current, nil
	}

	if err := CanTransition(current, target); err != nil {
		return ReconcileNoop, current, err
	}
	return ReconcileApply, target, nil
}

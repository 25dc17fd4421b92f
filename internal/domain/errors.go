package domain

import "errors"

// Sentinel errors returned by the ledger core. Transports match with
// errors.Is and map them to status codes; nothing here is retried
// automatically except ErrStorage, which marks transient infrastructure
// failures that are safe to retry because atomic units never commit
// partially.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("record not found")
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrConflict          = errors.New("confirmation conflicts with stored outcome")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrStorage           = errors.New("storage unavailable")
)

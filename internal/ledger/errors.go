package ledger

import "errors"

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAccountNotFound   = errors.New("account not found")
	ErrInvalidIntent     = errors.New("invalid intent")
	ErrAlreadySettled    = errors.New("obligation already settled")
	ErrInvalidState      = errors.New("invalid state transition")
	ErrContention        = errors.New("retry budget exhausted")
	ErrNotFound          = errors.New("not found")

	// ErrSerialization is the retryable write-write conflict surfaced by the
	// store. Atomically re-runs the whole unit; callers never see it directly.
	ErrSerialization = errors.New("serialization conflict")

	// ErrDuplicateEntry is the store-level uniqueness violation on
	// (account_id, external_ref). The idempotency guard translates it into
	// a no-op replay.
	ErrDuplicateEntry = errors.New("duplicate ledger entry")
)

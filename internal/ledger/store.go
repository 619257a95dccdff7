package ledger

import "context"

// Ops is the set of ledger mutations available inside one atomic unit. None
// of these are callable standalone — balance writes and entry appends that
// could drift apart must share a unit.
type Ops interface {
	// Account returns the wallet or ErrAccountNotFound.
	Account(ctx context.Context, id string) (Account, error)
	// EnsureAccount returns the wallet, creating it with a zero balance on
	// first credit.
	EnsureAccount(ctx context.Context, id string) (Account, error)
	// ApplyBalance adds delta to the spendable balance. A delta that would
	// drive the balance negative fails with ErrInsufficientFunds and writes
	// nothing.
	ApplyBalance(ctx context.Context, id string, delta int64) error
	// ApplyEscrow adds delta to the escrow balance, guarded non-negative.
	ApplyEscrow(ctx context.Context, id string, delta int64) error
	// AddLifetime bumps the monotonic reporting counters.
	AddLifetime(ctx context.Context, id string, earned, spent int64) error

	// AppendEntry writes one ledger entry. A second entry with the same
	// (account_id, external_ref) fails with ErrDuplicateEntry.
	AppendEntry(ctx context.Context, e Entry) error
	EntryByID(ctx context.Context, id string) (Entry, error)
	EntryByExternalRef(ctx context.Context, accountID, externalRef string) (Entry, error)
	EntriesByCounterpartyRef(ctx context.Context, ref string) ([]Entry, error)
	// SetEntryStatus performs the only permitted entry mutation. Any
	// transition not starting from `from` fails with ErrInvalidState.
	SetEntryStatus(ctx context.Context, id string, from, to EntryStatus) error

	CreateObligation(ctx context.Context, o Obligation) error
	Obligation(ctx context.Context, id string) (Obligation, error)
	// SettleObligation moves a held obligation to a terminal status exactly
	// once; anything else fails with ErrInvalidState.
	SettleObligation(ctx context.Context, id string, to ObligationStatus) error

	Milestones(ctx context.Context, userID string) (Milestones, error)
	SaveMilestones(ctx context.Context, m Milestones) error
}

// Store runs atomic units and serves read-only reporting queries. Atomic is
// all-or-nothing: on error nothing the unit wrote is visible, and a
// write-write conflict surfaces as ErrSerialization for Atomically to re-run.
type Store interface {
	Atomic(ctx context.Context, fn func(ops Ops) error) error

	// Reporting reads, outside any unit.
	AccountByID(ctx context.Context, id string) (Account, error)
	Accounts(ctx context.Context) ([]Account, error)
	AccountEntries(ctx context.Context, accountID string, limit int) ([]Entry, error)
	RecentEntries(ctx context.Context, limit int) ([]Entry, error)
	PendingWithdrawals(ctx context.Context) ([]Entry, error)
	ObligationsByStatus(ctx context.Context, status ObligationStatus) ([]Obligation, error)
}

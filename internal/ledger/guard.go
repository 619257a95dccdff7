package ledger

import (
	"context"
	"errors"
)

// Guard deduplicates externally-keyed transfers, credits and payer debits
// alike. The external reference (payment-provider transaction id, order id) is
// the identity of the entry to be written: the store's uniqueness constraint
// is the actual defense, the guard just makes it an explicit, testable step.
type Guard struct{}

// Check looks for a prior entry carrying the external reference. A hit means
// the operation already ran; the caller returns the prior result unchanged.
func (Guard) Check(ctx context.Context, ops Ops, accountID, externalRef string) (Entry, bool, error) {
	if externalRef == "" {
		return Entry{}, false, nil
	}
	prior, err := ops.EntryByExternalRef(ctx, accountID, externalRef)
	if errors.Is(err, ErrNotFound) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	return prior, true, nil
}

// Recover turns the store's duplicate-entry failure into the prior entry, for
// the race where two deliveries of the same webhook pass Check concurrently.
func (Guard) Recover(ctx context.Context, ops Ops, accountID, externalRef string, appendErr error) (Entry, bool) {
	if !errors.Is(appendErr, ErrDuplicateEntry) {
		return Entry{}, false
	}
	prior, err := ops.EntryByExternalRef(ctx, accountID, externalRef)
	if err != nil {
		return Entry{}, false
	}
	return prior, true
}

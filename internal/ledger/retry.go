package ledger

import (
	"context"
	"errors"
)

// maxAttempts caps conflict retries before surfacing ErrContention.
const maxAttempts = 5

// Atomically runs fn as one atomic unit, re-running the whole unit when the
// store detects a write-write conflict. The store guarantees a failed unit
// left no partial writes, so re-running is side-effect free.
func Atomically(ctx context.Context, store Store, fn func(ops Ops) error) error {
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err = store.Atomic(ctx, fn)
		if !errors.Is(err, ErrSerialization) {
			return err
		}
	}
	return ErrContention
}

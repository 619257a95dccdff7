package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fanvault/ledger/internal/rules"
)

// Result describes one applied transfer: every leg written, the computed
// split, and whether this was an idempotent replay of a prior transfer.
type Result struct {
	Kind            Kind    `json:"kind"`
	PayerID         string  `json:"payer_id,omitempty"`
	CounterpartyRef string  `json:"counterparty_ref"`
	Legs            []Entry `json:"legs"`
	Net             int64   `json:"net"`
	Commission      int64   `json:"commission"`
	Duplicate       bool    `json:"duplicate"`
}

// AfterHook runs inside the same atomic unit immediately after a successful
// transfer, so milestone flips commit or roll back with the legs that
// triggered them.
type AfterHook interface {
	AfterTransfer(ctx context.Context, ops Ops, res Result, cfg rules.Config) error
}

// Executor applies one logical money movement as a single all-or-nothing
// unit. Every purchase, deposit, gift and billing call in the system goes
// through this one code path.
type Executor struct {
	store Store
	rules rules.Provider
	guard Guard
	after AfterHook
	now   func() time.Time
}

type ExecutorOption func(*Executor)

// WithAfterHook attaches the reward trigger evaluator.
func WithAfterHook(h AfterHook) ExecutorOption {
	return func(x *Executor) { x.after = h }
}

// WithClock overrides entry timestamps, for tests.
func WithClock(now func() time.Time) ExecutorOption {
	return func(x *Executor) { x.now = now }
}

func NewExecutor(store Store, provider rules.Provider, opts ...ExecutorOption) *Executor {
	x := &Executor{store: store, rules: provider, now: time.Now}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Execute validates the intent, snapshots the commission rules once, and
// applies every leg inside one atomic unit. Conflicting units are re-run in
// full; an idempotency-key hit returns the prior result with no new writes.
func (x *Executor) Execute(ctx context.Context, in Intent) (Result, error) {
	if err := in.Validate(); err != nil {
		return Result{}, err
	}
	// One snapshot per logical operation, not per retry attempt: a rate
	// change mid-retry must not change what the caller was quoted.
	cfg, err := x.rules.Current(ctx)
	if err != nil {
		return Result{}, err
	}

	var res Result
	err = Atomically(ctx, x.store, func(ops Ops) error {
		var err error
		res, err = x.apply(ctx, ops, in, cfg)
		return err
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

func (x *Executor) apply(ctx context.Context, ops Ops, in Intent, cfg rules.Config) (Result, error) {
	// The key is stamped on the payer's debit entry when there is a payer,
	// and on the single credit leg otherwise.
	target := in.Payees[0].AccountID
	if in.hasPayer() {
		target = in.PayerID
	}
	if prior, dup, err := x.guard.Check(ctx, ops, target, in.IdempotencyKey); err != nil {
		return Result{}, err
	} else if dup {
		return x.replay(ctx, ops, in, prior, cfg)
	}

	res := Result{
		Kind:            in.Kind,
		PayerID:         in.PayerID,
		CounterpartyRef: uuid.NewString(),
	}
	now := x.now()

	if in.hasPayer() {
		payer, err := ops.Account(ctx, in.PayerID)
		if err != nil {
			return Result{}, err
		}
		if in.GrossAmount > payer.Balance {
			return Result{}, ErrInsufficientFunds
		}
		debit := Entry{
			ID:              uuid.NewString(),
			AccountID:       in.PayerID,
			Amount:          in.GrossAmount,
			Direction:       Debit,
			Kind:            in.Kind,
			Description:     in.Description,
			Status:          StatusSuccess,
			CounterpartyRef: res.CounterpartyRef,
			ExternalRef:     in.IdempotencyKey,
			CreatedAt:       now,
		}
		// The debit carries the idempotency key and is written before any
		// balance moves, so a concurrent duplicate collides with nothing
		// half-applied.
		if err := ops.AppendEntry(ctx, debit); err != nil {
			if prior, ok := x.guard.Recover(ctx, ops, in.PayerID, in.IdempotencyKey, err); ok {
				return x.replay(ctx, ops, in, prior, cfg)
			}
			return Result{}, err
		}
		if err := ops.ApplyBalance(ctx, in.PayerID, -in.GrossAmount); err != nil {
			return Result{}, err
		}
		if err := ops.AddLifetime(ctx, in.PayerID, 0, in.GrossAmount); err != nil {
			return Result{}, err
		}
		res.Legs = append(res.Legs, debit)

		res.Commission = CommissionFor(in.GrossAmount, cfg)
		res.Net = in.GrossAmount - res.Commission

		if res.Commission > 0 {
			leg, err := x.credit(ctx, ops, PlatformAccountID, res.Commission, KindCommission, in.Description, res.CounterpartyRef, "", now)
			if err != nil {
				return Result{}, err
			}
			res.Legs = append(res.Legs, leg)
		}

		shares := splitNet(res.Net, in.Payees)
		for i, p := range in.Payees {
			if shares[i] == 0 {
				continue
			}
			leg, err := x.credit(ctx, ops, p.AccountID, shares[i], in.Kind, in.Description, res.CounterpartyRef, "", now)
			if err != nil {
				return Result{}, err
			}
			if err := ops.AddLifetime(ctx, p.AccountID, shares[i], 0); err != nil {
				return Result{}, err
			}
			res.Legs = append(res.Legs, leg)
		}
	} else {
		// Pure credit: money entering the system, no commission.
		leg, err := x.credit(ctx, ops, target, in.GrossAmount, in.Kind, in.Description, res.CounterpartyRef, in.IdempotencyKey, now)
		if err != nil {
			if prior, ok := x.guard.Recover(ctx, ops, target, in.IdempotencyKey, err); ok {
				return x.replay(ctx, ops, in, prior, cfg)
			}
			return Result{}, err
		}
		res.Legs = append(res.Legs, leg)
		res.Net = in.GrossAmount
	}

	if x.after != nil {
		if err := x.after.AfterTransfer(ctx, ops, res, cfg); err != nil {
			return Result{}, err
		}
	}
	return res, nil
}

func (x *Executor) credit(ctx context.Context, ops Ops, accountID string, amount int64, kind Kind, description, counterpartyRef, externalRef string, now time.Time) (Entry, error) {
	if _, err := ops.EnsureAccount(ctx, accountID); err != nil {
		return Entry{}, err
	}
	e := Entry{
		ID:              uuid.NewString(),
		AccountID:       accountID,
		Amount:          amount,
		Direction:       Credit,
		Kind:            kind,
		Description:     description,
		Status:          StatusSuccess,
		CounterpartyRef: counterpartyRef,
		ExternalRef:     externalRef,
		CreatedAt:       now,
	}
	if err := ops.AppendEntry(ctx, e); err != nil {
		return Entry{}, err
	}
	if err := ops.ApplyBalance(ctx, accountID, amount); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// replay rebuilds the result of the transfer that already carries the
// external reference and writes no new legs. The after-hook still runs with
// Duplicate set, so the evaluator sees the replay and declines it itself.
func (x *Executor) replay(ctx context.Context, ops Ops, in Intent, prior Entry, cfg rules.Config) (Result, error) {
	legs, err := ops.EntriesByCounterpartyRef(ctx, prior.CounterpartyRef)
	if err != nil {
		return Result{}, err
	}
	res := Result{
		Kind:            in.Kind,
		PayerID:         in.PayerID,
		CounterpartyRef: prior.CounterpartyRef,
		Legs:            legs,
		Duplicate:       true,
	}
	for _, leg := range legs {
		switch {
		case leg.Kind == KindCommission:
			res.Commission += leg.Amount
		case leg.Direction == Credit:
			res.Net += leg.Amount
		}
	}
	if x.after != nil {
		if err := x.after.AfterTransfer(ctx, ops, res, cfg); err != nil {
			return Result{}, err
		}
	}
	return res, nil
}

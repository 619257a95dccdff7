package withdraw

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fanvault/ledger/internal/ledger"
	"github.com/fanvault/ledger/internal/rules"
)

// Service runs the payout request lifecycle: pending -> completed, or
// pending -> failed with a full refund. Funds leave the spendable balance at
// request time, before any external payout happens.
type Service struct {
	store ledger.Store
	rules rules.Provider
	now   func() time.Time
}

func New(store ledger.Store, provider rules.Provider) *Service {
	return &Service{store: store, rules: provider, now: time.Now}
}

// Request debits the account immediately and records a pending withdrawal
// entry. The entry id doubles as the withdrawal id for the admin actions.
func (s *Service) Request(ctx context.Context, userID string, amount int64) (ledger.Entry, error) {
	cfg, err := s.rules.Current(ctx)
	if err != nil {
		return ledger.Entry{}, err
	}
	if amount < cfg.WithdrawalMin || amount > cfg.WithdrawalMax {
		return ledger.Entry{}, fmt.Errorf("%w: amount %d outside withdrawal bounds [%d, %d]",
			ledger.ErrInvalidIntent, amount, cfg.WithdrawalMin, cfg.WithdrawalMax)
	}

	var entry ledger.Entry
	err = ledger.Atomically(ctx, s.store, func(ops ledger.Ops) error {
		account, err := ops.Account(ctx, userID)
		if err != nil {
			return err
		}
		if amount > account.Balance {
			return ledger.ErrInsufficientFunds
		}
		if err := ops.ApplyBalance(ctx, userID, -amount); err != nil {
			return err
		}
		entry = ledger.Entry{
			ID:              uuid.NewString(),
			AccountID:       userID,
			Amount:          amount,
			Direction:       ledger.Debit,
			Kind:            ledger.KindWithdrawal,
			Description:     "withdrawal request",
			Status:          ledger.StatusPending,
			CounterpartyRef: uuid.NewString(),
			CreatedAt:       s.now(),
		}
		return ops.AppendEntry(ctx, entry)
	})
	if err != nil {
		return ledger.Entry{}, err
	}
	return entry, nil
}

// Complete marks a pending withdrawal settled. No balance change: the money
// already left at request time.
func (s *Service) Complete(ctx context.Context, withdrawalID string) (ledger.Entry, error) {
	var entry ledger.Entry
	err := ledger.Atomically(ctx, s.store, func(ops ledger.Ops) error {
		e, err := ops.EntryByID(ctx, withdrawalID)
		if err != nil {
			return err
		}
		if e.Kind != ledger.KindWithdrawal {
			return ledger.ErrInvalidState
		}
		if err := ops.SetEntryStatus(ctx, e.ID, ledger.StatusPending, ledger.StatusSuccess); err != nil {
			return err
		}
		e.Status = ledger.StatusSuccess
		entry = e
		return nil
	})
	if err != nil {
		return ledger.Entry{}, err
	}
	return entry, nil
}

// Fail reverses a pending withdrawal in full: the entry goes failed and an
// equal-magnitude refund credit restores the balance exactly.
func (s *Service) Fail(ctx context.Context, withdrawalID string) (ledger.Entry, error) {
	var refund ledger.Entry
	err := ledger.Atomically(ctx, s.store, func(ops ledger.Ops) error {
		e, err := ops.EntryByID(ctx, withdrawalID)
		if err != nil {
			return err
		}
		if e.Kind != ledger.KindWithdrawal {
			return ledger.ErrInvalidState
		}
		if err := ops.SetEntryStatus(ctx, e.ID, ledger.StatusPending, ledger.StatusFailed); err != nil {
			return err
		}
		if err := ops.ApplyBalance(ctx, e.AccountID, e.Amount); err != nil {
			return err
		}
		refund = ledger.Entry{
			ID:              uuid.NewString(),
			AccountID:       e.AccountID,
			Amount:          e.Amount,
			Direction:       ledger.Credit,
			Kind:            ledger.KindWithdrawalRefund,
			Description:     "withdrawal failed, funds returned",
			Status:          ledger.StatusSuccess,
			CounterpartyRef: e.CounterpartyRef,
			CreatedAt:       s.now(),
		}
		return ops.AppendEntry(ctx, refund)
	})
	if err != nil {
		return ledger.Entry{}, err
	}
	return refund, nil
}

// Pending lists withdrawal requests awaiting an administrative decision.
func (s *Service) Pending(ctx context.Context) ([]ledger.Entry, error) {
	return s.store.PendingWithdrawals(ctx)
}

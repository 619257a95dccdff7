package escrow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/fanvault/ledger/internal/ledger"
	"github.com/fanvault/ledger/internal/rules"
)

// Service manages platform-held funds between payment and delivery
// confirmation: physical goods, establishment reservations. The buyer is
// debited at hold time; the seller is paid (minus commission) only on
// release, or the buyer made whole on refund.
type Service struct {
	store ledger.Store
	rules rules.Provider
	after ledger.AfterHook
	now   func() time.Time
}

type Option func(*Service)

// WithAfterHook attaches the reward evaluator so a release can fire the
// seller's first-sale milestone inside the same unit.
func WithAfterHook(h ledger.AfterHook) Option {
	return func(s *Service) { s.after = h }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(store ledger.Store, provider rules.Provider, opts ...Option) *Service {
	s := &Service{store: store, rules: provider, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type HoldInput struct {
	BuyerID     string `json:"buyer_id"`
	SellerID    string `json:"seller_id"`
	Amount      int64  `json:"amount"`
	Reference   string `json:"reference"` // order/booking id; becomes the obligation id
	Description string `json:"description"`
}

// Settlement reports what a release or refund moved.
type Settlement struct {
	Obligation ledger.Obligation `json:"obligation"`
	Net        int64             `json:"net"`
	Commission int64             `json:"commission"`
	Legs       []ledger.Entry    `json:"legs"`
}

// Hold debits the buyer and parks the amount in the platform's escrow
// balance, all in one unit with the pending hold entry.
func (s *Service) Hold(ctx context.Context, in HoldInput) (ledger.Obligation, error) {
	if in.Amount <= 0 {
		return ledger.Obligation{}, fmt.Errorf("%w: amount must be positive", ledger.ErrInvalidIntent)
	}
	if in.BuyerID == "" || in.SellerID == "" {
		return ledger.Obligation{}, fmt.Errorf("%w: buyer and seller required", ledger.ErrInvalidIntent)
	}
	if in.BuyerID == in.SellerID {
		return ledger.Obligation{}, fmt.Errorf("%w: buyer cannot be the seller", ledger.ErrInvalidIntent)
	}
	id := in.Reference
	if id == "" {
		id = uuid.NewString()
	}

	var ob ledger.Obligation
	err := ledger.Atomically(ctx, s.store, func(ops ledger.Ops) error {
		buyer, err := ops.Account(ctx, in.BuyerID)
		if err != nil {
			return err
		}
		if in.Amount > buyer.Balance {
			return ledger.ErrInsufficientFunds
		}
		if err := ops.ApplyBalance(ctx, in.BuyerID, -in.Amount); err != nil {
			return err
		}
		if err := ops.AddLifetime(ctx, in.BuyerID, 0, in.Amount); err != nil {
			return err
		}
		if _, err := ops.EnsureAccount(ctx, ledger.PlatformAccountID); err != nil {
			return err
		}
		if err := ops.ApplyEscrow(ctx, ledger.PlatformAccountID, in.Amount); err != nil {
			return err
		}
		now := s.now()
		hold := ledger.Entry{
			ID:              uuid.NewString(),
			AccountID:       in.BuyerID,
			Amount:          in.Amount,
			Direction:       ledger.Debit,
			Kind:            ledger.KindEscrowHold,
			Description:     in.Description,
			Status:          ledger.StatusPending,
			CounterpartyRef: id,
			CreatedAt:       now,
		}
		if err := ops.AppendEntry(ctx, hold); err != nil {
			return err
		}
		ob = ledger.Obligation{
			ID:          id,
			BuyerID:     in.BuyerID,
			SellerID:    in.SellerID,
			Amount:      in.Amount,
			Status:      ledger.ObligationHeld,
			HoldEntryID: hold.ID,
			CreatedAt:   now,
		}
		return ops.CreateObligation(ctx, ob)
	})
	if errors.Is(err, ledger.ErrDuplicateEntry) {
		return ledger.Obligation{}, fmt.Errorf("%w: reference %s already held", ledger.ErrInvalidState, id)
	}
	if err != nil {
		return ledger.Obligation{}, err
	}
	return ob, nil
}

// Release pays the seller on delivery confirmation. Commission is computed
// with the rules in effect at release time, not at purchase time.
func (s *Service) Release(ctx context.Context, obligationID string) (Settlement, error) {
	cfg, err := s.rules.Current(ctx)
	if err != nil {
		return Settlement{}, err
	}

	var out Settlement
	err = ledger.Atomically(ctx, s.store, func(ops ledger.Ops) error {
		ob, err := ops.Obligation(ctx, obligationID)
		if err != nil {
			return err
		}
		if ob.Status != ledger.ObligationHeld {
			log.Printf("escrow: obligation %s already %s, release is a no-op", ob.ID, ob.Status)
			out = Settlement{Obligation: ob}
			return ledger.ErrAlreadySettled
		}
		if err := ops.ApplyEscrow(ctx, ledger.PlatformAccountID, -ob.Amount); err != nil {
			return err
		}
		commission := ledger.CommissionFor(ob.Amount, cfg)
		net := ob.Amount - commission
		now := s.now()
		out = Settlement{Net: net, Commission: commission}

		if net > 0 {
			leg, err := s.credit(ctx, ops, ob.SellerID, net, ledger.KindEscrowRelease, ob.ID, now)
			if err != nil {
				return err
			}
			if err := ops.AddLifetime(ctx, ob.SellerID, net, 0); err != nil {
				return err
			}
			out.Legs = append(out.Legs, leg)
		}
		if commission > 0 {
			leg, err := s.credit(ctx, ops, ledger.PlatformAccountID, commission, ledger.KindCommission, ob.ID, now)
			if err != nil {
				return err
			}
			out.Legs = append(out.Legs, leg)
		}
		if err := ops.SetEntryStatus(ctx, ob.HoldEntryID, ledger.StatusPending, ledger.StatusSuccess); err != nil {
			return err
		}
		if err := ops.SettleObligation(ctx, ob.ID, ledger.ObligationReleased); err != nil {
			return err
		}
		ob.Status = ledger.ObligationReleased
		out.Obligation = ob

		if s.after != nil {
			res := ledger.Result{
				Kind:            ledger.KindEscrowRelease,
				PayerID:         ob.BuyerID,
				CounterpartyRef: ob.ID,
				Legs:            out.Legs,
				Net:             net,
				Commission:      commission,
			}
			return s.after.AfterTransfer(ctx, ops, res, cfg)
		}
		return nil
	})
	if err != nil {
		return out, err
	}
	return out, nil
}

// Refund returns the full held amount to the buyer on cancellation.
func (s *Service) Refund(ctx context.Context, obligationID string) (Settlement, error) {
	var out Settlement
	err := ledger.Atomically(ctx, s.store, func(ops ledger.Ops) error {
		ob, err := ops.Obligation(ctx, obligationID)
		if err != nil {
			return err
		}
		if ob.Status != ledger.ObligationHeld {
			log.Printf("escrow: obligation %s already %s, refund is a no-op", ob.ID, ob.Status)
			out = Settlement{Obligation: ob}
			return ledger.ErrAlreadySettled
		}
		if err := ops.ApplyEscrow(ctx, ledger.PlatformAccountID, -ob.Amount); err != nil {
			return err
		}
		leg, err := s.credit(ctx, ops, ob.BuyerID, ob.Amount, ledger.KindEscrowRefund, ob.ID, s.now())
		if err != nil {
			return err
		}
		if err := ops.SetEntryStatus(ctx, ob.HoldEntryID, ledger.StatusPending, ledger.StatusFailed); err != nil {
			return err
		}
		if err := ops.SettleObligation(ctx, ob.ID, ledger.ObligationRefunded); err != nil {
			return err
		}
		ob.Status = ledger.ObligationRefunded
		out = Settlement{Obligation: ob, Net: ob.Amount, Legs: []ledger.Entry{leg}}
		return nil
	})
	if err != nil {
		return out, err
	}
	return out, nil
}

func (s *Service) credit(ctx context.Context, ops ledger.Ops, accountID string, amount int64, kind ledger.Kind, ref string, now time.Time) (ledger.Entry, error) {
	if _, err := ops.EnsureAccount(ctx, accountID); err != nil {
		return ledger.Entry{}, err
	}
	e := ledger.Entry{
		ID:              uuid.NewString(),
		AccountID:       accountID,
		Amount:          amount,
		Direction:       ledger.Credit,
		Kind:            kind,
		Status:          ledger.StatusSuccess,
		CounterpartyRef: ref,
		CreatedAt:       now,
	}
	if err := ops.AppendEntry(ctx, e); err != nil {
		return ledger.Entry{}, err
	}
	if err := ops.ApplyBalance(ctx, accountID, amount); err != nil {
		return ledger.Entry{}, err
	}
	return e, nil
}

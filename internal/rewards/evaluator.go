package rewards

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fanvault/ledger/internal/ledger"
	"github.com/fanvault/ledger/internal/rules"
)

// Evaluator fires one-time milestone bonuses: first deposit (plus referral
// conversion), first sale, first posted content, profile completion. Every
// flag flip commits in the same atomic unit as the bonus it gates, so a
// retried unit cannot double-fire a milestone.
type Evaluator struct {
	store ledger.Store
	rules rules.Provider
	now   func() time.Time
}

func New(store ledger.Store, provider rules.Provider) *Evaluator {
	return &Evaluator{store: store, rules: provider, now: time.Now}
}

// saleKinds are the transfer kinds that count as a sale for the payee.
var saleKinds = map[ledger.Kind]bool{
	ledger.KindPurchase:        true,
	ledger.KindSubscriptionFee: true,
	ledger.KindGift:            true,
	ledger.KindTicket:          true,
	ledger.KindCallFee:         true,
	ledger.KindEscrowRelease:   true,
}

// AfterTransfer implements ledger.AfterHook. It runs inside the transfer's
// atomic unit with the same config snapshot the executor used.
func (e *Evaluator) AfterTransfer(ctx context.Context, ops ledger.Ops, res ledger.Result, cfg rules.Config) error {
	if res.Duplicate {
		return nil
	}
	if res.Kind == ledger.KindDeposit {
		return e.afterDeposit(ctx, ops, res, cfg)
	}
	if saleKinds[res.Kind] {
		return e.afterSale(ctx, ops, res, cfg)
	}
	return nil
}

func (e *Evaluator) afterDeposit(ctx context.Context, ops ledger.Ops, res ledger.Result, cfg rules.Config) error {
	var userID string
	for _, leg := range res.Legs {
		if leg.Direction == ledger.Credit && leg.Kind == ledger.KindDeposit {
			userID = leg.AccountID
			break
		}
	}
	if userID == "" {
		return nil
	}
	m, err := ops.Milestones(ctx, userID)
	if err != nil {
		return err
	}
	if m.HasMadeFirstDeposit {
		return nil
	}
	m.HasMadeFirstDeposit = true

	if m.ReferredBy != "" && cfg.ReferralBonus > 0 {
		// Referrer earns reward points, not currency.
		ref, err := ops.Milestones(ctx, m.ReferredBy)
		if err != nil {
			return err
		}
		ref.RewardPoints += cfg.ReferralBonus
		ref.ReferralsCount++
		if err := ops.SaveMilestones(ctx, ref); err != nil {
			return err
		}
	}
	if cfg.WelcomeBonus > 0 {
		if err := e.creditBonus(ctx, ops, userID, cfg.WelcomeBonus, ledger.KindWelcomeBonus, "welcome bonus on first deposit"); err != nil {
			return err
		}
	}
	return ops.SaveMilestones(ctx, m)
}

func (e *Evaluator) afterSale(ctx context.Context, ops ledger.Ops, res ledger.Result, cfg rules.Config) error {
	for _, leg := range res.Legs {
		if leg.Direction != ledger.Credit || leg.Kind == ledger.KindCommission {
			continue
		}
		if leg.AccountID == ledger.PlatformAccountID {
			continue
		}
		m, err := ops.Milestones(ctx, leg.AccountID)
		if err != nil {
			return err
		}
		if m.HasMadeFirstSale {
			continue
		}
		m.HasMadeFirstSale = true
		if cfg.FirstSaleBonus > 0 {
			if err := e.creditBonus(ctx, ops, leg.AccountID, cfg.FirstSaleBonus, ledger.KindReward, "first sale bonus"); err != nil {
				return err
			}
		}
		if err := ops.SaveMilestones(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

// OnContentPosted is the collaborator hook for an author's first published
// content. Fires at most once per author.
func (e *Evaluator) OnContentPosted(ctx context.Context, userID string) (bool, error) {
	cfg, err := e.rules.Current(ctx)
	if err != nil {
		return false, err
	}
	fired := false
	err = ledger.Atomically(ctx, e.store, func(ops ledger.Ops) error {
		fired = false
		m, err := ops.Milestones(ctx, userID)
		if err != nil {
			return err
		}
		if m.HasPostedFirstContent {
			return nil
		}
		m.HasPostedFirstContent = true
		if cfg.FirstContentBonus > 0 {
			if err := e.creditBonus(ctx, ops, userID, cfg.FirstContentBonus, ledger.KindReward, "first content bonus"); err != nil {
				return err
			}
		}
		fired = true
		return ops.SaveMilestones(ctx, m)
	})
	return fired, err
}

// OnProfileCompleted awards the one-time profile completion bonus as reward
// points.
func (e *Evaluator) OnProfileCompleted(ctx context.Context, userID string) (bool, error) {
	cfg, err := e.rules.Current(ctx)
	if err != nil {
		return false, err
	}
	fired := false
	err = ledger.Atomically(ctx, e.store, func(ops ledger.Ops) error {
		fired = false
		m, err := ops.Milestones(ctx, userID)
		if err != nil {
			return err
		}
		if m.HasCompletedProfile {
			return nil
		}
		m.HasCompletedProfile = true
		m.RewardPoints += cfg.ProfileCompletionBonus
		fired = true
		return ops.SaveMilestones(ctx, m)
	})
	return fired, err
}

func (e *Evaluator) creditBonus(ctx context.Context, ops ledger.Ops, accountID string, amount int64, kind ledger.Kind, description string) error {
	if _, err := ops.EnsureAccount(ctx, accountID); err != nil {
		return err
	}
	entry := ledger.Entry{
		ID:              uuid.NewString(),
		AccountID:       accountID,
		Amount:          amount,
		Direction:       ledger.Credit,
		Kind:            kind,
		Description:     description,
		Status:          ledger.StatusSuccess,
		CounterpartyRef: uuid.NewString(),
		CreatedAt:       e.now(),
	}
	if err := ops.AppendEntry(ctx, entry); err != nil {
		return err
	}
	return ops.ApplyBalance(ctx, accountID, amount)
}

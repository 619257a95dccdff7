package rewards

import (
	"context"
	"testing"

	"github.com/fanvault/ledger/internal/ledger"
	"github.com/fanvault/ledger/internal/rules"
)

var testCfg = rules.Config{
	FirstContentBonus:      300,
	FirstSaleBonus:         500,
	ProfileCompletionBonus: 50,
	ReferralBonus:          25,
	WelcomeBonus:           1000,
}

func depositFixture(t *testing.T) (*ledger.Executor, *ledger.MemStore) {
	t.Helper()
	store := ledger.NewMemStore()
	eval := New(store, rules.Static{Config: testCfg})
	exec := ledger.NewExecutor(store, rules.Static{Config: testCfg}, ledger.WithAfterHook(eval))
	return exec, store
}

func TestFirstDepositWelcomeBonus(t *testing.T) {
	exec, store := depositFixture(t)
	ctx := context.Background()

	in := ledger.CreditIntent("u", 5000, ledger.KindDeposit, "top-up", "tx-1")
	if _, err := exec.Execute(ctx, in); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	acct, _ := store.AccountByID(ctx, "u")
	if acct.Balance != 6000 {
		t.Fatalf("balance = %d, want 5000 deposit + 1000 welcome bonus", acct.Balance)
	}

	// A second deposit is not a first deposit.
	in2 := ledger.CreditIntent("u", 5000, ledger.KindDeposit, "top-up", "tx-2")
	if _, err := exec.Execute(ctx, in2); err != nil {
		t.Fatalf("second Execute: %v", err)
	}
	acct, _ = store.AccountByID(ctx, "u")
	if acct.Balance != 11000 {
		t.Fatalf("balance = %d, want 11000 (bonus fired once)", acct.Balance)
	}
}

func TestFirstDepositReplayDoesNotRefire(t *testing.T) {
	exec, store := depositFixture(t)
	ctx := context.Background()

	in := ledger.CreditIntent("u", 5000, ledger.KindDeposit, "top-up", "tx-1")
	if _, err := exec.Execute(ctx, in); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	res, err := exec.Execute(ctx, in)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !res.Duplicate {
		t.Fatal("replay not flagged duplicate")
	}

	acct, _ := store.AccountByID(ctx, "u")
	if acct.Balance != 6000 {
		t.Fatalf("balance = %d after replay, want 6000", acct.Balance)
	}
}

func TestReferralConversionOnFirstDeposit(t *testing.T) {
	exec, store := depositFixture(t)
	ctx := context.Background()
	store.SeedMilestones(ledger.Milestones{UserID: "u", ReferredBy: "ref"})

	in := ledger.CreditIntent("u", 5000, ledger.KindDeposit, "top-up", "tx-1")
	if _, err := exec.Execute(ctx, in); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	var referrer ledger.Milestones
	err := store.Atomic(ctx, func(ops ledger.Ops) error {
		m, err := ops.Milestones(ctx, "ref")
		referrer = m
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if referrer.RewardPoints != 25 || referrer.ReferralsCount != 1 {
		t.Fatalf("referrer = points %d / count %d, want 25 / 1", referrer.RewardPoints, referrer.ReferralsCount)
	}
}

func TestFirstSaleBonus(t *testing.T) {
	store := ledger.NewMemStore()
	store.Seed(ledger.Account{ID: "buyer", Balance: 10000})
	eval := New(store, rules.Static{Config: testCfg})
	exec := ledger.NewExecutor(store, rules.Static{Config: testCfg}, ledger.WithAfterHook(eval))
	ctx := context.Background()

	in := ledger.Intent{
		PayerID:     "buyer",
		Payees:      []ledger.Payee{{AccountID: "seller", ShareBps: 10000}},
		GrossAmount: 1000,
		Kind:        ledger.KindPurchase,
	}
	if _, err := exec.Execute(ctx, in); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	seller, _ := store.AccountByID(ctx, "seller")
	if seller.Balance != 1000+500 {
		t.Fatalf("seller balance = %d, want net 1000 + first-sale bonus 500", seller.Balance)
	}

	if _, err := exec.Execute(ctx, in); err != nil {
		t.Fatalf("second Execute: %v", err)
	}
	seller, _ = store.AccountByID(ctx, "seller")
	if seller.Balance != 2500 {
		t.Fatalf("seller balance = %d, want 2500 (bonus fired once)", seller.Balance)
	}
}

func TestPlatformNeverEarnsSaleBonus(t *testing.T) {
	store := ledger.NewMemStore()
	store.Seed(ledger.Account{ID: "buyer", Balance: 10000})
	cfg := testCfg
	cfg.CommissionRateBps = 2000
	eval := New(store, rules.Static{Config: cfg})
	exec := ledger.NewExecutor(store, rules.Static{Config: cfg}, ledger.WithAfterHook(eval))
	ctx := context.Background()

	if _, err := exec.Execute(ctx, ledger.Intent{
		PayerID:     "buyer",
		Payees:      []ledger.Payee{{AccountID: "seller", ShareBps: 10000}},
		GrossAmount: 1000,
		Kind:        ledger.KindPurchase,
	}); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	platform, _ := store.AccountByID(ctx, ledger.PlatformAccountID)
	if platform.Balance != 200 {
		t.Fatalf("platform balance = %d, want exactly the 200 commission", platform.Balance)
	}
}

func TestOnContentPostedFiresOnce(t *testing.T) {
	store := ledger.NewMemStore()
	eval := New(store, rules.Static{Config: testCfg})
	ctx := context.Background()

	awarded, err := eval.OnContentPosted(ctx, "author")
	if err != nil || !awarded {
		t.Fatalf("first call: awarded=%v err=%v", awarded, err)
	}
	awarded, err = eval.OnContentPosted(ctx, "author")
	if err != nil || awarded {
		t.Fatalf("second call: awarded=%v err=%v, want no-op", awarded, err)
	}

	acct, _ := store.AccountByID(ctx, "author")
	if acct.Balance != 300 {
		t.Fatalf("author balance = %d, want one 300 bonus", acct.Balance)
	}
}

func TestOnProfileCompletedAwardsPointsOnce(t *testing.T) {
	store := ledger.NewMemStore()
	eval := New(store, rules.Static{Config: testCfg})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := eval.OnProfileCompleted(ctx, "u"); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}

	var m ledger.Milestones
	err := store.Atomic(ctx, func(ops ledger.Ops) error {
		got, err := ops.Milestones(ctx, "u")
		m = got
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if m.RewardPoints != 50 {
		t.Fatalf("reward points = %d, want 50 (single fire)", m.RewardPoints)
	}
	if !m.HasCompletedProfile {
		t.Fatal("profile completion flag not set")
	}
}

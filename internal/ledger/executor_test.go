package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/fanvault/ledger/internal/rules"
)

var testCfg = rules.Config{CommissionRateBps: 2000, PlatformFee: 10}

func newTestExecutor(store *MemStore) *Executor {
	return NewExecutor(store, rules.Static{Config: testCfg})
}

func TestExecuteSplitsCommission(t *testing.T) {
	store := NewMemStore()
	store.Seed(Account{ID: "buyer", Balance: 1000})
	exec := newTestExecutor(store)

	res, err := exec.Execute(context.Background(), Intent{
		PayerID:     "buyer",
		Payees:      []Payee{{AccountID: "seller", ShareBps: 10000}},
		GrossAmount: 200,
		Kind:        KindPurchase,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	// 20% of 200 plus the flat fee of 10.
	if res.Commission != 50 || res.Net != 150 {
		t.Fatalf("commission/net = %d/%d, want 50/150", res.Commission, res.Net)
	}
	if len(res.Legs) != 3 {
		t.Fatalf("got %d legs, want 3 (debit, commission, payee credit)", len(res.Legs))
	}
	for _, leg := range res.Legs {
		if leg.CounterpartyRef != res.CounterpartyRef {
			t.Errorf("leg %s carries ref %q, want %q", leg.ID, leg.CounterpartyRef, res.CounterpartyRef)
		}
	}

	ctx := context.Background()
	buyer, _ := store.AccountByID(ctx, "buyer")
	seller, _ := store.AccountByID(ctx, "seller")
	platform, _ := store.AccountByID(ctx, PlatformAccountID)
	if buyer.Balance != 800 {
		t.Errorf("buyer balance = %d, want 800", buyer.Balance)
	}
	if seller.Balance != 150 {
		t.Errorf("seller balance = %d, want 150", seller.Balance)
	}
	if platform.Balance != 50 {
		t.Errorf("platform balance = %d, want 50", platform.Balance)
	}
	if buyer.TotalSpent != 200 || seller.TotalEarned != 150 {
		t.Errorf("lifetime counters = spent %d / earned %d, want 200 / 150", buyer.TotalSpent, seller.TotalEarned)
	}
}

func TestExecuteCollaborativeSplit(t *testing.T) {
	store := NewMemStore()
	store.Seed(Account{ID: "buyer", Balance: 10000})
	exec := NewExecutor(store, rules.Static{}) // no commission, isolate the split

	res, err := exec.Execute(context.Background(), Intent{
		PayerID: "buyer",
		Payees: []Payee{
			{AccountID: "lead", ShareBps: 5000},
			{AccountID: "feat", ShareBps: 3000},
			{AccountID: "prod", ShareBps: 2000},
		},
		GrossAmount: 101,
		Kind:        KindPurchase,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	ctx := context.Background()
	var credited int64
	for _, id := range []string{"lead", "feat", "prod"} {
		a, err := store.AccountByID(ctx, id)
		if err != nil {
			t.Fatalf("payee %s missing: %v", id, err)
		}
		credited += a.Balance
	}
	if credited != 101 {
		t.Fatalf("payees received %d in total, want the full 101", credited)
	}
	prod, _ := store.AccountByID(ctx, "prod")
	if prod.Balance != 21 {
		t.Errorf("last payee absorbs the remainder: got %d, want 21", prod.Balance)
	}
	if res.Net != 101 {
		t.Errorf("net = %d, want 101", res.Net)
	}
}

func TestExecuteInsufficientFunds(t *testing.T) {
	store := NewMemStore()
	store.Seed(Account{ID: "buyer", Balance: 100})
	exec := newTestExecutor(store)

	_, err := exec.Execute(context.Background(), Intent{
		PayerID:     "buyer",
		Payees:      []Payee{{AccountID: "seller", ShareBps: 10000}},
		GrossAmount: 101,
		Kind:        KindPurchase,
	})
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}

	ctx := context.Background()
	buyer, _ := store.AccountByID(ctx, "buyer")
	if buyer.Balance != 100 {
		t.Errorf("failed transfer must not move money, balance = %d", buyer.Balance)
	}
	entries, _ := store.RecentEntries(ctx, 10)
	if len(entries) != 0 {
		t.Errorf("failed transfer wrote %d entries, want 0", len(entries))
	}
}

func TestExecuteDrainStopsAtZero(t *testing.T) {
	store := NewMemStore()
	store.Seed(Account{ID: "buyer", Balance: 100})
	exec := NewExecutor(store, rules.Static{}) // no commission
	ctx := context.Background()

	in := Intent{
		PayerID:     "buyer",
		Payees:      []Payee{{AccountID: "seller", ShareBps: 10000}},
		GrossAmount: 60,
		Kind:        KindPurchase,
	}
	if _, err := exec.Execute(ctx, in); err != nil {
		t.Fatalf("first transfer: %v", err)
	}
	if _, err := exec.Execute(ctx, in); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("second transfer err = %v, want ErrInsufficientFunds", err)
	}

	buyer, _ := store.AccountByID(ctx, "buyer")
	seller, _ := store.AccountByID(ctx, "seller")
	if buyer.Balance != 40 || seller.Balance != 60 {
		t.Fatalf("balances = %d/%d, want 40/60", buyer.Balance, seller.Balance)
	}
}

func TestExecuteRejectsBadIntents(t *testing.T) {
	store := NewMemStore()
	store.Seed(Account{ID: "u", Balance: 1000})
	exec := newTestExecutor(store)
	ctx := context.Background()

	cases := []struct {
		name string
		in   Intent
	}{
		{"zero amount", Intent{PayerID: "u", Payees: []Payee{{AccountID: "v", ShareBps: 10000}}, Kind: KindPurchase}},
		{"negative amount", Intent{PayerID: "u", Payees: []Payee{{AccountID: "v", ShareBps: 10000}}, GrossAmount: -5, Kind: KindPurchase}},
		{"self trade", Intent{PayerID: "u", Payees: []Payee{{AccountID: "u", ShareBps: 10000}}, GrossAmount: 10, Kind: KindPurchase}},
		{"no payees", Intent{PayerID: "u", GrossAmount: 10, Kind: KindPurchase}},
		{"shares do not sum", Intent{PayerID: "u", Payees: []Payee{{AccountID: "v", ShareBps: 4000}}, GrossAmount: 10, Kind: KindPurchase}},
		{"missing kind", Intent{PayerID: "u", Payees: []Payee{{AccountID: "v", ShareBps: 10000}}, GrossAmount: 10}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := exec.Execute(ctx, tc.in); !errors.Is(err, ErrInvalidIntent) {
				t.Errorf("err = %v, want ErrInvalidIntent", err)
			}
		})
	}
}

func TestExecuteIdempotentReplay(t *testing.T) {
	store := NewMemStore()
	exec := newTestExecutor(store)
	ctx := context.Background()

	in := CreditIntent("u", 5000, KindDeposit, "top-up", "provider-tx-1")
	first, err := exec.Execute(ctx, in)
	if err != nil {
		t.Fatalf("first Execute: %v", err)
	}
	if first.Duplicate {
		t.Fatal("first execution flagged as duplicate")
	}

	second, err := exec.Execute(ctx, in)
	if err != nil {
		t.Fatalf("replayed Execute: %v", err)
	}
	if !second.Duplicate {
		t.Fatal("replay not flagged as duplicate")
	}
	if second.CounterpartyRef != first.CounterpartyRef {
		t.Errorf("replay ref %q, want original %q", second.CounterpartyRef, first.CounterpartyRef)
	}
	if second.Net != 5000 {
		t.Errorf("replay net = %d, want 5000", second.Net)
	}

	acct, _ := store.AccountByID(ctx, "u")
	if acct.Balance != 5000 {
		t.Fatalf("balance = %d after replay, want 5000 (credited once)", acct.Balance)
	}
	entries, _ := store.AccountEntries(ctx, "u", 10)
	if len(entries) != 1 {
		t.Fatalf("got %d entries after replay, want 1", len(entries))
	}
}

func TestExecuteKeyedPayerReplay(t *testing.T) {
	store := NewMemStore()
	store.Seed(Account{ID: "buyer", Balance: 1000})
	exec := newTestExecutor(store)
	ctx := context.Background()

	in := Intent{
		PayerID:        "buyer",
		Payees:         []Payee{{AccountID: "seller", ShareBps: 10000}},
		GrossAmount:    200,
		Kind:           KindPurchase,
		IdempotencyKey: "order-77",
	}
	first, err := exec.Execute(ctx, in)
	if err != nil {
		t.Fatalf("first Execute: %v", err)
	}

	second, err := exec.Execute(ctx, in)
	if err != nil {
		t.Fatalf("retried Execute: %v", err)
	}
	if !second.Duplicate {
		t.Fatal("retried keyed transfer not flagged as duplicate")
	}
	if second.CounterpartyRef != first.CounterpartyRef {
		t.Errorf("replay ref %q, want original %q", second.CounterpartyRef, first.CounterpartyRef)
	}
	if second.Commission != 50 || second.Net != 150 {
		t.Errorf("replay commission/net = %d/%d, want 50/150", second.Commission, second.Net)
	}

	buyer, _ := store.AccountByID(ctx, "buyer")
	seller, _ := store.AccountByID(ctx, "seller")
	if buyer.Balance != 800 {
		t.Fatalf("buyer balance = %d, want 800 (charged once)", buyer.Balance)
	}
	if seller.Balance != 150 {
		t.Fatalf("seller balance = %d, want 150 (credited once)", seller.Balance)
	}
	entries, _ := store.AccountEntries(ctx, "buyer", 10)
	if len(entries) != 1 {
		t.Fatalf("buyer has %d entries after replay, want 1", len(entries))
	}
}

func TestExecuteRetriesOnConflict(t *testing.T) {
	store := NewMemStore()
	store.Seed(Account{ID: "buyer", Balance: 1000})
	exec := newTestExecutor(store)
	ctx := context.Background()

	in := Intent{
		PayerID:     "buyer",
		Payees:      []Payee{{AccountID: "seller", ShareBps: 10000}},
		GrossAmount: 100,
		Kind:        KindPurchase,
	}

	store.FailNextCommits(2)
	if _, err := exec.Execute(ctx, in); err != nil {
		t.Fatalf("Execute should survive two conflicts: %v", err)
	}

	store.FailNextCommits(5)
	if _, err := exec.Execute(ctx, in); !errors.Is(err, ErrContention) {
		t.Fatalf("err = %v, want ErrContention after exhausting retries", err)
	}
}

type recordingHook struct {
	calls []Result
	cfg   rules.Config
}

func (h *recordingHook) AfterTransfer(_ context.Context, _ Ops, res Result, cfg rules.Config) error {
	h.calls = append(h.calls, res)
	h.cfg = cfg
	return nil
}

func TestExecuteRunsAfterHook(t *testing.T) {
	store := NewMemStore()
	hook := &recordingHook{}
	exec := NewExecutor(store, rules.Static{Config: testCfg}, WithAfterHook(hook))
	ctx := context.Background()

	in := CreditIntent("u", 100, KindDeposit, "", "tx-9")
	if _, err := exec.Execute(ctx, in); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(hook.calls) != 1 {
		t.Fatalf("hook ran %d times, want 1", len(hook.calls))
	}
	if hook.cfg != testCfg {
		t.Errorf("hook saw cfg %+v, want the executor's snapshot %+v", hook.cfg, testCfg)
	}

	// A replay must not re-trigger the hook's side effects; the evaluator
	// checks Duplicate itself, so it still gets called with the flag set.
	if _, err := exec.Execute(ctx, in); err != nil {
		t.Fatalf("replay: %v", err)
	}
	if len(hook.calls) != 2 || !hook.calls[1].Duplicate {
		t.Fatalf("replay hook call missing or not flagged duplicate: %+v", hook.calls)
	}
}

type failingHook struct{}

func (failingHook) AfterTransfer(context.Context, Ops, Result, rules.Config) error {
	return errors.New("bonus ledger full")
}

func TestExecuteRollsBackWhenHookFails(t *testing.T) {
	store := NewMemStore()
	store.Seed(Account{ID: "buyer", Balance: 1000})
	exec := NewExecutor(store, rules.Static{Config: testCfg}, WithAfterHook(failingHook{}))

	_, err := exec.Execute(context.Background(), Intent{
		PayerID:     "buyer",
		Payees:      []Payee{{AccountID: "seller", ShareBps: 10000}},
		GrossAmount: 100,
		Kind:        KindPurchase,
	})
	if err == nil {
		t.Fatal("expected hook failure to surface")
	}

	ctx := context.Background()
	buyer, _ := store.AccountByID(ctx, "buyer")
	if buyer.Balance != 1000 {
		t.Errorf("hook failure must roll back the whole unit, balance = %d", buyer.Balance)
	}
	entries, _ := store.RecentEntries(ctx, 10)
	if len(entries) != 0 {
		t.Errorf("rolled-back unit left %d entries", len(entries))
	}
}

func TestExecuteFailsClosedWithoutConfig(t *testing.T) {
	store := NewMemStore()
	store.Seed(Account{ID: "buyer", Balance: 1000})
	exec := NewExecutor(store, rules.Missing{})

	_, err := exec.Execute(context.Background(), Intent{
		PayerID:     "buyer",
		Payees:      []Payee{{AccountID: "seller", ShareBps: 10000}},
		GrossAmount: 100,
		Kind:        KindPurchase,
	})
	if !errors.Is(err, rules.ErrConfigMissing) {
		t.Fatalf("err = %v, want ErrConfigMissing", err)
	}
}

package ledger

import (
	"context"
	"testing"
)

func TestGuardCheck(t *testing.T) {
	store := NewMemStore()
	var g Guard
	ctx := context.Background()

	err := store.Atomic(ctx, func(ops Ops) error {
		if _, dup, err := g.Check(ctx, ops, "u", ""); err != nil || dup {
			t.Fatalf("empty ref: dup=%v err=%v, want fresh", dup, err)
		}
		if _, dup, err := g.Check(ctx, ops, "u", "tx-1"); err != nil || dup {
			t.Fatalf("unseen ref: dup=%v err=%v, want fresh", dup, err)
		}

		e := Entry{ID: "e1", AccountID: "u", Amount: 10, Direction: Credit,
			Kind: KindDeposit, Status: StatusSuccess, ExternalRef: "tx-1"}
		if err := ops.AppendEntry(ctx, e); err != nil {
			return err
		}

		prior, dup, err := g.Check(ctx, ops, "u", "tx-1")
		if err != nil || !dup {
			t.Fatalf("seen ref: dup=%v err=%v, want hit", dup, err)
		}
		if prior.ID != "e1" {
			t.Errorf("prior entry id = %q, want e1", prior.ID)
		}

		// Same ref on a different account is a different operation.
		if _, dup, err := g.Check(ctx, ops, "other", "tx-1"); err != nil || dup {
			t.Errorf("other account: dup=%v err=%v, want fresh", dup, err)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestGuardRecover(t *testing.T) {
	store := NewMemStore()
	var g Guard
	ctx := context.Background()

	err := store.Atomic(ctx, func(ops Ops) error {
		e := Entry{ID: "e1", AccountID: "u", Amount: 10, Direction: Credit,
			Kind: KindDeposit, Status: StatusSuccess, ExternalRef: "tx-1"}
		if err := ops.AppendEntry(ctx, e); err != nil {
			return err
		}

		dupErr := ops.AppendEntry(ctx, Entry{ID: "e2", AccountID: "u", Amount: 10,
			Direction: Credit, Kind: KindDeposit, Status: StatusSuccess, ExternalRef: "tx-1"})
		prior, ok := g.Recover(ctx, ops, "u", "tx-1", dupErr)
		if !ok {
			t.Fatal("Recover did not translate the duplicate failure")
		}
		if prior.ID != "e1" {
			t.Errorf("recovered entry id = %q, want e1", prior.ID)
		}

		// Unrelated errors pass through untouched.
		if _, ok := g.Recover(ctx, ops, "u", "tx-1", ErrNotFound); ok {
			t.Error("Recover claimed an unrelated error")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

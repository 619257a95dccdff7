package escrow

import (
	"context"
	"errors"
	"testing"

	"github.com/fanvault/ledger/internal/ledger"
	"github.com/fanvault/ledger/internal/rules"
)

var testCfg = rules.Config{CommissionRateBps: 2000}

func holdFixture(t *testing.T) (*Service, *ledger.MemStore, ledger.Obligation) {
	t.Helper()
	store := ledger.NewMemStore()
	store.Seed(ledger.Account{ID: "buyer", Balance: 1000})
	svc := New(store, rules.Static{Config: testCfg})

	ob, err := svc.Hold(context.Background(), HoldInput{
		BuyerID:   "buyer",
		SellerID:  "seller",
		Amount:    500,
		Reference: "order-1",
	})
	if err != nil {
		t.Fatalf("Hold: %v", err)
	}
	return svc, store, ob
}

func TestHoldMovesFundsIntoEscrow(t *testing.T) {
	_, store, ob := holdFixture(t)
	ctx := context.Background()

	buyer, _ := store.AccountByID(ctx, "buyer")
	platform, _ := store.AccountByID(ctx, ledger.PlatformAccountID)
	if buyer.Balance != 500 {
		t.Errorf("buyer balance = %d, want 500", buyer.Balance)
	}
	if platform.Escrow != 500 {
		t.Errorf("platform escrow = %d, want 500", platform.Escrow)
	}
	if ob.Status != ledger.ObligationHeld {
		t.Errorf("obligation status = %s, want held", ob.Status)
	}

	entries, _ := store.AccountEntries(ctx, "buyer", 10)
	if len(entries) != 1 || entries[0].Status != ledger.StatusPending || entries[0].Kind != ledger.KindEscrowHold {
		t.Fatalf("hold entry wrong: %+v", entries)
	}
}

func TestHoldValidation(t *testing.T) {
	store := ledger.NewMemStore()
	store.Seed(ledger.Account{ID: "buyer", Balance: 100})
	svc := New(store, rules.Static{Config: testCfg})
	ctx := context.Background()

	cases := []struct {
		name string
		in   HoldInput
		want error
	}{
		{"zero amount", HoldInput{BuyerID: "buyer", SellerID: "s"}, ledger.ErrInvalidIntent},
		{"buyer is seller", HoldInput{BuyerID: "buyer", SellerID: "buyer", Amount: 10}, ledger.ErrInvalidIntent},
		{"missing seller", HoldInput{BuyerID: "buyer", Amount: 10}, ledger.ErrInvalidIntent},
		{"insufficient funds", HoldInput{BuyerID: "buyer", SellerID: "s", Amount: 101}, ledger.ErrInsufficientFunds},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Hold(ctx, tc.in); !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestHoldRejectsReusedReference(t *testing.T) {
	svc, store, _ := holdFixture(t)
	ctx := context.Background()

	_, err := svc.Hold(ctx, HoldInput{
		BuyerID:   "buyer",
		SellerID:  "seller",
		Amount:    200,
		Reference: "order-1",
	})
	if !errors.Is(err, ledger.ErrInvalidState) {
		t.Fatalf("reused reference err = %v, want ErrInvalidState", err)
	}

	buyer, _ := store.AccountByID(ctx, "buyer")
	platform, _ := store.AccountByID(ctx, ledger.PlatformAccountID)
	if buyer.Balance != 500 {
		t.Errorf("rejected hold moved money: buyer balance = %d, want 500", buyer.Balance)
	}
	if platform.Escrow != 500 {
		t.Errorf("platform escrow = %d, want 500 (only the first hold)", platform.Escrow)
	}
}

func TestReleasePaysSellerMinusCommission(t *testing.T) {
	svc, store, ob := holdFixture(t)
	ctx := context.Background()

	st, err := svc.Release(ctx, ob.ID)
	if err != nil {
		t.Fatalf("Release: %v", err)
	}
	if st.Commission != 100 || st.Net != 400 {
		t.Fatalf("commission/net = %d/%d, want 100/400", st.Commission, st.Net)
	}

	seller, _ := store.AccountByID(ctx, "seller")
	platform, _ := store.AccountByID(ctx, ledger.PlatformAccountID)
	if seller.Balance != 400 {
		t.Errorf("seller balance = %d, want 400", seller.Balance)
	}
	if platform.Balance != 100 {
		t.Errorf("platform balance = %d, want 100", platform.Balance)
	}
	if platform.Escrow != 0 {
		t.Errorf("platform escrow = %d, want 0 after release", platform.Escrow)
	}
	if seller.TotalEarned != 400 {
		t.Errorf("seller lifetime earned = %d, want 400", seller.TotalEarned)
	}

	entries, _ := store.AccountEntries(ctx, "buyer", 10)
	if entries[0].Status != ledger.StatusSuccess {
		t.Errorf("hold entry status = %s, want success", entries[0].Status)
	}
}

func TestReleaseTwiceIsNoOp(t *testing.T) {
	svc, store, ob := holdFixture(t)
	ctx := context.Background()

	if _, err := svc.Release(ctx, ob.ID); err != nil {
		t.Fatalf("first Release: %v", err)
	}
	st, err := svc.Release(ctx, ob.ID)
	if !errors.Is(err, ledger.ErrAlreadySettled) {
		t.Fatalf("second Release err = %v, want ErrAlreadySettled", err)
	}
	if st.Obligation.Status != ledger.ObligationReleased {
		t.Errorf("reported status = %s, want released", st.Obligation.Status)
	}

	seller, _ := store.AccountByID(ctx, "seller")
	if seller.Balance != 400 {
		t.Errorf("second release moved money: seller balance = %d", seller.Balance)
	}
}

func TestRefundReturnsFullAmount(t *testing.T) {
	svc, store, ob := holdFixture(t)
	ctx := context.Background()

	st, err := svc.Refund(ctx, ob.ID)
	if err != nil {
		t.Fatalf("Refund: %v", err)
	}
	if st.Obligation.Status != ledger.ObligationRefunded {
		t.Errorf("status = %s, want refunded", st.Obligation.Status)
	}

	buyer, _ := store.AccountByID(ctx, "buyer")
	platform, _ := store.AccountByID(ctx, ledger.PlatformAccountID)
	if buyer.Balance != 1000 {
		t.Errorf("buyer balance = %d, want the full 1000 back", buyer.Balance)
	}
	if platform.Balance != 0 || platform.Escrow != 0 {
		t.Errorf("platform kept money on refund: balance=%d escrow=%d", platform.Balance, platform.Escrow)
	}

	entries, _ := store.AccountEntries(ctx, "buyer", 10)
	var holdStatus ledger.EntryStatus
	for _, e := range entries {
		if e.Kind == ledger.KindEscrowHold {
			holdStatus = e.Status
		}
	}
	if holdStatus != ledger.StatusFailed {
		t.Errorf("hold entry status = %s, want failed", holdStatus)
	}

	if _, err := svc.Refund(ctx, ob.ID); !errors.Is(err, ledger.ErrAlreadySettled) {
		t.Errorf("second refund err = %v, want ErrAlreadySettled", err)
	}
}

func TestReleaseUsesRatesAtReleaseTime(t *testing.T) {
	store := ledger.NewMemStore()
	store.Seed(ledger.Account{ID: "buyer", Balance: 1000})

	holdSvc := New(store, rules.Static{Config: rules.Config{CommissionRateBps: 1000}})
	ob, err := holdSvc.Hold(context.Background(), HoldInput{
		BuyerID: "buyer", SellerID: "seller", Amount: 500,
	})
	if err != nil {
		t.Fatalf("Hold: %v", err)
	}

	// The rate doubled between hold and release; release wins.
	releaseSvc := New(store, rules.Static{Config: rules.Config{CommissionRateBps: 2000}})
	st, err := releaseSvc.Release(context.Background(), ob.ID)
	if err != nil {
		t.Fatalf("Release: %v", err)
	}
	if st.Commission != 100 {
		t.Fatalf("commission = %d, want 100 (rate in effect at release)", st.Commission)
	}
}

package payments

import (
	"crypto/sha512"
	"encoding/hex"
	"strings"
	"testing"
)

func TestMinorUnits(t *testing.T) {
	cases := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"15000.00", 1500000, false},
		{"15000", 1500000, false},
		{"0.5", 50, false},
		{"0.05", 5, false},
		{"12.34", 1234, false},
		{" 7.00", 700, false},
		{"", 0, true},
		{".50", 0, true},
		{"12.345", 0, true},
		{"12.x", 0, true},
		{"abc", 0, true},
	}
	for _, tc := range cases {
		got, err := MinorUnits(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("MinorUnits(%q) = %d, want error", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("MinorUnits(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("MinorUnits(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestValidSignature(t *testing.T) {
	n := Notification{
		OrderID:     "TOPUP-user-1-ab12cd34",
		StatusCode:  "200",
		GrossAmount: "15000.00",
	}
	serverKey := "sk-test"

	sum := sha512.Sum512([]byte(n.OrderID + n.StatusCode + n.GrossAmount + serverKey))
	n.SignatureKey = hex.EncodeToString(sum[:])
	if !validSignature(n, serverKey) {
		t.Error("correct signature rejected")
	}

	upper := n
	upper.SignatureKey = strings.ToUpper(n.SignatureKey)
	if !validSignature(upper, serverKey) {
		t.Error("uppercased signature rejected, provider sends mixed case")
	}

	bad := n
	bad.SignatureKey = "deadbeef"
	if validSignature(bad, serverKey) {
		t.Error("bogus signature accepted")
	}

	tampered := n
	tampered.GrossAmount = "99999.00"
	if validSignature(tampered, serverKey) {
		t.Error("tampered amount accepted")
	}
}

func TestTopupOrderIDRoundTrip(t *testing.T) {
	userID := "3f2b8c1a-9d4e-4f6a-b7c8-0123456789ab"
	orderID := topupOrderID(userID)

	got, ok := userFromOrderID(orderID)
	if !ok {
		t.Fatalf("userFromOrderID(%q) failed", orderID)
	}
	if got != userID {
		t.Fatalf("userFromOrderID(%q) = %q, want %q", orderID, got, userID)
	}
}

func TestUserFromOrderIDRejectsForeignOrders(t *testing.T) {
	for _, id := range []string{"", "ORDER-123", "TOPUP-", "TOPUP-nodash"} {
		if _, ok := userFromOrderID(id); ok {
			t.Errorf("userFromOrderID(%q) = ok, want rejection", id)
		}
	}
}

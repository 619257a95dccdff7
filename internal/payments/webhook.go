package payments

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/fanvault/ledger/internal/ledger"
)

// Notification is the subset of the provider's webhook payload the engine
// needs.
type Notification struct {
	TransactionID     string `json:"transaction_id"`
	TransactionStatus string `json:"transaction_status"`
	OrderID           string `json:"order_id"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
	FraudStatus       string `json:"fraud_status"`
}

// Notify handles the provider callback. Retried or duplicate deliveries are
// absorbed by the executor's idempotency guard keyed on the provider
// transaction id: the wallet is credited exactly once.
func (h *Handler) Notify(c echo.Context) error {
	var n Notification
	if err := c.Bind(&n); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload"})
	}

	if !validSignature(n, os.Getenv("MIDTRANS_SERVER_KEY")) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "bad signature"})
	}

	if !paid(n) {
		log.Printf("[payments] notification for %s ignored (status=%s fraud=%s)",
			n.OrderID, n.TransactionStatus, n.FraudStatus)
		return c.JSON(http.StatusOK, echo.Map{"status": "ignored"})
	}

	userID, ok := userFromOrderID(n.OrderID)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown order id"})
	}
	amount, err := MinorUnits(n.GrossAmount)
	if err != nil || amount <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid gross amount"})
	}

	intent := ledger.CreditIntent(userID, amount, ledger.KindDeposit,
		"wallet top-up via payment provider", n.TransactionID)
	res, err := h.Exec.Execute(c.Request().Context(), intent)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not credit deposit"})
	}

	if res.Duplicate {
		log.Printf("[payments] replayed notification %s for %s, no new credit", n.TransactionID, userID)
		return c.JSON(http.StatusOK, echo.Map{"status": "already_processed"})
	}

	if h.OnDeposit != nil {
		h.OnDeposit(userID, amount)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "credited", "counterparty_ref": res.CounterpartyRef})
}

// paid maps the provider's status pair onto "money definitely received".
func paid(n Notification) bool {
	switch n.TransactionStatus {
	case "settlement":
		return true
	case "capture":
		return n.FraudStatus == "accept"
	default:
		return false
	}
}

// validSignature checks SHA-512(order_id + status_code + gross_amount + server key).
func validSignature(n Notification, serverKey string) bool {
	sum := sha512.Sum512([]byte(n.OrderID + n.StatusCode + n.GrossAmount + serverKey))
	want := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(want), []byte(strings.ToLower(n.SignatureKey))) == 1
}

// MinorUnits parses the provider's decimal amount string ("15000.00") into
// integer minor units without going through floating point.
func MinorUnits(s string) (int64, error) {
	whole, frac, _ := strings.Cut(strings.TrimSpace(s), ".")
	if whole == "" {
		return 0, errors.New("empty amount")
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, err
	}
	var cents int64
	switch len(frac) {
	case 0:
	case 1:
		if frac[0] < '0' || frac[0] > '9' {
			return 0, fmt.Errorf("invalid fraction: %q", s)
		}
		cents = int64(frac[0]-'0') * 10
	case 2:
		cents, err = strconv.ParseInt(frac, 10, 64)
	default:
		return 0, fmt.Errorf("unsupported precision: %q", s)
	}
	if err != nil || cents < 0 || cents > 99 {
		return 0, fmt.Errorf("invalid fraction: %q", s)
	}
	return units*100 + cents, nil
}

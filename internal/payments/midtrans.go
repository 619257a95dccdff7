package payments

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"

	"github.com/fanvault/ledger/internal/ledger"
)

// Handler owns the payment-provider integration. Creating the provider
// transaction is a slow external call and happens before any atomic unit;
// only the webhook's already-known outcome reaches the executor.
type Handler struct {
	Exec *ledger.Executor
	// OnDeposit is called after a deposit credits, best-effort. Wired to
	// the alerts queue in main.
	OnDeposit func(userID string, amount int64)
}

type TopupRequest struct {
	Amount int64 `json:"amount"` // minor units
}

type TopupResponse struct {
	OrderID     string `json:"order_id"`
	SnapToken   string `json:"snap_token"`
	RedirectURL string `json:"redirect_url"`
}

// TopupInit creates a Snap payment session for the authenticated user. The
// user id rides in the order id so the webhook can route the credit without
// a lookup table.
func (h *Handler) TopupInit(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	req := new(TopupRequest)
	if err := c.Bind(req); err != nil || req.Amount <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid amount"})
	}

	orderID := topupOrderID(uid)

	var s = snap.Client{}
	s.New(os.Getenv("MIDTRANS_SERVER_KEY"), midtransEnv())

	snapReq := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  orderID,
			GrossAmt: req.Amount / 100, // provider bills in whole units
		},
		Items: &[]midtrans.ItemDetails{
			{
				ID:    "WALLET-TOPUP",
				Name:  "Wallet top-up",
				Price: req.Amount / 100,
				Qty:   1,
			},
		},
	}

	snapResp, errSnap := s.CreateTransaction(snapReq)
	if errSnap != nil {
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "payment provider error"})
	}

	return c.JSON(http.StatusOK, TopupResponse{
		OrderID:     orderID,
		SnapToken:   snapResp.Token,
		RedirectURL: snapResp.RedirectURL,
	})
}

func midtransEnv() midtrans.EnvironmentType {
	if os.Getenv("MIDTRANS_ENV") == "production" {
		return midtrans.Production
	}
	return midtrans.Sandbox
}

const topupPrefix = "TOPUP-"

func topupOrderID(userID string) string {
	return fmt.Sprintf("%s%s-%s", topupPrefix, userID, uuid.NewString()[:8])
}

// userFromOrderID recovers the wallet to credit from a top-up order id.
func userFromOrderID(orderID string) (string, bool) {
	if !strings.HasPrefix(orderID, topupPrefix) {
		return "", false
	}
	rest := strings.TrimPrefix(orderID, topupPrefix)
	i := strings.LastIndex(rest, "-")
	if i <= 0 {
		return "", false
	}
	return rest[:i], true
}

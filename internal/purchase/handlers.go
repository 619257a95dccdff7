package purchase

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fanvault/ledger/internal/ledger"
	"github.com/fanvault/ledger/internal/utils"
)

// Handler exposes every buyer-pays-seller flow: content, subscriptions,
// gifts, live-session tickets and per-minute call billing. All of them build
// a transfer intent and go through the one executor code path.
type Handler struct {
	Exec *ledger.Executor
}

var purchaseKinds = map[ledger.Kind]bool{
	ledger.KindPurchase:        true,
	ledger.KindSubscriptionFee: true,
	ledger.KindGift:            true,
	ledger.KindTicket:          true,
}

type PurchaseRequest struct {
	Kind        ledger.Kind    `json:"kind"`
	GrossAmount int64          `json:"gross_amount"`
	Payees      []ledger.Payee `json:"payees"`
	Description string         `json:"description"`
	ContentRef  string         `json:"content_ref"`
}

// Purchase debits the authenticated buyer and splits the proceeds across the
// configured payees (single seller, or collaborative shares summing to 100%).
func (h *Handler) Purchase(c echo.Context) error {
	buyerID, ok := c.Get("user_id").(string)
	if !ok || buyerID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req PurchaseRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if !purchaseKinds[req.Kind] {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unsupported purchase kind"})
	}

	res, err := h.Exec.Execute(c.Request().Context(), ledger.Intent{
		PayerID:     buyerID,
		Payees:      req.Payees,
		GrossAmount: req.GrossAmount,
		Kind:        req.Kind,
		Description: req.Description,
		ContentRef:  req.ContentRef,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

type CallSettleRequest struct {
	CreatorID     string `json:"creator_id"`
	Minutes       int64  `json:"minutes"` // already rounded up by the signaling layer
	RatePerMinute int64  `json:"rate_per_minute"`
}

// SettleCall bills a finished call once, at termination. The signaling layer
// owns the clock; by the time this runs the duration is a settled fact.
func (h *Handler) SettleCall(c echo.Context) error {
	callerID, ok := c.Get("user_id").(string)
	if !ok || callerID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req CallSettleRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.Minutes <= 0 || req.RatePerMinute <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "minutes and rate must be positive"})
	}

	res, err := h.Exec.Execute(c.Request().Context(), ledger.Intent{
		PayerID:     callerID,
		Payees:      []ledger.Payee{{AccountID: req.CreatorID, ShareBps: 10000}},
		GrossAmount: req.Minutes * req.RatePerMinute,
		Kind:        ledger.KindCallFee,
		Description: "call billing",
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func respondError(c echo.Context, err error) error {
	status := utils.StatusFor(err)
	msg := "transfer failed"
	switch {
	case errors.Is(err, ledger.ErrInsufficientFunds):
		msg = "insufficient balance"
	case errors.Is(err, ledger.ErrInvalidIntent):
		msg = err.Error()
	case errors.Is(err, ledger.ErrAccountNotFound):
		msg = "wallet not found"
	case errors.Is(err, ledger.ErrContention):
		msg = "too much contention, retry"
	}
	return c.JSON(status, echo.Map{"error": msg})
}

package admin

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fanvault/ledger/internal/ledger"
	"github.com/fanvault/ledger/internal/utils"
	"github.com/fanvault/ledger/internal/withdraw"
)

// WithdrawalHandler drives the payout queue. The money already left the
// user's balance at request time; these endpoints only settle the outcome.
type WithdrawalHandler struct {
	Svc *withdraw.Service
	// OnCompleted and OnFailed fire after the decision commits, best-effort.
	OnCompleted func(userID string, amount int64)
	OnFailed    func(userID string, amount int64)
}

// Pending lists withdrawal requests awaiting a decision.
func (h *WithdrawalHandler) Pending(c echo.Context) error {
	entries, err := h.Svc.Pending(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not fetch withdrawals"})
	}
	if entries == nil {
		entries = []ledger.Entry{}
	}
	return c.JSON(http.StatusOK, echo.Map{"withdrawals": entries})
}

// Complete marks a payout as sent.
func (h *WithdrawalHandler) Complete(c echo.Context) error {
	entry, err := h.Svc.Complete(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(utils.StatusFor(err), echo.Map{"error": err.Error()})
	}
	if h.OnCompleted != nil {
		h.OnCompleted(entry.AccountID, entry.Amount)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "completed", "withdrawal": entry})
}

// Fail rejects a payout and refunds the full amount.
func (h *WithdrawalHandler) Fail(c echo.Context) error {
	refund, err := h.Svc.Fail(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(utils.StatusFor(err), echo.Map{"error": err.Error()})
	}
	if h.OnFailed != nil {
		h.OnFailed(refund.AccountID, refund.Amount)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "failed", "refund": refund})
}

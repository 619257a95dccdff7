package wallet

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/fanvault/ledger/internal/ledger"
	"github.com/fanvault/ledger/internal/utils"
	"github.com/fanvault/ledger/internal/withdraw"
)

// Handler serves the user-facing wallet surface: balance, entry history and
// withdrawal requests. All reads go through the store's reporting queries,
// never through an atomic unit.
type Handler struct {
	Store    ledger.Store
	Withdraw *withdraw.Service
	// OnWithdrawRequested is called after a withdrawal request is accepted,
	// best-effort. Wired to the alerts queue in main.
	OnWithdrawRequested func(userID string, amount int64)
}

// Balance returns the authenticated user's wallet snapshot.
func (h *Handler) Balance(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	acct, err := h.Store.AccountByID(c.Request().Context(), uid)
	if err != nil {
		return c.JSON(utils.StatusFor(err), echo.Map{"error": "wallet not found"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"user_id":      acct.ID,
		"balance":      acct.Balance,
		"escrow":       acct.Escrow,
		"total_earned": acct.TotalEarned,
		"total_spent":  acct.TotalSpent,
		"currency":     acct.Currency,
	})
}

// Entries returns the authenticated user's ledger history, newest first.
func (h *Handler) Entries(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	entries, err := h.Store.AccountEntries(c.Request().Context(), uid, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not fetch entries"})
	}
	if entries == nil {
		entries = []ledger.Entry{}
	}
	return c.JSON(http.StatusOK, entries)
}

type WithdrawRequest struct {
	Amount int64 `json:"amount"` // minor units
}

// RequestWithdraw reserves funds for payout. The debit happens immediately;
// the entry stays pending until an operator completes or fails it.
func (h *Handler) RequestWithdraw(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req WithdrawRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	entry, err := h.Withdraw.Request(c.Request().Context(), uid, req.Amount)
	if err != nil {
		return c.JSON(utils.StatusFor(err), echo.Map{"error": err.Error()})
	}

	if h.OnWithdrawRequested != nil {
		h.OnWithdrawRequested(uid, req.Amount)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"withdrawal_id": entry.ID,
		"amount":        entry.Amount,
		"status":        entry.Status,
	})
}

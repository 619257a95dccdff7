package admin

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/fanvault/ledger/internal/ledger"
	"github.com/fanvault/ledger/internal/utils"
)

// Handler is the operator surface: wallet inventory, ledger tail, payout
// queue and live commission rules. Mounted behind the admin guard.
type Handler struct {
	Store ledger.Store
}

// ListWallets returns every wallet, newest first.
func (h *Handler) ListWallets(c echo.Context) error {
	accounts, err := h.Store.Accounts(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not fetch wallets"})
	}
	if accounts == nil {
		accounts = []ledger.Account{}
	}
	return c.JSON(http.StatusOK, echo.Map{"wallets": accounts})
}

// Wallet returns one wallet with its recent entries.
func (h *Handler) Wallet(c echo.Context) error {
	id := c.Param("id")
	acct, err := h.Store.AccountByID(c.Request().Context(), id)
	if err != nil {
		return c.JSON(utils.StatusFor(err), echo.Map{"error": "wallet not found"})
	}
	entries, err := h.Store.AccountEntries(c.Request().Context(), id, 50)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not fetch entries"})
	}
	return c.JSON(http.StatusOK, echo.Map{"wallet": acct, "entries": entries})
}

// RecentEntries tails the whole ledger.
func (h *Handler) RecentEntries(c echo.Context) error {
	limit := 100
	if raw := c.QueryParam("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}
	entries, err := h.Store.RecentEntries(c.Request().Context(), limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not fetch entries"})
	}
	if entries == nil {
		entries = []ledger.Entry{}
	}
	return c.JSON(http.StatusOK, echo.Map{"entries": entries})
}

// Obligations lists escrow obligations, optionally filtered by status.
func (h *Handler) Obligations(c echo.Context) error {
	status := ledger.ObligationStatus(c.QueryParam("status"))
	if status == "" {
		status = ledger.ObligationHeld
	}
	obs, err := h.Store.ObligationsByStatus(c.Request().Context(), status)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not fetch obligations"})
	}
	if obs == nil {
		obs = []ledger.Obligation{}
	}
	return c.JSON(http.StatusOK, echo.Map{"obligations": obs})
}

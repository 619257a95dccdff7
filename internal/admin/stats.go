package admin

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fanvault/ledger/internal/db"
)

// Stats returns headline counts for the operator dashboard.
func Stats(c echo.Context) error {
	ctx := c.Request().Context()

	var wallets, entries, pendingWithdrawals, heldObligations int
	var escrowTotal int64

	_ = db.Conn.QueryRow(ctx, `SELECT COUNT(*) FROM wallets`).Scan(&wallets)
	_ = db.Conn.QueryRow(ctx, `SELECT COUNT(*) FROM ledger_entries`).Scan(&entries)
	_ = db.Conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM ledger_entries WHERE kind='withdrawal' AND status='pending'`).
		Scan(&pendingWithdrawals)
	_ = db.Conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM escrow_obligations WHERE status='held'`).Scan(&heldObligations)
	_ = db.Conn.QueryRow(ctx, `SELECT COALESCE(SUM(escrow), 0) FROM wallets`).Scan(&escrowTotal)

	return c.JSON(http.StatusOK, echo.Map{
		"wallets":             wallets,
		"ledger_entries":      entries,
		"pending_withdrawals": pendingWithdrawals,
		"held_obligations":    heldObligations,
		"escrow_total":        escrowTotal,
	})
}

package admin

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fanvault/ledger/internal/rules"
	"github.com/fanvault/ledger/internal/utils"
)

// ConfigHandler reads and updates the commission rules singleton. Changes
// take effect for operations that snapshot the config after the write;
// in-flight operations keep the snapshot they started with.
type ConfigHandler struct {
	Provider *rules.PGProvider
}

// Get returns the rules currently in effect.
func (h *ConfigHandler) Get(c echo.Context) error {
	cfg, err := h.Provider.Current(c.Request().Context())
	if err != nil {
		return c.JSON(utils.StatusFor(err), echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, cfg)
}

// Update replaces the full rules row.
func (h *ConfigHandler) Update(c echo.Context) error {
	var cfg rules.Config
	if err := c.Bind(&cfg); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if cfg.CommissionRateBps < 0 || cfg.CommissionRateBps > 10000 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "commission_rate_bps must be within [0, 10000]"})
	}
	if cfg.PlatformFee < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "platform_fee must not be negative"})
	}
	if cfg.WithdrawalMin <= 0 || cfg.WithdrawalMax < cfg.WithdrawalMin {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "withdrawal bounds must satisfy 0 < min <= max"})
	}

	if err := h.Provider.Save(c.Request().Context(), cfg); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not save config"})
	}
	return c.JSON(http.StatusOK, cfg)
}

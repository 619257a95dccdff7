package rewards

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fanvault/ledger/internal/utils"
)

// Handler receives milestone notifications from the content and profile
// services. Each fires at most once per user; replays report already_awarded.
type Handler struct {
	Eval *Evaluator
}

type milestoneRequest struct {
	UserID string `json:"user_id"`
}

// ContentPosted awards the first-content bonus the first time it is called
// for a user.
func (h *Handler) ContentPosted(c echo.Context) error {
	var req milestoneRequest
	if err := c.Bind(&req); err != nil || req.UserID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id required"})
	}

	awarded, err := h.Eval.OnContentPosted(c.Request().Context(), req.UserID)
	if err != nil {
		return c.JSON(utils.StatusFor(err), echo.Map{"error": err.Error()})
	}
	if !awarded {
		return c.JSON(http.StatusOK, echo.Map{"status": "already_awarded"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "awarded"})
}

// ProfileCompleted awards the profile-completion points once.
func (h *Handler) ProfileCompleted(c echo.Context) error {
	var req milestoneRequest
	if err := c.Bind(&req); err != nil || req.UserID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id required"})
	}

	awarded, err := h.Eval.OnProfileCompleted(c.Request().Context(), req.UserID)
	if err != nil {
		return c.JSON(utils.StatusFor(err), echo.Map{"error": err.Error()})
	}
	if !awarded {
		return c.JSON(http.StatusOK, echo.Map{"status": "already_awarded"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "awarded"})
}

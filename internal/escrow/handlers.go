package escrow

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fanvault/ledger/internal/ledger"
	"github.com/fanvault/ledger/internal/utils"
)

// Handler exposes the escrow lifecycle over HTTP. Hold is buyer-initiated;
// release and refund are operator decisions behind the admin guard.
type Handler struct {
	Svc *Service
	// OnReleased and OnRefunded fire after a settlement commits, best-effort.
	OnReleased func(sellerID string, net int64)
	OnRefunded func(buyerID string, amount int64)
}

type HoldRequest struct {
	SellerID    string `json:"seller_id"`
	Amount      int64  `json:"amount"`
	Reference   string `json:"reference"`
	Description string `json:"description"`
}

// Hold moves the buyer's funds into escrow against a named obligation.
func (h *Handler) Hold(c echo.Context) error {
	buyerID, ok := c.Get("user_id").(string)
	if !ok || buyerID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req HoldRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	ob, err := h.Svc.Hold(c.Request().Context(), HoldInput{
		BuyerID:     buyerID,
		SellerID:    req.SellerID,
		Amount:      req.Amount,
		Reference:   req.Reference,
		Description: req.Description,
	})
	if err != nil {
		return c.JSON(utils.StatusFor(err), echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, ob)
}

// Release settles an obligation in the seller's favor. Releasing an
// already-settled obligation reports success without moving money again.
func (h *Handler) Release(c echo.Context) error {
	id := c.Param("id")
	st, err := h.Svc.Release(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ledger.ErrAlreadySettled) {
			return c.JSON(http.StatusOK, echo.Map{
				"status":     "already_settled",
				"obligation": st.Obligation,
			})
		}
		return c.JSON(utils.StatusFor(err), echo.Map{"error": err.Error()})
	}

	if h.OnReleased != nil {
		h.OnReleased(st.Obligation.SellerID, st.Net)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":     "released",
		"obligation": st.Obligation,
		"net":        st.Net,
		"commission": st.Commission,
	})
}

// Refund settles an obligation in the buyer's favor, returning the full
// amount with no commission.
func (h *Handler) Refund(c echo.Context) error {
	id := c.Param("id")
	st, err := h.Svc.Refund(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ledger.ErrAlreadySettled) {
			return c.JSON(http.StatusOK, echo.Map{
				"status":     "already_settled",
				"obligation": st.Obligation,
			})
		}
		return c.JSON(utils.StatusFor(err), echo.Map{"error": err.Error()})
	}

	if h.OnRefunded != nil {
		h.OnRefunded(st.Obligation.BuyerID, st.Obligation.Amount)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":     "refunded",
		"obligation": st.Obligation,
	})
}

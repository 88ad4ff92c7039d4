package checkout

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/minhnb-dev/backend-cuahang/internal/common"
)

// Handler exposes the checkout endpoint.
type Handler struct {
	Svc *Service
}

// Create places an order from the caller's cart.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	customerID, ok := common.CustomerID(r.Context())
	if !ok || customerID == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.CartID == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "cartId is required", nil)
		return
	}
	out, err := h.Svc.Create(r.Context(), customerID, in)
	if err != nil {
		var rejected *VoucherRejectedError
		switch {
		case errors.As(err, &rejected):
			common.JSONError(w, http.StatusUnprocessableEntity, "VOUCHER_REJECTED", rejected.Error(), map[string]any{
				"code":   rejected.Code,
				"reason": rejected.Reason,
			})
		case errors.Is(err, ErrEmptyCart):
			common.JSONError(w, http.StatusUnprocessableEntity, "EMPTY_CART", "cart is empty", nil)
		case errors.Is(err, ErrCartOwnership):
			common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "cart does not belong to customer", nil)
		default:
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout failed", nil)
		}
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": out})
}

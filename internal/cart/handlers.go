package cart

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/minhnb-dev/backend-cuahang/internal/common"
	"github.com/minhnb-dev/backend-cuahang/internal/repo"
	"github.com/minhnb-dev/backend-cuahang/internal/voucher"
)

// Handler wires cart services to HTTP.
type Handler struct {
	Svc *Service
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "cart not found", nil)
	case errors.Is(err, ErrInvalidInput):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart operation failed", nil)
	}
}

func callerIDs(r *http.Request, anonID string) (customerID, anon *string) {
	if id, ok := common.CustomerID(r.Context()); ok && id != "" {
		return &id, nil
	}
	anonID = strings.TrimSpace(anonID)
	if anonID == "" {
		anonID = uuid.NewString()
	}
	return nil, &anonID
}

// Create creates or returns the caller's active cart.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	var payload struct {
		AnonID string `json:"anonId"`
	}
	_ = json.NewDecoder(r.Body).Decode(&payload)
	customerID, anonID := callerIDs(r, payload.AnonID)
	c, err := h.Svc.EnsureCart(r.Context(), customerID, anonID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	data := map[string]any{"cartId": repo.UUIDString(c.ID)}
	if anonID != nil {
		data["anonId"] = *anonID
	}
	if c.AppliedVoucherCode.Valid {
		data["voucher"] = c.AppliedVoucherCode.String
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": data})
}

// Get returns cart contents with a full pricing preview.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	var customerID *string
	if id, ok := common.CustomerID(r.Context()); ok && id != "" {
		customerID = &id
	}
	view, err := h.Svc.Quote(r.Context(), chi.URLParam(r, "id"), customerID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// AddItem appends a product to the cart.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	var payload struct {
		ProductID string `json:"productId"`
		Qty       int32  `json:"qty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	item, err := h.Svc.AddItem(r.Context(), chi.URLParam(r, "id"), payload.ProductID, payload.Qty)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": map[string]any{
		"itemId": repo.UUIDString(item.ID),
		"qty":    item.Qty,
	}})
}

// UpdateItem sets the quantity on a cart line. Quantity zero removes it.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	var payload struct {
		Qty int32 `json:"qty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := h.Svc.UpdateQty(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "itemId"), payload.Qty); err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"updated": true}})
}

// RemoveItem deletes a cart line.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	if err := h.Svc.RemoveItem(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "itemId")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetWard stores the delivery ward on the cart.
func (h *Handler) SetWard(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	var payload struct {
		WardID int64 `json:"wardId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := h.Svc.SetWard(r.Context(), chi.URLParam(r, "id"), payload.WardID); err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"wardId": payload.WardID}})
}

// ApplyVoucher evaluates and stores a voucher code on the cart.
func (h *Handler) ApplyVoucher(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	var payload struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || strings.TrimSpace(payload.Code) == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "code is required", nil)
		return
	}
	var customerID *string
	if id, ok := common.CustomerID(r.Context()); ok && id != "" {
		customerID = &id
	}
	res, err := h.Svc.ApplyVoucher(r.Context(), chi.URLParam(r, "id"), payload.Code, customerID)
	if err != nil {
		if errors.Is(err, voucher.ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "voucher not found", nil)
			return
		}
		h.writeError(w, err)
		return
	}
	status := http.StatusOK
	if !res.Result.Valid {
		status = http.StatusUnprocessableEntity
	}
	common.JSON(w, status, map[string]any{"data": res})
}

// RemoveVoucher clears the voucher applied to the cart.
func (h *Handler) RemoveVoucher(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	if err := h.Svc.RemoveVoucher(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

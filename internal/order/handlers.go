package order

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"github.com/minhnb-dev/backend-cuahang/internal/common"
	"github.com/minhnb-dev/backend-cuahang/internal/repo"
)

// Handler exposes the customer's order history.
type Handler struct {
	Orders repo.Orders
}

type orderView struct {
	ID              string     `json:"id"`
	Status          string     `json:"status"`
	Currency        string     `json:"currency"`
	Subtotal        int64      `json:"subtotal"`
	ShippingFee     int64      `json:"shippingFee"`
	VoucherDiscount int64      `json:"voucherDiscount"`
	GrandTotal      int64      `json:"grandTotal"`
	VoucherCode     string     `json:"voucherCode,omitempty"`
	CreatedAt       *time.Time `json:"createdAt,omitempty"`
}

type orderItemView struct {
	ProductID string `json:"productId"`
	Title     string `json:"title"`
	Qty       int32  `json:"qty"`
	UnitPrice int64  `json:"unitPrice"`
	Total     int64  `json:"total"`
}

func viewFromModel(o repo.Order) orderView {
	v := orderView{
		ID:              repo.UUIDString(o.ID),
		Status:          o.Status,
		Currency:        o.Currency,
		Subtotal:        o.Subtotal,
		ShippingFee:     o.ShippingFee,
		VoucherDiscount: o.VoucherDiscount,
		GrandTotal:      o.GrandTotal,
	}
	if o.VoucherCode.Valid {
		v.VoucherCode = o.VoucherCode.String
	}
	if o.CreatedAt.Valid {
		created := o.CreatedAt.Time
		v.CreatedAt = &created
	}
	return v
}

// List returns the authenticated customer's orders.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	raw, ok := common.CustomerID(r.Context())
	if !ok || raw == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	customerID, err := repo.ToUUID(raw)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid customer id", nil)
		return
	}
	page, perPage := common.ParsePagination(r, 20)
	orders, err := h.Orders.ListByCustomer(r.Context(), customerID, int32(perPage), int32((page-1)*perPage))
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list orders", nil)
		return
	}
	views := make([]orderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, viewFromModel(o))
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": views,
		"meta": map[string]any{"page": page, "limit": perPage},
	})
}

// Get returns one of the customer's orders with its lines.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	raw, ok := common.CustomerID(r.Context())
	if !ok || raw == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	customerID, err := repo.ToUUID(raw)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid customer id", nil)
		return
	}
	orderID, err := repo.ToUUID(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return
	}
	o, err := h.Orders.GetByID(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load order", nil)
		return
	}
	if !repo.UUIDEqual(o.CustomerID, customerID) {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
		return
	}
	items, err := h.Orders.ListItems(r.Context(), orderID)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load order items", nil)
		return
	}
	itemViews := make([]orderItemView, 0, len(items))
	for _, it := range items {
		itemViews = append(itemViews, orderItemView{
			ProductID: repo.UUIDString(it.ProductID),
			Title:     it.Title,
			Qty:       it.Qty,
			UnitPrice: it.UnitPrice,
			Total:     it.Total,
		})
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"order": viewFromModel(o),
		"items": itemViews,
	}})
}

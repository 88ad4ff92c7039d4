package voucher

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/minhnb-dev/backend-cuahang/internal/common"
	"github.com/minhnb-dev/backend-cuahang/internal/repo"
)

// Handler exposes voucher endpoints: public checks, the customer wallet and
// administrative rule management.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type conditionPayload struct {
	Kind        string   `json:"kind" validate:"required,oneof=min_amount location product_scope"`
	MinAmount   int64    `json:"minAmount" validate:"gte=0"`
	WardIDs     []int64  `json:"wardIds"`
	ProductIDs  []string `json:"productIds" validate:"dive,uuid"`
	CategoryIDs []string `json:"categoryIds" validate:"dive,uuid"`
}

type voucherPayload struct {
	Code        string             `json:"code" validate:"required,max=64"`
	Kind        string             `json:"kind" validate:"required,oneof=fixed_amount percent"`
	Value       int64              `json:"value" validate:"gte=0"`
	PercentBps  *int32             `json:"percentBps" validate:"omitempty,gte=0,lte=10000"`
	MaxDiscount int64              `json:"maxDiscount" validate:"gte=0"`
	UsageLimit  *int32             `json:"usageLimit" validate:"omitempty,gt=0"`
	StartsAt    time.Time          `json:"startsAt" validate:"required"`
	EndsAt      time.Time          `json:"endsAt" validate:"required"`
	Conditions  []conditionPayload `json:"conditions" validate:"dive"`
}

type checkRequest struct {
	Code     string             `json:"code" validate:"required"`
	WardID   int64              `json:"wardId"`
	Subtotal int64              `json:"subtotal" validate:"gte=0"`
	Items    []checkRequestItem `json:"items" validate:"dive"`
}

type checkRequestItem struct {
	ProductID  string  `json:"productId" validate:"required,uuid"`
	CategoryID *string `json:"categoryId" validate:"omitempty,uuid"`
	Subtotal   int64   `json:"subtotal" validate:"gte=0"`
}

func (h *Handler) decodeAndValidate(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.New("invalid payload")
	}
	if h.Validate != nil {
		return h.Validate.Struct(dst)
	}
	return nil
}

// Check evaluates a voucher against an explicit cart snapshot without
// touching any counters.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	items := make([]Item, 0, len(req.Items))
	for _, it := range req.Items {
		productID, err := uuid.Parse(it.ProductID)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid product id", nil)
			return
		}
		item := Item{ProductID: productID, Subtotal: it.Subtotal}
		if it.CategoryID != nil {
			categoryID, err := uuid.Parse(*it.CategoryID)
			if err != nil {
				common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid category id", nil)
				return
			}
			item.CategoryID = &categoryID
		}
		items = append(items, item)
	}
	in := CheckInput{Code: req.Code, WardID: req.WardID, Subtotal: req.Subtotal, Items: items}
	if customerID, ok := common.CustomerID(r.Context()); ok {
		if id, err := repo.ToUUID(customerID); err == nil {
			in.CustomerID = id
		}
	}
	out, err := h.Svc.Check(r.Context(), in)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "voucher not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to check voucher", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}

// Mine lists the authenticated customer's claimed vouchers.
func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	customerID, ok := customerFromContext(r)
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	items, err := h.Svc.ListMine(r.Context(), customerID)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list vouchers", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": items})
}

// ClaimVoucher puts the voucher into the customer's wallet.
func (h *Handler) ClaimVoucher(w http.ResponseWriter, r *http.Request) {
	customerID, ok := customerFromContext(r)
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	code := strings.TrimSpace(chi.URLParam(r, "code"))
	if code == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "code is required", nil)
		return
	}
	claimed, err := h.Svc.Claim(r.Context(), customerID, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "voucher not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to claim voucher", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"code": code, "claimed": claimed}})
}

// Create inserts a voucher definition with its conditions.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var payload voucherPayload
	if err := h.decodeAndValidate(r, &payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	if payload.EndsAt.Before(payload.StartsAt) {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "endsAt must not be before startsAt", nil)
		return
	}
	v, err := h.Svc.Store.Create(r.Context(), payloadToModel(payload))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			common.JSONError(w, http.StatusConflict, "CONFLICT", "voucher code already exists", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to create voucher", nil)
		return
	}
	if err := h.replaceConditions(r, v.ID, payload.Conditions); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to store conditions", nil)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": viewFromModel(v)})
}

// Update replaces a voucher definition identified by code, conditions
// included.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(chi.URLParam(r, "code"))
	if code == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "code is required", nil)
		return
	}
	var payload voucherPayload
	if err := h.decodeAndValidate(r, &payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	if payload.EndsAt.Before(payload.StartsAt) {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "endsAt must not be before startsAt", nil)
		return
	}
	model := payloadToModel(payload)
	model.Code = code
	v, err := h.Svc.Store.Update(r.Context(), model)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "voucher not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to update voucher", nil)
		return
	}
	if err := h.Svc.Store.DeleteConditions(r.Context(), v.ID); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to store conditions", nil)
		return
	}
	if err := h.replaceConditions(r, v.ID, payload.Conditions); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to store conditions", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": viewFromModel(v)})
}

func (h *Handler) replaceConditions(r *http.Request, voucherID pgtype.UUID, conds []conditionPayload) error {
	for _, c := range conds {
		model := repo.VoucherCondition{VoucherID: voucherID, Kind: c.Kind, WardIDs: c.WardIDs}
		if c.Kind == string(ConditionMinAmount) {
			model.MinAmount = pgtype.Int8{Int64: c.MinAmount, Valid: true}
		}
		for _, raw := range c.ProductIDs {
			id, err := repo.ToUUID(raw)
			if err != nil {
				return err
			}
			model.ProductIDs = append(model.ProductIDs, id)
		}
		for _, raw := range c.CategoryIDs {
			id, err := repo.ToUUID(raw)
			if err != nil {
				return err
			}
			model.CategoryIDs = append(model.CategoryIDs, id)
		}
		if err := h.Svc.Store.CreateCondition(r.Context(), model); err != nil {
			return err
		}
	}
	return nil
}

func customerFromContext(r *http.Request) (pgtype.UUID, bool) {
	raw, ok := common.CustomerID(r.Context())
	if !ok {
		return pgtype.UUID{}, false
	}
	id, err := repo.ToUUID(raw)
	if err != nil {
		return pgtype.UUID{}, false
	}
	return id, true
}

func payloadToModel(p voucherPayload) repo.Voucher {
	v := repo.Voucher{
		Code:        strings.ToUpper(strings.TrimSpace(p.Code)),
		Kind:        p.Kind,
		Value:       p.Value,
		MaxDiscount: p.MaxDiscount,
		StartsAt:    pgtype.Timestamptz{Time: p.StartsAt, Valid: true},
		EndsAt:      pgtype.Timestamptz{Time: p.EndsAt, Valid: true},
	}
	// percent_bps is NOT NULL; a fixed_amount payload simply omits it.
	v.PercentBps = pgtype.Int4{Valid: true}
	if p.PercentBps != nil {
		v.PercentBps = pgtype.Int4{Int32: *p.PercentBps, Valid: true}
	}
	if p.UsageLimit != nil {
		v.UsageLimit = pgtype.Int4{Int32: *p.UsageLimit, Valid: true}
	}
	return v
}

type voucherView struct {
	ID          string    `json:"id"`
	Code        string    `json:"code"`
	Kind        string    `json:"kind"`
	Value       int64     `json:"value"`
	PercentBps  *int32    `json:"percentBps,omitempty"`
	MaxDiscount int64     `json:"maxDiscount"`
	UsageLimit  *int32    `json:"usageLimit,omitempty"`
	UsedCount   int32     `json:"usedCount"`
	StartsAt    time.Time `json:"startsAt"`
	EndsAt      time.Time `json:"endsAt"`
}

func viewFromModel(v repo.Voucher) voucherView {
	view := voucherView{
		ID:          repo.UUIDString(v.ID),
		Code:        v.Code,
		Kind:        v.Kind,
		Value:       v.Value,
		MaxDiscount: v.MaxDiscount,
		UsedCount:   v.UsedCount,
	}
	if v.PercentBps.Valid {
		bps := v.PercentBps.Int32
		view.PercentBps = &bps
	}
	if v.UsageLimit.Valid {
		limit := v.UsageLimit.Int32
		view.UsageLimit = &limit
	}
	if v.StartsAt.Valid {
		view.StartsAt = v.StartsAt.Time
	}
	if v.EndsAt.Valid {
		view.EndsAt = v.EndsAt.Time
	}
	return view
}

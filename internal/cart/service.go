package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/minhnb-dev/backend-cuahang/internal/pricing"
	"github.com/minhnb-dev/backend-cuahang/internal/repo"
	"github.com/minhnb-dev/backend-cuahang/internal/shipping"
	"github.com/minhnb-dev/backend-cuahang/internal/voucher"
)

// ErrNotFound indicates the requested cart or line could not be located.
var ErrNotFound = errors.New("cart not found")

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("invalid input")

// Store captures the cart persistence methods the service needs.
// repo.Carts satisfies it.
type Store interface {
	Create(ctx context.Context, customerID pgtype.UUID, anonID pgtype.Text, wardID pgtype.Int8, expiresAt pgtype.Timestamptz) (repo.Cart, error)
	GetByID(ctx context.Context, id pgtype.UUID) (repo.Cart, error)
	GetActiveByCustomer(ctx context.Context, customerID pgtype.UUID) (repo.Cart, error)
	GetActiveByAnon(ctx context.Context, anonID pgtype.Text) (repo.Cart, error)
	Touch(ctx context.Context, id pgtype.UUID, expiresAt pgtype.Timestamptz) error
	SetWard(ctx context.Context, id pgtype.UUID, wardID pgtype.Int8) error
	SetVoucher(ctx context.Context, id pgtype.UUID, code pgtype.Text) error
	ListItems(ctx context.Context, cartID pgtype.UUID) ([]repo.CartItem, error)
	FindItemByProduct(ctx context.Context, cartID, productID pgtype.UUID) (repo.CartItem, error)
	GetItemByID(ctx context.Context, id pgtype.UUID) (repo.CartItem, error)
	CreateItem(ctx context.Context, it repo.CartItem) (repo.CartItem, error)
	UpdateItemQty(ctx context.Context, id pgtype.UUID, qty int32) error
	DeleteItem(ctx context.Context, id, cartID pgtype.UUID) error
}

// Catalog provides the product lookups needed to snapshot prices.
type Catalog interface {
	GetByID(ctx context.Context, id pgtype.UUID) (repo.Product, error)
}

// VoucherChecker evaluates voucher codes against a cart snapshot.
type VoucherChecker interface {
	Check(ctx context.Context, in voucher.CheckInput) (voucher.CheckResult, error)
}

// Service encapsulates cart domain operations.
type Service struct {
	Store    Store
	Catalog  Catalog
	Vouchers VoucherChecker
	Ship     shipping.Quoter
	TTL      time.Duration
	Now      func() time.Time
	Log      zerolog.Logger
}

func (s *Service) ttl() time.Duration {
	if s == nil || s.TTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return s.TTL
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// EnsureCart loads or creates a cart for the provided identifiers. Either
// the customer id or the anonymous id must be set.
func (s *Service) EnsureCart(ctx context.Context, customerID, anonID *string) (repo.Cart, error) {
	if s == nil || s.Store == nil {
		return repo.Cart{}, errors.New("cart service not configured")
	}
	expires := pgtype.Timestamptz{Time: s.now().Add(s.ttl()), Valid: true}

	if customerID != nil && *customerID != "" {
		cid, err := repo.ToUUID(*customerID)
		if err != nil {
			return repo.Cart{}, fmt.Errorf("parse customer id: %w", err)
		}
		c, err := s.Store.GetActiveByCustomer(ctx, cid)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return s.Store.Create(ctx, cid, pgtype.Text{}, pgtype.Int8{}, expires)
			}
			return repo.Cart{}, err
		}
		_ = s.Store.Touch(ctx, c.ID, expires)
		return c, nil
	}

	if anonID != nil && *anonID != "" {
		anon := pgtype.Text{String: *anonID, Valid: true}
		c, err := s.Store.GetActiveByAnon(ctx, anon)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return s.Store.Create(ctx, pgtype.UUID{}, anon, pgtype.Int8{}, expires)
			}
			return repo.Cart{}, err
		}
		_ = s.Store.Touch(ctx, c.ID, expires)
		return c, nil
	}

	return repo.Cart{}, ErrInvalidInput
}

// AddItem inserts a line snapshotting the product's current price and
// discount window, or increments the quantity of an existing line.
func (s *Service) AddItem(ctx context.Context, cartID, productID string, qty int32) (repo.CartItem, error) {
	if s == nil || s.Store == nil || s.Catalog == nil {
		return repo.CartItem{}, errors.New("cart service not configured")
	}
	if qty <= 0 {
		return repo.CartItem{}, fmt.Errorf("qty must be positive: %w", ErrInvalidInput)
	}
	cid, err := repo.ToUUID(cartID)
	if err != nil {
		return repo.CartItem{}, fmt.Errorf("parse cart id: %w", err)
	}
	pid, err := repo.ToUUID(productID)
	if err != nil {
		return repo.CartItem{}, fmt.Errorf("parse product id: %w", err)
	}

	existing, err := s.Store.FindItemByProduct(ctx, cid, pid)
	if err == nil {
		if err := s.Store.UpdateItemQty(ctx, existing.ID, existing.Qty+qty); err != nil {
			return repo.CartItem{}, err
		}
		existing.Qty += qty
		return existing, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return repo.CartItem{}, err
	}

	p, err := s.Catalog.GetByID(ctx, pid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repo.CartItem{}, fmt.Errorf("product %s: %w", productID, ErrNotFound)
		}
		return repo.CartItem{}, err
	}
	return s.Store.CreateItem(ctx, repo.CartItem{
		CartID:        cid,
		ProductID:     p.ID,
		CategoryID:    p.CategoryID,
		Title:         p.Title,
		Qty:           qty,
		UnitPrice:     p.Price,
		DiscountBps:   p.DiscountBps,
		DiscountStart: p.DiscountStart,
		DiscountEnd:   p.DiscountEnd,
	})
}

// UpdateQty sets the quantity on a line. Zero removes the line.
func (s *Service) UpdateQty(ctx context.Context, cartID, itemID string, qty int32) error {
	if s == nil || s.Store == nil {
		return errors.New("cart service not configured")
	}
	if qty < 0 {
		return fmt.Errorf("qty must not be negative: %w", ErrInvalidInput)
	}
	cid, err := repo.ToUUID(cartID)
	if err != nil {
		return fmt.Errorf("parse cart id: %w", err)
	}
	iid, err := repo.ToUUID(itemID)
	if err != nil {
		return fmt.Errorf("parse item id: %w", err)
	}
	item, err := s.Store.GetItemByID(ctx, iid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if !repo.UUIDEqual(item.CartID, cid) {
		return ErrNotFound
	}
	if qty == 0 {
		return s.Store.DeleteItem(ctx, iid, cid)
	}
	return s.Store.UpdateItemQty(ctx, iid, qty)
}

// RemoveItem deletes a line from the cart.
func (s *Service) RemoveItem(ctx context.Context, cartID, itemID string) error {
	if s == nil || s.Store == nil {
		return errors.New("cart service not configured")
	}
	cid, err := repo.ToUUID(cartID)
	if err != nil {
		return fmt.Errorf("parse cart id: %w", err)
	}
	iid, err := repo.ToUUID(itemID)
	if err != nil {
		return fmt.Errorf("parse item id: %w", err)
	}
	return s.Store.DeleteItem(ctx, iid, cid)
}

// SetWard updates the delivery ward on the cart.
func (s *Service) SetWard(ctx context.Context, cartID string, wardID int64) error {
	if s == nil || s.Store == nil {
		return errors.New("cart service not configured")
	}
	cid, err := repo.ToUUID(cartID)
	if err != nil {
		return fmt.Errorf("parse cart id: %w", err)
	}
	return s.Store.SetWard(ctx, cid, pgtype.Int8{Int64: wardID, Valid: true})
}

// ApplyVoucher evaluates the code against the current cart and stores it
// when redeemable. An ineligible voucher is reported, not stored.
func (s *Service) ApplyVoucher(ctx context.Context, cartID, code string, customerID *string) (voucher.CheckResult, error) {
	if s == nil || s.Store == nil || s.Vouchers == nil {
		return voucher.CheckResult{}, errors.New("cart service not configured")
	}
	view, err := s.Quote(ctx, cartID, customerID)
	if err != nil {
		return voucher.CheckResult{}, err
	}
	in := voucher.CheckInput{
		Code:     code,
		WardID:   view.WardID,
		Subtotal: view.Subtotal,
		Items:    view.voucherItems,
	}
	if customerID != nil && *customerID != "" {
		if id, err := repo.ToUUID(*customerID); err == nil {
			in.CustomerID = id
		}
	}
	res, err := s.Vouchers.Check(ctx, in)
	if err != nil {
		return voucher.CheckResult{}, err
	}
	if !res.Result.Valid {
		return res, nil
	}
	cid, err := repo.ToUUID(cartID)
	if err != nil {
		return voucher.CheckResult{}, fmt.Errorf("parse cart id: %w", err)
	}
	if err := s.Store.SetVoucher(ctx, cid, pgtype.Text{String: res.Code, Valid: true}); err != nil {
		return voucher.CheckResult{}, err
	}
	return res, nil
}

// RemoveVoucher clears the applied voucher code.
func (s *Service) RemoveVoucher(ctx context.Context, cartID string) error {
	if s == nil || s.Store == nil {
		return errors.New("cart service not configured")
	}
	cid, err := repo.ToUUID(cartID)
	if err != nil {
		return fmt.Errorf("parse cart id: %w", err)
	}
	return s.Store.SetVoucher(ctx, cid, pgtype.Text{})
}

// QuoteView is the fully priced cart presented to the storefront.
type QuoteView struct {
	CartID   string                `json:"cartId"`
	WardID   int64                 `json:"wardId"`
	Items    []pricing.LineItem    `json:"items"`
	Subtotal pricing.Money         `json:"subtotal"`
	Voucher  *voucher.CheckResult  `json:"voucher,omitempty"`
	Totals   pricing.CheckoutTotal `json:"totals"`

	voucherItems []voucher.Item
}

// Quote prices the cart at the current instant: aggregates the lines,
// re-evaluates any applied voucher and composes the checkout totals.
func (s *Service) Quote(ctx context.Context, cartID string, customerID *string) (QuoteView, error) {
	if s == nil || s.Store == nil {
		return QuoteView{}, errors.New("cart service not configured")
	}
	cid, err := repo.ToUUID(cartID)
	if err != nil {
		return QuoteView{}, fmt.Errorf("parse cart id: %w", err)
	}
	c, err := s.Store.GetByID(ctx, cid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return QuoteView{}, ErrNotFound
		}
		return QuoteView{}, err
	}
	items, err := s.Store.ListItems(ctx, cid)
	if err != nil {
		return QuoteView{}, err
	}

	now := s.now()
	lines := make([]pricing.Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, pricing.Line{
			ProductID: uuid.UUID(it.ProductID.Bytes),
			Qty:       it.Qty,
			Unit:      unitFromItem(it),
		})
	}
	q, err := pricing.Aggregate(lines, now)
	if err != nil {
		return QuoteView{}, err
	}
	if q.ClampedDiscounts > 0 {
		s.Log.Warn().
			Str("cart_id", cartID).
			Int("clamped_discounts", q.ClampedDiscounts).
			Msg("cart lines carried out-of-range discounts")
	}

	view := QuoteView{
		CartID:   cartID,
		Items:    q.Items,
		Subtotal: q.Subtotal,
	}
	if c.WardID.Valid {
		view.WardID = c.WardID.Int64
	}
	view.voucherItems = voucherItems(items, q.Items)

	var shippingFee pricing.Money
	if s.Ship != nil && len(items) > 0 {
		shippingFee = s.Ship.Quote(view.WardID, q.Subtotal)
	}

	var discount pricing.Money
	if c.AppliedVoucherCode.Valid && s.Vouchers != nil {
		in := voucher.CheckInput{
			Code:       c.AppliedVoucherCode.String,
			CustomerID: c.CustomerID,
			WardID:     view.WardID,
			Subtotal:   q.Subtotal,
			Items:      view.voucherItems,
		}
		res, err := s.Vouchers.Check(ctx, in)
		if err != nil && !errors.Is(err, voucher.ErrNotFound) {
			return QuoteView{}, err
		}
		if err == nil {
			view.Voucher = &res
			discount = res.Discount
		}
	}

	view.Totals = pricing.Total(q.Subtotal, shippingFee, discount)
	return view, nil
}

func unitFromItem(it repo.CartItem) pricing.Product {
	unit := pricing.Product{Price: it.UnitPrice}
	if it.DiscountBps.Valid {
		unit.DiscountBps = it.DiscountBps.Int32
	}
	if it.DiscountStart.Valid {
		start := it.DiscountStart.Time
		unit.DiscountStart = &start
	}
	if it.DiscountEnd.Valid {
		end := it.DiscountEnd.Time
		unit.DiscountEnd = &end
	}
	return unit
}

// voucherItems pairs each stored line with its priced total for product
// scope matching.
func voucherItems(items []repo.CartItem, priced []pricing.LineItem) []voucher.Item {
	out := make([]voucher.Item, 0, len(items))
	for i, it := range items {
		vi := voucher.Item{ProductID: uuid.UUID(it.ProductID.Bytes)}
		if it.CategoryID.Valid {
			categoryID := uuid.UUID(it.CategoryID.Bytes)
			vi.CategoryID = &categoryID
		}
		if i < len(priced) {
			vi.Subtotal = priced[i].Total
		}
		out = append(out, vi)
	}
	return out
}

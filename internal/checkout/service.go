package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/minhnb-dev/backend-cuahang/internal/events"
	"github.com/minhnb-dev/backend-cuahang/internal/obs"
	"github.com/minhnb-dev/backend-cuahang/internal/pricing"
	"github.com/minhnb-dev/backend-cuahang/internal/repo"
	"github.com/minhnb-dev/backend-cuahang/internal/shipping"
	"github.com/minhnb-dev/backend-cuahang/internal/voucher"
)

// ErrEmptyCart rejects checkout on a cart without lines.
var ErrEmptyCart = errors.New("cart is empty")

// ErrCartOwnership rejects checkout on another customer's cart.
var ErrCartOwnership = errors.New("cart does not belong to customer")

// VoucherRejectedError carries the evaluation reason when the applied
// voucher fails re-evaluation inside the order transaction.
type VoucherRejectedError struct {
	Code   string
	Reason voucher.Reason
}

func (e *VoucherRejectedError) Error() string {
	return fmt.Sprintf("voucher %s rejected: %s", e.Code, e.Reason)
}

// Input is a checkout request.
type Input struct {
	CartID string `json:"cartId"`
}

// Output is the created order summary.
type Output struct {
	OrderID     string                `json:"orderId"`
	Status      string                `json:"status"`
	Totals      pricing.CheckoutTotal `json:"totals"`
	VoucherCode string                `json:"voucherCode,omitempty"`
}

// Service turns a cart into an order. All pricing runs inside one
// transaction so the voucher settlement and the order row commit or roll
// back together.
type Service struct {
	Pool     *pgxpool.Pool
	Ship     shipping.Quoter
	Currency string
	Now      func() time.Time
	Events   *events.Bus
	Log      zerolog.Logger
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Create places an order from the cart.
func (s *Service) Create(ctx context.Context, customerID string, in Input) (Output, error) {
	if s == nil || s.Pool == nil {
		return Output{}, errors.New("checkout service not configured")
	}
	if customerID == "" {
		return Output{}, errors.New("customer is required for checkout")
	}
	cid, err := repo.ToUUID(in.CartID)
	if err != nil {
		return Output{}, fmt.Errorf("invalid cart id: %w", err)
	}
	custID, err := repo.ToUUID(customerID)
	if err != nil {
		return Output{}, fmt.Errorf("invalid customer id: %w", err)
	}

	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Output{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	carts := repo.Carts{DB: tx}
	c, err := carts.GetByID(ctx, cid)
	if err != nil {
		return Output{}, err
	}
	if c.CustomerID.Valid && !repo.UUIDEqual(c.CustomerID, custID) {
		return Output{}, ErrCartOwnership
	}
	items, err := carts.ListItems(ctx, cid)
	if err != nil {
		return Output{}, err
	}
	if len(items) == 0 {
		return Output{}, ErrEmptyCart
	}

	now := s.now()
	q, err := pricing.Aggregate(pricingLines(items), now)
	if err != nil {
		return Output{}, err
	}
	if q.ClampedDiscounts > 0 {
		s.Log.Warn().
			Str("cart_id", in.CartID).
			Int("clamped_discounts", q.ClampedDiscounts).
			Msg("checkout priced lines with out-of-range discounts")
	}

	var wardID int64
	if c.WardID.Valid {
		wardID = c.WardID.Int64
	}
	var shippingFee pricing.Money
	if s.Ship != nil {
		shippingFee = s.Ship.Quote(wardID, q.Subtotal)
	}

	var discount pricing.Money
	var redeemed voucher.CheckResult
	if c.AppliedVoucherCode.Valid && c.AppliedVoucherCode.String != "" {
		vsvc := &voucher.Service{Store: repo.Vouchers{DB: tx}, Now: s.Now}
		redeemed, err = vsvc.Redeem(ctx, voucher.CheckInput{
			Code:       c.AppliedVoucherCode.String,
			CustomerID: custID,
			WardID:     wardID,
			Subtotal:   q.Subtotal,
			Items:      voucherItems(items, q.Items),
		})
		if err != nil {
			if errors.Is(err, voucher.ErrNotFound) {
				return Output{}, &VoucherRejectedError{Code: c.AppliedVoucherCode.String, Reason: voucher.ReasonExpired}
			}
			return Output{}, err
		}
		if !redeemed.Result.Valid {
			return Output{}, &VoucherRejectedError{Code: redeemed.Code, Reason: redeemed.Result.Reason}
		}
		discount = redeemed.Discount
	}

	totals := pricing.Total(q.Subtotal, shippingFee, discount)

	orders := repo.Orders{DB: tx}
	order := repo.Order{
		CustomerID:  custID,
		CartID:      cid,
		Status:      "PENDING_PAYMENT",
		Currency:    s.Currency,
		Subtotal:    totals.Subtotal,
		ShippingFee: totals.ShippingFee,
		GrandTotal:  totals.GrandTotal,
		WardID:      c.WardID,
	}
	if discount > 0 {
		order.VoucherDiscount = discount
		order.VoucherCode = c.AppliedVoucherCode
	}
	created, err := orders.Create(ctx, order)
	if err != nil {
		return Output{}, err
	}
	for i, it := range items {
		lineTotal := int64(0)
		if i < len(q.Items) {
			lineTotal = q.Items[i].Total
		}
		if err := orders.CreateItem(ctx, repo.OrderItem{
			OrderID:   created.ID,
			ProductID: it.ProductID,
			Title:     it.Title,
			Qty:       it.Qty,
			UnitPrice: it.UnitPrice,
			Total:     lineTotal,
		}); err != nil {
			return Output{}, err
		}
	}
	if err := carts.SetVoucher(ctx, cid, pgtype.Text{}); err != nil {
		return Output{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Output{}, err
	}

	if obs.OrdersCreatedTotal != nil {
		obs.OrdersCreatedTotal.Inc()
		obs.OrderGrandTotal.Observe(float64(totals.GrandTotal))
	}

	if s.Events != nil {
		_, _ = s.Events.Emit(ctx, events.TopicOrderCreated, created.ID, map[string]any{
			"orderId":    repo.UUIDString(created.ID),
			"customerId": customerID,
			"grandTotal": totals.GrandTotal,
		})
		if discount > 0 {
			_, _ = s.Events.Emit(ctx, events.TopicVoucherRedeemed, created.ID, map[string]any{
				"code":     redeemed.Code,
				"discount": discount,
				"orderId":  repo.UUIDString(created.ID),
			})
		}
	}

	out := Output{
		OrderID: repo.UUIDString(created.ID),
		Status:  created.Status,
		Totals:  totals,
	}
	if discount > 0 && c.AppliedVoucherCode.Valid {
		out.VoucherCode = c.AppliedVoucherCode.String
	}
	return out, nil
}

func pricingLines(items []repo.CartItem) []pricing.Line {
	lines := make([]pricing.Line, 0, len(items))
	for _, it := range items {
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
		lines = append(lines, pricing.Line{
			ProductID: uuid.UUID(it.ProductID.Bytes),
			Qty:       it.Qty,
			Unit:      unit,
		})
	}
	return lines
}

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

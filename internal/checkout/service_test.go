package checkout

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/minhnb-dev/backend-cuahang/internal/pricing"
	"github.com/minhnb-dev/backend-cuahang/internal/repo"
	"github.com/minhnb-dev/backend-cuahang/internal/voucher"
)

func storedItem(price int64, qty int32) repo.CartItem {
	return repo.CartItem{
		ID:        pgtype.UUID{Bytes: uuid.New(), Valid: true},
		ProductID: pgtype.UUID{Bytes: uuid.New(), Valid: true},
		Title:     "ao thun",
		Qty:       qty,
		UnitPrice: price,
	}
}

func TestPricingLinesCarrySnapshots(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	it := storedItem(100_000, 2)
	it.DiscountBps = pgtype.Int4{Int32: 1500, Valid: true}
	it.DiscountStart = pgtype.Timestamptz{Time: start, Valid: true}
	it.DiscountEnd = pgtype.Timestamptz{Time: end, Valid: true}

	lines := pricingLines([]repo.CartItem{it})
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d", len(lines))
	}
	unit := lines[0].Unit
	if unit.Price != 100_000 || unit.DiscountBps != 1500 {
		t.Fatalf("snapshot not carried: %+v", unit)
	}
	if unit.DiscountStart == nil || !unit.DiscountStart.Equal(start) {
		t.Fatalf("discount window not carried: %+v", unit)
	}
}

func TestVoucherItemsPairPricedTotals(t *testing.T) {
	category := uuid.New()
	it := storedItem(100_000, 2)
	it.CategoryID = pgtype.UUID{Bytes: category, Valid: true}
	priced := []pricing.LineItem{{ProductID: uuid.UUID(it.ProductID.Bytes), Qty: 2, UnitPrice: 100_000, Total: 200_000}}

	out := voucherItems([]repo.CartItem{it}, priced)
	if len(out) != 1 {
		t.Fatalf("expected one item, got %d", len(out))
	}
	if out[0].Subtotal != 200_000 {
		t.Fatalf("expected priced total 200000, got %d", out[0].Subtotal)
	}
	if out[0].CategoryID == nil || *out[0].CategoryID != category {
		t.Fatalf("category not carried: %+v", out[0])
	}
}

// Replays the full pricing path of an order: aggregate, voucher evaluation
// and totalizer, with the numbers a storefront quote shows.
func TestOrderPricingComposition(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	items := []repo.CartItem{storedItem(100_000, 2)}

	q, err := pricing.Aggregate(pricingLines(items), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Subtotal != 200_000 {
		t.Fatalf("expected subtotal 200000, got %d", q.Subtotal)
	}

	rule := voucher.Rule{
		Code:       "SALE10",
		Kind:       voucher.KindPercent,
		PercentBps: 1000,
		StartsAt:   now.AddDate(0, 0, -7),
		EndsAt:     now.AddDate(0, 0, 7),
	}
	res, err := voucher.Evaluate(rule, voucher.Context{
		Now:      now,
		Subtotal: q.Subtotal,
		Items:    voucherItems(items, q.Items),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Valid {
		t.Fatalf("expected redeemable voucher, got %+v", res)
	}
	discount := voucher.Discount(rule, q.Subtotal)

	totals := pricing.Total(q.Subtotal, 20_000, discount)
	want := pricing.CheckoutTotal{Subtotal: 200_000, ShippingFee: 20_000, VoucherDiscount: 20_000, GrandTotal: 200_000}
	if totals != want {
		t.Fatalf("expected %+v, got %+v", want, totals)
	}
}

func TestVoucherRejectedErrorMessage(t *testing.T) {
	err := &VoucherRejectedError{Code: "SALE10", Reason: voucher.ReasonExpired}
	if err.Error() != "voucher SALE10 rejected: EXPIRED" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
}

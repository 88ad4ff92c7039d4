package voucher

import "testing"

func TestDiscountPercent(t *testing.T) {
	rule := Rule{Kind: KindPercent, PercentBps: 1000}
	if d := Discount(rule, 200_000); d != 20_000 {
		t.Fatalf("expected 20000 discount, got %d", d)
	}
}

func TestDiscountFixedClampedToSubtotal(t *testing.T) {
	rule := Rule{Kind: KindFixedAmount, Value: 50_000}
	if d := Discount(rule, 30_000); d != 30_000 {
		t.Fatalf("expected discount clamped to 30000, got %d", d)
	}
}

func TestDiscountMaxCap(t *testing.T) {
	rule := Rule{Kind: KindPercent, PercentBps: 5000, MaxDiscount: 40_000}
	if d := Discount(rule, 200_000); d != 40_000 {
		t.Fatalf("expected cap at 40000, got %d", d)
	}
}

func TestDiscountZeroSubtotal(t *testing.T) {
	rule := Rule{Kind: KindFixedAmount, Value: 50_000}
	if d := Discount(rule, 0); d != 0 {
		t.Fatalf("expected 0 discount on empty subtotal, got %d", d)
	}
}

func TestDiscountPercentOverflowClamped(t *testing.T) {
	rule := Rule{Kind: KindPercent, PercentBps: 15000}
	if d := Discount(rule, 80_000); d != 80_000 {
		t.Fatalf("expected discount clamped to subtotal, got %d", d)
	}
}

func TestDiscountNegativeFixed(t *testing.T) {
	rule := Rule{Kind: KindFixedAmount, Value: -5_000}
	if d := Discount(rule, 80_000); d != 0 {
		t.Fatalf("expected 0 for negative value, got %d", d)
	}
}

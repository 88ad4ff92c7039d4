package pricing

import "testing"

func TestTotal(t *testing.T) {
	got := Total(200_000, 20_000, 20_000)
	if got.GrandTotal != 200_000 {
		t.Fatalf("expected grand total 200000, got %d", got.GrandTotal)
	}
}

func TestTotalClampsAtZero(t *testing.T) {
	got := Total(10_000, 0, 50_000)
	if got.GrandTotal != 0 {
		t.Fatalf("expected grand total clamped to 0, got %d", got.GrandTotal)
	}
}

func TestTotalNormalisesNegativeInputs(t *testing.T) {
	got := Total(-5, -10, -20)
	if got.Subtotal != 0 || got.ShippingFee != 0 || got.VoucherDiscount != 0 || got.GrandTotal != 0 {
		t.Fatalf("negative inputs must be treated as zero: %+v", got)
	}
}

package pricing

import (
	"testing"
	"time"
)

func window(start, end time.Time) (s, e *time.Time) {
	return &start, &end
}

func TestEffectivePriceInsideWindow(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	start, end := window(now.Add(-24*time.Hour), now.Add(24*time.Hour))
	p := Product{Price: 100_000, DiscountBps: 2000, DiscountStart: start, DiscountEnd: end}
	if got := EffectivePrice(p, now); got != 80_000 {
		t.Fatalf("expected 80000, got %d", got)
	}
}

func TestEffectivePriceOutsideWindow(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	start, end := window(now.Add(-48*time.Hour), now.Add(-24*time.Hour))
	p := Product{Price: 100_000, DiscountBps: 2000, DiscountStart: start, DiscountEnd: end}
	if got := EffectivePrice(p, now); got != 100_000 {
		t.Fatalf("expected full price after window, got %d", got)
	}
}

func TestEffectivePriceWindowBoundsInclusive(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	p := Product{Price: 50_000, DiscountBps: 1000, DiscountStart: &start, DiscountEnd: &end}
	if got := EffectivePrice(p, start); got != 45_000 {
		t.Fatalf("start bound should be inclusive, got %d", got)
	}
	if got := EffectivePrice(p, end); got != 45_000 {
		t.Fatalf("end bound should be inclusive, got %d", got)
	}
	if got := EffectivePrice(p, end.Add(time.Second)); got != 50_000 {
		t.Fatalf("expected full price past end, got %d", got)
	}
}

func TestEffectivePriceMissingBounds(t *testing.T) {
	now := time.Now()
	start := now.Add(-time.Hour)
	p := Product{Price: 30_000, DiscountBps: 5000, DiscountStart: &start}
	if got := EffectivePrice(p, now); got != 30_000 {
		t.Fatalf("discount without end bound must not apply, got %d", got)
	}
}

func TestClampBps(t *testing.T) {
	cases := []struct {
		in      int32
		want    int32
		clamped bool
	}{
		{-100, 0, true},
		{0, 0, false},
		{2500, 2500, false},
		{10000, 10000, false},
		{12000, 10000, true},
	}
	for _, tc := range cases {
		got, clamped := ClampBps(tc.in)
		if got != tc.want || clamped != tc.clamped {
			t.Fatalf("ClampBps(%d) = (%d, %v), want (%d, %v)", tc.in, got, clamped, tc.want, tc.clamped)
		}
	}
}

func TestEffectivePriceClampsOversizedDiscount(t *testing.T) {
	now := time.Now()
	start, end := window(now.Add(-time.Hour), now.Add(time.Hour))
	p := Product{Price: 10_000, DiscountBps: 15000, DiscountStart: start, DiscountEnd: end}
	if got := EffectivePrice(p, now); got != 0 {
		t.Fatalf("oversized discount should clamp to free, got %d", got)
	}
}

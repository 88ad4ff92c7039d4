package voucher

import (
	"testing"
	"time"
)

func TestPayloadToModelFixedAmountDefaults(t *testing.T) {
	p := voucherPayload{
		Code:     "ship30k",
		Kind:     "fixed_amount",
		Value:    30_000,
		StartsAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		EndsAt:   time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
	}

	v := payloadToModel(p)
	if v.Code != "SHIP30K" {
		t.Fatalf("expected upper-cased code, got %q", v.Code)
	}
	if !v.PercentBps.Valid || v.PercentBps.Int32 != 0 {
		t.Fatalf("expected percent_bps bound as 0, got %+v", v.PercentBps)
	}
	if v.UsageLimit.Valid {
		t.Fatalf("expected unlimited usage as NULL, got %+v", v.UsageLimit)
	}
}

func TestPayloadToModelPercent(t *testing.T) {
	bps := int32(1000)
	limit := int32(100)
	p := voucherPayload{
		Code:       "SALE10",
		Kind:       "percent",
		PercentBps: &bps,
		UsageLimit: &limit,
		StartsAt:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		EndsAt:     time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
	}

	v := payloadToModel(p)
	if !v.PercentBps.Valid || v.PercentBps.Int32 != 1000 {
		t.Fatalf("expected percent_bps 1000, got %+v", v.PercentBps)
	}
	if !v.UsageLimit.Valid || v.UsageLimit.Int32 != 100 {
		t.Fatalf("expected usage limit 100, got %+v", v.UsageLimit)
	}
}

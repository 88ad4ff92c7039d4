package pricing

import "time"

// Money represents a monetary amount in whole VND.
type Money = int64

// bpsScale is the denominator for discounts expressed in basis points.
const bpsScale = 10000

// Product is the read-only catalog snapshot used for price derivation.
// DiscountBps only applies while both window bounds are set and cover the
// evaluation instant; both bounds are inclusive.
type Product struct {
	Price         Money
	DiscountBps   int32
	DiscountStart *time.Time
	DiscountEnd   *time.Time
}

// DiscountActive reports whether the product discount window covers now.
func DiscountActive(p Product, now time.Time) bool {
	if p.DiscountStart == nil || p.DiscountEnd == nil {
		return false
	}
	return !now.Before(*p.DiscountStart) && !now.After(*p.DiscountEnd)
}

// ClampBps forces a discount into the valid basis point range. The second
// return reports whether the stored value was out of range, so callers can
// log the catalog data problem instead of failing the request.
func ClampBps(bps int32) (int32, bool) {
	if bps < 0 {
		return 0, true
	}
	if bps > bpsScale {
		return bpsScale, true
	}
	return bps, false
}

// EffectivePrice returns the unit price at the given instant, rounded
// half-up to whole currency units.
func EffectivePrice(p Product, now time.Time) Money {
	return roundHalfUp(effectiveScaled(p, now))
}

// effectiveScaled returns the unit price multiplied by bpsScale. Keeping the
// value scaled lets aggregation defer rounding to a single point.
func effectiveScaled(p Product, now time.Time) int64 {
	price := p.Price
	if price < 0 {
		price = 0
	}
	if !DiscountActive(p, now) {
		return price * bpsScale
	}
	bps, _ := ClampBps(p.DiscountBps)
	return price * int64(bpsScale-bps)
}

func roundHalfUp(scaled int64) int64 {
	return (scaled + bpsScale/2) / bpsScale
}

package voucher

import "github.com/minhnb-dev/backend-cuahang/internal/pricing"

// Discount computes the discount amount for a rule that was already found
// redeemable. Percent vouchers derive from the subtotal in basis points;
// fixed amount vouchers use the stored value. The result honours the
// optional per-voucher cap and never exceeds the subtotal.
func Discount(r Rule, subtotal pricing.Money) pricing.Money {
	if subtotal <= 0 {
		return 0
	}
	var d pricing.Money
	switch r.Kind {
	case KindPercent:
		bps := int64(r.PercentBps)
		if bps <= 0 {
			return 0
		}
		if bps > 10000 {
			bps = 10000
		}
		d = subtotal * bps / 10000
	default:
		d = r.Value
	}
	if r.MaxDiscount > 0 && d > r.MaxDiscount {
		d = r.MaxDiscount
	}
	if d > subtotal {
		d = subtotal
	}
	if d < 0 {
		return 0
	}
	return d
}

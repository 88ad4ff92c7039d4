package shipping

import "github.com/minhnb-dev/backend-cuahang/internal/pricing"

// Quoter models a shipping fee provider consulted during cart quoting and
// checkout.
type Quoter interface {
	Quote(wardID int64, subtotal pricing.Money) pricing.Money
}

// TableRate quotes a flat fee per delivery ward with a fallback default.
// Orders at or above FreeOver ship free; zero disables the threshold.
type TableRate struct {
	Default  pricing.Money
	PerWard  map[int64]pricing.Money
	FreeOver pricing.Money
}

func (t TableRate) Quote(wardID int64, subtotal pricing.Money) pricing.Money {
	if t.FreeOver > 0 && subtotal >= t.FreeOver {
		return 0
	}
	if fee, ok := t.PerWard[wardID]; ok {
		return fee
	}
	return t.Default
}

package pricing

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrDataIntegrity marks inputs that violate storage invariants. It signals
// an upstream data bug rather than a user-facing validation outcome.
var ErrDataIntegrity = errors.New("data integrity violation")

// Line is one cart line: a quantity plus the product pricing fields
// snapshotted when the line was added to the cart.
type Line struct {
	ProductID uuid.UUID
	Qty       int32
	Unit      Product
}

// LineItem is a priced cart line.
type LineItem struct {
	ProductID uuid.UUID `json:"productId"`
	Qty       int32     `json:"qty"`
	UnitPrice Money     `json:"unitPrice"`
	Total     Money     `json:"total"`
}

// Quote is the result of aggregating a cart at one instant.
type Quote struct {
	Items    []LineItem `json:"items"`
	Subtotal Money      `json:"subtotal"`
	// ClampedDiscounts counts lines whose stored discount fell outside the
	// valid range and had to be clamped. Callers log it as a data warning.
	ClampedDiscounts int `json:"-"`
}

// Aggregate prices each line at now and sums the cart. Line totals are
// accumulated in scaled arithmetic and rounded half-up once at the subtotal
// so splitting a line across entries cannot change the result.
func Aggregate(lines []Line, now time.Time) (Quote, error) {
	var q Quote
	var scaledSum int64
	q.Items = make([]LineItem, 0, len(lines))
	for _, ln := range lines {
		if ln.Qty <= 0 {
			return Quote{}, fmt.Errorf("pricing: qty %d on product %s: %w", ln.Qty, ln.ProductID, ErrDataIntegrity)
		}
		if _, out := ClampBps(ln.Unit.DiscountBps); out {
			q.ClampedDiscounts++
		}
		unitScaled := effectiveScaled(ln.Unit, now)
		lineScaled := unitScaled * int64(ln.Qty)
		scaledSum += lineScaled
		q.Items = append(q.Items, LineItem{
			ProductID: ln.ProductID,
			Qty:       ln.Qty,
			UnitPrice: roundHalfUp(unitScaled),
			Total:     roundHalfUp(lineScaled),
		})
	}
	q.Subtotal = roundHalfUp(scaledSum)
	return q, nil
}

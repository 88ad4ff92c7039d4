package voucher

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/minhnb-dev/backend-cuahang/internal/pricing"
)

// ErrDataIntegrity marks voucher definitions that violate storage
// invariants. It indicates an upstream data bug, not a rejection the
// customer should see.
var ErrDataIntegrity = errors.New("voucher: data integrity violation")

// DiscountKind distinguishes fixed amount and percentage vouchers.
type DiscountKind string

const (
	KindFixedAmount DiscountKind = "fixed_amount"
	KindPercent     DiscountKind = "percent"
)

// Reason explains why a voucher was or was not redeemable.
type Reason string

const (
	ReasonOk                  Reason = "OK"
	ReasonNotStarted          Reason = "NOT_STARTED"
	ReasonExpired             Reason = "EXPIRED"
	ReasonUsageLimitReached   Reason = "USAGE_LIMIT_REACHED"
	ReasonAlreadyUsed         Reason = "ALREADY_USED"
	ReasonMinimumAmountNotMet Reason = "MINIMUM_AMOUNT_NOT_MET"
	ReasonLocationNotEligible Reason = "LOCATION_NOT_ELIGIBLE"
	ReasonProductNotEligible  Reason = "PRODUCT_NOT_ELIGIBLE"
)

// ConditionKind tags the variant stored in a Condition.
type ConditionKind string

const (
	ConditionMinAmount    ConditionKind = "min_amount"
	ConditionLocation     ConditionKind = "location"
	ConditionProductScope ConditionKind = "product_scope"
)

// Condition is one eligibility constraint attached to a voucher. Only the
// fields matching Kind carry meaning. Conditions of the same kind are OR'd
// together; different kinds must all pass.
type Condition struct {
	Kind        ConditionKind
	MinAmount   pricing.Money
	WardIDs     []int64
	ProductIDs  []uuid.UUID
	CategoryIDs []uuid.UUID
}

// Rule captures the runtime constraints of a voucher.
type Rule struct {
	Code        string
	Kind        DiscountKind
	Value       pricing.Money
	PercentBps  int32
	MaxDiscount pricing.Money
	UsageLimit  *int32
	UsedCount   int32
	StartsAt    time.Time
	EndsAt      time.Time
	Conditions  []Condition
}

// Item is a priced cart line considered during product scope matching.
type Item struct {
	ProductID  uuid.UUID
	CategoryID *uuid.UUID
	Subtotal   pricing.Money
}

// Context is the immutable snapshot a single evaluation runs against. The
// evaluator never mutates counters; usage accounting is the order
// transaction's responsibility.
type Context struct {
	Now         time.Time
	WardID      int64
	Subtotal    pricing.Money
	Items       []Item
	AlreadyUsed bool
}

// Result is the outcome of one evaluation. It is computed fresh per call
// and never persisted.
type Result struct {
	Valid  bool   `json:"valid"`
	Reason Reason `json:"reason"`
}

func rejected(r Reason) Result { return Result{Reason: r} }

// Evaluate decides whether the rule is redeemable for the given snapshot.
// Checks run in a fixed order so the first failing check is the reported
// reason: window, usage limit, per-customer usage, minimum amount,
// location, product scope.
func Evaluate(r Rule, c Context) (Result, error) {
	if r.EndsAt.Before(r.StartsAt) {
		return Result{}, fmt.Errorf("voucher %s: window ends before it starts: %w", r.Code, ErrDataIntegrity)
	}
	if c.Now.Before(r.StartsAt) {
		return rejected(ReasonNotStarted), nil
	}
	if c.Now.After(r.EndsAt) {
		return rejected(ReasonExpired), nil
	}
	if r.UsageLimit != nil && r.UsedCount >= *r.UsageLimit {
		return rejected(ReasonUsageLimitReached), nil
	}
	if c.AlreadyUsed {
		return rejected(ReasonAlreadyUsed), nil
	}
	if !minAmountMet(r.Conditions, c.Subtotal) {
		return rejected(ReasonMinimumAmountNotMet), nil
	}
	if !locationAllowed(r.Conditions, c.WardID) {
		return rejected(ReasonLocationNotEligible), nil
	}
	if !scopeMatched(r.Conditions, c.Items) {
		return rejected(ReasonProductNotEligible), nil
	}
	return Result{Valid: true, Reason: ReasonOk}, nil
}

func minAmountMet(conditions []Condition, subtotal pricing.Money) bool {
	found := false
	for _, cond := range conditions {
		if cond.Kind != ConditionMinAmount {
			continue
		}
		found = true
		if subtotal >= cond.MinAmount {
			return true
		}
	}
	return !found
}

func locationAllowed(conditions []Condition, wardID int64) bool {
	found := false
	for _, cond := range conditions {
		if cond.Kind != ConditionLocation {
			continue
		}
		found = true
		for _, id := range cond.WardIDs {
			if id == wardID {
				return true
			}
		}
	}
	return !found
}

func scopeMatched(conditions []Condition, items []Item) bool {
	found := false
	for _, cond := range conditions {
		if cond.Kind != ConditionProductScope {
			continue
		}
		found = true
		for _, it := range items {
			if itemInScope(cond, it) {
				return true
			}
		}
	}
	return !found
}

func itemInScope(cond Condition, it Item) bool {
	for _, id := range cond.ProductIDs {
		if id == it.ProductID {
			return true
		}
	}
	if it.CategoryID != nil {
		for _, id := range cond.CategoryIDs {
			if id == *it.CategoryID {
				return true
			}
		}
	}
	return false
}

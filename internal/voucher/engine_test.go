package voucher

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

var (
	windowStart = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	windowEnd   = time.Date(2026, 3, 31, 23, 59, 59, 0, time.UTC)
)

func baseRule() Rule {
	return Rule{Code: "SALE10", Kind: KindPercent, PercentBps: 1000, StartsAt: windowStart, EndsAt: windowEnd}
}

func mustEvaluate(t *testing.T, r Rule, c Context) Result {
	t.Helper()
	res, err := Evaluate(r, c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return res
}

func TestEvaluateOk(t *testing.T) {
	res := mustEvaluate(t, baseRule(), Context{Now: windowStart.Add(time.Hour), Subtotal: 100_000})
	if !res.Valid || res.Reason != ReasonOk {
		t.Fatalf("expected valid OK, got %+v", res)
	}
}

func TestEvaluateWindowBounds(t *testing.T) {
	rule := baseRule()
	cases := []struct {
		name   string
		now    time.Time
		valid  bool
		reason Reason
	}{
		{"before start", windowStart.Add(-time.Second), false, ReasonNotStarted},
		{"at start", windowStart, true, ReasonOk},
		{"at end", windowEnd, true, ReasonOk},
		{"after end", windowEnd.Add(time.Second), false, ReasonExpired},
	}
	for _, tc := range cases {
		res := mustEvaluate(t, rule, Context{Now: tc.now, Subtotal: 100_000})
		if res.Valid != tc.valid || res.Reason != tc.reason {
			t.Fatalf("%s: expected valid=%v reason=%s, got %+v", tc.name, tc.valid, tc.reason, res)
		}
	}
}

func TestEvaluateUsageLimitBoundary(t *testing.T) {
	limit := int32(100)
	rule := baseRule()
	rule.UsageLimit = &limit
	ctx := Context{Now: windowStart.Add(time.Hour), Subtotal: 100_000}

	rule.UsedCount = 99
	if res := mustEvaluate(t, rule, ctx); !res.Valid {
		t.Fatalf("expected valid at used=99, got %+v", res)
	}
	rule.UsedCount = 100
	if res := mustEvaluate(t, rule, ctx); res.Reason != ReasonUsageLimitReached {
		t.Fatalf("expected USAGE_LIMIT_REACHED at used=100, got %+v", res)
	}
}

func TestEvaluateAlreadyUsed(t *testing.T) {
	res := mustEvaluate(t, baseRule(), Context{Now: windowStart.Add(time.Hour), Subtotal: 100_000, AlreadyUsed: true})
	if res.Reason != ReasonAlreadyUsed {
		t.Fatalf("expected ALREADY_USED, got %+v", res)
	}
}

func TestEvaluateCheckOrderFixed(t *testing.T) {
	// A voucher failing every check reports the first failure only.
	limit := int32(1)
	rule := baseRule()
	rule.UsageLimit = &limit
	rule.UsedCount = 1
	rule.Conditions = []Condition{{Kind: ConditionMinAmount, MinAmount: 500_000}}
	res := mustEvaluate(t, rule, Context{Now: windowEnd.Add(time.Hour), Subtotal: 1000, AlreadyUsed: true})
	if res.Reason != ReasonExpired {
		t.Fatalf("expected EXPIRED to win, got %+v", res)
	}
}

func TestEvaluateMinAmount(t *testing.T) {
	rule := baseRule()
	rule.Conditions = []Condition{{Kind: ConditionMinAmount, MinAmount: 50_000}}
	ctx := Context{Now: windowStart.Add(time.Hour)}

	ctx.Subtotal = 49_999
	if res := mustEvaluate(t, rule, ctx); res.Reason != ReasonMinimumAmountNotMet {
		t.Fatalf("expected MINIMUM_AMOUNT_NOT_MET, got %+v", res)
	}
	ctx.Subtotal = 50_000
	if res := mustEvaluate(t, rule, ctx); !res.Valid {
		t.Fatalf("expected valid at threshold, got %+v", res)
	}
}

func TestEvaluateSameKindConditionsOr(t *testing.T) {
	rule := baseRule()
	rule.Conditions = []Condition{
		{Kind: ConditionMinAmount, MinAmount: 200_000},
		{Kind: ConditionMinAmount, MinAmount: 50_000},
	}
	res := mustEvaluate(t, rule, Context{Now: windowStart.Add(time.Hour), Subtotal: 60_000})
	if !res.Valid {
		t.Fatalf("expected one passing min_amount condition to suffice, got %+v", res)
	}
}

func TestEvaluateCrossKindConditionsAnd(t *testing.T) {
	rule := baseRule()
	rule.Conditions = []Condition{
		{Kind: ConditionMinAmount, MinAmount: 50_000},
		{Kind: ConditionLocation, WardIDs: []int64{100, 101}},
	}
	ctx := Context{Now: windowStart.Add(time.Hour), Subtotal: 60_000, WardID: 999}
	if res := mustEvaluate(t, rule, ctx); res.Reason != ReasonLocationNotEligible {
		t.Fatalf("expected LOCATION_NOT_ELIGIBLE, got %+v", res)
	}
	ctx.WardID = 101
	if res := mustEvaluate(t, rule, ctx); !res.Valid {
		t.Fatalf("expected valid once every kind passes, got %+v", res)
	}
}

func TestEvaluateProductScope(t *testing.T) {
	inScope := uuidMust("11111111-1111-1111-1111-111111111111")
	outOfScope := uuidMust("22222222-2222-2222-2222-222222222222")
	category := uuidMust("33333333-3333-3333-3333-333333333333")

	rule := baseRule()
	rule.Conditions = []Condition{{Kind: ConditionProductScope, ProductIDs: []uuid.UUID{inScope}}}
	ctx := Context{Now: windowStart.Add(time.Hour), Subtotal: 100_000}

	ctx.Items = []Item{{ProductID: outOfScope, Subtotal: 100_000}}
	if res := mustEvaluate(t, rule, ctx); res.Reason != ReasonProductNotEligible {
		t.Fatalf("expected PRODUCT_NOT_ELIGIBLE, got %+v", res)
	}
	ctx.Items = []Item{{ProductID: outOfScope, Subtotal: 40_000}, {ProductID: inScope, Subtotal: 60_000}}
	if res := mustEvaluate(t, rule, ctx); !res.Valid {
		t.Fatalf("expected one in-scope item to suffice, got %+v", res)
	}

	rule.Conditions = []Condition{{Kind: ConditionProductScope, CategoryIDs: []uuid.UUID{category}}}
	ctx.Items = []Item{{ProductID: outOfScope, CategoryID: &category, Subtotal: 100_000}}
	if res := mustEvaluate(t, rule, ctx); !res.Valid {
		t.Fatalf("expected category match to suffice, got %+v", res)
	}
}

func TestEvaluateNoConditionsPass(t *testing.T) {
	res := mustEvaluate(t, baseRule(), Context{Now: windowStart.Add(time.Hour), Subtotal: 1})
	if !res.Valid {
		t.Fatalf("expected rule without conditions to pass, got %+v", res)
	}
}

func TestEvaluateInvertedWindow(t *testing.T) {
	rule := baseRule()
	rule.StartsAt, rule.EndsAt = rule.EndsAt, rule.StartsAt
	_, err := Evaluate(rule, Context{Now: windowStart})
	if !errors.Is(err, ErrDataIntegrity) {
		t.Fatalf("expected ErrDataIntegrity, got %v", err)
	}
}

func uuidMust(value string) uuid.UUID {
	id, err := uuid.Parse(value)
	if err != nil {
		panic(err)
	}
	return id
}

package pricing

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestAggregateSubtotal(t *testing.T) {
	now := time.Now()
	lines := []Line{
		{ProductID: uuid.New(), Qty: 2, Unit: Product{Price: 100_000}},
		{ProductID: uuid.New(), Qty: 1, Unit: Product{Price: 50_000}},
	}
	q, err := Aggregate(lines, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Subtotal != 250_000 {
		t.Fatalf("expected subtotal 250000, got %d", q.Subtotal)
	}
	if len(q.Items) != 2 || q.Items[0].Total != 200_000 {
		t.Fatalf("unexpected line items: %+v", q.Items)
	}
}

func TestAggregatePartitionInvariance(t *testing.T) {
	now := time.Now()
	start, end := now.Add(-time.Hour), now.Add(time.Hour)
	unit := Product{Price: 33_333, DiscountBps: 1500, DiscountStart: &start, DiscountEnd: &end}
	pid := uuid.New()

	whole, err := Aggregate([]Line{{ProductID: pid, Qty: 3, Unit: unit}}, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	split, err := Aggregate([]Line{
		{ProductID: pid, Qty: 1, Unit: unit},
		{ProductID: pid, Qty: 2, Unit: unit},
	}, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if whole.Subtotal != split.Subtotal {
		t.Fatalf("splitting a line changed the subtotal: %d vs %d", whole.Subtotal, split.Subtotal)
	}
}

func TestAggregateRejectsNonPositiveQty(t *testing.T) {
	_, err := Aggregate([]Line{{ProductID: uuid.New(), Qty: 0, Unit: Product{Price: 1000}}}, time.Now())
	if !errors.Is(err, ErrDataIntegrity) {
		t.Fatalf("expected ErrDataIntegrity, got %v", err)
	}
}

func TestAggregateFlagsClampedDiscounts(t *testing.T) {
	now := time.Now()
	start, end := now.Add(-time.Hour), now.Add(time.Hour)
	lines := []Line{
		{ProductID: uuid.New(), Qty: 1, Unit: Product{Price: 1000, DiscountBps: 20000, DiscountStart: &start, DiscountEnd: &end}},
		{ProductID: uuid.New(), Qty: 1, Unit: Product{Price: 1000}},
	}
	q, err := Aggregate(lines, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.ClampedDiscounts != 1 {
		t.Fatalf("expected one clamped discount, got %d", q.ClampedDiscounts)
	}
}

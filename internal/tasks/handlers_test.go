package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"

	"github.com/minhnb-dev/backend-cuahang/internal/common"
)

func TestHandleOrderConfirmation(t *testing.T) {
	outbox := &common.InMemoryEmail{}
	h := &Handlers{Email: outbox}

	task, err := NewOrderConfirmationTask(OrderConfirmationPayload{
		OrderID:    "ord-1",
		CustomerID: "cust-1",
		GrandTotal: 200_000,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := h.HandleOrderConfirmation(context.Background(), task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(outbox.Outbox) != 1 {
		t.Fatalf("expected one email, got %d", len(outbox.Outbox))
	}
	if outbox.Outbox[0].To != "cust-1" {
		t.Fatalf("unexpected recipient: %s", outbox.Outbox[0].To)
	}
}

func TestHandleOrderConfirmationBadPayload(t *testing.T) {
	h := &Handlers{Email: common.NopEmailSender{}}
	task := asynq.NewTask(TypeOrderConfirmation, []byte("not json"))
	err := h.HandleOrderConfirmation(context.Background(), task)
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry for undecodable payload, got %v", err)
	}
}

func TestHandleVoucherAudit(t *testing.T) {
	h := &Handlers{}
	payload, _ := json.Marshal(VoucherAuditPayload{
		Topic:       "voucher.redeemed",
		AggregateID: "v-1",
		Event:       json.RawMessage(`{"code":"SALE10"}`),
	})
	task := asynq.NewTask(TypeVoucherAudit, payload)
	if err := h.HandleVoucherAudit(context.Background(), task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

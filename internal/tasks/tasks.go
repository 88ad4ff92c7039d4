package tasks

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/minhnb-dev/backend-cuahang/internal/events"
	"github.com/minhnb-dev/backend-cuahang/internal/repo"
)

// Task type names routed through the asynq mux.
const (
	TypeOrderConfirmation = "email:order_confirmation"
	TypeVoucherAudit      = "voucher:audit"
)

// OrderConfirmationPayload carries what the confirmation email needs.
type OrderConfirmationPayload struct {
	OrderID    string `json:"orderId"`
	CustomerID string `json:"customerId"`
	GrandTotal int64  `json:"grandTotal"`
}

// VoucherAuditPayload records a voucher lifecycle event for the audit trail.
type VoucherAuditPayload struct {
	Topic       string          `json:"topic"`
	AggregateID string          `json:"aggregateId"`
	Event       json.RawMessage `json:"event"`
}

// NewOrderConfirmationTask builds the asynq task for an order confirmation.
func NewOrderConfirmationTask(p OrderConfirmationPayload) (*asynq.Task, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeOrderConfirmation, data, asynq.MaxRetry(5)), nil
}

// NewVoucherAuditTask builds the asynq task recording a voucher event.
func NewVoucherAuditTask(p VoucherAuditPayload) (*asynq.Task, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeVoucherAudit, data, asynq.MaxRetry(3)), nil
}

// Enqueuer hands domain events to asynq. It implements events.Scheduler.
type Enqueuer struct {
	Client *asynq.Client
}

// Schedule routes an emitted event to its background task.
func (e Enqueuer) Schedule(ctx context.Context, ev events.Event) error {
	if e.Client == nil {
		return nil
	}
	var task *asynq.Task
	var err error
	switch ev.Topic {
	case events.TopicOrderCreated:
		var body struct {
			OrderID    string `json:"orderId"`
			CustomerID string `json:"customerId"`
			GrandTotal int64  `json:"grandTotal"`
		}
		if err := json.Unmarshal(ev.Payload, &body); err != nil {
			return err
		}
		task, err = NewOrderConfirmationTask(OrderConfirmationPayload{
			OrderID:    body.OrderID,
			CustomerID: body.CustomerID,
			GrandTotal: body.GrandTotal,
		})
	case events.TopicVoucherClaimed, events.TopicVoucherRedeemed:
		task, err = NewVoucherAuditTask(VoucherAuditPayload{
			Topic:       ev.Topic,
			AggregateID: repo.UUIDString(ev.AggregateID),
			Event:       ev.Payload,
		})
	default:
		return nil
	}
	if err != nil {
		return err
	}
	_, err = e.Client.EnqueueContext(ctx, task)
	return err
}

package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/minhnb-dev/backend-cuahang/internal/common"
)

// Handlers processes background tasks on the worker.
type Handlers struct {
	Email common.EmailSender
	Log   zerolog.Logger
}

// Mux returns the asynq mux with every handler registered.
func (h *Handlers) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeOrderConfirmation, h.HandleOrderConfirmation)
	mux.HandleFunc(TypeVoucherAudit, h.HandleVoucherAudit)
	return mux
}

// HandleOrderConfirmation sends the order confirmation email.
func (h *Handlers) HandleOrderConfirmation(ctx context.Context, t *asynq.Task) error {
	var p OrderConfirmationPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("decode order confirmation: %v: %w", err, asynq.SkipRetry)
	}
	if h.Email == nil {
		return nil
	}
	subject := fmt.Sprintf("Order %s confirmed", p.OrderID)
	html := fmt.Sprintf("<p>Your order <strong>%s</strong> totalling %d VND has been received.</p>", p.OrderID, p.GrandTotal)
	if err := h.Email.Send(p.CustomerID, subject, html); err != nil {
		return fmt.Errorf("send order confirmation: %w", err)
	}
	h.Log.Info().Str("order_id", p.OrderID).Msg("order confirmation sent")
	return nil
}

// HandleVoucherAudit writes voucher lifecycle events to the audit log.
func (h *Handlers) HandleVoucherAudit(ctx context.Context, t *asynq.Task) error {
	var p VoucherAuditPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("decode voucher audit: %v: %w", err, asynq.SkipRetry)
	}
	h.Log.Info().
		Str("topic", p.Topic).
		Str("aggregate_id", p.AggregateID).
		RawJSON("event", p.Event).
		Msg("voucher event")
	return nil
}

package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/example/veltria/internal/models"
)

// PaymentStore persists selected payment columns.
type PaymentStore interface {
	UpdatePayment(ctx context.Context, id uuid.UUID, fields map[string]any) error
}

// SettlementData carries the gateway's confirmation codes persisted next to
// a completed state.
type SettlementData struct {
	ResponseCode string
	AVSResponse  string
}

// PaymentStateMachine drives a payment forward through its lifecycle.
// Callers are trusted to move forward only; no full transition table is
// enforced. The void state belongs to external cancellation flows and is
// never a target here.
type PaymentStateMachine struct {
	store PaymentStore
	log   zerolog.Logger
}

func NewPaymentStateMachine(store PaymentStore, log zerolog.Logger) *PaymentStateMachine {
	return &PaymentStateMachine{store: store, log: log.With().Str("component", "payment_state").Logger()}
}

// Transition moves the payment to target and persists the change. A
// same-state transition is an idempotent no-op; an unknown target fails with
// no mutation. Settlement, when given, is written alongside the state.
func (m *PaymentStateMachine) Transition(ctx context.Context, payment *models.Payment, target models.PaymentState, settlement *SettlementData) error {
	if target == payment.State {
		return nil
	}
	if !target.Valid() {
		return NewPaymentError(KindUnknownPaymentState, fmt.Sprintf("unknown payment state %q", target))
	}

	fields := map[string]any{"state": target}
	if settlement != nil {
		fields["response_code"] = settlement.ResponseCode
		fields["avs_response"] = settlement.AVSResponse
	}

	if err := m.store.UpdatePayment(ctx, payment.ID, fields); err != nil {
		return fmt.Errorf("persist payment state %s: %w", target, err)
	}

	m.log.Info().
		Str("payment_id", payment.ID.String()).
		Str("from", string(payment.State)).
		Str("to", string(target)).
		Msg("payment state transition")

	payment.State = target
	if settlement != nil {
		payment.ResponseCode = settlement.ResponseCode
		payment.AVSResponse = settlement.AVSResponse
	}
	return nil
}

// StartProcess marks the payment as in-flight.
func (m *PaymentStateMachine) StartProcess(ctx context.Context, payment *models.Payment) error {
	return m.Transition(ctx, payment, models.PaymentStateProcessing, nil)
}

// IsProcessing reports whether a charge is already in flight for the
// payment. The check is not atomic with StartProcess; two racing calls can
// both observe a stale state and the gateway's already_paid recognition is
// the backstop against a double charge.
func IsProcessing(payment *models.Payment) bool {
	return payment.State == models.PaymentStateProcessing
}

package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/example/veltria/internal/models"
	"github.com/example/veltria/internal/services"
)

type fakePaymentStore struct {
	calls []map[string]any
	err   error
}

func (f *fakePaymentStore) UpdatePayment(_ context.Context, _ uuid.UUID, fields map[string]any) error {
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, fields)
	return nil
}

func newTestPayment(state models.PaymentState) *models.Payment {
	p := &models.Payment{State: state, Amount: 49.99}
	p.ID = uuid.New()
	p.OrderID = uuid.New()
	p.PaymentMethodID = uuid.New()
	return p
}

func TestTransition_SameStateIsNoOp(t *testing.T) {
	store := &fakePaymentStore{}
	machine := services.NewPaymentStateMachine(store, zerolog.Nop())
	payment := newTestPayment(models.PaymentStateCheckout)

	err := machine.Transition(context.Background(), payment, models.PaymentStateCheckout, nil)

	require.NoError(t, err)
	require.Empty(t, store.calls, "no-op transition must not touch persistence")
}

func TestTransition_UnknownStateFails(t *testing.T) {
	store := &fakePaymentStore{}
	machine := services.NewPaymentStateMachine(store, zerolog.Nop())
	payment := newTestPayment(models.PaymentStateCheckout)

	err := machine.Transition(context.Background(), payment, models.PaymentState("bogus"), nil)

	perr, ok := services.AsPaymentError(err)
	require.True(t, ok)
	require.Equal(t, services.KindUnknownPaymentState, perr.Kind)
	require.Empty(t, store.calls)
	require.Equal(t, models.PaymentStateCheckout, payment.State, "failed transition must not mutate the payment")
}

func TestTransition_PersistsStateOnly(t *testing.T) {
	store := &fakePaymentStore{}
	machine := services.NewPaymentStateMachine(store, zerolog.Nop())
	payment := newTestPayment(models.PaymentStateCheckout)

	err := machine.Transition(context.Background(), payment, models.PaymentStateProcessing, nil)

	require.NoError(t, err)
	require.Len(t, store.calls, 1)
	require.Equal(t, map[string]any{"state": models.PaymentStateProcessing}, store.calls[0])
	require.Equal(t, models.PaymentStateProcessing, payment.State)
}

func TestTransition_PersistsSettlementData(t *testing.T) {
	store := &fakePaymentStore{}
	machine := services.NewPaymentStateMachine(store, zerolog.Nop())
	payment := newTestPayment(models.PaymentStateProcessing)

	settlement := &services.SettlementData{ResponseCode: "00", AVSResponse: "Y"}
	err := machine.Transition(context.Background(), payment, models.PaymentStateCompleted, settlement)

	require.NoError(t, err)
	require.Len(t, store.calls, 1)
	require.Equal(t, map[string]any{
		"state":         models.PaymentStateCompleted,
		"response_code": "00",
		"avs_response":  "Y",
	}, store.calls[0])
	require.Equal(t, "00", payment.ResponseCode)
	require.Equal(t, "Y", payment.AVSResponse)
}

func TestTransition_StoreErrorLeavesPaymentUntouched(t *testing.T) {
	store := &fakePaymentStore{err: errors.New("connection reset")}
	machine := services.NewPaymentStateMachine(store, zerolog.Nop())
	payment := newTestPayment(models.PaymentStateCheckout)

	err := machine.Transition(context.Background(), payment, models.PaymentStateProcessing, nil)

	require.Error(t, err)
	require.Equal(t, models.PaymentStateCheckout, payment.State)
}

func TestStartProcessAndIsProcessing(t *testing.T) {
	store := &fakePaymentStore{}
	machine := services.NewPaymentStateMachine(store, zerolog.Nop())
	payment := newTestPayment(models.PaymentStateCheckout)

	require.False(t, services.IsProcessing(payment))
	require.NoError(t, machine.StartProcess(context.Background(), payment))
	require.True(t, services.IsProcessing(payment))
}

package services

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/example/veltria/internal/models"
)

// Screen pre-flights a raw-card payment.
type Screen interface {
	Screen(ctx context.Context, payment *models.Payment) error
}

// EnvelopeBuilder assembles the gateway request for an (order, payment) pair.
type EnvelopeBuilder interface {
	Build(ctx context.Context, order *models.Order, payment *models.Payment) (*GatewayRequestEnvelope, error)
}

// Deliverer sends an envelope to the gateway and returns settlement data.
type Deliverer interface {
	Send(ctx context.Context, env *GatewayRequestEnvelope) (*GatewayResult, error)
}

// GiftCardStore debits stored gift-card balances.
type GiftCardStore interface {
	DebitForPayment(ctx context.Context, payment *models.Payment) error
}

// PaymentService sequences screen, build, delivery and state finalization.
// It is the entry point order-processing callers use.
type PaymentService struct {
	state     *PaymentStateMachine
	methods   PaymentMethodResolver
	screen    Screen
	builder   EnvelopeBuilder
	gateway   Deliverer
	giftcards GiftCardStore
	log       zerolog.Logger
}

func NewPaymentService(state *PaymentStateMachine, methods PaymentMethodResolver, screen Screen, builder EnvelopeBuilder, gateway Deliverer, giftcards GiftCardStore, log zerolog.Logger) *PaymentService {
	return &PaymentService{
		state:     state,
		methods:   methods,
		screen:    screen,
		builder:   builder,
		gateway:   gateway,
		giftcards: giftcards,
		log:       log.With().Str("component", "payment_service").Logger(),
	}
}

// ProcessPayment charges the payment for the order. A payment already in
// processing returns immediately with no error and no new gateway work.
//
// The processing check and StartProcess are not one atomic step; two
// concurrent calls can both pass the check. The gateway's already_paid
// recognition keeps a double delivery from becoming a double charge.
func (s *PaymentService) ProcessPayment(ctx context.Context, order *models.Order, payment *models.Payment) error {
	if IsProcessing(payment) {
		s.log.Info().Str("payment_id", payment.ID.String()).Msg("payment already processing, skipping")
		return nil
	}

	if err := s.state.StartProcess(ctx, payment); err != nil {
		return err
	}

	method, err := s.methods.PaymentMethodOfPayment(ctx, payment)
	if err != nil {
		return err
	}

	switch {
	case method.IsCreditcard:
		return s.processCreditcard(ctx, order, payment)
	case method.Gateway() == models.GatewayGiftCard:
		return s.processGiftCard(ctx, payment)
	case method.Gateway() == models.GatewayCash:
		return s.processCash(ctx, payment)
	default:
		return NewPaymentError(KindInvalidPaymentMethod, "payment method "+method.Type+" cannot be processed")
	}
}

// CapturePayment settles a payment directly, without a gateway call. Used
// for gift card and cash payments captured by back-office flows.
func (s *PaymentService) CapturePayment(ctx context.Context, payment *models.Payment) error {
	if err := s.state.StartProcess(ctx, payment); err != nil {
		return err
	}
	return s.state.Transition(ctx, payment, models.PaymentStateCompleted, nil)
}

func (s *PaymentService) processCreditcard(ctx context.Context, order *models.Order, payment *models.Payment) error {
	var result *GatewayResult

	err := func() error {
		if payment.AutoshipPaymentID == nil {
			// Raw-card charge; token charges skip the screen.
			if err := s.screen.Screen(ctx, payment); err != nil {
				return err
			}
		}

		env, err := s.builder.Build(ctx, order, payment)
		if err != nil {
			return err
		}

		result, err = s.gateway.Send(ctx, env)
		return err
	}()

	return s.finalize(ctx, payment, result, err)
}

func (s *PaymentService) processGiftCard(ctx context.Context, payment *models.Payment) error {
	err := s.giftcards.DebitForPayment(ctx, payment)
	return s.finalize(ctx, payment, nil, err)
}

func (s *PaymentService) processCash(ctx context.Context, payment *models.Payment) error {
	// Cash settles out of band; there is no domain action to attempt.
	return s.finalize(ctx, payment, nil, nil)
}

// finalize always moves the payment to its terminal state, then re-surfaces
// the original error if there was one. Settlement fields are persisted only
// on completion.
func (s *PaymentService) finalize(ctx context.Context, payment *models.Payment, result *GatewayResult, cause error) error {
	if cause != nil {
		if err := s.state.Transition(ctx, payment, models.PaymentStateFailed, nil); err != nil {
			s.log.Error().Err(err).Str("payment_id", payment.ID.String()).Msg("failed to mark payment failed")
		}
		return cause
	}

	var settlement *SettlementData
	if result != nil {
		settlement = &SettlementData{ResponseCode: result.ResponseCode, AVSResponse: result.AVSResponse}
	}
	return s.state.Transition(ctx, payment, models.PaymentStateCompleted, settlement)
}

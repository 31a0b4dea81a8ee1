package services

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/example/veltria/internal/models"
)

// Card types the gateway aggregator accepts for raw-card charges.
var allowedCardTypes = map[string]struct{}{
	"visa":       {},
	"mastercard": {},
	"amex":       {},
	"jcb":        {},
	"maestro":    {},
	"discover":   {},
}

// ChargebackStore looks up blacklist entries by card-number hash.
type ChargebackStore interface {
	ActiveChargebackExists(ctx context.Context, numberHash string) (bool, error)
}

// FraudScreen rejects unsafe raw-card charges before any gateway call.
// Token charges never reach it.
type FraudScreen struct {
	store    ChargebackStore
	reporter ErrorReporter
	log      zerolog.Logger
}

func NewFraudScreen(store ChargebackStore, reporter ErrorReporter, log zerolog.Logger) *FraudScreen {
	return &FraudScreen{
		store:    store,
		reporter: reporter,
		log:      log.With().Str("component", "fraud_screen").Logger(),
	}
}

// Screen validates the payment's card type and checks the number against the
// chargeback blacklist. It returns InvalidCardType or InvalidCreditcardInfo
// without touching the network.
func (s *FraudScreen) Screen(ctx context.Context, payment *models.Payment) error {
	card := payment.Creditcard
	if card == nil {
		return NewPaymentError(KindInvalidCreditcardInfo, "missing creditcard data")
	}
	if err := s.validateCardType(payment, card); err != nil {
		return err
	}
	return s.validateNotChargebacked(ctx, card.Number)
}

func (s *FraudScreen) validateCardType(payment *models.Payment, card *models.Creditcard) error {
	ccType := strings.ToLower(strings.TrimSpace(card.CCType))
	if _, ok := allowedCardTypes[ccType]; ok {
		return nil
	}

	err := NewPaymentError(KindInvalidCardType, fmt.Sprintf("card type %q is not accepted", ccType))
	// Reported so declined types show up in monitoring; the report never
	// blocks or fails the screen.
	s.reporter.ReportError("fraud_screen", err, RedactParams(map[string]any{
		"payment_id": payment.ID.String(),
		"creditcard": card,
		"cc_type":    ccType,
	}))
	return err
}

func (s *FraudScreen) validateNotChargebacked(ctx context.Context, number string) error {
	hash := CardNumberHash(number)

	blocked, err := s.store.ActiveChargebackExists(ctx, hash)
	if err != nil {
		return fmt.Errorf("chargeback lookup: %w", err)
	}
	if blocked {
		s.log.Warn().Str("number_hash", hash).Msg("card matched active chargeback blacklist")
		return NewPaymentError(KindInvalidCreditcardInfo,
			"this card cannot be charged, please contact support")
	}
	return nil
}

// CardNumberHash normalizes a card number and returns its SHA-512 hex
// digest, the key format used by chargeback blacklist rows.
func CardNumberHash(number string) string {
	normalized := strings.ReplaceAll(number, " ", "")
	sum := sha512.Sum512([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

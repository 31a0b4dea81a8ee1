package models

import (
	"github.com/google/uuid"
)

// PaymentState is the lifecycle state of a payment.
type PaymentState string

const (
	PaymentStateCheckout   PaymentState = "checkout"
	PaymentStatePending    PaymentState = "pending"
	PaymentStateProcessing PaymentState = "processing"
	PaymentStateCompleted  PaymentState = "completed"
	PaymentStateFailed     PaymentState = "failed"
	PaymentStateVoid       PaymentState = "void"
)

var paymentStates = map[PaymentState]struct{}{
	PaymentStateCheckout:   {},
	PaymentStatePending:    {},
	PaymentStateProcessing: {},
	PaymentStateCompleted:  {},
	PaymentStateFailed:     {},
	PaymentStateVoid:       {},
}

// Valid reports whether s is one of the known payment states.
func (s PaymentState) Valid() bool {
	_, ok := paymentStates[s]
	return ok
}

// Payment stores the state of a single monetary transaction. The amount is
// set at creation by the order subsystem and never changes afterwards.
type Payment struct {
	BaseModel
	OrderID           uuid.UUID    `gorm:"type:uuid;index" json:"order_id"`
	PaymentMethodID   uuid.UUID    `gorm:"type:uuid;index" json:"payment_method_id"`
	Amount            float64      `json:"amount"`
	State             PaymentState `json:"state"`
	ResponseCode      string       `json:"response_code"`
	AVSResponse       string       `gorm:"column:avs_response" json:"avs_response"`
	AutoshipPaymentID *uuid.UUID   `gorm:"type:uuid" json:"autoship_payment_id"`

	// Creditcard holds raw card data for the duration of a charge. It is
	// never written to the database and never serialized.
	Creditcard *Creditcard `gorm:"-" json:"-"`
}

// Creditcard is payment-scoped raw card data.
type Creditcard struct {
	Number      string
	ExpiryMonth string
	ExpiryYear  string
	CVV         string
	CCType      string
}

// GatewayType tags a payment method with the gateway that settles it.
type GatewayType string

const (
	GatewayIpay           GatewayType = "Ipay"
	GatewayVerifi         GatewayType = "Verifi"
	GatewayWorldpay       GatewayType = "Worldpay"
	GatewayPaymentExpress GatewayType = "PaymentExpress"
	GatewayGiftCard       GatewayType = "GiftCard"
	GatewayCash           GatewayType = "Cash"
	GatewayUnknown        GatewayType = "Unknown"
)

// ParseGatewayType maps a stored payment method type onto the closed set of
// known gateway tags.
func ParseGatewayType(raw string) GatewayType {
	switch GatewayType(raw) {
	case GatewayIpay, GatewayVerifi, GatewayWorldpay, GatewayPaymentExpress, GatewayGiftCard, GatewayCash:
		return GatewayType(raw)
	default:
		return GatewayUnknown
	}
}

// PaymentMethod describes how a payment is settled. Rows are reference data
// managed outside the payment flow.
type PaymentMethod struct {
	BaseModel
	Type         string `json:"type"`
	IsCreditcard bool   `json:"is_creditcard"`
}

// Gateway returns the gateway tag for the method's type.
func (m *PaymentMethod) Gateway() GatewayType {
	return ParseGatewayType(m.Type)
}

// AutoshipPayment links a recurring order to a previously tokenized card.
type AutoshipPayment struct {
	BaseModel
	UserID         uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	PaymentTokenID string    `json:"payment_token_id"`
}

// ChargebackCreditcard is a blacklist entry for a card with a prior disputed
// charge. NumberHash is the SHA-512 hex digest of the space-stripped number.
type ChargebackCreditcard struct {
	BaseModel
	NumberHash string `gorm:"uniqueIndex" json:"number_hash"`
	Active     bool   `json:"active"`
}

// GiftCard carries a stored balance debited by gift-card settlements.
type GiftCard struct {
	BaseModel
	UserID  uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	Code    string    `gorm:"uniqueIndex" json:"code"`
	Balance float64   `json:"balance"`
	Active  bool      `json:"active"`
}

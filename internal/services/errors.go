package services

import (
	"errors"
	"net/http"
)

// ErrorKind classifies a payment failure into the closed taxonomy callers
// can rely on.
type ErrorKind string

const (
	KindUnknownPaymentState   ErrorKind = "UnknownPaymentState"
	KindInvalidCardType       ErrorKind = "InvalidCardType"
	KindInvalidCreditcardInfo ErrorKind = "InvalidCreditcardInfo"
	KindInvalidPaymentMethod  ErrorKind = "InvalidPaymentMethod"
	KindPaymentFailed         ErrorKind = "PaymentFailed"
)

// PaymentError is the single failure shape the payment core surfaces.
type PaymentError struct {
	Kind    ErrorKind
	Message string
	// Code carries a gateway or transport error code ("already_paid",
	// "ETIMEDOUT") when one exists.
	Code string
	// Status overrides the default HTTP status for the kind, e.g. a
	// token-charge with no resolvable token answers 403.
	Status int
	Err    error
}

func (e *PaymentError) Error() string {
	if e.Message != "" {
		return string(e.Kind) + ": " + e.Message
	}
	return string(e.Kind)
}

func (e *PaymentError) Unwrap() error {
	return e.Err
}

// NewPaymentError builds a PaymentError of the given kind.
func NewPaymentError(kind ErrorKind, message string) *PaymentError {
	return &PaymentError{Kind: kind, Message: message}
}

// AsPaymentError extracts a PaymentError from an error chain.
func AsPaymentError(err error) (*PaymentError, bool) {
	var perr *PaymentError
	if errors.As(err, &perr) {
		return perr, true
	}
	return nil, false
}

// StatusCode maps an error onto the HTTP status the API boundary answers
// with. This is the only place kinds and transport codes meet.
func StatusCode(err error) int {
	perr, ok := AsPaymentError(err)
	if !ok {
		return http.StatusInternalServerError
	}
	if perr.Status != 0 {
		return perr.Status
	}
	switch perr.Kind {
	case KindInvalidCardType, KindInvalidCreditcardInfo, KindInvalidPaymentMethod:
		return http.StatusBadRequest
	case KindPaymentFailed:
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

package services_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/example/veltria/internal/services"
)

func TestStatusCode_Mapping(t *testing.T) {
	cases := []struct {
		kind   services.ErrorKind
		status int
	}{
		{services.KindInvalidCardType, fiber.StatusBadRequest},
		{services.KindInvalidCreditcardInfo, fiber.StatusBadRequest},
		{services.KindInvalidPaymentMethod, fiber.StatusBadRequest},
		{services.KindPaymentFailed, fiber.StatusPaymentRequired},
		{services.KindUnknownPaymentState, fiber.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			err := services.NewPaymentError(tc.kind, "x")
			require.Equal(t, tc.status, services.StatusCode(err))
		})
	}
}

func TestStatusCode_OverrideWins(t *testing.T) {
	err := &services.PaymentError{Kind: services.KindPaymentFailed, Status: fiber.StatusForbidden}
	require.Equal(t, fiber.StatusForbidden, services.StatusCode(err))
}

func TestStatusCode_UnclassifiedError(t *testing.T) {
	require.Equal(t, fiber.StatusInternalServerError, services.StatusCode(errors.New("boom")))
}

func TestAsPaymentError_UnwrapsChains(t *testing.T) {
	inner := services.NewPaymentError(services.KindPaymentFailed, "gateway down")
	wrapped := fmt.Errorf("process payment: %w", inner)

	perr, ok := services.AsPaymentError(wrapped)
	require.True(t, ok)
	require.Equal(t, services.KindPaymentFailed, perr.Kind)
}

func TestRedactParams(t *testing.T) {
	params := map[string]any{
		"payment_id": "pay-1",
		"creditcard": map[string]string{"number": "4111111111111111"},
		"cvv":        "123",
	}

	redacted := services.RedactParams(params)

	require.Equal(t, "pay-1", redacted["payment_id"])
	require.Equal(t, "[REDACTED]", redacted["creditcard"])
	require.Equal(t, "[REDACTED]", redacted["cvv"])
	// original untouched
	require.NotEqual(t, "[REDACTED]", params["creditcard"])
}

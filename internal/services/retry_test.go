package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWithRetry_StopsOnSuccess(t *testing.T) {
	attempts := 0
	result, err := withRetry(3, func(error) bool { return true }, func() (*GatewayResult, error) {
		attempts++
		if attempts < 2 {
			return nil, errors.New("flaky")
		}
		return &GatewayResult{ResponseCode: "00"}, nil
	})

	require.NoError(t, err)
	require.Equal(t, 2, attempts)
	require.Equal(t, "00", result.ResponseCode)
}

func TestWithRetry_ExhaustsAttempts(t *testing.T) {
	attempts := 0
	boom := errors.New("timeout")
	_, err := withRetry(3, func(error) bool { return true }, func() (*GatewayResult, error) {
		attempts++
		return nil, boom
	})

	require.Equal(t, 3, attempts)
	require.ErrorIs(t, err, boom)
}

func TestWithRetry_NonRetryableAbortsImmediately(t *testing.T) {
	attempts := 0
	decline := errors.New("card declined")
	_, err := withRetry(3, func(error) bool { return false }, func() (*GatewayResult, error) {
		attempts++
		return nil, decline
	})

	require.Equal(t, 1, attempts)
	require.ErrorIs(t, err, decline)
}

package services

// withRetry runs attempt up to maxAttempts times, stopping early on success
// or on the first error isRetryable rejects. The last error is returned
// unwrapped; classification into the caller's failure shape happens outside.
func withRetry(maxAttempts int, isRetryable func(error) bool, attempt func() (*GatewayResult, error)) (*GatewayResult, error) {
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		result, err := attempt()
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !isRetryable(err) {
			break
		}
	}
	return nil, lastErr
}

package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/veltria/internal/metrics"
)

const (
	maxDeliveryAttempts = 3

	codeTimeout       = "ETIMEDOUT"
	codeSocketTimeout = "ESOCKETTIMEDOUT"
	codeAlreadyPaid   = "already_paid"

	defaultDeclineMessage = "the payment gateway rejected the purchase"
)

// TransportError is a network-level delivery failure carrying the code the
// retry loop classifies on.
type TransportError struct {
	Code string
	Err  error
}

func (e *TransportError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("gateway transport error (%s): %v", e.Code, e.Err)
	}
	return fmt.Sprintf("gateway transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// GatewayResult is the settlement confirmation returned by the gateway.
type GatewayResult struct {
	OrderID      string `json:"order_id"`
	PaymentID    string `json:"payment_id"`
	ResponseCode string `json:"response_code"`
	AVSResponse  string `json:"avs_response"`
}

type gatewayErrorBody struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

type gatewayResponseBody struct {
	Meta struct {
		Error *gatewayErrorBody `json:"error"`
	} `json:"meta"`
	Response *GatewayResult `json:"response"`
}

// PayoutAccountRequest registers a distributor's payout account with the
// aggregator. Used at registration time only.
type PayoutAccountRequest struct {
	UserID     string `json:"user_id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	CountryISO string `json:"country_iso"`
}

// GatewayClient delivers purchase envelopes to the payment aggregator over
// HTTP with bounded retry.
type GatewayClient struct {
	baseURL   string
	clientID  string
	userAgent string
	client    *http.Client
	metrics   *metrics.Recorder
	reporter  ErrorReporter
	log       zerolog.Logger
}

func NewGatewayClient(baseURL string, timeout time.Duration, clientID string, recorder *metrics.Recorder, reporter ErrorReporter, log zerolog.Logger) *GatewayClient {
	return &GatewayClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		clientID:  clientID,
		userAgent: "veltria-payments/1.0",
		client:    &http.Client{Timeout: timeout},
		metrics:   recorder,
		reporter:  reporter,
		log:       log.With().Str("component", "gateway_client").Logger(),
	}
}

// Send delivers the envelope with up to three attempts. Only transport
// timeouts are retried; a gateway decline is final on the first response.
// Whatever error survives the loop is surfaced as PaymentFailed with its
// transport code preserved.
func (c *GatewayClient) Send(ctx context.Context, env *GatewayRequestEnvelope) (*GatewayResult, error) {
	result, err := withRetry(maxDeliveryAttempts, retryableTransport, func() (*GatewayResult, error) {
		return c.SendOnce(ctx, env)
	})
	if err != nil {
		return nil, asPaymentFailed(err)
	}
	return result, nil
}

// SendOnce performs a single POST {base}/purchases round trip and classifies
// the response.
func (c *GatewayClient) SendOnce(ctx context.Context, env *GatewayRequestEnvelope) (*GatewayResult, error) {
	payload, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal gateway envelope: %w", err)
	}

	start := time.Now()
	succeeded := false
	defer func() {
		c.metrics.ObserveGatewayCall(time.Since(start), succeeded)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/purchases", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create purchase request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransportError{Code: transportCode(err), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Code: transportCode(err), Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		result, cerr := c.classifyRejection(env, resp.StatusCode, body)
		if cerr != nil {
			return nil, cerr
		}
		succeeded = true
		return result, nil
	}

	var parsed gatewayResponseBody
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, NewPaymentError(KindPaymentFailed, fmt.Sprintf("malformed gateway response: %v", err))
	}
	if parsed.Response == nil {
		return nil, NewPaymentError(KindPaymentFailed, "gateway response missing settlement data")
	}

	succeeded = true
	return parsed.Response, nil
}

// classifyRejection inspects body.meta.error of a non-200 response. An
// already_paid rejection means a previous attempt settled, typically after a
// timed-out delivery was retried; it is normalized to success with blank
// settlement codes.
func (c *GatewayClient) classifyRejection(env *GatewayRequestEnvelope, status int, body []byte) (*GatewayResult, error) {
	var parsed gatewayResponseBody
	_ = json.Unmarshal(body, &parsed)

	if parsed.Meta.Error != nil && parsed.Meta.Error.ErrorCode == codeAlreadyPaid {
		c.log.Info().
			Str("order_id", env.OrderID).
			Str("payment_id", env.PaymentID).
			Msg("gateway reports purchase already paid, treating as settled")
		return &GatewayResult{OrderID: env.OrderID, PaymentID: env.PaymentID}, nil
	}

	message := defaultDeclineMessage
	errorCode := ""
	if parsed.Meta.Error != nil {
		errorCode = parsed.Meta.Error.ErrorCode
		if parsed.Meta.Error.Message != "" {
			message = parsed.Meta.Error.Message
		}
	}

	perr := &PaymentError{Kind: KindPaymentFailed, Message: message, Code: errorCode}
	c.reporter.ReportError("gateway_client", perr, RedactParams(map[string]any{
		"order_id":    env.OrderID,
		"payment_id":  env.PaymentID,
		"creditcard":  env.Creditcard,
		"http_status": status,
		"error_code":  errorCode,
	}))
	return nil, perr
}

// RegisterPayoutAccount creates a hyperwallet account for a distributor at
// registration time.
func (c *GatewayClient) RegisterPayoutAccount(ctx context.Context, account *PayoutAccountRequest) error {
	payload, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("marshal payout account: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/hyperwallets/accounts", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create payout account request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return &TransportError{Code: transportCode(err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return NewPaymentError(KindPaymentFailed,
			fmt.Sprintf("payout account registration failed: status %d, body: %s", resp.StatusCode, string(body)))
	}
	return nil
}

func (c *GatewayClient) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "en-US")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Client-Id", c.clientID)
}

// transportCode maps a Go transport error onto the wire-visible code the
// original gateway consumers keyed on.
func transportCode(err error) string {
	if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
		return codeTimeout
	}
	return ""
}

func retryableTransport(err error) bool {
	var terr *TransportError
	if !errors.As(err, &terr) {
		return false
	}
	return terr.Code == codeTimeout || terr.Code == codeSocketTimeout
}

// asPaymentFailed wraps whatever error survived the retry loop into the
// PaymentFailed shape, carrying an existing code through.
func asPaymentFailed(err error) error {
	if perr, ok := AsPaymentError(err); ok {
		return perr
	}
	var terr *TransportError
	if errors.As(err, &terr) {
		return &PaymentError{Kind: KindPaymentFailed, Message: terr.Error(), Code: terr.Code, Err: terr}
	}
	return &PaymentError{Kind: KindPaymentFailed, Message: err.Error(), Err: err}
}

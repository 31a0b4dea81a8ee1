package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ErrorReporter is the error-tracking sink collaborators report to. Reports
// are fire-and-forget; they never block or fail the payment flow.
type ErrorReporter interface {
	ReportError(component string, err error, params map[string]any)
}

// RedactParams returns a copy of params with raw card data replaced. Every
// logged or reported payload goes through this first.
func RedactParams(params map[string]any) map[string]any {
	redacted := make(map[string]any, len(params))
	for k, v := range params {
		if k == "creditcard" || k == "card_number" || k == "cvv" {
			redacted[k] = "[REDACTED]"
			continue
		}
		redacted[k] = v
	}
	return redacted
}

// AlertService reports payment failures to a Telegram admin channel.
type AlertService struct {
	botToken    string
	adminChatID string
	client      *http.Client
	log         zerolog.Logger
}

func NewAlertService(botToken, adminChatID string, log zerolog.Logger) *AlertService {
	return &AlertService{
		botToken:    botToken,
		adminChatID: adminChatID,
		client:      &http.Client{Timeout: 10 * time.Second},
		log:         log.With().Str("component", "alerts").Logger(),
	}
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// ReportError sends the failure to the admin chat in a goroutine. Params are
// assumed to be redacted by the caller; RedactParams is applied again as a
// belt.
func (s *AlertService) ReportError(component string, err error, params map[string]any) {
	s.log.Error().Err(err).Str("report_component", component).Fields(RedactParams(params)).Msg("payment error reported")

	if s.botToken == "" || s.adminChatID == "" {
		return
	}

	text := formatErrorReport(component, err, RedactParams(params))
	go func() {
		if sendErr := s.sendMessage(s.adminChatID, text); sendErr != nil {
			s.log.Warn().Err(sendErr).Msg("telegram error report failed")
		}
	}()
}

func (s *AlertService) sendMessage(chatID, text string) error {
	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", s.botToken)

	body, err := json.Marshal(telegramMessage{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "HTML",
	})
	if err != nil {
		return err
	}

	resp, err := s.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}
	return nil
}

func formatErrorReport(component string, err error, params map[string]any) string {
	var b strings.Builder
	b.WriteString("⚠️ <b>Payment error</b>\n")
	fmt.Fprintf(&b, "Component: %s\n", component)
	fmt.Fprintf(&b, "Error: %s\n", err)
	for k, v := range params {
		fmt.Fprintf(&b, "%s: %v\n", k, v)
	}
	return b.String()
}

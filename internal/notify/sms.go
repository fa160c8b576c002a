package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/paylink-cm/paylink/pkg/httpclient"
	"github.com/paylink-cm/paylink/pkg/phone"
)

// DevSMSSender logs messages instead of sending them. Used whenever no SMS
// API key is configured, so local and staging environments work without a
// provider account. It always reports success.
type DevSMSSender struct {
	logger *slog.Logger
}

// NewDevSMSSender creates a logging-only SMS sender.
func NewDevSMSSender(logger *slog.Logger) *DevSMSSender {
	return &DevSMSSender{logger: logger}
}

// Name returns the name of this sender.
func (s *DevSMSSender) Name() string { return "dev-sms" }

// Send logs the message and reports it delivered.
func (s *DevSMSSender) Send(ctx context.Context, to, message string) Result {
	s.logger.InfoContext(ctx, "dev sms sender: message logged, not sent",
		slog.String("to", to),
		slog.String("message", message),
	)
	return Result{Channel: ChannelSMS, Recipient: to, Delivered: true}
}

// HTTPSMSSender delivers SMS through an HTTP gateway. Requests go through a
// circuit breaker so a degraded gateway cannot stall payment confirmation.
type HTTPSMSSender struct {
	client   *httpclient.CircuitBreakerClient
	apiURL   string
	apiKey   string
	senderID string
	logger   *slog.Logger
}

// NewHTTPSMSSender creates an SMS sender backed by an HTTP gateway.
func NewHTTPSMSSender(client *httpclient.CircuitBreakerClient, apiURL, apiKey, senderID string, logger *slog.Logger) *HTTPSMSSender {
	return &HTTPSMSSender{
		client:   client,
		apiURL:   apiURL,
		apiKey:   apiKey,
		senderID: senderID,
		logger:   logger,
	}
}

// Name returns the name of this sender.
func (s *HTTPSMSSender) Name() string { return "http-sms" }

type smsPayload struct {
	To      string `json:"to"`
	From    string `json:"from"`
	Message string `json:"message"`
}

// Send normalizes the recipient number and posts the message to the gateway.
func (s *HTTPSMSSender) Send(ctx context.Context, to, message string) Result {
	normalized, err := phone.Normalize(to)
	if err != nil {
		return Result{Channel: ChannelSMS, Recipient: to, Detail: err.Error()}
	}

	body, err := json.Marshal(smsPayload{To: normalized, From: s.senderID, Message: message})
	if err != nil {
		return Result{Channel: ChannelSMS, Recipient: normalized, Detail: fmt.Sprintf("marshal payload: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, bytes.NewReader(body))
	if err != nil {
		return Result{Channel: ChannelSMS, Recipient: normalized, Detail: fmt.Sprintf("create request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(ctx, req)
	if err != nil {
		s.logger.WarnContext(ctx, "sms delivery failed",
			slog.String("to", normalized),
			slog.String("error", err.Error()),
		)
		return Result{Channel: ChannelSMS, Recipient: normalized, Detail: err.Error()}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		s.logger.WarnContext(ctx, "sms gateway rejected message",
			slog.String("to", normalized),
			slog.Int("status", resp.StatusCode),
		)
		return Result{Channel: ChannelSMS, Recipient: normalized, Detail: fmt.Sprintf("gateway returned %d", resp.StatusCode)}
	}

	return Result{Channel: ChannelSMS, Recipient: normalized, Delivered: true}
}

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
)

const resendAPIURL = "https://api.resend.com/emails"

// DevEmailSender logs emails instead of sending them. Used whenever no
// Resend API key is configured. It always reports success.
type DevEmailSender struct {
	logger *slog.Logger
}

// NewDevEmailSender creates a logging-only email sender.
func NewDevEmailSender(logger *slog.Logger) *DevEmailSender {
	return &DevEmailSender{logger: logger}
}

// Name returns the name of this sender.
func (s *DevEmailSender) Name() string { return "dev-email" }

// Send logs the email and reports it delivered.
func (s *DevEmailSender) Send(ctx context.Context, to, subject, _ string) Result {
	s.logger.InfoContext(ctx, "dev email sender: email logged, not sent",
		slog.String("to", to),
		slog.String("subject", subject),
	)
	return Result{Channel: ChannelEmail, Recipient: to, Delivered: true}
}

// ResendEmailSender delivers email through the Resend API.
type ResendEmailSender struct {
	client *httpclient.CircuitBreakerClient
	apiKey string
	from   string
	logger *slog.Logger
}

// NewResendEmailSender creates an email sender backed by Resend.
func NewResendEmailSender(client *httpclient.CircuitBreakerClient, apiKey, from string, logger *slog.Logger) *ResendEmailSender {
	return &ResendEmailSender{
		client: client,
		apiKey: apiKey,
		from:   from,
		logger: logger,
	}
}

// Name returns the name of this sender.
func (s *ResendEmailSender) Name() string { return "resend" }

type resendPayload struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// Send posts the email to the Resend API.
func (s *ResendEmailSender) Send(ctx context.Context, to, subject, htmlBody string) Result {
	body, err := json.Marshal(resendPayload{
		From:    s.from,
		To:      []string{to},
		Subject: subject,
		HTML:    htmlBody,
	})
	if err != nil {
		return Result{Channel: ChannelEmail, Recipient: to, Detail: fmt.Sprintf("marshal payload: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, resendAPIURL, bytes.NewReader(body))
	if err != nil {
		return Result{Channel: ChannelEmail, Recipient: to, Detail: fmt.Sprintf("create request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(ctx, req)
	if err != nil {
		s.logger.WarnContext(ctx, "email delivery failed",
			slog.String("to", to),
			slog.String("error", err.Error()),
		)
		return Result{Channel: ChannelEmail, Recipient: to, Detail: err.Error()}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		s.logger.WarnContext(ctx, "resend rejected email",
			slog.String("to", to),
			slog.Int("status", resp.StatusCode),
		)
		return Result{Channel: ChannelEmail, Recipient: to, Detail: fmt.Sprintf("resend returned %d", resp.StatusCode)}
	}

	return Result{Channel: ChannelEmail, Recipient: to, Delivered: true}
}

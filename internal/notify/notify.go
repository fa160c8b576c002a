// Package notify delivers SMS and email notifications to merchants and
// payers. Delivery is best-effort: senders report a typed Result rather than
// an error, and a failed notification never fails the operation that
// triggered it.
package notify

import "context"

// Channel identifies a delivery channel.
type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

// Result describes one delivery attempt.
type Result struct {
	Channel   Channel `json:"channel"`
	Recipient string  `json:"recipient"`
	Delivered bool    `json:"delivered"`
	// Detail carries the provider's failure reason when Delivered is false.
	Detail string `json:"detail,omitempty"`
}

// SMSSender delivers a text message to a phone number.
type SMSSender interface {
	Name() string
	Send(ctx context.Context, to, message string) Result
}

// EmailSender delivers an email.
type EmailSender interface {
	Name() string
	Send(ctx context.Context, to, subject, htmlBody string) Result
}

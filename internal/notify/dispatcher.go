package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/paylink-cm/paylink/internal/domain"
)

// Dispatcher composes and sends the product's notifications. All methods
// are fire-and-forget from the caller's point of view: they return delivery
// results for observability, never errors.
type Dispatcher struct {
	sms     SMSSender
	email   EmailSender
	baseURL string
	logger  *slog.Logger

	deliveries *prometheus.CounterVec
}

// NewDispatcher creates a notification dispatcher.
func NewDispatcher(sms SMSSender, email EmailSender, baseURL string, logger *slog.Logger, reg prometheus.Registerer) *Dispatcher {
	deliveries := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paylink_notification_deliveries_total",
			Help: "Notification delivery attempts by channel, kind and outcome.",
		},
		[]string{"channel", "kind", "outcome"},
	)
	if reg != nil {
		reg.MustRegister(deliveries)
	}

	return &Dispatcher{
		sms:        sms,
		email:      email,
		baseURL:    baseURL,
		logger:     logger,
		deliveries: deliveries,
	}
}

// NotifyPaymentReceived tells the merchant a payment came in. Sent when a
// payment is initiated by a payer. Email is attempted only when the merchant
// has an address on file.
func (d *Dispatcher) NotifyPaymentReceived(ctx context.Context, merchant *domain.User, payment *domain.Payment) []Result {
	payer := payerDisplayName(payment)
	message := fmt.Sprintf(
		"PayLink: Vous avez reçu %d FCFA de %s. Réf: %s",
		payment.Amount, payer, payment.Reference,
	)

	results := []Result{d.send(ctx, "payment_received", d.sms.Send(ctx, merchant.Phone, message))}

	if merchant.Email != "" {
		subject := fmt.Sprintf("Paiement reçu — %d FCFA", payment.Amount)
		html := fmt.Sprintf(
			`<p>Bonjour %s,</p><p>Vous avez reçu un paiement de <strong>%d FCFA</strong> de la part de %s.</p><p>Référence : %s</p>`,
			merchant.FirstName, payment.Amount, payer, payment.Reference,
		)
		results = append(results, d.send(ctx, "payment_received", d.email.Send(ctx, merchant.Email, subject, html)))
	}

	return results
}

// NotifyPaymentConfirmed tells the payer their payment went through. SMS is
// the primary channel; an email receipt goes out only when the payer left an
// address.
func (d *Dispatcher) NotifyPaymentConfirmed(ctx context.Context, payment *domain.Payment, pageTitle string) []Result {
	message := fmt.Sprintf(
		"PayLink: Votre paiement de %d FCFA pour \"%s\" est confirmé. Réf: %s",
		payment.Amount, pageTitle, payment.Reference,
	)

	results := []Result{d.send(ctx, "payment_confirmed", d.sms.Send(ctx, payment.PayerPhone, message))}

	if payment.PayerEmail != "" {
		subject := fmt.Sprintf("Reçu de paiement — %s", payment.Reference)
		html := fmt.Sprintf(
			`<p>Bonjour %s,</p><p>Votre paiement de <strong>%d FCFA</strong> pour « %s » est confirmé.</p><p>Référence : %s</p><p>Conservez cet email comme reçu.</p>`,
			payerDisplayName(payment), payment.Amount, pageTitle, payment.Reference,
		)
		results = append(results, d.send(ctx, "payment_confirmed", d.email.Send(ctx, payment.PayerEmail, subject, html)))
	}

	return results
}

// payerDisplayName falls back to a generic label when the payer left no name.
func payerDisplayName(payment *domain.Payment) string {
	if payment.PayerName == "" {
		return "un client"
	}
	return payment.PayerName
}

// SendPasswordResetEmail sends the reset link carrying the raw token.
func (d *Dispatcher) SendPasswordResetEmail(ctx context.Context, user *domain.User, rawToken string) Result {
	link := fmt.Sprintf("%s/reset-password?token=%s", d.baseURL, rawToken)
	html := fmt.Sprintf(
		`<p>Bonjour %s,</p><p>Cliquez sur le lien pour réinitialiser votre mot de passe : <a href="%s">%s</a></p><p>Ce lien expire dans une heure. Si vous n'êtes pas à l'origine de cette demande, ignorez cet email.</p>`,
		user.FirstName, link, link,
	)

	return d.send(ctx, "password_reset", d.email.Send(ctx, user.Email, "Réinitialisation de votre mot de passe PayLink", html))
}

// SendWelcomeEmail greets a newly registered merchant.
func (d *Dispatcher) SendWelcomeEmail(ctx context.Context, user *domain.User) Result {
	html := fmt.Sprintf(
		`<p>Bonjour %s,</p><p>Bienvenue sur PayLink ! Créez votre première page de paiement et commencez à encaisser par Mobile Money dès aujourd'hui.</p>`,
		user.FirstName,
	)

	return d.send(ctx, "welcome", d.email.Send(ctx, user.Email, "Bienvenue sur PayLink", html))
}

// send records the outcome of one delivery attempt.
func (d *Dispatcher) send(ctx context.Context, kind string, res Result) Result {
	outcome := "delivered"
	if !res.Delivered {
		outcome = "failed"
		d.logger.WarnContext(ctx, "notification not delivered",
			slog.String("channel", string(res.Channel)),
			slog.String("kind", kind),
			slog.String("recipient", res.Recipient),
			slog.String("detail", res.Detail),
		)
	}
	d.deliveries.WithLabelValues(string(res.Channel), kind, outcome).Inc()
	return res
}

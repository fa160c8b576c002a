package domain

import (
	"crypto/rand"
	"fmt"
	"time"
)

// PaymentStatus is the lifecycle state of a payment attempt.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentConfirmed PaymentStatus = "CONFIRMED"
	PaymentFailed    PaymentStatus = "FAILED"
)

// Operator is the mobile money network carrying a payment.
type Operator string

const (
	OperatorMTN    Operator = "MTN_MOMO"
	OperatorOrange Operator = "ORANGE_MONEY"
)

// Payment is one mobile money payment attempt against a page.
type Payment struct {
	ID          string        `json:"id"`
	PageID      string        `json:"page_id"`
	ServiceID   string        `json:"service_id,omitempty"`
	Reference   string        `json:"reference"`
	Amount      int64         `json:"amount"`
	Currency    string        `json:"currency"`
	PayerName   string        `json:"payer_name"`
	PayerPhone  string        `json:"payer_phone"`
	PayerEmail  string        `json:"payer_email,omitempty"`
	Operator    Operator      `json:"operator"`
	Status      PaymentStatus `json:"status"`
	ConfirmedAt *time.Time    `json:"confirmed_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// referenceAlphabet excludes ambiguous characters (0/O, 1/I/L).
const referenceAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

// NewPaymentReference generates a human-readable payment reference of the
// form PL-XXXXXXXX, quotable over the phone.
func NewPaymentReference() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate payment reference: %w", err)
	}
	for i, b := range buf {
		buf[i] = referenceAlphabet[int(b)%len(referenceAlphabet)]
	}
	return "PL-" + string(buf), nil
}

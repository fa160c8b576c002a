package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paylink-cm/paylink/internal/domain"
	apperrors "github.com/paylink-cm/paylink/pkg/errors"
)

func samplePayment() *domain.Payment {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Payment{
		ID:         "pay-1",
		PageID:     "p-1",
		ServiceID:  "s-1",
		Reference:  "PL-A2B3C4D5",
		Amount:     5000,
		Currency:   "XAF",
		PayerName:  "Jean Mbarga",
		PayerPhone: "+237655123456",
		PayerEmail: "jean@example.cm",
		Operator:   domain.OperatorMTN,
		Status:     domain.PaymentPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestPaymentRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewPaymentRepository(mock)

	p := samplePayment()

	mock.ExpectExec("INSERT INTO payments").
		WithArgs(
			p.ID, p.PageID, p.ServiceID, p.Reference, p.Amount, p.Currency,
			p.PayerName, p.PayerPhone, p.PayerEmail, p.Operator, p.Status, p.CreatedAt, p.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Create(context.Background(), p)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepository_GetByReference(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewPaymentRepository(mock)

	p := samplePayment()
	rows := pgxmock.NewRows([]string{
		"id", "page_id", "service_id", "reference", "amount", "currency",
		"payer_name", "payer_phone", "payer_email", "operator", "status", "confirmed_at", "created_at", "updated_at",
	}).AddRow(
		p.ID, p.PageID, &p.ServiceID, p.Reference, p.Amount, p.Currency,
		p.PayerName, p.PayerPhone, p.PayerEmail, p.Operator, p.Status, p.ConfirmedAt, p.CreatedAt, p.UpdatedAt,
	)

	mock.ExpectQuery("SELECT .+ FROM payments WHERE reference =").
		WithArgs(p.Reference).
		WillReturnRows(rows)

	got, err := repo.GetByReference(context.Background(), p.Reference)
	require.NoError(t, err)
	assert.Equal(t, p.Amount, got.Amount)
	assert.Equal(t, "s-1", got.ServiceID)
	assert.Equal(t, "jean@example.cm", got.PayerEmail)
	assert.Equal(t, domain.OperatorMTN, got.Operator)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepository_UpdateStatus_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewPaymentRepository(mock)

	mock.ExpectExec("UPDATE payments").
		WithArgs(domain.PaymentConfirmed, pgxmock.AnyArg(), pgxmock.AnyArg(), "PL-MISSING1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = repo.UpdateStatus(context.Background(), "PL-MISSING1", domain.PaymentConfirmed, nil)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

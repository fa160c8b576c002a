package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/paylink-cm/paylink/internal/domain"
	"github.com/paylink-cm/paylink/pkg/database"
	apperrors "github.com/paylink-cm/paylink/pkg/errors"
)

// PaymentRepository implements repository.PaymentRepository using PostgreSQL.
type PaymentRepository struct {
	db database.DBTX
}

// NewPaymentRepository creates a new PostgreSQL-backed payment repository.
func NewPaymentRepository(db database.DBTX) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const paymentColumns = `id, page_id, service_id, reference, amount, currency, payer_name, payer_phone, payer_email, operator, status, confirmed_at, created_at, updated_at`

// Create inserts a new payment into the database.
func (r *PaymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	query := `
		INSERT INTO payments (id, page_id, service_id, reference, amount, currency, payer_name, payer_phone, payer_email, operator, status, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.db.Exec(ctx, query,
		p.ID,
		p.PageID,
		p.ServiceID,
		p.Reference,
		p.Amount,
		p.Currency,
		p.PayerName,
		p.PayerPhone,
		p.PayerEmail,
		p.Operator,
		p.Status,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("payment", "reference", p.Reference)
		}
		return fmt.Errorf("insert payment: %w", err)
	}

	return nil
}

// GetByReference retrieves a payment by its public reference.
func (r *PaymentRepository) GetByReference(ctx context.Context, reference string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE reference = $1`

	var p domain.Payment
	err := scanPaymentRow(r.db.QueryRow(ctx, query, reference), &p)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan payment: %w", err)
	}

	return &p, nil
}

// ListByPageID returns all payments against the given page, newest first.
func (r *PaymentRepository) ListByPageID(ctx context.Context, pageID string) ([]domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE page_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, pageID)
	if err != nil {
		return nil, fmt.Errorf("query payments: %w", err)
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		var p domain.Payment
		if err := scanPaymentRow(rows, &p); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}

	return payments, nil
}

// UpdateStatus transitions a payment to the given status.
func (r *PaymentRepository) UpdateStatus(ctx context.Context, reference string, status domain.PaymentStatus, confirmedAt *time.Time) error {
	query := `
		UPDATE payments
		SET status = $1, confirmed_at = $2, updated_at = $3
		WHERE reference = $4`

	ct, err := r.db.Exec(ctx, query, status, confirmedAt, time.Now().UTC(), reference)
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("payment", reference)
	}

	return nil
}

func scanPaymentRow(row pgx.Row, p *domain.Payment) error {
	var serviceID *string
	err := row.Scan(
		&p.ID,
		&p.PageID,
		&serviceID,
		&p.Reference,
		&p.Amount,
		&p.Currency,
		&p.PayerName,
		&p.PayerPhone,
		&p.PayerEmail,
		&p.Operator,
		&p.Status,
		&p.ConfirmedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if serviceID != nil {
		p.ServiceID = *serviceID
	}
	return err
}

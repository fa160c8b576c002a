package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/paylink-cm/paylink/internal/domain"
	"github.com/paylink-cm/paylink/internal/notify"
	"github.com/paylink-cm/paylink/internal/repository"
	apperrors "github.com/paylink-cm/paylink/pkg/errors"
	"github.com/paylink-cm/paylink/pkg/phone"
)

// PaymentProvider initiates a mobile money collection with the operator.
// The real transfer is asynchronous; initiation only pushes the debit
// request to the payer's phone.
type PaymentProvider interface {
	Name() string
	RequestPayment(ctx context.Context, operator domain.Operator, payerPhone string, amount int64, reference string) error
}

// PaymentService implements the business logic for mobile money payments.
type PaymentService struct {
	paymentRepo repository.PaymentRepository
	pageRepo    repository.PageRepository
	serviceRepo repository.ServiceRepository
	userRepo    repository.UserRepository
	provider    PaymentProvider
	dispatcher  *notify.Dispatcher
	logger      *slog.Logger
}

// NewPaymentService creates a new payment service.
func NewPaymentService(
	paymentRepo repository.PaymentRepository,
	pageRepo repository.PageRepository,
	serviceRepo repository.ServiceRepository,
	userRepo repository.UserRepository,
	provider PaymentProvider,
	dispatcher *notify.Dispatcher,
	logger *slog.Logger,
) *PaymentService {
	return &PaymentService{
		paymentRepo: paymentRepo,
		pageRepo:    pageRepo,
		serviceRepo: serviceRepo,
		userRepo:    userRepo,
		provider:    provider,
		dispatcher:  dispatcher,
		logger:      logger,
	}
}

// InitiatePaymentInput holds the parameters a payer submits on a public page.
type InitiatePaymentInput struct {
	PageSlug   string
	ServiceID  string
	Amount     int64
	PayerName  string
	PayerPhone string
	PayerEmail string
}

// Initiate starts a mobile money payment against a published page. The
// operator is detected from the payer's phone number. The merchant is
// notified immediately; confirmation arrives later through Confirm.
func (s *PaymentService) Initiate(ctx context.Context, input InitiatePaymentInput) (*domain.Payment, error) {
	if input.PayerName == "" {
		return nil, apperrors.InvalidInput("payer name is required")
	}

	normalizedPhone, err := phone.Normalize(input.PayerPhone)
	if err != nil {
		return nil, apperrors.InvalidInput("invalid payer phone number")
	}

	operator, err := detectOperator(normalizedPhone)
	if err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	page, err := s.pageRepo.GetBySlug(ctx, input.PageSlug)
	if err != nil {
		return nil, fmt.Errorf("get page for payment: %w", err)
	}
	if page.Status != domain.PagePublished {
		return nil, apperrors.NotFound("page", input.PageSlug)
	}

	amount := input.Amount
	if input.ServiceID != "" {
		svc, err := s.serviceRepo.GetByID(ctx, input.ServiceID)
		if err != nil {
			return nil, fmt.Errorf("get service for payment: %w", err)
		}
		if svc.PageID != page.ID {
			return nil, apperrors.NotFound("service", input.ServiceID)
		}
		if !svc.IsActive {
			return nil, apperrors.NotFound("service", input.ServiceID)
		}
		// The payer always pays the display price, never the raw price.
		amount = svc.DisplayPrice
	}
	if amount <= 0 {
		return nil, apperrors.InvalidInput("payment amount must be positive")
	}

	reference, err := domain.NewPaymentReference()
	if err != nil {
		return nil, fmt.Errorf("generate reference: %w", err)
	}

	now := time.Now().UTC()
	payment := &domain.Payment{
		ID:         uuid.New().String(),
		PageID:     page.ID,
		ServiceID:  input.ServiceID,
		Reference:  reference,
		Amount:     amount,
		Currency:   "XAF",
		PayerName:  input.PayerName,
		PayerPhone: normalizedPhone,
		PayerEmail: input.PayerEmail,
		Operator:   operator,
		Status:     domain.PaymentPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	if err := s.provider.RequestPayment(ctx, operator, normalizedPhone, amount, reference); err != nil {
		failedAt := time.Now().UTC()
		if uerr := s.paymentRepo.UpdateStatus(ctx, reference, domain.PaymentFailed, &failedAt); uerr != nil {
			s.logger.ErrorContext(ctx, "failed to mark payment failed",
				slog.String("reference", reference),
				slog.String("error", uerr.Error()),
			)
		}
		return nil, apperrors.PaymentFailed(fmt.Sprintf("payment initiation failed: %v", err))
	}

	merchant, err := s.userRepo.GetByID(ctx, page.UserID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to load merchant for notification",
			slog.String("page_id", page.ID),
			slog.String("error", err.Error()),
		)
	} else {
		s.dispatcher.NotifyPaymentReceived(ctx, merchant, payment)
	}

	s.logger.InfoContext(ctx, "payment initiated",
		slog.String("reference", reference),
		slog.String("page_id", page.ID),
		slog.Int64("amount", amount),
		slog.String("operator", string(operator)),
	)

	return payment, nil
}

// Confirm marks a pending payment confirmed and notifies the payer. It is
// called by the operator's callback, and is idempotent: confirming an
// already-confirmed payment changes nothing.
func (s *PaymentService) Confirm(ctx context.Context, reference string) (*domain.Payment, error) {
	payment, err := s.paymentRepo.GetByReference(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("get payment for confirmation: %w", err)
	}

	if payment.Status == domain.PaymentConfirmed {
		return payment, nil
	}
	if payment.Status == domain.PaymentFailed {
		return nil, apperrors.PaymentFailed("payment has already failed")
	}

	now := time.Now().UTC()
	if err := s.paymentRepo.UpdateStatus(ctx, reference, domain.PaymentConfirmed, &now); err != nil {
		return nil, fmt.Errorf("confirm payment: %w", err)
	}
	payment.Status = domain.PaymentConfirmed
	payment.ConfirmedAt = &now

	pageTitle := ""
	if page, err := s.pageRepo.GetByID(ctx, payment.PageID); err == nil {
		pageTitle = page.Title
	}
	s.dispatcher.NotifyPaymentConfirmed(ctx, payment, pageTitle)

	s.logger.InfoContext(ctx, "payment confirmed",
		slog.String("reference", reference),
		slog.Int64("amount", payment.Amount),
	)

	return payment, nil
}

// Fail marks a pending payment failed, from the operator's callback.
func (s *PaymentService) Fail(ctx context.Context, reference string) (*domain.Payment, error) {
	payment, err := s.paymentRepo.GetByReference(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("get payment for failure: %w", err)
	}

	if payment.Status != domain.PaymentPending {
		return payment, nil
	}

	if err := s.paymentRepo.UpdateStatus(ctx, reference, domain.PaymentFailed, nil); err != nil {
		return nil, fmt.Errorf("fail payment: %w", err)
	}
	payment.Status = domain.PaymentFailed

	return payment, nil
}

// ListForPage returns a merchant's payments on one of their pages.
func (s *PaymentService) ListForPage(ctx context.Context, userID, pageID string) ([]domain.Payment, error) {
	page, err := s.pageRepo.GetByID(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("get page: %w", err)
	}
	if page.UserID != userID {
		return nil, apperrors.NotFound("page", pageID)
	}

	payments, err := s.paymentRepo.ListByPageID(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}

// detectOperator maps a normalized phone number to its mobile money network.
func detectOperator(e164 string) (domain.Operator, error) {
	switch {
	case phone.IsMTN(e164):
		return domain.OperatorMTN, nil
	case phone.IsOrange(e164):
		return domain.OperatorOrange, nil
	default:
		return "", fmt.Errorf("phone number is not on a supported mobile money network")
	}
}

// MockPaymentProvider simulates operator collection for environments
// without real operator credentials. It always accepts the request.
type MockPaymentProvider struct {
	logger *slog.Logger
}

// NewMockPaymentProvider creates a provider that logs instead of collecting.
func NewMockPaymentProvider(logger *slog.Logger) *MockPaymentProvider {
	return &MockPaymentProvider{logger: logger}
}

// Name returns the name of this provider.
func (p *MockPaymentProvider) Name() string { return "mock" }

// RequestPayment logs the debit request and succeeds.
func (p *MockPaymentProvider) RequestPayment(ctx context.Context, operator domain.Operator, payerPhone string, amount int64, reference string) error {
	p.logger.InfoContext(ctx, "mock provider: payment request pushed",
		slog.String("operator", string(operator)),
		slog.String("payer_phone", payerPhone),
		slog.Int64("amount", amount),
		slog.String("reference", reference),
	)
	return nil
}

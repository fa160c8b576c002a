// Package repository defines the persistence interfaces the service layer
// depends on.
package repository

import (
	"context"
	"time"

	"github.com/paylink-cm/paylink/internal/domain"
)

// UserRepository defines the interface for user persistence operations.
type UserRepository interface {
	// Create inserts a new user into the store.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique identifier.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves a user by their email address.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// Update modifies an existing user in the store.
	Update(ctx context.Context, user *domain.User) error

	// UpdatePassword sets a new password hash for the user.
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
}

// RefreshTokenRepository defines the interface for refresh token persistence operations.
type RefreshTokenRepository interface {
	// Create stores a new refresh token hash.
	Create(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error

	// GetByHash retrieves a refresh token record by its hash.
	GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)

	// Revoke revokes a specific refresh token by its hash.
	Revoke(ctx context.Context, tokenHash string) error

	// RevokeByUserID revokes all refresh tokens for the given user.
	RevokeByUserID(ctx context.Context, userID string) error
}

// PasswordResetTokenRepository stores single-use password reset tokens.
type PasswordResetTokenRepository interface {
	// Create stores a new reset token hash.
	Create(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error

	// GetByHash retrieves a reset token record by its hash.
	GetByHash(ctx context.Context, tokenHash string) (*domain.PasswordResetToken, error)

	// MarkUsed consumes the token. It fails if the token was already used.
	MarkUsed(ctx context.Context, tokenHash string) error
}

// PageRepository defines the interface for payment page persistence.
type PageRepository interface {
	// Create inserts a new page into the store.
	Create(ctx context.Context, page *domain.Page) error

	// GetByID retrieves a page by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Page, error)

	// GetBySlug retrieves a page by its slug, regardless of status.
	GetBySlug(ctx context.Context, slug string) (*domain.Page, error)

	// ListByUserID returns all pages owned by the given user, newest first.
	ListByUserID(ctx context.Context, userID string) ([]domain.Page, error)

	// CountByUserID returns the number of pages owned by the given user.
	CountByUserID(ctx context.Context, userID string) (int, error)

	// SlugExists reports whether any page already uses the slug.
	SlugExists(ctx context.Context, slug string) (bool, error)

	// Update modifies an existing page in the store.
	Update(ctx context.Context, page *domain.Page) error

	// Delete removes a page from the store by its identifier.
	Delete(ctx context.Context, id string) error

	// IncrementViewCount adds one public view to the page's durable counter.
	IncrementViewCount(ctx context.Context, id string) error
}

// ServiceRepository defines the interface for page service items.
type ServiceRepository interface {
	// Create inserts a new service into the store.
	Create(ctx context.Context, svc *domain.Service) error

	// GetByID retrieves a service by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Service, error)

	// ListByPageID returns all services on the given page, in position order.
	ListByPageID(ctx context.Context, pageID string) ([]domain.Service, error)

	// Update modifies an existing service in the store.
	Update(ctx context.Context, svc *domain.Service) error

	// Delete removes a service from the store by its identifier.
	Delete(ctx context.Context, id string) error
}

// PaymentRepository defines the interface for payment persistence.
type PaymentRepository interface {
	// Create inserts a new payment into the store.
	Create(ctx context.Context, payment *domain.Payment) error

	// GetByReference retrieves a payment by its public reference.
	GetByReference(ctx context.Context, reference string) (*domain.Payment, error)

	// ListByPageID returns all payments against the given page, newest first.
	ListByPageID(ctx context.Context, pageID string) ([]domain.Payment, error)

	// UpdateStatus transitions a payment to the given status.
	UpdateStatus(ctx context.Context, reference string, status domain.PaymentStatus, confirmedAt *time.Time) error
}

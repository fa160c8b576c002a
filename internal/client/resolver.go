package client

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/paylink-cm/paylink/internal/domain"
	apperrors "github.com/paylink-cm/paylink/pkg/errors"
)

// ResolvedPage is the outcome of a public page lookup.
type ResolvedPage struct {
	Page *domain.Page
	// UnderConstruction is set when the page exists but is not published.
	// It is a presentation state, not an error.
	UnderConstruction bool
	// FromFixture is set when the page came from the local demo table
	// instead of the API.
	FromFixture bool
}

// Resolver looks up public pages: the API first, then — outside production
// only — a static fixture table that keeps demo links working when the
// backend is unreachable.
type Resolver struct {
	api        *APIClient
	fixtures   map[string]*domain.Page
	production bool
	logger     *slog.Logger
}

// NewResolver creates a resolver. In production the fixture fallback is
// disabled so an outage surfaces instead of silently serving demo data.
func NewResolver(api *APIClient, production bool, logger *slog.Logger) *Resolver {
	fixtures := map[string]*domain.Page{}
	if !production {
		fixtures = demoFixtures()
	}
	return &Resolver{
		api:        api,
		fixtures:   fixtures,
		production: production,
		logger:     logger,
	}
}

// Resolve returns the page behind a slug. The API answer is authoritative;
// the fixture table is only consulted when the API fails and the resolver
// is not in production.
func (r *Resolver) Resolve(ctx context.Context, slug string) (*ResolvedPage, error) {
	page, err := r.api.ResolvePage(ctx, slug)
	if err == nil {
		return &ResolvedPage{
			Page:              page,
			UnderConstruction: page.Status != domain.PagePublished,
		}, nil
	}

	if !errors.Is(err, apperrors.ErrNotFound) {
		r.logger.WarnContext(ctx, "page resolution failed",
			slog.String("slug", slug),
			slog.String("error", err.Error()),
		)
	}

	if fixture, ok := r.fixtures[slug]; ok {
		resolved := &ResolvedPage{Page: fixture, FromFixture: true}
		if fixture.Status != domain.PagePublished {
			resolved.UnderConstruction = true
		}
		return resolved, nil
	}

	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}
	return nil, apperrors.Wrap(err, "resolve page")
}

// PaymentTarget is the navigation target handed to the payment flow. The
// resolver does not perform the payment itself.
type PaymentTarget struct {
	PageID    string
	Slug      string
	ServiceID string
	Amount    int64
}

// Path renders the target as a navigable URL path.
func (t PaymentTarget) Path() string {
	q := url.Values{}
	if t.ServiceID != "" {
		q.Set("service", t.ServiceID)
	}
	if t.Amount > 0 {
		q.Set("amount", strconv.FormatInt(t.Amount, 10))
	}
	path := "/pay/" + t.Slug
	if encoded := q.Encode(); encoded != "" {
		path += "?" + encoded
	}
	return path
}

// InitiatePayment builds the handoff to the payment flow for a resolved
// page, with an optional service preselection or free amount.
func (r *Resolver) InitiatePayment(page *domain.Page, serviceID string, amount int64) PaymentTarget {
	return PaymentTarget{
		PageID:    page.ID,
		Slug:      page.Slug,
		ServiceID: serviceID,
		Amount:    amount,
	}
}

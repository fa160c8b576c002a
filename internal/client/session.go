package client

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/paylink-cm/paylink/internal/domain"
)

// Session manages the client's authentication state. It holds the current
// user and token pair, and keeps them in sync with exactly one of two
// credential storage tiers, chosen at login time by the remember-me flag.
//
// Invariant: authenticated is true if and only if both user and tokens are
// non-nil. The two are always updated together.
type Session struct {
	api        *APIClient
	persistent CredentialStore
	ephemeral  CredentialStore
	logger     *slog.Logger

	mu     sync.Mutex
	active CredentialStore
	user   *domain.User
	tokens *domain.TokenPair
}

// NewSession creates an anonymous session over the two storage tiers.
func NewSession(api *APIClient, persistent, ephemeral CredentialStore, logger *slog.Logger) *Session {
	return &Session{
		api:        api,
		persistent: persistent,
		ephemeral:  ephemeral,
		logger:     logger,
	}
}

// Close tears the session down without touching stored credentials, so a
// remembered login survives the next start.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.tokens = nil
	s.active = nil
}

// IsAuthenticated reports whether a user and token pair are held.
func (s *Session) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user != nil && s.tokens != nil
}

// User returns the current user, or nil when anonymous.
func (s *Session) User() *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// AccessToken returns the current access token, or "" when anonymous.
func (s *Session) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tokens == nil {
		return ""
	}
	return s.tokens.AccessToken
}

// Login authenticates and stores the credentials in the tier selected by
// rememberMe. The other tier is cleared so stale credentials cannot
// resurface. Invalid credentials surface to the caller; there is no retry.
func (s *Session) Login(ctx context.Context, email, password string, rememberMe bool) error {
	payload, err := s.api.Login(ctx, email, password)
	if err != nil {
		return err
	}

	store := s.ephemeral
	if rememberMe {
		store = s.persistent
	}
	return s.establish(payload.User, payload.Tokens, store)
}

// Register creates an account and logs in on the persistent tier.
func (s *Session) Register(ctx context.Context, input RegisterInput) error {
	payload, err := s.api.Register(ctx, input)
	if err != nil {
		return err
	}
	return s.establish(payload.User, payload.Tokens, s.persistent)
}

// Logout revokes the credentials remotely on a best-effort basis and always
// clears both storage tiers and the in-memory state. It never fails on a
// network error.
func (s *Session) Logout(ctx context.Context) {
	s.mu.Lock()
	accessToken := ""
	if s.tokens != nil {
		accessToken = s.tokens.AccessToken
	}
	s.mu.Unlock()

	if accessToken != "" {
		if err := s.api.Logout(ctx, accessToken); err != nil {
			s.logger.WarnContext(ctx, "remote logout failed, clearing local state anyway",
				slog.String("error", err.Error()),
			)
		}
	}

	s.clearAll()
}

// RefreshAuth exchanges the refresh token for a new pair. Holding no refresh
// token settles anonymous immediately, with no network call. A failed
// refresh cascades into a full logout: an access token must not be trusted
// once its refresh token is known dead.
func (s *Session) RefreshAuth(ctx context.Context) error {
	s.mu.Lock()
	if s.tokens == nil || s.tokens.RefreshToken == "" {
		s.mu.Unlock()
		return nil
	}
	refreshToken := s.tokens.RefreshToken
	s.mu.Unlock()

	tokens, err := s.api.Refresh(ctx, refreshToken)
	if err != nil {
		s.logger.InfoContext(ctx, "token refresh failed, logging out",
			slog.String("error", err.Error()),
		)
		s.clearAll()
		return fmt.Errorf("refresh session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = tokens
	if s.active != nil && s.user != nil {
		if err := s.active.Save(&CredentialBundle{User: s.user, Tokens: tokens, IsAuthenticated: true}); err != nil {
			s.logger.WarnContext(ctx, "failed to persist refreshed tokens",
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

// CheckAuth restores the session at process start. The persistent tier is
// consulted before the ephemeral one. A failed user lookup gets exactly one
// refresh plus one retry before the session gives up and logs out.
func (s *Session) CheckAuth(ctx context.Context) error {
	bundle, store := s.loadStored()
	if bundle == nil || bundle.Tokens == nil {
		s.clearAll()
		return nil
	}

	s.mu.Lock()
	s.tokens = bundle.Tokens
	s.user = bundle.User
	s.active = store
	s.mu.Unlock()

	user, err := s.api.Me(ctx, bundle.Tokens.AccessToken)
	if err != nil {
		if rerr := s.RefreshAuth(ctx); rerr != nil {
			return nil // RefreshAuth already logged out
		}
		user, err = s.api.Me(ctx, s.AccessToken())
		if err != nil {
			s.Logout(ctx)
			return nil
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tokens == nil {
		// Lost the session while the lookup was in flight.
		return nil
	}
	s.user = user
	return nil
}

// establish atomically installs a fresh login: the chosen tier gets the
// bundle, the other tier is cleared.
func (s *Session) establish(user *domain.User, tokens *domain.TokenPair, store CredentialStore) error {
	if user == nil || tokens == nil {
		return fmt.Errorf("incomplete auth payload")
	}

	other := s.persistent
	if store == s.persistent {
		other = s.ephemeral
	}
	if err := other.Clear(); err != nil {
		return fmt.Errorf("clear inactive credential tier: %w", err)
	}
	if err := store.Save(&CredentialBundle{User: user, Tokens: tokens, IsAuthenticated: true}); err != nil {
		return fmt.Errorf("store credentials: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
	s.tokens = tokens
	s.active = store
	return nil
}

// loadStored returns the first non-empty tier's bundle, persistent first.
func (s *Session) loadStored() (*CredentialBundle, CredentialStore) {
	for _, store := range []CredentialStore{s.persistent, s.ephemeral} {
		bundle, err := store.Load()
		if err != nil {
			s.logger.Warn("failed to load stored credentials",
				slog.String("error", err.Error()),
			)
			continue
		}
		if bundle != nil && bundle.Tokens != nil {
			return bundle, store
		}
	}
	return nil, nil
}

// clearAll wipes both tiers and the in-memory state. Safe to call twice.
func (s *Session) clearAll() {
	if err := s.persistent.Clear(); err != nil {
		s.logger.Warn("failed to clear persistent credentials", slog.String("error", err.Error()))
	}
	if err := s.ephemeral.Clear(); err != nil {
		s.logger.Warn("failed to clear ephemeral credentials", slog.String("error", err.Error()))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.tokens = nil
	s.active = nil
}

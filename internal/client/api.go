// Package client implements the PayLink client core: a typed API client,
// credential storage, the session manager, the page-creation wizard and the
// public page resolver.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/paylink-cm/paylink/internal/domain"
	"github.com/paylink-cm/paylink/internal/service"
	apperrors "github.com/paylink-cm/paylink/pkg/errors"
	"github.com/paylink-cm/paylink/pkg/httpclient"
	"github.com/paylink-cm/paylink/pkg/httputil"
)

// APIClient is a typed client for the PayLink REST API.
type APIClient struct {
	baseURL string
	http    *httpclient.Client
	logger  *slog.Logger
}

// NewAPIClient creates an API client against the given base URL, e.g.
// "https://api.paylink.cm".
func NewAPIClient(baseURL string, httpClient *httpclient.Client, logger *slog.Logger) *APIClient {
	if httpClient == nil {
		httpClient = httpclient.New(httpclient.DefaultConfig())
	}
	return &APIClient{
		baseURL: baseURL,
		http:    httpClient,
		logger:  logger,
	}
}

// AuthPayload is the register/login response body.
type AuthPayload struct {
	User   *domain.User      `json:"user"`
	Tokens *domain.TokenPair `json:"tokens"`
}

// RegisterInput holds the fields for creating a merchant account.
type RegisterInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone,omitempty"`
}

// CreatePageInput is the request body the wizard submits.
type CreatePageInput struct {
	Title        string          `json:"title"`
	Slug         string          `json:"slug"`
	Description  string          `json:"description,omitempty"`
	TemplateType string          `json:"template_type"`
	PricingMode  string          `json:"pricing_mode,omitempty"`
	LogoURL      string          `json:"logo_url,omitempty"`
	PrimaryColor string          `json:"primary_color,omitempty"`
	TemplateData json.RawMessage `json:"template_data,omitempty"`
	Services     []ServiceInput  `json:"services,omitempty"`
}

// ServiceInput is one payable item in a page creation request.
type ServiceInput struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Price       int64  `json:"price"`
}

// Register creates a merchant account.
func (c *APIClient) Register(ctx context.Context, input RegisterInput) (*AuthPayload, error) {
	var out AuthPayload
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/register", "", input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login exchanges credentials for a user and token pair.
func (c *APIClient) Login(ctx context.Context, email, password string) (*AuthPayload, error) {
	body := map[string]string{"email": email, "password": password}
	var out AuthPayload
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", "", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout revokes all of the caller's refresh tokens server-side.
func (c *APIClient) Logout(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/auth/logout", accessToken, nil, nil)
}

// Refresh exchanges a refresh token for a new token pair.
func (c *APIClient) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	body := map[string]string{"refresh_token": refreshToken}
	var out domain.TokenPair
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/refresh", "", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me fetches the current user.
func (c *APIClient) Me(ctx context.Context, accessToken string) (*domain.User, error) {
	var out domain.User
	if err := c.do(ctx, http.MethodGet, "/api/v1/auth/me", accessToken, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ForgotPassword triggers a password reset email. The server responds
// identically whether or not the email exists.
func (c *APIClient) ForgotPassword(ctx context.Context, email string) error {
	body := map[string]string{"email": email}
	return c.do(ctx, http.MethodPost, "/api/v1/auth/forgot-password", "", body, nil)
}

// ResetPassword consumes a single-use reset token.
func (c *APIClient) ResetPassword(ctx context.Context, token, newPassword string) error {
	body := map[string]string{"token": token, "new_password": newPassword}
	return c.do(ctx, http.MethodPost, "/api/v1/auth/reset-password", "", body, nil)
}

// slugCheckPayload is the check-slug response body.
type slugCheckPayload struct {
	Slug   string `json:"slug"`
	Status string `json:"status"`
}

// CheckSlug asks the server whether a slug is available. The answer is
// advisory: uniqueness is enforced at creation time.
func (c *APIClient) CheckSlug(ctx context.Context, accessToken, slug string) (service.SlugStatus, error) {
	var out slugCheckPayload
	if err := c.do(ctx, http.MethodGet, "/api/v1/pages/check-slug?slug="+slug, accessToken, nil, &out); err != nil {
		return "", err
	}
	return service.SlugStatus(out.Status), nil
}

// CreatePage submits a new page.
func (c *APIClient) CreatePage(ctx context.Context, accessToken string, input CreatePageInput) (*domain.Page, error) {
	var out domain.Page
	if err := c.do(ctx, http.MethodPost, "/api/v1/pages/", accessToken, input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ResolvePage fetches a published page by slug.
func (c *APIClient) ResolvePage(ctx context.Context, slug string) (*domain.Page, error) {
	var out domain.Page
	if err := c.do(ctx, http.MethodGet, "/api/v1/public/pages/"+slug, "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// envelope mirrors the server's response format with the data left raw.
type envelope struct {
	Data  json.RawMessage         `json:"data"`
	Error *httputil.ErrorResponse `json:"error"`
}

// do performs one API request and decodes the response envelope into out.
func (c *APIClient) do(ctx context.Context, method, path, accessToken string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= 400 {
			return apiError(resp.StatusCode, nil)
		}
		return fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode >= 400 || env.Error != nil {
		return apiError(resp.StatusCode, env.Error)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode response data: %w", err)
		}
	}
	return nil
}

// apiError rebuilds a structured error from the server's error envelope so
// callers can discriminate with errors.Is against the standard sentinels.
func apiError(status int, errResp *httputil.ErrorResponse) error {
	code := ""
	message := http.StatusText(status)
	if errResp != nil {
		code = errResp.Code
		message = errResp.Message
	}

	sentinel := apperrors.ErrInternal
	switch {
	case code == "PLAN_LIMIT_REACHED" || status == http.StatusForbidden:
		sentinel = apperrors.ErrForbidden
	case status == http.StatusUnauthorized:
		sentinel = apperrors.ErrUnauthorized
	case status == http.StatusConflict:
		sentinel = apperrors.ErrAlreadyExists
	case status == http.StatusNotFound:
		sentinel = apperrors.ErrNotFound
	case status == http.StatusTooManyRequests:
		sentinel = apperrors.ErrRateLimited
	case status == http.StatusBadRequest:
		sentinel = apperrors.ErrInvalidInput
	case status == http.StatusUnprocessableEntity:
		sentinel = apperrors.ErrPaymentFailed
	}

	return &apperrors.AppError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     sentinel,
	}
}

package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/paylink-cm/paylink/internal/domain"
	"github.com/paylink-cm/paylink/internal/service"
	apperrors "github.com/paylink-cm/paylink/pkg/errors"
	"github.com/paylink-cm/paylink/pkg/middleware"
)

// ============================================================================
// Mock Repositories
// ============================================================================

type mockPageRepo struct {
	mock.Mock
}

func (m *mockPageRepo) Create(ctx context.Context, page *domain.Page) error {
	args := m.Called(ctx, page)
	return args.Error(0)
}

func (m *mockPageRepo) GetByID(ctx context.Context, id string) (*domain.Page, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Page), args.Error(1)
}

func (m *mockPageRepo) GetBySlug(ctx context.Context, slug string) (*domain.Page, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Page), args.Error(1)
}

func (m *mockPageRepo) ListByUserID(ctx context.Context, userID string) ([]domain.Page, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Page), args.Error(1)
}

func (m *mockPageRepo) CountByUserID(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *mockPageRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	args := m.Called(ctx, slug)
	return args.Bool(0), args.Error(1)
}

func (m *mockPageRepo) Update(ctx context.Context, page *domain.Page) error {
	args := m.Called(ctx, page)
	return args.Error(0)
}

func (m *mockPageRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockPageRepo) IncrementViewCount(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockServiceRepo struct {
	mock.Mock
}

func (m *mockServiceRepo) Create(ctx context.Context, svc *domain.Service) error {
	args := m.Called(ctx, svc)
	return args.Error(0)
}

func (m *mockServiceRepo) GetByID(ctx context.Context, id string) (*domain.Service, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Service), args.Error(1)
}

func (m *mockServiceRepo) ListByPageID(ctx context.Context, pageID string) ([]domain.Service, error) {
	args := m.Called(ctx, pageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Service), args.Error(1)
}

func (m *mockServiceRepo) Update(ctx context.Context, svc *domain.Service) error {
	args := m.Called(ctx, svc)
	return args.Error(0)
}

func (m *mockServiceRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// ============================================================================
// Test Helpers
// ============================================================================

const testPageID = "550e8400-e29b-41d4-a716-446655440010"

func jsonBody(t *testing.T, body any) io.Reader {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	return bytes.NewReader(payload)
}

func pageTestHandler(pageRepo *mockPageRepo, serviceRepo *mockServiceRepo, userRepo *mockUserRepo) *PageHandler {
	logger := handlerTestLogger()
	svc := service.NewPageService(pageRepo, serviceRepo, userRepo, nil, 1, 4.0, logger)
	return NewPageHandler(svc, logger)
}

// setupPageRouter mirrors the production page routes.
func setupPageRouter(handler *PageHandler, userID string) *chi.Mux {
	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/pages", func(r chi.Router) {
			r.Use(middleware.Auth(fakeTokenValidator(userID)))
			r.Get("/check-slug", handler.CheckSlug)
			r.Get("/", handler.List)
			r.Post("/", handler.Create)
			r.Get("/{id}", handler.Get)
			r.Post("/{id}/publish", handler.Publish)
		})
		r.Get("/public/pages/{slug}", handler.Resolve)
	})
	return r
}

func samplePage(status domain.PageStatus) *domain.Page {
	now := time.Now().UTC()
	return &domain.Page{
		ID:           testPageID,
		UserID:       testMerchantID,
		Slug:         "coiffure-marie",
		Title:        "Salon de coiffure Marie",
		TemplateType: domain.TemplateServiceProvider,
		Status:       status,
		PricingMode:  domain.PricingGross,
		TemplateData: json.RawMessage(`{}`),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// ============================================================================
// CheckSlug Tests
// ============================================================================

func TestCheckSlug_Available(t *testing.T) {
	pageRepo := new(mockPageRepo)
	handler := pageTestHandler(pageRepo, new(mockServiceRepo), new(mockUserRepo))
	router := setupPageRouter(handler, testMerchantID)

	pageRepo.On("SlugExists", mock.Anything, "coiffure-marie").Return(false, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/pages/check-slug?slug=coiffure-marie", nil)
	req.Header.Set("Authorization", "Bearer test-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Data)
	data := resp.Data.(map[string]any)
	assert.Equal(t, "available", data["status"])
}

func TestCheckSlug_InvalidNeverHitsStore(t *testing.T) {
	pageRepo := new(mockPageRepo)
	handler := pageTestHandler(pageRepo, new(mockServiceRepo), new(mockUserRepo))
	router := setupPageRouter(handler, testMerchantID)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/pages/check-slug?slug=A!", nil)
	req.Header.Set("Authorization", "Bearer test-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]any)
	assert.Equal(t, "invalid", data["status"])
	pageRepo.AssertNotCalled(t, "SlugExists", mock.Anything, mock.Anything)
}

// ============================================================================
// Create Tests
// ============================================================================

func TestCreatePage_Success(t *testing.T) {
	pageRepo := new(mockPageRepo)
	serviceRepo := new(mockServiceRepo)
	userRepo := new(mockUserRepo)
	handler := pageTestHandler(pageRepo, serviceRepo, userRepo)
	router := setupPageRouter(handler, testMerchantID)

	userRepo.On("GetByID", mock.Anything, testMerchantID).Return(sampleMerchant(), nil)
	pageRepo.On("CountByUserID", mock.Anything, testMerchantID).Return(0, nil)
	pageRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Page")).Return(nil)
	serviceRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Service")).Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/pages/", jsonBody(t, CreatePageRequest{
		Title:        "Salon de coiffure Marie",
		Slug:         "coiffure-marie",
		TemplateType: string(domain.TemplateServiceProvider),
		Services: []ServiceRequest{
			{Name: "Tresses", Price: 5000},
		},
	}))
	req.Header.Set("Authorization", "Bearer test-token")
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Nil(t, resp.Error)
	pageRepo.AssertExpectations(t)
	serviceRepo.AssertExpectations(t)
}

func TestCreatePage_FreePlanLimit(t *testing.T) {
	pageRepo := new(mockPageRepo)
	userRepo := new(mockUserRepo)
	handler := pageTestHandler(pageRepo, new(mockServiceRepo), userRepo)
	router := setupPageRouter(handler, testMerchantID)

	userRepo.On("GetByID", mock.Anything, testMerchantID).Return(sampleMerchant(), nil)
	pageRepo.On("CountByUserID", mock.Anything, testMerchantID).Return(1, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/pages/", jsonBody(t, CreatePageRequest{
		Title:        "Deuxième page",
		Slug:         "deuxieme-page",
		TemplateType: string(domain.TemplateSimpleSale),
	}))
	req.Header.Set("Authorization", "Bearer test-token")
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "PLAN_LIMIT_REACHED", resp.Error.Code)
	pageRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreatePage_UnknownTemplate(t *testing.T) {
	handler := pageTestHandler(new(mockPageRepo), new(mockServiceRepo), new(mockUserRepo))
	router := setupPageRouter(handler, testMerchantID)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/pages/", jsonBody(t, CreatePageRequest{
		Title:        "Page",
		Slug:         "some-page",
		TemplateType: "BLOG",
	}))
	req.Header.Set("Authorization", "Bearer test-token")
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_INPUT", resp.Error.Code)
}

// ============================================================================
// Get / Ownership Tests
// ============================================================================

func TestGetPage_OtherOwnerNotFound(t *testing.T) {
	pageRepo := new(mockPageRepo)
	handler := pageTestHandler(pageRepo, new(mockServiceRepo), new(mockUserRepo))
	router := setupPageRouter(handler, "some-other-merchant")

	pageRepo.On("GetByID", mock.Anything, testPageID).Return(samplePage(domain.PageDraft), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/pages/"+testPageID, nil)
	req.Header.Set("Authorization", "Bearer test-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
}

// ============================================================================
// Resolve Tests
// ============================================================================

func TestResolvePage_Published(t *testing.T) {
	pageRepo := new(mockPageRepo)
	serviceRepo := new(mockServiceRepo)
	handler := pageTestHandler(pageRepo, serviceRepo, new(mockUserRepo))
	router := setupPageRouter(handler, testMerchantID)

	pageRepo.On("GetBySlug", mock.Anything, "coiffure-marie").Return(samplePage(domain.PagePublished), nil)
	serviceRepo.On("ListByPageID", mock.Anything, testPageID).Return([]domain.Service{}, nil)
	pageRepo.On("IncrementViewCount", mock.Anything, testPageID).Return(nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/public/pages/coiffure-marie", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Nil(t, resp.Error)
}

func TestResolvePage_DraftIsShell(t *testing.T) {
	pageRepo := new(mockPageRepo)
	serviceRepo := new(mockServiceRepo)
	handler := pageTestHandler(pageRepo, serviceRepo, new(mockUserRepo))
	router := setupPageRouter(handler, testMerchantID)

	pageRepo.On("GetBySlug", mock.Anything, "coiffure-marie").Return(samplePage(domain.PageDraft), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/public/pages/coiffure-marie", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	// A draft still resolves so the public side can render it as under
	// construction, but without services or template content.
	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Nil(t, resp.Error)
	data := resp.Data.(map[string]any)
	assert.Equal(t, string(domain.PageDraft), data["status"])
	assert.Nil(t, data["services"])
	serviceRepo.AssertNotCalled(t, "ListByPageID", mock.Anything, mock.Anything)
	pageRepo.AssertNotCalled(t, "IncrementViewCount", mock.Anything, mock.Anything)
}

func TestResolvePage_UnknownSlugNotFound(t *testing.T) {
	pageRepo := new(mockPageRepo)
	handler := pageTestHandler(pageRepo, new(mockServiceRepo), new(mockUserRepo))
	router := setupPageRouter(handler, testMerchantID)

	pageRepo.On("GetBySlug", mock.Anything, "inconnue").
		Return(nil, apperrors.NotFound("page", "inconnue"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/public/pages/inconnue", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
}

// ============================================================================
// Publish Tests
// ============================================================================

func TestPublishPage_Success(t *testing.T) {
	pageRepo := new(mockPageRepo)
	handler := pageTestHandler(pageRepo, new(mockServiceRepo), new(mockUserRepo))
	router := setupPageRouter(handler, testMerchantID)

	pageRepo.On("GetByID", mock.Anything, testPageID).Return(samplePage(domain.PageDraft), nil)
	pageRepo.On("Update", mock.Anything, mock.MatchedBy(func(p *domain.Page) bool {
		return p.Status == domain.PagePublished && p.PublishedAt != nil
	})).Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/pages/"+testPageID+"/publish", nil)
	req.Header.Set("Authorization", "Bearer test-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	pageRepo.AssertExpectations(t)
}

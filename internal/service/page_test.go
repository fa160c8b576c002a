package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/paylink-cm/paylink/internal/domain"
	apperrors "github.com/paylink-cm/paylink/pkg/errors"
)

func newPageTestFixture(t *testing.T) (*PageService, *mockPageRepository, *mockServiceRepository, *mockUserRepository) {
	t.Helper()
	pageRepo := new(mockPageRepository)
	serviceRepo := new(mockServiceRepository)
	userRepo := new(mockUserRepository)
	svc := NewPageService(pageRepo, serviceRepo, userRepo, nil, 1, 4.0, testLogger())
	return svc, pageRepo, serviceRepo, userRepo
}

func freeUser() *domain.User {
	return &domain.User{ID: "u-1", Email: "marie@example.cm", Plan: domain.PlanFree}
}

func TestPageService_CheckSlug(t *testing.T) {
	svc, pageRepo, _, _ := newPageTestFixture(t)

	pageRepo.On("SlugExists", mock.Anything, "formation-excel").Return(false, nil)
	pageRepo.On("SlugExists", mock.Anything, "deja-pris").Return(true, nil)

	status, err := svc.CheckSlug(context.Background(), "formation-excel")
	require.NoError(t, err)
	assert.Equal(t, SlugAvailable, status)

	status, err = svc.CheckSlug(context.Background(), "deja-pris")
	require.NoError(t, err)
	assert.Equal(t, SlugTaken, status)

	// Invalid slugs never hit the database.
	status, err = svc.CheckSlug(context.Background(), "AB")
	require.NoError(t, err)
	assert.Equal(t, SlugInvalid, status)
	pageRepo.AssertNumberOfCalls(t, "SlugExists", 2)
}

func TestPageService_Create_Success(t *testing.T) {
	svc, pageRepo, serviceRepo, userRepo := newPageTestFixture(t)

	userRepo.On("GetByID", mock.Anything, "u-1").Return(freeUser(), nil)
	pageRepo.On("CountByUserID", mock.Anything, "u-1").Return(0, nil)
	pageRepo.On("Create", mock.Anything, mock.MatchedBy(func(p *domain.Page) bool {
		return p.Slug == "formation-excel" && p.Status == domain.PageDraft
	})).Return(nil)
	serviceRepo.On("Create", mock.Anything, mock.MatchedBy(func(s *domain.Service) bool {
		return s.Name == "Session initiation" && s.Price == 15000 && s.DisplayPrice == 15000
	})).Return(nil)

	page, err := svc.Create(context.Background(), "u-1", CreatePageInput{
		Title:        "Formation Excel",
		Slug:         "formation-excel",
		TemplateType: domain.TemplateTraining,
		Services:     []ServiceInput{{Name: "Session initiation", Price: 15000}},
	})

	require.NoError(t, err)
	assert.Equal(t, domain.PageDraft, page.Status)
	require.Len(t, page.Services, 1)
	assert.Equal(t, 0, page.Services[0].Position)
	pageRepo.AssertExpectations(t)
	serviceRepo.AssertExpectations(t)
}

func TestPageService_Create_NetPricingGrossesUp(t *testing.T) {
	svc, pageRepo, serviceRepo, userRepo := newPageTestFixture(t)

	userRepo.On("GetByID", mock.Anything, "u-1").Return(freeUser(), nil)
	pageRepo.On("CountByUserID", mock.Anything, "u-1").Return(0, nil)
	pageRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	serviceRepo.On("Create", mock.Anything, mock.MatchedBy(func(s *domain.Service) bool {
		// Merchant nets 10000 after the 4% fee on the grossed-up price.
		return s.Price == 10000 && s.DisplayPrice == 10417
	})).Return(nil)

	_, err := svc.Create(context.Background(), "u-1", CreatePageInput{
		Title:        "Consultation",
		Slug:         "consultation-dr-ngo",
		TemplateType: domain.TemplateServiceProvider,
		PricingMode:  domain.PricingNet,
		Services:     []ServiceInput{{Name: "Consultation", Price: 10000}},
	})

	require.NoError(t, err)
	serviceRepo.AssertExpectations(t)
}

func TestPageService_Create_FreePlanLimitReached(t *testing.T) {
	svc, pageRepo, _, userRepo := newPageTestFixture(t)

	userRepo.On("GetByID", mock.Anything, "u-1").Return(freeUser(), nil)
	pageRepo.On("CountByUserID", mock.Anything, "u-1").Return(1, nil)

	_, err := svc.Create(context.Background(), "u-1", CreatePageInput{
		Title:        "Deuxième page",
		Slug:         "deuxieme-page",
		TemplateType: domain.TemplateDonation,
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "PLAN_LIMIT_REACHED", appErr.Code)
	pageRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestPageService_Create_ProPlanUncapped(t *testing.T) {
	svc, pageRepo, _, userRepo := newPageTestFixture(t)

	userRepo.On("GetByID", mock.Anything, "u-1").Return(&domain.User{ID: "u-1", Plan: domain.PlanPro}, nil)
	pageRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

	_, err := svc.Create(context.Background(), "u-1", CreatePageInput{
		Title:        "Page 12",
		Slug:         "page-douze",
		TemplateType: domain.TemplateEvent,
	})

	require.NoError(t, err)
	pageRepo.AssertNotCalled(t, "CountByUserID", mock.Anything, mock.Anything)
}

func TestPageService_Create_SlugConflictAtInsert(t *testing.T) {
	svc, pageRepo, _, userRepo := newPageTestFixture(t)

	userRepo.On("GetByID", mock.Anything, "u-1").Return(freeUser(), nil)
	pageRepo.On("CountByUserID", mock.Anything, "u-1").Return(0, nil)
	pageRepo.On("Create", mock.Anything, mock.Anything).Return(apperrors.AlreadyExists("page", "slug", "formation-excel"))

	_, err := svc.Create(context.Background(), "u-1", CreatePageInput{
		Title:        "Formation Excel",
		Slug:         "formation-excel",
		TemplateType: domain.TemplateTraining,
	})

	// The advisory check can lie; the insert conflict must surface as such.
	assert.True(t, errors.Is(err, apperrors.ErrAlreadyExists))
}

func TestPageService_Create_InvalidInput(t *testing.T) {
	svc, _, _, _ := newPageTestFixture(t)

	tests := []struct {
		name  string
		input CreatePageInput
	}{
		{"short title", CreatePageInput{Title: "a", Slug: "bon-slug", TemplateType: domain.TemplateDonation}},
		{"bad slug", CreatePageInput{Title: "Bon titre", Slug: "Mauvais Slug", TemplateType: domain.TemplateDonation}},
		{"unknown template", CreatePageInput{Title: "Bon titre", Slug: "bon-slug", TemplateType: "MYSTERY"}},
		{"negative price", CreatePageInput{
			Title: "Bon titre", Slug: "bon-slug", TemplateType: domain.TemplateDonation,
			Services: []ServiceInput{{Name: "Don", Price: -5}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), "u-1", tt.input)
			assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
		})
	}
}

func TestPageService_Publish_SetsPublishedAt(t *testing.T) {
	svc, pageRepo, _, _ := newPageTestFixture(t)

	page := &domain.Page{ID: "p-1", UserID: "u-1", Status: domain.PageDraft}
	pageRepo.On("GetByID", mock.Anything, "p-1").Return(page, nil)
	pageRepo.On("Update", mock.Anything, mock.MatchedBy(func(p *domain.Page) bool {
		return p.Status == domain.PagePublished && p.PublishedAt != nil
	})).Return(nil)

	got, err := svc.Publish(context.Background(), "u-1", "p-1")

	require.NoError(t, err)
	assert.Equal(t, domain.PagePublished, got.Status)
	require.NotNil(t, got.PublishedAt)
	assert.WithinDuration(t, time.Now().UTC(), *got.PublishedAt, time.Minute)
}

func TestPageService_Get_OtherOwnersPageIsNotFound(t *testing.T) {
	svc, pageRepo, _, _ := newPageTestFixture(t)

	pageRepo.On("GetByID", mock.Anything, "p-1").Return(&domain.Page{ID: "p-1", UserID: "someone-else"}, nil)

	_, err := svc.Get(context.Background(), "u-1", "p-1")

	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestPageService_Resolve_PublishedCountsView(t *testing.T) {
	svc, pageRepo, serviceRepo, _ := newPageTestFixture(t)

	pageRepo.On("GetBySlug", mock.Anything, "page-publiee").Return(&domain.Page{
		ID: "p-1", Slug: "page-publiee", Status: domain.PagePublished,
	}, nil)
	serviceRepo.On("ListByPageID", mock.Anything, "p-1").Return([]domain.Service{
		{ID: "s-1", PageID: "p-1", IsActive: true},
	}, nil)
	pageRepo.On("IncrementViewCount", mock.Anything, "p-1").Return(nil)

	page, err := svc.Resolve(context.Background(), "page-publiee")
	require.NoError(t, err)
	assert.Len(t, page.Services, 1)
	pageRepo.AssertCalled(t, "IncrementViewCount", mock.Anything, "p-1")
}

func TestPageService_Resolve_DraftIsShell(t *testing.T) {
	svc, pageRepo, serviceRepo, _ := newPageTestFixture(t)

	pageRepo.On("GetBySlug", mock.Anything, "brouillon").Return(&domain.Page{
		ID: "p-2", Slug: "brouillon", Title: "Salon chez Ngozi",
		Status:       domain.PageDraft,
		PrimaryColor: "#10B981",
		TemplateData: []byte(`{"secret":"draft content"}`),
	}, nil)

	// A draft still resolves so visitors see an under-construction page,
	// but never its services or template content.
	page, err := svc.Resolve(context.Background(), "brouillon")
	require.NoError(t, err)
	assert.Equal(t, domain.PageDraft, page.Status)
	assert.Equal(t, "Salon chez Ngozi", page.Title)
	assert.Nil(t, page.Services)
	assert.Nil(t, page.TemplateData)
	serviceRepo.AssertNotCalled(t, "ListByPageID", mock.Anything, mock.Anything)
	pageRepo.AssertNotCalled(t, "IncrementViewCount", mock.Anything, mock.Anything)
}

func TestPageService_Resolve_FiltersInactiveServices(t *testing.T) {
	svc, pageRepo, serviceRepo, _ := newPageTestFixture(t)

	pageRepo.On("GetBySlug", mock.Anything, "salon").Return(&domain.Page{
		ID: "p-1", Slug: "salon", Status: domain.PagePublished,
	}, nil)
	serviceRepo.On("ListByPageID", mock.Anything, "p-1").Return([]domain.Service{
		{ID: "s-1", PageID: "p-1", Name: "Coupe", IsActive: true},
		{ID: "s-2", PageID: "p-1", Name: "Teinture", IsActive: false},
		{ID: "s-3", PageID: "p-1", Name: "Brushing", IsActive: true},
	}, nil)
	pageRepo.On("IncrementViewCount", mock.Anything, "p-1").Return(nil)

	page, err := svc.Resolve(context.Background(), "salon")
	require.NoError(t, err)
	require.Len(t, page.Services, 2)
	assert.Equal(t, "Coupe", page.Services[0].Name)
	assert.Equal(t, "Brushing", page.Services[1].Name)
}

func TestPageService_ViewCount_ReadsDurableCounter(t *testing.T) {
	svc, pageRepo, _, _ := newPageTestFixture(t)

	pageRepo.On("GetByID", mock.Anything, "p-1").Return(&domain.Page{
		ID: "p-1", UserID: "u-1", ViewCount: 42,
	}, nil)

	count, err := svc.ViewCount(context.Background(), "u-1", "p-1")
	require.NoError(t, err)
	assert.Equal(t, int64(42), count)
}

func TestPageService_Create_StylingDefaults(t *testing.T) {
	svc, pageRepo, _, userRepo := newPageTestFixture(t)

	userRepo.On("GetByID", mock.Anything, "u-1").Return(freeUser(), nil)
	pageRepo.On("CountByUserID", mock.Anything, "u-1").Return(0, nil)
	pageRepo.On("Create", mock.Anything, mock.MatchedBy(func(p *domain.Page) bool {
		return p.PrimaryColor == domain.DefaultPrimaryColor && p.LogoURL == ""
	})).Return(nil)

	page, err := svc.Create(context.Background(), "u-1", CreatePageInput{
		Title:        "Salon chez Ngozi",
		Slug:         "salon-chez-ngozi",
		TemplateType: domain.TemplateServiceProvider,
	})

	require.NoError(t, err)
	assert.Equal(t, domain.DefaultPrimaryColor, page.PrimaryColor)
}

func TestPageService_Create_BadPrimaryColor(t *testing.T) {
	svc, _, _, _ := newPageTestFixture(t)

	_, err := svc.Create(context.Background(), "u-1", CreatePageInput{
		Title:        "Salon chez Ngozi",
		Slug:         "salon-chez-ngozi",
		TemplateType: domain.TemplateServiceProvider,
		PrimaryColor: "bleu",
	})

	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestPageService_Create_NetPriceOnServices(t *testing.T) {
	svc, pageRepo, serviceRepo, userRepo := newPageTestFixture(t)

	userRepo.On("GetByID", mock.Anything, "u-1").Return(freeUser(), nil)
	pageRepo.On("CountByUserID", mock.Anything, "u-1").Return(0, nil)
	pageRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	serviceRepo.On("Create", mock.Anything, mock.MatchedBy(func(s *domain.Service) bool {
		// Gross mode: the buyer pays 10000, the merchant nets it minus 4%.
		return s.DisplayPrice == 10000 && s.NetPrice == 9600 && s.IsActive
	})).Return(nil)

	_, err := svc.Create(context.Background(), "u-1", CreatePageInput{
		Title:        "Formation Excel",
		Slug:         "formation-excel",
		TemplateType: domain.TemplateTraining,
		Services:     []ServiceInput{{Name: "Session", Price: 10000}},
	})

	require.NoError(t, err)
	serviceRepo.AssertExpectations(t)
}

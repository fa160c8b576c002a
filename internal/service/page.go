package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/paylink-cm/paylink/internal/domain"
	"github.com/paylink-cm/paylink/internal/repository"
	apperrors "github.com/paylink-cm/paylink/pkg/errors"
	"github.com/paylink-cm/paylink/pkg/slug"
)

// PageService implements the business logic for payment pages.
type PageService struct {
	pageRepo    repository.PageRepository
	serviceRepo repository.ServiceRepository
	userRepo    repository.UserRepository
	redis       *redis.Client
	maxFreePage int
	feePercent  float64
	logger      *slog.Logger
}

// NewPageService creates a new page service.
func NewPageService(
	pageRepo repository.PageRepository,
	serviceRepo repository.ServiceRepository,
	userRepo repository.UserRepository,
	redisClient *redis.Client,
	maxFreePages int,
	feePercent float64,
	logger *slog.Logger,
) *PageService {
	return &PageService{
		pageRepo:    pageRepo,
		serviceRepo: serviceRepo,
		userRepo:    userRepo,
		redis:       redisClient,
		maxFreePage: maxFreePages,
		feePercent:  feePercent,
		logger:      logger,
	}
}

// SlugStatus is the outcome of an advisory slug availability check.
type SlugStatus string

const (
	SlugAvailable SlugStatus = "available"
	SlugTaken     SlugStatus = "taken"
	SlugInvalid   SlugStatus = "invalid"
)

// ServiceInput describes one payable item submitted with a page. A nil
// IsActive leaves the current state (new items default to active).
type ServiceInput struct {
	Name        string
	Description string
	Price       int64
	IsActive    *bool
}

// CreatePageInput holds the parameters for creating a page.
type CreatePageInput struct {
	Title        string
	Slug         string
	Description  string
	TemplateType domain.TemplateType
	PricingMode  domain.PricingMode
	LogoURL      string
	PrimaryColor string
	TemplateData json.RawMessage
	Services     []ServiceInput
}

// UpdatePageInput holds the parameters for updating a page.
type UpdatePageInput struct {
	Title        *string
	Description  *string
	PricingMode  *domain.PricingMode
	LogoURL      *string
	PrimaryColor *string
	TemplateData json.RawMessage
}

// hexColorRe matches the #RRGGBB form the page accent color is stored in.
var hexColorRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// CheckSlug reports whether the slug is free. The check is advisory only:
// the unique constraint at insert time remains authoritative, so a slug
// reported available can still be taken by the time the page is submitted.
func (s *PageService) CheckSlug(ctx context.Context, candidate string) (SlugStatus, error) {
	if !slug.Valid(candidate) {
		return SlugInvalid, nil
	}

	exists, err := s.pageRepo.SlugExists(ctx, candidate)
	if err != nil {
		return "", fmt.Errorf("check slug availability: %w", err)
	}
	if exists {
		return SlugTaken, nil
	}
	return SlugAvailable, nil
}

// SuggestSlug derives a slug from a title.
func (s *PageService) SuggestSlug(title string) string {
	return slug.Generate(title)
}

// Create creates a new page in DRAFT status. FREE-plan merchants are capped
// at a fixed number of pages.
func (s *PageService) Create(ctx context.Context, userID string, input CreatePageInput) (*domain.Page, error) {
	if err := domain.ValidateTitle(input.Title); err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}
	if !slug.Valid(input.Slug) {
		return nil, apperrors.InvalidInput("slug must be 3-50 lowercase letters, digits or hyphens")
	}
	if !input.TemplateType.Valid() {
		return nil, apperrors.InvalidInput("unknown template type")
	}
	if input.PricingMode == "" {
		input.PricingMode = domain.PricingGross
	}
	if input.PricingMode != domain.PricingGross && input.PricingMode != domain.PricingNet {
		return nil, apperrors.InvalidInput("unknown pricing mode")
	}
	if input.PrimaryColor == "" {
		input.PrimaryColor = domain.DefaultPrimaryColor
	}
	if !hexColorRe.MatchString(input.PrimaryColor) {
		return nil, apperrors.InvalidInput("primary color must be a #RRGGBB hex value")
	}
	for _, svc := range input.Services {
		if svc.Name == "" {
			return nil, apperrors.InvalidInput("service name is required")
		}
		if svc.Price < 0 {
			return nil, apperrors.InvalidInput("service price must not be negative")
		}
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user for page creation: %w", err)
	}

	if user.Plan == domain.PlanFree {
		count, err := s.pageRepo.CountByUserID(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("count pages: %w", err)
		}
		if count >= s.maxFreePage {
			return nil, apperrors.PlanLimit(fmt.Sprintf("free plan is limited to %d page(s), upgrade to create more", s.maxFreePage))
		}
	}

	templateData := input.TemplateData
	if len(templateData) == 0 {
		templateData = json.RawMessage(`{}`)
	}

	now := time.Now().UTC()
	page := &domain.Page{
		ID:           uuid.New().String(),
		UserID:       userID,
		Slug:         input.Slug,
		Title:        input.Title,
		Description:  input.Description,
		TemplateType: input.TemplateType,
		Status:       domain.PageDraft,
		PricingMode:  input.PricingMode,
		LogoURL:      input.LogoURL,
		PrimaryColor: input.PrimaryColor,
		TemplateData: templateData,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.pageRepo.Create(ctx, page); err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}

	for i, svcInput := range input.Services {
		active := true
		if svcInput.IsActive != nil {
			active = *svcInput.IsActive
		}
		svc := &domain.Service{
			ID:           uuid.New().String(),
			PageID:       page.ID,
			Name:         svcInput.Name,
			Description:  svcInput.Description,
			Price:        svcInput.Price,
			DisplayPrice: domain.DisplayPrice(svcInput.Price, page.PricingMode, s.feePercent),
			NetPrice:     domain.NetPrice(svcInput.Price, page.PricingMode, s.feePercent),
			IsActive:     active,
			Position:     i,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.serviceRepo.Create(ctx, svc); err != nil {
			return nil, fmt.Errorf("create service %q: %w", svcInput.Name, err)
		}
		page.Services = append(page.Services, *svc)
	}

	s.logger.InfoContext(ctx, "page created",
		slog.String("page_id", page.ID),
		slog.String("user_id", userID),
		slog.String("slug", page.Slug),
		slog.String("template", string(page.TemplateType)),
	)

	return page, nil
}

// Get returns one of the merchant's pages with its services.
func (s *PageService) Get(ctx context.Context, userID, pageID string) (*domain.Page, error) {
	page, err := s.ownedPage(ctx, userID, pageID)
	if err != nil {
		return nil, err
	}

	services, err := s.serviceRepo.ListByPageID(ctx, page.ID)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	page.Services = services

	return page, nil
}

// List returns all of the merchant's pages, newest first.
func (s *PageService) List(ctx context.Context, userID string) ([]domain.Page, error) {
	pages, err := s.pageRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	return pages, nil
}

// Update modifies a page's editable fields.
func (s *PageService) Update(ctx context.Context, userID, pageID string, input UpdatePageInput) (*domain.Page, error) {
	page, err := s.ownedPage(ctx, userID, pageID)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		if err := domain.ValidateTitle(*input.Title); err != nil {
			return nil, apperrors.InvalidInput(err.Error())
		}
		page.Title = *input.Title
	}
	if input.Description != nil {
		page.Description = *input.Description
	}
	if input.PricingMode != nil {
		if *input.PricingMode != domain.PricingGross && *input.PricingMode != domain.PricingNet {
			return nil, apperrors.InvalidInput("unknown pricing mode")
		}
		page.PricingMode = *input.PricingMode
	}
	if input.LogoURL != nil {
		page.LogoURL = *input.LogoURL
	}
	if input.PrimaryColor != nil {
		if !hexColorRe.MatchString(*input.PrimaryColor) {
			return nil, apperrors.InvalidInput("primary color must be a #RRGGBB hex value")
		}
		page.PrimaryColor = *input.PrimaryColor
	}
	if len(input.TemplateData) > 0 {
		page.TemplateData = input.TemplateData
	}

	if err := s.pageRepo.Update(ctx, page); err != nil {
		return nil, fmt.Errorf("update page: %w", err)
	}

	return page, nil
}

// Publish makes a page publicly resolvable by its slug.
func (s *PageService) Publish(ctx context.Context, userID, pageID string) (*domain.Page, error) {
	return s.setStatus(ctx, userID, pageID, domain.PagePublished)
}

// Unpublish takes a page back to draft.
func (s *PageService) Unpublish(ctx context.Context, userID, pageID string) (*domain.Page, error) {
	return s.setStatus(ctx, userID, pageID, domain.PageDraft)
}

// Delete removes a page and its services.
func (s *PageService) Delete(ctx context.Context, userID, pageID string) error {
	page, err := s.ownedPage(ctx, userID, pageID)
	if err != nil {
		return err
	}

	if err := s.pageRepo.Delete(ctx, page.ID); err != nil {
		return fmt.Errorf("delete page: %w", err)
	}

	s.logger.InfoContext(ctx, "page deleted",
		slog.String("page_id", page.ID),
		slog.String("user_id", userID),
	)

	return nil
}

// Resolve returns a page by slug for public display. A published page comes
// back with its active services and counts a view. An existing page in any
// other status is still returned, stripped to its presentation shell, so the
// public side can show it as under construction rather than a hard error.
func (s *PageService) Resolve(ctx context.Context, pageSlug string) (*domain.Page, error) {
	page, err := s.pageRepo.GetBySlug(ctx, pageSlug)
	if err != nil {
		return nil, fmt.Errorf("resolve page: %w", err)
	}

	if page.Status != domain.PagePublished {
		page.Services = nil
		page.TemplateData = nil
		return page, nil
	}

	services, err := s.serviceRepo.ListByPageID(ctx, page.ID)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	page.Services = activeServices(services)

	s.countView(ctx, page.ID)

	return page, nil
}

// activeServices filters out items the merchant has switched off.
func activeServices(services []domain.Service) []domain.Service {
	kept := services[:0]
	for _, svc := range services {
		if svc.IsActive {
			kept = append(kept, svc)
		}
	}
	return kept
}

// ViewCount returns the number of public views recorded for the page, from
// the durable counter on the pages row.
func (s *PageService) ViewCount(ctx context.Context, userID, pageID string) (int64, error) {
	page, err := s.ownedPage(ctx, userID, pageID)
	if err != nil {
		return 0, err
	}
	return page.ViewCount, nil
}

// --- Service item operations ---

// AddService appends a payable item to a page.
func (s *PageService) AddService(ctx context.Context, userID, pageID string, input ServiceInput) (*domain.Service, error) {
	page, err := s.ownedPage(ctx, userID, pageID)
	if err != nil {
		return nil, err
	}
	if input.Name == "" {
		return nil, apperrors.InvalidInput("service name is required")
	}
	if input.Price < 0 {
		return nil, apperrors.InvalidInput("service price must not be negative")
	}

	existing, err := s.serviceRepo.ListByPageID(ctx, page.ID)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}

	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}
	now := time.Now().UTC()
	svc := &domain.Service{
		ID:           uuid.New().String(),
		PageID:       page.ID,
		Name:         input.Name,
		Description:  input.Description,
		Price:        input.Price,
		DisplayPrice: domain.DisplayPrice(input.Price, page.PricingMode, s.feePercent),
		NetPrice:     domain.NetPrice(input.Price, page.PricingMode, s.feePercent),
		IsActive:     active,
		Position:     len(existing),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.serviceRepo.Create(ctx, svc); err != nil {
		return nil, fmt.Errorf("create service: %w", err)
	}

	return svc, nil
}

// UpdateService modifies a payable item.
func (s *PageService) UpdateService(ctx context.Context, userID, pageID, serviceID string, input ServiceInput) (*domain.Service, error) {
	page, err := s.ownedPage(ctx, userID, pageID)
	if err != nil {
		return nil, err
	}

	svc, err := s.serviceRepo.GetByID(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("get service: %w", err)
	}
	if svc.PageID != page.ID {
		return nil, apperrors.NotFound("service", serviceID)
	}

	if input.Name != "" {
		svc.Name = input.Name
	}
	svc.Description = input.Description
	if input.Price >= 0 {
		svc.Price = input.Price
		svc.DisplayPrice = domain.DisplayPrice(input.Price, page.PricingMode, s.feePercent)
		svc.NetPrice = domain.NetPrice(input.Price, page.PricingMode, s.feePercent)
	}
	if input.IsActive != nil {
		svc.IsActive = *input.IsActive
	}

	if err := s.serviceRepo.Update(ctx, svc); err != nil {
		return nil, fmt.Errorf("update service: %w", err)
	}

	return svc, nil
}

// RemoveService deletes a payable item from a page.
func (s *PageService) RemoveService(ctx context.Context, userID, pageID, serviceID string) error {
	page, err := s.ownedPage(ctx, userID, pageID)
	if err != nil {
		return err
	}

	svc, err := s.serviceRepo.GetByID(ctx, serviceID)
	if err != nil {
		return fmt.Errorf("get service: %w", err)
	}
	if svc.PageID != page.ID {
		return apperrors.NotFound("service", serviceID)
	}

	if err := s.serviceRepo.Delete(ctx, serviceID); err != nil {
		return fmt.Errorf("delete service: %w", err)
	}

	return nil
}

// --- Helpers ---

// ownedPage loads a page and verifies the caller owns it. Pages owned by
// someone else resolve as not found.
func (s *PageService) ownedPage(ctx context.Context, userID, pageID string) (*domain.Page, error) {
	page, err := s.pageRepo.GetByID(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("get page: %w", err)
	}
	if page.UserID != userID {
		return nil, apperrors.NotFound("page", pageID)
	}
	return page, nil
}

func (s *PageService) setStatus(ctx context.Context, userID, pageID string, status domain.PageStatus) (*domain.Page, error) {
	page, err := s.ownedPage(ctx, userID, pageID)
	if err != nil {
		return nil, err
	}

	page.Status = status
	if status == domain.PagePublished && page.PublishedAt == nil {
		now := time.Now().UTC()
		page.PublishedAt = &now
	}

	if err := s.pageRepo.Update(ctx, page); err != nil {
		return nil, fmt.Errorf("update page status: %w", err)
	}

	s.logger.InfoContext(ctx, "page status changed",
		slog.String("page_id", page.ID),
		slog.String("status", string(status)),
	)

	return page, nil
}

// countView records one public view: the pages row carries the durable
// count, and a redis counter mirrors it for live dashboards. Counting is
// best-effort in both places: an outage must not break public resolution.
func (s *PageService) countView(ctx context.Context, pageID string) {
	if err := s.pageRepo.IncrementViewCount(ctx, pageID); err != nil {
		s.logger.WarnContext(ctx, "failed to persist page view",
			slog.String("page_id", pageID),
			slog.String("error", err.Error()),
		)
	}

	if s.redis == nil {
		return
	}
	if err := s.redis.Incr(ctx, viewCountKey(pageID)).Err(); err != nil {
		s.logger.WarnContext(ctx, "failed to count page view",
			slog.String("page_id", pageID),
			slog.String("error", err.Error()),
		)
	}
}

func viewCountKey(pageID string) string {
	return "pageviews:" + pageID
}

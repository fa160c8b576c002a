package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/paylink-cm/paylink/internal/domain"
	"github.com/paylink-cm/paylink/internal/service"
	"github.com/paylink-cm/paylink/pkg/httputil"
	"github.com/paylink-cm/paylink/pkg/middleware"
	"github.com/paylink-cm/paylink/pkg/validator"
)

// PageHandler handles HTTP requests for page endpoints.
type PageHandler struct {
	service *service.PageService
	logger  *slog.Logger
}

// NewPageHandler creates a new page HTTP handler.
func NewPageHandler(svc *service.PageService, logger *slog.Logger) *PageHandler {
	return &PageHandler{service: svc, logger: logger}
}

// ServiceRequest is one payable item in a page create/update body.
type ServiceRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=100"`
	Description string `json:"description" validate:"max=500"`
	Price       int64  `json:"price" validate:"gte=0"`
	IsActive    *bool  `json:"is_active"`
}

// CreatePageRequest is the JSON request body for creating a page.
type CreatePageRequest struct {
	Title        string           `json:"title" validate:"required,min=2,max=100"`
	Slug         string           `json:"slug" validate:"required,min=3,max=50,lowercase"`
	Description  string           `json:"description" validate:"max=2000"`
	TemplateType string           `json:"template_type" validate:"required"`
	PricingMode  string           `json:"pricing_mode" validate:"omitempty,oneof=GROSS_AMOUNT NET_AMOUNT"`
	LogoURL      string           `json:"logo_url" validate:"omitempty,url,max=500"`
	PrimaryColor string           `json:"primary_color" validate:"omitempty,hexcolor"`
	TemplateData json.RawMessage  `json:"template_data"`
	Services     []ServiceRequest `json:"services" validate:"dive"`
}

// UpdatePageRequest is the JSON request body for updating a page.
type UpdatePageRequest struct {
	Title        *string         `json:"title" validate:"omitempty,min=2,max=100"`
	Description  *string         `json:"description" validate:"omitempty,max=2000"`
	PricingMode  *string         `json:"pricing_mode" validate:"omitempty,oneof=GROSS_AMOUNT NET_AMOUNT"`
	LogoURL      *string         `json:"logo_url" validate:"omitempty,url,max=500"`
	PrimaryColor *string         `json:"primary_color" validate:"omitempty,hexcolor"`
	TemplateData json.RawMessage `json:"template_data"`
}

// CheckSlug handles GET /api/v1/pages/check-slug?slug=...
func (h *PageHandler) CheckSlug(w http.ResponseWriter, r *http.Request) {
	slug := r.URL.Query().Get("slug")

	status, err := h.service.CheckSlug(r.Context(), slug)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]string{"slug": slug, "status": string(status)},
	})
}

// Create handles POST /api/v1/pages
func (h *PageHandler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req CreatePageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	input := service.CreatePageInput{
		Title:        req.Title,
		Slug:         req.Slug,
		Description:  req.Description,
		TemplateType: domain.TemplateType(req.TemplateType),
		PricingMode:  domain.PricingMode(req.PricingMode),
		LogoURL:      req.LogoURL,
		PrimaryColor: req.PrimaryColor,
		TemplateData: req.TemplateData,
	}
	for _, svc := range req.Services {
		input.Services = append(input.Services, service.ServiceInput{
			Name:        svc.Name,
			Description: svc.Description,
			Price:       svc.Price,
			IsActive:    svc.IsActive,
		})
	}

	page, err := h.service.Create(r.Context(), middleware.UserIDFromContext(r.Context()), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: page})
}

// List handles GET /api/v1/pages
func (h *PageHandler) List(w http.ResponseWriter, r *http.Request) {
	pages, err := h.service.List(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: pages})
}

// Get handles GET /api/v1/pages/{id}
func (h *PageHandler) Get(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.Get(r.Context(), middleware.UserIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: page})
}

// Update handles PUT /api/v1/pages/{id}
func (h *PageHandler) Update(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req UpdatePageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	input := service.UpdatePageInput{
		Title:        req.Title,
		Description:  req.Description,
		LogoURL:      req.LogoURL,
		PrimaryColor: req.PrimaryColor,
		TemplateData: req.TemplateData,
	}
	if req.PricingMode != nil {
		mode := domain.PricingMode(*req.PricingMode)
		input.PricingMode = &mode
	}

	page, err := h.service.Update(r.Context(), middleware.UserIDFromContext(r.Context()), chi.URLParam(r, "id"), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: page})
}

// Delete handles DELETE /api/v1/pages/{id}
func (h *PageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	pageID := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), middleware.UserIDFromContext(r.Context()), pageID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]string{"id": pageID, "status": "deleted"},
	})
}

// Publish handles POST /api/v1/pages/{id}/publish
func (h *PageHandler) Publish(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.Publish(r.Context(), middleware.UserIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: page})
}

// Unpublish handles POST /api/v1/pages/{id}/unpublish
func (h *PageHandler) Unpublish(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.Unpublish(r.Context(), middleware.UserIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: page})
}

// ViewCount handles GET /api/v1/pages/{id}/views
func (h *PageHandler) ViewCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.ViewCount(r.Context(), middleware.UserIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]int64{"views": count},
	})
}

// AddService handles POST /api/v1/pages/{id}/services
func (h *PageHandler) AddService(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req ServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	svc, err := h.service.AddService(r.Context(), middleware.UserIDFromContext(r.Context()), chi.URLParam(r, "id"), service.ServiceInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		IsActive:    req.IsActive,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: svc})
}

// UpdateService handles PUT /api/v1/pages/{id}/services/{serviceID}
func (h *PageHandler) UpdateService(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req ServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	svc, err := h.service.UpdateService(r.Context(),
		middleware.UserIDFromContext(r.Context()),
		chi.URLParam(r, "id"),
		chi.URLParam(r, "serviceID"),
		service.ServiceInput{Name: req.Name, Description: req.Description, Price: req.Price, IsActive: req.IsActive},
	)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: svc})
}

// RemoveService handles DELETE /api/v1/pages/{id}/services/{serviceID}
func (h *PageHandler) RemoveService(w http.ResponseWriter, r *http.Request) {
	serviceID := chi.URLParam(r, "serviceID")

	err := h.service.RemoveService(r.Context(), middleware.UserIDFromContext(r.Context()), chi.URLParam(r, "id"), serviceID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]string{"id": serviceID, "status": "deleted"},
	})
}

// Resolve handles GET /api/v1/public/pages/{slug} — the public page view.
func (h *PageHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.Resolve(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: page})
}

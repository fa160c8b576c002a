package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/paylink-cm/paylink/internal/service"
	"github.com/paylink-cm/paylink/pkg/httputil"
	"github.com/paylink-cm/paylink/pkg/middleware"
	"github.com/paylink-cm/paylink/pkg/validator"
)

// PaymentHandler handles HTTP requests for payment endpoints.
type PaymentHandler struct {
	service *service.PaymentService
	logger  *slog.Logger
}

// NewPaymentHandler creates a new payment HTTP handler.
func NewPaymentHandler(svc *service.PaymentService, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{service: svc, logger: logger}
}

// InitiatePaymentRequest is the JSON request body a payer submits on a
// public page.
type InitiatePaymentRequest struct {
	ServiceID  string `json:"service_id"`
	Amount     int64  `json:"amount" validate:"gte=0"`
	PayerName  string `json:"payer_name" validate:"required,min=2,max=100"`
	PayerPhone string `json:"payer_phone" validate:"required"`
	PayerEmail string `json:"payer_email" validate:"omitempty,email"`
}

// OperatorCallbackRequest is the JSON body posted by the operator gateway.
type OperatorCallbackRequest struct {
	Status string `json:"status" validate:"required,oneof=SUCCESS FAILED"`
}

// Initiate handles POST /api/v1/public/pages/{slug}/payments
func (h *PaymentHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req InitiatePaymentRequest
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

	payment, err := h.service.Initiate(r.Context(), service.InitiatePaymentInput{
		PageSlug:   chi.URLParam(r, "slug"),
		ServiceID:  req.ServiceID,
		Amount:     req.Amount,
		PayerName:  req.PayerName,
		PayerPhone: req.PayerPhone,
		PayerEmail: req.PayerEmail,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: payment})
}

// Callback handles POST /api/v1/payments/{reference}/callback — the
// operator gateway reporting the outcome of a pending payment.
func (h *PaymentHandler) Callback(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req OperatorCallbackRequest
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

	reference := chi.URLParam(r, "reference")

	var payment any
	var err error
	if req.Status == "SUCCESS" {
		payment, err = h.service.Confirm(r.Context(), reference)
	} else {
		payment, err = h.service.Fail(r.Context(), reference)
	}
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: payment})
}

// ListForPage handles GET /api/v1/pages/{id}/payments
func (h *PaymentHandler) ListForPage(w http.ResponseWriter, r *http.Request) {
	payments, err := h.service.ListForPage(r.Context(), middleware.UserIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: payments})
}

package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/paylink-cm/paylink/internal/auth"
	"github.com/paylink-cm/paylink/internal/service"
	"github.com/paylink-cm/paylink/pkg/health"
	"github.com/paylink-cm/paylink/pkg/middleware"
)

// RouterDeps holds everything the router needs.
type RouterDeps struct {
	AuthService    *service.AuthService
	PageService    *service.PageService
	PaymentService *service.PaymentService
	JWTManager     *auth.JWTManager
	HealthHandler  *health.Handler
	Redis          *redis.Client
	Logger         *slog.Logger
	CORS           middleware.CORSConfig
}

// NewRouter creates a chi router with all PayLink routes registered.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(deps.CORS))
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogging(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.PrometheusMetrics())

	// Health and metrics endpoints
	r.Get("/health/live", deps.HealthHandler.Liveness)
	r.Get("/health/ready", deps.HealthHandler.Readiness)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// rateLimit is a no-op when redis is not configured.
	rateLimit := func(name string, limit int, window time.Duration) func(http.Handler) http.Handler {
		if deps.Redis == nil {
			return func(next http.Handler) http.Handler { return next }
		}
		return middleware.RateLimit(deps.Redis, name, limit, window, deps.Logger)
	}

	// Token validator that bridges to our internal JWTManager.
	tokenValidator := func(token string) (*middleware.Claims, error) {
		claims, err := deps.JWTManager.ValidateAccessToken(token)
		if err != nil {
			return nil, err
		}
		return &middleware.Claims{
			UserID: claims.UserID,
			Email:  claims.Email,
			Plan:   string(claims.Plan),
		}, nil
	}
	authenticated := middleware.Auth(tokenValidator)

	authHandler := NewAuthHandler(deps.AuthService, deps.Logger)
	pageHandler := NewPageHandler(deps.PageService, deps.Logger)
	paymentHandler := NewPaymentHandler(deps.PaymentService, deps.Logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		// Auth endpoints, each with its own abuse budget.
		r.Route("/auth", func(r chi.Router) {
			r.With(rateLimit("register", 5, time.Minute)).Post("/register", authHandler.Register)
			r.With(rateLimit("login", 10, time.Minute)).Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.RefreshToken)
			r.With(rateLimit("forgot-password", 3, time.Minute)).Post("/forgot-password", authHandler.ForgotPassword)
			r.With(rateLimit("reset-password", 5, time.Minute)).Post("/reset-password", authHandler.ResetPassword)

			r.With(authenticated).Post("/logout", authHandler.Logout)
			r.With(authenticated).Get("/me", authHandler.Me)
		})

		// Merchant page management.
		r.Route("/pages", func(r chi.Router) {
			r.Use(authenticated)

			r.Get("/check-slug", pageHandler.CheckSlug)
			r.Get("/", pageHandler.List)
			r.Post("/", pageHandler.Create)
			r.Get("/{id}", pageHandler.Get)
			r.Put("/{id}", pageHandler.Update)
			r.Delete("/{id}", pageHandler.Delete)
			r.Post("/{id}/publish", pageHandler.Publish)
			r.Post("/{id}/unpublish", pageHandler.Unpublish)
			r.Get("/{id}/views", pageHandler.ViewCount)
			r.Get("/{id}/payments", paymentHandler.ListForPage)

			r.Post("/{id}/services", pageHandler.AddService)
			r.Put("/{id}/services/{serviceID}", pageHandler.UpdateService)
			r.Delete("/{id}/services/{serviceID}", pageHandler.RemoveService)
		})

		// Public page resolution and payment initiation.
		r.Route("/public/pages/{slug}", func(r chi.Router) {
			r.Get("/", pageHandler.Resolve)
			r.With(rateLimit("initiate-payment", 10, time.Minute)).
				Post("/payments", paymentHandler.Initiate)
		})

		// Operator gateway callback.
		r.Post("/payments/{reference}/callback", paymentHandler.Callback)
	})

	return r
}

// Package app wires together all dependencies and runs the PayLink server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/paylink-cm/paylink/internal/auth"
	"github.com/paylink-cm/paylink/internal/config"
	handler "github.com/paylink-cm/paylink/internal/handler/http"
	"github.com/paylink-cm/paylink/internal/notify"
	"github.com/paylink-cm/paylink/internal/repository/postgres"
	"github.com/paylink-cm/paylink/internal/service"
	"github.com/paylink-cm/paylink/migrations"
	"github.com/paylink-cm/paylink/pkg/database"
	"github.com/paylink-cm/paylink/pkg/health"
	"github.com/paylink-cm/paylink/pkg/httpclient"
	"github.com/paylink-cm/paylink/pkg/middleware"
	"github.com/paylink-cm/paylink/pkg/tracing"
)

// App holds the running server and its long-lived resources.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *redis.Client
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "paylink",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		Endpoint:       cfg.TracingEndpoint,
		Enabled:        cfg.TracingEnabled,
		SampleRate:     cfg.TracingSampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// PostgreSQL connection pool and migrations.
	pgCfg := cfg.Postgres()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)

	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	// Redis backs rate limiting and page view counters. Both degrade
	// gracefully, so a redis outage at startup is fatal only because it
	// points at a misconfiguration.
	redisClient, err := database.NewRedisClient(ctx, cfg.Redis())
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	// Notification senders. Without provider credentials the dev senders
	// log instead of sending, which keeps local and staging runs free.
	dispatcher := newDispatcher(cfg, logger)

	// Build the dependency graph.
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTAccessExpiry, cfg.JWTRefreshExpiry)
	userRepo := postgres.NewUserRepository(pool)
	refreshTokenRepo := postgres.NewRefreshTokenRepository(pool)
	resetTokenRepo := postgres.NewPasswordResetTokenRepository(pool)
	pageRepo := postgres.NewPageRepository(pool)
	serviceRepo := postgres.NewServiceRepository(pool)
	paymentRepo := postgres.NewPaymentRepository(pool)

	authService := service.NewAuthService(userRepo, refreshTokenRepo, resetTokenRepo, jwtManager, dispatcher, logger)
	pageService := service.NewPageService(pageRepo, serviceRepo, userRepo, redisClient, cfg.FreePlanMaxPages, cfg.FeePercent, logger)
	paymentService := service.NewPaymentService(paymentRepo, pageRepo, serviceRepo, userRepo,
		service.NewMockPaymentProvider(logger), dispatcher, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.Register("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})

	router := handler.NewRouter(handler.RouterDeps{
		AuthService:    authService,
		PageService:    pageService,
		PaymentService: paymentService,
		JWTManager:     jwtManager,
		HealthHandler:  healthHandler,
		Redis:          redisClient,
		Logger:         logger,
		CORS: middleware.CORSConfig{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			Environment:    cfg.Environment,
		},
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		redis:          redisClient,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// newDispatcher picks real or dev notification senders per configuration.
func newDispatcher(cfg *config.Config, logger *slog.Logger) *notify.Dispatcher {
	var sms notify.SMSSender = notify.NewDevSMSSender(logger)
	if cfg.SMSAPIKey != "" {
		client := httpclient.NewCircuitBreakerClient(
			httpclient.New(httpclient.DefaultConfig()),
			httpclient.DefaultCircuitBreakerConfig("sms"),
			logger,
		)
		sms = notify.NewHTTPSMSSender(client, cfg.SMSAPIURL, cfg.SMSAPIKey, cfg.SMSSenderID, logger)
	}

	var email notify.EmailSender = notify.NewDevEmailSender(logger)
	if cfg.ResendAPIKey != "" {
		client := httpclient.NewCircuitBreakerClient(
			httpclient.New(httpclient.DefaultConfig()),
			httpclient.DefaultCircuitBreakerConfig("resend"),
			logger,
		)
		email = notify.NewResendEmailSender(client, cfg.ResendAPIKey, cfg.EmailFrom, logger)
	}

	return notify.NewDispatcher(sms, email, cfg.BaseURL, logger, prometheus.DefaultRegisterer)
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer (flush spans from drained requests)
// 3. Redis client
// 4. PostgreSQL pool
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if err := a.redis.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.pool.Close()

	a.logger.Info("shutdown complete")
	return errors.Join(errs...)
}

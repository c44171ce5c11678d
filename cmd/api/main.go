// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gifty-app/gifty-api/internal/admin"
	"github.com/gifty-app/gifty-api/internal/auth"
	"github.com/gifty-app/gifty-api/internal/config"
	"github.com/gifty-app/gifty-api/internal/core"
	"github.com/gifty-app/gifty-api/internal/gateway"
	"github.com/gifty-app/gifty-api/internal/health"
	"github.com/gifty-app/gifty-api/internal/middleware"
	"github.com/gifty-app/gifty-api/internal/payment"
	"github.com/gifty-app/gifty-api/internal/plan"
	"github.com/gifty-app/gifty-api/internal/quota"
	"github.com/gifty-app/gifty-api/internal/server"
	"github.com/gifty-app/gifty-api/internal/user"
	"github.com/gifty-app/gifty-api/internal/wheel"
)

const (
	drainDelay = 5 * time.Second
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	jwtManager, err := auth.NewJWTManager(cfg.JWT)
	if err != nil {
		return err
	}
	logger.Info("JWT manager initialized",
		"algorithm", "ES256",
		"key_id", jwtManager.GetKeyID(),
	)

	catalog := plan.NewCatalog(cfg.Payment.Currency)
	evaluator := plan.NewEvaluator(time.Now)
	guard := quota.NewGuard(catalog, evaluator, wheel.NewRepository(db.DB))

	userRepo := user.NewRepository(db.DB)
	userSvc := user.NewService(userRepo, guard)
	userHandler := user.NewHandler(userSvc)

	authSvc := auth.NewService(jwtManager, userSvc)
	authHandler := auth.NewHandler(authSvc)

	wheelSvc := wheel.NewService(db.DB, guard, cfg.Quota.Strict)
	wheelHandler := wheel.NewHandler(wheelSvc)

	gatewayClient, err := gateway.NewClient(cfg.Payment)
	if err != nil {
		return err
	}

	returnURL, err := cfg.ReturnURL()
	if err != nil {
		return err
	}

	pending := payment.NewPendingStore(redis.Client, cfg.Payment.PendingTTL)
	ledger := payment.NewPostgresLedger(db.DB)

	initiator := payment.NewInitiator(
		catalog,
		gatewayClient,
		pending,
		returnURL,
		logger,
	)
	confirmer := payment.NewConfirmer(payment.ConfirmerConfig{
		Catalog:           catalog,
		Gateway:           gatewayClient,
		Ledger:            ledger,
		Pending:           pending,
		Clock:             time.Now,
		VerifyWithGateway: cfg.Payment.VerifyWithGateway,
		Logger:            logger,
	})
	paymentHandler := payment.NewHandler(initiator, confirmer)
	logger.Info("payment gateway configured",
		"api_url", cfg.Payment.APIURL,
		"currency", catalog.Currency(),
		"verify_with_gateway", cfg.Payment.VerifyWithGateway,
	)

	healthHandler := health.NewHandler(
		health.Dependency{Name: "database", Checker: db},
		health.Dependency{Name: "redis", Checker: redis},
	)

	adminHandler := admin.NewHandler(admin.HandlerConfig{
		DBStats:    db.Stats,
		RedisStats: redis.PoolStats,
		DBPing:     db.Ping,
		RedisPing:  redis.Ping,
		Payments:   ledger,
	})

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	router.Use(
		middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
			Limit: middleware.PerMinute(
				cfg.RateLimit.Requests,
				cfg.RateLimit.Burst,
			),
			FailOpen: true,
		}).Handler,
	)
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)

	router.Get("/.well-known/jwks.json", jwtManager.GetJWKSHandler())
	router.Handle("/metrics", promhttp.Handler())

	authenticator := middleware.Authenticator(jwtManager)
	planLimiter := middleware.PlanRateLimiter(
		redis.Client,
		userSvc,
		middleware.DefaultTiers,
	)
	authenticated := func(next http.Handler) http.Handler {
		return authenticator(planLimiter(next))
	}
	adminOnly := middleware.RequireAdmin

	checkoutLimiter := middleware.NewRateLimiter(
		redis.Client,
		middleware.RateLimitConfig{
			Limit:    middleware.PerMinute(10, 5),
			KeyFunc:  middleware.KeyByUserAndEndpoint,
			FailOpen: true,
		},
	)
	checkoutAuth := func(next http.Handler) http.Handler {
		return authenticated(checkoutLimiter.Handler(next))
	}

	// Gateway retries arrive in bursts after an outage.
	paymentsLimiter := middleware.NewRateLimiter(
		redis.Client,
		middleware.RateLimitConfig{
			Limit:    middleware.PerSecond(20, 50),
			FailOpen: true,
		},
	)

	router.Route("/v1", func(r chi.Router) {
		authHandler.RegisterRoutes(r, authenticated)

		userHandler.RegisterRoutes(r, authenticated)
		userHandler.RegisterAdminRoutes(r, authenticated, adminOnly)
		wheelHandler.RegisterRoutes(r, authenticated)

		r.Group(func(r chi.Router) {
			r.Use(paymentsLimiter.Handler)
			paymentHandler.RegisterRoutes(r, checkoutAuth)
		})

		adminHandler.RegisterRoutes(r, authenticated, adminOnly)
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/aryan0dhankhar/deliveryhub/internal/domain"
	"github.com/aryan0dhankhar/deliveryhub/internal/featureflags"
	"github.com/aryan0dhankhar/deliveryhub/internal/handler"
	"github.com/aryan0dhankhar/deliveryhub/internal/infrastructure/logger"
	"github.com/aryan0dhankhar/deliveryhub/internal/infrastructure/redis"
	"github.com/aryan0dhankhar/deliveryhub/internal/location"
	"github.com/aryan0dhankhar/deliveryhub/internal/observability/metrics"
	"github.com/aryan0dhankhar/deliveryhub/internal/observability/requestid"
	"github.com/aryan0dhankhar/deliveryhub/internal/observability/tracing"
	"github.com/aryan0dhankhar/deliveryhub/internal/reliability/circuitbreaker"
	"github.com/aryan0dhankhar/deliveryhub/internal/reliability/retry"
	"github.com/aryan0dhankhar/deliveryhub/internal/repository"
	"github.com/aryan0dhankhar/deliveryhub/internal/repository/memory"
	"github.com/aryan0dhankhar/deliveryhub/internal/security"
	"github.com/aryan0dhankhar/deliveryhub/internal/security/audit"
	"github.com/aryan0dhankhar/deliveryhub/internal/security/auth"
	"github.com/aryan0dhankhar/deliveryhub/internal/security/identity"
	"github.com/aryan0dhankhar/deliveryhub/internal/security/middleware"
	"github.com/aryan0dhankhar/deliveryhub/internal/security/ratelimit"
	"github.com/aryan0dhankhar/deliveryhub/internal/service"
	"github.com/aryan0dhankhar/deliveryhub/internal/worker"
	"github.com/aryan0dhankhar/deliveryhub/pkg/config"
	"github.com/aryan0dhankhar/deliveryhub/pkg/database"
)

func main() {
	// .env is optional; real environment variables win
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to read .env: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg.LogLevel)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	log.Info("starting deliveryhub server",
		slog.String("environment", cfg.Environment),
		slog.String("store", cfg.StoreDriver),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, log, cfg.Environment)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		tctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(tctx); err != nil {
			log.Warn("tracing shutdown failed", slog.String("error", err.Error()))
		}
	}()

	deps := map[string]handler.Pinger{}

	// 1. Store
	var store domain.Store
	switch cfg.StoreDriver {
	case "memory":
		log.Warn("using in-memory store; data is lost on restart")
		store = memory.New()
	default:
		pool, err := retry.Do(ctx, retry.DefaultConfig(), log, "connect to database",
			func(ctx context.Context) (*database.ConnectionPool, error) {
				return database.NewConnectionPool(ctx, &cfg.Database, log)
			})
		if err != nil {
			return err
		}
		defer pool.Close()
		deps["postgres"] = pool

		if cfg.RunMigrations {
			if err := database.Migrate(ctx, pool.GetDB(), database.Up, log); err != nil {
				return err
			}
		}
		store = repository.NewPostgresStore(pool.GetDB(), log)
	}

	// 2. Redis backs the login lockout; without it logins are not throttled
	var throttle service.Throttle
	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	switch {
	case err == nil:
		defer redisClient.Close()
		deps["redis"] = redisClient
		breaker := circuitbreaker.NewCircuitBreaker(3, 1, 30*time.Second)
		breaker.OnStateChange(func(from, to circuitbreaker.State) {
			log.Warn("redis circuit breaker state changed",
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		})
		throttle = ratelimit.NewLoginThrottle(
			ratelimit.NewGuardedCounters(redisClient, breaker),
			cfg.Limits.LoginMaxFailures,
			cfg.Limits.LoginLockout,
			log,
		)
	case cfg.IsProduction():
		return fmt.Errorf("failed to connect to redis: %w", err)
	default:
		log.Warn("redis unavailable, login throttling disabled", slog.String("error", err.Error()))
	}

	// 3. Security
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTLDays)
	resolver := identity.NewResolver(store.Users(), log)
	authz := security.NewAuthorizationService(log)
	rateLimiter := ratelimit.NewLimiter(cfg.Limits.RequestsPerMinute, time.Minute)
	defer rateLimiter.Stop()
	auditLogger := audit.NewLogger(log)

	// 4. Services
	strict := featureflags.Enabled(featureflags.StrictProviderAuth)
	validator := location.NewValidator(strict)
	authOpts := []service.AuthOption{service.WithIdentityInvalidation(resolver.Forget)}
	if throttle != nil {
		authOpts = append(authOpts, service.WithThrottle(throttle))
	}
	authService := service.NewAuthService(store, tokenManager, authz, log, authOpts...)
	sources := service.NewEndpointService(store, domain.LocationSource, validator, authz, log)
	destinations := service.NewEndpointService(store, domain.LocationDestination, validator, authz, log)

	// 5. Routes
	mux := http.NewServeMux()
	handler.NewAuthHandler(authService, log).Register(mux)
	handler.NewEndpointHandler(sources, log).Register(mux)
	handler.NewEndpointHandler(destinations, log).Register(mux)
	handler.NewHealthHandler(deps, log).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	// request id -> metrics -> CORS -> sanitize -> JWT -> rate limit -> audit -> content type
	var root http.Handler = mux
	root = middleware.ValidateJSONContentType(log)(root)
	root = middleware.AuditMiddleware(auditLogger)(root)
	root = middleware.RateLimitMiddleware(rateLimiter, log)(root)
	root = middleware.JWTMiddleware(tokenManager, resolver, log)(root)
	root = middleware.SanitizeInputs(log)(root)
	root = middleware.CORS(cfg.CORSAllowedOrigins)(root)
	root = metrics.HTTPMetricsMiddleware(mux)(root)
	root = requestid.Middleware(log)(root)
	root = otelhttp.NewHandler(root, tracing.ServiceName)

	// 6. Background sweeper
	sweeper := worker.NewOrphanSweeper(store.Locations(), cfg.Sweeper.Interval, cfg.Sweeper.GracePeriod, log)
	go sweeper.Start(ctx)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           root,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.Int("rate_limit", cfg.Limits.RequestsPerMinute),
		slog.Any("flags", featureflags.Snapshot()),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}

package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/startupai/internal/adapter/crewai"
	"github.com/pscheid92/startupai/internal/adapter/httpserver"
	"github.com/pscheid92/startupai/internal/adapter/metrics"
	"github.com/pscheid92/startupai/internal/adapter/postgres"
	"github.com/pscheid92/startupai/internal/adapter/ratelimit"
	"github.com/pscheid92/startupai/internal/adapter/redis"
	"github.com/pscheid92/startupai/internal/adapter/supabase"
	"github.com/pscheid92/startupai/internal/analysis"
	"github.com/pscheid92/startupai/internal/app"
	"github.com/pscheid92/startupai/internal/conversation"
	"github.com/pscheid92/startupai/internal/domain"
	"github.com/pscheid92/startupai/internal/platform/config"
	"github.com/pscheid92/startupai/internal/platform/logging"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
)

// sweepMaxAge covers the longest rate-limit window.
const sweepMaxAge = 15 * time.Minute

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config, reg prometheus.Registerer, clock clockwork.Clock) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tracer := postgres.NewQueryTracer(metrics.NewDBMetrics(reg), clock)
	pool, err := postgres.Connect(ctx, cfg.DatabaseURL, tracer)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := postgres.RunMigrationsWithLock(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return pool
}

// setupRedis returns nil when REDIS_URL is unset. A Redis that is configured
// but unreachable at boot is fatal; later outages fall back to memory limits.
func setupRedis(cfg *config.Config, reg prometheus.Registerer, domainMetrics *metrics.DomainMetrics, clock clockwork.Clock) *goredis.Client {
	if cfg.RedisURL == "" {
		slog.Info("REDIS_URL not set, using in-memory rate limiting")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	breaker := redis.DefaultBreakerSettings()
	breaker.OnStateChange = domainMetrics.BreakerListener("redis")

	client, err := redis.NewClient(ctx, cfg.RedisURL,
		redis.NewMetricsHook(metrics.NewRedisMetrics(reg), clock),
		redis.NewCircuitBreakerHook(breaker),
	)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func setupAuthenticator(cfg *config.Config, domainMetrics *metrics.DomainMetrics, clock clockwork.Clock) domain.Authenticator {
	if cfg.AuthMode() == "jwt" {
		return supabase.NewJWTAuthenticator(cfg.SupabaseJWTSecret, clock)
	}
	return supabase.NewRemoteAuthenticator(supabase.RemoteConfig{
		URL:                  cfg.SupabaseURL,
		AnonKey:              cfg.SupabaseAnonKey,
		OnBreakerStateChange: domainMetrics.BreakerListener("supabase"),
	})
}

func runGracefulShutdown(cfg *config.Config, srv *httpserver.Server, jobs *app.AnalysisJobs, stopSweeper context.CancelFunc) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		// In-flight analyses get whatever is left of the shutdown budget.
		if err := jobs.Shutdown(shutdownCtx); err != nil {
			slog.Error("Analysis workers did not drain", "error", err)
		}

		stopSweeper()
		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port,
		"auth_mode", cfg.AuthMode(), "rate_limit_backend", cfg.RateLimitBackend(), "crew_enabled", cfg.CrewEnabled())

	reg := metrics.NewRegistry()
	domainMetrics := metrics.NewDomainMetrics(reg)

	pool := setupDB(cfg, reg, clock)
	defer pool.Close()

	redisClient := setupRedis(cfg, reg, domainMetrics, clock)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	// Rate limiting: Redis when configured, memory always as the fallback.
	memoryLimiter := ratelimit.NewMemoryLimiter(clock)
	var primary domain.RateLimiter
	if redisClient != nil {
		primary = redis.NewRateLimiter(redisClient, clock)
	}
	limiter := ratelimit.NewFallbackLimiter(primary, memoryLimiter, domainMetrics)

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	go app.NewSweeper(memoryLimiter, sweepMaxAge, clock).Run(sweepCtx)

	// Pass nil explicitly to avoid a typed-nil interface when crew is disabled.
	var crewClient *crewai.Client
	var workflow domain.WorkflowClient
	if cfg.CrewEnabled() {
		crewCfg := crewai.DefaultConfig(cfg.CrewAPIURL, cfg.CrewAPIToken, cfg.CrewPollInterval)
		crewCfg.OnBreakerStateChange = domainMetrics.BreakerListener("crewai")
		crewCfg.Clock = clock
		crewClient = crewai.NewClient(crewCfg)
		workflow = crewClient
	} else {
		slog.Warn("CREW_API_URL not set, analyses will use the fallback recommendation")
	}

	catalog, err := conversation.LoadCatalog()
	if err != nil {
		slog.Error("Failed to load conversation catalog", "error", err)
		os.Exit(1)
	}

	analysisEngine := analysis.NewEngine(workflow, clock, cfg.CrewTimeout)
	jobs := app.NewAnalysisJobs(postgres.NewAnalysisRepo(pool), analysisEngine,
		cfg.AnalysisWorkers, cfg.AnalysisQueueSize, domainMetrics, clock)

	// Redis and crewai have fallbacks, so they are reported but never gate readiness.
	checks := []app.HealthCheck{
		{Name: "postgres", Check: pool.Ping, Critical: true},
	}
	if redisClient != nil {
		checks = append(checks, app.HealthCheck{Name: "redis", Check: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}})
	}
	if crewClient != nil {
		checks = append(checks, app.HealthCheck{Name: "crewai", Check: crewClient.Ping})
	}

	appSvc := app.NewService(app.Deps{
		Projects:     postgres.NewProjectRepo(pool),
		Evidence:     postgres.NewEvidenceRepo(pool),
		Limiter:      limiter,
		Conversation: conversation.NewEngine(catalog, clock),
		Analysis:     analysisEngine,
		Jobs:         jobs,
		Checks:       checks,
		Settings: app.Settings{
			Environment:      cfg.AppEnv,
			CrewConfigured:   cfg.CrewEnabled(),
			AuthMode:         cfg.AuthMode(),
			RateLimitBackend: cfg.RateLimitBackend(),
			PollInterval:     cfg.CrewPollInterval,
			CrewTimeout:      cfg.CrewTimeout,
		},
		Recorder: domainMetrics,
		Clock:    clock,
	})

	srv := httpserver.NewServer(httpserver.Deps{
		Config:         cfg,
		App:            appSvc,
		Authenticator:  setupAuthenticator(cfg, domainMetrics, clock),
		HTTPMetrics:    metrics.NewHTTPMetrics(reg),
		AuthRecorder:   domainMetrics,
		MetricsHandler: metrics.Handler(reg),
		Clock:          clock,
	})

	done := runGracefulShutdown(cfg, srv, jobs, stopSweeper)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}

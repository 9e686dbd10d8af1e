package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/joho/godotenv"

	"github.com/saturnino-fabrica-de-software/trackai/internal/api"
	"github.com/saturnino-fabrica-de-software/trackai/internal/archive"
	"github.com/saturnino-fabrica-de-software/trackai/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/trackai/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/trackai/internal/audit"
	"github.com/saturnino-fabrica-de-software/trackai/internal/cache"
	"github.com/saturnino-fabrica-de-software/trackai/internal/click"
	"github.com/saturnino-fabrica-de-software/trackai/internal/config"
	"github.com/saturnino-fabrica-de-software/trackai/internal/database"
	"github.com/saturnino-fabrica-de-software/trackai/internal/enqueue"
	"github.com/saturnino-fabrica-de-software/trackai/internal/gateway"
	"github.com/saturnino-fabrica-de-software/trackai/internal/intake"
	"github.com/saturnino-fabrica-de-software/trackai/internal/matching"
	"github.com/saturnino-fabrica-de-software/trackai/internal/queue"
	"github.com/saturnino-fabrica-de-software/trackai/internal/repository"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Environment)
	slog.SetDefault(logger)

	logger.Info("starting Track AI API",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.Port),
		slog.Bool("match_inline", cfg.MatchInline),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPool(ctx, database.DefaultPoolConfig(cfg.DatabaseURL))
	if err != nil {
		return err
	}
	defer pool.Close()

	checks := map[string]handler.Checker{
		"database": func(ctx context.Context) error { return database.HealthCheck(ctx, pool) },
	}

	tenants := repository.NewTenantRepository(pool)
	clicks := repository.NewClickRepository(pool)
	conversions := repository.NewConversionRepository(pool)
	auditLogger := audit.NewSlogLogger(logger)

	// Gateway secrets, optionally behind Redis
	var secrets intake.GatewaySecretStore = repository.NewGatewaySecretRepository(pool)
	if cfg.RedisURL != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer func() { _ = rdb.Close() }()

		cacheKey, err := secretCacheKey(cfg, logger)
		if err != nil {
			return err
		}

		redisCache := cache.NewRedisCache(rdb, cache.DefaultPrefix)
		secrets, err = repository.NewCachedGatewaySecretStore(secrets, redisCache, cfg.SecretCacheTTL, cacheKey)
		if err != nil {
			return err
		}
		checks["redis"] = redisCache.Ping
	}

	deps := intake.Deps{
		Tenants:     tenants,
		Adapters:    gateway.NewRegistry(),
		Secrets:     secrets,
		WebhookRaws: repository.NewWebhookRawRepository(pool),
		Conversions: conversions,
		Audit:       auditLogger,
	}

	engine := matching.NewEngine(clicks, conversions,
		repository.NewMatchLogRepository(pool), logger,
		matching.WithAudit(auditLogger),
	)
	if cfg.MatchInline {
		deps.Matcher = engine
	}

	var awsCfg aws.Config
	if cfg.CAPIQueueURL != "" || cfg.ArchiveBucket != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return fmt.Errorf("failed to load AWS config: %w", err)
		}
	}

	// Delivery stats read the conversions table, with or without a queue.
	var delivery handler.DeliveryStatsService = conversions
	if cfg.CAPIQueueURL != "" {
		q := queue.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.CAPIQueueURL)
		enqueuer := enqueue.NewService(conversions, q, logger)
		deps.Enqueuer = enqueuer
		delivery = enqueuer
	} else {
		logger.Warn("CAPI_QUEUE_URL not set, conversions will not be queued for dispatch")
	}

	if cfg.ArchiveBucket != "" {
		deps.Archive = archive.NewS3Archiver(s3.NewFromConfig(awsCfg), cfg.ArchiveBucket, cfg.ArchivePrefix)
	}

	clickLimit := middleware.DefaultRateLimiterConfig()
	clickLimit.Max = cfg.ClickRateLimit

	// Setup router
	router := api.NewRouter(logger, &api.Dependencies{
		Intake:         intake.NewCoordinator(deps, logger),
		Clicks:         click.NewService(tenants, clicks, logger),
		Pageviews:      click.NewPageviewService(tenants, repository.NewPageviewRepository(pool), logger),
		Checkouts:      click.NewCheckoutService(tenants, repository.NewCheckoutRepository(pool), logger),
		Adapters:       deps.Adapters,
		Tenants:        tenants,
		MatchStats:     engine,
		DeliveryStats:  delivery,
		Checks:         checks,
		ClickRateLimit: clickLimit,
	})
	router.Setup()

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("server listening", slog.String("addr", addr))
		if err := router.Listen(addr); err != nil {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("shutting down server...")
	done := make(chan error, 1)
	go func() { done <- router.Shutdown() }()

	select {
	case err := <-done:
		if err != nil {
			logger.Error("shutdown error", slog.Any("error", err))
		}
	case <-time.After(10 * time.Second):
		logger.Error("shutdown timed out")
	}

	logger.Info("server stopped")
	return nil
}

// secretCacheKey returns the configured key, or a random one when unset.
// A random key still protects Redis but each replica warms its own entries.
func secretCacheKey(cfg *config.Config, logger *slog.Logger) ([]byte, error) {
	if cfg.SecretCacheKey != "" {
		return cfg.SecretCacheKeyBytes()
	}
	logger.Warn("SECRET_CACHE_KEY not set, using a per-process key for the secret cache")
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate secret cache key: %w", err)
	}
	return key, nil
}

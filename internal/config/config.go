package config

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is read from the environment by Load.
type Config struct {
	// Server
	Port        int    `envconfig:"PORT" default:"3000"`
	Environment string `envconfig:"ENV" default:"development"`

	// Datastores
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	RedisURL    string `envconfig:"REDIS_URL"` // empty disables the secret cache

	SecretCacheTTL time.Duration `envconfig:"SECRET_CACHE_TTL" default:"5m"`
	// 64 hex chars sealing cached secrets. Empty uses a per-process key.
	SecretCacheKey string `envconfig:"SECRET_CACHE_KEY"`

	// AWS
	AWSRegion      string `envconfig:"AWS_REGION" default:"us-east-1"`
	CAPIQueueURL   string `envconfig:"CAPI_QUEUE_URL"`
	CAPIDLQURL     string `envconfig:"CAPI_DLQ_URL"`
	CAPISecretName string `envconfig:"CAPI_SECRET_NAME" default:"track-ai/capi-credentials"`

	// Conversions API
	CAPIGraphVersion string        `envconfig:"CAPI_GRAPH_VERSION" default:"v21.0"`
	CAPITimeout      time.Duration `envconfig:"CAPI_TIMEOUT" default:"3s"`

	// Dispatch worker
	WorkerPollInterval      time.Duration `envconfig:"WORKER_POLL_INTERVAL" default:"5s"`
	WorkerMaxMessages       int32         `envconfig:"WORKER_MAX_MESSAGES" default:"10"`
	WorkerVisibilityTimeout time.Duration `envconfig:"WORKER_VISIBILITY_TIMEOUT" default:"60s"`
	WorkerWaitTime          time.Duration `envconfig:"WORKER_WAIT_TIME" default:"10s"`
	MetricsNamespace        string        `envconfig:"METRICS_NAMESPACE" default:"Track-AI/CAPI"`

	// Re-enqueue sweep, run by the worker with --sweep-unsent
	SweepMinAge    time.Duration `envconfig:"SWEEP_MIN_AGE" default:"15m"`
	SweepBatchSize int           `envconfig:"SWEEP_BATCH_SIZE" default:"500"`

	// Circuit breaker
	BreakerFailureThreshold int           `envconfig:"BREAKER_FAILURE_THRESHOLD" default:"5"`
	BreakerSuccessThreshold int           `envconfig:"BREAKER_SUCCESS_THRESHOLD" default:"2"`
	BreakerResetTimeout     time.Duration `envconfig:"BREAKER_RESET_TIMEOUT" default:"60s"`

	// Intake
	MatchInline    bool   `envconfig:"MATCH_INLINE" default:"true"`
	ClickRateLimit int    `envconfig:"CLICK_RATE_LIMIT" default:"600"` // per tenant and IP, per minute
	ArchiveBucket  string `envconfig:"WEBHOOK_ARCHIVE_BUCKET"`         // empty disables the S3 archive
	ArchivePrefix  string `envconfig:"WEBHOOK_ARCHIVE_PREFIX"`
}

// Load reads the Config from the environment, applying defaults.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.WorkerMaxMessages < 1 || cfg.WorkerMaxMessages > 10 {
		return nil, fmt.Errorf("load config: WORKER_MAX_MESSAGES must be between 1 and 10, got %d", cfg.WorkerMaxMessages)
	}
	if cfg.SecretCacheKey != "" {
		if _, err := cfg.SecretCacheKeyBytes(); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// SecretCacheKeyBytes decodes SECRET_CACHE_KEY into a 32-byte key.
func (c *Config) SecretCacheKeyBytes() ([]byte, error) {
	key, err := hex.DecodeString(c.SecretCacheKey)
	if err != nil {
		return nil, fmt.Errorf("load config: SECRET_CACHE_KEY must be hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("load config: SECRET_CACHE_KEY must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr bool
		check   func(*Config) bool
	}{
		{
			name: "loads with all required vars",
			envVars: map[string]string{
				"PORT":                   "8080",
				"ENV":                    "production",
				"DATABASE_URL":           "postgres://localhost/test",
				"REDIS_URL":              "redis://localhost:6379/0",
				"CAPI_QUEUE_URL":         "https://sqs.us-east-1.amazonaws.com/123/capi.fifo",
				"CAPI_TIMEOUT":           "5s",
				"WORKER_MAX_MESSAGES":    "5",
				"MATCH_INLINE":           "false",
				"BREAKER_RESET_TIMEOUT":  "30s",
				"WEBHOOK_ARCHIVE_BUCKET": "trackai-webhooks",
			},
			wantErr: false,
			check: func(c *Config) bool {
				return c.Port == 8080 &&
					c.Environment == "production" &&
					c.DatabaseURL == "postgres://localhost/test" &&
					c.RedisURL == "redis://localhost:6379/0" &&
					c.CAPIQueueURL == "https://sqs.us-east-1.amazonaws.com/123/capi.fifo" &&
					c.CAPITimeout == 5*time.Second &&
					c.WorkerMaxMessages == 5 &&
					!c.MatchInline &&
					c.BreakerResetTimeout == 30*time.Second &&
					c.ArchiveBucket == "trackai-webhooks"
			},
		},
		{
			name: "uses defaults when optional vars missing",
			envVars: map[string]string{
				"DATABASE_URL": "postgres://localhost/test",
			},
			wantErr: false,
			check: func(c *Config) bool {
				return c.Port == 3000 &&
					c.Environment == "development" &&
					c.RedisURL == "" &&
					c.SecretCacheTTL == 5*time.Minute &&
					c.CAPIGraphVersion == "v21.0" &&
					c.CAPITimeout == 3*time.Second &&
					c.WorkerPollInterval == 5*time.Second &&
					c.WorkerMaxMessages == 10 &&
					c.WorkerVisibilityTimeout == 60*time.Second &&
					c.SweepMinAge == 15*time.Minute &&
					c.SweepBatchSize == 500 &&
					c.WorkerWaitTime == 10*time.Second &&
					c.BreakerFailureThreshold == 5 &&
					c.BreakerSuccessThreshold == 2 &&
					c.BreakerResetTimeout == 60*time.Second &&
					c.MetricsNamespace == "Track-AI/CAPI" &&
					c.ClickRateLimit == 600 &&
					c.ArchiveBucket == "" &&
					c.MatchInline
			},
		},
		{
			name:    "fails when DATABASE_URL missing",
			envVars: map[string]string{},
			wantErr: true,
			check:   nil,
		},
		{
			name: "fails when batch size exceeds the SQS limit",
			envVars: map[string]string{
				"DATABASE_URL":        "postgres://localhost/test",
				"WORKER_MAX_MESSAGES": "25",
			},
			wantErr: true,
			check:   nil,
		},
		{
			name: "accepts a 32-byte secret cache key",
			envVars: map[string]string{
				"DATABASE_URL":     "postgres://localhost/test",
				"SECRET_CACHE_KEY": "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f",
			},
			wantErr: false,
			check: func(c *Config) bool {
				key, err := c.SecretCacheKeyBytes()
				return err == nil && len(key) == 32
			},
		},
		{
			name: "fails on a secret cache key that is not hex",
			envVars: map[string]string{
				"DATABASE_URL":     "postgres://localhost/test",
				"SECRET_CACHE_KEY": "not-hex",
			},
			wantErr: true,
			check:   nil,
		},
		{
			name: "fails on a secret cache key of the wrong length",
			envVars: map[string]string{
				"DATABASE_URL":     "postgres://localhost/test",
				"SECRET_CACHE_KEY": "0011223344",
			},
			wantErr: true,
			check:   nil,
		},
		{
			name: "fails on malformed duration",
			envVars: map[string]string{
				"DATABASE_URL": "postgres://localhost/test",
				"CAPI_TIMEOUT": "soon",
			},
			wantErr: true,
			check:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Clear environment
			os.Clearenv()

			// Set test environment variables
			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}

			cfg, err := Load()

			if tt.wantErr {
				if err == nil {
					t.Errorf("Load() expected error, got nil")
				}
				return
			}

			if err != nil {
				t.Errorf("Load() unexpected error: %v", err)
				return
			}

			if tt.check != nil && !tt.check(cfg) {
				t.Errorf("Load() config check failed, got: %+v", cfg)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	for _, env := range []string{"production", "development", "staging"} {
		t.Run(env, func(t *testing.T) {
			if NewLogger(env) == nil {
				t.Fatal("NewLogger() returned nil")
			}
		})
	}
}

func TestConfig_IsDevelopment(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want bool
	}{
		{"development", "development", true},
		{"production", "production", false},
		{"staging", "staging", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{Environment: tt.env}
			if got := c.IsDevelopment(); got != tt.want {
				t.Errorf("IsDevelopment() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfig_IsProduction(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want bool
	}{
		{"production", "production", true},
		{"development", "development", false},
		{"staging", "staging", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{Environment: tt.env}
			if got := c.IsProduction(); got != tt.want {
				t.Errorf("IsProduction() = %v, want %v", got, tt.want)
			}
		})
	}
}

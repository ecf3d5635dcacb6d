package config

import (
	"testing"
	"time"

	"github.com/SscSPs/txn_categorizer/internal/apperrors"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		DatabaseURL:             "postgres://localhost/test",
		StoreDriver:             StoreDriverPostgres,
		LogLevel:                "info",
		HighConfidenceThreshold: decimal.RequireFromString("0.90"),
		LowConfidenceThreshold:  decimal.RequireFromString("0.50"),
		MaxAIAttempts:           3,
		RetryBaseDelay:          2 * time.Second,
		RetryMaxDelay:           5 * time.Minute,
		GatewayTimeout:          30 * time.Second,
		ClaimLivenessTimeout:    time.Minute,
		WorkerCount:             2,
		WorkerBatchSize:         10,
		WorkerPollInterval:      time.Second,
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	viper.Reset()
	t.Setenv("STORE_DRIVER", "memory")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StoreDriverMemory, cfg.StoreDriver)
	assert.True(t, decimal.RequireFromString("0.90").Equal(cfg.HighConfidenceThreshold))
	assert.True(t, decimal.RequireFromString("0.50").Equal(cfg.LowConfidenceThreshold))
	assert.Equal(t, 3, cfg.MaxAIAttempts)
	assert.Equal(t, 30*time.Second, cfg.GatewayTimeout)
	assert.Equal(t, 60*time.Second, cfg.ClaimLivenessTimeout, "liveness defaults to twice the gateway timeout")
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	viper.Reset()
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("HIGH_CONFIDENCE_THRESHOLD", "0.8")
	t.Setenv("LOW_CONFIDENCE_THRESHOLD", "0.3")
	t.Setenv("GATEWAY_TIMEOUT", "10s")
	t.Setenv("CLAIM_LIVENESS_TIMEOUT", "45s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.True(t, decimal.RequireFromString("0.8").Equal(cfg.HighConfidenceThreshold))
	assert.True(t, decimal.RequireFromString("0.3").Equal(cfg.LowConfidenceThreshold))
	assert.Equal(t, 45*time.Second, cfg.ClaimLivenessTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
}

func TestLoadConfig_BadThreshold(t *testing.T) {
	viper.Reset()
	t.Setenv("HIGH_CONFIDENCE_THRESHOLD", "very")

	_, err := LoadConfig()
	assert.ErrorIs(t, err, apperrors.ErrConfiguration)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"low above high", func(c *Config) { c.LowConfidenceThreshold = decimal.RequireFromString("0.95") }},
		{"high above one", func(c *Config) { c.HighConfidenceThreshold = decimal.RequireFromString("1.2") }},
		{"negative low", func(c *Config) { c.LowConfidenceThreshold = decimal.RequireFromString("-0.1") }},
		{"zero attempts", func(c *Config) { c.MaxAIAttempts = 0 }},
		{"max delay below base", func(c *Config) { c.RetryMaxDelay = time.Second }},
		{"liveness not above gateway timeout", func(c *Config) { c.ClaimLivenessTimeout = c.GatewayTimeout }},
		{"missing database url", func(c *Config) { c.DatabaseURL = "" }},
		{"unknown store driver", func(c *Config) { c.StoreDriver = "sqlite" }},
		{"unknown log level", func(c *Config) { c.LogLevel = "chatty" }},
		{"zero batch size", func(c *Config) { c.WorkerBatchSize = 0 }},
	}

	base := validConfig()
	require.NoError(t, base.Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), apperrors.ErrConfiguration)
		})
	}
}

func TestValidate_EqualThresholdsAllowed(t *testing.T) {
	cfg := validConfig()
	cfg.LowConfidenceThreshold = cfg.HighConfidenceThreshold
	assert.NoError(t, cfg.Validate())
}

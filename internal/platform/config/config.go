package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/SscSPs/txn_categorizer/internal/apperrors"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Store drivers selectable through STORE_DRIVER.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL        string
	Port               string
	IsProduction       bool
	EnableDBCheck      bool
	LogLevel           string
	StoreDriver        string
	JWTSecret          string
	JWTIssuer          string
	RateLimit          string   // ulule formatted, e.g. "100-M"
	CORSAllowedOrigins []string // empty means allow all
	ShutdownTimeout    time.Duration

	// Confidence routing
	HighConfidenceThreshold decimal.Decimal
	LowConfidenceThreshold  decimal.Decimal

	// Classification worker
	MaxAIAttempts        int
	RetryBaseDelay       time.Duration
	RetryMaxDelay        time.Duration
	GatewayTimeout       time.Duration
	ClaimLivenessTimeout time.Duration
	WorkerCount          int
	WorkerBatchSize      int
	WorkerPollInterval   time.Duration
	SweepSchedule        string

	// Inference gateway
	GeminiAPIKey string
	GeminiModel  string
}

// LoadConfig loads configuration from environment variables and .env file if present.
// The result is not validated; call Validate before using it.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	setDefaults()
	viper.AutomaticEnv()

	cfg := &Config{
		DatabaseURL:        viper.GetString("PGSQL_URL"),
		Port:               viper.GetString("PORT"),
		IsProduction:       viper.GetBool("IS_PRODUCTION"),
		EnableDBCheck:      viper.GetBool("ENABLE_DB_CHECK"),
		LogLevel:           strings.ToLower(viper.GetString("LOG_LEVEL")),
		StoreDriver:        strings.ToLower(viper.GetString("STORE_DRIVER")),
		JWTSecret:          viper.GetString("JWT_SECRET"),
		JWTIssuer:          viper.GetString("JWT_ISSUER"),
		RateLimit:          viper.GetString("RATE_LIMIT"),
		CORSAllowedOrigins: splitList(viper.GetString("CORS_ALLOWED_ORIGINS")),
		ShutdownTimeout:    viper.GetDuration("SHUTDOWN_TIMEOUT"),
		MaxAIAttempts:      viper.GetInt("MAX_AI_ATTEMPTS"),
		RetryBaseDelay:     viper.GetDuration("RETRY_BASE_DELAY"),
		RetryMaxDelay:      viper.GetDuration("RETRY_MAX_DELAY"),
		GatewayTimeout:     viper.GetDuration("GATEWAY_TIMEOUT"),
		WorkerCount:        viper.GetInt("WORKER_COUNT"),
		WorkerBatchSize:    viper.GetInt("WORKER_BATCH_SIZE"),
		WorkerPollInterval: viper.GetDuration("WORKER_POLL_INTERVAL"),
		SweepSchedule:      viper.GetString("SWEEP_SCHEDULE"),
		GeminiAPIKey:       viper.GetString("GEMINI_API_KEY"),
		GeminiModel:        viper.GetString("GEMINI_MODEL"),
	}

	var err error
	if cfg.HighConfidenceThreshold, err = decimal.NewFromString(viper.GetString("HIGH_CONFIDENCE_THRESHOLD")); err != nil {
		return nil, fmt.Errorf("%w: HIGH_CONFIDENCE_THRESHOLD: %v", apperrors.ErrConfiguration, err)
	}
	if cfg.LowConfidenceThreshold, err = decimal.NewFromString(viper.GetString("LOW_CONFIDENCE_THRESHOLD")); err != nil {
		return nil, fmt.Errorf("%w: LOW_CONFIDENCE_THRESHOLD: %v", apperrors.ErrConfiguration, err)
	}

	// Liveness defaults to twice the gateway timeout when not set explicitly.
	cfg.ClaimLivenessTimeout = viper.GetDuration("CLAIM_LIVENESS_TIMEOUT")
	if cfg.ClaimLivenessTimeout == 0 {
		cfg.ClaimLivenessTimeout = 2 * cfg.GatewayTimeout
	}

	if cfg.DatabaseURL == "" && cfg.StoreDriver == StoreDriverPostgres {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}
	if cfg.JWTSecret == defaultJWTSecret {
		log.Println("Warning: JWT_SECRET environment variable not set. Using default insecure key.")
	}
	if cfg.GeminiAPIKey == "" {
		log.Println("Warning: GEMINI_API_KEY not set. Classification attempts will fail until it is configured.")
	}

	return cfg, nil
}

const defaultJWTSecret = "a-very-secret-key-should-be-longer-and-random"

func setDefaults() {
	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("ENABLE_DB_CHECK", false)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("STORE_DRIVER", StoreDriverPostgres)
	viper.SetDefault("JWT_SECRET", defaultJWTSecret)
	viper.SetDefault("JWT_ISSUER", "txn-categorizer")
	viper.SetDefault("RATE_LIMIT", "100-M")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "")
	viper.SetDefault("SHUTDOWN_TIMEOUT", "15s")
	viper.SetDefault("HIGH_CONFIDENCE_THRESHOLD", "0.90")
	viper.SetDefault("LOW_CONFIDENCE_THRESHOLD", "0.50")
	viper.SetDefault("MAX_AI_ATTEMPTS", 3)
	viper.SetDefault("RETRY_BASE_DELAY", "2s")
	viper.SetDefault("RETRY_MAX_DELAY", "5m")
	viper.SetDefault("GATEWAY_TIMEOUT", "30s")
	viper.SetDefault("CLAIM_LIVENESS_TIMEOUT", "0s")
	viper.SetDefault("WORKER_COUNT", 4)
	viper.SetDefault("WORKER_BATCH_SIZE", 10)
	viper.SetDefault("WORKER_POLL_INTERVAL", "5s")
	viper.SetDefault("SWEEP_SCHEDULE", "@every 1m")
	viper.SetDefault("GEMINI_API_KEY", "")
	viper.SetDefault("GEMINI_MODEL", "gemini-2.5-flash")
}

// Validate rejects configurations the pipeline cannot run with. All failures wrap
// apperrors.ErrConfiguration and are fatal at startup.
func (c *Config) Validate() error {
	one := decimal.NewFromInt(1)
	inUnitRange := func(d decimal.Decimal) bool {
		return !d.IsNegative() && d.LessThanOrEqual(one)
	}

	switch {
	case !inUnitRange(c.HighConfidenceThreshold):
		return fmt.Errorf("%w: high confidence threshold %s outside [0,1]", apperrors.ErrConfiguration, c.HighConfidenceThreshold)
	case !inUnitRange(c.LowConfidenceThreshold):
		return fmt.Errorf("%w: low confidence threshold %s outside [0,1]", apperrors.ErrConfiguration, c.LowConfidenceThreshold)
	case c.LowConfidenceThreshold.GreaterThan(c.HighConfidenceThreshold):
		return fmt.Errorf("%w: low confidence threshold %s exceeds high threshold %s", apperrors.ErrConfiguration, c.LowConfidenceThreshold, c.HighConfidenceThreshold)
	case c.MaxAIAttempts <= 0:
		return fmt.Errorf("%w: MAX_AI_ATTEMPTS must be positive", apperrors.ErrConfiguration)
	case c.RetryBaseDelay <= 0 || c.RetryMaxDelay < c.RetryBaseDelay:
		return fmt.Errorf("%w: retry delays must satisfy 0 < base <= max", apperrors.ErrConfiguration)
	case c.GatewayTimeout <= 0:
		return fmt.Errorf("%w: GATEWAY_TIMEOUT must be positive", apperrors.ErrConfiguration)
	case c.ClaimLivenessTimeout <= c.GatewayTimeout:
		return fmt.Errorf("%w: CLAIM_LIVENESS_TIMEOUT must exceed GATEWAY_TIMEOUT", apperrors.ErrConfiguration)
	case c.WorkerCount < 0 || c.WorkerBatchSize <= 0:
		return fmt.Errorf("%w: worker count must be non-negative and batch size positive", apperrors.ErrConfiguration)
	case c.WorkerCount > 0 && c.WorkerPollInterval <= 0:
		return fmt.Errorf("%w: WORKER_POLL_INTERVAL must be positive", apperrors.ErrConfiguration)
	}

	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: PGSQL_URL is required for the postgres store", apperrors.ErrConfiguration)
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("%w: unknown STORE_DRIVER %q", apperrors.ErrConfiguration, c.StoreDriver)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown LOG_LEVEL %q", apperrors.ErrConfiguration, c.LogLevel)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
